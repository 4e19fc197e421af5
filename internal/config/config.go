package config

import (
	"fmt"

	"github.com/kelseyhightower/envconfig"

	"artledger.org/internal/chain"

	"github.com/ethereum/go-ethereum/common"
)

// Config holds gateway settings, processed from ARTLEDGER_* environment
// variables.
type Config struct {
	ListenAddr      string `envconfig:"LISTEN_ADDR" default:":8080"`
	PGDSN           string `envconfig:"PG_DSN"`
	AdminAddress    string `envconfig:"ADMIN_ADDRESS" default:"0x00000000000000000000000000000000000000Ad"`
	TreasuryAddress string `envconfig:"TREASURY_ADDRESS" default:"0x000000000000000000000000000000000000007e"`
	MarketAddress   string `envconfig:"MARKET_ADDRESS" default:"0x000000000000000000000000000000000000003A"`
	VerificationFee int64  `envconfig:"VERIFICATION_FEE" default:"25000"`
	OpenMinting     bool   `envconfig:"OPEN_MINTING" default:"true"`
	RateBurst       int    `envconfig:"RATE_BURST" default:"20"`
	RatePerSec      int    `envconfig:"RATE_PER_SEC" default:"10"`
}

// Load processes environment variables into a validated Config.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("artledger", &cfg); err != nil {
		return nil, fmt.Errorf("process environment: %w", err)
	}
	for name, raw := range map[string]string{
		"admin":    cfg.AdminAddress,
		"treasury": cfg.TreasuryAddress,
		"market":   cfg.MarketAddress,
	} {
		if _, err := chain.ParseAddress(raw); err != nil {
			return nil, fmt.Errorf("%s address: %w", name, err)
		}
	}
	if cfg.VerificationFee < 0 {
		return nil, fmt.Errorf("verification fee must be >= 0")
	}
	return &cfg, nil
}

// Admin returns the parsed administrator address.
func (c *Config) Admin() common.Address { return common.HexToAddress(c.AdminAddress) }

// Treasury returns the parsed treasury address collecting verification fees.
func (c *Config) Treasury() common.Address { return common.HexToAddress(c.TreasuryAddress) }

// Market returns the parsed marketplace address sellers approve.
func (c *Config) Market() common.Address { return common.HexToAddress(c.MarketAddress) }

// Fee returns the verification fee as Money.
func (c *Config) Fee() chain.Money { return chain.Money(c.VerificationFee) }
