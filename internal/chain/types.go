package chain

import (
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/ethereum/go-ethereum/crypto"
)

// Money is an amount of the native settlement currency in minor units. No floats.
type Money int64

func (m Money) IsPositive() bool { return m > 0 }
func (m Money) IsZero() bool     { return m == 0 }

// Currency is the single native unit everything settles in.
const Currency = "ART"

// MaxRoyaltyBasisPoints caps royalty rates at 100% (10000 = 100%).
const MaxRoyaltyBasisPoints = 10000

// ContentHash returns the deterministic Keccak-256 digest of a file's bytes.
// It is the stable identifier a creator registers and mints against.
func ContentHash(data []byte) common.Hash {
	return crypto.Keccak256Hash(data)
}

// ParseAddress validates and decodes a 0x-prefixed hex wallet address.
func ParseAddress(s string) (common.Address, error) {
	s = strings.TrimSpace(s)
	if !common.IsHexAddress(s) {
		return common.Address{}, Errorf(ErrValidation, "invalid address %q", s)
	}
	addr := common.HexToAddress(s)
	if addr == (common.Address{}) {
		return common.Address{}, Errorf(ErrValidation, "zero address")
	}
	return addr, nil
}

// ParseHash validates and decodes a 0x-prefixed 32-byte hex digest.
func ParseHash(s string) (common.Hash, error) {
	s = strings.TrimSpace(s)
	raw := strings.TrimPrefix(strings.ToLower(s), "0x")
	if len(raw) != common.HashLength*2 {
		return common.Hash{}, Errorf(ErrValidation, "content hash must be %d hex characters", common.HashLength*2)
	}
	for _, r := range raw {
		if (r < '0' || r > '9') && (r < 'a' || r > 'f') {
			return common.Hash{}, Errorf(ErrValidation, "content hash is not valid hex")
		}
	}
	h := common.HexToHash(s)
	if h == (common.Hash{}) {
		return common.Hash{}, Errorf(ErrValidation, "zero content hash")
	}
	return h, nil
}
