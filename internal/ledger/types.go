package ledger

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
)

// Account holds the native-currency balance of a wallet address.
type Account struct {
	Address   common.Address `json:"address"`
	CreatedAt time.Time      `json:"created_at"`
	Balance   chain.Money    `json:"balance"`
}

// Entry records one completed value movement. Settlements that split a payment
// produce one entry per leg, all sharing a settlement id.
type Entry struct {
	ID           string         `json:"id"`
	SettlementID string         `json:"settlement_id,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
	From         common.Address `json:"from"`
	To           common.Address `json:"to"`
	Amount       chain.Money    `json:"amount"`
	Memo         string         `json:"memo,omitempty"`
	Sequence     uint64         `json:"sequence"`
}

// Leg is one payout of a settlement: who receives how much, and why.
type Leg struct {
	To     common.Address
	Amount chain.Money
	Memo   string
}
