package ledger

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
	"artledger.org/internal/ids"
)

// Service defines the native funds ledger the registries and marketplace
// settle through.
type Service interface {
	CreateAccount(ctx context.Context, addr common.Address, initial chain.Money) (Account, error)
	Account(ctx context.Context, addr common.Address) (Account, error)
	Balance(ctx context.Context, addr common.Address) (chain.Money, error)
	Transfer(ctx context.Context, from, to common.Address, amount chain.Money, memo string) (Entry, error)
	Settle(ctx context.Context, from common.Address, legs []Leg) ([]Entry, error)
	ListEntries(ctx context.Context, limit int, afterSeq uint64) ([]Entry, uint64, error)
}

// InMemory implements Service with in-process concurrency safety. The single
// mutex gives the same serialized, all-or-nothing transaction model a chain VM
// gives contract calls.
type InMemory struct {
	mu      sync.RWMutex
	accts   map[common.Address]*Account
	seq     uint64
	entries []Entry
}

// NewInMemory creates an empty funds ledger.
func NewInMemory() *InMemory {
	return &InMemory{accts: make(map[common.Address]*Account)}
}

func (s *InMemory) CreateAccount(ctx context.Context, addr common.Address, initial chain.Money) (Account, error) {
	if addr == (common.Address{}) {
		return Account{}, chain.Errorf(chain.ErrValidation, "zero address")
	}
	if initial < 0 {
		return Account{}, chain.Errorf(chain.ErrValidation, "initial balance must be >= 0")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.accts[addr]; ok {
		return Account{}, chain.Errorf(chain.ErrValidation, "account %s already exists", addr.Hex())
	}
	acc := &Account{Address: addr, CreatedAt: time.Now().UTC(), Balance: initial}
	s.accts[addr] = acc
	return *acc, nil
}

func (s *InMemory) Account(ctx context.Context, addr common.Address) (Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[addr]
	if !ok {
		return Account{}, chain.Errorf(chain.ErrNotFound, "account %s", addr.Hex())
	}
	return *acc, nil
}

func (s *InMemory) Balance(ctx context.Context, addr common.Address) (chain.Money, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	acc, ok := s.accts[addr]
	if !ok {
		return 0, chain.Errorf(chain.ErrNotFound, "account %s", addr.Hex())
	}
	return acc.Balance, nil
}

func (s *InMemory) Transfer(ctx context.Context, from, to common.Address, amount chain.Money, memo string) (Entry, error) {
	entries, err := s.Settle(ctx, from, []Leg{{To: to, Amount: amount, Memo: memo}})
	if err != nil {
		return Entry{}, err
	}
	return entries[0], nil
}

// Settle debits from's account by the sum of all legs and credits each leg's
// recipient, all under one lock. Either every leg applies or none does.
// Recipients without an account get one implicitly, matching on-chain
// semantics where any address can receive value.
func (s *InMemory) Settle(ctx context.Context, from common.Address, legs []Leg) ([]Entry, error) {
	if len(legs) == 0 {
		return nil, chain.Errorf(chain.ErrValidation, "settlement requires at least one leg")
	}
	var total chain.Money
	for _, leg := range legs {
		if !leg.Amount.IsPositive() {
			return nil, chain.Errorf(chain.ErrValidation, "leg amount must be > 0")
		}
		if leg.To == (common.Address{}) {
			return nil, chain.Errorf(chain.ErrValidation, "leg recipient is the zero address")
		}
		total += leg.Amount
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	payer, ok := s.accts[from]
	if !ok {
		return nil, chain.Errorf(chain.ErrNotFound, "account %s", from.Hex())
	}
	if payer.Balance < total {
		return nil, chain.Errorf(chain.ErrInsufficientFunds, "balance %d < %d", payer.Balance, total)
	}

	now := time.Now().UTC()
	settlementID := ""
	if len(legs) > 1 {
		settlementID = ids.New()
	}

	payer.Balance -= total
	out := make([]Entry, 0, len(legs))
	for _, leg := range legs {
		rcpt, ok := s.accts[leg.To]
		if !ok {
			rcpt = &Account{Address: leg.To, CreatedAt: now}
			s.accts[leg.To] = rcpt
		}
		rcpt.Balance += leg.Amount

		s.seq++
		entry := Entry{
			ID:           ids.New(),
			SettlementID: settlementID,
			CreatedAt:    now,
			From:         from,
			To:           leg.To,
			Amount:       leg.Amount,
			Memo:         leg.Memo,
			Sequence:     s.seq,
		}
		s.entries = append(s.entries, entry)
		out = append(out, entry)
	}
	return out, nil
}

func (s *InMemory) ListEntries(ctx context.Context, limit int, afterSeq uint64) ([]Entry, uint64, error) {
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	var res []Entry
	var last uint64
	for _, e := range s.entries {
		if e.Sequence <= afterSeq {
			continue
		}
		res = append(res, e)
		last = e.Sequence
		if len(res) >= limit {
			break
		}
	}
	return res, last, nil
}
