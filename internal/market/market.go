package market

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
	"artledger.org/internal/ledger"
	"artledger.org/internal/registry"
	"artledger.org/internal/stream"
)

// Listing is an offer to sell one token at a fixed price until an expiry
// time. Expiry is derived at use-time from ExpiresAt, never swept by a
// background job.
type Listing struct {
	TokenID   uint64         `json:"token_id"`
	Seller    common.Address `json:"seller"`
	Price     chain.Money    `json:"price"`
	CreatedAt time.Time      `json:"created_at"`
	ExpiresAt time.Time      `json:"expires_at"`
	IsActive  bool           `json:"is_active"`
}

// Market settles time-bounded artwork sales: it transfers the token as the
// seller's approved spender and splits the payment into royalty (to the
// recorded creator) and proceeds (to the seller) in one funds-ledger
// settlement.
type Market struct {
	mu       sync.RWMutex
	addr     common.Address
	artworks *registry.Registry
	funds    ledger.Service
	events   *stream.Stream
	listings map[uint64]*Listing
	now      func() time.Time
}

// New creates a marketplace operating as addr. Sellers must approve addr for
// a token before listing it.
func New(addr common.Address, artworks *registry.Registry, funds ledger.Service, events *stream.Stream) *Market {
	return &Market{
		addr:     addr,
		artworks: artworks,
		funds:    funds,
		events:   events,
		listings: make(map[uint64]*Listing),
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Address returns the marketplace's own address, the one sellers approve.
func (m *Market) Address() common.Address {
	return m.addr
}

// CreateListing puts a token up for sale. The seller must currently own the
// token and must already have granted the marketplace transfer approval; an
// active, unexpired listing blocks a new one, while expired, cancelled or
// sold listings are superseded.
func (m *Market) CreateListing(ctx context.Context, seller common.Address, tokenID uint64, price chain.Money, duration time.Duration) (Listing, error) {
	if !price.IsPositive() {
		return Listing{}, chain.Errorf(chain.ErrValidation, "price must be > 0")
	}
	if duration <= 0 {
		return Listing{}, chain.Errorf(chain.ErrValidation, "duration must be > 0")
	}

	m.mu.Lock()
	defer m.mu.Unlock()

	owner, err := m.artworks.OwnerOf(ctx, tokenID)
	if err != nil {
		return Listing{}, err
	}
	if owner != seller {
		return Listing{}, chain.Errorf(chain.ErrUnauthorized, "%s does not own token %d", seller.Hex(), tokenID)
	}
	approved, err := m.artworks.IsApprovedOrOwner(ctx, m.addr, tokenID)
	if err != nil {
		return Listing{}, err
	}
	if !approved {
		return Listing{}, chain.Errorf(chain.ErrUnauthorized, "marketplace lacks transfer approval for token %d", tokenID)
	}

	now := m.now()
	if existing, ok := m.listings[tokenID]; ok && existing.IsActive && now.Before(existing.ExpiresAt) {
		return Listing{}, chain.Errorf(chain.ErrListingActive, "token %d", tokenID)
	}

	l := &Listing{
		TokenID:   tokenID,
		Seller:    seller,
		Price:     price,
		CreatedAt: now,
		ExpiresAt: now.Add(duration),
		IsActive:  true,
	}
	if err := m.artworks.SetForSale(ctx, m.addr, tokenID, true, price); err != nil {
		return Listing{}, err
	}
	m.listings[tokenID] = l

	expires := l.ExpiresAt
	m.events.Publish(stream.Event{
		Type:      stream.TypeListingCreated,
		TokenID:   tokenID,
		Actor:     seller.Hex(),
		Price:     price,
		ExpiresAt: &expires,
	})
	return *l, nil
}

// Listing returns the stored listing for a token, expired or not; callers
// check ExpiresAt themselves.
func (m *Market) Listing(ctx context.Context, tokenID uint64) (Listing, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	l, ok := m.listings[tokenID]
	if !ok {
		return Listing{}, chain.Errorf(chain.ErrNotFound, "no listing for token %d", tokenID)
	}
	return *l, nil
}

// Buy purchases a listed token. Exactly the listing price is settled; any
// excess in payment never leaves the buyer. Royalty is price*bps/10000 with
// integer truncation, so rounding favors the seller. The listing is
// deactivated before any value or ownership moves; a failed step restores the
// prior state. One exception to that restoration: when the seller no longer
// owns the token, the listing is dead and stays deactivated so the new owner
// can relist.
func (m *Market) Buy(ctx context.Context, buyer common.Address, tokenID uint64, payment chain.Money) (Listing, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[tokenID]
	if !ok {
		return Listing{}, chain.Errorf(chain.ErrNotFound, "no listing for token %d", tokenID)
	}
	if !l.IsActive {
		return Listing{}, chain.Errorf(chain.ErrListingInactive, "token %d", tokenID)
	}
	now := m.now()
	if !now.Before(l.ExpiresAt) {
		return Listing{}, chain.Errorf(chain.ErrListingExpired, "token %d expired at %s", tokenID, l.ExpiresAt.Format(time.RFC3339))
	}
	if payment < l.Price {
		return Listing{}, chain.Errorf(chain.ErrInsufficientPayment, "payment %d < price %d", payment, l.Price)
	}
	if buyer == l.Seller {
		return Listing{}, chain.Errorf(chain.ErrValidation, "seller cannot buy own listing")
	}

	art, err := m.artworks.Get(ctx, tokenID)
	if err != nil {
		return Listing{}, err
	}
	if art.Owner != l.Seller {
		// Seller moved the token behind the listing's back; the listing is dead.
		l.IsActive = false
		return Listing{}, chain.Errorf(chain.ErrListingInactive, "seller no longer owns token %d", tokenID)
	}
	approved, err := m.artworks.IsApprovedOrOwner(ctx, m.addr, tokenID)
	if err != nil {
		return Listing{}, err
	}
	if !approved {
		return Listing{}, chain.Errorf(chain.ErrUnauthorized, "marketplace approval revoked for token %d", tokenID)
	}

	// The split must sum to the price exactly. A zero-amount leg (full
	// royalty, or a creator-seller) is dropped rather than settled.
	royalty := l.Price * chain.Money(art.RoyaltyBasisPoints) / chain.MaxRoyaltyBasisPoints
	if art.Creator == l.Seller {
		royalty = 0
	}
	legs := make([]ledger.Leg, 0, 2)
	if proceeds := l.Price - royalty; proceeds > 0 {
		legs = append(legs, ledger.Leg{To: l.Seller, Amount: proceeds, Memo: "sale proceeds"})
	}
	if royalty > 0 {
		legs = append(legs, ledger.Leg{To: art.Creator, Amount: royalty, Memo: "creator royalty"})
	}

	// Effects before interactions: the listing closes before value moves, so
	// a racing Buy observes it inactive.
	l.IsActive = false

	if _, err := m.funds.Settle(ctx, buyer, legs); err != nil {
		l.IsActive = true
		return Listing{}, err
	}
	if err := m.artworks.TransferFrom(ctx, m.addr, l.Seller, buyer, tokenID); err != nil {
		// Ownership did not move; undo the payout and reopen the listing.
		for _, leg := range legs {
			_, _ = m.funds.Transfer(ctx, leg.To, buyer, leg.Amount, "sale reversal")
		}
		l.IsActive = true
		return Listing{}, chain.Errorf(chain.ErrTransferFailed, "token transfer: %v", err)
	}

	out := *l
	m.events.Publish(stream.Event{
		Type:    stream.TypeSaleCompleted,
		TokenID: tokenID,
		Actor:   buyer.Hex(),
		From:    l.Seller.Hex(),
		To:      buyer.Hex(),
		Price:   l.Price,
		Royalty: royalty,
	})
	return out, nil
}

// CancelListing deactivates a listing without transferring anything. Seller
// only.
func (m *Market) CancelListing(ctx context.Context, caller common.Address, tokenID uint64) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	l, ok := m.listings[tokenID]
	if !ok {
		return chain.Errorf(chain.ErrNotFound, "no listing for token %d", tokenID)
	}
	if caller != l.Seller {
		return chain.Errorf(chain.ErrUnauthorized, "caller %s is not the seller", caller.Hex())
	}
	if !l.IsActive {
		return chain.Errorf(chain.ErrListingInactive, "token %d", tokenID)
	}
	l.IsActive = false
	// Sale flag is advisory; clearing it can fail if approval was revoked and
	// that is fine.
	_ = m.artworks.SetForSale(ctx, m.addr, tokenID, false, 0)

	m.events.Publish(stream.Event{
		Type:    stream.TypeListingCancelled,
		TokenID: tokenID,
		Actor:   caller.Hex(),
	})
	return nil
}
