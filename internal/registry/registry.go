package registry

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
	"artledger.org/internal/stream"
)

// Registry is the authoritative ownership ledger and metadata store for
// minted artworks. It keeps single-owner-per-token semantics with the
// standard non-fungible approval surface: a per-token approved spender plus
// per-owner operator grants.
type Registry struct {
	mu          sync.RWMutex
	admin       common.Address
	openMinting bool
	minters     map[common.Address]struct{}
	artworks    map[uint64]*Artwork
	approvals   map[uint64]common.Address
	operators   map[common.Address]map[common.Address]struct{}
	nextID      uint64
	events      *stream.Stream
	now         func() time.Time
}

// New creates a registry administered by admin. With openMinting any address
// may mint; otherwise only admin-granted minters may.
func New(admin common.Address, openMinting bool, events *stream.Stream) *Registry {
	return &Registry{
		admin:       admin,
		openMinting: openMinting,
		minters:     make(map[common.Address]struct{}),
		artworks:    make(map[uint64]*Artwork),
		approvals:   make(map[uint64]common.Address),
		operators:   make(map[common.Address]map[common.Address]struct{}),
		events:      events,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// Mint assigns the next sequential token to recipient. IsVerified and
// IsForSale start false regardless of input, CreatedAt is forced to mint
// time, and recipient is recorded as the royalty creator for every future
// sale.
func (r *Registry) Mint(ctx context.Context, minter, recipient common.Address, p MintParams, royaltyBasisPoints uint32) (Artwork, error) {
	if p.Title == "" {
		return Artwork{}, chain.Errorf(chain.ErrValidation, "title is required")
	}
	if royaltyBasisPoints > chain.MaxRoyaltyBasisPoints {
		return Artwork{}, chain.Errorf(chain.ErrValidation, "royalty %d exceeds %d basis points", royaltyBasisPoints, chain.MaxRoyaltyBasisPoints)
	}
	if recipient == (common.Address{}) {
		return Artwork{}, chain.Errorf(chain.ErrValidation, "recipient is the zero address")
	}
	if p.Price < 0 {
		return Artwork{}, chain.Errorf(chain.ErrValidation, "price must be >= 0")
	}

	r.mu.Lock()
	if !r.openMinting && minter != r.admin {
		if _, ok := r.minters[minter]; !ok {
			r.mu.Unlock()
			return Artwork{}, chain.Errorf(chain.ErrUnauthorized, "%s is not an authorized minter", minter.Hex())
		}
	}

	r.nextID++
	art := &Artwork{
		TokenID:            r.nextID,
		Title:              p.Title,
		Description:        p.Description,
		Artist:             p.Artist,
		FileType:           p.FileType,
		FileSize:           p.FileSize,
		FileHash:           p.FileHash,
		CreatedAt:          r.now(),
		Price:              p.Price,
		RoyaltyBasisPoints: royaltyBasisPoints,
		Creator:            recipient,
		Owner:              recipient,
	}
	r.artworks[art.TokenID] = art
	out := *art
	r.mu.Unlock()

	r.events.Publish(stream.Event{
		Type:     stream.TypeArtworkMinted,
		TokenID:  out.TokenID,
		FileHash: out.FileHash.Hex(),
		Actor:    minter.Hex(),
		To:       recipient.Hex(),
		Price:    out.Price,
	})
	return out, nil
}

// Verify marks a token's verification flag. Administrator only.
func (r *Registry) Verify(ctx context.Context, caller common.Address, tokenID uint64, verified bool) (Artwork, error) {
	r.mu.Lock()
	art, ok := r.artworks[tokenID]
	if !ok {
		r.mu.Unlock()
		return Artwork{}, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	if caller != r.admin {
		r.mu.Unlock()
		return Artwork{}, chain.Errorf(chain.ErrUnauthorized, "caller %s is not the administrator", caller.Hex())
	}
	art.IsVerified = verified
	out := *art
	r.mu.Unlock()

	r.events.Publish(stream.Event{
		Type:     stream.TypeArtworkVerified,
		TokenID:  tokenID,
		Actor:    caller.Hex(),
		Verified: verified,
	})
	return out, nil
}

// Get returns a copy of the artwork record.
func (r *Registry) Get(ctx context.Context, tokenID uint64) (Artwork, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return Artwork{}, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	return *art, nil
}

// OwnerOf returns the current owner of a token.
func (r *Registry) OwnerOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return common.Address{}, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	return art.Owner, nil
}

// CreatorOf returns the original minting recipient. The creator never
// changes, regardless of later transfers.
func (r *Registry) CreatorOf(ctx context.Context, tokenID uint64) (common.Address, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return common.Address{}, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	return art.Creator, nil
}

// RoyaltyOf returns the token's royalty rate in basis points.
func (r *Registry) RoyaltyOf(ctx context.Context, tokenID uint64) (uint32, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return 0, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	return art.RoyaltyBasisPoints, nil
}

// TotalSupply returns how many tokens have been minted. Tokens are never
// deleted, so this only grows.
func (r *Registry) TotalSupply(ctx context.Context) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.nextID
}

// SetForSale flips the token's sale flag and advisory price. Allowed for the
// owner and for an approved spender or operator (the marketplace path).
func (r *Registry) SetForSale(ctx context.Context, caller common.Address, tokenID uint64, forSale bool, price chain.Money) error {
	if price < 0 {
		return chain.Errorf(chain.ErrValidation, "price must be >= 0")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	if !r.isApprovedOrOwnerLocked(caller, art) {
		return chain.Errorf(chain.ErrUnauthorized, "caller %s is not owner or approved for token %d", caller.Hex(), tokenID)
	}
	art.IsForSale = forSale
	art.Price = price
	return nil
}

// Approve grants spender transfer rights for one token. Owner or operator only.
func (r *Registry) Approve(ctx context.Context, caller, spender common.Address, tokenID uint64) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	if caller != art.Owner && !r.isOperatorLocked(art.Owner, caller) {
		return chain.Errorf(chain.ErrUnauthorized, "caller %s cannot approve token %d", caller.Hex(), tokenID)
	}
	if spender == (common.Address{}) {
		delete(r.approvals, tokenID)
		return nil
	}
	r.approvals[tokenID] = spender
	return nil
}

// SetApprovalForAll grants or revokes operator rights over every token the
// caller owns now or later.
func (r *Registry) SetApprovalForAll(ctx context.Context, caller, operator common.Address, approved bool) error {
	if operator == (common.Address{}) || operator == caller {
		return chain.Errorf(chain.ErrValidation, "invalid operator")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if approved {
		if r.operators[caller] == nil {
			r.operators[caller] = make(map[common.Address]struct{})
		}
		r.operators[caller][operator] = struct{}{}
		return nil
	}
	delete(r.operators[caller], operator)
	return nil
}

// ApprovedFor returns the approved spender for a token, if any.
func (r *Registry) ApprovedFor(ctx context.Context, tokenID uint64) (common.Address, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	spender, ok := r.approvals[tokenID]
	return spender, ok
}

// IsApprovedOrOwner reports whether spender may move the token: owner,
// per-token approval, or operator grant.
func (r *Registry) IsApprovedOrOwner(ctx context.Context, spender common.Address, tokenID uint64) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	art, ok := r.artworks[tokenID]
	if !ok {
		return false, chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	return r.isApprovedOrOwnerLocked(spender, art), nil
}

// TransferFrom moves token ownership from `from` to `to`. The caller must be
// the owner, the approved spender, or an operator for the owner. The
// per-token approval and the sale flag are cleared; creator and royalty never
// change.
func (r *Registry) TransferFrom(ctx context.Context, caller, from, to common.Address, tokenID uint64) error {
	if to == (common.Address{}) {
		return chain.Errorf(chain.ErrValidation, "recipient is the zero address")
	}
	r.mu.Lock()
	art, ok := r.artworks[tokenID]
	if !ok {
		r.mu.Unlock()
		return chain.Errorf(chain.ErrNotFound, "token %d", tokenID)
	}
	if art.Owner != from {
		r.mu.Unlock()
		return chain.Errorf(chain.ErrUnauthorized, "%s does not own token %d", from.Hex(), tokenID)
	}
	if !r.isApprovedOrOwnerLocked(caller, art) {
		r.mu.Unlock()
		return chain.Errorf(chain.ErrUnauthorized, "caller %s cannot transfer token %d", caller.Hex(), tokenID)
	}
	art.Owner = to
	art.IsForSale = false
	delete(r.approvals, tokenID)
	r.mu.Unlock()

	r.events.Publish(stream.Event{
		Type:    stream.TypeArtworkTransferred,
		TokenID: tokenID,
		Actor:   caller.Hex(),
		From:    from.Hex(),
		To:      to.Hex(),
	})
	return nil
}

// GrantMinter authorizes an address to mint when open minting is disabled.
// Administrator only.
func (r *Registry) GrantMinter(ctx context.Context, caller, minter common.Address) error {
	return r.setMinter(caller, minter, true)
}

// RevokeMinter removes a minter grant. Administrator only.
func (r *Registry) RevokeMinter(ctx context.Context, caller, minter common.Address) error {
	return r.setMinter(caller, minter, false)
}

func (r *Registry) setMinter(caller, minter common.Address, grant bool) error {
	if minter == (common.Address{}) {
		return chain.Errorf(chain.ErrValidation, "zero address")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.admin {
		return chain.Errorf(chain.ErrUnauthorized, "caller %s is not the administrator", caller.Hex())
	}
	if grant {
		r.minters[minter] = struct{}{}
	} else {
		delete(r.minters, minter)
	}
	return nil
}

func (r *Registry) isApprovedOrOwnerLocked(spender common.Address, art *Artwork) bool {
	if spender == art.Owner {
		return true
	}
	if approved, ok := r.approvals[art.TokenID]; ok && approved == spender {
		return true
	}
	return r.isOperatorLocked(art.Owner, spender)
}

func (r *Registry) isOperatorLocked(owner, operator common.Address) bool {
	ops, ok := r.operators[owner]
	if !ok {
		return false
	}
	_, ok = ops[operator]
	return ok
}
