package verification

import (
	"context"
	"sync"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
	"artledger.org/internal/ledger"
	"artledger.org/internal/stream"
)

// Record proves a content hash was registered by an address at a time. Records
// are write-once: nothing updates or removes one.
type Record struct {
	FileHash    common.Hash    `json:"file_hash"`
	Title       string         `json:"title"`
	Description string         `json:"description"`
	Artist      string         `json:"artist"`
	FileType    string         `json:"file_type"`
	FileSize    int64          `json:"file_size"`
	MetadataURI string         `json:"metadata_uri"`
	Submitter   common.Address `json:"submitter"`
	Timestamp   time.Time      `json:"timestamp"`
}

// CreateParams is the metadata accompanying a hash registration.
type CreateParams struct {
	FileHash    common.Hash
	Title       string
	Description string
	Artist      string
	FileType    string
	FileSize    int64
	MetadataURI string
}

// Registry is a content-addressed, pay-to-register, append-only ledger,
// independent of NFT minting. Fees flow to the treasury through the funds
// ledger; the fee itself is persistent state mutable only by the
// administrator.
type Registry struct {
	mu       sync.RWMutex
	admin    common.Address
	treasury common.Address
	fee      chain.Money
	records  map[common.Hash]*Record
	total    uint64
	funds    ledger.Service
	events   *stream.Stream
	now      func() time.Time
}

// New creates a verification registry collecting fees into treasury.
func New(admin, treasury common.Address, fee chain.Money, funds ledger.Service, events *stream.Stream) *Registry {
	return &Registry{
		admin:    admin,
		treasury: treasury,
		fee:      fee,
		records:  make(map[common.Hash]*Record),
		funds:    funds,
		events:   events,
		now:      func() time.Time { return time.Now().UTC() },
	}
}

// Fee returns the current registration fee.
func (r *Registry) Fee(ctx context.Context) chain.Money {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.fee
}

// SetFee updates the registration fee. Administrator only.
func (r *Registry) SetFee(ctx context.Context, caller common.Address, fee chain.Money) error {
	if fee < 0 {
		return chain.Errorf(chain.ErrValidation, "fee must be >= 0")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if caller != r.admin {
		return chain.Errorf(chain.ErrUnauthorized, "caller %s is not the administrator", caller.Hex())
	}
	r.fee = fee
	return nil
}

// Create registers a content hash. The submitter attaches payment, which must
// cover the fee; the whole payment (excess included) moves to the treasury.
// A second submission of the same hash fails and leaves the first record and
// the counter untouched.
func (r *Registry) Create(ctx context.Context, submitter common.Address, payment chain.Money, p CreateParams) (Record, error) {
	if p.FileHash == (common.Hash{}) {
		return Record{}, chain.Errorf(chain.ErrValidation, "file hash is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Dedup first: resubmitting a registered hash reports the conflict even
	// when the rest of the submission is junk.
	if _, ok := r.records[p.FileHash]; ok {
		return Record{}, chain.Errorf(chain.ErrDuplicateHash, "%s", p.FileHash.Hex())
	}
	if payment < r.fee {
		return Record{}, chain.Errorf(chain.ErrInsufficientPayment, "payment %d < fee %d", payment, r.fee)
	}

	// Debit before recording: if the submitter cannot pay, no record exists.
	if payment > 0 {
		if _, err := r.funds.Transfer(ctx, submitter, r.treasury, payment, "verification fee"); err != nil {
			return Record{}, err
		}
	}

	rec := &Record{
		FileHash:    p.FileHash,
		Title:       p.Title,
		Description: p.Description,
		Artist:      p.Artist,
		FileType:    p.FileType,
		FileSize:    p.FileSize,
		MetadataURI: p.MetadataURI,
		Submitter:   submitter,
		Timestamp:   r.now(),
	}
	r.records[p.FileHash] = rec
	r.total++

	r.events.Publish(stream.Event{
		Type:     stream.TypeVerificationCreated,
		FileHash: p.FileHash.Hex(),
		Actor:    submitter.Hex(),
		Fee:      payment,
	})
	return *rec, nil
}

// IsRegistered reports whether a hash has a record.
func (r *Registry) IsRegistered(ctx context.Context, hash common.Hash) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.records[hash]
	return ok
}

// Total returns the number of registered hashes. Never decremented.
func (r *Registry) Total(ctx context.Context) uint64 {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.total
}

// ByHash returns the record for a hash.
func (r *Registry) ByHash(ctx context.Context, hash common.Hash) (Record, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	rec, ok := r.records[hash]
	if !ok {
		return Record{}, chain.Errorf(chain.ErrNotFound, "hash %s", hash.Hex())
	}
	return *rec, nil
}
