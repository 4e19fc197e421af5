package stream

import (
	"context"
	"sync"
	"time"

	"artledger.org/internal/chain"
	"artledger.org/internal/ids"
)

// Type names a domain event kind. Off-chain indexers reconstruct state from
// these without re-querying the core, so every event carries the identifying
// ids, actors and amounts of its transition.
type Type string

const (
	TypeArtworkMinted       Type = "artwork.minted"
	TypeArtworkVerified     Type = "artwork.verified"
	TypeArtworkTransferred  Type = "artwork.transferred"
	TypeVerificationCreated Type = "verification.created"
	TypeListingCreated      Type = "listing.created"
	TypeListingCancelled    Type = "listing.cancelled"
	TypeSaleCompleted       Type = "sale.completed"
)

// Event is one state transition in the artwork, verification or marketplace
// ledgers. Unused fields are omitted per type.
type Event struct {
	ID        string      `json:"id"`
	Type      Type        `json:"type"`
	Timestamp time.Time   `json:"timestamp"`
	TokenID   uint64      `json:"token_id,omitempty"`
	FileHash  string      `json:"file_hash,omitempty"`
	Actor     string      `json:"actor,omitempty"`
	From      string      `json:"from,omitempty"`
	To        string      `json:"to,omitempty"`
	Price     chain.Money `json:"price,omitempty"`
	Royalty   chain.Money `json:"royalty,omitempty"`
	Fee       chain.Money `json:"fee,omitempty"`
	Verified  bool        `json:"verified,omitempty"`
	ExpiresAt *time.Time  `json:"expires_at,omitempty"`
}

// Stream fan-outs domain events to all active subscribers (SSE clients and
// the read-model indexer).
type Stream struct {
	mu   sync.RWMutex
	subs map[int]chan Event
	next int
}

// New initialises an empty stream.
func New() *Stream {
	return &Stream{subs: make(map[int]chan Event)}
}

// Subscribe registers a subscriber and returns a channel which will receive
// events. The channel is closed when the provided context ends.
func (s *Stream) Subscribe(ctx context.Context) <-chan Event {
	ch := make(chan Event, 16)

	s.mu.Lock()
	id := s.next
	s.next++
	s.subs[id] = ch
	s.mu.Unlock()

	go func() {
		<-ctx.Done()
		s.mu.Lock()
		delete(s.subs, id)
		close(ch)
		s.mu.Unlock()
	}()

	return ch
}

// Publish stamps the event with an id and timestamp (when absent) and
// fan-outs it to all subscribers. Safe to call on a nil stream.
func (s *Stream) Publish(evt Event) {
	if s == nil {
		return
	}
	if evt.ID == "" {
		evt.ID = ids.New()
	}
	if evt.Timestamp.IsZero() {
		evt.Timestamp = time.Now().UTC()
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, ch := range s.subs {
		select {
		case ch <- evt:
		default:
			// Drop when subscriber is slow to avoid blocking.
		}
	}
}
