package pg

import (
	"context"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/market"
	"artledger.org/internal/obs"
	"artledger.org/internal/registry"
	"artledger.org/internal/stream"
	"artledger.org/internal/verification"
)

// Indexer tails the event stream and keeps the Postgres mirror current.
// It re-reads the affected record from the core service on each event so
// the mirror converges even when events are dropped under load.
type Indexer struct {
	mirror        *Mirror
	artworks      *registry.Registry
	verifications *verification.Registry
	market        *market.Market
	events        *stream.Stream
}

func NewIndexer(mirror *Mirror, artworks *registry.Registry, verifications *verification.Registry, mkt *market.Market, events *stream.Stream) *Indexer {
	return &Indexer{
		mirror:        mirror,
		artworks:      artworks,
		verifications: verifications,
		market:        mkt,
		events:        events,
	}
}

// Run blocks until ctx is cancelled, applying each event to the mirror.
func (ix *Indexer) Run(ctx context.Context) {
	ch := ix.events.Subscribe(ctx)
	for evt := range ch {
		if err := ix.apply(ctx, evt); err != nil {
			obs.LogEvent("error", "indexer_apply_failed", map[string]any{
				"event_id":   evt.ID,
				"event_type": string(evt.Type),
				"error":      err.Error(),
			})
		}
	}
}

func (ix *Indexer) apply(ctx context.Context, evt stream.Event) error {
	switch evt.Type {
	case stream.TypeArtworkMinted, stream.TypeArtworkVerified, stream.TypeArtworkTransferred:
		art, err := ix.artworks.Get(ctx, evt.TokenID)
		if err != nil {
			return err
		}
		return ix.mirror.UpsertArtwork(ctx, art)

	case stream.TypeVerificationCreated:
		rec, err := ix.verifications.ByHash(ctx, common.HexToHash(evt.FileHash))
		if err != nil {
			return err
		}
		return ix.mirror.UpsertVerification(ctx, rec)

	case stream.TypeListingCreated, stream.TypeListingCancelled:
		l, err := ix.market.Listing(ctx, evt.TokenID)
		if err != nil {
			return err
		}
		return ix.mirror.UpsertListing(ctx, l)

	case stream.TypeSaleCompleted:
		if err := ix.mirror.InsertSale(ctx, evt.ID, evt.TokenID, common.HexToAddress(evt.From), common.HexToAddress(evt.To), evt.Price, evt.Royalty, evt.Timestamp); err != nil {
			return err
		}
		if l, err := ix.market.Listing(ctx, evt.TokenID); err == nil {
			if err := ix.mirror.UpsertListing(ctx, l); err != nil {
				return err
			}
		}
		art, err := ix.artworks.Get(ctx, evt.TokenID)
		if err != nil {
			return err
		}
		return ix.mirror.UpsertArtwork(ctx, art)
	}
	return nil
}
