package registry

import (
	"context"
	"errors"
	"testing"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
)

var (
	admin  = common.HexToAddress("0x00000000000000000000000000000000000000ad")
	artist = common.HexToAddress("0x00000000000000000000000000000000000000a1")
	buyer  = common.HexToAddress("0x00000000000000000000000000000000000000b2")
	broker = common.HexToAddress("0x00000000000000000000000000000000000000e5")
)

func newOpenRegistry() *Registry {
	return New(admin, true, nil)
}

func mintOne(t *testing.T, r *Registry) Artwork {
	t.Helper()
	art, err := r.Mint(context.Background(), artist, artist, MintParams{
		Title:    "Composition VII",
		Artist:   "W. K.",
		FileType: "image/png",
		FileSize: 1024,
		FileHash: chain.ContentHash([]byte("composition vii")),
	}, 500)
	if err != nil {
		t.Fatal(err)
	}
	return art
}

func TestMintAssignsOwnerAndSupply(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()

	art := mintOne(t, r)
	if art.TokenID != 1 {
		t.Fatalf("expected token 1, got %d", art.TokenID)
	}
	if art.Owner != artist || art.Creator != artist {
		t.Fatalf("unexpected owner/creator: %s/%s", art.Owner.Hex(), art.Creator.Hex())
	}
	if art.IsVerified || art.IsForSale {
		t.Fatal("flags must start false")
	}
	if got := r.TotalSupply(ctx); got != 1 {
		t.Fatalf("total supply = %d, want 1", got)
	}

	second := mintOne(t, r)
	if second.TokenID != 2 || r.TotalSupply(ctx) != 2 {
		t.Fatalf("sequential ids broken: id=%d supply=%d", second.TokenID, r.TotalSupply(ctx))
	}
}

func TestMintEmptyTitleRejectedWithoutStateChange(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()

	_, err := r.Mint(ctx, artist, artist, MintParams{Title: ""}, 100)
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
	if got := r.TotalSupply(ctx); got != 0 {
		t.Fatalf("failed mint changed supply: %d", got)
	}
	art := mintOne(t, r)
	if art.TokenID != 1 {
		t.Fatalf("failed mint consumed a token id: got %d", art.TokenID)
	}
}

func TestMintRoyaltyOutOfRange(t *testing.T) {
	r := newOpenRegistry()
	_, err := r.Mint(context.Background(), artist, artist, MintParams{Title: "x"}, 10001)
	if !errors.Is(err, chain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestVerifyAdminGate(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()
	art := mintOne(t, r)

	if _, err := r.Verify(ctx, artist, art.TokenID, true); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	got, _ := r.Get(ctx, art.TokenID)
	if got.IsVerified {
		t.Fatal("failed verify mutated flag")
	}

	if _, err := r.Verify(ctx, admin, 99, true); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	verified, err := r.Verify(ctx, admin, art.TokenID, true)
	if err != nil {
		t.Fatal(err)
	}
	if !verified.IsVerified {
		t.Fatal("verify did not set flag")
	}
}

func TestSetForSaleOwnerGate(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()
	art := mintOne(t, r)

	if err := r.SetForSale(ctx, buyer, art.TokenID, true, 1000); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized, got %v", err)
	}
	if err := r.SetForSale(ctx, artist, art.TokenID, true, 1000); err != nil {
		t.Fatal(err)
	}
	got, _ := r.Get(ctx, art.TokenID)
	if !got.IsForSale || got.Price != 1000 {
		t.Fatalf("sale flag not applied: %+v", got)
	}
}

func TestTransferRequiresApprovalAndClearsIt(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()
	art := mintOne(t, r)

	if err := r.TransferFrom(ctx, broker, artist, buyer, art.TokenID); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("unapproved transfer allowed: %v", err)
	}

	if err := r.Approve(ctx, artist, broker, art.TokenID); err != nil {
		t.Fatal(err)
	}
	if err := r.TransferFrom(ctx, broker, artist, buyer, art.TokenID); err != nil {
		t.Fatal(err)
	}
	owner, _ := r.OwnerOf(ctx, art.TokenID)
	if owner != buyer {
		t.Fatalf("owner = %s, want buyer", owner.Hex())
	}
	if _, ok := r.ApprovedFor(ctx, art.TokenID); ok {
		t.Fatal("approval not cleared on transfer")
	}

	got, _ := r.Get(ctx, art.TokenID)
	if got.Creator != artist || got.RoyaltyBasisPoints != 500 {
		t.Fatal("transfer must not change creator or royalty")
	}
}

func TestOperatorApproval(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()
	art := mintOne(t, r)

	if err := r.SetApprovalForAll(ctx, artist, broker, true); err != nil {
		t.Fatal(err)
	}
	if err := r.TransferFrom(ctx, broker, artist, buyer, art.TokenID); err != nil {
		t.Fatalf("operator transfer failed: %v", err)
	}
	if err := r.SetApprovalForAll(ctx, buyer, broker, true); err != nil {
		t.Fatal(err)
	}
	if err := r.SetApprovalForAll(ctx, buyer, broker, false); err != nil {
		t.Fatal(err)
	}
	if err := r.TransferFrom(ctx, broker, buyer, artist, art.TokenID); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("revoked operator still allowed: %v", err)
	}
}

func TestTransferWrongOwner(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()
	art := mintOne(t, r)
	if err := r.TransferFrom(ctx, artist, buyer, broker, art.TokenID); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for wrong from, got %v", err)
	}
}

func TestRestrictedMinting(t *testing.T) {
	r := New(admin, false, nil)
	ctx := context.Background()

	if _, err := r.Mint(ctx, artist, artist, MintParams{Title: "x"}, 0); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("expected ErrUnauthorized for unlisted minter, got %v", err)
	}
	if err := r.GrantMinter(ctx, artist, artist); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("non-admin grant allowed: %v", err)
	}
	if err := r.GrantMinter(ctx, admin, artist); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Mint(ctx, artist, artist, MintParams{Title: "x"}, 0); err != nil {
		t.Fatalf("granted minter rejected: %v", err)
	}
	if err := r.RevokeMinter(ctx, admin, artist); err != nil {
		t.Fatal(err)
	}
	if _, err := r.Mint(ctx, artist, artist, MintParams{Title: "y"}, 0); !errors.Is(err, chain.ErrUnauthorized) {
		t.Fatalf("revoked minter still allowed: %v", err)
	}
}

func TestCreatorAndRoyaltySurviveTransfer(t *testing.T) {
	r := newOpenRegistry()
	ctx := context.Background()

	art := mintOne(t, r)
	if err := r.Approve(ctx, artist, broker, art.TokenID); err != nil {
		t.Fatal(err)
	}
	if err := r.TransferFrom(ctx, broker, artist, buyer, art.TokenID); err != nil {
		t.Fatal(err)
	}

	creator, err := r.CreatorOf(ctx, art.TokenID)
	if err != nil {
		t.Fatal(err)
	}
	if creator != artist {
		t.Fatalf("creator = %s, want original artist", creator.Hex())
	}
	royalty, err := r.RoyaltyOf(ctx, art.TokenID)
	if err != nil {
		t.Fatal(err)
	}
	if royalty != 500 {
		t.Fatalf("royalty = %d, want 500", royalty)
	}

	if _, err := r.CreatorOf(ctx, 99); !errors.Is(err, chain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
