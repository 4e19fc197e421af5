// smoke-market drives a full mint, verify, list and buy cycle against the
// in-process core and fails loudly when any balance or ownership invariant
// breaks. Useful as a quick regression check without a running server.
package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
	"artledger.org/internal/ledger"
	"artledger.org/internal/market"
	"artledger.org/internal/registry"
	"artledger.org/internal/stream"
	"artledger.org/internal/verification"
)

func main() {
	log.SetFlags(0)

	var (
		admin      = common.HexToAddress("0x00000000000000000000000000000000000000Ad")
		treasury   = common.HexToAddress("0x000000000000000000000000000000000000007e")
		marketAddr = common.HexToAddress("0x000000000000000000000000000000000000003A")
		artist     = common.HexToAddress("0x1000000000000000000000000000000000000001")
		buyer      = common.HexToAddress("0x1000000000000000000000000000000000000002")
	)
	const (
		fee       = chain.Money(100)
		price     = chain.Money(1_000)
		royalty   = uint32(500)
		startBank = chain.Money(10_000)
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	events := stream.New()
	funds := ledger.NewInMemory()
	artworks := registry.New(admin, true, events)
	verifications := verification.New(admin, treasury, fee, funds, events)
	mkt := market.New(marketAddr, artworks, funds, events)

	for _, addr := range []common.Address{artist, buyer} {
		if _, err := funds.CreateAccount(ctx, addr, startBank); err != nil {
			log.Fatalf("create account %s: %v", addr.Hex(), err)
		}
	}

	art, err := artworks.Mint(ctx, artist, artist, registry.MintParams{
		Title:    "Smoke Study",
		Artist:   "Smoke Tester",
		FileHash: chain.ContentHash([]byte("smoke-market-fixture")),
	}, royalty)
	if err != nil {
		log.Fatalf("mint: %v", err)
	}

	if _, err := verifications.Create(ctx, artist, fee, verification.CreateParams{
		FileHash: art.FileHash,
		Title:    art.Title,
		Artist:   art.Artist,
	}); err != nil {
		log.Fatalf("verify content: %v", err)
	}
	if _, err := artworks.Verify(ctx, admin, art.TokenID, true); err != nil {
		log.Fatalf("verify artwork: %v", err)
	}

	if err := artworks.Approve(ctx, artist, marketAddr, art.TokenID); err != nil {
		log.Fatalf("approve market: %v", err)
	}
	if _, err := mkt.CreateListing(ctx, artist, art.TokenID, price, time.Hour); err != nil {
		log.Fatalf("create listing: %v", err)
	}
	if _, err := mkt.Buy(ctx, buyer, art.TokenID, price); err != nil {
		log.Fatalf("buy: %v", err)
	}

	owner, err := artworks.OwnerOf(ctx, art.TokenID)
	if err != nil {
		log.Fatalf("owner of: %v", err)
	}
	if owner != buyer {
		log.Fatalf("owner = %s, want buyer", owner.Hex())
	}

	artistBal, _ := funds.Balance(ctx, artist)
	buyerBal, _ := funds.Balance(ctx, buyer)
	treasuryBal, _ := funds.Balance(ctx, treasury)

	// Artist pays the verification fee and receives the full sale price;
	// the creator-sells path pays no separate royalty leg.
	if wantArtist := startBank - fee + price; artistBal != wantArtist {
		log.Fatalf("artist balance = %d, want %d", artistBal, wantArtist)
	}
	if wantBuyer := startBank - price; buyerBal != wantBuyer {
		log.Fatalf("buyer balance = %d, want %d", buyerBal, wantBuyer)
	}
	if treasuryBal != fee {
		log.Fatalf("treasury balance = %d, want %d", treasuryBal, fee)
	}
	if total := artistBal + buyerBal + treasuryBal; total != 2*startBank {
		log.Fatalf("funds not conserved: %d", total)
	}

	fmt.Printf("smoke-market passed: token=%d owner=%s\n", art.TokenID, owner.Hex())
}
