package pg

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ethereum/go-ethereum/common"
	_ "github.com/jackc/pgx/v5/stdlib"

	"artledger.org/internal/chain"
	"artledger.org/internal/market"
	"artledger.org/internal/registry"
	"artledger.org/internal/verification"
)

// Mirror is a Postgres read model of the in-memory core. It exists for
// indexers and reporting queries, not for transactional state; the core
// services remain the source of truth.
type Mirror struct {
	db *sql.DB
}

func Open(dsn string) (*Mirror, error) {
	db, err := sql.Open("pgx", dsn)
	if err != nil {
		return nil, err
	}
	// Tuned pool defaults; adjust under load tests
	db.SetMaxOpenConns(50)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(15 * time.Minute)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return &Mirror{db: db}, nil
}

func (m *Mirror) Close() error { return m.db.Close() }

func (m *Mirror) DB() *sql.DB { return m.db }

func (m *Mirror) UpsertArtwork(ctx context.Context, a registry.Artwork) error {
	_, err := m.db.ExecContext(ctx, `
		insert into artworks(token_id, title, description, artist, file_type, file_size, file_hash,
			created_at, is_verified, is_for_sale, price, royalty_basis_points, creator, owner)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12,$13,$14)
		on conflict (token_id) do update set
			is_verified = excluded.is_verified,
			is_for_sale = excluded.is_for_sale,
			price = excluded.price,
			owner = excluded.owner
	`, a.TokenID, a.Title, a.Description, a.Artist, a.FileType, a.FileSize, a.FileHash.Hex(),
		a.CreatedAt, a.IsVerified, a.IsForSale, int64(a.Price), a.RoyaltyBasisPoints,
		a.Creator.Hex(), a.Owner.Hex())
	return err
}

func (m *Mirror) FindArtwork(ctx context.Context, tokenID uint64) (registry.Artwork, error) {
	var (
		a        registry.Artwork
		fileHash string
		creator  string
		owner    string
		price    int64
	)
	err := m.db.QueryRowContext(ctx, `
		select token_id, title, description, artist, file_type, file_size, file_hash,
			created_at, is_verified, is_for_sale, price, royalty_basis_points, creator, owner
		from artworks where token_id=$1
	`, tokenID).Scan(&a.TokenID, &a.Title, &a.Description, &a.Artist, &a.FileType, &a.FileSize,
		&fileHash, &a.CreatedAt, &a.IsVerified, &a.IsForSale, &price, &a.RoyaltyBasisPoints,
		&creator, &owner)
	if errors.Is(err, sql.ErrNoRows) {
		return registry.Artwork{}, chain.Errorf(chain.ErrNotFound, "artwork %d not mirrored", tokenID)
	}
	if err != nil {
		return registry.Artwork{}, err
	}
	a.Price = chain.Money(price)
	a.FileHash = common.HexToHash(fileHash)
	a.Creator = common.HexToAddress(creator)
	a.Owner = common.HexToAddress(owner)
	return a, nil
}

func (m *Mirror) UpsertVerification(ctx context.Context, rec verification.Record) error {
	_, err := m.db.ExecContext(ctx, `
		insert into verifications(file_hash, title, description, artist, file_type, file_size, metadata_uri, submitter, recorded_at)
		values ($1,$2,$3,$4,$5,$6,$7,$8,$9)
		on conflict (file_hash) do nothing
	`, rec.FileHash.Hex(), rec.Title, rec.Description, rec.Artist, rec.FileType, rec.FileSize,
		rec.MetadataURI, rec.Submitter.Hex(), rec.Timestamp)
	return err
}

func (m *Mirror) FindVerification(ctx context.Context, hash common.Hash) (verification.Record, error) {
	var (
		rec       verification.Record
		fileHash  string
		submitter string
	)
	err := m.db.QueryRowContext(ctx, `
		select file_hash, title, description, artist, file_type, file_size, metadata_uri, submitter, recorded_at
		from verifications where file_hash=$1
	`, hash.Hex()).Scan(&fileHash, &rec.Title, &rec.Description, &rec.Artist, &rec.FileType,
		&rec.FileSize, &rec.MetadataURI, &submitter, &rec.Timestamp)
	if errors.Is(err, sql.ErrNoRows) {
		return verification.Record{}, chain.Errorf(chain.ErrNotFound, "verification %s not mirrored", hash.Hex())
	}
	if err != nil {
		return verification.Record{}, err
	}
	rec.FileHash = common.HexToHash(fileHash)
	rec.Submitter = common.HexToAddress(submitter)
	return rec, nil
}

func (m *Mirror) UpsertListing(ctx context.Context, l market.Listing) error {
	_, err := m.db.ExecContext(ctx, `
		insert into listings(token_id, seller, price, created_at, expires_at, is_active)
		values ($1,$2,$3,$4,$5,$6)
		on conflict (token_id) do update set
			seller = excluded.seller,
			price = excluded.price,
			created_at = excluded.created_at,
			expires_at = excluded.expires_at,
			is_active = excluded.is_active
	`, l.TokenID, l.Seller.Hex(), int64(l.Price), l.CreatedAt, l.ExpiresAt, l.IsActive)
	return err
}

func (m *Mirror) FindListing(ctx context.Context, tokenID uint64) (market.Listing, error) {
	var (
		l      market.Listing
		seller string
		price  int64
	)
	err := m.db.QueryRowContext(ctx, `
		select token_id, seller, price, created_at, expires_at, is_active
		from listings where token_id=$1
	`, tokenID).Scan(&l.TokenID, &seller, &price, &l.CreatedAt, &l.ExpiresAt, &l.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return market.Listing{}, chain.Errorf(chain.ErrNotFound, "listing %d not mirrored", tokenID)
	}
	if err != nil {
		return market.Listing{}, err
	}
	l.Seller = common.HexToAddress(seller)
	l.Price = chain.Money(price)
	return l, nil
}

// InsertSale appends to the immutable sale history.
func (m *Mirror) InsertSale(ctx context.Context, eventID string, tokenID uint64, seller, buyer common.Address, price, royalty chain.Money, at time.Time) error {
	_, err := m.db.ExecContext(ctx, `
		insert into sales(event_id, token_id, seller, buyer, price, royalty, occurred_at)
		values ($1,$2,$3,$4,$5,$6,$7)
		on conflict (event_id) do nothing
	`, eventID, tokenID, seller.Hex(), buyer.Hex(), int64(price), int64(royalty), at)
	return err
}
