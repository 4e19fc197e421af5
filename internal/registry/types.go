package registry

import (
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/chain"
)

// Artwork is one minted token and its metadata. Creator and
// RoyaltyBasisPoints are fixed at mint time and survive every transfer;
// `Price` is advisory (the authoritative sale price lives in the marketplace
// listing).
type Artwork struct {
	TokenID            uint64         `json:"token_id"`
	Title              string         `json:"title"`
	Description        string         `json:"description"`
	Artist             string         `json:"artist"`
	FileType           string         `json:"file_type"`
	FileSize           int64          `json:"file_size"`
	FileHash           common.Hash    `json:"file_hash"`
	CreatedAt          time.Time      `json:"created_at"`
	IsVerified         bool           `json:"is_verified"`
	IsForSale          bool           `json:"is_for_sale"`
	Price              chain.Money    `json:"price"`
	RoyaltyBasisPoints uint32         `json:"royalty_basis_points"`
	Creator            common.Address `json:"creator"`
	Owner              common.Address `json:"owner"`
}

// MintParams is the fixed-shape metadata a mint call consumes. Title is
// required; the rest is descriptive.
type MintParams struct {
	Title       string
	Description string
	Artist      string
	FileType    string
	FileSize    int64
	FileHash    common.Hash
	Price       chain.Money
}
