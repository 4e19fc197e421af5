package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/auth"
	"artledger.org/internal/chain"
	"artledger.org/internal/obs"
	"artledger.org/internal/registry"
)

type mintRequest struct {
	Minter             string `json:"minter"`
	Recipient          string `json:"recipient"`
	Title              string `json:"title"`
	Description        string `json:"description"`
	Artist             string `json:"artist"`
	FileType           string `json:"file_type"`
	FileSize           int64  `json:"file_size"`
	FileHash           string `json:"file_hash"`
	Price              int64  `json:"price"`
	RoyaltyBasisPoints uint32 `json:"royalty_basis_points"`
}

type verifyRequest struct {
	Caller   string `json:"caller"`
	Verified bool   `json:"verified"`
}

type setForSaleRequest struct {
	Caller  string `json:"caller"`
	ForSale bool   `json:"for_sale"`
	Price   int64  `json:"price"`
}

type approveRequest struct {
	Caller  string `json:"caller"`
	Spender string `json:"spender"`
}

type transferRequest struct {
	Caller string `json:"caller"`
	From   string `json:"from"`
	To     string `json:"to"`
}

type minterRequest struct {
	Caller  string `json:"caller"`
	Address string `json:"address"`
	Grant   bool   `json:"grant"`
}

func (a *API) handleArtworksCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.mintArtwork(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleArtworkResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/artworks/")
	idPart, action, _ := strings.Cut(path, "/")
	tokenID, err := strconv.ParseUint(idPart, 10, 64)
	if err != nil || tokenID == 0 {
		writeError(w, r, http.StatusNotFound, "unknown token id")
		return
	}

	switch action {
	case "":
		if r.Method != http.MethodGet {
			methodNotAllowed(w, r, http.MethodGet)
			return
		}
		a.getArtwork(w, r, tokenID)
	case "verify":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.verifyArtwork(w, r, tokenID)
	case "sale":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.setArtworkForSale(w, r, tokenID)
	case "approve":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.approveArtwork(w, r, tokenID)
	case "transfer":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.transferArtwork(w, r, tokenID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) mintArtwork(w http.ResponseWriter, r *http.Request) {
	var req mintRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	minter, err := chain.ParseAddress(req.Minter)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	recipient := minter
	if strings.TrimSpace(req.Recipient) != "" {
		if recipient, err = chain.ParseAddress(req.Recipient); err != nil {
			handleCoreError(w, r, err)
			return
		}
	}
	var fileHash common.Hash
	if strings.TrimSpace(req.FileHash) != "" {
		if fileHash, err = chain.ParseHash(req.FileHash); err != nil {
			handleCoreError(w, r, err)
			return
		}
	}

	art, err := a.artworks.Mint(r.Context(), minter, recipient, registry.MintParams{
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Artist:      req.Artist,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		FileHash:    fileHash,
		Price:       chain.Money(req.Price),
	}, req.RoyaltyBasisPoints)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	obs.CountMint()
	a.audit(r.Context(), "registry.artwork.mint", "artwork", strconv.FormatUint(art.TokenID, 10), minter.Hex(), map[string]string{
		"recipient": recipient.Hex(),
		"royalty":   strconv.FormatUint(uint64(art.RoyaltyBasisPoints), 10),
	})

	w.Header().Set("Location", "/v1/artworks/"+strconv.FormatUint(art.TokenID, 10))
	writeJSON(w, http.StatusCreated, art)
}

func (a *API) getArtwork(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	art, err := a.artworks.Get(r.Context(), tokenID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (a *API) verifyArtwork(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	if !a.requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req verifyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	art, err := a.artworks.Verify(r.Context(), caller, tokenID, req.Verified)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "registry.artwork.verify", "artwork", strconv.FormatUint(tokenID, 10), caller.Hex(), map[string]string{
		"verified": strconv.FormatBool(req.Verified),
	})
	writeJSON(w, http.StatusOK, art)
}

func (a *API) setArtworkForSale(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	var req setForSaleRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if err := a.artworks.SetForSale(r.Context(), caller, tokenID, req.ForSale, chain.Money(req.Price)); err != nil {
		handleCoreError(w, r, err)
		return
	}
	art, err := a.artworks.Get(r.Context(), tokenID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (a *API) approveArtwork(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	var req approveRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	var spender common.Address
	if strings.TrimSpace(req.Spender) != "" {
		if spender, err = chain.ParseAddress(req.Spender); err != nil {
			handleCoreError(w, r, err)
			return
		}
	}
	if err := a.artworks.Approve(r.Context(), caller, spender, tokenID); err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"token_id": tokenID,
		"spender":  spender.Hex(),
	})
}

func (a *API) transferArtwork(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	var req transferRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	from, err := chain.ParseAddress(req.From)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	to, err := chain.ParseAddress(req.To)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if err := a.artworks.TransferFrom(r.Context(), caller, from, to, tokenID); err != nil {
		handleCoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "registry.artwork.transfer", "artwork", strconv.FormatUint(tokenID, 10), caller.Hex(), map[string]string{
		"from": from.Hex(),
		"to":   to.Hex(),
	})
	art, err := a.artworks.Get(r.Context(), tokenID)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, art)
}

func (a *API) handleMinters(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		methodNotAllowed(w, r, http.MethodPost)
		return
	}
	if !a.requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req minterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	minter, err := chain.ParseAddress(req.Address)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if req.Grant {
		err = a.artworks.GrantMinter(r.Context(), caller, minter)
	} else {
		err = a.artworks.RevokeMinter(r.Context(), caller, minter)
	}
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "registry.minter.update", "minter", minter.Hex(), caller.Hex(), map[string]string{
		"grant": strconv.FormatBool(req.Grant),
	})
	writeJSON(w, http.StatusOK, map[string]any{
		"address": minter.Hex(),
		"grant":   req.Grant,
	})
}
