package httpapi

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"artledger.org/internal/chain"
	"artledger.org/internal/obs"
)

type createListingRequest struct {
	Seller          string `json:"seller"`
	TokenID         uint64 `json:"token_id"`
	Price           int64  `json:"price"`
	DurationSeconds int64  `json:"duration_seconds"`
}

type buyRequest struct {
	Buyer   string `json:"buyer"`
	Payment int64  `json:"payment"`
}

type cancelRequest struct {
	Caller string `json:"caller"`
}

func (a *API) handleListingsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createListing(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleListingResource(w http.ResponseWriter, r *http.Request) {
	path := strings.TrimPrefix(r.URL.Path, "/v1/listings/")
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
		l, err := a.market.Listing(r.Context(), tokenID)
		if err != nil {
			handleCoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, l)
	case "buy":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.buyListing(w, r, tokenID)
	case "cancel":
		if r.Method != http.MethodPost {
			methodNotAllowed(w, r, http.MethodPost)
			return
		}
		a.cancelListing(w, r, tokenID)
	default:
		writeError(w, r, http.StatusNotFound, "resource not found")
	}
}

func (a *API) createListing(w http.ResponseWriter, r *http.Request) {
	var req createListingRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	seller, err := chain.ParseAddress(req.Seller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	l, err := a.market.CreateListing(r.Context(), seller, req.TokenID, chain.Money(req.Price), time.Duration(req.DurationSeconds)*time.Second)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	obs.CountListing()
	a.audit(r.Context(), "market.listing.create", "listing", strconv.FormatUint(l.TokenID, 10), seller.Hex(), map[string]string{
		"price": strconv.FormatInt(req.Price, 10),
	})

	w.Header().Set("Location", "/v1/listings/"+strconv.FormatUint(l.TokenID, 10))
	writeJSON(w, http.StatusCreated, l)
}

func (a *API) buyListing(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	var req buyRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	buyer, err := chain.ParseAddress(req.Buyer)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	l, err := a.market.Buy(r.Context(), buyer, tokenID, chain.Money(req.Payment))
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	obs.CountSale(l.Price)
	a.audit(r.Context(), "market.sale.complete", "listing", strconv.FormatUint(tokenID, 10), buyer.Hex(), map[string]string{
		"seller": l.Seller.Hex(),
		"price":  strconv.FormatInt(int64(l.Price), 10),
	})
	writeJSON(w, http.StatusOK, l)
}

func (a *API) cancelListing(w http.ResponseWriter, r *http.Request, tokenID uint64) {
	var req cancelRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if err := a.market.CancelListing(r.Context(), caller, tokenID); err != nil {
		handleCoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "market.listing.cancel", "listing", strconv.FormatUint(tokenID, 10), caller.Hex(), nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"token_id":  tokenID,
		"is_active": false,
	})
}
