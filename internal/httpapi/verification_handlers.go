package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"artledger.org/internal/auth"
	"artledger.org/internal/chain"
	"artledger.org/internal/obs"
	"artledger.org/internal/verification"
)

type createVerificationRequest struct {
	Submitter   string `json:"submitter"`
	Payment     int64  `json:"payment"`
	FileHash    string `json:"file_hash"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Artist      string `json:"artist"`
	FileType    string `json:"file_type"`
	FileSize    int64  `json:"file_size"`
	MetadataURI string `json:"metadata_uri"`
}

type setFeeRequest struct {
	Caller string `json:"caller"`
	Fee    int64  `json:"fee"`
}

func (a *API) handleVerificationsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createVerification(w, r)
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"total": a.verifications.Total(r.Context()),
			"fee":   a.verifications.Fee(r.Context()),
		})
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPost)
	}
}

func (a *API) handleVerificationResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	raw := strings.TrimPrefix(r.URL.Path, "/v1/verifications/")
	hash, err := chain.ParseHash(raw)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	rec, err := a.verifications.ByHash(r.Context(), hash)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rec)
}

func (a *API) handleVerificationFee(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		writeJSON(w, http.StatusOK, map[string]any{
			"fee":      a.verifications.Fee(r.Context()),
			"currency": chain.Currency,
		})
	case http.MethodPut:
		a.setVerificationFee(w, r)
	default:
		methodNotAllowed(w, r, http.MethodGet, http.MethodPut)
	}
}

func (a *API) createVerification(w http.ResponseWriter, r *http.Request) {
	var req createVerificationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	submitter, err := chain.ParseAddress(req.Submitter)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	hash, err := chain.ParseHash(req.FileHash)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	rec, err := a.verifications.Create(r.Context(), submitter, chain.Money(req.Payment), verification.CreateParams{
		FileHash:    hash,
		Title:       strings.TrimSpace(req.Title),
		Description: req.Description,
		Artist:      req.Artist,
		FileType:    req.FileType,
		FileSize:    req.FileSize,
		MetadataURI: req.MetadataURI,
	})
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	obs.CountVerification()
	a.audit(r.Context(), "verification.record.create", "verification", rec.FileHash.Hex(), submitter.Hex(), map[string]string{
		"payment": strconv.FormatInt(req.Payment, 10),
	})

	w.Header().Set("Location", "/v1/verifications/"+rec.FileHash.Hex())
	writeJSON(w, http.StatusCreated, rec)
}

func (a *API) setVerificationFee(w http.ResponseWriter, r *http.Request) {
	if !a.requireRole(w, r, auth.RoleAdmin) {
		return
	}
	var req setFeeRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	caller, err := chain.ParseAddress(req.Caller)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if err := a.verifications.SetFee(r.Context(), caller, chain.Money(req.Fee)); err != nil {
		handleCoreError(w, r, err)
		return
	}
	a.audit(r.Context(), "verification.fee.update", "fee", strconv.FormatInt(req.Fee, 10), caller.Hex(), nil)
	writeJSON(w, http.StatusOK, map[string]any{
		"fee":      chain.Money(req.Fee),
		"currency": chain.Currency,
	})
}
