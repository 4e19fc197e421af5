package httpapi

import (
	"net/http"
	"strconv"
	"strings"

	"artledger.org/internal/chain"
)

type createAccountRequest struct {
	Address       string `json:"address"`
	InitialAmount int64  `json:"initial_amount"`
}

func (a *API) handleAccountsCollection(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		a.createAccount(w, r)
	default:
		methodNotAllowed(w, r, http.MethodPost)
	}
}

func (a *API) handleAccountResource(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		methodNotAllowed(w, r, http.MethodGet)
		return
	}
	path := strings.TrimPrefix(r.URL.Path, "/v1/accounts/")
	if path == "" {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	wantBalance := false
	if strings.HasSuffix(path, "/balance") {
		wantBalance = true
		path = strings.TrimSuffix(strings.TrimSuffix(path, "/balance"), "/")
	}
	if path == "" || strings.Contains(path, "/") {
		writeError(w, r, http.StatusNotFound, "resource not found")
		return
	}

	addr, err := chain.ParseAddress(path)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	if wantBalance {
		bal, err := a.funds.Balance(r.Context(), addr)
		if err != nil {
			handleCoreError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, map[string]any{
			"address":  addr.Hex(),
			"currency": chain.Currency,
			"balance":  bal,
		})
		return
	}

	acc, err := a.funds.Account(r.Context(), addr)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

func (a *API) createAccount(w http.ResponseWriter, r *http.Request) {
	var req createAccountRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, r, http.StatusBadRequest, err.Error())
		return
	}
	addr, err := chain.ParseAddress(req.Address)
	if err != nil {
		handleCoreError(w, r, err)
		return
	}
	if req.InitialAmount < 0 {
		writeError(w, r, http.StatusBadRequest, "initial_amount must be >= 0")
		return
	}

	acc, err := a.funds.CreateAccount(r.Context(), addr, chain.Money(req.InitialAmount))
	if err != nil {
		handleCoreError(w, r, err)
		return
	}

	a.audit(r.Context(), "funds.account.create", "account", acc.Address.Hex(), acc.Address.Hex(), map[string]string{
		"initial_amount": strconv.FormatInt(req.InitialAmount, 10),
	})

	w.Header().Set("Location", "/v1/accounts/"+acc.Address.Hex())
	writeJSON(w, http.StatusCreated, acc)
}
