package httpapi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"

	"artledger.org/internal/auth"
	"artledger.org/internal/chain"
	"artledger.org/internal/ledger"
	"artledger.org/internal/market"
	"artledger.org/internal/registry"
	"artledger.org/internal/stream"
	"artledger.org/internal/verification"
)

const (
	testAdmin    = "0x00000000000000000000000000000000000000Ad"
	testTreasury = "0x000000000000000000000000000000000000007e"
	testMarket   = "0x000000000000000000000000000000000000003A"
	testArtist   = "0x1000000000000000000000000000000000000001"
	testBuyer    = "0x1000000000000000000000000000000000000002"
	testFee      = 100
)

type apiClient struct {
	baseURL string
	client  *http.Client
	t       *testing.T
}

func newTestAPI(t *testing.T) *apiClient {
	t.Helper()

	t.Setenv("ARTLEDGER_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	mustAddr := func(s string) common.Address {
		addr, err := chain.ParseAddress(s)
		if err != nil {
			t.Fatalf("parse address %s: %v", s, err)
		}
		return addr
	}

	events := stream.New()
	funds := ledger.NewInMemory()
	artworks := registry.New(mustAddr(testAdmin), true, events)
	verifications := verification.New(mustAddr(testAdmin), mustAddr(testTreasury), testFee, funds, events)
	mkt := market.New(mustAddr(testMarket), artworks, funds, events)

	api := New(ReadyProbe{}, "test", artworks, verifications, mkt, funds, events)
	api.rateBurst = 1000
	api.ratePerSec = 1000

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	return &apiClient{
		baseURL: srv.URL,
		client:  srv.Client(),
		t:       t,
	}
}

func (c *apiClient) do(method, path string, body any, token string) *http.Response {
	c.t.Helper()
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			c.t.Fatalf("marshal body: %v", err)
		}
	}
	req, err := http.NewRequest(method, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		c.t.Fatalf("new request: %v", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	resp, err := c.client.Do(req)
	if err != nil {
		c.t.Fatalf("do request: %v", err)
	}
	return resp
}

func (c *apiClient) post(path string, body any, token string) *http.Response {
	return c.do(http.MethodPost, path, body, token)
}

func (c *apiClient) get(path, token string) *http.Response {
	return c.do(http.MethodGet, path, nil, token)
}

func (c *apiClient) obtainToken(user string, roles []string) string {
	c.t.Helper()
	resp := c.post("/v1/auth/token", map[string]any{
		"user":  user,
		"roles": roles,
	}, "")
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("unexpected token status: %d", resp.StatusCode)
	}
	var payload tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		c.t.Fatalf("decode token response: %v", err)
	}
	if payload.Token == "" {
		c.t.Fatalf("empty token issued")
	}
	return payload.Token
}

func (c *apiClient) fundAccount(token, address string, amount int64) {
	c.t.Helper()
	resp := c.post("/v1/accounts", map[string]any{
		"address":        address,
		"initial_amount": amount,
	}, token)
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusCreated {
		c.t.Fatalf("create account %s: status %d", address, resp.StatusCode)
	}
}

func (c *apiClient) balance(token, address string) int64 {
	c.t.Helper()
	resp := c.get("/v1/accounts/"+address+"/balance", token)
	if resp.StatusCode != http.StatusOK {
		c.t.Fatalf("balance %s: status %d", address, resp.StatusCode)
	}
	payload := decode[struct {
		Balance int64 `json:"balance"`
	}](c.t, resp)
	return payload.Balance
}

func decode[T any](t *testing.T, r *http.Response) T {
	t.Helper()
	defer r.Body.Close()
	var v T
	if err := json.NewDecoder(r.Body).Decode(&v); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return v
}

func expectStatus(t *testing.T, resp *http.Response, want int) {
	t.Helper()
	defer resp.Body.Close()
	if resp.StatusCode != want {
		t.Fatalf("status = %d, want %d", resp.StatusCode, want)
	}
}

func TestAPIMintListBuyFlow(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("trader", []string{"trader"})

	c.fundAccount(token, testArtist, 5000)
	c.fundAccount(token, testBuyer, 5000)

	resp := c.post("/v1/artworks", map[string]any{
		"minter":               testArtist,
		"title":                "Sunset Over Water",
		"artist":               "R. Vale",
		"file_hash":            "0x51962018a49e2f5c1f53d2d1fdb15b48da8c00931e17462b1b26348fba9d5d05",
		"royalty_basis_points": 500,
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("mint status = %d", resp.StatusCode)
	}
	art := decode[registry.Artwork](t, resp)
	if art.TokenID != 1 {
		t.Fatalf("token id = %d, want 1", art.TokenID)
	}
	if art.Owner.Hex() != testArtist {
		t.Fatalf("owner = %s", art.Owner.Hex())
	}

	resp = c.post("/v1/artworks/1/approve", map[string]any{
		"caller":  testArtist,
		"spender": testMarket,
	}, token)
	expectStatus(t, resp, http.StatusOK)

	resp = c.post("/v1/listings", map[string]any{
		"seller":           testArtist,
		"token_id":         1,
		"price":            1000,
		"duration_seconds": 3600,
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create listing status = %d", resp.StatusCode)
	}
	l := decode[market.Listing](t, resp)
	if !l.IsActive {
		t.Fatalf("listing should be active")
	}

	// Overpayment only debits the price.
	resp = c.post("/v1/listings/1/buy", map[string]any{
		"buyer":   testBuyer,
		"payment": 1200,
	}, token)
	expectStatus(t, resp, http.StatusOK)

	resp = c.get("/v1/artworks/1", token)
	art = decode[registry.Artwork](t, resp)
	if art.Owner.Hex() != testBuyer {
		t.Fatalf("owner after sale = %s, want buyer", art.Owner.Hex())
	}

	if got := c.balance(token, testBuyer); got != 4000 {
		t.Fatalf("buyer balance = %d, want 4000", got)
	}
	if got := c.balance(token, testArtist); got != 6000 {
		t.Fatalf("artist balance = %d, want 6000", got)
	}

	// The listing is consumed by the sale.
	resp = c.post("/v1/listings/1/buy", map[string]any{
		"buyer":   testBuyer,
		"payment": 1000,
	}, token)
	expectStatus(t, resp, http.StatusConflict)
}

func TestAPIVerificationFlow(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("trader", []string{"trader"})

	c.fundAccount(token, testArtist, 1000)

	hash := "0x6cafe1bd6d0b11b1cc1d3b5cfc7408bb1f0a37983bba9a1a07e860a17db6ec5b"
	resp := c.post("/v1/verifications", map[string]any{
		"submitter":    testArtist,
		"payment":      250,
		"file_hash":    hash,
		"title":        "Quiet Field",
		"artist":       "R. Vale",
		"metadata_uri": "ipfs://bafy/quiet-field.json",
	}, token)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create verification status = %d", resp.StatusCode)
	}
	rec := decode[verification.Record](t, resp)
	if rec.Submitter.Hex() != testArtist {
		t.Fatalf("submitter = %s", rec.Submitter.Hex())
	}
	if rec.Artist != "R. Vale" || rec.MetadataURI != "ipfs://bafy/quiet-field.json" {
		t.Fatalf("metadata dropped: %+v", rec)
	}

	// The full payment goes to the treasury, not just the fee.
	if got := c.balance(token, testTreasury); got != 250 {
		t.Fatalf("treasury balance = %d, want 250", got)
	}

	resp = c.post("/v1/verifications", map[string]any{
		"submitter": testArtist,
		"payment":   250,
		"file_hash": hash,
	}, token)
	expectStatus(t, resp, http.StatusConflict)

	resp = c.get("/v1/verifications/"+hash, token)
	expectStatus(t, resp, http.StatusOK)

	resp = c.post("/v1/verifications", map[string]any{
		"submitter": testArtist,
		"payment":   50,
		"file_hash": "0x7cafe1bd6d0b11b1cc1d3b5cfc7408bb1f0a37983bba9a1a07e860a17db6ec5b",
	}, token)
	expectStatus(t, resp, http.StatusPaymentRequired)
}

func TestAPIAdminGating(t *testing.T) {
	c := newTestAPI(t)
	trader := c.obtainToken("trader", []string{"trader"})
	admin := c.obtainToken("ops", []string{auth.RoleAdmin})

	resp := c.post("/v1/artworks", map[string]any{
		"minter": testArtist,
		"title":  "Blue Study",
	}, trader)
	expectStatus(t, resp, http.StatusCreated)

	resp = c.post("/v1/artworks/1/verify", map[string]any{
		"caller":   testAdmin,
		"verified": true,
	}, trader)
	expectStatus(t, resp, http.StatusForbidden)

	resp = c.post("/v1/artworks/1/verify", map[string]any{
		"caller":   testAdmin,
		"verified": true,
	}, admin)
	art := decode[registry.Artwork](t, resp)
	if !art.IsVerified {
		t.Fatalf("artwork should be verified")
	}

	resp = c.do(http.MethodPut, "/v1/verifications/fee", map[string]any{
		"caller": testAdmin,
		"fee":    500,
	}, trader)
	expectStatus(t, resp, http.StatusForbidden)

	resp = c.do(http.MethodPut, "/v1/verifications/fee", map[string]any{
		"caller": testAdmin,
		"fee":    500,
	}, admin)
	expectStatus(t, resp, http.StatusOK)

	resp = c.post("/v1/minters", map[string]any{
		"caller":  testAdmin,
		"address": testBuyer,
		"grant":   true,
	}, admin)
	expectStatus(t, resp, http.StatusOK)
}

func TestAPIErrorMapping(t *testing.T) {
	c := newTestAPI(t)
	token := c.obtainToken("trader", []string{"trader"})

	resp := c.get("/v1/artworks/99", token)
	expectStatus(t, resp, http.StatusNotFound)

	resp = c.post("/v1/artworks", map[string]any{
		"minter": "not-an-address",
		"title":  "Broken",
	}, token)
	expectStatus(t, resp, http.StatusBadRequest)

	resp = c.post("/v1/artworks", map[string]any{
		"minter": testArtist,
		"title":  "No Token",
	}, "")
	expectStatus(t, resp, http.StatusUnauthorized)

	resp = c.get("/healthz", "")
	expectStatus(t, resp, http.StatusOK)
}

func TestAPIEventStreamFrames(t *testing.T) {
	t.Setenv("ARTLEDGER_AUTH_SECRET", "test-secret")
	auth.ResetSecretForTests()

	events := stream.New()
	funds := ledger.NewInMemory()
	artworks := registry.New(common.HexToAddress(testAdmin), true, events)
	verifications := verification.New(common.HexToAddress(testAdmin), common.HexToAddress(testTreasury), testFee, funds, events)
	mkt := market.New(common.HexToAddress(testMarket), artworks, funds, events)
	api := New(ReadyProbe{}, "test", artworks, verifications, mkt, funds, events)

	srv := httptest.NewServer(api.Handler())
	t.Cleanup(srv.Close)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, srv.URL+"/v1/events/stream", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp, err := srv.Client().Do(req)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if ct := resp.Header.Get("Content-Type"); ct != "text/event-stream" {
		t.Fatalf("content type = %q", ct)
	}

	// Republish until the subscription inside the handler picks it up.
	stop := make(chan struct{})
	defer close(stop)
	go func() {
		ticker := time.NewTicker(10 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stop:
				return
			case <-ticker.C:
				events.Publish(stream.Event{Type: stream.TypeArtworkMinted, TokenID: 1})
			}
		}
	}()

	var sawEvent, sawID bool
	scanner := bufio.NewScanner(resp.Body)
	for scanner.Scan() {
		line := scanner.Text()
		if line == "event: artwork.minted" {
			sawEvent = true
		}
		if strings.HasPrefix(line, "id: ") && len(line) > len("id: ") {
			sawID = true
		}
		if sawEvent && sawID {
			return
		}
	}
	t.Fatalf("stream ended without typed frame: event=%v id=%v (%v)", sawEvent, sawID, scanner.Err())
}
