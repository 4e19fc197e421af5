package httpapi

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"time"

	"artledger.org/internal/audit"
	"artledger.org/internal/ledger"
	"artledger.org/internal/market"
	"artledger.org/internal/obs"
	"artledger.org/internal/registry"
	"artledger.org/internal/stream"
	"artledger.org/internal/verification"
)

const serviceName = "artledger-api"

// ReadyProbe pings the mirror database when one is configured.
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// API is the HTTP gateway over the artwork, verification and marketplace
// ledgers.
type API struct {
	mux        *http.ServeMux
	readyProbe ReadyProbe
	version    string

	artworks      *registry.Registry
	verifications *verification.Registry
	market        *market.Market
	funds         ledger.Service
	events        *stream.Stream

	rateBurst  int
	ratePerSec int
	maxBody    int64
}

// New wires routes for all core components.
func New(rp ReadyProbe, version string, artworks *registry.Registry, verifications *verification.Registry, mkt *market.Market, funds ledger.Service, events *stream.Stream) *API {
	a := &API{
		mux:           http.NewServeMux(),
		readyProbe:    rp,
		version:       version,
		artworks:      artworks,
		verifications: verifications,
		market:        mkt,
		funds:         funds,
		events:        events,
		rateBurst:     20,
		ratePerSec:    10,
		maxBody:       1 << 20,
	}

	a.mux.HandleFunc("/healthz", a.Healthz)
	a.mux.HandleFunc("/readyz", a.Ready)
	a.mux.HandleFunc("/v1/info", a.Info)
	a.mux.Handle("/metrics", obs.Handler())

	a.mux.HandleFunc("/v1/auth/token", a.handleAuthToken)

	a.mux.HandleFunc("/v1/accounts", a.handleAccountsCollection)
	a.mux.HandleFunc("/v1/accounts/", a.handleAccountResource)

	a.mux.HandleFunc("/v1/artworks", a.handleArtworksCollection)
	a.mux.HandleFunc("/v1/artworks/", a.handleArtworkResource)
	a.mux.HandleFunc("/v1/minters", a.handleMinters)

	a.mux.HandleFunc("/v1/verifications", a.handleVerificationsCollection)
	a.mux.HandleFunc("/v1/verifications/", a.handleVerificationResource)
	a.mux.HandleFunc("/v1/verifications/fee", a.handleVerificationFee)

	a.mux.HandleFunc("/v1/listings", a.handleListingsCollection)
	a.mux.HandleFunc("/v1/listings/", a.handleListingResource)

	a.mux.HandleFunc("/v1/events/stream", a.Stream)

	a.mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	})

	return a
}

// SetRateLimits overrides the default per-client limiter settings. Call
// before Handler.
func (a *API) SetRateLimits(burst, perSecond int) {
	if burst > 0 {
		a.rateBurst = burst
	}
	if perSecond > 0 {
		a.ratePerSec = perSecond
	}
}

// Handler returns the fully wrapped http.Handler for the server.
func (a *API) Handler() http.Handler {
	h := http.Handler(a.mux)
	h = obs.Instrument(h)
	h = a.withAuth(h)
	h = RateLimit(h, a.rateBurst, a.ratePerSec)
	h = MaxBodyBytes(h, a.maxBody)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return h
}

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": serviceName,
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		obs.SetReady(false)
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	obs.SetReady(true)
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    serviceName,
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

// audit records a state change with the on-chain actor that drove it.
func (a *API) audit(ctx context.Context, event, entity, id, actor string, meta map[string]string) {
	_ = audit.Log(ctx, audit.Entry{
		Event:    event,
		Entity:   entity,
		EntityID: id,
		Actor:    actor,
		Meta:     meta,
	})
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
