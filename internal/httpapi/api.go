package httpapi

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"

	"dcpr.org/api/spec"
	"dcpr.org/internal/auth"
	"dcpr.org/internal/dcpr"
	"dcpr.org/internal/obs"
	"dcpr.org/internal/stream"
)

// ReadyProbe reports readiness (typically a DB ping).
type ReadyProbe struct {
	DB *sql.DB
}

func (rp ReadyProbe) Check(ctx context.Context) error {
	if rp.DB == nil {
		return nil
	}
	return rp.DB.PingContext(ctx)
}

// Options bundles the API dependencies.
type Options struct {
	Service    *dcpr.Service
	Directory  auth.Directory
	Tokens     *auth.Tokens
	Stream     *stream.Stream
	ReadyProbe ReadyProbe
	Version    string

	RateLimitRPS   float64
	RateLimitBurst int
	MaxBodyBytes   int64
}

// API is the HTTP layer over the workflow service.
type API struct {
	router     *mux.Router
	svc        *dcpr.Service
	dir        auth.Directory
	tokens     *auth.Tokens
	stream     *stream.Stream
	readyProbe ReadyProbe
	version    string

	rateLimitRPS   float64
	rateLimitBurst int
	maxBodyBytes   int64
}

func New(opts Options) *API {
	a := &API{
		router:         mux.NewRouter(),
		svc:            opts.Service,
		dir:            opts.Directory,
		tokens:         opts.Tokens,
		stream:         opts.Stream,
		readyProbe:     opts.ReadyProbe,
		version:        opts.Version,
		rateLimitRPS:   opts.RateLimitRPS,
		rateLimitBurst: opts.RateLimitBurst,
		maxBodyBytes:   opts.MaxBodyBytes,
	}
	if a.rateLimitRPS <= 0 {
		a.rateLimitRPS = 50
	}
	if a.rateLimitBurst <= 0 {
		a.rateLimitBurst = 100
	}
	if a.maxBodyBytes <= 0 {
		a.maxBodyBytes = 1 << 20
	}

	r := a.router

	// health/ready/info
	r.HandleFunc("/healthz", a.Healthz).Methods(http.MethodGet)
	r.HandleFunc("/readyz", a.Ready).Methods(http.MethodGet)
	r.HandleFunc("/v1/info", a.Info).Methods(http.MethodGet)
	r.HandleFunc("/openapi.yaml", a.OpenAPISpec).Methods(http.MethodGet)
	r.Handle("/metrics", obs.Handler()).Methods(http.MethodGet)

	// auth
	r.HandleFunc("/v1/auth/token", a.handleAuthToken).Methods(http.MethodPost)

	// requests
	r.HandleFunc("/v1/dcpr/requests", a.createRequest).Methods(http.MethodPost)
	r.HandleFunc("/v1/dcpr/requests", a.listPublic).Methods(http.MethodGet)
	r.HandleFunc("/v1/dcpr/my-requests", a.listMine).Methods(http.MethodGet)
	r.HandleFunc("/v1/dcpr/pending/{body}", a.listPending).Methods(http.MethodGet)
	r.HandleFunc("/v1/dcpr/requests/{id}", a.showRequest).Methods(http.MethodGet)
	r.HandleFunc("/v1/dcpr/requests/{id}", a.updateRequest).Methods(http.MethodPut)
	r.HandleFunc("/v1/dcpr/requests/{id}", a.deleteRequest).Methods(http.MethodDelete)
	r.HandleFunc("/v1/dcpr/requests/{id}/submit", a.submitRequest).Methods(http.MethodPost)
	r.HandleFunc("/v1/dcpr/requests/{id}/review/{body}", a.reviewUpdate).Methods(http.MethodPut)
	r.HandleFunc("/v1/dcpr/requests/{id}/moderate/{body}", a.moderateRequest).Methods(http.MethodPost)
	r.HandleFunc("/v1/dcpr/requests/{id}/claim/{body}", a.claimReviewer).Methods(http.MethodPost)
	r.HandleFunc("/v1/dcpr/requests/{id}/resign/{body}", a.resignReviewer).Methods(http.MethodPost)
	r.HandleFunc("/v1/dcpr/requests/{id}/activities", a.listActivities).Methods(http.MethodGet)

	// live activity feed
	r.HandleFunc("/v1/dcpr/stream", a.Stream).Methods(http.MethodGet)

	r.NotFoundHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusNotFound, "resource not found")
	})
	r.MethodNotAllowedHandler = http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, r, http.StatusMethodNotAllowed, "method not allowed")
	})

	return a
}

// Handler assembles the middleware chain around the router.
func (a *API) Handler() http.Handler {
	var h http.Handler = a.router
	h = a.withAuth(h)
	h = MaxBodyBytes(h, a.maxBodyBytes)
	h = RateLimit(h, a.rateLimitBurst, a.rateLimitRPS)
	h = CORS(h)
	h = SecurityHeaders(h)
	h = LoggingJSON(h)
	h = RequestID(h)
	return obs.Instrument(h)
}

// --- info handlers ---

func (a *API) Healthz(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status":  "ok",
		"service": "dcpr-api",
		"version": a.version,
	})
}

func (a *API) Ready(w http.ResponseWriter, r *http.Request) {
	if err := a.readyProbe.Check(r.Context()); err != nil {
		writeJSON(w, http.StatusServiceUnavailable, map[string]any{
			"status": "not_ready",
			"error":  err.Error(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ready",
	})
}

func (a *API) Info(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"name":    "dcpr-api",
		"time":    time.Now().UTC().Format(time.RFC3339),
		"version": a.version,
	})
}

func (a *API) OpenAPISpec(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/yaml; charset=utf-8")
	_, _ = w.Write(spec.OpenAPI)
}
