package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/uome/internal/ledger/service"
	"github.com/aussiebroadwan/uome/internal/ledger/store"
	"github.com/aussiebroadwan/uome/pkg/httpx"
	"github.com/aussiebroadwan/uome/pkg/slogx"
)

// Router holds shared dependencies for the ledger authority's HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store             store.Store
	RegistryService   *service.RegistryService
	MembershipService *service.MembershipService
	UOMeService       *service.UOMeService
	QueryService      *service.QueryService
}

func NewRouter(buildVersion string, st store.Store, logger *slog.Logger) *Router {
	r := &Router{
		Mux:          http.NewServeMux(),
		buildVersion: buildVersion,
		startTime:    time.Now(),
		store:        st,
		logger:       logger,
	}

	// Set default middleware chain
	r.middlewares = []httpx.Middleware{
		slogx.HTTPMiddleware(r.logger),
	}

	return r
}

func (r *Router) ApplyRoutes() {
	r.registerGroups()
	r.registerUOMes()
	r.registerQueries()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerGroups() {
	registerHandler := &RegisterGroupHandler{RegistryService: r.RegistryService}
	joinHandler := &MainJoinHandler{MembershipService: r.MembershipService}

	// POST /groups/register - strict limit; a group registers exactly once
	r.Mux.Handle("POST /v1/groups/register",
		httpx.Chain(registerHandler,
			httpx.MetricsMiddleware("ledgerd", "register-group"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /groups/join - strict limit; called by group authorities, not members
	r.Mux.Handle("POST /v1/groups/join",
		httpx.Chain(joinHandler,
			httpx.MetricsMiddleware("ledgerd", "main-join"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerUOMes() {
	h := &UOMeHandler{UOMeService: r.UOMeService}

	// All four lifecycle endpoints carry member signatures and mutate state,
	// so they share the strict limit.
	r.Mux.Handle("POST /v1/uomes/issue",
		httpx.Chain(http.HandlerFunc(h.HandleIssue),
			httpx.MetricsMiddleware("ledgerd", "issue"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/uomes/confirm",
		httpx.Chain(http.HandlerFunc(h.HandleConfirm),
			httpx.MetricsMiddleware("ledgerd", "confirm"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/uomes/accept",
		httpx.Chain(http.HandlerFunc(h.HandleAccept),
			httpx.MetricsMiddleware("ledgerd", "accept"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
	r.Mux.Handle("POST /v1/uomes/cancel",
		httpx.Chain(http.HandlerFunc(h.HandleCancel),
			httpx.MetricsMiddleware("ledgerd", "cancel"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)
}

func (r *Router) registerQueries() {
	h := &QueryHandler{QueryService: r.QueryService}

	// Queries are read-only but still POST: the signed request is a body,
	// not a query string.
	r.Mux.Handle("POST /v1/uomes/pending",
		httpx.Chain(http.HandlerFunc(h.HandlePending),
			httpx.MetricsMiddleware("ledgerd", "pending"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("POST /v1/uomes/totals",
		httpx.Chain(http.HandlerFunc(h.HandleTotals),
			httpx.MetricsMiddleware("ledgerd", "totals"),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
}

func (r *Router) registerSystem() {
	r.Mux.Handle("GET /livez",
		httpx.Chain(LivezHandler(r.startTime, r.buildVersion),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /readyz",
		httpx.Chain(ReadyzHandler(r.startTime, r.buildVersion, r.store),
			httpx.RateLimitByIP(httpx.LenientLimit),
		),
	)
	r.Mux.Handle("GET /metrics", httpx.MetricsHandler())
}
