package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/aussiebroadwan/uome/internal/group/service"
	"github.com/aussiebroadwan/uome/internal/group/store"
	"github.com/aussiebroadwan/uome/pkg/httpx"
	"github.com/aussiebroadwan/uome/pkg/slogx"
)

// Router holds shared dependencies for the group authority's HTTP handlers.
type Router struct {
	Mux         *http.ServeMux
	middlewares []httpx.Middleware

	buildVersion string
	startTime    time.Time
	logger       *slog.Logger

	store         store.Store
	InviteService *service.InviteService
	JoinService   *service.JoinService
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
	r.registerMembers()
	r.registerSystem()
}

// ServeHTTP implements http.Handler and applies the global middleware chain.
func (r *Router) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	httpx.Chain(r.Mux, r.middlewares...).ServeHTTP(w, req)
}

func (r *Router) registerMembers() {
	inviteHandler := &InviteHandler{InviteService: r.InviteService}
	joinHandler := &JoinHandler{JoinService: r.JoinService}

	// POST /members/invite - strict limit; signature-gated write
	r.Mux.Handle("POST /v1/members/invite",
		httpx.Chain(inviteHandler,
			httpx.MetricsMiddleware("groupd", "invite"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /members/join - strict limit; secret redemption attempts
	r.Mux.Handle("POST /v1/members/join",
		httpx.Chain(http.HandlerFunc(joinHandler.HandleJoin),
			httpx.MetricsMiddleware("groupd", "join"),
			httpx.RateLimitByIP(httpx.StrictLimit),
		),
	)

	// POST /members/confirm - strict limit; completes the chain
	r.Mux.Handle("POST /v1/members/confirm",
		httpx.Chain(http.HandlerFunc(joinHandler.HandleConfirm),
			httpx.MetricsMiddleware("groupd", "confirm-join"),
			httpx.RateLimitByIP(httpx.StrictLimit),
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
