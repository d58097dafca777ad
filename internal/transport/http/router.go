package httptransport

import (
	"context"
	"expvar"
	"fmt"
	"net/http"
	"sort"
	"strings"

	"table-keeper/internal/config"
	"table-keeper/internal/mcpserver"
	"table-keeper/internal/orchestrator"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog/log"
)

type Pinger interface {
	Ping(ctx context.Context) error
}

func NewRouter(db Pinger, orch *orchestrator.Orchestrator, cfg config.ServerConfig) *chi.Mux {
	r := chi.NewRouter()
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)

	r.With(APILogMiddleware()).Get("/healthz", HealthHandler(db))

	if cfg.MCPEnabled {
		mcpSrv := mcpserver.New(orch)
		r.Group(func(r chi.Router) {
			r.Use(APILogMiddleware())
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.MethodFunc(http.MethodOptions, "/mcp", func(w http.ResponseWriter, _ *http.Request) {
				w.Header().Set("Allow", "POST, GET, DELETE, OPTIONS")
				w.WriteHeader(http.StatusNoContent)
			})
			r.Method(http.MethodPost, "/mcp", mcpSrv.Handler())
			r.Method(http.MethodGet, "/mcp", mcpSrv.Handler())
			r.Method(http.MethodDelete, "/mcp", mcpSrv.Handler())
		})
	} else {
		log.Info().Msg("mcp endpoint disabled")
	}

	r.Route("/api", func(r chi.Router) {
		r.Use(APILogMiddleware())
		r.Post("/orchestrator/enforce", EnforceHandler(orch, cfg.AdminAPIKey))

		r.Group(func(r chi.Router) {
			r.Use(AdminAuthMiddleware(cfg.AdminAPIKey))
			r.Get("/sessions/{session_id}/audit", AuditHandler(orch))

			r.Route("/debug", func(r chi.Router) {
				r.Use(BodyCaptureMiddleware(4096))
				r.Get("/vars", expvar.Handler().ServeHTTP)
				r.Post("/reconcile", ReconcileHandler(orch))
			})
		})
	})
	return r
}

func LogRoutes(r chi.Router) {
	type routeDef struct {
		Method string
		Path   string
	}
	routes := make([]routeDef, 0, 16)
	err := chi.Walk(r, func(method string, route string, _ http.Handler, _ ...func(http.Handler) http.Handler) error {
		routes = append(routes, routeDef{Method: method, Path: route})
		return nil
	})
	if err != nil {
		log.Error().Err(err).Msg("walk routes failed")
		return
	}
	sort.Slice(routes, func(i, j int) bool {
		if routes[i].Path == routes[j].Path {
			return routes[i].Method < routes[j].Method
		}
		return routes[i].Path < routes[j].Path
	})
	var b strings.Builder
	b.WriteString(fmt.Sprintf("Registered routes (%d):\n", len(routes)))
	for _, rt := range routes {
		b.WriteString(fmt.Sprintf("  %-6s %s\n", rt.Method, rt.Path))
	}
	fmt.Print(b.String())
}
