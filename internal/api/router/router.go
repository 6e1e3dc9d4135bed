package router

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/wolfman30/roofing-lead-agent/internal/conversation"
	"github.com/wolfman30/roofing-lead-agent/internal/http/handlers"
	httpmiddleware "github.com/wolfman30/roofing-lead-agent/internal/http/middleware"
	"github.com/wolfman30/roofing-lead-agent/internal/leads"
	"github.com/wolfman30/roofing-lead-agent/pkg/logging"
)

const (
	requestTimeout = 30 * time.Second
	healthTimeout  = 2 * time.Second
)

// HealthCheck reports whether a backing dependency is reachable.
type HealthCheck func(ctx context.Context) error

// Config holds router configuration
type Config struct {
	Logger              *logging.Logger
	ConversationHandler *conversation.Handler
	LeadsHandler        *leads.Handler
	DashboardAuth       *handlers.DashboardAuthHandler
	AdminAuthSecret     string
	MetricsHandler      http.Handler
	CORSAllowedOrigins  []string

	// Optional limiters; nil disables limiting on that surface.
	RateLimiter  *httpmiddleware.RateLimiter
	LoginLimiter *httpmiddleware.RateLimiter

	// HealthChecks run on GET /health, keyed by dependency name.
	HealthChecks map[string]HealthCheck
}

// New creates a new Chi router with all routes configured
func New(cfg *Config) http.Handler {
	if cfg.Logger == nil {
		cfg.Logger = logging.Default()
	}
	r := chi.NewRouter()

	r.Use(middleware.RealIP)
	r.Use(httpmiddleware.RequestLogger(cfg.Logger))
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(httpmiddleware.CORS(cfg.CORSAllowedOrigins))

	r.Get("/health", healthHandler(cfg.HealthChecks))
	if cfg.MetricsHandler != nil {
		r.Handle("/metrics", cfg.MetricsHandler)
	}

	r.Route("/api", func(api chi.Router) {
		api.Use(middleware.Timeout(requestTimeout))
		if cfg.RateLimiter != nil {
			api.Use(cfg.RateLimiter.Middleware)
		}

		if cfg.ConversationHandler != nil {
			api.Route("/chat", func(chat chi.Router) {
				chat.Post("/", cfg.ConversationHandler.Chat)
				chat.Get("/health", cfg.ConversationHandler.Health)
				chat.Post("/submit", cfg.ConversationHandler.Submit)
				chat.Get("/slots", cfg.ConversationHandler.Slots)
				chat.Delete("/sessions/{sessionID}", cfg.ConversationHandler.Reset)
			})
		}

		if cfg.DashboardAuth != nil {
			login := api.With()
			if cfg.LoginLimiter != nil {
				login = api.With(cfg.LoginLimiter.Middleware)
			}
			login.Post("/auth", cfg.DashboardAuth.Login)
		}

		if cfg.LeadsHandler != nil {
			api.Route("/leads", func(l chi.Router) {
				l.Post("/", cfg.LeadsHandler.Create)
				l.Group(func(admin chi.Router) {
					admin.Use(httpmiddleware.AdminJWT(cfg.AdminAuthSecret))
					admin.Get("/", cfg.LeadsHandler.ListLeads)
					admin.Get("/export.csv", cfg.LeadsHandler.ExportCSV)
					admin.Get("/{id}", cfg.LeadsHandler.GetLead)
					admin.Put("/{id}", cfg.LeadsHandler.UpdateLead)
					admin.Delete("/{id}", cfg.LeadsHandler.DeleteLead)
				})
			})
		}
	})

	return r
}

type healthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	names := make([]string, 0, len(checks))
	for name := range checks {
		names = append(names, name)
	}
	sort.Strings(names)

	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok", Timestamp: time.Now().UTC().Format(time.RFC3339)}
		status := http.StatusOK
		if len(names) > 0 {
			ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
			defer cancel()
			resp.Checks = make(map[string]string, len(names))
			for _, name := range names {
				if err := checks[name](ctx); err != nil {
					resp.Checks[name] = err.Error()
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
					continue
				}
				resp.Checks[name] = "ok"
			}
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_ = json.NewEncoder(w).Encode(resp)
	}
}
