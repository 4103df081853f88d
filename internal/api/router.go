package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
	"gorm.io/gorm"

	"github.com/cronpulse/cronpulse/internal/config"
	"github.com/cronpulse/cronpulse/internal/store"
	"github.com/cronpulse/cronpulse/internal/websocket"
)

// Deps bundles the collaborators the router wires into handlers.
type Deps struct {
	DB        *gorm.DB
	Monitors  store.MonitorStore
	Users     store.UserStore
	APIKeys   store.APIKeyStore
	Settings  store.SettingsStore
	Resolver  *store.Resolver
	Hub       *websocket.Hub
	Scheduler SchedulerHandle
	Log       *zap.Logger
}

// NewRouter creates the HTTP router.
func NewRouter(cfg *config.Config, deps Deps) http.Handler {
	r := chi.NewRouter()
	log := deps.Log.With(zap.String("component", "api"))

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5))
	r.Use(SecurityHeadersMiddleware(cfg.Environment == "production"))

	// CORS
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-API-Key"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	authLimiter := NewRateLimiter(rate.Limit(1), 5)

	// A typed nil hub must stay a nil interface inside HandlePing.
	var pingHub PingBroadcaster
	if deps.Hub != nil {
		pingHub = deps.Hub
	}

	r.Route("/api", func(r chi.Router) {
		// Auth routes, rate limited per IP
		r.Group(func(r chi.Router) {
			r.Use(RateLimitMiddleware(authLimiter))
			r.Post("/auth/signup", HandleSignup(deps.Users, log))
			r.Post("/auth/login", HandleLogin(deps.Users, cfg, log))
		})

		// Protected routes: session token or API key
		r.Group(func(r chi.Router) {
			r.Use(AuthMiddleware(deps.Users, deps.APIKeys, cfg.JWTSecret, log))

			// Monitor routes
			r.Get("/monitors", HandleGetMonitors(deps.Monitors))
			r.Post("/monitors", HandleCreateMonitor(deps.Monitors, log))
			r.Get("/monitors/{id}", HandleGetMonitor(deps.Monitors))
			r.Put("/monitors/{id}", HandleUpdateMonitor(deps.Monitors, log))
			r.Delete("/monitors/{id}", HandleDeleteMonitor(deps.Monitors, log))

			// Ping endpoint: GET kept for curl-from-cron convenience
			r.Get("/ping/{id}", HandlePing(deps.Monitors, pingHub, log))
			r.Post("/ping/{id}", HandlePing(deps.Monitors, pingHub, log))

			// API key routes
			r.Get("/api-keys", HandleGetAPIKeys(deps.APIKeys))
			r.Post("/api-keys", HandleCreateAPIKey(deps.APIKeys, log))
			r.Delete("/api-keys/{id}", HandleDeleteAPIKey(deps.APIKeys, log))

			// Settings routes
			r.Get("/settings/smtp", HandleGetSMTPSettings(deps.Resolver))
			r.Put("/settings/smtp", HandleUpdateSMTPSettings(deps.Settings, log))
			r.Post("/settings/smtp/test", HandleTestSMTPSettings(deps.Resolver, cfg, log))

			// Admin routes
			r.Group(func(r chi.Router) {
				r.Use(AdminOnly)
				r.Get("/admin/users", HandleListUsers(deps.Users))
				r.Delete("/admin/users/{id}", HandleDeleteUser(deps.Users, log))
			})
		})
	})

	// WebSocket endpoint (authenticates its own token)
	if deps.Hub != nil {
		r.Get("/ws", deps.Hub.HandleWebSocket)
	}

	// Prometheus metrics endpoint
	r.Method("GET", "/metrics", promhttp.Handler())

	// Health check
	r.Get("/health", HandleHealth(deps.DB, deps.Scheduler))

	return r
}
