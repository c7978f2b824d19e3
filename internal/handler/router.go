package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/r3labs/sse/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/metrics"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/ratelimit"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/service"
)

// AdminConfig enables the admin API.
type AdminConfig struct {
	JWTSecret    []byte
	PasswordHash string
	TokenTTL     time.Duration
	// LoginRate and LoginBurst bound login attempts across all callers.
	LoginRate  rate.Limit
	LoginBurst int
}

// RouterConfig holds everything NewRouter wires together.
type RouterConfig struct {
	Log               *zap.Logger
	Registrations     *service.RegistrationService
	Contacts          *service.ContactService
	Limiter           ratelimit.Limiter
	RegistrationLimit ratelimit.Limit
	ContactLimit      ratelimit.Limit
	Metrics           metrics.Recorder
	Production        bool
	AllowedOrigins    []string
	// TrustProxyHeaders enables RealIP. Without it clients are keyed on
	// the connection address, so forged forwarding headers are ignored.
	TrustProxyHeaders bool
	Events            *sse.Server
	// Admin is nil when no admin credentials are configured.
	Admin *AdminConfig
}

// NewRouter builds the HTTP router.
func NewRouter(cfg RouterConfig) http.Handler {
	r := chi.NewRouter()

	// Global middleware stack
	r.Use(chimiddleware.Recoverer) // recover from panics, return 500
	r.Use(chimiddleware.RequestID) // attach request IDs
	if cfg.TrustProxyHeaders {
		r.Use(chimiddleware.RealIP) // trust X-Forwarded-For
	}
	r.Use(Logger(cfg.Log)) // structured access log
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins: cfg.AllowedOrigins,
		AllowedMethods: []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodDelete, http.MethodOptions},
		AllowedHeaders: []string{"Accept", "Authorization", "Content-Type"},
		ExposedHeaders: []string{
			"X-RateLimit-Limit", "X-RateLimit-Remaining", "X-RateLimit-Reset",
			"X-Processing-Time", "Retry-After", "Content-Disposition",
		},
		MaxAge: 300,
	}))

	// Health
	r.Get("/health", HealthCheck)

	reg := NewRegistrationHandler(cfg.Registrations, cfg.Limiter, cfg.RegistrationLimit, cfg.Metrics, cfg.Log, cfg.Production)
	contact := NewContactHandler(cfg.Contacts, cfg.Limiter, cfg.ContactLimit, cfg.Log)

	r.Route("/api", func(r chi.Router) {
		r.Route("/register", func(r chi.Router) {
			r.Post("/", reg.Register)
			r.Get("/", reg.Health)
			r.Get("/stats", reg.Stats)
		})
		r.Post("/contact", contact.Submit)

		if cfg.Admin != nil {
			r.Mount("/admin", adminRouter(cfg))
		}
	})

	return r
}

func adminRouter(cfg RouterConfig) http.Handler {
	a := cfg.Admin
	h := NewAdminHandler(cfg.Registrations, cfg.Contacts, a.JWTSecret, a.PasswordHash, a.TokenTTL, cfg.Events, cfg.Log)

	r := chi.NewRouter()
	r.With(Throttle(rate.NewLimiter(a.LoginRate, a.LoginBurst))).Post("/login", h.Login)

	r.Group(func(r chi.Router) {
		r.Use(RequireAdmin(a.JWTSecret))

		r.Route("/registrations", func(r chi.Router) {
			r.Get("/", h.ListRegistrations)
			r.Get("/export", h.ExportRegistrations)
			r.Get("/{id}", h.GetRegistration)
			r.Patch("/{id}", h.UpdateRegistration)
			r.Delete("/{id}", h.DeleteRegistration)
		})
		r.Route("/contacts", func(r chi.Router) {
			r.Get("/", h.ListContacts)
			r.Patch("/{id}", h.UpdateContact)
			r.Delete("/{id}", h.DeleteContact)
		})
		r.Get("/stream", h.Stream)
	})
	return r
}
