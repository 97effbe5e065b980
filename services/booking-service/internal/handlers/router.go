package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/salonmonarch/booking/libs/auth"
	"github.com/salonmonarch/booking/libs/httpx"
	"github.com/salonmonarch/booking/libs/runtime"
	"github.com/salonmonarch/booking/services/booking-service/internal/admins"
	"github.com/salonmonarch/booking/services/booking-service/internal/lifecycle"
)

type RouterConfig struct {
	Lifecycle *lifecycle.Service
	Admins    *admins.Service
	Issuer    *auth.Issuer
	Logger    *slog.Logger

	// WriteLimiter guards the public POST endpoints. Nil disables limiting.
	WriteLimiter    httpx.Limiter
	LimiterFailOpen bool

	CORS           httpx.CORSPolicy
	BodyLimit      int64
	RequestTimeout time.Duration
	ReadyTimeout   time.Duration
	ReadyChecks    []runtime.ReadyCheck
}

func NewRouter(cfg RouterConfig) http.Handler {
	if cfg.BodyLimit <= 0 {
		cfg.BodyLimit = 1 << 20
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 2 * time.Second
	}

	appts := NewAppointmentHandler(cfg.Lifecycle, cfg.Logger)
	authH := NewAuthHandler(cfg.Admins, cfg.Logger)

	limited := func(next http.Handler) http.Handler { return next }
	if cfg.WriteLimiter != nil {
		limited = httpx.RateLimit(cfg.WriteLimiter, cfg.Logger, cfg.LimiterFailOpen)
	}
	requireAdmin := chi.Chain(auth.RequireAuth(cfg.Issuer), auth.RequireRole(auth.RoleAdmin))

	r := chi.NewRouter()
	r.Use(
		httpx.WithRequestID,
		httpx.WithAccessLog(cfg.Logger),
		httpx.WithRecover(cfg.Logger),
		httpx.WithCORS(cfg.CORS),
		httpx.WithBodyLimit(cfg.BodyLimit),
	)
	if cfg.RequestTimeout > 0 {
		r.Use(httpx.WithTimeout(cfg.RequestTimeout))
	}

	r.Get("/healthz", runtime.HealthHandler())
	r.Get("/readyz", runtime.ReadyHandler(cfg.ReadyTimeout, cfg.ReadyChecks...))

	r.Route("/api/v1", func(r chi.Router) {
		r.With(limited).Post("/appointments", appts.Submit)
		r.With(limited).Post("/contact", appts.Contact)
		r.Get("/slots", appts.AvailableSlots)
		r.Get("/slots/status", appts.SlotStatus)
		r.Get("/services", appts.Services)

		r.Route("/auth", func(r chi.Router) {
			r.With(limited).Post("/register", authH.Register)
			r.With(limited).Post("/login", authH.Login)
			r.With(requireAdmin...).Get("/profile", authH.Profile)
		})

		r.Route("/admin/appointments", func(r chi.Router) {
			r.Use(requireAdmin...)
			r.Get("/", appts.List)
			r.Post("/", appts.Create)
			r.Get("/{id}", appts.Get)
			r.Put("/{id}", appts.Edit)
			r.Patch("/{id}/status", appts.SetStatus)
			r.Delete("/{id}", appts.Delete)
		})
	})
	return r
}
