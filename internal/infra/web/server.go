package web

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"classifieds-marketplace/internal/domain/model"
	"classifieds-marketplace/internal/usecase"
)

// PlanCatalog is the read side of the plan use case.
type PlanCatalog interface {
	List() []model.PremiumPlan
	Currency() string
}

// Deps are the use cases served over HTTP. Links may be nil when Telegram is
// off; without Engagement views are not counted and the contact and report
// routes are not mounted.
type Deps struct {
	Listings   usecase.ListingUseCase
	Query      usecase.QueryUseCase
	Accounts   usecase.AccountUseCase
	Payments   usecase.PaymentUseCase
	Reconcile  usecase.ReconcileUseCase
	Stats      usecase.StatsUseCase
	Engagement usecase.EngagementUseCase
	Links      usecase.TelegramLinkUseCase
	Plans      PlanCatalog
	Auth       *AuthManager
	Limiter    Limiter
	// RateKey builds the limiter key; defaults to "rate_limit:<account>:<route>".
	RateKey func(accountID, route string) string
}

type Options struct {
	Port           int
	RequestTimeout time.Duration
	AllowedOrigins []string
	RateLimit      int
	CallbackSecret string
}

type Server struct {
	listings   usecase.ListingUseCase
	query      usecase.QueryUseCase
	accounts   usecase.AccountUseCase
	payments   usecase.PaymentUseCase
	reconcile  usecase.ReconcileUseCase
	stats      usecase.StatsUseCase
	engagement usecase.EngagementUseCase
	links      usecase.TelegramLinkUseCase
	plans      PlanCatalog
	auth       *AuthManager
	limiter    Limiter
	rateKey    func(accountID, route string) string

	opts   Options
	log    *zerolog.Logger
	server *http.Server
}

func NewServer(d Deps, opts Options, logger *zerolog.Logger) *Server {
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = 30 * time.Second
	}
	if d.RateKey == nil {
		d.RateKey = func(accountID, route string) string { return fmt.Sprintf("rate_limit:%s:%s", accountID, route) }
	}
	l := logger.With().Str("component", "HTTPServer").Logger()
	return &Server{
		listings:   d.Listings,
		query:      d.Query,
		accounts:   d.Accounts,
		payments:   d.Payments,
		reconcile:  d.Reconcile,
		stats:      d.Stats,
		engagement: d.Engagement,
		links:      d.Links,
		plans:      d.Plans,
		auth:       d.Auth,
		limiter:    d.Limiter,
		rateKey:    d.RateKey,
		opts:       opts,
		log:        &l,
	}
}

// Routes builds the full router.
func (s *Server) Routes() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RealIP, TraceID(), RequestLog(s.log), Recover(s.log))
	if len(s.opts.AllowedOrigins) > 0 {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins:   s.opts.AllowedOrigins,
			AllowedMethods:   []string{http.MethodGet, http.MethodPost, http.MethodPatch, http.MethodOptions},
			AllowedHeaders:   []string{"Authorization", "Content-Type", "X-Request-ID"},
			ExposedHeaders:   []string{"X-Request-ID", "Retry-After"},
			AllowCredentials: false,
			MaxAge:           300,
		}))
	}

	r.Get("/health", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("OK"))
	})
	r.Handle("/metrics", promhttp.Handler())
	r.With(Timeout(s.opts.RequestTimeout)).Post("/payment-callback", s.paymentCallback)

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(Timeout(s.opts.RequestTimeout))

		// public, identity optional
		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.auth, false))
			r.Get("/listings", s.searchListings)
			r.Get("/listings/{id}", s.getListing)
			r.Get("/plans", s.listPlans)
		})

		r.Group(func(r chi.Router) {
			r.Use(Authenticate(s.auth, true))
			r.Use(RateLimit(s.limiter, s.opts.RateLimit, s.rateKey, s.log))

			r.Post("/listings", s.createListing)
			r.Post("/listings/{id}/publish", s.publishListing)
			r.Post("/listings/{id}/sold", s.markSold)
			r.Post("/listings/{id}/removed", s.markRemoved)
			if s.engagement != nil {
				r.Post("/listings/{id}/contact", s.contactListing)
				r.Post("/listings/{id}/report", s.reportListing)
			}

			r.Get("/me", s.me)
			r.Patch("/me", s.updateMe)
			r.Get("/me/listings", s.myListings)
			r.Post("/me/telegram-link", s.telegramLink)

			r.Post("/payments", s.initiatePayment)
			r.Get("/payments/{id}", s.getPayment)

			r.With(RequireAdmin(s.auth, "reconcile")).Post("/admin/reconcile", s.adminReconcile)
			r.With(RequireAdmin(s.auth, "stats")).Get("/admin/stats", s.adminStats)
			if s.engagement != nil {
				r.With(RequireAdmin(s.auth, "reports")).Get("/admin/reports", s.adminReports)
				r.With(RequireAdmin(s.auth, "reports")).Post("/admin/reports/{id}/resolve", s.adminResolveReport)
			}
		})
	})
	return r
}

func (s *Server) Start() error {
	s.server = &http.Server{
		Addr:              fmt.Sprintf(":%d", s.opts.Port),
		Handler:           s.Routes(),
		ReadHeaderTimeout: 10 * time.Second,
	}
	s.log.Info().Int("port", s.opts.Port).Msg("HTTP server listening")
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.server == nil {
		return nil
	}
	return s.server.Shutdown(ctx)
}
