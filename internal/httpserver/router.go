// Package httpserver is the thin request-routing layer spec §1 scopes out
// of the engine proper: chi routes that decode requests, call into the
// orchestrator/authsvc/adminsvc/content collaborators, and serialize their
// results to the bit-exact wire schemas spec §6 names. Grounded on
// services/user/internal/handler/http/router.go's route-grouping and
// middleware-stack shape.
package httpserver

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/avishek-m/pricecompare/internal/adminsvc"
	"github.com/avishek-m/pricecompare/internal/analytics"
	"github.com/avishek-m/pricecompare/internal/authsvc"
	"github.com/avishek-m/pricecompare/internal/content"
	"github.com/avishek-m/pricecompare/internal/orchestrator"
	"github.com/avishek-m/pricecompare/pkg/auth"
	"github.com/avishek-m/pricecompare/pkg/health"
	"github.com/avishek-m/pricecompare/pkg/middleware"
)

// Dependencies bundles every collaborator the routing layer calls into.
// Nothing here is owned by httpserver — it is wired once in internal/app.
type Dependencies struct {
	Orchestrator *orchestrator.Orchestrator
	Auth         *authsvc.Service
	Admin        *adminsvc.Service
	Content      content.Store
	Analytics    *analytics.Aggregator
	JWT          *auth.JWTManager
	APIKeyPool   []string
	Health       *health.Handler
	Logger       *slog.Logger
	CORS         middleware.CORSConfig
	PprofCIDRs   []string
	RateRPS      int
	RateBurst    int
}

// NewRouter builds the chi router for every route spec §6 names.
func NewRouter(deps Dependencies) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.Recovery(deps.Logger))
	r.Use(chimw.Compress(5))
	r.Use(chimw.Timeout(60 * time.Second))
	r.Use(middleware.RequestLogging(deps.Logger))
	r.Use(middleware.PrometheusMetrics("pricecompare"))
	r.Use(middleware.Tracing("pricecompare"))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.CORS(deps.CORS))
	if deps.RateRPS > 0 {
		r.Use(middleware.RateLimit(deps.RateRPS, deps.RateBurst, deps.Logger))
	}

	r.Get("/health/live", deps.Health.LivenessHandler())
	r.Get("/health/ready", deps.Health.ReadinessHandler())
	r.Get("/metrics", func(w http.ResponseWriter, r *http.Request) {
		promhttp.Handler().ServeHTTP(w, r)
	})
	middleware.RegisterPprof(r, deps.PprofCIDRs, deps.Logger)

	search := NewSearchHandler(deps.Orchestrator, deps.Logger)
	r.Post("/get-search-results", search.Compare)

	authHandler := NewAuthHandler(deps.Auth, deps.Logger)
	r.Post("/autocomplete", authHandler.Autocomplete)
	r.Post("/login", authHandler.Login)
	r.Post("/signup", authHandler.Signup)
	r.Post("/send-otp", authHandler.SendOTP)
	r.Post("/confirm-otp", authHandler.ConfirmOTP)

	apiKey := NewAPIKeyHandler(deps.APIKeyPool)
	r.Post("/get-api-key", apiKey.GetAPIKey)

	adminHandler := NewAdminHandler(deps.Admin, deps.Content, deps.Analytics, deps.Logger)
	r.Post("/admin/login", adminHandler.Login)

	tokenValidator := func(token string) (*middleware.Claims, error) {
		claims, err := deps.JWT.ValidateAccessToken(token)
		if err != nil {
			return nil, err
		}
		return &middleware.Claims{UserID: claims.UserID, Role: claims.Role}, nil
	}

	r.Route("/api", func(r chi.Router) {
		r.Get("/customer_analytics", adminHandler.CustomerAnalytics)

		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(tokenValidator))
			r.Use(middleware.RequireRole(adminRole))

			// Listing routes are read-mostly catalog content (banners,
			// offers, slideshow) and tolerate a short client-side cache,
			// same as the product catalog's own GET routes.
			r.Group(func(r chi.Router) {
				r.Use(middleware.CacheControl(60))
				for _, table := range adminContentTables {
					table := table
					r.Get("/"+table, adminHandler.List(table))
				}
			})

			for _, table := range adminContentTables {
				table := table
				r.Post("/"+table, adminHandler.Create(table))
				r.Put("/"+table+"/{id}", adminHandler.Update(table))
				r.Delete("/"+table+"/{id}", adminHandler.Delete(table))
			}
			r.Put("/bg_image/{id}", adminHandler.UpdateBgImage)
		})
	})

	return r
}
