package httpapi

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/aryanguptajsm/fluxora/internal/domain"
	"github.com/aryanguptajsm/fluxora/internal/http/handlers"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/middleware"
)

type Options struct {
	Logger          *infra.Logger
	AllowedOrigins  []string
	RateLimitPerMin int

	// JWTSecret protects the stats endpoint when set.
	JWTSecret     string
	CountryLookup middleware.CountryLookup

	// TrustProxyHeaders enables chi's RealIP rewrite of RemoteAddr.
	TrustProxyHeaders bool
}

func NewRouter(app *handlers.App, opts Options) http.Handler {
	logger := opts.Logger
	if logger == nil {
		logger = infra.DiscardLogger()
	}

	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	if opts.TrustProxyHeaders {
		r.Use(chimw.RealIP)
	}
	r.Use(
		middleware.Country(opts.CountryLookup),
		middleware.Logger(*logger),
		chimw.Recoverer,
		middleware.CORS(opts.AllowedOrigins),
	)

	r.Get("/v1/healthz", app.Health)
	r.Get("/metrics", app.Metrics)
	r.Get("/v1/openapi.json", app.OpenAPIJSON)
	r.Get("/v1/docs", app.OpenAPIDocs)

	generate := func(r chi.Router) {
		r.Use(middleware.RateLimit(opts.RateLimitPerMin, time.Minute, domain.MsgRateLimited))
		r.Post("/", app.GenerateImage)
	}
	r.Route("/generate-image", generate)
	r.Route("/functions/v1/generate-image", generate)

	r.Group(func(r chi.Router) {
		if opts.JWTSecret != "" {
			r.Use(middleware.AuthJWT(opts.JWTSecret))
		}
		r.Get("/v1/stats", app.StatsSummary)
	})

	return r
}
