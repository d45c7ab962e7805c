package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/aryanguptajsm/fluxora/internal/adapter/repo"
	"github.com/aryanguptajsm/fluxora/internal/http/handlers"
	httpapi "github.com/aryanguptajsm/fluxora/internal/http/httpapi"
	"github.com/aryanguptajsm/fluxora/internal/infra"
	"github.com/aryanguptajsm/fluxora/internal/infra/credentials"
	"github.com/aryanguptajsm/fluxora/internal/infra/geoip"
	"github.com/aryanguptajsm/fluxora/internal/providers"
	"github.com/aryanguptajsm/fluxora/internal/providers/image"
)

func main() {
	_ = godotenv.Load()

	cfg, err := infra.LoadConfig()
	if err != nil {
		panic(err)
	}
	logger := infra.NewLogger(cfg.AppEnv)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// The database is optional: without it keys come from the environment
	// only and nothing is journaled.
	var (
		journal handlers.Journal
		store   *credentials.Store
	)
	if cfg.JournalEnabled() {
		pool, err := infra.NewDBPool(ctx, cfg.DatabaseURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect database")
		}
		defer pool.Close()

		runner := infra.NewSQLRunner(pool, logger)
		jobs := repo.NewJobRepository(runner)
		if err := jobs.EnsureSchema(ctx); err != nil {
			logger.Fatal().Err(err).Msg("failed to prepare generation tables")
		}
		journal = jobs
		store = credentials.NewStore(runner)
	}

	provider, err := providers.CredentialProvider(cfg.ImageBackend)
	if err != nil {
		logger.Fatal().Err(err).Msg("invalid image backend")
	}
	keys := credentials.NewResolver(provider, store)
	if _, err := keys.APIKey(ctx); err != nil {
		// Not fatal: each request reports the missing key until one is set.
		logger.Warn().Err(err).Str("provider", provider).Msg("no upstream api key available")
	}

	backend, err := providers.NewBackend(cfg, &logger, image.SystemClock{})
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to build image backend")
	}

	geo, err := geoip.Open(cfg.GeoIPDBPath)
	if err != nil {
		logger.Warn().Err(err).Msg("geoip disabled")
	}
	defer geo.Close()

	app := handlers.NewApp(backend, keys, journal, &logger)
	app.GenerateTimeout = cfg.GenerationDeadline()
	router := httpapi.NewRouter(app, httpapi.Options{
		Logger:            &logger,
		AllowedOrigins:    cfg.CORSAllowedOrigins,
		RateLimitPerMin:   cfg.RateLimitPerMin,
		JWTSecret:         cfg.JWTSecret,
		CountryLookup:     geo.Lookup(),
		TrustProxyHeaders: cfg.TrustProxyHeaders,
	})

	server := infra.NewHTTPServer(cfg, router)

	go func() {
		logger.Info().
			Str("backend", backend.Name()).
			Str("strategy", string(backend.Strategy())).
			Bool("journal", journal != nil).
			Msgf("proxy listening on %s", server.Addr())
		if err := server.Start(); err != nil {
			logger.Error().Err(err).Msg("http server failed")
			stop()
		}
	}()

	<-ctx.Done()

	// In-flight generations may still be polling upstream.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GenerationDeadline()+5*time.Second)
	defer cancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("failed to shutdown server")
		os.Exit(1)
	}
	logger.Info().Msg("server stopped")
}
