// Command server runs the delay guarantee HTTP API.
//
//	@title			Delay Guarantee API
//	@version		1.0
//	@description	Delay risk assessment and compensation for bookings.
//	@BasePath		/api/v1
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"

	_ "time/tzdata"

	"github.com/tbourn/go-delay-guarantee/internal/app"
	"github.com/tbourn/go-delay-guarantee/internal/config"
	httpapi "github.com/tbourn/go-delay-guarantee/internal/http"
	"github.com/tbourn/go-delay-guarantee/internal/observability"
	"github.com/tbourn/go-delay-guarantee/internal/sysutil"
)

// Version is set at build time with -ldflags "-X main.Version=...".
var Version = "dev"

const (
	purgeEvery      = 10 * time.Minute
	shutdownTimeout = 15 * time.Second
)

func main() {
	// Missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		boot := sysutil.SetupLogger(os.Stderr, "info", false)
		boot.Fatal().Err(err).Msg("invalid configuration")
	}
	lg := sysutil.SetupLogger(os.Stdout, cfg.LogLevel, cfg.LogPretty)
	version := sysutil.FirstNonEmpty(os.Getenv("APP_VERSION"), Version)

	if err := run(cfg, version, lg); err != nil {
		lg.Fatal().Err(err).Msg("server exited")
	}
}

func run(cfg config.Config, version string, lg zerolog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = lg.WithContext(ctx)

	shutdownOTel, err := observability.SetupOTel(ctx, cfg.OTEL, version)
	if err != nil {
		return err
	}
	defer func() {
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := shutdownOTel(sctx); err != nil {
			lg.Warn().Err(err).Msg("otel shutdown")
		}
	}()

	engine, err := app.Build(ctx, cfg, lg)
	if err != nil {
		return err
	}
	defer func() {
		if err := engine.Close(); err != nil {
			lg.Warn().Err(err).Msg("engine close")
		}
	}()

	go app.PurgeIdempotencyLoop(ctx, engine.DB, purgeEvery, time.Now, lg)

	gin.SetMode(cfg.GinMode)
	r := gin.New()
	httpapi.RegisterRoutes(r, engine.DB, httpapi.App{
		Delay:    engine.Delay,
		Workflow: engine.Workflow,
		Flags:    engine.Gate,
	}, cfg)

	srv := newHTTPServer(cfg, r)

	errCh := make(chan error, 1)
	go func() {
		lg.Info().
			Str("addr", srv.Addr).
			Str("version", version).
			Str("db", cfg.DB.Driver).
			Str("flag_store", cfg.Flags.Store).
			Msg("delay guarantee API listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	lg.Info().Msg("shutting down")
	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(sctx)
}

func newHTTPServer(cfg config.Config, h http.Handler) *http.Server {
	return &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           h,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
		MaxHeaderBytes:    cfg.MaxHeaderBytes,
	}
}
