package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/pkmn-dev/pkmn/internal/config"
	"github.com/pkmn-dev/pkmn/internal/fakeapi"
	"github.com/pkmn-dev/pkmn/internal/logging"
)

func main() {
	parsed, err := config.ParseFakeAPIFlags(os.Args[1:], os.Stderr)
	if errors.Is(err, flag.ErrHelp) {
		os.Exit(2)
	}
	if err != nil {
		os.Exit(exitWithError(err))
	}
	cfg := parsed.Config

	log := logging.New(logging.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
	}, os.Stderr)

	store, err := fakeapi.LoadFixtures()
	if err != nil {
		os.Exit(exitWithError(err))
	}

	srv, errCh := startServer(log, cfg.FakeAPI, store)

	if err := waitForShutdown(log, errCh); err != nil {
		os.Exit(exitWithError(err))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 8*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Error("shutdown", "err", err)
	}
	log.Info("shutdown complete")
}

// startServer serves in the background. A listen or serve failure is sent on
// the returned channel.
func startServer(log *slog.Logger, cfg config.FakeAPIConfig, store *fakeapi.Store) (*http.Server, <-chan error) {
	gin.SetMode(gin.ReleaseMode)

	api := fakeapi.New(store, fakeapi.Config{
		RateLimitRPS:   cfg.RateLimitRPS,
		RateLimitBurst: cfg.RateLimitBurst,
		AllowedOrigins: cfg.AllowedOrigins,
	}, log)

	srv := &http.Server{
		Addr:              cfg.ListenAddr,
		Handler:           api.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("fake api listening", "addr", cfg.ListenAddr, "root", fakeapi.APIRoot, "kinds", len(store.Kinds()))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Error("server error", "err", err)
			errCh <- err
		}
	}()

	return srv, errCh
}

// waitForShutdown blocks until a signal arrives or the server fails.
func waitForShutdown(log *slog.Logger, errCh <-chan error) error {
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(ch)

	select {
	case s := <-ch:
		log.Info("shutdown signal received", "signal", s.String())
		return nil
	case err := <-errCh:
		return fmt.Errorf("serve: %w", err)
	}
}

func exitWithError(err error) int {
	_, _ = os.Stderr.WriteString("pkmn-fakeapi error: " + err.Error() + "\n")
	return 1
}
