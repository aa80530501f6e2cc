// Command sandbox-server runs generated code for a remote askdata server.
// It hosts the same interpreter and tool catalog as the server, built from
// the same configuration file, and answers POST /execute.
//
// Configuration:
//
//	ASKDATA_CONFIG          - Config file shared with the server
//	SANDBOX_PORT            - Listen port (default: 8080)
//	SANDBOX_MAX_CONCURRENT  - Max concurrent executions (default: 3)
//	SANDBOX_MAX_TIMEOUT     - Cap on requested execution time (default: 2m)
//
// Charts are written to static.dir, which must be shared with the server so
// the links in answers resolve.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/rhuss/askdata/pkg/app"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/sandbox"
	"github.com/rhuss/askdata/pkg/static"
)

func main() {
	if err := run(); err != nil {
		slog.Error("sandbox server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	debug.Init(debug.Options{Level: "INFO"})

	port := envOr("SANDBOX_PORT", "8080")
	maxConcurrent, err := strconv.Atoi(envOr("SANDBOX_MAX_CONCURRENT", "3"))
	if err != nil {
		return fmt.Errorf("SANDBOX_MAX_CONCURRENT: %w", err)
	}
	maxTimeout, err := time.ParseDuration(envOr("SANDBOX_MAX_TIMEOUT", "2m"))
	if err != nil {
		return fmt.Errorf("SANDBOX_MAX_TIMEOUT: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	model, err := app.NewProvider(ctx, cfg.Provider)
	if err != nil {
		return err
	}
	defer model.Close()

	db, err := app.OpenDatabase(ctx, cfg.Database)
	if err != nil {
		return err
	}
	defer db.Close()

	files, err := static.New(cfg.Static.Dir, cfg.Server.PublicURL+"/tmp_imgs")
	if err != nil {
		return err
	}

	catalog, err := app.NewCatalog(ctx, cfg, model, db, files)
	if err != nil {
		return err
	}
	defer catalog.Close()

	handler := sandbox.NewHandler(app.NewExecutor(cfg.Executor, catalog), maxConcurrent, maxTimeout)
	httpSrv := &http.Server{
		Addr:              ":" + port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      maxTimeout + 30*time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		slog.Info("sandbox server starting", "port", port, "max_concurrent", maxConcurrent, "tools", catalog.Names())
		errCh <- httpSrv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err
	case <-ctx.Done():
	}

	slog.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), maxTimeout)
	defer cancel()
	return httpSrv.Shutdown(shutdownCtx)
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
