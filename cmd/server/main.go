// Command server runs the askdata HTTP API.
//
// Configuration is read from the file named by ASKDATA_CONFIG (or
// ./config.yaml, /etc/askdata/config.yaml) with ASKDATA_* environment
// overrides. A .env file in the working directory is loaded first.
//
//	ASKDATA_LOG_LEVEL   - DEBUG, INFO, WARN or ERROR (default: INFO)
//	ASKDATA_LOG_FORMAT  - text or json (default: text)
//	ASKDATA_DEBUG       - Debug categories, e.g. "agent,executor" or "all"
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/joho/godotenv"

	"github.com/rhuss/askdata/pkg/app"
	"github.com/rhuss/askdata/pkg/config"
	"github.com/rhuss/askdata/pkg/debug"
	"github.com/rhuss/askdata/pkg/static"
	transporthttp "github.com/rhuss/askdata/pkg/transport/http"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		slog.Error("server failed", "error", err)
		os.Exit(1)
	}
}

func run() error {
	_ = godotenv.Load()
	debug.Init(debug.Options{Level: "INFO", Format: os.Getenv("ASKDATA_LOG_FORMAT")})

	cfg, err := config.Load("")
	if err != nil {
		return err
	}

	a, err := app.New(context.Background(), cfg)
	if err != nil {
		return err
	}
	defer a.Close()

	if cfg.Static.TTL > 0 {
		janitor, err := static.NewJanitor(a.Files, cfg.Static.TTL, cfg.Static.Schedule)
		if err != nil {
			return err
		}
		janitor.Start()
		defer janitor.Stop()
	}

	adapter, err := a.Adapter(version)
	if err != nil {
		return err
	}

	slog.Info("askdata starting",
		"version", version,
		"tools", a.Catalog.Names(),
		"executor", cfg.Executor.Mode,
		"audit", cfg.Audit.Type,
		"public_url", cfg.Server.PublicURL,
	)
	srv := transporthttp.NewServer(adapter,
		transporthttp.WithAddr(fmt.Sprintf(":%d", cfg.Server.Port)),
		transporthttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout),
		transporthttp.WithLogger(slog.Default()),
	)
	return srv.ListenAndServe()
}
