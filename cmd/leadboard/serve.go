package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/surstitch/leadboard/internal/alerts"
	"github.com/surstitch/leadboard/internal/api"
	"github.com/surstitch/leadboard/internal/compute"
	"github.com/surstitch/leadboard/internal/config"
	leadlog "github.com/surstitch/leadboard/internal/log"
	"github.com/surstitch/leadboard/internal/source"
	"github.com/surstitch/leadboard/internal/store"
	"github.com/surstitch/leadboard/internal/telemetry"
	"github.com/surstitch/leadboard/internal/view"
	"github.com/surstitch/leadboard/internal/ws"
)

const shutdownTimeout = 10 * time.Second

// Serve-specific flag values.
var servePort int

// serveCmd runs the dashboard backend.
var serveCmd = &cobra.Command{
	Use:   "serve [path-or-url]",
	Short: "Serve the REST API, WebSocket stream and /metrics",
	Long: `Load the dataset and serve the dashboard backend: the /api/v1 REST API,
the /ws/stream WebSocket and Prometheus /metrics. Local datasets with
dataset.watch set are reloaded when the file changes; dataset.poll_interval
re-reads the source periodically. Alert rules are reloaded with the config
file.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runServe,
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "HTTP port (overrides server.http_port)")
}

func runServe(cmd *cobra.Command, args []string) error {
	leadlog.SetupServer(verbose, quiet)

	var location string
	if len(args) > 0 {
		location = args[0]
	}
	cfg, err := loadConfig(location)
	if err != nil {
		return err
	}
	if servePort != 0 {
		cfg.Server.HTTPPort = servePort
	}

	slog.Info("leadboard starting",
		"version", Version,
		"config", configPath,
		"dataset", cfg.Dataset.Name,
		"location", cfg.Dataset.Location(),
		"http_port", cfg.Server.HTTPPort,
		"auth_mode", cfg.Server.Auth.Mode,
	)

	ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return serve(ctx, cfg)
}

// serve wires every component for cfg and blocks until ctx is cancelled or
// a component fails.
func serve(ctx context.Context, cfg *config.Config) error {
	loader, err := source.New(cfg.Dataset, cfg.Schema)
	if err != nil {
		return err
	}
	st := store.New(loader, compute.NewEngine(cfg.Schema))
	alertEngine := alerts.New(cfg.Alerts)
	hub := ws.New(st, cfg.Server.BroadcastInterval)

	st.OnReload(func(s store.State) {
		alertEngine.Evaluate(alerts.Input{
			Dataset:   cfg.Dataset.Name,
			Snapshot:  s.Snapshot,
			Health:    s.Health,
			LoadError: s.LoadError,
		})
		hub.Notify()
	})
	// A failed first load is logged by the store and reported through
	// /api/v1/health; the server still starts.
	_ = st.Reload(ctx)

	metrics := telemetry.Handler(func() telemetry.Sample {
		s := st.Current()
		return telemetry.Sample{
			Dataset:      cfg.Dataset.Name,
			Snapshot:     s.Snapshot,
			Health:       s.Health,
			Rows:         s.Rows(),
			Columns:      len(s.Table.Columns()),
			Reloads:      s.Reloads,
			Failures:     s.Failures,
			LoadedAt:     s.LoadedAt,
			LoadErr:      s.LoadError != "",
			WSClients:    hub.Count(),
			AlertsFiring: alertEngine.Firing(),
		}
	})

	handler := api.New(api.Options{
		Store:  st,
		View:   view.New(cfg.View),
		Alerts: alertEngine,
		Source: loader.Describe(),
		CheckCert: func(ctx context.Context) *source.CertStatus {
			return source.CheckCert(ctx, cfg.Dataset)
		},
		Stream:         hub,
		Metrics:        metrics,
		AuthMode:       cfg.Server.Auth.Mode,
		AuthHeader:     cfg.Server.Auth.EffectiveHeader(),
		AuthKey:        cfg.Server.Auth.Key(),
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Version:        Version,
	})

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.HTTPPort),
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx)
		return nil
	})

	if cfg.Dataset.Watch && !cfg.Dataset.Remote() {
		g.Go(func() error {
			if err := st.Watch(gctx, cfg.Dataset.Path); err != nil {
				slog.Error("dataset watcher stopped", "path", cfg.Dataset.Path, "err", err)
			}
			return nil
		})
	}
	if cfg.Dataset.PollInterval > 0 {
		g.Go(func() error {
			st.Run(gctx, cfg.Dataset.PollInterval)
			return nil
		})
	}

	if configPath != "" {
		g.Go(func() error {
			err := config.Watch(gctx, configPath, func(updated *config.Config) {
				alertEngine.SetRules(updated.Alerts)
				slog.Info("config hot-reloaded", "alert_rules", alertEngine.Rules())
			})
			if err != nil {
				slog.Error("config watcher stopped", "err", err)
			}
			return nil
		})
	}

	g.Go(func() error {
		slog.Info("HTTP server listening", "port", cfg.Server.HTTPPort)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		slog.Info("leadboard shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	err = g.Wait()
	alertEngine.Wait()
	return err
}
