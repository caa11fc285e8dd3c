package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/dreamware/clusterscope/internal/api"
	"github.com/dreamware/clusterscope/internal/cluster"
	"github.com/dreamware/clusterscope/internal/config"
	"github.com/dreamware/clusterscope/internal/coordinator"
	"github.com/dreamware/clusterscope/internal/logging"
	"github.com/dreamware/clusterscope/internal/metrics"
	"github.com/dreamware/clusterscope/internal/profile"
)

// EnvDefaultHost seeds the default connection profile on an empty database.
const EnvDefaultHost = "CLUSTERSCOPE_DEFAULT_HOST"

func newServeCmd() *cobra.Command {
	var (
		configPath  string
		defaultHost string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger, err := logging.New(cfg.Logging())
			if err != nil {
				return err
			}
			defer logger.Sync()
			return serve(cmd.Context(), cfg, defaultHost, logger)
		},
	}
	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to the YAML config file")
	cmd.Flags().StringVar(&defaultHost, "default-host", getenv(EnvDefaultHost, "127.0.0.1"),
		"host of the profile created when no profile exists")
	return cmd
}

// app is the wired server: profile store, connection registry and routed
// handler.
type app struct {
	store    *profile.SQLiteStore
	registry *coordinator.ClientRegistry
	handler  http.Handler
}

func newApp(ctx context.Context, cfg *config.Config, defaultHost string, logger *zap.Logger) (*app, error) {
	store, err := profile.Open(ctx, cfg.Database.Path)
	if err != nil {
		return nil, err
	}
	if created, err := store.EnsureDefault(ctx, defaultHost, profile.DefaultPort); err != nil {
		store.Close()
		return nil, err
	} else if created {
		logger.Info("created default connection profile", zap.String("host", defaultHost))
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	observer := metrics.NewBroadcast(reg)

	registry := coordinator.NewClientRegistry(profileResolver(store), coordinator.RegistryConfig{
		NodeTimeout:    cfg.Broadcast.NodeTimeout,
		HealthInterval: cfg.Health.Interval,
		MaxFailures:    cfg.Health.MaxFailures,
		Observer:       observer,
		OnNodeHealth:   observer.SetNodeHealth,
	}, logger)

	opts := api.Options{RoundTimeout: cfg.Broadcast.RoundTimeout}
	if cfg.MetricsEnabled() {
		opts.Metrics = promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
		opts.MetricsPath = cfg.Metrics.Path
	}
	srv := api.NewServer(store, registry, logger, opts)

	return &app{store: store, registry: registry, handler: srv.Handler()}, nil
}

func (a *app) Close() error {
	a.registry.Close()
	return a.store.Close()
}

// profileResolver turns a stored profile into info gateway clients. A host
// carrying a URL scheme is used as the gateway base URL.
func profileResolver(store *profile.SQLiteStore) coordinator.Resolver {
	return func(ctx context.Context, connID string) ([]coordinator.NodeClient, error) {
		p, err := store.Get(ctx, connID)
		if err != nil {
			return nil, err
		}
		nodes := make([]coordinator.NodeClient, 0, len(p.Hosts))
		for _, h := range p.Hosts {
			nodes = append(nodes, cluster.NewHTTPNode(nodeInfo(h, p.Port), nil))
		}
		return nodes, nil
	}
}

func nodeInfo(h string, defaultPort int) cluster.NodeInfo {
	if strings.Contains(h, "://") {
		return cluster.NewNodeInfo(h, 0)
	}
	host, port := profile.ParseHostPort(h, defaultPort)
	return cluster.NewNodeInfo(host, port)
}

func serve(ctx context.Context, cfg *config.Config, defaultHost string, logger *zap.Logger) error {
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx, cfg, defaultHost, logger)
	if err != nil {
		return err
	}
	defer a.Close()

	httpSrv := &http.Server{
		Addr:              cfg.Server.Addr,
		Handler:           a.handler,
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("clusterscope listening", zap.String("addr", cfg.Server.Addr))
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- fmt.Errorf("listen: %w", err)
		}
		close(errCh)
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(stop)

	select {
	case err := <-errCh:
		return err
	case <-stop:
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("shutdown", zap.Error(err))
	}
	logger.Info("clusterscope stopped")
	return nil
}
