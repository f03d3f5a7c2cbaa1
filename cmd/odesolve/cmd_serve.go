package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	gfshutdown "github.com/gelmium/graceful-shutdown"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/njchilds90/odesolve/internal/config"
	"github.com/njchilds90/odesolve/internal/observability"
	"github.com/njchilds90/odesolve/internal/server"
)

func (c *cli) serveCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP service",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if addr != "" {
				c.cfg.Server.Address = addr
			}
			return c.serve(cmd.Context())
		},
	}
	cmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides server.address")
	return cmd
}

// telemetryConfig maps the telemetry section onto observability.Config.
func telemetryConfig(tel config.TelemetryConfig) observability.Config {
	obs := observability.DefaultConfig()
	obs.ServiceName = tel.ServiceName
	obs.ServiceVersion = version
	obs.OTLPEndpoint = tel.OTLPEndpoint
	obs.OTLPInsecure = tel.OTLPInsecure
	if tel.TracingEnabled {
		obs.TraceExporter = tel.TraceExporter
	}
	if !tel.MetricsEnabled {
		obs.MetricExporter = observability.ExporterNone
	}
	return obs
}

func (c *cli) serve(ctx context.Context) error {
	logger := c.logger(false)
	tel := c.cfg.Telemetry

	shutdownTelemetry, err := observability.Init(ctx, telemetryConfig(tel))
	if err != nil {
		return fmt.Errorf("init telemetry: %w", err)
	}

	gin.SetMode(gin.ReleaseMode)
	eng, resolver := c.newResolver(logger)
	opts := []server.Option{
		server.WithLogger(logger),
		server.WithVersion(version),
		server.WithMetrics(tel.MetricsEnabled),
	}
	if tel.TracingEnabled {
		opts = append(opts, server.WithTracing(tel.ServiceName))
	}
	srv := server.New(c.cfg.Server, resolver, eng, opts...).HTTPServer()

	listenErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "address", srv.Addr, "version", version)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			listenErr <- err
		}
	}()

	wait := gfshutdown.GracefulShutdown(ctx, c.cfg.Server.ShutdownTimeout,
		map[string]gfshutdown.Operation{
			"http-server": func(ctx context.Context) error {
				logger.Info("shutting down http server")
				return srv.Shutdown(ctx)
			},
			"telemetry": shutdownTelemetry,
		},
	)

	select {
	case err := <-listenErr:
		_ = shutdownTelemetry(context.Background())
		return fmt.Errorf("listen on %s: %w", srv.Addr, err)
	case code := <-wait:
		logger.Info("stopped", "exit_code", code)
		if code != 0 {
			return fmt.Errorf("shutdown finished with exit code %d", code)
		}
		return nil
	}
}
