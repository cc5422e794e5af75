package cmd

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"

	"github.com/voxbridge/customer-portal/internal/api"
	"github.com/voxbridge/customer-portal/internal/metrics"
	"github.com/voxbridge/customer-portal/internal/session"
)

type serveOptions struct {
	Address     string
	GRPCAddress string
}

func serveCmd() *cobra.Command {
	var opts serveOptions
	cmd := &cobra.Command{
		Use:          "serve",
		SilenceUsage: true,
		Short:        "Run the JSON gateway",
		Long: `Serve the portal views as a JSON API. Each request must carry its own
bearer token, which is forwarded to the customer API. A gRPC health service
runs on the configured gRPC address.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), opts)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&opts.Address, "address", "", "HTTP listen address (default from config)")
	fs.StringVar(&opts.GRPCAddress, "grpc-address", "", "gRPC health listen address (default from config)")
	return cmd
}

func runServe(ctx context.Context, opts serveOptions) error {
	a, err := loadApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	cfg := a.cfg.Server
	if opts.Address != "" {
		cfg.Address = opts.Address
	}
	if opts.GRPCAddress != "" {
		cfg.GRPCAddress = opts.GRPCAddress
	}
	logger := a.logger
	logger.Info("starting portal gateway", slog.String("address", cfg.Address), slog.String("grpc_address", cfg.GRPCAddress))

	if err := metrics.Register(prometheus.DefaultRegisterer); err != nil {
		return err
	}

	// Callers authenticate per request; the local session is never used here.
	backend := a.newClient(session.ContextSource{})
	gateway := api.NewGateway(backend, api.GatewayOptions{
		CallsResource:          a.cfg.API.Paths.CallsHistory,
		LanguagesUsageResource: a.cfg.API.Paths.LanguagesUsage,
		PageSize:               a.cfg.Listing.DefaultPageSize,
		Filter:                 a.filter,
		Display:                a.display,
		Metrics:                promhttp.Handler(),
		Logger:                 logger,
	})

	healthServer, err := api.NewHealthServer(cfg)
	if err != nil {
		return err
	}

	ctx, stop := context.WithCancel(ctx)
	defer stop()

	httpServer := &http.Server{
		Addr:              cfg.Address,
		Handler:           gateway.Router(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       30 * time.Second,
		WriteTimeout:      a.cfg.API.Timeout + 15*time.Second,
	}
	go func() {
		logger.Info("gateway listening", slog.String("address", cfg.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("gateway exited", slog.Any("error", err))
			stop()
		}
	}()

	go func() {
		if serveErr := healthServer.Start(); serveErr != nil {
			logger.Error("gRPC health server exited", slog.Any("error", serveErr))
			stop()
		}
	}()
	healthServer.SetServing(true)

	<-ctx.Done()
	logger.Info("shutdown signal received")
	healthServer.SetServing(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.GracefulTimeout)
	defer cancel()
	if err := httpServer.Shutdown(shutdownCtx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Warn("gateway shutdown", slog.Any("error", err))
	}
	healthServer.Shutdown(shutdownCtx)

	logger.Info("portal gateway stopped")
	return nil
}
