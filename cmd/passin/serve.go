package main

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/alfredjeanlab/passin/internal/config"
	"github.com/alfredjeanlab/passin/internal/events"
	"github.com/alfredjeanlab/passin/internal/export"
	"github.com/alfredjeanlab/passin/internal/metrics"
	"github.com/alfredjeanlab/passin/internal/server"
	"github.com/alfredjeanlab/passin/internal/store"
	"github.com/alfredjeanlab/passin/internal/store/memory"
	"github.com/alfredjeanlab/passin/internal/store/postgres"
	"github.com/alfredjeanlab/passin/internal/ticketing"
)

const shutdownGrace = 10 * time.Second

var serveCmd = &cobra.Command{
	Use:               "serve",
	Short:             "Run the HTTP and gRPC servers",
	Long:              "Run the HTTP and gRPC servers until interrupted. Settings come from PASSIN_* environment variables.",
	GroupID:           "system",
	Args:              cobra.NoArgs,
	PersistentPreRunE: noClient,
	RunE:              runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx := cmd.Context()
	logger := slog.New(slog.NewTextHandler(cmd.ErrOrStderr(), nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		return err
	}

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "store", st.Close)

	publisher, err := openPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closeLogged(logger, "event publisher", publisher.Close)

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	svc := ticketing.New(st,
		ticketing.WithLogger(logger),
		ticketing.WithMetrics(metrics.New(reg)),
		ticketing.WithTxTimeout(cfg.TxTimeout),
		ticketing.WithPublicURL(cfg.PublicURL),
	)
	srv := server.New(svc, publisher,
		server.WithMetricsHandler(promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg})),
	)

	grpcLis, err := net.Listen("tcp", cfg.GRPCAddr)
	if err != nil {
		return err
	}
	httpLis, err := net.Listen("tcp", cfg.HTTPAddr)
	if err != nil {
		grpcLis.Close()
		return err
	}
	grpcServer := server.NewGRPCServer(srv)
	httpServer := &http.Server{Handler: srv.NewHTTPHandler(), ReadHeaderTimeout: 10 * time.Second}

	srv.StartStationReaper(cfg.StationIdle)
	defer srv.StopStationReaper()
	if scheduler := startExport(ctx, cfg, st, logger); scheduler != nil {
		defer scheduler.Stop()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return grpcServer.Serve(grpcLis)
	})
	g.Go(func() error {
		if err := httpServer.Serve(httpLis); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down", "cause", context.Cause(gctx))
		grpcServer.GracefulStop()
		sctx, cancel := context.WithTimeout(context.WithoutCancel(gctx), shutdownGrace)
		defer cancel()
		return httpServer.Shutdown(sctx)
	})

	logger.Info("passin server started",
		"store", cfg.Store,
		"grpc_addr", grpcLis.Addr().String(),
		"http_addr", httpLis.Addr().String(),
	)
	err = g.Wait()
	logger.Info("servers stopped", "err", err)
	return err
}

func closeLogged(logger *slog.Logger, what string, fn func() error) {
	if err := fn(); err != nil {
		logger.Error("closing "+what, "err", err)
	}
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.Store, error) {
	if cfg.Store == config.StoreMemory {
		logger.Warn("using in-memory store; data is lost on exit")
		return memory.New(), nil
	}
	return postgres.New(cfg.DatabaseURL)
}

func openPublisher(cfg *config.Config, logger *slog.Logger) (events.Publisher, error) {
	if cfg.NATSURL == "" {
		logger.Info("event publishing disabled", "reason", "PASSIN_NATS_URL not set")
		return &events.NoopPublisher{}, nil
	}
	pub, err := events.NewNATSPublisher(cfg.NATSURL)
	if err != nil {
		return nil, err
	}
	logger.Info("publishing events to NATS", "url", cfg.NATSURL)
	return pub, nil
}

// startExport returns nil when exports are not configured or the S3
// destination cannot be built.
func startExport(ctx context.Context, cfg *config.Config, st store.Store, logger *slog.Logger) *export.Scheduler {
	if cfg.ExportInterval <= 0 || cfg.ExportS3Bucket == "" {
		return nil
	}
	dest, err := export.NewS3Destination(ctx, export.S3Options{
		Bucket:        cfg.ExportS3Bucket,
		Key:           cfg.ExportS3Key,
		Region:        cfg.ExportS3Region,
		Endpoint:      cfg.ExportS3Endpoint,
		ArchivePrefix: cfg.ExportS3ArchivePrefix,
	})
	if err != nil {
		logger.Error("S3 export disabled", "err", err)
		return nil
	}
	s := export.NewScheduler(st, []export.Destination{dest}, cfg.ExportInterval, logger)
	s.Start()
	logger.Info("export scheduler started",
		"interval", cfg.ExportInterval,
		"bucket", cfg.ExportS3Bucket,
		"key", cfg.ExportS3Key,
	)
	return s
}
