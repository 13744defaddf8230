package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/Ometra-Hela/Alize/cmd/alize/dependencies"
	"github.com/Ometra-Hela/Alize/config"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/jobs"
	"github.com/Ometra-Hela/Alize/internal/migration"
	"github.com/Ometra-Hela/Alize/internal/observability"
	"github.com/Ometra-Hela/Alize/internal/orchestrator/kafka/producers"
	"github.com/Ometra-Hela/Alize/internal/transport/soap"
)

const (
	readHeaderTimeout = 10 * time.Second
	shutdownTimeout   = 15 * time.Second
)

func main() {
	migrate := flag.Bool("migrate", false, "apply database migrations and exit")
	flag.Parse()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(ctx)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	logger := dependencies.MustInitLogger(cfg)
	defer func() { _ = logger.Sync() }()

	ctx = diagnostics.ContextWithLogger(ctx, logger)

	if *migrate {
		if err := migration.Up(ctx, migration.Config{
			ConnectionString: cfg.PortabilityDB.GetMigrationConnectionString(),
			VersionTable:     cfg.MigrationsVersionTable,
		}, logger); err != nil {
			logger.Error("migration.up.fail", zap.Error(err))
		}

		return
	}

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("run.fail", zap.Error(err))
	}
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	tracer, shutdownTracer := dependencies.MustInitTracer(ctx, &cfg.OTEL)
	defer func() { _ = shutdownTracer(context.Background()) }()

	ctx = diagnostics.ContextWithTracer(ctx, tracer)

	observability.RegisterMetrics()

	db := dependencies.MustInitDB(ctx, &cfg.PortabilityDB)
	defer db.Close()

	redisClient := dependencies.MustInitRedis(ctx, &cfg.Redis, cfg.PortabilityDB.MaxConnectionRetries)
	if redisClient != nil {
		defer redisClient.Close()
	}

	var writer producers.MessageWriter
	if kw := dependencies.MustInitKafkaWriter(&cfg.Kafka); kw != nil {
		defer kw.Close()

		writer = kw
	}

	blobs := dependencies.MustInitAttachmentStore(ctx, &cfg.S3)

	app := dependencies.MustInitApp(cfg, db, redisClient, writer, blobs, logger)

	apiServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTP.Port),
		Handler:           app.API.Routes(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	soapServer := &http.Server{
		Addr:              net.JoinHostPort("", cfg.HTTP.SOAPPort),
		Handler:           app.SOAP.Handler(),
		ReadHeaderTimeout: readHeaderTimeout,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}

	tlsMaterial := soap.TLSConfig{
		CertPath: cfg.SOAP.TLSCertPath,
		KeyPath:  cfg.SOAP.TLSKeyPath,
		CAPath:   cfg.SOAP.TLSCAPath,
	}

	if tlsMaterial.CertPath != "" {
		tlsConfig, err := soap.ServerTLSConfig(tlsMaterial)
		if err != nil {
			return err
		}

		soapServer.TLSConfig = tlsConfig
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("API server listening", zap.String("addr", apiServer.Addr))

		return serve(apiServer.ListenAndServe())
	})

	g.Go(func() error {
		logger.Info("SOAP server listening",
			zap.String("addr", soapServer.Addr),
			zap.Bool("mtls", soapServer.TLSConfig != nil))

		if soapServer.TLSConfig != nil {
			// Certificates are already loaded into TLSConfig.
			return serve(soapServer.ListenAndServeTLS("", ""))
		}

		return serve(soapServer.ListenAndServe())
	})

	g.Go(func() error {
		return jobs.Every(gctx, cfg.Jobs.SweepInterval, app.TimerSweep, logger.Named("timer-sweep"))
	})

	g.Go(func() error {
		return jobs.Every(gctx, cfg.Jobs.ResendInterval, app.Resend, logger.Named("resend"))
	})

	g.Go(func() error {
		<-gctx.Done()

		logger.Info("shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()

		return errors.Join(apiServer.Shutdown(shutdownCtx), soapServer.Shutdown(shutdownCtx))
	})

	return g.Wait()
}

func serve(err error) error {
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}
