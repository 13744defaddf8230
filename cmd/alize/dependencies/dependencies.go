package dependencies

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/jackc/pgx/v5/stdlib" // registers the "pgx" database/sql driver
	"github.com/segmentio/kafka-go"
	"github.com/sethvargo/go-retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/config"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/storage/attachments"
)

const (
	pingBaseDelay = 100 * time.Millisecond
	tracerName    = "github.com/Ometra-Hela/Alize"
)

func MustInitLogger(cfg *config.Config) *zap.Logger {
	var (
		logger *zap.Logger
		err    error
	)

	if cfg.Development {
		logger, err = zap.NewDevelopment()
	} else {
		logger, err = zap.NewProduction()
	}

	if err != nil {
		panic(fmt.Errorf("failed to init logger: %w", err))
	}

	return logger.With(zap.String("ida", cfg.IDA))
}

// MustInitTracer installs the OTLP exporter when enabled and returns the tracer plus
// a shutdown func that flushes pending spans.
func MustInitTracer(ctx context.Context, cfg *config.OTELConfig) (trace.Tracer, func(context.Context) error) {
	if !cfg.Enabled {
		return noop.NewTracerProvider().Tracer(tracerName), func(context.Context) error { return nil }
	}

	opts := []otlptracegrpc.Option{otlptracegrpc.WithEndpoint(cfg.Endpoint)}
	if cfg.Insecure {
		opts = append(opts, otlptracegrpc.WithInsecure())
	}

	exporter, err := otlptracegrpc.New(ctx, opts...)
	if err != nil {
		panic(fmt.Errorf("failed to init OTLP exporter: %w", err))
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithBatcher(exporter),
		sdktrace.WithResource(resource.NewSchemaless(attribute.String("service.name", cfg.ServiceName))),
	)
	otel.SetTracerProvider(provider)

	return provider.Tracer(tracerName), provider.Shutdown
}

// DB.
func MustInitDB(ctx context.Context, cfg *config.PostgresConfig) *sql.DB {
	db, err := sql.Open("pgx", cfg.GetAppConnectionString())
	if err != nil {
		panic(fmt.Errorf("failed to open database: %w", err))
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)

	if err := pingWithRetry(ctx, "database", cfg.MaxConnectionRetries, db.PingContext); err != nil {
		defer db.Close()

		panic(fmt.Errorf("failed to ping database: %w", err))
	}

	return db
}

// MustInitRedis returns nil when Redis is disabled; the breaker then keeps its state
// in process memory.
func MustInitRedis(ctx context.Context, cfg *config.RedisConfig, maxRetries int) *redis.Client {
	if !cfg.Enabled {
		return nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ping := func(ctx context.Context) error {
		return client.Ping(ctx).Err()
	}

	if err := pingWithRetry(ctx, "redis", maxRetries, ping); err != nil {
		defer client.Close()

		panic(fmt.Errorf("failed to ping redis: %w", err))
	}

	return client
}

// Kafka.
func MustInitKafkaWriter(cfg *config.KafkaConfig) *kafka.Writer {
	if !cfg.Enabled {
		return nil
	}

	return &kafka.Writer{
		Addr:                   kafka.TCP(cfg.Brokers...),
		Topic:                  cfg.Topic,
		Balancer:               &kafka.Hash{},
		RequiredAcks:           kafka.RequireAll,
		AllowAutoTopicCreation: false,
	}
}

// Storage.
func MustInitAttachmentStore(ctx context.Context, cfg *config.S3Config) attachments.Store {
	if !cfg.Enabled {
		diagnostics.LoggerFromContext(ctx).Warn("S3 is disabled, attachments are kept in memory")

		return attachments.NewMemoryStore()
	}

	store, err := attachments.NewS3Store(ctx, attachments.S3Config{
		Region:          cfg.Region,
		Bucket:          cfg.Bucket,
		Endpoint:        cfg.Endpoint,
		AccessKeyID:     cfg.AccessKeyID,
		SecretAccessKey: cfg.SecretAccessKey,
		PathStyle:       cfg.PathStyle,
	})
	if err != nil {
		panic(fmt.Errorf("failed to init S3 attachment store: %w", err))
	}

	return store
}

func pingWithRetry(ctx context.Context, what string, maxRetries int, ping func(context.Context) error) error {
	log := diagnostics.LoggerFromContext(ctx)

	if maxRetries <= 0 {
		maxRetries = 1
	}

	backoff := retry.WithMaxRetries(uint64(maxRetries-1), retry.NewExponential(pingBaseDelay))
	attempt := 0

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		attempt++

		if err := ping(ctx); err != nil {
			log.Warn(fmt.Sprintf("failed to ping %s. Retrying...", what),
				zap.Int("ping.attempt", attempt),
				zap.Int("ping.max_retries", maxRetries),
				zap.Error(err))

			return retry.RetryableError(err)
		}

		return nil
	})
}
