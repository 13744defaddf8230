package dependencies

import (
	"context"
	"database/sql"
	"fmt"
	"slices"
	"time"

	"github.com/go-redis/redis/v8"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/config"
	"github.com/Ometra-Hela/Alize/internal/breaker"
	"github.com/Ometra-Hela/Alize/internal/calendar"
	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/dal/repository"
	"github.com/Ometra-Hela/Alize/internal/ids"
	"github.com/Ometra-Hela/Alize/internal/jobs/resend"
	"github.com/Ometra-Hela/Alize/internal/jobs/timers"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/orchestrator"
	"github.com/Ometra-Hela/Alize/internal/orchestrator/kafka/producers"
	"github.com/Ometra-Hela/Alize/internal/server/api"
	soapserver "github.com/Ometra-Hela/Alize/internal/server/soap"
	"github.com/Ometra-Hela/Alize/internal/service/portability"
	"github.com/Ometra-Hela/Alize/internal/statemachine"
	"github.com/Ometra-Hela/Alize/internal/storage/attachments"
	"github.com/Ometra-Hela/Alize/internal/transport/soap"
	"github.com/Ometra-Hela/Alize/internal/xsd"
)

// breakerStateTTL bounds how long an idle circuit survives in Redis.
const breakerStateTTL = 24 * time.Hour

// App is the wired node: the two HTTP surfaces and the periodic jobs.
type App struct {
	API        *api.Server
	SOAP       *soapserver.Server
	TimerSweep *timers.Job
	Resend     *resend.Job
}

// jobStore joins the repositories the periodic jobs read and lock through.
type jobStore struct {
	*repository.PortabilityRepository
	*repository.MessageRepository
	*repository.JobLockStore
}

// Services.
func MustInitApp(
	cfg *config.Config,
	db *sql.DB,
	redisClient *redis.Client,
	writer producers.MessageWriter,
	blobs attachments.Store,
	logger *zap.Logger,
) *App {
	loc, err := cfg.Location()
	if err != nil {
		panic(fmt.Errorf("failed to load timezone: %w", err))
	}

	cal := MustInitCalendar(cfg, loc)

	cases := repository.NewPortabilityRepository(db)
	messages := repository.NewMessageRepository(db)
	attachmentIndex := repository.NewAttachmentRepository(db)
	locks := repository.NewJobLockStore(db)

	producer := producers.NewPortabilityEventProducer(writer, logger)

	engine := statemachine.NewEngine(cases, producer, statemachine.TimerConfig{
		T1: cfg.Timers.T1(),
		T3: cfg.Timers.T3(),
	}, logger)

	client := MustInitSOAPClient(cfg, redisClient, messages, logger)

	service := portability.NewService(cfg.IDA, cases, messages, engine, client, cal, ids.NewGenerator(loc))

	dispatcher := orchestrator.NewDispatcher(producer, logger)
	orchestrator.NewHandlers(engine, cases, producer, loc, logger).Register(dispatcher)

	registry := codec.NewDefaultRegistry()
	for _, mt := range unhandledTypes(registry, dispatcher) {
		logger.Info("inbound type decoded without handler, acknowledged only",
			zap.Int("message.type", mt.Code()))
	}

	inbound, err := soapserver.NewServer(soapserver.Config{
		UserID:      cfg.SOAP.InboundUserID,
		PasswordB64: cfg.SOAP.InboundPasswordB64,
		Attachments: soapserver.GuardConfig{
			MaxCount:      cfg.Attachments.MaxCount,
			MaxTotalBytes: cfg.Attachments.MaxTotalBytes,
			AllowedMIME:   cfg.Attachments.AllowedMIME,
		},
	}, registry, dispatcher, messages, attachmentIndex, blobs, logger)
	if err != nil {
		panic(fmt.Errorf("failed to init SOAP server: %w", err))
	}

	store := &jobStore{
		PortabilityRepository: cases,
		MessageRepository:     messages,
		JobLockStore:          locks,
	}

	checks := []api.HealthCheck{{Name: "database", Check: db.PingContext}}
	if redisClient != nil {
		checks = append(checks, api.HealthCheck{Name: "redis", Check: func(ctx context.Context) error {
			return redisClient.Ping(ctx).Err()
		}})
	}

	logger.Info("node wired",
		zap.String("soap.endpoint", cfg.SOAP.Endpoint),
		zap.Bool("kafka.enabled", cfg.Kafka.Enabled),
		zap.Bool("redis.enabled", redisClient != nil),
		zap.Bool("s3.enabled", cfg.S3.Enabled))

	return &App{
		API:  api.NewServer(service, logger, checks...),
		SOAP: inbound,
		TimerSweep: timers.NewJob(timers.Config{BatchSize: cfg.Jobs.SweepBatchSize},
			store, engine, logger),
		Resend: resend.NewJob(resend.Config{BatchSize: resend.DefaultBatchSize, MaxRetries: cfg.Jobs.ResendMaxRetries},
			store, client, logger),
	}
}

// unhandledTypes lists the decodable types no handler is bound to, lowest code first.
func unhandledTypes(registry *codec.Registry, dispatcher *orchestrator.Dispatcher) []model.MessageType {
	var out []model.MessageType

	for _, mt := range registry.Types() {
		if !dispatcher.Handles(mt) {
			out = append(out, mt)
		}
	}

	slices.SortFunc(out, func(a, b model.MessageType) int { return a.Code() - b.Code() })

	return out
}

func MustInitCalendar(cfg *config.Config, loc *time.Location) *calendar.Calendar {
	holidays := append([]string(nil), cfg.Calendar.Holidays...)

	if cfg.Calendar.HolidaysFile != "" {
		fromFile, err := calendar.LoadHolidays(cfg.Calendar.HolidaysFile)
		if err != nil {
			panic(fmt.Errorf("failed to load holidays: %w", err))
		}

		holidays = append(holidays, fromFile...)
	}

	cal, err := calendar.New(calendar.Config{
		Location:    loc,
		WindowStart: cfg.Calendar.BusinessHoursStart,
		WindowEnd:   cfg.Calendar.BusinessHoursEnd,
		Holidays:    holidays,
	})
	if err != nil {
		panic(fmt.Errorf("failed to init calendar: %w", err))
	}

	return cal
}

// MustInitSOAPClient builds the outbound client behind a circuit breaker whose state
// lives in Redis when available.
func MustInitSOAPClient(cfg *config.Config, redisClient *redis.Client, recorder soap.Recorder, logger *zap.Logger) *soap.Client {
	var store breaker.Store = breaker.NewMemoryStore()
	if redisClient != nil {
		store = breaker.NewRedisStore(redisClient, breakerStateTTL)
	}

	cb := breaker.New(breaker.NameForEndpoint(cfg.SOAP.Endpoint), store, breaker.Config{
		FailureThreshold:  cfg.Breaker.FailureThreshold,
		OpenDuration:      cfg.Breaker.OpenDuration,
		HalfOpenSuccesses: cfg.Breaker.HalfOpenSuccesses,
	}, logger)

	client, err := soap.NewClient(soap.Config{
		Endpoint:    cfg.SOAP.Endpoint,
		UserID:      cfg.SOAP.UserID,
		PasswordB64: cfg.SOAP.PasswordB64,
		Sender:      cfg.IDA,
		TLS: soap.TLSConfig{
			CertPath: cfg.SOAP.TLSCertPath,
			KeyPath:  cfg.SOAP.TLSKeyPath,
			CAPath:   cfg.SOAP.TLSCAPath,
		},
		Timeout:     cfg.SOAP.Timeout,
		MaxAttempts: cfg.SOAP.Retries,
		RetryDelay:  cfg.SOAP.RetryDelay,
	}, cb, xsd.NewValidator(cfg.XSDPath, logger), recorder, logger)
	if err != nil {
		panic(fmt.Errorf("failed to init SOAP client: %w", err))
	}

	return client
}
