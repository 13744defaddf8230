package config

import (
	"context"
	"errors"
	"fmt"
	"time"
	_ "time/tzdata" // zone database for hosts without one

	"github.com/go-playground/validator/v10"
	"github.com/sethvargo/go-envconfig"

	"github.com/Ometra-Hela/Alize/internal/model"
)

const EnvPrefix = "ALIZE_"

type Config struct {
	IDA         string `env:"IDA" validate:"required,len=3,alphanum,uppercase"`
	Timezone    string `env:"TIMEZONE,default=America/Mexico_City" validate:"required"`
	Development bool   `env:"DEVELOPMENT,default=false"`

	HTTP        HTTPConfig        `env:",prefix=HTTP_"`
	SOAP        SOAPConfig        `env:",prefix=SOAP_"`
	Breaker     BreakerConfig     `env:",prefix=CB_"`
	Timers      TimersConfig
	Calendar    CalendarConfig
	Attachments AttachmentsConfig `env:",prefix=ATTACHMENTS_"`
	Jobs        JobsConfig

	XSDPath                string `env:"XSD_PATH"`
	MigrationsVersionTable string `env:"MIGRATIONS_VERSION_TABLE,default=alize_goose_db_version" validate:"required"`

	PortabilityDB PostgresConfig `env:",prefix=PG_"`
	Redis         RedisConfig    `env:",prefix=REDIS_"`
	Kafka         KafkaConfig    `env:",prefix=KAFKA_"`
	S3            S3Config       `env:",prefix=S3_"`
	OTEL          OTELConfig     `env:",prefix=OTEL_"`
	Consul        ConsulConfig   `env:",prefix=CONSUL_"`
}

type HTTPConfig struct {
	Port     string `env:"PORT,default=8080" validate:"required,numeric"`
	SOAPPort string `env:"SOAP_PORT,default=8443" validate:"required,numeric"`
}

type SOAPConfig struct {
	Endpoint    string        `env:"ENDPOINT" validate:"required,url"`
	UserID      string        `env:"USER_ID" validate:"required"`
	PasswordB64 string        `env:"PASSWORD_B64" validate:"required,base64"`
	TLSCertPath string        `env:"TLS_CERT_PATH"`
	TLSKeyPath  string        `env:"TLS_KEY_PATH"`
	TLSCAPath   string        `env:"TLS_CA_PATH"`
	Timeout     time.Duration `env:"TIMEOUT,default=30s" validate:"gt=0"`
	Retries     int           `env:"RETRIES,default=3" validate:"gt=0"`
	RetryDelay  time.Duration `env:"RETRY_DELAY,default=1s" validate:"gt=0"`

	// Inbound credentials expected from the clearinghouse. They default to the outbound pair.
	InboundUserID      string `env:"INBOUND_USER_ID"`
	InboundPasswordB64 string `env:"INBOUND_PASSWORD_B64"`
}

type BreakerConfig struct {
	FailureThreshold  int           `env:"FAILURE_THRESHOLD,default=5" validate:"gt=0"`
	OpenDuration      time.Duration `env:"OPEN_DURATION,default=60s" validate:"gt=0"`
	HalfOpenSuccesses int           `env:"HALF_OPEN_SUCCESSES,default=1" validate:"gt=0"`
}

type TimersConfig struct {
	T1Minutes int `env:"T1_MINUTES,default=20" validate:"gt=0"`
	T3Hours   int `env:"T3_HOURS,default=24" validate:"gt=0"`
	T4Hours   int `env:"T4_HOURS,default=24" validate:"gt=0"`
	T5Hours   int `env:"T5_HOURS,default=24" validate:"gt=0"`
}

type CalendarConfig struct {
	BusinessHoursStart string `env:"BUSINESS_HOURS_START,default=11:00" validate:"required,datetime=15:04"`
	BusinessHoursEnd   string `env:"BUSINESS_HOURS_END,default=17:00" validate:"required,datetime=15:04"`
	HolidaysFile       string `env:"HOLIDAYS_FILE"`

	// Holidays are extra dates from the Consul overlay, on top of HolidaysFile.
	Holidays []string
}

type AttachmentsConfig struct {
	MaxCount      int      `env:"MAX_COUNT,default=10" validate:"gt=0"`
	MaxTotalBytes int64    `env:"MAX_TOTAL_BYTES,default=4194304" validate:"gt=0"`
	AllowedMIME   []string `env:"ALLOWED_MIME,default=application/pdf" validate:"min=1"`
}

type JobsConfig struct {
	SweepInterval    time.Duration `env:"SWEEP_INTERVAL,default=1m" validate:"gt=0"`
	SweepBatchSize   int           `env:"SWEEP_BATCH_SIZE,default=500" validate:"gt=0"`
	ResendInterval   time.Duration `env:"RESEND_INTERVAL,default=5m" validate:"gt=0"`
	ResendMaxRetries int           `env:"RESEND_MAX_RETRIES,default=5" validate:"gt=0"`
}

type PostgresConfig struct {
	Host                 string `env:"HOST" validate:"required"`
	Port                 string `env:"PORT,default=5432" validate:"required"`
	DBName               string `env:"DB_NAME" validate:"required"`
	Schema               string `env:"SCHEMA"`
	MigrationUsername    string `env:"MIGRATION_USERNAME" validate:"required"`
	MigrationPassword    string `env:"MIGRATION_PASSWORD" validate:"required"`
	Username             string `env:"USERNAME" validate:"required"`
	Password             string `env:"PASSWORD" validate:"required"`
	SSLMode              string `env:"SSL_MODE,default=disable" validate:"required"`
	MaxConnectionRetries int    `env:"MAX_CONNECTION_RETRIES,default=10" validate:"omitempty"`
	MaxOpenConns         int    `env:"MAX_OPEN_CONNS,default=20" validate:"gte=0"`
}

func (c *PostgresConfig) GetAppConnectionString() string {
	dbConn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password='%s' sslmode=%s",
		c.Host, c.Port, c.DBName, c.Username, c.Password, c.SSLMode)
	if c.Schema != "" {
		dbConn += fmt.Sprintf(" search_path=%s,public", c.Schema)
	}

	return dbConn
}

func (c *PostgresConfig) GetMigrationConnectionString() string {
	dbConn := fmt.Sprintf("host=%s port=%s dbname=%s user=%s password='%s' sslmode=%s",
		c.Host, c.Port, c.DBName, c.MigrationUsername, c.MigrationPassword, c.SSLMode)
	if c.Schema != "" {
		dbConn += fmt.Sprintf(" search_path=%s,public", c.Schema)
	}

	return dbConn
}

// RedisConfig enables the shared breaker state. Without it each replica keeps its own.
type RedisConfig struct {
	Enabled  bool   `env:"ENABLED,default=false"`
	Addr     string `env:"ADDR" validate:"required_if=Enabled true"`
	Password string `env:"PASSWORD"`
	DB       int    `env:"DB,default=0" validate:"gte=0"`
}

type KafkaConfig struct {
	Enabled bool     `env:"ENABLED,default=false"`
	Brokers []string `env:"BROKERS" validate:"required_if=Enabled true"`
	Topic   string   `env:"TOPIC,default=alize.portability-events" validate:"required_if=Enabled true"`
}

type S3Config struct {
	Enabled         bool   `env:"ENABLED,default=false"`
	Bucket          string `env:"BUCKET" validate:"required_if=Enabled true"`
	Region          string `env:"REGION,default=us-east-1"`
	Endpoint        string `env:"ENDPOINT" validate:"omitempty,url"`
	AccessKeyID     string `env:"ACCESS_KEY_ID"`
	SecretAccessKey string `env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `env:"PATH_STYLE,default=false"`
}

type OTELConfig struct {
	Enabled     bool   `env:"ENABLED,default=false"`
	Endpoint    string `env:"ENDPOINT,default=localhost:4317"`
	Insecure    bool   `env:"INSECURE,default=true"`
	ServiceName string `env:"SERVICE_NAME,default=alize"`
}

type loadOptions struct {
	lookuper envconfig.Lookuper
	kv       KVGetter
}

type LoadOption func(*loadOptions)

// WithLookuper replaces the process environment as the variable source.
func WithLookuper(l envconfig.Lookuper) LoadOption {
	return func(o *loadOptions) {
		o.lookuper = l
	}
}

// WithKV replaces the Consul KV client built from ConsulConfig.
func WithKV(kv KVGetter) LoadOption {
	return func(o *loadOptions) {
		o.kv = kv
	}
}

// Load reads ALIZE_* variables, applies the Consul overlay when a key is configured
// and validates the result. Every failure is a ConfigurationError.
func Load(ctx context.Context, opts ...LoadOption) (*Config, error) {
	o := loadOptions{lookuper: envconfig.OsLookuper()}
	for _, opt := range opts {
		opt(&o)
	}

	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{
		Target:   &cfg,
		Lookuper: envconfig.PrefixLookuper(EnvPrefix, o.lookuper),
	}); err != nil {
		return nil, model.NewConfigurationError("read environment: %v", err)
	}

	if cfg.Consul.Key != "" {
		if err := cfg.applyConsulConfig(ctx, o.kv); err != nil {
			return nil, model.NewConfigurationError("apply consul overlay: %v", err)
		}
	}

	cfg.ApplyDefaults()

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func (cfg *Config) ApplyDefaults() {
	if cfg.SOAP.InboundUserID == "" {
		cfg.SOAP.InboundUserID = cfg.SOAP.UserID
	}

	if cfg.SOAP.InboundPasswordB64 == "" {
		cfg.SOAP.InboundPasswordB64 = cfg.SOAP.PasswordB64
	}
}

var validate = validator.New(validator.WithRequiredStructEnabled())

func (cfg *Config) Validate() error {
	if err := validate.Struct(cfg); err != nil {
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) && len(fieldErrs) > 0 {
			fe := fieldErrs[0]

			return model.NewConfigurationError("%s failed '%s' validation", fe.Namespace(), fe.Tag())
		}

		return model.NewConfigurationError("invalid configuration: %v", err)
	}

	if cfg.SOAP.tlsPartial() {
		return model.NewConfigurationError("SOAP mutual TLS needs cert, key and CA paths together")
	}

	if _, err := cfg.Location(); err != nil {
		return model.NewConfigurationError("unknown timezone %q", cfg.Timezone)
	}

	if cfg.Calendar.BusinessHoursStart >= cfg.Calendar.BusinessHoursEnd {
		return model.NewConfigurationError("business hours start %s is not before end %s",
			cfg.Calendar.BusinessHoursStart, cfg.Calendar.BusinessHoursEnd)
	}

	return nil
}

func (c SOAPConfig) tlsPartial() bool {
	set := 0

	for _, p := range []string{c.TLSCertPath, c.TLSKeyPath, c.TLSCAPath} {
		if p != "" {
			set++
		}
	}

	return set != 0 && set != 3
}

func (cfg *Config) Location() (*time.Location, error) {
	return time.LoadLocation(cfg.Timezone)
}

func (t TimersConfig) T1() time.Duration { return time.Duration(t.T1Minutes) * time.Minute }

func (t TimersConfig) T3() time.Duration { return time.Duration(t.T3Hours) * time.Hour }
