package config

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hashicorp/consul/api"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
)

const (
	consulKeyLogTag = "consul.key"
)

type ConsulConfig struct {
	Address string `env:"ADDRESS,default=127.0.0.1:8500"`
	Token   string `env:"TOKEN"`
	Key     string `env:"KEY"`
}

// KVGetter is the read side of the Consul KV API.
type KVGetter interface {
	Get(key string, q *api.QueryOptions) (*api.KVPair, *api.QueryMeta, error)
}

// consulSettings are the runtime-tunable knobs. Absent keys keep the environment value.
type consulSettings struct {
	T1Minutes           *int     `json:"t1Minutes"`
	T3Hours             *int     `json:"t3Hours"`
	T4Hours             *int     `json:"t4Hours"`
	T5Hours             *int     `json:"t5Hours"`
	SOAPRetries         *int     `json:"soapRetries"`
	SOAPRetryDelay      *string  `json:"soapRetryDelay"`
	SOAPTimeout         *string  `json:"soapTimeout"`
	CBFailureThreshold  *int     `json:"cbFailureThreshold"`
	CBOpenDuration      *string  `json:"cbOpenDuration"`
	CBHalfOpenSuccesses *int     `json:"cbHalfOpenSuccesses"`
	BusinessHoursStart  *string  `json:"businessHoursStart"`
	BusinessHoursEnd    *string  `json:"businessHoursEnd"`
	Holidays            []string `json:"holidays"`
}

func NewConsulClient(cfg *ConsulConfig) (*api.Client, error) {
	consulCfg := api.DefaultConfig()
	consulCfg.Address = cfg.Address
	consulCfg.Token = cfg.Token

	client, err := api.NewClient(consulCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to init Consul client: %w", err)
	}

	return client, nil
}

func (cfg *Config) applyConsulConfig(ctx context.Context, kv KVGetter) error {
	if kv == nil {
		client, err := NewConsulClient(&cfg.Consul)
		if err != nil {
			return err
		}

		kv = client.KV()
	}

	settings, err := getConsulSettings(ctx, kv, cfg.Consul.Key)
	if err != nil {
		return fmt.Errorf("failed to get settings from consul: %w", err)
	}

	if err := settings.apply(cfg); err != nil {
		return fmt.Errorf("failed to apply consul settings: %w", err)
	}

	diagnostics.LoggerFromContext(ctx).Info("consul overlay applied",
		zap.String(consulKeyLogTag, cfg.Consul.Key),
		zap.Int("timers.t1_minutes", cfg.Timers.T1Minutes),
		zap.Int("soap.retries", cfg.SOAP.Retries),
		zap.Int("cb.failure_threshold", cfg.Breaker.FailureThreshold),
		zap.Int("calendar.extra_holidays", len(cfg.Calendar.Holidays)))

	return nil
}

func (s *consulSettings) apply(cfg *Config) error {
	setInt(&cfg.Timers.T1Minutes, s.T1Minutes)
	setInt(&cfg.Timers.T3Hours, s.T3Hours)
	setInt(&cfg.Timers.T4Hours, s.T4Hours)
	setInt(&cfg.Timers.T5Hours, s.T5Hours)
	setInt(&cfg.SOAP.Retries, s.SOAPRetries)
	setInt(&cfg.Breaker.FailureThreshold, s.CBFailureThreshold)
	setInt(&cfg.Breaker.HalfOpenSuccesses, s.CBHalfOpenSuccesses)

	if err := setDuration(&cfg.SOAP.RetryDelay, s.SOAPRetryDelay, "soapRetryDelay"); err != nil {
		return err
	}

	if err := setDuration(&cfg.SOAP.Timeout, s.SOAPTimeout, "soapTimeout"); err != nil {
		return err
	}

	if err := setDuration(&cfg.Breaker.OpenDuration, s.CBOpenDuration, "cbOpenDuration"); err != nil {
		return err
	}

	if s.BusinessHoursStart != nil {
		cfg.Calendar.BusinessHoursStart = *s.BusinessHoursStart
	}

	if s.BusinessHoursEnd != nil {
		cfg.Calendar.BusinessHoursEnd = *s.BusinessHoursEnd
	}

	for i, day := range s.Holidays {
		if _, err := time.Parse(time.DateOnly, day); err != nil {
			return fmt.Errorf("holidays[%d]: %q is not a YYYY-MM-DD date", i, day)
		}
	}

	cfg.Calendar.Holidays = append(cfg.Calendar.Holidays, s.Holidays...)

	return nil
}

func setInt(dst *int, v *int) {
	if v != nil {
		*dst = *v
	}
}

func setDuration(dst *time.Duration, v *string, name string) error {
	if v == nil {
		return nil
	}

	d, err := time.ParseDuration(*v)
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}

	*dst = d

	return nil
}

func getConsulSettings(ctx context.Context, kv KVGetter, key string) (*consulSettings, error) {
	log := diagnostics.LoggerFromContext(ctx)

	pair, _, err := kv.Get(key, (&api.QueryOptions{}).WithContext(ctx))
	if err != nil {
		log.Error("failed to fetch data from Consul",
			zap.String(consulKeyLogTag, key),
			zap.Error(err))

		return nil, err
	}

	if pair == nil {
		log.Error("configuration key not found in Consul",
			zap.String(consulKeyLogTag, key))

		return nil, fmt.Errorf("configuration key %s not found in Consul", key)
	}

	var settings consulSettings

	if err := json.Unmarshal(pair.Value, &settings); err != nil {
		log.Error("failed to parse KV value",
			zap.String(consulKeyLogTag, key),
			zap.Error(err))

		return nil, err
	}

	return &settings, nil
}
