// Package soap is the outbound side of the clearinghouse integration: it validates,
// sends and records processNPCMsg calls behind a shared circuit breaker.
package soap

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v5"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/converters"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
)

var tracer = otel.Tracer("github.com/Ometra-Hela/Alize/internal/transport/soap")

const (
	DefaultTimeout     = 30 * time.Second
	DefaultMaxAttempts = 3
	DefaultRetryDelay  = time.Second

	maxResponseBytes = 1 << 20
)

// Config describes the clearinghouse endpoint. Sender is the operator IDA recorded on
// every outbound exchange.
type Config struct {
	Endpoint    string
	UserID      string
	PasswordB64 string
	Sender      string
	TLS         TLSConfig
	Timeout     time.Duration
	MaxAttempts int
	RetryDelay  time.Duration
}

type Validator interface {
	Validate(xml string, mt model.MessageType) error
}

type CircuitBreaker interface {
	Allow(ctx context.Context) error
	RecordSuccess(ctx context.Context)
	RecordFailure(ctx context.Context)
}

// Recorder stores the audit row of an exchange. Implementations upsert on the
// idempotency key.
type Recorder interface {
	RecordMessage(ctx context.Context, msg *model.ProtocolMessage) error
}

// Message is one outbound protocol document.
type Message struct {
	PortID string
	Type   model.MessageType
	XML    string
}

type Result struct {
	Response       string
	IdempotencyKey string
	Attempts       int
}

type Option func(*Client)

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.http = hc
	}
}

func WithClock(now func() time.Time) Option {
	return func(c *Client) {
		c.now = now
	}
}

type Client struct {
	cfg       Config
	http      *http.Client
	breaker   CircuitBreaker
	validator Validator
	recorder  Recorder
	now       func() time.Time
	logger    *zap.Logger
}

func NewClient(cfg Config, breaker CircuitBreaker, validator Validator, recorder Recorder, logger *zap.Logger, opts ...Option) (*Client, error) {
	if cfg.Endpoint == "" {
		return nil, model.NewConfigurationError("SOAP endpoint is not configured")
	}

	if cfg.UserID == "" || cfg.PasswordB64 == "" {
		return nil, model.NewConfigurationError("missing SOAP credentials (user id / base64 password)")
	}

	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}

	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultMaxAttempts
	}

	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = DefaultRetryDelay
	}

	c := &Client{
		cfg:       cfg,
		breaker:   breaker,
		validator: validator,
		recorder:  recorder,
		now:       time.Now,
		logger:    logger.Named("soap-client"),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.http == nil {
		transport := http.DefaultTransport.(*http.Transport).Clone()

		if cfg.TLS.Enabled() {
			tlsConfig, err := newTLSConfig(cfg.TLS)
			if err != nil {
				return nil, err
			}

			transport.TLSClientConfig = tlsConfig
		}

		c.http = &http.Client{Timeout: cfg.Timeout, Transport: transport}
	}

	return c, nil
}

// IdempotencyKey is the hex SHA-256 of port id, type code and the exact XML bytes,
// NUL-separated so no two field splits hash alike.
func IdempotencyKey(portID string, mt model.MessageType, xml string) string {
	sum := sha256.Sum256([]byte(portID + "\x00" + strconv.Itoa(mt.Code()) + "\x00" + xml))

	return hex.EncodeToString(sum[:])
}

// Send performs one attempt and records the exchange.
func (c *Client) Send(ctx context.Context, msg Message) (*Result, error) {
	ctx, span := tracer.Start(ctx, "Client.Send")
	defer span.End()

	span.SetAttributes(
		attribute.String("port_id", msg.PortID),
		attribute.Int("message_type", msg.Type.Code()),
	)

	key := IdempotencyKey(msg.PortID, msg.Type, msg.XML)

	text, err := c.Deliver(ctx, msg)

	var mErr *model.Error
	if errors.As(err, &mErr) && mErr.Code != model.TransportErrCode {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	record := &model.ProtocolMessage{
		PortID:         msg.PortID,
		Direction:      model.DirectionOut,
		TypeCode:       msg.Type,
		Sender:         c.cfg.Sender,
		RawXML:         msg.XML,
		SentAt:         converters.TimeToPtr(c.now()),
		AckStatus:      model.AckStatusSuccess,
		AckText:        text,
		IdempotencyKey: key,
	}

	if err != nil {
		record.AckStatus = model.AckStatusError
		record.AckText = err.Error()

		if mErr != nil && mErr.Description != "" {
			record.AckText = mErr.Description
		}
	}

	if recErr := c.recorder.RecordMessage(ctx, record); recErr != nil {
		c.logger.Error("soap.record.fail",
			zap.String("port_id", msg.PortID),
			zap.Int("message_type", msg.Type.Code()),
			zap.Error(recErr))
	}

	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}

	return &Result{Response: text, IdempotencyKey: key, Attempts: 1}, nil
}

// Deliver runs the breaker, schema and network steps of a send without recording
// anything. The resend job uses it to replay a stored exchange.
func (c *Client) Deliver(ctx context.Context, msg Message) (string, error) {
	if err := c.breaker.Allow(ctx); err != nil {
		observability.RecordSOAPRequest(msg.Type.String(), "rejected", 0)
		return "", err
	}

	if err := c.validator.Validate(msg.XML, msg.Type); err != nil {
		return "", err
	}

	started := c.now()
	text, err := c.call(ctx, msg.XML)
	elapsed := c.now().Sub(started)

	if err != nil {
		c.breaker.RecordFailure(ctx)
		observability.RecordSOAPRequest(msg.Type.String(), "failure", elapsed)
		c.logger.Warn("soap.send.fail",
			zap.String("port_id", msg.PortID),
			zap.Int("message_type", msg.Type.Code()),
			zap.Error(err))

		return "", err
	}

	c.breaker.RecordSuccess(ctx)
	observability.RecordSOAPRequest(msg.Type.String(), "success", elapsed)

	return text, nil
}

func (c *Client) call(ctx context.Context, xmlMsg string) (string, error) {
	envelope, err := buildEnvelope(c.cfg.UserID, c.cfg.PasswordB64, xmlMsg)
	if err != nil {
		return "", model.NewTransportError("build SOAP envelope", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.cfg.Endpoint, bytes.NewBufferString(envelope))
	if err != nil {
		return "", model.NewTransportError("build SOAP request", err)
	}

	req.Header.Set("Content-Type", "text/xml; charset=utf-8")
	req.Header.Set("SOAPAction", Operation)

	resp, err := c.http.Do(req)
	if err != nil {
		return "", model.NewTransportError("SOAP call failed", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return "", model.NewTransportError("read SOAP response", err)
	}

	parsed := parseResponse(raw)
	if parsed.Fault != "" {
		return "", model.NewTransportError("SOAP fault", errors.New(parsed.Fault))
	}

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		return "", model.NewTransportError("SOAP call failed", fmt.Errorf("unexpected status %d", resp.StatusCode))
	}

	return parsed.Text, nil
}

// SendWithRetry retries transport failures with exponential backoff starting at the
// configured delay. Validation, transition and circuit-open errors end the loop at once.
func (c *Client) SendWithRetry(ctx context.Context, msg Message) (*Result, error) {
	attempts := 0

	op := func() (*Result, error) {
		attempts++

		res, err := c.Send(ctx, msg)
		if err == nil {
			return res, nil
		}

		if errors.Is(err, model.ErrTransport) {
			return nil, err
		}

		return nil, backoff.Permanent(err)
	}

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.cfg.RetryDelay
	b.Multiplier = 2
	b.RandomizationFactor = 0

	res, err := backoff.Retry(ctx, op,
		backoff.WithBackOff(b),
		backoff.WithMaxTries(uint(c.cfg.MaxAttempts)),
		backoff.WithNotify(func(err error, delay time.Duration) {
			c.logger.Warn("soap.retry",
				zap.String("port_id", msg.PortID),
				zap.Int("message_type", msg.Type.Code()),
				zap.Int("attempt", attempts),
				zap.Duration("delay", delay),
				zap.Error(err))
		}),
	)
	if err != nil {
		return nil, err
	}

	res.Attempts = attempts

	return res, nil
}
