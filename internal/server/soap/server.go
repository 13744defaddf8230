// Package soap serves the processNPCMsg operation the clearinghouse calls to
// deliver protocol messages to this node.
package soap

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/codec"
	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/observability"
	"github.com/Ometra-Hela/Alize/internal/storage/attachments"
	soapclient "github.com/Ometra-Hela/Alize/internal/transport/soap"
)

const (
	Path = "/soap/npws"

	// AckText is the body the clearinghouse expects for an accepted message.
	AckText = "éxito"

	serverLogName = "soap-server"
	envelopeSlack = 1 << 20
)

type Config struct {
	UserID      string
	PasswordB64 string
	Attachments GuardConfig
}

type Decoder interface {
	Decode(xml string) (*codec.Parsed, error)
}

type Dispatcher interface {
	Dispatch(ctx context.Context, msg *codec.Parsed) error
}

type MessageRecorder interface {
	RecordMessage(ctx context.Context, msg *model.ProtocolMessage) error
}

type AttachmentIndex interface {
	CreateAttachment(ctx context.Context, a *model.Attachment) (*model.Attachment, error)
}

type Option func(*Server)

func WithClock(now func() time.Time) Option {
	return func(s *Server) {
		s.now = now
	}
}

type Server struct {
	userID     []byte
	password   []byte
	guard      *attachmentGuard
	maxBody    int64
	decoder    Decoder
	dispatcher Dispatcher
	recorder   MessageRecorder
	index      AttachmentIndex
	blobs      attachments.Store
	logger     *zap.Logger
	now        func() time.Time
}

func NewServer(
	cfg Config,
	decoder Decoder,
	dispatcher Dispatcher,
	recorder MessageRecorder,
	index AttachmentIndex,
	blobs attachments.Store,
	logger *zap.Logger,
	opts ...Option,
) (*Server, error) {
	if cfg.UserID == "" || cfg.PasswordB64 == "" {
		return nil, model.NewConfigurationError("inbound SOAP credentials are not configured")
	}

	guard := newAttachmentGuard(cfg.Attachments)

	s := &Server{
		userID:   []byte(cfg.UserID),
		password: []byte(cfg.PasswordB64),
		guard:    guard,
		// base64 inflates by 4/3; the rest is envelope and message.
		maxBody:    guard.maxTotalBytes*2 + envelopeSlack,
		decoder:    decoder,
		dispatcher: dispatcher,
		recorder:   recorder,
		index:      index,
		blobs:      blobs,
		logger:     logger.Named(serverLogName),
		now:        time.Now,
	}

	for _, opt := range opts {
		opt(s)
	}

	return s, nil
}

// Mount registers the processNPCMsg endpoint on r.
func (s *Server) Mount(r chi.Router) {
	r.Post(Path, s.ProcessNPCMsg)
}

func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	s.Mount(r)

	return r
}

func (s *Server) ProcessNPCMsg(w http.ResponseWriter, r *http.Request) {
	ctx := diagnostics.ContextWithLogger(r.Context(), s.logger)

	tracer := diagnostics.TracerFromContext(ctx)

	ctx, span := tracer.Start(ctx, "SOAPServer.ProcessNPCMsg")
	defer span.End()

	raw, err := io.ReadAll(http.MaxBytesReader(w, r.Body, s.maxBody))
	if err != nil {
		s.fault(w, http.StatusRequestEntityTooLarge, faultClient, "request body too large")
		return
	}

	call, err := parseCall(raw)
	if err != nil {
		s.reject(ctx, w, err)
		return
	}

	if !s.authenticated(call) {
		s.reject(ctx, w, model.NewAuthenticationError("invalid credentials"))
		return
	}

	accepted, err := s.guard.check(call.Attachments)
	if err != nil {
		s.reject(ctx, w, err)
		return
	}

	msg, err := s.decoder.Decode(call.XMLMsg)
	if err != nil && !errors.Is(err, codec.ErrUnsupportedMessage) {
		s.reject(ctx, w, err)
		return
	}

	portID := portIDOf(call.XMLMsg)
	if msg != nil {
		portID = msg.PortID
		span.SetAttributes(attribute.Int("message_type", msg.Type.Code()))
	}

	span.SetAttributes(attribute.String("port_id", portID))

	if err := s.storeAttachments(ctx, portID, accepted); err != nil {
		s.reject(ctx, w, err)
		return
	}

	if msg == nil {
		if err := s.record(ctx, portID, call.XMLMsg, nil, model.AckStatusSuccess, AckText); err != nil {
			s.reject(ctx, w, err)
			return
		}

		observability.RecordInboundMessage("0", "unsupported")
		s.logger.Warn("unsupported inbound message acknowledged", zap.String("port_id", portID), zap.Error(err))
		s.ack(w)

		return
	}

	// Recorded after dispatch: a failed handler leaves an ERROR row with the fault text.
	if err := s.dispatcher.Dispatch(ctx, msg); err != nil {
		faultText := model.ToError(err).CompleteMessage()

		if recErr := s.record(ctx, portID, call.XMLMsg, msg, model.AckStatusError, faultText); recErr != nil {
			s.logger.Error("recordFailedInbound.fail", zap.String("port_id", portID), zap.Error(recErr))
		}

		s.fault(w, http.StatusInternalServerError, faultServer, faultText)

		return
	}

	if err := s.record(ctx, portID, call.XMLMsg, msg, model.AckStatusSuccess, AckText); err != nil {
		s.reject(ctx, w, err)
		return
	}

	s.ack(w)
}

func (s *Server) authenticated(call *inboundCall) bool {
	userOK := subtle.ConstantTimeCompare([]byte(call.UserID), s.userID) == 1
	passOK := subtle.ConstantTimeCompare([]byte(call.Password), s.password) == 1

	return userOK && passOK
}

func (s *Server) storeAttachments(ctx context.Context, portID string, accepted []acceptedAttachment) error {
	receivedAt := s.now()

	for _, a := range accepted {
		key := attachments.Key(portID, a.FileName, receivedAt)

		if err := s.blobs.Put(ctx, key, a.Content, a.MimeType); err != nil {
			s.logger.Error("storeAttachment.fail", zap.String("port_id", portID), zap.String("file_name", a.FileName), zap.Error(err))
			return model.InternalError(err)
		}

		if _, err := s.index.CreateAttachment(ctx, &model.Attachment{
			PortID:     portID,
			FileName:   a.FileName,
			MimeType:   a.MimeType,
			FileSize:   int64(len(a.Content)),
			StorageKey: key,
		}); err != nil {
			s.logger.Error("indexAttachment.fail", zap.String("port_id", portID), zap.String("storage_key", key), zap.Error(err))
			return model.InternalError(err)
		}
	}

	return nil
}

func (s *Server) record(
	ctx context.Context,
	portID, xmlMsg string,
	msg *codec.Parsed,
	status model.AckStatus,
	ackText string,
) error {
	receivedAt := s.now().UTC()

	rec := &model.ProtocolMessage{
		PortID:     portID,
		Direction:  model.DirectionIn,
		RawXML:     xmlMsg,
		ReceivedAt: &receivedAt,
		AckStatus:  status,
		AckText:    ackText,
	}

	if msg != nil {
		rec.TypeCode = msg.Type
		rec.Sender = msg.Header.Sender
		rec.ParsedData = msg.Fields()
	}

	rec.IdempotencyKey = soapclient.IdempotencyKey(portID, rec.TypeCode, xmlMsg)

	if err := s.recorder.RecordMessage(ctx, rec); err != nil {
		s.logger.Error("recordInbound.fail", zap.String("port_id", portID), zap.Error(err))
		return model.InternalError(fmt.Errorf("record inbound message: %w", err))
	}

	return nil
}

func (s *Server) reject(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := model.ToError(err)

	code := faultClient
	if apiErr.StatusCode >= http.StatusInternalServerError {
		code = faultServer
	}

	diagnostics.LoggerFromContext(ctx).Warn("inbound message rejected",
		zap.Int("status", apiErr.StatusCode), zap.Error(err))

	s.fault(w, apiErr.StatusCode, code, apiErr.CompleteMessage())
}

func (s *Server) fault(w http.ResponseWriter, status int, code, message string) {
	w.Header().Set("Content-Type", "text/xml; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(buildFault(code, message))
}

func (s *Server) ack(w http.ResponseWriter) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = io.WriteString(w, AckText)
}
