// Package api is the operator REST surface that starts outbound portability flows.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
	"github.com/Ometra-Hela/Alize/internal/service/portability"
)

const (
	serverLogName = "http-server"

	maxRequestBytes = 1 << 20
	pingTimeout     = 3 * time.Second
)

// HealthCheck probes one dependency for /healthz.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

type Server struct {
	service portability.IPortabilityService
	checks  []HealthCheck
	logger  *zap.Logger
}

func NewServer(service portability.IPortabilityService, logger *zap.Logger, checks ...HealthCheck) *Server {
	return &Server{
		service: service,
		checks:  checks,
		logger:  logger.Named(serverLogName),
	}
}

// Routes builds the router. extra mounts additional handlers, such as the SOAP
// listener, on the same router.
func (s *Server) Routes(extra ...func(chi.Router)) http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.withLogger)

	r.Get("/healthz", s.healthz)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/portabilities", s.initiate)
		r.Get("/portabilities/{portId}", s.get)
		r.Post("/portabilities/{portId}/schedule", s.schedule)
		r.Post("/portabilities/{portId}/cancel", s.cancel)
		r.Post("/portabilities/{portId}/reversal", s.reversal)
		r.Post("/pin-requests", s.requestPIN)
	})

	for _, mount := range extra {
		mount(r)
	}

	return r
}

func (s *Server) withLogger(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		started := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		logger := s.logger.With(zap.String("request_id", middleware.GetReqID(r.Context())))
		ctx := diagnostics.ContextWithLogger(r.Context(), logger)

		next.ServeHTTP(ww, r.WithContext(ctx))

		logger.Debug("request served",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.Int("status", ww.Status()),
			zap.Duration("duration", time.Since(started)))
	})
}

func (s *Server) initiate(w http.ResponseWriter, r *http.Request) {
	var req model.InitiateRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	p, err := s.service.Initiate(r.Context(), &req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapPortability(p))
}

func (s *Server) get(w http.ResponseWriter, r *http.Request) {
	details, err := s.service.Get(r.Context(), chi.URLParam(r, "portId"))
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapDetails(details))
}

func (s *Server) schedule(w http.ResponseWriter, r *http.Request) {
	var req model.ScheduleRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	p, err := s.service.Schedule(r.Context(), chi.URLParam(r, "portId"), &req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPortability(p))
}

// cancel answers 202: the case changes state only when the clearinghouse accepts.
func (s *Server) cancel(w http.ResponseWriter, r *http.Request) {
	var req model.CancelRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	p, err := s.service.Cancel(r.Context(), chi.URLParam(r, "portId"), &req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusAccepted, mapPortability(p))
}

func (s *Server) reversal(w http.ResponseWriter, r *http.Request) {
	var req model.ReversalRequest
	if err := decodeBody(r, &req, true); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	p, err := s.service.RequestReversal(r.Context(), chi.URLParam(r, "portId"), &req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusOK, mapPortability(p))
}

func (s *Server) requestPIN(w http.ResponseWriter, r *http.Request) {
	var req model.PinRequest
	if err := decodeBody(r, &req, false); err != nil {
		writeError(r.Context(), w, err)
		return
	}

	p, err := s.service.RequestPIN(r.Context(), &req)
	if err != nil {
		writeError(r.Context(), w, err)
		return
	}

	writeJSON(w, http.StatusCreated, mapPortability(p))
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (s *Server) healthz(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(s.checks))}
	status := http.StatusOK

	for _, c := range s.checks {
		ctx, cancel := context.WithTimeout(r.Context(), pingTimeout)
		err := c.Check(ctx)
		cancel()

		if err != nil {
			resp.Status = "degraded"
			resp.Checks[c.Name] = err.Error()
			status = http.StatusServiceUnavailable

			continue
		}

		resp.Checks[c.Name] = "ok"
	}

	writeJSON(w, status, resp)
}

// decodeBody reads a JSON request body. Unknown fields are rejected; an empty body
// is accepted only when optional is set.
func decodeBody(r *http.Request, dst any, optional bool) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxRequestBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) && optional {
			return nil
		}

		if errors.Is(err, io.EOF) {
			return model.NewValidationError("request body is required")
		}

		return model.NewValidationError("malformed request body: %v", err)
	}

	return nil
}
