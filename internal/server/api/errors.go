package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"github.com/Ometra-Hela/Alize/internal/diagnostics"
	"github.com/Ometra-Hela/Alize/internal/model"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// statusOf maps the error taxonomy onto HTTP. Configuration failures surface as 500.
func statusOf(err *model.Error) int {
	switch {
	case errors.Is(err, model.ErrValidation):
		return http.StatusBadRequest
	case errors.Is(err, model.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, model.ErrTransition):
		return http.StatusConflict
	case errors.Is(err, model.ErrCircuitOpen):
		return http.StatusServiceUnavailable
	case errors.Is(err, model.ErrTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func writeError(ctx context.Context, w http.ResponseWriter, err error) {
	apiErr := model.ToError(err)
	status := statusOf(apiErr)

	if status == http.StatusInternalServerError {
		log := diagnostics.LoggerFromContext(ctx).Named(serverLogName)
		log.Error("unexpected error occurred", zap.Error(err))
	}

	writeJSON(w, status, ErrorResponse{Code: apiErr.Code, Message: apiErr.CompleteMessage()})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(body)
}
