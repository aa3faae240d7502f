package http

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/example/resource-booking/internal/application"
	"github.com/example/resource-booking/internal/logging"
	"github.com/example/resource-booking/internal/policy"
)

var (
	errBadRequestBody       = errors.New("the request body is not valid JSON")
	errInvalidReservationID = errors.New("a reservation id is required")
	errInvalidResourceID    = errors.New("a resource id is required")
	errInvalidUserID        = errors.New("a user id is required")
	errInvalidPatternID     = errors.New("a pattern id is required")
	errInvalidWindow        = errors.New("start and end must be RFC 3339 timestamps")
)

type responder struct {
	logger *slog.Logger
}

func newResponder(logger *slog.Logger) responder {
	if logger == nil {
		logger = slog.Default()
	}
	return responder{logger: logger}
}

func (r responder) writeJSON(ctx context.Context, w http.ResponseWriter, status int, payload any) {
	if w == nil {
		return
	}

	if status == http.StatusNoContent || payload == nil {
		w.WriteHeader(status)
		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		logging.OrDefault(ctx, r.logger).ErrorContext(ctx, "failed to encode response", "error", err)
	}
}

func (r responder) writeError(ctx context.Context, w http.ResponseWriter, status int, err error) {
	message := http.StatusText(status)
	if err != nil {
		if msg := strings.TrimSpace(err.Error()); msg != "" {
			message = msg
		}
		logging.OrDefault(ctx, r.logger).ErrorContext(ctx, "request failed", "status", status, "error", err)
	}

	r.writeJSON(ctx, w, status, errorResponse{Message: message})
}

func (r responder) handleServiceError(ctx context.Context, w http.ResponseWriter, err error) {
	if err == nil {
		r.writeError(ctx, w, http.StatusInternalServerError, errors.New("unknown error"))
		return
	}

	var vErr *application.ValidationError
	switch {
	case errors.Is(err, application.ErrNotFound):
		r.writeJSON(ctx, w, http.StatusNotFound, errorResponse{Message: "the requested resource was not found"})
	case errors.Is(err, application.ErrConflict):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "RESERVATION_CONFLICT",
			Message:   "the resource is not available for the requested time window",
		})
	case errors.Is(err, application.ErrIllegalStateTransition):
		r.writeJSON(ctx, w, http.StatusConflict, errorResponse{
			ErrorCode: "ILLEGAL_STATE_TRANSITION",
			Message:   "the reservation status does not allow this operation",
		})
	case errors.As(err, &vErr):
		r.writeJSON(ctx, w, http.StatusUnprocessableEntity, errorResponse{
			ErrorCode: "VALIDATION_FAILED",
			Message:   vErr.Error(),
			Details:   validationDetails(vErr),
		})
	case errors.Is(err, policy.ErrUnknownPolicy):
		logging.OrDefault(ctx, r.logger).ErrorContext(ctx, "policy resolution failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "the resource is misconfigured"})
	default:
		logging.OrDefault(ctx, r.logger).ErrorContext(ctx, "request failed", "error", err)
		r.writeJSON(ctx, w, http.StatusInternalServerError, errorResponse{Message: "an internal error occurred"})
	}
}

func validationDetails(vErr *application.ValidationError) map[string]string {
	if vErr == nil {
		return nil
	}

	details := make(map[string]string, 2)
	if vErr.Policy != "" {
		details["policy"] = vErr.Policy
	}
	if vErr.Rule != "" {
		details["rule"] = vErr.Rule
	}
	if len(details) == 0 {
		return nil
	}
	return details
}

type errorResponse struct {
	ErrorCode string            `json:"error_code,omitempty"`
	Message   string            `json:"message"`
	Details   map[string]string `json:"details,omitempty"`
}
