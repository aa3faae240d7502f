package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/resource-booking/internal/application"
)

type recurringService interface {
	CreateRecurringReservation(ctx context.Context, params application.CreateRecurringReservationParams) (application.RecurringReservationResult, error)
	CancelRecurringReservations(ctx context.Context, patternID string) (int, error)
	CancelFutureReservations(ctx context.Context, patternID string) (int, error)
}

// RecurringHandler serves the recurring reservation endpoints.
type RecurringHandler struct {
	service   recurringService
	responder responder
}

func NewRecurringHandler(service recurringService, logger *slog.Logger) *RecurringHandler {
	return &RecurringHandler{service: service, responder: newResponder(logger)}
}

func (h *RecurringHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req recurringRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	result, err := h.service.CreateRecurringReservation(r.Context(), req.toParams())
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toRecurringDTO(result))
}

func (h *RecurringHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	patternID := strings.TrimSpace(chi.URLParam(r, "id"))
	if patternID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidPatternID)
		return
	}

	var (
		cancelled int
		err       error
	)
	if r.URL.Query().Get("future") == "true" {
		cancelled, err = h.service.CancelFutureReservations(r.Context(), patternID)
	} else {
		cancelled, err = h.service.CancelRecurringReservations(r.Context(), patternID)
	}
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, cancelPatternResponse{Cancelled: cancelled})
}

type recurringRequest struct {
	UserID       string            `json:"user_id"`
	ResourceID   string            `json:"resource_id"`
	Frequency    string            `json:"frequency"`
	Interval     int               `json:"interval"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      *time.Time        `json:"end_date,omitempty"`
	Weekdays     []int             `json:"weekdays,omitempty"`
	MaxInstances int               `json:"max_instances,omitempty"`
	StartTime    time.Time         `json:"start_time"`
	EndTime      time.Time         `json:"end_time"`
	Notes        string            `json:"notes,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
}

func (req recurringRequest) toParams() application.CreateRecurringReservationParams {
	return application.CreateRecurringReservationParams{
		UserID:       req.UserID,
		ResourceID:   req.ResourceID,
		Frequency:    req.Frequency,
		Interval:     req.Interval,
		StartDate:    req.StartDate,
		EndDate:      req.EndDate,
		Weekdays:     req.Weekdays,
		MaxInstances: req.MaxInstances,
		DayStart:     req.StartTime,
		DayEnd:       req.EndTime,
		Notes:        req.Notes,
		Metadata:     req.Metadata,
	}
}

type patternDTO struct {
	ID           string            `json:"id"`
	Frequency    string            `json:"frequency"`
	Interval     int               `json:"interval"`
	StartDate    time.Time         `json:"start_date"`
	EndDate      *time.Time        `json:"end_date,omitempty"`
	Weekdays     []int             `json:"weekdays,omitempty"`
	MaxInstances int               `json:"max_instances,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	CreatedAt    time.Time         `json:"created_at"`
}

type skippedOccurrenceDTO struct {
	StartTime time.Time `json:"start_time"`
	EndTime   time.Time `json:"end_time"`
	Reason    string    `json:"reason"`
}

type recurringResponse struct {
	Pattern patternDTO             `json:"pattern"`
	Created []reservationDTO       `json:"created"`
	Skipped []skippedOccurrenceDTO `json:"skipped"`
}

type cancelPatternResponse struct {
	Cancelled int `json:"cancelled"`
}

func toRecurringDTO(result application.RecurringReservationResult) recurringResponse {
	response := recurringResponse{
		Pattern: patternDTO{
			ID:           result.Pattern.ID,
			Frequency:    result.Pattern.Frequency,
			Interval:     result.Pattern.Interval,
			StartDate:    result.Pattern.StartDate,
			EndDate:      result.Pattern.EndDate,
			Weekdays:     result.Pattern.Weekdays,
			MaxInstances: result.Pattern.MaxInstances,
			Metadata:     result.Pattern.Metadata,
			CreatedAt:    result.Pattern.CreatedAt,
		},
		Created: make([]reservationDTO, 0, len(result.Created)),
		Skipped: make([]skippedOccurrenceDTO, 0, len(result.Skipped)),
	}

	for _, reservation := range result.Created {
		response.Created = append(response.Created, toReservationDTO(reservation))
	}
	for _, skipped := range result.Skipped {
		response.Skipped = append(response.Skipped, skippedOccurrenceDTO{
			StartTime: skipped.Start,
			EndTime:   skipped.End,
			Reason:    skipped.Reason,
		})
	}

	return response
}
