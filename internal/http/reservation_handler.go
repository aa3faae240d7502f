package http

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/example/resource-booking/internal/application"
)

type reservationService interface {
	CreateReservation(ctx context.Context, params application.CreateReservationParams) (application.Reservation, error)
	CancelReservation(ctx context.Context, reservationID, actingUserID string) (application.Reservation, error)
	ConfirmReservation(ctx context.Context, reservationID, approverID string) (application.Reservation, error)
	CheckAvailability(ctx context.Context, resourceID string, start, end time.Time) (bool, error)
	ListUserActiveReservations(ctx context.Context, userID string) ([]application.Reservation, error)
}

// ReservationHandler serves the single reservation endpoints.
type ReservationHandler struct {
	service   reservationService
	responder responder
}

func NewReservationHandler(service reservationService, logger *slog.Logger) *ReservationHandler {
	return &ReservationHandler{service: service, responder: newResponder(logger)}
}

func (h *ReservationHandler) Create(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	var req reservationRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.CreateReservation(r.Context(), application.CreateReservationParams{
		UserID:     req.UserID,
		ResourceID: req.ResourceID,
		Start:      req.StartTime,
		End:        req.EndTime,
		Notes:      req.Notes,
		Metadata:   req.Metadata,
	})
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusCreated, toReservationDTO(reservation))
}

func (h *ReservationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID := strings.TrimSpace(chi.URLParam(r, "id"))
	if reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.CancelReservation(r.Context(), reservationID, req.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Confirm(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	reservationID := strings.TrimSpace(chi.URLParam(r, "id"))
	if reservationID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidReservationID)
		return
	}

	var req statusChangeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errBadRequestBody)
		return
	}

	reservation, err := h.service.ConfirmReservation(r.Context(), reservationID, req.UserID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, toReservationDTO(reservation))
}

func (h *ReservationHandler) Availability(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	resourceID := strings.TrimSpace(chi.URLParam(r, "id"))
	if resourceID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidResourceID)
		return
	}

	start, end, err := parseWindowQuery(r.URL.Query())
	if err != nil {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, err)
		return
	}

	available, err := h.service.CheckAvailability(r.Context(), resourceID, start, end)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, availabilityResponse{
		ResourceID: resourceID,
		StartTime:  start,
		EndTime:    end,
		Available:  available,
	})
}

func (h *ReservationHandler) ListActive(w http.ResponseWriter, r *http.Request) {
	if h == nil || h.service == nil {
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	userID := strings.TrimSpace(chi.URLParam(r, "id"))
	if userID == "" {
		h.responder.writeError(r.Context(), w, http.StatusBadRequest, errInvalidUserID)
		return
	}

	reservations, err := h.service.ListUserActiveReservations(r.Context(), userID)
	if err != nil {
		h.responder.handleServiceError(r.Context(), w, err)
		return
	}

	dtos := make([]reservationDTO, 0, len(reservations))
	for _, reservation := range reservations {
		dtos = append(dtos, toReservationDTO(reservation))
	}

	h.responder.writeJSON(r.Context(), w, http.StatusOK, reservationListResponse{Reservations: dtos})
}

func parseWindowQuery(values url.Values) (time.Time, time.Time, error) {
	start, err := time.Parse(time.RFC3339, values.Get("start"))
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	end, err := time.Parse(time.RFC3339, values.Get("end"))
	if err != nil {
		return time.Time{}, time.Time{}, errInvalidWindow
	}
	return start, end, nil
}

type reservationRequest struct {
	UserID     string            `json:"user_id"`
	ResourceID string            `json:"resource_id"`
	StartTime  time.Time         `json:"start_time"`
	EndTime    time.Time         `json:"end_time"`
	Notes      string            `json:"notes,omitempty"`
	Metadata   map[string]string `json:"metadata,omitempty"`
}

type statusChangeRequest struct {
	UserID string `json:"user_id"`
}

type reservationDTO struct {
	ID                 string            `json:"id"`
	UserID             string            `json:"user_id"`
	ResourceID         string            `json:"resource_id"`
	StartTime          time.Time         `json:"start_time"`
	EndTime            time.Time         `json:"end_time"`
	Status             string            `json:"status"`
	Notes              string            `json:"notes,omitempty"`
	Metadata           map[string]string `json:"metadata,omitempty"`
	RecurringPatternID string            `json:"recurring_pattern_id,omitempty"`
	ConfirmationCode   string            `json:"confirmation_code,omitempty"`
	CreatedAt          time.Time         `json:"created_at"`
	UpdatedAt          time.Time         `json:"updated_at"`
}

func toReservationDTO(reservation application.Reservation) reservationDTO {
	return reservationDTO{
		ID:                 reservation.ID,
		UserID:             reservation.UserID,
		ResourceID:         reservation.ResourceID,
		StartTime:          reservation.Start,
		EndTime:            reservation.End,
		Status:             string(reservation.Status),
		Notes:              reservation.Notes,
		Metadata:           reservation.Metadata,
		RecurringPatternID: reservation.RecurringPatternID,
		ConfirmationCode:   reservation.ConfirmationCode,
		CreatedAt:          reservation.CreatedAt,
		UpdatedAt:          reservation.UpdatedAt,
	}
}

type availabilityResponse struct {
	ResourceID string    `json:"resource_id"`
	StartTime  time.Time `json:"start_time"`
	EndTime    time.Time `json:"end_time"`
	Available  bool      `json:"available"`
}

type reservationListResponse struct {
	Reservations []reservationDTO `json:"reservations"`
}
