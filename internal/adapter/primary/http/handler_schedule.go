package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/port/primary"
)

// ScheduleHandler handles POST /retries requests: a sibling service hands
// over a notification that just failed delivery.
type ScheduleHandler struct {
	service primary.RetryService
	logger  *zap.Logger
}

// NewScheduleHandler creates a handler for enqueueing failed notifications.
func NewScheduleHandler(service primary.RetryService, logger *zap.Logger) *ScheduleHandler {
	return &ScheduleHandler{
		service: service,
		logger:  logger.Named("schedule-handler"),
	}
}

// ServeHTTP processes the schedule request.
func (h *ScheduleHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		})
		return
	}

	var req ScheduleRetryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
		return
	}

	rec, err := h.service.ScheduleRetry(r.Context(), req.toEntity())
	if err != nil {
		switch {
		case errors.Is(err, domain.ErrInvalidNotification):
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "VALIDATION_ERROR",
			})
		case errors.Is(err, domain.ErrRetriesExhausted):
			respondJSON(w, http.StatusGone, ErrorResponse{
				Error: err.Error(),
				Code:  "RETRIES_EXHAUSTED",
			})
		default:
			h.logger.Error("failed to schedule retry", zap.Error(err))
			respondJSON(w, http.StatusInternalServerError, ErrorResponse{
				Error: "internal server error",
				Code:  "INTERNAL_ERROR",
			})
		}
		return
	}

	respondJSON(w, http.StatusAccepted, toRecordResponse(rec))
}
