package http

import (
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/port/primary"
)

// QueryHandler handles GET /retries requests. Without an id parameter it
// returns queue statistics; with one, the status of that notification.
type QueryHandler struct {
	service primary.RetryService
	logger  *zap.Logger
}

// NewQueryHandler creates a handler for retry queries.
func NewQueryHandler(service primary.RetryService, logger *zap.Logger) *QueryHandler {
	return &QueryHandler{
		service: service,
		logger:  logger.Named("query-handler"),
	}
}

// ServeHTTP processes the query request.
func (h *QueryHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		})
		return
	}

	id := r.URL.Query().Get("id")
	if id == "" {
		respondJSON(w, http.StatusOK, StatisticsResponse{
			Queue:   h.service.Statistics(),
			Breaker: toBreakerResponse(h.service.BreakerState()),
		})
		return
	}

	rec, err := h.service.Status(id)
	if err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			respondJSON(w, http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.logger.Error("failed to query retry status", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	respondJSON(w, http.StatusOK, toRecordResponse(rec))
}
