package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/port/primary"
)

// Command actions accepted by POST /retries/commands.
const (
	actionProcessQueue = "process_queue"
	actionClearRetries = "clear_retries"
	actionClearAll     = "clear_all"
)

// CommandHandler handles POST /retries/commands requests.
type CommandHandler struct {
	service primary.RetryService
	logger  *zap.Logger
}

// NewCommandHandler creates a handler for administrative commands.
func NewCommandHandler(service primary.RetryService, logger *zap.Logger) *CommandHandler {
	return &CommandHandler{
		service: service,
		logger:  logger.Named("command-handler"),
	}
}

// ServeHTTP processes the command request.
func (h *CommandHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		})
		return
	}

	var req CommandRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
		return
	}

	switch req.Action {
	case actionProcessQueue:
		h.processQueue(w, r)
	case actionClearRetries:
		h.clearRetries(w, req.ID)
	case actionClearAll:
		respondJSON(w, http.StatusOK, ClearResponse{Cleared: h.service.ClearAll()})
	default:
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "unknown action, expected process_queue, clear_retries, or clear_all",
			Code:  "UNKNOWN_ACTION",
		})
	}
}

func (h *CommandHandler) processQueue(w http.ResponseWriter, r *http.Request) {
	res, err := h.service.ProcessQueue(r.Context())
	if err != nil {
		if errors.Is(err, domain.ErrCycleInProgress) {
			respondJSON(w, http.StatusConflict, ErrorResponse{
				Error: err.Error(),
				Code:  "CYCLE_IN_PROGRESS",
			})
			return
		}
		h.logger.Error("on-demand cycle failed", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	respondJSON(w, http.StatusOK, res)
}

func (h *CommandHandler) clearRetries(w http.ResponseWriter, id string) {
	if id == "" {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "clear_retries requires an id",
			Code:  "MISSING_ID",
		})
		return
	}
	if err := h.service.Clear(id); err != nil {
		if errors.Is(err, domain.ErrRecordNotFound) {
			respondJSON(w, http.StatusNotFound, ErrorResponse{
				Error: err.Error(),
				Code:  "NOT_FOUND",
			})
			return
		}
		h.logger.Error("failed to clear retry", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}
	respondJSON(w, http.StatusOK, ClearResponse{Cleared: 1})
}
