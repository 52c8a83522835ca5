package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"go.uber.org/zap"

	"pushretry/internal/domain"
	"pushretry/internal/port/primary"
)

// ConfigHandler handles GET and PUT /retries/config requests.
type ConfigHandler struct {
	service primary.RetryService
	logger  *zap.Logger
}

// NewConfigHandler creates a handler for retry configuration.
func NewConfigHandler(service primary.RetryService, logger *zap.Logger) *ConfigHandler {
	return &ConfigHandler{
		service: service,
		logger:  logger.Named("config-handler"),
	}
}

// ServeHTTP processes the configuration request.
func (h *ConfigHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		respondJSON(w, http.StatusOK, toConfigResponse(h.service.Config()))
	case http.MethodPut:
		h.update(w, r)
	default:
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		})
	}
}

func (h *ConfigHandler) update(w http.ResponseWriter, r *http.Request) {
	var req ConfigUpdateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: "invalid request body",
			Code:  "INVALID_BODY",
		})
		return
	}

	update, err := req.toUpdate()
	if err != nil {
		respondJSON(w, http.StatusBadRequest, ErrorResponse{
			Error: err.Error(),
			Code:  "VALIDATION_ERROR",
		})
		return
	}

	cfg, err := h.service.UpdateConfig(update)
	if err != nil {
		if errors.Is(err, domain.ErrInvalidConfig) {
			respondJSON(w, http.StatusBadRequest, ErrorResponse{
				Error: err.Error(),
				Code:  "VALIDATION_ERROR",
			})
			return
		}
		h.logger.Error("failed to update retry config", zap.Error(err))
		respondJSON(w, http.StatusInternalServerError, ErrorResponse{
			Error: "internal server error",
			Code:  "INTERNAL_ERROR",
		})
		return
	}

	respondJSON(w, http.StatusOK, toConfigResponse(cfg))
}
