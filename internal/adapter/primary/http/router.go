package http

import (
	"net/http"

	"go.uber.org/zap"

	"pushretry/internal/port/primary"
	"pushretry/internal/port/secondary"
)

// NewRouter creates an HTTP mux with all application routes registered.
func NewRouter(
	retryService primary.RetryService,
	healthChecks []secondary.HealthChecker,
	logger *zap.Logger,
) http.Handler {
	mux := http.NewServeMux()

	// Retry endpoints
	scheduleHandler := NewScheduleHandler(retryService, logger)
	queryHandler := NewQueryHandler(retryService, logger)
	mux.Handle("/retries", methodSwitch{
		get:  queryHandler,
		post: scheduleHandler,
	})
	mux.Handle("/retries/commands", NewCommandHandler(retryService, logger))
	mux.Handle("/retries/config", NewConfigHandler(retryService, logger))

	// Health check endpoint
	mux.Handle("/health", NewHealthHandler(healthChecks))

	return mux
}

// methodSwitch routes GET and POST for one path to different handlers.
type methodSwitch struct {
	get  http.Handler
	post http.Handler
}

func (m methodSwitch) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		m.get.ServeHTTP(w, r)
	case http.MethodPost:
		m.post.ServeHTTP(w, r)
	default:
		respondJSON(w, http.StatusMethodNotAllowed, ErrorResponse{
			Error: "method not allowed",
			Code:  "METHOD_NOT_ALLOWED",
		})
	}
}
