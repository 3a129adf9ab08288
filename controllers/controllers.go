package controllers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/blogem/promptforge/encryption"
	"github.com/blogem/promptforge/models"
	"github.com/blogem/promptforge/repositories"
	"github.com/blogem/promptforge/services"
)

const (
	maxBodyBytes = 1 << 20

	// retryAfterSeconds is advertised with 503 responses
	retryAfterSeconds = "5"
)

type errorResponse struct {
	Error errorPayload `json:"error"`
}

type errorPayload struct {
	Code      string   `json:"code"`
	Message   string   `json:"message"`
	Details   []string `json:"details,omitempty"`
	RequestID string   `json:"request_id,omitempty"`
}

// writeJSON encodes payload with the given status code
func writeJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

// writeError writes the error envelope used by every API endpoint
func writeError(w http.ResponseWriter, r *http.Request, status int, code, message string, details ...string) {
	writeJSON(w, status, errorResponse{Error: errorPayload{
		Code:      code,
		Message:   message,
		Details:   details,
		RequestID: middleware.GetReqID(r.Context()),
	}})
}

// mapError translates a service error into an HTTP status and error code
func mapError(err error) (int, string) {
	switch {
	case errors.Is(err, models.ErrValidation):
		return http.StatusBadRequest, "validation_error"
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, models.ErrInvalidCode):
		return http.StatusUnprocessableEntity, "invalid_code"
	case errors.Is(err, encryption.ErrIntegrity):
		return http.StatusBadRequest, "integrity_error"
	case errors.Is(err, models.ErrUpstream):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, models.ErrExportExpired):
		return http.StatusGone, "export_expired"
	case errors.Is(err, models.ErrConflict):
		return http.StatusConflict, "conflict"
	case errors.Is(err, models.ErrUnauthorized):
		return http.StatusUnauthorized, "unauthorized"
	case errors.Is(err, models.ErrUnavailable):
		return http.StatusServiceUnavailable, "unavailable"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

// handleError writes err; internal errors are logged and their text is not exposed
func handleError(w http.ResponseWriter, r *http.Request, logger *zap.Logger, err error) {
	status, code := mapError(err)

	if status == http.StatusInternalServerError {
		logger.Error("request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.Error(err))
		writeError(w, r, status, code, "Internal server error")
		return
	}

	if status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", retryAfterSeconds)
	}

	var ve models.ValidationErrors
	if errors.As(err, &ve) {
		writeError(w, r, status, code, "Validation failed", ve...)
		return
	}

	writeError(w, r, status, code, err.Error())
}

// decodeJSON reads a single JSON value from the request body
func decodeJSON(r *http.Request, v interface{}) error {
	defer r.Body.Close()

	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		return models.ValidationErrors{fmt.Sprintf("Invalid JSON body: %v", err)}
	}
	if dec.More() {
		return models.ValidationErrors{"Invalid JSON body: multiple JSON values"}
	}
	return nil
}

// queryInt parses an optional integer query parameter
func queryInt(r *http.Request, name string) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return 0, nil
	}

	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, models.ValidationErrors{name + " must be a non-negative integer"}
	}
	return n, nil
}

// Controllers holds all controller instances
type Controllers struct {
	Auth      *AuthController
	Dashboard *DashboardController
	Prompts   *PromptController
	Settings  *SettingsController
	Exports   *ExportController
	Deletions *DeletionController
	Webhooks  *WebhookController
	Security  *SecurityController
}

// NewControllers creates and initializes all controller instances
func NewControllers(services *services.Services, repos *repositories.Repositories, logger *zap.Logger) *Controllers {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Controllers{
		Auth:      NewAuthController(repos.Users, logger),
		Dashboard: NewDashboardController(services, logger),
		Prompts:   NewPromptController(services, logger),
		Settings:  NewSettingsController(services, logger),
		Exports:   NewExportController(services, logger),
		Deletions: NewDeletionController(services, logger),
		Webhooks:  NewWebhookController(services, logger),
		Security:  NewSecurityController(logger),
	}
}
