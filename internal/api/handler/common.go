package handler

import (
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/validation"
)

var validate = validation.New()

// respondJSON writes a JSON response.
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if data != nil {
		_ = json.NewEncoder(w).Encode(data)
	}
}

// respondStandardError writes the JSON error envelope.
func respondStandardError(w http.ResponseWriter, status int, code, message, field string, details map[string]any) {
	respondJSON(w, status, &domain.StandardErrorResponse{
		Error: domain.StandardError{
			Code:    code,
			Message: message,
			Field:   field,
			Details: details,
		},
	})
}

// respondError writes a JSON error response.
func respondError(w http.ResponseWriter, status int, message string) {
	code := domain.ErrCodeInternalError
	switch status {
	case http.StatusBadRequest:
		code = domain.ErrCodeInvalidInput
	case http.StatusNotFound:
		code = domain.ErrCodeResourceNotFound
	case http.StatusConflict:
		code = domain.ErrCodeResourceAlreadyExists
	case http.StatusUnauthorized:
		code = domain.ErrCodeUnauthorized
	}
	respondStandardError(w, status, code, message, "", nil)
}

// handleError converts domain errors to HTTP errors. Unexpected errors are logged.
func handleError(w http.ResponseWriter, logger *zap.Logger, err error) {
	var fieldErrs validation.ValidationErrors
	var fieldErr *validation.ValidationError
	switch {
	case errors.As(err, &fieldErrs):
		respondValidationErrors(w, fieldErrs)
	case errors.As(err, &fieldErr):
		respondValidationErrors(w, validation.ValidationErrors{fieldErr})
	case errors.Is(err, domain.ErrNotFound):
		respondError(w, http.StatusNotFound, "not found")
	case errors.Is(err, domain.ErrAlreadyExists):
		respondError(w, http.StatusConflict, "already exists")
	case errors.Is(err, domain.ErrInvalidInput):
		respondError(w, http.StatusBadRequest, "invalid input")
	case errors.Is(err, domain.ErrUnauthorized):
		respondError(w, http.StatusUnauthorized, "unauthorized")
	default:
		logger.Error("request failed", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
	}
}

// respondValidationErrors writes a 400 listing every invalid field.
func respondValidationErrors(w http.ResponseWriter, errs validation.ValidationErrors) {
	field := ""
	if len(errs) == 1 {
		field = errs[0].Field
	}
	respondStandardError(w, http.StatusBadRequest, domain.ErrCodeValidationError, errs.Error(), field,
		map[string]any{"errors": errs})
}

// decodeJSON decodes JSON from request body.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return domain.ErrInvalidInput
	}
	return nil
}

// generateID generates a new UUID.
func generateID() string {
	return uuid.New().String()
}

// generateAPIKey generates a new random API key.
func generateAPIKey() (key string, hash string, prefix string, err error) {
	// Generate 32 random bytes for the key
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", "", "", err
	}

	key = "crm_" + hex.EncodeToString(bytes)
	hash = middleware.HashAPIKey(key)
	prefix = key[:12] // "crm_" + first 8 chars of hex

	return key, hash, prefix, nil
}
