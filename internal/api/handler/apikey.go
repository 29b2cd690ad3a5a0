package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
	"github.com/bcnelson/salon-crm/internal/validation"
)

// APIKeyHandler handles API key endpoints of the caller's organization.
type APIKeyHandler struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewAPIKeyHandler creates a new APIKeyHandler.
func NewAPIKeyHandler(store storage.Storage, logger *zap.Logger) *APIKeyHandler {
	return &APIKeyHandler{store: store, logger: logger}
}

// Create creates a new API key.
func (h *APIKeyHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := issueAPIKey(r.Context(), h.store, middleware.OrganizationID(r.Context()), req.Name)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}

// List lists the organization's API keys (without the actual key values).
func (h *APIKeyHandler) List(w http.ResponseWriter, r *http.Request) {
	keys, err := h.store.ListAPIKeys(r.Context(), middleware.OrganizationID(r.Context()))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusOK, keys)
}

// Delete deletes an API key.
func (h *APIKeyHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if id == "" {
		respondError(w, http.StatusBadRequest, "id is required")
		return
	}

	if err := h.store.DeleteAPIKey(r.Context(), middleware.OrganizationID(r.Context()), id); err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// issueAPIKey creates a key for orgID. The plain key is only ever returned here.
func issueAPIKey(ctx context.Context, store storage.Storage, orgID, name string) (*domain.CreateAPIKeyResponse, error) {
	req := domain.CreateAPIKeyRequest{Name: name}
	validation.TrimString(&req.Name)
	if err := validate.Struct(req); err != nil {
		return nil, err
	}

	key, hash, prefix, err := generateAPIKey()
	if err != nil {
		return nil, err
	}

	apiKey := &domain.APIKey{
		ID:             generateID(),
		OrganizationID: orgID,
		Name:           req.Name,
		KeyHash:        hash,
		KeyPrefix:      prefix,
		CreatedAt:      time.Now().UTC(),
	}
	if err := store.CreateAPIKey(ctx, apiKey); err != nil {
		return nil, err
	}

	return &domain.CreateAPIKeyResponse{
		ID:             apiKey.ID,
		OrganizationID: orgID,
		Name:           apiKey.Name,
		Key:            key,
		KeyPrefix:      apiKey.KeyPrefix,
		CreatedAt:      apiKey.CreatedAt,
	}, nil
}
