package handler

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
	"github.com/bcnelson/salon-crm/internal/validation"
)

const defaultAPIKeyName = "default"

// OrganizationHandler handles the admin endpoints that provision tenants.
type OrganizationHandler struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewOrganizationHandler creates a new OrganizationHandler.
func NewOrganizationHandler(store storage.Storage, logger *zap.Logger) *OrganizationHandler {
	return &OrganizationHandler{store: store, logger: logger}
}

// Create creates an organization together with its first API key.
func (h *OrganizationHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateOrganizationRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	validation.TrimString(&req.Name)
	validation.TrimString(&req.APIKeyName)
	if err := validate.Struct(req); err != nil {
		handleError(w, h.logger, err)
		return
	}
	if req.APIKeyName == "" {
		req.APIKeyName = defaultAPIKeyName
	}

	ctx := r.Context()
	org := &domain.Organization{
		ID:        generateID(),
		Name:      req.Name,
		CreatedAt: time.Now().UTC(),
	}

	tx, err := h.store.BeginTx(ctx)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.CreateOrganization(ctx, org); err != nil {
		handleError(w, h.logger, err)
		return
	}
	key, err := issueAPIKey(ctx, tx, org.ID, req.APIKeyName)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	if err := tx.Commit(); err != nil {
		handleError(w, h.logger, err)
		return
	}

	h.logger.Info("organization created", zap.String("organization_id", org.ID))
	respondJSON(w, http.StatusCreated, &domain.CreateOrganizationResponse{
		Organization: org,
		APIKey:       *key,
	})
}

// List lists all organizations.
func (h *OrganizationHandler) List(w http.ResponseWriter, r *http.Request) {
	orgs, err := h.store.ListOrganizations(r.Context())
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, orgs)
}

// CreateKey issues an additional API key for an organization.
func (h *OrganizationHandler) CreateKey(w http.ResponseWriter, r *http.Request) {
	orgID := chi.URLParam(r, "org_id")
	if _, err := h.store.GetOrganization(r.Context(), orgID); err != nil {
		handleError(w, h.logger, err)
		return
	}

	var req domain.CreateAPIKeyRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	resp, err := issueAPIKey(r.Context(), h.store, orgID, req.Name)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, resp)
}
