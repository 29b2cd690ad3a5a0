package handler

import (
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
	"github.com/bcnelson/salon-crm/internal/validation"
)

// BranchHandler handles branch endpoints.
type BranchHandler struct {
	store  storage.Storage
	logger *zap.Logger
}

// NewBranchHandler creates a new BranchHandler.
func NewBranchHandler(store storage.Storage, logger *zap.Logger) *BranchHandler {
	return &BranchHandler{store: store, logger: logger}
}

// Create creates a new branch.
func (h *BranchHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateBranchRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	validation.TrimString(&req.Name)
	if err := validate.Struct(req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	branch := &domain.Branch{
		ID:             generateID(),
		OrganizationID: middleware.OrganizationID(r.Context()),
		Name:           req.Name,
		CreatedAt:      time.Now().UTC(),
	}
	if err := h.store.CreateBranch(r.Context(), branch); err != nil {
		handleError(w, h.logger, err)
		return
	}

	respondJSON(w, http.StatusCreated, branch)
}

// List lists the organization's branches.
func (h *BranchHandler) List(w http.ResponseWriter, r *http.Request) {
	branches, err := h.store.ListBranches(r.Context(), middleware.OrganizationID(r.Context()))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, branches)
}
