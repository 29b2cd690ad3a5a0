package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/service"
)

// TagHandler handles tag endpoints.
type TagHandler struct {
	tags   *service.TagService
	logger *zap.Logger
}

// NewTagHandler creates a new TagHandler.
func NewTagHandler(tags *service.TagService, logger *zap.Logger) *TagHandler {
	return &TagHandler{tags: tags, logger: logger}
}

// Create creates a new tag.
func (h *TagHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateTagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	tag, err := h.tags.Create(r.Context(), middleware.OrganizationID(r.Context()), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	SetTagETag(w, tag)
	respondJSON(w, http.StatusCreated, tag)
}

// List lists the organization's live tags.
func (h *TagHandler) List(w http.ResponseWriter, r *http.Request) {
	tags, err := h.tags.List(r.Context(), middleware.OrganizationID(r.Context()))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, tags)
}

// Get gets a tag by ID.
func (h *TagHandler) Get(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tags.Get(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "tag_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	SetTagETag(w, tag)
	respondJSON(w, http.StatusOK, tag)
}

// Update renames or recolors a tag. An If-Match header must carry the current ETag when present.
func (h *TagHandler) Update(w http.ResponseWriter, r *http.Request) {
	tag, err := h.tags.Get(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "tag_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	if !CheckTagIfMatch(r, tag) {
		RespondPreconditionFailed(w, "tag", tag.ID, tag.UpdatedAt)
		return
	}

	var req domain.UpdateTagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if err := h.tags.Update(r.Context(), tag, req); err != nil {
		handleError(w, h.logger, err)
		return
	}

	SetTagETag(w, tag)
	respondJSON(w, http.StatusOK, tag)
}

// Delete soft-deletes a tag and detaches it from every client.
func (h *TagHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.tags.Delete(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "tag_id")); err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
