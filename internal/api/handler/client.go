package handler

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/service"
	"github.com/bcnelson/salon-crm/internal/validation"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// ClientHandler handles client endpoints.
type ClientHandler struct {
	clients *service.ClientService
	logger  *zap.Logger
}

// NewClientHandler creates a new ClientHandler.
func NewClientHandler(clients *service.ClientService, logger *zap.Logger) *ClientHandler {
	return &ClientHandler{clients: clients, logger: logger}
}

// Overview returns the dashboard summary.
func (h *ClientHandler) Overview(w http.ResponseWriter, r *http.Request) {
	overview, err := h.clients.Overview(r.Context(), middleware.OrganizationID(r.Context()))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, overview)
}

// List searches the client list. Query parameters: search, filter, limit, offset.
func (h *ClientHandler) List(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	params := service.ListParams{
		Search: q.Get("search"),
		Filter: q.Get("filter"),
	}

	var err error
	if params.Limit, err = intParam(q.Get("limit"), "limit"); err != nil {
		handleError(w, h.logger, err)
		return
	}
	if params.Offset, err = intParam(q.Get("offset"), "offset"); err != nil {
		handleError(w, h.logger, err)
		return
	}

	page, err := h.clients.List(r.Context(), middleware.OrganizationID(r.Context()), params)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, page)
}

// Export downloads the filtered client list as a spreadsheet.
func (h *ClientHandler) Export(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	data, err := h.clients.Export(r.Context(), middleware.OrganizationID(r.Context()), q.Get("search"), q.Get("filter"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}

	w.Header().Set("Content-Type", xlsxContentType)
	w.Header().Set("Content-Disposition", `attachment; filename="clients.xlsx"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

// Create creates a client.
func (h *ClientHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateClientRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.clients.Create(r.Context(), middleware.OrganizationID(r.Context()), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, item)
}

// Get returns the detail view of a client.
func (h *ClientHandler) Get(w http.ResponseWriter, r *http.Request) {
	details, err := h.clients.Details(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "client_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, details)
}

// AttachTag links a tag to a client.
func (h *ClientHandler) AttachTag(w http.ResponseWriter, r *http.Request) {
	var req domain.AttachTagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	item, err := h.clients.AttachTag(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "client_id"), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusOK, item)
}

// DetachTag removes a tag from a client.
func (h *ClientHandler) DetachTag(w http.ResponseWriter, r *http.Request) {
	err := h.clients.DetachTag(r.Context(), middleware.OrganizationID(r.Context()),
		chi.URLParam(r, "client_id"), chi.URLParam(r, "tag_id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddAppointment records an appointment.
func (h *ClientHandler) AddAppointment(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateAppointmentRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	appt, err := h.clients.AddAppointment(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "client_id"), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, appt)
}

// CancelAppointment removes an appointment from the client's history.
func (h *ClientHandler) CancelAppointment(w http.ResponseWriter, r *http.Request) {
	err := h.clients.CancelAppointment(r.Context(), middleware.OrganizationID(r.Context()),
		chi.URLParam(r, "client_id"), chi.URLParam(r, "id"))
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// AddReview records a review.
func (h *ClientHandler) AddReview(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateReviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	review, err := h.clients.AddReview(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "client_id"), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, review)
}

// AddInvoice records an invoice.
func (h *ClientHandler) AddInvoice(w http.ResponseWriter, r *http.Request) {
	var req domain.CreateInvoiceRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	invoice, err := h.clients.AddInvoice(r.Context(), middleware.OrganizationID(r.Context()), chi.URLParam(r, "client_id"), req)
	if err != nil {
		handleError(w, h.logger, err)
		return
	}
	respondJSON(w, http.StatusCreated, invoice)
}

// intParam parses an optional non-negative integer query parameter.
func intParam(raw, name string) (int, error) {
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, validation.NewValidationError(name, raw, "must be a non-negative integer")
	}
	return n, nil
}
