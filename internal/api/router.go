package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/bcnelson/salon-crm/internal/api/handler"
	"github.com/bcnelson/salon-crm/internal/api/middleware"
	"github.com/bcnelson/salon-crm/internal/metrics"
	"github.com/bcnelson/salon-crm/internal/service"
	"github.com/bcnelson/salon-crm/internal/storage"
)

// Options configure the router. Metrics may be nil to disable /metrics.
type Options struct {
	Store    storage.Storage
	Clients  *service.ClientService
	Tags     *service.TagService
	Metrics  *metrics.Metrics
	Logger   *zap.Logger
	AdminKey string
}

// NewRouter creates a new HTTP router with all routes configured.
func NewRouter(opts Options) http.Handler {
	store, logger := opts.Store, opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := chi.NewRouter()

	// Global middleware
	r.Use(chimw.RequestID)
	r.Use(chimw.Recoverer)
	r.Use(middleware.Logging(logger))
	if opts.Metrics != nil {
		r.Use(middleware.Metrics(opts.Metrics))
		r.Handle("/metrics", promhttp.HandlerFor(opts.Metrics.Registry, promhttp.HandlerOpts{}))
	}

	// Health check (no auth required)
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(middleware.ContentType)

		// Tenant provisioning
		r.Route("/admin", func(r chi.Router) {
			r.Use(middleware.Admin(opts.AdminKey))

			orgHandler := handler.NewOrganizationHandler(store, logger)
			r.Post("/organizations", orgHandler.Create)
			r.Get("/organizations", orgHandler.List)
			r.Post("/organizations/{org_id}/keys", orgHandler.CreateKey)
		})

		// Organization-scoped routes
		r.Group(func(r chi.Router) {
			r.Use(middleware.Auth(store, logger))

			// API Keys
			keyHandler := handler.NewAPIKeyHandler(store, logger)
			r.Post("/keys", keyHandler.Create)
			r.Get("/keys", keyHandler.List)
			r.Delete("/keys/{id}", keyHandler.Delete)

			// Branches
			branchHandler := handler.NewBranchHandler(store, logger)
			r.Post("/branches", branchHandler.Create)
			r.Get("/branches", branchHandler.List)

			// Tags
			tagHandler := handler.NewTagHandler(opts.Tags, logger)
			r.Post("/tags", tagHandler.Create)
			r.Get("/tags", tagHandler.List)
			r.Get("/tags/{tag_id}", tagHandler.Get)
			r.Put("/tags/{tag_id}", tagHandler.Update)
			r.Delete("/tags/{tag_id}", tagHandler.Delete)

			// Clients
			clientHandler := handler.NewClientHandler(opts.Clients, logger)
			r.Get("/clients/overview", clientHandler.Overview)
			r.Get("/clients/export", clientHandler.Export)
			r.Get("/clients", clientHandler.List)
			r.Post("/clients", clientHandler.Create)
			r.Route("/clients/{client_id}", func(r chi.Router) {
				r.Get("/", clientHandler.Get)
				r.Post("/tags", clientHandler.AttachTag)
				r.Delete("/tags/{tag_id}", clientHandler.DetachTag)
				r.Post("/appointments", clientHandler.AddAppointment)
				r.Delete("/appointments/{id}", clientHandler.CancelAppointment)
				r.Post("/reviews", clientHandler.AddReview)
				r.Post("/invoices", clientHandler.AddInvoice)
			})
		})
	})

	return r
}
