package service

import (
	"context"
	"errors"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/bcnelson/salon-crm/internal/cache"
	"github.com/bcnelson/salon-crm/internal/clientview"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/export"
	"github.com/bcnelson/salon-crm/internal/notify"
	"github.com/bcnelson/salon-crm/internal/validation"
)

// Paging limits of the client list.
const (
	DefaultPageSize = 50
	MaxPageSize     = 200
)

// RecentActivityLimit is the number of history entries returned with client details.
const RecentActivityLimit = 10

// ListParams selects and pages the client list.
type ListParams struct {
	Search string
	Filter string
	Limit  int
	Offset int
}

// ClientService implements the client use cases.
type ClientService struct {
	base
}

// NewClientService creates a new ClientService.
func NewClientService(deps Deps) *ClientService {
	return &ClientService{base: newBase(deps)}
}

// Overview returns the dashboard summary of an organization, served from the cache when possible.
func (s *ClientService) Overview(ctx context.Context, orgID string) (_ *domain.Overview, err error) {
	ctx, span := startSpan(ctx, "clients.overview", orgID)
	defer func() { endSpan(span, err) }()

	cached, cacheErr := s.cache.Get(ctx, orgID)
	switch {
	case cacheErr == nil:
		s.metrics.ObserveCache("hit")
		span.SetAttributes(attribute.Bool("crm.cache_hit", true))
		return cached, nil
	case errors.Is(cacheErr, cache.ErrMiss):
		s.metrics.ObserveCache("miss")
	default:
		s.metrics.ObserveCache("error")
		s.logger.Warn("overview cache read failed", zap.String("organization_id", orgID), zap.Error(cacheErr))
	}

	projections, err := s.store.ListClientProjections(ctx, orgID)
	if err != nil {
		return nil, err
	}
	overview := clientview.ComputeOverview(projections)

	if err := s.cache.Set(ctx, orgID, &overview); err != nil {
		s.logger.Warn("overview cache write failed", zap.String("organization_id", orgID), zap.Error(err))
	}
	return &overview, nil
}

// List searches and filters the clients of an organization and returns one page of the result.
func (s *ClientService) List(ctx context.Context, orgID string, params ListParams) (_ *domain.ClientPage, err error) {
	ctx, span := startSpan(ctx, "clients.list", orgID)
	defer func() { endSpan(span, err) }()

	items, filtered, err := s.search(ctx, orgID, params.Search, params.Filter)
	if err != nil {
		return nil, err
	}
	s.metrics.ObserveSearch(filtered)

	limit := params.Limit
	if limit <= 0 {
		limit = DefaultPageSize
	}
	if limit > MaxPageSize {
		limit = MaxPageSize
	}
	offset := params.Offset
	if offset < 0 {
		offset = 0
	}

	page := &domain.ClientPage{
		Items:  []domain.ClientListItem{},
		Total:  len(items),
		Limit:  limit,
		Offset: offset,
	}
	if offset < len(items) {
		end := min(offset+limit, len(items))
		page.Items = items[offset:end]
	}
	span.SetAttributes(attribute.Int("crm.result_count", page.Total))
	return page, nil
}

// Export renders every client matching search and filter as an xlsx workbook.
func (s *ClientService) Export(ctx context.Context, orgID, search, filter string) (_ []byte, err error) {
	ctx, span := startSpan(ctx, "clients.export", orgID)
	defer func() { endSpan(span, err) }()

	items, _, err := s.search(ctx, orgID, search, filter)
	if err != nil {
		return nil, err
	}
	return export.ClientsXLSX(items)
}

// search loads the organization's clients and tags concurrently, then applies the text query
// and the status filter token.
func (s *ClientService) search(ctx context.Context, orgID, query, token string) ([]domain.ClientListItem, bool, error) {
	var (
		projections []domain.ClientProjection
		tags        []*domain.Tag
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projections, err = s.store.ListClientProjections(gctx, orgID)
		return err
	})
	g.Go(func() error {
		var err error
		tags, err = s.store.ListTags(gctx, orgID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, false, err
	}

	orgTags := make([]domain.Tag, len(tags))
	for i, tag := range tags {
		orgTags[i] = *tag
	}
	filter := clientview.ResolveFilter(token, orgTags)
	return clientview.Search(projections, query, filter), filter != nil, nil
}

// Details returns the detail view of one client.
func (s *ClientService) Details(ctx context.Context, orgID, clientID string) (_ *domain.ClientDetails, err error) {
	ctx, span := startSpan(ctx, "clients.details", orgID)
	defer func() { endSpan(span, err) }()

	var (
		projection *domain.ClientProjection
		activity   []domain.ActivityEntry
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		projection, err = s.store.GetClientProjection(gctx, orgID, clientID)
		return err
	})
	g.Go(func() error {
		var err error
		activity, err = s.store.ListRecentActivity(gctx, orgID, clientID, RecentActivityLimit)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if activity == nil {
		activity = []domain.ActivityEntry{}
	}
	return &domain.ClientDetails{
		ClientListItem: clientview.ListItem(*projection),
		TotalVisits:    projection.TotalVisits,
		Satisfaction:   projection.Satisfaction,
		RecentActivity: activity,
	}, nil
}

// Create registers a client, optionally attaching an initial tag in the same transaction.
func (s *ClientService) Create(ctx context.Context, orgID string, req domain.CreateClientRequest) (_ *domain.ClientListItem, err error) {
	ctx, span := startSpan(ctx, "clients.create", orgID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(&req.FirstName)
	validation.TrimString(&req.LastName)
	validation.TrimString(&req.Phone)
	validation.TrimOptional(&req.Email)
	validation.TrimOptional(&req.TagID)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}

	// The tag is checked before the transaction opens. The memory store does not undo
	// writes on Rollback, so a bad tag must never reach tx.CreateClient.
	if req.TagID != nil {
		if err := s.requireTag(ctx, orgID, *req.TagID); err != nil {
			return nil, err
		}
	}

	now := s.now()
	client := &domain.Client{
		ID:             s.newID(),
		OrganizationID: orgID,
		FirstName:      req.FirstName,
		LastName:       req.LastName,
		Phone:          req.Phone,
		Email:          req.Email,
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.CreateClient(ctx, client); err != nil {
		return nil, err
	}
	if req.TagID != nil {
		link := &domain.ClientTagLink{
			ID:             s.newID(),
			OrganizationID: orgID,
			ClientID:       client.ID,
			TagID:          *req.TagID,
			CreatedAt:      now,
		}
		if err := tx.CreateClientTagLink(ctx, link); err != nil {
			return nil, err
		}
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.metrics.ClientsCreated.Inc()
	s.invalidate(ctx, orgID)
	s.publish(ctx, notify.EventClientCreated, orgID, client.ID)
	s.logger.Info("client created",
		zap.String("organization_id", orgID),
		zap.String("client_id", client.ID))

	return s.listItem(ctx, orgID, client.ID)
}

// requireTag reports a tag id that is unknown to the organization as invalid input.
func (s *ClientService) requireTag(ctx context.Context, orgID, tagID string) error {
	_, err := s.store.GetTag(ctx, orgID, tagID)
	if errors.Is(err, domain.ErrNotFound) {
		return validation.NewValidationError("tagId", tagID, "tag does not exist in this organization")
	}
	return err
}

func (s *ClientService) listItem(ctx context.Context, orgID, clientID string) (*domain.ClientListItem, error) {
	projection, err := s.store.GetClientProjection(ctx, orgID, clientID)
	if err != nil {
		return nil, err
	}
	item := clientview.ListItem(*projection)
	return &item, nil
}

// AttachTag links an existing tag to a client and returns the client with its new status.
func (s *ClientService) AttachTag(ctx context.Context, orgID, clientID string, req domain.AttachTagRequest) (_ *domain.ClientListItem, err error) {
	ctx, span := startSpan(ctx, "clients.attach_tag", orgID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(&req.TagID)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetClient(ctx, orgID, clientID); err != nil {
		return nil, err
	}
	if err := s.requireTag(ctx, orgID, req.TagID); err != nil {
		return nil, err
	}

	link := &domain.ClientTagLink{
		ID:             s.newID(),
		OrganizationID: orgID,
		ClientID:       clientID,
		TagID:          req.TagID,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateClientTagLink(ctx, link); err != nil {
		return nil, err
	}

	s.metrics.TagsAttached.Inc()
	s.invalidate(ctx, orgID)
	s.publish(ctx, notify.EventClientTagged, orgID, clientID)

	return s.listItem(ctx, orgID, clientID)
}

// DetachTag removes a tag from a client.
func (s *ClientService) DetachTag(ctx context.Context, orgID, clientID, tagID string) (err error) {
	ctx, span := startSpan(ctx, "clients.detach_tag", orgID)
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteClientTagLink(ctx, orgID, clientID, tagID, s.now()); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

// AddAppointment records a visit of a client at one of the organization's branches.
func (s *ClientService) AddAppointment(ctx context.Context, orgID, clientID string, req domain.CreateAppointmentRequest) (_ *domain.Appointment, err error) {
	ctx, span := startSpan(ctx, "clients.add_appointment", orgID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(&req.BranchID)
	validation.TrimString(&req.Service)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if req.StartsAt.IsZero() {
		return nil, validation.ValidationErrors{
			validation.NewValidationError("startsAt", "", "is required"),
		}
	}

	if _, err := s.store.GetClient(ctx, orgID, clientID); err != nil {
		return nil, err
	}
	_, err = s.store.GetBranch(ctx, orgID, req.BranchID)
	if errors.Is(err, domain.ErrNotFound) {
		return nil, validation.NewValidationError("branchId", req.BranchID, "branch does not exist in this organization")
	}
	if err != nil {
		return nil, err
	}

	appt := &domain.Appointment{
		ID:             s.newID(),
		OrganizationID: orgID,
		BranchID:       req.BranchID,
		ClientID:       clientID,
		Service:        req.Service,
		StartsAt:       req.StartsAt.UTC(),
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateAppointment(ctx, appt); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	return appt, nil
}

// CancelAppointment soft-deletes an appointment so it no longer counts as a visit.
func (s *ClientService) CancelAppointment(ctx context.Context, orgID, clientID, appointmentID string) (err error) {
	ctx, span := startSpan(ctx, "clients.cancel_appointment", orgID)
	defer func() { endSpan(span, err) }()

	if err := s.store.DeleteAppointment(ctx, orgID, clientID, appointmentID, s.now()); err != nil {
		return err
	}
	s.invalidate(ctx, orgID)
	return nil
}

// AddReview records a satisfaction rating for a client.
func (s *ClientService) AddReview(ctx context.Context, orgID, clientID string, req domain.CreateReviewRequest) (_ *domain.Review, err error) {
	ctx, span := startSpan(ctx, "clients.add_review", orgID)
	defer func() { endSpan(span, err) }()

	validation.TrimString(&req.Comment)
	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetClient(ctx, orgID, clientID); err != nil {
		return nil, err
	}

	review := &domain.Review{
		ID:             s.newID(),
		OrganizationID: orgID,
		ClientID:       clientID,
		Rating:         req.Rating,
		Comment:        req.Comment,
		CreatedAt:      s.now(),
	}
	if err := s.store.CreateReview(ctx, review); err != nil {
		return nil, err
	}
	s.invalidate(ctx, orgID)
	return review, nil
}

// AddInvoice records an invoice and adds its amount to the client's lifetime value atomically.
func (s *ClientService) AddInvoice(ctx context.Context, orgID, clientID string, req domain.CreateInvoiceRequest) (_ *domain.Invoice, err error) {
	ctx, span := startSpan(ctx, "clients.add_invoice", orgID)
	defer func() { endSpan(span, err) }()

	if err := s.validator.Struct(req); err != nil {
		return nil, err
	}
	if _, err := s.store.GetClient(ctx, orgID, clientID); err != nil {
		return nil, err
	}

	now := s.now()
	invoice := &domain.Invoice{
		ID:             s.newID(),
		OrganizationID: orgID,
		ClientID:       clientID,
		Amount:         req.Amount,
		IssuedAt:       now,
	}
	if req.IssuedAt != nil {
		invoice.IssuedAt = req.IssuedAt.UTC()
	}

	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return nil, err
	}
	defer func() { _ = tx.Rollback() }()

	if err := tx.CreateInvoice(ctx, invoice); err != nil {
		return nil, err
	}
	if err := tx.AddLifetimeValue(ctx, orgID, clientID, invoice.Amount, now); err != nil {
		return nil, err
	}
	if err := tx.Commit(); err != nil {
		return nil, err
	}

	s.invalidate(ctx, orgID)
	return invoice, nil
}
