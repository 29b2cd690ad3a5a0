package service

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bcnelson/salon-crm/internal/cache"
	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/metrics"
	"github.com/bcnelson/salon-crm/internal/notify"
	"github.com/bcnelson/salon-crm/internal/storage/memory"
)

const org = "org1"

type recordingNotifier struct {
	mu     sync.Mutex
	events []notify.Event
	err    error
}

func (n *recordingNotifier) Notify(_ context.Context, event notify.Event) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, event)
	return n.err
}

func (n *recordingNotifier) names() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	names := make([]string, len(n.events))
	for i, e := range n.events {
		names[i] = e.Event
	}
	return names
}

type fixture struct {
	store    *memory.Store
	clients  *ClientService
	tags     *TagService
	notifier *recordingNotifier
	metrics  *metrics.Metrics
	redis    *miniredis.Miniredis
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()

	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	store := memory.New()
	require.NoError(t, store.CreateOrganization(ctx, &domain.Organization{ID: org, Name: "Salon"}))
	require.NoError(t, store.CreateBranch(ctx, &domain.Branch{ID: "branch1", OrganizationID: org, Name: "Main"}))

	f := &fixture{
		store:    store,
		notifier: &recordingNotifier{},
		metrics:  metrics.New(),
		redis:    mr,
	}
	deps := Deps{
		Store:    store,
		Cache:    cache.NewRedis(client, time.Minute),
		Notifier: f.notifier,
		Metrics:  f.metrics,
	}
	f.clients = NewClientService(deps)
	f.tags = NewTagService(deps)
	return f
}

func (f *fixture) tag(t *testing.T, name string) *domain.Tag {
	t.Helper()
	tag, err := f.tags.Create(context.Background(), org, domain.CreateTagRequest{Name: name})
	require.NoError(t, err)
	return tag
}

func (f *fixture) client(t *testing.T, first, last string) *domain.ClientListItem {
	t.Helper()
	item, err := f.clients.Create(context.Background(), org, domain.CreateClientRequest{
		FirstName: first, LastName: last, Phone: "555-" + first,
	})
	require.NoError(t, err)
	return item
}

func (f *fixture) visit(t *testing.T, clientID string, at time.Time) *domain.Appointment {
	t.Helper()
	appt, err := f.clients.AddAppointment(context.Background(), org, clientID, domain.CreateAppointmentRequest{
		BranchID: "branch1", Service: "Haircut", StartsAt: at,
	})
	require.NoError(t, err)
	return appt
}

func strPtr(s string) *string { return &s }

func TestCreate_TrimsAndValidates(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	item, err := f.clients.Create(ctx, org, domain.CreateClientRequest{
		FirstName: "  Ana ", LastName: " Ruiz", Phone: " 555 ", Email: strPtr("  "),
	})
	require.NoError(t, err)
	assert.Equal(t, "Ana", item.FirstName)
	assert.Equal(t, "Ruiz", item.LastName)
	assert.Equal(t, "555", item.Phone)
	assert.Nil(t, item.Email)
	assert.Equal(t, domain.DefaultStatusName, item.Status.Name)
	assert.Empty(t, item.Status.TagID)
	assert.Equal(t, []string{notify.EventClientCreated}, f.notifier.names())
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.ClientsCreated))

	_, err = f.clients.Create(ctx, org, domain.CreateClientRequest{FirstName: "   ", LastName: "X", Phone: "1"})
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCreate_WithTag(t *testing.T) {
	f := newFixture(t)
	vip := f.tag(t, "VIP")

	item, err := f.clients.Create(context.Background(), org, domain.CreateClientRequest{
		FirstName: "Ana", LastName: "Ruiz", Phone: "555", TagID: &vip.ID,
	})
	require.NoError(t, err)
	require.Len(t, item.Tags, 1)
	assert.Equal(t, vip.ID, item.Status.TagID)
	assert.Equal(t, "VIP", item.Status.Name)
}

func TestCreate_ForeignTagWritesNothing(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	require.NoError(t, f.store.CreateOrganization(ctx, &domain.Organization{ID: "org2", Name: "Other"}))
	foreign, err := f.tags.Create(ctx, "org2", domain.CreateTagRequest{Name: "VIP"})
	require.NoError(t, err)
	deleted := f.tag(t, "Old")
	require.NoError(t, f.tags.Delete(ctx, org, deleted.ID))

	for _, tagID := range []string{foreign.ID, deleted.ID, "missing"} {
		_, err := f.clients.Create(ctx, org, domain.CreateClientRequest{
			FirstName: "Ana", LastName: "Ruiz", Phone: "555", TagID: strPtr(tagID),
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput, tagID)
	}

	projections, err := f.store.ListClientProjections(ctx, org)
	require.NoError(t, err)
	assert.Empty(t, projections)
	assert.Empty(t, f.notifier.names())
}

func TestCreate_WebhookFailureDoesNotFailRequest(t *testing.T) {
	f := newFixture(t)
	f.notifier.err = errors.New("boom")

	f.client(t, "Ana", "Ruiz")

	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.WebhookFailures))
}

func TestList_SearchFilterAndPaging(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	vip := f.tag(t, "VIP")
	ana := f.client(t, "Ana", "Ruiz")
	bo := f.client(t, "Bo", "Lin")
	cy := f.client(t, "Cy", "Anders")

	f.visit(t, ana.ID, base)
	f.visit(t, bo.ID, base.Add(48*time.Hour))
	_, err := f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: vip.ID})
	require.NoError(t, err)
	_, err = f.clients.AttachTag(ctx, org, cy.ID, domain.AttachTagRequest{TagID: vip.ID})
	require.NoError(t, err)

	page, err := f.clients.List(ctx, org, ListParams{})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	assert.Equal(t, DefaultPageSize, page.Limit)
	require.Len(t, page.Items, 3)
	assert.Equal(t, []string{bo.ID, ana.ID, cy.ID}, []string{page.Items[0].ID, page.Items[1].ID, page.Items[2].ID})

	page, err = f.clients.List(ctx, org, ListParams{Search: "AN"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.clients.List(ctx, org, ListParams{Filter: "vip"})
	require.NoError(t, err)
	assert.Equal(t, 2, page.Total)

	page, err = f.clients.List(ctx, org, ListParams{Filter: vip.ID, Search: "ruiz"})
	require.NoError(t, err)
	require.Equal(t, 1, page.Total)
	assert.Equal(t, ana.ID, page.Items[0].ID)

	// A recognized status with no matching tag in the organization matches nobody.
	page, err = f.clients.List(ctx, org, ListParams{Filter: "blocked"})
	require.NoError(t, err)
	assert.Zero(t, page.Total)
	assert.NotNil(t, page.Items)

	// Unrecognized tokens do not filter.
	page, err = f.clients.List(ctx, org, ListParams{Filter: "whatever"})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)

	page, err = f.clients.List(ctx, org, ListParams{Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, page.Total)
	require.Len(t, page.Items, 1)
	assert.Equal(t, ana.ID, page.Items[0].ID)

	page, err = f.clients.List(ctx, org, ListParams{Limit: 1000, Offset: 10})
	require.NoError(t, err)
	assert.Equal(t, MaxPageSize, page.Limit)
	assert.Empty(t, page.Items)

	assert.Equal(t, float64(3), testutil.ToFloat64(f.metrics.Searches.WithLabelValues("true")))
}

func TestOverview_CachedAndInvalidated(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ana := f.client(t, "Ana", "Ruiz")
	f.client(t, "Bo", "Lin")
	f.visit(t, ana.ID, base)
	f.visit(t, ana.ID, base.Add(time.Hour))
	_, err := f.clients.AddInvoice(ctx, org, ana.ID, domain.CreateInvoiceRequest{Amount: 101})
	require.NoError(t, err)
	_, err = f.clients.AddReview(ctx, org, ana.ID, domain.CreateReviewRequest{Rating: 5})
	require.NoError(t, err)

	overview, err := f.clients.Overview(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, domain.Overview{TotalClients: 2, ReturningClients: 1, AverageLTV: 51, Satisfaction: 2.5}, *overview)
	assert.True(t, f.redis.Exists(cache.Key(org)))

	again, err := f.clients.Overview(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, overview, again)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OverviewCache.WithLabelValues("hit")))
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OverviewCache.WithLabelValues("miss")))

	f.client(t, "Cy", "Anders")
	assert.False(t, f.redis.Exists(cache.Key(org)))

	overview, err = f.clients.Overview(ctx, org)
	require.NoError(t, err)
	assert.Equal(t, 3, overview.TotalClients)
}

func TestOverview_CacheDownFallsBack(t *testing.T) {
	f := newFixture(t)
	f.client(t, "Ana", "Ruiz")
	f.redis.Close()

	overview, err := f.clients.Overview(context.Background(), org)
	require.NoError(t, err)
	assert.Equal(t, 1, overview.TotalClients)
	assert.Equal(t, float64(1), testutil.ToFloat64(f.metrics.OverviewCache.WithLabelValues("error")))
}

func TestOverview_EmptyOrganization(t *testing.T) {
	f := newFixture(t)
	overview, err := f.clients.Overview(context.Background(), org)
	require.NoError(t, err)
	assert.Equal(t, domain.Overview{}, *overview)
}

func TestDetails(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	ana := f.client(t, "Ana", "Ruiz")
	for i := 0; i < RecentActivityLimit+2; i++ {
		f.visit(t, ana.ID, base.Add(time.Duration(i)*time.Hour))
	}
	_, err := f.clients.AddReview(ctx, org, ana.ID, domain.CreateReviewRequest{Rating: 4, Comment: " great "})
	require.NoError(t, err)

	details, err := f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, RecentActivityLimit+2, details.TotalVisits)
	assert.InDelta(t, 4.0, details.Satisfaction, 1e-9)
	require.Len(t, details.RecentActivity, RecentActivityLimit)
	assert.True(t, details.RecentActivity[0].OccurredAt.Equal(base.Add(time.Duration(RecentActivityLimit+1)*time.Hour)))
	assert.Equal(t, domain.DefaultStatusName, details.Status.Name)

	bo := f.client(t, "Bo", "Lin")
	details, err = f.clients.Details(ctx, org, bo.ID)
	require.NoError(t, err)
	assert.NotNil(t, details.RecentActivity)
	assert.Empty(t, details.RecentActivity)

	_, err = f.clients.Details(ctx, org, "missing")
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = f.clients.Details(ctx, "org2", ana.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestAttachAndDetachTag(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	vip := f.tag(t, "VIP")
	blocked := f.tag(t, "Blocked")
	ana := f.client(t, "Ana", "Ruiz")

	item, err := f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: vip.ID})
	require.NoError(t, err)
	assert.Equal(t, "VIP", item.Status.Name)

	item, err = f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: blocked.ID})
	require.NoError(t, err)
	assert.Equal(t, "Blocked", item.Status.Name)
	assert.Equal(t, blocked.ID, item.Status.TagID)

	_, err = f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: vip.ID})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)
	_, err = f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: "missing"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.clients.AttachTag(ctx, org, "missing", domain.AttachTagRequest{TagID: vip.ID})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	require.NoError(t, f.clients.DetachTag(ctx, org, ana.ID, blocked.ID))
	assert.ErrorIs(t, f.clients.DetachTag(ctx, org, ana.ID, blocked.ID), domain.ErrNotFound)

	details, err := f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "VIP", details.Status.Name)

	assert.Equal(t, []string{notify.EventClientCreated, notify.EventClientTagged, notify.EventClientTagged}, f.notifier.names())
}

func TestTagRenameAndDeleteChangeStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	tag := f.tag(t, "Newbie")
	ana := f.client(t, "Ana", "Ruiz")
	_, err := f.clients.AttachTag(ctx, org, ana.ID, domain.AttachTagRequest{TagID: tag.ID})
	require.NoError(t, err)

	details, err := f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultStatusName, details.Status.Name)

	loaded, err := f.tags.Get(ctx, org, tag.ID)
	require.NoError(t, err)
	require.NoError(t, f.tags.Update(ctx, loaded, domain.UpdateTagRequest{Name: strPtr(" vip "), Color: strPtr("#FF0000")}))

	details, err = f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Equal(t, "vip", details.Status.Name)
	require.NotNil(t, details.Status.Color)
	assert.Equal(t, "#FF0000", *details.Status.Color)

	require.NoError(t, f.tags.Delete(ctx, org, tag.ID))
	assert.ErrorIs(t, f.tags.Delete(ctx, org, tag.ID), domain.ErrNotFound)

	details, err = f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Empty(t, details.Tags)
	assert.Equal(t, domain.DefaultStatusName, details.Status.Name)
}

func TestTagValidation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.tags.Create(ctx, org, domain.CreateTagRequest{Name: "  "})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.tags.Create(ctx, org, domain.CreateTagRequest{Name: "VIP", Color: strPtr("red")})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	vip := f.tag(t, "VIP")
	_, err = f.tags.Create(ctx, org, domain.CreateTagRequest{Name: " VIP "})
	assert.ErrorIs(t, err, domain.ErrAlreadyExists)

	loaded, err := f.tags.Get(ctx, org, vip.ID)
	require.NoError(t, err)
	assert.ErrorIs(t, f.tags.Update(ctx, loaded, domain.UpdateTagRequest{Name: strPtr("   ")}), domain.ErrInvalidInput)
}

func TestAddAppointment_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.client(t, "Ana", "Ruiz")
	start := time.Date(2024, 2, 1, 9, 0, 0, 0, time.FixedZone("CET", 3600))

	_, err := f.clients.AddAppointment(ctx, org, ana.ID, domain.CreateAppointmentRequest{BranchID: "branch1", Service: "Cut"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.clients.AddAppointment(ctx, org, ana.ID, domain.CreateAppointmentRequest{BranchID: "nope", Service: "Cut", StartsAt: start})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = f.clients.AddAppointment(ctx, org, "missing", domain.CreateAppointmentRequest{BranchID: "branch1", Service: "Cut", StartsAt: start})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	appt := f.visit(t, ana.ID, start)
	assert.Equal(t, time.UTC, appt.StartsAt.Location())
	assert.True(t, appt.StartsAt.Equal(start))

	require.NoError(t, f.clients.CancelAppointment(ctx, org, ana.ID, appt.ID))
	assert.ErrorIs(t, f.clients.CancelAppointment(ctx, org, ana.ID, appt.ID), domain.ErrNotFound)

	details, err := f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	assert.Zero(t, details.TotalVisits)
	assert.Nil(t, details.LastVisitAt)
}

func TestAddReviewAndInvoice_Validation(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	ana := f.client(t, "Ana", "Ruiz")

	_, err := f.clients.AddReview(ctx, org, ana.ID, domain.CreateReviewRequest{Rating: 6})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
	_, err = f.clients.AddReview(ctx, org, "missing", domain.CreateReviewRequest{Rating: 3})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = f.clients.AddInvoice(ctx, org, ana.ID, domain.CreateInvoiceRequest{Amount: 0})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	issued := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)
	invoice, err := f.clients.AddInvoice(ctx, org, ana.ID, domain.CreateInvoiceRequest{Amount: 20, IssuedAt: &issued})
	require.NoError(t, err)
	assert.Equal(t, issued, invoice.IssuedAt)
	_, err = f.clients.AddInvoice(ctx, org, ana.ID, domain.CreateInvoiceRequest{Amount: 5.5})
	require.NoError(t, err)

	details, err := f.clients.Details(ctx, org, ana.ID)
	require.NoError(t, err)
	require.NotNil(t, details.LifetimeValue)
	assert.InDelta(t, 25.5, *details.LifetimeValue, 1e-9)
}

func TestExport(t *testing.T) {
	f := newFixture(t)
	f.client(t, "Ana", "Ruiz")

	data, err := f.clients.Export(context.Background(), org, "", "")
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}
