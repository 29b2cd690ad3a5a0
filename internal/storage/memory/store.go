package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
)

// Store is an in-memory implementation of the storage interface for testing.
// Records are copied on the way in and out so callers never share state with the store.
type Store struct {
	mu sync.RWMutex

	orgs         map[string]*domain.Organization  // key: id
	apiKeys      map[string]*domain.APIKey        // key: id
	branches     map[string]*domain.Branch        // key: id
	tags         map[string]*domain.Tag           // key: id
	links        map[string]*domain.ClientTagLink // key: id
	clients      map[string]*domain.Client        // key: id
	appointments map[string]*domain.Appointment   // key: id
	reviews      map[string]*domain.Review        // key: id
	invoices     map[string]*domain.Invoice       // key: id
	ltv          map[string]float64               // key: client id
}

// New creates a new in-memory store.
func New() *Store {
	return &Store{
		orgs:         make(map[string]*domain.Organization),
		apiKeys:      make(map[string]*domain.APIKey),
		branches:     make(map[string]*domain.Branch),
		tags:         make(map[string]*domain.Tag),
		links:        make(map[string]*domain.ClientTagLink),
		clients:      make(map[string]*domain.Client),
		appointments: make(map[string]*domain.Appointment),
		reviews:      make(map[string]*domain.Review),
		invoices:     make(map[string]*domain.Invoice),
		ltv:          make(map[string]float64),
	}
}

func (s *Store) Close() error { return nil }

func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return &Tx{Store: s}, nil
}

// Tx is a no-op transaction for in-memory store.
// Writes are applied immediately and Rollback does not undo them.
type Tx struct {
	*Store
}

func (t *Tx) Commit() error   { return nil }
func (t *Tx) Rollback() error { return nil }
func (t *Tx) Close() error    { return nil }
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, domain.ErrInvalidInput
}

// ============================================
// Organizations
// ============================================

func (s *Store) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.orgs[org.ID]; exists {
		return domain.ErrAlreadyExists
	}
	o := *org
	s.orgs[org.ID] = &o
	return nil
}

func (s *Store) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	org, exists := s.orgs[id]
	if !exists {
		return nil, domain.ErrNotFound
	}
	o := *org
	return &o, nil
}

func (s *Store) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	orgs := make([]*domain.Organization, 0, len(s.orgs))
	for _, org := range s.orgs {
		o := *org
		orgs = append(orgs, &o)
	}
	sort.Slice(orgs, func(i, j int) bool { return orgs[i].Name < orgs[j].Name })
	return orgs, nil
}

// ============================================
// API Keys
// ============================================

func (s *Store) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.apiKeys[key.ID]; exists {
		return domain.ErrAlreadyExists
	}
	k := *key
	s.apiKeys[key.ID] = &k
	return nil
}

func (s *Store) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, key := range s.apiKeys {
		if key.KeyHash == keyHash {
			k := *key
			return &k, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (s *Store) ListAPIKeys(ctx context.Context, orgID string) ([]*domain.APIKey, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	keys := make([]*domain.APIKey, 0)
	for _, key := range s.apiKeys {
		if key.OrganizationID == orgID {
			k := *key
			keys = append(keys, &k)
		}
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].CreatedAt.After(keys[j].CreatedAt) })
	return keys, nil
}

func (s *Store) DeleteAPIKey(ctx context.Context, orgID, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists || key.OrganizationID != orgID {
		return domain.ErrNotFound
	}
	delete(s.apiKeys, id)
	return nil
}

func (s *Store) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	key, exists := s.apiKeys[id]
	if !exists {
		return domain.ErrNotFound
	}
	now := time.Now().UTC()
	key.LastUsedAt = &now
	return nil
}

// ============================================
// Branches
// ============================================

func (s *Store) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.branches[branch.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.branches {
		if existing.OrganizationID == branch.OrganizationID && existing.Name == branch.Name {
			return domain.ErrAlreadyExists
		}
	}
	b := *branch
	s.branches[branch.ID] = &b
	return nil
}

func (s *Store) GetBranch(ctx context.Context, orgID, id string) (*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branch, exists := s.branches[id]
	if !exists || branch.OrganizationID != orgID {
		return nil, domain.ErrNotFound
	}
	b := *branch
	return &b, nil
}

func (s *Store) ListBranches(ctx context.Context, orgID string) ([]*domain.Branch, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	branches := make([]*domain.Branch, 0)
	for _, branch := range s.branches {
		if branch.OrganizationID == orgID {
			b := *branch
			branches = append(branches, &b)
		}
	}
	sort.Slice(branches, func(i, j int) bool { return branches[i].Name < branches[j].Name })
	return branches, nil
}

// ============================================
// Tags
// ============================================

// liveTagNamed returns the live tag of orgID called name, if any. Caller holds the lock.
func (s *Store) liveTagNamed(orgID, name string) *domain.Tag {
	for _, tag := range s.tags {
		if tag.OrganizationID == orgID && tag.Name == name && tag.DeletedAt == nil {
			return tag
		}
	}
	return nil
}

func (s *Store) CreateTag(ctx context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.tags[tag.ID]; exists {
		return domain.ErrAlreadyExists
	}
	if s.liveTagNamed(tag.OrganizationID, tag.Name) != nil {
		return domain.ErrAlreadyExists
	}
	t := *tag
	s.tags[tag.ID] = &t
	return nil
}

func (s *Store) GetTag(ctx context.Context, orgID, id string) (*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tag, exists := s.tags[id]
	if !exists || tag.OrganizationID != orgID || tag.DeletedAt != nil {
		return nil, domain.ErrNotFound
	}
	t := *tag
	return &t, nil
}

func (s *Store) ListTags(ctx context.Context, orgID string) ([]*domain.Tag, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tags := make([]*domain.Tag, 0)
	for _, tag := range s.tags {
		if tag.OrganizationID == orgID && tag.DeletedAt == nil {
			t := *tag
			tags = append(tags, &t)
		}
	}
	sort.Slice(tags, func(i, j int) bool { return tags[i].Name < tags[j].Name })
	return tags, nil
}

func (s *Store) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	existing, exists := s.tags[tag.ID]
	if !exists || existing.OrganizationID != tag.OrganizationID || existing.DeletedAt != nil {
		return domain.ErrNotFound
	}
	if other := s.liveTagNamed(tag.OrganizationID, tag.Name); other != nil && other.ID != tag.ID {
		return domain.ErrAlreadyExists
	}
	tag.UpdatedAt = time.Now().UTC()
	t := *tag
	s.tags[tag.ID] = &t
	return nil
}

func (s *Store) DeleteTag(ctx context.Context, orgID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	tag, exists := s.tags[id]
	if !exists || tag.OrganizationID != orgID || tag.DeletedAt != nil {
		return domain.ErrNotFound
	}
	tag.DeletedAt = &at
	for _, link := range s.links {
		if link.TagID == id && link.DeletedAt == nil {
			link.DeletedAt = &at
		}
	}
	return nil
}

// ============================================
// Client Tag Links
// ============================================

func (s *Store) CreateClientTagLink(ctx context.Context, link *domain.ClientTagLink) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.links[link.ID]; exists {
		return domain.ErrAlreadyExists
	}
	for _, existing := range s.links {
		if existing.ClientID == link.ClientID && existing.TagID == link.TagID && existing.DeletedAt == nil {
			return domain.ErrAlreadyExists
		}
	}
	l := *link
	s.links[link.ID] = &l
	return nil
}

func (s *Store) DeleteClientTagLink(ctx context.Context, orgID, clientID, tagID string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, link := range s.links {
		if link.OrganizationID == orgID && link.ClientID == clientID && link.TagID == tagID && link.DeletedAt == nil {
			link.DeletedAt = &at
			return nil
		}
	}
	return domain.ErrNotFound
}

// ============================================
// Clients
// ============================================

func (s *Store) CreateClient(ctx context.Context, client *domain.Client) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.clients[client.ID]; exists {
		return domain.ErrAlreadyExists
	}
	c := *client
	s.clients[client.ID] = &c
	return nil
}

func (s *Store) GetClient(ctx context.Context, orgID, id string) (*domain.Client, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, exists := s.clients[id]
	if !exists || client.OrganizationID != orgID {
		return nil, domain.ErrNotFound
	}
	c := *client
	return &c, nil
}

// ============================================
// Appointments
// ============================================

func (s *Store) CreateAppointment(ctx context.Context, appt *domain.Appointment) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.appointments[appt.ID]; exists {
		return domain.ErrAlreadyExists
	}
	a := *appt
	s.appointments[appt.ID] = &a
	return nil
}

func (s *Store) DeleteAppointment(ctx context.Context, orgID, clientID, id string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	appt, exists := s.appointments[id]
	if !exists || appt.OrganizationID != orgID || appt.ClientID != clientID || appt.DeletedAt != nil {
		return domain.ErrNotFound
	}
	appt.DeletedAt = &at
	return nil
}

func (s *Store) ListRecentActivity(ctx context.Context, orgID, clientID string, limit int) ([]domain.ActivityEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var appts []*domain.Appointment
	for _, appt := range s.appointments {
		if appt.OrganizationID == orgID && appt.ClientID == clientID && appt.DeletedAt == nil {
			appts = append(appts, appt)
		}
	}
	sort.Slice(appts, func(i, j int) bool { return appts[i].StartsAt.After(appts[j].StartsAt) })
	if limit > 0 && len(appts) > limit {
		appts = appts[:limit]
	}

	entries := make([]domain.ActivityEntry, 0, len(appts))
	for _, appt := range appts {
		entries = append(entries, domain.ActivityEntry{
			Kind:       "appointment",
			OccurredAt: appt.StartsAt,
			Title:      appt.Service,
			BranchID:   appt.BranchID,
		})
	}
	return entries, nil
}

// ============================================
// Reviews and Invoices
// ============================================

func (s *Store) CreateReview(ctx context.Context, review *domain.Review) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.reviews[review.ID]; exists {
		return domain.ErrAlreadyExists
	}
	r := *review
	s.reviews[review.ID] = &r
	return nil
}

func (s *Store) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, exists := s.invoices[invoice.ID]; exists {
		return domain.ErrAlreadyExists
	}
	inv := *invoice
	s.invoices[invoice.ID] = &inv
	return nil
}

func (s *Store) AddLifetimeValue(ctx context.Context, orgID, clientID string, amount float64, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	client, exists := s.clients[clientID]
	if !exists || client.OrganizationID != orgID {
		return domain.ErrNotFound
	}
	s.ltv[clientID] += amount
	return nil
}

// ============================================
// Client Projections
// ============================================

func (s *Store) ListClientProjections(ctx context.Context, orgID string) ([]domain.ClientProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var clients []*domain.Client
	for _, client := range s.clients {
		if client.OrganizationID == orgID {
			clients = append(clients, client)
		}
	}
	sort.Slice(clients, func(i, j int) bool {
		if !clients[i].CreatedAt.Equal(clients[j].CreatedAt) {
			return clients[i].CreatedAt.Before(clients[j].CreatedAt)
		}
		return clients[i].ID < clients[j].ID
	})

	projections := make([]domain.ClientProjection, 0, len(clients))
	for _, client := range clients {
		projections = append(projections, s.project(client))
	}
	return projections, nil
}

func (s *Store) GetClientProjection(ctx context.Context, orgID, clientID string) (*domain.ClientProjection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	client, exists := s.clients[clientID]
	if !exists || client.OrganizationID != orgID {
		return nil, domain.ErrNotFound
	}
	p := s.project(client)
	return &p, nil
}

// project builds the read model of one client. Caller holds the lock.
func (s *Store) project(client *domain.Client) domain.ClientProjection {
	p := domain.ClientProjection{
		ID:             client.ID,
		OrganizationID: client.OrganizationID,
		FirstName:      client.FirstName,
		LastName:       client.LastName,
		Phone:          client.Phone,
		Email:          client.Email,
	}

	for _, appt := range s.appointments {
		if appt.ClientID != client.ID || appt.DeletedAt != nil {
			continue
		}
		p.TotalVisits++
		if p.LastVisitAt == nil || appt.StartsAt.After(*p.LastVisitAt) {
			start := appt.StartsAt
			p.LastVisitAt = &start
		}
	}

	if v, ok := s.ltv[client.ID]; ok {
		p.LifetimeValue = &v
	}

	var ratingSum, ratingCount int
	for _, review := range s.reviews {
		if review.ClientID == client.ID {
			ratingSum += review.Rating
			ratingCount++
		}
	}
	if ratingCount > 0 {
		p.Satisfaction = float64(ratingSum) / float64(ratingCount)
	}

	var links []*domain.ClientTagLink
	for _, link := range s.links {
		if link.ClientID != client.ID || link.DeletedAt != nil {
			continue
		}
		if tag, ok := s.tags[link.TagID]; ok && tag.DeletedAt == nil {
			links = append(links, link)
		}
	}
	sort.Slice(links, func(i, j int) bool {
		if !links[i].CreatedAt.Equal(links[j].CreatedAt) {
			return links[i].CreatedAt.Before(links[j].CreatedAt)
		}
		return s.tags[links[i].TagID].Name < s.tags[links[j].TagID].Name
	})
	for _, link := range links {
		p.Tags = append(p.Tags, *s.tags[link.TagID])
	}
	return p
}
