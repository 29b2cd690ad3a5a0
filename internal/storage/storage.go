package storage

import (
	"context"
	"time"

	"github.com/bcnelson/salon-crm/internal/domain"
)

// Storage defines the interface for the storage layer.
// Every tenant-owned record is addressed by organization ID first; a record of
// another organization is reported as domain.ErrNotFound.
// Implementations must be safe for concurrent use.
type Storage interface {
	// Close closes the storage connection.
	Close() error

	// Organizations
	CreateOrganization(ctx context.Context, org *domain.Organization) error
	GetOrganization(ctx context.Context, id string) (*domain.Organization, error)
	ListOrganizations(ctx context.Context) ([]*domain.Organization, error)

	// API Keys
	CreateAPIKey(ctx context.Context, key *domain.APIKey) error
	GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error)
	ListAPIKeys(ctx context.Context, orgID string) ([]*domain.APIKey, error)
	DeleteAPIKey(ctx context.Context, orgID, id string) error
	UpdateAPIKeyLastUsed(ctx context.Context, id string) error

	// Branches
	CreateBranch(ctx context.Context, branch *domain.Branch) error
	GetBranch(ctx context.Context, orgID, id string) (*domain.Branch, error)
	ListBranches(ctx context.Context, orgID string) ([]*domain.Branch, error)

	// Tags. Get and List only return tags that are not deleted.
	CreateTag(ctx context.Context, tag *domain.Tag) error
	GetTag(ctx context.Context, orgID, id string) (*domain.Tag, error)
	ListTags(ctx context.Context, orgID string) ([]*domain.Tag, error)
	UpdateTag(ctx context.Context, tag *domain.Tag) error
	// DeleteTag soft-deletes the tag and every live link to it.
	DeleteTag(ctx context.Context, orgID, id string, at time.Time) error

	// Client tag links
	CreateClientTagLink(ctx context.Context, link *domain.ClientTagLink) error
	DeleteClientTagLink(ctx context.Context, orgID, clientID, tagID string, at time.Time) error

	// Clients
	CreateClient(ctx context.Context, client *domain.Client) error
	GetClient(ctx context.Context, orgID, id string) (*domain.Client, error)

	// Appointments
	CreateAppointment(ctx context.Context, appt *domain.Appointment) error
	DeleteAppointment(ctx context.Context, orgID, clientID, id string, at time.Time) error
	ListRecentActivity(ctx context.Context, orgID, clientID string, limit int) ([]domain.ActivityEntry, error)

	// Reviews
	CreateReview(ctx context.Context, review *domain.Review) error

	// Invoices and the lifetime value metric they feed.
	CreateInvoice(ctx context.Context, invoice *domain.Invoice) error
	AddLifetimeValue(ctx context.Context, orgID, clientID string, amount float64, at time.Time) error

	// Client projections (read model).
	ListClientProjections(ctx context.Context, orgID string) ([]domain.ClientProjection, error)
	GetClientProjection(ctx context.Context, orgID, clientID string) (*domain.ClientProjection, error)

	// Transaction support
	BeginTx(ctx context.Context) (Transaction, error)
}

// Transaction represents a database transaction.
type Transaction interface {
	Storage
	Commit() error
	Rollback() error
}
