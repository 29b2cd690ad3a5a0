package sql

import (
	"context"
	"database/sql"
	"embed"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	_ "github.com/mattn/go-sqlite3"
	"github.com/pressly/goose/v3"

	"github.com/bcnelson/salon-crm/internal/domain"
	"github.com/bcnelson/salon-crm/internal/storage"
)

//go:embed migrations/*.sql
var embedMigrations embed.FS

// isUniqueViolation checks if an error is a UNIQUE constraint violation.
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	// SQLite
	if strings.Contains(errStr, "UNIQUE constraint failed") {
		return true
	}
	// PostgreSQL
	if strings.Contains(errStr, "duplicate key value violates unique constraint") {
		return true
	}
	return false
}

// wrapUniqueError converts UNIQUE violations to domain.ErrAlreadyExists.
func wrapUniqueError(err error) error {
	if isUniqueViolation(err) {
		return domain.ErrAlreadyExists
	}
	return err
}

// wrapNoRows converts sql.ErrNoRows to domain.ErrNotFound.
func wrapNoRows(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return domain.ErrNotFound
	}
	return err
}

// requireRow turns an update or delete that touched nothing into domain.ErrNotFound.
func requireRow(result sql.Result, err error) error {
	if err != nil {
		return err
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return domain.ErrNotFound
	}
	return nil
}

// Store implements the storage.Storage interface using SQL.
type Store struct {
	queries
	db *sqlx.DB
}

// New creates a new SQL store and runs the embedded migrations.
func New(driver, dsn string) (*Store, error) {
	db, err := sqlx.Connect(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}
	if driver == "sqlite3" {
		// One connection keeps ":memory:" databases alive and avoids SQLITE_BUSY.
		db.SetMaxOpenConns(1)
	}

	goose.SetBaseFS(embedMigrations)
	if err := goose.SetDialect(driver); err != nil {
		return nil, fmt.Errorf("setting goose dialect: %w", err)
	}

	if err := goose.Up(db.DB, "migrations"); err != nil {
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return NewWithDB(db), nil
}

// NewWithDB wraps an already migrated database.
func NewWithDB(db *sqlx.DB) *Store {
	return &Store{queries: queries{db: db}, db: db}
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// BeginTx starts a new transaction.
func (s *Store) BeginTx(ctx context.Context) (storage.Transaction, error) {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return nil, err
	}
	return &Tx{queries: queries{db: tx}, tx: tx}, nil
}

// Tx wraps a database transaction.
type Tx struct {
	queries
	tx *sqlx.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback rolls back the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// Close is a no-op for transactions (they should be committed or rolled back).
func (t *Tx) Close() error {
	return nil
}

// BeginTx is not supported within a transaction.
func (t *Tx) BeginTx(ctx context.Context) (storage.Transaction, error) {
	return nil, fmt.Errorf("nested transactions not supported")
}

// helper to get the correct database interface
type dbInterface interface {
	sqlx.ExtContext
	SelectContext(ctx context.Context, dest any, query string, args ...any) error
	GetContext(ctx context.Context, dest any, query string, args ...any) error
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// queries holds the statements shared by Store and Tx.
type queries struct {
	db dbInterface
}

// ============================================
// Organizations
// ============================================

func (q queries) CreateOrganization(ctx context.Context, org *domain.Organization) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO organizations (id, name, created_at) VALUES ($1, $2, $3)`,
		org.ID, org.Name, org.CreatedAt)
	return wrapUniqueError(err)
}

func (q queries) GetOrganization(ctx context.Context, id string) (*domain.Organization, error) {
	var org domain.Organization
	err := q.db.GetContext(ctx, &org,
		`SELECT id, name, created_at FROM organizations WHERE id = $1`, id)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &org, nil
}

func (q queries) ListOrganizations(ctx context.Context) ([]*domain.Organization, error) {
	orgs := []*domain.Organization{}
	err := q.db.SelectContext(ctx, &orgs,
		`SELECT id, name, created_at FROM organizations ORDER BY name`)
	if err != nil {
		return nil, err
	}
	return orgs, nil
}

// ============================================
// API Keys
// ============================================

const apiKeyColumns = `id, organization_id, name, key_hash, key_prefix, created_at, last_used_at`

func (q queries) CreateAPIKey(ctx context.Context, key *domain.APIKey) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO api_keys (`+apiKeyColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		key.ID, key.OrganizationID, key.Name, key.KeyHash, key.KeyPrefix, key.CreatedAt, key.LastUsedAt)
	return wrapUniqueError(err)
}

func (q queries) GetAPIKeyByHash(ctx context.Context, keyHash string) (*domain.APIKey, error) {
	var key domain.APIKey
	err := q.db.GetContext(ctx, &key,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE key_hash = $1`, keyHash)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &key, nil
}

func (q queries) ListAPIKeys(ctx context.Context, orgID string) ([]*domain.APIKey, error) {
	keys := []*domain.APIKey{}
	err := q.db.SelectContext(ctx, &keys,
		`SELECT `+apiKeyColumns+` FROM api_keys WHERE organization_id = $1 ORDER BY created_at DESC`, orgID)
	if err != nil {
		return nil, err
	}
	return keys, nil
}

func (q queries) DeleteAPIKey(ctx context.Context, orgID, id string) error {
	return requireRow(q.db.ExecContext(ctx,
		`DELETE FROM api_keys WHERE organization_id = $1 AND id = $2`, orgID, id))
}

func (q queries) UpdateAPIKeyLastUsed(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx,
		`UPDATE api_keys SET last_used_at = $1 WHERE id = $2`, time.Now().UTC(), id)
	return err
}

// ============================================
// Branches
// ============================================

func (q queries) CreateBranch(ctx context.Context, branch *domain.Branch) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO branches (id, organization_id, name, created_at) VALUES ($1, $2, $3, $4)`,
		branch.ID, branch.OrganizationID, branch.Name, branch.CreatedAt)
	return wrapUniqueError(err)
}

func (q queries) GetBranch(ctx context.Context, orgID, id string) (*domain.Branch, error) {
	var branch domain.Branch
	err := q.db.GetContext(ctx, &branch,
		`SELECT id, organization_id, name, created_at FROM branches WHERE organization_id = $1 AND id = $2`,
		orgID, id)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &branch, nil
}

func (q queries) ListBranches(ctx context.Context, orgID string) ([]*domain.Branch, error) {
	branches := []*domain.Branch{}
	err := q.db.SelectContext(ctx, &branches,
		`SELECT id, organization_id, name, created_at FROM branches WHERE organization_id = $1 ORDER BY name`,
		orgID)
	if err != nil {
		return nil, err
	}
	return branches, nil
}

// ============================================
// Tags
// ============================================

const tagColumns = `id, organization_id, name, color, created_at, updated_at, deleted_at`

func (q queries) CreateTag(ctx context.Context, tag *domain.Tag) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO tags (`+tagColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		tag.ID, tag.OrganizationID, tag.Name, tag.Color, tag.CreatedAt, tag.UpdatedAt, tag.DeletedAt)
	return wrapUniqueError(err)
}

func (q queries) GetTag(ctx context.Context, orgID, id string) (*domain.Tag, error) {
	var tag domain.Tag
	err := q.db.GetContext(ctx, &tag,
		`SELECT `+tagColumns+` FROM tags WHERE organization_id = $1 AND id = $2 AND deleted_at IS NULL`,
		orgID, id)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &tag, nil
}

func (q queries) ListTags(ctx context.Context, orgID string) ([]*domain.Tag, error) {
	tags := []*domain.Tag{}
	err := q.db.SelectContext(ctx, &tags,
		`SELECT `+tagColumns+` FROM tags WHERE organization_id = $1 AND deleted_at IS NULL ORDER BY name`,
		orgID)
	if err != nil {
		return nil, err
	}
	return tags, nil
}

func (q queries) UpdateTag(ctx context.Context, tag *domain.Tag) error {
	tag.UpdatedAt = time.Now().UTC()
	result, err := q.db.ExecContext(ctx,
		`UPDATE tags SET name = $1, color = $2, updated_at = $3
		 WHERE organization_id = $4 AND id = $5 AND deleted_at IS NULL`,
		tag.Name, tag.Color, tag.UpdatedAt, tag.OrganizationID, tag.ID)
	return requireRow(result, wrapUniqueError(err))
}

func (q queries) DeleteTag(ctx context.Context, orgID, id string, at time.Time) error {
	err := requireRow(q.db.ExecContext(ctx,
		`UPDATE tags SET deleted_at = $1 WHERE organization_id = $2 AND id = $3 AND deleted_at IS NULL`,
		at, orgID, id))
	if err != nil {
		return err
	}
	_, err = q.db.ExecContext(ctx,
		`UPDATE client_tags SET deleted_at = $1 WHERE organization_id = $2 AND tag_id = $3 AND deleted_at IS NULL`,
		at, orgID, id)
	return err
}

// ============================================
// Client Tag Links
// ============================================

func (q queries) CreateClientTagLink(ctx context.Context, link *domain.ClientTagLink) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO client_tags (id, organization_id, client_id, tag_id, created_at, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		link.ID, link.OrganizationID, link.ClientID, link.TagID, link.CreatedAt, link.DeletedAt)
	return wrapUniqueError(err)
}

func (q queries) DeleteClientTagLink(ctx context.Context, orgID, clientID, tagID string, at time.Time) error {
	return requireRow(q.db.ExecContext(ctx,
		`UPDATE client_tags SET deleted_at = $1
		 WHERE organization_id = $2 AND client_id = $3 AND tag_id = $4 AND deleted_at IS NULL`,
		at, orgID, clientID, tagID))
}

// ============================================
// Clients
// ============================================

func (q queries) CreateClient(ctx context.Context, client *domain.Client) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO clients (id, organization_id, first_name, last_name, phone, email, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		client.ID, client.OrganizationID, client.FirstName, client.LastName, client.Phone, client.Email,
		client.CreatedAt, client.UpdatedAt)
	return wrapUniqueError(err)
}

func (q queries) GetClient(ctx context.Context, orgID, id string) (*domain.Client, error) {
	var client domain.Client
	err := q.db.GetContext(ctx, &client,
		`SELECT id, organization_id, first_name, last_name, phone, email, created_at, updated_at
		 FROM clients WHERE organization_id = $1 AND id = $2`, orgID, id)
	if err != nil {
		return nil, wrapNoRows(err)
	}
	return &client, nil
}

// ============================================
// Appointments
// ============================================

func (q queries) CreateAppointment(ctx context.Context, appt *domain.Appointment) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO appointments (id, organization_id, branch_id, client_id, service, starts_at, created_at, deleted_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		appt.ID, appt.OrganizationID, appt.BranchID, appt.ClientID, appt.Service, appt.StartsAt,
		appt.CreatedAt, appt.DeletedAt)
	return wrapUniqueError(err)
}

func (q queries) DeleteAppointment(ctx context.Context, orgID, clientID, id string, at time.Time) error {
	return requireRow(q.db.ExecContext(ctx,
		`UPDATE appointments SET deleted_at = $1
		 WHERE organization_id = $2 AND client_id = $3 AND id = $4 AND deleted_at IS NULL`,
		at, orgID, clientID, id))
}

func (q queries) ListRecentActivity(ctx context.Context, orgID, clientID string, limit int) ([]domain.ActivityEntry, error) {
	entries := []domain.ActivityEntry{}
	err := q.db.SelectContext(ctx, &entries,
		`SELECT 'appointment' AS kind, starts_at AS occurred_at, service AS title, branch_id
		 FROM appointments
		 WHERE organization_id = $1 AND client_id = $2 AND deleted_at IS NULL
		 ORDER BY starts_at DESC
		 LIMIT $3`, orgID, clientID, limit)
	if err != nil {
		return nil, err
	}
	return entries, nil
}

// ============================================
// Reviews and Invoices
// ============================================

func (q queries) CreateReview(ctx context.Context, review *domain.Review) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO reviews (id, organization_id, client_id, rating, comment, created_at)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		review.ID, review.OrganizationID, review.ClientID, review.Rating, review.Comment, review.CreatedAt)
	return wrapUniqueError(err)
}

func (q queries) CreateInvoice(ctx context.Context, invoice *domain.Invoice) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO invoices (id, organization_id, client_id, amount, issued_at) VALUES ($1, $2, $3, $4, $5)`,
		invoice.ID, invoice.OrganizationID, invoice.ClientID, invoice.Amount, invoice.IssuedAt)
	return wrapUniqueError(err)
}

func (q queries) AddLifetimeValue(ctx context.Context, orgID, clientID string, amount float64, at time.Time) error {
	_, err := q.db.ExecContext(ctx,
		`INSERT INTO client_metrics (client_id, organization_id, lifetime_value, updated_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (client_id) DO UPDATE
		 SET lifetime_value = COALESCE(client_metrics.lifetime_value, 0) + excluded.lifetime_value,
		     updated_at = excluded.updated_at`,
		clientID, orgID, amount, at)
	return err
}
