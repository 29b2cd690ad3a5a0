package domain

import "time"

// APIKey represents an API key for authentication.
// Every key belongs to exactly one organization; requests made with it are
// scoped to that organization. The actual key is only returned once on creation.
type APIKey struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	Name           string     `json:"name" db:"name"`
	KeyHash        string     `json:"-" db:"key_hash"`
	KeyPrefix      string     `json:"keyPrefix" db:"key_prefix"` // "crm_" + first 8 hex chars
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	LastUsedAt     *time.Time `json:"lastUsedAt,omitempty" db:"last_used_at"`
}

// CreateAPIKeyRequest is the request body for creating an API key.
type CreateAPIKeyRequest struct {
	Name string `json:"name" validate:"required,max=100"`
}

// CreateAPIKeyResponse is returned when creating an API key.
// The key is only shown once.
type CreateAPIKeyResponse struct {
	ID             string    `json:"id"`
	OrganizationID string    `json:"organizationId"`
	Name           string    `json:"name"`
	Key            string    `json:"key"`
	KeyPrefix      string    `json:"keyPrefix"`
	CreatedAt      time.Time `json:"createdAt"`
}
