package domain

import "time"

// Organization is a tenant. Every other record is scoped to one.
type Organization struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"createdAt" db:"created_at"`
}

// CreateOrganizationRequest is the request body for creating an organization.
type CreateOrganizationRequest struct {
	Name       string `json:"name" validate:"required,max=200"`
	APIKeyName string `json:"apiKeyName,omitempty" validate:"max=100"`
}

// CreateOrganizationResponse carries the new organization and its first API key.
type CreateOrganizationResponse struct {
	Organization *Organization        `json:"organization"`
	APIKey       CreateAPIKeyResponse `json:"apiKey"`
}

// Branch is a physical location of an organization.
type Branch struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	Name           string    `json:"name" db:"name"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// CreateBranchRequest is the request body for creating a branch.
type CreateBranchRequest struct {
	Name string `json:"name" validate:"required,max=200"`
}
