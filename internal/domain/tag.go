package domain

import "time"

// Tag is an organization-defined label attachable to clients.
// Some names (VIP, NEW, BLOCKED, ...) double as client statuses.
// (OrganizationID, Name) is unique among tags that are not deleted.
type Tag struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	Name           string     `json:"name" db:"name"`
	Color          *string    `json:"color,omitempty" db:"color"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time  `json:"updatedAt" db:"updated_at"`
	DeletedAt      *time.Time `json:"-" db:"deleted_at"`
}

// ClientTagLink attaches one tag to one client.
// A (ClientID, TagID) pair appears at most once among links that are not deleted.
type ClientTagLink struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	ClientID       string     `json:"clientId" db:"client_id"`
	TagID          string     `json:"tagId" db:"tag_id"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	DeletedAt      *time.Time `json:"-" db:"deleted_at"`
}

// CreateTagRequest is the request body for creating a tag.
type CreateTagRequest struct {
	Name  string  `json:"name" validate:"required,max=50"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// UpdateTagRequest is the request body for updating a tag.
type UpdateTagRequest struct {
	Name  *string `json:"name,omitempty" validate:"omitempty,min=1,max=50"`
	Color *string `json:"color,omitempty" validate:"omitempty,hexcolor"`
}

// AttachTagRequest is the request body for attaching a tag to a client.
type AttachTagRequest struct {
	TagID string `json:"tagId" validate:"required"`
}
