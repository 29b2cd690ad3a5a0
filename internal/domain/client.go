package domain

import "time"

// Client is a customer of an organization.
type Client struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	FirstName      string    `json:"firstName" db:"first_name"`
	LastName       string    `json:"lastName" db:"last_name"`
	Phone          string    `json:"phone" db:"phone"`
	Email          *string   `json:"email,omitempty" db:"email"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt      time.Time `json:"updatedAt" db:"updated_at"`
}

// CreateClientRequest is the request body for creating a client.
// TagID optionally attaches a segment tag in the same write.
type CreateClientRequest struct {
	FirstName string  `json:"firstName" validate:"required,max=100"`
	LastName  string  `json:"lastName" validate:"required,max=100"`
	Phone     string  `json:"phone" validate:"required,max=50"`
	Email     *string `json:"email,omitempty" validate:"omitempty,email"`
	TagID     *string `json:"tagId,omitempty"`
}

// Appointment is a booked visit of a client at a branch.
type Appointment struct {
	ID             string     `json:"id" db:"id"`
	OrganizationID string     `json:"organizationId" db:"organization_id"`
	BranchID       string     `json:"branchId" db:"branch_id"`
	ClientID       string     `json:"clientId" db:"client_id"`
	Service        string     `json:"service" db:"service"`
	StartsAt       time.Time  `json:"startsAt" db:"starts_at"`
	CreatedAt      time.Time  `json:"createdAt" db:"created_at"`
	DeletedAt      *time.Time `json:"-" db:"deleted_at"`
}

// CreateAppointmentRequest is the request body for recording an appointment.
type CreateAppointmentRequest struct {
	BranchID string    `json:"branchId" validate:"required"`
	Service  string    `json:"service" validate:"required,max=200"`
	StartsAt time.Time `json:"startsAt"`
}

// Review is a client's rating of their experience.
type Review struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	ClientID       string    `json:"clientId" db:"client_id"`
	Rating         int       `json:"rating" db:"rating"`
	Comment        string    `json:"comment,omitempty" db:"comment"`
	CreatedAt      time.Time `json:"createdAt" db:"created_at"`
}

// CreateReviewRequest is the request body for recording a review.
type CreateReviewRequest struct {
	Rating  int    `json:"rating" validate:"required,min=1,max=5"`
	Comment string `json:"comment,omitempty" validate:"max=2000"`
}

// Invoice is a paid bill. Its amount accumulates into the client's lifetime value.
type Invoice struct {
	ID             string    `json:"id" db:"id"`
	OrganizationID string    `json:"organizationId" db:"organization_id"`
	ClientID       string    `json:"clientId" db:"client_id"`
	Amount         float64   `json:"amount" db:"amount"`
	IssuedAt       time.Time `json:"issuedAt" db:"issued_at"`
}

// CreateInvoiceRequest is the request body for recording an invoice.
type CreateInvoiceRequest struct {
	Amount   float64    `json:"amount" validate:"gt=0"`
	IssuedAt *time.Time `json:"issuedAt,omitempty"`
}
