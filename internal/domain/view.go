package domain

import "time"

// DefaultStatusName is the status of a client without any status tag.
const DefaultStatusName = "Regular"

// ClientProjection is the denormalized read model of a client.
// It is recomputed on every read and never stored.
type ClientProjection struct {
	ID             string
	OrganizationID string
	FirstName      string
	LastName       string
	Phone          string
	Email          *string
	LastVisitAt    *time.Time
	TotalVisits    int
	LifetimeValue  *float64
	Satisfaction   float64
	Tags           []Tag
}

// ResolvedStatus is the single display status derived from a client's tags.
// TagID is empty and Color nil for the default status.
type ResolvedStatus struct {
	TagID string  `json:"tagId,omitempty"`
	Name  string  `json:"name"`
	Color *string `json:"color,omitempty"`
}

// ClientListItem is a row of the client list.
type ClientListItem struct {
	ID            string         `json:"id"`
	FirstName     string         `json:"firstName"`
	LastName      string         `json:"lastName"`
	Phone         string         `json:"phone"`
	Email         *string        `json:"email,omitempty"`
	Tags          []Tag          `json:"tags"`
	LastVisitAt   *time.Time     `json:"lastVisitAt,omitempty"`
	LifetimeValue *float64       `json:"lifetimeValue,omitempty"`
	Status        ResolvedStatus `json:"status"`
}

// ClientPage is a paged slice of the client list.
type ClientPage struct {
	Items  []ClientListItem `json:"items"`
	Total  int              `json:"total"`
	Limit  int              `json:"limit"`
	Offset int              `json:"offset"`
}

// ActivityEntry is one item of a client's recent history.
type ActivityEntry struct {
	Kind       string    `json:"kind" db:"kind"`
	OccurredAt time.Time `json:"occurredAt" db:"occurred_at"`
	Title      string    `json:"title" db:"title"`
	BranchID   string    `json:"branchId,omitempty" db:"branch_id"`
}

// ClientDetails is the detail view of a single client.
type ClientDetails struct {
	ClientListItem
	TotalVisits    int             `json:"totalVisits"`
	Satisfaction   float64         `json:"satisfaction"`
	RecentActivity []ActivityEntry `json:"recentActivity"`
}

// Overview summarizes all clients of an organization.
type Overview struct {
	TotalClients     int     `json:"totalClients"`
	ReturningClients int     `json:"returningClients"`
	AverageLTV       float64 `json:"averageLtv"`
	Satisfaction     float64 `json:"satisfaction"`
}
