package sql

import (
	"context"
	"time"

	"github.com/bcnelson/salon-crm/internal/domain"
)

type clientRow struct {
	ID             string   `db:"id"`
	OrganizationID string   `db:"organization_id"`
	FirstName      string   `db:"first_name"`
	LastName       string   `db:"last_name"`
	Phone          string   `db:"phone"`
	Email          *string  `db:"email"`
	LifetimeValue  *float64 `db:"lifetime_value"`
}

type visitRow struct {
	ClientID string    `db:"client_id"`
	StartsAt time.Time `db:"starts_at"`
}

type ratingRow struct {
	ClientID     string  `db:"client_id"`
	Satisfaction float64 `db:"satisfaction"`
}

type clientTagRow struct {
	ClientID string `db:"client_id"`
	domain.Tag
}

func (q queries) ListClientProjections(ctx context.Context, orgID string) ([]domain.ClientProjection, error) {
	return q.loadProjections(ctx, orgID, "")
}

func (q queries) GetClientProjection(ctx context.Context, orgID, clientID string) (*domain.ClientProjection, error) {
	projections, err := q.loadProjections(ctx, orgID, clientID)
	if err != nil {
		return nil, err
	}
	if len(projections) == 0 {
		return nil, domain.ErrNotFound
	}
	return &projections[0], nil
}

// loadProjections reads the clients of an organization, or the single client
// clientID when it is not empty, together with their visits, ratings and live tags.
// Visits are folded in Go because MAX over a timestamp column loses its type in SQLite.
func (q queries) loadProjections(ctx context.Context, orgID, clientID string) ([]domain.ClientProjection, error) {
	filter := ""
	args := []any{orgID}
	if clientID != "" {
		args = append(args, clientID)
	}

	var clients []clientRow
	if clientID != "" {
		filter = ` AND c.id = $2`
	}
	err := q.db.SelectContext(ctx, &clients,
		`SELECT c.id, c.organization_id, c.first_name, c.last_name, c.phone, c.email, m.lifetime_value
		 FROM clients c
		 LEFT JOIN client_metrics m ON m.client_id = c.id
		 WHERE c.organization_id = $1`+filter+`
		 ORDER BY c.created_at, c.id`, args...)
	if err != nil {
		return nil, err
	}
	if len(clients) == 0 {
		return []domain.ClientProjection{}, nil
	}

	if clientID != "" {
		filter = ` AND client_id = $2`
	}
	var visits []visitRow
	err = q.db.SelectContext(ctx, &visits,
		`SELECT client_id, starts_at FROM appointments
		 WHERE organization_id = $1 AND deleted_at IS NULL`+filter, args...)
	if err != nil {
		return nil, err
	}

	var ratings []ratingRow
	err = q.db.SelectContext(ctx, &ratings,
		`SELECT client_id, AVG(rating) AS satisfaction FROM reviews
		 WHERE organization_id = $1`+filter+`
		 GROUP BY client_id`, args...)
	if err != nil {
		return nil, err
	}

	if clientID != "" {
		filter = ` AND ct.client_id = $2`
	}
	var tags []clientTagRow
	err = q.db.SelectContext(ctx, &tags,
		`SELECT ct.client_id, t.id, t.organization_id, t.name, t.color, t.created_at, t.updated_at
		 FROM client_tags ct
		 JOIN tags t ON t.id = ct.tag_id
		 WHERE ct.organization_id = $1 AND ct.deleted_at IS NULL AND t.deleted_at IS NULL`+filter+`
		 ORDER BY ct.created_at, t.name`, args...)
	if err != nil {
		return nil, err
	}

	projections := make([]domain.ClientProjection, len(clients))
	index := make(map[string]*domain.ClientProjection, len(clients))
	for i, c := range clients {
		projections[i] = domain.ClientProjection{
			ID:             c.ID,
			OrganizationID: c.OrganizationID,
			FirstName:      c.FirstName,
			LastName:       c.LastName,
			Phone:          c.Phone,
			Email:          c.Email,
			LifetimeValue:  c.LifetimeValue,
		}
		index[c.ID] = &projections[i]
	}

	for _, v := range visits {
		p, ok := index[v.ClientID]
		if !ok {
			continue
		}
		p.TotalVisits++
		if p.LastVisitAt == nil || v.StartsAt.After(*p.LastVisitAt) {
			start := v.StartsAt
			p.LastVisitAt = &start
		}
	}

	for _, r := range ratings {
		if p, ok := index[r.ClientID]; ok {
			p.Satisfaction = r.Satisfaction
		}
	}

	for _, t := range tags {
		if p, ok := index[t.ClientID]; ok {
			p.Tags = append(p.Tags, t.Tag)
		}
	}

	return projections, nil
}
