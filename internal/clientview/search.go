package clientview

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bcnelson/salon-crm/internal/domain"
)

// filterAll is the filter token that disables tag filtering.
const filterAll = "all"

// NormalizeQuery trims a free-text query and lower-cases it without regard to locale.
func NormalizeQuery(query string) string {
	return lower(strings.TrimSpace(query))
}

func lower(s string) string {
	return cases.Lower(language.Und).String(s)
}

// FullName joins first and last name with a single space, omitting the space
// when the last name is empty.
func FullName(firstName, lastName string) string {
	if lastName == "" {
		return firstName
	}
	return firstName + " " + lastName
}

// Matches reports whether a client matches an already normalized query.
// An empty query matches every client.
func Matches(c domain.ClientProjection, normalizedQuery string) bool {
	if normalizedQuery == "" {
		return true
	}
	if strings.Contains(lower(FullName(c.FirstName, c.LastName)), normalizedQuery) {
		return true
	}
	if strings.Contains(lower(c.Phone), normalizedQuery) {
		return true
	}
	return c.Email != nil && strings.Contains(lower(*c.Email), normalizedQuery)
}

// HasTag reports whether the client carries the tag with the given ID.
func HasTag(c domain.ClientProjection, tagID string) bool {
	for _, tag := range c.Tags {
		if tag.ID == tagID {
			return true
		}
	}
	return false
}

// Search filters clients by free-text query and optional tag ID and returns
// them as list items, most recently visited first. Clients that never visited
// sort last; the sort is stable.
func Search(clients []domain.ClientProjection, query string, statusFilter *string) []domain.ClientListItem {
	q := NormalizeQuery(query)

	matched := make([]domain.ClientProjection, 0, len(clients))
	for _, c := range clients {
		if !Matches(c, q) {
			continue
		}
		if statusFilter != nil && !HasTag(c, *statusFilter) {
			continue
		}
		matched = append(matched, c)
	}

	sort.SliceStable(matched, func(i, j int) bool {
		a, b := matched[i].LastVisitAt, matched[j].LastVisitAt
		switch {
		case a == nil:
			return false
		case b == nil:
			return true
		default:
			return a.After(*b)
		}
	})

	items := make([]domain.ClientListItem, 0, len(matched))
	for _, c := range matched {
		items = append(items, ListItem(c))
	}
	return items
}

// ListItem projects a client into its list row, resolving its status.
func ListItem(c domain.ClientProjection) domain.ClientListItem {
	tags := c.Tags
	if tags == nil {
		tags = []domain.Tag{}
	}
	return domain.ClientListItem{
		ID:            c.ID,
		FirstName:     c.FirstName,
		LastName:      c.LastName,
		Phone:         c.Phone,
		Email:         c.Email,
		Tags:          tags,
		LastVisitAt:   c.LastVisitAt,
		LifetimeValue: c.LifetimeValue,
		Status:        ResolveStatus(c.Tags),
	}
}

// ResolveFilter maps a caller's filter token to a tag ID filter.
//
// "" and "all" disable filtering, as does any token that is neither a tag ID of
// the organization nor a status name. A status name selects the organization's
// tag carrying that name; when the organization has no such tag the returned
// filter matches no client.
func ResolveFilter(token string, orgTags []domain.Tag) *string {
	token = strings.TrimSpace(token)
	if token == "" || strings.EqualFold(token, filterAll) {
		return nil
	}
	for _, tag := range orgTags {
		if tag.ID == token {
			id := tag.ID
			return &id
		}
	}

	vocab := DefaultVocabulary()
	key := vocab.Classify(token)
	if !key.IsStatus {
		return nil
	}
	for _, tag := range orgTags {
		if NormalizeName(tag.Name) == key.Normalized {
			id := tag.ID
			return &id
		}
	}
	none := ""
	return &none
}
