// Package clientview derives the read-side views of an organization's clients:
// the display status of a client, the searchable client list and the
// organization overview. Everything here is pure and works on projections
// already scoped to one organization.
package clientview

import (
	"sort"
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"

	"github.com/bcnelson/salon-crm/internal/domain"
)

// Vocabulary is the table of tag names that count as client statuses.
// Priority is ordered from most to least important; Recognized is a superset
// of Priority that also holds synonyms.
type Vocabulary struct {
	Recognized map[string]struct{}
	Priority   []string
}

// DefaultVocabulary returns the status table used by the API.
func DefaultVocabulary() Vocabulary {
	priority := []string{"BLOCKED", "PROBLEM", "RISK", "VIP", "NEW", "REGULAR"}
	recognized := make(map[string]struct{}, len(priority)+3)
	for _, name := range priority {
		recognized[name] = struct{}{}
	}
	for _, synonym := range []string{"AT RISK", "AT-RISK", "ATRISK"} {
		recognized[synonym] = struct{}{}
	}
	return Vocabulary{Recognized: recognized, Priority: priority}
}

// Classification is the result of checking a tag name against a Vocabulary.
type Classification struct {
	Normalized string
	IsStatus   bool
}

// NormalizeName trims and upper-cases a tag name without regard to locale.
func NormalizeName(name string) string {
	return cases.Upper(language.Und).String(strings.TrimSpace(name))
}

// Classify reports whether name is a status tag name.
func (v Vocabulary) Classify(name string) Classification {
	normalized := NormalizeName(name)
	_, ok := v.Recognized[normalized]
	return Classification{Normalized: normalized, IsStatus: ok}
}

// ResolveStatus picks the display status of a client from its tags using the
// default vocabulary.
func ResolveStatus(tags []domain.Tag) domain.ResolvedStatus {
	return DefaultVocabulary().Resolve(tags)
}

// Resolve picks the display status of a client from its tags.
//
// The first Priority entry matched exactly by a status tag wins; duplicates
// resolve to the earliest tag in input order. When only synonyms are present
// the tag with the alphabetically smallest normalized name wins (ties by tag
// ID). Without status tags the result is the default "Regular" status.
func (v Vocabulary) Resolve(tags []domain.Tag) domain.ResolvedStatus {
	type candidate struct {
		tag        domain.Tag
		normalized string
	}

	var found []candidate
	for _, tag := range tags {
		if c := v.Classify(tag.Name); c.IsStatus {
			found = append(found, candidate{tag: tag, normalized: c.Normalized})
		}
	}
	if len(found) == 0 {
		return domain.ResolvedStatus{Name: domain.DefaultStatusName}
	}

	for _, name := range v.Priority {
		for _, c := range found {
			if c.normalized == name {
				return statusOf(c.tag)
			}
		}
	}

	sort.SliceStable(found, func(i, j int) bool {
		if found[i].normalized != found[j].normalized {
			return found[i].normalized < found[j].normalized
		}
		return found[i].tag.ID < found[j].tag.ID
	})
	return statusOf(found[0].tag)
}

func statusOf(tag domain.Tag) domain.ResolvedStatus {
	return domain.ResolvedStatus{
		TagID: tag.ID,
		Name:  tag.Name,
		Color: tag.Color,
	}
}
