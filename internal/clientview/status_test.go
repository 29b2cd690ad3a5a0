package clientview_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bcnelson/salon-crm/internal/clientview"
	"github.com/bcnelson/salon-crm/internal/domain"
)

func strPtr(s string) *string { return &s }

func tag(id, name string) domain.Tag {
	return domain.Tag{ID: id, OrganizationID: "org1", Name: name}
}

func TestResolveStatus_NoTags(t *testing.T) {
	got := clientview.ResolveStatus(nil)
	assert.Equal(t, domain.ResolvedStatus{Name: "Regular"}, got)

	got = clientview.ResolveStatus([]domain.Tag{tag("t1", "Loyal"), tag("t2", "Birthday")})
	assert.Equal(t, domain.ResolvedStatus{Name: "Regular"}, got)
}

func TestResolveStatus_Priority(t *testing.T) {
	tests := []struct {
		name   string
		tags   []domain.Tag
		wantID string
	}{
		{"vip beats new", []domain.Tag{tag("new", "New"), tag("vip", "VIP")}, "vip"},
		{"blocked beats everything", []domain.Tag{tag("vip", "vip"), tag("blk", "Blocked"), tag("risk", "Risk")}, "blk"},
		{"problem beats risk", []domain.Tag{tag("risk", "RISK"), tag("prob", "problem")}, "prob"},
		{"exact name beats synonym", []domain.Tag{tag("syn", "At Risk"), tag("new", "New")}, "new"},
		{"whitespace and case are ignored", []domain.Tag{tag("vip", "  vIp  ")}, "vip"},
		{"duplicate names keep input order", []domain.Tag{tag("b", "VIP"), tag("a", "vip")}, "b"},
		{"explicit regular tag", []domain.Tag{tag("reg", "Regular")}, "reg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := clientview.ResolveStatus(tt.tags)
			assert.Equal(t, tt.wantID, got.TagID)
		})
	}
}

func TestResolveStatus_CarriesTagNameAndColor(t *testing.T) {
	vip := domain.Tag{ID: "vip", Name: "Vip", Color: strPtr("#FFD700")}

	got := clientview.ResolveStatus([]domain.Tag{vip})

	assert.Equal(t, "vip", got.TagID)
	assert.Equal(t, "Vip", got.Name)
	assert.Equal(t, strPtr("#FFD700"), got.Color)
}

func TestResolveStatus_SynonymsOnly(t *testing.T) {
	single := clientview.ResolveStatus([]domain.Tag{tag("syn", "At Risk")})
	assert.Equal(t, "syn", single.TagID)
	assert.Equal(t, "At Risk", single.Name)

	// Only synonyms: alphabetical by normalized name, "AT RISK" < "AT-RISK" < "ATRISK".
	tags := []domain.Tag{tag("c", "atrisk"), tag("b", "at-risk"), tag("a", "At Risk")}
	assert.Equal(t, "a", clientview.ResolveStatus(tags).TagID)

	reversed := []domain.Tag{tags[2], tags[1], tags[0]}
	assert.Equal(t, "a", clientview.ResolveStatus(reversed).TagID)

	// Same normalized name: smaller tag ID wins.
	same := []domain.Tag{tag("z", "AT-RISK"), tag("m", "at-risk")}
	assert.Equal(t, "m", clientview.ResolveStatus(same).TagID)
}

func TestResolveStatus_Idempotent(t *testing.T) {
	tags := []domain.Tag{tag("n", "New"), tag("v", "VIP"), tag("x", "ATRISK")}

	first := clientview.ResolveStatus(tags)
	second := clientview.ResolveStatus(tags)

	assert.Equal(t, first, second)
}

func TestClassify(t *testing.T) {
	vocab := clientview.DefaultVocabulary()

	tests := []struct {
		name       string
		normalized string
		isStatus   bool
	}{
		{" vip ", "VIP", true},
		{"at risk", "AT RISK", true},
		{"At-Risk", "AT-RISK", true},
		{"atRisk", "ATRISK", true},
		{"risky", "RISKY", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := vocab.Classify(tt.name)
			assert.Equal(t, tt.normalized, c.Normalized)
			assert.Equal(t, tt.isStatus, c.IsStatus)
		})
	}
}

func TestVocabulary_Custom(t *testing.T) {
	vocab := clientview.Vocabulary{
		Recognized: map[string]struct{}{"GOLD": {}, "SILVER": {}},
		Priority:   []string{"GOLD", "SILVER"},
	}

	got := vocab.Resolve([]domain.Tag{tag("s", "silver"), tag("g", "Gold"), tag("v", "VIP")})

	assert.Equal(t, "g", got.TagID)
}
