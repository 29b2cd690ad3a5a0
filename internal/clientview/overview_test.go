package clientview_test

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/bcnelson/salon-crm/internal/clientview"
	"github.com/bcnelson/salon-crm/internal/domain"
)

func floatPtr(f float64) *float64 { return &f }

func TestComputeOverview_Empty(t *testing.T) {
	got := clientview.ComputeOverview(nil)

	assert.Equal(t, domain.Overview{}, got)
	assert.False(t, math.IsNaN(got.AverageLTV))
	assert.False(t, math.IsNaN(got.Satisfaction))
}

func TestComputeOverview_ReturningClients(t *testing.T) {
	clients := []domain.ClientProjection{{TotalVisits: 1}, {TotalVisits: 2}, {TotalVisits: 3}}

	got := clientview.ComputeOverview(clients)

	assert.Equal(t, 3, got.TotalClients)
	assert.Equal(t, 2, got.ReturningClients)
}

func TestComputeOverview_AverageLTV(t *testing.T) {
	tests := []struct {
		name string
		ltv  []*float64
		want float64
	}{
		{"missing counts as zero", []*float64{floatPtr(100), nil, floatPtr(200)}, 100},
		{"one third rounds down", []*float64{floatPtr(100), nil, nil}, 33},
		{"two thirds rounds up", []*float64{floatPtr(200), nil, nil}, 67},
		{"half rounds away from zero", []*float64{floatPtr(5), nil}, 3},
		{"all missing", []*float64{nil, nil}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clients := make([]domain.ClientProjection, 0, len(tt.ltv))
			for _, v := range tt.ltv {
				clients = append(clients, domain.ClientProjection{LifetimeValue: v})
			}
			assert.Equal(t, tt.want, clientview.ComputeOverview(clients).AverageLTV)
		})
	}
}

func TestComputeOverview_Satisfaction(t *testing.T) {
	clients := []domain.ClientProjection{
		{Satisfaction: 4.5},
		{Satisfaction: 0},
		{Satisfaction: 5},
	}

	got := clientview.ComputeOverview(clients)

	// (4.5 + 0 + 5) / 3 = 3.1666...
	assert.Equal(t, 3.2, got.Satisfaction)
}
