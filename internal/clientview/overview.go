package clientview

import (
	"math"

	"github.com/bcnelson/salon-crm/internal/domain"
)

// ComputeOverview summarizes an organization's clients.
// Averages round half away from zero: LTV to whole units, satisfaction to one
// decimal. No clients yields the zero Overview.
func ComputeOverview(clients []domain.ClientProjection) domain.Overview {
	if len(clients) == 0 {
		return domain.Overview{}
	}

	var (
		returning    int
		ltvSum       float64
		satisfaction float64
	)
	for _, c := range clients {
		if c.TotalVisits > 1 {
			returning++
		}
		if c.LifetimeValue != nil {
			ltvSum += *c.LifetimeValue
		}
		satisfaction += c.Satisfaction
	}

	n := float64(len(clients))
	return domain.Overview{
		TotalClients:     len(clients),
		ReturningClients: returning,
		AverageLTV:       math.Round(ltvSum / n),
		Satisfaction:     roundTo(satisfaction/n, 1),
	}
}

func roundTo(v float64, decimals int) float64 {
	p := math.Pow(10, float64(decimals))
	return math.Round(v*p) / p
}
