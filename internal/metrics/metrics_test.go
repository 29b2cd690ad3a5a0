package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestNew_IndependentRegistries(t *testing.T) {
	a := New()
	b := New()

	a.ClientsCreated.Inc()

	assert.Equal(t, float64(1), testutil.ToFloat64(a.ClientsCreated))
	assert.Equal(t, float64(0), testutil.ToFloat64(b.ClientsCreated))
}

func TestObserveSearchAndCache(t *testing.T) {
	m := New()

	m.ObserveSearch(true)
	m.ObserveSearch(false)
	m.ObserveSearch(false)
	m.ObserveCache("hit")

	assert.Equal(t, float64(1), testutil.ToFloat64(m.Searches.WithLabelValues("true")))
	assert.Equal(t, float64(2), testutil.ToFloat64(m.Searches.WithLabelValues("false")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.OverviewCache.WithLabelValues("hit")))
	assert.Equal(t, float64(0), testutil.ToFloat64(m.OverviewCache.WithLabelValues("miss")))
}
