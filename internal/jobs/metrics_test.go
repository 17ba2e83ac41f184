package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingObserver struct {
	calls map[string]int
}

func (c *countingObserver) ObserveJob(task string, err error) {
	key := task + ":ok"
	if err != nil {
		key = task + ":error"
	}
	c.calls[key]++
}

func TestTrackerForwardsOutcome(t *testing.T) {
	observer := &countingObserver{calls: map[string]int{}}
	metrics := NewMetrics(prometheus.NewRegistry(), observer)

	boom := errors.New("boom")
	require.NoError(t, metrics.Track("scan").End(nil))
	require.ErrorIs(t, metrics.Track("scan").End(boom), boom)

	assert.Equal(t, 1, observer.calls["scan:ok"])
	assert.Equal(t, 1, observer.calls["scan:error"])
}

func TestAddItems(t *testing.T) {
	metrics := NewMetrics(prometheus.NewRegistry(), nil)
	metrics.AddItems("scan", 3)
	metrics.AddItems("scan", 0)
	assert.Equal(t, float64(3), testutil.ToFloat64(metrics.items.WithLabelValues("scan")))

	var nilMetrics *Metrics
	nilMetrics.AddItems("scan", 1)
	assert.NoError(t, nilMetrics.Track("scan").End(nil))
}
