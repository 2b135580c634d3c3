package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}

func TestWidgetMetricsObserve(t *testing.T) {
	m := NewWidgetMetrics(prometheus.NewRegistry())
	m.ObserveSlotFetch("ok", 0.2)
	m.ObserveSlotFetch("ok", 0.1)
	m.ObserveSlotFetch("error", 1.5)
	m.ObserveStaleResponse()
	m.ObserveDateRejection("too_far")
	m.ObserveSubmission("completed", "201")
	m.SetActiveSessions(3)
	m.ObserveBackendRequest("get_slots", "200")
	m.ObserveBackendRequest("get_slots", "none")

	assert.Equal(t, 2.0, counterValue(t, m.slotFetchTotal.WithLabelValues("ok")))
	assert.Equal(t, 1.0, counterValue(t, m.slotFetchTotal.WithLabelValues("error")))
	assert.Equal(t, 1.0, counterValue(t, m.staleResponses))
	assert.Equal(t, 1.0, counterValue(t, m.dateRejections.WithLabelValues("too_far")))
	assert.Equal(t, 1.0, counterValue(t, m.submissionsTotal.WithLabelValues("completed", "201")))
	assert.Equal(t, 1.0, counterValue(t, m.backendRequests.WithLabelValues("get_slots", "200")))
	assert.Equal(t, 1.0, counterValue(t, m.backendRequests.WithLabelValues("get_slots", "none")))

	var g dto.Metric
	require.NoError(t, m.activeSessions.Write(&g))
	assert.Equal(t, 3.0, g.GetGauge().GetValue())
}

func TestWidgetMetricsDefaultRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewWidgetMetrics(reg)
	m.ObserveSubmission("transport_error", "none")

	families, err := reg.Gather()
	require.NoError(t, err)
	names := make([]string, 0, len(families))
	for _, f := range families {
		names = append(names, f.GetName())
	}
	assert.Contains(t, names, "bookerai_widget_submissions_total")
}

func TestWidgetMetricsNilSafe(t *testing.T) {
	var m *WidgetMetrics
	m.ObserveSlotFetch("ok", 0.1)
	m.ObserveStaleResponse()
	m.ObserveDateRejection("past")
	m.ObserveSubmission("completed", "200")
	m.SetActiveSessions(1)
}
