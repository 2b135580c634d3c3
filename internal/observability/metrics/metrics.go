package metrics

import "github.com/prometheus/client_golang/prometheus"

// WidgetMetrics exposes counters/histograms for the booking widget flows.
type WidgetMetrics struct {
	slotFetchTotal   *prometheus.CounterVec
	slotFetchLatency *prometheus.HistogramVec
	staleResponses   prometheus.Counter
	dateRejections   *prometheus.CounterVec
	submissionsTotal *prometheus.CounterVec
	activeSessions   prometheus.Gauge
	backendRequests  *prometheus.CounterVec
}

func NewWidgetMetrics(reg prometheus.Registerer) *WidgetMetrics {
	m := &WidgetMetrics{
		slotFetchTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "slot_fetch_total",
			Help:      "Slot retrievals by outcome (ok, empty, error)",
		}, []string{"result"}),
		slotFetchLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "slot_fetch_latency_seconds",
			Help:      "Latency of slot retrieval round trips",
			Buckets:   prometheus.DefBuckets,
		}, []string{"result"}),
		staleResponses: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "stale_slot_responses_total",
			Help:      "Slot responses discarded because a newer date was selected",
		}),
		dateRejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "date_rejections_total",
			Help:      "Date selections rejected by the booking window",
		}, []string{"reason"}),
		submissionsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "submissions_total",
			Help:      "Appointment submissions by outcome (completed, transport_error)",
		}, []string{"outcome", "status"}),
		activeSessions: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "active_sessions",
			Help:      "Live widget sessions held in memory",
		}),
		backendRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "bookerai",
			Subsystem: "widget",
			Name:      "backend_requests_total",
			Help:      "Booking API calls by operation and HTTP status",
		}, []string{"op", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.slotFetchTotal, m.slotFetchLatency, m.staleResponses, m.dateRejections, m.submissionsTotal, m.activeSessions, m.backendRequests)
	return m
}

func (m *WidgetMetrics) ObserveSlotFetch(result string, seconds float64) {
	if m == nil {
		return
	}
	m.slotFetchTotal.WithLabelValues(result).Inc()
	m.slotFetchLatency.WithLabelValues(result).Observe(seconds)
}

func (m *WidgetMetrics) ObserveStaleResponse() {
	if m == nil {
		return
	}
	m.staleResponses.Inc()
}

func (m *WidgetMetrics) ObserveDateRejection(reason string) {
	if m == nil {
		return
	}
	m.dateRejections.WithLabelValues(reason).Inc()
}

// ObserveSubmission records a submission; status is the HTTP status code as
// text, or "none" when the round trip never completed.
func (m *WidgetMetrics) ObserveSubmission(outcome, status string) {
	if m == nil {
		return
	}
	m.submissionsTotal.WithLabelValues(outcome, status).Inc()
}

func (m *WidgetMetrics) SetActiveSessions(n int) {
	if m == nil {
		return
	}
	m.activeSessions.Set(float64(n))
}

// ObserveBackendRequest counts one booking API call; status is "none" when
// no response arrived.
func (m *WidgetMetrics) ObserveBackendRequest(op, status string) {
	if m == nil {
		return
	}
	m.backendRequests.WithLabelValues(op, status).Inc()
}
