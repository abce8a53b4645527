// Package observability exports sync lifecycle events as prometheus
// metrics.
package observability

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/events"
)

// Metrics is an events.Observer counting lifecycle events per kind and
// scope, plus a histogram of sync pass durations.
type Metrics struct {
	events       *prometheus.CounterVec
	syncDuration prometheus.Histogram
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		events: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "categorysync",
			Name:      "events_total",
			Help:      "Lifecycle events by kind and scope.",
		}, []string{"kind", "scope"}),
		syncDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: "categorysync",
			Name:      "sync_pass_duration_seconds",
			Help:      "Duration of completed sync passes.",
			Buckets:   prometheus.DefBuckets,
		}),
	}
}

// Observe implements events.Observer.
func (m *Metrics) Observe(ev events.Event) {
	m.events.WithLabelValues(string(ev.Kind), strconv.FormatInt(ev.ScopeID, 10)).Inc()
	if ev.Kind == events.KindSyncCompleted {
		m.syncDuration.Observe(ev.Duration.Seconds())
	}
}
