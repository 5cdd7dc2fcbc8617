package workout

import (
	"github.com/2beens/dailyfit/internal/telemetry/metrics"
)

// MetricsListener counts controller events in prometheus.
type MetricsListener struct {
	metrics *metrics.Manager
}

func NewMetricsListener(m *metrics.Manager) *MetricsListener {
	return &MetricsListener{metrics: m}
}

func (l *MetricsListener) OnEvent(e Event) {
	switch e.Type {
	case EventSessionStarted:
		l.metrics.CounterSessionsStarted.Inc()
		l.metrics.GaugeActiveSessions.Inc()
	case EventSessionFinished:
		l.metrics.CounterSessionsFinished.Inc()
		l.metrics.GaugeActiveSessions.Dec()
		if e.Session != nil {
			if d, ok := e.Session.Duration(); ok {
				l.metrics.HistSessionDuration.Observe(d.Seconds())
			}
		}
	case EventSetAdded:
		l.metrics.CounterSetsAdded.Inc()
	case EventSetRemoved:
		l.metrics.CounterSetsRemoved.Inc()
	case EventValidationFailed:
		l.metrics.CounterValidationFailures.WithLabelValues(e.Field).Inc()
	}
}
