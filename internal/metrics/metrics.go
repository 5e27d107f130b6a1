package metrics

import (
	"strconv"
	"strings"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records pipeline activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	snapshots     *prometheus.CounterVec
	liveFailures  prometheus.Counter
	alerts        *prometheus.CounterVec
	notifications *prometheus.CounterVec
}

// New registers the pipeline metrics on the provided registerer.
func New(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		return &Metrics{}
	}
	snapshots := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrisense_snapshots_total",
		Help: "Environmental snapshots produced, by source.",
	}, []string{"source"})
	liveFailures := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "agrisense_live_fetch_failures_total",
		Help: "Live environmental fetches that fell back to synthesis.",
	})
	alerts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrisense_alerts_generated_total",
		Help: "Alerts generated, by family and level.",
	}, []string{"family", "level"})
	notifications := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "agrisense_notifications_sent_total",
		Help: "Notifications recorded, by type and whether they were presented.",
	}, []string{"type", "presented"})
	reg.MustRegister(snapshots, liveFailures, alerts, notifications)
	return &Metrics{
		snapshots:     snapshots,
		liveFailures:  liveFailures,
		alerts:        alerts,
		notifications: notifications,
	}
}

func (m *Metrics) IncSnapshot(source string) {
	if m == nil || m.snapshots == nil {
		return
	}
	m.snapshots.WithLabelValues(normalizeLabel(source)).Inc()
}

func (m *Metrics) IncLiveFailure() {
	if m == nil || m.liveFailures == nil {
		return
	}
	m.liveFailures.Inc()
}

func (m *Metrics) IncAlert(family, level string) {
	if m == nil || m.alerts == nil {
		return
	}
	m.alerts.WithLabelValues(normalizeLabel(family), normalizeLabel(level)).Inc()
}

func (m *Metrics) IncNotification(notificationType string, presented bool) {
	if m == nil || m.notifications == nil {
		return
	}
	m.notifications.WithLabelValues(normalizeLabel(notificationType), strconv.FormatBool(presented)).Inc()
}

func normalizeLabel(value string) string {
	value = strings.TrimSpace(strings.ToLower(value))
	if value == "" {
		return "unknown"
	}
	return value
}
