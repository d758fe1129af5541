// Package metrics defines and registers the custom Prometheus metrics of the
// clinic web front server. It is the single source of truth for metric names,
// labels and help strings.
//
// Counters register with the default registry on import; RegisterGauges must be
// called once at startup to expose the gauges that read live state.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/clinicbook/clinic-web/internal/core/domain"
	"github.com/clinicbook/clinic-web/internal/core/ports"
)

const namespace = "clinic_web"

// ── Session metrics ───────────────────────────────────────────────────────────

// SessionEventsTotal counts auth-affecting transitions.
// Label:
//   - kind: the event kind (e.g. "resolved_from_cache", "login_failed")
var SessionEventsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "session_events_total",
		Help:      "Total number of session events, by kind.",
	},
	[]string{"kind"},
)

// GateDecisionsTotal counts route gate answers.
// Label:
//   - outcome: "render", "redirect", "loading" or "not_found"
var GateDecisionsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "gate_decisions_total",
		Help:      "Total number of route gate decisions, by outcome.",
	},
	[]string{"outcome"},
)

// ── Backend proxy metrics ─────────────────────────────────────────────────────

// ProxyRequestsTotal counts API requests forwarded to the backend.
// Label:
//   - code: backend status class ("2xx", "4xx", ...) or "error" when unreachable
var ProxyRequestsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "proxy_requests_total",
		Help:      "Total number of API requests forwarded to the backend.",
	},
	[]string{"code"},
)

// RegisterGauges exposes the number of live clients and the audit queue on
// reg. Either func may be nil.
func RegisterGauges(reg prometheus.Registerer, liveClients, auditQueueDepth func() int) error {
	if liveClients != nil {
		if err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_clients",
			Help:      "Number of browser sessions with a client in memory.",
		}, func() float64 { return float64(liveClients()) })); err != nil {
			return err
		}
	}
	if auditQueueDepth != nil {
		if err := reg.Register(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "audit_queue_depth",
			Help:      "Session events waiting to be written to the audit trail.",
		}, func() float64 { return float64(auditQueueDepth()) })); err != nil {
			return err
		}
	}
	return nil
}

// Recorder counts every session event and hands it on to next.
type Recorder struct {
	next ports.EventRecorder
}

// NewRecorder wraps next; a nil next only counts.
func NewRecorder(next ports.EventRecorder) *Recorder {
	if next == nil {
		next = ports.NopRecorder{}
	}
	return &Recorder{next: next}
}

func (r *Recorder) Record(ev domain.SessionEvent) {
	SessionEventsTotal.WithLabelValues(string(ev.Kind)).Inc()
	r.next.Record(ev)
}

// StatusClass maps an HTTP status to its "Nxx" label.
func StatusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	}
	return "1xx"
}
