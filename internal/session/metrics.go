package session

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/goatkit/agentlink/internal/incontact"
)

type sessionMetrics struct {
	opened  prometheus.Counter
	closed  *prometheus.CounterVec
	polls   *prometheus.CounterVec
	sends   prometheus.Counter
	blocked prometheus.Counter
}

var (
	metricsOnce sync.Once
	metricsInst *sessionMetrics
)

func globalMetrics() *sessionMetrics {
	metricsOnce.Do(func() {
		metricsInst = newSessionMetrics()
	})
	return metricsInst
}

func newSessionMetrics() *sessionMetrics {
	return &sessionMetrics{
		opened: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agentlink",
			Subsystem: "session",
			Name:      "opened_total",
			Help:      "Chat sessions opened against the contact center",
		}),
		closed: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentlink",
			Subsystem: "session",
			Name:      "closed_total",
			Help:      "Chat sessions closed, labeled by termination reason",
		}, []string{"reason"}),
		polls: promauto.NewCounterVec(prometheus.CounterOpts{
			Namespace: "agentlink",
			Subsystem: "session",
			Name:      "polls_total",
			Help:      "Chat polls processed, labeled by routed effect",
		}, []string{"effect"}),
		sends: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agentlink",
			Subsystem: "session",
			Name:      "sends_total",
			Help:      "Messages relayed to the remote agent",
		}),
		blocked: promauto.NewCounter(prometheus.CounterOpts{
			Namespace: "agentlink",
			Subsystem: "session",
			Name:      "escalations_blocked_total",
			Help:      "Escalation attempts blocked by the availability gate",
		}),
	}
}

func (m *sessionMetrics) openedRecorded() {
	if m == nil {
		return
	}
	m.opened.Inc()
}

func (m *sessionMetrics) closedRecorded(reason CloseReason) {
	if m == nil {
		return
	}
	m.closed.WithLabelValues(string(reason)).Inc()
}

func (m *sessionMetrics) pollRecorded(effect incontact.Effect) {
	if m == nil {
		return
	}
	m.polls.WithLabelValues(effect.String()).Inc()
}

func (m *sessionMetrics) sendRecorded() {
	if m == nil {
		return
	}
	m.sends.Inc()
}

func (m *sessionMetrics) blockedRecorded() {
	if m == nil {
		return
	}
	m.blocked.Inc()
}
