package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics exposes counters/histograms for chat turns and lead capture.
type ChatMetrics struct {
	turnsTotal       *prometheus.CounterVec
	emergenciesTotal *prometheus.CounterVec
	escalationsTotal prometheus.Counter
	leadsTotal       *prometheus.CounterVec
	turnLatency      *prometheus.HistogramVec
}

func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	m := &ChatMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roofing",
			Subsystem: "chat",
			Name:      "turns_total",
			Help:      "Total chat turns by stage reached",
		}, []string{"stage"}),
		emergenciesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roofing",
			Subsystem: "chat",
			Name:      "emergency_turns_total",
			Help:      "Chat turns in conversations with an elevated emergency level",
		}, []string{"level"}),
		escalationsTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "roofing",
			Subsystem: "chat",
			Name:      "escalations_total",
			Help:      "Chat turns handed to a human",
		}),
		leadsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "roofing",
			Subsystem: "leads",
			Name:      "saved_total",
			Help:      "Lead writes by result",
		}, []string{"result"}),
		turnLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "roofing",
			Subsystem: "chat",
			Name:      "turn_latency_seconds",
			Help:      "Latency of chat turn handling, including the reply delay",
			Buckets:   []float64{0.05, 0.1, 0.25, 0.5, 1, 1.5, 2, 3, 5},
		}, []string{"stage"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.emergenciesTotal, m.escalationsTotal, m.leadsTotal, m.turnLatency)
	return m
}

func (m *ChatMetrics) ObserveTurn(stage string, emergencyLevel int, escalated bool, duration time.Duration) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(stage).Inc()
	m.turnLatency.WithLabelValues(stage).Observe(duration.Seconds())
	if emergencyLevel > 1 {
		m.emergenciesTotal.WithLabelValues(strconv.Itoa(emergencyLevel)).Inc()
	}
	if escalated {
		m.escalationsTotal.Inc()
	}
}

// ObserveLeadSaved counts a lead write; result is created, updated, invalid or error.
func (m *ChatMetrics) ObserveLeadSaved(result string) {
	if m == nil {
		return
	}
	m.leadsTotal.WithLabelValues(result).Inc()
}
