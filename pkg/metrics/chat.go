package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ChatMetrics records reconciliation and repair-loop outcomes per tenant.
type ChatMetrics struct {
	turnDuration    *prometheus.HistogramVec
	mismatches      *prometheus.CounterVec
	repairAttempts  *prometheus.CounterVec
	repairExhausted *prometheus.CounterVec
	llmTimeouts     *prometheus.CounterVec
}

// NewChatMetrics registers the chat metrics on the provided registerer.
func NewChatMetrics(reg prometheus.Registerer) *ChatMetrics {
	if reg == nil {
		return &ChatMetrics{}
	}
	turnDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "chat_turn_duration_seconds",
		Help:    "Duration of inbound chat turn handling in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"tenant"})
	mismatches := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_reconcile_mismatch",
		Help: "Orders where model-declared figures diverged from the recomputation.",
	}, []string{"tenant"})
	repairAttempts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_repair_attempts",
		Help: "Individual repair-loop attempts against the model.",
	}, []string{"tenant"})
	repairExhausted := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_repair_exhausted",
		Help: "Repair loops that ran out of attempts and fell back to a templated summary.",
	}, []string{"tenant"})
	llmTimeouts := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "chat_llm_timeout",
		Help: "Model calls that hit the configured timeout.",
	}, []string{"tenant"})
	reg.MustRegister(turnDuration, mismatches, repairAttempts, repairExhausted, llmTimeouts)
	return &ChatMetrics{
		turnDuration:    turnDuration,
		mismatches:      mismatches,
		repairAttempts:  repairAttempts,
		repairExhausted: repairExhausted,
		llmTimeouts:     llmTimeouts,
	}
}

// ObserveTurnDuration records how long one inbound turn took.
func (c *ChatMetrics) ObserveTurnDuration(tenant string, duration time.Duration) {
	if c == nil || c.turnDuration == nil {
		return
	}
	c.turnDuration.WithLabelValues(normalizeLabel(tenant)).Observe(duration.Seconds())
}

// IncMismatch increments the mismatch counter for the tenant.
func (c *ChatMetrics) IncMismatch(tenant string) {
	if c == nil || c.mismatches == nil {
		return
	}
	c.mismatches.WithLabelValues(normalizeLabel(tenant)).Inc()
}

// IncRepairAttempt increments the repair attempt counter for the tenant.
func (c *ChatMetrics) IncRepairAttempt(tenant string) {
	if c == nil || c.repairAttempts == nil {
		return
	}
	c.repairAttempts.WithLabelValues(normalizeLabel(tenant)).Inc()
}

// IncRepairExhausted increments the exhausted-loop counter for the tenant.
func (c *ChatMetrics) IncRepairExhausted(tenant string) {
	if c == nil || c.repairExhausted == nil {
		return
	}
	c.repairExhausted.WithLabelValues(normalizeLabel(tenant)).Inc()
}

// IncLLMTimeout increments the model-timeout counter for the tenant.
func (c *ChatMetrics) IncLLMTimeout(tenant string) {
	if c == nil || c.llmTimeouts == nil {
		return
	}
	c.llmTimeouts.WithLabelValues(normalizeLabel(tenant)).Inc()
}

func normalizeLabel(tenant string) string {
	if tenant == "" {
		return "unknown"
	}
	return tenant
}
