package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus instruments for the message pipeline.
//
// Naming follows the nexus_* convention:
//   - nexus_messages_total{channel,direction}
//   - nexus_messages_dropped_total{reason}
//   - nexus_llm_requests_total{model,status}
//   - nexus_llm_request_duration_seconds{model}
//   - nexus_tool_executions_total{tool,status}
//   - nexus_loop_steps{outcome}
//   - nexus_errors_total{component}
type Metrics struct {
	messagesTotal      *prometheus.CounterVec
	messagesDropped    *prometheus.CounterVec
	llmRequestsTotal   *prometheus.CounterVec
	llmRequestDuration *prometheus.HistogramVec
	toolExecutions     *prometheus.CounterVec
	loopSteps          *prometheus.HistogramVec
	errorsTotal        *prometheus.CounterVec
}

// NewMetrics registers the instrument set on reg. Pass a fresh
// prometheus.NewRegistry() in tests to avoid default-registry collisions;
// pass nil for the default registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &Metrics{
		messagesTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_messages_total",
			Help: "Messages processed by channel and direction.",
		}, []string{"channel", "direction"}),

		messagesDropped: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_messages_dropped_total",
			Help: "Inbound messages dropped before reasoning, by reason.",
		}, []string{"reason"}),

		llmRequestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_llm_requests_total",
			Help: "LLM completion requests by model and status.",
		}, []string{"model", "status"}),

		llmRequestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexus_llm_request_duration_seconds",
			Help:    "LLM completion request latency.",
			Buckets: []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
		}, []string{"model"}),

		toolExecutions: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_tool_executions_total",
			Help: "Tool executions by tool name and status.",
		}, []string{"tool", "status"}),

		loopSteps: factory.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "nexus_loop_steps",
			Help:    "Reasoning steps consumed per inbound message.",
			Buckets: []float64{1, 2, 3, 4, 5, 6, 8, 10},
		}, []string{"outcome"}),

		errorsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "nexus_errors_total",
			Help: "Errors by component.",
		}, []string{"component"}),
	}
}

// MessageReceived records an inbound message on a channel.
func (m *Metrics) MessageReceived(channel string) {
	m.messagesTotal.WithLabelValues(channel, "inbound").Inc()
}

// MessageSent records an outbound message on a channel.
func (m *Metrics) MessageSent(channel string) {
	m.messagesTotal.WithLabelValues(channel, "outbound").Inc()
}

// MessageDropped records a message discarded before reasoning.
func (m *Metrics) MessageDropped(reason string) {
	m.messagesDropped.WithLabelValues(reason).Inc()
}

// RecordLLMRequest records one completion attempt.
func (m *Metrics) RecordLLMRequest(model, status string, duration time.Duration) {
	m.llmRequestsTotal.WithLabelValues(model, status).Inc()
	m.llmRequestDuration.WithLabelValues(model).Observe(duration.Seconds())
}

// RecordToolExecution records one tool run.
func (m *Metrics) RecordToolExecution(tool string, ok bool) {
	status := "ok"
	if !ok {
		status = "error"
	}
	m.toolExecutions.WithLabelValues(tool, status).Inc()
}

// RecordLoopSteps records how many reasoning steps a message consumed.
func (m *Metrics) RecordLoopSteps(outcome string, steps int) {
	m.loopSteps.WithLabelValues(outcome).Observe(float64(steps))
}

// RecordError records a component-level failure.
func (m *Metrics) RecordError(component string) {
	m.errorsTotal.WithLabelValues(component).Inc()
}
