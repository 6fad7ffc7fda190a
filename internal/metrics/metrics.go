package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Registry holds every collector of the wrapper. It is separate from the
// default registry so the textfile only carries run metrics.
var Registry = prometheus.NewRegistry()

var factory = promauto.With(Registry)

// Run outcomes.
const (
	OutcomeSuccess       = "success"
	OutcomeAgentError    = "agent_error"
	OutcomeInvalidConfig = "invalid_config"
	OutcomeLaunchError   = "launch_error"
)

var (
	// RunsTotal counts codex runs by outcome.
	RunsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexkkp_runs_total",
			Help: "Total number of codex runs",
		},
		[]string{"outcome"},
	)

	// RunDuration tracks how long codex ran, in seconds.
	RunDuration = factory.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "codexkkp_run_duration_seconds",
			Help:    "Codex run duration in seconds",
			Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600, 1800},
		},
		[]string{"outcome"},
	)

	// EventsTotal counts decoded events by discriminator.
	EventsTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexkkp_events_total",
			Help: "Total number of decoded codex events",
		},
		[]string{"type"},
	)

	// UnknownEvents counts events that fell back to the unknown variant.
	UnknownEvents = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "codexkkp_unknown_events_total",
			Help: "Total number of events with an unrecognised type",
		},
	)

	// LinesDropped counts output lines that could not be decoded.
	LinesDropped = factory.NewCounter(
		prometheus.CounterOpts{
			Name: "codexkkp_lines_dropped_total",
			Help: "Total number of output lines dropped by the parser",
		},
	)

	// TokensTotal counts reported token usage by kind (input, cached_input, output).
	TokensTotal = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexkkp_tokens_total",
			Help: "Total number of tokens reported by turn.completed events",
		},
		[]string{"kind"},
	)

	// AgentExitCode is the exit code of the last codex process.
	AgentExitCode = factory.NewGauge(
		prometheus.GaugeOpts{
			Name: "codexkkp_agent_exit_code",
			Help: "Exit code of the last codex process",
		},
	)

	// SinkPublishes counts event sink publish attempts.
	SinkPublishes = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexkkp_sink_publishes_total",
			Help: "Total number of event sink publish attempts",
		},
		[]string{"status"},
	)

	// WebhookDeliveries counts webhook delivery outcomes.
	WebhookDeliveries = factory.NewCounterVec(
		prometheus.CounterOpts{
			Name: "codexkkp_webhook_deliveries_total",
			Help: "Total number of webhook deliveries by outcome",
		},
		[]string{"status"},
	)
)

// WriteTextfile writes the registry to path in the text exposition format
// for the node_exporter textfile collector. An empty path is a no-op.
func WriteTextfile(path string) error {
	if path == "" {
		return nil
	}
	return prometheus.WriteToTextfile(path, Registry)
}
