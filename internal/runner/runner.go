// Package runner drives one codex invocation through build, execute, parse
// and aggregate, recording spans and metrics and feeding the event sink.
package runner

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/ForteScarlet/codex-kkp/internal/apperror"
	"github.com/ForteScarlet/codex-kkp/internal/codex"
	"github.com/ForteScarlet/codex-kkp/internal/event"
	"github.com/ForteScarlet/codex-kkp/internal/logger"
	"github.com/ForteScarlet/codex-kkp/internal/metrics"
	"github.com/ForteScarlet/codex-kkp/internal/result"
	"github.com/ForteScarlet/codex-kkp/internal/sink"
	"github.com/ForteScarlet/codex-kkp/internal/tracing"
)

const maxLoggedStderr = 4096

// Request describes one run.
type Request struct {
	Task   string
	Config codex.ExecConfig
	Full   bool
	// RawArgs are the wrapper's own arguments, echoed in full mode.
	RawArgs []string
}

// Runner executes requests with a codex client.
type Runner struct {
	client *codex.Client
	sink   sink.Sink
	logger *slog.Logger
	newID  func() string
}

// Option configures a Runner.
type Option func(*Runner)

// WithSink sets where events and the final envelope are forwarded.
func WithSink(s sink.Sink) Option {
	return func(r *Runner) {
		if s != nil {
			r.sink = s
		}
	}
}

// WithLogger sets the runner's logger.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) {
		if l != nil {
			r.logger = l
		}
	}
}

// New creates a Runner. Without options events go nowhere and logs are discarded.
func New(client *codex.Client, opts ...Option) *Runner {
	r := &Runner{
		client: client,
		sink:   sink.Nop{},
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		newID:  uuid.NewString,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes req and returns the envelope to print. The error is non-nil
// only when codex could not be run at all (invalid configuration or launch
// failure); failures reported by the agent come back as an error envelope.
func (r *Runner) Run(ctx context.Context, req Request) (*result.Envelope, error) {
	runID := r.newID()
	ctx, span := tracing.Tracer().Start(ctx, "codex.run",
		tracing.WithRunAttributes(runID, string(req.Config.Sandbox), req.Full),
	)
	defer span.End()

	log := r.logger.With("run_id", runID)
	if traceID := tracing.TraceIDFromContext(ctx); traceID != "" {
		log = log.With("trace_id", traceID)
	}
	ctx = logger.WithContext(ctx, log)

	out, err := r.execute(ctx, req)
	if err != nil {
		outcome := metrics.OutcomeLaunchError
		if errors.Is(err, apperror.ErrInvalidConfig) {
			outcome = metrics.OutcomeInvalidConfig
		}
		metrics.RunsTotal.WithLabelValues(outcome).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Error("codex run failed", "error", err)
		return nil, err
	}

	metrics.AgentExitCode.Set(float64(out.ExitCode))
	span.SetAttributes(attribute.Int("codex.exit_code", out.ExitCode))
	if out.ExitCode != 0 && strings.TrimSpace(out.Stdout) == "" {
		log.Warn("codex exited without output", "exit_code", out.ExitCode, "stderr", truncate(out.Stderr))
	} else if out.Stderr != "" {
		log.Debug("codex stderr", "stderr", truncate(out.Stderr))
	}

	events := r.parse(ctx, out.Stdout)
	r.publish(ctx, runID, events)

	env, err := r.aggregate(ctx, req, events)
	if err != nil {
		metrics.RunsTotal.WithLabelValues(metrics.OutcomeAgentError).Inc()
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, apperror.Internal("aggregating events: %v", err)
	}

	outcome := metrics.OutcomeSuccess
	if env.IsError() {
		outcome = metrics.OutcomeAgentError
		span.SetStatus(codes.Error, "agent reported failure")
	}
	metrics.RunsTotal.WithLabelValues(outcome).Inc()
	metrics.RunDuration.WithLabelValues(outcome).Observe(out.Duration.Seconds())

	if err := r.sink.Done(ctx, runID, env); err != nil {
		metrics.SinkPublishes.WithLabelValues("error").Inc()
		log.Warn("publishing result failed", "error", err)
	} else {
		metrics.SinkPublishes.WithLabelValues("ok").Inc()
	}

	log.Info("codex run finished",
		"outcome", outcome,
		"events", len(events),
		"session", env.Session,
		"duration", out.Duration,
	)
	return env, nil
}

func (r *Runner) execute(ctx context.Context, req Request) (*codex.Output, error) {
	_, span := tracing.Tracer().Start(ctx, "codex.execute")
	defer span.End()

	out, err := r.client.Run(req.Task, req.Config)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		return nil, err
	}
	span.SetAttributes(
		attribute.String("codex.program", r.client.Program()),
		attribute.Int("codex.stdout_bytes", len(out.Stdout)),
	)
	return out, nil
}

func (r *Runner) parse(ctx context.Context, output string) []event.Event {
	_, span := tracing.Tracer().Start(ctx, "codex.parse")
	defer span.End()

	events, stats := r.client.Parser().Parse(output)

	for _, ev := range events {
		metrics.EventsTotal.WithLabelValues(metricType(ev)).Inc()
	}
	metrics.UnknownEvents.Add(float64(stats.Unknown))
	metrics.LinesDropped.Add(float64(stats.Dropped))
	if u := event.TurnUsage(events); u != nil {
		metrics.TokensTotal.WithLabelValues("input").Add(float64(u.InputTokens))
		metrics.TokensTotal.WithLabelValues("cached_input").Add(float64(u.CachedInputTokens))
		metrics.TokensTotal.WithLabelValues("output").Add(float64(u.OutputTokens))
	}

	span.SetAttributes(
		attribute.Int("parse.lines", stats.Lines),
		attribute.Int("parse.decoded", stats.Decoded),
		attribute.Int("parse.dropped", stats.Dropped),
		attribute.Int("parse.unknown", stats.Unknown),
	)
	if stats.Dropped > 0 {
		logger.FromContext(ctx).Debug("dropped undecodable lines", "dropped", stats.Dropped, "lines", stats.Lines)
	}
	return events
}

func (r *Runner) publish(ctx context.Context, runID string, events []event.Event) {
	for _, ev := range events {
		if err := r.sink.Emit(ctx, runID, ev); err != nil {
			metrics.SinkPublishes.WithLabelValues("error").Inc()
			logger.FromContext(ctx).Warn("publishing event failed, skipping remaining events", "error", err)
			return
		}
		metrics.SinkPublishes.WithLabelValues("ok").Inc()
	}
}

func (r *Runner) aggregate(ctx context.Context, req Request, events []event.Event) (*result.Envelope, error) {
	_, span := tracing.Tracer().Start(ctx, "codex.aggregate")
	defer span.End()
	span.SetAttributes(attribute.Bool("run.full", req.Full))
	return result.Aggregate(req.RawArgs, events, req.Full)
}

// metricType keeps label cardinality bounded: unknown discriminators share one label.
func metricType(ev event.Event) string {
	if _, ok := ev.(event.UnknownEvent); ok {
		return "unknown"
	}
	return ev.EventType()
}

func truncate(s string) string {
	if len(s) <= maxLoggedStderr {
		return s
	}
	return s[:maxLoggedStderr] + "...(truncated)"
}
