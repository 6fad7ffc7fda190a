// Package webhook delivers a run's final envelope to an HTTP callback.
package webhook

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"math"
	"net/http"
	"strings"
	"time"

	"go.opentelemetry.io/otel/trace"

	"github.com/ForteScarlet/codex-kkp/internal/event"
	"github.com/ForteScarlet/codex-kkp/internal/metrics"
	"github.com/ForteScarlet/codex-kkp/internal/result"
)

// Payload is the webhook request body.
type Payload struct {
	RunID      string           `json:"run_id"`
	Status     string           `json:"status"`
	Session    string           `json:"session,omitempty"`
	Envelope   *result.Envelope `json:"envelope"`
	TraceID    string           `json:"trace_id,omitempty"`
	FinishedAt time.Time        `json:"finished_at"`
}

// Sender delivers webhook callbacks with HMAC-SHA256 signatures. It
// satisfies sink.Sink: events are ignored and only the envelope is sent.
type Sender struct {
	client     *http.Client
	url        string
	secret     string
	maxRetries int
	baseDelay  time.Duration
	logger     *slog.Logger
	now        func() time.Time
}

// NewSender creates a webhook sender for url.
func NewSender(url, secret string, maxRetries int, baseDelay time.Duration, logger *slog.Logger) *Sender {
	if logger == nil {
		logger = slog.Default()
	}
	return &Sender{
		client: &http.Client{
			Timeout: 10 * time.Second,
		},
		url:        url,
		secret:     secret,
		maxRetries: maxRetries,
		baseDelay:  baseDelay,
		logger:     logger,
		now:        time.Now,
	}
}

// Emit does nothing; per-event delivery goes through the Redis sink.
func (s *Sender) Emit(context.Context, string, event.Event) error { return nil }

// Done sends the final envelope.
func (s *Sender) Done(ctx context.Context, runID string, env *result.Envelope) error {
	payload := Payload{
		RunID:      runID,
		Status:     strings.ToLower(string(env.Type)),
		Session:    env.Session,
		Envelope:   env,
		FinishedAt: s.now().UTC(),
	}
	if sc := trace.SpanContextFromContext(ctx); sc.HasTraceID() {
		payload.TraceID = sc.TraceID().String()
	}
	return s.Send(ctx, payload)
}

// Send delivers payload with retries and exponential backoff.
func (s *Sender) Send(ctx context.Context, payload Payload) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling webhook payload: %w", err)
	}

	sig := s.sign(body)
	eventType := "run." + payload.Status

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			delay := time.Duration(math.Pow(5, float64(attempt-1))) * s.baseDelay
			s.logger.Info("webhook retry", "attempt", attempt, "delay", delay, "url", s.url)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(delay):
			}
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.url, bytes.NewReader(body))
		if err != nil {
			return fmt.Errorf("creating webhook request: %w", err)
		}

		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("X-Signature-256", "sha256="+sig)
		req.Header.Set("X-CodexKKP-Event", eventType)
		if payload.TraceID != "" {
			req.Header.Set("X-Trace-ID", payload.TraceID)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Warn("webhook request failed", "attempt", attempt, "error", err, "url", s.url)
			continue
		}
		resp.Body.Close()

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			s.logger.Debug("webhook delivered", "url", s.url, "status", resp.StatusCode, "attempt", attempt)
			metrics.WebhookDeliveries.WithLabelValues("success").Inc()
			return nil
		}

		s.logger.Warn("webhook non-2xx response", "attempt", attempt, "status", resp.StatusCode, "url", s.url)
	}

	metrics.WebhookDeliveries.WithLabelValues("failed").Inc()
	return fmt.Errorf("webhook delivery failed after %d attempts to %s", s.maxRetries+1, s.url)
}

func (s *Sender) sign(body []byte) string {
	mac := hmac.New(sha256.New, []byte(s.secret))
	_, _ = mac.Write(body)
	return hex.EncodeToString(mac.Sum(nil))
}
