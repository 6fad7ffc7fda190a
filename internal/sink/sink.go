// Package sink forwards a run's events and final envelope to external
// observers over Redis Pub/Sub. It never changes what the wrapper prints.
package sink

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/ForteScarlet/codex-kkp/internal/event"
	"github.com/ForteScarlet/codex-kkp/internal/redisclient"
	"github.com/ForteScarlet/codex-kkp/internal/result"
)

// Sink receives every decoded event of a run, then the final envelope.
type Sink interface {
	Emit(ctx context.Context, runID string, ev event.Event) error
	Done(ctx context.Context, runID string, env *result.Envelope) error
}

// Nop discards everything. It is used when no Redis URL is configured.
type Nop struct{}

func (Nop) Emit(context.Context, string, event.Event) error       { return nil }
func (Nop) Done(context.Context, string, *result.Envelope) error { return nil }

// Multi fans out to every sink in order. All sinks are called even when
// one fails; the errors are joined.
type Multi []Sink

func (m Multi) Emit(ctx context.Context, runID string, ev event.Event) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Emit(ctx, runID, ev))
	}
	return errors.Join(errs...)
}

func (m Multi) Done(ctx context.Context, runID string, env *result.Envelope) error {
	var errs []error
	for _, s := range m {
		errs = append(errs, s.Done(ctx, runID, env))
	}
	return errors.Join(errs...)
}

// StreamEvent is a structured event published to Redis Pub/Sub.
type StreamEvent struct {
	Type  string          `json:"type"`  // event, result
	Event string          `json:"event"` // codex discriminator or envelope type
	Data  json.RawMessage `json:"data"`
	TS    string          `json:"ts"` // ISO 8601 timestamp
}

// Streamer publishes run events to Redis Pub/Sub and persists them to history.
type Streamer struct {
	redis      *redisclient.Client
	historyTTL time.Duration
	now        func() time.Time
}

// NewStreamer creates a new event streamer.
func NewStreamer(redis *redisclient.Client, historyTTL time.Duration) *Streamer {
	return &Streamer{
		redis:      redis,
		historyTTL: historyTTL,
		now:        time.Now,
	}
}

// Emit publishes ev on the run's stream channel and appends it to history.
func (s *Streamer) Emit(ctx context.Context, runID string, ev event.Event) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return s.publish(ctx, runID, StreamEvent{Type: "event", Event: ev.EventType(), Data: data})
}

// Done publishes the envelope on the done channel and sets the history TTL.
func (s *Streamer) Done(ctx context.Context, runID string, env *result.Envelope) error {
	data, err := json.Marshal(env)
	if err != nil {
		return err
	}
	msg, err := s.encode(StreamEvent{Type: "result", Event: string(env.Type), Data: data})
	if err != nil {
		return err
	}

	doneKey := s.redis.Key("run", runID, "done")
	historyKey := s.redis.Key("run", runID, "history")

	pipe := s.redis.Unwrap().Pipeline()
	pipe.Publish(ctx, doneKey, msg)
	pipe.RPush(ctx, historyKey, msg)
	pipe.Expire(ctx, historyKey, s.historyTTL)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Streamer) publish(ctx context.Context, runID string, evt StreamEvent) error {
	msg, err := s.encode(evt)
	if err != nil {
		return err
	}

	streamKey := s.redis.Key("run", runID, "stream")
	historyKey := s.redis.Key("run", runID, "history")

	pipe := s.redis.Unwrap().Pipeline()
	pipe.Publish(ctx, streamKey, msg)
	pipe.RPush(ctx, historyKey, msg)
	_, err = pipe.Exec(ctx)
	return err
}

func (s *Streamer) encode(evt StreamEvent) (string, error) {
	evt.TS = s.now().UTC().Format(time.RFC3339Nano)
	data, err := json.Marshal(evt)
	if err != nil {
		return "", err
	}
	return string(data), nil
}
