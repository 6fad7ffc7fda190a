//go:build integration

// Integration tests for the Redis event sink.
// Run with: CODEXKKP_TEST_REDIS_URL=redis://localhost:6379/15 go test -tags integration ./tests/integration/
package integration

import (
	"context"
	"encoding/json"
	"os"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/ForteScarlet/codex-kkp/internal/event"
	"github.com/ForteScarlet/codex-kkp/internal/redisclient"
	"github.com/ForteScarlet/codex-kkp/internal/result"
	"github.com/ForteScarlet/codex-kkp/internal/sink"
)

func redisClient(t *testing.T) *redisclient.Client {
	t.Helper()
	url := os.Getenv("CODEXKKP_TEST_REDIS_URL")
	if url == "" {
		t.Skip("CODEXKKP_TEST_REDIS_URL not set")
	}
	rdb, err := redisclient.New(url, "codexkkp-test:")
	if err != nil {
		t.Fatalf("redis client: %v", err)
	}
	t.Cleanup(func() { _ = rdb.Close() })

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := rdb.Ping(ctx); err != nil {
		t.Fatalf("redis ping: %v", err)
	}
	return rdb
}

func TestStreamer_PublishesAndPersists(t *testing.T) {
	rdb := redisClient(t)
	ctx := context.Background()
	runID := uuid.NewString()

	sub := rdb.Unwrap().Subscribe(ctx, rdb.Key("run", runID, "stream"), rdb.Key("run", runID, "done"))
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		t.Fatalf("subscribe: %v", err)
	}

	s := sink.NewStreamer(rdb, time.Minute)
	if err := s.Emit(ctx, runID, event.ThreadStarted{ThreadID: "th_1"}); err != nil {
		t.Fatalf("Emit: %v", err)
	}
	env, err := result.Aggregate(nil, []event.Event{event.ThreadStarted{ThreadID: "th_1"}}, false)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if err := s.Done(ctx, runID, env); err != nil {
		t.Fatalf("Done: %v", err)
	}

	for _, want := range []string{"thread.started", "SUCCESS"} {
		msgCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
		msg, err := sub.ReceiveMessage(msgCtx)
		cancel()
		if err != nil {
			t.Fatalf("waiting for %s: %v", want, err)
		}
		var got sink.StreamEvent
		if err := json.Unmarshal([]byte(msg.Payload), &got); err != nil {
			t.Fatalf("decoding payload: %v", err)
		}
		if got.Event != want {
			t.Errorf("event = %q, want %q", got.Event, want)
		}
	}

	historyKey := rdb.Key("run", runID, "history")
	t.Cleanup(func() { rdb.Unwrap().Del(context.Background(), historyKey) })

	n, err := rdb.Unwrap().LLen(ctx, historyKey).Result()
	if err != nil {
		t.Fatalf("LLen: %v", err)
	}
	if n != 2 {
		t.Errorf("history length = %d, want 2", n)
	}
	ttl, err := rdb.Unwrap().TTL(ctx, historyKey).Result()
	if err != nil {
		t.Fatalf("TTL: %v", err)
	}
	if ttl <= 0 || ttl > time.Minute {
		t.Errorf("history TTL = %v, want within (0, 1m]", ttl)
	}
}
