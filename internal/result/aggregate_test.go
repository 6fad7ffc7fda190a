package result

import (
	"encoding/json"
	"strings"
	"testing"

	"github.com/ForteScarlet/codex-kkp/internal/event"
)

const helloStream = `{"type":"thread.started","thread_id":"T1"}
{"type":"item.completed","item":{"id":"i1","type":"agent_message","text":"Hello"}}
{"type":"turn.completed","usage":{"input_tokens":1,"output_tokens":1}}`

func decodeContent(t *testing.T, env *Envelope) map[string]json.RawMessage {
	t.Helper()
	var content map[string]json.RawMessage
	if err := json.Unmarshal(env.Content, &content); err != nil {
		t.Fatalf("content is not an object: %v (%s)", err, env.Content)
	}
	return content
}

func TestSummarize_Success(t *testing.T) {
	env, err := Summarize(event.ParseStream(helloStream))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if env.Type != TypeSuccess {
		t.Fatalf("type = %q, want SUCCESS", env.Type)
	}
	if env.Session != "T1" {
		t.Errorf("session = %q, want T1", env.Session)
	}

	content := decodeContent(t, env)
	if string(content["agentMessages"]) != `"Hello"` {
		t.Errorf("agentMessages = %s", content["agentMessages"])
	}
	for _, key := range []string{"fileChanges", "nonFatalErrors"} {
		if _, ok := content[key]; ok {
			t.Errorf("expected %s to be absent, got %s", key, content[key])
		}
	}
}

func TestSummarize_TurnFailed(t *testing.T) {
	stream := helloStream + "\n" + `{"type":"turn.failed","error":{"message":"quota"}}`

	env, err := Summarize(event.ParseStream(stream))
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if !env.IsError() {
		t.Fatalf("type = %q, want ERROR", env.Type)
	}
	if env.Session != "" {
		t.Errorf("session = %q, want none on failure", env.Session)
	}

	content := decodeContent(t, env)
	want := `[{"type":"turn.failed","error":{"message":"quota"}}]`
	if string(content["errorEvents"]) != want {
		t.Errorf("errorEvents = %s, want %s", content["errorEvents"], want)
	}
	if _, ok := content["agentMessages"]; ok {
		t.Error("failure content must not carry agent messages")
	}
}

func TestSummarize_Accumulates(t *testing.T) {
	events := []event.Event{
		event.ThreadStarted{ThreadID: "S"},
		event.ItemStarted{Item: event.AgentMessageItem{ID: "a0", Text: "ignored "}},
		event.ItemCompleted{Item: event.AgentMessageItem{ID: "a1", Text: "one"}},
		event.ItemCompleted{Item: event.FileChangeItem{
			ID:      "f1",
			Changes: []event.FileUpdateChange{{Path: "a.go", Kind: event.PatchChangeUpdate}},
			Status:  event.PatchApplyCompleted,
		}},
		event.ItemCompleted{Item: event.ErrorItem{ID: "e1", Message: "retrying"}},
		event.ItemCompleted{Item: event.AgentMessageItem{ID: "a2", Text: "two"}},
		event.ItemCompleted{Item: event.ReasoningItem{ID: "r1", Text: "thinking"}},
	}

	env, err := Summarize(events)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if env.Type != TypeSuccess || env.Session != "S" {
		t.Fatalf("envelope = %+v", env)
	}

	content := decodeContent(t, env)
	if string(content["agentMessages"]) != `"onetwo"` {
		t.Errorf("agentMessages = %s, want \"onetwo\"", content["agentMessages"])
	}
	wantChanges := `[{"type":"file_change","id":"f1","changes":[{"path":"a.go","kind":"update"}],"status":"completed"}]`
	if string(content["fileChanges"]) != wantChanges {
		t.Errorf("fileChanges = %s", content["fileChanges"])
	}
	wantErrors := `[{"type":"error","id":"e1","message":"retrying"}]`
	if string(content["nonFatalErrors"]) != wantErrors {
		t.Errorf("nonFatalErrors = %s", content["nonFatalErrors"])
	}
}

func TestSummarize_CollectsOnlyFailureEvents(t *testing.T) {
	events := []event.Event{
		event.ThreadStarted{ThreadID: "S"},
		event.ThreadError{Message: "first"},
		event.ItemCompleted{Item: event.AgentMessageItem{ID: "a", Text: "hi"}},
		event.TurnFailed{},
	}

	env, err := Summarize(events)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	content := decodeContent(t, env)
	want := `[{"type":"error","message":"first"},{"type":"turn.failed"}]`
	if string(content["errorEvents"]) != want {
		t.Errorf("errorEvents = %s, want %s", content["errorEvents"], want)
	}
}

func TestSummarize_Empty(t *testing.T) {
	env, err := Summarize(nil)
	if err != nil {
		t.Fatalf("Summarize: %v", err)
	}
	if env.Type != TypeSuccess || env.Session != "" {
		t.Errorf("envelope = %+v", env)
	}
	if string(env.Content) != `{"agentMessages":""}` {
		t.Errorf("content = %s", env.Content)
	}
}

func TestFull(t *testing.T) {
	rawArgs := []string{"--cd=/tmp", "hello"}

	t.Run("success carries args and every event", func(t *testing.T) {
		events := event.ParseStream(helloStream)
		env, err := Full(rawArgs, events)
		if err != nil {
			t.Fatalf("Full: %v", err)
		}
		if env.Type != TypeSuccess || env.Session != "T1" {
			t.Fatalf("envelope = %+v", env)
		}
		content := decodeContent(t, env)
		if string(content["rawArgs"]) != `["--cd=/tmp","hello"]` {
			t.Errorf("rawArgs = %s", content["rawArgs"])
		}
		var full []json.RawMessage
		if err := json.Unmarshal(content["fullEvents"], &full); err != nil {
			t.Fatalf("fullEvents: %v", err)
		}
		if len(full) != len(events) {
			t.Errorf("got %d events, want %d", len(full), len(events))
		}
		if !strings.HasPrefix(string(full[0]), `{"type":"thread.started"`) {
			t.Errorf("first event = %s", full[0])
		}
	})

	t.Run("failure carries all events", func(t *testing.T) {
		events := event.ParseStream(helloStream + "\n" + `{"type":"error","message":"boom"}`)
		env, err := Full(rawArgs, events)
		if err != nil {
			t.Fatalf("Full: %v", err)
		}
		if !env.IsError() || env.Session != "" {
			t.Fatalf("envelope = %+v", env)
		}
		content := decodeContent(t, env)
		var all []json.RawMessage
		if err := json.Unmarshal(content["errorEvents"], &all); err != nil {
			t.Fatalf("errorEvents: %v", err)
		}
		if len(all) != len(events) {
			t.Errorf("got %d events, want all %d", len(all), len(events))
		}
		if _, ok := content["rawArgs"]; ok {
			t.Error("failure content must not carry rawArgs")
		}
	})

	t.Run("unknown events pass through", func(t *testing.T) {
		env, err := Full(nil, event.ParseStream(`{"type":"bogus","n":1}`))
		if err != nil {
			t.Fatalf("Full: %v", err)
		}
		want := `{"rawArgs":[],"fullEvents":[{"type":"bogus","_raw":"{\"type\":\"bogus\",\"n\":1}"}]}`
		if string(env.Content) != want {
			t.Errorf("content = %s\nwant      %s", env.Content, want)
		}
	})
}

func TestAggregate_Mode(t *testing.T) {
	events := event.ParseStream(helloStream)

	summary, err := Aggregate(nil, events, false)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if _, ok := decodeContent(t, summary)["agentMessages"]; !ok {
		t.Error("summarized mode should carry agentMessages")
	}

	full, err := Aggregate([]string{"x"}, events, true)
	if err != nil {
		t.Fatalf("Aggregate: %v", err)
	}
	if _, ok := decodeContent(t, full)["fullEvents"]; !ok {
		t.Error("full mode should carry fullEvents")
	}
}
