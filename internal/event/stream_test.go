package event

import "testing"

func intPtr(v int) *int { return &v }

func TestAgentMessages(t *testing.T) {
	t.Run("extracts completed messages in order", func(t *testing.T) {
		events := []Event{
			TurnStarted{},
			ItemCompleted{Item: AgentMessageItem{ID: "1", Text: "第一条消息"}},
			ItemCompleted{Item: CommandExecutionItem{ID: "2", Command: "ls", Status: CommandExecutionCompleted}},
			ItemUpdated{Item: AgentMessageItem{ID: "4", Text: "partial"}},
			ItemCompleted{Item: AgentMessageItem{ID: "3", Text: "第二条消息"}},
			TurnCompleted{Usage: Usage{InputTokens: 100, OutputTokens: 50}},
		}

		got := AgentMessages(events)
		want := []string{"第一条消息", "第二条消息"}
		if len(got) != len(want) {
			t.Fatalf("got %v, want %v", got, want)
		}
		for i := range want {
			if got[i] != want[i] {
				t.Errorf("messages[%d] = %q, want %q", i, got[i], want[i])
			}
		}
	})

	t.Run("empty when no messages", func(t *testing.T) {
		events := []Event{
			TurnStarted{},
			ItemCompleted{Item: CommandExecutionItem{ID: "1", Command: "ls", ExitCode: intPtr(0), Status: CommandExecutionCompleted}},
		}
		if got := AgentMessages(events); len(got) != 0 {
			t.Errorf("expected no messages, got %v", got)
		}
	})
}

func TestTurnUsage(t *testing.T) {
	t.Run("first turn completed", func(t *testing.T) {
		events := []Event{
			TurnStarted{},
			TurnCompleted{Usage: Usage{InputTokens: 1000, CachedInputTokens: 500, OutputTokens: 200}},
			TurnCompleted{Usage: Usage{InputTokens: 1}},
		}
		u := TurnUsage(events)
		if u == nil {
			t.Fatal("expected usage")
		}
		want := Usage{InputTokens: 1000, CachedInputTokens: 500, OutputTokens: 200}
		if *u != want {
			t.Errorf("usage = %+v, want %+v", *u, want)
		}
	})

	t.Run("nil without turn completed", func(t *testing.T) {
		events := []Event{TurnStarted{}, ItemCompleted{Item: AgentMessageItem{ID: "1", Text: "消息"}}}
		if u := TurnUsage(events); u != nil {
			t.Errorf("expected nil, got %+v", u)
		}
	})
}

func TestFilter(t *testing.T) {
	events := []Event{
		ThreadStarted{ThreadID: "id-1"},
		TurnStarted{},
		ItemCompleted{Item: AgentMessageItem{ID: "1", Text: "消息"}},
		TurnCompleted{Usage: Usage{InputTokens: 100, OutputTokens: 50}},
	}

	completed := Filter[ItemCompleted](events)
	if len(completed) != 1 {
		t.Fatalf("got %d item.completed events, want 1", len(completed))
	}
	if _, ok := completed[0].Item.(AgentMessageItem); !ok {
		t.Errorf("expected AgentMessageItem, got %T", completed[0].Item)
	}

	if got := Filter[TurnFailed](events); len(got) != 0 {
		t.Errorf("expected no turn.failed events, got %v", got)
	}
}

func TestSessionID(t *testing.T) {
	id, ok := SessionID([]Event{TurnStarted{}, ThreadStarted{ThreadID: "T1"}, ThreadStarted{ThreadID: "T2"}})
	if !ok || id != "T1" {
		t.Errorf("SessionID = %q, %v; want T1, true", id, ok)
	}
	if _, ok := SessionID([]Event{TurnStarted{}}); ok {
		t.Error("expected no session")
	}
}

func TestIsFailure(t *testing.T) {
	tests := []struct {
		ev   Event
		want bool
	}{
		{ThreadError{Message: "x"}, true},
		{TurnFailed{}, true},
		{TurnStarted{}, false},
		{ItemCompleted{Item: ErrorItem{ID: "e", Message: "non fatal"}}, false},
		{NewUnknownEvent("error.extra", "{}"), false},
	}
	for _, tt := range tests {
		if got := IsFailure(tt.ev); got != tt.want {
			t.Errorf("IsFailure(%T) = %v, want %v", tt.ev, got, tt.want)
		}
	}
}
