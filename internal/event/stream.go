package event

// AgentMessages returns the text of every agent message carried by an
// item.completed event, in stream order.
func AgentMessages(events []Event) []string {
	var messages []string
	for _, ev := range events {
		completed, ok := ev.(ItemCompleted)
		if !ok {
			continue
		}
		if msg, ok := completed.Item.(AgentMessageItem); ok {
			messages = append(messages, msg.Text)
		}
	}
	return messages
}

// TurnUsage returns the usage of the first turn.completed event, or nil.
func TurnUsage(events []Event) *Usage {
	for _, ev := range events {
		if tc, ok := ev.(TurnCompleted); ok {
			u := tc.Usage
			return &u
		}
	}
	return nil
}

// Filter returns the events whose dynamic type is T.
func Filter[T Event](events []Event) []T {
	var out []T
	for _, ev := range events {
		if v, ok := ev.(T); ok {
			out = append(out, v)
		}
	}
	return out
}

// SessionID returns the thread id of the first thread.started event.
func SessionID(events []Event) (string, bool) {
	for _, ev := range events {
		if ts, ok := ev.(ThreadStarted); ok {
			return ts.ThreadID, true
		}
	}
	return "", false
}
