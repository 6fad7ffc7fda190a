package result

import (
	"strings"

	"github.com/ForteScarlet/codex-kkp/internal/event"
)

type summaryContent struct {
	AgentMessages  string                 `json:"agentMessages"`
	FileChanges    []event.FileChangeItem `json:"fileChanges,omitempty"`
	NonFatalErrors []event.ErrorItem      `json:"nonFatalErrors,omitempty"`
}

type fullContent struct {
	RawArgs    []string      `json:"rawArgs"`
	FullEvents []event.Event `json:"fullEvents"`
}

type errorContent struct {
	ErrorEvents []event.Event `json:"errorEvents"`
}

// Aggregate dispatches to Full or Summarize.
func Aggregate(rawArgs []string, events []event.Event, full bool) (*Envelope, error) {
	if full {
		return Full(rawArgs, events)
	}
	return Summarize(events)
}

// Full passes every event through. If any error or turn.failed event is
// present the envelope is a failure carrying all events; otherwise it is a
// success carrying the session, rawArgs and all events.
func Full(rawArgs []string, events []event.Event) (*Envelope, error) {
	events = nonNil(events)

	session, _ := event.SessionID(events)
	for _, ev := range events {
		if event.IsFailure(ev) {
			return failure(errorContent{ErrorEvents: events})
		}
	}

	if rawArgs == nil {
		rawArgs = []string{}
	}
	return success(session, fullContent{RawArgs: rawArgs, FullEvents: events})
}

// Summarize projects events onto the concatenated agent message text, the
// file changes and the non-fatal errors reported by item.completed events.
// Error and turn.failed events turn the result into a failure carrying
// exactly those events.
func Summarize(events []event.Event) (*Envelope, error) {
	var (
		session  string
		messages strings.Builder
		content  summaryContent
		failures []event.Event
	)

	for _, ev := range events {
		switch e := ev.(type) {
		case event.ThreadStarted:
			if session == "" {
				session = e.ThreadID
			}
		case event.ThreadError, event.TurnFailed:
			failures = append(failures, ev)
		case event.ItemCompleted:
			switch item := e.Item.(type) {
			case event.AgentMessageItem:
				messages.WriteString(item.Text)
			case event.FileChangeItem:
				content.FileChanges = append(content.FileChanges, item)
			case event.ErrorItem:
				content.NonFatalErrors = append(content.NonFatalErrors, item)
			}
		}
	}

	if len(failures) > 0 {
		return failure(errorContent{ErrorEvents: failures})
	}
	content.AgentMessages = messages.String()
	return success(session, content)
}

func nonNil(events []event.Event) []event.Event {
	if events == nil {
		return []event.Event{}
	}
	return events
}
