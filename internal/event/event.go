// Package event models the JSON-lines stream printed by `codex exec --json`
// and decodes it.
//
// Events and items are closed families: every variant implements an
// unexported marker method, and a discriminator that is not recognised
// decodes to UnknownEvent or UnknownItem instead of failing. The two
// fallbacks apply independently, so a known item.completed event may carry
// an UnknownItem.
package event

// Event discriminators.
const (
	TypeThreadStarted = "thread.started"
	TypeTurnStarted   = "turn.started"
	TypeTurnCompleted = "turn.completed"
	TypeTurnFailed    = "turn.failed"
	TypeThreadError   = "error"
	TypeItemStarted   = "item.started"
	TypeItemUpdated   = "item.updated"
	TypeItemCompleted = "item.completed"
)

// Event is one top-level notification in the codex output stream.
type Event interface {
	// EventType returns the discriminator the event was decoded from.
	EventType() string
	isEvent()
}

// ItemEvent is implemented by the item lifecycle events.
type ItemEvent interface {
	Event
	EventItem() Item
}

// ThreadStarted is emitted once when a session starts. The thread id can be
// passed back as a session to resume it.
type ThreadStarted struct {
	ThreadID string `json:"thread_id"`
}

// TurnStarted marks the start of a turn.
type TurnStarted struct{}

// TurnCompleted marks the end of a turn and reports token usage.
type TurnCompleted struct {
	Usage Usage `json:"usage"`
}

// TurnFailed reports that a turn ended with an error.
type TurnFailed struct {
	Error *ThreadErrorInfo `json:"error,omitempty"`
}

// ThreadError is an unrecoverable error reported directly by the stream.
type ThreadError struct {
	Message string `json:"message"`
}

// ItemStarted is emitted when an item is added to the thread.
type ItemStarted struct {
	Item Item `json:"item"`
}

// ItemUpdated is emitted when an item changes.
type ItemUpdated struct {
	Item Item `json:"item"`
}

// ItemCompleted is emitted when an item reaches a terminal state.
type ItemCompleted struct {
	Item Item `json:"item"`
}

// UnknownEvent holds an event whose discriminator is not recognised.
// Raw is the source line, kept for diagnostics.
type UnknownEvent struct {
	Type string
	Raw  string
}

// NewUnknownEvent builds the fallback for discriminator typ read from line.
func NewUnknownEvent(typ, line string) UnknownEvent {
	return UnknownEvent{Type: typ, Raw: line}
}

// ThreadErrorInfo is the error payload of turn.failed.
type ThreadErrorInfo struct {
	Message string `json:"message"`
}

// Usage reports token counts for a turn.
type Usage struct {
	InputTokens       int `json:"input_tokens"`
	CachedInputTokens int `json:"cached_input_tokens"`
	OutputTokens      int `json:"output_tokens"`
}

func (ThreadStarted) EventType() string { return TypeThreadStarted }
func (TurnStarted) EventType() string   { return TypeTurnStarted }
func (TurnCompleted) EventType() string { return TypeTurnCompleted }
func (TurnFailed) EventType() string    { return TypeTurnFailed }
func (ThreadError) EventType() string   { return TypeThreadError }
func (ItemStarted) EventType() string   { return TypeItemStarted }
func (ItemUpdated) EventType() string   { return TypeItemUpdated }
func (ItemCompleted) EventType() string { return TypeItemCompleted }
func (e UnknownEvent) EventType() string {
	return e.Type
}

func (ThreadStarted) isEvent() {}
func (TurnStarted) isEvent()   {}
func (TurnCompleted) isEvent() {}
func (TurnFailed) isEvent()    {}
func (ThreadError) isEvent()   {}
func (ItemStarted) isEvent()   {}
func (ItemUpdated) isEvent()   {}
func (ItemCompleted) isEvent() {}
func (UnknownEvent) isEvent()  {}

func (e ItemStarted) EventItem() Item   { return e.Item }
func (e ItemUpdated) EventItem() Item   { return e.Item }
func (e ItemCompleted) EventItem() Item { return e.Item }

// IsFailure reports whether e ends the run as a failure (error or turn.failed).
func IsFailure(e Event) bool {
	switch e.(type) {
	case ThreadError, TurnFailed:
		return true
	}
	return false
}
