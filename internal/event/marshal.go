package event

import (
	"bytes"
	"encoding/json"
)

// marshalTagged encodes v as an object whose first key is "type".
// v must marshal to a JSON object.
func marshalTagged(typ string, v any) ([]byte, error) {
	body, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	tag, err := json.Marshal(typ)
	if err != nil {
		return nil, err
	}

	var buf bytes.Buffer
	buf.Grow(len(body) + len(tag) + 9)
	buf.WriteString(`{"type":`)
	buf.Write(tag)
	if len(body) > 2 {
		buf.WriteByte(',')
		buf.Write(body[1:])
	} else {
		buf.WriteByte('}')
	}
	return buf.Bytes(), nil
}

// The local alias types below drop the MarshalJSON method so the
// struct body can be encoded without recursing.

func (e ThreadStarted) MarshalJSON() ([]byte, error) {
	type plain ThreadStarted
	return marshalTagged(e.EventType(), plain(e))
}

func (e TurnStarted) MarshalJSON() ([]byte, error) {
	return marshalTagged(e.EventType(), struct{}{})
}

func (e TurnCompleted) MarshalJSON() ([]byte, error) {
	type plain TurnCompleted
	return marshalTagged(e.EventType(), plain(e))
}

func (e TurnFailed) MarshalJSON() ([]byte, error) {
	type plain TurnFailed
	return marshalTagged(e.EventType(), plain(e))
}

func (e ThreadError) MarshalJSON() ([]byte, error) {
	type plain ThreadError
	return marshalTagged(e.EventType(), plain(e))
}

func (e ItemStarted) MarshalJSON() ([]byte, error) {
	type plain ItemStarted
	return marshalTagged(e.EventType(), plain(e))
}

func (e ItemUpdated) MarshalJSON() ([]byte, error) {
	type plain ItemUpdated
	return marshalTagged(e.EventType(), plain(e))
}

func (e ItemCompleted) MarshalJSON() ([]byte, error) {
	type plain ItemCompleted
	return marshalTagged(e.EventType(), plain(e))
}

// MarshalJSON keeps the original discriminator and the source line under "_raw".
func (e UnknownEvent) MarshalJSON() ([]byte, error) {
	return marshalTagged(e.Type, struct {
		Raw string `json:"_raw"`
	}{e.Raw})
}

func (i CommandExecutionItem) MarshalJSON() ([]byte, error) {
	type plain CommandExecutionItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i AgentMessageItem) MarshalJSON() ([]byte, error) {
	type plain AgentMessageItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i ReasoningItem) MarshalJSON() ([]byte, error) {
	type plain ReasoningItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i FileChangeItem) MarshalJSON() ([]byte, error) {
	type plain FileChangeItem
	if i.Changes == nil {
		i.Changes = []FileUpdateChange{}
	}
	return marshalTagged(i.ItemType(), plain(i))
}

func (i McpToolCallItem) MarshalJSON() ([]byte, error) {
	type plain McpToolCallItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i WebSearchItem) MarshalJSON() ([]byte, error) {
	type plain WebSearchItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i ErrorItem) MarshalJSON() ([]byte, error) {
	type plain ErrorItem
	return marshalTagged(i.ItemType(), plain(i))
}

func (i TodoListItem) MarshalJSON() ([]byte, error) {
	type plain TodoListItem
	if i.Items == nil {
		i.Items = []TodoItem{}
	}
	return marshalTagged(i.ItemType(), plain(i))
}

func (i UnknownItem) MarshalJSON() ([]byte, error) {
	type plain UnknownItem
	return marshalTagged(i.Type, plain(i))
}

// MarshalJSON always writes the content array, even when empty.
func (r McpToolResult) MarshalJSON() ([]byte, error) {
	type plain McpToolResult
	if r.Content == nil {
		r.Content = []json.RawMessage{}
	}
	return json.Marshal(plain(r))
}
