package event

import (
	"encoding/json"
	"fmt"
)

type eventDecoder func(data []byte) (Event, error)

type itemDecoder func(id string, data []byte) (Item, error)

// eventDecoders maps each recognised event discriminator to its decoder.
var eventDecoders = map[string]eventDecoder{
	TypeThreadStarted: decodeThreadStarted,
	TypeTurnStarted:   decodeTurnStarted,
	TypeTurnCompleted: decodeTurnCompleted,
	TypeTurnFailed:    decodeTurnFailed,
	TypeThreadError:   decodeThreadError,
	TypeItemStarted: func(data []byte) (Event, error) {
		item, err := decodeItemField(data)
		return ItemStarted{Item: item}, err
	},
	TypeItemUpdated: func(data []byte) (Event, error) {
		item, err := decodeItemField(data)
		return ItemUpdated{Item: item}, err
	},
	TypeItemCompleted: func(data []byte) (Event, error) {
		item, err := decodeItemField(data)
		return ItemCompleted{Item: item}, err
	},
}

// itemDecoders maps each recognised item discriminator to its decoder.
var itemDecoders = map[string]itemDecoder{
	ItemTypeCommandExecution: decodeCommandExecution,
	ItemTypeAgentMessage:     decodeAgentMessage,
	ItemTypeReasoning:        decodeReasoning,
	ItemTypeFileChange:       decodeFileChange,
	ItemTypeMcpToolCall:      decodeMcpToolCall,
	ItemTypeWebSearch:        decodeWebSearch,
	ItemTypeError:            decodeErrorItem,
	ItemTypeTodoList:         decodeTodoList,
}

type missingFieldError string

func (e missingFieldError) Error() string {
	return fmt.Sprintf("missing required field %q", string(e))
}

// decodeEvent dispatches data on its "type" key. A missing or unrecognised
// discriminator yields UnknownEvent carrying line.
func decodeEvent(data []byte, line string) (Event, error) {
	var head struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, fmt.Errorf("decoding discriminator: %w", err)
	}
	decode, ok := eventDecoders[head.Type]
	if !ok {
		return NewUnknownEvent(head.Type, line), nil
	}
	ev, err := decode(data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s event: %w", head.Type, err)
	}
	return ev, nil
}

func decodeThreadStarted(data []byte) (Event, error) {
	var w struct {
		ThreadID *string `json:"thread_id"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.ThreadID == nil {
		return nil, missingFieldError("thread_id")
	}
	return ThreadStarted{ThreadID: *w.ThreadID}, nil
}

func decodeTurnStarted([]byte) (Event, error) {
	return TurnStarted{}, nil
}

func decodeTurnCompleted(data []byte) (Event, error) {
	var w struct {
		Usage *struct {
			InputTokens       *int `json:"input_tokens"`
			CachedInputTokens int  `json:"cached_input_tokens"`
			OutputTokens      *int `json:"output_tokens"`
		} `json:"usage"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	switch {
	case w.Usage == nil:
		return nil, missingFieldError("usage")
	case w.Usage.InputTokens == nil:
		return nil, missingFieldError("input_tokens")
	case w.Usage.OutputTokens == nil:
		return nil, missingFieldError("output_tokens")
	}
	u := Usage{
		InputTokens:       *w.Usage.InputTokens,
		CachedInputTokens: w.Usage.CachedInputTokens,
		OutputTokens:      *w.Usage.OutputTokens,
	}
	if u.InputTokens < 0 || u.CachedInputTokens < 0 || u.OutputTokens < 0 {
		return nil, fmt.Errorf("negative token count in usage %+v", u)
	}
	return TurnCompleted{Usage: u}, nil
}

func decodeTurnFailed(data []byte) (Event, error) {
	var w struct {
		Error *struct {
			Message *string `json:"message"`
		} `json:"error"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Error == nil {
		return TurnFailed{}, nil
	}
	if w.Error.Message == nil {
		return nil, missingFieldError("error.message")
	}
	return TurnFailed{Error: &ThreadErrorInfo{Message: *w.Error.Message}}, nil
}

func decodeThreadError(data []byte) (Event, error) {
	var w struct {
		Message *string `json:"message"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Message == nil {
		return nil, missingFieldError("message")
	}
	return ThreadError{Message: *w.Message}, nil
}

func decodeItemField(data []byte) (Item, error) {
	var w struct {
		Item json.RawMessage `json:"item"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if len(w.Item) == 0 || string(w.Item) == "null" {
		return nil, missingFieldError("item")
	}
	return decodeItem(w.Item)
}

// decodeItem dispatches an item object on its "type" key. Every item needs an
// id; an unrecognised discriminator yields UnknownItem.
func decodeItem(data []byte) (Item, error) {
	var head struct {
		ID   *string `json:"id"`
		Type string  `json:"type"`
	}
	if err := json.Unmarshal(data, &head); err != nil {
		return nil, err
	}
	if head.ID == nil {
		return nil, missingFieldError("item.id")
	}
	decode, ok := itemDecoders[head.Type]
	if !ok {
		return UnknownItem{ID: *head.ID, Type: head.Type}, nil
	}
	item, err := decode(*head.ID, data)
	if err != nil {
		return nil, fmt.Errorf("decoding %s item: %w", head.Type, err)
	}
	return item, nil
}

func decodeCommandExecution(id string, data []byte) (Item, error) {
	w := struct {
		Command          *string                `json:"command"`
		AggregatedOutput string                 `json:"aggregated_output"`
		ExitCode         *int                   `json:"exit_code"`
		Status           CommandExecutionStatus `json:"status"`
	}{Status: CommandExecutionFailed}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	if w.Command == nil {
		return nil, missingFieldError("command")
	}
	return CommandExecutionItem{
		ID:               id,
		Command:          *w.Command,
		AggregatedOutput: w.AggregatedOutput,
		ExitCode:         w.ExitCode,
		Status:           w.Status,
	}, nil
}

func decodeAgentMessage(id string, data []byte) (Item, error) {
	var w struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return AgentMessageItem{ID: id, Text: w.Text}, nil
}

func decodeReasoning(id string, data []byte) (Item, error) {
	var w struct {
		Text string `json:"text"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return ReasoningItem{ID: id, Text: w.Text}, nil
}

func decodeFileChange(id string, data []byte) (Item, error) {
	w := struct {
		Changes []struct {
			Path *string         `json:"path"`
			Kind PatchChangeKind `json:"kind"`
		} `json:"changes"`
		Status PatchApplyStatus `json:"status"`
	}{Status: PatchApplyFailed}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	changes := make([]FileUpdateChange, 0, len(w.Changes))
	for _, c := range w.Changes {
		if c.Path == nil {
			return nil, missingFieldError("changes.path")
		}
		if c.Kind == "" {
			return nil, missingFieldError("changes.kind")
		}
		changes = append(changes, FileUpdateChange{Path: *c.Path, Kind: c.Kind})
	}
	return FileChangeItem{ID: id, Changes: changes, Status: w.Status}, nil
}

func decodeMcpToolCall(id string, data []byte) (Item, error) {
	w := struct {
		Server    string          `json:"server"`
		Tool      string          `json:"tool"`
		Arguments json.RawMessage `json:"arguments"`
		Result    *struct {
			Content           []json.RawMessage `json:"content"`
			StructuredContent json.RawMessage   `json:"structured_content"`
		} `json:"result"`
		Error  *McpToolError     `json:"error"`
		Status McpToolCallStatus `json:"status"`
	}{Status: McpToolCallFailed}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	item := McpToolCallItem{
		ID:        id,
		Server:    w.Server,
		Tool:      w.Tool,
		Arguments: nonNull(w.Arguments),
		Error:     w.Error,
		Status:    w.Status,
	}
	if w.Result != nil {
		content := w.Result.Content
		if content == nil {
			content = []json.RawMessage{}
		}
		item.Result = &McpToolResult{
			Content:           content,
			StructuredContent: nonNull(w.Result.StructuredContent),
		}
	}
	return item, nil
}

func decodeWebSearch(id string, data []byte) (Item, error) {
	var w struct {
		Query string `json:"query"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return WebSearchItem{ID: id, Query: w.Query}, nil
}

func decodeErrorItem(id string, data []byte) (Item, error) {
	var w struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	return ErrorItem{ID: id, Message: w.Message}, nil
}

func decodeTodoList(id string, data []byte) (Item, error) {
	var w struct {
		Items []struct {
			Text      *string `json:"text"`
			Completed *bool   `json:"completed"`
		} `json:"items"`
	}
	if err := json.Unmarshal(data, &w); err != nil {
		return nil, err
	}
	items := make([]TodoItem, 0, len(w.Items))
	for _, it := range w.Items {
		if it.Text == nil {
			return nil, missingFieldError("items.text")
		}
		completed := true
		if it.Completed != nil {
			completed = *it.Completed
		}
		items = append(items, TodoItem{Text: *it.Text, Completed: completed})
	}
	return TodoListItem{ID: id, Items: items}, nil
}

// nonNull maps an explicit JSON null to an absent value.
func nonNull(raw json.RawMessage) json.RawMessage {
	if len(raw) == 0 || string(raw) == "null" {
		return nil
	}
	return raw
}

func (s *CommandExecutionStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "command execution status",
		CommandExecutionInProgress, CommandExecutionCompleted, CommandExecutionFailed)
}

func (k *PatchChangeKind) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, k, "patch change kind",
		PatchChangeAdd, PatchChangeDelete, PatchChangeUpdate)
}

func (s *PatchApplyStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "patch apply status",
		PatchApplyCompleted, PatchApplyFailed)
}

func (s *McpToolCallStatus) UnmarshalJSON(data []byte) error {
	return unmarshalEnum(data, s, "mcp tool call status",
		McpToolCallInProgress, McpToolCallCompleted, McpToolCallFailed)
}

// unmarshalEnum decodes a JSON string into dst, rejecting values outside valid.
// A JSON null leaves dst untouched so the caller's default survives.
func unmarshalEnum[T ~string](data []byte, dst *T, kind string, valid ...T) error {
	if string(data) == "null" {
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("%s: %w", kind, err)
	}
	for _, v := range valid {
		if T(s) == v {
			*dst = v
			return nil
		}
	}
	return fmt.Errorf("unknown %s %q", kind, s)
}
