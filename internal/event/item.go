package event

import "encoding/json"

// Item discriminators.
const (
	ItemTypeCommandExecution = "command_execution"
	ItemTypeAgentMessage     = "agent_message"
	ItemTypeReasoning        = "reasoning"
	ItemTypeFileChange       = "file_change"
	ItemTypeMcpToolCall      = "mcp_tool_call"
	ItemTypeWebSearch        = "web_search"
	ItemTypeError            = "error"
	ItemTypeTodoList         = "todo_list"
)

// Item is a unit of work or output carried by an item lifecycle event.
type Item interface {
	ItemID() string
	// ItemType returns the discriminator the item was decoded from.
	ItemType() string
	isItem()
}

// CommandExecutionStatus is the lifecycle stage of a command run by the agent.
type CommandExecutionStatus string

const (
	CommandExecutionInProgress CommandExecutionStatus = "in_progress"
	CommandExecutionCompleted  CommandExecutionStatus = "completed"
	CommandExecutionFailed     CommandExecutionStatus = "failed"
)

// PatchChangeKind says how a file changed.
type PatchChangeKind string

const (
	PatchChangeAdd    PatchChangeKind = "add"
	PatchChangeDelete PatchChangeKind = "delete"
	PatchChangeUpdate PatchChangeKind = "update"
)

// PatchApplyStatus says whether a patch was applied.
type PatchApplyStatus string

const (
	PatchApplyCompleted PatchApplyStatus = "completed"
	PatchApplyFailed    PatchApplyStatus = "failed"
)

// McpToolCallStatus is the lifecycle stage of an MCP tool call.
type McpToolCallStatus string

const (
	McpToolCallInProgress McpToolCallStatus = "in_progress"
	McpToolCallCompleted  McpToolCallStatus = "completed"
	McpToolCallFailed     McpToolCallStatus = "failed"
)

// CommandExecutionItem is a command run by the agent. ExitCode is nil while
// the command is still running.
type CommandExecutionItem struct {
	ID               string                 `json:"id"`
	Command          string                 `json:"command"`
	AggregatedOutput string                 `json:"aggregated_output"`
	ExitCode         *int                   `json:"exit_code,omitempty"`
	Status           CommandExecutionStatus `json:"status"`
}

// AgentMessageItem is a message from the agent: natural language, or JSON
// when structured output was requested.
type AgentMessageItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// ReasoningItem carries the agent's reasoning summary.
type ReasoningItem struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}

// FileUpdateChange is one file touched by a patch.
type FileUpdateChange struct {
	Path string          `json:"path"`
	Kind PatchChangeKind `json:"kind"`
}

// FileChangeItem is a set of file changes applied as one patch.
type FileChangeItem struct {
	ID      string             `json:"id"`
	Changes []FileUpdateChange `json:"changes"`
	Status  PatchApplyStatus   `json:"status"`
}

// McpToolResult is what an MCP server returned for a successful call.
type McpToolResult struct {
	Content           []json.RawMessage `json:"content"`
	StructuredContent json.RawMessage   `json:"structured_content,omitempty"`
}

// McpToolError is the error reported for a failed MCP call.
type McpToolError struct {
	Message string `json:"message"`
}

// McpToolCallItem is a call to a tool on an MCP server.
type McpToolCallItem struct {
	ID        string            `json:"id"`
	Server    string            `json:"server"`
	Tool      string            `json:"tool"`
	Arguments json.RawMessage   `json:"arguments,omitempty"`
	Result    *McpToolResult    `json:"result,omitempty"`
	Error     *McpToolError     `json:"error,omitempty"`
	Status    McpToolCallStatus `json:"status"`
}

// WebSearchItem is a web search issued by the agent.
type WebSearchItem struct {
	ID    string `json:"id"`
	Query string `json:"query"`
}

// ErrorItem is a non-fatal error reported inside the turn.
type ErrorItem struct {
	ID      string `json:"id"`
	Message string `json:"message"`
}

// TodoItem is one entry of the agent's plan.
type TodoItem struct {
	Text      string `json:"text"`
	Completed bool   `json:"completed"`
}

// TodoListItem tracks the agent's running plan for the turn.
type TodoListItem struct {
	ID    string     `json:"id"`
	Items []TodoItem `json:"items"`
}

// UnknownItem holds an item whose discriminator is not recognised.
type UnknownItem struct {
	ID   string `json:"id"`
	Type string `json:"-"`
}

func (i CommandExecutionItem) ItemID() string { return i.ID }
func (i AgentMessageItem) ItemID() string     { return i.ID }
func (i ReasoningItem) ItemID() string        { return i.ID }
func (i FileChangeItem) ItemID() string       { return i.ID }
func (i McpToolCallItem) ItemID() string      { return i.ID }
func (i WebSearchItem) ItemID() string        { return i.ID }
func (i ErrorItem) ItemID() string            { return i.ID }
func (i TodoListItem) ItemID() string         { return i.ID }
func (i UnknownItem) ItemID() string          { return i.ID }

func (CommandExecutionItem) ItemType() string { return ItemTypeCommandExecution }
func (AgentMessageItem) ItemType() string     { return ItemTypeAgentMessage }
func (ReasoningItem) ItemType() string        { return ItemTypeReasoning }
func (FileChangeItem) ItemType() string       { return ItemTypeFileChange }
func (McpToolCallItem) ItemType() string      { return ItemTypeMcpToolCall }
func (WebSearchItem) ItemType() string        { return ItemTypeWebSearch }
func (ErrorItem) ItemType() string            { return ItemTypeError }
func (TodoListItem) ItemType() string         { return ItemTypeTodoList }
func (i UnknownItem) ItemType() string        { return i.Type }

func (CommandExecutionItem) isItem() {}
func (AgentMessageItem) isItem()     {}
func (ReasoningItem) isItem()        {}
func (FileChangeItem) isItem()       {}
func (McpToolCallItem) isItem()      {}
func (WebSearchItem) isItem()        {}
func (ErrorItem) isItem()            {}
func (TodoListItem) isItem()         {}
func (UnknownItem) isItem()          {}
