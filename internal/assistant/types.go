package assistant

// Tool describes a capability advertised to the assistant at creation time.
// Type is either "code_interpreter" or "function".
type Tool struct {
	Type     string        `json:"type"`
	Function *FunctionSpec `json:"function,omitempty"`
}

// FunctionSpec declares a callable function tool.
type FunctionSpec struct {
	Name        string          `json:"name"`
	Description string          `json:"description,omitempty"`
	Parameters  ParameterSchema `json:"parameters"`
}

// ParameterSchema is the JSON-schema fragment describing function arguments.
type ParameterSchema struct {
	Type       string              `json:"type"`
	Properties map[string]Property `json:"properties,omitempty"`
	Required   []string            `json:"required,omitempty"`
}

// Property describes a single function argument.
type Property struct {
	Type        string   `json:"type"`
	Description string   `json:"description,omitempty"`
	Enum        []string `json:"enum,omitempty"`
}

// CreateAssistantRequest is the payload for POST /assistants.
type CreateAssistantRequest struct {
	Name         string `json:"name"`
	Instructions string `json:"instructions"`
	Model        string `json:"model"`
	Tools        []Tool `json:"tools,omitempty"`
}

// Assistant identifies a configured assistant.
type Assistant struct {
	ID string `json:"id"`
}

// Thread identifies a conversational context.
type Thread struct {
	ID string `json:"id"`
}

// Run statuses reported by the API.
const (
	RunStatusQueued         = "queued"
	RunStatusInProgress     = "in_progress"
	RunStatusRequiresAction = "requires_action"
	RunStatusCompleted      = "completed"
	RunStatusFailed         = "failed"
	RunStatusCancelled      = "cancelled"
	RunStatusExpired        = "expired"
)

// Run is a single execution of an assistant over a thread.
type Run struct {
	ID             string          `json:"id"`
	ThreadID       string          `json:"thread_id"`
	Status         string          `json:"status"`
	RequiredAction *RequiredAction `json:"required_action,omitempty"`
	LastError      *RunError       `json:"last_error,omitempty"`
}

// RunError carries the upstream failure reason for terminal runs.
type RunError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// RequiredAction is present while the run waits for tool outputs.
type RequiredAction struct {
	Type              string             `json:"type"`
	SubmitToolOutputs *SubmitToolOutputs `json:"submit_tool_outputs,omitempty"`
}

// SubmitToolOutputs lists the tool calls the run is blocked on.
type SubmitToolOutputs struct {
	ToolCalls []ToolCall `json:"tool_calls"`
}

// ToolCall is one function invocation requested by the assistant.
type ToolCall struct {
	ID       string       `json:"id"`
	Type     string       `json:"type"`
	Function FunctionCall `json:"function"`
}

// FunctionCall names the function and carries its raw JSON arguments.
type FunctionCall struct {
	Name      string `json:"name"`
	Arguments string `json:"arguments"`
}

// ToolOutput is the result returned for one tool call.
type ToolOutput struct {
	ToolCallID string `json:"tool_call_id"`
	Output     string `json:"output"`
}

// Message is one entry in a thread, newest first in list responses.
type Message struct {
	ID      string           `json:"id"`
	Role    string           `json:"role"`
	Content []MessageContent `json:"content"`
}

// MessageContent is one content block of a message.
type MessageContent struct {
	Type      string     `json:"type"`
	Text      *TextValue `json:"text,omitempty"`
	ImageFile *ImageFile `json:"image_file,omitempty"`
}

// TextValue holds the textual payload of a text content block.
type TextValue struct {
	Value string `json:"value"`
}

// ImageFile references a generated file attached to a message.
type ImageFile struct {
	FileID string `json:"file_id"`
}

type messageList struct {
	Data []Message `json:"data"`
}

// FileObject identifies an uploaded or generated file.
type FileObject struct {
	ID string `json:"id"`
}

type transcription struct {
	Text string `json:"text"`
}
