package llm

// Message is a single entry in a chat-completion conversation.
type Message struct {
	// Role is one of "system", "user", "assistant", or "tool".
	Role string

	// Content is the text content of the message.
	Content string

	// ToolCalls contains any tool invocations requested by the assistant.
	ToolCalls []ToolCall

	// ToolCallID is set when Role is "tool", identifying which tool call
	// this message answers.
	ToolCallID string
}

// ToolCall is a function invocation requested by the model.
type ToolCall struct {
	// ID is the provider-assigned identifier for this call.
	ID string

	// Name is the function name.
	Name string

	// Arguments is the JSON-encoded arguments string.
	Arguments string
}

// ToolDefinition describes a function offered to the model.
type ToolDefinition struct {
	// Name is the function's unique identifier.
	Name string

	// Description explains what the function does.
	Description string

	// Parameters is the JSON Schema describing the function's arguments.
	Parameters map[string]any
}
