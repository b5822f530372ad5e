// Package llm defines the Provider interface for chat-completion backends.
//
// An LLM provider wraps an OpenAI-style chat-completion API (OpenAI, Azure
// OpenAI, or any compatible gateway) and exposes the single Complete call the
// response coordinator needs: messages in, content and tool calls out.
//
// Implementations must be safe for concurrent use; many call sessions issue
// completions in parallel.
package llm

import "context"

// Usage holds token accounting returned by the backend.
type Usage struct {
	// PromptTokens is the number of tokens consumed by the input messages.
	PromptTokens int

	// CompletionTokens is the number of tokens generated in the response.
	CompletionTokens int

	// TotalTokens is PromptTokens + CompletionTokens.
	TotalTokens int
}

// CompletionRequest carries everything the model needs for one response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history. The last message is
	// typically the user turn driving the response.
	Messages []Message

	// Tools is the set of function definitions offered to the model. Empty
	// means the model must answer in plain text.
	Tools []ToolDefinition

	// Temperature controls output randomness in [0.0, 2.0]. Zero means the
	// provider default.
	Temperature float64

	// MaxTokens caps the completion length. Zero means the provider default.
	MaxTokens int

	// SystemPrompt is an optional instruction injected before the history.
	SystemPrompt string
}

// CompletionResponse is the model's reply.
type CompletionResponse struct {
	// Content is the assistant's text. Empty when the model responds
	// exclusively with tool calls.
	Content string

	// ToolCalls lists the function invocations the model requests. The
	// caller executes them and feeds the results back in a follow-up request.
	ToolCalls []ToolCall

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat-completion backend.
//
// Implementations must be safe for concurrent use and must propagate context
// cancellation promptly.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	// Returns an error if the request fails or ctx is cancelled first.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
}
