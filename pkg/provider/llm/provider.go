// Package llm defines the Provider interface for chat-completion backends.
//
// A provider wraps a remote or local model API (OpenAI, or any vendor reachable
// through any-llm-go) and exposes one blocking completion call plus static
// capability metadata, without coupling callers to a specific SDK.
//
// Implementations must be safe for concurrent use.
package llm

import (
	"context"

	"github.com/MrWong99/voxa/pkg/types"
)

// Tool choice values for [CompletionRequest.ToolChoice].
const (
	ToolChoiceAuto = "auto"
	ToolChoiceNone = "none"
)

// Usage holds token accounting information returned by the backend.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// CompletionRequest carries everything the model needs to produce a response.
// At minimum Messages must be non-empty.
type CompletionRequest struct {
	// Messages is the ordered conversation history.
	Messages []types.Message

	// Tools is the set of function definitions offered to the model. The model
	// may answer with calls to one or more of them instead of text.
	Tools []types.ToolDefinition

	// ToolChoice is "auto" (default when Tools is non-empty) or "none".
	ToolChoice string

	// Temperature controls output randomness in [0.0, 2.0]. Zero leaves the
	// provider default in place.
	Temperature float64

	// MaxTokens caps the completion length. Zero means provider default.
	MaxTokens int

	// SystemPrompt, when set, is sent as a leading system-role message.
	SystemPrompt string
}

// CompletionResponse is the model's reply to one request.
type CompletionResponse struct {
	// Content is the text of the reply. Empty when the model answered only
	// with tool calls.
	Content string

	// ToolCalls lists the tool invocations requested by the model, in order.
	ToolCalls []types.ToolCall

	// FinishReason is the backend's stop reason ("stop", "tool_calls", ...).
	FinishReason string

	// Usage contains token accounting for this request/response pair.
	Usage Usage
}

// Provider is the abstraction over any chat backend.
type Provider interface {
	// Complete sends req to the model and waits for the full response.
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)

	// Capabilities returns static metadata describing the configured model.
	Capabilities() types.ModelCapabilities
}
