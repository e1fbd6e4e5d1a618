package toolbind

import (
	"context"
	"time"
)

// Callback is the contract for an LLM-callable method.
// It is provider-agnostic (no knowledge of OpenAI, Anthropic, etc.).
type Callback interface {
	Name() string
	Description() string
	// InputSchema returns the pretty-printed JSON Schema of the callback's input object.
	InputSchema() string
	// Parameters returns the same schema as a map (compatible with LLM tool definitions).
	Parameters() map[string]any
	// Call decodes input, coerces it to the method's parameters, invokes the method and
	// encodes the result. tc is injected into a *ToolContext parameter; a non-empty tc
	// is rejected when the method declares none.
	Call(ctx context.Context, input string, tc *ToolContext) (string, error)
}

// CallbackMetadata is implemented by callbacks created with NewMethodCallback and provides
// optional per-callback settings. Registry uses Timeout() to override its default when set.
type CallbackMetadata interface {
	Timeout() time.Duration
	Tags() []string
	Version() string
	IsDangerous() bool
}

// Descriptor is the externally visible identity of a callback.
type Descriptor struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	InputSchema string `json:"input_schema"`
}

// ToolCall is a single execution request (as produced by the LLM).
type ToolCall struct {
	ID       string
	ToolName string
	Args     string       // JSON object of arguments
	Context  *ToolContext // optional out-of-band values
}

// ToolResult is the outcome of one ToolCall. Output is empty when Error is set.
type ToolResult struct {
	CallID   string
	ToolName string
	Output   string
	Error    error
}

// DescriptorOf returns the Descriptor of any Callback.
func DescriptorOf(cb Callback) Descriptor {
	return Descriptor{Name: cb.Name(), Description: cb.Description(), InputSchema: cb.InputSchema()}
}
