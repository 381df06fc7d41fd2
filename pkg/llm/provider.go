package llm

import (
	"context"
	"encoding/json"
)

// Message represents a chat message in a provider-agnostic format
type Message struct {
	Role    string // "user", "assistant", "system", "tool"
	Content string

	// ToolCalls carries the calls an assistant message requested, so the
	// follow-up completion sees what it asked for.
	ToolCalls []ToolCall

	// ToolCallID links a "tool" role message back to the call it answers.
	ToolCallID string
}

// ToolCall is a function invocation requested by the model mid-stream.
// Arguments arrive as raw JSON and must be validated before dispatch.
type ToolCall struct {
	ID            string
	Name          string
	ArgumentsJSON string
}

// ToolSpec describes a callable tool to the model.
type ToolSpec struct {
	Name        string
	Description string
	Parameters  json.RawMessage // JSON schema for the arguments object
}

// StreamDelta is one increment of a streaming completion.
type StreamDelta struct {
	Content   string
	ToolCalls []ToolCall
	Done      bool
}

// StreamResult is the accumulated outcome of a streaming call.
type StreamResult struct {
	Content   string
	ToolCalls []ToolCall
}

// OnDelta receives each stream increment. Returning an error aborts the stream.
type OnDelta func(delta StreamDelta) error

// Option allows for optional parameters like Temperature, MaxTokens, etc.
type Option func(*Options)

type Options struct {
	Temperature float64
	MaxTokens   int
	Model       string // Override default model
}

func WithTemperature(temp float64) Option {
	return func(o *Options) {
		o.Temperature = temp
	}
}

func WithModel(model string) Option {
	return func(o *Options) {
		o.Model = model
	}
}

func WithMaxTokens(n int) Option {
	return func(o *Options) {
		o.MaxTokens = n
	}
}

// LLMProvider defines the contract for any LLM backend
type LLMProvider interface {
	// Chat sends a chat history to the model and returns the response
	Chat(ctx context.Context, history []Message, options ...Option) (string, error)

	// Generate sends a single prompt to the model (convenience method)
	Generate(ctx context.Context, prompt string, options ...Option) (string, error)

	// StreamChat streams a completion. onDelta is invoked for every increment
	// so partial output is observable while the call is in flight. Tool calls
	// emitted by the model are collected into the result.
	StreamChat(ctx context.Context, history []Message, tools []ToolSpec, onDelta OnDelta, options ...Option) (*StreamResult, error)

	// Available reports whether the backend is reachable and configured.
	Available(ctx context.Context) bool
}
