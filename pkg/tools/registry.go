package tools

import (
	"context"
	"encoding/json"
	"fmt"
)

// Result is a tool outcome. Business-logic failures (validation, not-found,
// missing confirmation) come back as Success=false with a message; the
// gateway never surfaces them as Go errors.
type Result struct {
	Success      bool            `json:"success"`
	Message      string          `json:"message"`
	Data         json.RawMessage `json:"data,omitempty"`
	NotConfirmed bool            `json:"not_confirmed,omitempty"`
}

func Failure(format string, args ...any) Result {
	return Result{Success: false, Message: fmt.Sprintf(format, args...)}
}

// Handler executes one tool against its parsed argument payload.
type Handler func(ctx context.Context, conversationID string, args json.RawMessage) Result

// Registry is the fixed name-to-handler table. It is validated at
// construction: a handler registered under an unknown name, or a known tool
// left without a handler, fails immediately.
type Registry struct {
	handlers map[Kind]Handler
}

func NewRegistry(handlers map[Kind]Handler) (*Registry, error) {
	known := make(map[Kind]bool, len(AllKinds()))
	for _, k := range AllKinds() {
		known[k] = true
	}

	for kind, h := range handlers {
		if !known[kind] {
			return nil, fmt.Errorf("handler registered for unknown tool %q", kind)
		}
		if h == nil {
			return nil, fmt.Errorf("nil handler for tool %q", kind)
		}
	}
	for _, k := range AllKinds() {
		if _, ok := handlers[k]; !ok {
			return nil, fmt.Errorf("no handler registered for tool %q", k)
		}
	}

	return &Registry{handlers: handlers}, nil
}

// Lookup resolves a tool name. ok is false for names outside the closed set.
func (r *Registry) Lookup(name string) (Kind, Handler, bool) {
	kind := Kind(name)
	h, ok := r.handlers[kind]
	return kind, h, ok
}
