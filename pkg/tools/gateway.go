package tools

import (
	"context"
	"encoding/json"
	"log"
	"time"
)

// ConfirmToken is the affirmative string destructive tools must carry in
// their arguments before they are allowed to run.
const ConfirmToken = "delete"

// Call is one tool invocation as emitted by a completion provider.
type Call struct {
	Name      string
	Arguments string
}

// Gateway dispatches tool calls through rate limiting, lenient argument
// parsing, the destructive confirmation gate, and the handler table, and
// audits every call after it completes. Execute never panics and never
// returns a Go error for business-logic failures.
type Gateway struct {
	registry *Registry
	limiter  *RateLimiter
	audit    *AuditLog
	logger   *log.Logger
}

func NewGateway(registry *Registry, limiter *RateLimiter, audit *AuditLog, logger *log.Logger) *Gateway {
	return &Gateway{
		registry: registry,
		limiter:  limiter,
		audit:    audit,
		logger:   logger,
	}
}

// Audit exposes the gateway's audit log.
func (g *Gateway) Audit() *AuditLog {
	return g.audit
}

// ResetTurn clears the per-turn rate-limit counters for a conversation.
func (g *Gateway) ResetTurn(conversationID string) {
	g.limiter.ResetTurn(conversationID)
}

type confirmArgs struct {
	Confirm string `json:"confirm"`
}

// Execute runs one tool call end to end.
func (g *Gateway) Execute(ctx context.Context, conversationID string, call Call) (result Result) {
	kind := Kind(call.Name)
	args := json.RawMessage(call.Arguments)

	defer func() {
		if r := recover(); r != nil {
			g.logger.Printf("[TOOLS] Panic in %q: %v", call.Name, r)
			result = Failure("tool %s failed unexpectedly", call.Name)
		}
		g.audit.Append(AuditLogEntry{
			Timestamp:      time.Now(),
			ConversationID: conversationID,
			Tool:           kind,
			Arguments:      args,
			Success:        result.Success,
			Message:        result.Message,
		})
	}()

	if err := g.limiter.Check(conversationID, kind); err != nil {
		g.logger.Printf("[TOOLS] Rate limit rejected %q: %v", call.Name, err)
		return Failure("rate limited: %v", err)
	}

	_, handler, ok := g.registry.Lookup(call.Name)
	if !ok {
		g.logger.Printf("[TOOLS] Unknown tool %q", call.Name)
		return Failure("unknown tool %q", call.Name)
	}

	parsed, outcome := ParseArguments(kind, call.Arguments)
	args = parsed
	if outcome != OutcomeParsed {
		g.logger.Printf("[TOOLS] Arguments for %q were %s", call.Name, outcome)
	}

	if kind.IsDestructive() {
		var c confirmArgs
		if err := json.Unmarshal(parsed, &c); err != nil || c.Confirm != ConfirmToken {
			g.logger.Printf("[TOOLS] %q missing confirmation, not executing", call.Name)
			return Result{
				Success:      false,
				NotConfirmed: true,
				Message:      "destructive operation requires confirmation",
			}
		}
	}

	result = handler(ctx, conversationID, parsed)
	g.logger.Printf("[TOOLS] %q success=%v: %s", call.Name, result.Success, truncate(result.Message, 120))
	return result
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
