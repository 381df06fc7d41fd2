package orchestrator

import "time"

// TurnState is the phase of the per-turn state machine.
type TurnState string

const (
	StateRouting       TurnState = "ROUTING"
	StateRetrieving    TurnState = "RETRIEVING"
	StatePrompting     TurnState = "PROMPTING"
	StateStreaming     TurnState = "STREAMING"
	StateToolExecuting TurnState = "TOOL_EXECUTING"
	StateDone          TurnState = "DONE"
	StateFailed        TurnState = "FAILED"
)

// ExecutionStep is one entry in the turn's trace trail.
type ExecutionStep struct {
	State  TurnState `json:"state"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}
