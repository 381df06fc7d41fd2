package store

import "time"

// Session is the in-memory state for one active conversation.
type Session struct {
	ID          string     `json:"id"` // ConversationID
	LastQuery   string     `json:"last_query"`
	LastRoute   string     `json:"last_route"` // Reason string from the latest RouteDecision
	TurnCount   int        `json:"turn_count"`
	LastTurnAt  time.Time  `json:"last_turn_at"`
	LastSources []Citation `json:"last_sources,omitempty"`
}
