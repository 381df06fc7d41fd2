package tools

import (
	"encoding/json"
	"sync"
	"time"
)

// AuditLogEntry records one gateway call, success or failure, after it
// completed.
type AuditLogEntry struct {
	Timestamp      time.Time       `json:"timestamp"`
	ConversationID string          `json:"conversation_id"`
	Tool           Kind            `json:"tool"`
	Arguments      json.RawMessage `json:"arguments"`
	Success        bool            `json:"success"`
	Message        string          `json:"message"`
}

// AuditLog is a capped ring buffer of gateway calls. Once full, the oldest
// entry is evicted on append. Safe for concurrent turns.
type AuditLog struct {
	mu       sync.Mutex
	entries  []AuditLogEntry
	capacity int
	start    int
	size     int
}

const DefaultAuditCapacity = 1000

func NewAuditLog(capacity int) *AuditLog {
	if capacity <= 0 {
		capacity = DefaultAuditCapacity
	}
	return &AuditLog{
		entries:  make([]AuditLogEntry, capacity),
		capacity: capacity,
	}
}

func (a *AuditLog) Append(entry AuditLogEntry) {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.size < a.capacity {
		a.entries[(a.start+a.size)%a.capacity] = entry
		a.size++
		return
	}
	a.entries[a.start] = entry
	a.start = (a.start + 1) % a.capacity
}

// Entries returns a copy of all recorded entries, oldest first.
func (a *AuditLog) Entries() []AuditLogEntry {
	a.mu.Lock()
	defer a.mu.Unlock()

	out := make([]AuditLogEntry, a.size)
	for i := 0; i < a.size; i++ {
		out[i] = a.entries[(a.start+i)%a.capacity]
	}
	return out
}

func (a *AuditLog) Len() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.size
}
