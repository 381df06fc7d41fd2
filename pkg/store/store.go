package store

import (
	"context"
	"time"
)

// Document is a unit of library content (article, note, clipped page).
type Document struct {
	ID       string                 `json:"id"`
	Title    string                 `json:"title"`
	Content  string                 `json:"content"`
	URL      string                 `json:"url,omitempty"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Chunk is a bounded slice of a document, the unit of retrieval.
// Embedding may be empty ("fast mode") and filled in later by the
// background reprocessor. Index is unique and monotonic per document.
type Chunk struct {
	ID            string    `json:"id"`
	DocumentID    string    `json:"document_id"`
	DocumentTitle string    `json:"document_title"`
	Index         int       `json:"index"`
	Text          string    `json:"text"`
	Embedding     []float32 `json:"embedding,omitempty"`
}

// SearchResult is a scored chunk. Score can exceed 1.0 because content
// boosts are additive on top of cosine similarity.
type SearchResult struct {
	Chunk        Chunk   `json:"chunk"`
	Score        float64 `json:"score"`
	ScorePercent int     `json:"score_percent"`
}

// Citation names a source the assistant drew on for a reply.
type Citation struct {
	DocumentID string `json:"document_id,omitempty"`
	Title      string `json:"title"`
	URL        string `json:"url,omitempty"`
}

// ChatMessage is one turn entry in a conversation.
type ChatMessage struct {
	ID             string     `json:"id"`
	ConversationID string     `json:"conversation_id"`
	Role           string     `json:"role"` // "user" or "assistant"
	Content        string     `json:"content"`
	Citations      []Citation `json:"citations,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// ConversationMeta is the patch applied after each turn.
type ConversationMeta struct {
	LastActivity time.Time `json:"last_activity"`
	MessageCount int       `json:"message_count"`
}

// Storage is the persistence collaborator. Implementations live in the
// application shell; this core only consumes the contract.
type Storage interface {
	GetChunk(ctx context.Context, id string) (*Chunk, error)
	PutChunks(ctx context.Context, chunks []Chunk) error
	ListChunks(ctx context.Context) ([]Chunk, error)
	GetDocument(ctx context.Context, id string) (*Document, error)
	PutDocument(ctx context.Context, doc *Document) error
	ListDocuments(ctx context.Context) ([]Document, error)
	DeleteDocument(ctx context.Context, id string) error
	AppendMessage(ctx context.Context, msg *ChatMessage) error
	GetHistory(ctx context.Context, conversationID string) ([]ChatMessage, error)
	ClearConversation(ctx context.Context, conversationID string) error
	UpdateConversationMeta(ctx context.Context, conversationID string, patch ConversationMeta) error
}
