package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

// Store is an in-memory Storage implementation. It backs tests and the
// simulation shell; production shells plug in their own persistence.
type Store struct {
	mu            sync.RWMutex
	documents     map[string]store.Document
	chunks        map[string]store.Chunk
	conversations map[string][]store.ChatMessage
	meta          map[string]store.ConversationMeta
}

var _ store.Storage = &Store{}

func NewStore() *Store {
	return &Store{
		documents:     make(map[string]store.Document),
		chunks:        make(map[string]store.Chunk),
		conversations: make(map[string][]store.ChatMessage),
		meta:          make(map[string]store.ConversationMeta),
	}
}

func (s *Store) GetChunk(ctx context.Context, id string) (*store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, ok := s.chunks[id]
	if !ok {
		return nil, fmt.Errorf("chunk %s not found", id)
	}
	return &c, nil
}

func (s *Store) PutChunks(ctx context.Context, chunks []store.Chunk) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range chunks {
		s.chunks[c.ID] = c
	}
	return nil
}

func (s *Store) ListChunks(ctx context.Context) ([]store.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Chunk, 0, len(s.chunks))
	for _, c := range s.chunks {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].DocumentID != out[j].DocumentID {
			return out[i].DocumentID < out[j].DocumentID
		}
		return out[i].Index < out[j].Index
	})
	return out, nil
}

func (s *Store) GetDocument(ctx context.Context, id string) (*store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.documents[id]
	if !ok {
		return nil, fmt.Errorf("document %s not found", id)
	}
	return &d, nil
}

func (s *Store) PutDocument(ctx context.Context, doc *store.Document) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.documents[doc.ID] = *doc
	return nil
}

func (s *Store) ListDocuments(ctx context.Context) ([]store.Document, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]store.Document, 0, len(s.documents))
	for _, d := range s.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (s *Store) DeleteDocument(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.documents[id]; !ok {
		return fmt.Errorf("document %s not found", id)
	}
	delete(s.documents, id)

	for cid, c := range s.chunks {
		if c.DocumentID == id {
			delete(s.chunks, cid)
		}
	}
	return nil
}

func (s *Store) AppendMessage(ctx context.Context, msg *store.ChatMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.conversations[msg.ConversationID] = append(s.conversations[msg.ConversationID], *msg)
	return nil
}

func (s *Store) GetHistory(ctx context.Context, conversationID string) ([]store.ChatMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	history := s.conversations[conversationID]
	out := make([]store.ChatMessage, len(history))
	copy(out, history)
	return out, nil
}

func (s *Store) ClearConversation(ctx context.Context, conversationID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.conversations, conversationID)
	delete(s.meta, conversationID)
	return nil
}

func (s *Store) UpdateConversationMeta(ctx context.Context, conversationID string, patch store.ConversationMeta) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.meta[conversationID] = patch
	return nil
}

// Meta returns the stored metadata for a conversation (test helper).
func (s *Store) Meta(conversationID string) (store.ConversationMeta, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.meta[conversationID]
	return m, ok
}
