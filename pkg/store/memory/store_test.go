package memory

import (
	"context"
	"testing"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

func TestDocumentLifecycle(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	doc := &store.Document{ID: "d1", Title: "Notes", Content: "body"}
	if err := s.PutDocument(ctx, doc); err != nil {
		t.Fatalf("PutDocument: %v", err)
	}
	if err := s.PutChunks(ctx, []store.Chunk{
		{ID: "c1", DocumentID: "d1", Index: 0, Text: "body"},
		{ID: "c2", DocumentID: "d1", Index: 1, Text: "more"},
		{ID: "c3", DocumentID: "d2", Index: 0, Text: "other doc"},
	}); err != nil {
		t.Fatalf("PutChunks: %v", err)
	}

	got, err := s.GetDocument(ctx, "d1")
	if err != nil {
		t.Fatalf("GetDocument: %v", err)
	}
	if got.Title != "Notes" {
		t.Errorf("Title = %q, want Notes", got.Title)
	}

	if err := s.DeleteDocument(ctx, "d1"); err != nil {
		t.Fatalf("DeleteDocument: %v", err)
	}
	if _, err := s.GetDocument(ctx, "d1"); err == nil {
		t.Error("deleted document still readable")
	}

	// Deleting a document removes its chunks, but nobody else's.
	chunks, err := s.ListChunks(ctx)
	if err != nil {
		t.Fatalf("ListChunks: %v", err)
	}
	if len(chunks) != 1 || chunks[0].ID != "c3" {
		t.Errorf("chunks after delete = %v, want only c3", chunks)
	}

	if err := s.DeleteDocument(ctx, "missing"); err == nil {
		t.Error("deleting a missing document must error")
	}
}

func TestListChunksOrdering(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	_ = s.PutChunks(ctx, []store.Chunk{
		{ID: "b1", DocumentID: "b", Index: 1},
		{ID: "a0", DocumentID: "a", Index: 0},
		{ID: "b0", DocumentID: "b", Index: 0},
	})

	chunks, _ := s.ListChunks(ctx)
	var ids []string
	for _, c := range chunks {
		ids = append(ids, c.ID)
	}
	want := []string{"a0", "b0", "b1"}
	for i := range want {
		if ids[i] != want[i] {
			t.Fatalf("order = %v, want %v", ids, want)
		}
	}
}

func TestConversationHistory(t *testing.T) {
	s := NewStore()
	ctx := context.Background()

	for _, m := range []struct{ role, content string }{
		{"user", "hello"},
		{"assistant", "hi there"},
	} {
		if err := s.AppendMessage(ctx, &store.ChatMessage{
			ID: m.role, ConversationID: "conv", Role: m.role, Content: m.content,
		}); err != nil {
			t.Fatalf("AppendMessage: %v", err)
		}
	}

	history, err := s.GetHistory(ctx, "conv")
	if err != nil {
		t.Fatalf("GetHistory: %v", err)
	}
	if len(history) != 2 || history[0].Role != "user" || history[1].Role != "assistant" {
		t.Fatalf("history = %v", history)
	}

	// The returned slice is a copy; mutating it must not touch the store.
	history[0].Content = "mutated"
	again, _ := s.GetHistory(ctx, "conv")
	if again[0].Content != "hello" {
		t.Error("GetHistory leaked internal state")
	}

	if err := s.UpdateConversationMeta(ctx, "conv", store.ConversationMeta{MessageCount: 2}); err != nil {
		t.Fatalf("UpdateConversationMeta: %v", err)
	}
	if meta, ok := s.Meta("conv"); !ok || meta.MessageCount != 2 {
		t.Errorf("meta = %+v ok=%v", meta, ok)
	}

	if err := s.ClearConversation(ctx, "conv"); err != nil {
		t.Fatalf("ClearConversation: %v", err)
	}
	cleared, _ := s.GetHistory(ctx, "conv")
	if len(cleared) != 0 {
		t.Errorf("history after clear = %v", cleared)
	}
	if _, ok := s.Meta("conv"); ok {
		t.Error("meta survived ClearConversation")
	}
}

func TestSessionRepository(t *testing.T) {
	r := NewSessionRepository()

	if _, ok := r.Get("s1"); ok {
		t.Fatal("empty repository returned a session")
	}

	r.Save(&store.Session{ID: "s1", LastQuery: "first", TurnCount: 1})
	r.Save(&store.Session{ID: "s1", LastQuery: "second", TurnCount: 2})

	got, ok := r.Get("s1")
	if !ok {
		t.Fatal("saved session not found")
	}
	if got.LastQuery != "second" || got.TurnCount != 2 {
		t.Errorf("session = %+v", got)
	}

	r.Delete("s1")
	if _, ok := r.Get("s1"); ok {
		t.Error("session survived Delete")
	}
}
