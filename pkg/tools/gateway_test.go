package tools

import (
	"context"
	"fmt"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/store/memory"
)

type stubSearcher struct {
	results []store.SearchResult
}

func (s *stubSearcher) Search(context.Context, string, int, float64) ([]store.SearchResult, error) {
	return s.results, nil
}

func discardLogger() *log.Logger {
	return log.New(io.Discard, "", 0)
}

func newTestGateway(t *testing.T, storage store.Storage) (*Gateway, *fakeClock) {
	t.Helper()
	builtin := NewBuiltin(storage, &stubSearcher{}, discardLogger())
	registry, err := NewRegistry(builtin.Handlers())
	require.NoError(t, err)

	limiter, clock := newTestLimiter(RateLimits{
		Cooldown:              time.Millisecond,
		MaxPerTurn:            10,
		MaxDestructivePerTurn: 3,
		Scope:                 ScopeConversation,
	})

	return NewGateway(registry, limiter, NewAuditLog(100), discardLogger()), clock
}

func TestGatewaySaveAndDeleteNote(t *testing.T) {
	storage := memory.NewStore()
	g, clock := newTestGateway(t, storage)
	ctx := context.Background()

	result := g.Execute(ctx, "conv", Call{
		Name:      "save_note",
		Arguments: `{"title":"groceries","content":"milk and eggs"}`,
	})
	require.True(t, result.Success, result.Message)

	docs, err := storage.ListDocuments(ctx)
	require.NoError(t, err)
	require.Len(t, docs, 1)

	clock.advance(time.Second)
	result = g.Execute(ctx, "conv", Call{
		Name:      "delete_note",
		Arguments: fmt.Sprintf(`{"id":%q,"confirm":"delete"}`, docs[0].ID),
	})
	require.True(t, result.Success, result.Message)

	docs, err = storage.ListDocuments(ctx)
	require.NoError(t, err)
	assert.Empty(t, docs)
}

func TestGatewayDestructiveRequiresConfirmation(t *testing.T) {
	storage := memory.NewStore()
	require.NoError(t, storage.PutDocument(context.Background(), &store.Document{ID: "doc-1", Title: "keep me"}))

	g, clock := newTestGateway(t, storage)
	ctx := context.Background()

	tests := []struct {
		name string
		args string
	}{
		{"missing confirm", `{"id":"doc-1"}`},
		{"wrong token", `{"id":"doc-1","confirm":"yes"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clock.advance(time.Second)
			result := g.Execute(ctx, "conv", Call{Name: "delete_note", Arguments: tt.args})
			assert.False(t, result.Success)
			assert.True(t, result.NotConfirmed, "caller needs the structured not-confirmed signal")

			doc, err := storage.GetDocument(ctx, "doc-1")
			require.NoError(t, err)
			assert.NotNil(t, doc, "document must survive an unconfirmed delete")
		})
	}
}

func TestGatewayUnknownTool(t *testing.T) {
	g, _ := newTestGateway(t, memory.NewStore())

	result := g.Execute(context.Background(), "conv", Call{Name: "format_disk", Arguments: `{}`})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "unknown tool")
}

func TestGatewayValidationFailureIsStructured(t *testing.T) {
	g, _ := newTestGateway(t, memory.NewStore())

	// Missing required title; must come back as a failed Result, not a panic
	// or Go error.
	result := g.Execute(context.Background(), "conv", Call{Name: "save_note", Arguments: `{"content":"x"}`})
	assert.False(t, result.Success)
	assert.Contains(t, result.Message, "invalid arguments")
}

func TestGatewayRepairsTruncatedArguments(t *testing.T) {
	storage := memory.NewStore()
	g, _ := newTestGateway(t, storage)

	result := g.Execute(context.Background(), "conv", Call{
		Name:      "save_note",
		Arguments: `{"title":"half a payload"`,
	})
	require.True(t, result.Success, result.Message)

	docs, err := storage.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "half a payload", docs[0].Title)
}

func TestGatewayRateLimitRejectionIsAudited(t *testing.T) {
	g, _ := newTestGateway(t, memory.NewStore())
	ctx := context.Background()

	first := g.Execute(ctx, "conv", Call{Name: "list_documents", Arguments: `{}`})
	require.True(t, first.Success)

	// Immediately again: cooldown rejection.
	second := g.Execute(ctx, "conv", Call{Name: "list_documents", Arguments: `{}`})
	assert.False(t, second.Success)
	assert.Contains(t, second.Message, "rate limited")

	entries := g.Audit().Entries()
	require.Len(t, entries, 2, "every call is audited, rejections included")
	assert.True(t, entries[0].Success)
	assert.False(t, entries[1].Success)
}

func TestGatewayClearConversation(t *testing.T) {
	storage := memory.NewStore()
	ctx := context.Background()
	require.NoError(t, storage.AppendMessage(ctx, &store.ChatMessage{
		ID: "m1", ConversationID: "conv", Role: "user", Content: "hello",
	}))

	g, _ := newTestGateway(t, storage)
	result := g.Execute(ctx, "conv", Call{
		Name:      "clear_conversation",
		Arguments: `{"confirm":"delete"}`,
	})
	require.True(t, result.Success, result.Message)

	history, err := storage.GetHistory(ctx, "conv")
	require.NoError(t, err)
	assert.Empty(t, history)
}

func TestAuditLogEviction(t *testing.T) {
	a := NewAuditLog(3)
	for i := 0; i < 5; i++ {
		a.Append(AuditLogEntry{Tool: Kind(fmt.Sprintf("tool-%d", i))})
	}

	entries := a.Entries()
	require.Len(t, entries, 3)
	assert.Equal(t, Kind("tool-2"), entries[0].Tool, "oldest entries are evicted first")
	assert.Equal(t, Kind("tool-4"), entries[2].Tool)
	assert.Equal(t, 3, a.Len())
}
