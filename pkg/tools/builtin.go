package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

// Searcher is the retrieval collaborator consumed by search_library.
type Searcher interface {
	Search(ctx context.Context, query string, k int, minScore float64) ([]store.SearchResult, error)
}

// Builtin holds the collaborators the built-in tool handlers operate on.
type Builtin struct {
	storage  store.Storage
	searcher Searcher
	validate *validator.Validate
	logger   *log.Logger
}

func NewBuiltin(storage store.Storage, searcher Searcher, logger *log.Logger) *Builtin {
	return &Builtin{
		storage:  storage,
		searcher: searcher,
		validate: validator.New(),
		logger:   logger,
	}
}

// Handlers returns the complete handler table for NewRegistry.
func (b *Builtin) Handlers() map[Kind]Handler {
	return map[Kind]Handler{
		KindSaveNote:          b.saveNote,
		KindUpdateNote:        b.updateNote,
		KindDeleteNote:        b.deleteNote,
		KindSearchLibrary:     b.searchLibrary,
		KindListDocuments:     b.listDocuments,
		KindClearConversation: b.clearConversation,
	}
}

// decode unmarshals and validates an argument struct, returning a
// human-readable failure when the payload does not satisfy the tool's
// contract.
func (b *Builtin) decode(args json.RawMessage, dst any) *Result {
	if err := json.Unmarshal(args, dst); err != nil {
		r := Failure("invalid arguments: %v", err)
		return &r
	}
	if err := b.validate.Struct(dst); err != nil {
		r := Failure("invalid arguments: %v", err)
		return &r
	}
	return nil
}

type saveNoteArgs struct {
	Title   string `json:"title" validate:"required,max=200"`
	Content string `json:"content"`
}

func (b *Builtin) saveNote(ctx context.Context, _ string, args json.RawMessage) Result {
	var a saveNoteArgs
	if fail := b.decode(args, &a); fail != nil {
		return *fail
	}

	doc := &store.Document{
		ID:      uuid.NewString(),
		Title:   a.Title,
		Content: a.Content,
	}
	if err := b.storage.PutDocument(ctx, doc); err != nil {
		b.logger.Printf("[TOOLS] saveNote storage error: %v", err)
		return Failure("could not save note")
	}

	data, _ := json.Marshal(map[string]string{"id": doc.ID})
	return Result{Success: true, Message: fmt.Sprintf("Saved note %q", a.Title), Data: data}
}

type updateNoteArgs struct {
	ID      string `json:"id" validate:"required"`
	Content string `json:"content" validate:"required"`
}

func (b *Builtin) updateNote(ctx context.Context, _ string, args json.RawMessage) Result {
	var a updateNoteArgs
	if fail := b.decode(args, &a); fail != nil {
		return *fail
	}

	doc, err := b.storage.GetDocument(ctx, a.ID)
	if err != nil {
		return Failure("note %s not found", a.ID)
	}

	doc.Content = a.Content
	if err := b.storage.PutDocument(ctx, doc); err != nil {
		b.logger.Printf("[TOOLS] updateNote storage error: %v", err)
		return Failure("could not update note")
	}
	return Result{Success: true, Message: fmt.Sprintf("Updated note %q", doc.Title)}
}

type deleteNoteArgs struct {
	ID string `json:"id" validate:"required"`
}

func (b *Builtin) deleteNote(ctx context.Context, _ string, args json.RawMessage) Result {
	var a deleteNoteArgs
	if fail := b.decode(args, &a); fail != nil {
		return *fail
	}

	doc, err := b.storage.GetDocument(ctx, a.ID)
	if err != nil {
		return Failure("note %s not found", a.ID)
	}
	if err := b.storage.DeleteDocument(ctx, a.ID); err != nil {
		b.logger.Printf("[TOOLS] deleteNote storage error: %v", err)
		return Failure("could not delete note")
	}
	return Result{Success: true, Message: fmt.Sprintf("Deleted note %q", doc.Title)}
}

type searchLibraryArgs struct {
	Query string `json:"query" validate:"required"`
	Limit int    `json:"limit" validate:"omitempty,min=1,max=20"`
}

func (b *Builtin) searchLibrary(ctx context.Context, _ string, args json.RawMessage) Result {
	var a searchLibraryArgs
	if fail := b.decode(args, &a); fail != nil {
		return *fail
	}
	if a.Limit == 0 {
		a.Limit = 5
	}

	results, err := b.searcher.Search(ctx, a.Query, a.Limit, 0)
	if err != nil {
		b.logger.Printf("[TOOLS] searchLibrary error: %v", err)
		return Failure("library search failed")
	}

	var lines []string
	for _, r := range results {
		lines = append(lines, fmt.Sprintf("%s (%d%%): %s", r.Chunk.DocumentTitle, r.ScorePercent, truncate(r.Chunk.Text, 160)))
	}
	if len(lines) == 0 {
		return Result{Success: true, Message: "No matching content in the library"}
	}

	data, _ := json.Marshal(results)
	return Result{Success: true, Message: strings.Join(lines, "\n"), Data: data}
}

func (b *Builtin) listDocuments(ctx context.Context, _ string, _ json.RawMessage) Result {
	docs, err := b.storage.ListDocuments(ctx)
	if err != nil {
		b.logger.Printf("[TOOLS] listDocuments storage error: %v", err)
		return Failure("could not list documents")
	}

	var lines []string
	for _, d := range docs {
		lines = append(lines, fmt.Sprintf("%s: %s", d.ID, d.Title))
	}
	if len(lines) == 0 {
		return Result{Success: true, Message: "The library is empty"}
	}

	data, _ := json.Marshal(docs)
	return Result{Success: true, Message: strings.Join(lines, "\n"), Data: data}
}

func (b *Builtin) clearConversation(ctx context.Context, conversationID string, _ json.RawMessage) Result {
	if err := b.storage.ClearConversation(ctx, conversationID); err != nil {
		b.logger.Printf("[TOOLS] clearConversation storage error: %v", err)
		return Failure("could not clear conversation")
	}
	return Result{Success: true, Message: "Conversation history cleared"}
}
