// Package orchestrator drives one conversational turn through routing,
// retrieval, prompt assembly, streaming completion, and tool execution.
package orchestrator

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/mranderson01901234/LOS-sub002/pkg/ai/prerouter"
	"github.com/mranderson01901234/LOS-sub002/pkg/ai/router"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm/factory"
	"github.com/mranderson01901234/LOS-sub002/pkg/resilience"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/tools"
	"github.com/mranderson01901234/LOS-sub002/pkg/websearch"
)

// Config holds the orchestrator knobs. Zero values fall back to defaults.
type Config struct {
	Persona           string
	CompletionTimeout time.Duration
	HistoryWindow     int
	RetrievalTopK     int
	RetrievalMinScore float64
	WebResultCount    int
	WebFetchTop       int
	MaxToolRounds     int
}

func DefaultConfig() Config {
	return Config{
		Persona:           defaultPersona,
		CompletionTimeout: 60 * time.Second,
		HistoryWindow:     10,
		RetrievalTopK:     5,
		RetrievalMinScore: 0.25,
		WebResultCount:    5,
		WebFetchTop:       2,
		MaxToolRounds:     4,
	}
}

// Retriever is the local retrieval collaborator.
type Retriever interface {
	Search(ctx context.Context, query string, k int, minScore float64) ([]store.SearchResult, error)
}

// SessionTracker keeps per-conversation turn state. Optional; nil disables
// tracking.
type SessionTracker interface {
	Get(sessionID string) (*store.Session, bool)
	Save(session *store.Session)
}

// TurnResult is what a completed turn hands back to the caller.
type TurnResult struct {
	Content   string
	Citations []store.Citation
	State     TurnState
	Steps     []ExecutionStep
	Route     router.RouteDecision
}

// OnToken observes the accumulating reply after each streamed increment.
type OnToken func(total string)

// Orchestrator wires the decision core together. One instance serves all
// conversations; per-turn state lives on the stack.
type Orchestrator struct {
	prerouter *prerouter.PreRouter
	router    *router.Router
	retriever Retriever
	web       websearch.Provider
	gateway   *tools.Gateway
	executor  *resilience.Executor
	storage   store.Storage
	sessions  SessionTracker
	primary   llm.LLMProvider
	fallback  llm.LLMProvider
	cfg       Config
	logger    *log.Logger
}

func New(
	pre *prerouter.PreRouter,
	rt *router.Router,
	retriever Retriever,
	web websearch.Provider,
	gateway *tools.Gateway,
	executor *resilience.Executor,
	storage store.Storage,
	sessions SessionTracker,
	primary llm.LLMProvider,
	fallbackProvider llm.LLMProvider,
	cfg Config,
	logger *log.Logger,
) *Orchestrator {
	def := DefaultConfig()
	if cfg.Persona == "" {
		cfg.Persona = def.Persona
	}
	if cfg.CompletionTimeout == 0 {
		cfg.CompletionTimeout = def.CompletionTimeout
	}
	if cfg.HistoryWindow == 0 {
		cfg.HistoryWindow = def.HistoryWindow
	}
	if cfg.RetrievalTopK == 0 {
		cfg.RetrievalTopK = def.RetrievalTopK
	}
	if cfg.RetrievalMinScore == 0 {
		cfg.RetrievalMinScore = def.RetrievalMinScore
	}
	if cfg.WebResultCount == 0 {
		cfg.WebResultCount = def.WebResultCount
	}
	if cfg.WebFetchTop == 0 {
		cfg.WebFetchTop = def.WebFetchTop
	}
	if cfg.MaxToolRounds == 0 {
		cfg.MaxToolRounds = def.MaxToolRounds
	}

	return &Orchestrator{
		prerouter: pre,
		router:    rt,
		retriever: retriever,
		web:       web,
		gateway:   gateway,
		executor:  executor,
		storage:   storage,
		sessions:  sessions,
		primary:   primary,
		fallback:  fallbackProvider,
		cfg:       cfg,
		logger:    logger,
	}
}

// turn carries the mutable state of one in-flight turn.
type turn struct {
	conversationID string
	utterance      string
	steps          []ExecutionStep
	citations      []store.Citation
	onToken        OnToken
}

func (t *turn) step(state TurnState, format string, args ...any) {
	t.steps = append(t.steps, ExecutionStep{
		State:  state,
		Detail: fmt.Sprintf(format, args...),
		At:     time.Now(),
	})
}

// CompleteTurn runs the full state machine for one user utterance. It always
// produces an assistant message on provider failure; an error return means a
// non-provider failure the caller must handle.
func (o *Orchestrator) CompleteTurn(ctx context.Context, conversationID, utterance string, onToken OnToken) (*TurnResult, error) {
	tracer := otel.Tracer("orchestrator")
	ctx, span := tracer.Start(ctx, "turn")
	span.SetAttributes(attribute.String("conversation.id", conversationID))
	defer span.End()

	t := &turn{
		conversationID: conversationID,
		utterance:      utterance,
		onToken:        onToken,
	}
	o.gateway.ResetTurn(conversationID)

	if err := o.storage.AppendMessage(ctx, &store.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: conversationID,
		Role:           "user",
		Content:        utterance,
		CreatedAt:      time.Now(),
	}); err != nil {
		return o.fail(t, fmt.Errorf("persisting user message: %w", err))
	}

	// ROUTING: the pre-router may answer trivial utterances outright.
	t.step(StateRouting, "classifying utterance")
	if c := o.prerouter.Classify(utterance); !c.ShouldRoute {
		o.logger.Printf("[ORCHESTRATOR] Pre-routed (%s)", c.Reason)
		t.step(StateDone, "pre-routed: %s", c.Reason)
		return o.finish(ctx, t, c.Response, router.RouteDecision{Reason: c.Reason})
	}

	decision := o.router.Route(ctx, utterance)
	t.step(StateRouting, "route local=%v web=%v (%s)", decision.UseLocal, decision.UseWeb, decision.Reason)

	// RETRIEVING: both sources are best-effort.
	t.step(StateRetrieving, "gathering context")
	localContext := o.gatherLocalContext(ctx, t, decision)
	webContext := o.gatherWebContext(ctx, t, decision)

	// PROMPTING.
	t.step(StatePrompting, "assembling prompt")
	history, err := o.storage.GetHistory(ctx, conversationID)
	if err != nil {
		o.logger.Printf("[ORCHESTRATOR] History load failed, continuing without: %v", err)
		history = nil
	}
	messages := o.buildMessages(localContext, webContext, history, utterance)

	// STREAMING: pick a provider, then race the stream against the wall clock.
	provider, err := factory.Select(ctx, o.primary, o.fallback)
	if err != nil {
		o.logger.Printf("[ORCHESTRATOR] %v", err)
		t.step(StateDone, "no provider available")
		return o.finish(ctx, t, "I don't have a language model configured right now, so I can't generate a full reply. Check the provider settings and try again.", decision)
	}

	content, streamErr := o.streamWithTools(ctx, t, provider, messages)
	if streamErr != nil {
		o.logger.Printf("[ORCHESTRATOR] Completion failed: %v", streamErr)
		reply := fallbackReply(utterance)
		if content != "" {
			// Keep whatever tokens arrived before the failure.
			reply = content
		}
		t.step(StateDone, "fallback after provider failure")
		return o.finish(ctx, t, reply, decision)
	}

	t.step(StateDone, "completed")
	return o.finish(ctx, t, content, decision)
}

// gatherLocalContext runs retrieval when the route asks for it. Failures
// degrade to an empty block.
func (o *Orchestrator) gatherLocalContext(ctx context.Context, t *turn, decision router.RouteDecision) string {
	if !decision.UseLocal {
		return ""
	}

	results, err := o.retriever.Search(ctx, t.utterance, o.cfg.RetrievalTopK, o.cfg.RetrievalMinScore)
	if err != nil {
		o.logger.Printf("[ORCHESTRATOR] Local retrieval failed: %v", err)
		t.step(StateRetrieving, "local retrieval failed")
		return ""
	}

	for _, r := range results {
		t.citations = append(t.citations, store.Citation{
			DocumentID: r.Chunk.DocumentID,
			Title:      r.Chunk.DocumentTitle,
		})
	}
	t.step(StateRetrieving, "%d local chunks", len(results))
	return formatLocalContext(results)
}

// gatherWebContext searches the web and fetches full content for the top
// results. Every failure degrades instead of failing the turn.
func (o *Orchestrator) gatherWebContext(ctx context.Context, t *turn, decision router.RouteDecision) string {
	if !decision.UseWeb || o.web == nil {
		return ""
	}

	var results []websearch.Result
	err := o.executor.Execute(ctx, "websearch", func(ctx context.Context) error {
		var searchErr error
		results, searchErr = o.web.Search(ctx, t.utterance, o.cfg.WebResultCount)
		return searchErr
	})
	if err != nil {
		o.logger.Printf("[ORCHESTRATOR] Web search failed: %v", err)
		t.step(StateRetrieving, "web search failed")
		return ""
	}

	contents := make(map[string]string)
	for i, r := range results {
		if i >= o.cfg.WebFetchTop {
			break
		}
		text, fetchErr := o.web.FetchContent(ctx, r.URL)
		if fetchErr != nil {
			o.logger.Printf("[ORCHESTRATOR] Fetch %s failed: %v", r.URL, fetchErr)
			continue
		}
		contents[r.URL] = text
	}

	for _, r := range results {
		t.citations = append(t.citations, store.Citation{Title: r.Title, URL: r.URL})
	}
	t.step(StateRetrieving, "%d web results, %d pages fetched", len(results), len(contents))
	return formatWebContext(results, contents)
}

// buildMessages assembles system prompt plus the recent history window plus
// the new utterance.
func (o *Orchestrator) buildMessages(localContext, webContext string, history []store.ChatMessage, utterance string) []llm.Message {
	// The new utterance was already persisted as the final history entry;
	// drop that one copy. Earlier turns that happen to repeat the same
	// question stay in the window.
	if n := len(history); n > 0 && history[n-1].Role == "user" && history[n-1].Content == utterance {
		history = history[:n-1]
	}
	if len(history) > o.cfg.HistoryWindow {
		history = history[len(history)-o.cfg.HistoryWindow:]
	}

	messages := make([]llm.Message, 0, len(history)+2)
	messages = append(messages, llm.Message{
		Role:    "system",
		Content: buildSystemPrompt(o.cfg.Persona, localContext, webContext),
	})
	for _, m := range history {
		messages = append(messages, llm.Message{Role: m.Role, Content: m.Content})
	}
	messages = append(messages, llm.Message{Role: "user", Content: utterance})
	return messages
}

// streamWithTools drives STREAMING and TOOL_EXECUTING until the provider
// stops emitting tool calls or the round budget runs out.
func (o *Orchestrator) streamWithTools(ctx context.Context, t *turn, provider llm.LLMProvider, messages []llm.Message) (string, error) {
	var accumulated string
	specs := tools.Specs()

	for round := 0; round < o.cfg.MaxToolRounds; round++ {
		t.step(StateStreaming, "streaming round %d", round+1)

		streamCtx, cancel := context.WithTimeout(ctx, o.cfg.CompletionTimeout)
		var result *llm.StreamResult
		var attempt string
		err := o.executor.Execute(streamCtx, "completion", func(ctx context.Context) error {
			// A retried stream starts over; only the final attempt's
			// tokens may survive, or retries would duplicate content.
			attempt = ""
			var callErr error
			result, callErr = provider.StreamChat(ctx, messages, specs, func(delta llm.StreamDelta) error {
				if delta.Content != "" {
					attempt += delta.Content
					if t.onToken != nil {
						t.onToken(accumulated + attempt)
					}
				}
				return nil
			})
			return callErr
		})
		cancel()
		accumulated += attempt
		if err != nil {
			return accumulated, err
		}

		if len(result.ToolCalls) == 0 {
			return accumulated, nil
		}

		// TOOL_EXECUTING: dispatch every call and feed results back.
		t.step(StateToolExecuting, "%d tool calls", len(result.ToolCalls))
		messages = append(messages, llm.Message{
			Role:      "assistant",
			Content:   result.Content,
			ToolCalls: result.ToolCalls,
		})
		for _, call := range result.ToolCalls {
			toolResult := o.gateway.Execute(ctx, t.conversationID, tools.Call{
				Name:      call.Name,
				Arguments: call.ArgumentsJSON,
			})
			payload := toolResult.Message
			if !toolResult.Success {
				payload = "Error: " + payload
			}
			messages = append(messages, llm.Message{
				Role:       "tool",
				Content:    payload,
				ToolCallID: call.ID,
			})
		}
	}

	o.logger.Printf("[ORCHESTRATOR] Tool round budget exhausted")
	return accumulated, nil
}

// finish persists the assistant reply and closes out the turn as DONE.
func (o *Orchestrator) finish(ctx context.Context, t *turn, content string, decision router.RouteDecision) (*TurnResult, error) {
	msg := &store.ChatMessage{
		ID:             uuid.NewString(),
		ConversationID: t.conversationID,
		Role:           "assistant",
		Content:        content,
		Citations:      t.citations,
		CreatedAt:      time.Now(),
	}
	if err := o.storage.AppendMessage(ctx, msg); err != nil {
		return o.fail(t, fmt.Errorf("persisting assistant message: %w", err))
	}

	history, err := o.storage.GetHistory(ctx, t.conversationID)
	if err != nil {
		o.logger.Printf("[ORCHESTRATOR] Meta refresh skipped: %v", err)
	} else {
		patch := store.ConversationMeta{LastActivity: time.Now(), MessageCount: len(history)}
		if err := o.storage.UpdateConversationMeta(ctx, t.conversationID, patch); err != nil {
			o.logger.Printf("[ORCHESTRATOR] Meta update failed: %v", err)
		}
	}

	if o.sessions != nil {
		session, ok := o.sessions.Get(t.conversationID)
		if !ok {
			session = &store.Session{ID: t.conversationID}
		}
		session.LastQuery = t.utterance
		session.LastRoute = decision.Reason
		session.TurnCount++
		session.LastTurnAt = time.Now()
		session.LastSources = t.citations
		o.sessions.Save(session)
	}

	return &TurnResult{
		Content:   content,
		Citations: t.citations,
		State:     StateDone,
		Steps:     t.steps,
		Route:     decision,
	}, nil
}

// fail is the FAILED path for non-provider errors.
func (o *Orchestrator) fail(t *turn, err error) (*TurnResult, error) {
	t.step(StateFailed, "%v", err)
	return &TurnResult{
		State: StateFailed,
		Steps: t.steps,
	}, err
}
