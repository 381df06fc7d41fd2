package orchestrator

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mranderson01901234/LOS-sub002/pkg/ai/prerouter"
	"github.com/mranderson01901234/LOS-sub002/pkg/ai/router"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm"
	"github.com/mranderson01901234/LOS-sub002/pkg/resilience"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/store/memory"
	"github.com/mranderson01901234/LOS-sub002/pkg/tools"
	"github.com/mranderson01901234/LOS-sub002/pkg/websearch"
)

// fakeProvider scripts StreamChat responses round by round. flakyRemaining
// makes that many leading calls emit a partial delta and fail.
type fakeProvider struct {
	rounds         []*llm.StreamResult
	err            error
	available      bool
	calls          int
	block          bool
	flakyRemaining int
	flakyPartial   string
	flakyErr       error
	lastMessages   []llm.Message
}

func (f *fakeProvider) Chat(context.Context, []llm.Message, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProvider) Generate(context.Context, string, ...llm.Option) (string, error) {
	return "", errors.New("not used")
}

func (f *fakeProvider) StreamChat(ctx context.Context, messages []llm.Message, _ []llm.ToolSpec, onDelta llm.OnDelta, _ ...llm.Option) (*llm.StreamResult, error) {
	f.calls++
	f.lastMessages = messages
	if f.flakyRemaining > 0 {
		f.flakyRemaining--
		if onDelta != nil && f.flakyPartial != "" {
			_ = onDelta(llm.StreamDelta{Content: f.flakyPartial})
		}
		return nil, f.flakyErr
	}
	if f.block {
		if onDelta != nil {
			_ = onDelta(llm.StreamDelta{Content: "partial"})
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}

	round := f.rounds[0]
	if len(f.rounds) > 1 {
		f.rounds = f.rounds[1:]
	}
	if onDelta != nil && round.Content != "" {
		_ = onDelta(llm.StreamDelta{Content: round.Content})
	}
	return round, nil
}

func (f *fakeProvider) Available(context.Context) bool {
	return f.available
}

type fakeRetriever struct {
	results []store.SearchResult
	err     error
}

func (f *fakeRetriever) Search(context.Context, string, int, float64) ([]store.SearchResult, error) {
	return f.results, f.err
}

type fakeWeb struct {
	results  []websearch.Result
	err      error
	fetched  []string
	searches int
}

func (f *fakeWeb) Search(_ context.Context, _ string, _ int) ([]websearch.Result, error) {
	f.searches++
	return f.results, f.err
}

func (f *fakeWeb) FetchContent(_ context.Context, url string) (string, error) {
	f.fetched = append(f.fetched, url)
	return "page body for " + url, nil
}

type fixture struct {
	orch    *Orchestrator
	storage *memory.Store
	gateway *tools.Gateway
	web     *fakeWeb
}

func newFixture(t *testing.T, provider llm.LLMProvider, retriever Retriever, web *fakeWeb) *fixture {
	t.Helper()
	return newFixtureWithConfig(t, provider, retriever, web, Config{CompletionTimeout: 200 * time.Millisecond})
}

func newFixtureWithConfig(t *testing.T, provider llm.LLMProvider, retriever Retriever, web *fakeWeb, cfg Config) *fixture {
	t.Helper()
	logger := log.New(io.Discard, "", 0)
	storage := memory.NewStore()

	builtin := tools.NewBuiltin(storage, &fakeRetriever{}, logger)
	registry, err := tools.NewRegistry(builtin.Handlers())
	require.NoError(t, err)
	limiter := tools.NewRateLimiter(tools.RateLimits{
		Cooldown:              time.Nanosecond,
		MaxPerTurn:            10,
		MaxDestructivePerTurn: 3,
		Scope:                 tools.ScopeConversation,
	})
	gateway := tools.NewGateway(registry, limiter, tools.NewAuditLog(100), logger)

	executor := resilience.NewExecutor(
		resilience.RetryConfig{MaxRetries: 2, BaseDelay: time.Millisecond, Multiplier: 2, MaxDelay: 2 * time.Millisecond},
		resilience.BreakerConfig{FailureThreshold: 100, RecoveryTimeout: time.Minute},
		logger,
	)

	rt := router.NewRouter(retriever, router.DefaultConfig(), logger)

	var webProvider websearch.Provider
	if web != nil {
		webProvider = web
	}

	orch := New(
		prerouter.New(),
		rt,
		retriever,
		webProvider,
		gateway,
		executor,
		storage,
		memory.NewSessionRepository(),
		provider,
		nil,
		cfg,
		logger,
	)

	return &fixture{orch: orch, storage: storage, gateway: gateway, web: web}
}

func confidentResults() []store.SearchResult {
	return []store.SearchResult{{
		Chunk: store.Chunk{ID: "c1", DocumentID: "d1", DocumentTitle: "Scheduler notes", Text: "work stealing"},
		Score: 0.8, ScorePercent: 80,
	}}
}

func TestCompleteTurnPreRouterShortCircuit(t *testing.T) {
	provider := &fakeProvider{available: true}
	f := newFixture(t, provider, &fakeRetriever{}, nil)

	result, err := f.orch.CompleteTurn(context.Background(), "conv", "hi", nil)
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.NotEmpty(t, result.Content)
	assert.Zero(t, provider.calls, "trivial utterances must not reach the provider")

	history, err := f.storage.GetHistory(context.Background(), "conv")
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.Equal(t, "user", history[0].Role)
	assert.Equal(t, "assistant", history[1].Role)
	assert.Equal(t, result.Content, history[1].Content)
}

func TestCompleteTurnStreamsTokens(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		rounds:    []*llm.StreamResult{{Content: "the scheduler steals work"}},
	}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	var observed []string
	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"tell me about the scheduler notes I keep", func(total string) {
			observed = append(observed, total)
		})
	require.NoError(t, err)

	assert.Equal(t, "the scheduler steals work", result.Content)
	assert.NotEmpty(t, observed, "partial output must be observable during streaming")
	assert.NotEmpty(t, result.Citations)

	meta, ok := f.storage.Meta("conv")
	require.True(t, ok, "conversation meta must be updated after the turn")
	assert.Equal(t, 2, meta.MessageCount)
}

func TestCompleteTurnProviderErrorFallsBack(t *testing.T) {
	provider := &fakeProvider{available: true, err: errors.New("503 service unavailable")}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"there is a bug in my parser code somewhere", nil)
	require.NoError(t, err, "provider failure must not fail the turn")

	assert.Equal(t, StateDone, result.State)
	assert.NotEmpty(t, result.Content, "a failed provider call must still produce a message")
	assert.NotContains(t, result.Content, "503", "raw provider errors never reach the user")

	history, hErr := f.storage.GetHistory(context.Background(), "conv")
	require.NoError(t, hErr)
	require.Len(t, history, 2)
	assert.Equal(t, result.Content, history[1].Content, "fallback reply is persisted like any other")
}

func TestCompleteTurnTimeoutKeepsPartialTokens(t *testing.T) {
	provider := &fakeProvider{available: true, block: true}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	start := time.Now()
	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"summarize everything in the scheduler notes", nil)
	require.NoError(t, err)

	assert.Less(t, time.Since(start), 5*time.Second, "timeout must cut the stream off")
	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "partial", result.Content, "tokens received before the timeout are kept")
}

func TestCompleteTurnNoProviderConfigured(t *testing.T) {
	provider := &fakeProvider{available: false}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"walk me through my saved notes on raft", nil)
	require.NoError(t, err)

	assert.Equal(t, StateDone, result.State)
	assert.Contains(t, result.Content, "language model")
}

func TestCompleteTurnWebFailureDegrades(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		rounds:    []*llm.StreamResult{{Content: "answering from general knowledge"}},
	}
	web := &fakeWeb{err: errors.New("dns failure")}
	f := newFixture(t, provider, &fakeRetriever{}, web)

	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"what is the latest go release?", nil)
	require.NoError(t, err, "web search failure must degrade, not fail the turn")

	assert.Equal(t, StateDone, result.State)
	assert.Equal(t, "answering from general knowledge", result.Content)
	assert.NotZero(t, web.searches)
}

func TestCompleteTurnWebContextFetchesTopResults(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		rounds:    []*llm.StreamResult{{Content: "summarized"}},
	}
	web := &fakeWeb{results: []websearch.Result{
		{Title: "One", URL: "https://a.example", Description: "first"},
		{Title: "Two", URL: "https://b.example", Description: "second"},
		{Title: "Three", URL: "https://c.example", Description: "third"},
	}}
	f := newFixture(t, provider, &fakeRetriever{}, web)

	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"latest headlines about the go runtime", nil)
	require.NoError(t, err)

	assert.Len(t, web.fetched, 2, "full content is fetched for the top 2 results only")
	assert.Len(t, result.Citations, 3, "every search hit is cited")
}

func TestCompleteTurnToolLoop(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		rounds: []*llm.StreamResult{
			{ToolCalls: []llm.ToolCall{{
				ID:            "call-1",
				Name:          "save_note",
				ArgumentsJSON: `{"title":"standup summary","content":"all green"}`,
			}}},
			{Content: "Saved that note for you."},
		},
	}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"save a note from my scheduler reading titled standup summary", nil)
	require.NoError(t, err)

	assert.Equal(t, "Saved that note for you.", result.Content)
	assert.Equal(t, 2, provider.calls, "tool results must feed a follow-up completion")

	docs, err := f.storage.ListDocuments(context.Background())
	require.NoError(t, err)
	require.Len(t, docs, 1)
	assert.Equal(t, "standup summary", docs[0].Title)

	entries := f.gateway.Audit().Entries()
	require.Len(t, entries, 1)
	assert.True(t, entries[0].Success)

	var sawToolState bool
	for _, step := range result.Steps {
		if step.State == StateToolExecuting {
			sawToolState = true
		}
	}
	assert.True(t, sawToolState, "turn trail must record the tool execution phase")
}

func TestCompleteTurnRetriedStreamDoesNotDuplicateTokens(t *testing.T) {
	provider := &fakeProvider{
		available:      true,
		rounds:         []*llm.StreamResult{{Content: "Hello world"}},
		flakyRemaining: 1,
		flakyPartial:   "Hello wor",
		flakyErr:       errors.New("connection reset by peer"),
	}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	var observed []string
	result, err := f.orch.CompleteTurn(context.Background(), "conv",
		"summarize my scheduler notes for me", func(total string) {
			observed = append(observed, total)
		})
	require.NoError(t, err)

	assert.Equal(t, "Hello world", result.Content,
		"a retried stream must not replay the failed attempt's tokens")
	assert.Equal(t, 2, provider.calls)
	for _, o := range observed {
		assert.NotContains(t, o, "worHello", "observations must restart with the retried attempt")
	}

	history, hErr := f.storage.GetHistory(context.Background(), "conv")
	require.NoError(t, hErr)
	require.Len(t, history, 2)
	assert.Equal(t, "Hello world", history[1].Content)
}

func TestCompleteTurnToolRoundBudget(t *testing.T) {
	// The provider asks for a tool on every round and never terminates.
	provider := &fakeProvider{
		available: true,
		rounds: []*llm.StreamResult{{ToolCalls: []llm.ToolCall{{
			ID:            "call-loop",
			Name:          "list_documents",
			ArgumentsJSON: `{}`,
		}}}},
	}
	f := newFixtureWithConfig(t, provider, &fakeRetriever{results: confidentResults()}, nil,
		Config{CompletionTimeout: 200 * time.Millisecond, MaxToolRounds: 2})

	_, err := f.orch.CompleteTurn(context.Background(), "conv",
		"go through everything in my library", nil)
	require.NoError(t, err)

	assert.Equal(t, 2, provider.calls, "completion rounds stop at the configured tool budget")
}

func TestCompleteTurnRepeatedQuestionKeepsEarlierTurn(t *testing.T) {
	provider := &fakeProvider{
		available: true,
		rounds:    []*llm.StreamResult{{Content: "same answer as before"}},
	}
	f := newFixture(t, provider, &fakeRetriever{results: confidentResults()}, nil)

	utterance := "what did I save about the go scheduler?"
	_, err := f.orch.CompleteTurn(context.Background(), "conv", utterance, nil)
	require.NoError(t, err)
	_, err = f.orch.CompleteTurn(context.Background(), "conv", utterance, nil)
	require.NoError(t, err)

	var askings int
	for _, m := range provider.lastMessages {
		if m.Role == "user" && m.Content == utterance {
			askings++
		}
	}
	// The prompt window keeps the earlier asking; only the just-persisted
	// copy of the current utterance is dropped.
	assert.Equal(t, 2, askings)
}

func TestFallbackReplyKeywordTable(t *testing.T) {
	tests := []struct {
		utterance string
		contains  string
	}{
		{"hello there", "Hey!"},
		{"help me build an app", "building"},
		{"my code has a bug", "code"},
		{"do you remember what we talked about earlier", "history"},
		{"what's the weather like", "weather"},
		{"can you help me", "help"},
		{"is this even possible?", "question"},
		{"zzz", "went wrong"},
	}

	for _, tt := range tests {
		t.Run(tt.utterance, func(t *testing.T) {
			got := fallbackReply(tt.utterance)
			assert.NotEmpty(t, got)
			assert.Contains(t, got, tt.contains)
		})
	}
}
