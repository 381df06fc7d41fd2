package router

import (
	"context"
	"errors"
	"io"
	"log"
	"testing"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

type stubProber struct {
	results []store.SearchResult
	err     error
}

func (s *stubProber) Search(_ context.Context, _ string, _ int, _ float64) ([]store.SearchResult, error) {
	return s.results, s.err
}

func probeResult(score float64) []store.SearchResult {
	return []store.SearchResult{{Score: score}}
}

func newTestRouter(prober RetrievalProber, cfg Config) *Router {
	return NewRouter(prober, cfg, log.New(io.Discard, "", 0))
}

func TestRoutePrecedence(t *testing.T) {
	tests := []struct {
		name       string
		utterance  string
		config     Config
		prober     *stubProber
		wantLocal  bool
		wantWeb    bool
		wantReason string
	}{
		{
			name:       "no-op skips everything even with web disabled",
			utterance:  "thanks!",
			config:     Config{WebSearchEnabled: false, RelevanceThreshold: 0.25, BiographicalThreshold: 0.15, ProbeTopK: 5},
			prober:     &stubProber{},
			wantLocal:  false,
			wantWeb:    false,
			wantReason: "conversational no-op",
		},
		{
			name:       "toggle off forces local",
			utterance:  "latest news about go",
			config:     Config{WebSearchEnabled: false, RelevanceThreshold: 0.25, BiographicalThreshold: 0.15, ProbeTopK: 5},
			prober:     &stubProber{},
			wantLocal:  true,
			wantWeb:    false,
			wantReason: "web search disabled",
		},
		{
			name:      "weather goes to web",
			utterance: "will it rain, what is the forecast for tomorrow",
			config:    DefaultConfig(),
			prober:    &stubProber{results: probeResult(0.9)},
			wantLocal: false,
			wantWeb:   true,
		},
		{
			name:      "personal knowledge stays local",
			utterance: "summarize my notes on distributed systems",
			config:    DefaultConfig(),
			prober:    &stubProber{},
			wantLocal: true,
			wantWeb:   false,
		},
		{
			name:       "confident probe stays local",
			utterance:  "tell me again about raft leader election",
			config:     DefaultConfig(),
			prober:     &stubProber{results: probeResult(0.6)},
			wantLocal:  true,
			wantWeb:    false,
			wantReason: "confident local match",
		},
		{
			name:       "weak probe goes hybrid",
			utterance:  "raft leader election subtleties",
			config:     DefaultConfig(),
			prober:     &stubProber{results: probeResult(0.1)},
			wantLocal:  true,
			wantWeb:    true,
			wantReason: "weak local match, hybrid",
		},
		{
			name:       "empty probe goes to web",
			utterance:  "anything on category theory",
			config:     DefaultConfig(),
			prober:     &stubProber{},
			wantLocal:  false,
			wantWeb:    true,
			wantReason: "no local results",
		},
		{
			name:       "probe error fails open to web",
			utterance:  "anything on category theory",
			config:     DefaultConfig(),
			prober:     &stubProber{err: errors.New("store down")},
			wantLocal:  false,
			wantWeb:    true,
			wantReason: "probe failed",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := newTestRouter(tt.prober, tt.config)
			got := r.Route(context.Background(), tt.utterance)
			if got.UseLocal != tt.wantLocal || got.UseWeb != tt.wantWeb {
				t.Errorf("Route = local=%v web=%v, want local=%v web=%v (reason %q)",
					got.UseLocal, got.UseWeb, tt.wantLocal, tt.wantWeb, got.Reason)
			}
			if tt.wantReason != "" && got.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", got.Reason, tt.wantReason)
			}
		})
	}
}

func TestRouteBiographicalThreshold(t *testing.T) {
	// A score between the biographical and standard thresholds: local for
	// "who is" questions, hybrid otherwise.
	prober := &stubProber{results: probeResult(0.2)}
	r := newTestRouter(prober, DefaultConfig())

	got := r.Route(context.Background(), "who is Alan Kay")
	if !got.UseLocal || got.UseWeb {
		t.Errorf("biographical query with 0.2 probe: got local=%v web=%v, want local only", got.UseLocal, got.UseWeb)
	}

	got = r.Route(context.Background(), "smalltalk message passing design")
	if !got.UseLocal || !got.UseWeb {
		t.Errorf("standard query with 0.2 probe: got local=%v web=%v, want hybrid", got.UseLocal, got.UseWeb)
	}
}
