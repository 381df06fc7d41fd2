package router

import (
	"context"
	"log"
	"regexp"
	"strings"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

// RouteDecision says which knowledge sources feed this turn.
// Produced once per turn and never mutated.
type RouteDecision struct {
	UseLocal bool
	UseWeb   bool
	Reason   string
}

// RetrievalProber is the slice of the retrieval engine the router needs for
// its confidence probe.
type RetrievalProber interface {
	Search(ctx context.Context, query string, k int, minScore float64) ([]store.SearchResult, error)
}

// Config carries the router thresholds and the web-search feature toggle.
type Config struct {
	WebSearchEnabled      bool
	RelevanceThreshold    float64
	BiographicalThreshold float64
	ProbeTopK             int
}

func DefaultConfig() Config {
	return Config{
		WebSearchEnabled:      true,
		RelevanceThreshold:    0.25,
		BiographicalThreshold: 0.15,
		ProbeTopK:             5,
	}
}

// Router decides between local retrieval, web search, both, or neither.
// Deterministic pattern rules run first because they are cheap and auditable;
// the retrieval probe handles everything the rules don't cover.
type Router struct {
	prober RetrievalProber
	config Config
	logger *log.Logger
}

func NewRouter(prober RetrievalProber, config Config, logger *log.Logger) *Router {
	return &Router{
		prober: prober,
		config: config,
		logger: logger,
	}
}

// Conversational no-ops: whole-string matches only, never substrings.
var noOpUtterances = map[string]bool{
	"hello": true, "hi": true, "hey": true, "thanks": true, "thank you": true,
	"ok": true, "okay": true, "yes": true, "no": true, "bye": true,
	"goodbye": true, "cool": true, "nice": true, "great": true, "sure": true,
}

var currentInfoPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(weather|temperature|forecast)\b`),
	regexp.MustCompile(`(?i)\b(news|headlines|current\s+events)\b`),
	regexp.MustCompile(`(?i)\b(latest|newest|most\s+recent)\b`),
	regexp.MustCompile(`(?i)\breal[- ]?time\b`),
	regexp.MustCompile(`(?i)\b(today|tonight|right\s+now)\b`),
	regexp.MustCompile(`(?i)\bsearch\s+(the\s+)?(web|internet|online)\b`),
	regexp.MustCompile(`(?i)\b(stock|price\s+of|exchange\s+rate)\b`),
}

var personalKnowledgePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bmy\s+(notes?|documents?|files?|library|clips?|articles?)\b`),
	regexp.MustCompile(`(?i)\bin\s+(my|the)\s+library\b`),
	regexp.MustCompile(`(?i)\b(i|we)\s+(saved|clipped|noted|wrote)\b`),
	regexp.MustCompile(`(?i)\bwhat\s+did\s+i\s+save\b`),
}

var biographicalPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bwho\s+is\b`),
	regexp.MustCompile(`(?i)\babout\b`),
	regexp.MustCompile(`(?i)\bbackground\b`),
	regexp.MustCompile(`(?i)\bbiography\b`),
}

// Route applies the precedence rules and, when none fire, probes the
// retrieval engine to measure how much the library knows about the query.
func (r *Router) Route(ctx context.Context, utterance string) RouteDecision {
	normalized := strings.ToLower(strings.Trim(strings.TrimSpace(utterance), ".!?"))

	// 1. Conversational no-ops need no sources at all.
	if noOpUtterances[normalized] {
		return RouteDecision{UseLocal: false, UseWeb: false, Reason: "conversational no-op"}
	}

	// 2. Feature toggle: web off means local is all we have.
	if !r.config.WebSearchEnabled {
		return RouteDecision{UseLocal: true, UseWeb: false, Reason: "web search disabled"}
	}

	// 3. Current-information requests can't be answered from the library.
	for _, pattern := range currentInfoPatterns {
		if pattern.MatchString(utterance) {
			return RouteDecision{UseLocal: false, UseWeb: true, Reason: "requires current information"}
		}
	}

	// 4. Explicit personal-knowledge requests stay local.
	for _, pattern := range personalKnowledgePatterns {
		if pattern.MatchString(utterance) {
			return RouteDecision{UseLocal: true, UseWeb: false, Reason: "personal knowledge request"}
		}
	}

	// 5. Probe the library and decide by confidence.
	return r.probeRoute(ctx, utterance)
}

func (r *Router) probeRoute(ctx context.Context, utterance string) RouteDecision {
	threshold := r.config.RelevanceThreshold
	for _, pattern := range biographicalPatterns {
		if pattern.MatchString(utterance) {
			threshold = r.config.BiographicalThreshold
			break
		}
	}

	results, err := r.prober.Search(ctx, utterance, r.config.ProbeTopK, 0)
	if err != nil {
		// Fail open toward the source most likely to have an answer.
		r.logger.Printf("[ROUTER] Probe failed, routing to web: %v", err)
		return RouteDecision{UseLocal: false, UseWeb: true, Reason: "probe failed"}
	}

	if len(results) == 0 {
		return RouteDecision{UseLocal: false, UseWeb: true, Reason: "no local results"}
	}

	best := results[0].Score
	r.logger.Printf("[ROUTER] Probe best score %.4f (threshold %.2f)", best, threshold)

	if best > threshold {
		return RouteDecision{UseLocal: true, UseWeb: false, Reason: "confident local match"}
	}

	return RouteDecision{UseLocal: true, UseWeb: true, Reason: "weak local match, hybrid"}
}
