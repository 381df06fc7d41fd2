package prerouter

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

// Classification is the outcome of pre-routing a single utterance.
// When ShouldRoute is false, Response holds the instant reply and the
// turn costs nothing: no retrieval, no completion call.
type Classification struct {
	ShouldRoute bool
	Response    string
	Reason      string
}

// PreRouter pattern-classifies trivial utterances for instant replies.
// It has no side effects: output depends only on the utterance and the clock
// (for time/date answers).
type PreRouter struct {
	now func() time.Time
}

func New() *PreRouter {
	return &PreRouter{now: time.Now}
}

// NewWithClock injects a clock for deterministic tests.
func NewWithClock(now func() time.Time) *PreRouter {
	return &PreRouter{now: now}
}

// Anything that looks like it needs real reasoning is never short-circuited,
// even when it also matches a trivial pattern.
var complexPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\bexplain\b`),
	regexp.MustCompile(`(?i)\bwhy\b`),
	regexp.MustCompile(`(?i)\bhow\s+(does|do|did|can|could|would|should)\b`),
	regexp.MustCompile(`(?i)\bcompar(e|ison)\b`),
	regexp.MustCompile(`(?i)\b(difference|differences)\s+between\b`),
	regexp.MustCompile(`(?i)\bpros\s+and\s+cons\b`),
	regexp.MustCompile(`(?i)\b(advantages|disadvantages)\b`),
	regexp.MustCompile(`(?i)\bversus\b|\bvs\.?\b`),
}

var greetingPattern = regexp.MustCompile(`(?i)^(hi|hello|hey|howdy|good\s+(morning|afternoon|evening)|yo|sup|what's\s+up|whats\s+up)[.!?\s]*$`)

var greetingResponses = []string{
	"Hey! What can I help you with?",
	"Hello! Ready when you are.",
	"Hi there! What would you like to do?",
}

var weatherPattern = regexp.MustCompile(`(?i)\b(weather|temperature|forecast|raining|snowing)\b`)
var newsPattern = regexp.MustCompile(`(?i)\b(news|headlines|current\s+events|stock\s+price|stocks)\b`)
var timePattern = regexp.MustCompile(`(?i)^\s*(what('s|\s+is)\s+the\s+)?time(\s+is\s+it)?\s*\??\s*$|(?i)\bwhat\s+time\s+is\s+it\b`)
var datePattern = regexp.MustCompile(`(?i)\bwhat('s|\s+is)\s+(today('s)?\s+date|the\s+date)\b|(?i)\bwhat\s+day\s+is\s+(it|today)\b`)

var arithmeticPattern = regexp.MustCompile(`^\s*(-?\d+(?:\.\d+)?)\s*([+\-*/x])\s*(-?\d+(?:\.\d+)?)\s*=?\s*$`)

// Fixed vocabulary of short acknowledgements (max two words).
var acknowledgements = map[string]bool{
	"ok": true, "okay": true, "thanks": true, "thank you": true, "thx": true,
	"cool": true, "nice": true, "great": true, "got it": true, "sure": true,
	"yes": true, "no": true, "yep": true, "nope": true, "bye": true,
	"goodbye": true, "see ya": true, "later": true, "sounds good": true,
}

// Classify decides whether an utterance can be answered without routing.
// Default is to escalate: when in doubt, route.
func (p *PreRouter) Classify(utterance string) Classification {
	trimmed := strings.TrimSpace(utterance)
	if trimmed == "" {
		return Classification{ShouldRoute: true, Reason: "empty utterance"}
	}

	for _, pattern := range complexPatterns {
		if pattern.MatchString(trimmed) {
			return Classification{ShouldRoute: true, Reason: "complex question"}
		}
	}

	if greetingPattern.MatchString(trimmed) {
		// Deterministic pick keeps this a pure function of the utterance.
		response := greetingResponses[len(trimmed)%len(greetingResponses)]
		return Classification{Response: response, Reason: "greeting"}
	}

	if timePattern.MatchString(trimmed) {
		return Classification{
			Response: fmt.Sprintf("It's %s.", p.now().Format("3:04 PM")),
			Reason:   "time",
		}
	}
	if datePattern.MatchString(trimmed) {
		return Classification{
			Response: fmt.Sprintf("Today is %s.", p.now().Format("Monday, January 2, 2006")),
			Reason:   "date",
		}
	}
	if weatherPattern.MatchString(trimmed) && isShortLookup(trimmed) {
		return Classification{
			Response: "I don't have live weather data. I can search the web for current conditions if you'd like.",
			Reason:   "external data",
		}
	}
	if newsPattern.MatchString(trimmed) && isShortLookup(trimmed) {
		return Classification{
			Response: "I don't have a live news feed. I can search the web for the latest headlines if you'd like.",
			Reason:   "external data",
		}
	}

	if m := arithmeticPattern.FindStringSubmatch(trimmed); m != nil {
		return Classification{
			Response: evaluateArithmetic(m[1], m[2], m[3]),
			Reason:   "arithmetic",
		}
	}

	normalized := strings.ToLower(strings.Trim(trimmed, ".!?"))
	if len(strings.Fields(normalized)) <= 2 && acknowledgements[normalized] {
		return Classification{Response: "Anytime!", Reason: "acknowledgement"}
	}

	return Classification{ShouldRoute: true, Reason: "no trivial pattern matched"}
}

// isShortLookup filters out longer utterances that merely mention an external
// topic; those deserve full routing (the router sends them to web search).
func isShortLookup(utterance string) bool {
	return len(strings.Fields(utterance)) <= 8
}

func evaluateArithmetic(leftStr, op, rightStr string) string {
	left, _ := strconv.ParseFloat(leftStr, 64)
	right, _ := strconv.ParseFloat(rightStr, 64)

	var result float64
	switch op {
	case "+":
		result = left + right
	case "-":
		result = left - right
	case "*", "x":
		result = left * right
	case "/":
		if right == 0 {
			return fmt.Sprintf("%s %s %s = NaN", leftStr, op, rightStr)
		}
		result = left / right
	}

	return fmt.Sprintf("%s %s %s = %s", leftStr, op, rightStr, strconv.FormatFloat(result, 'f', -1, 64))
}
