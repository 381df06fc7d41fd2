package orchestrator

import "strings"

// fallbackRule maps utterance keywords to a persona-consistent canned reply
// used when the completion provider errors out or times out. The raw
// provider error is never shown to the user.
type fallbackRule struct {
	keywords []string
	reply    string
}

var fallbackRules = []fallbackRule{
	{
		keywords: []string{"hello", "hi ", "hey", "good morning", "good evening"},
		reply:    "Hey! I'm having a little trouble reaching my language model right now, but I'm still here. Ask me again in a moment?",
	},
	{
		keywords: []string{"build", "app", "project", "create"},
		reply:    "I'd love to dig into what you're building, but my model connection is acting up. Give it another try shortly and we'll plan it out.",
	},
	{
		keywords: []string{"code", "function", "bug", "error", "debug"},
		reply:    "I can't reach my model to reason about code right now. Try again in a bit and I'll take a proper look.",
	},
	{
		keywords: []string{"remember", "earlier", "before", "context", "we talked"},
		reply:    "Your conversation history is safe with me, but I can't process it right now because my model connection failed. Ask again shortly.",
	},
	{
		keywords: []string{"weather", "temperature", "forecast"},
		reply:    "I can't check anything live at the moment, my model connection is down. A weather site will be faster right now.",
	},
	{
		keywords: []string{"help", "how do i", "can you"},
		reply:    "I want to help with that, but I'm temporarily cut off from my language model. Please try again in a moment.",
	},
	{
		keywords: []string{"?"},
		reply:    "Good question, and I wish I could answer it properly, but my model connection just failed. Ask me again shortly.",
	},
}

const defaultFallbackReply = "Something went wrong on my end while generating a response. Nothing you did, my model connection hiccuped. Please try again."

// fallbackReply picks the canned reply whose keywords first match the
// utterance. Matching is case-insensitive; rule order is precedence.
func fallbackReply(utterance string) string {
	lower := strings.ToLower(utterance)
	for _, rule := range fallbackRules {
		for _, kw := range rule.keywords {
			if strings.Contains(lower, kw) {
				return rule.reply
			}
		}
	}
	return defaultFallbackReply
}
