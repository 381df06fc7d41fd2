package orchestrator

import (
	"fmt"
	"strings"

	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/websearch"
)

const defaultPersona = `You are a thoughtful personal assistant with access to the user's saved library and, when needed, fresh web results. Be concise, direct, and honest about what you do and do not know. When you use provided context, ground your answer in it and cite the source by title.`

// formatLocalContext renders retrieval hits as a labeled context block.
func formatLocalContext(results []store.SearchResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== FROM THE USER'S LIBRARY ===\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] (relevance %d%%)\n%s\n\n", r.Chunk.DocumentTitle, r.ScorePercent, r.Chunk.Text)
	}
	return strings.TrimRight(b.String(), "\n")
}

// formatWebContext renders search hits, with fetched page text where
// available, as the second labeled context block.
func formatWebContext(results []websearch.Result, contents map[string]string) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	b.WriteString("=== FROM THE WEB ===\n")
	for _, r := range results {
		fmt.Fprintf(&b, "[%s] %s\n%s\n", r.Title, r.URL, r.Description)
		if content := contents[r.URL]; content != "" {
			fmt.Fprintf(&b, "%s\n", truncate(content, 2000))
		}
		b.WriteString("\n")
	}
	return strings.TrimRight(b.String(), "\n")
}

// buildSystemPrompt assembles persona plus whatever context blocks this turn
// produced.
func buildSystemPrompt(persona, localContext, webContext string) string {
	parts := []string{persona}
	if localContext != "" {
		parts = append(parts, localContext)
	}
	if webContext != "" {
		parts = append(parts, webContext)
	}
	if localContext == "" && webContext == "" {
		parts = append(parts, "No retrieved context is available for this turn. Answer from general knowledge and say so when unsure.")
	}
	return strings.Join(parts, "\n\n")
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
