// Package websearch provides the web-search collaborator used when the
// router decides local knowledge is not enough.
package websearch

import "context"

// Result is one search hit.
type Result struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

// Provider is the web-search contract. FetchContent is best-effort: callers
// must tolerate an empty string or an error without failing the turn.
type Provider interface {
	Search(ctx context.Context, query string, n int) ([]Result, error)
	FetchContent(ctx context.Context, url string) (string, error)
}
