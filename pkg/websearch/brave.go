package websearch

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const (
	braveEndpoint    = "https://api.search.brave.com/res/v1/web/search"
	maxFetchBodySize = 512 * 1024
)

// BraveProvider implements Provider against the Brave Search API.
type BraveProvider struct {
	apiKey     string
	httpClient *http.Client
	logger     *log.Logger
}

var _ Provider = &BraveProvider{}

type BraveOption func(*BraveProvider)

func WithHTTPClient(client *http.Client) BraveOption {
	return func(p *BraveProvider) {
		p.httpClient = client
	}
}

func NewBraveProvider(apiKey string, logger *log.Logger, options ...BraveOption) *BraveProvider {
	p := &BraveProvider{
		apiKey: apiKey,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
		logger: logger,
	}
	for _, opt := range options {
		opt(p)
	}
	return p
}

type braveWebResult struct {
	Title       string `json:"title"`
	URL         string `json:"url"`
	Description string `json:"description"`
}

type braveResponse struct {
	Web struct {
		Results []braveWebResult `json:"results"`
	} `json:"web"`
}

func (p *BraveProvider) Search(ctx context.Context, query string, n int) ([]Result, error) {
	if p.apiKey == "" {
		return nil, fmt.Errorf("brave search: no api key configured")
	}
	if n <= 0 {
		n = 5
	}

	endpoint := braveEndpoint + "?q=" + url.QueryEscape(query) + "&count=" + strconv.Itoa(n)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("brave search: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Subscription-Token", p.apiKey)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("brave search request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		return nil, fmt.Errorf("brave search returned status %d: %s", resp.StatusCode, string(body))
	}

	var parsed braveResponse
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return nil, fmt.Errorf("brave search: decoding response: %w", err)
	}

	results := make([]Result, 0, len(parsed.Web.Results))
	for _, r := range parsed.Web.Results {
		results = append(results, Result{
			Title:       r.Title,
			URL:         r.URL,
			Description: r.Description,
		})
	}
	p.logger.Printf("[WEBSEARCH] %d results for %q", len(results), query)
	return results, nil
}

var (
	scriptStylePattern = regexp.MustCompile(`(?is)<(script|style|noscript)[^>]*>.*?</(script|style|noscript)>`)
	tagPattern         = regexp.MustCompile(`<[^>]+>`)
	whitespacePattern  = regexp.MustCompile(`\s+`)
)

// FetchContent downloads a page and strips it to readable text. Best-effort:
// callers treat an error the same as an empty result.
func (p *BraveProvider) FetchContent(ctx context.Context, pageURL string) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, pageURL, nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("Accept", "text/html")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch %s: status %d", pageURL, resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchBodySize))
	if err != nil {
		return "", err
	}

	text := scriptStylePattern.ReplaceAllString(string(body), " ")
	text = tagPattern.ReplaceAllString(text, " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text), nil
}
