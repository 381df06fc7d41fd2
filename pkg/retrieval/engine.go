package retrieval

import (
	"context"
	"log"
	"regexp"
	"sort"
	"strings"

	"github.com/mranderson01901234/LOS-sub002/pkg/embedding"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

// Boost constants. Additive on top of cosine similarity, so final scores can
// exceed 1.0; ranking is by the combined score.
const (
	titleBoost       = 0.15
	contentBoost     = 0.10
	namedEntityBoost = 0.25
	maxTotalBoost    = 0.30

	// Minimum lexical overlap for the no-embedding fallback path.
	lexicalMinScore = 0.05
)

// Engine ranks library chunks against a query using embeddings, with a
// lexical-overlap fallback when the embedding provider is unavailable.
type Engine struct {
	embeddingProvider embedding.EmbeddingProvider
	storage           store.Storage
	logger            *log.Logger
}

func NewEngine(embeddingProvider embedding.EmbeddingProvider, storage store.Storage, logger *log.Logger) *Engine {
	return &Engine{
		embeddingProvider: embeddingProvider,
		storage:           storage,
		logger:            logger,
	}
}

// Search returns up to k chunks scoring at or above minScore, best first.
func (e *Engine) Search(ctx context.Context, query string, k int, minScore float64) ([]store.SearchResult, error) {
	chunks, err := e.storage.ListChunks(ctx)
	if err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return nil, nil
	}

	queryVectors, err := e.embedQueryVariants(ctx, query)
	if err != nil {
		e.logger.Printf("[SEARCH] Embedding unavailable, falling back to lexical scoring: %v", err)
		return e.lexicalSearch(query, chunks, k, minScore), nil
	}

	var results []store.SearchResult
	for _, chunk := range chunks {
		var score float64
		if len(chunk.Embedding) > 0 {
			score = e.maxSimilarity(queryVectors, chunk.Embedding)
		} else {
			// Fast-mode chunk awaiting reprocessing: lexical score keeps it findable.
			score = lexicalOverlap(query, chunk.Text)
		}

		score += contentBoostFor(query, &chunk)

		if score >= minScore {
			results = append(results, store.SearchResult{
				Chunk:        chunk,
				Score:        score,
				ScorePercent: int(score * 100),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}

	e.logger.Printf("[SEARCH] Query %q: %d chunks scored, %d returned", truncate(query, 50), len(chunks), len(results))
	return results, nil
}

// embedQueryVariants embeds the query plus its expansions. Failure of the
// original query embedding fails the whole semantic path; expansion failures
// are tolerated.
func (e *Engine) embedQueryVariants(ctx context.Context, query string) ([][]float32, error) {
	res, err := e.embeddingProvider.Generate(ctx, query, embedding.TaskRetrievalQuery)
	if err != nil {
		return nil, err
	}
	vectors := [][]float32{res.Embedding.Values}

	for _, expanded := range ExpandQuery(query) {
		expRes, err := e.embeddingProvider.Generate(ctx, expanded, embedding.TaskRetrievalQuery)
		if err != nil {
			e.logger.Printf("[SEARCH] Expansion embedding failed for %q: %v", expanded, err)
			continue
		}
		vectors = append(vectors, expRes.Embedding.Values)
	}

	return vectors, nil
}

func (e *Engine) maxSimilarity(queryVectors [][]float32, chunkVector []float32) float64 {
	best := 0.0
	for _, qv := range queryVectors {
		sim, err := CosineSimilarity(qv, chunkVector)
		if err != nil {
			e.logger.Printf("[SEARCH] Similarity failed: %v", err)
			continue
		}
		if sim > best {
			best = sim
		}
	}
	return best
}

func (e *Engine) lexicalSearch(query string, chunks []store.Chunk, k int, minScore float64) []store.SearchResult {
	var results []store.SearchResult
	for _, chunk := range chunks {
		score := lexicalOverlap(query, chunk.Text)
		if score < lexicalMinScore {
			continue
		}
		score += contentBoostFor(query, &chunk)
		if score >= minScore {
			results = append(results, store.SearchResult{
				Chunk:        chunk,
				Score:        score,
				ScorePercent: int(score * 100),
			})
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if k > 0 && len(results) > k {
		results = results[:k]
	}
	return results
}

// lexicalOverlap scores matched_query_words / total_query_words.
func lexicalOverlap(query, text string) float64 {
	queryWords := strings.Fields(strings.ToLower(query))
	if len(queryWords) == 0 {
		return 0
	}

	lowerText := strings.ToLower(text)
	matched := 0
	for _, w := range queryWords {
		w = strings.Trim(w, ".,!?\"'")
		if w == "" {
			continue
		}
		if strings.Contains(lowerText, w) {
			matched++
		}
	}

	return float64(matched) / float64(len(queryWords))
}

// contentBoostFor computes the additive relevance boost, capped at +0.30:
// +0.15 when the query appears in the document title, +0.10 when it appears
// in the chunk text, +0.25 when a capitalized bigram in the query matches one
// in the chunk.
func contentBoostFor(query string, chunk *store.Chunk) float64 {
	boost := 0.0
	lowerQuery := strings.ToLower(strings.TrimSpace(query))

	if lowerQuery != "" && strings.Contains(strings.ToLower(chunk.DocumentTitle), lowerQuery) {
		boost += titleBoost
	}
	if lowerQuery != "" && strings.Contains(strings.ToLower(chunk.Text), lowerQuery) {
		boost += contentBoost
	}
	if matchesNamedEntity(query, chunk.Text) {
		boost += namedEntityBoost
	}

	if boost > maxTotalBoost {
		boost = maxTotalBoost
	}
	return boost
}

var capitalizedBigramPattern = regexp.MustCompile(`\b[A-Z][a-z]+\s+[A-Z][a-z]+\b`)

// matchesNamedEntity reports whether any capitalized bigram in the query
// appears as a capitalized bigram in the text (case-insensitive comparison).
func matchesNamedEntity(query, text string) bool {
	queryEntities := capitalizedBigramPattern.FindAllString(query, -1)
	if len(queryEntities) == 0 {
		return false
	}

	textEntities := capitalizedBigramPattern.FindAllString(text, -1)
	if len(textEntities) == 0 {
		return false
	}

	textSet := make(map[string]bool, len(textEntities))
	for _, e := range textEntities {
		textSet[strings.ToLower(e)] = true
	}

	for _, e := range queryEntities {
		if textSet[strings.ToLower(e)] {
			return true
		}
	}
	return false
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
