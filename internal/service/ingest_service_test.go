package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mranderson01901234/LOS-sub002/pkg/embedding"
	"github.com/mranderson01901234/LOS-sub002/pkg/retrieval"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/store/memory"
)

// capturingLogger records structured log calls for assertions.
type capturingLogger struct {
	mu      sync.Mutex
	entries []capturedEntry
}

type capturedEntry struct {
	level   string
	module  string
	message string
}

func (l *capturingLogger) log(level, module, message string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.entries = append(l.entries, capturedEntry{level: level, module: module, message: message})
}

func (l *capturingLogger) Debug(module, message string, _ map[string]interface{}) {
	l.log("DEBUG", module, message)
}

func (l *capturingLogger) Info(module, message string, _ map[string]interface{}) {
	l.log("INFO", module, message)
}

func (l *capturingLogger) Warn(module, message string, _ map[string]interface{}) {
	l.log("WARN", module, message)
}

func (l *capturingLogger) Error(module, message string, _ map[string]interface{}) {
	l.log("ERROR", module, message)
}

func (l *capturingLogger) Sync() error { return nil }

func (l *capturingLogger) modules() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	var out []string
	for _, e := range l.entries {
		out = append(out, e.module)
	}
	return out
}

type fakeEmbedder struct{}

func (fakeEmbedder) Generate(_ context.Context, _ string, _ string) (*embedding.EmbeddingResponse, error) {
	return &embedding.EmbeddingResponse{
		Embedding: embedding.EmbeddingResponseEmbedding{Values: []float32{0, 1, 0}},
	}, nil
}

func TestIngestThenConsumeFillsEmbeddings(t *testing.T) {
	ctx := context.Background()
	storage := memory.NewStore()
	logs := &capturingLogger{}

	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermill.NopLogger{})
	consumer := NewConsumerService(pubSub, "EMBED_CHUNKS", storage, fakeEmbedder{}, logs)
	require.NoError(t, consumer.Consume(ctx))

	publisher := NewPublisherService(pubSub, "EMBED_CHUNKS")
	chunker := retrieval.NewChunker(retrieval.ChunkOptions{ChunkSize: 100, Overlap: 10})
	ingest := NewIngestService(storage, chunker, publisher, logs)

	doc := &store.Document{
		ID:      "doc-1",
		Title:   "Pipeline notes",
		Content: "Fast-mode chunks land without embeddings and get them filled in later.",
	}
	require.NoError(t, ingest.IngestDocument(ctx, doc))

	// Fast mode: chunks are stored immediately, still embedding-less.
	chunks, err := storage.ListChunks(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, chunks)

	deadline := time.Now().Add(2 * time.Second)
	for {
		chunks, err = storage.ListChunks(ctx)
		require.NoError(t, err)
		done := true
		for _, c := range chunks {
			if len(c.Embedding) == 0 {
				done = false
			}
		}
		if done || time.Now().After(deadline) {
			break
		}
		time.Sleep(10 * time.Millisecond)
	}

	for _, c := range chunks {
		assert.NotEmpty(t, c.Embedding, "chunk %s never received an embedding", c.ID)
	}

	modules := logs.modules()
	assert.Contains(t, modules, "INGEST", "ingest must log through the structured logger")
	assert.Contains(t, modules, "EMBED_CONSUMER", "consumer must log through the structured logger")
}
