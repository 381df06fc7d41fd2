package service

import (
	"context"
	"encoding/json"

	"github.com/mranderson01901234/LOS-sub002/internal/dto"
	"github.com/mranderson01901234/LOS-sub002/internal/pkg/logger"
	"github.com/mranderson01901234/LOS-sub002/pkg/retrieval"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

type IIngestService interface {
	IngestDocument(ctx context.Context, doc *store.Document) error
}

// ingestService stores a document, splits it into chunks without embeddings
// so it is searchable immediately via lexical scoring, and queues the
// document for background embedding.
type ingestService struct {
	storage          store.Storage
	chunker          *retrieval.Chunker
	publisherService IPublisherService
	logger           logger.ILogger
}

func NewIngestService(
	storage store.Storage,
	chunker *retrieval.Chunker,
	publisherService IPublisherService,
	logger logger.ILogger,
) IIngestService {
	return &ingestService{
		storage:          storage,
		chunker:          chunker,
		publisherService: publisherService,
		logger:           logger,
	}
}

func (is *ingestService) IngestDocument(ctx context.Context, doc *store.Document) error {
	if err := is.storage.PutDocument(ctx, doc); err != nil {
		return err
	}

	chunks := is.chunker.ChunkDocument(doc)
	if err := is.storage.PutChunks(ctx, chunks); err != nil {
		return err
	}
	is.logger.Info("INGEST", "Document ingested", map[string]interface{}{"document_id": doc.ID, "chunks": len(chunks)})

	payload, err := json.Marshal(dto.EmbedDocumentMessage{DocumentID: doc.ID})
	if err != nil {
		return err
	}
	return is.publisherService.Publish(ctx, payload)
}
