package service

import (
	"context"
	"encoding/json"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/mranderson01901234/LOS-sub002/internal/dto"
	"github.com/mranderson01901234/LOS-sub002/internal/pkg/logger"
	"github.com/mranderson01901234/LOS-sub002/pkg/embedding"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

type IConsumerService interface {
	Consume(ctx context.Context) error
}

// consumerService fills in missing chunk embeddings in the background.
// Chunks written in fast mode stay lexically searchable until this catches
// up.
type consumerService struct {
	pubSub            *gochannel.GoChannel
	topicName         string
	storage           store.Storage
	embeddingProvider embedding.EmbeddingProvider
	logger            logger.ILogger
}

func NewConsumerService(
	pubSub *gochannel.GoChannel,
	topicName string,
	storage store.Storage,
	embeddingProvider embedding.EmbeddingProvider,
	logger logger.ILogger,
) IConsumerService {
	return &consumerService{
		pubSub:            pubSub,
		topicName:         topicName,
		storage:           storage,
		embeddingProvider: embeddingProvider,
		logger:            logger,
	}
}

func (cs *consumerService) Consume(ctx context.Context) error {
	messages, err := cs.pubSub.Subscribe(ctx, cs.topicName)
	if err != nil {
		return err
	}

	go func() {
		for msg := range messages {
			cs.processMessage(ctx, msg)
		}
	}()

	return nil
}

func (cs *consumerService) processMessage(ctx context.Context, msg *message.Message) {
	var payload dto.EmbedDocumentMessage
	if err := json.Unmarshal(msg.Payload, &payload); err != nil {
		cs.logger.Error("EMBED_CONSUMER", "Failed to unmarshal message", map[string]interface{}{"error": err.Error()})
		msg.Ack() // Ack invalid messages to prevent infinite retry
		return
	}

	cs.logger.Info("EMBED_CONSUMER", "Processing embeddings", map[string]interface{}{"document_id": payload.DocumentID})

	chunks, err := cs.storage.ListChunks(ctx)
	if err != nil {
		cs.logger.Error("EMBED_CONSUMER", "Failed to list chunks", map[string]interface{}{"document_id": payload.DocumentID, "error": err.Error()})
		msg.Nack() // Nack for retriable errors
		return
	}

	var updated []store.Chunk
	for _, chunk := range chunks {
		if chunk.DocumentID != payload.DocumentID || len(chunk.Embedding) > 0 {
			continue
		}

		resp, err := cs.embeddingProvider.Generate(ctx, chunk.Text, embedding.TaskRetrievalDocument)
		if err != nil {
			cs.logger.Error("EMBED_CONSUMER", "Embedding generation failed", map[string]interface{}{"chunk_id": chunk.ID, "error": err.Error()})
			msg.Nack()
			return
		}
		chunk.Embedding = resp.Embedding.Values
		updated = append(updated, chunk)
	}

	if len(updated) == 0 {
		cs.logger.Info("EMBED_CONSUMER", "No chunks pending embedding", map[string]interface{}{"document_id": payload.DocumentID})
		msg.Ack() // Document deleted or already embedded? Ack.
		return
	}

	if err := cs.storage.PutChunks(ctx, updated); err != nil {
		cs.logger.Error("EMBED_CONSUMER", "Failed to store embedded chunks", map[string]interface{}{"document_id": payload.DocumentID, "error": err.Error()})
		msg.Nack()
		return
	}

	cs.logger.Info("EMBED_CONSUMER", "Chunks embedded", map[string]interface{}{"document_id": payload.DocumentID, "count": len(updated)})
	msg.Ack()
}
