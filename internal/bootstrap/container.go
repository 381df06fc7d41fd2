package bootstrap

import (
	"log"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/mranderson01901234/LOS-sub002/internal/config"
	"github.com/mranderson01901234/LOS-sub002/internal/pkg/logger"
	"github.com/mranderson01901234/LOS-sub002/internal/service"
	"github.com/mranderson01901234/LOS-sub002/pkg/ai/prerouter"
	"github.com/mranderson01901234/LOS-sub002/pkg/ai/router"
	"github.com/mranderson01901234/LOS-sub002/pkg/embedding"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm"
	"github.com/mranderson01901234/LOS-sub002/pkg/llm/factory"
	"github.com/mranderson01901234/LOS-sub002/pkg/orchestrator"
	"github.com/mranderson01901234/LOS-sub002/pkg/resilience"
	"github.com/mranderson01901234/LOS-sub002/pkg/retrieval"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
	"github.com/mranderson01901234/LOS-sub002/pkg/store/memory"
	"github.com/mranderson01901234/LOS-sub002/pkg/tools"
	"github.com/mranderson01901234/LOS-sub002/pkg/websearch"
)

// Container wires the decision core and its background services.
type Container struct {
	Orchestrator *orchestrator.Orchestrator
	Ingest       service.IIngestService
	Consumer     service.IConsumerService
	Gateway      *tools.Gateway
	Storage      store.Storage
	SysLogger    logger.ILogger
}

// NewContainer builds the full object graph from configuration. The storage
// argument lets callers substitute their own persistence; nil gets the
// in-memory implementation.
func NewContainer(cfg *config.Config, storage store.Storage) *Container {
	sysLogger := logger.NewZapLogger(cfg.App.LogFilePath, cfg.App.Environment == "production")
	stdLogger := log.Default()

	if storage == nil {
		storage = memory.NewStore()
	}

	// Embedding provider by config, mirroring the completion factory.
	var embeddingProvider embedding.EmbeddingProvider
	if cfg.Ai.EmbeddingProvider == "ollama" {
		embeddingProvider = embedding.NewOllamaProvider(cfg.Ai.OllamaBaseURL, cfg.Ai.OllamaEmbedModel)
		sysLogger.Info("BOOTSTRAP", "Using embedding provider: ollama", map[string]interface{}{"model": cfg.Ai.OllamaEmbedModel})
	} else {
		embeddingProvider = embedding.NewGeminiProvider(cfg.Keys.GoogleGemini)
		sysLogger.Info("BOOTSTRAP", "Using embedding provider: gemini", nil)
	}

	// Completion providers. The fallback is optional.
	primary, err := factory.NewLLMProvider(factory.ProviderConfig{
		Type:      cfg.Ai.LLMProvider,
		ModelName: cfg.Ai.LLMModel,
		BaseURL:   cfg.Ai.OllamaBaseURL,
		APIKey:    cfg.Keys.OpenAI,
	})
	if err != nil {
		sysLogger.Warn("BOOTSTRAP", "Primary completion provider unavailable", map[string]interface{}{"error": err.Error()})
	}
	var fallbackProvider llm.LLMProvider
	if cfg.Ai.LLMFallbackProvider != "" {
		baseURL := cfg.Ai.OllamaBaseURL
		if cfg.Ai.LLMFallbackProvider == "openai" {
			baseURL = cfg.Ai.OpenAIBaseURL
		}
		fallbackProvider, err = factory.NewLLMProvider(factory.ProviderConfig{
			Type:      cfg.Ai.LLMFallbackProvider,
			ModelName: cfg.Ai.LLMModel,
			BaseURL:   baseURL,
			APIKey:    cfg.Keys.OpenAI,
		})
		if err != nil {
			sysLogger.Warn("BOOTSTRAP", "Fallback completion provider unavailable", map[string]interface{}{"error": err.Error()})
		}
	}

	// Retrieval.
	engine := retrieval.NewEngine(embeddingProvider, storage, stdLogger)
	chunker := retrieval.NewChunker(retrieval.ChunkOptions{
		ChunkSize: cfg.Retrieval.ChunkSize,
		Overlap:   cfg.Retrieval.ChunkOverlap,
	})

	// Routing.
	pre := prerouter.New()
	rt := router.NewRouter(engine, router.Config{
		WebSearchEnabled:      cfg.Ai.WebSearchEnabled,
		RelevanceThreshold:    cfg.Retrieval.RelevanceThreshold,
		BiographicalThreshold: cfg.Retrieval.BiographicalThreshold,
		ProbeTopK:             cfg.Retrieval.ProbeTopK,
	}, stdLogger)

	// Tools.
	builtin := tools.NewBuiltin(storage, engine, stdLogger)
	registry, err := tools.NewRegistry(builtin.Handlers())
	if err != nil {
		sysLogger.Error("BOOTSTRAP", "Tool registry construction failed", map[string]interface{}{"error": err.Error()})
		log.Fatalf("[FATAL] Tool registry: %v", err)
	}
	limiter := tools.NewRateLimiter(tools.RateLimits{
		Cooldown:              cfg.Tools.Cooldown,
		MaxPerTurn:            cfg.Tools.MaxOperationsPerTurn,
		MaxDestructivePerTurn: cfg.Tools.MaxDestructiveOpsPerTurn,
		Scope:                 tools.RateLimitScope(cfg.Tools.RateLimitScope),
	})
	audit := tools.NewAuditLog(cfg.Tools.AuditLogCapacity)
	gateway := tools.NewGateway(registry, limiter, audit, stdLogger)

	// Resilience.
	executor := resilience.NewExecutor(
		resilience.RetryConfig{
			MaxRetries: cfg.Resilience.MaxRetries,
			BaseDelay:  cfg.Resilience.RetryBaseDelay,
			Multiplier: cfg.Resilience.RetryMultiplier,
			MaxDelay:   cfg.Resilience.RetryMaxDelay,
		},
		resilience.BreakerConfig{
			FailureThreshold: cfg.Resilience.FailureThreshold,
			RecoveryTimeout:  cfg.Resilience.RecoveryTimeout,
		},
		stdLogger,
	)

	// Web search.
	var web websearch.Provider
	if cfg.Keys.Brave != "" {
		web = websearch.NewBraveProvider(cfg.Keys.Brave, stdLogger)
	}

	sessions := memory.NewSessionRepository()

	orch := orchestrator.New(
		pre,
		rt,
		engine,
		web,
		gateway,
		executor,
		storage,
		sessions,
		primary,
		fallbackProvider,
		orchestrator.Config{
			CompletionTimeout: cfg.Ai.CompletionTimeout,
			RetrievalMinScore: cfg.Retrieval.RelevanceThreshold,
			RetrievalTopK:     cfg.Retrieval.ProbeTopK,
		},
		stdLogger,
	)

	// Background embedding pipeline.
	watermillLogger := watermill.NewStdLogger(false, false)
	pubSub := gochannel.NewGoChannel(gochannel.Config{}, watermillLogger)
	publisher := service.NewPublisherService(pubSub, cfg.Ai.EmbedTopicName)
	ingest := service.NewIngestService(storage, chunker, publisher, sysLogger)
	consumer := service.NewConsumerService(pubSub, cfg.Ai.EmbedTopicName, storage, embeddingProvider, sysLogger)

	return &Container{
		Orchestrator: orch,
		Ingest:       ingest,
		Consumer:     consumer,
		Gateway:      gateway,
		Storage:      storage,
		SysLogger:    sysLogger,
	}
}
