package main

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"

	"github.com/mranderson01901234/LOS-sub002/internal/bootstrap"
	"github.com/mranderson01901234/LOS-sub002/internal/config"
	"github.com/mranderson01901234/LOS-sub002/internal/tracer"
	"github.com/mranderson01901234/LOS-sub002/pkg/store"
)

func main() {
	fmt.Println("=== Assistant Core Simulation ===")

	cfg := config.Load()
	shutdownTracer := tracer.InitTracer()
	defer shutdownTracer(context.Background())

	container := bootstrap.NewContainer(cfg, nil)
	defer container.SysLogger.Sync()

	ctx := context.Background()
	if err := container.Consumer.Consume(ctx); err != nil {
		log.Fatalf("Failed to start embedding consumer: %v", err)
	}

	seedLibrary(ctx, container)
	// Give the background embedder a moment before the first retrieval.
	time.Sleep(2 * time.Second)

	conversationID := uuid.NewString()
	userColor := color.New(color.FgCyan, color.Bold)
	aiColor := color.New(color.FgGreen)
	metaColor := color.New(color.FgHiBlack)

	turns := []string{
		"hi",
		"2 + 2 =",
		"what did I save about the go scheduler?",
		"what's the latest news on the Go release schedule?",
	}

	for _, utterance := range turns {
		userColor.Printf("\nUSER: %s\n", utterance)

		start := time.Now()
		result, err := container.Orchestrator.CompleteTurn(ctx, conversationID, utterance, nil)
		elapsed := time.Since(start)

		if err != nil {
			color.Red("Turn failed: %v", err)
			continue
		}

		aiColor.Printf("AI (%v): %s\n", elapsed.Round(time.Millisecond), result.Content)
		for _, step := range result.Steps {
			metaColor.Printf("  [%s] %s\n", step.State, step.Detail)
		}
		for _, c := range result.Citations {
			metaColor.Printf("  source: %s\n", c.Title)
		}
	}

	metaColor.Printf("\naudit entries recorded: %d\n", container.Gateway.Audit().Len())
}

func seedLibrary(ctx context.Context, container *bootstrap.Container) {
	docs := []*store.Document{
		{
			ID:    uuid.NewString(),
			Title: "Go scheduler notes",
			Content: "The Go runtime multiplexes goroutines onto OS threads using a " +
				"work-stealing scheduler. Each P owns a local run queue; when it runs dry " +
				"it steals half of another P's queue. Network poller integration parks " +
				"goroutines waiting on I/O without burning a thread.",
		},
		{
			ID:    uuid.NewString(),
			Title: "Reading list",
			Content: "Papers to revisit: the Raft dissertation for leader election details, " +
				"and the Dynamo paper for quorum tuning. Both are on the shelf at home.",
		},
	}

	for _, doc := range docs {
		if err := container.Ingest.IngestDocument(ctx, doc); err != nil {
			log.Printf("[WARN] Seeding %q failed: %v", doc.Title, err)
		}
	}
}
