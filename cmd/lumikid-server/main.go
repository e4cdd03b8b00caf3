// Command lumikid-server runs the Lumikid memory core HTTP server.
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/assistant"
	"github.com/lumikid/lumikid/internal/config"
	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/memory"
	"github.com/lumikid/lumikid/internal/profilestore"
	"github.com/lumikid/lumikid/internal/server"
	"github.com/lumikid/lumikid/internal/services"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("lumikid-server: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := graph.NewDriver(cfg.Graph)
	if err != nil {
		log.Fatalf("lumikid-server: graph driver: %v", err)
	}
	defer func() { _ = store.Close(context.Background()) }()
	if err := store.Ping(ctx); err != nil {
		log.Fatalf("lumikid-server: graph store unreachable: %v", err)
	}

	gateway := llm.NewGateway(cfg.LLM)

	profiles, err := profilestore.New(cfg.Profile, cfg.LLM.EmbeddingDim)
	if err != nil {
		log.Printf("lumikid-server: profile store unavailable, running without cache: %v", err)
		profiles = nil
	}
	if profiles != nil {
		defer func() { _ = profiles.Close() }()
	}

	svc := memory.NewService(store, gateway, profiles)
	if err := svc.Init(ctx); err != nil {
		log.Fatalf("lumikid-server: init: %v", err)
	}

	analyzer := analytics.NewAnalyzer(store)
	recommender := services.NewGameService(svc, analyzer, gateway)
	assessor := services.NewAssessmentService(svc, analyzer, gateway)
	reports := services.NewReportBuilder(svc, analyzer)

	registry := assistant.NewRegistry()
	assistant.RegisterDefaultTools(registry, svc, analyzer, recommender, assessor)
	chat := assistant.NewAssistant(gateway, registry)

	addr, shutdown, err := server.Start(ctx, cfg, server.Deps{
		Memory:      svc,
		Analyzer:    analyzer,
		Assistant:   chat,
		Recommender: recommender,
		Assessor:    assessor,
		Reports:     reports,
	})
	if err != nil {
		log.Fatalf("lumikid-server: %v", err)
	}
	log.Printf("lumikid-server: ready on %s", addr)

	<-ctx.Done()
	log.Println("lumikid-server: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := shutdown(shutdownCtx); err != nil {
		log.Printf("lumikid-server: shutdown: %v", err)
	}
}
