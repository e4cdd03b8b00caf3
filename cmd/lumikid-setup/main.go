// Command lumikid-setup verifies a Lumikid deployment: graph connectivity,
// schema and fixed-dimension bootstrap, LLM gateway reachability, and the
// profile store.
package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/lumikid/lumikid/internal/config"
	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/memory"
	"github.com/lumikid/lumikid/internal/profilestore"
	"github.com/lumikid/lumikid/pkg/types"
)

func main() {
	fmt.Println("Lumikid Setup Verification")
	fmt.Println("==========================")

	cfg, err := config.LoadConfig()
	if err != nil {
		fail("load configuration", err)
	}
	ok("configuration loaded")

	ctx, cancel := context.WithTimeout(context.Background(), 60*time.Second)
	defer cancel()

	store, err := graph.NewDriver(cfg.Graph)
	if err != nil {
		fail("create graph driver", err)
	}
	defer func() { _ = store.Close(context.Background()) }()
	if err := store.Ping(ctx); err != nil {
		fail(fmt.Sprintf("reach graph store at %s", cfg.Graph.URI), err)
	}
	ok(fmt.Sprintf("graph store reachable at %s", cfg.Graph.URI))

	gateway := llm.NewGateway(cfg.LLM)
	svc := memory.NewService(store, gateway, nil)
	if err := svc.Init(ctx); err != nil {
		fail("bootstrap schema and fixed dimensions", err)
	}
	ok(fmt.Sprintf("schema ensured; %d interest + %d function dimensions seeded",
		len(types.InterestDimensions), len(types.FunctionDimensions)))

	if cfg.LLM.Enabled {
		if _, err := gateway.Embed(ctx, "setup verification"); err != nil {
			warn(fmt.Sprintf("LLM gateway check failed: %v", err))
		} else {
			ok(fmt.Sprintf("LLM gateway reachable (%s, model %s)", cfg.LLM.BaseURL, cfg.LLM.Model))
		}
	} else {
		warn("LLM disabled (MEMORY_ENABLE_LLM=false); extraction APIs will fail fast")
	}

	profiles, err := profilestore.New(cfg.Profile, cfg.LLM.EmbeddingDim)
	if err != nil {
		warn(fmt.Sprintf("profile store unavailable: %v", err))
	} else {
		defer func() { _ = profiles.Close() }()
		if _, err := profiles.ListChildren(ctx); err != nil {
			warn(fmt.Sprintf("profile store check failed: %v", err))
		} else {
			ok(fmt.Sprintf("profile store ready (engine: %s)", cfg.Profile.Engine))
		}
	}

	fmt.Println("\nAll checks complete.")
}

func ok(msg string) {
	fmt.Printf("  [ok]   %s\n", msg)
}

func warn(msg string) {
	fmt.Printf("  [warn] %s\n", msg)
}

func fail(what string, err error) {
	fmt.Printf("  [fail] %s: %v\n", what, err)
	os.Exit(1)
}
