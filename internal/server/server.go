// Package server provides HTTP server initialization and lifecycle
// management for the Lumikid memory core.
package server

import (
	"context"
	"fmt"
	"log"
	"net"
	"net/http"
	"time"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/assistant"
	"github.com/lumikid/lumikid/internal/config"
	"github.com/lumikid/lumikid/internal/memory"
	"github.com/lumikid/lumikid/internal/services"
	"github.com/lumikid/lumikid/web/handlers"
)

// Deps are the wired components the server exposes.
type Deps struct {
	Memory      *memory.Service
	Analyzer    *analytics.Analyzer
	Assistant   *assistant.Assistant
	Recommender assistant.GameRecommender
	Assessor    assistant.AssessmentGenerator
	Reports     *services.ReportBuilder
}

// securityHeadersMiddleware adds baseline security headers to all responses.
func securityHeadersMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Content-Type-Options", "nosniff")
		w.Header().Set("X-Frame-Options", "DENY")
		w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
		next.ServeHTTP(w, r)
	})
}

// Start builds the route table and starts listening. It returns the actual
// listen address (useful with port 0 in tests) and a shutdown function.
func Start(ctx context.Context, cfg *config.Config, deps Deps) (string, func(context.Context) error, error) {
	mux := http.NewServeMux()

	memoryHandlers := handlers.NewMemoryHandlers(deps.Memory, deps.Analyzer, deps.Recommender, deps.Assessor)
	mux.HandleFunc("POST /api/observation/text", memoryHandlers.HandleObservationText)
	mux.HandleFunc("POST /api/game/summary", memoryHandlers.HandleGameSummary)
	mux.HandleFunc("POST /api/game/recommend", memoryHandlers.HandleGameRecommend)
	mux.HandleFunc("POST /api/assessment/generate", memoryHandlers.HandleAssessmentGenerate)
	mux.HandleFunc("POST /api/profile/import/text", memoryHandlers.HandleProfileImport)

	mux.HandleFunc("GET /api/children", memoryHandlers.HandleListChildren)
	mux.HandleFunc("GET /api/children/{id}", memoryHandlers.HandleGetChild)
	mux.HandleFunc("GET /api/children/{id}/behaviors", memoryHandlers.HandleBehaviors)
	mux.HandleFunc("GET /api/children/{id}/assessments", memoryHandlers.HandleAssessmentHistory)
	mux.HandleFunc("GET /api/children/{id}/assessments/latest", memoryHandlers.HandleLatestAssessment)
	mux.HandleFunc("GET /api/children/{id}/games", memoryHandlers.HandleGames)
	mux.HandleFunc("GET /api/children/{id}/objects", memoryHandlers.HandleObjects)
	mux.HandleFunc("GET /api/children/{id}/search", memoryHandlers.HandleSearch)
	mux.HandleFunc("GET /api/children/{id}/analytics/exploration", memoryHandlers.HandleExploration)
	mux.HandleFunc("GET /api/children/{id}/analytics/associations", memoryHandlers.HandleAssociations)
	mux.HandleFunc("GET /api/children/{id}/analytics/multi-interest", memoryHandlers.HandleMultiInterest)
	mux.HandleFunc("GET /api/children/{id}/analytics/trends", memoryHandlers.HandleTrends)
	mux.HandleFunc("DELETE /api/children/{id}/data", memoryHandlers.HandleClearChild)

	if deps.Assistant != nil {
		chatHandlers := handlers.NewChatHandlers(deps.Assistant)
		mux.HandleFunc("POST /api/chat/stream", chatHandlers.HandleChatStream)
		mux.HandleFunc("GET /api/chat/ws", chatHandlers.HandleChatWS)
	}
	if deps.Reports != nil {
		reportHandlers := handlers.NewReportHandlers(deps.Reports)
		mux.HandleFunc("POST /api/report/generate", reportHandlers.HandleGenerateReport)
	}

	mux.HandleFunc("GET /api/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	rateLimiter := handlers.NewRateLimiter(10.0, 20)
	var handler http.Handler = mux
	handler = handlers.RateLimitMiddleware(handler, rateLimiter)
	handler = handlers.RequireAuth(handler, cfg)
	handler = securityHeadersMiddleware(handler)

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return "", nil, fmt.Errorf("server: listen on %s: %w", addr, err)
	}

	srv := &http.Server{
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := srv.Serve(listener); err != nil && err != http.ErrServerClosed {
			log.Printf("server: %v", err)
		}
	}()

	log.Printf("server: listening on %s (security mode: %s)", listener.Addr(), cfg.Security.Mode)
	return listener.Addr().String(), srv.Shutdown, nil
}
