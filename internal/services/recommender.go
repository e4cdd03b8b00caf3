// Package services holds the LLM-backed collaborators that sit on top of the
// memory core: game recommendation, assessment generation, and report
// building. The assistant and HTTP layers consume them through small
// interfaces so deployments can swap in external implementations.
package services

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/memory"
	"github.com/lumikid/lumikid/pkg/types"
)

// GameService recommends floor-time games from the child's interest profile
// and persists them as recommended FloorTimeGame nodes.
type GameService struct {
	svc      *memory.Service
	analyzer *analytics.Analyzer
	gateway  llm.Gateway
}

// NewGameService creates a game recommendation service.
func NewGameService(svc *memory.Service, analyzer *analytics.Analyzer, gateway llm.Gateway) *GameService {
	return &GameService{svc: svc, analyzer: analyzer, gateway: gateway}
}

// gameDesign is the structured shape the LLM fills in.
type gameDesign struct {
	Name            string   `json:"name"`
	Description     string   `json:"description"`
	TargetInterests []string `json:"target_interests"`
	TargetFunctions []string `json:"target_functions"`
	Materials       []string `json:"materials"`
	Steps           []string `json:"steps"`
	DurationMinutes int      `json:"duration_minutes"`
	Rationale       string   `json:"rationale"`
}

// RecommendGame designs one game for the child and stores it with status
// recommended. The returned map is the tool/HTTP payload.
func (s *GameService) RecommendGame(ctx context.Context, childID string, preferences map[string]any) (map[string]any, error) {
	if childID == "" {
		return nil, fmt.Errorf("services: child_id is required")
	}
	profile, err := s.svc.GetChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	scores, err := s.analyzer.ExplorationScores(ctx, childID)
	if err != nil {
		return nil, err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CHILD: %s, age %d.\n", profile.Name, profile.Age)
	if len(scores) > 0 {
		b.WriteString("CURRENT INTEREST PROFILE (strongest first):\n")
		for _, sc := range scores {
			fmt.Fprintf(&b, "- %s: score %.2f over %d behaviors, event types %s\n",
				sc.Interest, sc.Score, sc.BehaviorCount, strings.Join(sc.EventTypes, ","))
		}
	} else {
		b.WriteString("No recorded interest data yet; design a gentle discovery game.\n")
	}
	if assessment, err := s.svc.GetLatestAssessment(ctx, childID, ""); err == nil {
		fmt.Fprintf(&b, "LATEST ASSESSMENT (%s): %s\n", assessment.Type, assessment.Summary)
	}
	if len(preferences) > 0 {
		fmt.Fprintf(&b, "CAREGIVER PREFERENCES: %v\n", preferences)
	}

	var design gameDesign
	_, err = s.gateway.Structured(ctx, gameSystemPrompt(), b.String(), gameDesignSchema(), &design, llm.ChatOptions())
	if err != nil {
		return nil, fmt.Errorf("services: design game: %w", err)
	}
	if strings.TrimSpace(design.Name) == "" {
		return nil, fmt.Errorf("services: model returned an unnamed game")
	}

	gameID, err := s.svc.SaveGame(ctx, types.FloorTimeGame{
		ChildID:     childID,
		Name:        design.Name,
		Description: design.Description,
		Status:      types.GameRecommended,
		Design: map[string]any{
			"target_interests": design.TargetInterests,
			"target_functions": design.TargetFunctions,
			"materials":        design.Materials,
			"steps":            design.Steps,
			"duration_minutes": design.DurationMinutes,
			"rationale":        design.Rationale,
		},
	})
	if err != nil {
		return nil, err
	}

	return map[string]any{
		"game_id":          gameID,
		"name":             design.Name,
		"description":      design.Description,
		"target_interests": design.TargetInterests,
		"target_functions": design.TargetFunctions,
		"materials":        design.Materials,
		"steps":            design.Steps,
		"duration_minutes": design.DurationMinutes,
		"rationale":        design.Rationale,
	}, nil
}

func gameSystemPrompt() string {
	var b strings.Builder
	b.WriteString(`You design DIR/Floortime play activities for children on the autism spectrum.
Design EXACTLY ONE game grounded in the child's strongest current interests, stretching one or two developmental functions slightly beyond their current level. Keep materials ordinary and steps short enough for a tired caregiver to follow.
Interest and function names MUST come from the fixed lists below.

FIXED INTEREST DIMENSIONS:
`)
	for _, d := range types.InterestDimensions {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.DisplayName)
	}
	b.WriteString("\nFIXED FUNCTION DIMENSIONS:\n")
	for _, d := range types.FunctionDimensions {
		fmt.Fprintf(&b, "- %s (%s)\n", d.Name, d.DisplayName)
	}
	return b.String()
}

func gameDesignSchema() map[string]any {
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":             map[string]any{"type": "string"},
			"description":      map[string]any{"type": "string"},
			"target_interests": stringList,
			"target_functions": stringList,
			"materials":        stringList,
			"steps":            stringList,
			"duration_minutes": map[string]any{"type": "integer", "minimum": 5, "maximum": 60},
			"rationale":        map[string]any{"type": "string"},
		},
		"required": []string{"name", "description", "target_interests", "target_functions",
			"materials", "steps", "duration_minutes", "rationale"},
		"additionalProperties": false,
	}
}
