// Package memory is the public write/read surface of the memory core. Writes
// funnel text through the extraction pipeline under the right recipe and
// post-process the result; reads run typed aggregation queries against the
// graph. The relational profile store is a cache on the side, never consulted
// as a source of truth.
package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumikid/lumikid/internal/extraction"
	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/profilestore"
	"github.com/lumikid/lumikid/internal/schema"
	"github.com/lumikid/lumikid/pkg/types"
)

// Service composes the graph store, the LLM gateway, and the extraction
// pipeline into the operations the API layer exposes.
type Service struct {
	store    graph.Store
	gateway  llm.Gateway
	registry *schema.Registry
	pipeline *extraction.Pipeline
	profiles profilestore.Store // optional; nil disables caching and search
}

// NewService wires a memory service. profiles may be nil.
func NewService(store graph.Store, gateway llm.Gateway, profiles profilestore.Store) *Service {
	registry := schema.NewRegistry()
	return &Service{
		store:    store,
		gateway:  gateway,
		registry: registry,
		pipeline: extraction.NewPipeline(store, gateway, registry),
		profiles: profiles,
	}
}

// Init ensures graph constraints and seeds the fixed dimension nodes. Safe to
// call on every startup.
func (s *Service) Init(ctx context.Context) error {
	if err := s.store.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("memory: ensure schema: %w", err)
	}
	if err := schema.SeedFixedDimensions(ctx, s.store); err != nil {
		return fmt.Errorf("memory: seed dimensions: %w", err)
	}
	return nil
}

// BehaviorInput is one caregiver observation to record.
type BehaviorInput struct {
	ChildID    string    `json:"child_id"`
	Text       string    `json:"text"`
	InputType  string    `json:"input_type,omitempty"` // "text" (default) or "voice"
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// BehaviorRecord is the structured confirmation returned after recording an
// observation.
type BehaviorRecord struct {
	BehaviorID       string         `json:"behavior_id"`
	EpisodeID        string         `json:"episode_id"`
	Description      string         `json:"description"`
	EventType        string         `json:"event_type"`
	Significance     string         `json:"significance"`
	ObjectsInvolved  []string       `json:"objects_involved"`
	RelatedInterests []string       `json:"related_interests"`
	RelatedFunctions []string       `json:"related_functions"`
	AIAnalysis       map[string]any `json:"ai_analysis"`
	Timestamp        time.Time      `json:"timestamp"`
}

// RecordBehavior runs behavior extraction over one observation and reports
// what was stored.
func (s *Service) RecordBehavior(ctx context.Context, in BehaviorInput) (*BehaviorRecord, error) {
	if in.ChildID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	source := "observation"
	if in.InputType == "voice" {
		source = "voice_observation"
	}

	sum, err := s.pipeline.Extract(ctx, schema.BehaviorRecipe(), extraction.EpisodeInput{
		ChildID:    in.ChildID,
		Text:       in.Text,
		Source:     source,
		OccurredAt: in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	s.indexEpisode(ctx, in.ChildID, sum.EpisodeID, in.Text, source, in.OccurredAt)

	rec := &BehaviorRecord{
		BehaviorID:       sum.PrimaryEntityID,
		EpisodeID:        sum.EpisodeID,
		ObjectsInvolved:  []string{},
		RelatedInterests: []string{},
		RelatedFunctions: []string{},
		AIAnalysis: map[string]any{
			"entities_by_kind": sum.EntitiesByKind,
			"edges_by_kind":    sum.EdgesByKind,
			"tokens_used":      sum.Usage.TotalTokens,
		},
	}

	nodesByID := make(map[string]extraction.ResolvedNode, len(sum.Nodes))
	for _, n := range sum.Nodes {
		nodesByID[n.ID] = n
	}
	if primary, ok := nodesByID[sum.PrimaryEntityID]; ok {
		rec.Description, _ = primary.Attrs["description"].(string)
		rec.EventType, _ = primary.Attrs["event_type"].(string)
		rec.Significance, _ = primary.Attrs["significance"].(string)
		if ts, _ := primary.Attrs["timestamp"].(string); ts != "" {
			rec.Timestamp, _ = time.Parse(time.RFC3339, ts)
		}
	}
	for _, e := range sum.Edges {
		if e.FromID != sum.PrimaryEntityID {
			continue
		}
		switch e.Label {
		case types.EdgeInvolvesObject:
			if obj, ok := nodesByID[e.ToID]; ok {
				if name, _ := obj.Attrs["name"].(string); name != "" {
					rec.ObjectsInvolved = append(rec.ObjectsInvolved, name)
				}
			}
		case types.EdgeShowsInterest:
			rec.RelatedInterests = append(rec.RelatedInterests, dimensionName(e.ToID))
		case types.EdgeShowsFunction:
			rec.RelatedFunctions = append(rec.RelatedFunctions, dimensionName(e.ToID))
		}
	}
	return rec, nil
}

// GameSummaryInput is one post-game report to store.
type GameSummaryInput struct {
	ChildID    string    `json:"child_id"`
	GameID     string    `json:"game_id,omitempty"` // optional reference to a recommended game
	Text       string    `json:"text"`
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// GameSummaryRecord reports what a game-summary extraction stored.
type GameSummaryRecord struct {
	EpisodeID      string         `json:"episode_id"`
	SummaryID      string         `json:"summary_id"`
	GameID         string         `json:"game_id,omitempty"`
	GameUpdated    bool           `json:"game_updated"`
	Scores         map[string]any `json:"scores,omitempty"`
	EntitiesByKind map[string]int `json:"entities_by_kind"`
	EdgesByKind    map[string]int `json:"edges_by_kind"`
}

// StoreGameSummary extracts a game summary and, when the summary references a
// known recommended game, advances that game to completed and merges the
// observed scores into its implementation record.
func (s *Service) StoreGameSummary(ctx context.Context, in GameSummaryInput) (*GameSummaryRecord, error) {
	if in.ChildID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}

	sum, err := s.pipeline.Extract(ctx, schema.GameSummaryRecipe(), extraction.EpisodeInput{
		ChildID:    in.ChildID,
		Text:       in.Text,
		OccurredAt: in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	s.indexEpisode(ctx, in.ChildID, sum.EpisodeID, in.Text, "game_summary", in.OccurredAt)

	rec := &GameSummaryRecord{
		EpisodeID:      sum.EpisodeID,
		SummaryID:      sum.PrimaryEntityID,
		GameID:         in.GameID,
		EntitiesByKind: sum.EntitiesByKind,
		EdgesByKind:    sum.EdgesByKind,
	}
	scores := summaryScores(sum)
	rec.Scores = scores

	if in.GameID != "" {
		updated, err := s.completeGame(ctx, in.ChildID, in.GameID, sum.EpisodeID, scores)
		if err != nil {
			return nil, err
		}
		rec.GameUpdated = updated
	}
	return rec, nil
}

// completeGame advances a recommended game to completed and merges the
// summary scores into its implementation map. A missing game is not an
// error: summaries may reference games recorded outside the system.
func (s *Service) completeGame(ctx context.Context, childID, gameID, episodeID string, scores map[string]any) (bool, error) {
	rows, err := s.store.Query(ctx,
		"MATCH (g:FloorTimeGame {id: $id, child_id: $child}) RETURN g.implementation AS implementation",
		map[string]any{"id": gameID, "child": childID})
	if err != nil {
		return false, fmt.Errorf("memory: look up game: %w", err)
	}
	if len(rows) == 0 {
		log.Printf("memory: game summary references unknown game %s, skipping status update", gameID)
		return false, nil
	}

	impl := map[string]any{}
	if raw, _ := rows[0]["implementation"].(string); raw != "" {
		if decoded := graph.DecodeJSONMap(raw); decoded != nil {
			impl = decoded
		}
	}
	for k, v := range scores {
		impl[k] = v
	}
	impl["summary_episode_id"] = episodeID

	attrs := map[string]any{
		"status":         types.GameCompleted,
		"implementation": impl,
		"updated_at":     time.Now().UTC().Format(time.RFC3339),
	}
	if err := s.store.CreateEntity(ctx, types.KindFloorTimeGame, gameID, childID, attrs); err != nil {
		return false, fmt.Errorf("memory: update game: %w", err)
	}
	return true, nil
}

// summaryScores pulls the score attributes off the primary summary node.
func summaryScores(sum *extraction.Summary) map[string]any {
	scores := map[string]any{}
	for _, n := range sum.Nodes {
		if n.ID != sum.PrimaryEntityID {
			continue
		}
		for _, key := range []string{"engagement_score", "goal_achievement_score",
			"highlights", "concerns", "improvement_suggestions"} {
			if v, ok := n.Attrs[key]; ok {
				scores[key] = v
			}
		}
	}
	return scores
}

// AssessmentInput is one assessment narrative to store.
type AssessmentInput struct {
	ChildID    string    `json:"child_id"`
	Text       string    `json:"text"`
	Type       string    `json:"type,omitempty"` // see types.AssessmentXxx; default comprehensive
	OccurredAt time.Time `json:"occurred_at,omitempty"`
}

// AssessmentRecord reports a stored assessment.
type AssessmentRecord struct {
	EpisodeID    string `json:"episode_id"`
	AssessmentID string `json:"assessment_id"`
	Type         string `json:"type"`
}

// StoreAssessment extracts an assessment narrative. The episode id doubles
// as the assessment id.
func (s *Service) StoreAssessment(ctx context.Context, in AssessmentInput) (*AssessmentRecord, error) {
	if in.ChildID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("%w: text is required", ErrValidation)
	}
	if in.Type == "" {
		in.Type = types.AssessmentComprehensive
	}
	if !types.IsValidAssessmentType(in.Type) {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrValidation, in.Type)
	}

	sum, err := s.pipeline.Extract(ctx, schema.AssessmentRecipe(), extraction.EpisodeInput{
		ChildID:    in.ChildID,
		Text:       in.Text,
		OccurredAt: in.OccurredAt,
	})
	if err != nil {
		return nil, err
	}
	s.indexEpisode(ctx, in.ChildID, sum.EpisodeID, in.Text, "assessment", in.OccurredAt)

	// The recipe does not know the assessment type; stamp it after the fact.
	err = s.store.CreateEntity(ctx, types.KindChildAssessment, sum.PrimaryEntityID, in.ChildID,
		map[string]any{"type": in.Type})
	if err != nil {
		return nil, fmt.Errorf("memory: stamp assessment type: %w", err)
	}

	return &AssessmentRecord{
		EpisodeID:    sum.EpisodeID,
		AssessmentID: sum.PrimaryEntityID,
		Type:         in.Type,
	}, nil
}

// SaveGame upserts a floor-time game plan. Used by the recommendation flow;
// no LLM involved.
func (s *Service) SaveGame(ctx context.Context, game types.FloorTimeGame) (string, error) {
	if game.ChildID == "" {
		return "", fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if strings.TrimSpace(game.Name) == "" {
		return "", fmt.Errorf("%w: game name is required", ErrValidation)
	}
	if game.ID == "" {
		game.ID = uuid.NewString()
	}
	if game.Status == "" {
		game.Status = types.GameRecommended
	}
	if !types.IsValidGameStatus(game.Status) {
		return "", fmt.Errorf("%w: unknown game status %q", ErrValidation, game.Status)
	}
	now := time.Now().UTC()
	attrs := map[string]any{
		"name":       game.Name,
		"status":     game.Status,
		"updated_at": now.Format(time.RFC3339),
	}
	if game.Description != "" {
		attrs["description"] = game.Description
	}
	if game.Design != nil {
		attrs["design"] = game.Design
	}
	if game.Implementation != nil {
		attrs["implementation"] = game.Implementation
	}
	if game.CreatedAt.IsZero() {
		attrs["created_at"] = now.Format(time.RFC3339)
	} else {
		attrs["created_at"] = game.CreatedAt.UTC().Format(time.RFC3339)
	}
	if err := s.store.CreateEntity(ctx, types.KindFloorTimeGame, game.ID, game.ChildID, attrs); err != nil {
		return "", fmt.Errorf("memory: save game: %w", err)
	}
	return game.ID, nil
}

// ClearChildData wipes the child's entire subgraph and cache rows. Fixed
// dimension nodes survive.
func (s *Service) ClearChildData(ctx context.Context, childID string) error {
	if childID == "" {
		return fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if err := s.store.ClearGroup(ctx, childID); err != nil {
		return fmt.Errorf("memory: clear graph data: %w", err)
	}
	if s.profiles != nil {
		if err := s.profiles.DeleteChild(ctx, childID); err != nil {
			return fmt.Errorf("memory: clear profile cache: %w", err)
		}
	}
	return nil
}

// indexEpisode embeds the episode text and upserts it into the search index.
// Best effort: indexing failures are logged, never surfaced.
func (s *Service) indexEpisode(ctx context.Context, childID, episodeID, text, source string, occurredAt time.Time) {
	if s.profiles == nil {
		return
	}
	vec, err := s.gateway.Embed(ctx, text)
	if err != nil {
		log.Printf("memory: embed episode %s: %v", episodeID, err)
		return
	}
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	row := profilestore.EpisodeRow{
		EpisodeID:  episodeID,
		ChildID:    childID,
		Content:    text,
		Source:     source,
		OccurredAt: occurredAt,
	}
	if err := s.profiles.IndexEpisode(ctx, row, vec); err != nil {
		log.Printf("memory: index episode %s: %v", episodeID, err)
	}
}

// dimensionName strips the kind prefix from a fixed dimension id.
func dimensionName(id string) string {
	if i := strings.IndexByte(id, ':'); i >= 0 {
		return id[i+1:]
	}
	return id
}
