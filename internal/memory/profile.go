package memory

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/profilestore"
	"github.com/lumikid/lumikid/internal/schema"
	"github.com/lumikid/lumikid/pkg/types"
)

// ProfileImport is the input of a profile import: structured basics plus an
// optional free-text background (intake notes, medical reports).
type ProfileImport struct {
	ChildID    string         `json:"child_id,omitempty"` // empty generates one
	Name       string         `json:"name"`
	Age        int            `json:"age,omitempty"`
	Diagnosis  string         `json:"diagnosis,omitempty"`
	BasicInfo  map[string]any `json:"basic_info,omitempty"`
	Background string         `json:"background,omitempty"`
}

// ImportResult reports a finished profile import. Warning is set when the
// child node was created but the background analysis could not run.
type ImportResult struct {
	ChildID      string `json:"child_id"`
	AssessmentID string `json:"assessment_id,omitempty"`
	EpisodeID    string `json:"episode_id,omitempty"`
	Warning      string `json:"warning,omitempty"`
}

// initialAssessment is the structured shape the LLM fills in from the
// background text during import.
type initialAssessment struct {
	Name            string   `json:"name"`
	Age             int      `json:"age"`
	Summary         string   `json:"summary"`
	Strengths       []string `json:"strengths"`
	Challenges      []string `json:"challenges"`
	FEDCLevel       int      `json:"fedc_level"`
	DimensionScores []struct {
		Function string  `json:"function"`
		Score    float64 `json:"score"`
	} `json:"dimension_scores"`
	Interests []struct {
		Interest string  `json:"interest"`
		Weight   float64 `json:"weight"`
	} `json:"interests"`
	Recommendations []string `json:"recommendations"`
}

// ImportProfile creates (or refreshes) the child node, then runs the initial
// assessment over the background text. Phase two failures degrade to a
// warning: the child exists either way. Re-importing with the same child_id
// is idempotent because the derived ids are deterministic.
func (s *Service) ImportProfile(ctx context.Context, in ProfileImport) (*ImportResult, error) {
	if strings.TrimSpace(in.Name) == "" {
		return nil, fmt.Errorf("%w: name is required", ErrValidation)
	}
	childID := in.ChildID
	if childID == "" {
		childID = uuid.NewString()
	}

	now := time.Now().UTC()
	attrs := map[string]any{
		"name":       in.Name,
		"age":        in.Age,
		"updated_at": now.Format(time.RFC3339),
	}
	if in.Diagnosis != "" {
		attrs["diagnosis"] = in.Diagnosis
	}
	if in.BasicInfo != nil {
		attrs["basic_info"] = in.BasicInfo
	}
	if err := s.store.CreateEntity(ctx, types.KindChild, childID, childID, attrs); err != nil {
		return nil, fmt.Errorf("memory: create child: %w", err)
	}
	s.cacheChild(ctx, profilestore.ChildRow{
		ID: childID, Name: in.Name, Age: in.Age, Diagnosis: in.Diagnosis, UpdatedAt: now,
	})

	result := &ImportResult{ChildID: childID}
	if strings.TrimSpace(in.Background) == "" {
		return result, nil
	}

	// The raw background is retained as an episode before any analysis runs;
	// only the structured extraction below may degrade. Deterministic ids
	// keep re-imports from piling up episodes and assessments.
	episodeID := "profile:" + childID
	if err := s.persistBackgroundEpisode(ctx, childID, episodeID, in.Background, now); err != nil {
		return nil, err
	}
	s.indexEpisode(ctx, childID, episodeID, in.Background, "profile_import", now)
	result.EpisodeID = episodeID

	assessment, err := s.analyzeBackground(ctx, in)
	if err != nil {
		log.Printf("memory: profile import analysis for %s: %v", childID, err)
		result.Warning = "profile stored; background analysis unavailable"
		return result, nil
	}

	assessmentID := "initial:" + childID
	if err := s.persistInitialAssessment(ctx, childID, episodeID, assessmentID, assessment, now); err != nil {
		return nil, err
	}

	result.AssessmentID = assessmentID
	return result, nil
}

// persistBackgroundEpisode writes the imported background text as an episode
// anchored to the child.
func (s *Service) persistBackgroundEpisode(ctx context.Context, childID, episodeID, background string, now time.Time) error {
	attrs := map[string]any{
		"content":  background,
		"valid_at": now.Format(time.RFC3339),
		"source":   "profile_import",
	}
	if err := s.store.CreateEntity(ctx, types.KindEpisode, episodeID, childID, attrs); err != nil {
		return fmt.Errorf("memory: create import episode: %w", err)
	}
	err := s.store.CreateEdge(ctx, graph.Edge{
		FromKind: types.KindEpisode, FromID: episodeID,
		ToKind: types.KindChild, ToID: childID,
		Label: types.EdgeMentions,
	})
	if err != nil {
		return fmt.Errorf("memory: link import episode: %w", err)
	}
	return nil
}

func (s *Service) analyzeBackground(ctx context.Context, in ProfileImport) (*initialAssessment, error) {
	system := `You are a developmental specialist producing an initial assessment of a child on the autism spectrum from intake notes and medical reports.
Summarize the child's current presentation, list concrete strengths and challenges, estimate the FEDC functional-emotional level (1-6), score the developmental functions you have evidence for (0-10), weight the interest dimensions you have evidence for (0-1), and give actionable recommendations.
Function and interest names MUST be chosen from the fixed lists below; skip dimensions without evidence.

FIXED INTEREST DIMENSIONS:
` + dimensionCatalog(types.InterestDimensions) + `
FIXED FUNCTION DIMENSIONS:
` + dimensionCatalog(types.FunctionDimensions)

	// Background analysis is a summarization pass; the cheap model is enough.
	opts := llm.ExtractionOptions()
	opts.UseSmallModel = true

	var out initialAssessment
	_, err := s.gateway.Structured(ctx, system, "CHILD PROFILE:\n"+in.Background,
		initialAssessmentSchema(), &out, opts)
	if err != nil {
		return nil, err
	}
	return &out, nil
}

func (s *Service) persistInitialAssessment(ctx context.Context, childID, episodeID, assessmentID string, a *initialAssessment, now time.Time) error {
	summary := a.Summary
	if strings.TrimSpace(summary) == "" {
		summary = "Initial assessment from imported profile."
	}
	payload := map[string]any{
		"strengths":       a.Strengths,
		"challenges":      a.Challenges,
		"fedc_level":      a.FEDCLevel,
		"recommendations": a.Recommendations,
	}
	attrs := map[string]any{
		"type":      types.AssessmentInitial,
		"summary":   summary,
		"payload":   payload,
		"timestamp": now.Format(time.RFC3339),
	}
	if err := s.store.CreateEntity(ctx, types.KindChildAssessment, assessmentID, childID, attrs); err != nil {
		return fmt.Errorf("memory: create initial assessment: %w", err)
	}
	err := s.store.CreateEdge(ctx, graph.Edge{
		FromKind: types.KindChild, FromID: childID,
		ToKind: types.KindChildAssessment, ToID: assessmentID,
		Label: types.EdgeReceivesAssessment,
	})
	if err != nil {
		return fmt.Errorf("memory: link initial assessment: %w", err)
	}

	for _, link := range a.Interests {
		if !types.IsValidInterestName(link.Interest) {
			log.Printf("memory: profile import: unknown interest %q skipped", link.Interest)
			continue
		}
		err := s.store.CreateEdge(ctx, graph.Edge{
			FromKind: types.KindChildAssessment, FromID: assessmentID,
			ToKind: types.KindInterestDimension,
			ToID:   schema.DimensionID(types.KindInterestDimension, link.Interest),
			Label:  types.EdgeShowsInterest,
			Props:  map[string]any{"weight": types.Clamp01(link.Weight)},
		})
		if err != nil {
			return fmt.Errorf("memory: link interest %s: %w", link.Interest, err)
		}
	}
	for _, link := range a.DimensionScores {
		if !types.IsValidFunctionName(link.Function) {
			log.Printf("memory: profile import: unknown function %q skipped", link.Function)
			continue
		}
		err := s.store.CreateEdge(ctx, graph.Edge{
			FromKind: types.KindChildAssessment, FromID: assessmentID,
			ToKind: types.KindFunctionDimension,
			ToID:   schema.DimensionID(types.KindFunctionDimension, link.Function),
			Label:  types.EdgeShowsFunction,
			Props:  map[string]any{"score": types.Clamp010(link.Score)},
		})
		if err != nil {
			return fmt.Errorf("memory: link function %s: %w", link.Function, err)
		}
	}

	err = s.store.CreateEdge(ctx, graph.Edge{
		FromKind: types.KindEpisode, FromID: episodeID,
		ToKind: types.KindChildAssessment, ToID: assessmentID,
		Label: types.EdgeMentions,
	})
	if err != nil {
		return fmt.Errorf("memory: link import episode: %w", err)
	}
	return nil
}

// cacheChild upserts the child into the profile cache, best effort.
func (s *Service) cacheChild(ctx context.Context, row profilestore.ChildRow) {
	if s.profiles == nil {
		return
	}
	if err := s.profiles.SaveChild(ctx, row); err != nil {
		log.Printf("memory: cache child %s: %v", row.ID, err)
	}
}

func dimensionCatalog(dims []types.FixedDimension) string {
	var b strings.Builder
	for _, d := range dims {
		fmt.Fprintf(&b, "- %s (%s): %s\n", d.Name, d.DisplayName, d.Description)
	}
	return b.String()
}

func initialAssessmentSchema() map[string]any {
	scoreItem := func(key, valueKey string, max float64) map[string]any {
		return map[string]any{
			"type": "object",
			"properties": map[string]any{
				key:      map[string]any{"type": "string"},
				valueKey: map[string]any{"type": "number", "minimum": 0, "maximum": max},
			},
			"required":             []string{key, valueKey},
			"additionalProperties": false,
		}
	}
	stringList := map[string]any{"type": "array", "items": map[string]any{"type": "string"}}
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"name":             map[string]any{"type": "string"},
			"age":              map[string]any{"type": "integer"},
			"summary":          map[string]any{"type": "string"},
			"strengths":        stringList,
			"challenges":       stringList,
			"fedc_level":       map[string]any{"type": "integer", "minimum": 1, "maximum": 6},
			"dimension_scores": map[string]any{"type": "array", "items": scoreItem("function", "score", 10)},
			"interests":        map[string]any{"type": "array", "items": scoreItem("interest", "weight", 1)},
			"recommendations":  stringList,
		},
		"required": []string{"summary", "strengths", "challenges", "fedc_level",
			"dimension_scores", "interests", "recommendations"},
		"additionalProperties": false,
	}
}
