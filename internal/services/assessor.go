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

// AssessmentService generates fresh assessments by narrating the child's
// recent graph state through the LLM, then feeding the narrative back through
// the assessment extraction path so its dimension links land in the graph.
type AssessmentService struct {
	svc      *memory.Service
	analyzer *analytics.Analyzer
	gateway  llm.Gateway
}

// NewAssessmentService creates an assessment generation service.
func NewAssessmentService(svc *memory.Service, analyzer *analytics.Analyzer, gateway llm.Gateway) *AssessmentService {
	return &AssessmentService{svc: svc, analyzer: analyzer, gateway: gateway}
}

// GenerateAssessment produces and stores one assessment of the given type.
func (s *AssessmentService) GenerateAssessment(ctx context.Context, childID, assessmentType string) (map[string]any, error) {
	if childID == "" {
		return nil, fmt.Errorf("services: child_id is required")
	}
	if assessmentType == "" {
		assessmentType = types.AssessmentComprehensive
	}
	if !types.IsValidAssessmentType(assessmentType) {
		return nil, fmt.Errorf("services: unknown assessment type %q", assessmentType)
	}

	evidence, err := s.collectEvidence(ctx, childID)
	if err != nil {
		return nil, err
	}

	result, err := s.gateway.Chat(ctx, assessmentSystemPrompt(assessmentType), evidence, nil, llm.ExtractionOptions())
	if err != nil {
		return nil, fmt.Errorf("services: generate assessment: %w", err)
	}
	narrative := strings.TrimSpace(result.Content)
	if narrative == "" {
		return nil, fmt.Errorf("services: model returned an empty assessment")
	}

	stored, err := s.svc.StoreAssessment(ctx, memory.AssessmentInput{
		ChildID: childID,
		Text:    narrative,
		Type:    assessmentType,
	})
	if err != nil {
		return nil, err
	}
	return map[string]any{
		"assessment_id": stored.AssessmentID,
		"episode_id":    stored.EpisodeID,
		"type":          stored.Type,
		"narrative":     narrative,
	}, nil
}

// collectEvidence assembles recent behaviors, exploration scores, trends,
// and the previous assessment into one evidence block.
func (s *AssessmentService) collectEvidence(ctx context.Context, childID string) (string, error) {
	profile, err := s.svc.GetChild(ctx, childID)
	if err != nil {
		return "", err
	}
	behaviors, err := s.svc.GetBehaviors(ctx, childID, memory.BehaviorQuery{Limit: 50})
	if err != nil {
		return "", err
	}
	scores, err := s.analyzer.ExplorationScores(ctx, childID)
	if err != nil {
		return "", err
	}
	trends, err := s.analyzer.TemporalTrends(ctx, childID, analytics.TrendOptions{})
	if err != nil {
		return "", err
	}

	var b strings.Builder
	fmt.Fprintf(&b, "CHILD: %s, age %d.\n\n", profile.Name, profile.Age)
	b.WriteString("RECENT BEHAVIORS (newest first):\n")
	if len(behaviors) == 0 {
		b.WriteString("- none recorded\n")
	}
	for _, bh := range behaviors {
		fmt.Fprintf(&b, "- [%s/%s] %s", bh.EventType, bh.Significance, bh.Description)
		if len(bh.Interests) > 0 {
			fmt.Fprintf(&b, " (interests: %s)", strings.Join(bh.Interests, ","))
		}
		if len(bh.Functions) > 0 {
			fmt.Fprintf(&b, " (functions: %s)", strings.Join(bh.Functions, ","))
		}
		b.WriteString("\n")
	}
	if len(scores) > 0 {
		b.WriteString("\nINTEREST EXPLORATION SCORES:\n")
		for _, sc := range scores {
			fmt.Fprintf(&b, "- %s: %.2f (%d behaviors, span %.1f days)\n",
				sc.Interest, sc.Score, sc.BehaviorCount, sc.TimeSpanDays)
		}
	}
	fmt.Fprintf(&b, "\nACTIVITY TREND (30 days): %s, %d behaviors total\n", trends.Trend, trends.TotalBehaviors)
	if prev, err := s.svc.GetLatestAssessment(ctx, childID, ""); err == nil {
		fmt.Fprintf(&b, "\nPREVIOUS ASSESSMENT (%s, %s): %s\n",
			prev.Type, prev.Timestamp.Format("2006-01-02"), prev.Summary)
	}
	return b.String(), nil
}

func assessmentSystemPrompt(assessmentType string) string {
	focus := map[string]string{
		types.AssessmentInitial:        "Establish a baseline across all developmental functions.",
		types.AssessmentComprehensive:  "Cover interests, developmental functions, social engagement, and concrete next steps.",
		types.AssessmentInterestMining: "Focus on which interest dimensions the child explores, how deeply, and which objects anchor them.",
		types.AssessmentTrendAnalysis:  "Focus on what changed since the previous assessment and in which direction.",
	}[assessmentType]

	return fmt.Sprintf(`You write developmental assessment reports for children on the autism spectrum, based strictly on recorded evidence.
%s
Structure the report as flowing prose: current presentation, interests with supporting observations, developmental functions with approximate levels (0-10) where evidence allows, and recommendations. Name interest and function dimensions explicitly when the evidence supports them. Do not invent observations.`, focus)
}
