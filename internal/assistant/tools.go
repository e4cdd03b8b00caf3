package assistant

import (
	"context"
	"fmt"
	"sort"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/memory"
)

// GameRecommender is the externally-injected game recommendation service.
type GameRecommender interface {
	RecommendGame(ctx context.Context, childID string, preferences map[string]any) (map[string]any, error)
}

// AssessmentGenerator is the externally-injected assessment service.
type AssessmentGenerator interface {
	GenerateAssessment(ctx context.Context, childID, assessmentType string) (map[string]any, error)
}

// RegisterDefaultTools wires the standard tool set. recommender and generator
// may be nil; their tools then report themselves unavailable.
func RegisterDefaultTools(reg *Registry, svc *memory.Service, analyzer *analytics.Analyzer, recommender GameRecommender, generator AssessmentGenerator) {
	reg.Register(&recordBehaviorTool{svc: svc})
	reg.Register(&recommendGameTool{recommender: recommender})
	reg.Register(&childProfileTool{svc: svc})
	reg.Register(&queryBehaviorsTool{svc: svc})
	reg.Register(&queryInterestsTool{svc: svc, analyzer: analyzer})
	reg.Register(&dimensionProgressTool{svc: svc})
	reg.Register(&recentGamesTool{svc: svc})
	reg.Register(&latestAssessmentTool{svc: svc})
	reg.Register(&generateAssessmentTool{generator: generator})
}

func childIDProp() map[string]any {
	return map[string]any{"type": "string", "description": "The child's id"}
}

func objectSchema(props map[string]any, required ...string) map[string]any {
	if required == nil {
		required = []string{}
	}
	return map[string]any{
		"type":                 "object",
		"properties":           props,
		"required":             required,
		"additionalProperties": false,
	}
}

type recordBehaviorTool struct {
	svc *memory.Service
}

func (t *recordBehaviorTool) Name() string { return "record_behavior" }
func (t *recordBehaviorTool) Description() string {
	return "Record one observed behavior of the child from a natural-language description. Use whenever the caregiver describes something the child did."
}
func (t *recordBehaviorTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"text":     map[string]any{"type": "string", "description": "The observation, verbatim"},
	}, "child_id", "text")
}
func (t *recordBehaviorTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.svc.RecordBehavior(ctx, memory.BehaviorInput{
		ChildID: argString(args, "child_id"),
		Text:    argString(args, "text"),
	})
}

type recommendGameTool struct {
	recommender GameRecommender
}

func (t *recommendGameTool) Name() string { return "recommend_game" }
func (t *recommendGameTool) Description() string {
	return "Recommend a floor-time game tailored to the child's current interests and developmental goals."
}
func (t *recommendGameTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"preferences": map[string]any{"type": "object",
			"description": "Optional constraints such as duration or setting"},
	}, "child_id")
}
func (t *recommendGameTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if t.recommender == nil {
		return nil, fmt.Errorf("game recommendation service is not configured")
	}
	return t.recommender.RecommendGame(ctx, argString(args, "child_id"), argMap(args, "preferences"))
}

type childProfileTool struct {
	svc *memory.Service
}

func (t *childProfileTool) Name() string { return "get_child_profile" }
func (t *childProfileTool) Description() string {
	return "Fetch the child's profile: name, age, diagnosis, basic info."
}
func (t *childProfileTool) Parameters() map[string]any {
	return objectSchema(map[string]any{"child_id": childIDProp()}, "child_id")
}
func (t *childProfileTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.svc.GetChild(ctx, argString(args, "child_id"))
}

type queryBehaviorsTool struct {
	svc *memory.Service
}

func (t *queryBehaviorsTool) Name() string { return "query_behaviors" }
func (t *queryBehaviorsTool) Description() string {
	return "List the child's recorded behaviors, newest first, with their objects and dimensions. Supports keyword and limit."
}
func (t *queryBehaviorsTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"keyword":  map[string]any{"type": "string", "description": "Filter by substring"},
		"limit":    map[string]any{"type": "integer", "description": "Max results, default 20"},
	}, "child_id")
}
func (t *queryBehaviorsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.svc.GetBehaviors(ctx, argString(args, "child_id"), memory.BehaviorQuery{
		Keyword: argString(args, "keyword"),
		Limit:   argInt(args, "limit"),
	})
}

type queryInterestsTool struct {
	svc      *memory.Service
	analyzer *analytics.Analyzer
}

func (t *queryInterestsTool) Name() string { return "query_interests" }
func (t *queryInterestsTool) Description() string {
	return "Summarize the child's interest profile: the latest interest-mining assessment, or live exploration scores when none exists."
}
func (t *queryInterestsTool) Parameters() map[string]any {
	return objectSchema(map[string]any{"child_id": childIDProp()}, "child_id")
}
func (t *queryInterestsTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	childID := argString(args, "child_id")
	assessment, err := t.svc.GetLatestAssessment(ctx, childID, "interest_mining")
	if err == nil {
		return assessment, nil
	}
	scores, err := t.analyzer.ExplorationScores(ctx, childID)
	if err != nil {
		return nil, err
	}
	return map[string]any{"source": "exploration_scores", "scores": scores}, nil
}

type dimensionProgressTool struct {
	svc *memory.Service
}

func (t *dimensionProgressTool) Name() string { return "query_dimension_progress" }
func (t *dimensionProgressTool) Description() string {
	return "Report the child's current level and trend per developmental function dimension, from assessment history."
}
func (t *dimensionProgressTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"function": map[string]any{"type": "string", "description": "Optional fixed function name to narrow to"},
	}, "child_id")
}
func (t *dimensionProgressTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	history, err := t.svc.GetAssessmentHistory(ctx, argString(args, "child_id"), 5)
	if err != nil {
		return nil, err
	}
	wanted := argString(args, "function")

	// History is newest first; walk backwards so series run oldest to newest.
	type series struct {
		Current float64   `json:"current"`
		Trend   string    `json:"trend"`
		Scores  []float64 `json:"scores"`
	}
	progress := map[string]*series{}
	for i := len(history) - 1; i >= 0; i-- {
		for _, link := range history[i].Functions {
			if wanted != "" && link.Function != wanted {
				continue
			}
			s := progress[link.Function]
			if s == nil {
				s = &series{}
				progress[link.Function] = s
			}
			s.Scores = append(s.Scores, link.Score)
		}
	}
	for _, s := range progress {
		s.Current = s.Scores[len(s.Scores)-1]
		s.Trend = trendLabel(s.Scores[0], s.Current)
	}
	if len(progress) == 0 {
		return map[string]any{"message": "no assessed function dimensions yet"}, nil
	}
	return progress, nil
}

// trendLabel compares first and last scores with a 20% threshold.
func trendLabel(first, last float64) string {
	if first == 0 {
		if last > 0 {
			return analytics.TrendIncreasing
		}
		return analytics.TrendStable
	}
	change := (last - first) / first
	switch {
	case change > 0.2:
		return analytics.TrendIncreasing
	case change < -0.2:
		return analytics.TrendDecreasing
	}
	return analytics.TrendStable
}

type recentGamesTool struct {
	svc *memory.Service
}

func (t *recentGamesTool) Name() string { return "get_recent_games" }
func (t *recentGamesTool) Description() string {
	return "List the child's floor-time games, most recently updated first."
}
func (t *recentGamesTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"status":   map[string]any{"type": "string", "description": "Optional status filter"},
		"limit":    map[string]any{"type": "integer", "description": "Max results, default 10"},
	}, "child_id")
}
func (t *recentGamesTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.svc.GetRecentGames(ctx, argString(args, "child_id"),
		argString(args, "status"), argInt(args, "limit"))
}

type latestAssessmentTool struct {
	svc *memory.Service
}

func (t *latestAssessmentTool) Name() string { return "get_latest_assessment" }
func (t *latestAssessmentTool) Description() string {
	return "Fetch the child's most recent assessment, optionally filtered by type (initial, comprehensive, interest_mining, trend_analysis)."
}
func (t *latestAssessmentTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"type":     map[string]any{"type": "string", "description": "Optional assessment type"},
	}, "child_id")
}
func (t *latestAssessmentTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	return t.svc.GetLatestAssessment(ctx, argString(args, "child_id"), argString(args, "type"))
}

type generateAssessmentTool struct {
	generator AssessmentGenerator
}

func (t *generateAssessmentTool) Name() string { return "generate_assessment" }
func (t *generateAssessmentTool) Description() string {
	return "Trigger a fresh developmental assessment of the child."
}
func (t *generateAssessmentTool) Parameters() map[string]any {
	return objectSchema(map[string]any{
		"child_id": childIDProp(),
		"type":     map[string]any{"type": "string", "description": "Assessment type, default comprehensive"},
	}, "child_id")
}
func (t *generateAssessmentTool) Execute(ctx context.Context, args map[string]any) (any, error) {
	if t.generator == nil {
		return nil, fmt.Errorf("assessment generation service is not configured")
	}
	return t.generator.GenerateAssessment(ctx, argString(args, "child_id"), argString(args, "type"))
}

// ToolNames returns the registered tool names in sorted order.
func (r *Registry) ToolNames() []string {
	names := make([]string, 0, len(r.tools))
	for name := range r.tools {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
