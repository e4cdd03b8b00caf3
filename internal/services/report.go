package services

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/memory"
)

// ReportBuilder assembles caregiver-facing progress reports from the read
// API and the aggregation layer. No LLM involvement. Generating a report
// also refreshes the child's derived object-interest edges.
type ReportBuilder struct {
	svc      *memory.Service
	analyzer *analytics.Analyzer
}

// NewReportBuilder creates a report builder.
func NewReportBuilder(svc *memory.Service, analyzer *analytics.Analyzer) *ReportBuilder {
	return &ReportBuilder{svc: svc, analyzer: analyzer}
}

// Report is one generated progress report.
type Report struct {
	ChildID      string                        `json:"child_id"`
	ChildName    string                        `json:"child_name"`
	GeneratedAt  time.Time                     `json:"generated_at"`
	PeriodDays   int                           `json:"period_days"`
	Behaviors    []memory.BehaviorView         `json:"behaviors"`
	Scores       []analytics.ExplorationScore  `json:"exploration_scores"`
	Trend        *analytics.TrendReport        `json:"trend"`
	Associations []analytics.ObjectAssociation `json:"object_associations"`
	Assessment   *memory.AssessmentView        `json:"latest_assessment,omitempty"`
}

// Build gathers a report over the last periodDays days (default 30).
func (r *ReportBuilder) Build(ctx context.Context, childID string, periodDays int) (*Report, error) {
	if periodDays <= 0 {
		periodDays = 30
	}
	profile, err := r.svc.GetChild(ctx, childID)
	if err != nil {
		return nil, err
	}
	since := time.Now().UTC().AddDate(0, 0, -periodDays)
	behaviors, err := r.svc.GetBehaviors(ctx, childID, memory.BehaviorQuery{Limit: 100, Since: since})
	if err != nil {
		return nil, err
	}
	scores, err := r.analyzer.ExplorationScores(ctx, childID)
	if err != nil {
		return nil, err
	}
	trend, err := r.analyzer.TemporalTrends(ctx, childID, analytics.TrendOptions{Days: periodDays})
	if err != nil {
		return nil, err
	}
	associations, err := r.analyzer.ObjectInterestAssociations(ctx, childID,
		analytics.AssociationOptions{Since: since})
	if err != nil {
		return nil, err
	}
	// Edge write-back is best effort.
	if _, err := r.analyzer.SyncObjectInterestEdges(ctx, childID); err != nil {
		log.Printf("services: sync object interest edges for %s: %v", childID, err)
	}

	report := &Report{
		ChildID:      childID,
		ChildName:    profile.Name,
		GeneratedAt:  time.Now().UTC(),
		PeriodDays:   periodDays,
		Behaviors:    behaviors,
		Scores:       scores,
		Trend:        trend,
		Associations: associations,
	}
	if assessment, err := r.svc.GetLatestAssessment(ctx, childID, ""); err == nil {
		report.Assessment = assessment
	}
	return report, nil
}

// Markdown renders the report for human readers.
func (r *Report) Markdown() string {
	var b strings.Builder
	fmt.Fprintf(&b, "# Progress report: %s\n\n", r.ChildName)
	fmt.Fprintf(&b, "Generated %s, covering the last %d days.\n\n",
		r.GeneratedAt.Format("2006-01-02"), r.PeriodDays)

	fmt.Fprintf(&b, "## Activity\n\n%d behaviors recorded; trend: %s.\n\n",
		r.Trend.TotalBehaviors, r.Trend.Trend)

	b.WriteString("## Interests\n\n")
	if len(r.Scores) == 0 {
		b.WriteString("No interest data recorded yet.\n\n")
	}
	for _, sc := range r.Scores {
		fmt.Fprintf(&b, "- **%s**: score %.2f across %d behaviors (%s)\n",
			sc.Interest, sc.Score, sc.BehaviorCount, strings.Join(sc.EventTypes, ", "))
	}
	if len(r.Scores) > 0 {
		b.WriteString("\n")
	}

	if len(r.Associations) > 0 {
		b.WriteString("## Favorite objects\n\n")
		for _, assoc := range r.Associations {
			fmt.Fprintf(&b, "- **%s** (%d behaviors), primarily %s\n",
				assoc.Object, assoc.TotalBehaviors, assoc.PrimaryInterest)
		}
		b.WriteString("\n")
	}

	b.WriteString("## Recent moments\n\n")
	limit := len(r.Behaviors)
	if limit > 10 {
		limit = 10
	}
	if limit == 0 {
		b.WriteString("No behaviors recorded in this period.\n")
	}
	for _, bh := range r.Behaviors[:limit] {
		day := ""
		if !bh.Timestamp.IsZero() {
			day = bh.Timestamp.Format("2006-01-02") + " "
		}
		fmt.Fprintf(&b, "- %s%s\n", day, bh.Description)
	}

	if r.Assessment != nil {
		fmt.Fprintf(&b, "\n## Latest assessment (%s)\n\n%s\n", r.Assessment.Type, r.Assessment.Summary)
	}
	return b.String()
}
