package analytics

import (
	"context"
	"fmt"
	"sort"
	"time"
)

// Trend labels.
const (
	TrendIncreasing = "increasing"
	TrendDecreasing = "decreasing"
	TrendStable     = "stable"
)

// trendThreshold is the relative change beyond which a trend stops being
// stable.
const trendThreshold = 0.2

// TrendOptions filters TemporalTrends. Interest narrows to behaviors linked
// to one dimension; Days bounds the lookback window (default 30).
type TrendOptions struct {
	Interest string `json:"interest,omitempty"`
	Days     int    `json:"days,omitempty"`
}

// TrendReport summarises daily behavior activity and its direction.
type TrendReport struct {
	Trend           string         `json:"trend"`
	DailyCounts     map[string]int `json:"daily_counts"` // YYYY-MM-DD -> behaviors
	FirstWindowMean float64        `json:"first_window_mean"`
	LastWindowMean  float64        `json:"last_window_mean"`
	ChangeRatio     float64        `json:"change_ratio"`
	TotalBehaviors  int            `json:"total_behaviors"`
}

// TemporalTrends buckets the child's behaviors by day and labels the
// direction by comparing the first and last non-empty windows. Fewer than
// two active days is always stable.
func (a *Analyzer) TemporalTrends(ctx context.Context, childID string, opts TrendOptions) (*TrendReport, error) {
	if childID == "" {
		return nil, fmt.Errorf("analytics: child_id is required")
	}
	days := opts.Days
	if days <= 0 {
		days = 30
	}
	since := a.now().AddDate(0, 0, -days).Format(time.RFC3339)

	rows, err := a.store.Query(ctx,
		`MATCH (b:Behavior {child_id: $child})
		 WHERE b.timestamp >= $since
		   AND ($interest = '' OR (b)-[:SHOWS_INTEREST]->(:InterestDimension {name: $interest}))
		 RETURN b.timestamp AS timestamp`,
		map[string]any{"child": childID, "since": since, "interest": opts.Interest})
	if err != nil {
		return nil, err
	}

	report := &TrendReport{Trend: TrendStable, DailyCounts: map[string]int{}}
	for _, row := range rows {
		ts := rowTime(row, "timestamp")
		if ts.IsZero() {
			continue
		}
		report.DailyCounts[ts.Format("2006-01-02")]++
		report.TotalBehaviors++
	}

	activeDays := make([]string, 0, len(report.DailyCounts))
	for day := range report.DailyCounts {
		activeDays = append(activeDays, day)
	}
	sort.Strings(activeDays)
	if len(activeDays) < 2 {
		return report, nil
	}

	// First vs last non-empty window: split the active days in half.
	half := len(activeDays) / 2
	report.FirstWindowMean = windowMean(report.DailyCounts, activeDays[:half])
	report.LastWindowMean = windowMean(report.DailyCounts, activeDays[half:])

	if report.FirstWindowMean > 0 {
		report.ChangeRatio = round2((report.LastWindowMean - report.FirstWindowMean) / report.FirstWindowMean)
	} else if report.LastWindowMean > 0 {
		report.ChangeRatio = 1
	}
	switch {
	case report.ChangeRatio > trendThreshold:
		report.Trend = TrendIncreasing
	case report.ChangeRatio < -trendThreshold:
		report.Trend = TrendDecreasing
	}
	return report, nil
}

func windowMean(counts map[string]int, days []string) float64 {
	if len(days) == 0 {
		return 0
	}
	total := 0
	for _, day := range days {
		total += counts[day]
	}
	return round2(float64(total) / float64(len(days)))
}
