package analytics

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/pkg/types"
)

// fakeStore serves every query from a fixed row set and records edge writes.
type fakeStore struct {
	graph.Store
	rows       []map[string]any
	lastCypher string
	lastParams map[string]any
	edges      []graph.Edge
}

func (s *fakeStore) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	s.lastCypher = cypher
	s.lastParams = params
	return s.rows, nil
}

func (s *fakeStore) CreateEdge(ctx context.Context, e graph.Edge) error {
	s.edges = append(s.edges, e)
	return nil
}

func testAnalyzer(store *fakeStore, now time.Time) *Analyzer {
	a := NewAnalyzer(store)
	a.now = func() time.Time { return now }
	return a
}

func TestExplorationScores(t *testing.T) {
	now := time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC)
	store := &fakeStore{rows: []map[string]any{
		{"interest": "construction", "weight": 0.9, "event_type": "firstTime", "timestamp": "2026-03-05T10:00:00Z"},
		{"interest": "construction", "weight": 0.8, "event_type": "social", "timestamp": "2026-03-08T10:00:00Z"},
		{"interest": "construction", "weight": 0.7, "event_type": "other", "timestamp": "2026-03-10T10:00:00Z"},
		{"interest": "visual", "weight": 0.4, "event_type": "other", "timestamp": "2026-01-01T10:00:00Z"},
	}}
	a := testAnalyzer(store, now)

	scores, err := a.ExplorationScores(context.Background(), "child-1")
	require.NoError(t, err)
	require.Len(t, scores, 2)

	// Three behaviors, three distinct event types, last seen today:
	// 2.4 x 1.4 x 1.0 = 3.36.
	top := scores[0]
	assert.Equal(t, "construction", top.Interest)
	assert.Equal(t, 3, top.BehaviorCount)
	assert.Equal(t, 2.4, top.TotalWeight)
	assert.Equal(t, []string{"firstTime", "other", "social"}, top.EventTypes)
	assert.Equal(t, 3.36, top.Score)
	assert.Equal(t, 5.0, top.TimeSpanDays)

	// A single stale behavior decays: 0.4 x 1.0 x (1/(1+68/30)).
	stale := scores[1]
	assert.Equal(t, "visual", stale.Interest)
	assert.Less(t, stale.Score, 0.2)
	assert.Greater(t, stale.Score, 0.0)
}

func TestExplorationScoreForEmptyDimension(t *testing.T) {
	a := testAnalyzer(&fakeStore{}, time.Now().UTC())

	score, err := a.ExplorationScoreFor(context.Background(), "child-1", "tactile")
	require.NoError(t, err)
	assert.Equal(t, "tactile", score.Interest)
	assert.Zero(t, score.Score)
	assert.Zero(t, score.BehaviorCount)
}

func TestExplorationScoresRequiresChild(t *testing.T) {
	a := testAnalyzer(&fakeStore{}, time.Now().UTC())
	_, err := a.ExplorationScores(context.Background(), "")
	assert.Error(t, err)
}

func TestDiversityFactor(t *testing.T) {
	assert.Equal(t, 1.0, diversityFactor(0))
	assert.Equal(t, 1.0, diversityFactor(1))
	assert.InDelta(t, 1.4, diversityFactor(3), 0.001)
	assert.Equal(t, 1.6, diversityFactor(4))
	assert.Equal(t, 1.6, diversityFactor(10))
}

func TestObjectInterestAssociations(t *testing.T) {
	// 10 distinct behaviors link blocks to construction, 5 to visual.
	var rows []map[string]any
	for i := 0; i < 10; i++ {
		rows = append(rows, map[string]any{
			"object": "blocks", "interest": "construction", "weight": 0.8,
			"behavior": string(rune('a' + i)),
		})
	}
	for i := 0; i < 5; i++ {
		rows = append(rows, map[string]any{
			"object": "blocks", "interest": "visual", "weight": 0.6,
			"behavior": string(rune('k' + i)),
		})
	}
	// A duplicate row for the same (behavior, interest) pair is not
	// double-counted.
	rows = append(rows, map[string]any{
		"object": "blocks", "interest": "construction", "weight": 0.8, "behavior": "a",
	})
	store := &fakeStore{rows: rows}
	a := testAnalyzer(store, time.Now().UTC())

	assocs, err := a.ObjectInterestAssociations(context.Background(), "child-1", AssociationOptions{})
	require.NoError(t, err)
	require.Len(t, assocs, 1)

	blocks := assocs[0]
	assert.Equal(t, "blocks", blocks.Object)
	assert.Equal(t, 15, blocks.TotalBehaviors)
	assert.Equal(t, "construction", blocks.PrimaryInterest)

	construction := blocks.Interests["construction"]
	assert.Equal(t, 10, construction.Frequency)
	assert.Equal(t, 0.67, construction.Percentage)
	assert.Equal(t, 0.8, construction.MeanWeight)

	visual := blocks.Interests["visual"]
	assert.Equal(t, 5, visual.Frequency)
	assert.Equal(t, 0.33, visual.Percentage)
}

func TestObjectInterestAssociationsMinFrequency(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{
		{"object": "spinner", "interest": "visual", "weight": 0.5, "behavior": "b1"},
	}}
	a := testAnalyzer(store, time.Now().UTC())

	// Default min frequency 2 filters the single-behavior pair out entirely.
	assocs, err := a.ObjectInterestAssociations(context.Background(), "child-1", AssociationOptions{})
	require.NoError(t, err)
	assert.Empty(t, assocs)

	assocs, err = a.ObjectInterestAssociations(context.Background(), "child-1", AssociationOptions{MinFrequency: 1})
	require.NoError(t, err)
	require.Len(t, assocs, 1)
	assert.Equal(t, "visual", assocs[0].PrimaryInterest)
}

func TestSyncObjectInterestEdges(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{
		{"object_id": "obj-1", "object": "blocks", "interest": "construction", "weight": 0.8, "behavior": "a"},
		{"object_id": "obj-1", "object": "blocks", "interest": "construction", "weight": 0.8, "behavior": "b"},
		{"object_id": "obj-1", "object": "blocks", "interest": "visual", "weight": 0.6, "behavior": "c"},
		// An object row without an id cannot be linked and is skipped.
		{"object": "mystery", "interest": "visual", "weight": 0.5, "behavior": "d"},
	}}
	a := testAnalyzer(store, time.Now().UTC())

	written, err := a.SyncObjectInterestEdges(context.Background(), "child-1")
	require.NoError(t, err)
	assert.Equal(t, 2, written)
	require.Len(t, store.edges, 2)

	byInterest := map[string]graph.Edge{}
	for _, e := range store.edges {
		assert.Equal(t, types.EdgeObjectTouchesInterest, e.Label)
		assert.Equal(t, types.KindObject, e.FromKind)
		assert.Equal(t, "obj-1", e.FromID)
		assert.Equal(t, types.KindInterestDimension, e.ToKind)
		byInterest[e.ToID] = e
	}

	construction := byInterest["interest:construction"]
	assert.Equal(t, 0.67, construction.Props["score"])
	assert.Equal(t, true, construction.Props["primary"])
	visual := byInterest["interest:visual"]
	assert.Equal(t, 0.33, visual.Props["score"])
	assert.Equal(t, false, visual.Props["primary"])
}

func TestMultiInterestBehaviors(t *testing.T) {
	store := &fakeStore{rows: []map[string]any{
		{
			"id": "b1", "description": "sorted colored blocks", "timestamp": "2026-03-01T10:00:00Z",
			"dims": []any{
				map[string]any{"name": "construction", "weight": 0.8},
				map[string]any{"name": "order", "weight": 0.7},
				map[string]any{"name": "visual", "weight": 0.5},
			},
		},
		{
			"id": "b2", "description": "watched the fan",
			"dims": []any{
				map[string]any{"name": "visual", "weight": 0.9},
			},
		},
	}}
	a := testAnalyzer(store, time.Now().UTC())

	out, err := a.MultiInterestBehaviors(context.Background(), "child-1", 0)
	require.NoError(t, err)
	require.Len(t, out, 1)
	assert.Equal(t, "b1", out[0].BehaviorID)
	assert.Len(t, out[0].Dimensions, 3)
	assert.Equal(t, 0.7, out[0].Dimensions["order"])
}

func TestTemporalTrends(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)

	day := func(d string, n int) []map[string]any {
		var rows []map[string]any
		for i := 0; i < n; i++ {
			rows = append(rows, map[string]any{"timestamp": d + "T10:00:00Z"})
		}
		return rows
	}

	t.Run("increasing", func(t *testing.T) {
		var rows []map[string]any
		rows = append(rows, day("2026-03-01", 1)...)
		rows = append(rows, day("2026-03-02", 1)...)
		rows = append(rows, day("2026-03-08", 3)...)
		rows = append(rows, day("2026-03-09", 3)...)
		store := &fakeStore{rows: rows}
		a := testAnalyzer(store, now)

		report, err := a.TemporalTrends(context.Background(), "child-1", TrendOptions{})
		require.NoError(t, err)
		assert.Equal(t, TrendIncreasing, report.Trend)
		assert.Equal(t, 8, report.TotalBehaviors)
		assert.Equal(t, 1.0, report.FirstWindowMean)
		assert.Equal(t, 3.0, report.LastWindowMean)
		assert.Equal(t, 2.0, report.ChangeRatio)
		assert.Equal(t, 4, len(report.DailyCounts))
	})

	t.Run("decreasing", func(t *testing.T) {
		var rows []map[string]any
		rows = append(rows, day("2026-03-01", 4)...)
		rows = append(rows, day("2026-03-09", 1)...)
		store := &fakeStore{rows: rows}
		a := testAnalyzer(store, now)

		report, err := a.TemporalTrends(context.Background(), "child-1", TrendOptions{})
		require.NoError(t, err)
		assert.Equal(t, TrendDecreasing, report.Trend)
	})

	t.Run("stable within threshold", func(t *testing.T) {
		var rows []map[string]any
		rows = append(rows, day("2026-03-01", 5)...)
		rows = append(rows, day("2026-03-09", 5)...)
		store := &fakeStore{rows: rows}
		a := testAnalyzer(store, now)

		report, err := a.TemporalTrends(context.Background(), "child-1", TrendOptions{})
		require.NoError(t, err)
		assert.Equal(t, TrendStable, report.Trend)
	})

	t.Run("single active day is stable", func(t *testing.T) {
		store := &fakeStore{rows: day("2026-03-05", 7)}
		a := testAnalyzer(store, now)

		report, err := a.TemporalTrends(context.Background(), "child-1", TrendOptions{})
		require.NoError(t, err)
		assert.Equal(t, TrendStable, report.Trend)
		assert.Equal(t, 7, report.TotalBehaviors)
		assert.Zero(t, report.ChangeRatio)
	})

	t.Run("interest filter reaches the query", func(t *testing.T) {
		store := &fakeStore{}
		a := testAnalyzer(store, now)

		_, err := a.TemporalTrends(context.Background(), "child-1", TrendOptions{Interest: "visual", Days: 7})
		require.NoError(t, err)
		assert.Equal(t, "visual", store.lastParams["interest"])
		assert.Equal(t, now.AddDate(0, 0, -7).Format(time.RFC3339), store.lastParams["since"])
	})
}
