package profilestore

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/config"
)

func newTestStore(t *testing.T) Store {
	t.Helper()
	store, err := New(config.ProfileConfig{Engine: "sqlite", DataPath: t.TempDir()}, 3)
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })
	return store
}

func TestNewUnknownEngine(t *testing.T) {
	_, err := New(config.ProfileConfig{Engine: "oracle"}, 3)
	assert.Error(t, err)
}

func TestChildCRUD(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	row := ChildRow{ID: "c1", Name: "小明", Age: 4, Diagnosis: "ASD"}
	require.NoError(t, store.SaveChild(ctx, row))

	got, err := store.GetChild(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, "小明", got.Name)
	assert.Equal(t, 4, got.Age)
	assert.False(t, got.UpdatedAt.IsZero())

	// Saving again with the same id updates in place.
	row.Age = 5
	require.NoError(t, store.SaveChild(ctx, row))
	got, err = store.GetChild(ctx, "c1")
	require.NoError(t, err)
	assert.Equal(t, 5, got.Age)

	children, err := store.ListChildren(ctx)
	require.NoError(t, err)
	assert.Len(t, children, 1)

	require.NoError(t, store.DeleteChild(ctx, "c1"))
	_, err = store.GetChild(ctx, "c1")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestListChildrenNewestFirst(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, store.SaveChild(ctx, ChildRow{ID: "old", Name: "Old", UpdatedAt: base}))
	require.NoError(t, store.SaveChild(ctx, ChildRow{ID: "new", Name: "New", UpdatedAt: base.AddDate(0, 1, 0)}))

	children, err := store.ListChildren(ctx)
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "new", children[0].ID)
}

func TestEpisodeSearchRanksByCosine(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	occurred := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

	episodes := []struct {
		id  string
		vec []float32
	}{
		{"exact", []float32{1, 0, 0}},
		{"close", []float32{0.9, 0.1, 0}},
		{"far", []float32{0, 0, 1}},
	}
	for _, e := range episodes {
		require.NoError(t, store.IndexEpisode(ctx, EpisodeRow{
			EpisodeID: e.id, ChildID: "c1", Content: "episode " + e.id,
			Source: "observation", OccurredAt: occurred,
		}, e.vec))
	}
	// Another child's episode must never surface.
	require.NoError(t, store.IndexEpisode(ctx, EpisodeRow{
		EpisodeID: "other", ChildID: "c2", Content: "other child", OccurredAt: occurred,
	}, []float32{1, 0, 0}))

	matches, err := store.SearchEpisodes(ctx, "c1", []float32{1, 0, 0}, 2)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "exact", matches[0].EpisodeID)
	assert.InDelta(t, 1.0, matches[0].Score, 0.001)
	assert.Equal(t, "close", matches[1].EpisodeID)
	assert.Greater(t, matches[0].Score, matches[1].Score)
}

func TestIndexEpisodeUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	occurred := time.Now().UTC()

	row := EpisodeRow{EpisodeID: "e1", ChildID: "c1", Content: "first version", OccurredAt: occurred}
	require.NoError(t, store.IndexEpisode(ctx, row, []float32{1, 0, 0}))
	row.Content = "second version"
	require.NoError(t, store.IndexEpisode(ctx, row, []float32{0, 1, 0}))

	matches, err := store.SearchEpisodes(ctx, "c1", []float32{0, 1, 0}, 10)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "second version", matches[0].Content)
	assert.InDelta(t, 1.0, matches[0].Score, 0.001)
}

func TestDeleteChildRemovesEpisodes(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	require.NoError(t, store.SaveChild(ctx, ChildRow{ID: "c1", Name: "Anna"}))
	require.NoError(t, store.IndexEpisode(ctx, EpisodeRow{
		EpisodeID: "e1", ChildID: "c1", Content: "x", OccurredAt: time.Now().UTC(),
	}, []float32{1, 0, 0}))

	require.NoError(t, store.DeleteChild(ctx, "c1"))
	matches, err := store.SearchEpisodes(ctx, "c1", []float32{1, 0, 0}, 10)
	require.NoError(t, err)
	assert.Empty(t, matches)
}
