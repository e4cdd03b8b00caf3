package memory

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/profilestore"
)

func TestGetChild(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "(c:Child {id", rows: []map[string]any{
			{"name": "小明", "age": int64(4), "diagnosis": "ASD", "basic_info": `{"city":"Shanghai"}`},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	child, err := svc.GetChild(context.Background(), "child-1")
	require.NoError(t, err)
	assert.Equal(t, "child-1", child.ID)
	assert.Equal(t, "小明", child.Name)
	assert.Equal(t, 4, child.Age)
	assert.Equal(t, "Shanghai", child.BasicInfo["city"])
}

func TestGetChildNotFound(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeGateway{}, nil)

	_, err := svc.GetChild(context.Background(), "ghost")
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = svc.GetChild(context.Background(), "")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestListChildrenPrefersCache(t *testing.T) {
	store := &fakeStore{}
	profiles := &fakeProfiles{children: []profilestore.ChildRow{{ID: "c1", Name: "Anna"}}}
	svc := NewService(store, &fakeGateway{}, profiles)

	children, err := svc.ListChildren(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, "Anna", children[0].Name)
	assert.Empty(t, store.queries)
}

func TestListChildrenGraphFallback(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "MATCH (c:Child)", rows: []map[string]any{
			{"id": "c1", "name": "Anna", "age": int64(5), "diagnosis": nil},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	children, err := svc.ListChildren(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 1)
	assert.Equal(t, 5, children[0].Age)
}

func TestGetBehaviors(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "(b:Behavior {child_id", rows: []map[string]any{
			{
				"id": "b1", "description": "stacked blocks", "event_type": "other",
				"significance": "normal", "timestamp": "2026-03-01T10:00:00Z",
				"raw_input": "he stacked blocks",
				"objects":   []any{"blocks", nil},
				"interests": []any{"construction"},
				"functions": []any{},
			},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	views, err := svc.GetBehaviors(context.Background(), "child-1", BehaviorQuery{Keyword: "blocks"})
	require.NoError(t, err)
	require.Len(t, views, 1)

	v := views[0]
	assert.Equal(t, "b1", v.ID)
	assert.Equal(t, time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC), v.Timestamp)
	// nulls from OPTIONAL MATCH are dropped, empty collections stay non-nil
	assert.Equal(t, []string{"blocks"}, v.Objects)
	assert.Equal(t, []string{"construction"}, v.Interests)
	assert.Equal(t, []string{}, v.Functions)

	_, err = svc.GetBehaviors(context.Background(), "", BehaviorQuery{})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetLatestAssessment(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "(a:ChildAssessment {child_id", rows: []map[string]any{
			{
				"id": "a1", "type": "comprehensive", "summary": "steady progress",
				"payload":   `{"fedc_level":3}`,
				"timestamp": "2026-02-15T08:00:00Z",
				"interests": []any{
					map[string]any{"name": "visual", "weight": 0.8},
					map[string]any{"name": nil, "weight": nil},
				},
				"functions": []any{
					map[string]any{"name": "eye_contact", "score": int64(4), "confidence": 0.7},
				},
			},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	a, err := svc.GetLatestAssessment(context.Background(), "child-1", "")
	require.NoError(t, err)
	assert.Equal(t, "a1", a.ID)
	assert.Equal(t, float64(3), a.Payload["fedc_level"])

	require.Len(t, a.Interests, 1)
	assert.Equal(t, "visual", a.Interests[0].Interest)
	assert.Equal(t, 0.8, a.Interests[0].Weight)
	require.Len(t, a.Functions, 1)
	assert.Equal(t, 4.0, a.Functions[0].Score)

	_, err = svc.GetLatestAssessment(context.Background(), "child-1", "annual")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetLatestAssessmentNotFound(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeGateway{}, nil)
	_, err := svc.GetLatestAssessment(context.Background(), "child-1", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestGetRecentGames(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "(g:FloorTimeGame {child_id", rows: []map[string]any{
			{
				"id": "g1", "name": "bubble chase", "description": "chase bubbles",
				"status": "completed",
				"design": `{"duration_minutes":15}`, "implementation": `{"engagement_score":8}`,
				"updated_at": "2026-03-02T09:00:00Z",
			},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	games, err := svc.GetRecentGames(context.Background(), "child-1", "completed", 5)
	require.NoError(t, err)
	require.Len(t, games, 1)
	assert.Equal(t, float64(15), games[0].Design["duration_minutes"])
	assert.Equal(t, float64(8), games[0].Implementation["engagement_score"])

	_, err = svc.GetRecentGames(context.Background(), "child-1", "paused", 5)
	assert.ErrorIs(t, err, ErrValidation)
}

func TestGetObjects(t *testing.T) {
	store := &fakeStore{stubs: []queryStub{
		{contains: "(o:Object {child_id", rows: []map[string]any{
			{"id": "o1", "name": "blocks", "tags": []any{"toy"}, "uses": int64(7)},
			{"id": "o2", "name": "music box", "tags": nil, "uses": int64(0)},
		}},
	}}
	svc := NewService(store, &fakeGateway{}, nil)

	objects, err := svc.GetObjects(context.Background(), "child-1")
	require.NoError(t, err)
	require.Len(t, objects, 2)
	assert.Equal(t, 7, objects[0].UseCount)
	assert.Equal(t, []string{"toy"}, objects[0].Tags)
	assert.Nil(t, objects[1].Tags)
}

func TestSearchMemories(t *testing.T) {
	profiles := &fakeProfiles{matches: []profilestore.Match{
		{EpisodeRow: profilestore.EpisodeRow{EpisodeID: "e1", Content: "stacked blocks"}, Score: 0.92},
	}}
	svc := NewService(&fakeStore{}, &fakeGateway{}, profiles)

	matches, err := svc.SearchMemories(context.Background(), "child-1", "building", 5)
	require.NoError(t, err)
	require.Len(t, matches, 1)
	assert.Equal(t, "e1", matches[0].EpisodeID)
}

func TestSearchMemoriesRequiresProfileStore(t *testing.T) {
	svc := NewService(&fakeStore{}, &fakeGateway{}, nil)

	_, err := svc.SearchMemories(context.Background(), "child-1", "building", 5)
	assert.Error(t, err)
	_, err = svc.SearchMemories(context.Background(), "", "building", 5)
	assert.ErrorIs(t, err, ErrValidation)
	_, err = svc.SearchMemories(context.Background(), "child-1", " ", 5)
	assert.ErrorIs(t, err, ErrValidation)
}
