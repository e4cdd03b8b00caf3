package schema

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/pkg/types"
)

func TestValidateNodeAttrs(t *testing.T) {
	reg := NewRegistry()

	t.Run("accepts a well-formed behavior", func(t *testing.T) {
		err := reg.ValidateNodeAttrs(types.KindBehavior, map[string]any{
			"description":  "stacked blocks into a tower",
			"event_type":   types.EventFirstTime,
			"significance": types.SignificanceBreakthrough,
		})
		assert.NoError(t, err)
	})

	t.Run("rejects an unknown kind", func(t *testing.T) {
		err := reg.ValidateNodeAttrs("Widget", map[string]any{"name": "x"})
		assert.Error(t, err)
	})

	t.Run("rejects an unknown attribute", func(t *testing.T) {
		err := reg.ValidateNodeAttrs(types.KindObject, map[string]any{
			"name":  "music box",
			"color": "red",
		})
		assert.ErrorContains(t, err, "color")
	})

	t.Run("rejects a value outside the enum", func(t *testing.T) {
		err := reg.ValidateNodeAttrs(types.KindBehavior, map[string]any{
			"description": "lined up cars",
			"event_type":  "novel",
		})
		assert.ErrorContains(t, err, "event_type")
	})

	t.Run("rejects a missing required attribute", func(t *testing.T) {
		err := reg.ValidateNodeAttrs(types.KindObject, map[string]any{
			"tags": []string{"toy"},
		})
		assert.ErrorContains(t, err, "name")
	})

	t.Run("rejects an empty required string", func(t *testing.T) {
		err := reg.ValidateNodeAttrs(types.KindObject, map[string]any{"name": ""})
		assert.Error(t, err)
	})

	t.Run("dimension names are a closed enum", func(t *testing.T) {
		ok := reg.ValidateNodeAttrs(types.KindInterestDimension, map[string]any{"name": "visual"})
		assert.NoError(t, ok)
		bad := reg.ValidateNodeAttrs(types.KindInterestDimension, map[string]any{"name": "magnetism"})
		assert.Error(t, bad)
	})
}

func TestValidateEdgeAttrs(t *testing.T) {
	reg := NewRegistry()

	assert.NoError(t, reg.ValidateEdgeAttrs(types.EdgeShowsInterest, map[string]any{
		"weight":    0.8,
		"reasoning": "tracked the spinning top for minutes",
	}))
	assert.Error(t, reg.ValidateEdgeAttrs(types.EdgeShowsInterest, map[string]any{
		"weight": 0.8,
		"color":  "blue",
	}))
	assert.Error(t, reg.ValidateEdgeAttrs("LIKES", map[string]any{}))
}

func TestEdgeAllowed(t *testing.T) {
	reg := NewRegistry()

	assert.True(t, reg.EdgeAllowed(types.KindChild, types.KindBehavior, types.EdgeExhibits))
	assert.True(t, reg.EdgeAllowed(types.KindBehavior, types.KindInterestDimension, types.EdgeShowsInterest))
	assert.True(t, reg.EdgeAllowed(types.KindObject, types.KindInterestDimension, types.EdgeObjectTouchesInterest))
	assert.True(t, reg.EdgeAllowed(types.KindEpisode, types.KindBehavior, types.EdgeMentions))

	assert.False(t, reg.EdgeAllowed(types.KindBehavior, types.KindEpisode, types.EdgeMentions))
	assert.False(t, reg.EdgeAllowed(types.KindEpisode, types.KindEpisode, types.EdgeMentions))
	assert.False(t, reg.EdgeAllowed(types.KindChild, types.KindObject, types.EdgeExhibits))
}

func TestDimensionID(t *testing.T) {
	assert.Equal(t, "interest:visual", DimensionID(types.KindInterestDimension, "visual"))
	assert.Equal(t, "function:eye_contact", DimensionID(types.KindFunctionDimension, "eye_contact"))
}

type seedRecorder struct {
	graph.Store
	entities map[string][]string // kind -> ids
}

func (s *seedRecorder) CreateEntity(ctx context.Context, kind, id, groupID string, attrs map[string]any) error {
	if s.entities == nil {
		s.entities = map[string][]string{}
	}
	s.entities[kind] = append(s.entities[kind], id)
	return nil
}

func TestSeedFixedDimensions(t *testing.T) {
	store := &seedRecorder{}
	require.NoError(t, SeedFixedDimensions(context.Background(), store))

	assert.Len(t, store.entities[types.KindInterestDimension], len(types.InterestDimensions))
	assert.Len(t, store.entities[types.KindFunctionDimension], len(types.FunctionDimensions))
	assert.Contains(t, store.entities[types.KindInterestDimension], "interest:construction")
	assert.Contains(t, store.entities[types.KindFunctionDimension], "function:joint_attention")
}

func TestRecipes(t *testing.T) {
	for _, rec := range []Recipe{BehaviorRecipe(), GameSummaryRecipe(), AssessmentRecipe()} {
		t.Run(rec.Name, func(t *testing.T) {
			primary, ok := rec.Kind(rec.PrimaryKind)
			require.True(t, ok, "primary kind must be declared")
			assert.True(t, types.IsValidNodeKind(primary.NodeKind))
			assert.NotEmpty(t, rec.Instructions)
			for pair, labels := range rec.Allowed {
				_, ok := rec.Kind(pair.FromKind)
				assert.True(t, ok, pair.FromKind)
				_, ok = rec.Kind(pair.ToKind)
				assert.True(t, ok, pair.ToKind)
				for _, label := range labels {
					assert.Contains(t, rec.EdgeLabels, label)
				}
			}
		})
	}

	rec := BehaviorRecipe()
	assert.True(t, rec.EdgeAllowed("Behavior", "Object", types.EdgeInvolvesObject))
	assert.False(t, rec.EdgeAllowed("Object", "Behavior", types.EdgeInvolvesObject))
	assert.False(t, rec.EdgeAllowed("Behavior", "Behavior", types.EdgeExhibits))

	// Dimension links belong to the summary and assessment recipes only.
	assert.False(t, rec.EdgeAllowed("Behavior", "Interest", types.EdgeShowsInterest))
	assert.False(t, rec.EdgeAllowed("Behavior", "Function", types.EdgeShowsFunction))
	assert.NotContains(t, rec.EdgeLabels, types.EdgeShowsInterest)
	assert.NotContains(t, rec.EdgeLabels, types.EdgeShowsFunction)
	assert.NotContains(t, rec.KindNames(), "Interest")
	assert.NotContains(t, rec.KindNames(), "Function")
	assert.True(t, GameSummaryRecipe().EdgeAllowed("KeyBehavior", "Interest", types.EdgeShowsInterest))
	assert.True(t, AssessmentRecipe().EdgeAllowed("Assessment", "Function", types.EdgeShowsFunction))
}

func TestBuildExtractionSchema(t *testing.T) {
	reg := NewRegistry()
	rec := BehaviorRecipe()
	s := BuildExtractionSchema(reg, rec)

	props := s["properties"].(map[string]any)
	entities := props["entities"].(map[string]any)["items"].(map[string]any)
	entityProps := entities["properties"].(map[string]any)

	kindEnum := entityProps["kind"].(map[string]any)["enum"].([]any)
	assert.ElementsMatch(t, []any{"Behavior", "Object", "Person"}, kindEnum)

	attrProps := entityProps["attributes"].(map[string]any)["properties"].(map[string]any)
	assert.Contains(t, attrProps, "description")
	assert.Contains(t, attrProps, "event_type")
	// not in the recipe's attribute lists, so not exposed
	assert.NotContains(t, attrProps, "engagement_score")

	edges := props["edges"].(map[string]any)["items"].(map[string]any)
	edgeProps := edges["properties"].(map[string]any)
	labelEnum := edgeProps["label"].(map[string]any)["enum"].([]any)
	assert.Contains(t, labelEnum, any(types.EdgeInvolvesObject))
	assert.NotContains(t, labelEnum, any(types.EdgeShowsInterest))
	assert.NotContains(t, labelEnum, any(types.EdgeObjectTouchesInterest))

	summarySchema := BuildExtractionSchema(reg, GameSummaryRecipe())
	summaryEdges := summarySchema["properties"].(map[string]any)["edges"].(map[string]any)["items"].(map[string]any)
	summaryLabels := summaryEdges["properties"].(map[string]any)["label"].(map[string]any)["enum"].([]any)
	assert.Contains(t, summaryLabels, any(types.EdgeShowsInterest))
	assert.Contains(t, summaryLabels, any(types.EdgeShowsFunction))
}
