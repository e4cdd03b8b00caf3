package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidators(t *testing.T) {
	assert.True(t, IsValidNodeKind(KindBehavior))
	assert.True(t, IsValidNodeKind(KindEpisode))
	assert.False(t, IsValidNodeKind("Widget"))

	assert.True(t, IsValidEdgeLabel(EdgeShowsInterest))
	assert.False(t, IsValidEdgeLabel("LIKES"))

	assert.True(t, IsValidEventType(EventFirstTime))
	assert.False(t, IsValidEventType(""))
	assert.False(t, IsValidEventType("novel"))

	assert.True(t, IsValidSignificance(SignificanceBreakthrough))
	assert.False(t, IsValidSignificance("major"))

	assert.True(t, IsValidGameStatus(GameInProgress))
	assert.False(t, IsValidGameStatus("paused"))

	assert.True(t, IsValidAssessmentType(AssessmentInterestMining))
	assert.False(t, IsValidAssessmentType("annual"))
}

func TestClamp(t *testing.T) {
	assert.Equal(t, 0.0, Clamp01(-0.5))
	assert.Equal(t, 1.0, Clamp01(1.5))
	assert.Equal(t, 0.7, Clamp01(0.7))

	assert.Equal(t, 0.0, Clamp010(-1))
	assert.Equal(t, 10.0, Clamp010(11))
	assert.Equal(t, 6.5, Clamp010(6.5))
}

func TestFixedDimensionCatalog(t *testing.T) {
	require.Len(t, InterestDimensions, 8)
	require.Len(t, FunctionDimensions, 33)

	// Every dimension carries a display name and a description.
	for _, d := range InterestDimensions {
		assert.NotEmpty(t, d.Name)
		assert.NotEmpty(t, d.DisplayName, d.Name)
		assert.NotEmpty(t, d.Description, d.Name)
	}

	byCategory := map[string]int{}
	for _, d := range FunctionDimensions {
		assert.NotEmpty(t, d.DisplayName, d.Name)
		byCategory[d.Category]++
	}
	assert.Equal(t, 6, byCategory["sensory"])
	assert.Equal(t, 6, byCategory["social"])
	assert.Equal(t, 6, byCategory["language"])
	assert.Equal(t, 5, byCategory["motor"])
	assert.Equal(t, 5, byCategory["emotional"])
	assert.Equal(t, 5, byCategory["self_care"])
}

func TestDimensionLookups(t *testing.T) {
	visual, ok := InterestByName("visual")
	require.True(t, ok)
	assert.Equal(t, "视觉探索", visual.DisplayName)

	_, ok = InterestByName("magnetism")
	assert.False(t, ok)

	eye, ok := FunctionByName("eye_contact")
	require.True(t, ok)
	assert.Equal(t, "social", eye.Category)

	assert.True(t, IsValidInterestName("construction"))
	assert.False(t, IsValidInterestName("eye_contact"))
	assert.True(t, IsValidFunctionName("joint_attention"))
	assert.False(t, IsValidFunctionName("visual"))

	assert.Len(t, InterestNames(), 8)
	assert.Len(t, FunctionNames(), 33)
}
