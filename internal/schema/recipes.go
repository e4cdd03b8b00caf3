package schema

import "github.com/lumikid/lumikid/pkg/types"

// ExtractionKind is one entity kind a recipe exposes to the LLM. Name is the
// label the model emits; NodeKind is the graph label it materializes as
// (GameSummary and KeyBehavior are both Behavior subtypes in the graph).
// Attributes lists the node attribute names the model may fill in.
type ExtractionKind struct {
	Name       string
	NodeKind   string
	Attributes []string
}

// Recipe is the tuple that controls one kind of extraction: allowed entity
// kinds, allowed edge labels, the allowed endpoint-pair map (in
// extraction-kind space), and the extraction instructions.
type Recipe struct {
	Name         string
	Source       string // episode source descriptor
	PrimaryKind  string // the single entity each episode must produce exactly one of
	Kinds        []ExtractionKind
	EdgeLabels   []string
	Allowed      map[EndpointPair][]string
	Instructions string
}

// Kind looks up an extraction kind by the name the LLM emits.
func (rec Recipe) Kind(name string) (ExtractionKind, bool) {
	for _, k := range rec.Kinds {
		if k.Name == name {
			return k, true
		}
	}
	return ExtractionKind{}, false
}

// KindNames returns the extraction kind names in declaration order.
func (rec Recipe) KindNames() []string {
	names := make([]string, len(rec.Kinds))
	for i, k := range rec.Kinds {
		names[i] = k.Name
	}
	return names
}

// EdgeAllowed reports whether (fromKind, toKind, label) is legal for this
// recipe, where fromKind and toKind are extraction kind names.
func (rec Recipe) EdgeAllowed(fromKind, toKind, label string) bool {
	for _, l := range rec.Allowed[EndpointPair{FromKind: fromKind, ToKind: toKind}] {
		if l == label {
			return true
		}
	}
	return false
}

// BehaviorRecipe extracts exactly one Behavior per episode plus the objects
// and people it involves.
func BehaviorRecipe() Recipe {
	return Recipe{
		Name:        "behavior",
		Source:      "observation",
		PrimaryKind: "Behavior",
		Kinds: []ExtractionKind{
			{Name: "Behavior", NodeKind: types.KindBehavior,
				Attributes: []string{"description", "event_type", "significance", "context"}},
			{Name: "Object", NodeKind: types.KindObject,
				Attributes: []string{"name", "tags"}},
			{Name: "Person", NodeKind: types.KindPerson,
				Attributes: []string{"name", "role", "interaction_quality"}},
		},
		EdgeLabels: []string{types.EdgeExhibits, types.EdgeInvolvesObject, types.EdgeInvolvesPerson},
		Allowed: map[EndpointPair][]string{
			{FromKind: "Person", ToKind: "Behavior"}: {types.EdgeExhibits},
			{FromKind: "Behavior", ToKind: "Object"}: {types.EdgeInvolvesObject},
			{FromKind: "Behavior", ToKind: "Person"}: {types.EdgeInvolvesPerson},
		},
		Instructions: `You analyze one caregiver observation of a child on the autism spectrum.

RULES:
1. Identify EXACTLY ONE Behavior entity describing what the child did. Its name is a short behavior title.
2. Extract EVERY physical object mentioned (toys, blocks, music box, food...) as an Object entity. Use the object name exactly as written in the text.
3. Extract every person other than the child (mother, father, teacher, peer...) as a Person entity with a role.
4. Classify the Behavior's event_type: social, emotion, communication, firstTime (explicitly described as a first), or other.
5. Classify significance: breakthrough (clearly new capability), improvement, normal, or concern (regression or distress).
6. Link the Behavior to each Object with INVOLVES_OBJECT and to each Person with INVOLVES_PERSON.
7. Do not invent objects or people not grounded in the text. Interest and function judgements belong to game summaries and assessments, not observations.`,
	}
}

// GameSummaryRecipe extracts a game summary (a Behavior subtype carrying
// engagement and goal-achievement scores), the key behaviors observed during
// the game, and their links into the fixed interest/function dimensions.
func GameSummaryRecipe() Recipe {
	return Recipe{
		Name:        "game_summary",
		Source:      "game_summary",
		PrimaryKind: "GameSummary",
		Kinds: []ExtractionKind{
			{Name: "GameSummary", NodeKind: types.KindBehavior,
				Attributes: []string{"description", "engagement_score", "goal_achievement_score",
					"highlights", "concerns", "improvement_suggestions"}},
			{Name: "KeyBehavior", NodeKind: types.KindBehavior,
				Attributes: []string{"description", "event_type", "significance"}},
			{Name: "Interest", NodeKind: types.KindInterestDimension,
				Attributes: []string{"name"}},
			{Name: "Function", NodeKind: types.KindFunctionDimension,
				Attributes: []string{"name"}},
		},
		EdgeLabels: []string{types.EdgeShowsInterest, types.EdgeShowsFunction},
		Allowed: map[EndpointPair][]string{
			{FromKind: "KeyBehavior", ToKind: "Interest"}:  {types.EdgeShowsInterest},
			{FromKind: "KeyBehavior", ToKind: "Function"}:  {types.EdgeShowsFunction},
			{FromKind: "GameSummary", ToKind: "Interest"}:  {types.EdgeShowsInterest},
			{FromKind: "GameSummary", ToKind: "Function"}:  {types.EdgeShowsFunction},
		},
		Instructions: `You analyze the summary of one floor-time game session with a child on the autism spectrum.

RULES:
1. Emit EXACTLY ONE GameSummary entity. Parse engagement_score and goal_achievement_score (0-10) from the text when stated (e.g. "engagement 8/10"). Collect highlights, concerns, and improvement_suggestions.
2. Emit one KeyBehavior entity per notable child behavior during the game.
3. When a behavior shows interest in one of the fixed interest dimensions, emit that Interest entity (by its fixed name) and a SHOWS_INTEREST edge with weight 0-1, reasoning, and manifestation.
4. When a behavior demonstrates a developmental function, emit that Function entity (by its fixed name) and a SHOWS_FUNCTION edge with score 0-10 and confidence 0-1.
5. Interest and Function names MUST be chosen from the provided fixed lists. Never invent dimension names.`,
	}
}

// AssessmentRecipe extracts an assessment narrative and its links into the
// fixed dimensions.
func AssessmentRecipe() Recipe {
	return Recipe{
		Name:        "assessment",
		Source:      "assessment",
		PrimaryKind: "Assessment",
		Kinds: []ExtractionKind{
			{Name: "Assessment", NodeKind: types.KindChildAssessment,
				Attributes: []string{"summary", "payload"}},
			{Name: "Interest", NodeKind: types.KindInterestDimension,
				Attributes: []string{"name"}},
			{Name: "Function", NodeKind: types.KindFunctionDimension,
				Attributes: []string{"name"}},
		},
		EdgeLabels: []string{types.EdgeShowsInterest, types.EdgeShowsFunction},
		Allowed: map[EndpointPair][]string{
			{FromKind: "Assessment", ToKind: "Interest"}: {types.EdgeShowsInterest},
			{FromKind: "Assessment", ToKind: "Function"}: {types.EdgeShowsFunction},
		},
		Instructions: `You analyze one developmental assessment report for a child on the autism spectrum.

RULES:
1. Emit EXACTLY ONE Assessment entity whose summary condenses the report.
2. For every interest dimension the report discusses, emit the Interest entity (fixed name) and a SHOWS_INTEREST edge with weight 0-1.
3. For every developmental function the report scores or discusses, emit the Function entity (fixed name) and a SHOWS_FUNCTION edge with score 0-10 and confidence 0-1.
4. Interest and Function names MUST come from the provided fixed lists.`,
	}
}
