// Package types defines the core data structures for the Lumikid memory core.
// The graph vocabulary is closed: node kinds, relationship labels, and the
// enumerated attribute values below are the only ones the system will write,
// and the only ones the extraction pipeline will accept from the LLM.
package types

// Node kind constants - the closed set of graph node labels.
const (
	KindChild             = "Child"
	KindPerson            = "Person"
	KindBehavior          = "Behavior"
	KindObject            = "Object"
	KindInterestDimension = "InterestDimension"
	KindFunctionDimension = "FunctionDimension"
	KindFloorTimeGame     = "FloorTimeGame"
	KindChildAssessment   = "ChildAssessment"
	KindEpisode           = "Episode"
)

// ValidNodeKinds is a slice of all valid node kinds for validation.
var ValidNodeKinds = []string{
	KindChild,
	KindPerson,
	KindBehavior,
	KindObject,
	KindInterestDimension,
	KindFunctionDimension,
	KindFloorTimeGame,
	KindChildAssessment,
	KindEpisode,
}

// Relationship label constants - all relationships are directed.
const (
	EdgeExhibits              = "EXHIBITS"                // Person -> Behavior
	EdgeInvolvesObject        = "INVOLVES_OBJECT"         // Behavior -> Object
	EdgeInvolvesPerson        = "INVOLVES_PERSON"         // Behavior -> Person
	EdgeShowsInterest         = "SHOWS_INTEREST"          // Behavior -> InterestDimension
	EdgeShowsFunction         = "SHOWS_FUNCTION"          // Behavior -> FunctionDimension
	EdgeObjectTouchesInterest = "OBJECT_TOUCHES_INTEREST" // Object -> InterestDimension
	EdgeReceivesAssessment    = "RECEIVES_ASSESSMENT"     // Child -> ChildAssessment
	EdgeMentions              = "MENTIONS"                // Episode -> any extracted entity
)

// ValidEdgeLabels is a slice of all valid relationship labels for validation.
var ValidEdgeLabels = []string{
	EdgeExhibits,
	EdgeInvolvesObject,
	EdgeInvolvesPerson,
	EdgeShowsInterest,
	EdgeShowsFunction,
	EdgeObjectTouchesInterest,
	EdgeReceivesAssessment,
	EdgeMentions,
}

// Behavior event type constants.
const (
	EventSocial        = "social"
	EventEmotion       = "emotion"
	EventCommunication = "communication"
	EventFirstTime     = "firstTime"
	EventOther         = "other"
)

// ValidEventTypes is a slice of all valid behavior event types.
var ValidEventTypes = []string{
	EventSocial,
	EventEmotion,
	EventCommunication,
	EventFirstTime,
	EventOther,
}

// Behavior significance constants. Significance is LLM-inferred and treated
// as a hint, never as a calibrated measurement.
const (
	SignificanceBreakthrough = "breakthrough"
	SignificanceImprovement  = "improvement"
	SignificanceNormal       = "normal"
	SignificanceConcern      = "concern"
)

// ValidSignificances is a slice of all valid significance values.
var ValidSignificances = []string{
	SignificanceBreakthrough,
	SignificanceImprovement,
	SignificanceNormal,
	SignificanceConcern,
}

// Person role constants for non-child persons.
const (
	RoleParent  = "parent"
	RoleTeacher = "teacher"
	RolePeer    = "peer"
	RoleSibling = "sibling"
	RoleOther   = "other"
)

// ValidPersonRoles is a slice of all valid person roles.
var ValidPersonRoles = []string{
	RoleParent,
	RoleTeacher,
	RolePeer,
	RoleSibling,
	RoleOther,
}

// Floor-time game status constants.
const (
	GameRecommended = "recommended"
	GameScheduled   = "scheduled"
	GameInProgress  = "in_progress"
	GameCompleted   = "completed"
	GameCancelled   = "cancelled"
)

// ValidGameStatuses is a slice of all valid game statuses.
var ValidGameStatuses = []string{
	GameRecommended,
	GameScheduled,
	GameInProgress,
	GameCompleted,
	GameCancelled,
}

// Assessment type constants.
const (
	AssessmentInitial        = "initial"
	AssessmentComprehensive  = "comprehensive"
	AssessmentInterestMining = "interest_mining"
	AssessmentTrendAnalysis  = "trend_analysis"
)

// ValidAssessmentTypes is a slice of all valid assessment types.
var ValidAssessmentTypes = []string{
	AssessmentInitial,
	AssessmentComprehensive,
	AssessmentInterestMining,
	AssessmentTrendAnalysis,
}

// IsValidNodeKind checks if the given node kind is in the closed set.
func IsValidNodeKind(kind string) bool {
	return contains(ValidNodeKinds, kind)
}

// IsValidEdgeLabel checks if the given relationship label is in the closed set.
func IsValidEdgeLabel(label string) bool {
	return contains(ValidEdgeLabels, label)
}

// IsValidEventType checks if the given behavior event type is valid.
func IsValidEventType(eventType string) bool {
	return contains(ValidEventTypes, eventType)
}

// IsValidSignificance checks if the given significance value is valid.
func IsValidSignificance(s string) bool {
	return contains(ValidSignificances, s)
}

// IsValidPersonRole checks if the given person role is valid.
func IsValidPersonRole(role string) bool {
	return contains(ValidPersonRoles, role)
}

// IsValidGameStatus checks if the given game status is valid.
func IsValidGameStatus(status string) bool {
	return contains(ValidGameStatuses, status)
}

// IsValidAssessmentType checks if the given assessment type is valid.
func IsValidAssessmentType(t string) bool {
	return contains(ValidAssessmentTypes, t)
}

func contains(valid []string, value string) bool {
	for _, v := range valid {
		if v == value {
			return true
		}
	}
	return false
}

// Clamp01 clamps weights and confidences into [0,1].
// Every edge weight/score/confidence is clamped into its declared range on write.
func Clamp01(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

// Clamp010 clamps function scores into [0,10].
func Clamp010(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 10 {
		return 10
	}
	return v
}
