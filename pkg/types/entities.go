package types

import "time"

// Child is the root node of a per-child subgraph. Its ID doubles as the
// group ID that partitions every non-fixed node in the graph.
type Child struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Age       int               `json:"age"`
	Diagnosis string            `json:"diagnosis,omitempty"`
	BasicInfo map[string]any    `json:"basic_info,omitempty"` // free map, JSON-encoded in the graph
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Person is a non-child participant in a behavior (parent, teacher, peer...).
type Person struct {
	ID                 string    `json:"id"`
	ChildID            string    `json:"child_id"`
	Name               string    `json:"name"`
	Role               string    `json:"role"` // see RoleXxx constants
	InteractionQuality string    `json:"interaction_quality,omitempty"`
	CreatedAt          time.Time `json:"created_at"`
}

// Behavior is one observed moment, extracted from exactly one episode.
// Behaviors are never coalesced across episodes.
type Behavior struct {
	ID           string         `json:"id"`
	ChildID      string         `json:"child_id"`
	Timestamp    time.Time      `json:"timestamp"`
	RawInput     string         `json:"raw_input"`
	Description  string         `json:"description"`
	EventType    string         `json:"event_type"`   // see EventXxx constants
	Significance string         `json:"significance"` // see SignificanceXxx constants
	Context      map[string]any `json:"context,omitempty"` // free map, JSON-encoded in the graph
}

// GameSummaryScores carries the scores a game-summary extraction attaches to
// the summary behavior.
type GameSummaryScores struct {
	EngagementScore        float64  `json:"engagement_score"`       // 0-10
	GoalAchievementScore   float64  `json:"goal_achievement_score"` // 0-10
	Highlights             []string `json:"highlights,omitempty"`
	Concerns               []string `json:"concerns,omitempty"`
	ImprovementSuggestions []string `json:"improvement_suggestions,omitempty"`
}

// Object is a physical object involved in behaviors. Objects are resolved by
// (child_id, lower-cased name) and reused across behaviors.
type Object struct {
	ID         string    `json:"id"`
	ChildID    string    `json:"child_id"`
	Name       string    `json:"name"`
	Tags       []string  `json:"tags,omitempty"`
	UsageCount int       `json:"usage_count,omitempty"`
	FirstSeen  time.Time `json:"first_seen,omitempty"`
	LastSeen   time.Time `json:"last_seen,omitempty"`
}

// FloorTimeGame is a recommended or played floor-time game plan.
type FloorTimeGame struct {
	ID             string         `json:"id"`
	ChildID        string         `json:"child_id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status"` // see GameXxx constants
	Design         map[string]any `json:"design,omitempty"`         // free map, JSON-encoded in the graph
	Implementation map[string]any `json:"implementation,omitempty"` // free map, JSON-encoded in the graph
	CreatedAt      time.Time      `json:"created_at"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// ChildAssessment is a stored multi-dimensional assessment.
type ChildAssessment struct {
	ID        string         `json:"id"`
	ChildID   string         `json:"child_id"`
	Type      string         `json:"type"` // see AssessmentXxx constants
	Summary   string         `json:"summary"`
	Payload   map[string]any `json:"payload,omitempty"` // structured result, JSON-encoded in the graph
	Timestamp time.Time      `json:"timestamp"`
}

// Episode is the append-only provenance anchor. Every entity created during
// extraction is reachable from its episode via a MENTIONS edge, so that
// extraction can be replayed, corrected, or filtered by recency.
type Episode struct {
	ID      string    `json:"id"`
	ChildID string    `json:"child_id"`
	Content string    `json:"content"`
	Source  string    `json:"source"` // e.g. "observation", "game_summary", "assessment", "profile_import"
	ValidAt time.Time `json:"valid_at"`
}

// InterestLink is the property set of a SHOWS_INTEREST edge.
type InterestLink struct {
	Interest      string  `json:"interest"` // fixed interest name
	Weight        float64 `json:"weight"`   // [0,1]
	Reasoning     string  `json:"reasoning,omitempty"`
	Manifestation string  `json:"manifestation,omitempty"`
}

// FunctionLink is the property set of a SHOWS_FUNCTION edge.
type FunctionLink struct {
	Function   string  `json:"function"`   // fixed function name
	Score      float64 `json:"score"`      // [0,10]
	Confidence float64 `json:"confidence"` // [0,1]
}

// PersonInvolvement is the property set of an INVOLVES_PERSON edge.
type PersonInvolvement struct {
	Role               string `json:"role"`
	InteractionQuality string `json:"interaction_quality,omitempty"`
	InvolvementLevel   string `json:"involvement_level,omitempty"`
}

// ObjectInterest is the property set of an OBJECT_TOUCHES_INTEREST edge.
type ObjectInterest struct {
	Interest string  `json:"interest"`
	Primary  bool    `json:"primary"`
	Score    float64 `json:"score"` // [0,1]
}
