// Package schema holds the closed entity/edge registry for the Lumikid graph:
// attribute contracts for every node kind, the allowed endpoint-pair map for
// every relationship label, the extraction recipes, and the projection of a
// recipe into the structured-output JSON schema handed to the LLM.
package schema

import (
	"fmt"

	"github.com/lumikid/lumikid/pkg/types"
)

// AttrType enumerates the semantic types an attribute contract can declare.
type AttrType string

const (
	AttrString     AttrType = "string"
	AttrNumber     AttrType = "number"
	AttrInteger    AttrType = "integer"
	AttrBool       AttrType = "boolean"
	AttrStringList AttrType = "string_list"
	AttrMap        AttrType = "map"  // stored JSON-encoded in the graph
	AttrEnum       AttrType = "enum" // closed string set
)

// Attribute is one entry of a node or edge attribute contract.
type Attribute struct {
	Name        string
	Type        AttrType
	Enum        []string // populated when Type == AttrEnum
	Required    bool
	Description string
}

// EndpointPair identifies a legal (from-kind, to-kind) combination.
type EndpointPair struct {
	FromKind string
	ToKind   string
}

// Registry maps node kinds and edge labels to their attribute contracts and
// holds the closed endpoint-pair map. It has two uses: validation on every
// write, and projection into the structured-output schema for extraction.
type Registry struct {
	nodes   map[string][]Attribute
	edges   map[string][]Attribute
	allowed map[EndpointPair][]string
}

// NewRegistry builds the full closed registry described in the data model.
func NewRegistry() *Registry {
	r := &Registry{
		nodes:   map[string][]Attribute{},
		edges:   map[string][]Attribute{},
		allowed: map[EndpointPair][]string{},
	}

	r.nodes[types.KindChild] = []Attribute{
		{Name: "name", Type: AttrString, Required: true},
		{Name: "age", Type: AttrInteger},
		{Name: "diagnosis", Type: AttrString},
		{Name: "basic_info", Type: AttrMap},
	}
	r.nodes[types.KindPerson] = []Attribute{
		{Name: "name", Type: AttrString, Required: true},
		{Name: "role", Type: AttrEnum, Enum: types.ValidPersonRoles},
		{Name: "interaction_quality", Type: AttrString},
	}
	r.nodes[types.KindBehavior] = []Attribute{
		{Name: "description", Type: AttrString, Required: true},
		{Name: "event_type", Type: AttrEnum, Enum: types.ValidEventTypes},
		{Name: "significance", Type: AttrEnum, Enum: types.ValidSignificances},
		{Name: "raw_input", Type: AttrString},
		{Name: "timestamp", Type: AttrString},
		{Name: "context", Type: AttrMap},
		// game-summary subtype fields
		{Name: "engagement_score", Type: AttrNumber, Description: "0-10"},
		{Name: "goal_achievement_score", Type: AttrNumber, Description: "0-10"},
		{Name: "highlights", Type: AttrStringList},
		{Name: "concerns", Type: AttrStringList},
		{Name: "improvement_suggestions", Type: AttrStringList},
	}
	r.nodes[types.KindObject] = []Attribute{
		{Name: "name", Type: AttrString, Required: true},
		{Name: "tags", Type: AttrStringList},
		{Name: "usage_count", Type: AttrInteger},
	}
	r.nodes[types.KindInterestDimension] = []Attribute{
		{Name: "name", Type: AttrEnum, Enum: types.InterestNames(), Required: true},
		{Name: "display_name", Type: AttrString},
		{Name: "description", Type: AttrString},
	}
	r.nodes[types.KindFunctionDimension] = []Attribute{
		{Name: "name", Type: AttrEnum, Enum: types.FunctionNames(), Required: true},
		{Name: "display_name", Type: AttrString},
		{Name: "category", Type: AttrString},
		{Name: "description", Type: AttrString},
	}
	r.nodes[types.KindFloorTimeGame] = []Attribute{
		{Name: "name", Type: AttrString, Required: true},
		{Name: "description", Type: AttrString},
		{Name: "status", Type: AttrEnum, Enum: types.ValidGameStatuses},
		{Name: "design", Type: AttrMap},
		{Name: "implementation", Type: AttrMap},
	}
	r.nodes[types.KindChildAssessment] = []Attribute{
		{Name: "type", Type: AttrEnum, Enum: types.ValidAssessmentTypes},
		{Name: "summary", Type: AttrString, Required: true},
		{Name: "payload", Type: AttrMap},
		{Name: "timestamp", Type: AttrString},
	}
	r.nodes[types.KindEpisode] = []Attribute{
		{Name: "content", Type: AttrString, Required: true},
		{Name: "valid_at", Type: AttrString},
		{Name: "source", Type: AttrString},
	}

	r.edges[types.EdgeExhibits] = nil
	r.edges[types.EdgeInvolvesObject] = nil
	r.edges[types.EdgeInvolvesPerson] = []Attribute{
		{Name: "role", Type: AttrEnum, Enum: types.ValidPersonRoles},
		{Name: "interaction_quality", Type: AttrString},
		{Name: "involvement_level", Type: AttrString},
	}
	r.edges[types.EdgeShowsInterest] = []Attribute{
		{Name: "weight", Type: AttrNumber, Required: true, Description: "0-1"},
		{Name: "reasoning", Type: AttrString},
		{Name: "manifestation", Type: AttrString},
	}
	r.edges[types.EdgeShowsFunction] = []Attribute{
		{Name: "score", Type: AttrNumber, Required: true, Description: "0-10"},
		{Name: "confidence", Type: AttrNumber, Description: "0-1"},
	}
	r.edges[types.EdgeObjectTouchesInterest] = []Attribute{
		{Name: "primary", Type: AttrBool},
		{Name: "score", Type: AttrNumber, Description: "0-1"},
	}
	r.edges[types.EdgeReceivesAssessment] = nil
	r.edges[types.EdgeMentions] = nil

	r.allow(types.KindPerson, types.KindBehavior, types.EdgeExhibits)
	r.allow(types.KindChild, types.KindBehavior, types.EdgeExhibits)
	r.allow(types.KindBehavior, types.KindObject, types.EdgeInvolvesObject)
	r.allow(types.KindBehavior, types.KindPerson, types.EdgeInvolvesPerson)
	r.allow(types.KindBehavior, types.KindInterestDimension, types.EdgeShowsInterest)
	r.allow(types.KindBehavior, types.KindFunctionDimension, types.EdgeShowsFunction)
	r.allow(types.KindChildAssessment, types.KindInterestDimension, types.EdgeShowsInterest)
	r.allow(types.KindChildAssessment, types.KindFunctionDimension, types.EdgeShowsFunction)
	r.allow(types.KindObject, types.KindInterestDimension, types.EdgeObjectTouchesInterest)
	r.allow(types.KindChild, types.KindChildAssessment, types.EdgeReceivesAssessment)
	for _, kind := range types.ValidNodeKinds {
		if kind == types.KindEpisode {
			continue
		}
		r.allow(types.KindEpisode, kind, types.EdgeMentions)
	}

	return r
}

func (r *Registry) allow(fromKind, toKind, label string) {
	pair := EndpointPair{FromKind: fromKind, ToKind: toKind}
	r.allowed[pair] = append(r.allowed[pair], label)
}

// NodeAttributes returns the attribute contract for a node kind.
func (r *Registry) NodeAttributes(kind string) ([]Attribute, bool) {
	attrs, ok := r.nodes[kind]
	return attrs, ok
}

// EdgeAttributes returns the attribute contract for a relationship label.
func (r *Registry) EdgeAttributes(label string) ([]Attribute, bool) {
	attrs, ok := r.edges[label]
	return attrs, ok
}

// EdgeAllowed reports whether (fromKind, toKind, label) is a legal write.
func (r *Registry) EdgeAllowed(fromKind, toKind, label string) bool {
	for _, l := range r.allowed[EndpointPair{FromKind: fromKind, ToKind: toKind}] {
		if l == label {
			return true
		}
	}
	return false
}

// ValidateNodeAttrs checks an attribute map against the contract for kind:
// unknown kinds and unknown attribute names are rejected, enum values must be
// in their closed set, and required attributes must be present and non-empty.
func (r *Registry) ValidateNodeAttrs(kind string, attrs map[string]any) error {
	contract, ok := r.nodes[kind]
	if !ok {
		return fmt.Errorf("unknown node kind %q", kind)
	}
	byName := make(map[string]Attribute, len(contract))
	for _, a := range contract {
		byName[a.Name] = a
	}
	for name, value := range attrs {
		a, ok := byName[name]
		if !ok {
			return fmt.Errorf("node kind %s: unknown attribute %q", kind, name)
		}
		if a.Type == AttrEnum {
			s, _ := value.(string)
			if s != "" && !containsString(a.Enum, s) {
				return fmt.Errorf("node kind %s: attribute %s: value %q not in %v", kind, name, s, a.Enum)
			}
		}
	}
	for _, a := range contract {
		if !a.Required {
			continue
		}
		value, present := attrs[a.Name]
		if !present {
			return fmt.Errorf("node kind %s: missing required attribute %q", kind, a.Name)
		}
		if s, ok := value.(string); ok && s == "" {
			return fmt.Errorf("node kind %s: required attribute %q is empty", kind, a.Name)
		}
	}
	return nil
}

// ValidateEdgeAttrs checks an attribute map against the contract for label.
func (r *Registry) ValidateEdgeAttrs(label string, attrs map[string]any) error {
	contract, ok := r.edges[label]
	if !ok {
		return fmt.Errorf("unknown relationship label %q", label)
	}
	byName := make(map[string]Attribute, len(contract))
	for _, a := range contract {
		byName[a.Name] = a
	}
	for name := range attrs {
		if _, ok := byName[name]; !ok {
			return fmt.Errorf("relationship %s: unknown attribute %q", label, name)
		}
	}
	return nil
}

func containsString(list []string, value string) bool {
	for _, v := range list {
		if v == value {
			return true
		}
	}
	return false
}
