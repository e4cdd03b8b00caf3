// Package extraction implements the episode-based ingestion pipeline: one
// text episode plus a recipe in, typed nodes and typed edges out, persisted
// through the graph store and anchored to the episode via MENTIONS edges.
package extraction

import (
	"time"

	"github.com/lumikid/lumikid/internal/llm"
)

// Document is the shape of a structured-output extraction response. Entities
// are referenced from edges by their temporary in-document name.
type Document struct {
	Entities []DocEntity `json:"entities"`
	Edges    []DocEdge   `json:"edges"`
}

// DocEntity is one entity the LLM emitted.
type DocEntity struct {
	Kind       string         `json:"kind"` // extraction kind name from the recipe
	Name       string         `json:"name"`
	Attributes map[string]any `json:"attributes"`
}

// DocEdge is one relationship the LLM emitted, endpoints by entity name.
type DocEdge struct {
	From       string         `json:"from"`
	To         string         `json:"to"`
	Label      string         `json:"label"`
	Attributes map[string]any `json:"attributes"`
}

// EpisodeInput is one text episode to extract from.
type EpisodeInput struct {
	ChildID    string
	Text       string
	Source     string    // episode source descriptor; empty falls back to the recipe's
	OccurredAt time.Time // zero means now
}

// ResolvedNode is an extracted entity after resolution against the graph.
type ResolvedNode struct {
	TempName string // in-document name, used by edges
	Kind     string // extraction kind name
	NodeKind string // graph label
	ID       string
	Attrs    map[string]any
	Reused   bool // true when resolution attached to an existing node
}

// ResolvedEdge is an extracted relationship with resolved endpoints and
// clamped properties.
type ResolvedEdge struct {
	FromKind string
	FromID   string
	ToKind   string
	ToID     string
	Label    string
	Props    map[string]any
}

// Summary is the compact result returned per extracted episode.
type Summary struct {
	EpisodeID       string         `json:"episode_id"`
	PrimaryEntityID string         `json:"primary_entity_id"`
	EntitiesByKind  map[string]int `json:"entities_by_kind"`
	EdgesByKind     map[string]int `json:"edges_by_kind"`
	Usage           llm.Usage      `json:"usage"`
	Nodes           []ResolvedNode `json:"-"`
	Edges           []ResolvedEdge `json:"-"`
}
