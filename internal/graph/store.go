// Package graph provides typed access to the labelled property graph that
// backs the Lumikid memory core. It wraps the neo4j bolt driver with
// session-per-operation semantics, MERGE-on-id upserts, and idempotent
// schema provisioning.
package graph

import (
	"context"
	"errors"
)

var (
	// ErrUnavailable indicates the graph store cannot be reached.
	ErrUnavailable = errors.New("graph store unavailable")

	// ErrInvalidLabel indicates a node kind or relationship label outside the
	// closed vocabulary. Labels are interpolated into cypher text, so unknown
	// labels are rejected before any query is built.
	ErrInvalidLabel = errors.New("unknown graph label")
)

// Edge describes one directed, typed relationship between two nodes.
type Edge struct {
	FromKind string
	FromID   string
	ToKind   string
	ToID     string
	Label    string
	Props    map[string]any
}

// Store is the narrow surface the rest of the system uses to talk to the
// property graph. The production implementation is Driver; tests substitute
// in-memory fakes.
type Store interface {
	// EnsureSchema provisions uniqueness constraints and secondary indexes.
	// Idempotent and safe under concurrent startup.
	EnsureSchema(ctx context.Context) error

	// CreateEntity upserts a node by id (MERGE semantics). Nested maps in
	// attrs are JSON-encoded because the store rejects nested objects.
	// groupID may be empty for fixed dimension nodes.
	CreateEntity(ctx context.Context, kind, id, groupID string, attrs map[string]any) error

	// CreateEdge MERGEs a relationship between two existing nodes; property
	// updates overwrite on rematch.
	CreateEdge(ctx context.Context, e Edge) error

	// Query runs a read-only parameterised cypher template and returns rows.
	Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error)

	// ClearGroup detaches and deletes every node whose child_id matches.
	// Fixed dimension nodes carry no child_id and are left intact.
	ClearGroup(ctx context.Context, groupID string) error
}
