package graph

import (
	"context"
	"fmt"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lumikid/lumikid/internal/config"
	"github.com/lumikid/lumikid/pkg/types"
)

// Driver implements Store over a pooled neo4j bolt driver. The driver itself
// is shared and thread-safe; every operation opens its own short-lived
// session.
type Driver struct {
	driver neo4j.DriverWithContext
}

// NewDriver connects to the graph store described by cfg. The underlying
// connection pool is created lazily; Ping verifies reachability.
func NewDriver(cfg config.GraphConfig) (*Driver, error) {
	drv, err := neo4j.NewDriverWithContext(cfg.URI, neo4j.BasicAuth(cfg.User, cfg.Password, ""))
	if err != nil {
		return nil, fmt.Errorf("graph: failed to create driver: %w", err)
	}
	return &Driver{driver: drv}, nil
}

// Ping verifies connectivity to the graph store.
func (d *Driver) Ping(ctx context.Context) error {
	if err := d.driver.VerifyConnectivity(ctx); err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Close releases the connection pool.
func (d *Driver) Close(ctx context.Context) error {
	return d.driver.Close(ctx)
}

// CreateEntity upserts a node by id. Attributes go through EncodeProps so
// nested maps become JSON strings. When groupID is non-empty it is stored as
// the child_id property, partitioning the node under its owning child; fixed
// dimension nodes pass an empty groupID and stay group-free.
func (d *Driver) CreateEntity(ctx context.Context, kind, id, groupID string, attrs map[string]any) error {
	if !types.IsValidNodeKind(kind) {
		return fmt.Errorf("%w: node kind %q", ErrInvalidLabel, kind)
	}

	props := EncodeProps(attrs)
	if groupID != "" {
		props["child_id"] = groupID
	}

	cypher := fmt.Sprintf("MERGE (n:%s {id: $id}) SET n += $props", kind)
	return d.write(ctx, cypher, map[string]any{"id": id, "props": props})
}

// CreateEdge MERGEs a relationship between two existing nodes identified by
// (kind, id). Properties overwrite on rematch.
func (d *Driver) CreateEdge(ctx context.Context, e Edge) error {
	if !types.IsValidEdgeLabel(e.Label) {
		return fmt.Errorf("%w: relationship label %q", ErrInvalidLabel, e.Label)
	}
	if !types.IsValidNodeKind(e.FromKind) {
		return fmt.Errorf("%w: node kind %q", ErrInvalidLabel, e.FromKind)
	}
	if !types.IsValidNodeKind(e.ToKind) {
		return fmt.Errorf("%w: node kind %q", ErrInvalidLabel, e.ToKind)
	}

	cypher := fmt.Sprintf(
		"MATCH (a:%s {id: $from}) MATCH (b:%s {id: $to}) MERGE (a)-[r:%s]->(b) SET r += $props",
		e.FromKind, e.ToKind, e.Label)
	params := map[string]any{
		"from":  e.FromID,
		"to":    e.ToID,
		"props": EncodeProps(e.Props),
	}
	return d.write(ctx, cypher, params)
}

// Query runs a read-only parameterised cypher template and returns one map
// per row. Callers pass templates from this module only; Query is the single
// escape hatch for the aggregation layer.
func (d *Driver) Query(ctx context.Context, cypher string, params map[string]any) ([]map[string]any, error) {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeRead})
	defer func() { _ = session.Close(ctx) }()

	rows, err := session.ExecuteRead(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		records, err := result.Collect(ctx)
		if err != nil {
			return nil, err
		}
		out := make([]map[string]any, 0, len(records))
		for _, rec := range records {
			row := make(map[string]any, len(rec.Keys))
			for i, key := range rec.Keys {
				row[key] = rec.Values[i]
			}
			out = append(out, row)
		}
		return out, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return rows.([]map[string]any), nil
}

// ClearGroup detaches and deletes every node carrying the given child_id.
// Fixed dimension nodes have no child_id and survive.
func (d *Driver) ClearGroup(ctx context.Context, groupID string) error {
	return d.write(ctx, "MATCH (n) WHERE n.child_id = $group DETACH DELETE n",
		map[string]any{"group": groupID})
}

func (d *Driver) write(ctx context.Context, cypher string, params map[string]any) error {
	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
		result, err := tx.Run(ctx, cypher, params)
		if err != nil {
			return nil, err
		}
		return nil, result.Err()
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	return nil
}

// Compile-time assertion.
var _ Store = (*Driver)(nil)
