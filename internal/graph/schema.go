package graph

import (
	"context"
	"fmt"
	"log"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	"github.com/lumikid/lumikid/pkg/types"
)

// schemaStatements returns the idempotent constraint and index statements run
// at bootstrap: a uniqueness constraint on id for every entity kind, name
// uniqueness for the fixed dimensions, and secondary indexes on frequent
// filters.
func schemaStatements() []string {
	stmts := make([]string, 0, len(types.ValidNodeKinds)+8)
	for _, kind := range types.ValidNodeKinds {
		stmts = append(stmts, fmt.Sprintf(
			"CREATE CONSTRAINT %s_id_unique IF NOT EXISTS FOR (n:%s) REQUIRE n.id IS UNIQUE",
			snake(kind), kind))
	}
	stmts = append(stmts,
		"CREATE CONSTRAINT interest_name_unique IF NOT EXISTS FOR (n:InterestDimension) REQUIRE n.name IS UNIQUE",
		"CREATE CONSTRAINT function_name_unique IF NOT EXISTS FOR (n:FunctionDimension) REQUIRE n.name IS UNIQUE",
		"CREATE INDEX behavior_child IF NOT EXISTS FOR (n:Behavior) ON (n.child_id)",
		"CREATE INDEX behavior_timestamp IF NOT EXISTS FOR (n:Behavior) ON (n.timestamp)",
		"CREATE INDEX assessment_child IF NOT EXISTS FOR (n:ChildAssessment) ON (n.child_id)",
		"CREATE INDEX episode_child IF NOT EXISTS FOR (n:Episode) ON (n.child_id)",
		"CREATE INDEX object_child IF NOT EXISTS FOR (n:Object) ON (n.child_id)",
		"CREATE INDEX game_child IF NOT EXISTS FOR (n:FloorTimeGame) ON (n.child_id)",
	)
	return stmts
}

// EnsureSchema provisions constraints and indexes. Individual statement
// failures are logged and skipped so the remaining constraints still apply;
// only a connectivity failure aborts.
func (d *Driver) EnsureSchema(ctx context.Context) error {
	if err := d.Ping(ctx); err != nil {
		return err
	}

	session := d.driver.NewSession(ctx, neo4j.SessionConfig{AccessMode: neo4j.AccessModeWrite})
	defer func() { _ = session.Close(ctx) }()

	for _, stmt := range schemaStatements() {
		_, err := session.ExecuteWrite(ctx, func(tx neo4j.ManagedTransaction) (any, error) {
			result, err := tx.Run(ctx, stmt, nil)
			if err != nil {
				return nil, err
			}
			return nil, result.Err()
		})
		if err != nil {
			log.Printf("graph: schema statement skipped: %v", err)
		}
	}
	return nil
}

// snake lowercases a CamelCase kind into a snake_case constraint name prefix.
func snake(kind string) string {
	out := make([]rune, 0, len(kind)+4)
	for i, r := range kind {
		if r >= 'A' && r <= 'Z' {
			if i > 0 {
				out = append(out, '_')
			}
			r += 'a' - 'A'
		}
		out = append(out, r)
	}
	return string(out)
}
