package extraction

import (
	"context"
	"fmt"
	"strings"

	"github.com/lumikid/lumikid/internal/graph"
)

// resolver implements the entity resolution policy against the live graph:
// fixed dimensions by exact name, Objects by (child, lower-cased name),
// Persons by (child, role, name), Behaviors never.
type resolver struct {
	store graph.Store
}

// childName returns the name of the group's root child, or "" when the child
// node does not exist yet.
func (r *resolver) childName(ctx context.Context, childID string) (string, error) {
	rows, err := r.store.Query(ctx,
		"MATCH (c:Child {id: $id}) RETURN c.name AS name",
		map[string]any{"id": childID})
	if err != nil {
		return "", err
	}
	if len(rows) == 0 {
		return "", nil
	}
	name, _ := rows[0]["name"].(string)
	return name, nil
}

// objectID resolves an object by lower-cased name within the child's group.
// Conservative: exact lower-case match only, no fuzzy merging.
func (r *resolver) objectID(ctx context.Context, childID, name string) (string, bool, error) {
	rows, err := r.store.Query(ctx,
		"MATCH (o:Object {child_id: $child}) WHERE toLower(o.name) = $name RETURN o.id AS id LIMIT 1",
		map[string]any{"child": childID, "name": strings.ToLower(strings.TrimSpace(name))})
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	id, ok := rows[0]["id"].(string)
	if !ok || id == "" {
		return "", false, fmt.Errorf("extraction: object row missing id")
	}
	return id, true, nil
}

// personID resolves a non-child person by (child, role, name). Resolution
// requires both role and name; callers fall back to creating a new person.
func (r *resolver) personID(ctx context.Context, childID, role, name string) (string, bool, error) {
	if role == "" || name == "" {
		return "", false, nil
	}
	rows, err := r.store.Query(ctx,
		"MATCH (p:Person {child_id: $child, role: $role, name: $name}) RETURN p.id AS id LIMIT 1",
		map[string]any{"child": childID, "role": role, "name": name})
	if err != nil {
		return "", false, err
	}
	if len(rows) == 0 {
		return "", false, nil
	}
	id, ok := rows[0]["id"].(string)
	if !ok || id == "" {
		return "", false, fmt.Errorf("extraction: person row missing id")
	}
	return id, true, nil
}
