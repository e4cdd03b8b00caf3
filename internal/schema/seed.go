package schema

import (
	"context"
	"fmt"
	"log"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/pkg/types"
)

// DimensionID returns the stable node id of a fixed dimension. Fixed nodes
// are unique by name and process-wide; ids are derived, not generated.
func DimensionID(kind, name string) string {
	if kind == types.KindInterestDimension {
		return "interest:" + name
	}
	return "function:" + name
}

// SeedFixedDimensions MERGE-creates the 8 interest and 33 function dimension
// nodes. Idempotent: races at startup are resolved by the store's MERGE.
func SeedFixedDimensions(ctx context.Context, store graph.Store) error {
	for _, d := range types.InterestDimensions {
		attrs := map[string]any{
			"name":         d.Name,
			"display_name": d.DisplayName,
			"description":  d.Description,
		}
		if err := store.CreateEntity(ctx, types.KindInterestDimension, DimensionID(types.KindInterestDimension, d.Name), "", attrs); err != nil {
			return fmt.Errorf("seed: interest %s: %w", d.Name, err)
		}
	}
	for _, d := range types.FunctionDimensions {
		attrs := map[string]any{
			"name":         d.Name,
			"display_name": d.DisplayName,
			"category":     d.Category,
			"description":  d.Description,
		}
		if err := store.CreateEntity(ctx, types.KindFunctionDimension, DimensionID(types.KindFunctionDimension, d.Name), "", attrs); err != nil {
			return fmt.Errorf("seed: function %s: %w", d.Name, err)
		}
	}
	log.Printf("schema: seeded %d interest and %d function dimensions",
		len(types.InterestDimensions), len(types.FunctionDimensions))
	return nil
}
