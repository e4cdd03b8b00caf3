package extraction

import (
	"context"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/llm"
	"github.com/lumikid/lumikid/internal/schema"
	"github.com/lumikid/lumikid/pkg/types"
)

// descriptionLimit caps the fallback description taken from episode text.
const descriptionLimit = 200

// Pipeline turns one text episode into typed nodes and edges under a recipe.
// Extraction is all-or-nothing per episode: nothing is written until the LLM
// response has been parsed, resolved, and validated in full.
type Pipeline struct {
	store    graph.Store
	gateway  llm.Gateway
	registry *schema.Registry
	resolve  resolver
}

// NewPipeline creates an extraction pipeline.
func NewPipeline(store graph.Store, gateway llm.Gateway, registry *schema.Registry) *Pipeline {
	return &Pipeline{
		store:    store,
		gateway:  gateway,
		registry: registry,
		resolve:  resolver{store: store},
	}
}

// Extract runs the full procedure for one episode: structured LLM call,
// entity resolution, edge validation, persistence, and episode anchoring.
func (p *Pipeline) Extract(ctx context.Context, rec schema.Recipe, in EpisodeInput) (*Summary, error) {
	if in.ChildID == "" {
		return nil, fmt.Errorf("extraction: child id is required")
	}
	if strings.TrimSpace(in.Text) == "" {
		return nil, fmt.Errorf("extraction: episode text is required")
	}
	occurredAt := in.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}
	episodeID := uuid.NewString()

	outSchema := schema.BuildExtractionSchema(p.registry, rec)
	var doc Document
	usage, err := p.gateway.Structured(ctx, p.systemPrompt(rec), "EPISODE:\n"+in.Text, outSchema, &doc, llm.ExtractionOptions())
	if err != nil {
		return nil, fmt.Errorf("extraction: %s recipe: %w", rec.Name, err)
	}

	nodes, err := p.resolveEntities(ctx, rec, in, occurredAt, episodeID, doc.Entities)
	if err != nil {
		return nil, err
	}
	edges := p.resolveEdges(rec, nodes, doc.Edges)
	edges = append(edges, p.implicitEdges(rec, in.ChildID, nodes)...)

	// Validation is complete; everything below persists.
	for i := range nodes {
		n := &nodes[i]
		if n.Reused || n.NodeKind == types.KindInterestDimension || n.NodeKind == types.KindFunctionDimension {
			continue
		}
		if err := p.store.CreateEntity(ctx, n.NodeKind, n.ID, in.ChildID, n.Attrs); err != nil {
			return nil, fmt.Errorf("extraction: write %s: %w", n.NodeKind, err)
		}
	}
	for _, e := range edges {
		err := p.store.CreateEdge(ctx, graph.Edge{
			FromKind: e.FromKind, FromID: e.FromID,
			ToKind: e.ToKind, ToID: e.ToID,
			Label: e.Label, Props: e.Props,
		})
		if err != nil {
			return nil, fmt.Errorf("extraction: write %s edge: %w", e.Label, err)
		}
	}

	source := in.Source
	if source == "" {
		source = rec.Source
	}
	episodeAttrs := map[string]any{
		"content":  in.Text,
		"valid_at": occurredAt.Format(time.RFC3339),
		"source":   source,
	}
	if err := p.store.CreateEntity(ctx, types.KindEpisode, episodeID, in.ChildID, episodeAttrs); err != nil {
		return nil, fmt.Errorf("extraction: write episode: %w", err)
	}
	for _, n := range nodes {
		err := p.store.CreateEdge(ctx, graph.Edge{
			FromKind: types.KindEpisode, FromID: episodeID,
			ToKind: n.NodeKind, ToID: n.ID,
			Label: types.EdgeMentions,
		})
		if err != nil {
			return nil, fmt.Errorf("extraction: write MENTIONS edge: %w", err)
		}
	}

	return p.summarize(rec, episodeID, usage, nodes, edges), nil
}

// systemPrompt combines the recipe instructions with the fixed dimension
// catalogs when the recipe links into them.
func (p *Pipeline) systemPrompt(rec schema.Recipe) string {
	var b strings.Builder
	b.WriteString(rec.Instructions)
	if _, hasInterest := rec.Kind("Interest"); hasInterest {
		b.WriteString("\n\nFIXED INTEREST DIMENSIONS:\n")
		for _, d := range types.InterestDimensions {
			fmt.Fprintf(&b, "- %s (%s): %s\n", d.Name, d.DisplayName, d.Description)
		}
	}
	if _, hasFunction := rec.Kind("Function"); hasFunction {
		b.WriteString("\nFIXED FUNCTION DIMENSIONS:\n")
		for _, d := range types.FunctionDimensions {
			fmt.Fprintf(&b, "- %s (%s, %s): %s\n", d.Name, d.DisplayName, d.Category, d.Description)
		}
	}
	return b.String()
}

// resolveEntities applies the resolution policy to each emitted entity.
// Duplicate primaries are dropped with a warning: every episode produces at
// most one primary entity.
func (p *Pipeline) resolveEntities(ctx context.Context, rec schema.Recipe, in EpisodeInput, occurredAt time.Time, episodeID string, entities []DocEntity) ([]ResolvedNode, error) {
	childName, err := p.resolve.childName(ctx, in.ChildID)
	if err != nil {
		return nil, fmt.Errorf("extraction: resolve child: %w", err)
	}

	var nodes []ResolvedNode
	primarySeen := false
	for _, ent := range entities {
		kind, ok := rec.Kind(ent.Kind)
		if !ok {
			log.Printf("extraction: %s recipe: skipping entity of unknown kind %q", rec.Name, ent.Kind)
			continue
		}
		if ent.Kind == rec.PrimaryKind {
			if primarySeen {
				log.Printf("extraction: %s recipe: duplicate %s %q dropped", rec.Name, ent.Kind, ent.Name)
				continue
			}
			primarySeen = true
		}

		node, ok, err := p.resolveOne(ctx, rec, kind, in, occurredAt, episodeID, childName, ent)
		if err != nil {
			return nil, err
		}
		if !ok {
			continue
		}
		// Reused nodes (fixed dimensions, matched objects/persons, the child)
		// already satisfy their contracts.
		if !node.Reused {
			if err := p.registry.ValidateNodeAttrs(node.NodeKind, node.Attrs); err != nil {
				return nil, fmt.Errorf("extraction: invalid %s attributes: %w", node.NodeKind, err)
			}
		}
		nodes = append(nodes, node)
	}
	return nodes, nil
}

func (p *Pipeline) resolveOne(ctx context.Context, rec schema.Recipe, kind schema.ExtractionKind, in EpisodeInput, occurredAt time.Time, episodeID, childName string, ent DocEntity) (ResolvedNode, bool, error) {
	attrs := filterAttrs(ent.Attributes, kind.Attributes)

	switch kind.NodeKind {
	case types.KindInterestDimension, types.KindFunctionDimension:
		name := dimensionName(ent, attrs)
		valid := types.IsValidInterestName(name)
		if kind.NodeKind == types.KindFunctionDimension {
			valid = types.IsValidFunctionName(name)
		}
		if !valid {
			log.Printf("extraction: %s recipe: unknown dimension name %q rejected", rec.Name, name)
			return ResolvedNode{}, false, nil
		}
		return ResolvedNode{
			TempName: ent.Name, Kind: kind.Name, NodeKind: kind.NodeKind,
			ID: schema.DimensionID(kind.NodeKind, name), Reused: true,
		}, true, nil

	case types.KindObject:
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			return ResolvedNode{}, false, nil
		}
		attrs["name"] = name
		id, found, err := p.resolve.objectID(ctx, in.ChildID, name)
		if err != nil {
			return ResolvedNode{}, false, fmt.Errorf("extraction: resolve object %q: %w", name, err)
		}
		if !found {
			id = uuid.NewString()
		}
		return ResolvedNode{
			TempName: ent.Name, Kind: kind.Name, NodeKind: types.KindObject,
			ID: id, Attrs: attrs, Reused: found,
		}, true, nil

	case types.KindPerson:
		name := strings.TrimSpace(ent.Name)
		if name == "" {
			return ResolvedNode{}, false, nil
		}
		// The child is always the group's root node, never a Person.
		if childName != "" && name == childName {
			return ResolvedNode{
				TempName: ent.Name, Kind: kind.Name, NodeKind: types.KindChild,
				ID: in.ChildID, Reused: true,
			}, true, nil
		}
		attrs["name"] = name
		role, _ := attrs["role"].(string)
		id, found, err := p.resolve.personID(ctx, in.ChildID, role, name)
		if err != nil {
			return ResolvedNode{}, false, fmt.Errorf("extraction: resolve person %q: %w", name, err)
		}
		if !found {
			id = uuid.NewString()
		}
		return ResolvedNode{
			TempName: ent.Name, Kind: kind.Name, NodeKind: types.KindPerson,
			ID: id, Attrs: attrs, Reused: found,
		}, true, nil

	case types.KindBehavior:
		// Behaviors are never resolved; each episode creates its own.
		p.applyBehaviorDefaults(attrs, in.Text, occurredAt)
		return ResolvedNode{
			TempName: ent.Name, Kind: kind.Name, NodeKind: types.KindBehavior,
			ID: uuid.NewString(), Attrs: attrs,
		}, true, nil

	case types.KindChildAssessment:
		// The episode id doubles as the assessment id.
		if s, _ := attrs["summary"].(string); strings.TrimSpace(s) == "" {
			attrs["summary"] = truncate(in.Text, descriptionLimit)
		}
		attrs["timestamp"] = occurredAt.Format(time.RFC3339)
		return ResolvedNode{
			TempName: ent.Name, Kind: kind.Name, NodeKind: types.KindChildAssessment,
			ID: episodeID, Attrs: attrs,
		}, true, nil

	default:
		log.Printf("extraction: %s recipe: unsupported node kind %q", rec.Name, kind.NodeKind)
		return ResolvedNode{}, false, nil
	}
}

// applyBehaviorDefaults fills the documented fallbacks: episode text as
// description, significance normal, event_type other.
func (p *Pipeline) applyBehaviorDefaults(attrs map[string]any, text string, occurredAt time.Time) {
	if s, _ := attrs["description"].(string); strings.TrimSpace(s) == "" {
		attrs["description"] = truncate(text, descriptionLimit)
	}
	if s, _ := attrs["significance"].(string); !types.IsValidSignificance(s) {
		attrs["significance"] = types.SignificanceNormal
	}
	if s, _ := attrs["event_type"].(string); !types.IsValidEventType(s) {
		attrs["event_type"] = types.EventOther
	}
	attrs["raw_input"] = text
	attrs["timestamp"] = occurredAt.Format(time.RFC3339)
	if scores, ok := attrs["engagement_score"].(float64); ok {
		attrs["engagement_score"] = types.Clamp010(scores)
	}
	if scores, ok := attrs["goal_achievement_score"].(float64); ok {
		attrs["goal_achievement_score"] = types.Clamp010(scores)
	}
}

// resolveEdges validates each emitted edge against the recipe's allowed map,
// clamps numeric properties, and deduplicates SHOWS_INTEREST edges keeping
// the higher weight. Illegal edges are rejected with a logged warning.
func (p *Pipeline) resolveEdges(rec schema.Recipe, nodes []ResolvedNode, docEdges []DocEdge) []ResolvedEdge {
	byTemp := make(map[string]*ResolvedNode, len(nodes))
	for i := range nodes {
		byTemp[nodes[i].TempName] = &nodes[i]
	}

	var out []ResolvedEdge
	interestSeen := map[string]int{} // fromID|toID -> index in out
	for _, de := range docEdges {
		from, okFrom := byTemp[de.From]
		to, okTo := byTemp[de.To]
		if !okFrom || !okTo {
			log.Printf("extraction: %s recipe: edge %s references unknown entity (%q -> %q)", rec.Name, de.Label, de.From, de.To)
			continue
		}
		if !rec.EdgeAllowed(from.Kind, to.Kind, de.Label) {
			log.Printf("extraction: %s recipe: edge (%s)-[%s]->(%s) not allowed", rec.Name, from.Kind, de.Label, to.Kind)
			continue
		}
		props := clampEdgeProps(de.Label, de.Attributes)

		if de.Label == types.EdgeShowsInterest {
			key := from.ID + "|" + to.ID
			if idx, dup := interestSeen[key]; dup {
				// Higher weight wins; the lower one's reasoning is discarded.
				if weightOf(props) > weightOf(out[idx].Props) {
					out[idx].Props = props
				}
				continue
			}
			interestSeen[key] = len(out)
		}

		out = append(out, ResolvedEdge{
			FromKind: from.NodeKind, FromID: from.ID,
			ToKind: to.NodeKind, ToID: to.ID,
			Label: de.Label, Props: props,
		})
	}
	return out
}

// implicitEdges anchors the primary entity to the child: the child exhibits
// the primary behavior, or receives the assessment.
func (p *Pipeline) implicitEdges(rec schema.Recipe, childID string, nodes []ResolvedNode) []ResolvedEdge {
	for _, n := range nodes {
		if n.Kind != rec.PrimaryKind {
			continue
		}
		switch n.NodeKind {
		case types.KindBehavior:
			return []ResolvedEdge{{
				FromKind: types.KindChild, FromID: childID,
				ToKind: types.KindBehavior, ToID: n.ID,
				Label: types.EdgeExhibits,
			}}
		case types.KindChildAssessment:
			return []ResolvedEdge{{
				FromKind: types.KindChild, FromID: childID,
				ToKind: types.KindChildAssessment, ToID: n.ID,
				Label: types.EdgeReceivesAssessment,
			}}
		}
	}
	return nil
}

func (p *Pipeline) summarize(rec schema.Recipe, episodeID string, usage llm.Usage, nodes []ResolvedNode, edges []ResolvedEdge) *Summary {
	s := &Summary{
		EpisodeID:      episodeID,
		EntitiesByKind: map[string]int{},
		EdgesByKind:    map[string]int{},
		Usage:          usage,
		Nodes:          nodes,
		Edges:          edges,
	}
	for _, n := range nodes {
		s.EntitiesByKind[n.NodeKind]++
		if n.Kind == rec.PrimaryKind && s.PrimaryEntityID == "" {
			s.PrimaryEntityID = n.ID
		}
	}
	for _, e := range edges {
		s.EdgesByKind[e.Label]++
	}
	return s
}

// clampEdgeProps clamps numeric edge properties into their declared ranges.
func clampEdgeProps(label string, attrs map[string]any) map[string]any {
	props := make(map[string]any, len(attrs))
	for k, v := range attrs {
		props[k] = v
	}
	switch label {
	case types.EdgeShowsInterest:
		if w, ok := props["weight"].(float64); ok {
			props["weight"] = types.Clamp01(w)
		} else {
			props["weight"] = 0.5
		}
	case types.EdgeShowsFunction:
		if s, ok := props["score"].(float64); ok {
			props["score"] = types.Clamp010(s)
		} else {
			props["score"] = 5.0
		}
		if c, ok := props["confidence"].(float64); ok {
			props["confidence"] = types.Clamp01(c)
		}
	case types.EdgeObjectTouchesInterest:
		if s, ok := props["score"].(float64); ok {
			props["score"] = types.Clamp01(s)
		}
	}
	return props
}

func weightOf(props map[string]any) float64 {
	w, _ := props["weight"].(float64)
	return w
}

func dimensionName(ent DocEntity, attrs map[string]any) string {
	if s, _ := attrs["name"].(string); s != "" {
		return s
	}
	return strings.TrimSpace(ent.Name)
}

func filterAttrs(attrs map[string]any, allowed []string) map[string]any {
	out := make(map[string]any, len(allowed))
	for _, name := range allowed {
		if v, ok := attrs[name]; ok && v != nil {
			out[name] = v
		}
	}
	return out
}

func truncate(s string, limit int) string {
	runes := []rune(strings.TrimSpace(s))
	if len(runes) <= limit {
		return string(runes)
	}
	return string(runes[:limit])
}
