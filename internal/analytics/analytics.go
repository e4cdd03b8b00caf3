// Package analytics is the aggregation layer: graph traversals plus
// in-process arithmetic. No LLM involvement, one parameterised query per
// operation. The mined object-interest associations are also written back
// to the graph as OBJECT_TOUCHES_INTEREST edges.
package analytics

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/schema"
	"github.com/lumikid/lumikid/pkg/types"
)

// Analyzer runs aggregation queries over one graph store.
type Analyzer struct {
	store graph.Store
	now   func() time.Time
}

// NewAnalyzer creates an analyzer. The clock is injectable for tests.
func NewAnalyzer(store graph.Store) *Analyzer {
	return &Analyzer{store: store, now: func() time.Time { return time.Now().UTC() }}
}

// ExplorationScore is the per-interest-dimension exploration summary:
// score = weight_sum x diversity_factor x recency_factor.
type ExplorationScore struct {
	Interest      string   `json:"interest"`
	Score         float64  `json:"score"`
	BehaviorCount int      `json:"behavior_count"`
	TotalWeight   float64  `json:"total_weight"`
	EventTypes    []string `json:"event_types"`
	TimeSpanDays  float64  `json:"time_span_days"`
	LastSeen      string   `json:"last_seen,omitempty"`
}

// ExplorationScores computes the exploration score of every interest
// dimension the child's behaviors touch.
func (a *Analyzer) ExplorationScores(ctx context.Context, childID string) ([]ExplorationScore, error) {
	return a.explorationScores(ctx, childID, "")
}

// ExplorationScoreFor computes the exploration score of one dimension.
// A dimension with no contributing behaviors scores zero.
func (a *Analyzer) ExplorationScoreFor(ctx context.Context, childID, interest string) (*ExplorationScore, error) {
	scores, err := a.explorationScores(ctx, childID, interest)
	if err != nil {
		return nil, err
	}
	if len(scores) == 0 {
		return &ExplorationScore{Interest: interest, EventTypes: []string{}}, nil
	}
	return &scores[0], nil
}

func (a *Analyzer) explorationScores(ctx context.Context, childID, interest string) ([]ExplorationScore, error) {
	if childID == "" {
		return nil, fmt.Errorf("analytics: child_id is required")
	}
	rows, err := a.store.Query(ctx,
		`MATCH (b:Behavior {child_id: $child})-[si:SHOWS_INTEREST]->(i:InterestDimension)
		 WHERE $interest = '' OR i.name = $interest
		 RETURN i.name AS interest, si.weight AS weight, b.event_type AS event_type,
		        b.timestamp AS timestamp`,
		map[string]any{"child": childID, "interest": interest})
	if err != nil {
		return nil, err
	}

	type acc struct {
		count      int
		weight     float64
		eventTypes map[string]bool
		first      time.Time
		last       time.Time
	}
	byInterest := map[string]*acc{}
	for _, row := range rows {
		name := rowString(row, "interest")
		if name == "" {
			continue
		}
		bucket := byInterest[name]
		if bucket == nil {
			bucket = &acc{eventTypes: map[string]bool{}}
			byInterest[name] = bucket
		}
		bucket.count++
		bucket.weight += rowFloat(row, "weight")
		if et := rowString(row, "event_type"); et != "" {
			bucket.eventTypes[et] = true
		}
		if ts := rowTime(row, "timestamp"); !ts.IsZero() {
			if bucket.first.IsZero() || ts.Before(bucket.first) {
				bucket.first = ts
			}
			if ts.After(bucket.last) {
				bucket.last = ts
			}
		}
	}

	now := a.now()
	out := make([]ExplorationScore, 0, len(byInterest))
	for name, bucket := range byInterest {
		score := ExplorationScore{
			Interest:      name,
			BehaviorCount: bucket.count,
			TotalWeight:   round2(bucket.weight),
			EventTypes:    sortedKeys(bucket.eventTypes),
			TimeSpanDays:  round2(bucket.last.Sub(bucket.first).Hours() / 24),
		}
		if !bucket.last.IsZero() {
			score.LastSeen = bucket.last.Format(time.RFC3339)
		}
		score.Score = round2(bucket.weight * diversityFactor(len(bucket.eventTypes)) * recencyFactor(now, bucket.last))
		out = append(out, score)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Score > out[j].Score })
	return out, nil
}

// diversityFactor rewards distinct event types, capped at 1.6.
func diversityFactor(distinctTypes int) float64 {
	if distinctTypes < 1 {
		distinctTypes = 1
	}
	return math.Min(1+0.2*float64(distinctTypes-1), 1.6)
}

// recencyFactor decays with days since the last contributing behavior:
// 1.0 today, about 0.5 after a month.
func recencyFactor(now, last time.Time) float64 {
	if last.IsZero() {
		return 1
	}
	days := now.Sub(last).Hours() / 24
	if days < 0 {
		days = 0
	}
	return 1 / (1 + days/30)
}

// InterestAssociation is one (object, interest) co-occurrence summary.
type InterestAssociation struct {
	Frequency  int     `json:"frequency"`
	MeanWeight float64 `json:"mean_weight"`
	Percentage float64 `json:"percentage"` // share of the object's interest-linked behaviors
}

// ObjectAssociation is one object with its interest associations.
type ObjectAssociation struct {
	ObjectID        string                         `json:"object_id,omitempty"`
	Object          string                         `json:"object"`
	TotalBehaviors  int                            `json:"total_behaviors"`
	PrimaryInterest string                         `json:"primary_interest"`
	Interests       map[string]InterestAssociation `json:"interests"`
}

// AssociationOptions filters ObjectInterestAssociations. Zero values disable
// their filter; MinFrequency defaults to 2.
type AssociationOptions struct {
	ObjectName   string    `json:"object_name,omitempty"`
	MinFrequency int       `json:"min_frequency,omitempty"`
	Since        time.Time `json:"since,omitempty"`
	Until        time.Time `json:"until,omitempty"`
}

// ObjectInterestAssociations mines which interests each object touches:
// behaviors that involve the object and show the interest.
func (a *Analyzer) ObjectInterestAssociations(ctx context.Context, childID string, opts AssociationOptions) ([]ObjectAssociation, error) {
	if childID == "" {
		return nil, fmt.Errorf("analytics: child_id is required")
	}
	minFreq := opts.MinFrequency
	if minFreq <= 0 {
		minFreq = 2
	}
	rows, err := a.store.Query(ctx,
		`MATCH (b:Behavior {child_id: $child})-[:INVOLVES_OBJECT]->(o:Object),
		       (b)-[si:SHOWS_INTEREST]->(i:InterestDimension)
		 WHERE ($object = '' OR toLower(o.name) = toLower($object))
		   AND ($since = '' OR b.timestamp >= $since)
		   AND ($until = '' OR b.timestamp <= $until)
		 RETURN o.id AS object_id, o.name AS object, i.name AS interest, si.weight AS weight, b.id AS behavior`,
		map[string]any{
			"child":  childID,
			"object": opts.ObjectName,
			"since":  timeParam(opts.Since),
			"until":  timeParam(opts.Until),
		})
	if err != nil {
		return nil, err
	}

	type pair struct {
		behaviors map[string]bool
		weightSum float64
	}
	pairs := map[string]map[string]*pair{} // object -> interest -> pair
	objectIDs := map[string]string{}
	for _, row := range rows {
		object := rowString(row, "object")
		interest := rowString(row, "interest")
		behavior := rowString(row, "behavior")
		if object == "" || interest == "" || behavior == "" {
			continue
		}
		if id := rowString(row, "object_id"); id != "" {
			objectIDs[object] = id
		}
		if pairs[object] == nil {
			pairs[object] = map[string]*pair{}
		}
		p := pairs[object][interest]
		if p == nil {
			p = &pair{behaviors: map[string]bool{}}
			pairs[object][interest] = p
		}
		if !p.behaviors[behavior] {
			p.behaviors[behavior] = true
			p.weightSum += rowFloat(row, "weight")
		}
	}

	out := make([]ObjectAssociation, 0, len(pairs))
	for object, interests := range pairs {
		assoc := ObjectAssociation{
			ObjectID: objectIDs[object], Object: object,
			Interests: map[string]InterestAssociation{},
		}
		total := 0
		for _, p := range interests {
			total += len(p.behaviors)
		}
		assoc.TotalBehaviors = total
		best := 0
		for interest, p := range interests {
			freq := len(p.behaviors)
			if freq < minFreq {
				continue
			}
			ia := InterestAssociation{
				Frequency:  freq,
				MeanWeight: round2(p.weightSum / float64(freq)),
			}
			if total > 0 {
				ia.Percentage = round2(float64(freq) / float64(total))
			}
			assoc.Interests[interest] = ia
			if freq > best || (freq == best && interest < assoc.PrimaryInterest) {
				best = freq
				assoc.PrimaryInterest = interest
			}
		}
		if len(assoc.Interests) == 0 {
			continue
		}
		out = append(out, assoc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].TotalBehaviors > out[j].TotalBehaviors })
	return out, nil
}

// SyncObjectInterestEdges materializes the mined associations as
// OBJECT_TOUCHES_INTEREST edges, so graph queries can reach an object's
// interest profile without re-aggregating. Merging is idempotent: score and
// primary always reflect the latest mining pass. Returns the edge count.
func (a *Analyzer) SyncObjectInterestEdges(ctx context.Context, childID string) (int, error) {
	assocs, err := a.ObjectInterestAssociations(ctx, childID, AssociationOptions{MinFrequency: 1})
	if err != nil {
		return 0, err
	}
	written := 0
	for _, assoc := range assocs {
		if assoc.ObjectID == "" {
			continue
		}
		for interest, ia := range assoc.Interests {
			err := a.store.CreateEdge(ctx, graph.Edge{
				FromKind: types.KindObject, FromID: assoc.ObjectID,
				ToKind: types.KindInterestDimension,
				ToID:   schema.DimensionID(types.KindInterestDimension, interest),
				Label:  types.EdgeObjectTouchesInterest,
				Props: map[string]any{
					"score":   ia.Percentage,
					"primary": interest == assoc.PrimaryInterest,
				},
			})
			if err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// MultiInterestBehavior is one behavior touching several interest dimensions.
type MultiInterestBehavior struct {
	BehaviorID  string             `json:"behavior_id"`
	Description string             `json:"description"`
	Timestamp   string             `json:"timestamp,omitempty"`
	Dimensions  map[string]float64 `json:"dimensions"` // interest -> weight
}

// MultiInterestBehaviors returns behaviors showing at least minDimensions
// distinct interests, most dimensions first. minDimensions defaults to 2.
func (a *Analyzer) MultiInterestBehaviors(ctx context.Context, childID string, minDimensions int) ([]MultiInterestBehavior, error) {
	if childID == "" {
		return nil, fmt.Errorf("analytics: child_id is required")
	}
	if minDimensions <= 0 {
		minDimensions = 2
	}
	rows, err := a.store.Query(ctx,
		`MATCH (b:Behavior {child_id: $child})-[si:SHOWS_INTEREST]->(i:InterestDimension)
		 RETURN b.id AS id, b.description AS description, b.timestamp AS timestamp,
		        collect({name: i.name, weight: si.weight}) AS dims`,
		map[string]any{"child": childID})
	if err != nil {
		return nil, err
	}

	var out []MultiInterestBehavior
	for _, row := range rows {
		dims := map[string]float64{}
		if list, ok := row["dims"].([]any); ok {
			for _, item := range list {
				m, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if name := rowString(m, "name"); name != "" {
					dims[name] = rowFloat(m, "weight")
				}
			}
		}
		if len(dims) < minDimensions {
			continue
		}
		out = append(out, MultiInterestBehavior{
			BehaviorID:  rowString(row, "id"),
			Description: rowString(row, "description"),
			Timestamp:   rowString(row, "timestamp"),
			Dimensions:  dims,
		})
	}
	sort.Slice(out, func(i, j int) bool { return len(out[i].Dimensions) > len(out[j].Dimensions) })
	return out, nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}

func sortedKeys(set map[string]bool) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	sort.Strings(out)
	return out
}

func rowString(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func rowFloat(row map[string]any, key string) float64 {
	switch v := row[key].(type) {
	case float64:
		return v
	case int64:
		return float64(v)
	}
	return 0
}

func rowTime(row map[string]any, key string) time.Time {
	if s, _ := row[key].(string); s != "" {
		if t, err := time.Parse(time.RFC3339, s); err == nil {
			return t
		}
	}
	return time.Time{}
}

func timeParam(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
