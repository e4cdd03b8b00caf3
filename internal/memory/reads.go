package memory

import (
	"context"
	"fmt"
	"time"

	"github.com/lumikid/lumikid/internal/graph"
	"github.com/lumikid/lumikid/internal/profilestore"
	"github.com/lumikid/lumikid/pkg/types"
)

// ChildProfile is the child node as read back from the graph.
type ChildProfile struct {
	ID        string         `json:"id"`
	Name      string         `json:"name"`
	Age       int            `json:"age"`
	Diagnosis string         `json:"diagnosis,omitempty"`
	BasicInfo map[string]any `json:"basic_info,omitempty"`
}

// GetChild reads the child node. Returns ErrNotFound when it does not exist.
func (s *Service) GetChild(ctx context.Context, childID string) (*ChildProfile, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	rows, err := s.store.Query(ctx,
		`MATCH (c:Child {id: $id})
		 RETURN c.name AS name, c.age AS age, c.diagnosis AS diagnosis, c.basic_info AS basic_info`,
		map[string]any{"id": childID})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: child %s", ErrNotFound, childID)
	}
	row := rows[0]
	return &ChildProfile{
		ID:        childID,
		Name:      rowString(row, "name"),
		Age:       rowInt(row, "age"),
		Diagnosis: rowString(row, "diagnosis"),
		BasicInfo: graph.DecodeJSONMap(rowString(row, "basic_info")),
	}, nil
}

// ListChildren lists known children, from the cache when available.
func (s *Service) ListChildren(ctx context.Context) ([]profilestore.ChildRow, error) {
	if s.profiles != nil {
		return s.profiles.ListChildren(ctx)
	}
	rows, err := s.store.Query(ctx,
		`MATCH (c:Child) RETURN c.id AS id, c.name AS name, c.age AS age, c.diagnosis AS diagnosis
		 ORDER BY c.name`, nil)
	if err != nil {
		return nil, err
	}
	out := make([]profilestore.ChildRow, 0, len(rows))
	for _, row := range rows {
		out = append(out, profilestore.ChildRow{
			ID:        rowString(row, "id"),
			Name:      rowString(row, "name"),
			Age:       rowInt(row, "age"),
			Diagnosis: rowString(row, "diagnosis"),
		})
	}
	return out, nil
}

// BehaviorQuery filters GetBehaviors. Zero values disable their filter.
type BehaviorQuery struct {
	Limit   int       `json:"limit,omitempty"` // default 20
	Keyword string    `json:"keyword,omitempty"`
	Since   time.Time `json:"since,omitempty"`
	Until   time.Time `json:"until,omitempty"`
}

// BehaviorView is one behavior with its linked objects and dimensions.
type BehaviorView struct {
	ID           string    `json:"id"`
	Description  string    `json:"description"`
	EventType    string    `json:"event_type"`
	Significance string    `json:"significance"`
	Timestamp    time.Time `json:"timestamp"`
	RawInput     string    `json:"raw_input,omitempty"`
	Objects      []string  `json:"objects"`
	Interests    []string  `json:"interests"`
	Functions    []string  `json:"functions"`
}

// GetBehaviors returns the child's behaviors, newest first.
func (s *Service) GetBehaviors(ctx context.Context, childID string, q BehaviorQuery) ([]BehaviorView, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	params := map[string]any{
		"child":   childID,
		"keyword": q.Keyword,
		"since":   timeParam(q.Since),
		"until":   timeParam(q.Until),
		"limit":   limit,
	}
	rows, err := s.store.Query(ctx,
		`MATCH (b:Behavior {child_id: $child})
		 WHERE ($keyword = '' OR toLower(b.description) CONTAINS toLower($keyword) OR toLower(b.raw_input) CONTAINS toLower($keyword))
		   AND ($since = '' OR b.timestamp >= $since)
		   AND ($until = '' OR b.timestamp <= $until)
		 OPTIONAL MATCH (b)-[:INVOLVES_OBJECT]->(o:Object)
		 OPTIONAL MATCH (b)-[:SHOWS_INTEREST]->(i:InterestDimension)
		 OPTIONAL MATCH (b)-[:SHOWS_FUNCTION]->(f:FunctionDimension)
		 RETURN b.id AS id, b.description AS description, b.event_type AS event_type,
		        b.significance AS significance, b.timestamp AS timestamp, b.raw_input AS raw_input,
		        collect(DISTINCT o.name) AS objects,
		        collect(DISTINCT i.name) AS interests,
		        collect(DISTINCT f.name) AS functions
		 ORDER BY b.timestamp DESC
		 LIMIT $limit`, params)
	if err != nil {
		return nil, err
	}
	out := make([]BehaviorView, 0, len(rows))
	for _, row := range rows {
		out = append(out, BehaviorView{
			ID:           rowString(row, "id"),
			Description:  rowString(row, "description"),
			EventType:    rowString(row, "event_type"),
			Significance: rowString(row, "significance"),
			Timestamp:    rowTime(row, "timestamp"),
			RawInput:     rowString(row, "raw_input"),
			Objects:      rowStrings(row, "objects"),
			Interests:    rowStrings(row, "interests"),
			Functions:    rowStrings(row, "functions"),
		})
	}
	return out, nil
}

// AssessmentView is one stored assessment with its dimension links.
type AssessmentView struct {
	ID        string               `json:"id"`
	Type      string               `json:"type"`
	Summary   string               `json:"summary"`
	Payload   map[string]any       `json:"payload,omitempty"`
	Timestamp time.Time            `json:"timestamp"`
	Interests []types.InterestLink `json:"interests,omitempty"`
	Functions []types.FunctionLink `json:"functions,omitempty"`
}

// GetLatestAssessment returns the newest assessment, optionally filtered by
// type. Returns ErrNotFound when the child has none.
func (s *Service) GetLatestAssessment(ctx context.Context, childID, assessmentType string) (*AssessmentView, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if assessmentType != "" && !types.IsValidAssessmentType(assessmentType) {
		return nil, fmt.Errorf("%w: unknown assessment type %q", ErrValidation, assessmentType)
	}
	rows, err := s.store.Query(ctx,
		`MATCH (a:ChildAssessment {child_id: $child})
		 WHERE $type = '' OR a.type = $type
		 OPTIONAL MATCH (a)-[si:SHOWS_INTEREST]->(i:InterestDimension)
		 OPTIONAL MATCH (a)-[sf:SHOWS_FUNCTION]->(f:FunctionDimension)
		 RETURN a.id AS id, a.type AS type, a.summary AS summary, a.payload AS payload,
		        a.timestamp AS timestamp,
		        collect(DISTINCT {name: i.name, weight: si.weight}) AS interests,
		        collect(DISTINCT {name: f.name, score: sf.score, confidence: sf.confidence}) AS functions
		 ORDER BY a.timestamp DESC
		 LIMIT 1`,
		map[string]any{"child": childID, "type": assessmentType})
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: no assessment for child %s", ErrNotFound, childID)
	}
	return assessmentFromRow(rows[0]), nil
}

// GetAssessmentHistory returns assessments newest first.
func (s *Service) GetAssessmentHistory(ctx context.Context, childID string, limit int) ([]AssessmentView, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.store.Query(ctx,
		`MATCH (a:ChildAssessment {child_id: $child})
		 RETURN a.id AS id, a.type AS type, a.summary AS summary, a.payload AS payload,
		        a.timestamp AS timestamp
		 ORDER BY a.timestamp DESC
		 LIMIT $limit`,
		map[string]any{"child": childID, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]AssessmentView, 0, len(rows))
	for _, row := range rows {
		out = append(out, *assessmentFromRow(row))
	}
	return out, nil
}

// GameView is one floor-time game as read back from the graph.
type GameView struct {
	ID             string         `json:"id"`
	Name           string         `json:"name"`
	Description    string         `json:"description,omitempty"`
	Status         string         `json:"status"`
	Design         map[string]any `json:"design,omitempty"`
	Implementation map[string]any `json:"implementation,omitempty"`
	UpdatedAt      time.Time      `json:"updated_at"`
}

// GetRecentGames returns the child's games, most recently updated first.
// status filters when non-empty.
func (s *Service) GetRecentGames(ctx context.Context, childID, status string, limit int) ([]GameView, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	if status != "" && !types.IsValidGameStatus(status) {
		return nil, fmt.Errorf("%w: unknown game status %q", ErrValidation, status)
	}
	if limit <= 0 {
		limit = 10
	}
	rows, err := s.store.Query(ctx,
		`MATCH (g:FloorTimeGame {child_id: $child})
		 WHERE $status = '' OR g.status = $status
		 RETURN g.id AS id, g.name AS name, g.description AS description, g.status AS status,
		        g.design AS design, g.implementation AS implementation, g.updated_at AS updated_at
		 ORDER BY g.updated_at DESC
		 LIMIT $limit`,
		map[string]any{"child": childID, "status": status, "limit": limit})
	if err != nil {
		return nil, err
	}
	out := make([]GameView, 0, len(rows))
	for _, row := range rows {
		out = append(out, GameView{
			ID:             rowString(row, "id"),
			Name:           rowString(row, "name"),
			Description:    rowString(row, "description"),
			Status:         rowString(row, "status"),
			Design:         graph.DecodeJSONMap(rowString(row, "design")),
			Implementation: graph.DecodeJSONMap(rowString(row, "implementation")),
			UpdatedAt:      rowTime(row, "updated_at"),
		})
	}
	return out, nil
}

// ObjectView is one known object with its behavior count.
type ObjectView struct {
	ID       string   `json:"id"`
	Name     string   `json:"name"`
	Tags     []string `json:"tags,omitempty"`
	UseCount int      `json:"use_count"`
}

// GetObjects returns the child's objects ordered by how often behaviors
// involve them.
func (s *Service) GetObjects(ctx context.Context, childID string) ([]ObjectView, error) {
	if childID == "" {
		return nil, fmt.Errorf("%w: child_id is required", ErrValidation)
	}
	rows, err := s.store.Query(ctx,
		`MATCH (o:Object {child_id: $child})
		 OPTIONAL MATCH (b:Behavior)-[:INVOLVES_OBJECT]->(o)
		 RETURN o.id AS id, o.name AS name, o.tags AS tags, count(b) AS uses
		 ORDER BY uses DESC, name`,
		map[string]any{"child": childID})
	if err != nil {
		return nil, err
	}
	out := make([]ObjectView, 0, len(rows))
	for _, row := range rows {
		out = append(out, ObjectView{
			ID:       rowString(row, "id"),
			Name:     rowString(row, "name"),
			Tags:     anyStrings(row["tags"]),
			UseCount: rowInt(row, "uses"),
		})
	}
	return out, nil
}

func assessmentFromRow(row map[string]any) *AssessmentView {
	v := &AssessmentView{
		ID:        rowString(row, "id"),
		Type:      rowString(row, "type"),
		Summary:   rowString(row, "summary"),
		Payload:   graph.DecodeJSONMap(rowString(row, "payload")),
		Timestamp: rowTime(row, "timestamp"),
	}
	if links, ok := row["interests"].([]any); ok {
		for _, l := range links {
			m, ok := l.(map[string]any)
			if !ok || m["name"] == nil {
				continue
			}
			v.Interests = append(v.Interests, types.InterestLink{
				Interest: rowString(m, "name"),
				Weight:   rowFloat(m, "weight"),
			})
		}
	}
	if links, ok := row["functions"].([]any); ok {
		for _, l := range links {
			m, ok := l.(map[string]any)
			if !ok || m["name"] == nil {
				continue
			}
			v.Functions = append(v.Functions, types.FunctionLink{
				Function:   rowString(m, "name"),
				Score:      rowFloat(m, "score"),
				Confidence: rowFloat(m, "confidence"),
			})
		}
	}
	return v
}

// Row value coercions. The bolt protocol returns int64 for integers and
// []any for collected lists; nulls come back as nil.

func rowString(row map[string]any, key string) string {
	s, _ := row[key].(string)
	return s
}

func rowInt(row map[string]any, key string) int {
	switch v := row[key].(type) {
	case int64:
		return int(v)
	case int:
		return v
	case float64:
		return int(v)
	}
	return 0
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

// rowStrings extracts a collected list, dropping nulls from OPTIONAL MATCH.
func rowStrings(row map[string]any, key string) []string {
	out := anyStrings(row[key])
	if out == nil {
		out = []string{}
	}
	return out
}

func anyStrings(v any) []string {
	switch list := v.(type) {
	case []any:
		out := make([]string, 0, len(list))
		for _, item := range list {
			if s, ok := item.(string); ok && s != "" {
				out = append(out, s)
			}
		}
		return out
	case []string:
		return list
	}
	return nil
}

func timeParam(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
