package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/lumikid/lumikid/internal/analytics"
	"github.com/lumikid/lumikid/internal/assistant"
	"github.com/lumikid/lumikid/internal/memory"
)

// MemoryHandlers exposes the memory core's write and read operations.
type MemoryHandlers struct {
	svc         *memory.Service
	analyzer    *analytics.Analyzer
	recommender assistant.GameRecommender
	assessor    assistant.AssessmentGenerator
}

// NewMemoryHandlers creates the handler set. recommender and assessor may be
// nil; their routes then report 503.
func NewMemoryHandlers(svc *memory.Service, analyzer *analytics.Analyzer,
	recommender assistant.GameRecommender, assessor assistant.AssessmentGenerator) *MemoryHandlers {
	return &MemoryHandlers{svc: svc, analyzer: analyzer, recommender: recommender, assessor: assessor}
}

type observationRequest struct {
	ChildID    string `json:"child_id"`
	Text       string `json:"text"`
	InputType  string `json:"input_type,omitempty"`
	OccurredAt string `json:"occurred_at,omitempty"` // RFC3339
}

// HandleObservationText handles POST /api/observation/text.
func (h *MemoryHandlers) HandleObservationText(w http.ResponseWriter, r *http.Request) {
	var req observationRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	occurredAt, ok := parseTimestamp(w, req.OccurredAt)
	if !ok {
		return
	}
	record, err := h.svc.RecordBehavior(r.Context(), memory.BehaviorInput{
		ChildID:    req.ChildID,
		Text:       req.Text,
		InputType:  req.InputType,
		OccurredAt: occurredAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type gameSummaryRequest struct {
	ChildID    string `json:"child_id"`
	GameID     string `json:"game_id,omitempty"`
	Text       string `json:"text"`
	OccurredAt string `json:"occurred_at,omitempty"`
}

// HandleGameSummary handles POST /api/game/summary.
func (h *MemoryHandlers) HandleGameSummary(w http.ResponseWriter, r *http.Request) {
	var req gameSummaryRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	occurredAt, ok := parseTimestamp(w, req.OccurredAt)
	if !ok {
		return
	}
	record, err := h.svc.StoreGameSummary(r.Context(), memory.GameSummaryInput{
		ChildID:    req.ChildID,
		GameID:     req.GameID,
		Text:       req.Text,
		OccurredAt: occurredAt,
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, record)
}

type recommendRequest struct {
	ChildID     string         `json:"child_id"`
	Preferences map[string]any `json:"preferences,omitempty"`
}

// HandleGameRecommend handles POST /api/game/recommend.
func (h *MemoryHandlers) HandleGameRecommend(w http.ResponseWriter, r *http.Request) {
	if h.recommender == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "game recommendation is not configured")
		return
	}
	var req recommendRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	game, err := h.recommender.RecommendGame(r.Context(), req.ChildID, req.Preferences)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, game)
}

type generateAssessmentRequest struct {
	ChildID string `json:"child_id"`
	Type    string `json:"type,omitempty"`
}

// HandleAssessmentGenerate handles POST /api/assessment/generate.
func (h *MemoryHandlers) HandleAssessmentGenerate(w http.ResponseWriter, r *http.Request) {
	if h.assessor == nil {
		writeError(w, http.StatusServiceUnavailable, "NOT_CONFIGURED", "assessment generation is not configured")
		return
	}
	var req generateAssessmentRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	result, err := h.assessor.GenerateAssessment(r.Context(), req.ChildID, req.Type)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleProfileImport handles POST /api/profile/import/text.
func (h *MemoryHandlers) HandleProfileImport(w http.ResponseWriter, r *http.Request) {
	var req memory.ProfileImport
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	result, err := h.svc.ImportProfile(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, result)
}

// HandleListChildren handles GET /api/children.
func (h *MemoryHandlers) HandleListChildren(w http.ResponseWriter, r *http.Request) {
	children, err := h.svc.ListChildren(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"children": children})
}

// HandleGetChild handles GET /api/children/{id}.
func (h *MemoryHandlers) HandleGetChild(w http.ResponseWriter, r *http.Request) {
	profile, err := h.svc.GetChild(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, profile)
}

// HandleBehaviors handles GET /api/children/{id}/behaviors.
func (h *MemoryHandlers) HandleBehaviors(w http.ResponseWriter, r *http.Request) {
	q := memory.BehaviorQuery{
		Limit:   queryInt(r, "limit"),
		Keyword: r.URL.Query().Get("keyword"),
	}
	var ok bool
	if q.Since, ok = queryTime(w, r, "since"); !ok {
		return
	}
	if q.Until, ok = queryTime(w, r, "until"); !ok {
		return
	}
	behaviors, err := h.svc.GetBehaviors(r.Context(), r.PathValue("id"), q)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"behaviors": behaviors})
}

// HandleLatestAssessment handles GET /api/children/{id}/assessments/latest.
func (h *MemoryHandlers) HandleLatestAssessment(w http.ResponseWriter, r *http.Request) {
	assessment, err := h.svc.GetLatestAssessment(r.Context(), r.PathValue("id"), r.URL.Query().Get("type"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, assessment)
}

// HandleAssessmentHistory handles GET /api/children/{id}/assessments.
func (h *MemoryHandlers) HandleAssessmentHistory(w http.ResponseWriter, r *http.Request) {
	history, err := h.svc.GetAssessmentHistory(r.Context(), r.PathValue("id"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"assessments": history})
}

// HandleGames handles GET /api/children/{id}/games.
func (h *MemoryHandlers) HandleGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.svc.GetRecentGames(r.Context(), r.PathValue("id"),
		r.URL.Query().Get("status"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"games": games})
}

// HandleObjects handles GET /api/children/{id}/objects.
func (h *MemoryHandlers) HandleObjects(w http.ResponseWriter, r *http.Request) {
	objects, err := h.svc.GetObjects(r.Context(), r.PathValue("id"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"objects": objects})
}

// HandleSearch handles GET /api/children/{id}/search.
func (h *MemoryHandlers) HandleSearch(w http.ResponseWriter, r *http.Request) {
	matches, err := h.svc.SearchMemories(r.Context(), r.PathValue("id"),
		r.URL.Query().Get("q"), queryInt(r, "limit"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"matches": matches})
}

// HandleExploration handles GET /api/children/{id}/analytics/exploration.
func (h *MemoryHandlers) HandleExploration(w http.ResponseWriter, r *http.Request) {
	childID := r.PathValue("id")
	if interest := r.URL.Query().Get("interest"); interest != "" {
		score, err := h.analyzer.ExplorationScoreFor(r.Context(), childID, interest)
		if err != nil {
			writeServiceError(w, err)
			return
		}
		writeJSON(w, http.StatusOK, score)
		return
	}
	scores, err := h.analyzer.ExplorationScores(r.Context(), childID)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"scores": scores})
}

// HandleAssociations handles GET /api/children/{id}/analytics/associations.
func (h *MemoryHandlers) HandleAssociations(w http.ResponseWriter, r *http.Request) {
	opts := analytics.AssociationOptions{
		ObjectName:   r.URL.Query().Get("object"),
		MinFrequency: queryInt(r, "min_frequency"),
	}
	var ok bool
	if opts.Since, ok = queryTime(w, r, "since"); !ok {
		return
	}
	if opts.Until, ok = queryTime(w, r, "until"); !ok {
		return
	}
	associations, err := h.analyzer.ObjectInterestAssociations(r.Context(), r.PathValue("id"), opts)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"associations": associations})
}

// HandleMultiInterest handles GET /api/children/{id}/analytics/multi-interest.
func (h *MemoryHandlers) HandleMultiInterest(w http.ResponseWriter, r *http.Request) {
	behaviors, err := h.analyzer.MultiInterestBehaviors(r.Context(), r.PathValue("id"),
		queryInt(r, "min_dimensions"))
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"behaviors": behaviors})
}

// HandleTrends handles GET /api/children/{id}/analytics/trends.
func (h *MemoryHandlers) HandleTrends(w http.ResponseWriter, r *http.Request) {
	report, err := h.analyzer.TemporalTrends(r.Context(), r.PathValue("id"), analytics.TrendOptions{
		Interest: r.URL.Query().Get("interest"),
		Days:     queryInt(r, "days"),
	})
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// HandleClearChild handles DELETE /api/children/{id}/data.
func (h *MemoryHandlers) HandleClearChild(w http.ResponseWriter, r *http.Request) {
	if err := h.svc.ClearChildData(r.Context(), r.PathValue("id")); err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{"cleared": true})
}

func queryInt(r *http.Request, key string) int {
	if raw := r.URL.Query().Get(key); raw != "" {
		if v, err := strconv.Atoi(raw); err == nil {
			return v
		}
	}
	return 0
}

func queryTime(w http.ResponseWriter, r *http.Request, key string) (time.Time, bool) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_TIMESTAMP", key+" must be RFC3339")
		return time.Time{}, false
	}
	return t, true
}

func parseTimestamp(w http.ResponseWriter, raw string) (time.Time, bool) {
	if raw == "" {
		return time.Time{}, true
	}
	t, err := time.Parse(time.RFC3339, raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "BAD_TIMESTAMP", "occurred_at must be RFC3339")
		return time.Time{}, false
	}
	return t, true
}
