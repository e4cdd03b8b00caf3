package handlers

import (
	"net/http"
	"time"

	"github.com/lumikid/lumikid/internal/services"
)

// ReportHandlers exposes progress report generation.
type ReportHandlers struct {
	reports *services.ReportBuilder
}

// NewReportHandlers creates the report handler set.
func NewReportHandlers(reports *services.ReportBuilder) *ReportHandlers {
	return &ReportHandlers{reports: reports}
}

type reportRequest struct {
	ChildID    string `json:"child_id"`
	ReportType string `json:"report_type,omitempty"`
	StartDate  string `json:"start_date,omitempty"` // RFC3339
	EndDate    string `json:"end_date,omitempty"`   // RFC3339
	Format     string `json:"format,omitempty"`     // json | markdown
}

// HandleGenerateReport handles POST /api/report/generate. The covered period
// comes from start_date/end_date when both are given, defaulting to the last
// 30 days.
func (h *ReportHandlers) HandleGenerateReport(w http.ResponseWriter, r *http.Request) {
	var req reportRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, "BAD_JSON", err.Error())
		return
	}
	if req.ChildID == "" {
		writeError(w, http.StatusBadRequest, "VALIDATION", "child_id is required")
		return
	}

	days := 0
	if req.StartDate != "" && req.EndDate != "" {
		start, ok := parseTimestamp(w, req.StartDate)
		if !ok {
			return
		}
		end, ok := parseTimestamp(w, req.EndDate)
		if !ok {
			return
		}
		days = int(end.Sub(start) / (24 * time.Hour))
		if days <= 0 {
			writeError(w, http.StatusBadRequest, "VALIDATION", "end_date must be after start_date")
			return
		}
	}

	report, err := h.reports.Build(r.Context(), req.ChildID, days)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	if req.Format == "markdown" {
		w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
		_, _ = w.Write([]byte(report.Markdown()))
		return
	}
	writeJSON(w, http.StatusOK, report)
}
