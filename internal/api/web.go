package api

import (
	"net/http"
	"strconv"

	"github.com/nerrad567/smartlight-core/internal/audit"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// handleStatus returns the latest reading and the current configuration.
func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	status, err := s.dashboard.Status(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "load dashboard status", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Dashboard status retrieved successfully", status)
}

// handleLogs returns a page of readings, newest first.
//
// Query parameters:
//   - page: 1-based page number (default 1)
//   - limit: page size (default 50, capped)
//   - startDate, endDate: inclusive bounds, RFC3339 or YYYY-MM-DD
func (s *Server) handleLogs(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	// Unparsable page and limit fall back to their defaults.
	var query lighting.LogQuery
	query.Page, _ = strconv.Atoi(q.Get("page"))
	query.Limit, _ = strconv.Atoi(q.Get("limit"))

	var errs fieldErrors
	query.Start = dateParam(q, "startDate", msgStartDateInvalid, &errs)
	query.End = dateParam(q, "endDate", msgEndDateInvalid, &errs)
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	page, err := s.dashboard.Logs(r.Context(), query)
	if err != nil {
		s.writeServiceError(w, r, "list sensor logs", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Sensor logs retrieved successfully", page)
}

// handleUpdateConfig applies a partial configuration change.
func (s *Server) handleUpdateConfig(w http.ResponseWriter, r *http.Request) {
	caller, _ := principalFromContext(r.Context())

	body, err := readBody(r)
	if err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}

	patch, err := lighting.ParseConfigPatch(body)
	if err != nil {
		s.writeServiceError(w, r, "parse config update", err)
		return
	}

	cfg, err := s.dashboard.UpdateConfig(r.Context(), caller, patch)
	if err != nil {
		s.writeServiceError(w, r, "update config", err)
		return
	}

	s.auditLog(audit.ActionUpdate, audit.EntityConfig, cfg.ID, caller, map[string]any{
		"threshold":   cfg.Threshold,
		"manual_mode": cfg.ManualMode,
		"lamp_status": cfg.LampStatus,
	})

	writeSuccess(w, http.StatusOK, "Configuration updated successfully", map[string]any{
		"config": cfg,
	})
}

// handleStatistics summarises readings over a period (24h, 7d or 30d).
// Unknown periods fall back to 24h.
func (s *Server) handleStatistics(w http.ResponseWriter, r *http.Request) {
	period := lighting.ParsePeriod(r.URL.Query().Get("period"))

	report, err := s.dashboard.Statistics(r.Context(), period)
	if err != nil {
		s.writeServiceError(w, r, "compute statistics", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Statistics retrieved successfully", report)
}
