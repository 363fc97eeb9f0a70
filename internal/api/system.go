package api

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/nerrad567/pushgate/internal/audit"
	"github.com/nerrad567/pushgate/internal/push"
)

// HealthResponse is the body of /nodejs/health/check: the manager stats
// plus the usual status field.
type HealthResponse struct {
	Status  string `json:"status"`
	Version string `json:"version,omitempty"`
	push.Stats
}

// handleHealthCheck reports manager statistics.
func (s *Server) handleHealthCheck(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, HealthResponse{
		Status:  statusSuccess,
		Version: s.version,
		Stats:   s.manager.Stats(),
	})
}

// debugRequest is the body of /nodejs/debug/toggle.
type debugRequest struct {
	Debug *bool `json:"debug"`
}

// handleDebugToggle switches debug logging at runtime. A body with a debug
// field sets that state; an empty body or one without the field flips it.
func (s *Server) handleDebugToggle(w http.ResponseWriter, r *http.Request) {
	var req debugRequest
	if _, err := readJSON(r, &req); err != nil && !errors.Is(err, errBodyRequired) {
		writeBodyError(w, err)
		return
	}

	var debug bool
	if req.Debug != nil {
		debug = *req.Debug
		s.logger.SetDebug(debug)
	} else {
		debug = s.logger.ToggleDebug()
	}

	s.logger.Info("debug logging changed", "debug", debug)
	s.record("debug", audit.EntitySystem, "", "", map[string]any{"debug": debug})
	writeSuccess(w, map[string]any{"debug": debug})
}

// handleListAuditLogs returns paginated audit log entries with optional filters.
//
// Query parameters:
//   - action: filter by action (create, delete, join, kick, ...)
//   - entity_type: filter by entity type (channel, user, auth_token, ...)
//   - entity_id: filter by specific entity ID
//   - uid: filter by user id
//   - limit: max results (default 50, max 200)
//   - offset: pagination offset
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		writeFailed(w, http.StatusServiceUnavailable, "Audit logging is not configured.")
		return
	}

	q := r.URL.Query()
	filter := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
		UserID:     q.Get("uid"),
	}

	if v := q.Get("limit"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Limit = n
		}
	}
	if v := q.Get("offset"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			filter.Offset = n
		}
	}

	result, err := s.auditRepo.List(r.Context(), filter)
	if err != nil {
		s.logger.Error("failed to list audit logs", "error", err)
		writeFailed(w, http.StatusInternalServerError, msgInternal)
		return
	}

	writeSuccess(w, map[string]any{
		"logs":   result.Logs,
		"total":  result.Total,
		"limit":  result.Limit,
		"offset": result.Offset,
	})
}
