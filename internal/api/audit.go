package api

import (
	"context"
	"net/http"
	"strconv"

	"github.com/nerrad567/smartlight-core/internal/audit"
	"github.com/nerrad567/smartlight-core/internal/auth"
)

// auditChanSize bounds the queue between handlers and the audit writer.
// A full queue drops the entry.
const auditChanSize = 256

// auditLog queues an entry attributed to actor. It never blocks the request.
// Entries arriving after Close are dropped and counted.
func (s *Server) auditLog(action, entityType string, entityID int64, actor auth.Principal, details map[string]any) {
	if s.auditCh == nil {
		return
	}

	uid := actor.UserID
	e := &audit.Entry{
		Action:     action,
		EntityType: entityType,
		EntityID:   strconv.FormatInt(entityID, 10),
		UserID:     &uid,
		Username:   actor.Username,
		Details:    details,
	}

	s.auditMu.RLock()
	defer s.auditMu.RUnlock()
	if s.auditStopped {
		s.auditDropped.Add(1)
		s.logger.Warn("audit writer stopped, entry dropped", "action", action, "entity_type", entityType)
		return
	}
	select {
	case s.auditCh <- e:
	default:
		s.auditDropped.Add(1)
		s.logger.Warn("audit queue full, entry dropped", "action", action, "entity_type", entityType)
	}
}

// stopAudit refuses further entries. It waits for senders already inside
// auditLog, so the final drain sees everything that was queued.
func (s *Server) stopAudit() {
	s.auditMu.Lock()
	s.auditStopped = true
	s.auditMu.Unlock()
}

// drainAuditLog writes queued entries one at a time. Once ctx is done it
// empties the queue and returns.
func (s *Server) drainAuditLog(ctx context.Context) {
	for {
		select {
		case e := <-s.auditCh:
			s.recordAudit(e)
		case <-ctx.Done():
			for len(s.auditCh) > 0 {
				s.recordAudit(<-s.auditCh)
			}
			return
		}
	}
}

func (s *Server) recordAudit(e *audit.Entry) {
	// The request that produced e has already finished.
	if err := s.auditRepo.Record(context.Background(), e); err != nil {
		s.logger.Error("writing audit entry", "action", e.Action, "entity_type", e.EntityType, "error", err)
	}
}

// handleListAuditLogs filters the audit trail by action, entity_type,
// entity_id and an inclusive since/until window, paged with limit and
// offset.
func (s *Server) handleListAuditLogs(w http.ResponseWriter, r *http.Request) {
	if s.auditRepo == nil {
		s.logger.Error("audit listing requested without a repository")
		writeInternalError(w)
		return
	}

	q := r.URL.Query()
	f := audit.Filter{
		Action:     q.Get("action"),
		EntityType: q.Get("entity_type"),
		EntityID:   q.Get("entity_id"),
	}
	// Unparsable paging values fall back to the defaults.
	f.Limit, _ = strconv.Atoi(q.Get("limit"))
	f.Offset, _ = strconv.Atoi(q.Get("offset"))

	var errs fieldErrors
	if t := dateParam(q, "since", msgSinceInvalid, &errs); t != nil {
		f.Since = *t
	}
	if t := dateParam(q, "until", msgUntilInvalid, &errs); t != nil {
		f.Until = *t
	}
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	page, err := s.auditRepo.List(r.Context(), f)
	if err != nil {
		s.writeServiceError(w, r, "list audit logs", err)
		return
	}
	writeSuccess(w, http.StatusOK, "Audit logs retrieved successfully", page)
}
