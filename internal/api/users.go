package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/nerrad567/smartlight-core/internal/audit"
)

// userIDParam parses the {id} URL parameter. ok is false when it is not
// a positive integer.
func userIDParam(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id < 1 {
		return 0, false
	}
	return id, true
}

// handleListUsers returns all user accounts, newest first.
func (s *Server) handleListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := s.auth.ListUsers(r.Context())
	if err != nil {
		s.writeServiceError(w, r, "list users", err)
		return
	}

	writeSuccess(w, http.StatusOK, "Users retrieved successfully", map[string]any{
		"users": users,
	})
}

// handleUpdateUser modifies username, password or role of an account.
func (s *Server) handleUpdateUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := principalFromContext(r.Context())

	id, ok := userIDParam(r)
	if !ok {
		writeNotFound(w, msgUserNotFound)
		return
	}

	var req updateUserRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}

	patch, errs := req.toPatch()
	if len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	user, err := s.auth.UpdateUser(r.Context(), caller, id, patch)
	if err != nil {
		s.writeServiceError(w, r, "update user", err)
		return
	}

	details := map[string]any{}
	if patch.Username != nil {
		details["username"] = user.Username
	}
	if patch.Role != nil {
		details["role"] = user.Role
	}
	if patch.Password != nil {
		details["password_changed"] = true
	}

	s.logger.Info("user updated", "user_id", user.ID, "updated_by", caller.Username)
	s.auditLog(audit.ActionUpdate, audit.EntityUser, user.ID, caller, details)

	writeSuccess(w, http.StatusOK, "User updated successfully", map[string]any{
		"user": summarise(user),
	})
}

// handleDeleteUser removes an account. Admins cannot delete themselves.
func (s *Server) handleDeleteUser(w http.ResponseWriter, r *http.Request) {
	caller, _ := principalFromContext(r.Context())

	id, ok := userIDParam(r)
	if !ok {
		writeNotFound(w, msgUserNotFound)
		return
	}

	if err := s.auth.DeleteUser(r.Context(), caller, id); err != nil {
		s.writeServiceError(w, r, "delete user", err)
		return
	}

	s.logger.Info("user deleted", "user_id", id, "deleted_by", caller.Username)
	s.auditLog(audit.ActionDelete, audit.EntityUser, id, caller, nil)

	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}
