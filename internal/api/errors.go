package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/nerrad567/smartlight-core/internal/auth"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// Client-facing messages shared across handlers.
const (
	msgInvalidBody       = "Invalid request body"
	msgValidationFailed  = "Validation failed"
	msgNoToken           = "No token provided"
	msgInvalidToken      = "Invalid or expired token"
	msgAdminRequired     = "Admin access required"
	msgInvalidCredential = "Invalid credentials"
	msgUserNotFound      = "User not found"
	msgUsernameExists    = "Username already exists"
	msgSelfRoleChange    = "Cannot change your own role"
	msgSelfDeletion      = "Cannot delete your own account"
	msgNotFound          = "Endpoint not found"
	msgMethodNotAllowed  = "Method not allowed"
	msgInternal          = "Internal server error"
)

// envelope is the body of every JSON response.
type envelope struct {
	Success bool         `json:"success"`
	Message string       `json:"message"`
	Data    any          `json:"data,omitempty"`
	Errors  []fieldError `json:"errors,omitempty"`
}

// writeJSON writes a JSON response with the given status code and payload.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		//nolint:errcheck // Best-effort write to response; connection may be closed
		json.NewEncoder(w).Encode(v)
	}
}

// writeSuccess writes a success envelope. A nil data omits the field.
func writeSuccess(w http.ResponseWriter, status int, message string, data any) {
	writeJSON(w, status, envelope{Success: true, Message: message, Data: data})
}

// writeError writes a failure envelope.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, envelope{Success: false, Message: message})
}

// writeValidationError writes a 400 envelope listing every field problem.
func writeValidationError(w http.ResponseWriter, errs fieldErrors) {
	writeJSON(w, http.StatusBadRequest, envelope{
		Success: false,
		Message: msgValidationFailed,
		Errors:  errs,
	})
}

// writeBadRequest writes a 400 error response.
func writeBadRequest(w http.ResponseWriter, message string) {
	writeError(w, http.StatusBadRequest, message)
}

// writeUnauthorized writes a 401 error response.
func writeUnauthorized(w http.ResponseWriter, message string) {
	writeError(w, http.StatusUnauthorized, message)
}

// writeForbidden writes a 403 error response.
func writeForbidden(w http.ResponseWriter, message string) {
	writeError(w, http.StatusForbidden, message)
}

// writeNotFound writes a 404 error response.
func writeNotFound(w http.ResponseWriter, message string) {
	writeError(w, http.StatusNotFound, message)
}

// writeConflict writes a 409 error response.
func writeConflict(w http.ResponseWriter, message string) {
	writeError(w, http.StatusConflict, message)
}

// writeInternalError writes a 500 error response.
func writeInternalError(w http.ResponseWriter) {
	writeError(w, http.StatusInternalServerError, msgInternal)
}

// writeServiceError maps a domain error onto its response. Unrecognised
// errors are logged with op and become a generic 500.
func (s *Server) writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var verr *lighting.ValidationError

	switch {
	case errors.As(err, &verr):
		writeValidationError(w, fromLighting(verr))
	case errors.Is(err, lighting.ErrMalformedPayload):
		writeBadRequest(w, msgInvalidBody)
	case errors.Is(err, auth.ErrInvalidRole):
		writeValidationError(w, fieldErrors{{Field: "role", Message: msgRoleInvalid}})
	case errors.Is(err, auth.ErrInvalidCredentials):
		writeUnauthorized(w, msgInvalidCredential)
	case errors.Is(err, auth.ErrTokenExpired), errors.Is(err, auth.ErrTokenInvalid):
		writeUnauthorized(w, msgInvalidToken)
	case errors.Is(err, auth.ErrForbidden):
		writeForbidden(w, msgAdminRequired)
	case errors.Is(err, auth.ErrSelfRoleChange):
		writeForbidden(w, msgSelfRoleChange)
	case errors.Is(err, auth.ErrSelfDeletion):
		writeForbidden(w, msgSelfDeletion)
	case errors.Is(err, auth.ErrUserNotFound):
		writeNotFound(w, msgUserNotFound)
	case errors.Is(err, auth.ErrUsernameExists):
		writeConflict(w, msgUsernameExists)
	default:
		s.logger.Error(op+" failed",
			"error", err,
			"method", r.Method,
			"path", r.URL.Path,
			"request_id", requestID(r.Context()),
		)
		writeInternalError(w)
	}
}
