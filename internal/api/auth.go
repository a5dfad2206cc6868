package api

import (
	"net/http"
	"time"

	"github.com/nerrad567/smartlight-core/internal/audit"
	"github.com/nerrad567/smartlight-core/internal/auth"
)

// userSummary is the public view of an account returned by auth and
// user management endpoints.
type userSummary struct {
	ID       int64     `json:"id"`
	Username string    `json:"username"`
	Role     auth.Role `json:"role"`
}

func summarise(u *auth.User) userSummary {
	return userSummary{ID: u.ID, Username: u.Username, Role: u.Role}
}

// profileView adds the creation time to userSummary.
type profileView struct {
	userSummary
	CreatedAt time.Time `json:"createdAt"`
}

// handleLogin exchanges credentials for a bearer token.
func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}
	req.normalise()

	if errs := validateLogin(req); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	result, err := s.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, "login", err)
		return
	}

	s.auditLog(audit.ActionLogin, audit.EntityUser, result.User.ID,
		auth.Principal{UserID: result.User.ID, Username: result.User.Username, Role: result.User.Role}, nil)

	writeSuccess(w, http.StatusOK, "Login successful", map[string]any{
		"token": result.Token,
		"user":  summarise(result.User),
	})
}

// handleSignup creates a self-service account with the user role.
func (s *Server) handleSignup(w http.ResponseWriter, r *http.Request) {
	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}
	req.normalise()

	if errs := validateAccount(req, false); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	user, err := s.auth.Signup(r.Context(), req.Username, req.Password)
	if err != nil {
		s.writeServiceError(w, r, "signup", err)
		return
	}

	s.logger.Info("account created", "user_id", user.ID, "username", user.Username)
	s.auditLog(audit.ActionCreate, audit.EntityUser, user.ID,
		auth.Principal{UserID: user.ID, Username: user.Username, Role: user.Role},
		map[string]any{"username": user.Username, "role": user.Role, "via": "signup"})

	writeSuccess(w, http.StatusCreated, "Account created successfully", map[string]any{
		"user": summarise(user),
	})
}

// handleRegister creates an account with a chosen role on behalf of an admin.
func (s *Server) handleRegister(w http.ResponseWriter, r *http.Request) {
	caller, _ := principalFromContext(r.Context())

	var req credentialsRequest
	if err := decodeJSON(r, &req); err != nil {
		writeBadRequest(w, msgInvalidBody)
		return
	}
	req.normalise()

	if errs := validateAccount(req, true); len(errs) > 0 {
		writeValidationError(w, errs)
		return
	}

	user, err := s.auth.Register(r.Context(), req.Username, req.Password, auth.Role(req.Role))
	if err != nil {
		s.writeServiceError(w, r, "register user", err)
		return
	}

	s.logger.Info("user registered",
		"user_id", user.ID,
		"username", user.Username,
		"role", user.Role,
		"registered_by", caller.Username,
	)
	s.auditLog(audit.ActionCreate, audit.EntityUser, user.ID, caller,
		map[string]any{"username": user.Username, "role": user.Role})

	writeSuccess(w, http.StatusCreated, "User registered successfully", map[string]any{
		"user": summarise(user),
	})
}

// handleProfile returns the caller's own account.
func (s *Server) handleProfile(w http.ResponseWriter, r *http.Request) {
	caller, _ := principalFromContext(r.Context())

	user, err := s.auth.Profile(r.Context(), caller.UserID)
	if err != nil {
		s.writeServiceError(w, r, "load profile", err)
		return
	}

	writeSuccess(w, http.StatusOK, "Profile retrieved successfully", map[string]any{
		"user": profileView{userSummary: summarise(user), CreatedAt: user.CreatedAt},
	})
}
