package api

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/nerrad567/smartlight-core/internal/auth"
	"github.com/nerrad567/smartlight-core/internal/lighting"
)

// Field validation messages.
const (
	msgUsernameRequired = "Username is required"
	msgUsernameShort    = "Username must be at least 3 characters"
	msgPasswordRequired = "Password is required"
	msgPasswordShort    = "Password must be at least 6 characters"
	msgRoleInvalid      = "Role must be either admin or user"
	msgStartDateInvalid = "Start date must be a valid ISO-8601 date"
	msgEndDateInvalid   = "End date must be a valid ISO-8601 date"
	msgSinceInvalid     = "Since must be a valid ISO-8601 date"
	msgUntilInvalid     = "Until must be a valid ISO-8601 date"
)

// Credential length rules.
const (
	minUsernameLength = 3
	minPasswordLength = 6
)

// dateLayouts are the accepted forms of a date query parameter. Values
// without a zone are read as UTC.
var dateLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	"2006-01-02",
}

// fieldError is one entry of the errors array in a validation response.
type fieldError struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

type fieldErrors []fieldError

func (f *fieldErrors) add(field, message string) {
	*f = append(*f, fieldError{Field: field, Message: message})
}

func fromLighting(verr *lighting.ValidationError) fieldErrors {
	out := make(fieldErrors, len(verr.Fields))
	for i, fe := range verr.Fields {
		out[i] = fieldError{Field: fe.Field, Message: fe.Message}
	}
	return out
}

// readBody returns the raw request body. Oversized bodies fail.
func readBody(r *http.Request) ([]byte, error) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		return nil, fmt.Errorf("reading request body: %w", err)
	}
	return body, nil
}

// decodeJSON decodes the request body into v.
func decodeJSON(r *http.Request, v any) error {
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return fmt.Errorf("decoding request body: %w", err)
	}
	return nil
}

// credentialsRequest is the body of login, signup and register.
type credentialsRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
	Role     string `json:"role,omitempty"`
}

// normalise trims the username in place.
func (c *credentialsRequest) normalise() {
	c.Username = strings.TrimSpace(c.Username)
}

func validateLogin(req credentialsRequest) fieldErrors {
	var errs fieldErrors
	if req.Username == "" {
		errs.add("username", msgUsernameRequired)
	}
	if req.Password == "" {
		errs.add("password", msgPasswordRequired)
	}
	return errs
}

// validateAccount checks a new account. The role is checked only when
// withRole is set.
func validateAccount(req credentialsRequest, withRole bool) fieldErrors {
	var errs fieldErrors

	switch {
	case req.Username == "":
		errs.add("username", msgUsernameRequired)
	case utf8.RuneCountInString(req.Username) < minUsernameLength:
		errs.add("username", msgUsernameShort)
	}

	switch {
	case req.Password == "":
		errs.add("password", msgPasswordRequired)
	case utf8.RuneCountInString(req.Password) < minPasswordLength:
		errs.add("password", msgPasswordShort)
	}

	if withRole && req.Role != "" {
		if _, err := auth.ParseRole(req.Role); err != nil {
			errs.add("role", msgRoleInvalid)
		}
	}

	return errs
}

// updateUserRequest is the body of PATCH /api/users/{id}. Nil fields are
// left unchanged.
type updateUserRequest struct {
	Username *string `json:"username,omitempty"`
	Password *string `json:"password,omitempty"`
	Role     *string `json:"role,omitempty"`
}

// toPatch validates the request and converts it to an auth.UserPatch.
// Empty strings are treated as absent.
func (u updateUserRequest) toPatch() (auth.UserPatch, fieldErrors) {
	var (
		patch auth.UserPatch
		errs  fieldErrors
	)

	if u.Username != nil {
		if name := strings.TrimSpace(*u.Username); name != "" {
			if utf8.RuneCountInString(name) < minUsernameLength {
				errs.add("username", msgUsernameShort)
			} else {
				patch.Username = &name
			}
		}
	}
	if u.Password != nil && *u.Password != "" {
		if utf8.RuneCountInString(*u.Password) < minPasswordLength {
			errs.add("password", msgPasswordShort)
		} else {
			patch.Password = u.Password
		}
	}
	if u.Role != nil && *u.Role != "" {
		role, err := auth.ParseRole(*u.Role)
		if err != nil {
			errs.add("role", msgRoleInvalid)
		} else {
			patch.Role = &role
		}
	}

	return patch, errs
}

// parseDate parses a date query parameter in any of dateLayouts.
func parseDate(s string) (time.Time, error) {
	var lastErr error
	for _, layout := range dateLayouts {
		t, err := time.Parse(layout, s)
		if err == nil {
			return t.UTC(), nil
		}
		lastErr = err
	}
	return time.Time{}, lastErr
}

// dateParam parses the optional query parameter name, recording msg
// against it when the value is not a date.
func dateParam(q url.Values, name, msg string, errs *fieldErrors) *time.Time {
	v := q.Get(name)
	if v == "" {
		return nil
	}
	t, err := parseDate(v)
	if err != nil {
		errs.add(name, msg)
		return nil
	}
	return &t
}
