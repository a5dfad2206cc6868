package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
)

const defaultAdminUsername = "admin"

// SeedAdmin creates the first admin account when the users table is empty.
//
// With no configured password a random one is generated, logged once at
// WARN and returned so the operator can sign in and change it. The
// returned string is empty when accounts already exist or the password
// came from configuration.
func SeedAdmin(ctx context.Context, users UserRepository, username, password string, logger *slog.Logger) (string, error) {
	n, err := users.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("counting users: %w", err)
	}
	if n > 0 {
		logger.Debug("accounts present, bootstrap admin not needed", "users", n)
		return "", nil
	}

	username = strings.TrimSpace(username)
	if username == "" {
		username = defaultAdminUsername
	}

	var generated string
	if password == "" {
		if generated, err = randomPassword(); err != nil {
			return "", err
		}
		password = generated
	}

	digest, err := HashPassword(password)
	if err != nil {
		return "", fmt.Errorf("hashing bootstrap password: %w", err)
	}
	if err := users.Create(ctx, &User{Username: username, PasswordHash: digest, Role: RoleAdmin}); err != nil {
		return "", fmt.Errorf("creating bootstrap admin %q: %w", username, err)
	}

	if generated == "" {
		logger.Info("bootstrap admin created", "username", username)
		return "", nil
	}
	logger.Warn("bootstrap admin created with a generated password; change it after first login",
		"username", username,
		"password", generated,
	)
	return generated, nil
}

// randomPassword returns 128 random bits as 22 URL-safe characters.
func randomPassword() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating bootstrap password: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}
