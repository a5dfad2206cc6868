// Package auth provides authentication and authorisation for Smart Lighting Core.
//
// It implements a two-role model (user and admin) with:
//   - Argon2id password hashing; bcrypt digests imported from the previous
//     backend still verify and are upgraded on the next login
//   - HS256 JWT access tokens carrying the user id, username and role
//   - Static role-permission mapping (compile-time, no database lookup)
//   - A Service for login, signup, admin registration and user management
//
// Verified tokens become a Principal, which callers pass explicitly to any
// operation that depends on who is acting.
package auth
