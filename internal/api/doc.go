// Package api implements the HTTP REST API for Smart Lighting Core.
//
// This package provides:
//   - Unauthenticated device endpoints under /api/device for the lamp controller
//   - Auth endpoints under /api/auth (login, signup, admin registration, profile)
//   - Dashboard endpoints under /api/web (status, logs, statistics, config)
//   - Admin user management under /api/users and the audit trail at /api/audit
//   - Middleware stack (request ID, logging, recovery, CORS, body limit)
//
// Every response uses the envelope {success, message, data?, errors?}.
// Validation failures list each offending field in errors.
//
// # Security
//
// Protected routes require "Authorization: Bearer <token>". The verified
// token becomes an auth.Principal in the request context, and role checks
// go through auth.HasPermission.
package api
