// Package database provides SQLite database connectivity for Smart Lighting Core.
//
// This package manages:
//   - Database connection with WAL mode and foreign keys enabled
//   - Schema migrations embedded in the binary (see the migrations package)
//   - Connection lifecycle and health checks
//
// SQLite allows a single writer, so the pool is capped at one open
// connection. Read-modify-write sequences that run inside a transaction
// are therefore serialised across the whole process.
//
// Usage:
//
//	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
//	if err != nil {
//	    return err
//	}
//	defer db.Close()
//
//	if err := db.Migrate(ctx); err != nil {
//	    return err
//	}
//
// Migration files are named YYYYMMDD_HHMMSS_description.{up,down}.sql.
package database
