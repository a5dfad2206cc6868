package main

import (
	"context"
	"fmt"
	"io"

	"github.com/nerrad567/smartlight-core/internal/infrastructure/config"
	"github.com/nerrad567/smartlight-core/internal/infrastructure/database"
)

const migrateUsage = "usage: smartlight migrate [up|down|status]"

// runMigrate handles "smartlight migrate <action>" against the configured
// database without starting the server.
func runMigrate(ctx context.Context, args []string, out io.Writer) error {
	action := "up"
	if len(args) > 0 {
		action = args[0]
	}
	if len(args) > 1 {
		return fmt.Errorf("unexpected arguments %v\n%s", args[1:], migrateUsage)
	}

	cfg, err := config.Load(getConfigPath())
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	db, err := database.Open(ctx, database.FromConfig(cfg.Database))
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer db.Close() //nolint:errcheck // process exits next

	switch action {
	case "up":
		if err := db.Migrate(ctx); err != nil {
			return err
		}
		fmt.Fprintln(out, "migrations applied")
		return nil

	case "down":
		version, err := db.Rollback(ctx)
		if err != nil {
			return err
		}
		if version == "" {
			fmt.Fprintln(out, "nothing to roll back")
			return nil
		}
		fmt.Fprintf(out, "rolled back %s\n", version)
		return nil

	case "status":
		status, err := db.MigrationStatus(ctx)
		if err != nil {
			return err
		}
		for _, a := range status.Applied {
			fmt.Fprintf(out, "applied  %s  %s\n", a.Version, a.AppliedAt.Format("2006-01-02 15:04:05"))
		}
		for _, p := range status.Pending {
			fmt.Fprintf(out, "pending  %s  %s\n", p.Version, p.Name)
		}
		return nil

	default:
		return fmt.Errorf("unknown migrate action %q\n%s", action, migrateUsage)
	}
}
