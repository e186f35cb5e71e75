package store

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"strings"
)

// migration is a single schema step. Each one is applied exactly once and
// recorded in the schema_version table.
type migration struct {
	Version     int
	Description string
	SQL         string
}

// runMigrations applies all pending migrations for the dialect.
func runMigrations(ctx context.Context, db *sql.DB, d *dialect, logger *slog.Logger) error {
	if _, err := db.ExecContext(ctx, d.versionTableSQL); err != nil {
		return fmt.Errorf("create schema_version table: %w", err)
	}

	current, err := schemaVersion(ctx, db)
	if err != nil {
		return err
	}

	for _, m := range d.migrations {
		if m.Version <= current {
			continue
		}

		logger.Info("applying migration",
			"dialect", d.name,
			"version", m.Version,
			"description", m.Description,
		)

		if err := applyMigration(ctx, db, d, m); err != nil {
			return err
		}

		logger.Info("migration applied", "version", m.Version)
	}

	return nil
}

func applyMigration(ctx context.Context, db *sql.DB, d *dialect, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration v%d: %w", m.Version, err)
	}
	defer tx.Rollback() //nolint:errcheck

	for _, stmt := range splitSQL(m.SQL) {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("migration v%d statement failed: %w\nSQL: %s", m.Version, err, truncate(stmt, 200))
		}
	}

	if _, err := tx.ExecContext(ctx, d.recordVersionSQL, m.Version, m.Description); err != nil {
		return fmt.Errorf("record migration v%d: %w", m.Version, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration v%d: %w", m.Version, err)
	}
	return nil
}

// schemaVersion returns the highest applied migration, or 0 on a fresh database.
func schemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, "SELECT COALESCE(MAX(version), 0) FROM schema_version").Scan(&version); err != nil {
		return 0, fmt.Errorf("query schema version: %w", err)
	}
	return version, nil
}

// SchemaVersion reports the applied schema version.
func (s *Store) SchemaVersion(ctx context.Context) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, s.queryTimeout)
	defer cancel()
	return schemaVersion(ctx, s.db)
}

// LatestSchemaVersion is the version EnsureSchema migrates to.
func (s *Store) LatestSchemaVersion() int {
	latest := 0
	for _, m := range s.dialect.migrations {
		if m.Version > latest {
			latest = m.Version
		}
	}
	return latest
}

// splitSQL splits a multi-statement script on semicolons and drops blanks.
func splitSQL(script string) []string {
	var out []string
	for _, s := range strings.Split(script, ";") {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func truncate(s string, maxLen int) string {
	if len(s) <= maxLen {
		return s
	}
	return s[:maxLen] + "..."
}
