// Package migrations applies the grading schema's SQL files in order,
// tracking what's already applied in a schema_migrations table so boot
// can call RunMigrations unconditionally.
package migrations

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"autograder/pkg/logger"
)

// RunMigrations executes all pending .sql files under migrationsPath in
// lexical order, each inside its own transaction.
func RunMigrations(db *sql.DB, migrationsPath string, log *logger.Logger) error {
	if _, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS schema_migrations (
			version     VARCHAR(255) PRIMARY KEY,
			applied_at  TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)
	`); err != nil {
		return fmt.Errorf("creating schema_migrations table: %w", err)
	}

	files, err := os.ReadDir(migrationsPath)
	if err != nil {
		return fmt.Errorf("reading migrations directory: %w", err)
	}

	var versions []string
	for _, f := range files {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".sql") {
			versions = append(versions, f.Name())
		}
	}
	sort.Strings(versions)

	for _, filename := range versions {
		version := strings.TrimSuffix(filename, ".sql")

		var applied bool
		if err := db.QueryRow(
			`SELECT EXISTS(SELECT 1 FROM schema_migrations WHERE version = $1);`, version,
		).Scan(&applied); err != nil {
			return fmt.Errorf("checking migration status for %s: %w", version, err)
		}
		if applied {
			continue
		}

		if err := applyMigration(db, migrationsPath, filename, version); err != nil {
			return err
		}
		log.Info().Str("version", version).Msg("applied migration")
	}

	return nil
}

func applyMigration(db *sql.DB, migrationsPath, filename, version string) error {
	content, err := os.ReadFile(filepath.Join(migrationsPath, filename))
	if err != nil {
		return fmt.Errorf("reading migration file %s: %w", filename, err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("beginning transaction for %s: %w", version, err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(string(content)); err != nil {
		return fmt.Errorf("executing migration %s: %w", filename, err)
	}
	if _, err := tx.Exec(`INSERT INTO schema_migrations (version) VALUES ($1);`, version); err != nil {
		return fmt.Errorf("recording migration %s: %w", version, err)
	}

	return tx.Commit()
}
