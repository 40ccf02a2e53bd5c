package store

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"log/slog"
	"sort"
	"strings"

	"github.com/alextreichler/estatehub/migrations"
)

// Migrate runs all .sql files in files in lexical order, skipping the
// ones already recorded in schema_migrations.
func (s *Store) Migrate(ctx context.Context, files fs.FS) error {
	appliedAtType := "DATETIME"
	if s.dialect == DialectPostgres {
		appliedAtType = "TIMESTAMPTZ"
	}
	_, err := s.DB.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (
		version TEXT PRIMARY KEY,
		applied_at `+appliedAtType+` DEFAULT CURRENT_TIMESTAMP
	);`)
	if err != nil {
		return fmt.Errorf("failed to create schema_migrations table: %w", err)
	}

	entries, err := fs.ReadDir(files, ".")
	if err != nil {
		return fmt.Errorf("failed to read migrations: %w", err)
	}

	var migrationFiles []string
	for _, f := range entries {
		if !f.IsDir() && strings.HasSuffix(f.Name(), ".sql") {
			migrationFiles = append(migrationFiles, f.Name())
		}
	}
	sort.Strings(migrationFiles) // 001, 002, ...

	for _, file := range migrationFiles {
		if s.isApplied(ctx, file) {
			slog.Debug("Skipping already applied migration", "file", file)
			continue
		}

		slog.Info("Applying migration", "file", file)
		content, err := fs.ReadFile(files, file)
		if err != nil {
			return fmt.Errorf("failed to read migration file %s: %w", file, err)
		}

		err = s.withTx(ctx, func(tx *sql.Tx) error {
			if _, err := tx.ExecContext(ctx, string(content)); err != nil {
				return err
			}
			_, err := s.exec(ctx, tx, `INSERT INTO schema_migrations (version) VALUES (?)`, file)
			return err
		})
		if err != nil {
			// Re-adding an existing column is treated as already applied.
			if !strings.Contains(err.Error(), "duplicate column name") && !strings.Contains(err.Error(), "already exists") {
				return fmt.Errorf("failed to execute migration %s: %w", file, err)
			}
			slog.Warn("Migration objects already exist, marking as applied", "file", file)
			if _, err := s.exec(ctx, s.DB, `INSERT INTO schema_migrations (version) VALUES (?)`, file); err != nil {
				return fmt.Errorf("failed to record migration %s: %w", file, err)
			}
		}
	}

	return nil
}

func (s *Store) isApplied(ctx context.Context, version string) bool {
	var exists int
	err := s.queryRow(ctx, s.DB, `SELECT 1 FROM schema_migrations WHERE version = ?`, version).Scan(&exists)
	return err == nil
}

// Open connects to the database and applies the embedded migrations for the
// dialect. A bare SQLite file path is expanded with SQLiteDSN.
func Open(ctx context.Context, dialect, dsn string) (*Store, error) {
	if dialect == DialectSQLite && !strings.HasPrefix(dsn, "file:") {
		dsn = SQLiteDSN(dsn)
	}
	s, err := NewStore(dialect, dsn)
	if err != nil {
		return nil, err
	}
	files, err := migrations.For(dialect)
	if err != nil {
		s.Close()
		return nil, err
	}
	if err := s.Migrate(ctx, files); err != nil {
		s.Close()
		return nil, err
	}
	return s, nil
}
