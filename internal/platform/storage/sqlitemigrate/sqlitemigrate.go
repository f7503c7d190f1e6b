// Package sqlitemigrate applies embedded SQL migration files to a SQLite
// database, recording each applied file so reruns are no-ops.
package sqlitemigrate

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"
)

const (
	migrationTable = "schema_migrations"
	upMarker       = "-- +migrate Up"
	downMarker     = "-- +migrate Down"
)

// Migration is one .sql file found under the migration root.
type Migration struct {
	// Key is recorded in schema_migrations; it includes the root prefix.
	Key string
	// Up is the SQL executed when the migration is applied.
	Up string
}

// Load reads every .sql file directly under root, sorted by name.
func Load(migrationFS fs.FS, root string) ([]Migration, error) {
	root = strings.Trim(strings.TrimSpace(root), "/")
	readRoot := root
	if readRoot == "" {
		readRoot = "."
	}
	entries, err := fs.ReadDir(migrationFS, readRoot)
	if err != nil {
		return nil, fmt.Errorf("read migrations dir: %w", err)
	}

	names := make([]string, 0, len(entries))
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			names = append(names, entry.Name())
		}
	}
	sort.Strings(names)

	migrations := make([]Migration, 0, len(names))
	for _, name := range names {
		content, err := fs.ReadFile(migrationFS, path.Join(readRoot, name))
		if err != nil {
			return nil, fmt.Errorf("read migration %s: %w", name, err)
		}
		key := name
		if root != "" {
			key = path.Join(root, name)
		}
		migrations = append(migrations, Migration{Key: key, Up: ExtractUpMigration(string(content))})
	}
	return migrations, nil
}

// ApplyMigrations executes embedded migrations from root at most once per file.
func ApplyMigrations(ctx context.Context, sqlDB *sql.DB, migrationFS fs.FS, root string) error {
	if sqlDB == nil {
		return errors.New("sql db is required")
	}
	if ctx == nil {
		ctx = context.Background()
	}
	migrations, err := Load(migrationFS, root)
	if err != nil {
		return err
	}

	createSQL := `CREATE TABLE IF NOT EXISTS ` + migrationTable + ` (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);`
	if _, err := sqlDB.ExecContext(ctx, createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, migration := range migrations {
		if err := apply(ctx, sqlDB, migration); err != nil {
			return err
		}
	}
	return nil
}

func apply(ctx context.Context, sqlDB *sql.DB, migration Migration) error {
	applied, err := isApplied(ctx, sqlDB, migration.Key)
	if err != nil {
		return fmt.Errorf("check migration %s: %w", migration.Key, err)
	}
	if applied || strings.TrimSpace(migration.Up) == "" {
		return nil
	}

	tx, err := sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin migration %s: %w", migration.Key, err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, migration.Up); err != nil && !IsAlreadyExistsError(err) {
		return fmt.Errorf("exec migration %s: %w", migration.Key, err)
	}
	if _, err := tx.ExecContext(ctx,
		"INSERT OR IGNORE INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
		migration.Key, time.Now().UTC().UnixMilli(),
	); err != nil {
		return fmt.Errorf("record migration %s: %w", migration.Key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit migration %s: %w", migration.Key, err)
	}
	return nil
}

// ExtractUpMigration returns the SQL between the Up and Down markers. Files
// without markers are treated as all-up.
func ExtractUpMigration(content string) string {
	start := strings.Index(content, upMarker)
	if start == -1 {
		return content
	}
	body := content[start+len(upMarker):]
	if end := strings.Index(body, downMarker); end != -1 {
		body = body[:end]
	}
	return body
}

// IsAlreadyExistsError reports whether err indicates idempotent DDL success.
func IsAlreadyExistsError(err error) bool {
	if err == nil {
		return false
	}
	value := strings.ToLower(err.Error())
	return strings.Contains(value, "already exists") || strings.Contains(value, "duplicate column name")
}

func isApplied(ctx context.Context, sqlDB *sql.DB, key string) (bool, error) {
	var found int
	err := sqlDB.QueryRowContext(ctx, "SELECT 1 FROM "+migrationTable+" WHERE name = ?", key).Scan(&found)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}
