package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"github.com/tabular/shotsmarts/internal/exposure"
	"github.com/tabular/shotsmarts/internal/storage/migrations"
)

const migrationTable = "schema_migrations"

// SQLiteBackend stores one row per record.
type SQLiteBackend struct {
	sqlDB *sql.DB
}

func NewSQLiteBackend(path string) (*SQLiteBackend, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("storage path is required")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	dsn := filepath.Clean(path) + "?_journal_mode=WAL&_busy_timeout=5000&_synchronous=NORMAL"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &SQLiteBackend{sqlDB: sqlDB}, nil
}

func (s *SQLiteBackend) Name() string { return "sqlite" }

func (s *SQLiteBackend) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteBackend) Load(ctx context.Context) ([]Record, error) {
	rows, err := s.sqlDB.QueryContext(ctx, `
SELECT id, name, date_ms, notes, light_condition, iso, scene_mode,
       aperture, shutter_speed, metering_mode, exposure_compensation
FROM records
ORDER BY date_ms DESC
`)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []Record
	for rows.Next() {
		var (
			rec                    Record
			id                     string
			dateMS                 int64
			light, scene, metering string
		)
		if err := rows.Scan(&id, &rec.Name, &dateMS, &rec.Notes, &light, &rec.ISO, &scene,
			&rec.Aperture, &rec.ShutterSpeed, &metering, &rec.ExposureCompensation); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		if rec.ID, err = uuid.Parse(id); err != nil {
			return nil, fmt.Errorf("%w: record id %q: %v", ErrCorrupt, id, err)
		}
		if rec.LightCondition, err = exposure.ParseLightCondition(light); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrCorrupt, id, err)
		}
		if rec.SceneMode, err = exposure.ParseSceneMode(scene); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrCorrupt, id, err)
		}
		if rec.MeteringMode, err = exposure.ParseMeteringMode(metering); err != nil {
			return nil, fmt.Errorf("%w: record %s: %v", ErrCorrupt, id, err)
		}
		rec.Date = time.UnixMilli(dateMS).UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// Save replaces all rows in one transaction.
func (s *SQLiteBackend) Save(ctx context.Context, records []Record) error {
	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM records`); err != nil {
		return fmt.Errorf("clear records: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
INSERT INTO records (
	id, name, date_ms, notes, light_condition, iso, scene_mode,
	aperture, shutter_speed, metering_mode, exposure_compensation
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
`)
	if err != nil {
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, rec := range records {
		if _, err := stmt.ExecContext(ctx,
			rec.ID.String(),
			rec.Name,
			rec.Date.UTC().UnixMilli(),
			rec.Notes,
			string(rec.LightCondition),
			rec.ISO,
			string(rec.SceneMode),
			rec.Aperture,
			rec.ShutterSpeed,
			string(rec.MeteringMode),
			rec.ExposureCompensation,
		); err != nil {
			return fmt.Errorf("insert record %s: %w", rec.ID, err)
		}
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO meta (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		lastSavedKey, time.Now().UTC().Format(time.RFC3339Nano),
	); err != nil {
		return fmt.Errorf("record save time: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

func (s *SQLiteBackend) LastSaved(ctx context.Context) (time.Time, error) {
	var value string
	err := s.sqlDB.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, lastSavedKey).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return time.Time{}, nil
		}
		return time.Time{}, fmt.Errorf("read save time: %w", err)
	}
	return time.Parse(time.RFC3339Nano, value)
}

// applyMigrations runs every embedded .sql file once, in name order.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var files []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			files = append(files, entry.Name())
		}
	}
	sort.Strings(files)

	if _, err := sqlDB.Exec(fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`, migrationTable)); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range files {
		var found int
		err := sqlDB.QueryRow("SELECT 1 FROM "+migrationTable+" WHERE name = ?", file).Scan(&found)
		if err == nil {
			continue
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("check migration %s: %w", file, err)
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.Begin()
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(upSection(string(content))); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(
			"INSERT INTO "+migrationTable+" (name, applied_at) VALUES (?, ?)",
			file, time.Now().UTC().UnixMilli(),
		); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}

// upSection returns the SQL between "-- +migrate Up" and "-- +migrate Down".
func upSection(content string) string {
	const up, down = "-- +migrate Up", "-- +migrate Down"
	start := strings.Index(content, up)
	if start == -1 {
		return content
	}
	content = content[start+len(up):]
	if end := strings.Index(content, down); end != -1 {
		content = content[:end]
	}
	return content
}
