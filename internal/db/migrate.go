package db

import (
	"context"
	"fmt"
)

// migrations are applied in order; migrations[i] upgrades user_version i to
// i+1. Steps only create what is missing.
var migrations = []string{
	`
	CREATE TABLE IF NOT EXISTS videos (
		"key" TEXT PRIMARY KEY,
		name TEXT NOT NULL,
		blob BLOB NOT NULL,
		lastModified REAL NOT NULL,
		type TEXT NOT NULL,
		size INTEGER NOT NULL
	);
	CREATE INDEX IF NOT EXISTS videos_name ON videos(name);

	CREATE TABLE IF NOT EXISTS subtitles (
		videoKey TEXT PRIMARY KEY,
		entries TEXT NOT NULL,
		savedAt REAL NOT NULL
	);
	CREATE INDEX IF NOT EXISTS subtitles_videoKey ON subtitles(videoKey);
	`,
	`
	CREATE TABLE IF NOT EXISTS settings (
		"key" TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);
	`,
}

// SchemaVersion is the version a fully migrated database reports.
var SchemaVersion = len(migrations)

func (s *Store) version(ctx context.Context) (int, error) {
	var v int
	if err := s.db.QueryRowContext(ctx, `PRAGMA user_version`).Scan(&v); err != nil {
		return 0, storageErr("read schema version", "", err)
	}
	return v, nil
}

func (s *Store) migrate(ctx context.Context) error {
	current, err := s.version(ctx)
	if err != nil {
		return err
	}
	for v := current; v < len(migrations); v++ {
		tx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			return storageErr("migrate", "", err)
		}
		if _, err := tx.ExecContext(ctx, migrations[v]); err != nil {
			tx.Rollback()
			return storageErr("migrate", "", fmt.Errorf("to version %d: %w", v+1, err))
		}
		// PRAGMA does not accept bound parameters.
		if _, err := tx.ExecContext(ctx, fmt.Sprintf(`PRAGMA user_version = %d`, v+1)); err != nil {
			tx.Rollback()
			return storageErr("migrate", "", fmt.Errorf("to version %d: %w", v+1, err))
		}
		if err := tx.Commit(); err != nil {
			return storageErr("migrate", "", err)
		}
	}
	return nil
}
