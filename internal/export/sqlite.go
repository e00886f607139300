package export

import (
	"database/sql"
	"fmt"
	"os"
	"path/filepath"

	_ "modernc.org/sqlite"

	"github.com/sadopc/stint/internal/report"
	"github.com/sadopc/stint/internal/store"
)

const schemaVersion = 1

// ToSQLite writes entries into the SQLite database at path, creating and
// migrating it as needed. Frames are upserted by ID, so exporting into
// the same file again refreshes it. The running session, if exported,
// is stored with a NULL stop and replaced on every export.
func ToSQLite(entries []report.Entry, path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create db directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return fmt.Errorf("open database: %w", err)
	}
	defer db.Close()

	db.SetMaxOpenConns(1)

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys=ON",
		"PRAGMA busy_timeout=5000",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return fmt.Errorf("exec pragma %q: %w", p, err)
		}
	}

	if err := migrate(db); err != nil {
		return fmt.Errorf("migrate: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin export: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(`DELETE FROM frames WHERE id = ?`, store.CurrentID); err != nil {
		return fmt.Errorf("clear running session: %w", err)
	}

	upsert, err := tx.Prepare(`
		INSERT INTO frames (id, project, start, stop, updated_at, duration)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			project = excluded.project,
			start = excluded.start,
			stop = excluded.stop,
			updated_at = excluded.updated_at,
			duration = excluded.duration`)
	if err != nil {
		return fmt.Errorf("prepare frame insert: %w", err)
	}
	defer upsert.Close()

	for _, e := range entries {
		var stop, updated sql.NullInt64
		if !e.Current {
			stop = sql.NullInt64{Int64: e.Stop.Unix(), Valid: true}
			updated = sql.NullInt64{Int64: e.UpdatedAt.Unix(), Valid: true}
		}
		secs := int64(e.Duration().Seconds())
		if _, err := upsert.Exec(e.ID, e.Project, e.Start.Unix(), stop, updated, secs); err != nil {
			return fmt.Errorf("insert frame %s: %w", e.ID, err)
		}
		if _, err := tx.Exec(`DELETE FROM frame_tags WHERE frame_id = ?`, e.ID); err != nil {
			return fmt.Errorf("clear tags of %s: %w", e.ID, err)
		}
		for _, tag := range e.Tags {
			if _, err := tx.Exec(`INSERT INTO frame_tags (frame_id, tag) VALUES (?, ?)`, e.ID, tag); err != nil {
				return fmt.Errorf("insert tag of %s: %w", e.ID, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit export: %w", err)
	}
	return nil
}

func migrate(db *sql.DB) error {
	var version int
	if err := db.QueryRow("PRAGMA user_version").Scan(&version); err != nil {
		return fmt.Errorf("read user_version: %w", err)
	}

	if version >= schemaVersion {
		return nil
	}

	if version < 1 {
		if err := migrateV1(db); err != nil {
			return err
		}
	}

	_, err := db.Exec(fmt.Sprintf("PRAGMA user_version = %d", schemaVersion))
	return err
}

func migrateV1(db *sql.DB) error {
	const ddl = `
	CREATE TABLE IF NOT EXISTS frames (
		id          TEXT PRIMARY KEY,
		project     TEXT NOT NULL,
		start       INTEGER NOT NULL,
		stop        INTEGER,
		updated_at  INTEGER,
		duration    INTEGER NOT NULL DEFAULT 0
	);

	CREATE TABLE IF NOT EXISTS frame_tags (
		frame_id  TEXT NOT NULL REFERENCES frames(id) ON DELETE CASCADE,
		tag       TEXT NOT NULL,
		PRIMARY KEY (frame_id, tag)
	);

	CREATE INDEX IF NOT EXISTS idx_frames_project ON frames(project);
	CREATE INDEX IF NOT EXISTS idx_frames_start   ON frames(start);
	CREATE INDEX IF NOT EXISTS idx_frame_tags_tag ON frame_tags(tag);
	`
	_, err := db.Exec(ddl)
	return err
}
