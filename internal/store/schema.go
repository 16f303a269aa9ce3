package store

import (
	"context"
	"database/sql"
	"fmt"
)

// SchemaVersion is the schema version written by this build.
const SchemaVersion = 1

// schemaV1 is the initial schema for the SQLite sink.
const schemaV1 = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    seed TEXT NOT NULL,          -- decimal uint64, may exceed INTEGER range
    users INTEGER NOT NULL,
    edges INTEGER NOT NULL,
    posts INTEGER NOT NULL,
    created_at TEXT NOT NULL
);

CREATE TABLE IF NOT EXISTS users (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    policy TEXT NOT NULL,        -- JSON array
    PRIMARY KEY (run_id, id)
);

-- follower follows followee; position keeps the draw order
CREATE TABLE IF NOT EXISTS follows (
    run_id TEXT NOT NULL,
    follower INTEGER NOT NULL,
    followee INTEGER NOT NULL,
    position INTEGER NOT NULL,
    PRIMARY KEY (run_id, follower, followee),
    FOREIGN KEY (run_id, follower) REFERENCES users(run_id, id) ON DELETE CASCADE,
    FOREIGN KEY (run_id, followee) REFERENCES users(run_id, id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_follows_followee ON follows(run_id, followee);

CREATE TABLE IF NOT EXISTS posts (
    run_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    author INTEGER NOT NULL,
    idx INTEGER NOT NULL,
    time REAL NOT NULL,
    PRIMARY KEY (run_id, seq),
    FOREIGN KEY (run_id, author) REFERENCES users(run_id, id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_time ON posts(run_id, time);

CREATE TABLE IF NOT EXISTS schema_version (
    version INTEGER PRIMARY KEY,
    applied_at TEXT NOT NULL
);
`

// InitSchema creates the tables on a fresh database. An existing database
// is integrity-checked and must not be from a newer socialgen.
func InitSchema(ctx context.Context, db *sql.DB) error {
	version, err := getSchemaVersion(ctx, db)
	if err != nil {
		// No schema_version table: fresh database.
		if err := createSchema(ctx, db); err != nil {
			return fmt.Errorf("creating schema: %w", err)
		}
		return nil
	}

	if err := ValidateIntegrity(ctx, db); err != nil {
		return fmt.Errorf("checking database integrity: %w", err)
	}
	if version > SchemaVersion {
		return fmt.Errorf("database schema version %d is newer than supported version %d", version, SchemaVersion)
	}
	return nil
}

func getSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var version int
	if err := db.QueryRowContext(ctx, `SELECT MAX(version) FROM schema_version`).Scan(&version); err != nil {
		return 0, err
	}
	return version, nil
}

func createSchema(ctx context.Context, db *sql.DB) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, schemaV1); err != nil {
		return fmt.Errorf("creating tables: %w", err)
	}
	if _, err := tx.ExecContext(ctx,
		`INSERT INTO schema_version (version, applied_at) VALUES (?, datetime('now'))`,
		SchemaVersion); err != nil {
		return fmt.Errorf("recording schema version: %w", err)
	}
	return tx.Commit()
}

// ValidateIntegrity runs PRAGMA integrity_check and PRAGMA foreign_key_check
// and reports the first problem found.
func ValidateIntegrity(ctx context.Context, db *sql.DB) error {
	var result string
	if err := db.QueryRowContext(ctx, `PRAGMA integrity_check`).Scan(&result); err != nil {
		return fmt.Errorf("running integrity_check: %w", err)
	}
	if result != "ok" {
		return fmt.Errorf("integrity_check: %s", result)
	}

	rows, err := db.QueryContext(ctx, `PRAGMA foreign_key_check`)
	if err != nil {
		return fmt.Errorf("running foreign_key_check: %w", err)
	}
	defer rows.Close()

	var violations []string
	for rows.Next() {
		var table, parent string
		var rowid sql.NullInt64
		var fkid int
		if err := rows.Scan(&table, &rowid, &parent, &fkid); err != nil {
			return fmt.Errorf("scanning foreign_key_check row: %w", err)
		}
		violations = append(violations, fmt.Sprintf("%s row %d -> %s", table, rowid.Int64, parent))
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("reading foreign_key_check: %w", err)
	}
	if len(violations) > 0 {
		return fmt.Errorf("foreign_key_check: %d violation(s): %v", len(violations), violations)
	}
	return nil
}
