package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore is the default, local decision-cache backend: a single-file
// SQLite database, opened with the pure-Go modernc.org/sqlite driver so
// spotfd never needs cgo to ship the feature.
type SQLiteStore struct {
	db *sql.DB
}

// OpenSQLite opens (creating if necessary) a decision cache at path.
func OpenSQLite(path string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite cache %s: %w", path, err)
	}
	if err := initSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &SQLiteStore{db: db}, nil
}

func initSchema(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS dir_decisions (
	dir TEXT PRIMARY KEY,
	walkable INTEGER NOT NULL,
	repo_root TEXT NOT NULL,
	signature TEXT NOT NULL,
	ignore_mtime INTEGER NOT NULL
)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create dir_decisions table: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Get(ctx context.Context, dir string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT walkable, repo_root, signature, ignore_mtime FROM dir_decisions WHERE dir = ?`, dir)

	var walkable int
	var repoRoot, signature string
	var ignoreMTimeUnix int64
	switch err := row.Scan(&walkable, &repoRoot, &signature, &ignoreMTimeUnix); err {
	case nil:
		return Entry{
			Dir:         dir,
			Walkable:    walkable != 0,
			RepoRoot:    repoRoot,
			Signature:   signature,
			IgnoreMTime: time.Unix(ignoreMTimeUnix, 0).UTC(),
		}, true, nil
	case sql.ErrNoRows:
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("query dir_decisions: %w", err)
	}
}

func (s *SQLiteStore) Put(ctx context.Context, e Entry) error {
	walkable := 0
	if e.Walkable {
		walkable = 1
	}
	_, err := s.db.ExecContext(ctx, `
INSERT INTO dir_decisions (dir, walkable, repo_root, signature, ignore_mtime)
VALUES (?, ?, ?, ?, ?)
ON CONFLICT(dir) DO UPDATE SET
	walkable = excluded.walkable,
	repo_root = excluded.repo_root,
	signature = excluded.signature,
	ignore_mtime = excluded.ignore_mtime
`, e.Dir, walkable, e.RepoRoot, e.Signature, e.IgnoreMTime.UTC().Unix())
	if err != nil {
		return fmt.Errorf("upsert dir_decisions: %w", err)
	}
	return nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
