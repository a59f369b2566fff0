package cache

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"
)

// PostgresStore is the opt-in shared decision-cache backend: useful when a
// team shares a filesystem (e.g. a mounted monorepo) and wants warm
// decisions across machines, not just across invocations on one machine.
type PostgresStore struct {
	db *sql.DB
}

// OpenPostgres connects to dsn and ensures the cache table exists.
func OpenPostgres(dsn string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres cache: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping postgres cache: %w", err)
	}
	if err := initPostgresSchema(db); err != nil {
		db.Close()
		return nil, err
	}
	return &PostgresStore{db: db}, nil
}

func initPostgresSchema(db *sql.DB) error {
	const ddl = `
CREATE TABLE IF NOT EXISTS spotfd_dir_decisions (
	dir TEXT PRIMARY KEY,
	walkable BOOLEAN NOT NULL,
	repo_root TEXT NOT NULL,
	signature TEXT NOT NULL,
	ignore_mtime TIMESTAMPTZ NOT NULL
)`
	if _, err := db.Exec(ddl); err != nil {
		return fmt.Errorf("create spotfd_dir_decisions table: %w", err)
	}
	return nil
}

func (s *PostgresStore) Get(ctx context.Context, dir string) (Entry, bool, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT walkable, repo_root, signature, ignore_mtime FROM spotfd_dir_decisions WHERE dir = $1`, dir)

	var e Entry
	e.Dir = dir
	var mtime time.Time
	switch err := row.Scan(&e.Walkable, &e.RepoRoot, &e.Signature, &mtime); err {
	case nil:
		e.IgnoreMTime = mtime.UTC()
		return e, true, nil
	case sql.ErrNoRows:
		return Entry{}, false, nil
	default:
		return Entry{}, false, fmt.Errorf("query spotfd_dir_decisions: %w", err)
	}
}

func (s *PostgresStore) Put(ctx context.Context, e Entry) error {
	_, err := s.db.ExecContext(ctx, `
INSERT INTO spotfd_dir_decisions (dir, walkable, repo_root, signature, ignore_mtime)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (dir) DO UPDATE SET
	walkable = excluded.walkable,
	repo_root = excluded.repo_root,
	signature = excluded.signature,
	ignore_mtime = excluded.ignore_mtime
`, e.Dir, e.Walkable, e.RepoRoot, e.Signature, e.IgnoreMTime.UTC())
	if err != nil {
		return fmt.Errorf("upsert spotfd_dir_decisions: %w", err)
	}
	return nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}
