package store

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/nvandessel/socialgen/internal/models"
)

// postgresSchema mirrors the SQLite schema.
const postgresSchema = `
CREATE TABLE IF NOT EXISTS runs (
    run_id TEXT PRIMARY KEY,
    seed TEXT NOT NULL,
    users INTEGER NOT NULL,
    edges INTEGER NOT NULL,
    posts INTEGER NOT NULL,
    created_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS users (
    run_id TEXT NOT NULL REFERENCES runs(run_id) ON DELETE CASCADE,
    id INTEGER NOT NULL,
    policy JSONB NOT NULL,
    PRIMARY KEY (run_id, id)
);
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
    time DOUBLE PRECISION NOT NULL,
    PRIMARY KEY (run_id, seq),
    FOREIGN KEY (run_id, author) REFERENCES users(run_id, id) ON DELETE CASCADE
);
CREATE INDEX IF NOT EXISTS idx_posts_time ON posts(run_id, time);
`

// PostgresSink stores datasets in PostgreSQL, queuing inserts in
// pgx.Batch round-trips of batchSize statements.
type PostgresSink struct {
	pool      *pgxpool.Pool
	batchSize int
}

// NewPostgresSink connects to dsn and ensures the tables exist.
func NewPostgresSink(ctx context.Context, dsn string, batchSize int) (*PostgresSink, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, fmt.Errorf("parse dsn: %w", err)
	}
	cfg.MaxConns = 4
	// Every row is inserted with the same few statements.
	cfg.ConnConfig.DefaultQueryExecMode = pgx.QueryExecModeCacheStatement

	pool, err := pgxpool.NewWithConfig(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("connect: %w", err)
	}
	if _, err := pool.Exec(ctx, postgresSchema, pgx.QueryExecModeSimpleProtocol); err != nil {
		pool.Close()
		return nil, fmt.Errorf("create tables: %w", err)
	}

	if batchSize < 1 {
		batchSize = 1
	}
	return &PostgresSink{pool: pool, batchSize: batchSize}, nil
}

// Name implements Sink.
func (s *PostgresSink) Name() string { return "postgres" }

// Save implements Sink. All batches run inside one transaction.
func (s *PostgresSink) Save(ctx context.Context, run Run, ds *models.Dataset) error {
	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback(ctx)

	if _, err := tx.Exec(ctx, `DELETE FROM runs WHERE run_id = $1`, run.ID); err != nil {
		return fmt.Errorf("replace run: %w", err)
	}
	if _, err := tx.Exec(ctx,
		`INSERT INTO runs (run_id, seed, users, edges, posts, created_at) VALUES ($1,$2,$3,$4,$5,$6)`,
		run.ID, strconv.FormatUint(run.Seed, 10), len(ds.Users), ds.EdgeCount(), ds.PostCount(), time.Now().UTC()); err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	send := func(b *pgx.Batch) error {
		br := tx.SendBatch(ctx, b)
		for i := 0; i < b.Len(); i++ {
			if _, err := br.Exec(); err != nil {
				_ = br.Close()
				return fmt.Errorf("batch exec: %w", err)
			}
		}
		if err := br.Close(); err != nil {
			return fmt.Errorf("batch close: %w", err)
		}
		return nil
	}

	if err := queueDataset(run.ID, ds, s.batchSize, send); err != nil {
		return err
	}
	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// queueDataset queues one INSERT per user, follow and post, handing each
// full batch to send. Users are queued first so foreign keys resolve.
func queueDataset(runID string, ds *models.Dataset, batchSize int, send func(*pgx.Batch) error) error {
	batch := &pgx.Batch{}
	// flush sends the accumulated INSERTs and resets the batch.
	flush := func() error {
		if batch.Len() == 0 {
			return nil
		}
		if err := send(batch); err != nil {
			return err
		}
		batch = &pgx.Batch{}
		return nil
	}
	queue := func(sql string, args ...any) error {
		batch.Queue(sql, args...)
		if batch.Len() >= batchSize {
			return flush()
		}
		return nil
	}

	for _, u := range ds.Users {
		policy, err := encodePolicy(u.Policy)
		if err != nil {
			return err
		}
		if err := queue(`INSERT INTO users (run_id, id, policy) VALUES ($1,$2,$3)`, runID, u.ID, policy); err != nil {
			return err
		}
	}
	// Follows reference both endpoints, so every user must be flushed first.
	if err := flush(); err != nil {
		return err
	}

	for _, u := range ds.Users {
		for pos, target := range u.Following {
			if err := queue(`INSERT INTO follows (run_id, follower, followee, position) VALUES ($1,$2,$3,$4)`,
				runID, u.ID, target, pos); err != nil {
				return err
			}
		}
		for _, p := range u.Posts {
			if err := queue(`INSERT INTO posts (run_id, seq, author, idx, time) VALUES ($1,$2,$3,$4,$5)`,
				runID, p.Seq, p.Author, p.Index, p.Time); err != nil {
				return err
			}
		}
	}
	return flush()
}

// Close implements Sink.
func (s *PostgresSink) Close() error {
	s.pool.Close()
	return nil
}
