package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/models"

	_ "modernc.org/sqlite" // SQLite driver
)

// createdAtLayout is fixed-width so created_at sorts chronologically as TEXT.
const createdAtLayout = "2006-01-02T15:04:05.000000000Z"

// SQLiteSink stores datasets in a single SQLite database file.
type SQLiteSink struct {
	db     *sql.DB
	dbPath string
	now    func() time.Time
}

// NewSQLiteSink opens (creating if needed) the database at path.
func NewSQLiteSink(ctx context.Context, path string) (*SQLiteSink, error) {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create database directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(1) // SQLite works best with single writer

	if err := InitSchema(ctx, db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return &SQLiteSink{db: db, dbPath: path, now: time.Now}, nil
}

// Name implements Sink.
func (s *SQLiteSink) Name() string { return "sqlite" }

// Path returns the database file path.
func (s *SQLiteSink) Path() string { return s.dbPath }

// Save implements Sink. The whole dataset is written in one transaction.
func (s *SQLiteSink) Save(ctx context.Context, run Run, ds *models.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM runs WHERE run_id = ?`, run.ID); err != nil {
		return fmt.Errorf("failed to replace run: %w", err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO runs (run_id, seed, users, edges, posts, created_at) VALUES (?, ?, ?, ?, ?, ?)`,
		run.ID, strconv.FormatUint(run.Seed, 10), len(ds.Users), ds.EdgeCount(), ds.PostCount(),
		s.now().UTC().Format(createdAtLayout)); err != nil {
		return fmt.Errorf("failed to insert run: %w", err)
	}

	userStmt, err := tx.PrepareContext(ctx, `INSERT INTO users (run_id, id, policy) VALUES (?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare user insert: %w", err)
	}
	defer userStmt.Close()

	for _, u := range ds.Users {
		policy, err := encodePolicy(u.Policy)
		if err != nil {
			return err
		}
		if _, err := userStmt.ExecContext(ctx, run.ID, u.ID, policy); err != nil {
			return fmt.Errorf("failed to insert user %d: %w", u.ID, err)
		}
	}

	followStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO follows (run_id, follower, followee, position) VALUES (?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare follow insert: %w", err)
	}
	defer followStmt.Close()

	postStmt, err := tx.PrepareContext(ctx,
		`INSERT INTO posts (run_id, seq, author, idx, time) VALUES (?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare post insert: %w", err)
	}
	defer postStmt.Close()

	for _, u := range ds.Users {
		for pos, target := range u.Following {
			if _, err := followStmt.ExecContext(ctx, run.ID, u.ID, target, pos); err != nil {
				return fmt.Errorf("failed to insert follow %d->%d: %w", u.ID, target, err)
			}
		}
		for _, p := range u.Posts {
			if _, err := postStmt.ExecContext(ctx, run.ID, p.Seq, p.Author, p.Index, p.Time); err != nil {
				return fmt.Errorf("failed to insert post %d: %w", p.Seq, err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit run: %w", err)
	}
	return nil
}

// Load implements Source. Followers are rebuilt from the follows table in
// ascending follower order.
func (s *SQLiteSink) Load(ctx context.Context, runID string) (*models.Dataset, error) {
	if runID == "" {
		err := s.db.QueryRowContext(ctx,
			`SELECT run_id FROM runs ORDER BY created_at DESC, run_id LIMIT 1`).Scan(&runID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRunNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("failed to find latest run: %w", err)
		}
	}

	var n int
	err := s.db.QueryRowContext(ctx, `SELECT users FROM runs WHERE run_id = ?`, runID).Scan(&n)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to query run: %w", err)
	}

	ds := &models.Dataset{Users: make([]models.User, n)}
	for i := range ds.Users {
		ds.Users[i] = models.User{ID: i, Following: []int{}, Followers: []int{}, Posts: []models.Post{}}
	}

	if err := s.loadUsers(ctx, runID, ds); err != nil {
		return nil, err
	}
	if err := s.loadFollows(ctx, runID, ds); err != nil {
		return nil, err
	}
	if err := s.loadPosts(ctx, runID, ds); err != nil {
		return nil, err
	}
	return ds, nil
}

func (s *SQLiteSink) loadUsers(ctx context.Context, runID string, ds *models.Dataset) error {
	rows, err := s.db.QueryContext(ctx, `SELECT id, policy FROM users WHERE run_id = ? ORDER BY id`, runID)
	if err != nil {
		return fmt.Errorf("failed to query users: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int
		var policy string
		if err := rows.Scan(&id, &policy); err != nil {
			return fmt.Errorf("failed to scan user: %w", err)
		}
		u := ds.User(id)
		if u == nil {
			return fmt.Errorf("user %d outside run of %d users", id, len(ds.Users))
		}
		if u.Policy, err = decodePolicy(policy); err != nil {
			return err
		}
	}
	return rows.Err()
}

func (s *SQLiteSink) loadFollows(ctx context.Context, runID string, ds *models.Dataset) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT follower, followee FROM follows WHERE run_id = ? ORDER BY follower, position`, runID)
	if err != nil {
		return fmt.Errorf("failed to query follows: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var follower, followee int
		if err := rows.Scan(&follower, &followee); err != nil {
			return fmt.Errorf("failed to scan follow: %w", err)
		}
		src, dst := ds.User(follower), ds.User(followee)
		if src == nil || dst == nil {
			return fmt.Errorf("follow %d->%d outside run of %d users", follower, followee, len(ds.Users))
		}
		src.Following = append(src.Following, followee)
		dst.Followers = append(dst.Followers, follower)
	}
	return rows.Err()
}

func (s *SQLiteSink) loadPosts(ctx context.Context, runID string, ds *models.Dataset) error {
	rows, err := s.db.QueryContext(ctx,
		`SELECT seq, author, idx, time FROM posts WHERE run_id = ? ORDER BY author, idx`, runID)
	if err != nil {
		return fmt.Errorf("failed to query posts: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p models.Post
		if err := rows.Scan(&p.Seq, &p.Author, &p.Index, &p.Time); err != nil {
			return fmt.Errorf("failed to scan post: %w", err)
		}
		u := ds.User(p.Author)
		if u == nil {
			return fmt.Errorf("post %d authored outside run of %d users", p.Seq, len(ds.Users))
		}
		u.Posts = append(u.Posts, p)
	}
	return rows.Err()
}

// Runs implements Source.
func (s *SQLiteSink) Runs(ctx context.Context) ([]RunInfo, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT run_id, seed, users, edges, posts, created_at FROM runs ORDER BY created_at DESC, run_id`)
	if err != nil {
		return nil, fmt.Errorf("failed to query runs: %w", err)
	}
	defer rows.Close()

	var runs []RunInfo
	for rows.Next() {
		var info RunInfo
		var seed, created string
		if err := rows.Scan(&info.ID, &seed, &info.Users, &info.Edges, &info.Posts, &created); err != nil {
			return nil, fmt.Errorf("failed to scan run: %w", err)
		}
		if info.Seed, err = strconv.ParseUint(seed, 10, 64); err != nil {
			return nil, fmt.Errorf("run %s has malformed seed %q: %w", info.ID, seed, err)
		}
		if info.CreatedAt, err = time.Parse(createdAtLayout, created); err != nil {
			return nil, fmt.Errorf("run %s has malformed created_at %q: %w", info.ID, created, err)
		}
		runs = append(runs, info)
	}
	return runs, rows.Err()
}

// Close implements Sink.
func (s *SQLiteSink) Close() error {
	return s.db.Close()
}

func encodePolicy(policy []float64) (string, error) {
	if policy == nil {
		policy = []float64{}
	}
	data, err := json.Marshal(policy)
	if err != nil {
		return "", fmt.Errorf("failed to encode policy: %w", err)
	}
	return string(data), nil
}

func decodePolicy(s string) ([]float64, error) {
	var policy []float64
	if err := json.Unmarshal([]byte(s), &policy); err != nil {
		return nil, fmt.Errorf("failed to decode policy: %w", err)
	}
	if len(policy) == 0 {
		return nil, nil
	}
	return policy, nil
}
