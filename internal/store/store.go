// Package store loads generated datasets into databases so they can be
// queried with SQL. Every sink stores any number of runs side by side,
// keyed by run id.
package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/models"
)

// ErrRunNotFound is returned by Load when the requested run is absent.
var ErrRunNotFound = errors.New("run not found")

// Run identifies one generation run.
type Run struct {
	ID   string
	Seed uint64
}

// RunInfo summarizes a stored run.
type RunInfo struct {
	ID        string    `json:"run_id"`
	Seed      uint64    `json:"seed"`
	Users     int       `json:"users"`
	Edges     int       `json:"edges"`
	Posts     int       `json:"posts"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives a generated dataset.
type Sink interface {
	// Name identifies the sink in logs, e.g. "sqlite".
	Name() string

	// Save stores ds under run, replacing any earlier copy of the same run.
	Save(ctx context.Context, run Run, ds *models.Dataset) error

	Close() error
}

// Source reads stored datasets back.
type Source interface {
	// Load returns the dataset of runID, or of the most recent run when
	// runID is empty.
	Load(ctx context.Context, runID string) (*models.Dataset, error)

	// Runs lists stored runs, most recent first.
	Runs(ctx context.Context) ([]RunInfo, error)
}

// OpenSinks opens every sink enabled in cfg. On error, sinks already
// opened are closed.
func OpenSinks(ctx context.Context, cfg config.SinksConfig, logger *slog.Logger) ([]Sink, error) {
	var sinks []Sink

	if cfg.SQLitePath != "" {
		s, err := NewSQLiteSink(ctx, cfg.SQLitePath)
		if err != nil {
			return nil, err
		}
		sinks = append(sinks, s)
	}

	if cfg.PostgresDSN != "" {
		s, err := NewPostgresSink(ctx, cfg.PostgresDSN, cfg.BatchSize)
		if err != nil {
			closeAll(sinks, logger)
			return nil, fmt.Errorf("postgres sink %s: %w", cfg.RedactedDSN(), err)
		}
		sinks = append(sinks, s)
	}

	return sinks, nil
}

// SaveAll saves ds to each sink in order and stops at the first failure.
func SaveAll(ctx context.Context, sinks []Sink, run Run, ds *models.Dataset, logger *slog.Logger) error {
	for _, s := range sinks {
		start := time.Now()
		if err := s.Save(ctx, run, ds); err != nil {
			return fmt.Errorf("saving run to %s: %w", s.Name(), err)
		}
		logger.Info("saved dataset", "sink", s.Name(), "run_id", run.ID, "duration", time.Since(start))
	}
	return nil
}

// CloseAll closes every sink, logging failures.
func CloseAll(sinks []Sink, logger *slog.Logger) {
	closeAll(sinks, logger)
}

func closeAll(sinks []Sink, logger *slog.Logger) {
	for _, s := range sinks {
		if err := s.Close(); err != nil {
			logger.Warn("closing sink", "sink", s.Name(), "error", err)
		}
	}
}
