// Package generator runs one end-to-end dataset generation: it seeds the
// random stream, builds the follow graph, draws post streams and assembles
// the canonical dataset. All generation finishes before any I/O happens.
package generator

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"time"

	"github.com/goccy/go-json"
	"github.com/google/uuid"
	"github.com/nvandessel/socialgen/internal/assembly"
	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/logging"
	"github.com/nvandessel/socialgen/internal/models"
	"github.com/nvandessel/socialgen/internal/posts"
)

// runNamespace scopes run ids so they cannot collide with other
// name-based UUIDs derived from the same bytes.
var runNamespace = uuid.NewSHA1(uuid.NameSpaceURL, []byte("https://github.com/nvandessel/socialgen/runs"))

// pcgStream is the second PCG word. It is fixed so the seed alone
// determines the stream.
const pcgStream = 0x9e3779b97f4a7c15

// Options carries optional collaborators for a run.
type Options struct {
	// Logger receives operational output. Nil discards it.
	Logger *slog.Logger

	// Trace receives per-decision generation events. Nil disables tracing.
	Trace *logging.TraceLogger

	// Clock supplies the seed when the configuration has none. Defaults to time.Now.
	Clock func() time.Time
}

// Result is the outcome of a successful run.
type Result struct {
	Dataset *models.Dataset

	// Seed is the seed actually used, whether configured or clock-derived.
	Seed uint64

	// RunID identifies the (seed, generator parameters) pair. Identical
	// runs get identical ids.
	RunID uuid.UUID

	Degrees graph.Degrees
}

// Run validates cfg and generates a dataset.
func Run(ctx context.Context, cfg *config.SocialgenConfig, opts Options) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	logger := opts.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	gc := cfg.Generator
	seed := resolveSeed(gc, opts.Clock)
	if gc.Seed == nil {
		logger.Info("no seed configured, using clock-derived seed", "seed", seed)
	} else {
		logger.Debug("using configured seed", "seed", seed)
	}
	rng := NewRand(seed)

	g, err := graph.NewBuilder(gc, rng, logger, opts.Trace).Build(ctx)
	if err != nil {
		return nil, fmt.Errorf("building follow graph: %w", err)
	}

	streams, err := posts.NewGenerator(gc, rng, logger, opts.Trace).Generate(ctx)
	if err != nil {
		return nil, fmt.Errorf("generating posts: %w", err)
	}

	ds, err := assembly.NewAssembler().WithPolicySize(gc.PolicySize).WithTrace(opts.Trace).Assemble(g, streams)
	if err != nil {
		return nil, err
	}

	runID, err := RunID(gc, seed)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Dataset: ds,
		Seed:    seed,
		RunID:   runID,
		Degrees: graph.ComputeDegrees(g),
	}
	logger.Info("generated dataset",
		"run_id", runID.String(),
		"users", len(ds.Users),
		"edges", ds.EdgeCount(),
		"posts", ds.PostCount(),
	)
	return result, nil
}

// NewRand returns the generator's random stream for seed.
func NewRand(seed uint64) *rand.Rand {
	return rand.New(rand.NewPCG(seed, pcgStream))
}

// RunID derives a name-based UUID from the generator parameters with the
// seed resolved.
func RunID(gc config.GeneratorConfig, seed uint64) (uuid.UUID, error) {
	gc.Seed = &seed
	name, err := json.Marshal(gc)
	if err != nil {
		return uuid.Nil, fmt.Errorf("deriving run id: %w", err)
	}
	return uuid.NewSHA1(runNamespace, name), nil
}

func resolveSeed(gc config.GeneratorConfig, clock func() time.Time) uint64 {
	if gc.Seed != nil {
		return *gc.Seed
	}
	if clock == nil {
		clock = time.Now
	}
	return uint64(clock().UnixNano())
}
