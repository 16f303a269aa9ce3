// Package posts draws per-user post streams: how many posts each user
// authors and when, as sorted timestamps in [0, duration).
package posts

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"
	"sort"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/logging"
)

var timeScale = math.Pow10(constants.TimePrecision)

// Generator draws post timestamps from a shared random stream.
type Generator struct {
	cfg    config.GeneratorConfig
	rng    *rand.Rand
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// NewGenerator creates a Generator. The rng is owned by the caller; logger
// and trace may be nil.
func NewGenerator(cfg config.GeneratorConfig, rng *rand.Rand, logger *slog.Logger, trace *logging.TraceLogger) *Generator {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Generator{cfg: cfg, rng: rng, logger: logger, trace: trace}
}

// Generate returns, for every user in id order, a non-decreasing list of
// timestamps. Users are independent: there is no ordering across users.
func (g *Generator) Generate(ctx context.Context) ([][]float64, error) {
	streams := make([][]float64, g.cfg.NumUsers)
	total := 0
	for u := range streams {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		streams[u] = g.userStream()
		total += len(streams[u])

		g.logger.Log(ctx, logging.LevelTrace, "drew post stream", "user", u, "posts", len(streams[u]))
		g.trace.Log("post_stream", map[string]any{"user": u, "posts": len(streams[u])})
	}

	g.logger.Debug("generated post streams", "users", len(streams), "posts", total)
	return streams, nil
}

// userStream draws a count in [MinPosts, MaxPosts], that many uniform
// times in [0, duration), sorts them and rounds each to the time grid.
func (g *Generator) userStream() []float64 {
	count := g.cfg.MinPosts + g.rng.IntN(g.cfg.MaxPosts-g.cfg.MinPosts+1)

	times := make([]float64, count)
	for i := range times {
		times[i] = g.rng.Float64() * g.cfg.SimulationDuration
	}
	sort.Float64s(times)

	for i, t := range times {
		times[i] = RoundTime(t, g.cfg.SimulationDuration)
	}
	return times
}

// RoundTime rounds t to constants.TimePrecision decimal places. If rounding
// would reach duration the value is floored instead, keeping it in
// [0, duration). Rounding stays monotone, so sorted input stays sorted.
func RoundTime(t, duration float64) float64 {
	r := math.Round(t*timeScale) / timeScale
	if r >= duration {
		r = math.Floor(t*timeScale) / timeScale
	}
	return r
}
