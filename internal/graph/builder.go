// Package graph builds the directed follow relation of a synthetic network.
//
// An edge a->b means "a follows b". Out-degrees are drawn from a normal
// distribution around the configured mean and clamped so every user follows
// at least one other user and nobody follows more than everyone else.
package graph

import (
	"context"
	"log/slog"
	"math"
	"math/rand/v2"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/logging"
)

// Graph holds the follow relation and its inverse, indexed by user id.
type Graph struct {
	// Following[u] lists the users u follows, in draw order.
	Following [][]int

	// Followers[u] lists the users following u, in ascending id order.
	Followers [][]int
}

// Size returns the number of users in the graph.
func (g *Graph) Size() int {
	return len(g.Following)
}

// Follows reports whether a follows b.
func (g *Graph) Follows(a, b int) bool {
	if a < 0 || a >= len(g.Following) {
		return false
	}
	for _, t := range g.Following[a] {
		if t == b {
			return true
		}
	}
	return false
}

// Builder draws follow graphs from a shared random stream.
type Builder struct {
	cfg    config.GeneratorConfig
	rng    *rand.Rand
	logger *slog.Logger
	trace  *logging.TraceLogger
}

// NewBuilder creates a Builder. The rng is owned by the caller and is
// advanced by every Build call; logger and trace may be nil.
func NewBuilder(cfg config.GeneratorConfig, rng *rand.Rand, logger *slog.Logger, trace *logging.TraceLogger) *Builder {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Builder{cfg: cfg, rng: rng, logger: logger, trace: trace}
}

// Build draws an out-degree for every user in id order, samples that many
// distinct targets, then inverts every edge to fill Followers.
// The configuration is assumed validated (NumUsers >= 2).
func (b *Builder) Build(ctx context.Context) (*Graph, error) {
	n := b.cfg.NumUsers
	g := &Graph{
		Following: make([][]int, n),
		Followers: make([][]int, n),
	}

	for u := 0; u < n; u++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		draw := b.cfg.AvgFollowing + b.cfg.FollowingStdDev*b.rng.NormFloat64()
		d := ClampDegree(draw, n)
		g.Following[u] = b.sampleTargets(u, d)

		b.logger.Log(ctx, logging.LevelTrace, "drew out-degree", "user", u, "draw", draw, "degree", d)
		if float64(d) != math.Round(draw) {
			b.trace.Log("degree_clamped", map[string]any{"user": u, "draw": draw, "degree": d})
		}
	}

	for u, targets := range g.Following {
		for _, t := range targets {
			g.Followers[t] = append(g.Followers[t], u)
		}
	}
	for u := range g.Followers {
		if g.Followers[u] == nil {
			g.Followers[u] = []int{}
		}
	}

	b.logger.Debug("built follow graph", "users", n, "edges", g.EdgeCount())
	return g, nil
}

// ClampDegree rounds a raw normal draw to the nearest integer and clamps it
// to [1, n-1]. For n < 2 it returns 0: there is nobody to follow.
func ClampDegree(draw float64, n int) int {
	if n < 2 {
		return 0
	}
	d := math.Round(draw)
	if math.IsNaN(d) || d < 1 {
		return 1
	}
	if d > float64(n-1) {
		return n - 1
	}
	return int(d)
}

// sampleTargets picks k distinct ids from [0, n) \ {self} without
// replacement using a partial Fisher-Yates shuffle over the candidate list.
func (b *Builder) sampleTargets(self, k int) []int {
	n := b.cfg.NumUsers
	candidates := make([]int, 0, n-1)
	for id := 0; id < n; id++ {
		if id != self {
			candidates = append(candidates, id)
		}
	}

	for i := 0; i < k; i++ {
		j := i + b.rng.IntN(len(candidates)-i)
		candidates[i], candidates[j] = candidates[j], candidates[i]
	}
	return candidates[:k:k]
}

// EdgeCount returns the number of follow edges.
func (g *Graph) EdgeCount() int {
	n := 0
	for _, f := range g.Following {
		n += len(f)
	}
	return n
}
