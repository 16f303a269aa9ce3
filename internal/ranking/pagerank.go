// Package ranking scores users of a generated network by structural
// influence, for inspecting what a dataset looks like before it is fed
// to a diffusion simulator.
package ranking

import (
	"context"
	"math"

	"github.com/nvandessel/socialgen/internal/graph"
)

// PageRankConfig holds configuration for PageRank computation.
type PageRankConfig struct {
	// DampingFactor (d) is the probability of following an edge vs. teleporting.
	// Standard value: 0.85.
	DampingFactor float64

	// MaxIterations is the maximum number of power iteration steps. Default: 100.
	MaxIterations int

	// Tolerance is the convergence threshold. Default: 1e-6.
	Tolerance float64
}

// DefaultPageRankConfig returns the default PageRank configuration.
func DefaultPageRankConfig() PageRankConfig {
	return PageRankConfig{
		DampingFactor: 0.85,
		MaxIterations: 100,
		Tolerance:     1e-6,
	}
}

// ComputePageRank calculates PageRank scores for every user in g.
// Returns one score per user id, normalized so the highest is 1.0.
//
// Rank flows along follow edges: when a follows b, a passes part of its
// rank to b, so users with many well-followed followers rank highest.
// Users that follow nobody spread their rank uniformly.
//
// Algorithm: Standard power iteration
//  1. Initialize all nodes with score = 1/N
//  2. For each iteration:
//     PR(v) = (1-d)/N + d * (sum(PR(u)/outDegree(u)) for u following v + dangling/N)
//  3. Converge when max change < Tolerance
//  4. Normalize to [0, 1] range
func ComputePageRank(ctx context.Context, g *graph.Graph, config PageRankConfig) ([]float64, error) {
	n := g.Size()
	if n == 0 {
		return []float64{}, nil
	}

	d := config.DampingFactor
	nf := float64(n)
	scores := make([]float64, n)
	for i := range scores {
		scores[i] = 1.0 / nf
	}

	for iter := 0; iter < config.MaxIterations; iter++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		dangling := 0.0
		for u, targets := range g.Following {
			if len(targets) == 0 {
				dangling += scores[u]
			}
		}

		newScores := make([]float64, n)
		maxDelta := 0.0
		for v := range newScores {
			sum := dangling / nf
			for _, u := range g.Followers[v] {
				if u < 0 || u >= n || len(g.Following[u]) == 0 {
					continue
				}
				sum += scores[u] / float64(len(g.Following[u]))
			}

			newScores[v] = (1.0-d)/nf + d*sum
			if delta := math.Abs(newScores[v] - scores[v]); delta > maxDelta {
				maxDelta = delta
			}
		}

		scores = newScores
		if maxDelta < config.Tolerance {
			break
		}
	}

	// Normalize to [0, 1] by dividing by max score.
	maxScore := 0.0
	for _, score := range scores {
		if score > maxScore {
			maxScore = score
		}
	}
	if maxScore > 0 {
		for i := range scores {
			scores[i] /= maxScore
		}
	}

	return scores, nil
}
