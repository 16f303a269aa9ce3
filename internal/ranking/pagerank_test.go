package ranking

import (
	"context"
	"errors"
	"math"
	"testing"

	"github.com/nvandessel/socialgen/internal/graph"
)

// newGraph builds a graph from following lists, deriving followers.
func newGraph(following [][]int) *graph.Graph {
	g := &graph.Graph{
		Following: following,
		Followers: make([][]int, len(following)),
	}
	for u, targets := range following {
		for _, t := range targets {
			g.Followers[t] = append(g.Followers[t], u)
		}
	}
	return g
}

func TestComputePageRank_EmptyGraph(t *testing.T) {
	scores, err := ComputePageRank(context.Background(), newGraph(nil), DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(scores) != 0 {
		t.Errorf("expected no scores for empty graph, got %d", len(scores))
	}
}

func TestComputePageRank_SingleNode(t *testing.T) {
	scores, err := ComputePageRank(context.Background(), newGraph([][]int{{}}), DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if math.Abs(scores[0]-1.0) > 0.001 {
		t.Errorf("single node PageRank = %f, want 1.0", scores[0])
	}
}

func TestComputePageRank_Star(t *testing.T) {
	// Users 1..4 all follow 0; 0 follows 1.
	g := newGraph([][]int{{1}, {0}, {0}, {0}, {0}})

	scores, err := ComputePageRank(context.Background(), g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if math.Abs(scores[0]-1.0) > 0.001 {
		t.Errorf("hub PageRank = %f, want 1.0 (normalized max)", scores[0])
	}
	if scores[1] <= scores[2] {
		t.Errorf("user followed by the hub (%f) should outrank a leaf (%f)", scores[1], scores[2])
	}
	for u := 2; u < 5; u++ {
		if math.Abs(scores[u]-scores[2]) > 1e-9 {
			t.Errorf("leaves should tie: scores[%d]=%f scores[2]=%f", u, scores[u], scores[2])
		}
	}
}

func TestComputePageRank_Cycle(t *testing.T) {
	// 0 -> 1 -> 2 -> 0: symmetric, every user ranks equally.
	g := newGraph([][]int{{1}, {2}, {0}})

	scores, err := ComputePageRank(context.Background(), g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for u, s := range scores {
		if math.Abs(s-1.0) > 0.001 {
			t.Errorf("scores[%d] = %f, want 1.0", u, s)
		}
	}
}

func TestComputePageRank_DanglingUser(t *testing.T) {
	// User 2 follows nobody; its rank is spread instead of lost.
	g := newGraph([][]int{{2}, {2}, {}})

	scores, err := ComputePageRank(context.Background(), g, DefaultPageRankConfig())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if scores[2] != 1.0 {
		t.Errorf("scores[2] = %f, want 1.0", scores[2])
	}
	if scores[0] <= 0 || scores[1] <= 0 {
		t.Errorf("all users should keep positive rank: %v", scores)
	}
}

func TestComputePageRank_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := ComputePageRank(ctx, newGraph([][]int{{1}, {0}}), DefaultPageRankConfig())
	if !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}
