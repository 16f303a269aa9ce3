package graph

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/logging"
)

func testConfig(n int, k float64) config.GeneratorConfig {
	cfg := config.Default().Generator
	cfg.NumUsers = n
	cfg.AvgFollowing = k
	return cfg
}

func build(t *testing.T, cfg config.GeneratorConfig, seed uint64) *Graph {
	t.Helper()
	b := NewBuilder(cfg, rand.New(rand.NewPCG(seed, seed)), nil, nil)
	g, err := b.Build(context.Background())
	if err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	return g
}

func TestClampDegree(t *testing.T) {
	tests := []struct {
		name string
		draw float64
		n    int
		want int
	}{
		{"rounds down", 2.4, 10, 2},
		{"rounds up", 2.6, 10, 3},
		{"zero clamps to one", 0.2, 10, 1},
		{"negative clamps to one", -3.7, 10, 1},
		{"above capacity clamps", 42, 5, 4},
		{"exact capacity", 4, 5, 4},
		{"two users", 10, 2, 1},
		{"NaN clamps to one", math.NaN(), 10, 1},
		{"+Inf clamps to capacity", math.Inf(1), 10, 9},
		{"-Inf clamps to one", math.Inf(-1), 10, 1},
		{"single user", 3, 1, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ClampDegree(tt.draw, tt.n); got != tt.want {
				t.Errorf("ClampDegree(%v, %d) = %d, want %d", tt.draw, tt.n, got, tt.want)
			}
		})
	}
}

func TestBuild_Invariants(t *testing.T) {
	tests := []struct {
		name string
		n    int
		k    float64
	}{
		{"reference", 100, 10},
		{"sparse", 50, 0},
		{"saturated", 6, 40},
		{"pair", 2, 3},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := build(t, testConfig(tt.n, tt.k), 7)

			if g.Size() != tt.n {
				t.Fatalf("Size() = %d, want %d", g.Size(), tt.n)
			}
			for u, targets := range g.Following {
				if len(targets) < 1 || len(targets) > tt.n-1 {
					t.Errorf("user %d follows %d users, want [1, %d]", u, len(targets), tt.n-1)
				}
				seen := make(map[int]bool)
				for _, v := range targets {
					if v == u {
						t.Errorf("user %d follows itself", u)
					}
					if seen[v] {
						t.Errorf("user %d follows %d twice", u, v)
					}
					seen[v] = true
					if !contains(g.Followers[v], u) {
						t.Errorf("edge %d->%d missing from followers of %d", u, v, v)
					}
				}
			}
			for v, followers := range g.Followers {
				for i, u := range followers {
					if !g.Follows(u, v) {
						t.Errorf("follower %d of %d does not follow it", u, v)
					}
					if i > 0 && followers[i-1] >= u {
						t.Errorf("followers of %d not ascending: %v", v, followers)
					}
				}
			}
		})
	}
}

func TestBuild_SaturatedFollowsEveryone(t *testing.T) {
	g := build(t, testConfig(6, 40), 1)
	for u, targets := range g.Following {
		if len(targets) != 5 {
			t.Errorf("user %d follows %d users, want 5", u, len(targets))
		}
	}
}

func TestBuild_MeanDegreeNearTarget(t *testing.T) {
	g := build(t, testConfig(500, 10), 3)
	mean := float64(g.EdgeCount()) / float64(g.Size())
	if mean < 9.5 || mean > 10.5 {
		t.Errorf("mean out-degree = %.2f, want close to 10", mean)
	}
}

func TestBuild_Deterministic(t *testing.T) {
	cfg := testConfig(30, 4)
	a := build(t, cfg, 42)
	b := build(t, cfg, 42)

	for u := range a.Following {
		if len(a.Following[u]) != len(b.Following[u]) {
			t.Fatalf("user %d degree differs between runs", u)
		}
		for i := range a.Following[u] {
			if a.Following[u][i] != b.Following[u][i] {
				t.Fatalf("user %d following differs between runs", u)
			}
		}
	}
}

func TestBuild_EmptyFollowersAreNonNil(t *testing.T) {
	// With minimal degree some users are never followed.
	g := build(t, testConfig(40, 0), 11)
	for u, f := range g.Followers {
		if f == nil {
			t.Errorf("Followers[%d] is nil, want empty slice", u)
		}
	}
}

func TestBuild_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	b := NewBuilder(testConfig(10, 2), rand.New(rand.NewPCG(1, 1)), nil, nil)
	if _, err := b.Build(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Build() error = %v, want context.Canceled", err)
	}
}

func TestBuild_TracesClamps(t *testing.T) {
	dir := t.TempDir()
	trace := logging.NewTraceLogger(dir, "debug")

	// Mean 0 with spread 2 clamps roughly half the draws up to 1.
	b := NewBuilder(testConfig(20, 0), rand.New(rand.NewPCG(5, 5)), nil, trace)
	if _, err := b.Build(context.Background()); err != nil {
		t.Fatalf("Build() error = %v", err)
	}
	trace.Close()

	data, err := os.ReadFile(filepath.Join(dir, logging.TraceFileName))
	if err != nil {
		t.Fatalf("reading trace: %v", err)
	}
	if !strings.Contains(string(data), "degree_clamped") {
		t.Errorf("expected degree_clamped events in trace, got %q", string(data))
	}
}

func TestFollows(t *testing.T) {
	g := &Graph{Following: [][]int{{1}, {}}, Followers: [][]int{{}, {0}}}
	if !g.Follows(0, 1) {
		t.Error("expected 0 to follow 1")
	}
	if g.Follows(1, 0) {
		t.Error("expected 1 not to follow 0")
	}
	if g.Follows(5, 0) || g.Follows(-1, 0) {
		t.Error("out-of-range follower should not follow anyone")
	}
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
