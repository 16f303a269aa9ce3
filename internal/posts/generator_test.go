package posts

import (
	"context"
	"errors"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/nvandessel/socialgen/internal/config"
)

func testConfig(n, minPosts, maxPosts int, duration float64) config.GeneratorConfig {
	cfg := config.Default().Generator
	cfg.NumUsers = n
	cfg.MinPosts = minPosts
	cfg.MaxPosts = maxPosts
	cfg.SimulationDuration = duration
	return cfg
}

func generate(t *testing.T, cfg config.GeneratorConfig, seed uint64) [][]float64 {
	t.Helper()
	g := NewGenerator(cfg, rand.New(rand.NewPCG(seed, seed)), nil, nil)
	streams, err := g.Generate(context.Background())
	if err != nil {
		t.Fatalf("Generate() error = %v", err)
	}
	return streams
}

func TestRoundTime(t *testing.T) {
	tests := []struct {
		name     string
		t        float64
		duration float64
		want     float64
	}{
		{"rounds down", 6.554, 100, 6.55},
		{"rounds up", 6.556, 100, 6.56},
		{"zero", 0, 100, 0},
		{"just below duration floors", 99.996, 100, 99.99},
		{"below duration unaffected", 99.994, 100, 99.99},
		{"odd duration", 10.0049, 10.005, 10},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RoundTime(tt.t, tt.duration)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RoundTime(%v, %v) = %v, want %v", tt.t, tt.duration, got, tt.want)
			}
			if got >= tt.duration {
				t.Errorf("RoundTime(%v, %v) = %v, must be < duration", tt.t, tt.duration, got)
			}
		})
	}
}

func TestGenerate_Invariants(t *testing.T) {
	cfg := testConfig(50, 10, 50, 1000)
	streams := generate(t, cfg, 9)

	if len(streams) != 50 {
		t.Fatalf("got %d streams, want 50", len(streams))
	}
	for u, times := range streams {
		if len(times) < 10 || len(times) > 50 {
			t.Errorf("user %d has %d posts, want [10, 50]", u, len(times))
		}
		for i, ts := range times {
			if ts < 0 || ts >= 1000 {
				t.Errorf("user %d post %d time %v outside [0, 1000)", u, i, ts)
			}
			if i > 0 && ts < times[i-1] {
				t.Errorf("user %d times not sorted at %d: %v < %v", u, i, ts, times[i-1])
			}
			if r := math.Round(ts*100) / 100; r != ts {
				t.Errorf("user %d time %v not rounded to 2 decimals", u, ts)
			}
		}
	}
}

func TestGenerate_FixedCount(t *testing.T) {
	streams := generate(t, testConfig(5, 2, 2, 100), 42)
	for u, times := range streams {
		if len(times) != 2 {
			t.Errorf("user %d has %d posts, want exactly 2", u, len(times))
		}
	}
}

func TestGenerate_ZeroPosts(t *testing.T) {
	streams := generate(t, testConfig(4, 0, 0, 100), 1)
	for u, times := range streams {
		if len(times) != 0 {
			t.Errorf("user %d has %d posts, want 0", u, len(times))
		}
	}
}

func TestGenerate_CountsCoverRange(t *testing.T) {
	streams := generate(t, testConfig(400, 1, 3, 10), 2)
	seen := make(map[int]bool)
	for _, times := range streams {
		seen[len(times)] = true
	}
	for c := 1; c <= 3; c++ {
		if !seen[c] {
			t.Errorf("post count %d never drawn; MaxPosts must be inclusive", c)
		}
	}
}

func TestGenerate_TinyDurationStaysInRange(t *testing.T) {
	streams := generate(t, testConfig(20, 5, 5, 0.01), 4)
	for u, times := range streams {
		for _, ts := range times {
			if ts < 0 || ts >= 0.01 {
				t.Errorf("user %d time %v outside [0, 0.01)", u, ts)
			}
		}
	}
}

func TestGenerate_Deterministic(t *testing.T) {
	cfg := testConfig(10, 1, 8, 100)
	a := generate(t, cfg, 42)
	b := generate(t, cfg, 42)

	for u := range a {
		if len(a[u]) != len(b[u]) {
			t.Fatalf("user %d count differs between runs", u)
		}
		for i := range a[u] {
			if a[u][i] != b[u][i] {
				t.Fatalf("user %d time %d differs between runs", u, i)
			}
		}
	}
}

func TestGenerate_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	g := NewGenerator(testConfig(3, 1, 1, 10), rand.New(rand.NewPCG(1, 1)), nil, nil)
	if _, err := g.Generate(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Generate() error = %v, want context.Canceled", err)
	}
}
