package generator

import (
	"bytes"
	"context"
	"errors"
	"math"
	"sort"
	"testing"
	"time"

	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/export"
	"github.com/nvandessel/socialgen/internal/models"
)

func seeded(seed uint64) *config.SocialgenConfig {
	cfg := config.Default()
	cfg.Generator.Seed = &seed
	return cfg
}

func smallConfig() *config.SocialgenConfig {
	cfg := seeded(42)
	cfg.Generator.NumUsers = 5
	cfg.Generator.MinPosts = 2
	cfg.Generator.MaxPosts = 2
	cfg.Generator.AvgFollowing = 2
	cfg.Generator.SimulationDuration = 100
	return cfg
}

func TestRun_SmallNetwork(t *testing.T) {
	cfg := smallConfig()
	res, err := Run(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	ds := res.Dataset

	if len(ds.Users) != 5 {
		t.Fatalf("got %d users, want 5", len(ds.Users))
	}
	if ds.PostCount() != 10 {
		t.Errorf("got %d posts, want 10", ds.PostCount())
	}

	for _, u := range ds.Users {
		if d := len(u.Following); d < 1 || d > 4 {
			t.Errorf("user %d follows %d users, want 1..4", u.ID, d)
		}
		if len(u.Posts) != 2 {
			t.Errorf("user %d has %d posts, want 2", u.ID, len(u.Posts))
		}
		times := make([]float64, len(u.Posts))
		for i, p := range u.Posts {
			times[i] = p.Time
			if p.Time < 0 || p.Time >= 100 {
				t.Errorf("user %d post %d time %v outside [0, 100)", u.ID, i, p.Time)
			}
		}
		if !sort.Float64sAreSorted(times) {
			t.Errorf("user %d times not sorted: %v", u.ID, times)
		}
	}

	bounds := &models.Bounds{MinPosts: 2, MaxPosts: 2, Duration: 100}
	if errs := ds.Validate(bounds); len(errs) != 0 {
		t.Errorf("dataset violates invariants: %v", errs)
	}

	if res.Seed != 42 {
		t.Errorf("Seed = %d, want 42", res.Seed)
	}
}

func TestRun_SingleUserRejected(t *testing.T) {
	cfg := seeded(1)
	cfg.Generator.NumUsers = 1

	_, err := Run(context.Background(), cfg, Options{})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfig", err)
	}
}

func TestRun_HugeMaxPostsRejected(t *testing.T) {
	cfg := smallConfig()
	cfg.Generator.MaxPosts = math.MaxInt

	_, err := Run(context.Background(), cfg, Options{})
	if !errors.Is(err, config.ErrInvalidConfig) {
		t.Fatalf("Run() error = %v, want ErrInvalidConfig", err)
	}
}

func TestRun_Deterministic(t *testing.T) {
	for _, schema := range []constants.Schema{constants.SchemaFlat, constants.SchemaNested} {
		t.Run(string(schema), func(t *testing.T) {
			enc, err := export.EncoderFor(schema)
			if err != nil {
				t.Fatal(err)
			}

			var outputs [][]byte
			var ids []string
			for range 2 {
				res, err := Run(context.Background(), seeded(7), Options{})
				if err != nil {
					t.Fatalf("Run() error = %v", err)
				}
				data, err := enc.Encode(res.Dataset)
				if err != nil {
					t.Fatalf("Encode() error = %v", err)
				}
				outputs = append(outputs, data)
				ids = append(ids, res.RunID.String())
			}

			if !bytes.Equal(outputs[0], outputs[1]) {
				t.Error("same seed produced different output")
			}
			if ids[0] != ids[1] {
				t.Errorf("run ids differ: %s vs %s", ids[0], ids[1])
			}
		})
	}
}

func TestRun_DifferentSeedsDiffer(t *testing.T) {
	a, err := Run(context.Background(), seeded(1), Options{})
	if err != nil {
		t.Fatal(err)
	}
	b, err := Run(context.Background(), seeded(2), Options{})
	if err != nil {
		t.Fatal(err)
	}

	if a.RunID == b.RunID {
		t.Error("different seeds produced the same run id")
	}
	ea, _ := export.FlatEncoder{}.Encode(a.Dataset)
	eb, _ := export.FlatEncoder{}.Encode(b.Dataset)
	if bytes.Equal(ea, eb) {
		t.Error("different seeds produced identical datasets")
	}
}

func TestRun_ClockSeed(t *testing.T) {
	cfg := config.Default()
	cfg.Generator.NumUsers = 3
	fixed := time.Unix(0, 123456789)

	res, err := Run(context.Background(), cfg, Options{Clock: func() time.Time { return fixed }})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Seed != 123456789 {
		t.Errorf("Seed = %d, want 123456789", res.Seed)
	}

	// Replaying the reported seed reproduces the run.
	replay := seeded(res.Seed)
	replay.Generator.NumUsers = 3
	again, err := Run(context.Background(), replay, Options{})
	if err != nil {
		t.Fatal(err)
	}
	if again.RunID != res.RunID {
		t.Errorf("replayed run id %s, want %s", again.RunID, res.RunID)
	}
}

func TestRun_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Run(ctx, seeded(3), Options{})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Run() error = %v, want context.Canceled", err)
	}
}

func TestRun_MinEqualsMax(t *testing.T) {
	cfg := seeded(9)
	cfg.Generator.NumUsers = 10
	cfg.Generator.MinPosts = 0
	cfg.Generator.MaxPosts = 0

	res, err := Run(context.Background(), cfg, Options{})
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if res.Dataset.PostCount() != 0 {
		t.Errorf("got %d posts, want 0", res.Dataset.PostCount())
	}
}

func TestRun_DegreesSummary(t *testing.T) {
	res, err := Run(context.Background(), smallConfig(), Options{})
	if err != nil {
		t.Fatal(err)
	}
	if res.Degrees.Out.Min < 1 || res.Degrees.Out.Max > 4 {
		t.Errorf("out-degree range [%d, %d] outside [1, 4]", res.Degrees.Out.Min, res.Degrees.Out.Max)
	}
	total := 0
	for d, c := range res.Degrees.In.Histogram {
		total += d * c
	}
	if total != res.Dataset.EdgeCount() {
		t.Errorf("in-degree histogram sums to %d edges, want %d", total, res.Dataset.EdgeCount())
	}
}
