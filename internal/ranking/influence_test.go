package ranking

import (
	"context"
	"math"
	"testing"

	"github.com/nvandessel/socialgen/internal/models"
)

func TestExponentialDecay(t *testing.T) {
	tests := []struct {
		name     string
		t        float64
		horizon  float64
		halfLife float64
		want     float64
	}{
		{"at horizon", 100, 100, 10, 1.0},
		{"one half-life", 90, 100, 10, 0.5},
		{"two half-lives", 80, 100, 10, 0.25},
		{"zero half-life", 50, 100, 0, 0.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ExponentialDecay(tt.t, tt.horizon, tt.halfLife)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("ExponentialDecay(%v, %v, %v) = %v, want %v", tt.t, tt.horizon, tt.halfLife, got, tt.want)
			}
		})
	}
}

func TestRankUsers(t *testing.T) {
	// Everyone follows user 0, who follows user 1. User 3 posts the most.
	ds := &models.Dataset{Users: []models.User{
		{ID: 0, Following: []int{1}, Followers: []int{1, 2, 3}, Posts: []models.Post{{Seq: 0, Author: 0, Time: 10}}},
		{ID: 1, Following: []int{0}, Followers: []int{0}, Posts: []models.Post{}},
		{ID: 2, Following: []int{0}, Followers: []int{}, Posts: []models.Post{}},
		{ID: 3, Following: []int{0}, Followers: []int{}, Posts: []models.Post{
			{Seq: 1, Author: 3, Index: 0, Time: 90},
			{Seq: 2, Author: 3, Index: 1, Time: 95},
		}},
	}}

	ranked, err := RankUsers(context.Background(), ds, 100, DefaultInfluenceConfig())
	if err != nil {
		t.Fatalf("RankUsers() error = %v", err)
	}
	if len(ranked) != 4 {
		t.Fatalf("got %d scores, want 4", len(ranked))
	}
	if ranked[0].UserID != 0 {
		t.Errorf("top user = %d, want 0", ranked[0].UserID)
	}
	for i := 1; i < len(ranked); i++ {
		if ranked[i].FinalScore > ranked[i-1].FinalScore {
			t.Errorf("scores not descending at %d: %v", i, ranked)
		}
	}

	byID := make(map[int]InfluenceScore)
	for _, s := range ranked {
		byID[s.UserID] = s
	}
	if byID[3].ActivityScore != 1.0 {
		t.Errorf("most recent poster activity = %f, want 1.0", byID[3].ActivityScore)
	}
	if byID[0].ReachScore != 1.0 {
		t.Errorf("best-followed reach = %f, want 1.0", byID[0].ReachScore)
	}
	if byID[2].Followers != 0 || byID[3].Posts != 2 {
		t.Errorf("counts wrong: %+v %+v", byID[2], byID[3])
	}
}

func TestTop(t *testing.T) {
	scores := []InfluenceScore{{UserID: 0}, {UserID: 1}, {UserID: 2}}
	if got := Top(scores, 2); len(got) != 2 {
		t.Errorf("Top(2) len = %d", len(got))
	}
	if got := Top(scores, 10); len(got) != 3 {
		t.Errorf("Top(10) len = %d", len(got))
	}
	if got := Top(scores, -1); len(got) != 3 {
		t.Errorf("Top(-1) len = %d", len(got))
	}
}
