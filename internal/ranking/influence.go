package ranking

import (
	"context"
	"sort"

	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/models"
)

// InfluenceConfig holds weights for the three influence signals.
type InfluenceConfig struct {
	// PageRankWeight for structural importance in the follow graph. Default: 0.5.
	PageRankWeight float64

	// ReachWeight for follower count relative to the best-followed user. Default: 0.3.
	ReachWeight float64

	// ActivityWeight for recency-weighted post volume. Default: 0.2.
	ActivityWeight float64

	// HalfLife is the recency half-life in simulation time units.
	// Zero means a quarter of the simulation horizon.
	HalfLife float64

	PageRank PageRankConfig
}

// DefaultInfluenceConfig returns the default influence weights.
func DefaultInfluenceConfig() InfluenceConfig {
	return InfluenceConfig{
		PageRankWeight: 0.5,
		ReachWeight:    0.3,
		ActivityWeight: 0.2,
		PageRank:       DefaultPageRankConfig(),
	}
}

// InfluenceScore is the combined score for one user.
type InfluenceScore struct {
	UserID        int     `json:"user_id"`
	FinalScore    float64 `json:"final_score"`
	PageRankScore float64 `json:"pagerank_score"`
	ReachScore    float64 `json:"reach_score"`
	ActivityScore float64 `json:"activity_score"`
	Followers     int     `json:"followers"`
	Posts         int     `json:"posts"`
}

// RankUsers scores every user in ds and returns them sorted by descending
// FinalScore, ties broken by ascending id. horizon is the simulation
// duration the post times were drawn against.
func RankUsers(ctx context.Context, ds *models.Dataset, horizon float64, config InfluenceConfig) ([]InfluenceScore, error) {
	g := graph.FromDataset(ds)
	pr, err := ComputePageRank(ctx, g, config.PageRank)
	if err != nil {
		return nil, err
	}

	halfLife := config.HalfLife
	if halfLife <= 0 {
		halfLife = horizon / 4
	}

	maxFollowers := 0
	activity := make([]float64, len(ds.Users))
	maxActivity := 0.0
	for i, u := range ds.Users {
		if len(u.Followers) > maxFollowers {
			maxFollowers = len(u.Followers)
		}
		for _, p := range u.Posts {
			activity[i] += ExponentialDecay(p.Time, horizon, halfLife)
		}
		if activity[i] > maxActivity {
			maxActivity = activity[i]
		}
	}

	scores := make([]InfluenceScore, len(ds.Users))
	for i, u := range ds.Users {
		s := InfluenceScore{
			UserID:        u.ID,
			PageRankScore: pr[i],
			Followers:     len(u.Followers),
			Posts:         len(u.Posts),
		}
		if maxFollowers > 0 {
			s.ReachScore = float64(len(u.Followers)) / float64(maxFollowers)
		}
		if maxActivity > 0 {
			s.ActivityScore = activity[i] / maxActivity
		}
		s.FinalScore = config.PageRankWeight*s.PageRankScore +
			config.ReachWeight*s.ReachScore +
			config.ActivityWeight*s.ActivityScore
		scores[i] = s
	}

	sort.SliceStable(scores, func(a, b int) bool {
		if scores[a].FinalScore != scores[b].FinalScore {
			return scores[a].FinalScore > scores[b].FinalScore
		}
		return scores[a].UserID < scores[b].UserID
	})
	return scores, nil
}

// Top returns at most k leading entries of ranked scores.
func Top(scores []InfluenceScore, k int) []InfluenceScore {
	if k < 0 || k >= len(scores) {
		return scores
	}
	return scores[:k]
}
