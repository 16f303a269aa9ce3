package main

import (
	"context"
	"fmt"
	"math"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/models"
	"github.com/nvandessel/socialgen/internal/ranking"
	"github.com/spf13/cobra"
)

// datasetStats is the stats report for one dataset file.
type datasetStats struct {
	File    string                   `json:"file"`
	Schema  string                   `json:"schema"`
	Users   int                      `json:"users"`
	Edges   int                      `json:"edges"`
	Posts   int                      `json:"posts"`
	Degrees graph.Degrees            `json:"degrees"`
	Posting postStats                `json:"posting"`
	Top     []ranking.InfluenceScore `json:"top_influencers"`
}

// postStats summarizes post counts per user and the span of post times.
type postStats struct {
	MinPerUser  int     `json:"min_per_user"`
	MaxPerUser  int     `json:"max_per_user"`
	MeanPerUser float64 `json:"mean_per_user"`
	FirstTime   float64 `json:"first_time"`
	LastTime    float64 `json:"last_time"`
}

func newStatsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "stats <file>",
		Short: "Show degree, posting and influence statistics for a dataset",
		Long: `Display statistics for a generated dataset.

Shows follow-graph degree distributions, posts per user, the span of
post times, and the most influential users by a blend of PageRank,
follower reach and recency-weighted activity.

Examples:
  socialgen stats sim_data.json
  socialgen stats sim_data.json --top 5
  socialgen stats sim_data.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			topN, _ := cmd.Flags().GetInt("top")
			horizon, _ := cmd.Flags().GetFloat64("duration")

			ds, schema, err := readDataset(args[0])
			if err != nil {
				return fmt.Errorf("reading dataset: %w", err)
			}

			report := datasetStats{
				File:    args[0],
				Schema:  string(schema),
				Users:   len(ds.Users),
				Edges:   ds.EdgeCount(),
				Posts:   ds.PostCount(),
				Degrees: graph.ComputeDegrees(graph.FromDataset(ds)),
				Posting: summarizePosts(ds),
			}

			if !cmd.Flags().Changed("duration") {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				horizon = cfg.Generator.SimulationDuration
			}
			if report.Posting.LastTime > horizon {
				horizon = report.Posting.LastTime
			}

			ranked, err := ranking.RankUsers(context.Background(), ds, horizon, ranking.DefaultInfluenceConfig())
			if err != nil {
				return fmt.Errorf("ranking users: %w", err)
			}
			report.Top = ranking.Top(ranked, topN)

			if jsonOut {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStats(cmd, report)
			return nil
		},
	}

	cmd.Flags().Int("top", 10, "Number of top influencers to show")
	cmd.Flags().Float64("duration", 0, "Simulation horizon for recency weighting (default: configured duration)")

	return cmd
}

func summarizePosts(ds *models.Dataset) postStats {
	var s postStats
	if len(ds.Users) == 0 {
		return s
	}

	s.MinPerUser = math.MaxInt
	s.FirstTime = math.Inf(1)
	s.LastTime = math.Inf(-1)
	for _, u := range ds.Users {
		s.MinPerUser = min(s.MinPerUser, len(u.Posts))
		s.MaxPerUser = max(s.MaxPerUser, len(u.Posts))
		for _, p := range u.Posts {
			s.FirstTime = math.Min(s.FirstTime, p.Time)
			s.LastTime = math.Max(s.LastTime, p.Time)
		}
	}
	s.MeanPerUser = float64(ds.PostCount()) / float64(len(ds.Users))

	if ds.PostCount() == 0 {
		s.FirstTime, s.LastTime = 0, 0
	}
	return s
}

func printStats(cmd *cobra.Command, r datasetStats) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Dataset: %s (%s schema)\n", r.File, r.Schema)
	fmt.Fprintln(out, "==================================================")
	fmt.Fprintf(out, "Users: %d   Follows: %d   Posts: %d\n\n", r.Users, r.Edges, r.Posts)

	fmt.Fprintln(out, "Degrees:")
	fmt.Fprintf(out, "  following (out): min %d, max %d, mean %.2f\n", r.Degrees.Out.Min, r.Degrees.Out.Max, r.Degrees.Out.Mean)
	fmt.Fprintf(out, "  followers (in):  min %d, max %d, mean %.2f\n", r.Degrees.In.Min, r.Degrees.In.Max, r.Degrees.In.Mean)
	fmt.Fprintln(out, "  out-degree histogram:")
	for _, d := range r.Degrees.Out.SortedKeys() {
		fmt.Fprintf(out, "    %4d: %d\n", d, r.Degrees.Out.Histogram[d])
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Posting:")
	fmt.Fprintf(out, "  per user: min %d, max %d, mean %.2f\n", r.Posting.MinPerUser, r.Posting.MaxPerUser, r.Posting.MeanPerUser)
	fmt.Fprintf(out, "  times:    %.2f .. %.2f\n\n", r.Posting.FirstTime, r.Posting.LastTime)

	if len(r.Top) == 0 {
		return
	}
	fmt.Fprintf(out, "Top %d influencers:\n", len(r.Top))
	fmt.Fprintf(out, "  %-6s %-7s %-9s %-9s %-6s\n", "USER", "SCORE", "PAGERANK", "FOLLOWERS", "POSTS")
	for _, s := range r.Top {
		fmt.Fprintf(out, "  %-6d %-7.3f %-9.3f %-9d %-6d\n", s.UserID, s.FinalScore, s.PageRankScore, s.Followers, s.Posts)
	}
}
