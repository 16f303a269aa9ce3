package main

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/export"
	"github.com/nvandessel/socialgen/internal/generator"
	"github.com/nvandessel/socialgen/internal/logging"
	"github.com/nvandessel/socialgen/internal/pathutil"
	"github.com/nvandessel/socialgen/internal/store"
	"github.com/spf13/cobra"
)

func newGenerateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Generate a synthetic network and write it as JSON",
		Long: `Generate a follow graph and per-user post streams, then write the
dataset to the output file (overwriting it).

Every user follows between 1 and N-1 others, drawn from a normal
distribution around --avg-following. Each user authors between
--min-posts and --max-posts posts at times in [0, --duration).

Schemas:
  flat    global post table with integer ids; users list authored_post_ids
  nested  users embed their posts with "{user}_{index}" ids

Examples:
  socialgen generate                                  # defaults, sim_data.json
  socialgen generate --users 1000 --seed 42
  socialgen generate --schema nested -o nested.json
  socialgen generate --seed 7 --sqlite runs.db        # also load into SQLite
  socialgen generate --archive-dir runs/ --keep 10    # snapshot, keep last 10`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyGenerateFlags(cmd, cfg); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}

			outPath, err := pathutil.ResolveOutputPath(cfg.Output.Path)
			if err != nil {
				return err
			}

			logger := newLogger(cmd, cfg)
			trace := logging.NewTraceLogger(filepath.Dir(outPath), cfg.Logging.Level)
			defer trace.Close()

			ctx, cancel := signalContext(context.Background())
			defer cancel()

			res, err := generator.Run(ctx, cfg, generator.Options{Logger: logger, Trace: trace})
			if err != nil {
				return err
			}

			if err := export.WriteFile(outPath, res.Dataset, cfg.Output.Schema); err != nil {
				return err
			}
			logger.Debug("wrote dataset", "path", outPath, "schema", cfg.Output.Schema)

			archivePath, err := archiveRun(cfg, res, time.Now(), logger)
			if err != nil {
				return err
			}

			sinks, err := store.OpenSinks(ctx, cfg.Sinks, logger)
			if err != nil {
				return err
			}
			defer store.CloseAll(sinks, logger)

			run := store.Run{ID: res.RunID.String(), Seed: res.Seed}
			if err := store.SaveAll(ctx, sinks, run, res.Dataset, logger); err != nil {
				return err
			}

			summary := generateSummary{
				Path:   outPath,
				Schema: cfg.Output.Schema,
				RunID:  run.ID,
				Seed:   res.Seed,
				Users:  len(res.Dataset.Users),
				Edges:  res.Dataset.EdgeCount(),
				Posts:  res.Dataset.PostCount(),

				Archive: archivePath,
			}
			for _, s := range sinks {
				summary.Sinks = append(summary.Sinks, s.Name())
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(summary)
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Wrote %d users, %d follows, %d posts to %s (%s)\n",
				summary.Users, summary.Edges, summary.Posts, summary.Path, summary.Schema)
			fmt.Fprintf(out, "  seed:   %d\n", summary.Seed)
			fmt.Fprintf(out, "  run id: %s\n", summary.RunID)
			if summary.Archive != "" {
				fmt.Fprintf(out, "  archived to %s\n", summary.Archive)
			}
			for _, name := range summary.Sinks {
				fmt.Fprintf(out, "  loaded into %s\n", name)
			}
			return nil
		},
	}

	cmd.Flags().Int("users", constants.DefaultNumUsers, "Number of users (N >= 2)")
	cmd.Flags().Int("min-posts", constants.DefaultMinPosts, "Minimum posts per user")
	cmd.Flags().Int("max-posts", constants.DefaultMaxPosts, "Maximum posts per user")
	cmd.Flags().Float64("duration", constants.DefaultSimulationDuration, "Simulation duration; post times lie in [0, duration)")
	cmd.Flags().Float64("avg-following", constants.DefaultAvgFollowing, "Mean number of users each user follows")
	cmd.Flags().Float64("following-stddev", constants.DefaultFollowingStdDev, "Standard deviation of the following count")
	cmd.Flags().Int("policy-size", constants.DefaultPolicySize, "Length of each user's uniform policy")
	cmd.Flags().Uint64("seed", 0, "Random seed (default: derived from the clock and reported)")
	cmd.Flags().StringP("output", "o", constants.DefaultOutputPath, "Output file")
	cmd.Flags().String("schema", string(constants.SchemaFlat), "Output schema: flat or nested")
	cmd.Flags().String("sqlite", "", "Also load the dataset into this SQLite database")
	cmd.Flags().String("postgres-dsn", "", "Also load the dataset into this PostgreSQL database")
	cmd.Flags().String("archive-dir", "", "Also write a compressed archive of the run into this directory")
	addRetentionFlags(cmd)

	return cmd
}

// generateSummary is what generate reports on success.
type generateSummary struct {
	Path   string           `json:"path"`
	Schema constants.Schema `json:"schema"`
	RunID  string           `json:"run_id"`
	Seed   uint64           `json:"seed"`
	Users  int              `json:"users"`
	Edges  int              `json:"edges"`
	Posts  int              `json:"posts"`
	Sinks  []string         `json:"sinks,omitempty"`

	Archive string `json:"archive,omitempty"`
}

// applyGenerateFlags overrides cfg with every flag set on the command line.
func applyGenerateFlags(cmd *cobra.Command, cfg *config.SocialgenConfig) error {
	flags := cmd.Flags()
	g := &cfg.Generator

	var err error
	if flags.Changed("users") {
		g.NumUsers, err = flags.GetInt("users")
	}
	if err == nil && flags.Changed("min-posts") {
		g.MinPosts, err = flags.GetInt("min-posts")
	}
	if err == nil && flags.Changed("max-posts") {
		g.MaxPosts, err = flags.GetInt("max-posts")
	}
	if err == nil && flags.Changed("duration") {
		g.SimulationDuration, err = flags.GetFloat64("duration")
	}
	if err == nil && flags.Changed("avg-following") {
		g.AvgFollowing, err = flags.GetFloat64("avg-following")
	}
	if err == nil && flags.Changed("following-stddev") {
		g.FollowingStdDev, err = flags.GetFloat64("following-stddev")
	}
	if err == nil && flags.Changed("policy-size") {
		g.PolicySize, err = flags.GetInt("policy-size")
	}
	if err == nil && flags.Changed("seed") {
		var seed uint64
		seed, err = flags.GetUint64("seed")
		g.Seed = &seed
	}
	if err == nil && flags.Changed("output") {
		cfg.Output.Path, err = flags.GetString("output")
	}
	if err == nil && flags.Changed("schema") {
		var schema string
		schema, err = flags.GetString("schema")
		cfg.Output.Schema = constants.Schema(schema)
	}
	if err == nil && flags.Changed("sqlite") {
		cfg.Sinks.SQLitePath, err = flags.GetString("sqlite")
	}
	if err == nil && flags.Changed("postgres-dsn") {
		cfg.Sinks.PostgresDSN, err = flags.GetString("postgres-dsn")
	}
	if err == nil && flags.Changed("archive-dir") {
		cfg.Archive.Dir, err = flags.GetString("archive-dir")
	}
	if err != nil {
		return err
	}
	return applyArchiveFlags(cmd, cfg)
}
