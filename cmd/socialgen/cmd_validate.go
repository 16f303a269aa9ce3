package main

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/models"
	"github.com/spf13/cobra"
)

func newValidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Check a dataset file for consistency issues",
		Long: `Check a generated dataset for consistency issues.

The schema (flat or nested) is detected from the file. This command checks for:
  - Self-follows and duplicate or dangling follow targets
  - Following/followers lists that are not inverses of each other
  - Following counts outside [1, N-1]
  - Unsorted post streams, negative times, and duplicate post ids

With --bounds, post counts and times are also checked against the
configured min_posts, max_posts and simulation_duration.

Examples:
  socialgen validate sim_data.json
  socialgen validate sim_data.json --bounds
  socialgen validate sim_data.json --json`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			checkBounds, _ := cmd.Flags().GetBool("bounds")

			ds, schema, err := readDataset(args[0])
			if err != nil {
				return fmt.Errorf("reading dataset: %w", err)
			}

			var bounds *models.Bounds
			if checkBounds {
				cfg, err := loadConfig(cmd)
				if err != nil {
					return err
				}
				bounds = &models.Bounds{
					MinPosts: cfg.Generator.MinPosts,
					MaxPosts: cfg.Generator.MaxPosts,
					Duration: cfg.Generator.SimulationDuration,
				}
			}

			issues := ds.Validate(bounds)

			if jsonOut {
				if issues == nil {
					issues = []models.ValidationError{}
				}
				if err := json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"file":   args[0],
					"schema": schema,
					"valid":  len(issues) == 0,
					"issues": issues,
				}); err != nil {
					return err
				}
			} else {
				out := cmd.OutOrStdout()
				if len(issues) == 0 {
					fmt.Fprintf(out, "✓ %s is valid (%s schema, %d users, %d posts)\n",
						args[0], schema, len(ds.Users), ds.PostCount())
					return nil
				}
				fmt.Fprintf(out, "✗ %s has %d issue(s):\n", args[0], len(issues))
				for _, issue := range issues {
					fmt.Fprintf(out, "  - %s\n", issue)
				}
			}

			if len(issues) > 0 {
				return fmt.Errorf("validation failed: %d issue(s)", len(issues))
			}
			return nil
		},
	}

	cmd.Flags().Bool("bounds", false, "Also check post counts and times against the configured bounds")

	return cmd
}
