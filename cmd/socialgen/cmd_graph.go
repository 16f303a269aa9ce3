package main

import (
	"context"
	"fmt"
	"os"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/ranking"
	"github.com/nvandessel/socialgen/internal/visualization"
	"github.com/spf13/cobra"
)

func newGraphCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "graph <file>",
		Short: "Render the follow graph of a dataset",
		Long: `Output the follow graph of a dataset in DOT (Graphviz) or JSON format.

An edge A -> B means A follows B. Nodes are labeled with post counts.

Examples:
  socialgen graph sim_data.json | dot -Tsvg > graph.svg
  socialgen graph sim_data.json --format json --pagerank
  socialgen graph sim_data.json -o graph.dot`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			format, _ := cmd.Flags().GetString("format")
			output, _ := cmd.Flags().GetString("output")
			withPageRank, _ := cmd.Flags().GetBool("pagerank")

			f, err := visualization.ParseFormat(format)
			if err != nil {
				return err
			}

			ds, _, err := readDataset(args[0])
			if err != nil {
				return fmt.Errorf("reading dataset: %w", err)
			}

			var enrichment *visualization.EnrichmentData
			if withPageRank {
				pr, err := ranking.ComputePageRank(context.Background(), graph.FromDataset(ds), ranking.DefaultPageRankConfig())
				if err != nil {
					return fmt.Errorf("compute PageRank: %w", err)
				}
				enrichment = &visualization.EnrichmentData{PageRank: pr}
			}

			var rendered []byte
			switch f {
			case visualization.FormatDOT:
				rendered = []byte(visualization.RenderDOT(ds, enrichment))
			case visualization.FormatJSON:
				rendered, err = json.MarshalIndent(visualization.RenderJSON(ds, enrichment), "", "  ")
				if err != nil {
					return fmt.Errorf("encode JSON: %w", err)
				}
				rendered = append(rendered, '\n')
			}

			if output == "" {
				_, err := cmd.OutOrStdout().Write(rendered)
				return err
			}
			if err := os.WriteFile(output, rendered, 0644); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Graph written to %s\n", output)
			return nil
		},
	}

	cmd.Flags().String("format", "dot", "Output format: dot or json")
	cmd.Flags().StringP("output", "o", "", "Write to file instead of stdout")
	cmd.Flags().Bool("pagerank", false, "Annotate nodes with PageRank scores")

	return cmd
}
