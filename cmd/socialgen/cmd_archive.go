package main

import (
	"fmt"
	"log/slog"
	"path/filepath"
	"time"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/archive"
	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/export"
	"github.com/nvandessel/socialgen/internal/generator"
	"github.com/nvandessel/socialgen/internal/models"
	"github.com/spf13/cobra"
)

func newArchiveCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "archive",
		Short: "Manage compressed run archives",
		Long: `Manage the compressed, checksummed snapshots that generate writes
when archive.dir (or --archive-dir) is set.

Archives can be passed anywhere a dataset file is accepted
(validate, stats, graph, load).`,
	}
	cmd.PersistentFlags().String("dir", "", "Archive directory (default: archive.dir)")
	cmd.AddCommand(newArchiveListCmd(), newArchiveVerifyCmd(), newArchivePruneCmd())
	return cmd
}

func newArchiveListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List archives with run metadata",
		Long: `List archive files newest first with run id, seed, schema and counts.

Examples:
  socialgen archive list --dir runs/
  socialgen archive list --json`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			dir, err := archiveDir(cmd)
			if err != nil {
				return err
			}
			archives, err := archive.List(dir)
			if err != nil {
				return err
			}

			type entry struct {
				Path      string           `json:"path"`
				Size      int64            `json:"size_bytes"`
				CreatedAt string           `json:"created_at"`
				RunID     string           `json:"run_id,omitempty"`
				Seed      uint64           `json:"seed"`
				Schema    constants.Schema `json:"schema,omitempty"`
				Users     int              `json:"users"`
				Edges     int              `json:"edges"`
				Posts     int              `json:"posts"`
			}
			entries := make([]entry, 0, len(archives))
			var totalSize int64
			for _, a := range archives {
				totalSize += a.Size
				e := entry{
					Path:      a.Path,
					Size:      a.Size,
					CreatedAt: a.CreatedAt.Format(time.RFC3339),
				}
				if h, err := archive.ReadHeader(a.Path); err == nil {
					e.RunID, e.Seed, e.Schema = h.RunID, h.Seed, h.Schema
					e.Users, e.Edges, e.Posts = h.Users, h.Edges, h.Posts
				}
				entries = append(entries, e)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"archives":    entries,
					"total_count": len(entries),
					"directory":   dir,
				})
			}

			out := cmd.OutOrStdout()
			if len(entries) == 0 {
				fmt.Fprintf(out, "No archives found in %s\n", dir)
				return nil
			}
			fmt.Fprintf(out, "Archives in %s:\n", dir)
			for i, e := range entries {
				fmt.Fprintf(out, "  %s  %-6s  %8s  %d users  %d follows  %d posts  seed %d  %s\n",
					archives[i].CreatedAt.Format("2006-01-02 15:04"),
					e.Schema,
					formatBytes(e.Size),
					e.Users, e.Edges, e.Posts, e.Seed,
					filepath.Base(e.Path),
				)
			}
			fmt.Fprintf(out, "Total: %d archives, %s\n", len(entries), formatBytes(totalSize))
			return nil
		},
	}
}

func newArchiveVerifyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "verify <file>",
		Short: "Verify archive integrity",
		Long: `Verify an archive's SHA-256 checksum and check that the dataset it
holds satisfies every structural invariant.

Examples:
  socialgen archive verify runs/socialgen-20260206-120000-0b9f3c1e.sgz`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			path := args[0]

			var issues []models.ValidationError
			ds, header, err := archive.Read(path)
			if err == nil {
				issues = ds.Validate(nil)
			}

			if jsonOut {
				result := map[string]interface{}{
					"file":  path,
					"valid": err == nil && len(issues) == 0,
				}
				if err != nil {
					result["error"] = err.Error()
				} else {
					result["run_id"] = header.RunID
					result["checksum"] = header.Checksum
					result["issues"] = len(issues)
				}
				if encErr := json.NewEncoder(cmd.OutOrStdout()).Encode(result); encErr != nil {
					return encErr
				}
			} else {
				out := cmd.OutOrStdout()
				switch {
				case err != nil:
					fmt.Fprintf(out, "✗ %s: %v\n", path, err)
				case len(issues) > 0:
					fmt.Fprintf(out, "✗ %s: checksum OK, %d dataset issue(s)\n", path, len(issues))
				default:
					fmt.Fprintf(out, "✓ %s: checksum OK (run %s)\n", path, header.RunID)
				}
			}

			if err != nil {
				return fmt.Errorf("archive verification failed: %w", err)
			}
			if len(issues) > 0 {
				return fmt.Errorf("archive holds an invalid dataset: %d issue(s)", len(issues))
			}
			return nil
		},
	}
}

func newArchivePruneCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "prune",
		Short: "Delete archives outside the retention limits",
		Long: `Apply the retention limits (archive.max_count, archive.max_age,
archive.max_size, or the flags below) to the archive directory. An
archive is kept if any limit keeps it.

Examples:
  socialgen archive prune --dir runs/ --keep 5
  socialgen archive prune --max-age 30d --max-size 1GB`,
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyArchiveFlags(cmd, cfg); err != nil {
				return err
			}
			dir, err := archiveDir(cmd)
			if err != nil {
				return err
			}

			policy, err := archive.NewPolicy(cfg.Archive.MaxCount, cfg.Archive.MaxAge, cfg.Archive.MaxSize)
			if err != nil {
				return err
			}
			if policy == nil {
				return fmt.Errorf("no retention limit configured: set --keep, --max-age or --max-size")
			}

			deleted, err := archive.ApplyRetention(dir, policy)
			if err != nil {
				return err
			}
			if deleted == nil {
				deleted = []string{}
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"directory": dir,
					"deleted":   deleted,
				})
			}
			out := cmd.OutOrStdout()
			for _, p := range deleted {
				fmt.Fprintf(out, "  removed %s\n", filepath.Base(p))
			}
			fmt.Fprintf(out, "Pruned %d archive(s) from %s\n", len(deleted), dir)
			return nil
		},
	}
	addRetentionFlags(cmd)
	return cmd
}

func addRetentionFlags(cmd *cobra.Command) {
	cmd.Flags().Int("keep", 0, "Keep the N most recent archives")
	cmd.Flags().String("max-age", "", "Keep archives younger than this (e.g. 30d, 2w, 72h)")
	cmd.Flags().String("max-size", "", "Keep the newest archives up to this total size (e.g. 500MB)")
}

// applyArchiveFlags overrides the archive config with retention flags set
// on the command line.
func applyArchiveFlags(cmd *cobra.Command, cfg *config.SocialgenConfig) error {
	flags := cmd.Flags()
	var err error
	if flags.Changed("keep") {
		cfg.Archive.MaxCount, err = flags.GetInt("keep")
	}
	if err == nil && flags.Changed("max-age") {
		cfg.Archive.MaxAge, err = flags.GetString("max-age")
	}
	if err == nil && flags.Changed("max-size") {
		cfg.Archive.MaxSize, err = flags.GetString("max-size")
	}
	return err
}

// archiveDir resolves the archive directory from --dir or archive.dir.
func archiveDir(cmd *cobra.Command) (string, error) {
	if dir, _ := cmd.Flags().GetString("dir"); dir != "" {
		return dir, nil
	}
	cfg, err := loadConfig(cmd)
	if err != nil {
		return "", err
	}
	if cfg.Archive.Dir == "" {
		return "", fmt.Errorf("no archive directory: set --dir or archive.dir")
	}
	return cfg.Archive.Dir, nil
}

// archiveRun writes res to the configured archive directory and applies
// retention. It is a no-op when archiving is disabled.
func archiveRun(cfg *config.SocialgenConfig, res *generator.Result, now time.Time, logger *slog.Logger) (string, error) {
	if cfg.Archive.Dir == "" {
		return "", nil
	}
	policy, err := archive.NewPolicy(cfg.Archive.MaxCount, cfg.Archive.MaxAge, cfg.Archive.MaxSize)
	if err != nil {
		return "", err
	}

	runID := res.RunID.String()
	path := filepath.Join(cfg.Archive.Dir, archive.FileName(runID, now))
	meta := archive.Meta{RunID: runID, Seed: res.Seed, CreatedAt: now}
	if _, err := archive.Write(path, res.Dataset, cfg.Output.Schema, meta); err != nil {
		return "", fmt.Errorf("writing archive: %w", err)
	}
	logger.Debug("wrote archive", "path", path)

	if policy != nil {
		deleted, err := archive.ApplyRetention(cfg.Archive.Dir, policy)
		if err != nil {
			return path, fmt.Errorf("applying archive retention: %w", err)
		}
		for _, p := range deleted {
			logger.Info("pruned archive", "path", p)
		}
	}
	return path, nil
}

// readDataset loads a plain dataset file or a run archive.
func readDataset(path string) (*models.Dataset, constants.Schema, error) {
	if archive.IsArchive(path) {
		ds, header, err := archive.Read(path)
		if err != nil {
			return nil, "", err
		}
		return ds, header.Schema, nil
	}
	return export.ReadFile(path)
}

// formatBytes formats a byte count as a human-readable string.
func formatBytes(b int64) string {
	const (
		kb = 1024
		mb = kb * 1024
		gb = mb * 1024
	)
	switch {
	case b >= gb:
		return fmt.Sprintf("%.1fGB", float64(b)/float64(gb))
	case b >= mb:
		return fmt.Sprintf("%.1fMB", float64(b)/float64(mb))
	case b >= kb:
		return fmt.Sprintf("%.1fKB", float64(b)/float64(kb))
	default:
		return fmt.Sprintf("%dB", b)
	}
}
