package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/archive"
	"github.com/nvandessel/socialgen/internal/config"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/spf13/cobra"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Manage socialgen configuration",
		Long: `View and modify socialgen configuration settings.

Configuration is stored in ~/.socialgen/config.yaml unless --config is given.

Examples:
  socialgen config list                              # Show all settings
  socialgen config get generator.num_users           # Get a specific setting
  socialgen config set generator.seed 42             # Set a setting
  socialgen config set sinks.postgres_dsn '${PG_DSN}'`,
	}

	cmd.AddCommand(
		newConfigListCmd(),
		newConfigGetCmd(),
		newConfigSetCmd(),
	)

	return cmd
}

// configKeys lists every settable key in display order.
var configKeys = []string{
	"generator.num_users",
	"generator.min_posts",
	"generator.max_posts",
	"generator.simulation_duration",
	"generator.avg_following",
	"generator.following_stddev",
	"generator.policy_size",
	"generator.seed",
	"output.path",
	"output.schema",
	"logging.level",
	"sinks.sqlite_path",
	"sinks.postgres_dsn",
	"sinks.batch_size",
	"archive.dir",
	"archive.max_count",
	"archive.max_age",
	"archive.max_size",
}

func newConfigListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List all configuration settings",
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")

			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			if jsonOut {
				// Redact the DSN before serialization to prevent leakage
				redacted := *cfg
				redacted.Sinks.PostgresDSN = cfg.Sinks.RedactedDSN()
				return json.NewEncoder(cmd.OutOrStdout()).Encode(redacted)
			}

			out := cmd.OutOrStdout()
			for _, key := range configKeys {
				value, _ := getConfigValue(cfg, key)
				fmt.Fprintf(out, "  %-32s %s\n", key+":", value)
			}
			return nil
		},
	}
}

func newConfigGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <key>",
		Short: "Get a configuration value",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key := args[0]

			cfg, err := loadConfig(cmd)
			if err != nil {
				return fmt.Errorf("failed to load config: %w", err)
			}

			value, found := getConfigValue(cfg, key)
			if !found {
				return fmt.Errorf("unknown configuration key: %s", key)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"key":   key,
					"value": value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s = %s\n", key, value)
			return nil
		},
	}
}

func newConfigSetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set <key> <value>",
		Short: "Set a configuration value",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			jsonOut, _ := cmd.Flags().GetBool("json")
			key, value := args[0], args[1]

			path, _ := cmd.Flags().GetString("config")
			if path == "" {
				var err error
				if path, err = config.DefaultPath(); err != nil {
					return err
				}
			}

			// Start from the file alone so environment overrides are not persisted.
			cfg := config.Default()
			if _, err := os.Stat(path); err == nil {
				if cfg, err = config.ReadFile(path); err != nil {
					return err
				}
			}

			if err := setConfigValue(cfg, key, value); err != nil {
				return err
			}
			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.Save(path, cfg); err != nil {
				return fmt.Errorf("failed to save config: %w", err)
			}

			if jsonOut {
				return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]interface{}{
					"status": "updated",
					"key":    key,
					"value":  value,
				})
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Set %s = %s\n", key, value)
			return nil
		},
	}
}

// getConfigValue retrieves a configuration value by dot-notation key,
// formatted for display.
func getConfigValue(cfg *config.SocialgenConfig, key string) (string, bool) {
	g := cfg.Generator
	switch key {
	case "generator.num_users":
		return strconv.Itoa(g.NumUsers), true
	case "generator.min_posts":
		return strconv.Itoa(g.MinPosts), true
	case "generator.max_posts":
		return strconv.Itoa(g.MaxPosts), true
	case "generator.simulation_duration":
		return strconv.FormatFloat(g.SimulationDuration, 'g', -1, 64), true
	case "generator.avg_following":
		return strconv.FormatFloat(g.AvgFollowing, 'g', -1, 64), true
	case "generator.following_stddev":
		return strconv.FormatFloat(g.FollowingStdDev, 'g', -1, 64), true
	case "generator.policy_size":
		return strconv.Itoa(g.PolicySize), true
	case "generator.seed":
		if g.Seed == nil {
			return "(clock)", true
		}
		return strconv.FormatUint(*g.Seed, 10), true
	case "output.path":
		return cfg.Output.Path, true
	case "output.schema":
		return string(cfg.Output.Schema), true
	case "logging.level":
		return valueOrDefault(cfg.Logging.Level, "info"), true
	case "sinks.sqlite_path":
		return valueOrDefault(cfg.Sinks.SQLitePath, "(not set)"), true
	case "sinks.postgres_dsn":
		return valueOrDefault(cfg.Sinks.RedactedDSN(), "(not set)"), true
	case "sinks.batch_size":
		return strconv.Itoa(cfg.Sinks.BatchSize), true
	case "archive.dir":
		return valueOrDefault(cfg.Archive.Dir, "(not set)"), true
	case "archive.max_count":
		return strconv.Itoa(cfg.Archive.MaxCount), true
	case "archive.max_age":
		return valueOrDefault(cfg.Archive.MaxAge, "(not set)"), true
	case "archive.max_size":
		return valueOrDefault(cfg.Archive.MaxSize, "(not set)"), true
	default:
		return "", false
	}
}

// setConfigValue sets a configuration value by dot-notation key.
// Range checks are left to SocialgenConfig.Validate.
func setConfigValue(cfg *config.SocialgenConfig, key, value string) error {
	g := &cfg.Generator
	var err error
	switch key {
	case "generator.num_users":
		g.NumUsers, err = strconv.Atoi(value)
	case "generator.min_posts":
		g.MinPosts, err = strconv.Atoi(value)
	case "generator.max_posts":
		g.MaxPosts, err = strconv.Atoi(value)
	case "generator.simulation_duration":
		g.SimulationDuration, err = strconv.ParseFloat(value, 64)
	case "generator.avg_following":
		g.AvgFollowing, err = strconv.ParseFloat(value, 64)
	case "generator.following_stddev":
		g.FollowingStdDev, err = strconv.ParseFloat(value, 64)
	case "generator.policy_size":
		g.PolicySize, err = strconv.Atoi(value)
	case "generator.seed":
		if value == "" || value == "clock" {
			g.Seed = nil
			return nil
		}
		var seed uint64
		seed, err = strconv.ParseUint(value, 10, 64)
		g.Seed = &seed
	case "output.path":
		cfg.Output.Path = value
	case "output.schema":
		cfg.Output.Schema = constants.Schema(value)
	case "logging.level":
		cfg.Logging.Level = value
	case "sinks.sqlite_path":
		cfg.Sinks.SQLitePath = value
	case "sinks.postgres_dsn":
		cfg.Sinks.PostgresDSN = value
	case "sinks.batch_size":
		cfg.Sinks.BatchSize, err = strconv.Atoi(value)
	case "archive.dir":
		cfg.Archive.Dir = value
	case "archive.max_count":
		cfg.Archive.MaxCount, err = strconv.Atoi(value)
	case "archive.max_age":
		if value != "" {
			_, err = archive.ParseDuration(value)
		}
		cfg.Archive.MaxAge = value
	case "archive.max_size":
		if value != "" {
			_, err = archive.ParseSize(value)
		}
		cfg.Archive.MaxSize = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}
	if err != nil {
		return fmt.Errorf("invalid value for %s: %q", key, value)
	}
	return nil
}
