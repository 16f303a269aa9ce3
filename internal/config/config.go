// Package config provides unified configuration loading for socialgen.
// It supports loading from YAML files and environment variables.
package config

import (
	"errors"
	"fmt"
	"math"
	"net/url"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"unicode"

	"github.com/go-playground/validator/v10"
	"github.com/nvandessel/socialgen/internal/constants"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig is returned (wrapped) by Validate for any configuration
// that cannot produce a well-formed dataset.
var ErrInvalidConfig = errors.New("invalid configuration")

// SocialgenConfig contains all socialgen configuration settings.
type SocialgenConfig struct {
	// Generator controls graph and post stream generation.
	Generator GeneratorConfig `json:"generator" yaml:"generator"`

	// Output controls where and in which schema the dataset is written.
	Output OutputConfig `json:"output" yaml:"output"`

	// Logging contains settings for operational and decision logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`

	// Sinks contains optional database destinations for a generated dataset.
	Sinks SinksConfig `json:"sinks" yaml:"sinks"`

	// Archive configures compressed snapshots of each generated run.
	Archive ArchiveConfig `json:"archive" yaml:"archive"`
}

// GeneratorConfig holds the parameters of a single generation run.
// It is passed by value into every generation component.
type GeneratorConfig struct {
	// NumUsers is the size of the user id space [0, NumUsers).
	NumUsers int `json:"num_users" yaml:"num_users" validate:"gte=2"`

	// MinPosts and MaxPosts bound (inclusively) the posts drawn per user.
	// MaxPosts is capped at constants.MaxPostsPerUser.
	MinPosts int `json:"min_posts" yaml:"min_posts" validate:"gte=0"`
	MaxPosts int `json:"max_posts" yaml:"max_posts" validate:"gtefield=MinPosts,lte=1000000"`

	// SimulationDuration is the exclusive upper bound of post timestamps.
	SimulationDuration float64 `json:"simulation_duration" yaml:"simulation_duration" validate:"gt=0"`

	// AvgFollowing is the mean of the out-degree normal draw.
	AvgFollowing float64 `json:"avg_following" yaml:"avg_following" validate:"gte=0"`

	// FollowingStdDev is the standard deviation of the out-degree normal draw.
	FollowingStdDev float64 `json:"following_stddev" yaml:"following_stddev" validate:"gte=0"`

	// PolicySize is the length of each user's uniform action policy.
	PolicySize int `json:"policy_size" yaml:"policy_size" validate:"gte=1"`

	// Seed makes a run reproducible. When nil a seed is derived from the clock.
	Seed *uint64 `json:"seed,omitempty" yaml:"seed,omitempty"`
}

// OutputConfig configures the exported dataset file.
type OutputConfig struct {
	// Path is the file the dataset is written to. Existing files are overwritten.
	Path string `json:"path" yaml:"path" validate:"required"`

	// Schema selects the serialized shape: "flat" or "nested".
	Schema constants.Schema `json:"schema" yaml:"schema" validate:"oneof=flat nested"`
}

// LoggingConfig configures socialgen's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables the generation trace at <output dir>/generation.jsonl.
	Level string `json:"level" yaml:"level" validate:"omitempty,oneof=info debug trace"`
}

// SinksConfig configures optional database loaders.
type SinksConfig struct {
	// SQLitePath is a SQLite database file to load the dataset into. Empty disables it.
	SQLitePath string `json:"sqlite_path,omitempty" yaml:"sqlite_path,omitempty"`

	// PostgresDSN is a postgres:// connection string. Supports ${VAR} syntax.
	PostgresDSN string `json:"postgres_dsn,omitempty" yaml:"postgres_dsn,omitempty"`

	// BatchSize is the number of rows queued per round-trip.
	BatchSize int `json:"batch_size" yaml:"batch_size" validate:"gte=1"`
}

// ArchiveConfig configures the run archive directory and its retention.
// Retention is the union of the configured limits; with none set every
// archive is kept.
type ArchiveConfig struct {
	// Dir receives one archive per generate run. Empty disables archiving.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`

	// MaxCount keeps the N most recent archives. 0 means no count limit.
	MaxCount int `json:"max_count,omitempty" yaml:"max_count,omitempty" validate:"gte=0"`

	// MaxAge keeps archives younger than this, e.g. "30d", "2w", "72h".
	MaxAge string `json:"max_age,omitempty" yaml:"max_age,omitempty"`

	// MaxSize keeps the newest archives up to this total size, e.g. "500MB".
	MaxSize string `json:"max_size,omitempty" yaml:"max_size,omitempty"`
}

// RedactedDSN returns the Postgres DSN with its password masked.
// Returns "" for an empty DSN and "(set)" if it cannot be parsed.
func (c SinksConfig) RedactedDSN() string {
	if c.PostgresDSN == "" {
		return ""
	}
	u, err := url.Parse(c.PostgresDSN)
	if err != nil || u.Scheme == "" {
		return "(set)"
	}
	return u.Redacted()
}

// String implements fmt.Stringer to prevent accidental credential logging.
func (c SinksConfig) String() string {
	return fmt.Sprintf("SinksConfig{SQLitePath:%s, PostgresDSN:%s, BatchSize:%d}",
		c.SQLitePath, c.RedactedDSN(), c.BatchSize)
}

// Default returns a SocialgenConfig with the reference generator parameters.
func Default() *SocialgenConfig {
	return &SocialgenConfig{
		Generator: GeneratorConfig{
			NumUsers:           constants.DefaultNumUsers,
			MinPosts:           constants.DefaultMinPosts,
			MaxPosts:           constants.DefaultMaxPosts,
			SimulationDuration: constants.DefaultSimulationDuration,
			AvgFollowing:       constants.DefaultAvgFollowing,
			FollowingStdDev:    constants.DefaultFollowingStdDev,
			PolicySize:         constants.DefaultPolicySize,
		},
		Output: OutputConfig{
			Path:   constants.DefaultOutputPath,
			Schema: constants.SchemaFlat,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
		Sinks: SinksConfig{
			BatchSize: constants.DefaultBatchSize,
		},
	}
}

// DefaultPath returns ~/.socialgen/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("getting home directory: %w", err)
	}
	return filepath.Join(homeDir, ".socialgen", "config.yaml"), nil
}

// Load loads configuration and applies environment variable overrides.
// Order: defaults -> path (or ~/.socialgen/config.yaml when path is "") -> environment variables.
// An explicit path must exist; the default location is optional.
func Load(path string) (*SocialgenConfig, error) {
	config := Default()

	if path != "" {
		fileConfig, err := LoadFromFile(path)
		if err != nil {
			return nil, fmt.Errorf("loading config file: %w", err)
		}
		config = fileConfig
	} else if defaultPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(defaultPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(defaultPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file, expanding
// ${VAR} references in the Postgres DSN.
func LoadFromFile(path string) (*SocialgenConfig, error) {
	config, err := ReadFile(path)
	if err != nil {
		return nil, err
	}
	config.Sinks.PostgresDSN = expandEnvVars(config.Sinks.PostgresDSN)
	return config, nil
}

// ReadFile loads a YAML file over the defaults exactly as written, with no
// ${VAR} expansion, so it can be edited and saved back without persisting
// secrets from the environment.
func ReadFile(path string) (*SocialgenConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}
	return config, nil
}

// Save writes the configuration as YAML to path, creating parent directories.
func Save(path string, c *SocialgenConfig) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshaling config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("writing config file: %w", err)
	}
	return nil
}

var validate = newValidator()

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	// Report fields by their YAML key so messages match the config file.
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// Validate checks that the configuration can produce a well-formed dataset.
// All problems are reported in one error wrapping ErrInvalidConfig.
func (c *SocialgenConfig) Validate() error {
	var problems []string

	if err := validate.Struct(c); err != nil {
		var fieldErrs validator.ValidationErrors
		if !errors.As(err, &fieldErrs) {
			return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
		}
		for _, fe := range fieldErrs {
			problems = append(problems, describe(fe))
		}
	}

	if math.IsInf(c.Generator.SimulationDuration, 0) {
		problems = append(problems, "generator.simulation_duration must be finite")
	}
	if math.IsInf(c.Generator.AvgFollowing, 0) || math.IsInf(c.Generator.FollowingStdDev, 0) {
		problems = append(problems, "generator.avg_following and generator.following_stddev must be finite")
	}

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// describe renders a validator field error as "<yaml.key> <constraint> (got <value>)".
func describe(fe validator.FieldError) string {
	key := fe.Namespace()
	if i := strings.Index(key, "."); i >= 0 {
		key = key[i+1:]
	}

	var rule string
	switch fe.Tag() {
	case "gte":
		rule = "must be >= " + fe.Param()
	case "gt":
		rule = "must be > " + fe.Param()
	case "lte":
		rule = "must be <= " + fe.Param()
	case "gtefield":
		rule = "must be >= " + snakeCase(fe.Param())
	case "oneof":
		rule = "must be one of [" + strings.ReplaceAll(fe.Param(), " ", ", ") + "]"
	case "required":
		return key + " is required"
	default:
		rule = "failed " + fe.Tag()
	}
	return fmt.Sprintf("%s %s (got %v)", key, rule, fe.Value())
}

// snakeCase converts a Go field name such as MinPosts to min_posts.
func snakeCase(s string) string {
	var b strings.Builder
	for i, r := range s {
		if unicode.IsUpper(r) {
			if i > 0 {
				b.WriteByte('_')
			}
			r = unicode.ToLower(r)
		}
		b.WriteRune(r)
	}
	return b.String()
}

// applyEnvOverrides applies environment variable overrides to the config.
// Unparseable numeric values are ignored.
func applyEnvOverrides(config *SocialgenConfig) {
	if v := os.Getenv("SOCIALGEN_NUM_USERS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Generator.NumUsers = n
		}
	}
	if v := os.Getenv("SOCIALGEN_MIN_POSTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Generator.MinPosts = n
		}
	}
	if v := os.Getenv("SOCIALGEN_MAX_POSTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			config.Generator.MaxPosts = n
		}
	}
	if v := os.Getenv("SOCIALGEN_SIMULATION_DURATION"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Generator.SimulationDuration = f
		}
	}
	if v := os.Getenv("SOCIALGEN_AVG_FOLLOWING"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Generator.AvgFollowing = f
		}
	}
	if v := os.Getenv("SOCIALGEN_SEED"); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			config.Generator.Seed = &n
		}
	}

	if v := os.Getenv("SOCIALGEN_OUTPUT"); v != "" {
		config.Output.Path = v
	}
	if v := os.Getenv("SOCIALGEN_SCHEMA"); v != "" {
		config.Output.Schema = constants.Schema(v)
	}

	if v := os.Getenv("SOCIALGEN_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}

	if v := os.Getenv("SOCIALGEN_SQLITE_PATH"); v != "" {
		config.Sinks.SQLitePath = v
	}
	if v := os.Getenv("SOCIALGEN_POSTGRES_DSN"); v != "" {
		config.Sinks.PostgresDSN = v
	}

	if v := os.Getenv("SOCIALGEN_ARCHIVE_DIR"); v != "" {
		config.Archive.Dir = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
