// Package constants provides named constants used throughout the socialgen codebase.
// This centralizes generator defaults so config, CLI help and tests agree.
package constants

// Population and graph defaults
const (
	// DefaultNumUsers is the number of users generated when no config overrides it.
	DefaultNumUsers = 100

	// DefaultAvgFollowing is the mean out-degree of the follow graph.
	DefaultAvgFollowing = 10.0

	// DefaultFollowingStdDev is the spread of the out-degree normal draw.
	DefaultFollowingStdDev = 2.0

	// DefaultPolicySize is the number of action types in a user's policy vector.
	DefaultPolicySize = 5
)

// Post stream defaults
const (
	// DefaultMinPosts is the lower bound (inclusive) of posts per user.
	DefaultMinPosts = 10

	// DefaultMaxPosts is the upper bound (inclusive) of posts per user.
	DefaultMaxPosts = 50

	// MaxPostsPerUser caps generator.max_posts. Keep in sync with the
	// lte tag on config.GeneratorConfig.MaxPosts.
	MaxPostsPerUser = 1_000_000

	// DefaultSimulationDuration is the exclusive upper bound of post timestamps,
	// in abstract time units (e.g. minutes).
	DefaultSimulationDuration = 1000.0

	// TimePrecision is the number of decimal places timestamps are rounded to.
	TimePrecision = 2
)

// Output defaults
const (
	// DefaultOutputPath is the file the generate command writes to.
	DefaultOutputPath = "sim_data.json"

	// DefaultBatchSize is the number of rows queued per database round-trip.
	DefaultBatchSize = 1000
)
