package ranking

import "math"

// ExponentialDecay returns a recency weight in (0, 1] for a post made at
// time t when the simulation ends at horizon. A post at the horizon scores
// 1.0 and the weight halves every halfLife simulation time units.
func ExponentialDecay(t, horizon, halfLife float64) float64 {
	if halfLife <= 0 {
		return 0.0
	}

	elapsed := horizon - t
	if elapsed <= 0 {
		return 1.0
	}

	// Using natural decay: score = e^(-lambda * t)
	// where lambda = ln(2) / halfLife
	lambda := math.Ln2 / halfLife
	return math.Exp(-lambda * elapsed)
}
