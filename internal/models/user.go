package models

// User is a member of the synthetic network.
type User struct {
	// ID is the user's position in the id space [0, N).
	ID int `json:"id"`

	// Policy is a probability distribution over action types. It is
	// initialized uniformly and carried through for downstream simulators.
	Policy []float64 `json:"policy,omitempty"`

	// Following lists the ids this user follows, in draw order. Never contains ID.
	Following []int `json:"following"`

	// Followers lists the ids that follow this user; the inverse of Following.
	Followers []int `json:"followers"`

	// Posts is the user's authored stream, in chronological order.
	Posts []Post `json:"posts"`
}

// UniformPolicy returns a policy of the given size with equal mass per action.
func UniformPolicy(size int) []float64 {
	if size <= 0 {
		return nil
	}
	p := make([]float64, size)
	for i := range p {
		p[i] = 1.0 / float64(size)
	}
	return p
}
