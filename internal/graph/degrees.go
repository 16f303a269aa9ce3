package graph

import (
	"sort"

	"github.com/nvandessel/socialgen/internal/models"
)

// DegreeStats summarizes one side (out or in) of the degree distribution.
type DegreeStats struct {
	Min  int     `json:"min"`
	Max  int     `json:"max"`
	Mean float64 `json:"mean"`
	// Histogram maps a degree to the number of users with that degree.
	Histogram map[int]int `json:"histogram"`
}

// Degrees holds out-degree (following) and in-degree (followers) statistics.
type Degrees struct {
	Out DegreeStats `json:"out"`
	In  DegreeStats `json:"in"`
}

// ComputeDegrees summarizes the degree distribution of g.
func ComputeDegrees(g *Graph) Degrees {
	return Degrees{
		Out: summarize(g.Following),
		In:  summarize(g.Followers),
	}
}

func summarize(adj [][]int) DegreeStats {
	stats := DegreeStats{Histogram: make(map[int]int)}
	if len(adj) == 0 {
		return stats
	}

	stats.Min = len(adj[0])
	total := 0
	for _, list := range adj {
		d := len(list)
		total += d
		stats.Histogram[d]++
		if d < stats.Min {
			stats.Min = d
		}
		if d > stats.Max {
			stats.Max = d
		}
	}
	stats.Mean = float64(total) / float64(len(adj))
	return stats
}

// SortedKeys returns the histogram's degrees in ascending order.
func (s DegreeStats) SortedKeys() []int {
	keys := make([]int, 0, len(s.Histogram))
	for k := range s.Histogram {
		keys = append(keys, k)
	}
	sort.Ints(keys)
	return keys
}

// FromDataset rebuilds a Graph view over a loaded dataset. The slices are
// shared with the dataset, not copied.
func FromDataset(ds *models.Dataset) *Graph {
	g := &Graph{
		Following: make([][]int, len(ds.Users)),
		Followers: make([][]int, len(ds.Users)),
	}
	for i, u := range ds.Users {
		g.Following[i] = u.Following
		g.Followers[i] = u.Followers
	}
	return g
}
