// Package visualization renders the follow graph of a dataset in various output formats.
package visualization

import (
	"fmt"
	"strings"

	"github.com/nvandessel/socialgen/internal/models"
)

// Format specifies the output format for graph rendering.
type Format string

const (
	FormatDOT  Format = "dot"
	FormatJSON Format = "json"
)

// ParseFormat validates a --format flag value.
func ParseFormat(s string) (Format, error) {
	switch f := Format(s); f {
	case FormatDOT, FormatJSON:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported format %q (use 'dot' or 'json')", s)
	}
}

// activityColors buckets users by post count relative to the busiest user.
var activityColors = []string{"lightgray", "lightblue", "steelblue", "navy"}

// EnrichmentData provides optional data to augment the rendered graph.
type EnrichmentData struct {
	// PageRank holds one normalized score per user id.
	PageRank []float64
}

func (e *EnrichmentData) pageRank(id int) (float64, bool) {
	if e == nil || id < 0 || id >= len(e.PageRank) {
		return 0, false
	}
	return e.PageRank[id], true
}

// RenderDOT produces a Graphviz DOT representation of the follow graph.
// An edge "a" -> "b" means a follows b. Node labels carry post counts and
// fill color reflects relative activity.
func RenderDOT(ds *models.Dataset, enrichment *EnrichmentData) string {
	maxPosts := 0
	for _, u := range ds.Users {
		maxPosts = max(maxPosts, len(u.Posts))
	}

	var b strings.Builder
	b.WriteString("digraph socialgen {\n")
	b.WriteString("  node [shape=circle, style=filled, fontname=\"Helvetica\"];\n")
	b.WriteString("  edge [arrowsize=0.6];\n\n")

	for _, u := range ds.Users {
		tooltip := fmt.Sprintf("followers=%d following=%d", len(u.Followers), len(u.Following))
		if pr, ok := enrichment.pageRank(u.ID); ok {
			tooltip += fmt.Sprintf(" pagerank=%.3f", pr)
		}
		fmt.Fprintf(&b, "  \"%d\" [label=\"%d\\n%d posts\", fillcolor=%q, tooltip=%q];\n",
			u.ID, u.ID, len(u.Posts), activityColor(len(u.Posts), maxPosts), tooltip)
	}
	b.WriteString("\n")

	for _, u := range ds.Users {
		for _, t := range u.Following {
			fmt.Fprintf(&b, "  \"%d\" -> \"%d\";\n", u.ID, t)
		}
	}

	b.WriteString("}\n")
	return b.String()
}

// GraphJSON is the node/edge rendering of a dataset.
type GraphJSON struct {
	Nodes     []NodeJSON `json:"nodes"`
	Edges     []EdgeJSON `json:"edges"`
	NodeCount int        `json:"node_count"`
	EdgeCount int        `json:"edge_count"`
}

// NodeJSON describes one user.
type NodeJSON struct {
	ID        int      `json:"id"`
	Posts     int      `json:"posts"`
	Following int      `json:"following"`
	Followers int      `json:"followers"`
	PageRank  *float64 `json:"pagerank,omitempty"`
}

// EdgeJSON is one follow edge: Source follows Target.
type EdgeJSON struct {
	Source int `json:"source"`
	Target int `json:"target"`
}

// RenderJSON produces a JSON-ready graph with nodes and edges arrays.
// If enrichment is nil, PageRank is omitted.
func RenderJSON(ds *models.Dataset, enrichment *EnrichmentData) GraphJSON {
	out := GraphJSON{
		Nodes: make([]NodeJSON, 0, len(ds.Users)),
		Edges: make([]EdgeJSON, 0, ds.EdgeCount()),
	}
	for _, u := range ds.Users {
		node := NodeJSON{
			ID:        u.ID,
			Posts:     len(u.Posts),
			Following: len(u.Following),
			Followers: len(u.Followers),
		}
		if pr, ok := enrichment.pageRank(u.ID); ok {
			node.PageRank = &pr
		}
		out.Nodes = append(out.Nodes, node)

		for _, t := range u.Following {
			out.Edges = append(out.Edges, EdgeJSON{Source: u.ID, Target: t})
		}
	}
	out.NodeCount = len(out.Nodes)
	out.EdgeCount = len(out.Edges)
	return out
}

// activityColor maps a post count onto activityColors.
func activityColor(posts, maxPosts int) string {
	if maxPosts == 0 || posts == 0 {
		return activityColors[0]
	}
	last := len(activityColors) - 1
	bucket := 1 + (posts*(last-1))/maxPosts
	return activityColors[min(bucket, last)]
}
