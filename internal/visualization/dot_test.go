package visualization

import (
	"strings"
	"testing"

	"github.com/nvandessel/socialgen/internal/models"
)

func triangle() *models.Dataset {
	return &models.Dataset{Users: []models.User{
		{ID: 0, Following: []int{1, 2}, Followers: []int{1}, Posts: []models.Post{{Seq: 0, Author: 0, Time: 1}}},
		{ID: 1, Following: []int{0}, Followers: []int{0, 2}, Posts: []models.Post{}},
		{ID: 2, Following: []int{1}, Followers: []int{0}, Posts: []models.Post{
			{Seq: 1, Author: 2, Index: 0, Time: 2},
			{Seq: 2, Author: 2, Index: 1, Time: 3},
		}},
	}}
}

func TestRenderDOT(t *testing.T) {
	out := RenderDOT(triangle(), nil)

	if !strings.HasPrefix(out, "digraph socialgen {") {
		t.Errorf("missing digraph header:\n%s", out)
	}
	if !strings.HasSuffix(out, "}\n") {
		t.Error("missing closing brace")
	}

	for _, edge := range []string{`"0" -> "1"`, `"0" -> "2"`, `"1" -> "0"`, `"2" -> "1"`} {
		if !strings.Contains(out, edge) {
			t.Errorf("missing edge %s", edge)
		}
	}
	if got := strings.Count(out, "->"); got != 4 {
		t.Errorf("got %d edges, want 4", got)
	}
	if !strings.Contains(out, `label="2\n2 posts"`) {
		t.Errorf("node 2 label should carry its post count:\n%s", out)
	}
	if strings.Contains(out, "pagerank") {
		t.Error("pagerank should be absent without enrichment")
	}
}

func TestRenderDOT_Enriched(t *testing.T) {
	out := RenderDOT(triangle(), &EnrichmentData{PageRank: []float64{0.5, 1.0, 0.25}})
	if !strings.Contains(out, "pagerank=1.000") {
		t.Errorf("expected pagerank tooltip:\n%s", out)
	}
}

func TestRenderJSON(t *testing.T) {
	g := RenderJSON(triangle(), nil)

	if g.NodeCount != 3 || g.EdgeCount != 4 {
		t.Errorf("counts = %d nodes, %d edges; want 3, 4", g.NodeCount, g.EdgeCount)
	}
	if g.Nodes[2].Posts != 2 || g.Nodes[1].Followers != 2 {
		t.Errorf("unexpected node fields: %+v", g.Nodes)
	}
	if g.Nodes[0].PageRank != nil {
		t.Error("pagerank should be nil without enrichment")
	}
	if g.Edges[0] != (EdgeJSON{Source: 0, Target: 1}) {
		t.Errorf("first edge = %+v", g.Edges[0])
	}

	enriched := RenderJSON(triangle(), &EnrichmentData{PageRank: []float64{0.5, 1.0, 0.25}})
	if enriched.Nodes[1].PageRank == nil || *enriched.Nodes[1].PageRank != 1.0 {
		t.Errorf("node 1 pagerank = %v, want 1.0", enriched.Nodes[1].PageRank)
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"dot", FormatDOT, false},
		{"json", FormatJSON, false},
		{"html", "", true},
	}
	for _, tt := range tests {
		got, err := ParseFormat(tt.in)
		if (err != nil) != tt.wantErr || got != tt.want {
			t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
		}
	}
}

func TestActivityColor(t *testing.T) {
	tests := []struct {
		posts, max int
		want       string
	}{
		{0, 10, "lightgray"},
		{0, 0, "lightgray"},
		{1, 10, "lightblue"},
		{10, 10, "navy"},
	}
	for _, tt := range tests {
		if got := activityColor(tt.posts, tt.max); got != tt.want {
			t.Errorf("activityColor(%d, %d) = %q, want %q", tt.posts, tt.max, got, tt.want)
		}
	}
}
