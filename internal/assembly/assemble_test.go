package assembly

import (
	"bufio"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/logging"
)

func sampleGraph() *graph.Graph {
	return &graph.Graph{
		Following: [][]int{{1}, {0, 2}, {0}},
		Followers: [][]int{{1, 2}, {0}, {1}},
	}
}

func TestAssemble_GlobalSequence(t *testing.T) {
	streams := [][]float64{{1.5, 2.25}, {}, {0.1, 0.2, 9.99}}

	ds, err := NewAssembler().WithPolicySize(5).Assemble(sampleGraph(), streams)
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	if len(ds.Users) != 3 {
		t.Fatalf("got %d users, want 3", len(ds.Users))
	}
	if ds.PostCount() != 5 {
		t.Fatalf("PostCount() = %d, want 5", ds.PostCount())
	}

	// Sequence numbers run across users in id order, skipping nobody.
	for i, p := range ds.Posts() {
		if p.Seq != i {
			t.Errorf("post %d has Seq %d", i, p.Seq)
		}
	}

	u2 := ds.Users[2]
	if u2.Posts[0].Seq != 2 || u2.Posts[2].Seq != 4 {
		t.Errorf("user 2 seqs = %d..%d, want 2..4", u2.Posts[0].Seq, u2.Posts[2].Seq)
	}
	if u2.Posts[2].CompositeID() != "2_2" {
		t.Errorf("CompositeID() = %q, want 2_2", u2.Posts[2].CompositeID())
	}
	if u2.Posts[2].Time != 9.99 {
		t.Errorf("Time = %v, want 9.99", u2.Posts[2].Time)
	}
}

func TestAssemble_CarriesGraphAndPolicy(t *testing.T) {
	ds, err := NewAssembler().WithPolicySize(4).Assemble(sampleGraph(), [][]float64{{}, {}, {}})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}

	u1 := ds.Users[1]
	if u1.ID != 1 {
		t.Errorf("ID = %d, want 1", u1.ID)
	}
	if len(u1.Following) != 2 || u1.Following[0] != 0 || u1.Following[1] != 2 {
		t.Errorf("Following = %v, want [0 2]", u1.Following)
	}
	if len(u1.Policy) != 4 || u1.Policy[0] != 0.25 {
		t.Errorf("Policy = %v, want four 0.25 entries", u1.Policy)
	}
	if u1.Posts == nil {
		t.Error("Posts should be an empty slice, not nil")
	}
	if errs := ds.Validate(nil); len(errs) != 0 {
		t.Errorf("assembled dataset invalid: %v", errs)
	}
}

func TestAssemble_NilAdjacencyBecomesEmpty(t *testing.T) {
	g := &graph.Graph{
		Following: [][]int{{1}, {0}},
		Followers: [][]int{nil, nil},
	}
	ds, err := NewAssembler().Assemble(g, [][]float64{{}, {}})
	if err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	if ds.Users[0].Followers == nil {
		t.Error("Followers should be non-nil")
	}
	if ds.Users[0].Policy != nil {
		t.Errorf("Policy = %v, want nil without WithPolicySize", ds.Users[0].Policy)
	}
}

func TestAssemble_MismatchedStreams(t *testing.T) {
	_, err := NewAssembler().Assemble(sampleGraph(), [][]float64{{1}})
	if err == nil {
		t.Fatal("expected error for mismatched stream count")
	}
	if !strings.Contains(err.Error(), "3 users") {
		t.Errorf("error = %v, want mention of user count", err)
	}
}

func TestAssemble_TracesIDAssignment(t *testing.T) {
	dir := t.TempDir()
	trace := logging.NewTraceLogger(dir, "debug")
	if trace == nil {
		t.Fatal("expected a trace logger at debug level")
	}

	streams := [][]float64{{1.5, 2.25}, {}, {0.1, 0.2, 9.99}}
	if _, err := NewAssembler().WithTrace(trace).Assemble(sampleGraph(), streams); err != nil {
		t.Fatalf("Assemble() error = %v", err)
	}
	trace.Close()

	f, err := os.Open(filepath.Join(dir, logging.TraceFileName))
	if err != nil {
		t.Fatalf("opening trace: %v", err)
	}
	defer f.Close()

	type event struct {
		Event    string `json:"event"`
		User     int    `json:"user"`
		FirstSeq int    `json:"first_seq"`
		Posts    int    `json:"posts"`
	}
	var got []event
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		var e event
		if err := json.Unmarshal(scanner.Bytes(), &e); err != nil {
			t.Fatalf("bad trace line %q: %v", scanner.Text(), err)
		}
		got = append(got, e)
	}

	want := []event{
		{"ids_assigned", 0, 0, 2},
		{"ids_assigned", 1, 2, 0},
		{"ids_assigned", 2, 2, 3},
	}
	if len(got) != len(want) {
		t.Fatalf("got %d trace events, want %d: %+v", len(got), len(want), got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("event %d = %+v, want %+v", i, got[i], want[i])
		}
	}
}
