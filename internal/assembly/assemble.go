// Package assembly merges a follow graph and per-user post streams into the
// canonical dataset model. It is the single owner of the global post
// sequence, so post ids stay unique and increase in user-iteration order.
package assembly

import (
	"fmt"

	"github.com/nvandessel/socialgen/internal/graph"
	"github.com/nvandessel/socialgen/internal/logging"
	"github.com/nvandessel/socialgen/internal/models"
)

// Assembler builds a models.Dataset from generation results.
type Assembler struct {
	policySize int
	trace      *logging.TraceLogger
}

// NewAssembler creates an assembler producing no policy vectors.
func NewAssembler() *Assembler {
	return &Assembler{}
}

// WithPolicySize sets the length of each user's uniform policy.
func (a *Assembler) WithPolicySize(size int) *Assembler {
	a.policySize = size
	return a
}

// WithTrace records the post id range assigned to each user.
func (a *Assembler) WithTrace(trace *logging.TraceLogger) *Assembler {
	a.trace = trace
	return a
}

// Assemble combines g and streams (one timestamp list per user, each
// already sorted) into a dataset. Post sequence numbers are assigned by a
// single counter walking users in id order.
func (a *Assembler) Assemble(g *graph.Graph, streams [][]float64) (*models.Dataset, error) {
	if len(streams) != g.Size() {
		return nil, fmt.Errorf("assembling dataset: graph has %d users but %d post streams", g.Size(), len(streams))
	}

	ds := &models.Dataset{Users: make([]models.User, g.Size())}
	seq := 0
	for id := range ds.Users {
		user := models.User{
			ID:        id,
			Policy:    models.UniformPolicy(a.policySize),
			Following: nonNil(g.Following[id]),
			Followers: nonNil(g.Followers[id]),
			Posts:     make([]models.Post, len(streams[id])),
		}
		first := seq
		for i, t := range streams[id] {
			user.Posts[i] = models.Post{Seq: seq, Author: id, Index: i, Time: t}
			seq++
		}
		a.trace.Log("ids_assigned", map[string]any{"user": id, "first_seq": first, "posts": len(streams[id])})
		ds.Users[id] = user
	}

	return ds, nil
}

func nonNil(ids []int) []int {
	if ids == nil {
		return []int{}
	}
	return ids
}
