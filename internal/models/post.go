package models

import (
	"fmt"
	"strconv"
	"strings"
)

// Post is a single authored post. The canonical model carries both the
// global sequence number and the (author, index) pair so either wire id
// can be derived without a second pass.
type Post struct {
	// Seq is the dataset-wide integer id, assigned in user-iteration order.
	Seq int `json:"seq"`

	// Author is the id of the user who wrote the post.
	Author int `json:"author"`

	// Index is the post's position in its author's chronological stream.
	Index int `json:"index"`

	// Time is when the post was made, in [0, duration), 2 decimal places.
	Time float64 `json:"time"`
}

// CompositeID returns the "{author}_{index}" form of the post id.
func (p Post) CompositeID() string {
	return fmt.Sprintf("%d_%d", p.Author, p.Index)
}

// ParseCompositeID splits a "{author}_{index}" id. Both parts must be
// unsigned decimal numbers.
func ParseCompositeID(id string) (author, index int, err error) {
	a, i, ok := strings.Cut(id, "_")
	if !ok {
		return 0, 0, fmt.Errorf("post id %q: missing '_' separator", id)
	}
	author, err = parseUint(a)
	if err != nil {
		return 0, 0, fmt.Errorf("post id %q: bad author: %w", id, err)
	}
	index, err = parseUint(i)
	if err != nil {
		return 0, 0, fmt.Errorf("post id %q: bad index: %w", id, err)
	}
	return author, index, nil
}

// parseUint accepts only ASCII digits; strconv.Atoi alone would allow a sign.
func parseUint(s string) (int, error) {
	if s == "" {
		return 0, fmt.Errorf("empty number")
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, fmt.Errorf("%q is not an unsigned integer", s)
		}
	}
	return strconv.Atoi(s)
}
