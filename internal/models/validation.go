package models

import (
	"fmt"
	"strconv"
)

// Validation issue kinds.
const (
	IssueIDMismatch  = "id-mismatch"
	IssueSelfFollow  = "self-follow"
	IssueDangling    = "dangling"
	IssueDuplicate   = "duplicate"
	IssueDegree      = "degree"
	IssueAsymmetric  = "asymmetric"
	IssuePostCount   = "post-count"
	IssueTimeRange   = "time-range"
	IssueUnordered   = "unordered"
	IssuePostOwner   = "post-owner"
	IssueDuplicateID = "duplicate-id"
)

// ValidationError describes one violated dataset invariant.
type ValidationError struct {
	UserID int    `json:"user_id"`
	Field  string `json:"field"` // "id", "following", "followers", "posts"
	Ref    string `json:"ref,omitempty"`
	Issue  string `json:"issue"`
}

// String returns a human-readable description of the validation error.
func (e ValidationError) String() string {
	if e.Ref == "" {
		return fmt.Sprintf("%s: user %d %s", e.Issue, e.UserID, e.Field)
	}
	return fmt.Sprintf("%s: user %d %s references %s", e.Issue, e.UserID, e.Field, e.Ref)
}

// Bounds are the generation parameters a dataset is checked against.
type Bounds struct {
	MinPosts int
	MaxPosts int
	Duration float64
}

// Validate checks every dataset invariant and returns all violations.
// Structural checks (ids, self-follow, symmetry, degree, ordering, id
// uniqueness) always run; post-count and time-range checks need bounds
// and are skipped when b is nil, except that times must be non-negative.
func (d *Dataset) Validate(b *Bounds) []ValidationError {
	var errs []ValidationError
	n := len(d.Users)

	seqs := make(map[int]bool, d.PostCount())
	composite := make(map[string]bool, d.PostCount())

	for i, u := range d.Users {
		if u.ID != i {
			errs = append(errs, ValidationError{UserID: u.ID, Field: "id", Ref: strconv.Itoa(i), Issue: IssueIDMismatch})
		}

		seen := make(map[int]bool, len(u.Following))
		for _, target := range u.Following {
			ref := strconv.Itoa(target)
			switch {
			case target == u.ID:
				errs = append(errs, ValidationError{UserID: u.ID, Field: "following", Ref: ref, Issue: IssueSelfFollow})
			case target < 0 || target >= n:
				errs = append(errs, ValidationError{UserID: u.ID, Field: "following", Ref: ref, Issue: IssueDangling})
			case seen[target]:
				errs = append(errs, ValidationError{UserID: u.ID, Field: "following", Ref: ref, Issue: IssueDuplicate})
			case !contains(d.Users[target].Followers, u.ID):
				errs = append(errs, ValidationError{UserID: u.ID, Field: "following", Ref: ref, Issue: IssueAsymmetric})
			}
			seen[target] = true
		}

		if len(u.Following) < 1 || len(u.Following) > n-1 {
			errs = append(errs, ValidationError{UserID: u.ID, Field: "following", Ref: strconv.Itoa(len(u.Following)), Issue: IssueDegree})
		}

		for _, follower := range u.Followers {
			ref := strconv.Itoa(follower)
			if follower < 0 || follower >= n {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "followers", Ref: ref, Issue: IssueDangling})
				continue
			}
			if !contains(d.Users[follower].Following, u.ID) {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "followers", Ref: ref, Issue: IssueAsymmetric})
			}
		}

		if b != nil && (len(u.Posts) < b.MinPosts || len(u.Posts) > b.MaxPosts) {
			errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: strconv.Itoa(len(u.Posts)), Issue: IssuePostCount})
		}

		for j, p := range u.Posts {
			if p.Author != u.ID || p.Index != j {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: p.CompositeID(), Issue: IssuePostOwner})
			}
			if p.Time < 0 || (b != nil && p.Time >= b.Duration) {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: p.CompositeID(), Issue: IssueTimeRange})
			}
			if j > 0 && p.Time < u.Posts[j-1].Time {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: p.CompositeID(), Issue: IssueUnordered})
			}
			if seqs[p.Seq] {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: strconv.Itoa(p.Seq), Issue: IssueDuplicateID})
			}
			seqs[p.Seq] = true
			if id := p.CompositeID(); composite[id] {
				errs = append(errs, ValidationError{UserID: u.ID, Field: "posts", Ref: id, Issue: IssueDuplicateID})
			} else {
				composite[id] = true
			}
		}
	}

	return errs
}

func contains(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
