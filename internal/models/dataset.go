// Package models defines the canonical in-memory dataset: users, their
// follow relation, and their chronological post streams. Every schema
// version is an encoding of this one model.
package models

// Dataset is a fully generated network. Users are indexed by id.
type Dataset struct {
	Users []User `json:"users"`
}

// PostCount returns the total number of posts across all users.
func (d *Dataset) PostCount() int {
	n := 0
	for _, u := range d.Users {
		n += len(u.Posts)
	}
	return n
}

// EdgeCount returns the number of follow edges.
func (d *Dataset) EdgeCount() int {
	n := 0
	for _, u := range d.Users {
		n += len(u.Following)
	}
	return n
}

// Posts returns every post in user-iteration order, which is also
// ascending Seq order for an assembled dataset.
func (d *Dataset) Posts() []Post {
	posts := make([]Post, 0, d.PostCount())
	for _, u := range d.Users {
		posts = append(posts, u.Posts...)
	}
	return posts
}

// User returns the user with the given id, or nil if out of range.
func (d *Dataset) User(id int) *User {
	if id < 0 || id >= len(d.Users) {
		return nil
	}
	return &d.Users[id]
}
