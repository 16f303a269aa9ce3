package export

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/models"
)

// FlatEncoder produces the normalized shape: one global post table with
// integer ids, and users that reference their posts by id.
//
//	{"posts": [{"id": 0, "time": 6.56}], "users": [{"id": 0, "policy": [...],
//	 "following": [...], "followers": [...], "authored_post_ids": [0]}]}
type FlatEncoder struct{}

type flatDocument struct {
	Posts []flatPost `json:"posts"`
	Users []flatUser `json:"users"`
}

type flatPost struct {
	ID   int     `json:"id"`
	Time float64 `json:"time"`
}

type flatUser struct {
	ID              int       `json:"id"`
	Policy          []float64 `json:"policy"`
	Following       []int     `json:"following"`
	Followers       []int     `json:"followers"`
	AuthoredPostIDs []int     `json:"authored_post_ids"`
}

// Schema implements Encoder.
func (FlatEncoder) Schema() constants.Schema { return constants.SchemaFlat }

// Encode implements Encoder.
func (FlatEncoder) Encode(ds *models.Dataset) ([]byte, error) {
	doc := flatDocument{
		Posts: make([]flatPost, 0, ds.PostCount()),
		Users: make([]flatUser, 0, len(ds.Users)),
	}

	for _, u := range ds.Users {
		authored := make([]int, len(u.Posts))
		for i, p := range u.Posts {
			doc.Posts = append(doc.Posts, flatPost{ID: p.Seq, Time: p.Time})
			authored[i] = p.Seq
		}

		policy := u.Policy
		if policy == nil {
			policy = []float64{}
		}
		doc.Users = append(doc.Users, flatUser{
			ID:              u.ID,
			Policy:          policy,
			Following:       nonNil(u.Following),
			Followers:       nonNil(u.Followers),
			AuthoredPostIDs: authored,
		})
	}

	data, err := json.MarshalIndent(doc, "", indent)
	if err != nil {
		return nil, fmt.Errorf("encoding flat dataset: %w", err)
	}
	return data, nil
}

// Decode implements Encoder. Every authored id must resolve to a post in
// the post table.
func (FlatEncoder) Decode(data []byte) (*models.Dataset, error) {
	var doc flatDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding flat dataset: %w", err)
	}

	times := make(map[int]float64, len(doc.Posts))
	for _, p := range doc.Posts {
		if _, dup := times[p.ID]; dup {
			return nil, fmt.Errorf("decoding flat dataset: duplicate post id %d", p.ID)
		}
		times[p.ID] = p.Time
	}

	ds := &models.Dataset{Users: make([]models.User, len(doc.Users))}
	for i, fu := range doc.Users {
		u := models.User{
			ID:        fu.ID,
			Policy:    fu.Policy,
			Following: nonNil(fu.Following),
			Followers: nonNil(fu.Followers),
			Posts:     make([]models.Post, len(fu.AuthoredPostIDs)),
		}
		for j, id := range fu.AuthoredPostIDs {
			t, ok := times[id]
			if !ok {
				return nil, fmt.Errorf("decoding flat dataset: user %d references unknown post %d", fu.ID, id)
			}
			u.Posts[j] = models.Post{Seq: id, Author: fu.ID, Index: j, Time: t}
		}
		ds.Users[i] = u
	}
	return ds, nil
}
