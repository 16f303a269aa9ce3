package export

import (
	"fmt"

	"github.com/goccy/go-json"
	"github.com/nvandessel/socialgen/internal/constants"
	"github.com/nvandessel/socialgen/internal/models"
)

// NestedEncoder produces the embedded shape: a list of users, each carrying
// its own posts with composite "{user_id}_{index}" ids. There is no global
// post table and no policy.
//
//	[{"id": 0, "following": [...], "followers": [...],
//	  "posts": [{"id": "0_0", "time": 6.56}]}]
type NestedEncoder struct{}

type nestedUser struct {
	ID        int          `json:"id"`
	Following []int        `json:"following"`
	Followers []int        `json:"followers"`
	Posts     []nestedPost `json:"posts"`
}

type nestedPost struct {
	ID   string  `json:"id"`
	Time float64 `json:"time"`
}

// Schema implements Encoder.
func (NestedEncoder) Schema() constants.Schema { return constants.SchemaNested }

// Encode implements Encoder.
func (NestedEncoder) Encode(ds *models.Dataset) ([]byte, error) {
	doc := make([]nestedUser, 0, len(ds.Users))
	for _, u := range ds.Users {
		posts := make([]nestedPost, len(u.Posts))
		for i, p := range u.Posts {
			posts[i] = nestedPost{ID: p.CompositeID(), Time: p.Time}
		}
		doc = append(doc, nestedUser{
			ID:        u.ID,
			Following: nonNil(u.Following),
			Followers: nonNil(u.Followers),
			Posts:     posts,
		})
	}

	data, err := json.MarshalIndent(doc, "", indent)
	if err != nil {
		return nil, fmt.Errorf("encoding nested dataset: %w", err)
	}
	return data, nil
}

// Decode implements Encoder. Global sequence numbers are reassigned in
// user-iteration order, matching what the assembler would have produced.
func (NestedEncoder) Decode(data []byte) (*models.Dataset, error) {
	var doc []nestedUser
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("decoding nested dataset: %w", err)
	}

	ds := &models.Dataset{Users: make([]models.User, len(doc))}
	seq := 0
	for i, nu := range doc {
		u := models.User{
			ID:        nu.ID,
			Following: nonNil(nu.Following),
			Followers: nonNil(nu.Followers),
			Posts:     make([]models.Post, len(nu.Posts)),
		}
		for j, np := range nu.Posts {
			author, index, err := models.ParseCompositeID(np.ID)
			if err != nil {
				return nil, fmt.Errorf("decoding nested dataset: %w", err)
			}
			u.Posts[j] = models.Post{Seq: seq, Author: author, Index: index, Time: np.Time}
			seq++
		}
		ds.Users[i] = u
	}
	return ds, nil
}
