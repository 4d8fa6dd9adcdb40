package seed

import (
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Mapper converts a Fixture into a Seed
type Mapper struct {
	newID func() string
}

// NewMapper creates a new mapper instance
func NewMapper() *Mapper {
	return &Mapper{
		newID: uuid.NewString,
	}
}

// MapFixture trims IDs, drops duplicates (first wins) and assigns a UUID to
// entries without one. A fixture with nothing in it is an error.
func (m *Mapper) MapFixture(f *Fixture) (*Seed, error) {
	if f == nil {
		return nil, fmt.Errorf("no fixture")
	}

	s := &Seed{
		UserIDs:    m.ids(f.Users),
		ArticleIDs: m.ids(f.Articles),
	}
	if len(s.UserIDs) == 0 && len(s.ArticleIDs) == 0 {
		return nil, fmt.Errorf("no users or articles found in seed fixture")
	}
	return s, nil
}

func (m *Mapper) ids(entries []Entry) []string {
	seen := make(map[string]struct{}, len(entries))
	ids := make([]string, 0, len(entries))
	for _, e := range entries {
		id := strings.TrimSpace(e.ID)
		if id == "" {
			id = m.newID()
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}
