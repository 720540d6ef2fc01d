package selection

import (
	"fmt"
	"sort"
	"strings"

	"github.com/msalah0e/garden/internal/graph"
	"golang.org/x/text/collate"
	"golang.org/x/text/language"
)

// SuggestLimit is how many autocomplete entries the search box shows.
const SuggestLimit = 8

type SortKey string

const (
	ByName        SortKey = "name"
	ByType        SortKey = "type"
	ByConnections SortKey = "connections"
	ByDate        SortKey = "date"
)

type Order string

const (
	Asc  Order = "asc"
	Desc Order = "desc"
)

// ParseSort reads "name-asc" style sort specs. An empty string means name-asc.
func ParseSort(spec string) (SortKey, Order, error) {
	if spec == "" {
		return ByName, Asc, nil
	}
	field, dir, ok := strings.Cut(strings.ToLower(spec), "-")
	if !ok {
		dir = string(Asc)
	}
	key := SortKey(field)
	switch key {
	case ByName, ByType, ByConnections, ByDate:
	default:
		return "", "", fmt.Errorf("unknown sort field %q (use name, type, connections or date)", field)
	}
	order := Order(dir)
	if order != Asc && order != Desc {
		return "", "", fmt.Errorf("unknown sort order %q (use asc or desc)", dir)
	}
	return key, order, nil
}

// Sort returns a stably sorted copy of entities. degree looks up an entity's
// connection count and may be nil when sorting by another key.
func Sort(entities []*graph.Entity, degree func(id string) int, key SortKey, order Order) []*graph.Entity {
	out := make([]*graph.Entity, len(entities))
	copy(out, entities)

	coll := collate.New(language.Und, collate.Loose)
	cmp := func(a, b *graph.Entity) int {
		switch key {
		case ByType:
			return coll.CompareString(a.Type, b.Type)
		case ByConnections:
			if degree == nil {
				return 0
			}
			return degree(a.ID) - degree(b.ID)
		case ByDate:
			return a.CreatedAt.Compare(b.CreatedAt)
		default:
			return coll.CompareString(a.Name, b.Name)
		}
	}

	sort.SliceStable(out, func(i, j int) bool {
		c := cmp(out[i], out[j])
		if order == Desc {
			return c > 0
		}
		return c < 0
	})
	return out
}

// Suggest returns up to limit entities whose name contains q, in input order.
func Suggest(entities []*graph.Entity, q string, limit int) []*graph.Entity {
	needle := strings.ToLower(strings.TrimSpace(q))
	if needle == "" {
		return nil
	}
	if limit <= 0 {
		limit = SuggestLimit
	}
	var out []*graph.Entity
	for _, e := range entities {
		if strings.Contains(strings.ToLower(e.Name), needle) {
			out = append(out, e)
			if len(out) == limit {
				break
			}
		}
	}
	return out
}
