package store

import (
	"sort"
	"strings"

	"github.com/HEITORHOG1/SiteRapidex-sub003/internal/client/models"
)

// Apply evaluates a filter spec against a collection and returns the
// resulting view. The input slice is never mutated. Sorting is stable, so
// entities that compare equal keep their prior relative order. An empty
// SortBy leaves the collection in its current order.
func Apply(collection []models.Category, spec models.FilterSpec) []models.Category {
	out := make([]models.Category, 0, len(collection))
	search := strings.ToLower(strings.TrimSpace(spec.Search))
	for _, c := range collection {
		if search != "" {
			name := strings.ToLower(c.Name)
			desc := strings.ToLower(c.Description)
			if !strings.Contains(name, search) && !strings.Contains(desc, search) {
				continue
			}
		}
		if spec.Active != nil && c.Active != *spec.Active {
			continue
		}
		out = append(out, c)
	}

	if spec.SortBy == "" {
		return out
	}

	less := comparator(spec.SortBy)
	sort.SliceStable(out, func(i, j int) bool {
		if spec.Desc {
			return less(out[j], out[i])
		}
		return less(out[i], out[j])
	})
	return out
}

func comparator(key models.SortKey) func(a, b models.Category) bool {
	switch key {
	case models.SortByCreatedAt:
		return func(a, b models.Category) bool { return a.CreatedAt.Before(b.CreatedAt) }
	case models.SortByUpdatedAt:
		return func(a, b models.Category) bool { return a.UpdatedAt.Before(b.UpdatedAt) }
	case models.SortByDependentCount:
		return func(a, b models.Category) bool { return a.DependentCount < b.DependentCount }
	default:
		return func(a, b models.Category) bool {
			return strings.ToLower(a.Name) < strings.ToLower(b.Name)
		}
	}
}
