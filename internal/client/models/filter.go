package models

// SortKey selects the comparator used when ordering a collection.
type SortKey string

const (
	SortByName           SortKey = "name"
	SortByCreatedAt      SortKey = "createdAt"
	SortByUpdatedAt      SortKey = "updatedAt"
	SortByDependentCount SortKey = "dependentCount"
)

// FilterSpec is a client-side view over a collection: substring match on
// name and description, tri-state active filter (nil means both), and an
// explicit sort key and direction.
type FilterSpec struct {
	Search string  `json:"search,omitempty"`
	Active *bool   `json:"active,omitempty"`
	SortBy SortKey `json:"sort_by,omitempty"`
	Desc   bool    `json:"desc,omitempty"`
}

// IsZero reports whether the spec neither filters nor sorts.
func (f FilterSpec) IsZero() bool {
	return f.Search == "" && f.Active == nil && f.SortBy == ""
}
