package model

import "fmt"

// Sort directions.
const (
	Asc  = "asc"
	Desc = "desc"
)

// Order is one sort key.
type Order struct {
	Field     string `json:"field"`
	Direction string `json:"direction"` // "asc" or "desc"
}

// Query is a bounded read against one collection. Select keeps only the
// listed fields and Exclude drops them; a query sets at most one of the two.
type Query struct {
	Collection string   `json:"collection"`
	Filters    Filters  `json:"filters"`
	OrderBy    []Order  `json:"orderBy"`
	Skip       int      `json:"skip"`
	Limit      int      `json:"limit"`
	Select     []string `json:"select,omitempty"`
	Exclude    []string `json:"exclude,omitempty"`
}

// CheckProjection rejects a query that both includes and excludes fields.
func (q Query) CheckProjection() error {
	if len(q.Select) > 0 && len(q.Exclude) > 0 {
		return fmt.Errorf("%w: cannot mix field inclusion and exclusion", ErrInvalidInput)
	}
	return nil
}
