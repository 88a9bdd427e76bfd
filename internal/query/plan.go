// Package query turns raw list-request parameters into bounded store queries
// and renders paginated result envelopes.
package query

import (
	"github.com/devcamper/catalog/pkg/model"
)

// Reserved control parameters. They never become field filters.
const (
	ParamSelect = "select"
	ParamSort   = "sort"
	ParamPage   = "page"
	ParamLimit  = "limit"
)

// Plan is a normalized list query. It is built per request and discarded.
type Plan struct {
	Collection string
	Filters    model.Filters
	OrderBy    []model.Order
	Select     []string
	Exclude    []string
	Page       int
	Limit      int
	Skip       int
	Expand     []Expansion
}

// Query returns the store query for the page described by the plan.
func (p Plan) Query() model.Query {
	return model.Query{
		Collection: p.Collection,
		Filters:    p.Filters,
		OrderBy:    p.OrderBy,
		Skip:       p.Skip,
		Limit:      p.Limit,
		Select:     p.Select,
		Exclude:    p.Exclude,
	}
}

// WithExpand returns a copy of the plan that inlines the given relations.
func (p Plan) WithExpand(expansions ...Expansion) Plan {
	p.Expand = append(append([]Expansion(nil), p.Expand...), expansions...)
	return p
}

// Pagination describes the neighbouring pages. A nil field means there is no
// page in that direction.
type Pagination struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// PageRef points at another page using the same limit.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Paginate computes next/prev descriptors: next exists iff skip+limit < total,
// prev exists iff page > 1.
func Paginate(p Plan, total int64) Pagination {
	var pg Pagination
	// skip < total-limit, so huge skips cannot overflow
	if int64(p.Skip) < total-int64(p.Limit) {
		pg.Next = &PageRef{Page: p.Page + 1, Limit: p.Limit}
	}
	if p.Page > 1 {
		pg.Prev = &PageRef{Page: p.Page - 1, Limit: p.Limit}
	}
	return pg
}

// Envelope is the list response body.
type Envelope struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Pagination Pagination       `json:"pagination"`
	Data       []model.Document `json:"data"`
}
