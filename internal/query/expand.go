package query

import (
	"context"
	"fmt"

	"github.com/devcamper/catalog/pkg/model"
)

// Expansion inlines related records into each result.
//
// A forward expansion (Many=false) replaces LocalField, which holds a
// reference, with the referenced record. A reverse expansion (Many=true)
// attaches under As every record whose ForeignField equals LocalField.
type Expansion struct {
	As           string
	Collection   string
	LocalField   string
	ForeignField string
	Select       []string
	Many         bool
}

// Related returns the expansion that inlines a record's parent, e.g. a
// course's bootcamp with name and description.
func Related(field, collection string, fields ...string) Expansion {
	return Expansion{
		As:           field,
		Collection:   collection,
		LocalField:   field,
		ForeignField: model.FieldID,
		Select:       fields,
	}
}

// Children returns the expansion that attaches a record's children, e.g. a
// bootcamp's courses.
func Children(as, collection, ref string, fields ...string) Expansion {
	return Expansion{
		As:           as,
		Collection:   collection,
		LocalField:   model.FieldID,
		ForeignField: ref,
		Select:       fields,
		Many:         true,
	}
}

// Expand applies expansions to docs in place, one store read per expansion.
func Expand(ctx context.Context, store Store, docs []model.Document, expansions ...Expansion) error {
	for _, e := range expansions {
		if err := expand(ctx, store, docs, e); err != nil {
			return err
		}
	}
	return nil
}

// expand resolves e for the whole page with one store read.
func expand(ctx context.Context, store Store, docs []model.Document, e Expansion) error {
	if len(docs) == 0 {
		return nil
	}

	seen := make(map[string]bool, len(docs))
	keys := make([]interface{}, 0, len(docs))
	for _, d := range docs {
		k, ok := d[e.LocalField].(string)
		if !ok || k == "" || seen[k] {
			continue
		}
		seen[k] = true
		keys = append(keys, k)
	}
	if len(keys) == 0 {
		return nil
	}

	sel := e.Select
	if len(sel) > 0 && e.ForeignField != model.FieldID {
		sel = append(append([]string(nil), sel...), e.ForeignField)
	}
	related, err := store.Find(ctx, model.Query{
		Collection: e.Collection,
		Filters:    model.Filters{{Field: e.ForeignField, Op: model.OpIn, Value: keys}},
		OrderBy:    []model.Order{{Field: model.FieldCreatedAt, Direction: model.Asc}},
		Select:     sel,
	})
	if err != nil {
		return fmt.Errorf("failed to expand %s: %w", e.As, err)
	}

	byKey := make(map[string][]model.Document, len(related))
	for _, r := range related {
		k := fmt.Sprint(r[e.ForeignField])
		byKey[k] = append(byKey[k], r)
	}

	for _, d := range docs {
		k, _ := d[e.LocalField].(string)
		matches := byKey[k]
		if e.Many {
			if matches == nil {
				matches = []model.Document{}
			}
			d[e.As] = matches
			continue
		}
		// A dangling reference is left as the raw id.
		if len(matches) > 0 {
			d[e.As] = matches[0]
		}
	}
	return nil
}
