package query

import (
	"context"
	"iter"

	"github.com/devcamper/catalog/pkg/model"
)

// Store is the read side of the document store used by the executor.
type Store interface {
	Find(ctx context.Context, q model.Query) ([]model.Document, error)
	Count(ctx context.Context, collection string, filters model.Filters) (int64, error)
}

// Execute counts the plan's matches, reads one page, applies expansions and
// wraps the page in an envelope.
func Execute(ctx context.Context, store Store, p Plan) (*Envelope, error) {
	total, err := store.Count(ctx, p.Collection, p.Filters)
	if err != nil {
		return nil, err
	}

	docs, err := store.Find(ctx, p.Query())
	if err != nil {
		return nil, err
	}
	if docs == nil {
		docs = []model.Document{}
	}

	if err := Expand(ctx, store, docs, p.Expand...); err != nil {
		return nil, err
	}

	return &Envelope{
		Success:    true,
		Count:      len(docs),
		Pagination: Paginate(p, total),
		Data:       docs,
	}, nil
}

// Seq yields the plan's page lazily. Each range over the returned sequence
// runs the query again, so it can be iterated any number of times.
func Seq(ctx context.Context, store Store, p Plan) iter.Seq2[model.Document, error] {
	return func(yield func(model.Document, error) bool) {
		docs, err := store.Find(ctx, p.Query())
		if err != nil {
			yield(nil, err)
			return
		}
		if err := Expand(ctx, store, docs, p.Expand...); err != nil {
			yield(nil, err)
			return
		}
		for _, d := range docs {
			if !yield(d, nil) {
				return
			}
		}
	}
}
