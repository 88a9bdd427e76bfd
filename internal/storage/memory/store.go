// Package memory provides an in-process DocumentStore for standalone mode and tests.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
)

// Compile-time check that Store implements types.DocumentStore
var _ types.DocumentStore = (*Store)(nil)

// Store keeps every collection in a map guarded by one RWMutex.
type Store struct {
	mu          sync.RWMutex
	collections map[string]map[string]*types.StoredDoc
	unique      map[string][][]string
}

// New creates an empty store.
func New() *Store {
	return &Store{
		collections: make(map[string]map[string]*types.StoredDoc),
		unique:      make(map[string][][]string),
	}
}

func (s *Store) coll(name string) map[string]*types.StoredDoc {
	c := s.collections[name]
	if c == nil {
		c = make(map[string]*types.StoredDoc)
		s.collections[name] = c
	}
	return c
}

func (s *Store) Get(ctx context.Context, collection string, id string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()

	d, ok := s.collections[collection][id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return d.Flatten(), nil
}

func (s *Store) Find(ctx context.Context, q model.Query) ([]model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	if err := q.CheckProjection(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	matched := s.match(q.Collection, q.Filters)
	s.mu.RUnlock()

	sortDocs(matched, q.OrderBy)

	if q.Skip > 0 {
		if q.Skip >= len(matched) {
			matched = nil
		} else {
			matched = matched[q.Skip:]
		}
	}
	if q.Limit > 0 && len(matched) > q.Limit {
		matched = matched[:q.Limit]
	}

	out := make([]model.Document, 0, len(matched))
	for _, doc := range matched {
		out = append(out, doc.Project(q.Select).Omit(q.Exclude))
	}
	return out, nil
}

func (s *Store) Count(ctx context.Context, collection string, filters model.Filters) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.WrapError(err)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.match(collection, filters))), nil
}

func (s *Store) Insert(ctx context.Context, collection string, doc model.Document) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	stored := types.NewStoredDoc(doc)

	s.mu.Lock()
	defer s.mu.Unlock()

	c := s.coll(collection)
	if _, exists := c[stored.ID]; exists {
		return nil, model.ErrExists
	}
	if s.violatesUnique(collection, stored.ID, stored.Data) {
		return nil, model.ErrExists
	}
	c[stored.ID] = stored
	return stored.Flatten(), nil
}

func (s *Store) Patch(ctx context.Context, collection string, id string, set map[string]interface{}, unset []string) (model.Document, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	existing, ok := s.collections[collection][id]
	if !ok {
		return nil, model.ErrNotFound
	}

	data := make(map[string]interface{}, len(existing.Data)+len(set))
	for k, v := range existing.Data {
		data[k] = v
	}
	for k, v := range set {
		data[k] = v
	}
	for _, k := range unset {
		delete(data, k)
	}
	if s.violatesUnique(collection, id, data) {
		return nil, model.ErrExists
	}

	updated := &types.StoredDoc{
		ID:        existing.ID,
		CreatedAt: existing.CreatedAt,
		UpdatedAt: time.Now().UnixMilli(),
		Version:   existing.Version + 1,
		Data:      data,
	}
	s.collections[collection][id] = updated
	return updated.Flatten(), nil
}

func (s *Store) Delete(ctx context.Context, collection string, id string) error {
	if err := ctx.Err(); err != nil {
		return model.WrapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.collections[collection][id]; !ok {
		return model.ErrNotFound
	}
	delete(s.collections[collection], id)
	return nil
}

func (s *Store) DeleteMany(ctx context.Context, collection string, filters model.Filters) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, model.WrapError(err)
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	matched := s.match(collection, filters)
	for _, doc := range matched {
		delete(s.collections[collection], doc.GetID())
	}
	return int64(len(matched)), nil
}

func (s *Store) Aggregate(ctx context.Context, q types.AggregateQuery) ([]types.GroupResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, model.WrapError(err)
	}
	s.mu.RLock()
	matched := s.match(q.Collection, q.Filters)
	s.mu.RUnlock()

	type acc struct {
		key   interface{}
		sum   float64
		n     int
		count int64
	}
	groups := map[string]*acc{}
	var order []string
	for _, doc := range matched {
		key := doc[q.GroupBy]
		k := fmt.Sprint(key)
		g, ok := groups[k]
		if !ok {
			g = &acc{key: key}
			groups[k] = g
			order = append(order, k)
		}
		g.count++
		if f, ok := toFloat(doc[q.Field]); ok {
			g.sum += f
			g.n++
		}
	}

	out := make([]types.GroupResult, 0, len(order))
	for _, k := range order {
		g := groups[k]
		res := types.GroupResult{Key: g.key, Count: g.count}
		if g.n > 0 {
			avg := g.sum / float64(g.n)
			res.Avg = &avg
		}
		out = append(out, res)
	}
	return out, nil
}

// EnsureIndexes records unique indexes; non-unique indexes are no-ops here.
func (s *Store) EnsureIndexes(_ context.Context, indexes []types.Index) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, idx := range indexes {
		if idx.Unique && len(idx.Fields) > 0 {
			s.unique[idx.Collection] = append(s.unique[idx.Collection], idx.Fields)
		}
	}
	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}

// match returns flattened copies of every record in collection that satisfies
// all filters. Caller holds s.mu.
func (s *Store) match(collection string, filters model.Filters) []model.Document {
	var out []model.Document
	for _, d := range s.collections[collection] {
		doc := d.Flatten()
		if matchAll(doc, filters) {
			out = append(out, doc)
		}
	}
	return out
}

func (s *Store) violatesUnique(collection, id string, data map[string]interface{}) bool {
	for _, fields := range s.unique[collection] {
		key, ok := uniqueKey(data, fields)
		if !ok {
			continue
		}
		for otherID, other := range s.collections[collection] {
			if otherID == id {
				continue
			}
			if otherKey, ok := uniqueKey(other.Data, fields); ok && otherKey == key {
				return true
			}
		}
	}
	return false
}

func uniqueKey(data map[string]interface{}, fields []string) (string, bool) {
	parts := make([]string, 0, len(fields))
	for _, f := range fields {
		v, ok := data[f]
		if !ok || v == nil {
			return "", false
		}
		parts = append(parts, fmt.Sprint(v))
	}
	return strings.Join(parts, "\x00"), true
}

func sortDocs(docs []model.Document, order []model.Order) {
	tieDesc := len(order) > 0 && order[0].Direction == model.Desc
	sort.SliceStable(docs, func(i, j int) bool {
		for _, o := range order {
			c := compareValues(docs[i][o.Field], docs[j][o.Field])
			if o.Direction == model.Desc {
				c = -c
			}
			if c != 0 {
				return c < 0
			}
		}
		c := strings.Compare(docs[i].GetID(), docs[j].GetID())
		if tieDesc {
			c = -c
		}
		return c < 0
	})
}
