package aggregate

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math"
	"time"

	"github.com/devcamper/catalog/internal/metrics"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
)

// Store is the part of the document store an aggregate needs.
type Store interface {
	Find(ctx context.Context, q model.Query) ([]model.Document, error)
	Patch(ctx context.Context, collection string, id string, set map[string]interface{}, unset []string) (model.Document, error)
	Aggregate(ctx context.Context, q types.AggregateQuery) ([]types.GroupResult, error)
}

// Result reports what a recompute wrote.
type Result struct {
	Aggregate string   `json:"aggregate"`
	ParentID  string   `json:"parentId"`
	Field     string   `json:"field"`
	Count     int64    `json:"count"`
	Value     *float64 `json:"value"`
	// Vanished is set when the parent no longer exists and nothing was written.
	Vanished bool `json:"vanished,omitempty"`
}

// Aggregate recomputes one derived field.
type Aggregate struct {
	def    Definition
	store  Store
	logger *slog.Logger
}

// New validates def and binds it to store.
func New(def Definition, store Store, logger *slog.Logger) (*Aggregate, error) {
	if err := def.validate(); err != nil {
		return nil, err
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Aggregate{
		def:    def,
		store:  store,
		logger: logger.With("aggregate", def.Name),
	}, nil
}

// Definition returns the aggregate's definition.
func (a *Aggregate) Definition() Definition {
	return a.def
}

// Recompute averages the source field over the parent's current children and
// patches the derived field. Running it repeatedly with no child writes in
// between yields the same value. A missing parent is logged and reported via
// Result.Vanished, not as an error.
func (a *Aggregate) Recompute(ctx context.Context, parentID string) (Result, error) {
	start := time.Now()
	res, err := a.recompute(ctx, parentID)
	metrics.RecomputeLatency.WithLabelValues(a.def.Name).Observe(time.Since(start).Seconds())

	outcome := metrics.OutcomeOK
	switch {
	case err != nil:
		outcome = metrics.OutcomeError
	case res.Vanished:
		outcome = metrics.OutcomeVanished
	}
	metrics.Recomputes.WithLabelValues(a.def.Name, outcome).Inc()
	return res, err
}

func (a *Aggregate) recompute(ctx context.Context, parentID string) (Result, error) {
	res := Result{Aggregate: a.def.Name, ParentID: parentID, Field: a.def.TargetField}
	if parentID == "" {
		return res, fmt.Errorf("aggregate %s: %w: empty parent id", a.def.Name, model.ErrInvalidInput)
	}

	groups, err := a.store.Aggregate(ctx, types.AggregateQuery{
		Collection: a.def.ChildCollection,
		Filters:    model.Filters{model.Eq(a.def.ParentRef, parentID)},
		GroupBy:    a.def.ParentRef,
		Field:      a.def.SourceField,
	})
	if err != nil {
		return res, fmt.Errorf("aggregate %s: failed to read children of %s: %w", a.def.Name, parentID, err)
	}

	var mean *float64
	for _, g := range groups {
		res.Count += g.Count
		if g.Avg != nil && !math.IsNaN(*g.Avg) && !math.IsInf(*g.Avg, 0) {
			v := *g.Avg
			mean = &v
		}
	}

	var (
		set   map[string]interface{}
		unset []string
	)
	switch {
	case mean != nil:
		v := *mean
		if a.def.Round != nil {
			v = a.def.Round(v)
		}
		res.Value = &v
		set = map[string]interface{}{a.def.TargetField: v}
	case a.def.Empty == EmptyZero:
		zero := 0.0
		res.Value = &zero
		set = map[string]interface{}{a.def.TargetField: zero}
	default:
		unset = []string{a.def.TargetField}
	}

	if _, err := a.store.Patch(ctx, a.def.ParentCollection, parentID, set, unset); err != nil {
		if errors.Is(err, model.ErrNotFound) {
			a.logger.Info("Parent vanished before recompute, skipping", "parent_id", parentID)
			res.Vanished = true
			res.Value = nil
			return res, nil
		}
		return res, fmt.Errorf("aggregate %s: failed to update %s: %w", a.def.Name, parentID, err)
	}

	a.logger.Debug("Recomputed aggregate", "parent_id", parentID, "children", res.Count, "value", res.Value)
	return res, nil
}
