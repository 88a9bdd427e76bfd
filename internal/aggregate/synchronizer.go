package aggregate

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/devcamper/catalog/internal/core/pubsub"
	"github.com/devcamper/catalog/internal/metrics"
	"github.com/devcamper/catalog/pkg/model"

	"golang.org/x/sync/errgroup"
)

// TaskSubjectPrefix roots the queue subjects of every task.
const TaskSubjectPrefix = "aggregates"

// Task is the queued unit of work: recompute one aggregate for one parent.
type Task struct {
	Aggregate string `json:"aggregate"`
	ParentID  string `json:"parentId"`
}

// Subject returns the publish subject, relative to the stream prefix.
func (t Task) Subject() string {
	return t.Aggregate + "." + t.ParentID
}

// Synchronizer turns child lifecycle events into recompute tasks.
//
// Triggers return immediately. With a publisher, tasks go through the queue
// to a Worker; without one (or when publishing fails) the recompute runs in
// a background goroutine. Either way, failures are logged and never reach
// the caller.
type Synchronizer struct {
	byName  map[string]*Aggregate
	byChild map[string][]*Aggregate

	publisher      pubsub.Publisher
	publishTimeout time.Duration
	taskTimeout    time.Duration
	backfillLimit  int
	logger         *slog.Logger

	inflight sync.WaitGroup
}

// NewSynchronizer registers defs against store. publisher may be nil.
func NewSynchronizer(store Store, publisher pubsub.Publisher, cfg Config, logger *slog.Logger, defs ...Definition) (*Synchronizer, error) {
	cfg.ApplyDefaults()
	if logger == nil {
		logger = slog.Default()
	}
	s := &Synchronizer{
		byName:         make(map[string]*Aggregate, len(defs)),
		byChild:        make(map[string][]*Aggregate),
		publisher:      publisher,
		publishTimeout: cfg.PublishTimeout,
		taskTimeout:    cfg.TaskTimeout,
		backfillLimit:  cfg.NumWorkers,
		logger:         logger.With("component", "aggregate"),
	}
	for _, def := range defs {
		a, err := New(def, store, s.logger)
		if err != nil {
			return nil, err
		}
		if _, dup := s.byName[def.Name]; dup {
			return nil, fmt.Errorf("duplicate aggregate %q", def.Name)
		}
		s.byName[def.Name] = a
		s.byChild[def.ChildCollection] = append(s.byChild[def.ChildCollection], a)
	}
	return s, nil
}

// Names returns the registered aggregate names in sorted order.
func (s *Synchronizer) Names() []string {
	names := make([]string, 0, len(s.byName))
	for n := range s.byName {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// Lookup returns the aggregate registered under name.
func (s *Synchronizer) Lookup(name string) (*Aggregate, bool) {
	a, ok := s.byName[name]
	return a, ok
}

// OnChildCreated schedules a recompute of every aggregate fed by child's collection.
func (s *Synchronizer) OnChildCreated(ctx context.Context, collection string, child model.Document) {
	s.trigger(ctx, "created", collection, child)
}

// OnChildUpdated schedules a recompute after a child update.
func (s *Synchronizer) OnChildUpdated(ctx context.Context, collection string, child model.Document) {
	s.trigger(ctx, "updated", collection, child)
}

// OnChildRemoved schedules a recompute after a child removal has committed.
// child is the record as read before removal, so its parent reference is
// still available.
func (s *Synchronizer) OnChildRemoved(ctx context.Context, collection string, child model.Document) {
	s.trigger(ctx, "removed", collection, child)
}

// Hook is a post-commit callback invoked by a child write path.
type Hook func(ctx context.Context, child model.Document)

// Hooks are the post-commit callbacks for one child collection.
type Hooks struct {
	Created Hook
	Updated Hook
	Removed Hook
}

// Hooks binds the triggers to collection.
func (s *Synchronizer) Hooks(collection string) Hooks {
	return Hooks{
		Created: func(ctx context.Context, child model.Document) { s.OnChildCreated(ctx, collection, child) },
		Updated: func(ctx context.Context, child model.Document) { s.OnChildUpdated(ctx, collection, child) },
		Removed: func(ctx context.Context, child model.Document) { s.OnChildRemoved(ctx, collection, child) },
	}
}

func (s *Synchronizer) trigger(ctx context.Context, event, collection string, child model.Document) {
	for _, a := range s.byChild[collection] {
		parentID := a.def.locate(child)
		if parentID == "" {
			s.logger.Warn("Child has no parent reference, skipping",
				"aggregate", a.def.Name, "event", event, "child_id", child.GetID())
			continue
		}
		s.schedule(ctx, Task{Aggregate: a.def.Name, ParentID: parentID}, event)
	}
}

// schedule detaches from the request: the task outlives ctx's cancellation
// but keeps its values for logging.
func (s *Synchronizer) schedule(ctx context.Context, task Task, event string) {
	detached := context.WithoutCancel(ctx)
	s.inflight.Add(1)
	go func() {
		defer s.inflight.Done()
		if s.publisher != nil {
			err := s.publish(detached, task)
			if err == nil {
				metrics.TasksScheduled.WithLabelValues(task.Aggregate, metrics.ModeQueued).Inc()
				return
			}
			s.logger.Warn("Failed to enqueue recompute, running inline",
				"aggregate", task.Aggregate, "parent_id", task.ParentID, "event", event, "error", err)
		}
		metrics.TasksScheduled.WithLabelValues(task.Aggregate, metrics.ModeInline).Inc()
		s.runInline(detached, task)
	}()
}

func (s *Synchronizer) publish(ctx context.Context, task Task) error {
	data, err := json.Marshal(task)
	if err != nil {
		return err
	}
	pubCtx, cancel := context.WithTimeout(ctx, s.publishTimeout)
	defer cancel()
	return s.publisher.Publish(pubCtx, task.Subject(), data)
}

func (s *Synchronizer) runInline(ctx context.Context, task Task) {
	taskCtx, cancel := context.WithTimeout(ctx, s.taskTimeout)
	defer cancel()
	if _, err := s.Recompute(taskCtx, task.Aggregate, task.ParentID); err != nil {
		s.logger.Error("Recompute failed", "aggregate", task.Aggregate, "parent_id", task.ParentID, "error", err)
	}
}

// Recompute runs the named aggregate for parentID synchronously.
func (s *Synchronizer) Recompute(ctx context.Context, name, parentID string) (Result, error) {
	a, ok := s.byName[name]
	if !ok {
		return Result{}, fmt.Errorf("%w: %s", ErrUnknownAggregate, name)
	}
	return a.Recompute(ctx, parentID)
}

// Backfill recomputes the named aggregate for every parent record, at most
// NumWorkers at a time. Results are in parent creation order. The first store
// error cancels the remaining recomputes.
func (s *Synchronizer) Backfill(ctx context.Context, name string) ([]Result, error) {
	a, ok := s.byName[name]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrUnknownAggregate, name)
	}

	parents, err := a.store.Find(ctx, model.Query{
		Collection: a.def.ParentCollection,
		OrderBy:    []model.Order{{Field: model.FieldCreatedAt, Direction: model.Asc}},
		Select:     []string{model.FieldID},
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list %s: %w", a.def.ParentCollection, err)
	}

	results := make([]Result, len(parents))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.backfillLimit)
	for i, p := range parents {
		g.Go(func() error {
			res, err := a.Recompute(gctx, p.GetID())
			if err != nil {
				return err
			}
			results[i] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	s.logger.Info("Backfill finished", "aggregate", name, "parents", len(results))
	return results, nil
}

// Wait blocks until every scheduled trigger has been enqueued or, in inline
// mode, recomputed. It returns false if ctx ends first.
func (s *Synchronizer) Wait(ctx context.Context) bool {
	done := make(chan struct{})
	go func() {
		s.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return true
	case <-ctx.Done():
		return false
	}
}
