package aggregate

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	pstesting "github.com/devcamper/catalog/internal/core/pubsub/testing"
	"github.com/devcamper/catalog/internal/storage/memory"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newSynchronizer(t *testing.T, s Store, pub *pstesting.MockPublisher) *Synchronizer {
	t.Helper()
	var syncer *Synchronizer
	var err error
	if pub == nil {
		syncer, err = NewSynchronizer(s, nil, Config{}, nil, costDefinition(), ratingDefinition())
	} else {
		syncer, err = NewSynchronizer(s, pub, Config{}, nil, costDefinition(), ratingDefinition())
	}
	require.NoError(t, err)
	return syncer
}

func waitIdle(t *testing.T, s *Synchronizer) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.True(t, s.Wait(ctx), "triggers did not settle")
}

func TestSynchronizer_InlineTriggers(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	syncer := newSynchronizer(t, s, nil)
	hooks := syncer.Hooks("courses")

	ctx := context.Background()
	var courses []model.Document
	for _, tu := range []float64{1000, 1200, 1300} {
		c := addChild(t, s, "courses", id, "tuition", tu)
		courses = append(courses, c)
		hooks.Created(ctx, c)
	}
	waitIdle(t, syncer)
	assert.Equal(t, 1170.0, getParent(t, s, id)["averageCost"])

	patched, err := s.Patch(ctx, "courses", courses[0].GetID(), map[string]interface{}{"tuition": float64(2000)}, nil)
	require.NoError(t, err)
	hooks.Updated(ctx, patched)
	waitIdle(t, syncer)
	assert.Equal(t, 1500.0, getParent(t, s, id)["averageCost"])

	for _, c := range courses {
		require.NoError(t, s.Delete(ctx, "courses", c.GetID()))
		hooks.Removed(ctx, c)
	}
	waitIdle(t, syncer)
	assert.NotContains(t, getParent(t, s, id), "averageCost")
}

func TestSynchronizer_TriggersOnlyMatchingCollection(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	syncer := newSynchronizer(t, s, nil)

	review := addChild(t, s, "reviews", id, "rating", 7)
	syncer.OnChildCreated(context.Background(), "reviews", review)
	syncer.OnChildCreated(context.Background(), "users", model.Document{"bootcamp": id})
	waitIdle(t, syncer)

	parent := getParent(t, s, id)
	assert.Equal(t, 7.0, parent["averageRating"])
	assert.NotContains(t, parent, "averageCost")
}

func TestSynchronizer_ChildWithoutParentIsSkipped(t *testing.T) {
	s := memory.New()
	pub := pstesting.NewMockPublisher()
	syncer := newSynchronizer(t, s, pub)

	syncer.OnChildCreated(context.Background(), "courses", model.Document{"id": "c1", "tuition": float64(10)})
	waitIdle(t, syncer)
	assert.Empty(t, pub.Messages())
}

// blockingStore holds every Aggregate call until release is closed.
type blockingStore struct {
	types.DocumentStore
	release chan struct{}
}

func (b blockingStore) Aggregate(ctx context.Context, q types.AggregateQuery) ([]types.GroupResult, error) {
	<-b.release
	return b.DocumentStore.Aggregate(ctx, q)
}

func TestSynchronizer_TriggerDoesNotBlockCaller(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	bs := blockingStore{DocumentStore: s, release: make(chan struct{})}
	syncer := newSynchronizer(t, bs, nil)

	child := addChild(t, s, "courses", id, "tuition", 1000)

	ctx, cancel := context.WithCancel(context.Background())
	returned := make(chan struct{})
	go func() {
		syncer.OnChildCreated(ctx, "courses", child)
		close(returned)
	}()
	select {
	case <-returned:
	case <-time.After(time.Second):
		t.Fatal("trigger blocked on recompute")
	}

	// cancelling the request must not abort the background recompute
	cancel()
	close(bs.release)
	waitIdle(t, syncer)
	assert.Equal(t, 1000.0, getParent(t, s, id)["averageCost"])
}

func TestSynchronizer_PublishesTasks(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	pub := pstesting.NewMockPublisher()
	syncer := newSynchronizer(t, s, pub)

	syncer.OnChildCreated(context.Background(), "courses", addChild(t, s, "courses", id, "tuition", 1000))

	select {
	case msg := <-pub.Published:
		assert.Equal(t, "course-cost."+id, msg.Subject)
		var task Task
		require.NoError(t, json.Unmarshal(msg.Data, &task))
		assert.Equal(t, Task{Aggregate: "course-cost", ParentID: id}, task)
	case <-time.After(2 * time.Second):
		t.Fatal("no task published")
	}
	waitIdle(t, syncer)

	// queued, not yet recomputed
	assert.NotContains(t, getParent(t, s, id), "averageCost")
}

func TestSynchronizer_PublishFailureFallsBackInline(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	pub := pstesting.NewMockPublisher()
	pub.SetError(errors.New("nats: no responders"))
	syncer := newSynchronizer(t, s, pub)

	syncer.OnChildCreated(context.Background(), "reviews", addChild(t, s, "reviews", id, "rating", 9))
	waitIdle(t, syncer)

	assert.Empty(t, pub.Messages())
	assert.Equal(t, 9.0, getParent(t, s, id)["averageRating"])
}

func TestSynchronizer_InlineFailureIsSwallowed(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	syncer := newSynchronizer(t, brokenStore{DocumentStore: s, aggErr: errors.New("down")}, nil)

	assert.NotPanics(t, func() {
		syncer.OnChildCreated(context.Background(), "courses", model.Document{"bootcamp": id})
	})
	waitIdle(t, syncer)
	assert.NotContains(t, getParent(t, s, id), "averageCost")
}

func TestSynchronizer_RegistryAndRecompute(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	addChild(t, s, "courses", id, "tuition", 999)
	syncer := newSynchronizer(t, s, nil)

	assert.Equal(t, []string{"course-cost", "review-rating"}, syncer.Names())
	a, ok := syncer.Lookup("review-rating")
	require.True(t, ok)
	assert.Equal(t, "averageRating", a.Definition().TargetField)

	res, err := syncer.Recompute(context.Background(), "course-cost", id)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, *res.Value)

	_, err = syncer.Recompute(context.Background(), "nope", id)
	assert.ErrorIs(t, err, ErrUnknownAggregate)
}

func TestSynchronizer_DuplicateDefinition(t *testing.T) {
	_, err := NewSynchronizer(memory.New(), nil, Config{}, nil, costDefinition(), costDefinition())
	assert.Error(t, err)
}

func TestSynchronizer_Backfill(t *testing.T) {
	s := memory.New()
	a := newParent(t, s)
	b := newParent(t, s)
	c := newParent(t, s)
	addChild(t, s, "courses", a, "tuition", 1000)
	addChild(t, s, "courses", a, "tuition", 2000)
	addChild(t, s, "courses", b, "tuition", 505)
	_, err := s.Patch(context.Background(), "bootcamps", c, map[string]interface{}{"averageCost": float64(42)}, nil)
	require.NoError(t, err)

	syncer := newSynchronizer(t, s, nil)
	results, err := syncer.Backfill(context.Background(), "course-cost")
	require.NoError(t, err)
	require.Len(t, results, 3)
	assert.Equal(t, a, results[0].ParentID)
	assert.Equal(t, c, results[2].ParentID)

	assert.Equal(t, 1500.0, getParent(t, s, a)["averageCost"])
	assert.Equal(t, 510.0, getParent(t, s, b)["averageCost"])
	assert.NotContains(t, getParent(t, s, c), "averageCost")

	_, err = syncer.Backfill(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrUnknownAggregate)
}

// churnReviews runs the removal of seeded and the creation of ten reviews rated
// 1 through 10 in parallel, firing hooks after each mutation commits.
func churnReviews(t *testing.T, s types.DocumentStore, hooks Hooks, parentID string, seeded []model.Document) {
	t.Helper()
	ctx := context.Background()
	errs := make(chan error, len(seeded)+10)
	var wg sync.WaitGroup
	for _, doc := range seeded {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := s.Delete(ctx, "reviews", doc.GetID()); err != nil {
				errs <- err
				return
			}
			hooks.Removed(ctx, doc)
		}()
	}
	for i := 1; i <= 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			doc, err := s.Insert(ctx, "reviews", model.Document{"bootcamp": parentID, "rating": float64(i)})
			if err != nil {
				errs <- err
				return
			}
			hooks.Created(ctx, doc)
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		require.NoError(t, err)
	}
}

func seedReviews(t *testing.T, s types.DocumentStore, parentID string, n int) []model.Document {
	t.Helper()
	var docs []model.Document
	for i := 0; i < n; i++ {
		docs = append(docs, addChild(t, s, "reviews", parentID, "rating", 1))
	}
	return docs
}

func TestSynchronizer_ConcurrentMutationsConverge(t *testing.T) {
	s := memory.New()
	id := newParent(t, s)
	seeded := seedReviews(t, s, id, 10)
	syncer := newSynchronizer(t, s, nil)

	churnReviews(t, s, syncer.Hooks("reviews"), id, seeded)
	waitIdle(t, syncer)

	// Racing inline recomputes may leave an older snapshot behind; the parent
	// itself must be intact and one more recompute settles the value.
	parent := getParent(t, s, id)
	assert.Equal(t, "Devworks", parent["name"])
	assert.NotContains(t, parent, "averageCost")

	res, err := syncer.Recompute(context.Background(), "review-rating", id)
	require.NoError(t, err)
	assert.Equal(t, int64(10), res.Count)
	assert.Equal(t, 5.5, getParent(t, s, id)["averageRating"])

	res, err = syncer.Recompute(context.Background(), "review-rating", id)
	require.NoError(t, err)
	require.NotNil(t, res.Value)
	assert.Equal(t, 5.5, *res.Value)
}
