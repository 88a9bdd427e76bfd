package catalog

import (
	"context"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/storage/memory"
	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// hookRecorder records post-commit callbacks along with whether the record
// was in the store when the callback ran.
type hookRecorder struct {
	store      *memory.Store
	collection string

	mu     sync.Mutex
	calls  []model.Document
	stored []bool
}

func (h *hookRecorder) hook(ctx context.Context, doc model.Document) {
	_, err := h.store.Get(ctx, h.collection, doc.GetID())
	h.mu.Lock()
	defer h.mu.Unlock()
	h.calls = append(h.calls, doc)
	h.stored = append(h.stored, err == nil)
}

func TestChildService_CreateRequiresParent(t *testing.T) {
	f := newFixture(t)
	rec := &hookRecorder{store: f.store, collection: Courses}

	_, err := f.courses.Create(context.Background(), publisher, "no-such-bootcamp", courseInput(1000), rec.hook)
	assert.ErrorIs(t, err, model.ErrParentNotFound)
	assert.Empty(t, rec.calls)

	n, err := f.store.Count(context.Background(), Courses, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestChildService_CreateSetsReferencesAndCallsBack(t *testing.T) {
	f := newFixture(t)
	b := f.mustBootcamp(t, publisher, "Devworks")
	rec := &hookRecorder{store: f.store, collection: Courses}

	input := courseInput(1000)
	input[FieldBootcamp] = "elsewhere"
	input[FieldUser] = "someone"
	c, err := f.courses.Create(context.Background(), publisher, b.GetID(), input, rec.hook)
	require.NoError(t, err)

	assert.Equal(t, b.GetID(), c[FieldBootcamp])
	assert.Equal(t, publisher.ID, c[FieldUser])
	assert.Equal(t, false, c["scholarshipAvailable"])
	require.Len(t, rec.calls, 1)
	assert.Equal(t, c.GetID(), rec.calls[0].GetID())
	assert.True(t, rec.stored[0], "callback ran before commit")
}

func TestChildService_CreateOwnership(t *testing.T) {
	f := newFixture(t)
	b := f.mustBootcamp(t, publisher, "Devworks")

	_, err := f.courses.Create(context.Background(), publisher2, b.GetID(), courseInput(1000), nil)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	_, err = f.courses.Create(context.Background(), admin, b.GetID(), courseInput(1000), nil)
	assert.NoError(t, err)

	// anyone may review
	_, err = f.reviews.Create(context.Background(), reviewer, b.GetID(), reviewInput(9), nil)
	assert.NoError(t, err)
}

func TestChildService_Validation(t *testing.T) {
	f := newFixture(t)
	b := f.mustBootcamp(t, publisher, "Devworks")
	ctx := context.Background()

	tests := []struct {
		name    string
		svc     *ChildService
		actor   identity.Actor
		input   model.Document
		message string
	}{
		{"rating too high", f.reviews, reviewer, reviewInput(11), "rating must be at most 10"},
		{"rating too low", f.reviews, reviewer, reviewInput(0), "rating must be at least 1"},
		{"rating not a number", f.reviews, reviewer, model.Document{"title": "t", "text": "x", "rating": "9"}, "rating must be a number"},
		{"skill", f.courses, publisher, func() model.Document { d := courseInput(1); d["minimumSkill"] = "expert"; return d }(), "minimumSkill must be one of: beginner, intermediate, advanced"},
		{"negative tuition", f.courses, publisher, courseInput(-5), "tuition must be at least 0"},
		{"missing title", f.courses, publisher, func() model.Document { d := courseInput(1); delete(d, "title"); return d }(), "title is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.svc.Create(ctx, tt.actor, b.GetID(), tt.input, nil)
			require.ErrorIs(t, err, model.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestChildService_OneReviewPerUser(t *testing.T) {
	f := newFixture(t)
	b := f.mustBootcamp(t, publisher, "Devworks")
	ctx := context.Background()

	_, err := f.reviews.Create(ctx, reviewer, b.GetID(), reviewInput(8), nil)
	require.NoError(t, err)
	_, err = f.reviews.Create(ctx, reviewer, b.GetID(), reviewInput(3), nil)
	assert.ErrorIs(t, err, model.ErrExists)
	_, err = f.reviews.Create(ctx, reviewer2, b.GetID(), reviewInput(3), nil)
	assert.NoError(t, err)
}

func TestChildService_UpdateParentIsImmutable(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")
	other := f.mustBootcamp(t, publisher2, "Codemasters")
	c, err := f.courses.Create(ctx, publisher, b.GetID(), courseInput(1000), nil)
	require.NoError(t, err)
	rec := &hookRecorder{store: f.store, collection: Courses}

	_, err = f.courses.Update(ctx, publisher, c.GetID(), model.Document{FieldBootcamp: other.GetID()}, rec.hook)
	assert.ErrorIs(t, err, model.ErrImmutableField)
	assert.Empty(t, rec.calls)

	updated, err := f.courses.Update(ctx, publisher, c.GetID(), model.Document{FieldBootcamp: b.GetID(), "tuition": float64(1500)}, rec.hook)
	require.NoError(t, err)
	assert.Equal(t, float64(1500), updated["tuition"])
	assert.Equal(t, b.GetID(), updated[FieldBootcamp])
	require.Len(t, rec.calls, 1)
	assert.Equal(t, float64(1500), rec.calls[0]["tuition"])
}

func TestChildService_UpdateOwnership(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")
	r, err := f.reviews.Create(ctx, reviewer, b.GetID(), reviewInput(8), nil)
	require.NoError(t, err)

	_, err = f.reviews.Update(ctx, reviewer2, r.GetID(), model.Document{"rating": float64(1)}, nil)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)
	_, err = f.reviews.Update(ctx, admin, r.GetID(), model.Document{"rating": float64(1)}, nil)
	assert.NoError(t, err)
	_, err = f.reviews.Update(ctx, reviewer, "missing", model.Document{"rating": float64(1)}, nil)
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestChildService_DeleteCallsBackAfterRemoval(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")
	c, err := f.courses.Create(ctx, publisher, b.GetID(), courseInput(1000), nil)
	require.NoError(t, err)
	rec := &hookRecorder{store: f.store, collection: Courses}

	_, err = f.courses.Delete(ctx, publisher2, c.GetID(), rec.hook)
	assert.ErrorIs(t, err, model.ErrPermissionDenied)

	deleted, err := f.courses.Delete(ctx, publisher, c.GetID(), rec.hook)
	require.NoError(t, err)
	assert.Equal(t, c.GetID(), deleted.GetID())
	require.Len(t, rec.calls, 1)
	assert.Equal(t, b.GetID(), rec.calls[0][FieldBootcamp])
	assert.False(t, rec.stored[0], "callback ran before removal committed")
}

func TestChildService_ListScoped(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")
	other := f.mustBootcamp(t, publisher2, "Codemasters")
	for _, tu := range []float64{1000, 1200, 1300} {
		_, err := f.courses.Create(ctx, publisher, b.GetID(), courseInput(tu), nil)
		require.NoError(t, err)
	}
	_, err := f.courses.Create(ctx, publisher2, other.GetID(), courseInput(5000), nil)
	require.NoError(t, err)

	env, err := f.courses.List(ctx, b.GetID(), url.Values{FieldBootcamp: {other.GetID()}})
	require.NoError(t, err)
	assert.Equal(t, 3, env.Count)

	env, err = f.courses.List(ctx, "", url.Values{"tuition[gte]": {"1200"}, "limit": {"2"}, "sort": {"tuition"}})
	require.NoError(t, err)
	require.Equal(t, 2, env.Count)
	assert.Equal(t, float64(1200), env.Data[0]["tuition"])
	require.NotNil(t, env.Pagination.Next)
	assert.Equal(t, 2, env.Pagination.Next.Page)

	summary, ok := env.Data[0][FieldBootcamp].(model.Document)
	require.True(t, ok)
	assert.Equal(t, "Devworks", summary["name"])
	assert.NotContains(t, summary, "careers")
}

func TestChildService_GetExpandsBootcamp(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")
	r, err := f.reviews.Create(ctx, reviewer, b.GetID(), reviewInput(8), nil)
	require.NoError(t, err)

	got, err := f.reviews.Get(ctx, r.GetID())
	require.NoError(t, err)
	summary, ok := got[FieldBootcamp].(model.Document)
	require.True(t, ok)
	assert.Equal(t, b.GetID(), summary.GetID())
	assert.Equal(t, "Full stack web development", summary["description"])

	_, err = f.reviews.Get(ctx, "missing")
	assert.ErrorIs(t, err, model.ErrNotFound)
}

func TestChildService_KeepsAggregatesInSync(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	b := f.mustBootcamp(t, publisher, "Devworks")

	syncer, err := aggregate.NewSynchronizer(f.store, nil, aggregate.Config{}, nil, Aggregates(aggregate.EmptyUnset)...)
	require.NoError(t, err)
	courseHooks := syncer.Hooks(Courses)
	reviewHooks := syncer.Hooks(Reviews)

	var courses []model.Document
	for _, tu := range []float64{1000, 1200, 1300} {
		c, err := f.courses.Create(ctx, publisher, b.GetID(), courseInput(tu), courseHooks.Created)
		require.NoError(t, err)
		courses = append(courses, c)
	}
	for i, r := range []float64{8, 9, 10} {
		_, err := f.reviews.Create(ctx, []identity.Actor{reviewer, reviewer2, admin}[i], b.GetID(), reviewInput(r), reviewHooks.Created)
		require.NoError(t, err)
	}

	waitCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	require.True(t, syncer.Wait(waitCtx))

	got, err := f.bootcamps.Get(ctx, b.GetID())
	require.NoError(t, err)
	assert.Equal(t, 1170.0, got[FieldAverageCost])
	assert.Equal(t, 9.0, got[FieldAverageRating])

	for _, c := range courses {
		_, err := f.courses.Delete(ctx, publisher, c.GetID(), courseHooks.Removed)
		require.NoError(t, err)
	}
	require.True(t, syncer.Wait(waitCtx))

	got, err = f.bootcamps.Get(ctx, b.GetID())
	require.NoError(t, err)
	assert.NotContains(t, got, FieldAverageCost)
	assert.Equal(t, 9.0, got[FieldAverageRating])
}
