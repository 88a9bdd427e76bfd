package query

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/devcamper/catalog/internal/query/config"
	"github.com/devcamper/catalog/internal/storage/memory"
	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func seed(t *testing.T, s *memory.Store, collection string, docs ...model.Document) []model.Document {
	t.Helper()
	var out []model.Document
	for _, d := range docs {
		created, err := s.Insert(context.Background(), collection, d)
		require.NoError(t, err)
		out = append(out, created)
		// keep createdAt strictly increasing
		time.Sleep(2 * time.Millisecond)
	}
	return out
}

func TestExecute_SecondPageOfFive(t *testing.T) {
	s := memory.New()
	var docs []model.Document
	for i := 0; i < 5; i++ {
		docs = append(docs, model.Document{"title": "c", "weeks": float64(i)})
	}
	created := seed(t, s, "courses", docs...)

	plan := NewTranslator(config.DefaultConfig()).Translate("courses", mustParse(t, "sort=-createdAt&limit=2&page=2"))
	require.Equal(t, 2, plan.Skip)

	env, err := Execute(context.Background(), s, plan)
	require.NoError(t, err)

	assert.True(t, env.Success)
	assert.Equal(t, 2, env.Count)
	require.Len(t, env.Data, 2)
	assert.Equal(t, created[2].GetID(), env.Data[0].GetID())
	assert.Equal(t, created[1].GetID(), env.Data[1].GetID())
	require.NotNil(t, env.Pagination.Prev)
	assert.Equal(t, 1, env.Pagination.Prev.Page)
	require.NotNil(t, env.Pagination.Next)
	assert.Equal(t, 3, env.Pagination.Next.Page)
}

func TestExecute_NumericFilter(t *testing.T) {
	s := memory.New()
	seed(t, s, "courses",
		model.Document{"title": "a", "tuition": float64(800)},
		model.Document{"title": "b", "tuition": float64(1000)},
		model.Document{"title": "c", "tuition": float64(12000)},
	)

	plan := NewTranslator(config.DefaultConfig()).Translate("courses", mustParse(t, "tuition[gte]=1000&select=title,tuition&sort=tuition"))
	env, err := Execute(context.Background(), s, plan)
	require.NoError(t, err)

	require.Equal(t, 2, env.Count)
	assert.Equal(t, "b", env.Data[0]["title"])
	assert.Equal(t, "c", env.Data[1]["title"])
	assert.Nil(t, env.Pagination.Next)
	assert.Nil(t, env.Pagination.Prev)
}

func TestExecute_EmptyResultRendersArray(t *testing.T) {
	s := memory.New()
	plan := NewTranslator(config.DefaultConfig()).Translate("courses", mustParse(t, "nosuchfield=1"))

	env, err := Execute(context.Background(), s, plan)
	require.NoError(t, err)

	body, err := json.Marshal(env)
	require.NoError(t, err)
	assert.JSONEq(t, `{"success":true,"count":0,"pagination":{},"data":[]}`, string(body))
}

func TestExecute_ExpandRelated(t *testing.T) {
	s := memory.New()
	camps := seed(t, s, "bootcamps",
		model.Document{"name": "Devworks", "description": "d1", "website": "x"},
	)
	seed(t, s, "courses",
		model.Document{"title": "a", "bootcamp": camps[0].GetID()},
		model.Document{"title": "b", "bootcamp": "dangling"},
	)

	plan := NewTranslator(config.DefaultConfig()).
		Translate("courses", mustParse(t, "sort=title")).
		WithExpand(Related("bootcamp", "bootcamps", "name", "description"))

	env, err := Execute(context.Background(), s, plan)
	require.NoError(t, err)
	require.Len(t, env.Data, 2)

	inlined, ok := env.Data[0]["bootcamp"].(model.Document)
	require.True(t, ok)
	assert.Equal(t, "Devworks", inlined["name"])
	assert.Equal(t, "d1", inlined["description"])
	assert.NotContains(t, inlined, "website")
	assert.Equal(t, "dangling", env.Data[1]["bootcamp"])
}

func TestExecute_ExpandChildren(t *testing.T) {
	s := memory.New()
	camps := seed(t, s, "bootcamps",
		model.Document{"name": "A"},
		model.Document{"name": "B"},
	)
	seed(t, s, "courses",
		model.Document{"title": "a1", "bootcamp": camps[0].GetID()},
		model.Document{"title": "a2", "bootcamp": camps[0].GetID()},
	)

	plan := NewTranslator(config.DefaultConfig()).
		Translate("bootcamps", mustParse(t, "sort=name")).
		WithExpand(Children("courses", "courses", "bootcamp", "title"))

	env, err := Execute(context.Background(), s, plan)
	require.NoError(t, err)
	require.Len(t, env.Data, 2)

	courses := env.Data[0]["courses"].([]model.Document)
	require.Len(t, courses, 2)
	assert.Equal(t, "a1", courses[0]["title"])
	assert.Equal(t, camps[0].GetID(), courses[0]["bootcamp"])
	assert.Empty(t, env.Data[1]["courses"])
}

type failingStore struct{ err error }

func (f failingStore) Find(context.Context, model.Query) ([]model.Document, error) {
	return nil, f.err
}

func (f failingStore) Count(context.Context, string, model.Filters) (int64, error) {
	return 0, f.err
}

func TestExecute_StoreError(t *testing.T) {
	boom := errors.New("store down")
	_, err := Execute(context.Background(), failingStore{err: boom}, Plan{Collection: "c"})
	assert.ErrorIs(t, err, boom)

	for _, err := range Seq(context.Background(), failingStore{err: boom}, Plan{Collection: "c"}) {
		assert.ErrorIs(t, err, boom)
	}
}

func TestSeq_Restartable(t *testing.T) {
	s := memory.New()
	seed(t, s, "reviews",
		model.Document{"rating": float64(8)},
		model.Document{"rating": float64(9)},
	)
	seq := Seq(context.Background(), s, NewTranslator(config.DefaultConfig()).Translate("reviews", nil))

	count := func() int {
		n := 0
		for d, err := range seq {
			require.NoError(t, err)
			require.NotEmpty(t, d.GetID())
			n++
		}
		return n
	}
	assert.Equal(t, 2, count())

	seed(t, s, "reviews", model.Document{"rating": float64(10)})
	assert.Equal(t, 3, count())

	for range seq {
		break
	}
}
