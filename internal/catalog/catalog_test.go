package catalog

import (
	"context"
	"testing"

	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/query"
	qconfig "github.com/devcamper/catalog/internal/query/config"
	"github.com/devcamper/catalog/internal/storage/memory"
	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/require"
)

var (
	admin      = identity.Actor{ID: "admin-1", Role: identity.RoleAdmin}
	publisher  = identity.Actor{ID: "pub-1", Role: identity.RolePublisher}
	publisher2 = identity.Actor{ID: "pub-2", Role: identity.RolePublisher}
	reviewer   = identity.Actor{ID: "user-1", Role: identity.RoleUser}
	reviewer2  = identity.Actor{ID: "user-2", Role: identity.RoleUser}
)

type fixture struct {
	store     *memory.Store
	bootcamps *BootcampService
	courses   *ChildService
	reviews   *ChildService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	store := memory.New()
	require.NoError(t, store.EnsureIndexes(context.Background(), Indexes()))
	tr := query.NewTranslator(qconfig.DefaultConfig())
	return &fixture{
		store:     store,
		bootcamps: NewBootcampService(store, tr, nil),
		courses:   NewChildService(CourseKind, store, tr, nil),
		reviews:   NewChildService(ReviewKind, store, tr, nil),
	}
}

func bootcampInput(name string) model.Document {
	return model.Document{
		"name":        name,
		"description": "Full stack web development",
		"website":     "https://devworks.example.com",
		"careers":     []interface{}{"Web Development", "UI/UX"},
	}
}

func courseInput(tuition float64) model.Document {
	return model.Document{
		"title":        "Front End Web Development",
		"description":  "HTML, CSS and JavaScript",
		"weeks":        float64(8),
		"tuition":      tuition,
		"minimumSkill": "beginner",
	}
}

func reviewInput(rating float64) model.Document {
	return model.Document{
		"title":  "Learned a ton",
		"text":   "Great instructors",
		"rating": rating,
	}
}

func (f *fixture) mustBootcamp(t *testing.T, owner identity.Actor, name string) model.Document {
	t.Helper()
	b, err := f.bootcamps.Create(context.Background(), owner, bootcampInput(name))
	require.NoError(t, err)
	return b
}
