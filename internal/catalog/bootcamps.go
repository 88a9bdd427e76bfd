// Package catalog implements the bootcamp, course, review and user
// operations behind the REST API.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/query"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
)

// BootcampService manages bootcamps. Derived fields are never written here.
type BootcampService struct {
	store      types.DocumentStore
	translator *query.Translator
	logger     *slog.Logger
}

func NewBootcampService(store types.DocumentStore, translator *query.Translator, logger *slog.Logger) *BootcampService {
	if logger == nil {
		logger = slog.Default()
	}
	return &BootcampService{
		store:      store,
		translator: translator,
		logger:     logger.With("component", "bootcamps"),
	}
}

// List returns one page of bootcamps with their courses attached.
func (s *BootcampService) List(ctx context.Context, params url.Values) (*query.Envelope, error) {
	plan := s.translator.Translate(Bootcamps, params).
		WithExpand(query.Children(FieldCourses, Courses, FieldBootcamp))
	return query.Execute(ctx, s.store, plan)
}

func (s *BootcampService) Get(ctx context.Context, id string) (model.Document, error) {
	doc, err := s.store.Get(ctx, Bootcamps, id)
	if err != nil {
		return nil, fmt.Errorf("bootcamp %s: %w", id, err)
	}
	return doc, nil
}

// Create stores a bootcamp owned by actor. A publisher may own a single
// bootcamp; admins are not limited.
func (s *BootcampService) Create(ctx context.Context, actor identity.Actor, input model.Document) (model.Document, error) {
	doc := bootcampSchema.clean(input)
	if err := bootcampSchema.validate(doc, false); err != nil {
		return nil, err
	}

	if !actor.IsAdmin() {
		n, err := s.store.Count(ctx, Bootcamps, model.Filters{model.Eq(FieldUser, actor.ID)})
		if err != nil {
			return nil, err
		}
		if n > 0 {
			return nil, fmt.Errorf("%w: user %s has already published a bootcamp", model.ErrInvalidInput, actor.ID)
		}
	}

	bootcampSchema.applyDefaults(doc)
	doc[FieldUser] = actor.ID

	created, err := s.store.Insert(ctx, Bootcamps, doc)
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			return nil, fmt.Errorf("bootcamp %q: %w", doc.GetString("name"), err)
		}
		return nil, err
	}
	s.logger.Info("Bootcamp created", "bootcamp_id", created.GetID(), "user_id", actor.ID)
	return created, nil
}

// Update patches the client-writable fields of a bootcamp the actor owns.
func (s *BootcampService) Update(ctx context.Context, actor identity.Actor, id string, input model.Document) (model.Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(existing.GetString(FieldUser)) {
		return nil, fmt.Errorf("%w: user %s is not authorized to update bootcamp %s", model.ErrPermissionDenied, actor.ID, id)
	}

	doc := bootcampSchema.clean(input)
	if err := bootcampSchema.validate(doc, true); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return existing, nil
	}

	updated, err := s.store.Patch(ctx, Bootcamps, id, doc, nil)
	if err != nil {
		return nil, fmt.Errorf("bootcamp %s: %w", id, err)
	}
	return updated, nil
}

// Delete removes a bootcamp the actor owns together with its courses and
// reviews. Children are removed before the bootcamp itself.
func (s *BootcampService) Delete(ctx context.Context, actor identity.Actor, id string) (model.Document, error) {
	existing, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(existing.GetString(FieldUser)) {
		return nil, fmt.Errorf("%w: user %s is not authorized to delete bootcamp %s", model.ErrPermissionDenied, actor.ID, id)
	}

	for _, c := range []string{Courses, Reviews} {
		n, err := s.store.DeleteMany(ctx, c, model.Filters{model.Eq(FieldBootcamp, id)})
		if err != nil {
			return nil, fmt.Errorf("failed to delete %s of bootcamp %s: %w", c, id, err)
		}
		if n > 0 {
			s.logger.Info("Cascade delete", "bootcamp_id", id, "collection", c, "deleted", n)
		}
	}

	if err := s.store.Delete(ctx, Bootcamps, id); err != nil {
		return nil, fmt.Errorf("bootcamp %s: %w", id, err)
	}
	return existing, nil
}
