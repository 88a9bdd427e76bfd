package catalog

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"

	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/identity"
	"github.com/devcamper/catalog/internal/query"
	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"
)

// ChildKind describes a record type that belongs to exactly one bootcamp.
type ChildKind struct {
	Collection string
	// Noun names a record in error messages.
	Noun string
	// OwnerAddsOnly restricts creation to the bootcamp's owner (and admins).
	OwnerAddsOnly bool

	schema schema
}

var (
	CourseKind = ChildKind{Collection: Courses, Noun: "course", OwnerAddsOnly: true, schema: courseSchema}
	ReviewKind = ChildKind{Collection: Reviews, Noun: "review", schema: reviewSchema}
)

// bootcampSummary is how a child's bootcamp is inlined.
var bootcampSummary = query.Related(FieldBootcamp, Bootcamps, "name", "description")

// ChildService manages the records of one ChildKind.
//
// Create, Update and Delete take a post-commit callback, normally an
// aggregate.Hook from the synchronizer. It runs only after the write has
// committed and receives the stored record (for Delete, the record as read
// before removal). A nil callback is allowed.
type ChildService struct {
	kind       ChildKind
	store      types.DocumentStore
	translator *query.Translator
	logger     *slog.Logger
}

func NewChildService(kind ChildKind, store types.DocumentStore, translator *query.Translator, logger *slog.Logger) *ChildService {
	if logger == nil {
		logger = slog.Default()
	}
	return &ChildService{
		kind:       kind,
		store:      store,
		translator: translator,
		logger:     logger.With("component", kind.Collection),
	}
}

// Kind returns the record type served.
func (s *ChildService) Kind() ChildKind {
	return s.kind
}

// List returns one page of records. A non-empty bootcampID scopes the list
// to that bootcamp; a client filter on the bootcamp field cannot widen it.
func (s *ChildService) List(ctx context.Context, bootcampID string, params url.Values) (*query.Envelope, error) {
	var scope []model.Filter
	if bootcampID != "" {
		scope = append(scope, model.Eq(FieldBootcamp, bootcampID))
	}
	plan := s.translator.Translate(s.kind.Collection, params, scope...).WithExpand(bootcampSummary)
	return query.Execute(ctx, s.store, plan)
}

// Get returns a record with its bootcamp's name and description inlined.
func (s *ChildService) Get(ctx context.Context, id string) (model.Document, error) {
	doc, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := query.Expand(ctx, s.store, []model.Document{doc}, bootcampSummary); err != nil {
		return nil, err
	}
	return doc, nil
}

func (s *ChildService) get(ctx context.Context, id string) (model.Document, error) {
	doc, err := s.store.Get(ctx, s.kind.Collection, id)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.kind.Noun, id, err)
	}
	return doc, nil
}

// Create stores a record under bootcampID, owned by actor. The bootcamp
// must exist.
func (s *ChildService) Create(ctx context.Context, actor identity.Actor, bootcampID string, input model.Document, onCommit aggregate.Hook) (model.Document, error) {
	doc := s.kind.schema.clean(input)
	if err := s.kind.schema.validate(doc, false); err != nil {
		return nil, err
	}

	parent, err := s.store.Get(ctx, Bootcamps, bootcampID)
	if err != nil {
		if errors.Is(err, model.ErrNotFound) {
			return nil, fmt.Errorf("%w: no bootcamp with the id of %s", model.ErrParentNotFound, bootcampID)
		}
		return nil, err
	}
	if s.kind.OwnerAddsOnly && !actor.Owns(parent.GetString(FieldUser)) {
		return nil, fmt.Errorf("%w: user %s is not authorized to add a %s to bootcamp %s",
			model.ErrPermissionDenied, actor.ID, s.kind.Noun, bootcampID)
	}

	s.kind.schema.applyDefaults(doc)
	doc[FieldBootcamp] = bootcampID
	doc[FieldUser] = actor.ID

	created, err := s.store.Insert(ctx, s.kind.Collection, doc)
	if err != nil {
		if errors.Is(err, model.ErrExists) {
			return nil, fmt.Errorf("%s for bootcamp %s by user %s: %w", s.kind.Noun, bootcampID, actor.ID, err)
		}
		return nil, err
	}

	s.logger.Debug("Created", "id", created.GetID(), "bootcamp_id", bootcampID)
	commit(ctx, onCommit, created)
	return created, nil
}

// Update patches a record the actor owns. The bootcamp reference is
// write-once: resubmitting the same value is accepted, changing it is not.
func (s *ChildService) Update(ctx context.Context, actor identity.Actor, id string, input model.Document, onCommit aggregate.Hook) (model.Document, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(existing.GetString(FieldUser)) {
		return nil, fmt.Errorf("%w: user %s is not authorized to update %s %s", model.ErrPermissionDenied, actor.ID, s.kind.Noun, id)
	}
	if ref, ok := input[FieldBootcamp]; ok && ref != existing[FieldBootcamp] {
		return nil, fmt.Errorf("%w: %s", model.ErrImmutableField, FieldBootcamp)
	}

	doc := s.kind.schema.clean(input)
	if err := s.kind.schema.validate(doc, true); err != nil {
		return nil, err
	}
	if len(doc) == 0 {
		return existing, nil
	}

	updated, err := s.store.Patch(ctx, s.kind.Collection, id, doc, nil)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.kind.Noun, id, err)
	}

	commit(ctx, onCommit, updated)
	return updated, nil
}

// Delete removes a record the actor owns. The callback receives the record
// read before removal, so it still carries the bootcamp reference.
func (s *ChildService) Delete(ctx context.Context, actor identity.Actor, id string, onCommit aggregate.Hook) (model.Document, error) {
	existing, err := s.get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !actor.Owns(existing.GetString(FieldUser)) {
		return nil, fmt.Errorf("%w: user %s is not authorized to delete %s %s", model.ErrPermissionDenied, actor.ID, s.kind.Noun, id)
	}

	if err := s.store.Delete(ctx, s.kind.Collection, id); err != nil {
		return nil, fmt.Errorf("%s %s: %w", s.kind.Noun, id, err)
	}

	commit(ctx, onCommit, existing)
	return existing, nil
}

func commit(ctx context.Context, hook aggregate.Hook, doc model.Document) {
	if hook != nil {
		hook(ctx, doc)
	}
}
