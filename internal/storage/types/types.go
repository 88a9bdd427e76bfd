package types

import (
	"context"
	"time"

	"github.com/devcamper/catalog/pkg/model"
)

// StoredDoc is the persisted envelope of a record.
type StoredDoc struct {
	// ID is the record identifier (ULID)
	ID string `json:"id" bson:"_id"`

	// CreatedAt is the timestamp of the creation (Unix milliseconds)
	CreatedAt int64 `json:"created_at" bson:"created_at"`

	// UpdatedAt is the timestamp of the last update (Unix milliseconds)
	UpdatedAt int64 `json:"updated_at" bson:"updated_at"`

	// Version is bumped on every write
	Version int64 `json:"version" bson:"version"`

	// Data is the client-visible content of the record
	Data map[string]interface{} `json:"data" bson:"data"`
}

// NewStoredDoc builds a fresh envelope around doc. Reserved fields in doc are
// ignored except a caller-supplied id.
func NewStoredDoc(doc model.Document) *StoredDoc {
	data := doc.Clone()
	if data == nil {
		data = model.Document{}
	}
	data.GenerateIDIfEmpty()
	id := data.GetID()
	data.StripProtectedFields()

	now := time.Now().UnixMilli()
	return &StoredDoc{
		ID:        id,
		CreatedAt: now,
		UpdatedAt: now,
		Version:   1,
		Data:      data,
	}
}

// Flatten converts the envelope into the client-facing document.
func (d *StoredDoc) Flatten() model.Document {
	out := make(model.Document, len(d.Data)+4)
	for k, v := range d.Data {
		out[k] = v
	}
	out[model.FieldID] = d.ID
	out[model.FieldCreatedAt] = d.CreatedAt
	out[model.FieldUpdatedAt] = d.UpdatedAt
	out[model.FieldVersion] = d.Version
	return out
}

// Index declares a secondary index on a collection.
type Index struct {
	Collection string
	Fields     []string
	Unique     bool
}

// AggregateQuery groups the records of Collection matching Filters by the
// GroupBy field and averages Field within each group.
type AggregateQuery struct {
	Collection string
	Filters    model.Filters
	GroupBy    string
	Field      string
}

// GroupResult is one group produced by Aggregate. Avg is nil when no record in
// the group carries a numeric value for the averaged field.
type GroupResult struct {
	Key   interface{} `bson:"_id"`
	Avg   *float64    `bson:"avg"`
	Count int64       `bson:"count"`
}

// DocumentStore defines the persistence operations used by the catalog.
type DocumentStore interface {
	// Get retrieves a record by id
	Get(ctx context.Context, collection string, id string) (model.Document, error)

	// Find runs a filtered, sorted, paged read
	Find(ctx context.Context, q model.Query) ([]model.Document, error)

	// Count returns the number of records matching filters
	Count(ctx context.Context, collection string, filters model.Filters) (int64, error)

	// Insert stores a new record and returns it with metadata populated.
	// Returns model.ErrExists when a unique index is violated.
	Insert(ctx context.Context, collection string, doc model.Document) (model.Document, error)

	// Patch sets and unsets top level fields of an existing record, leaving
	// every other field untouched.
	Patch(ctx context.Context, collection string, id string, set map[string]interface{}, unset []string) (model.Document, error)

	// Delete removes a record by id
	Delete(ctx context.Context, collection string, id string) error

	// DeleteMany removes every record matching filters
	DeleteMany(ctx context.Context, collection string, filters model.Filters) (int64, error)

	// Aggregate groups and averages over a filtered subset
	Aggregate(ctx context.Context, q AggregateQuery) ([]GroupResult, error)

	// EnsureIndexes creates the given indexes if missing
	EnsureIndexes(ctx context.Context, indexes []Index) error

	// Close closes the store
	Close(ctx context.Context) error
}
