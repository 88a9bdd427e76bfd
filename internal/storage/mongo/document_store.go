package mongo

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/devcamper/catalog/internal/storage/types"
	"github.com/devcamper/catalog/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type documentStore struct {
	client *mongo.Client
	db     *mongo.Database
}

// NewDocumentStore wraps an already connected client. Each catalog
// collection maps to a MongoDB collection of the same name.
func NewDocumentStore(client *mongo.Client, db *mongo.Database) types.DocumentStore {
	return &documentStore{
		client: client,
		db:     db,
	}
}

func (m *documentStore) getCollection(name string) *mongo.Collection {
	return m.db.Collection(name)
}

func (m *documentStore) Get(ctx context.Context, collection string, id string) (model.Document, error) {
	var doc types.StoredDoc
	err := m.getCollection(collection).FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		return nil, model.WrapError(err)
	}
	return doc.Flatten(), nil
}

func (m *documentStore) Find(ctx context.Context, q model.Query) ([]model.Document, error) {
	if err := q.CheckProjection(); err != nil {
		return nil, err
	}
	findOptions := options.Find().SetSort(makeSortBSON(q.OrderBy))
	if q.Skip > 0 {
		findOptions.SetSkip(int64(q.Skip))
	}
	if q.Limit > 0 {
		findOptions.SetLimit(int64(q.Limit))
	}
	if proj := makeProjection(q.Select, q.Exclude); proj != nil {
		findOptions.SetProjection(proj)
	}

	cursor, err := m.getCollection(q.Collection).Find(ctx, makeFilterBSON(q.Filters), findOptions)
	if err != nil {
		return nil, model.WrapError(err)
	}
	defer cursor.Close(ctx)

	var stored []*types.StoredDoc
	if err := cursor.All(ctx, &stored); err != nil {
		return nil, model.WrapError(err)
	}

	docs := make([]model.Document, 0, len(stored))
	for _, d := range stored {
		docs = append(docs, d.Flatten().Project(q.Select).Omit(q.Exclude))
	}
	return docs, nil
}

func (m *documentStore) Count(ctx context.Context, collection string, filters model.Filters) (int64, error) {
	n, err := m.getCollection(collection).CountDocuments(ctx, makeFilterBSON(filters))
	return n, model.WrapError(err)
}

func (m *documentStore) Insert(ctx context.Context, collection string, doc model.Document) (model.Document, error) {
	stored := types.NewStoredDoc(doc)
	_, err := m.getCollection(collection).InsertOne(ctx, stored)
	if mongo.IsDuplicateKeyError(err) {
		return nil, model.ErrExists
	}
	if err != nil {
		return nil, model.WrapError(err)
	}
	return stored.Flatten(), nil
}

func (m *documentStore) Patch(ctx context.Context, collection string, id string, set map[string]interface{}, unset []string) (model.Document, error) {
	updates := bson.M{
		"updated_at": time.Now().UnixMilli(),
	}
	for k, v := range set {
		updates["data."+k] = v
	}

	update := bson.M{
		"$set": updates,
		"$inc": bson.M{
			"version": 1,
		},
	}
	if len(unset) > 0 {
		removals := bson.M{}
		for _, k := range unset {
			removals["data."+k] = ""
		}
		update["$unset"] = removals
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)
	var doc types.StoredDoc
	err := m.getCollection(collection).FindOneAndUpdate(ctx, bson.M{"_id": id}, update, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, model.ErrNotFound
		}
		if mongo.IsDuplicateKeyError(err) {
			return nil, model.ErrExists
		}
		return nil, model.WrapError(err)
	}
	return doc.Flatten(), nil
}

func (m *documentStore) Delete(ctx context.Context, collection string, id string) error {
	result, err := m.getCollection(collection).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return model.WrapError(err)
	}
	if result.DeletedCount == 0 {
		return model.ErrNotFound
	}
	return nil
}

func (m *documentStore) DeleteMany(ctx context.Context, collection string, filters model.Filters) (int64, error) {
	result, err := m.getCollection(collection).DeleteMany(ctx, makeFilterBSON(filters))
	if err != nil {
		return 0, model.WrapError(err)
	}
	return result.DeletedCount, nil
}

// Aggregate runs $match then $group with $avg. An empty match yields no groups.
func (m *documentStore) Aggregate(ctx context.Context, q types.AggregateQuery) ([]types.GroupResult, error) {
	pipeline := mongo.Pipeline{
		bson.D{{Key: "$match", Value: makeFilterBSON(q.Filters)}},
		bson.D{{Key: "$group", Value: bson.D{
			{Key: "_id", Value: "$" + mapField(q.GroupBy)},
			{Key: "avg", Value: bson.D{{Key: "$avg", Value: "$" + mapField(q.Field)}}},
			{Key: "count", Value: bson.D{{Key: "$sum", Value: 1}}},
		}}},
	}

	cursor, err := m.getCollection(q.Collection).Aggregate(ctx, pipeline)
	if err != nil {
		return nil, model.WrapError(err)
	}
	defer cursor.Close(ctx)

	var results []types.GroupResult
	if err := cursor.All(ctx, &results); err != nil {
		return nil, model.WrapError(err)
	}
	return results, nil
}

// EnsureIndexes creates necessary indexes
func (m *documentStore) EnsureIndexes(ctx context.Context, indexes []types.Index) error {
	for _, idx := range indexes {
		keys := bson.D{}
		for _, f := range idx.Fields {
			keys = append(keys, bson.E{Key: mapField(f), Value: 1})
		}
		im := mongo.IndexModel{Keys: keys}
		if idx.Unique {
			im.Options = options.Index().SetUnique(true)
		}
		if _, err := m.getCollection(idx.Collection).Indexes().CreateOne(ctx, im); err != nil {
			return fmt.Errorf("failed to create index on %s: %w", idx.Collection, err)
		}
	}
	return nil
}

func (m *documentStore) Close(ctx context.Context) error {
	return m.client.Disconnect(ctx)
}
