package mongo

import (
	"github.com/devcamper/catalog/pkg/model"
	"go.mongodb.org/mongo-driver/bson"
)

// makeFilterBSON merges every filter on the same field into one operator
// document, so range pairs like tuition[gte]&tuition[lte] both apply.
func makeFilterBSON(filters model.Filters) bson.M {
	bsonFilter := bson.M{}

	for _, f := range filters {
		fieldName := mapField(f.Field)
		op := mapOp(f.Op)
		if op == "" {
			continue
		}
		if existing, ok := bsonFilter[fieldName].(bson.M); ok {
			existing[op] = f.Value
			continue
		}
		bsonFilter[fieldName] = bson.M{op: f.Value}
	}

	return bsonFilter
}

func mapField(field string) string {
	switch field {
	case "id", "_id":
		return "_id"
	case model.FieldUpdatedAt:
		return "updated_at"
	case model.FieldCreatedAt:
		return "created_at"
	case model.FieldVersion:
		return "version"
	default:
		return "data." + field
	}
}

func mapOp(op model.FilterOp) string {
	switch op {
	case model.OpEq:
		return "$eq"
	case model.OpNe:
		return "$ne"
	case model.OpGt:
		return "$gt"
	case model.OpGte:
		return "$gte"
	case model.OpLt:
		return "$lt"
	case model.OpLte:
		return "$lte"
	case model.OpIn:
		return "$in"
	default:
		return ""
	}
}

// makeSortBSON appends an _id tiebreak in the direction of the first key so
// pages stay stable across equal sort values.
func makeSortBSON(order []model.Order) bson.D {
	sort := bson.D{}
	tie := 1
	hasID := false
	seen := make(map[string]bool, len(order))
	for i, o := range order {
		dir := 1
		if o.Direction == model.Desc {
			dir = -1
		}
		if i == 0 {
			tie = dir
		}
		key := mapField(o.Field)
		if seen[key] {
			continue
		}
		seen[key] = true
		if key == "_id" {
			hasID = true
		}
		sort = append(sort, bson.E{Key: key, Value: dir})
	}
	if !hasID {
		sort = append(sort, bson.E{Key: "_id", Value: tie})
	}
	return sort
}

// makeProjection builds an inclusion projection from include, or else an
// exclusion projection from exclude. The id is always returned.
func makeProjection(include, exclude []string) bson.M {
	switch {
	case len(include) > 0:
		proj := bson.M{"_id": 1}
		for _, f := range include {
			proj[mapField(f)] = 1
		}
		return proj
	case len(exclude) > 0:
		proj := bson.M{}
		for _, f := range exclude {
			if key := mapField(f); key != "_id" {
				proj[key] = 0
			}
		}
		if len(proj) == 0 {
			return nil
		}
		return proj
	}
	return nil
}
