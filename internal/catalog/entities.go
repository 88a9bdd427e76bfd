package catalog

import (
	"github.com/devcamper/catalog/internal/aggregate"
	"github.com/devcamper/catalog/internal/storage/types"
)

// Collections.
const (
	Bootcamps = "bootcamps"
	Courses   = "courses"
	Reviews   = "reviews"
	Users     = "users"
)

// Reference and derived fields.
const (
	FieldBootcamp      = "bootcamp"
	FieldUser          = "user"
	FieldCourses       = "courses"
	FieldAverageCost   = "averageCost"
	FieldAverageRating = "averageRating"
)

// Aggregate names.
const (
	AggregateCourseCost   = "course-cost"
	AggregateReviewRating = "review-rating"
)

var bootcampSchema = schema{
	{field: "name", kind: kindString, required: true, tag: "max=50"},
	{field: "description", kind: kindString, required: true, tag: "max=500"},
	{field: "website", kind: kindString, tag: "http_url"},
	{field: "phone", kind: kindString, tag: "max=20"},
	{field: "email", kind: kindString, tag: "email"},
	{field: "address", kind: kindString, tag: "max=200"},
	{field: "careers", kind: kindList, required: true,
		tag: "dive,oneof='Web Development' 'Mobile Development' 'UI/UX' 'Data Science' 'Business' 'Other'"},
	{field: "housing", kind: kindBool, fallback: false},
	{field: "jobAssistance", kind: kindBool, fallback: false},
	{field: "jobGuarantee", kind: kindBool, fallback: false},
	{field: "acceptGi", kind: kindBool, fallback: false},
}

var courseSchema = schema{
	{field: "title", kind: kindString, required: true, tag: "max=100"},
	{field: "description", kind: kindString, required: true},
	{field: "weeks", kind: kindNumber, required: true, tag: "gt=0"},
	{field: "tuition", kind: kindNumber, required: true, tag: "gte=0"},
	{field: "minimumSkill", kind: kindString, required: true, tag: "oneof=beginner intermediate advanced"},
	{field: "scholarshipAvailable", kind: kindBool, fallback: false},
}

var reviewSchema = schema{
	{field: "title", kind: kindString, required: true, tag: "max=100"},
	{field: "text", kind: kindString, required: true},
	{field: "rating", kind: kindNumber, required: true, tag: "gte=1,lte=10"},
}

// Indexes returns the secondary indexes the catalog relies on. The unique
// review index enforces one review per user and bootcamp.
func Indexes() []types.Index {
	return []types.Index{
		{Collection: Bootcamps, Fields: []string{"name"}, Unique: true},
		{Collection: Bootcamps, Fields: []string{FieldUser}},
		{Collection: Courses, Fields: []string{FieldBootcamp}},
		{Collection: Reviews, Fields: []string{FieldBootcamp, FieldUser}, Unique: true},
		{Collection: Users, Fields: []string{"email"}, Unique: true},
	}
}

// Aggregates returns the derived bootcamp fields: average course tuition,
// rounded up to a multiple of 10, and the unrounded average review rating.
func Aggregates(empty aggregate.EmptyPolicy) []aggregate.Definition {
	return []aggregate.Definition{
		{
			Name:             AggregateCourseCost,
			ChildCollection:  Courses,
			ParentCollection: Bootcamps,
			ParentRef:        FieldBootcamp,
			SourceField:      "tuition",
			TargetField:      FieldAverageCost,
			Round:            aggregate.CeilTo(10),
			Empty:            empty,
		},
		{
			Name:             AggregateReviewRating,
			ChildCollection:  Reviews,
			ParentCollection: Bootcamps,
			ParentRef:        FieldBootcamp,
			SourceField:      "rating",
			TargetField:      FieldAverageRating,
			Empty:            empty,
		},
	}
}
