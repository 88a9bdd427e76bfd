package catalog

import (
	"testing"

	"github.com/devcamper/catalog/pkg/model"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchema_CleanDropsUndeclaredAndTrims(t *testing.T) {
	got := courseSchema.clean(model.Document{
		"title":       "  Intro  ",
		"averageCost": float64(5),
		"id":          "x",
		"weeks":       float64(4),
	})
	assert.Equal(t, model.Document{"title": "Intro", "weeks": float64(4)}, got)
}

func TestSchema_ValidatePartial(t *testing.T) {
	assert.NoError(t, courseSchema.validate(model.Document{"tuition": float64(10)}, true))

	err := courseSchema.validate(model.Document{"title": ""}, true)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Contains(t, err.Error(), "title is required")

	err = courseSchema.validate(model.Document{"tuition": float64(10)}, false)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Contains(t, err.Error(), "title is required, description is required")
}

func TestSchema_ReportsEveryProblem(t *testing.T) {
	err := bootcampSchema.validate(model.Document{
		"description": "d",
		"careers":     []interface{}{"Web Development"},
		"phone":       "0123456789012345678901234",
		"housing":     "yes",
	}, false)
	require.ErrorIs(t, err, model.ErrInvalidInput)
	assert.Contains(t, err.Error(), "name is required")
	assert.Contains(t, err.Error(), "phone cannot be more than 20 characters")
	assert.Contains(t, err.Error(), "housing must be true or false")
}

func TestSchema_Careers(t *testing.T) {
	tests := []struct {
		name    string
		careers interface{}
		message string
	}{
		{"valid", []interface{}{"UI/UX", "Data Science"}, ""},
		{"empty", []interface{}{}, "careers must be a non-empty list"},
		{"not a list", "UI/UX", "careers must be a non-empty list"},
		{"not strings", []interface{}{float64(1)}, "careers entries must be strings"},
		{"unknown", []interface{}{"Plumbing"}, "careers must be one of: Web Development, Mobile Development, UI/UX, Data Science, Business, Other"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			doc := bootcampInput("Devworks")
			doc["careers"] = tt.careers
			err := bootcampSchema.validate(bootcampSchema.clean(doc), false)
			if tt.message == "" {
				assert.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, model.ErrInvalidInput)
			assert.Contains(t, err.Error(), tt.message)
		})
	}
}

func TestSchema_ApplyDefaults(t *testing.T) {
	doc := model.Document{"housing": true}
	bootcampSchema.applyDefaults(doc)
	assert.Equal(t, true, doc["housing"])
	assert.Equal(t, false, doc["jobAssistance"])
	assert.Equal(t, false, doc["jobGuarantee"])
	assert.Equal(t, false, doc["acceptGi"])
	assert.NotContains(t, doc, "name")
}

func TestOneOfValues(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, oneOfValues("a b"))
	assert.Equal(t, []string{"Web Development", "UI/UX"}, oneOfValues("'Web Development' 'UI/UX'"))
}
