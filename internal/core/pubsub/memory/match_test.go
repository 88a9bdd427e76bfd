package memory

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestMatchSubject(t *testing.T) {
	tests := []struct {
		pattern string
		subject string
		want    bool
	}{
		{"aggregates.course-cost.b1", "aggregates.course-cost.b1", true},
		{"aggregates.*.b1", "aggregates.review-rating.b1", true},
		{"aggregates.*", "aggregates.course-cost.b1", false},
		{"aggregates.>", "aggregates.course-cost.b1", true},
		{"aggregates.>", "aggregates", false},
		{">", "anything", true},
		{"a.b", "a.b.c", false},
		{"a.b.c", "a.b", false},
		{"", "a", false},
		{"a", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.pattern+"|"+tt.subject, func(t *testing.T) {
			assert.Equal(t, tt.want, matchSubject(tt.pattern, tt.subject))
		})
	}
}
