// Package aggregate keeps derived numeric fields on parent records in line
// with the children that reference them.
//
// A recompute reads the current children, averages a source field and
// patches only the derived field on the parent. Recomputes are not
// serialized against child writes: concurrent recomputes for one parent may
// observe different child sets and the last write wins. Once child writes
// stop, any later recompute converges to the mean over the final set.
package aggregate

import (
	"errors"
	"fmt"
	"math"
	"regexp"

	"github.com/devcamper/catalog/pkg/model"
)

// ErrUnknownAggregate is returned when a task or request names an aggregate
// that is not registered.
var ErrUnknownAggregate = errors.New("unknown aggregate")

var namePattern = regexp.MustCompile(`^[a-z0-9][a-z0-9-]*$`)

// Rounding post-processes a computed mean.
type Rounding func(float64) float64

// CeilTo rounds up to the nearest multiple of step.
func CeilTo(step float64) Rounding {
	return func(v float64) float64 {
		return math.Ceil(v/step) * step
	}
}

// EmptyPolicy decides what a recompute over zero children writes.
type EmptyPolicy int

const (
	// EmptyUnset removes the derived field.
	EmptyUnset EmptyPolicy = iota
	// EmptyZero stores 0.
	EmptyZero
)

// ParseEmptyPolicy parses "unset" or "zero".
func ParseEmptyPolicy(s string) (EmptyPolicy, error) {
	switch s {
	case "", "unset":
		return EmptyUnset, nil
	case "zero":
		return EmptyZero, nil
	default:
		return EmptyUnset, fmt.Errorf("unknown empty fallback %q", s)
	}
}

func (p EmptyPolicy) String() string {
	if p == EmptyZero {
		return "zero"
	}
	return "unset"
}

// Locator extracts the parent id from a child record.
type Locator func(child model.Document) string

// ByField locates the parent through a string reference field.
func ByField(field string) Locator {
	return func(child model.Document) string {
		return child.GetString(field)
	}
}

// Definition describes one (child type, derived field) pairing.
type Definition struct {
	// Name identifies the aggregate in tasks and admin routes, e.g. "course-cost".
	Name string

	ChildCollection  string
	ParentCollection string

	// ParentRef is the child field holding the parent id.
	ParentRef string

	// SourceField is averaged over the children.
	SourceField string

	// TargetField is the derived field written on the parent.
	TargetField string

	// Round is applied to the mean. Nil leaves it unrounded.
	Round Rounding

	Empty EmptyPolicy

	// Locate overrides how the parent id is read from a child.
	// Defaults to ByField(ParentRef).
	Locate Locator
}

func (d Definition) validate() error {
	if !namePattern.MatchString(d.Name) {
		return fmt.Errorf("invalid aggregate name %q", d.Name)
	}
	if d.ChildCollection == "" || d.ParentCollection == "" {
		return fmt.Errorf("aggregate %s: child and parent collections are required", d.Name)
	}
	if d.ParentRef == "" || d.SourceField == "" || d.TargetField == "" {
		return fmt.Errorf("aggregate %s: parent ref, source and target fields are required", d.Name)
	}
	return nil
}

func (d Definition) locate(child model.Document) string {
	if d.Locate != nil {
		return d.Locate(child)
	}
	return child.GetString(d.ParentRef)
}
