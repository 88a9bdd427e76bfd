package memory

import (
	"fmt"
	"strings"

	"github.com/devcamper/catalog/pkg/model"
)

func matchAll(doc model.Document, filters model.Filters) bool {
	for _, f := range filters {
		if !matchFilter(doc[f.Field], f.Op, f.Value) {
			return false
		}
	}
	return true
}

// matchFilter follows document store semantics: a missing field only matches
// "!=", and an array field matches equality when any element does.
func matchFilter(got interface{}, op model.FilterOp, want interface{}) bool {
	if arr, ok := got.([]interface{}); ok && op == model.OpEq {
		for _, el := range arr {
			if equalValues(el, want) {
				return true
			}
		}
		return false
	}
	if arr, ok := got.([]string); ok && op == model.OpEq {
		for _, el := range arr {
			if equalValues(el, want) {
				return true
			}
		}
		return false
	}

	switch op {
	case model.OpEq:
		return got != nil && equalValues(got, want)
	case model.OpNe:
		return got == nil || !equalValues(got, want)
	case model.OpIn:
		for _, w := range toList(want) {
			if got != nil && equalValues(got, w) {
				return true
			}
		}
		return false
	case model.OpGt, model.OpGte, model.OpLt, model.OpLte:
		if got == nil || rank(got) != rank(want) {
			return false
		}
		c := compareValues(got, want)
		switch op {
		case model.OpGt:
			return c > 0
		case model.OpGte:
			return c >= 0
		case model.OpLt:
			return c < 0
		default:
			return c <= 0
		}
	}
	return false
}

func toList(v interface{}) []interface{} {
	switch t := v.(type) {
	case []interface{}:
		return t
	case []string:
		out := make([]interface{}, len(t))
		for i, s := range t {
			out[i] = s
		}
		return out
	default:
		return []interface{}{v}
	}
}

func equalValues(a, b interface{}) bool {
	if fa, ok := toFloat(a); ok {
		fb, ok := toFloat(b)
		return ok && fa == fb
	}
	switch av := a.(type) {
	case string:
		bv, ok := b.(string)
		return ok && av == bv
	case bool:
		bv, ok := b.(bool)
		return ok && av == bv
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

// rank orders value kinds: null, numbers, strings, composites, booleans.
func rank(v interface{}) int {
	if v == nil {
		return 0
	}
	if _, ok := toFloat(v); ok {
		return 1
	}
	switch v.(type) {
	case string:
		return 2
	case bool:
		return 4
	}
	return 3
}

func compareValues(a, b interface{}) int {
	ra, rb := rank(a), rank(b)
	if ra != rb {
		if ra < rb {
			return -1
		}
		return 1
	}
	switch ra {
	case 1:
		fa, _ := toFloat(a)
		fb, _ := toFloat(b)
		switch {
		case fa < fb:
			return -1
		case fa > fb:
			return 1
		}
		return 0
	case 2:
		return strings.Compare(a.(string), b.(string))
	case 4:
		ba, bb := a.(bool), b.(bool)
		switch {
		case ba == bb:
			return 0
		case !ba:
			return -1
		}
		return 1
	case 3:
		return strings.Compare(fmt.Sprint(a), fmt.Sprint(b))
	}
	return 0
}

func toFloat(v interface{}) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int32:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
