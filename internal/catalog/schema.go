package catalog

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/devcamper/catalog/pkg/model"
)

var validate = validator.New(validator.WithRequiredStructEnabled())

type kind int

const (
	kindString kind = iota
	kindNumber
	kindBool
	kindList
)

type rule struct {
	field    string
	kind     kind
	required bool
	// tag is a validator tag applied to present, non-empty values.
	tag string
	// fallback is stored on create when the field is absent.
	fallback interface{}
}

// schema declares the client-writable fields of an entity. Anything not
// declared, including derived and ownership fields, is dropped from input.
type schema []rule

// clean returns the declared fields of input. String values are trimmed.
func (s schema) clean(input model.Document) model.Document {
	out := make(model.Document, len(s))
	for _, r := range s {
		v, ok := input[r.field]
		if !ok {
			continue
		}
		if str, isStr := v.(string); isStr {
			v = strings.TrimSpace(str)
		}
		out[r.field] = v
	}
	return out
}

// validate checks doc, which must already be cleaned. With partial set,
// required fields may be absent but not null or blank.
func (s schema) validate(doc model.Document, partial bool) error {
	var problems []string
	for _, r := range s {
		v, present := doc[r.field]
		if !present {
			if r.required && !partial {
				problems = append(problems, r.field+" is required")
			}
			continue
		}
		if v == nil || v == "" {
			if r.required {
				problems = append(problems, r.field+" is required")
			}
			continue
		}
		if msg := r.check(v); msg != "" {
			problems = append(problems, r.field+" "+msg)
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", model.ErrInvalidInput, strings.Join(problems, ", "))
	}
	return nil
}

func (r rule) check(v interface{}) string {
	switch r.kind {
	case kindString:
		if _, ok := v.(string); !ok {
			return "must be a string"
		}
	case kindNumber:
		if _, ok := v.(float64); !ok {
			return "must be a number"
		}
	case kindBool:
		if _, ok := v.(bool); !ok {
			return "must be true or false"
		}
	case kindList:
		items, ok := v.([]interface{})
		if !ok || len(items) == 0 {
			return "must be a non-empty list"
		}
		for _, item := range items {
			if _, ok := item.(string); !ok {
				return "entries must be strings"
			}
		}
	}
	if r.tag == "" {
		return ""
	}
	if err := validate.Var(v, r.tag); err != nil {
		return describe(err)
	}
	return ""
}

// describe renders the first validator failure as a short phrase.
func describe(err error) string {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) || len(ve) == 0 {
		return "is invalid"
	}
	fe := ve[0]
	switch fe.Tag() {
	case "max":
		return fmt.Sprintf("cannot be more than %s characters", fe.Param())
	case "min":
		return fmt.Sprintf("must be at least %s characters", fe.Param())
	case "gte":
		return fmt.Sprintf("must be at least %s", fe.Param())
	case "lte":
		return fmt.Sprintf("must be at most %s", fe.Param())
	case "gt":
		return fmt.Sprintf("must be greater than %s", fe.Param())
	case "email":
		return "must be a valid email"
	case "http_url":
		return "must be a valid URL with HTTP or HTTPS"
	case "oneof":
		return "must be one of: " + strings.Join(oneOfValues(fe.Param()), ", ")
	default:
		return "failed validation: " + fe.Tag()
	}
}

// oneOfValues splits a oneof parameter, which may quote values containing
// spaces.
func oneOfValues(param string) []string {
	if !strings.Contains(param, "'") {
		return strings.Fields(param)
	}
	var out []string
	for _, v := range strings.Split(param, "'") {
		if v = strings.TrimSpace(v); v != "" {
			out = append(out, v)
		}
	}
	return out
}

// applyDefaults fills absent fields that declare a fallback.
func (s schema) applyDefaults(doc model.Document) {
	for _, r := range s {
		if r.fallback == nil {
			continue
		}
		if _, ok := doc[r.field]; !ok {
			doc[r.field] = r.fallback
		}
	}
}
