package query

import (
	"math"
	"net/url"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"github.com/devcamper/catalog/internal/query/config"
	"github.com/devcamper/catalog/pkg/model"

	"github.com/gorilla/schema"
)

var filterKeyPattern = regexp.MustCompile(`^([^\[\]]+)\[(gt|gte|lt|lte|eq|ne|in)\]$`)

var bracketOps = map[string]model.FilterOp{
	"gt":  model.OpGt,
	"gte": model.OpGte,
	"lt":  model.OpLt,
	"lte": model.OpLte,
	"eq":  model.OpEq,
	"ne":  model.OpNe,
	"in":  model.OpIn,
}

// controls holds the reserved parameters. Page and limit are decoded as raw
// strings so malformed values fall back to defaults instead of failing.
type controls struct {
	Select string `schema:"select"`
	Sort   string `schema:"sort"`
	Page   string `schema:"page"`
	Limit  string `schema:"limit"`
}

// Translator builds Plans from request parameters. It is safe for concurrent use.
type Translator struct {
	cfg     config.Config
	decoder *schema.Decoder
}

// NewTranslator creates a translator with the given pagination bounds.
func NewTranslator(cfg config.Config) *Translator {
	cfg.ApplyDefaults()
	decoder := schema.NewDecoder()
	decoder.IgnoreUnknownKeys(true)
	return &Translator{cfg: cfg, decoder: decoder}
}

// Translate converts params into a plan over collection. Scope filters pin the
// plan to an ancestor (e.g. the courses of one bootcamp); client filters on a
// scoped field are dropped so they cannot widen or contradict the scope.
func (t *Translator) Translate(collection string, params url.Values, scope ...model.Filter) Plan {
	var c controls
	if err := t.decoder.Decode(&c, params); err != nil {
		c = controls{}
	}

	page := parsePositive(c.Page, 1)
	limit := parsePositive(c.Limit, t.cfg.DefaultLimit)
	if limit > t.cfg.MaxLimit {
		limit = t.cfg.MaxLimit
	}
	// (page-1)*limit and skip+limit must fit in an int
	if maxPage := math.MaxInt / limit; page > maxPage {
		page = maxPage
	}

	scoped := make(map[string]bool, len(scope))
	filters := make(model.Filters, 0, len(params)+len(scope))
	for _, f := range scope {
		scoped[f.Field] = true
		filters = append(filters, f)
	}
	filters = append(filters, parseFilters(params, scoped)...)

	include, exclude := parseSelect(c.Select)
	return Plan{
		Collection: collection,
		Filters:    filters,
		OrderBy:    parseSort(c.Sort),
		Select:     include,
		Exclude:    exclude,
		Page:       page,
		Limit:      limit,
		Skip:       (page - 1) * limit,
	}
}

func parsePositive(raw string, fallback int) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return fallback
	}
	return n
}

// parseFilters walks the non-reserved keys in sorted order. When a key repeats,
// the last value wins.
func parseFilters(params url.Values, scoped map[string]bool) model.Filters {
	keys := make([]string, 0, len(params))
	for k := range params {
		switch k {
		case ParamSelect, ParamSort, ParamPage, ParamLimit:
			continue
		}
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var filters model.Filters
	for _, k := range keys {
		values := params[k]
		if len(values) == 0 {
			continue
		}
		raw := values[len(values)-1]

		field, op := k, model.OpEq
		if m := filterKeyPattern.FindStringSubmatch(k); m != nil {
			field, op = m[1], bracketOps[m[2]]
		}
		if scoped[field] {
			continue
		}

		var value interface{}
		if op == model.OpIn {
			parts := splitValues(raw)
			list := make([]interface{}, 0, len(parts))
			for _, p := range parts {
				list = append(list, parseValue(p))
			}
			value = list
		} else {
			value = parseValue(raw)
		}
		f := model.Filter{Field: field, Op: op, Value: value}
		if !f.Validate() {
			continue
		}
		filters = append(filters, f)
	}
	return filters
}

// parseValue types a raw parameter as int64, float64 or bool before falling
// back to string. Numbers with a leading zero (zip codes, phone numbers) stay
// strings.
func parseValue(raw string) interface{} {
	if raw == "true" {
		return true
	}
	if raw == "false" {
		return false
	}
	if hasLeadingZero(raw) {
		return raw
	}
	if n, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return n
	}
	if f, err := strconv.ParseFloat(raw, 64); err == nil && !math.IsInf(f, 0) && !math.IsNaN(f) {
		if isDecimal(raw) {
			return f
		}
	}
	return raw
}

func hasLeadingZero(s string) bool {
	s = strings.TrimPrefix(s, "-")
	return len(s) > 1 && s[0] == '0' && s[1] != '.'
}

// isDecimal rejects forms ParseFloat accepts but a query string should not
// produce, such as hex floats and underscores.
func isDecimal(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9':
		case r == '.', r == '-', r == '+', r == 'e', r == 'E':
		default:
			return false
		}
	}
	return true
}

// parseSort reads "a,-b" as a ascending then b descending. A field listed
// twice keeps its first direction. Without a usable key the order is newest
// first.
func parseSort(raw string) []model.Order {
	var order []model.Order
	seen := make(map[string]bool)
	for _, key := range splitList(raw) {
		dir := model.Asc
		if strings.HasPrefix(key, "-") {
			dir = model.Desc
			key = strings.TrimPrefix(key, "-")
		}
		if key == "" || seen[key] {
			continue
		}
		seen[key] = true
		order = append(order, model.Order{Field: key, Direction: dir})
	}
	if len(order) == 0 {
		return []model.Order{{Field: model.FieldCreatedAt, Direction: model.Desc}}
	}
	return order
}

// parseSelect reads "a,b" as an inclusion list and "-a,-b" as an exclusion
// list. Stores cannot mix the two, so when both appear the inclusions win and
// excluded names are removed from them. Excluding only the id is a no-op.
func parseSelect(raw string) (include, exclude []string) {
	dropped := make(map[string]bool)
	for _, f := range splitList(raw) {
		if name, ok := strings.CutPrefix(f, "-"); ok {
			if name != "" && name != model.FieldID && !dropped[name] {
				dropped[name] = true
				exclude = append(exclude, name)
			}
			continue
		}
		include = append(include, f)
	}
	if len(include) == 0 {
		return nil, exclude
	}
	kept := include[:0]
	for _, f := range include {
		if !dropped[f] {
			kept = append(kept, f)
		}
	}
	if len(kept) == 0 {
		// every included field was also excluded
		kept = append(kept, model.FieldID)
	}
	return kept, nil
}

// splitValues splits an "in" operand on commas only, so values may contain spaces.
func splitValues(raw string) []string {
	var out []string
	for _, p := range strings.Split(raw, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// splitList splits a comma separated list, discarding empty entries. Spaces
// are accepted as separators too, matching "select=name description".
func splitList(raw string) []string {
	fields := strings.FieldsFunc(raw, func(r rune) bool {
		return r == ',' || r == ' '
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}
