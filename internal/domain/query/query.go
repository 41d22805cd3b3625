// Package query turns list-endpoint query strings into typed filters, sort
// keys and page windows.
//
// Filters are written as field=value (equality) or field[op]=value where op
// is one of gt, gte, lt, lte or in. Each resource declares a Schema that
// whitelists the public field names it accepts and the storage column each
// one maps to, so nothing from the query string reaches SQL unparsed.
package query

import (
	"errors"
	"math"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/pitchside/server/internal/validation"
)

const (
	DefaultLimit = 10
	MaxLimit     = 100
)

// MaxPage keeps page*limit inside an int32 for OFFSET and the pagination
// envelope.
const MaxPage = math.MaxInt32 / MaxLimit

// Op is a comparison operator.
type Op string

const (
	OpEq  Op = "eq"
	OpGt  Op = "gt"
	OpGte Op = "gte"
	OpLt  Op = "lt"
	OpLte Op = "lte"
	OpIn  Op = "in"
)

var knownOps = map[Op]bool{OpEq: true, OpGt: true, OpGte: true, OpLt: true, OpLte: true, OpIn: true}

// reserved keys are never treated as filters.
var reserved = map[string]bool{"page": true, "limit": true, "sort": true, "fields": true}

// Kind is the value type a field is parsed into.
type Kind int

const (
	KindText Kind = iota
	KindInt
	KindFloat
	KindBool
	KindTime
)

// Field maps a public field name to a storage expression. Multi marks an
// expression that yields several values (an array); equality then means
// membership.
type Field struct {
	Column string
	Kind   Kind
	Multi  bool
}

// Schema is the whitelist for one resource.
type Schema struct {
	Fields      map[string]Field
	DefaultSort string
}

// Filter is one parsed (field, op, value) triple. Values holds one element
// for every operator except OpIn.
type Filter struct {
	Field  string
	Column string
	Kind   Kind
	Multi  bool
	Op     Op
	Values []any
}

// SortKey orders results by Column.
type SortKey struct {
	Field  string
	Column string
	Desc   bool
}

// Page is a 1-based page window.
type Page struct {
	Number int
	Limit  int
}

// Offset is the number of rows to skip.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Limit
}

// Spec is everything a list request asked for.
type Spec struct {
	Filters []Filter
	Sort    []SortKey
	Page    Page
	Fields  []string
}

// With returns a copy of s with an extra filter appended. Handlers use it for
// route-scoped lists such as /matches/team/{id}.
func (s Spec) With(f Filter) Spec {
	out := s
	out.Filters = append(append([]Filter(nil), s.Filters...), f)
	return out
}

// Eq builds an equality filter for a schema field. It panics on unknown
// fields since callers pass compile-time constants.
func (sc Schema) Eq(field string, value any) Filter {
	return sc.mustFilter(field, OpEq, value)
}

// Cmp builds a comparison filter for a schema field.
func (sc Schema) Cmp(field string, op Op, value any) Filter {
	return sc.mustFilter(field, op, value)
}

func (sc Schema) mustFilter(field string, op Op, values ...any) Filter {
	f, ok := sc.Fields[field]
	if !ok {
		panic("query: unknown field " + field)
	}
	return Filter{Field: field, Column: f.Column, Kind: f.Kind, Multi: f.Multi, Op: op, Values: values}
}

// SortBy parses a sort expression against the schema, falling back to the
// schema default when raw is empty.
func (sc Schema) SortBy(raw string) ([]SortKey, error) {
	var errs validation.Errors
	keys := sc.parseSort(raw, &errs)
	return keys, errs.Err()
}

// Parse reads filters, sort, page and field projection from values.
// All problems are reported together as validation.Errors.
func (sc Schema) Parse(values url.Values) (Spec, error) {
	var errs validation.Errors
	spec := Spec{Page: Page{Number: 1, Limit: DefaultLimit}}

	spec.Page.Number = parsePositive(values.Get("page"), "page", 1, MaxPage, &errs)
	spec.Page.Limit = parsePositive(values.Get("limit"), "limit", DefaultLimit, MaxLimit, &errs)
	spec.Sort = sc.parseSort(values.Get("sort"), &errs)
	spec.Fields = splitList(values.Get("fields"))

	// Stable order makes generated SQL deterministic.
	keys := make([]string, 0, len(values))
	for key := range values {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		if reserved[key] {
			continue
		}
		name, op, ok := splitKey(key)
		if !ok {
			errs.Add(key, "malformed filter key")
			continue
		}
		if !knownOps[op] {
			errs.Add(name, "unsupported operator "+string(op))
			continue
		}
		field, ok := sc.Fields[name]
		if !ok {
			errs.Add(name, "is not a filterable field")
			continue
		}
		for _, raw := range values[key] {
			filter, err := buildFilter(name, field, op, raw)
			if err != nil {
				errs.Add(name, err.Error())
				continue
			}
			spec.Filters = append(spec.Filters, filter)
		}
	}

	return spec, errs.Err()
}

// splitKey handles "field" and "field[op]".
func splitKey(key string) (string, Op, bool) {
	open := strings.IndexByte(key, '[')
	if open < 0 {
		if strings.ContainsRune(key, ']') || key == "" {
			return "", "", false
		}
		return key, OpEq, true
	}
	if !strings.HasSuffix(key, "]") || open == 0 {
		return "", "", false
	}
	return key[:open], Op(strings.ToLower(key[open+1 : len(key)-1])), true
}

func buildFilter(name string, field Field, op Op, raw string) (Filter, error) {
	filter := Filter{Field: name, Column: field.Column, Kind: field.Kind, Multi: field.Multi, Op: op}
	if field.Multi && op != OpEq {
		return filter, errors.New("only supports equality")
	}
	if op == OpIn {
		parts := splitList(raw)
		if len(parts) == 0 {
			return filter, errors.New("in requires at least one value")
		}
		for _, part := range parts {
			v, err := parseValue(field.Kind, part)
			if err != nil {
				return filter, err
			}
			filter.Values = append(filter.Values, v)
		}
		return filter, nil
	}
	if field.Kind == KindBool && op != OpEq {
		return filter, errors.New("only supports equality")
	}
	v, err := parseValue(field.Kind, strings.TrimSpace(raw))
	if err != nil {
		return filter, err
	}
	filter.Values = []any{v}
	return filter, nil
}

func parseValue(kind Kind, raw string) (any, error) {
	switch kind {
	case KindInt:
		v, err := strconv.Atoi(raw)
		if err != nil {
			return nil, errors.New("must be an integer")
		}
		return v, nil
	case KindFloat:
		v, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, errors.New("must be a number")
		}
		return v, nil
	case KindBool:
		v, err := strconv.ParseBool(raw)
		if err != nil {
			return nil, errors.New("must be true or false")
		}
		return v, nil
	case KindTime:
		return ParseTime(raw)
	default:
		return raw, nil
	}
}

// ParseTime accepts RFC 3339 timestamps and plain YYYY-MM-DD dates.
func ParseTime(raw string) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.DateOnly, raw); err == nil {
		return t, nil
	}
	return time.Time{}, errors.New("must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
}

func (sc Schema) parseSort(raw string, errs *validation.Errors) []SortKey {
	if strings.TrimSpace(raw) == "" {
		raw = sc.DefaultSort
	}
	var keys []SortKey
	for _, part := range splitList(raw) {
		desc := strings.HasPrefix(part, "-")
		name := strings.TrimPrefix(part, "-")
		field, ok := sc.Fields[name]
		if !ok {
			errs.Add("sort", name+" is not a sortable field")
			continue
		}
		keys = append(keys, SortKey{Field: name, Column: field.Column, Desc: desc})
	}
	return keys
}

func parsePositive(raw, field string, fallback, max int, errs *validation.Errors) int {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v < 1 {
		errs.Add(field, "must be a positive integer")
		return fallback
	}
	if max > 0 && v > max {
		errs.Add(field, "must be at most "+strconv.Itoa(max))
		return fallback
	}
	return v
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
