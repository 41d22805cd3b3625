package postgres

import (
	"strconv"
	"strings"

	"github.com/pitchside/server/internal/domain/query"
)

// listStatement renders a query.Spec against one table. Column expressions
// come from a domain Schema, never from the request, and every value is
// bound as a parameter.
type listStatement struct {
	From     string
	Columns  string
	Tiebreak string
}

type args []any

func (a *args) bind(v any) string {
	*a = append(*a, v)
	return "$" + strconv.Itoa(len(*a))
}

// Build returns the count statement, the page statement and their shared
// arguments.
func (s listStatement) Build(spec query.Spec) (countSQL string, pageSQL string, params []any) {
	var a args
	where := whereSQL(spec.Filters, &a)

	countSQL = "SELECT count(*) FROM " + s.From + where

	var b strings.Builder
	b.WriteString("SELECT ")
	b.WriteString(s.Columns)
	b.WriteString(" FROM ")
	b.WriteString(s.From)
	b.WriteString(where)
	b.WriteString(orderSQL(spec.Sort, s.Tiebreak))
	if spec.Page.Limit > 0 {
		offset := 0
		if spec.Page.Number > 1 {
			offset = spec.Page.Offset()
		}
		b.WriteString(" LIMIT " + strconv.Itoa(spec.Page.Limit))
		b.WriteString(" OFFSET " + strconv.Itoa(offset))
	}
	return countSQL, b.String(), a
}

func whereSQL(filters []query.Filter, a *args) string {
	if len(filters) == 0 {
		return ""
	}
	parts := make([]string, 0, len(filters))
	for _, f := range filters {
		parts = append(parts, filterSQL(f, a))
	}
	return " WHERE " + strings.Join(parts, " AND ")
}

func filterSQL(f query.Filter, a *args) string {
	if f.Multi {
		return a.bind(f.Values[0]) + " = ANY(" + f.Column + ")"
	}
	switch f.Op {
	case query.OpIn:
		placeholders := make([]string, len(f.Values))
		for i, v := range f.Values {
			placeholders[i] = a.bind(v)
		}
		return f.Column + " IN (" + strings.Join(placeholders, ", ") + ")"
	case query.OpGt:
		return f.Column + " > " + a.bind(f.Values[0])
	case query.OpGte:
		return f.Column + " >= " + a.bind(f.Values[0])
	case query.OpLt:
		return f.Column + " < " + a.bind(f.Values[0])
	case query.OpLte:
		return f.Column + " <= " + a.bind(f.Values[0])
	default:
		return f.Column + " = " + a.bind(f.Values[0])
	}
}

func orderSQL(keys []query.SortKey, tiebreak string) string {
	parts := make([]string, 0, len(keys)+1)
	for _, k := range keys {
		if k.Desc {
			parts = append(parts, k.Column+" DESC NULLS LAST")
		} else {
			parts = append(parts, k.Column+" ASC")
		}
	}
	if tiebreak != "" {
		parts = append(parts, tiebreak+" ASC")
	}
	if len(parts) == 0 {
		return ""
	}
	return " ORDER BY " + strings.Join(parts, ", ")
}
