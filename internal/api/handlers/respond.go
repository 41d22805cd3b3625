package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/pitchside/server/internal/api/pagination"
	"github.com/pitchside/server/internal/api/render"
	"github.com/pitchside/server/internal/auth"
	"github.com/pitchside/server/internal/domain/query"
	"github.com/pitchside/server/internal/validation"
)

func pathParam(r *http.Request, key string) string {
	return strings.TrimSpace(r.PathValue(key))
}

// actorFrom returns the identity set by middleware.Protect. Unauthenticated
// requests get the zero Actor, which every policy check rejects.
func actorFrom(r *http.Request) auth.Actor {
	a, _ := auth.ActorFrom(r.Context())
	return a
}

// decodeJSON reads a JSON object into dst. Syntax and type errors become
// field failures; a body over the size limit is returned as is.
func decodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		var typeErr *json.UnmarshalTypeError
		switch {
		case errors.As(err, &tooLarge):
			return err
		case errors.Is(err, io.EOF):
			return validation.New("body", "request body is required")
		case errors.As(err, &typeErr) && typeErr.Field != "":
			return validation.New(typeErr.Field, "must be a "+typeErr.Type.String())
		default:
			return validation.New("body", "malformed JSON")
		}
	}
	return nil
}

// listSpec parses the list query against schema. Keys in omit are consumed
// by the route itself and never treated as filters.
func listSpec(schema query.Schema, r *http.Request, omit ...string) (query.Spec, error) {
	values := r.URL.Query()
	if len(omit) > 0 {
		values = cloneWithout(values, omit)
	}
	return schema.Parse(values)
}

func cloneWithout(values url.Values, omit []string) url.Values {
	out := make(url.Values, len(values))
	for k, v := range values {
		out[k] = v
	}
	for _, k := range omit {
		delete(out, k)
	}
	return out
}

// dateRange reads the required startDate and endDate query parameters.
func dateRange(r *http.Request) (time.Time, time.Time, error) {
	var errs validation.Errors
	parse := func(key string, endOfDay bool) time.Time {
		raw := strings.TrimSpace(r.URL.Query().Get(key))
		if raw == "" {
			errs.Add(key, "is required")
			return time.Time{}
		}
		t, err := query.ParseTime(raw)
		if err != nil {
			errs.Add(key, "must be a date (YYYY-MM-DD) or RFC 3339 timestamp")
			return time.Time{}
		}
		// A bare end date covers that whole day.
		if endOfDay && len(raw) == len(time.DateOnly) {
			t = t.Add(24*time.Hour - time.Nanosecond)
		}
		return t
	}
	from, to := parse("startDate", false), parse("endDate", true)
	if len(errs) == 0 && to.Before(from) {
		errs.Add("endDate", "must not be before startDate")
	}
	return from, to, errs.Err()
}

func writeList[T any](w http.ResponseWriter, r *http.Request, spec query.Spec, items []T, total int) {
	if items == nil {
		items = []T{}
	}
	render.List(w, r, items, len(items), pagination.For(spec.Page, total), spec.Fields)
}

// fieldsParam is the projection of a single-resource GET.
func fieldsParam(r *http.Request) []string {
	raw := strings.TrimSpace(r.URL.Query().Get("fields"))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
