// Package render writes the success envelopes of the API and applies the
// "fields" projection of list and detail requests.
package render

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog"

	"github.com/pitchside/server/internal/api/pagination"
)

type itemBody struct {
	Success bool `json:"success"`
	Data    any  `json:"data"`
}

type listBody struct {
	Success    bool             `json:"success"`
	Count      int              `json:"count"`
	Pagination pagination.Links `json:"pagination"`
	Data       any              `json:"data"`
}

// One writes {"success": true, "data": v}, keeping only fields when set.
func One(w http.ResponseWriter, r *http.Request, status int, v any, fields []string) {
	data, err := Project(v, fields)
	if err != nil {
		fail(w, r, err)
		return
	}
	write(w, r, status, itemBody{Success: true, Data: data})
}

// List writes a page of items with its count and neighbour links.
func List(w http.ResponseWriter, r *http.Request, items any, count int, links pagination.Links, fields []string) {
	data, err := Project(items, fields)
	if err != nil {
		fail(w, r, err)
		return
	}
	write(w, r, http.StatusOK, listBody{Success: true, Count: count, Pagination: links, Data: data})
}

// Deleted writes {"success": true, "data": {}}.
func Deleted(w http.ResponseWriter, r *http.Request) {
	write(w, r, http.StatusOK, itemBody{Success: true, Data: struct{}{}})
}

// JSON writes v as is. Used for bodies that are not a resource envelope,
// such as the token response.
func JSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	write(w, r, status, v)
}

func write(w http.ResponseWriter, r *http.Request, status int, v any) {
	payload, err := json.Marshal(v)
	if err != nil {
		fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = w.Write(payload)
}

func fail(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Error().Err(err).Msg("encode response")
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusInternalServerError)
	_, _ = w.Write([]byte(`{"success":false,"error":"Server Error"}`))
}

// Project reduces v (a struct or a slice of them) to the listed JSON keys.
// Dotted names select nested keys; "id" is always kept. With no fields v is
// returned unchanged.
func Project(v any, fields []string) (any, error) {
	if len(fields) == 0 {
		return v, nil
	}
	raw, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil, err
	}

	tree := selection{"id": nil}
	for _, f := range fields {
		tree.add(strings.Split(f, "."))
	}

	switch typed := generic.(type) {
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = tree.apply(item)
		}
		return out, nil
	default:
		return tree.apply(typed), nil
	}
}

// selection is a tree of kept keys. A nil subtree keeps the whole value.
type selection map[string]selection

func (s selection) add(path []string) {
	if len(path) == 0 || path[0] == "" {
		return
	}
	child, seen := s[path[0]]
	if len(path) == 1 {
		s[path[0]] = nil
		return
	}
	if seen && child == nil {
		return
	}
	if child == nil {
		child = selection{}
		s[path[0]] = child
	}
	child.add(path[1:])
}

func (s selection) apply(v any) any {
	switch typed := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(s))
		for key, sub := range s {
			value, ok := typed[key]
			if !ok {
				continue
			}
			if sub == nil {
				out[key] = value
				continue
			}
			out[key] = sub.apply(value)
		}
		return out
	case []any:
		out := make([]any, len(typed))
		for i, item := range typed {
			out[i] = s.apply(item)
		}
		return out
	default:
		return v
	}
}
