// Package pagination builds the next/prev links of list responses.
package pagination

import "github.com/pitchside/server/internal/domain/query"

// PageRef points at another page of the same query.
type PageRef struct {
	Page  int `json:"page"`
	Limit int `json:"limit"`
}

// Links is the "pagination" object of a list response. Either side is
// omitted when there is no such page.
type Links struct {
	Next *PageRef `json:"next,omitempty"`
	Prev *PageRef `json:"prev,omitempty"`
}

// For computes links for page out of total matching rows. An unlimited page
// has no neighbours.
func For(page query.Page, total int) Links {
	var links Links
	if page.Limit <= 0 {
		return links
	}
	start := page.Offset()
	end := page.Number * page.Limit
	if end < total {
		links.Next = &PageRef{Page: page.Number + 1, Limit: page.Limit}
	}
	if start > 0 {
		links.Prev = &PageRef{Page: page.Number - 1, Limit: page.Limit}
	}
	return links
}
