package dto

import (
	"fmt"
	"strings"
)

// Meta describes the pagination state of a collection response.
type Meta struct {
	Page       int   `json:"page"`
	PerPage    int   `json:"per_page"`
	TotalPages int   `json:"total_pages"`
	TotalItems int64 `json:"total_items"`
}

// Links are relative navigation links for a collection. Next and Prev are
// null at the edges.
type Links struct {
	Self string  `json:"self"`
	Next *string `json:"next"`
	Prev *string `json:"prev"`
}

// Collection is the envelope every list endpoint returns.
type Collection struct {
	Items interface{} `json:"items"`
	Meta  Meta        `json:"_meta"`
	Links Links       `json:"_links"`
}

// NewCollection assembles the envelope. endpoint is the path of the
// collection resource, e.g. "/api/users".
func NewCollection(items interface{}, endpoint string, page, perPage int, total int64) *Collection {
	totalPages := int((total + int64(perPage) - 1) / int64(perPage))

	// Endpoints like /api/search?q=... already carry a query string.
	sep := "?"
	if strings.Contains(endpoint, "?") {
		sep = "&"
	}
	link := func(p int) string {
		return fmt.Sprintf("%s%spage=%d&per_page=%d", endpoint, sep, p, perPage)
	}

	links := Links{Self: link(page)}
	if page < totalPages {
		next := link(page + 1)
		links.Next = &next
	}
	if page > 1 {
		prev := link(page - 1)
		links.Prev = &prev
	}

	return &Collection{
		Items: items,
		Meta: Meta{
			Page:       page,
			PerPage:    perPage,
			TotalPages: totalPages,
			TotalItems: total,
		},
		Links: links,
	}
}
