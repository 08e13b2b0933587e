// Package listing provides the typed primitives behind searchable, paginated
// screens: a Source capability interface, page envelopes, typed table
// columns, a gorm-backed source, and the debounced picker engine feeding
// combobox widgets.
package listing

import (
	"context"
	"net/http"
	"strconv"
	"strings"
)

const (
	DefaultLimit = 25
	MaxLimit     = 100
)

// Query captures the client-driven state for one page lookup.
type Query struct {
	Search string
	Offset int
	Limit  int
}

// Normalized clamps the query into the supported window.
func (q Query) Normalized() Query {
	q.Search = strings.TrimSpace(q.Search)
	if q.Offset < 0 {
		q.Offset = 0
	}
	if q.Limit <= 0 {
		q.Limit = DefaultLimit
	}
	if q.Limit > MaxLimit {
		q.Limit = MaxLimit
	}
	return q
}

// QueryFromRequest extracts search and pagination inputs from an HTTP request.
func QueryFromRequest(r *http.Request) Query {
	query := Query{}
	if err := r.ParseForm(); err != nil {
		return query.Normalized()
	}
	query.Search = r.FormValue("q")
	query.Offset = parseInt(r.FormValue("offset"))
	query.Limit = parseInt(r.FormValue("limit"))
	return query.Normalized()
}

func parseInt(value string) int {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return 0
	}
	parsed, err := strconv.Atoi(trimmed)
	if err != nil {
		return 0
	}
	return parsed
}

// Page is one window of results plus enough bookkeeping to fetch the next.
type Page[T any] struct {
	Items      []T   `json:"items"`
	TotalCount int64 `json:"total_count"`
	Offset     int   `json:"offset"`
	HasMore    bool  `json:"has_more"`
}

// NextOffset is where the following page starts.
func (p Page[T]) NextOffset() int {
	return p.Offset + len(p.Items)
}

// Source is the capability a paginated, searchable data provider exposes.
type Source[T any] interface {
	Fetch(ctx context.Context, q Query) (Page[T], error)
}

// SourceFunc adapts a plain function into a Source.
type SourceFunc[T any] func(ctx context.Context, q Query) (Page[T], error)

func (f SourceFunc[T]) Fetch(ctx context.Context, q Query) (Page[T], error) {
	return f(ctx, q)
}
