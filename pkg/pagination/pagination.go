// Package pagination windows list endpoints with optional limit/offset query
// parameters. Without a limit the whole result set is returned.
package pagination

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	MaxLimit = 100

	TotalCountHeader = "X-Total-Count"
)

// Params holds pagination parameters extracted from a request. A zero Limit
// means unlimited.
type Params struct {
	Limit  int
	Offset int
}

// FromContext extracts pagination parameters from the echo context. Invalid
// or negative values are ignored and limit is capped at MaxLimit.
func FromContext(c echo.Context) Params {
	limit, _ := strconv.Atoi(c.QueryParam("limit"))
	if limit < 0 {
		limit = 0
	}
	if limit > MaxLimit {
		limit = MaxLimit
	}

	offset, _ := strconv.Atoi(c.QueryParam("offset"))
	if offset < 0 {
		offset = 0
	}

	return Params{Limit: limit, Offset: offset}
}

// Unbounded reports whether the caller asked for everything.
func (p Params) Unbounded() bool {
	return p.Limit == 0 && p.Offset == 0
}

// SQL returns the LIMIT/OFFSET clause for SQL queries, or "" when unbounded.
func (p Params) SQL() string {
	switch {
	case p.Unbounded():
		return ""
	case p.Limit == 0:
		return fmt.Sprintf("OFFSET %d", p.Offset)
	default:
		return fmt.Sprintf("LIMIT %d OFFSET %d", p.Limit, p.Offset)
	}
}

// HasNext returns true if there are more results after the current page.
func (p Params) HasNext(total int) bool {
	return p.Limit > 0 && p.Offset+p.Limit < total
}

// HasPrevious returns true if there are results before the current page.
func (p Params) HasPrevious() bool {
	return p.Offset > 0
}

// NextOffset returns the offset for the next page.
func (p Params) NextOffset() int {
	return p.Offset + p.Limit
}

// PreviousOffset returns the offset for the previous page.
// Returns 0 if the result would be negative.
func (p Params) PreviousOffset() int {
	prev := p.Offset - p.Limit
	if prev < 0 {
		return 0
	}
	return prev
}

// Window applies p to an in-memory slice.
func Window[T any](items []T, p Params) []T {
	if p.Offset >= len(items) {
		return []T{}
	}
	items = items[p.Offset:]
	if p.Limit > 0 && p.Limit < len(items) {
		items = items[:p.Limit]
	}
	return items
}

// SetHeaders writes X-Total-Count and, for windowed requests, an RFC 8288
// Link header with next/prev relations.
func (p Params) SetHeaders(c echo.Context, total int) {
	h := c.Response().Header()
	h.Set(TotalCountHeader, strconv.Itoa(total))
	if p.Limit == 0 {
		return
	}
	if links := p.Links(c.Request().URL.Path, total); links != "" {
		h.Set("Link", links)
	}
}

// Links renders the next/prev Link header value for basePath.
func (p Params) Links(basePath string, total int) string {
	var links []string
	link := func(offset int, rel string) string {
		q := url.Values{}
		q.Set("limit", strconv.Itoa(p.Limit))
		q.Set("offset", strconv.Itoa(offset))
		return fmt.Sprintf("<%s?%s>; rel=%q", basePath, q.Encode(), rel)
	}
	if p.HasNext(total) {
		links = append(links, link(p.NextOffset(), "next"))
	}
	if p.HasPrevious() {
		links = append(links, link(p.PreviousOffset(), "prev"))
	}
	return strings.Join(links, ", ")
}
