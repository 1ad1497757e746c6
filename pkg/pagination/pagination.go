package pagination

import (
	"strconv"

	"github.com/labstack/echo/v4"
)

const (
	DefaultPageSize = 25
	MaxPageSize     = 100
)

// Params is a zero-based page request as accepted by the web client.
type Params struct {
	PageIndex int
	PageSize  int
}

// FromContext reads ?pageIndex= and ?pageSize=, falling back to limit/offset
// for older clients.
func FromContext(c echo.Context) Params {
	size, _ := strconv.Atoi(c.QueryParam("pageSize"))
	index, _ := strconv.Atoi(c.QueryParam("pageIndex"))

	if size <= 0 {
		if limit, _ := strconv.Atoi(c.QueryParam("limit")); limit > 0 {
			size = limit
			offset, _ := strconv.Atoi(c.QueryParam("offset"))
			if offset > 0 {
				index = offset / limit
			}
		}
	}
	return New(index, size)
}

// New clamps index and size into range.
func New(index, size int) Params {
	if size <= 0 {
		size = DefaultPageSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if index < 0 {
		index = 0
	}
	return Params{PageIndex: index, PageSize: size}
}

func (p Params) Limit() int  { return p.PageSize }
func (p Params) Offset() int { return p.PageIndex * p.PageSize }

// HasNext reports whether rows remain after this page.
func (p Params) HasNext(total int) bool {
	return p.Offset()+p.PageSize < total
}
