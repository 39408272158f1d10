package models

import "github.com/noah-isme/course-catalog-api/pkg/query"

// PageRequest carries the requested page window of a listing.
type PageRequest struct {
	Page     int
	PageSize int
}

// Normalize clamps the page to at least 1 and the size to the default and maximum.
func (p PageRequest) Normalize() PageRequest {
	if p.Page < 1 {
		p.Page = 1
	}
	p.PageSize = p.Limit()
	return p
}

// Limit returns the page size as a LIMIT value: the default when unset,
// capped at query.MaxPageSize.
func (p PageRequest) Limit() int {
	switch {
	case p.PageSize <= 0:
		return query.DefaultPageSize
	case p.PageSize > query.MaxPageSize:
		return query.MaxPageSize
	}
	return p.PageSize
}

// Offset returns the number of rows skipped before the page starts.
func (p PageRequest) Offset() int {
	if p.Page < 1 {
		return 0
	}
	return (p.Page - 1) * p.Limit()
}

// Pagination contains pagination metadata returned in list responses.
type Pagination struct {
	Page       int     `json:"page"`
	PageSize   int     `json:"page_size"`
	TotalCount int     `json:"total_count"`
	TotalPages int     `json:"total_pages"`
	Next       *string `json:"next"`
	Previous   *string `json:"previous"`
}

// NewPagination derives page totals. An empty result still has one page.
func NewPagination(req PageRequest, total int) *Pagination {
	pages := 1
	if req.PageSize > 0 && total > 0 {
		pages = (total + req.PageSize - 1) / req.PageSize
	}
	return &Pagination{
		Page:       req.Page,
		PageSize:   req.PageSize,
		TotalCount: total,
		TotalPages: pages,
	}
}

// OutOfRange reports whether the requested page lies past the last page.
func (p *Pagination) OutOfRange() bool {
	return p.Page < 1 || p.Page > p.TotalPages
}
