package service

import "github.com/noah-isme/academic-panel/pkg/response"

const (
	defaultPageSize = 20
	maxPageSize     = 200
)

// pagination mirrors the defaults the repositories apply to LIMIT/OFFSET.
func pagination(page, size, total int) *response.Pagination {
	if page < 1 {
		page = 1
	}
	if size <= 0 || size > maxPageSize {
		size = defaultPageSize
	}
	return &response.Pagination{Page: page, PageSize: size, TotalCount: total}
}
