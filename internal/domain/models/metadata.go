package models

import (
	"errors"
	"slices"
	"strings"

	"github.com/Temutjin2k/dispatch-ops/pkg/validator"
)

const (
	DefaultPageSize = 20
	MaxPageSize     = 100
)

// Filters is the page and sort part of every list query. Sort must be one of
// SortSafelist; a leading "-" selects descending order. The first safelist
// entry is the default.
type Filters struct {
	Page         int
	PageSize     int
	Sort         string
	SortSafelist []string
}

func NewFilters(page int, pageSize int, sort string, sortSafelist []string) (Filters, error) {
	if len(sortSafelist) == 0 {
		return Filters{}, errors.New("length of sortSafeList must be greater than 0")
	}
	if sort == "" {
		sort = sortSafelist[0]
	}
	return Filters{
		Page:         page,
		PageSize:     pageSize,
		Sort:         sort,
		SortSafelist: sortSafelist,
	}, nil
}

func (f Filters) Validate(v *validator.Validator) {
	v.Check(f.Page > 0, "page", "must be greater than zero")
	v.Check(f.Page <= 10_000_000, "page", "must be a maximum of 10 million")
	v.Check(f.PageSize > 0, "page_size", "must be greater than zero")
	v.Check(f.PageSize <= MaxPageSize, "page_size", "must be a maximum of 100")
	v.Check(validator.PermittedValue(f.Sort, f.SortSafelist...), "sort", "invalid sort value")
}

// sortKey falls back to the default entry for a sort outside the safelist.
func (f Filters) sortKey() string {
	if slices.Contains(f.SortSafelist, f.Sort) || len(f.SortSafelist) == 0 {
		return f.Sort
	}
	return f.SortSafelist[0]
}

// SortColumn is safe to interpolate into SQL: it only ever returns a
// safelisted column.
func (f Filters) SortColumn() string {
	col := strings.TrimPrefix(f.sortKey(), "-")
	if col == "" {
		return "created_at"
	}
	return col
}

func (f Filters) SortDirection() string {
	if strings.HasPrefix(f.sortKey(), "-") {
		return "DESC"
	}
	return "ASC"
}

func (f Filters) Limit() int {
	return f.PageSize
}

func (f Filters) Offset() int {
	return (f.Page - 1) * f.PageSize
}

type Metadata struct {
	CurrentPage  int `json:"current_page"`
	PageSize     int `json:"page_size"`
	FirstPage    int `json:"first_page"`
	LastPage     int `json:"last_page"`
	TotalRecords int `json:"total_records"`
}

// CalculateMetadata reports first and last page as 0 when nothing matched.
func CalculateMetadata(totalRecords, page, pageSize int) Metadata {
	md := Metadata{CurrentPage: page, PageSize: pageSize, TotalRecords: totalRecords}
	if totalRecords == 0 || pageSize <= 0 {
		return md
	}
	md.FirstPage = 1
	md.LastPage = (totalRecords + pageSize - 1) / pageSize
	return md
}
