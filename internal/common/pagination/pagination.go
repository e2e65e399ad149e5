// Package pagination pages in-memory listings for the HTTP API.
package pagination

import (
	"net/http"
	"strconv"

	"ghl-oauth-manager/internal/common/errors"
)

// DefaultPerPage is the default number of items per page
const DefaultPerPage = 50

// MaxPerPage is the maximum allowed items per page
const MaxPerPage = 500

// Params represents pagination parameters
type Params struct {
	Page    int `json:"page"`
	PerPage int `json:"per_page"`
}

// Offset is the index of the first item of the page
func (p Params) Offset() int {
	return (p.Page - 1) * p.PerPage
}

// Meta describes the returned page
type Meta struct {
	Page         int `json:"page"`
	PerPage      int `json:"per_page"`
	TotalPages   int `json:"total_pages"`
	TotalResults int `json:"total_results"`
}

// ParseParams reads page and per_page. ok is false when the request asked
// for neither, in which case the caller returns everything.
func ParseParams(r *http.Request) (params Params, ok bool, err error) {
	query := r.URL.Query()
	rawPage, rawPerPage := query.Get("page"), query.Get("per_page")
	if rawPage == "" && rawPerPage == "" {
		return Params{}, false, nil
	}

	params = Params{Page: 1, PerPage: DefaultPerPage}
	if rawPage != "" {
		page, convErr := strconv.Atoi(rawPage)
		if convErr != nil || page < 1 {
			return Params{}, false, errors.ValidationError("page must be a positive integer").
				WithContext("field", "page")
		}
		params.Page = page
	}
	if rawPerPage != "" {
		perPage, convErr := strconv.Atoi(rawPerPage)
		if convErr != nil || perPage < 1 || perPage > MaxPerPage {
			return Params{}, false, errors.ValidationError("per_page must be between 1 and 500").
				WithContext("field", "per_page")
		}
		params.PerPage = perPage
	}
	return params, true, nil
}

// Paginate returns the requested page of items. A page past the end is empty.
func Paginate[T any](items []T, p Params) ([]T, Meta) {
	meta := Meta{
		Page:         p.Page,
		PerPage:      p.PerPage,
		TotalPages:   CalculateTotalPages(len(items), p.PerPage),
		TotalResults: len(items),
	}

	start := p.Offset()
	if start >= len(items) {
		return []T{}, meta
	}
	end := start + p.PerPage
	if end > len(items) {
		end = len(items)
	}
	return items[start:end], meta
}

// CalculateTotalPages calculates the total number of pages
func CalculateTotalPages(totalResults, perPage int) int {
	if perPage <= 0 {
		return 0
	}
	pages := (totalResults + perPage - 1) / perPage
	if pages < 1 {
		return 1
	}
	return pages
}
