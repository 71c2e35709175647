package crud

import "math"

const (
	// DefaultPerPage applies when a caller asks for a non-positive page size.
	DefaultPerPage int64 = 20
	// MaxPerPage caps the page size.
	MaxPerPage int64 = 100
)

// Pagination is one page of read DTOs plus page metadata.
type Pagination[R any] struct {
	CurrentPage int64 `json:"current_page"`
	LastPage    int64 `json:"last_page"`
	PerPage     int64 `json:"per_page"`
	Total       int64 `json:"total"`
	Payload     []R   `json:"payload"`
}

// LastPage returns ceil(total / perPage), and 0 when there is nothing to page.
func LastPage(total, perPage int64) int64 {
	if total <= 0 || perPage <= 0 {
		return 0
	}
	return (total + perPage - 1) / perPage
}

// NormalizePage clamps a requested page and page size into the accepted range. The page is
// also capped so that its offset still fits in an int64.
func NormalizePage(page, perPage int64) (int64, int64) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 {
		perPage = DefaultPerPage
	}
	if perPage > MaxPerPage {
		perPage = MaxPerPage
	}
	if maxPage := math.MaxInt64 / perPage; page > maxPage {
		page = maxPage
	}
	return page, perPage
}

// Offset is the number of records before the first item of page. It saturates at
// math.MaxInt64 instead of wrapping.
func Offset(page, perPage int64) int64 {
	if page <= 1 || perPage <= 0 {
		return 0
	}
	if page-1 > math.MaxInt64/perPage {
		return math.MaxInt64
	}
	return (page - 1) * perPage
}
