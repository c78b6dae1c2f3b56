// Package pagination wraps an ordered result slice with page metadata and the
// predicates derived from it.
package pagination

// Page holds one page of results. TotalCount is expected to be pre-capped by
// the caller when a global pagination limit applies.
type Page[T any] struct {
	Items []T

	currentPage int
	perPage     int
	totalCount  int
}

func NewPage[T any](items []T, currentPage, perPage, totalCount int) *Page[T] {
	if items == nil {
		items = []T{}
	}
	return &Page[T]{
		Items:       items,
		currentPage: currentPage,
		perPage:     perPage,
		totalCount:  totalCount,
	}
}

func (p *Page[T]) CurrentPage() int { return p.currentPage }
func (p *Page[T]) PerPage() int     { return p.perPage }
func (p *Page[T]) TotalCount() int  { return p.totalCount }

// SetTotalCount adjusts the total after construction, for callers that learn
// the real count late.
func (p *Page[T]) SetTotalCount(total int) { p.totalCount = total }

// TotalEntries and LimitValue alias TotalCount and PerPage for callers
// expecting the other pagination helper convention.
func (p *Page[T]) TotalEntries() int         { return p.totalCount }
func (p *Page[T]) SetTotalEntries(total int) { p.totalCount = total }
func (p *Page[T]) LimitValue() int           { return p.perPage }

func (p *Page[T]) TotalPages() int {
	if p.perPage <= 0 {
		return 0
	}
	return (p.totalCount + p.perPage - 1) / p.perPage
}

func (p *Page[T]) HasPrevious() bool { return p.currentPage > 1 }
func (p *Page[T]) HasNext() bool     { return p.currentPage < p.TotalPages() }

func (p *Page[T]) Offset() int {
	return (p.currentPage - 1) * p.perPage
}

func (p *Page[T]) IsFirstPage() bool { return p.currentPage == 1 }
func (p *Page[T]) IsLastPage() bool  { return p.currentPage >= p.TotalPages() }
func (p *Page[T]) OutOfBounds() bool { return p.currentPage > p.TotalPages() }
