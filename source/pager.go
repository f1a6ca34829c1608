package source

// Pager maps interactive page numbers onto offsets.
type Pager struct {
	Limit int
}

// Offset returns the offset of page (0-based). Negative pages clamp to 0.
func (p Pager) Offset(page int) int {
	return max(0, page) * p.Limit
}

// Query returns the query for page, sorted by DefaultSort.
func (p Pager) Query(page int) Query {
	return Query{Offset: p.Offset(page), Limit: p.Limit, Sort: DefaultSort}
}

// TotalPages returns ceil(total / Limit).
func (p Pager) TotalPages(total int) int {
	if p.Limit <= 0 || total <= 0 {
		return 0
	}
	return (total + p.Limit - 1) / p.Limit
}

// Clamp limits page to [0, TotalPages(total)-1].
func (p Pager) Clamp(page, total int) int {
	last := max(0, p.TotalPages(total)-1)
	return min(max(0, page), last)
}
