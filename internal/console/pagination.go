package console

// PageCount is the number of pages needed for total records, limit per page.
func PageCount(total, limit int) int {
	if total <= 0 || limit <= 0 {
		return 0
	}
	return (total + limit - 1) / limit
}

type PageLink struct {
	Number   int
	Active   bool
	Disabled bool
}

type Pagination struct {
	Prev  PageLink
	Next  PageLink
	Pages []PageLink
}

// NewPagination lays out controls for page out of count pages. Previous is
// disabled on the first page and Next on the last.
func NewPagination(page, count int) Pagination {
	p := Pagination{
		Prev: PageLink{Number: page - 1, Disabled: page <= 1},
		Next: PageLink{Number: page + 1, Disabled: page >= count},
	}
	for n := 1; n <= count; n++ {
		p.Pages = append(p.Pages, PageLink{Number: n, Active: n == page})
	}
	return p
}
