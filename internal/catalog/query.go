package catalog

import (
	"cmp"
	"math"
	"slices"
	"strings"
)

const (
	DefaultPage  = 1
	DefaultLimit = 20
	MaxLimit     = 100
)

type SortField string

const (
	SortName      SortField = "name"
	SortPrice     SortField = "price"
	SortRating    SortField = "rating"
	SortCreatedAt SortField = "createdAt"
	SortStock     SortField = "stock"
)

type SortOrder string

const (
	Asc  SortOrder = "asc"
	Desc SortOrder = "desc"
)

type Params struct {
	Term      string
	Category  string
	Brand     string
	SortBy    SortField
	SortOrder SortOrder
	Page      int
	Limit     int
}

type Page struct {
	Items      []View
	Page       int
	Limit      int
	TotalItems int
	TotalPages int
}

func (p Params) normalize() (Params, error) {
	if p.SortBy == "" {
		p.SortBy = SortName
	}
	if p.SortOrder == "" {
		p.SortOrder = Asc
	}
	if p.Page == 0 {
		p.Page = DefaultPage
	}
	if p.Limit == 0 {
		p.Limit = DefaultLimit
	}

	if comparators[p.SortBy] == nil {
		return p, invalid("unknown sort field " + string(p.SortBy))
	}
	if p.SortOrder != Asc && p.SortOrder != Desc {
		return p, invalid("sort order must be asc or desc")
	}
	if p.Page < 1 {
		return p, invalid("page must be positive")
	}
	if p.Limit < 1 || p.Limit > MaxLimit {
		return p, invalid("limit must be between 1 and 100")
	}
	// page*limit must fit in an int so the slice bounds cannot wrap.
	if p.Page > math.MaxInt/p.Limit {
		return p, invalid("page is too large")
	}
	return p, nil
}

var comparators = map[SortField]func(a, b Product) int{
	SortName:      func(a, b Product) int { return strings.Compare(a.Name, b.Name) },
	SortPrice:     func(a, b Product) int { return a.Price.Cmp(b.Price) },
	SortRating:    func(a, b Product) int { return a.Rating.Cmp(b.Rating) },
	SortCreatedAt: func(a, b Product) int { return a.CreatedAt.Compare(b.CreatedAt) },
	SortStock:     func(a, b Product) int { return cmp.Compare(a.Stock, b.Stock) },
}

// Candidates resolves the filters of p to a set of ids. Filters that are not
// given do not narrow the result.
func (ix *Index) Candidates(p Params) Set {
	var ids Set
	narrow := func(s Set) {
		if ids == nil {
			ids = s
			return
		}
		ids = intersect(ids, s)
	}

	if p.Term != "" {
		narrow(ix.Search(p.Term))
	}
	if p.Category != "" {
		narrow(ix.ByCategory(p.Category))
	}
	if p.Brand != "" {
		narrow(ix.ByBrand(p.Brand))
	}

	if ids == nil {
		return ix.AllIDs()
	}
	return ids
}

// Query filters, sorts and paginates. Ties in the sort key keep catalog
// order.
func (ix *Index) Query(p Params) (Page, error) {
	p, err := p.normalize()
	if err != nil {
		return Page{}, err
	}

	products := ix.materialize(ix.Candidates(p))

	compare := comparators[p.SortBy]
	if p.SortOrder == Desc {
		asc := compare
		compare = func(a, b Product) int { return asc(b, a) }
	}
	slices.SortStableFunc(products, compare)

	total := len(products)
	start := (p.Page - 1) * p.Limit
	if start >= total && total > 0 {
		return Page{}, ErrPageOutOfRange
	}
	end := min(start+p.Limit, total)
	start = min(start, total)

	items := make([]View, 0, end-start)
	for _, pr := range products[start:end] {
		items = append(items, pr.View())
	}

	return Page{
		Items:      items,
		Page:       p.Page,
		Limit:      p.Limit,
		TotalItems: total,
		TotalPages: (total + p.Limit - 1) / p.Limit,
	}, nil
}

// materialize maps ids to products in catalog order. Ids with no product are
// skipped.
func (ix *Index) materialize(ids Set) []Product {
	ordered := make([]string, 0, len(ids))
	for id := range ids {
		if _, ok := ix.Products[id]; ok {
			ordered = append(ordered, id)
		}
	}
	slices.SortFunc(ordered, func(a, b string) int {
		return cmp.Compare(ix.pos[a], ix.pos[b])
	})

	out := make([]Product, 0, len(ordered))
	for _, id := range ordered {
		out = append(out, ix.Products[id])
	}
	return out
}
