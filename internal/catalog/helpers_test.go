package catalog

import (
	"time"

	"github.com/shopspring/decimal"

	"MiniShop/internal/auth"
)

var (
	admin   = auth.Principal{ID: "1", Role: auth.RoleAdmin}
	shopper = auth.Principal{ID: "2", Role: auth.RoleUser}
	t0      = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
)

func product(id, name, desc, category string, stock int) Product {
	return Product{
		ID:          id,
		Name:        name,
		Description: desc,
		Price:       decimal.NewFromInt(10),
		Category:    category,
		Brand:       "BrandA",
		Stock:       stock,
		Rating:      decimal.Zero,
		Tags:        []string{},
		CreatedAt:   t0,
	}
}

func ids(views []View) []string {
	out := make([]string, 0, len(views))
	for _, v := range views {
		out = append(out, v.ID)
	}
	return out
}

func keys(s Set) []string {
	out := make([]string, 0, len(s))
	for id := range s {
		out = append(out, id)
	}
	return out
}
