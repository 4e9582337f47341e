package catalog

import (
	"fmt"
	"math/rand/v2"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

var (
	seedCategories = []string{"Electronics", "Clothing", "Books", "Home", "Sports", "Beauty"}
	seedBrands     = []string{"BrandA", "BrandB", "BrandC", "BrandD", "BrandE"}
)

// GenerateSeed builds n demo products with ids "1".."n". The same seed always
// yields the same catalog.
func GenerateSeed(n int, seed uint64, createdAt time.Time) []Product {
	r := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))

	out := make([]Product, 0, n)
	for i := 1; i <= n; i++ {
		out = append(out, Product{
			ID:            strconv.Itoa(i),
			Name:          fmt.Sprintf("Product %d", i),
			Description:   fmt.Sprintf("This is product number %d with amazing features", i),
			Price:         decimal.NewFromInt(int64(r.IntN(1000) + 10)),
			Category:      seedCategories[r.IntN(len(seedCategories))],
			Brand:         seedBrands[r.IntN(len(seedBrands))],
			Stock:         r.IntN(100),
			Rating:        decimal.New(int64(r.IntN(51)), -1),
			Tags:          []string{fmt.Sprintf("tag%d", i), fmt.Sprintf("feature%d", i%10)},
			CreatedAt:     createdAt.UTC(),
			CostPrice:     decimal.NewFromInt(int64(r.IntN(500) + 5)),
			Supplier:      fmt.Sprintf("Supplier %d", i%20),
			InternalNotes: fmt.Sprintf("Internal notes for product %d", i),
			AdminOnly:     r.Float64() > 0.9,
		})
	}
	return out
}
