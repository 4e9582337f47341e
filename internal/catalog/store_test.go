package catalog

import (
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ptr[T any](v T) *T { return &v }

func TestCatalog_CreateAssignsNextNumericID(t *testing.T) {
	c := NewCatalog([]Product{
		product("3", "Lamp", "", "Home", 1),
		product("abc", "Odd", "", "Home", 1),
		product("10", "Chair", "", "Home", 1),
	}, WithClock(func() time.Time { return t0 }))

	p, err := c.Create(admin, NewProduct{Name: "Desk", Price: decimal.NewFromInt(50)})
	require.NoError(t, err)
	assert.Equal(t, "11", p.ID)
	assert.Equal(t, t0, p.CreatedAt)
}

func TestCatalog_CreateDefaults(t *testing.T) {
	c := NewCatalog(nil)

	p, err := c.Create(admin, NewProduct{Name: "Desk", Price: decimal.RequireFromString("100")})
	require.NoError(t, err)

	assert.Equal(t, "1", p.ID)
	assert.True(t, p.CostPrice.Equal(decimal.NewFromInt(70)), "cost price %s", p.CostPrice)
	assert.Equal(t, DefaultSupplier, p.Supplier)
	assert.True(t, p.Rating.IsZero())
	assert.Equal(t, 0, p.Stock)
	assert.Equal(t, []string{}, p.Tags)
	assert.False(t, p.AdminOnly)
}

func TestCatalog_CreateIsIndexed(t *testing.T) {
	c := NewCatalog(nil)

	p, err := c.Create(admin, NewProduct{Name: "Walnut Desk", Description: "solid wood", Price: decimal.NewFromInt(5), Category: "Home"})
	require.NoError(t, err)

	ix := c.Snapshot()
	assert.True(t, ix.Inverted["walnut"].Has(p.ID))
	assert.True(t, ix.Category["Home"].Has(p.ID))
}

func TestCatalog_MutationsRequireAdmin(t *testing.T) {
	c := NewCatalog([]Product{product("1", "Lamp", "", "Home", 1)})

	_, err := c.Create(shopper, NewProduct{Name: "Desk", Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = c.Update(shopper, "1", Patch{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrForbidden)

	assert.ErrorIs(t, c.Delete(shopper, "1"), ErrForbidden)
	assert.Equal(t, 1, c.Snapshot().Len())
}

func TestCatalog_CreateValidation(t *testing.T) {
	c := NewCatalog(nil)

	_, err := c.Create(admin, NewProduct{Price: decimal.NewFromInt(1)})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.Create(admin, NewProduct{Name: "Free", Price: decimal.Zero})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = c.Create(admin, NewProduct{Name: "Desk", Price: decimal.NewFromInt(1), Stock: ptr(-1)})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_UpdateAllowList(t *testing.T) {
	orig := product("1", "Old Lamp", "dim", "Home", 1)
	orig.Rating = decimal.RequireFromString("4.2")
	c := NewCatalog([]Product{orig})

	got, err := c.Update(admin, "1", Patch{
		Name:     ptr("Bright Lamp"),
		Price:    ptr(decimal.NewFromInt(42)),
		Supplier: ptr("Acme"),
	})
	require.NoError(t, err)

	assert.Equal(t, "1", got.ID)
	assert.Equal(t, "Bright Lamp", got.Name)
	assert.Equal(t, "dim", got.Description)
	assert.Equal(t, "Acme", got.Supplier)
	assert.Equal(t, t0, got.CreatedAt)
	assert.True(t, got.Rating.Equal(orig.Rating))

	ix := c.Snapshot()
	assert.True(t, ix.Inverted["bright"].Has("1"))
	assert.NotContains(t, ix.Inverted, "old")
}

func TestCatalog_UpdateAndDeleteNotFound(t *testing.T) {
	c := NewCatalog([]Product{product("1", "Lamp", "", "Home", 1)})

	_, err := c.Update(admin, "2", Patch{Name: ptr("x")})
	assert.ErrorIs(t, err, ErrNotFound)
	assert.ErrorIs(t, c.Delete(admin, "2"), ErrNotFound)

	_, err = c.Get("bad id!")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCatalog_DeleteRemovesFromIndex(t *testing.T) {
	c := NewCatalog([]Product{
		product("1", "Lamp", "", "Home", 1),
		product("2", "Chair", "", "Home", 1),
	})

	require.NoError(t, c.Delete(admin, "1"))

	_, err := c.Get("1")
	assert.ErrorIs(t, err, ErrNotFound)
	ix := c.Snapshot()
	assert.NotContains(t, ix.Inverted, "lamp")
	assert.ElementsMatch(t, []string{"2"}, keys(ix.ByCategory("Home")))

	_, ok := c.Price("1")
	assert.False(t, ok)
}

func TestCatalog_OldSnapshotUnaffectedByMutation(t *testing.T) {
	c := NewCatalog([]Product{product("1", "Lamp", "", "Home", 1)})
	before := c.Snapshot()

	_, err := c.Update(admin, "1", Patch{Name: ptr("Chair")})
	require.NoError(t, err)

	assert.Equal(t, "Lamp", before.Products["1"].Name)
	assert.Equal(t, "Chair", c.Snapshot().Products["1"].Name)
}

func TestCatalog_OnChangeRunsAfterMutation(t *testing.T) {
	c := NewCatalog(nil)
	var calls int
	c.OnChange(func() {
		// the hook must be able to read the catalog without deadlocking
		_ = c.List()
		calls++
	})

	p, err := c.Create(admin, NewProduct{Name: "Desk", Price: decimal.NewFromInt(1)})
	require.NoError(t, err)
	_, err = c.Update(admin, p.ID, Patch{Stock: ptr(3)})
	require.NoError(t, err)
	require.NoError(t, c.Delete(admin, p.ID))

	_, err = c.Create(shopper, NewProduct{Name: "Desk", Price: decimal.NewFromInt(1)})
	require.Error(t, err)

	assert.Equal(t, 3, calls)
}

func TestCatalog_ConcurrentReadersSeeConsistentSnapshots(t *testing.T) {
	c := NewCatalog(GenerateSeed(50, 1, t0))

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 25; i++ {
				_, err := c.Create(admin, NewProduct{Name: fmt.Sprintf("Extra %d", i), Price: decimal.NewFromInt(1)})
				assert.NoError(t, err)
			}
		}()
	}
	for r := 0; r < 4; r++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				ix := c.Snapshot()
				for _, set := range ix.Inverted {
					for id := range set {
						_, ok := ix.Products[id]
						assert.True(t, ok)
					}
				}
				_, err := c.Query(Params{Term: "extra", Limit: MaxLimit})
				assert.NoError(t, err)
			}
		}()
	}
	wg.Wait()

	ix := c.Snapshot()
	assert.Equal(t, 150, ix.Len())
	assert.Len(t, ix.Search("extra"), 100)

	seen := make(map[string]bool)
	for _, p := range c.List() {
		assert.False(t, seen[p.ID], "duplicate id %s", p.ID)
		seen[p.ID] = true
	}
}
