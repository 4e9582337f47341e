package cart

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

const MaxQuantity = 100

var (
	ErrItemNotFound        = errors.New("item not found in cart")
	ErrMaxQuantityExceeded = errors.New("maximum quantity limit (100) exceeded")
	ErrInvalidProduct      = errors.New("product not found")
	ErrValidation          = errors.New("validation failed")
)

// PriceLookup resolves the current unit price of a product.
type PriceLookup interface {
	Price(productID string) (decimal.Decimal, bool)
}

type Item struct {
	ProductID string     `json:"productId"`
	Quantity  int        `json:"quantity"`
	AddedAt   time.Time  `json:"addedAt"`
	UpdatedAt *time.Time `json:"updatedAt,omitempty"`
}

// Cart holds one user's lines. total is a memo of ComputeTotal that is only
// trusted while stale is false.
type Cart struct {
	items []Item
	total decimal.Decimal
	stale bool
}

type Snapshot struct {
	Items     []Item          `json:"items"`
	Total     decimal.Decimal `json:"total"`
	ItemCount int             `json:"-"`
}

// ComputeTotal sums price × quantity; products without a price count as 0.
func ComputeTotal(items []Item, prices PriceLookup) decimal.Decimal {
	total := decimal.Zero
	for _, it := range items {
		price, ok := prices.Price(it.ProductID)
		if !ok {
			continue
		}
		total = total.Add(price.Mul(decimal.NewFromInt(int64(it.Quantity))))
	}
	return total
}

func (c *Cart) find(productID string) int {
	return slices.IndexFunc(c.items, func(it Item) bool { return it.ProductID == productID })
}

// Upsert adds qty to an existing line or appends a new one. A line may not
// exceed MaxQuantity; on rejection the cart is unchanged.
func (c *Cart) Upsert(productID string, qty int, now time.Time) (Item, error) {
	if qty < 1 || qty > MaxQuantity {
		return Item{}, fmt.Errorf("%w: quantity must be between 1 and %d", ErrValidation, MaxQuantity)
	}

	if i := c.find(productID); i >= 0 {
		next := c.items[i].Quantity + qty
		if next > MaxQuantity {
			return Item{}, ErrMaxQuantityExceeded
		}
		c.items[i].Quantity = next
		c.stale = true
		return c.items[i], nil
	}

	it := Item{ProductID: productID, Quantity: qty, AddedAt: now}
	c.items = append(c.items, it)
	c.stale = true
	return it, nil
}

// Set overwrites the quantity of an existing line; zero removes it.
func (c *Cart) Set(productID string, qty int, now time.Time) error {
	if qty < 0 || qty > MaxQuantity {
		return fmt.Errorf("%w: quantity must be between 0 and %d", ErrValidation, MaxQuantity)
	}

	i := c.find(productID)
	if i < 0 {
		return ErrItemNotFound
	}

	if qty == 0 {
		c.items = slices.Delete(c.items, i, i+1)
	} else {
		c.items[i].Quantity = qty
		c.items[i].UpdatedAt = &now
	}
	c.stale = true
	return nil
}

func (c *Cart) Remove(productID string) (Item, error) {
	i := c.find(productID)
	if i < 0 {
		return Item{}, ErrItemNotFound
	}
	removed := c.items[i]
	c.items = slices.Delete(c.items, i, i+1)
	c.stale = true
	return removed, nil
}

func (c *Cart) Stale() bool { return c.stale }

// Total returns the memoized total, recomputing it first if a mutation
// happened since the last read.
func (c *Cart) Total(prices PriceLookup) decimal.Decimal {
	if c.stale {
		c.total = ComputeTotal(c.items, prices)
		c.stale = false
	}
	return c.total
}

func (c *Cart) Snapshot(prices PriceLookup) Snapshot {
	items := slices.Clone(c.items)
	if items == nil {
		items = []Item{}
	}
	return Snapshot{
		Items:     items,
		Total:     c.Total(prices),
		ItemCount: len(items),
	}
}
