package catalog

import (
	"errors"
	"fmt"
	"slices"
	"time"

	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("product not found")
	ErrValidation     = errors.New("validation failed")
	ErrForbidden      = errors.New("admin role required")
	ErrPageOutOfRange = errors.New("page number exceeds available pages")
)

const DefaultSupplier = "Unknown"

var defaultCostRatio = decimal.RequireFromString("0.7")

// Product is the stored record. The restricted fields are never serialized;
// handlers render View.
type Product struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Stock       int             `json:"stock"`
	Rating      decimal.Decimal `json:"rating"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`

	CostPrice     decimal.Decimal `json:"-"`
	Supplier      string          `json:"-"`
	InternalNotes string          `json:"-"`
	AdminOnly     bool            `json:"-"`
}

// View is the public projection of a Product.
type View struct {
	ID          string          `json:"id"`
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Category    string          `json:"category"`
	Brand       string          `json:"brand"`
	Stock       int             `json:"stock"`
	Rating      decimal.Decimal `json:"rating"`
	Tags        []string        `json:"tags"`
	CreatedAt   time.Time       `json:"createdAt"`
}

func (p Product) View() View {
	tags := slices.Clone(p.Tags)
	if tags == nil {
		tags = []string{}
	}
	return View{
		ID:          p.ID,
		Name:        p.Name,
		Description: p.Description,
		Price:       p.Price,
		Category:    p.Category,
		Brand:       p.Brand,
		Stock:       p.Stock,
		Rating:      p.Rating,
		Tags:        tags,
		CreatedAt:   p.CreatedAt,
	}
}

func (p Product) clone() Product {
	p.Tags = slices.Clone(p.Tags)
	return p
}

// NewProduct carries the fields accepted on create. Nil pointers take the
// store defaults.
type NewProduct struct {
	Name          string
	Description   string
	Price         decimal.Decimal
	Category      string
	Brand         string
	Stock         *int
	Tags          []string
	CostPrice     *decimal.Decimal
	Supplier      *string
	InternalNotes *string
	AdminOnly     *bool
}

// Patch is the update allow-list. Anything not representable here cannot be
// changed through Update; id, createdAt and rating in particular.
type Patch struct {
	Name          *string
	Description   *string
	Price         *decimal.Decimal
	Category      *string
	Brand         *string
	Stock         *int
	Tags          *[]string
	CostPrice     *decimal.Decimal
	Supplier      *string
	InternalNotes *string
	AdminOnly     *bool
}

func (n NewProduct) validate() error {
	switch {
	case n.Name == "":
		return invalid("name is required")
	case !n.Price.IsPositive():
		return invalid("price must be positive")
	case n.Stock != nil && *n.Stock < 0:
		return invalid("stock must not be negative")
	case n.CostPrice != nil && n.CostPrice.IsNegative():
		return invalid("costPrice must not be negative")
	}
	return nil
}

func (pt Patch) validate() error {
	switch {
	case pt.Name != nil && *pt.Name == "":
		return invalid("name must not be empty")
	case pt.Price != nil && !pt.Price.IsPositive():
		return invalid("price must be positive")
	case pt.Stock != nil && *pt.Stock < 0:
		return invalid("stock must not be negative")
	case pt.CostPrice != nil && pt.CostPrice.IsNegative():
		return invalid("costPrice must not be negative")
	}
	return nil
}

func (pt Patch) apply(p Product) Product {
	if pt.Name != nil {
		p.Name = *pt.Name
	}
	if pt.Description != nil {
		p.Description = *pt.Description
	}
	if pt.Price != nil {
		p.Price = *pt.Price
	}
	if pt.Category != nil {
		p.Category = *pt.Category
	}
	if pt.Brand != nil {
		p.Brand = *pt.Brand
	}
	if pt.Stock != nil {
		p.Stock = *pt.Stock
	}
	if pt.Tags != nil {
		p.Tags = slices.Clone(*pt.Tags)
	}
	if pt.CostPrice != nil {
		p.CostPrice = *pt.CostPrice
	}
	if pt.Supplier != nil {
		p.Supplier = *pt.Supplier
	}
	if pt.InternalNotes != nil {
		p.InternalNotes = *pt.InternalNotes
	}
	if pt.AdminOnly != nil {
		p.AdminOnly = *pt.AdminOnly
	}
	return p
}

func invalid(msg string) error {
	return fmt.Errorf("%w: %s", ErrValidation, msg)
}
