package catalog

import (
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/shopspring/decimal"

	"MiniShop/internal/auth"
	"MiniShop/pkg/kit"
)

// Catalog owns the product collection and the index derived from it.
// Writers serialize on mu and publish a freshly built index; readers only
// ever load a complete snapshot.
type Catalog struct {
	mu       sync.Mutex
	products []Product
	idx      atomic.Pointer[Index]

	mode     MatchMode
	now      func() time.Time
	metrics  *Metrics
	onChange []func()
}

type Option func(*Catalog)

func WithMatchMode(m MatchMode) Option { return func(c *Catalog) { c.mode = m } }

func WithClock(now func() time.Time) Option { return func(c *Catalog) { c.now = now } }

func WithMetrics(m *Metrics) Option { return func(c *Catalog) { c.metrics = m } }

// NewCatalog takes ownership of a copy of seed. Later entries with an id
// already seen are dropped.
func NewCatalog(seed []Product, opts ...Option) *Catalog {
	c := &Catalog{now: time.Now}
	for _, o := range opts {
		o(c)
	}

	seen := make(map[string]struct{}, len(seed))
	c.products = make([]Product, 0, len(seed))
	for _, p := range seed {
		if _, dup := seen[p.ID]; dup {
			continue
		}
		seen[p.ID] = struct{}{}
		c.products = append(c.products, p.clone())
	}

	c.rebuild(c.products)
	return c
}

// OnChange registers fn to run after every successful mutation.
func (c *Catalog) OnChange(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.onChange = append(c.onChange, fn)
}

// Snapshot returns the index currently being served.
func (c *Catalog) Snapshot() *Index { return c.idx.Load() }

func (c *Catalog) rebuild(products []Product) {
	start := time.Now()
	ix := BuildIndex(products, c.mode)
	c.idx.Store(ix)
	c.metrics.observeRebuild(time.Since(start), ix)
}

func (c *Catalog) List() []Product {
	ix := c.Snapshot()
	out := make([]Product, 0, ix.Len())
	for _, id := range ix.order {
		out = append(out, ix.Products[id].clone())
	}
	return out
}

func (c *Catalog) Get(id string) (Product, error) {
	if !kit.IsValidProductID(id) {
		return Product{}, invalid("invalid product ID format")
	}
	p, ok := c.Snapshot().Products[id]
	if !ok {
		return Product{}, ErrNotFound
	}
	return p.clone(), nil
}

// Price satisfies the cart's price lookup.
func (c *Catalog) Price(id string) (decimal.Decimal, bool) {
	p, ok := c.Snapshot().Products[id]
	if !ok {
		return decimal.Zero, false
	}
	return p.Price, true
}

func (c *Catalog) Query(p Params) (Page, error) {
	page, err := c.Snapshot().Query(p)
	c.metrics.observeQuery(err)
	return page, err
}

func (c *Catalog) Create(by auth.Principal, in NewProduct) (Product, error) {
	if !by.IsAdmin() {
		return Product{}, ErrForbidden
	}
	if err := in.validate(); err != nil {
		return Product{}, err
	}

	p := Product{
		Name:          in.Name,
		Description:   in.Description,
		Price:         in.Price,
		Category:      in.Category,
		Brand:         in.Brand,
		Rating:        decimal.Zero,
		Tags:          slices.Clone(in.Tags),
		CostPrice:     in.Price.Mul(defaultCostRatio),
		Supplier:      DefaultSupplier,
		InternalNotes: "",
	}
	if p.Tags == nil {
		p.Tags = []string{}
	}
	if in.Stock != nil {
		p.Stock = *in.Stock
	}
	if in.CostPrice != nil {
		p.CostPrice = *in.CostPrice
	}
	if in.Supplier != nil && *in.Supplier != "" {
		p.Supplier = *in.Supplier
	}
	if in.InternalNotes != nil {
		p.InternalNotes = *in.InternalNotes
	}
	if in.AdminOnly != nil {
		p.AdminOnly = *in.AdminOnly
	}

	c.mu.Lock()
	p.ID = nextID(c.products)
	p.CreatedAt = c.now().UTC()
	next := append(slices.Clip(c.products), p)
	c.commit(next)
	c.mu.Unlock()

	c.notify()
	return p.clone(), nil
}

func (c *Catalog) Update(by auth.Principal, id string, patch Patch) (Product, error) {
	if !by.IsAdmin() {
		return Product{}, ErrForbidden
	}
	if !kit.IsValidProductID(id) {
		return Product{}, invalid("invalid product ID format")
	}
	if err := patch.validate(); err != nil {
		return Product{}, err
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return Product{}, ErrNotFound
	}
	next := slices.Clone(c.products)
	next[i] = patch.apply(next[i])
	updated := next[i]
	c.commit(next)
	c.mu.Unlock()

	c.notify()
	return updated.clone(), nil
}

func (c *Catalog) Delete(by auth.Principal, id string) error {
	if !by.IsAdmin() {
		return ErrForbidden
	}
	if !kit.IsValidProductID(id) {
		return invalid("invalid product ID format")
	}

	c.mu.Lock()
	i := c.indexOf(id)
	if i < 0 {
		c.mu.Unlock()
		return ErrNotFound
	}
	next := slices.Delete(slices.Clone(c.products), i, i+1)
	c.commit(next)
	c.mu.Unlock()

	c.notify()
	return nil
}

// commit must be called with mu held. The new slice is never shared with a
// previous index, so snapshots stay untouched.
func (c *Catalog) commit(next []Product) {
	c.products = next
	c.rebuild(next)
}

func (c *Catalog) notify() {
	c.mu.Lock()
	hooks := slices.Clone(c.onChange)
	c.mu.Unlock()

	for _, fn := range hooks {
		fn()
	}
}

func (c *Catalog) indexOf(id string) int {
	return slices.IndexFunc(c.products, func(p Product) bool { return p.ID == id })
}

// nextID is one past the highest numeric id; non-numeric ids are ignored.
func nextID(products []Product) string {
	var highest uint64
	for _, p := range products {
		n, err := strconv.ParseUint(p.ID, 10, 64)
		if err != nil {
			continue
		}
		highest = max(highest, n)
	}
	return strconv.FormatUint(highest+1, 10)
}
