package cart

import (
	"fmt"
	"sync"
	"time"

	"MiniShop/pkg/kit"
)

// Service keeps one cart per user. Each user's cart has its own lock, so
// requests for different users never contend.
type Service struct {
	prices  PriceLookup
	now     func() time.Time
	metrics *Metrics

	mu    sync.Mutex
	carts map[string]*entry
}

type entry struct {
	mu   sync.Mutex
	cart Cart
}

type Option func(*Service)

func WithClock(now func() time.Time) Option { return func(s *Service) { s.now = now } }

func WithMetrics(m *Metrics) Option { return func(s *Service) { s.metrics = m } }

func NewService(prices PriceLookup, opts ...Option) *Service {
	s := &Service{
		prices: prices,
		now:    time.Now,
		carts:  make(map[string]*entry),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

func (s *Service) entry(userID string) *entry {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.carts[userID]
	if !ok {
		e = &entry{}
		s.carts[userID] = e
	}
	return e
}

// with runs fn under the user's cart lock and returns the resulting snapshot.
func (s *Service) with(op, userID string, fn func(c *Cart) error) (Snapshot, error) {
	if userID == "" {
		return Snapshot{}, fmt.Errorf("%w: user id is required", ErrValidation)
	}

	e := s.entry(userID)
	e.mu.Lock()
	defer e.mu.Unlock()

	if err := fn(&e.cart); err != nil {
		s.metrics.observe(op, err)
		return Snapshot{}, err
	}
	s.metrics.observe(op, nil)
	return e.cart.Snapshot(s.prices), nil
}

func (s *Service) Get(userID string) (Snapshot, error) {
	return s.with("get", userID, func(*Cart) error { return nil })
}

func (s *Service) AddItem(userID, productID string, qty int) (Snapshot, Item, error) {
	var added Item
	snap, err := s.with("add", userID, func(c *Cart) error {
		if err := checkProductID(productID); err != nil {
			return err
		}
		if _, ok := s.prices.Price(productID); !ok {
			return ErrInvalidProduct
		}
		it, err := c.Upsert(productID, qty, s.now().UTC())
		added = it
		return err
	})
	return snap, added, err
}

func (s *Service) SetItem(userID, productID string, qty int) (Snapshot, error) {
	return s.with("set", userID, func(c *Cart) error {
		if err := checkProductID(productID); err != nil {
			return err
		}
		return c.Set(productID, qty, s.now().UTC())
	})
}

func (s *Service) RemoveItem(userID, productID string) (Snapshot, Item, error) {
	var removed Item
	snap, err := s.with("remove", userID, func(c *Cart) error {
		if err := checkProductID(productID); err != nil {
			return err
		}
		it, err := c.Remove(productID)
		removed = it
		return err
	})
	return snap, removed, err
}

func checkProductID(id string) error {
	if !kit.IsValidProductID(id) {
		return fmt.Errorf("%w: invalid product ID format", ErrValidation)
	}
	return nil
}
