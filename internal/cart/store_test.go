package cart

import (
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestService() *Service {
	prices := priceMap{"1": decimal.NewFromInt(100), "2": decimal.RequireFromString("19.99")}
	return NewService(prices, WithClock(func() time.Time { return now }))
}

func TestService_AddItem(t *testing.T) {
	s := newTestService()

	snap, added, err := s.AddItem("u1", "1", 3)
	require.NoError(t, err)
	assert.Equal(t, 3, added.Quantity)
	assert.Equal(t, now, added.AddedAt)
	assert.Equal(t, "300", snap.Total.String())

	snap, added, err = s.AddItem("u1", "1", 5)
	require.NoError(t, err)
	assert.Equal(t, 8, added.Quantity)
	assert.Equal(t, "800", snap.Total.String())
	assert.Equal(t, 1, snap.ItemCount)

	_, _, err = s.AddItem("u1", "1", 95)
	assert.ErrorIs(t, err, ErrMaxQuantityExceeded)

	snap, err = s.Get("u1")
	require.NoError(t, err)
	assert.Equal(t, 8, snap.Items[0].Quantity)
}

func TestService_AddItemUnknownProduct(t *testing.T) {
	s := newTestService()

	_, _, err := s.AddItem("u1", "404", 1)
	assert.ErrorIs(t, err, ErrInvalidProduct)

	_, _, err = s.AddItem("u1", "<script>", 1)
	assert.ErrorIs(t, err, ErrValidation)

	snap, err := s.Get("u1")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)
	assert.True(t, snap.Total.IsZero())
}

func TestService_SetAndRemove(t *testing.T) {
	s := newTestService()
	_, _, err := s.AddItem("u1", "1", 1)
	require.NoError(t, err)
	_, _, err = s.AddItem("u1", "2", 2)
	require.NoError(t, err)

	snap, err := s.SetItem("u1", "2", 0)
	require.NoError(t, err)
	assert.Len(t, snap.Items, 1)
	assert.Equal(t, "100", snap.Total.String())

	_, err = s.SetItem("u1", "2", 1)
	assert.ErrorIs(t, err, ErrItemNotFound)

	snap, removed, err := s.RemoveItem("u1", "1")
	require.NoError(t, err)
	assert.Equal(t, "1", removed.ProductID)
	assert.Empty(t, snap.Items)

	_, _, err = s.RemoveItem("u1", "1")
	assert.ErrorIs(t, err, ErrItemNotFound)
}

func TestService_CartsArePerUser(t *testing.T) {
	s := newTestService()
	_, _, err := s.AddItem("alice", "1", 2)
	require.NoError(t, err)

	snap, err := s.Get("bob")
	require.NoError(t, err)
	assert.Empty(t, snap.Items)

	_, err = s.Get("")
	assert.ErrorIs(t, err, ErrValidation)
}

func TestService_ConcurrentAddsForOneUser(t *testing.T) {
	s := newTestService()

	var wg sync.WaitGroup
	for i := 0; i < MaxQuantity; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := s.AddItem("u1", "2", 1)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	snap, err := s.Get("u1")
	require.NoError(t, err)
	require.Len(t, snap.Items, 1)
	assert.Equal(t, MaxQuantity, snap.Items[0].Quantity)
	assert.Equal(t, "1999", snap.Total.String())

	_, _, err = s.AddItem("u1", "2", 1)
	assert.ErrorIs(t, err, ErrMaxQuantityExceeded)
}
