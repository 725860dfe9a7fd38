package main

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestShipmentUpdateStatus(t *testing.T) {
	t.Parallel()
	tests := []struct {
		in   ShipmentUpdate
		want string
	}{
		{ShipmentUpdate{}, "pending"},
		{ShipmentUpdate{Status: "shipped"}, "shipped"},
		{ShipmentUpdate{ShipmentStatus: "delivered"}, "delivered"},
		{ShipmentUpdate{Status: "lost", ShipmentStatus: "delivered"}, "lost"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.in.status())
	}
}

func TestUpsertShipment(t *testing.T) {
	t.Parallel()

	t.Run("creates then updates the same row", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		shop, store, events := newTestShop(t)
		_, orderID := placeOrder(t, shop, store, "ana@example.com")

		sh, created, err := shop.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: "shipped", TrackingCode: "TRK1", Carrier: "DHL"})
		require.NoError(t, err)
		assert.True(t, created)
		assert.Equal(t, "shipped", sh.Status)
		require.NotNil(t, sh.TrackingCode)
		assert.Equal(t, "TRK1", *sh.TrackingCode)

		again, created, err := shop.UpsertShipment(ctx, orderID, ShipmentUpdate{ShipmentStatus: "delivered"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, sh.ID, again.ID)
		assert.Equal(t, "delivered", again.Status)
		assert.Nil(t, again.TrackingCode)
		assert.Nil(t, again.Carrier)
		assert.Equal(t, 1, store.count("shipments"))

		assert.Equal(t, []string{TopicOrderPlaced, TopicShipmentUpdated, TopicShipmentUpdated}, events.topics())
	})

	t.Run("any status may follow any other", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		shop, store, _ := newTestShop(t)
		_, orderID := placeOrder(t, shop, store, "ana@example.com")

		for _, st := range []string{"delivered", "pending", "lost", "shipped"} {
			sh, _, err := shop.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: st})
			require.NoError(t, err)
			assert.Equal(t, st, sh.Status)
		}
	})

	t.Run("invalid status changes nothing", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		shop, store, _ := newTestShop(t)
		_, orderID := placeOrder(t, shop, store, "ana@example.com")
		_, _, err := shop.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: "shipped"})
		require.NoError(t, err)

		_, _, err = shop.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: "teleported"})
		require.ErrorIs(t, err, ErrInvalidShipmentStatus)
		assert.Contains(t, err.Error(), "out_for_delivery")

		sh, err := store.GetShipment(ctx, orderID)
		require.NoError(t, err)
		assert.Equal(t, "shipped", sh.Status)
	})

	t.Run("insert that loses to a concurrent create updates instead", func(t *testing.T) {
		t.Parallel()
		ctx := context.Background()
		shop, store, _ := newTestShop(t)
		_, orderID := placeOrder(t, shop, store, "ana@example.com")
		first, _, err := shop.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: "shipped"})
		require.NoError(t, err)

		late := NewShop(&staleShipmentRead{memStore: store}, nil, 4)
		sh, created, err := late.UpsertShipment(ctx, orderID, ShipmentUpdate{Status: "delivered", Carrier: "Estafeta"})
		require.NoError(t, err)
		assert.False(t, created)
		assert.Equal(t, first.ID, sh.ID)
		assert.Equal(t, "delivered", sh.Status)
		assert.Equal(t, 1, store.count("shipments"))
	})

	t.Run("unknown order", func(t *testing.T) {
		t.Parallel()
		shop, store, _ := newTestShop(t)
		_, _, err := shop.UpsertShipment(context.Background(), 999, ShipmentUpdate{Status: "shipped"})
		assert.ErrorIs(t, err, ErrNotFound)
		assert.Equal(t, 0, store.count("shipments"))
	})
}

func TestOrderQueries(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	shop, store, _ := newTestShop(t)
	ana, first := placeOrder(t, shop, store, "ana@example.com")
	_, other := placeOrder(t, shop, store, "bob@example.com")

	mine, err := shop.MyOrders(ctx, ana)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, first, mine[0].ID)
	assert.Equal(t, 1, mine[0].ItemsCount)
	assert.Nil(t, mine[0].ShipmentStatus)

	_, err = shop.MyOrder(ctx, ana, other)
	assert.ErrorIs(t, err, ErrNotFound)

	detail, err := shop.MyOrder(ctx, ana, first)
	require.NoError(t, err)
	assert.Len(t, detail.Items, 1)
	assert.Nil(t, detail.Shipment)

	all, err := shop.AllOrders(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, other, all[0].ID, "newest first")
	assert.Equal(t, "bob@example.com", all[0].CustomerEmail)

	_, _, err = shop.UpsertShipment(ctx, first, ShipmentUpdate{Status: "shipped"})
	require.NoError(t, err)
	admin, err := shop.AdminOrder(ctx, first)
	require.NoError(t, err)
	require.NotNil(t, admin.Shipment)
	assert.Equal(t, "shipped", admin.Shipment.Status)

	store.fail["GetShipment"] = errors.New("shipments unavailable")
	detail, err = shop.MyOrder(ctx, ana, first)
	require.NoError(t, err, "customer view degrades to no shipment")
	assert.Nil(t, detail.Shipment)
	_, err = shop.AdminOrder(ctx, first)
	assert.Error(t, err, "admin view fails")
}

// staleShipmentRead misses the shipment on its first lookup in each
// transaction, as if another request inserted it right after.
type staleShipmentRead struct {
	*memStore
	looked bool
}

func (s *staleShipmentRead) InTx(ctx context.Context, fn func(Storage) error) error {
	return s.memStore.InTx(ctx, func(tx Storage) error {
		return fn(&staleShipmentRead{memStore: tx.(*memStore)})
	})
}

func (s *staleShipmentRead) GetShipment(ctx context.Context, orderID int64) (*Shipment, error) {
	if !s.looked {
		s.looked = true
		return nil, ErrNotFound
	}
	return s.memStore.GetShipment(ctx, orderID)
}
