package main

import (
	"context"
	"errors"
	"fmt"
	"log"
)

func (s *Shop) MyOrders(ctx context.Context, actor Actor) ([]OrderSummary, error) {
	return s.store.ListCustomerOrders(ctx, actor.CustomerID)
}

// MyOrder returns the caller's order with its items and shipment. Orders of
// other customers look like missing ones. A failing shipment lookup is
// logged and reported as no shipment.
func (s *Shop) MyOrder(ctx context.Context, actor Actor, orderID int64) (*OrderDetail, error) {
	if orderID <= 0 {
		return nil, ErrInvalidID
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	if order.CustomerID != actor.CustomerID {
		return nil, fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}

	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d items: %w", orderID, err)
	}

	shipment, err := s.store.GetShipment(ctx, orderID)
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			log.Printf("shipment for order %d: %v", orderID, err)
		}
		shipment = nil
	}

	return &OrderDetail{Order: order, Items: items, Shipment: shipment}, nil
}

func (s *Shop) CancelOrder(ctx context.Context, actor Actor, orderID int64) error {
	if orderID <= 0 {
		return ErrInvalidID
	}
	order, err := s.store.GetOrder(ctx, orderID)
	if err != nil {
		return fmt.Errorf("order %d: %w", orderID, err)
	}
	if order.CustomerID != actor.CustomerID {
		return fmt.Errorf("order %d: %w", orderID, ErrNotFound)
	}
	ok, err := s.store.CancelOrder(ctx, actor.CustomerID, orderID)
	if err != nil {
		return fmt.Errorf("cancel order %d: %w", orderID, err)
	}
	if !ok {
		return ErrOrderNotCancellable
	}
	return nil
}

func (s *Shop) AllOrders(ctx context.Context) ([]OrderSummary, error) {
	return s.store.ListOrders(ctx)
}

// AdminOrder is the admin view of one order. Unlike the customer view a
// failing shipment lookup fails the request.
func (s *Shop) AdminOrder(ctx context.Context, orderID int64) (*OrderDetail, error) {
	if orderID <= 0 {
		return nil, ErrInvalidID
	}
	order, err := s.store.GetAdminOrder(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d: %w", orderID, err)
	}
	items, err := s.store.GetOrderItems(ctx, orderID)
	if err != nil {
		return nil, fmt.Errorf("order %d items: %w", orderID, err)
	}
	shipment, err := s.store.GetShipment(ctx, orderID)
	if errors.Is(err, ErrNotFound) {
		shipment, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("order %d shipment: %w", orderID, err)
	}
	return &OrderDetail{Order: order, Items: items, Shipment: shipment}, nil
}
