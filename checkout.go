package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

type CheckoutResult struct {
	OrderID    int64           `json:"order_id"`
	GrandTotal decimal.Decimal `json:"grand_total"`
}

// Checkout turns the caller's open cart into a pending order.
//
// The cart is resolved first (creating an empty one if needed, so an empty
// cart is rejected the same way a missing one is). Everything after that
// runs in a single transaction: reading the lines, picking the address,
// writing the order header, its items and the pending payment, converting
// the cart and clearing its items. Any failure leaves no order behind.
func (s *Shop) Checkout(ctx context.Context, actor Actor) (*CheckoutResult, error) {
	cartID, err := findOrCreateOpenCart(ctx, s.store, actor.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}

	var order Order
	err = s.store.InTx(ctx, func(tx Storage) error {
		summary, err := getCartSummary(ctx, tx, cartID)
		if err != nil {
			return fmt.Errorf("cart summary: %w", err)
		}
		if len(summary.Items) == 0 {
			return ErrCartEmpty
		}

		addrs, err := tx.ListAddresses(ctx, actor.CustomerID)
		if err != nil {
			return fmt.Errorf("resolve address: %w", err)
		}
		if len(addrs) == 0 {
			return ErrMissingAddress
		}
		// first by (is_default desc, id asc), used for shipping and billing
		addrID := addrs[0].ID

		order = Order{
			CustomerID:     actor.CustomerID,
			ShippingAddrID: addrID,
			BillingAddrID:  addrID,
			Status:         OrderPending,
			Subtotal:       summary.Subtotal,
			ShippingCost:   summary.ShippingCost,
			TaxTotal:       summary.TaxTotal,
			GrandTotal:     summary.Subtotal.Add(summary.ShippingCost).Add(summary.TaxTotal),
		}
		if err := tx.CreateOrder(ctx, &order); err != nil {
			return fmt.Errorf("create order: %w", err)
		}

		items := make([]OrderItem, 0, len(summary.Items))
		for _, line := range summary.Items {
			items = append(items, OrderItem{
				OrderID:   order.ID,
				ProductID: line.ProductID,
				Quantity:  line.Quantity,
				UnitPrice: line.UnitPrice,
				Total:     line.LineTotal,
			})
		}
		if err := tx.CreateOrderItems(ctx, order.ID, items); err != nil {
			return fmt.Errorf("create order items: %w", err)
		}

		payment := Payment{
			OrderID: order.ID,
			Method:  PaymentOther,
			Amount:  order.GrandTotal,
			Status:  PaymentPending,
		}
		if err := tx.CreatePayment(ctx, &payment); err != nil {
			return fmt.Errorf("create payment: %w", err)
		}

		converted, err := tx.ConvertCart(ctx, cartID)
		if err != nil {
			return fmt.Errorf("convert cart %d: %w", cartID, err)
		}
		if !converted {
			return ErrCartNotOpen
		}
		if err := tx.ClearCartItems(ctx, cartID); err != nil {
			return fmt.Errorf("clear cart %d: %w", cartID, err)
		}
		return nil
	})
	if err != nil {
		if !isClientError(err) {
			log.Printf("checkout for customer %d rolled back: %v", actor.CustomerID, err)
		}
		return nil, err
	}

	s.publish(ctx, TopicOrderPlaced, order.ID, OrderPlacedEvent{
		OrderID:    order.ID,
		CustomerID: order.CustomerID,
		GrandTotal: order.GrandTotal,
	})

	return &CheckoutResult{OrderID: order.ID, GrandTotal: order.GrandTotal}, nil
}

func isClientError(err error) bool {
	var verr *ValidationError
	switch {
	case errors.As(err, &verr),
		errors.Is(err, ErrCartEmpty),
		errors.Is(err, ErrMissingAddress),
		errors.Is(err, ErrCartNotOpen):
		return true
	}
	return false
}
