package main

import (
	"context"
	"errors"
	"fmt"
	"log"

	"github.com/shopspring/decimal"
)

// Shop holds the storefront use cases. Every method takes the acting
// customer explicitly; nothing is read from ambient session state.
type Shop struct {
	store      Storage
	events     EventPublisher
	bcryptCost int
}

func NewShop(store Storage, events EventPublisher, bcryptCost int) *Shop {
	if events == nil {
		events = nopPublisher{}
	}
	return &Shop{
		store:      store,
		events:     events,
		bcryptCost: bcryptCost,
	}
}

// maxItemQuantity caps the units of one product in a cart.
const maxItemQuantity = 9999

func errQuantityTooLarge() error {
	return invalidf("invalid quantity, at most %d units per product", maxItemQuantity)
}

// findOrCreateOpenCart returns the customer's most recent open cart,
// creating one when there is none. A concurrent creator that wins the
// unique index race is resolved by reading its cart back.
func findOrCreateOpenCart(ctx context.Context, store Storage, customerID int64) (int64, error) {
	id, err := store.FindOpenCart(ctx, customerID)
	if err == nil {
		return id, nil
	}
	if !errors.Is(err, ErrNotFound) {
		return 0, err
	}
	id, err = store.CreateOpenCart(ctx, customerID)
	if errors.Is(err, ErrOpenCartExists) {
		return store.FindOpenCart(ctx, customerID)
	}
	return id, err
}

func getCartSummary(ctx context.Context, store Storage, cartID int64) (*CartSummary, error) {
	lines, err := store.GetCartLines(ctx, cartID)
	if err != nil {
		return nil, err
	}
	return summarize(cartID, lines), nil
}

// summarize totals the cart lines. Shipping and tax are flat zero.
func summarize(cartID int64, lines []CartLine) *CartSummary {
	subtotal := decimal.Zero
	count := 0
	for i := range lines {
		lines[i].LineTotal = lines[i].UnitPrice.Mul(decimal.NewFromInt(int64(lines[i].Quantity)))
		subtotal = subtotal.Add(lines[i].LineTotal)
		count += lines[i].Quantity
	}
	shipping := decimal.Zero
	tax := decimal.Zero
	return &CartSummary{
		CartID:       cartID,
		ItemsCount:   count,
		Subtotal:     subtotal,
		ShippingCost: shipping,
		TaxTotal:     tax,
		GrandTotal:   subtotal.Add(shipping).Add(tax),
		Items:        lines,
	}
}

func (s *Shop) Cart(ctx context.Context, actor Actor) (*CartSummary, error) {
	cartID, err := findOrCreateOpenCart(ctx, s.store, actor.CustomerID)
	if err != nil {
		return nil, fmt.Errorf("open cart: %w", err)
	}
	return getCartSummary(ctx, s.store, cartID)
}

// AddToCart merges quantity into the open cart. Re-adding a product
// accumulates quantity and re-snapshots unit_price to the current price.
func (s *Shop) AddToCart(ctx context.Context, actor Actor, productID int64, qty int) error {
	if productID <= 0 {
		return ErrInvalidProductID
	}
	if qty <= 0 {
		qty = 1
	}
	if qty > maxItemQuantity {
		return errQuantityTooLarge()
	}

	cartID, err := findOrCreateOpenCart(ctx, s.store, actor.CustomerID)
	if err != nil {
		return fmt.Errorf("open cart: %w", err)
	}

	product, err := s.store.GetProduct(ctx, productID)
	if errors.Is(err, ErrNotFound) {
		return ErrProductUnavailable
	}
	if err != nil {
		return fmt.Errorf("load product %d: %w", productID, err)
	}
	if product.Status != ProductActive {
		return ErrProductUnavailable
	}

	lines, err := s.store.GetCartLines(ctx, cartID)
	if err != nil {
		return fmt.Errorf("cart %d lines: %w", cartID, err)
	}
	for _, l := range lines {
		if l.ProductID == productID && l.Quantity+qty > maxItemQuantity {
			return errQuantityTooLarge()
		}
	}

	if err := s.store.UpsertCartItem(ctx, cartID, productID, qty, product.Price); err != nil {
		return fmt.Errorf("add to cart %d: %w", cartID, err)
	}
	if err := s.store.TouchCart(ctx, cartID); err != nil {
		log.Printf("touch cart %d: %v", cartID, err)
	}
	return nil
}

func (s *Shop) UpdateCartItem(ctx context.Context, actor Actor, itemID int64, qty int) error {
	if itemID <= 0 {
		return ErrInvalidID
	}
	if qty < 1 {
		qty = 1
	}
	if qty > maxItemQuantity {
		return errQuantityTooLarge()
	}
	ok, err := s.store.UpdateCartItemQuantity(ctx, actor.CustomerID, itemID, qty)
	if err != nil {
		return fmt.Errorf("update cart item %d: %w", itemID, err)
	}
	if !ok {
		return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	return nil
}

func (s *Shop) RemoveCartItem(ctx context.Context, actor Actor, itemID int64) error {
	if itemID <= 0 {
		return ErrInvalidID
	}
	ok, err := s.store.DeleteCartItem(ctx, actor.CustomerID, itemID)
	if err != nil {
		return fmt.Errorf("remove cart item %d: %w", itemID, err)
	}
	if !ok {
		return fmt.Errorf("cart item %d: %w", itemID, ErrNotFound)
	}
	return nil
}
