package main

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

func (s *Shop) Products(ctx context.Context, f ProductFilter) ([]Product, error) {
	return s.store.ListActiveProducts(ctx, f)
}

// Product returns a storefront product; non-active products are hidden.
func (s *Shop) Product(ctx context.Context, id int64) (*Product, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	p, err := s.store.GetProduct(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("product %d: %w", id, err)
	}
	if p.Status != ProductActive {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return p, nil
}

func (s *Shop) Categories(ctx context.Context) ([]Category, error) {
	return s.store.ListCategories(ctx)
}

func (s *Shop) Producers(ctx context.Context) ([]Producer, error) {
	return s.store.ListProducers(ctx)
}

// ProductInput is the admin create/update payload. An empty slug is
// derived from the name; an empty status means active.
type ProductInput struct {
	CategoryID    *int64          `json:"category_id"`
	ProducerID    *int64          `json:"producer_id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	SKU           string          `json:"sku"`
	Description   string          `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	WeightGrams   *int            `json:"weight_grams"`
	StockQuantity *int            `json:"stock_quantity"`
}

func validProductStatus(status string) bool {
	switch status {
	case ProductActive, ProductInactive, ProductDraft:
		return true
	}
	return false
}

func (in ProductInput) product() (*Product, error) {
	name := strings.TrimSpace(in.Name)
	if in.CategoryID == nil || *in.CategoryID <= 0 || name == "" || !in.Price.IsPositive() {
		return nil, invalidf("category_id, name and a positive price are required")
	}
	if in.ProducerID != nil && *in.ProducerID <= 0 {
		return nil, invalidf("invalid producer_id")
	}
	status := strings.TrimSpace(in.Status)
	if status == "" {
		status = ProductActive
	}
	if !validProductStatus(status) {
		return nil, invalidf("invalid status %q, allowed: %s, %s, %s", status, ProductActive, ProductInactive, ProductDraft)
	}
	slug := productSlug(name)
	if strings.TrimSpace(in.Slug) != "" {
		if slug = slugify(in.Slug); slug == "" {
			return nil, invalidf("invalid slug %q", in.Slug)
		}
	}
	if (in.WeightGrams != nil && *in.WeightGrams < 0) || (in.StockQuantity != nil && *in.StockQuantity < 0) {
		return nil, invalidf("weight_grams and stock_quantity cannot be negative")
	}
	return &Product{
		CategoryID:    in.CategoryID,
		ProducerID:    in.ProducerID,
		Name:          name,
		Slug:          slug,
		SKU:           optional(strings.TrimSpace(in.SKU)),
		Description:   optional(strings.TrimSpace(in.Description)),
		Price:         in.Price.Round(2),
		Status:        status,
		WeightGrams:   in.WeightGrams,
		StockQuantity: in.StockQuantity,
	}, nil
}

func productWriteFailure(err error) error {
	switch {
	case errors.Is(err, ErrSlugTaken):
		return invalidf("a product with that slug already exists")
	case errors.Is(err, ErrUnknownRef):
		return invalidf("%v", ErrUnknownRef)
	}
	return err
}

func (s *Shop) CreateProduct(ctx context.Context, in ProductInput) (*Product, error) {
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	if err := s.store.CreateProduct(ctx, p); err != nil {
		return nil, productWriteFailure(fmt.Errorf("create product: %w", err))
	}
	return p, nil
}

// UpdateProduct replaces every field of the product. Carts keep the unit
// price they snapshotted until the line is added again.
func (s *Shop) UpdateProduct(ctx context.Context, id int64, in ProductInput) (*Product, error) {
	if id <= 0 {
		return nil, ErrInvalidID
	}
	p, err := in.product()
	if err != nil {
		return nil, err
	}
	p.ID = id
	ok, err := s.store.UpdateProduct(ctx, p)
	if err != nil {
		return nil, productWriteFailure(fmt.Errorf("update product %d: %w", id, err))
	}
	if !ok {
		return nil, fmt.Errorf("product %d: %w", id, ErrNotFound)
	}
	return s.store.GetProduct(ctx, id)
}

// DeleteProduct removes a product that was never ordered. A product that
// order lines still point at is set inactive instead; the bool reports that.
func (s *Shop) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	if id <= 0 {
		return false, ErrInvalidID
	}
	archived := false
	err := s.store.InTx(ctx, func(tx Storage) error {
		p, err := tx.GetProduct(ctx, id)
		if err != nil {
			return fmt.Errorf("product %d: %w", id, err)
		}
		ordered, err := tx.ProductOrdered(ctx, id)
		if err != nil {
			return fmt.Errorf("product %d orders: %w", id, err)
		}
		if ordered {
			p.Status = ProductInactive
			if _, err := tx.UpdateProduct(ctx, p); err != nil {
				return fmt.Errorf("archive product %d: %w", id, err)
			}
			archived = true
			return nil
		}
		if _, err := tx.DeleteProduct(ctx, id); err != nil {
			return fmt.Errorf("delete product %d: %w", id, err)
		}
		return nil
	})
	return archived, err
}
