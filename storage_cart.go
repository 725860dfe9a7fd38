package main

import (
	"context"

	"github.com/shopspring/decimal"
)

func (s *PostgresStore) FindOpenCart(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `select id from carts
	where customer_id = $1 and status = 'open'
	order by id desc
	limit 1`, customerID).Scan(&id)
	return id, notFound(err)
}

func (s *PostgresStore) CreateOpenCart(ctx context.Context, customerID int64) (int64, error) {
	var id int64
	err := s.q.QueryRowContext(ctx, `insert into carts (customer_id, status, created_at)
	values ($1, 'open', now())
	returning id`, customerID).Scan(&id)
	if isUniqueViolation(err) {
		return 0, ErrOpenCartExists
	}
	return id, err
}

func (s *PostgresStore) TouchCart(ctx context.Context, cartID int64) error {
	_, err := s.q.ExecContext(ctx, `update carts set updated_at = now() where id = $1`, cartID)
	return err
}

func (s *PostgresStore) ConvertCart(ctx context.Context, cartID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update carts set status = 'converted', updated_at = now()
	where id = $1 and status = 'open'`, cartID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) GetCartLines(ctx context.Context, cartID int64) ([]CartLine, error) {
	rows, err := s.q.QueryContext(ctx, `select
		ci.id, ci.product_id, ci.quantity, ci.unit_price,
		p.name, p.slug, p.sku, img.url
	from cart_items ci
	join products p on p.id = ci.product_id
	left join product_images img on img.product_id = p.id and img.is_primary
	where ci.cart_id = $1
	order by ci.id asc`, cartID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	lines := []CartLine{}
	for rows.Next() {
		var l CartLine
		if err := rows.Scan(&l.ID, &l.ProductID, &l.Quantity, &l.UnitPrice,
			&l.ProductName, &l.ProductSlug, &l.SKU, &l.ImageURL); err != nil {
			return nil, err
		}
		l.LineTotal = l.UnitPrice.Mul(decimal.NewFromInt(int64(l.Quantity)))
		lines = append(lines, l)
	}
	return lines, rows.Err()
}

func (s *PostgresStore) UpsertCartItem(ctx context.Context, cartID, productID int64, qty int, unitPrice decimal.Decimal) error {
	_, err := s.q.ExecContext(ctx, `insert into cart_items (cart_id, product_id, quantity, unit_price)
	values ($1, $2, $3, $4)
	on conflict (cart_id, product_id) do update set
		quantity = least(cart_items.quantity + excluded.quantity, $5),
		unit_price = excluded.unit_price`, cartID, productID, qty, unitPrice, maxItemQuantity)
	return err
}

func (s *PostgresStore) UpdateCartItemQuantity(ctx context.Context, customerID, itemID int64, qty int) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update cart_items ci
	set quantity = $1
	from carts c
	where c.id = ci.cart_id
	  and ci.id = $2
	  and c.customer_id = $3
	  and c.status = 'open'`, qty, itemID, customerID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) DeleteCartItem(ctx context.Context, customerID, itemID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `delete from cart_items ci
	using carts c
	where c.id = ci.cart_id
	  and ci.id = $1
	  and c.customer_id = $2
	  and c.status = 'open'`, itemID, customerID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) ClearCartItems(ctx context.Context, cartID int64) error {
	_, err := s.q.ExecContext(ctx, `delete from cart_items where cart_id = $1`, cartID)
	return err
}
