package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
)

func (s *PostgresStore) CreateOrder(ctx context.Context, o *Order) error {
	query := `insert into orders
		(customer_id, shipping_addr_id, billing_addr_id, status,
		 subtotal, shipping_cost, tax_total, grand_total, created_at)
	values ($1, $2, $3, $4, $5, $6, $7, $8, now())
	returning id, created_at`
	return s.q.QueryRowContext(ctx, query, o.CustomerID, o.ShippingAddrID, o.BillingAddrID, o.Status,
		o.Subtotal, o.ShippingCost, o.TaxTotal, o.GrandTotal).Scan(&o.ID, &o.CreatedAt)
}

func (s *PostgresStore) CreateOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	if len(items) == 0 {
		return nil
	}
	placeholders := make([]string, 0, len(items))
	args := make([]any, 0, len(items)*5)
	for i, it := range items {
		n := i * 5
		placeholders = append(placeholders, fmt.Sprintf("($%d, $%d, $%d, $%d, $%d)", n+1, n+2, n+3, n+4, n+5))
		args = append(args, orderID, it.ProductID, it.Quantity, it.UnitPrice, it.Total)
	}
	query := `insert into order_items (order_id, product_id, quantity, unit_price, total) values ` +
		strings.Join(placeholders, ", ")
	_, err := s.q.ExecContext(ctx, query, args...)
	return err
}

func (s *PostgresStore) CreatePayment(ctx context.Context, p *Payment) error {
	return s.q.QueryRowContext(ctx, `insert into payments (order_id, method, amount, status, created_at)
	values ($1, $2, $3, $4, now())
	returning id, created_at`, p.OrderID, p.Method, p.Amount, p.Status).Scan(&p.ID, &p.CreatedAt)
}

func (s *PostgresStore) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	var o Order
	err := s.q.QueryRowContext(ctx, `select id, customer_id, coalesce(shipping_addr_id, 0), coalesce(billing_addr_id, 0),
		status, subtotal, shipping_cost, tax_total, grand_total, created_at
	from orders where id = $1`, orderID).Scan(&o.ID, &o.CustomerID, &o.ShippingAddrID, &o.BillingAddrID,
		&o.Status, &o.Subtotal, &o.ShippingCost, &o.TaxTotal, &o.GrandTotal, &o.CreatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *PostgresStore) GetAdminOrder(ctx context.Context, orderID int64) (*AdminOrder, error) {
	var o AdminOrder
	err := s.q.QueryRowContext(ctx, `select o.id, o.customer_id, coalesce(o.shipping_addr_id, 0), coalesce(o.billing_addr_id, 0),
		o.status, o.subtotal, o.shipping_cost, o.tax_total, o.grand_total, o.created_at,
		c.full_name, c.email
	from orders o
	join customers c on c.id = o.customer_id
	where o.id = $1`, orderID).Scan(&o.ID, &o.CustomerID, &o.ShippingAddrID, &o.BillingAddrID,
		&o.Status, &o.Subtotal, &o.ShippingCost, &o.TaxTotal, &o.GrandTotal, &o.CreatedAt,
		&o.CustomerName, &o.CustomerEmail)
	if err != nil {
		return nil, notFound(err)
	}
	return &o, nil
}

func (s *PostgresStore) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	rows, err := s.q.QueryContext(ctx, `select oi.id, oi.order_id, oi.product_id, p.name, oi.quantity, oi.unit_price, oi.total
	from order_items oi
	join products p on p.id = oi.product_id
	where oi.order_id = $1
	order by oi.id asc`, orderID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	items := []OrderItem{}
	for rows.Next() {
		var it OrderItem
		if err := rows.Scan(&it.ID, &it.OrderID, &it.ProductID, &it.ProductName, &it.Quantity, &it.UnitPrice, &it.Total); err != nil {
			return nil, err
		}
		items = append(items, it)
	}
	return items, rows.Err()
}

func (s *PostgresStore) GetOrderPayment(ctx context.Context, orderID int64) (*OrderPayment, error) {
	var op OrderPayment
	err := s.q.QueryRowContext(ctx, `select o.id, o.customer_id, o.status, p.id, p.status
	from orders o
	left join payments p on p.order_id = o.id
	where o.id = $1
	limit 1`, orderID).Scan(&op.OrderID, &op.CustomerID, &op.OrderStatus, &op.PaymentID, &op.PaymentStatus)
	if err != nil {
		return nil, notFound(err)
	}
	return &op, nil
}

func (s *PostgresStore) MarkPaymentPaid(ctx context.Context, paymentID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update payments set status = 'paid' where id = $1 and status = 'pending'`, paymentID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update orders set status = 'paid' where id = $1 and status = 'pending'`, orderID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update orders set status = 'cancelled'
	where id = $1 and customer_id = $2 and status in ('pending', 'paid')`, orderID, customerID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) ListCustomerOrders(ctx context.Context, customerID int64) ([]OrderSummary, error) {
	return s.listOrders(ctx, `select o.id, o.status, o.grand_total, o.created_at, count(oi.id), s.status, '', ''
	from orders o
	left join order_items oi on oi.order_id = o.id
	left join shipments s on s.order_id = o.id
	where o.customer_id = $1
	group by o.id, o.status, o.grand_total, o.created_at, s.status
	order by o.created_at desc, o.id desc`, customerID)
}

func (s *PostgresStore) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	return s.listOrders(ctx, `select o.id, o.status, o.grand_total, o.created_at, count(oi.id), s.status, c.full_name, c.email
	from orders o
	join customers c on c.id = o.customer_id
	left join order_items oi on oi.order_id = o.id
	left join shipments s on s.order_id = o.id
	group by o.id, o.status, o.grand_total, o.created_at, c.full_name, c.email, s.status
	order by o.created_at desc, o.id desc`)
}

func (s *PostgresStore) listOrders(ctx context.Context, query string, args ...any) ([]OrderSummary, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []OrderSummary{}
	for rows.Next() {
		var o OrderSummary
		if err := rows.Scan(&o.ID, &o.Status, &o.GrandTotal, &o.CreatedAt, &o.ItemsCount,
			&o.ShipmentStatus, &o.CustomerName, &o.CustomerEmail); err != nil {
			return nil, err
		}
		orders = append(orders, o)
	}
	return orders, rows.Err()
}

func (s *PostgresStore) GetShipment(ctx context.Context, orderID int64) (*Shipment, error) {
	var sh Shipment
	err := s.q.QueryRowContext(ctx, `select id, order_id, status, tracking_code, carrier, created_at, updated_at
	from shipments where order_id = $1 limit 1`, orderID).
		Scan(&sh.ID, &sh.OrderID, &sh.Status, &sh.TrackingCode, &sh.Carrier, &sh.CreatedAt, &sh.UpdatedAt)
	if err != nil {
		return nil, notFound(err)
	}
	return &sh, nil
}

func (s *PostgresStore) InsertShipment(ctx context.Context, sh *Shipment) (bool, error) {
	err := s.q.QueryRowContext(ctx, `insert into shipments (order_id, status, tracking_code, carrier)
	values ($1, $2, $3, $4)
	on conflict (order_id) do nothing
	returning id, created_at, updated_at`, sh.OrderID, sh.Status, sh.TrackingCode, sh.Carrier).
		Scan(&sh.ID, &sh.CreatedAt, &sh.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *PostgresStore) UpdateShipment(ctx context.Context, sh *Shipment) error {
	return s.q.QueryRowContext(ctx, `update shipments
	set status = $1, tracking_code = $2, carrier = $3, updated_at = now()
	where id = $4
	returning updated_at`, sh.Status, sh.TrackingCode, sh.Carrier, sh.ID).Scan(&sh.UpdatedAt)
}
