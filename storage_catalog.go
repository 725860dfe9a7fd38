package main

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

const productColumns = `p.id, p.category_id, p.producer_id, p.name, p.slug, p.sku, p.description,
	p.price, p.status, p.weight_grams, p.stock_quantity, p.created_at,
	c.name, c.slug, pr.name, img.url`

const productJoins = `from products p
	left join categories c on p.category_id = c.id
	left join producers pr on p.producer_id = pr.id
	left join product_images img on img.product_id = p.id and img.is_primary`

func (s *PostgresStore) ListActiveProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	where := []string{"p.status = 'active'"}
	args := []any{}
	if f.CategoryID > 0 {
		args = append(args, f.CategoryID)
		where = append(where, fmt.Sprintf("p.category_id = $%d", len(args)))
	}
	if q := strings.TrimSpace(f.Query); q != "" {
		args = append(args, "%"+q+"%")
		where = append(where, fmt.Sprintf("p.name ilike $%d", len(args)))
	}
	query := "select " + productColumns + " " + productJoins +
		" where " + strings.Join(where, " and ") + " order by p.id asc"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []Product{}
	for rows.Next() {
		product, err := scanIntoProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, product)
	}
	return products, rows.Err()
}

func (s *PostgresStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	rows, err := s.q.QueryContext(ctx, "select "+productColumns+" "+productJoins+" where p.id = $1", id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	if !rows.Next() {
		if err := rows.Err(); err != nil {
			return nil, err
		}
		return nil, ErrNotFound
	}
	product, err := scanIntoProduct(rows)
	if err != nil {
		return nil, err
	}
	return &product, nil
}

func (s *PostgresStore) ListCategories(ctx context.Context) ([]Category, error) {
	rows, err := s.q.QueryContext(ctx, `select id, name, slug from categories order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	categories := []Category{}
	for rows.Next() {
		var c Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug); err != nil {
			return nil, err
		}
		categories = append(categories, c)
	}
	return categories, rows.Err()
}

func (s *PostgresStore) ListProducers(ctx context.Context) ([]Producer, error) {
	rows, err := s.q.QueryContext(ctx, `select id, name from producers order by name asc`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	producers := []Producer{}
	for rows.Next() {
		var p Producer
		if err := rows.Scan(&p.ID, &p.Name); err != nil {
			return nil, err
		}
		producers = append(producers, p)
	}
	return producers, rows.Err()
}

func (s *PostgresStore) CreateProduct(ctx context.Context, p *Product) error {
	err := s.q.QueryRowContext(ctx, `insert into products
		(category_id, producer_id, name, slug, sku, description, price, status, weight_grams, stock_quantity)
	values ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	returning id, created_at`,
		p.CategoryID, p.ProducerID, p.Name, p.Slug, p.SKU, p.Description,
		p.Price, p.Status, p.WeightGrams, p.StockQuantity).Scan(&p.ID, &p.CreatedAt)
	return productWriteErr(err)
}

func (s *PostgresStore) UpdateProduct(ctx context.Context, p *Product) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update products set
		category_id = $1, producer_id = $2, name = $3, slug = $4, sku = $5,
		description = $6, price = $7, status = $8, weight_grams = $9, stock_quantity = $10
	where id = $11`,
		p.CategoryID, p.ProducerID, p.Name, p.Slug, p.SKU, p.Description,
		p.Price, p.Status, p.WeightGrams, p.StockQuantity, p.ID)
	if err != nil {
		return false, productWriteErr(err)
	}
	return affected(res)
}

func (s *PostgresStore) ProductOrdered(ctx context.Context, id int64) (bool, error) {
	var ordered bool
	err := s.q.QueryRowContext(ctx, `select exists (select 1 from order_items where product_id = $1)`, id).Scan(&ordered)
	return ordered, err
}

// DeleteProduct removes the product and any open cart lines holding it.
func (s *PostgresStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	if _, err := s.q.ExecContext(ctx, `delete from cart_items where product_id = $1`, id); err != nil {
		return false, err
	}
	res, err := s.q.ExecContext(ctx, `delete from products where id = $1`, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func productWriteErr(err error) error {
	switch {
	case isUniqueViolation(err):
		return ErrSlugTaken
	case isForeignKeyViolation(err):
		return ErrUnknownRef
	}
	return err
}

func scanIntoProduct(rows *sql.Rows) (Product, error) {
	var p Product
	err := rows.Scan(&p.ID, &p.CategoryID, &p.ProducerID, &p.Name, &p.Slug, &p.SKU, &p.Description,
		&p.Price, &p.Status, &p.WeightGrams, &p.StockQuantity, &p.CreatedAt,
		&p.CategoryName, &p.CategorySlug, &p.ProducerName, &p.ImageURL)
	if err != nil {
		return Product{}, err
	}
	return p, nil
}
