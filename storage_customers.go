package main

import (
	"context"
	"database/sql"
)

func (s *PostgresStore) CreateCustomer(ctx context.Context, c *Customer) error {
	if c.Role == "" {
		c.Role = RoleCustomer
	}
	query := `insert into customers (full_name, email, phone, password_hash, role)
	values ($1, $2, $3, $4, $5)
	returning id, created_at`
	err := s.q.QueryRowContext(ctx, query, c.FullName, c.Email, c.Phone, c.PasswordHash, c.Role).
		Scan(&c.ID, &c.CreatedAt)
	if isUniqueViolation(err) {
		return ErrEmailConflict
	}
	return err
}

func (s *PostgresStore) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	row := s.q.QueryRowContext(ctx, `select id, full_name, email, phone, password_hash, role, created_at
	from customers where email = $1`, email)
	return scanIntoCustomer(row)
}

func (s *PostgresStore) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	row := s.q.QueryRowContext(ctx, `select id, full_name, email, phone, password_hash, role, created_at
	from customers where id = $1`, id)
	return scanIntoCustomer(row)
}

func (s *PostgresStore) UpdateCustomerProfile(ctx context.Context, id int64, fullName, email string, phone *string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update customers set full_name = $1, email = $2, phone = $3 where id = $4`,
		fullName, email, phone, id)
	if isUniqueViolation(err) {
		return false, ErrEmailConflict
	}
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) UpdateCustomerPassword(ctx context.Context, id int64, hash string) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update customers set password_hash = $1 where id = $2`, hash, id)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) ListAddresses(ctx context.Context, customerID int64) ([]Address, error) {
	rows, err := s.q.QueryContext(ctx, `select id, customer_id, type, street, city, state, postal_code, country, is_default, created_at
	from addresses
	where customer_id = $1
	order by is_default desc, id asc`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	addrs := []Address{}
	for rows.Next() {
		var a Address
		if err := rows.Scan(&a.ID, &a.CustomerID, &a.Type, &a.Street, &a.City, &a.State,
			&a.PostalCode, &a.Country, &a.IsDefault, &a.CreatedAt); err != nil {
			return nil, err
		}
		addrs = append(addrs, a)
	}
	return addrs, rows.Err()
}

func (s *PostgresStore) CreateAddress(ctx context.Context, a *Address) error {
	query := `insert into addresses (customer_id, type, street, city, state, postal_code, country, is_default)
	values ($1, $2, $3, $4, $5, $6, $7, $8)
	returning id, created_at`
	return s.q.QueryRowContext(ctx, query, a.CustomerID, a.Type, a.Street, a.City, a.State,
		a.PostalCode, a.Country, a.IsDefault).Scan(&a.ID, &a.CreatedAt)
}

func (s *PostgresStore) UpdateAddress(ctx context.Context, a *Address) (bool, error) {
	res, err := s.q.ExecContext(ctx, `update addresses
	set type = $1, street = $2, city = $3, state = $4, postal_code = $5, country = $6, is_default = $7
	where id = $8 and customer_id = $9`,
		a.Type, a.Street, a.City, a.State, a.PostalCode, a.Country, a.IsDefault, a.ID, a.CustomerID)
	if err != nil {
		return false, err
	}
	return affected(res)
}

func (s *PostgresStore) UnsetDefaultAddresses(ctx context.Context, customerID int64) error {
	_, err := s.q.ExecContext(ctx, `update addresses set is_default = false where customer_id = $1 and is_default`, customerID)
	return err
}

func scanIntoCustomer(row *sql.Row) (*Customer, error) {
	var c Customer
	if err := row.Scan(&c.ID, &c.FullName, &c.Email, &c.Phone, &c.PasswordHash, &c.Role, &c.CreatedAt); err != nil {
		return nil, notFound(err)
	}
	return &c, nil
}
