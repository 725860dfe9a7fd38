package main

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"
)

var (
	ErrNotFound       = errors.New("not found")
	ErrOpenCartExists = errors.New("open cart already exists")
	ErrEmailConflict  = errors.New("email already registered")
	ErrSlugTaken      = errors.New("slug already in use")
	ErrUnknownRef     = errors.New("unknown category_id or producer_id")
)

type Storage interface {
	// InTx runs fn against a Storage bound to a single transaction. The
	// transaction commits when fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Storage) error) error

	CreateCustomer(ctx context.Context, c *Customer) error
	GetCustomerByEmail(ctx context.Context, email string) (*Customer, error)
	GetCustomerByID(ctx context.Context, id int64) (*Customer, error)
	UpdateCustomerProfile(ctx context.Context, id int64, fullName, email string, phone *string) (bool, error)
	UpdateCustomerPassword(ctx context.Context, id int64, hash string) (bool, error)

	ListAddresses(ctx context.Context, customerID int64) ([]Address, error)
	CreateAddress(ctx context.Context, a *Address) error
	UpdateAddress(ctx context.Context, a *Address) (bool, error)
	UnsetDefaultAddresses(ctx context.Context, customerID int64) error

	ListActiveProducts(ctx context.Context, f ProductFilter) ([]Product, error)
	GetProduct(ctx context.Context, id int64) (*Product, error)
	ListCategories(ctx context.Context) ([]Category, error)
	ListProducers(ctx context.Context) ([]Producer, error)
	CreateProduct(ctx context.Context, p *Product) error
	UpdateProduct(ctx context.Context, p *Product) (bool, error)
	ProductOrdered(ctx context.Context, id int64) (bool, error)
	DeleteProduct(ctx context.Context, id int64) (bool, error)

	FindOpenCart(ctx context.Context, customerID int64) (int64, error)
	CreateOpenCart(ctx context.Context, customerID int64) (int64, error)
	TouchCart(ctx context.Context, cartID int64) error
	ConvertCart(ctx context.Context, cartID int64) (bool, error)
	GetCartLines(ctx context.Context, cartID int64) ([]CartLine, error)
	UpsertCartItem(ctx context.Context, cartID, productID int64, qty int, unitPrice decimal.Decimal) error
	UpdateCartItemQuantity(ctx context.Context, customerID, itemID int64, qty int) (bool, error)
	DeleteCartItem(ctx context.Context, customerID, itemID int64) (bool, error)
	ClearCartItems(ctx context.Context, cartID int64) error

	CreateOrder(ctx context.Context, o *Order) error
	CreateOrderItems(ctx context.Context, orderID int64, items []OrderItem) error
	CreatePayment(ctx context.Context, p *Payment) error
	GetOrder(ctx context.Context, orderID int64) (*Order, error)
	GetAdminOrder(ctx context.Context, orderID int64) (*AdminOrder, error)
	GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error)
	GetOrderPayment(ctx context.Context, orderID int64) (*OrderPayment, error)
	MarkPaymentPaid(ctx context.Context, paymentID int64) (bool, error)
	MarkOrderPaid(ctx context.Context, orderID int64) (bool, error)
	CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error)
	ListCustomerOrders(ctx context.Context, customerID int64) ([]OrderSummary, error)
	ListOrders(ctx context.Context) ([]OrderSummary, error)

	GetShipment(ctx context.Context, orderID int64) (*Shipment, error)
	// InsertShipment reports false when the order already has a shipment.
	InsertShipment(ctx context.Context, s *Shipment) (bool, error)
	UpdateShipment(ctx context.Context, s *Shipment) error
}

// querier is the part of *sql.DB and *sql.Tx the store needs.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type PostgresStore struct {
	db *sql.DB
	q  querier
}

type StoreOptions struct {
	MaxOpenConns int
	MaxIdleConns int
}

func NewPostgresStorage(connStr string, opts StoreOptions) (*PostgresStore, error) {
	db, err := sql.Open("postgres", connStr)
	if err != nil {
		return nil, err
	}
	if opts.MaxOpenConns > 0 {
		db.SetMaxOpenConns(opts.MaxOpenConns)
	}
	if opts.MaxIdleConns > 0 {
		db.SetMaxIdleConns(opts.MaxIdleConns)
	}
	if err := db.Ping(); err != nil {
		return nil, err
	}
	return &PostgresStore{
		db: db,
		q:  db,
	}, nil
}

func (s *PostgresStore) Close() error {
	return s.db.Close()
}

func (s *PostgresStore) InTx(ctx context.Context, fn func(Storage) error) (err error) {
	if _, nested := s.q.(*sql.Tx); nested {
		return fn(s)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			tx.Rollback()
			panic(p)
		} else if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				log.Printf("rollback failed: %v", rbErr)
			}
		} else {
			err = tx.Commit()
		}
	}()

	return fn(&PostgresStore{db: s.db, q: tx})
}

func (s *PostgresStore) Init(ctx context.Context) error {
	log.Println("Initializing DB...")
	steps := []struct {
		name string
		fn   func(context.Context) error
	}{
		{"customers", s.createCustomerTable},
		{"addresses", s.createAddressTable},
		{"catalog", s.createCatalogTables},
		{"carts", s.createCartTables},
		{"orders", s.createOrderTables},
		{"shipments", s.createShipmentTable},
	}
	for _, st := range steps {
		if err := st.fn(ctx); err != nil {
			return fmt.Errorf("create %s: %w", st.name, err)
		}
	}
	log.Println("DB Initialized.")
	return nil
}

func (s *PostgresStore) createCustomerTable(ctx context.Context) error {
	query := `create table if not exists customers (
		id bigserial primary key,
		full_name varchar(150) not null,
		email varchar(150) not null unique,
		phone varchar(40),
		password_hash varchar(120) not null,
		role varchar(20) not null default 'customer' check (role in ('customer','admin')),
		created_at timestamptz not null default now()
	)`
	_, err := s.q.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) createAddressTable(ctx context.Context) error {
	query := `create table if not exists addresses (
		id bigserial primary key,
		customer_id bigint not null references customers(id) on delete cascade,
		type varchar(20) not null default 'shipping' check (type in ('shipping','billing')),
		street varchar(255) not null,
		city varchar(120) not null,
		state varchar(120) not null,
		postal_code varchar(20) not null,
		country varchar(120) not null,
		is_default boolean not null default false,
		created_at timestamptz not null default now()
	)`
	_, err := s.q.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) createCatalogTables(ctx context.Context) error {
	queries := []string{
		`create table if not exists categories (
			id bigserial primary key,
			name varchar(120) not null,
			slug varchar(140) not null unique
		)`,
		`create table if not exists producers (
			id bigserial primary key,
			name varchar(150) not null
		)`,
		`create table if not exists products (
			id bigserial primary key,
			category_id bigint references categories(id),
			producer_id bigint references producers(id),
			name varchar(200) not null,
			slug varchar(220) not null unique,
			sku varchar(60),
			description text,
			price numeric(12,2) not null,
			status varchar(20) not null default 'active' check (status in ('active','inactive','draft')),
			weight_grams integer,
			stock_quantity integer,
			created_at timestamptz not null default now()
		)`,
		`create table if not exists product_images (
			id bigserial primary key,
			product_id bigint not null references products(id) on delete cascade,
			url varchar(500) not null,
			is_primary boolean not null default false
		)`,
		`create unique index if not exists product_images_one_primary
			on product_images(product_id) where is_primary`,
	}
	return s.execAll(ctx, queries)
}

func (s *PostgresStore) createCartTables(ctx context.Context) error {
	queries := []string{
		`create table if not exists carts (
			id bigserial primary key,
			customer_id bigint not null references customers(id) on delete cascade,
			status varchar(20) not null default 'open' check (status in ('open','converted')),
			created_at timestamptz not null default now(),
			updated_at timestamptz
		)`,
		// at most one open cart per customer
		`create unique index if not exists carts_one_open_per_customer
			on carts(customer_id) where status = 'open'`,
		`create table if not exists cart_items (
			id bigserial primary key,
			cart_id bigint not null references carts(id) on delete cascade,
			product_id bigint not null references products(id),
			quantity integer not null check (quantity > 0),
			unit_price numeric(12,2) not null,
			unique (cart_id, product_id)
		)`,
	}
	return s.execAll(ctx, queries)
}

func (s *PostgresStore) createOrderTables(ctx context.Context) error {
	queries := []string{
		`create table if not exists orders (
			id bigserial primary key,
			customer_id bigint not null references customers(id),
			shipping_addr_id bigint references addresses(id),
			billing_addr_id bigint references addresses(id),
			status varchar(20) not null default 'pending',
			subtotal numeric(12,2) not null,
			shipping_cost numeric(12,2) not null default 0,
			tax_total numeric(12,2) not null default 0,
			grand_total numeric(12,2) not null,
			created_at timestamptz not null default now()
		)`,
		`create table if not exists order_items (
			id bigserial primary key,
			order_id bigint not null references orders(id) on delete cascade,
			product_id bigint not null references products(id),
			quantity integer not null,
			unit_price numeric(12,2) not null,
			total numeric(12,2) not null
		)`,
		`create table if not exists payments (
			id bigserial primary key,
			order_id bigint not null unique references orders(id) on delete cascade,
			method varchar(30) not null,
			amount numeric(12,2) not null,
			status varchar(20) not null default 'pending' check (status in ('pending','paid')),
			created_at timestamptz not null default now()
		)`,
	}
	return s.execAll(ctx, queries)
}

func (s *PostgresStore) createShipmentTable(ctx context.Context) error {
	query := `create table if not exists shipments (
		id bigserial primary key,
		order_id bigint not null unique references orders(id) on delete cascade,
		status varchar(30) not null check (status in ('pending','shipped','out_for_delivery','delivered','returned','lost')),
		tracking_code varchar(120),
		carrier varchar(120),
		created_at timestamptz not null default now(),
		updated_at timestamptz not null default now()
	)`
	_, err := s.q.ExecContext(ctx, query)
	return err
}

func (s *PostgresStore) execAll(ctx context.Context, queries []string) error {
	for _, q := range queries {
		if _, err := s.q.ExecContext(ctx, q); err != nil {
			return err
		}
	}
	return nil
}

func isUniqueViolation(err error) bool {
	return pqCode(err) == "23505"
}

func isForeignKeyViolation(err error) bool {
	return pqCode(err) == "23503"
}

func pqCode(err error) pq.ErrorCode {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return pqErr.Code
	}
	return ""
}

func affected(res sql.Result) (bool, error) {
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

func notFound(err error) error {
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	return err
}
