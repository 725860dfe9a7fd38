package main

import (
	"time"

	"github.com/shopspring/decimal"
)

func init() {
	// prices go out as JSON numbers, not quoted strings
	decimal.MarshalJSONWithoutQuotes = true
}

const (
	RoleCustomer = "customer"
	RoleAdmin    = "admin"

	ProductActive   = "active"
	ProductInactive = "inactive"
	ProductDraft    = "draft"

	CartOpen      = "open"
	CartConverted = "converted"

	OrderPending   = "pending"
	OrderPaid      = "paid"
	OrderCancelled = "cancelled"

	PaymentPending = "pending"
	PaymentPaid    = "paid"
	PaymentOther   = "other"

	AddressShipping = "shipping"
	AddressBilling  = "billing"
)

type Customer struct {
	ID           int64     `json:"id"`
	FullName     string    `json:"full_name"`
	Email        string    `json:"email"`
	Phone        *string   `json:"phone"`
	PasswordHash string    `json:"-"`
	Role         string    `json:"role"`
	CreatedAt    time.Time `json:"created_at"`
}

// Actor is the authenticated caller of a request, built once from the
// validated session token and handed to every service call.
type Actor struct {
	CustomerID int64  `json:"id"`
	FullName   string `json:"full_name"`
	Email      string `json:"email"`
	Role       string `json:"role"`
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

type Address struct {
	ID         int64     `json:"id"`
	CustomerID int64     `json:"-"`
	Type       string    `json:"type"`
	Street     string    `json:"street"`
	City       string    `json:"city"`
	State      string    `json:"state"`
	PostalCode string    `json:"postal_code"`
	Country    string    `json:"country"`
	IsDefault  bool      `json:"is_default"`
	CreatedAt  time.Time `json:"created_at"`
}

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
	Slug string `json:"slug"`
}

type Producer struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type Product struct {
	ID            int64           `json:"id"`
	CategoryID    *int64          `json:"category_id"`
	ProducerID    *int64          `json:"producer_id"`
	Name          string          `json:"name"`
	Slug          string          `json:"slug"`
	SKU           *string         `json:"sku"`
	Description   *string         `json:"description"`
	Price         decimal.Decimal `json:"price"`
	Status        string          `json:"status"`
	WeightGrams   *int            `json:"weight_grams"`
	StockQuantity *int            `json:"stock_quantity"`
	CreatedAt     time.Time       `json:"created_at"`

	CategoryName *string `json:"category_name"`
	CategorySlug *string `json:"category_slug"`
	ProducerName *string `json:"producer_name"`
	ImageURL     *string `json:"image_url"`
}

type ProductFilter struct {
	CategoryID int64
	Query      string
}

// CartLine is a cart item joined with the product fields shown in the cart.
type CartLine struct {
	ID          int64           `json:"id"`
	ProductID   int64           `json:"product_id"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	LineTotal   decimal.Decimal `json:"line_total"`
	ProductName string          `json:"product_name"`
	ProductSlug string          `json:"product_slug"`
	SKU         *string         `json:"sku"`
	ImageURL    *string         `json:"image_url"`
}

type CartSummary struct {
	CartID       int64           `json:"cart_id"`
	ItemsCount   int             `json:"items_count"`
	Subtotal     decimal.Decimal `json:"subtotal"`
	ShippingCost decimal.Decimal `json:"shipping_cost"`
	TaxTotal     decimal.Decimal `json:"tax_total"`
	GrandTotal   decimal.Decimal `json:"grand_total"`
	Items        []CartLine      `json:"items"`
}

type Order struct {
	ID             int64           `json:"id"`
	CustomerID     int64           `json:"customer_id"`
	ShippingAddrID int64           `json:"shipping_addr_id"`
	BillingAddrID  int64           `json:"billing_addr_id"`
	Status         string          `json:"status"`
	Subtotal       decimal.Decimal `json:"subtotal"`
	ShippingCost   decimal.Decimal `json:"shipping_cost"`
	TaxTotal       decimal.Decimal `json:"tax_total"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	CreatedAt      time.Time       `json:"created_at"`
}

type OrderItem struct {
	ID          int64           `json:"id"`
	OrderID     int64           `json:"-"`
	ProductID   int64           `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    int             `json:"quantity"`
	UnitPrice   decimal.Decimal `json:"unit_price"`
	Total       decimal.Decimal `json:"total"`
}

type Payment struct {
	ID        int64           `json:"id"`
	OrderID   int64           `json:"order_id"`
	Method    string          `json:"method"`
	Amount    decimal.Decimal `json:"amount"`
	Status    string          `json:"status"`
	CreatedAt time.Time       `json:"created_at"`
}

// OrderPayment is an order joined with its (at most one) payment.
type OrderPayment struct {
	OrderID       int64
	CustomerID    int64
	OrderStatus   string
	PaymentID     *int64
	PaymentStatus *string
}

type Shipment struct {
	ID           int64     `json:"id"`
	OrderID      int64     `json:"-"`
	Status       string    `json:"status"`
	TrackingCode *string   `json:"tracking_code"`
	Carrier      *string   `json:"carrier"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

type OrderSummary struct {
	ID             int64           `json:"id"`
	Status         string          `json:"status"`
	GrandTotal     decimal.Decimal `json:"grand_total"`
	CreatedAt      time.Time       `json:"created_at"`
	ItemsCount     int             `json:"items_count"`
	ShipmentStatus *string         `json:"shipment_status"`
	CustomerName   string          `json:"customer_name,omitempty"`
	CustomerEmail  string          `json:"customer_email,omitempty"`
}

type AdminOrder struct {
	Order
	CustomerName  string `json:"customer_name"`
	CustomerEmail string `json:"customer_email"`
}

type OrderDetail struct {
	Order    any         `json:"order"`
	Items    []OrderItem `json:"items"`
	Shipment *Shipment   `json:"shipment"`
}
