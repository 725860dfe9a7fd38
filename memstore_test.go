package main

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/shopspring/decimal"
)

// memStore is an in-memory Storage for service and handler tests. A
// transaction works on a copy of the data that replaces the live copy only
// when fn succeeds. fail makes the named method return the given error.
type memStore struct {
	mu   *sync.Mutex
	d    *memData
	tx   bool
	fail map[string]error
}

type memCart struct {
	ID         int64
	CustomerID int64
	Status     string
	UpdatedAt  *time.Time
}

type memCartItem struct {
	ID        int64
	CartID    int64
	ProductID int64
	Quantity  int
	UnitPrice decimal.Decimal
}

type memData struct {
	seq        int64
	customers  map[int64]Customer
	addresses  map[int64]Address
	categories map[int64]Category
	producers  map[int64]Producer
	products   map[int64]Product
	carts      map[int64]memCart
	cartItems  map[int64]memCartItem
	orders     map[int64]Order
	orderItems map[int64]OrderItem
	payments   map[int64]Payment
	shipments  map[int64]Shipment
}

func newMemStore() *memStore {
	return &memStore{
		mu: &sync.Mutex{},
		d: &memData{
			customers:  map[int64]Customer{},
			addresses:  map[int64]Address{},
			categories: map[int64]Category{},
			producers:  map[int64]Producer{},
			products:   map[int64]Product{},
			carts:      map[int64]memCart{},
			cartItems:  map[int64]memCartItem{},
			orders:     map[int64]Order{},
			orderItems: map[int64]OrderItem{},
			payments:   map[int64]Payment{},
			shipments:  map[int64]Shipment{},
		},
		fail: map[string]error{},
	}
}

func (d *memData) clone() *memData {
	return &memData{
		seq:        d.seq,
		customers:  maps.Clone(d.customers),
		addresses:  maps.Clone(d.addresses),
		categories: maps.Clone(d.categories),
		producers:  maps.Clone(d.producers),
		products:   maps.Clone(d.products),
		carts:      maps.Clone(d.carts),
		cartItems:  maps.Clone(d.cartItems),
		orders:     maps.Clone(d.orders),
		orderItems: maps.Clone(d.orderItems),
		payments:   maps.Clone(d.payments),
		shipments:  maps.Clone(d.shipments),
	}
}

func (d *memData) nextID() int64 {
	d.seq++
	return d.seq
}

func sortedKeys[V any](m map[int64]V) []int64 {
	keys := make([]int64, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

func (s *memStore) lock() func() {
	if s.tx {
		return func() {}
	}
	s.mu.Lock()
	return s.mu.Unlock
}

func (s *memStore) failed(method string) error {
	return s.fail[method]
}

func (s *memStore) InTx(ctx context.Context, fn func(Storage) error) error {
	if s.tx {
		return fn(s)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failed("InTx"); err != nil {
		return err
	}
	tx := &memStore{mu: s.mu, d: s.d.clone(), tx: true, fail: s.fail}
	if err := fn(tx); err != nil {
		return err
	}
	s.d = tx.d
	return nil
}

// test helpers, not part of Storage

func (s *memStore) addProduct(name string, price string, status string) int64 {
	defer s.lock()()
	id := s.d.nextID()
	s.d.products[id] = Product{
		ID:     id,
		Name:   name,
		Slug:   slugify(name),
		Price:  decimal.RequireFromString(price),
		Status: status,
	}
	return id
}

func (s *memStore) addCategory(name string) int64 {
	defer s.lock()()
	id := s.d.nextID()
	s.d.categories[id] = Category{ID: id, Name: name, Slug: slugify(name)}
	return id
}

func (s *memStore) setPrice(productID int64, price string) {
	defer s.lock()()
	p := s.d.products[productID]
	p.Price = decimal.RequireFromString(price)
	s.d.products[productID] = p
}

func (s *memStore) addCustomer(name, email, role string) int64 {
	defer s.lock()()
	id := s.d.nextID()
	s.d.customers[id] = Customer{ID: id, FullName: name, Email: email, Role: role, CreatedAt: time.Now()}
	return id
}

func (s *memStore) addAddress(customerID int64, isDefault bool) int64 {
	defer s.lock()()
	id := s.d.nextID()
	s.d.addresses[id] = Address{
		ID: id, CustomerID: customerID, Type: AddressShipping,
		Street: "Av. Reforma 1", City: "CDMX", State: "CDMX", PostalCode: "06600", Country: defaultCountry,
		IsDefault: isDefault,
	}
	return id
}

func (s *memStore) count(table string) int {
	defer s.lock()()
	switch table {
	case "orders":
		return len(s.d.orders)
	case "order_items":
		return len(s.d.orderItems)
	case "payments":
		return len(s.d.payments)
	case "shipments":
		return len(s.d.shipments)
	case "carts":
		return len(s.d.carts)
	case "cart_items":
		return len(s.d.cartItems)
	case "products":
		return len(s.d.products)
	}
	panic("unknown table " + table)
}

func (s *memStore) cartsOf(customerID int64) []memCart {
	defer s.lock()()
	var out []memCart
	for _, id := range sortedKeys(s.d.carts) {
		if c := s.d.carts[id]; c.CustomerID == customerID {
			out = append(out, c)
		}
	}
	return out
}

func (s *memStore) paymentOf(orderID int64) (Payment, bool) {
	defer s.lock()()
	for _, p := range s.d.payments {
		if p.OrderID == orderID {
			return p, true
		}
	}
	return Payment{}, false
}

func (s *memStore) CreateCustomer(ctx context.Context, c *Customer) error {
	defer s.lock()()
	if err := s.failed("CreateCustomer"); err != nil {
		return err
	}
	for _, other := range s.d.customers {
		if strings.EqualFold(other.Email, c.Email) {
			return ErrEmailConflict
		}
	}
	if c.Role == "" {
		c.Role = RoleCustomer
	}
	c.ID = s.d.nextID()
	c.CreatedAt = time.Now()
	s.d.customers[c.ID] = *c
	return nil
}

func (s *memStore) GetCustomerByEmail(ctx context.Context, email string) (*Customer, error) {
	defer s.lock()()
	for _, id := range sortedKeys(s.d.customers) {
		if c := s.d.customers[id]; c.Email == email {
			return &c, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) GetCustomerByID(ctx context.Context, id int64) (*Customer, error) {
	defer s.lock()()
	c, ok := s.d.customers[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &c, nil
}

func (s *memStore) UpdateCustomerProfile(ctx context.Context, id int64, fullName, email string, phone *string) (bool, error) {
	defer s.lock()()
	c, ok := s.d.customers[id]
	if !ok {
		return false, nil
	}
	for otherID, other := range s.d.customers {
		if otherID != id && strings.EqualFold(other.Email, email) {
			return false, ErrEmailConflict
		}
	}
	c.FullName, c.Email, c.Phone = fullName, email, phone
	s.d.customers[id] = c
	return true, nil
}

func (s *memStore) UpdateCustomerPassword(ctx context.Context, id int64, hash string) (bool, error) {
	defer s.lock()()
	c, ok := s.d.customers[id]
	if !ok {
		return false, nil
	}
	c.PasswordHash = hash
	s.d.customers[id] = c
	return true, nil
}

func (s *memStore) ListAddresses(ctx context.Context, customerID int64) ([]Address, error) {
	defer s.lock()()
	if err := s.failed("ListAddresses"); err != nil {
		return nil, err
	}
	addrs := []Address{}
	for _, a := range s.d.addresses {
		if a.CustomerID == customerID {
			addrs = append(addrs, a)
		}
	}
	sort.Slice(addrs, func(i, j int) bool {
		if addrs[i].IsDefault != addrs[j].IsDefault {
			return addrs[i].IsDefault
		}
		return addrs[i].ID < addrs[j].ID
	})
	return addrs, nil
}

func (s *memStore) CreateAddress(ctx context.Context, a *Address) error {
	defer s.lock()()
	a.ID = s.d.nextID()
	a.CreatedAt = time.Now()
	s.d.addresses[a.ID] = *a
	return nil
}

func (s *memStore) UpdateAddress(ctx context.Context, a *Address) (bool, error) {
	defer s.lock()()
	cur, ok := s.d.addresses[a.ID]
	if !ok || cur.CustomerID != a.CustomerID {
		return false, nil
	}
	a.CreatedAt = cur.CreatedAt
	s.d.addresses[a.ID] = *a
	return true, nil
}

func (s *memStore) UnsetDefaultAddresses(ctx context.Context, customerID int64) error {
	defer s.lock()()
	for id, a := range s.d.addresses {
		if a.CustomerID == customerID && a.IsDefault {
			a.IsDefault = false
			s.d.addresses[id] = a
		}
	}
	return nil
}

func (s *memStore) ListActiveProducts(ctx context.Context, f ProductFilter) ([]Product, error) {
	defer s.lock()()
	products := []Product{}
	for _, id := range sortedKeys(s.d.products) {
		p := s.d.products[id]
		if p.Status != ProductActive {
			continue
		}
		if f.CategoryID > 0 && (p.CategoryID == nil || *p.CategoryID != f.CategoryID) {
			continue
		}
		if f.Query != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Query)) {
			continue
		}
		products = append(products, p)
	}
	return products, nil
}

func (s *memStore) GetProduct(ctx context.Context, id int64) (*Product, error) {
	defer s.lock()()
	p, ok := s.d.products[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (s *memStore) ListCategories(ctx context.Context) ([]Category, error) {
	defer s.lock()()
	out := []Category{}
	for _, id := range sortedKeys(s.d.categories) {
		out = append(out, s.d.categories[id])
	}
	return out, nil
}

func (s *memStore) ListProducers(ctx context.Context) ([]Producer, error) {
	defer s.lock()()
	out := []Producer{}
	for _, id := range sortedKeys(s.d.producers) {
		out = append(out, s.d.producers[id])
	}
	return out, nil
}

func (s *memStore) checkProduct(p *Product) error {
	if p.CategoryID != nil {
		if _, ok := s.d.categories[*p.CategoryID]; !ok {
			return ErrUnknownRef
		}
	}
	if p.ProducerID != nil {
		if _, ok := s.d.producers[*p.ProducerID]; !ok {
			return ErrUnknownRef
		}
	}
	for id, other := range s.d.products {
		if other.Slug == p.Slug && id != p.ID {
			return ErrSlugTaken
		}
	}
	return nil
}

func (s *memStore) CreateProduct(ctx context.Context, p *Product) error {
	defer s.lock()()
	if err := s.checkProduct(p); err != nil {
		return err
	}
	p.ID = s.d.nextID()
	p.CreatedAt = time.Now()
	s.d.products[p.ID] = *p
	return nil
}

func (s *memStore) UpdateProduct(ctx context.Context, p *Product) (bool, error) {
	defer s.lock()()
	old, ok := s.d.products[p.ID]
	if !ok {
		return false, nil
	}
	if err := s.checkProduct(p); err != nil {
		return false, err
	}
	p.CreatedAt = old.CreatedAt
	s.d.products[p.ID] = *p
	return true, nil
}

func (s *memStore) ProductOrdered(ctx context.Context, id int64) (bool, error) {
	defer s.lock()()
	for _, it := range s.d.orderItems {
		if it.ProductID == id {
			return true, nil
		}
	}
	return false, nil
}

func (s *memStore) DeleteProduct(ctx context.Context, id int64) (bool, error) {
	defer s.lock()()
	if _, ok := s.d.products[id]; !ok {
		return false, nil
	}
	for itemID, it := range s.d.cartItems {
		if it.ProductID == id {
			delete(s.d.cartItems, itemID)
		}
	}
	delete(s.d.products, id)
	return true, nil
}

func (s *memStore) FindOpenCart(ctx context.Context, customerID int64) (int64, error) {
	defer s.lock()()
	var found int64
	for id, c := range s.d.carts {
		if c.CustomerID == customerID && c.Status == CartOpen && id > found {
			found = id
		}
	}
	if found == 0 {
		return 0, ErrNotFound
	}
	return found, nil
}

func (s *memStore) CreateOpenCart(ctx context.Context, customerID int64) (int64, error) {
	defer s.lock()()
	for _, c := range s.d.carts {
		if c.CustomerID == customerID && c.Status == CartOpen {
			return 0, ErrOpenCartExists
		}
	}
	id := s.d.nextID()
	s.d.carts[id] = memCart{ID: id, CustomerID: customerID, Status: CartOpen}
	return id, nil
}

func (s *memStore) TouchCart(ctx context.Context, cartID int64) error {
	defer s.lock()()
	if c, ok := s.d.carts[cartID]; ok {
		now := time.Now()
		c.UpdatedAt = &now
		s.d.carts[cartID] = c
	}
	return nil
}

func (s *memStore) ConvertCart(ctx context.Context, cartID int64) (bool, error) {
	defer s.lock()()
	if err := s.failed("ConvertCart"); err != nil {
		return false, err
	}
	c, ok := s.d.carts[cartID]
	if !ok || c.Status != CartOpen {
		return false, nil
	}
	c.Status = CartConverted
	s.d.carts[cartID] = c
	return true, nil
}

func (s *memStore) GetCartLines(ctx context.Context, cartID int64) ([]CartLine, error) {
	defer s.lock()()
	lines := []CartLine{}
	for _, id := range sortedKeys(s.d.cartItems) {
		it := s.d.cartItems[id]
		if it.CartID != cartID {
			continue
		}
		p := s.d.products[it.ProductID]
		lines = append(lines, CartLine{
			ID:          it.ID,
			ProductID:   it.ProductID,
			Quantity:    it.Quantity,
			UnitPrice:   it.UnitPrice,
			LineTotal:   it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))),
			ProductName: p.Name,
			ProductSlug: p.Slug,
			SKU:         p.SKU,
			ImageURL:    p.ImageURL,
		})
	}
	return lines, nil
}

func (s *memStore) UpsertCartItem(ctx context.Context, cartID, productID int64, qty int, unitPrice decimal.Decimal) error {
	defer s.lock()()
	for id, it := range s.d.cartItems {
		if it.CartID == cartID && it.ProductID == productID {
			it.Quantity = min(it.Quantity+qty, maxItemQuantity)
			it.UnitPrice = unitPrice
			s.d.cartItems[id] = it
			return nil
		}
	}
	id := s.d.nextID()
	s.d.cartItems[id] = memCartItem{ID: id, CartID: cartID, ProductID: productID, Quantity: qty, UnitPrice: unitPrice}
	return nil
}

func (s *memStore) ownedOpenItem(customerID, itemID int64) (memCartItem, bool) {
	it, ok := s.d.cartItems[itemID]
	if !ok {
		return it, false
	}
	c := s.d.carts[it.CartID]
	return it, c.CustomerID == customerID && c.Status == CartOpen
}

func (s *memStore) UpdateCartItemQuantity(ctx context.Context, customerID, itemID int64, qty int) (bool, error) {
	defer s.lock()()
	it, ok := s.ownedOpenItem(customerID, itemID)
	if !ok {
		return false, nil
	}
	it.Quantity = qty
	s.d.cartItems[itemID] = it
	return true, nil
}

func (s *memStore) DeleteCartItem(ctx context.Context, customerID, itemID int64) (bool, error) {
	defer s.lock()()
	if _, ok := s.ownedOpenItem(customerID, itemID); !ok {
		return false, nil
	}
	delete(s.d.cartItems, itemID)
	return true, nil
}

func (s *memStore) ClearCartItems(ctx context.Context, cartID int64) error {
	defer s.lock()()
	for id, it := range s.d.cartItems {
		if it.CartID == cartID {
			delete(s.d.cartItems, id)
		}
	}
	return nil
}

func (s *memStore) CreateOrder(ctx context.Context, o *Order) error {
	defer s.lock()()
	if err := s.failed("CreateOrder"); err != nil {
		return err
	}
	o.ID = s.d.nextID()
	o.CreatedAt = time.Now()
	s.d.orders[o.ID] = *o
	return nil
}

func (s *memStore) CreateOrderItems(ctx context.Context, orderID int64, items []OrderItem) error {
	defer s.lock()()
	if err := s.failed("CreateOrderItems"); err != nil {
		return err
	}
	for _, it := range items {
		it.ID = s.d.nextID()
		it.OrderID = orderID
		it.ProductName = s.d.products[it.ProductID].Name
		s.d.orderItems[it.ID] = it
	}
	return nil
}

func (s *memStore) CreatePayment(ctx context.Context, p *Payment) error {
	defer s.lock()()
	if err := s.failed("CreatePayment"); err != nil {
		return err
	}
	for _, other := range s.d.payments {
		if other.OrderID == p.OrderID {
			return errors.New("duplicate payment for order")
		}
	}
	p.ID = s.d.nextID()
	p.CreatedAt = time.Now()
	s.d.payments[p.ID] = *p
	return nil
}

func (s *memStore) GetOrder(ctx context.Context, orderID int64) (*Order, error) {
	defer s.lock()()
	o, ok := s.d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	return &o, nil
}

func (s *memStore) GetAdminOrder(ctx context.Context, orderID int64) (*AdminOrder, error) {
	defer s.lock()()
	o, ok := s.d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	c := s.d.customers[o.CustomerID]
	return &AdminOrder{Order: o, CustomerName: c.FullName, CustomerEmail: c.Email}, nil
}

func (s *memStore) GetOrderItems(ctx context.Context, orderID int64) ([]OrderItem, error) {
	defer s.lock()()
	items := []OrderItem{}
	for _, id := range sortedKeys(s.d.orderItems) {
		if it := s.d.orderItems[id]; it.OrderID == orderID {
			items = append(items, it)
		}
	}
	return items, nil
}

func (s *memStore) GetOrderPayment(ctx context.Context, orderID int64) (*OrderPayment, error) {
	defer s.lock()()
	o, ok := s.d.orders[orderID]
	if !ok {
		return nil, ErrNotFound
	}
	op := &OrderPayment{OrderID: o.ID, CustomerID: o.CustomerID, OrderStatus: o.Status}
	for _, p := range s.d.payments {
		if p.OrderID == orderID {
			id, status := p.ID, p.Status
			op.PaymentID, op.PaymentStatus = &id, &status
		}
	}
	return op, nil
}

func (s *memStore) MarkPaymentPaid(ctx context.Context, paymentID int64) (bool, error) {
	defer s.lock()()
	p, ok := s.d.payments[paymentID]
	if !ok || p.Status != PaymentPending {
		return false, nil
	}
	p.Status = PaymentPaid
	s.d.payments[paymentID] = p
	return true, nil
}

func (s *memStore) MarkOrderPaid(ctx context.Context, orderID int64) (bool, error) {
	defer s.lock()()
	if err := s.failed("MarkOrderPaid"); err != nil {
		return false, err
	}
	o, ok := s.d.orders[orderID]
	if !ok || o.Status != OrderPending {
		return false, nil
	}
	o.Status = OrderPaid
	s.d.orders[orderID] = o
	return true, nil
}

func (s *memStore) CancelOrder(ctx context.Context, customerID, orderID int64) (bool, error) {
	defer s.lock()()
	o, ok := s.d.orders[orderID]
	if !ok || o.CustomerID != customerID || (o.Status != OrderPending && o.Status != OrderPaid) {
		return false, nil
	}
	o.Status = OrderCancelled
	s.d.orders[orderID] = o
	return true, nil
}

func (s *memStore) summaries(customerID int64, admin bool) []OrderSummary {
	out := []OrderSummary{}
	for _, id := range sortedKeys(s.d.orders) {
		o := s.d.orders[id]
		if !admin && o.CustomerID != customerID {
			continue
		}
		sum := OrderSummary{ID: o.ID, Status: o.Status, GrandTotal: o.GrandTotal, CreatedAt: o.CreatedAt}
		for _, it := range s.d.orderItems {
			if it.OrderID == o.ID {
				sum.ItemsCount++
			}
		}
		for _, sh := range s.d.shipments {
			if sh.OrderID == o.ID {
				st := sh.Status
				sum.ShipmentStatus = &st
			}
		}
		if admin {
			c := s.d.customers[o.CustomerID]
			sum.CustomerName, sum.CustomerEmail = c.FullName, c.Email
		}
		out = append(out, sum)
	}
	// newest first
	slices.Reverse(out)
	return out
}

func (s *memStore) ListCustomerOrders(ctx context.Context, customerID int64) ([]OrderSummary, error) {
	defer s.lock()()
	return s.summaries(customerID, false), nil
}

func (s *memStore) ListOrders(ctx context.Context) ([]OrderSummary, error) {
	defer s.lock()()
	return s.summaries(0, true), nil
}

func (s *memStore) GetShipment(ctx context.Context, orderID int64) (*Shipment, error) {
	defer s.lock()()
	if err := s.failed("GetShipment"); err != nil {
		return nil, err
	}
	for _, id := range sortedKeys(s.d.shipments) {
		if sh := s.d.shipments[id]; sh.OrderID == orderID {
			return &sh, nil
		}
	}
	return nil, ErrNotFound
}

func (s *memStore) InsertShipment(ctx context.Context, sh *Shipment) (bool, error) {
	defer s.lock()()
	for _, existing := range s.d.shipments {
		if existing.OrderID == sh.OrderID {
			return false, nil
		}
	}
	sh.ID = s.d.nextID()
	sh.CreatedAt = time.Now()
	sh.UpdatedAt = sh.CreatedAt
	s.d.shipments[sh.ID] = *sh
	return true, nil
}

func (s *memStore) UpdateShipment(ctx context.Context, sh *Shipment) error {
	defer s.lock()()
	if _, ok := s.d.shipments[sh.ID]; !ok {
		return ErrNotFound
	}
	sh.UpdatedAt = time.Now()
	s.d.shipments[sh.ID] = *sh
	return nil
}

// recordingPublisher collects published events.
type recordingPublisher struct {
	mu     sync.Mutex
	events []Event
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, topic, key string, ev Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, ev)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

func (p *recordingPublisher) topics() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, ev := range p.events {
		out = append(out, ev.Topic)
	}
	return out
}
