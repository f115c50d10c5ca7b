package usecase

import (
	"context"
	"strings"
	"sync"

	"github.com/google/uuid"

	"github.com/mvigliero/celushop/internal/domain"
)

// In-memory repos for unit tests. mockOrderRepo mirrors the real adapter's
// transaction semantics: guards run against all lines before anything is
// applied, so a failed placement changes nothing.

type mockProductRepo struct {
	mu       sync.Mutex
	products map[uuid.UUID]*domain.Product
}

func newMockProductRepo(seed ...*domain.Product) *mockProductRepo {
	m := &mockProductRepo{products: map[uuid.UUID]*domain.Product{}}
	for _, p := range seed {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockProductRepo) Save(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = p
	return nil
}

func (m *mockProductRepo) ReplaceVariants(_ context.Context, productID uuid.UUID, variants []domain.Variant) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[productID]
	if !ok {
		return domain.ErrNotFound
	}
	p.Variants = variants
	return nil
}

func (m *mockProductRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return p, nil
}

func (m *mockProductRepo) FindBySlug(_ context.Context, slug string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, p := range m.products {
		if p.Slug == slug {
			return p, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockProductRepo) List(_ context.Context, _ domain.ProductFilter) ([]domain.Product, int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Product, 0, len(m.products))
	for _, p := range m.products {
		out = append(out, *p)
	}
	return out, int64(len(out)), nil
}

// stockOf returns a pointer to the stock cell an adjustment addresses.
func (m *mockProductRepo) stockOf(adj domain.StockAdjustment) *int {
	p, ok := m.products[adj.ProductID]
	if !ok {
		return nil
	}
	switch adj.Level {
	case domain.StockLevelBase:
		return p.BaseStock
	case domain.StockLevelVariant:
		if v := p.FindVariant(adj.RowID); v != nil {
			return v.Stock
		}
	case domain.StockLevelStorage:
		for i := range p.Variants {
			for j := range p.Variants[i].StorageOptions {
				if p.Variants[i].StorageOptions[j].ID == adj.RowID {
					return &p.Variants[i].StorageOptions[j].Stock
				}
			}
		}
	case domain.StockLevelSize:
		for i := range p.Variants {
			for j := range p.Variants[i].SizeOptions {
				if p.Variants[i].SizeOptions[j].ID == adj.RowID {
					return &p.Variants[i].SizeOptions[j].Stock
				}
			}
		}
	}
	return nil
}

type mockDiscountRepo struct {
	mu        sync.Mutex
	discounts map[uuid.UUID]*domain.Discount
}

func newMockDiscountRepo(seed ...*domain.Discount) *mockDiscountRepo {
	m := &mockDiscountRepo{discounts: map[uuid.UUID]*domain.Discount{}}
	for _, d := range seed {
		m.discounts[d.ID] = d
	}
	return m
}

func (m *mockDiscountRepo) Save(_ context.Context, d *domain.Discount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.discounts[d.ID] = d
	return nil
}

func (m *mockDiscountRepo) FindByCode(_ context.Context, code string) (*domain.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, d := range m.discounts {
		if strings.EqualFold(d.Code, strings.TrimSpace(code)) {
			return d, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockDiscountRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if d, ok := m.discounts[id]; ok {
		return d, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockDiscountRepo) List(_ context.Context) ([]domain.Discount, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Discount, 0, len(m.discounts))
	for _, d := range m.discounts {
		out = append(out, *d)
	}
	return out, nil
}

type mockCartRepo struct {
	mu    sync.Mutex
	carts map[uuid.UUID]*domain.Cart // keyed by user id
}

func newMockCartRepo() *mockCartRepo {
	return &mockCartRepo{carts: map[uuid.UUID]*domain.Cart{}}
}

func (m *mockCartRepo) FindByUser(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCartRepo) GetOrCreate(_ context.Context, userID uuid.UUID) (*domain.Cart, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.carts[userID]; ok {
		return c, nil
	}
	c := &domain.Cart{ID: uuid.New(), UserID: userID}
	m.carts[userID] = c
	return c, nil
}

func (m *mockCartRepo) UpsertItem(_ context.Context, cartID uuid.UUID, item domain.CartItem) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byCartID(cartID)
	if c == nil {
		return domain.ErrNotFound
	}
	item.CartID = cartID
	c.Items = append(c.Items, item)
	return nil
}

func (m *mockCartRepo) SetItemQty(_ context.Context, cartID, itemID uuid.UUID, qty int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byCartID(cartID)
	if c == nil {
		return domain.ErrNotFound
	}
	for i := range c.Items {
		if c.Items[i].ID == itemID {
			c.Items[i].Qty = qty
			return nil
		}
	}
	return domain.ErrNotFound
}

func (m *mockCartRepo) RemoveItem(_ context.Context, cartID, itemID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c := m.byCartID(cartID)
	if c == nil {
		return domain.ErrNotFound
	}
	kept := c.Items[:0]
	for _, it := range c.Items {
		if it.ID != itemID {
			kept = append(kept, it)
		}
	}
	c.Items = kept
	return nil
}

func (m *mockCartRepo) Clear(_ context.Context, cartID uuid.UUID) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c := m.byCartID(cartID); c != nil {
		c.Items = nil
	}
	return nil
}

func (m *mockCartRepo) byCartID(cartID uuid.UUID) *domain.Cart {
	for _, c := range m.carts {
		if c.ID == cartID {
			return c
		}
	}
	return nil
}

type mockCustomerRepo struct {
	mu        sync.Mutex
	customers map[uuid.UUID]*domain.Customer
}

func newMockCustomerRepo(seed ...*domain.Customer) *mockCustomerRepo {
	m := &mockCustomerRepo{customers: map[uuid.UUID]*domain.Customer{}}
	for _, c := range seed {
		m.customers[c.ID] = c
	}
	return m
}

func (m *mockCustomerRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if c, ok := m.customers[id]; ok {
		return c, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockCustomerRepo) FindByEmail(_ context.Context, email string) (*domain.Customer, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, c := range m.customers {
		if strings.EqualFold(c.Email, email) {
			return c, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockCustomerRepo) Save(_ context.Context, c *domain.Customer) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.customers[c.ID] = c
	return nil
}

func (m *mockCustomerRepo) AddAddress(_ context.Context, customerID uuid.UUID, addr domain.Address) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.customers[customerID]
	if !ok {
		return domain.ErrNotFound
	}
	c.Addresses = append(c.Addresses, addr)
	return nil
}

type mockOrderRepo struct {
	mu        sync.Mutex
	products  *mockProductRepo
	discounts *mockDiscountRepo
	carts     *mockCartRepo
	orders    map[uuid.UUID]*domain.Order
}

func newMockOrderRepo(products *mockProductRepo, discounts *mockDiscountRepo, carts *mockCartRepo) *mockOrderRepo {
	return &mockOrderRepo{
		products:  products,
		discounts: discounts,
		carts:     carts,
		orders:    map[uuid.UUID]*domain.Order{},
	}
}

func (m *mockOrderRepo) Create(_ context.Context, o *domain.Order, effects domain.CreateOrderEffects) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products.mu.Lock()
	defer m.products.mu.Unlock()

	// Guards first: nothing is applied unless every line and the discount
	// pass, matching the real adapter's rollback.
	for _, adj := range effects.Decrements {
		cell := m.products.stockOf(adj)
		if cell == nil || *cell < adj.Qty {
			return &domain.InsufficientStockError{ProductName: adj.ProductName}
		}
	}
	var disc *domain.Discount
	if effects.DiscountID != nil {
		d, ok := m.discounts.discounts[*effects.DiscountID]
		if !ok || !d.Active || (d.UsageLimit > 0 && d.UsedCount >= d.UsageLimit) {
			return domain.ErrDiscountInvalid
		}
		disc = d
	}

	for _, adj := range effects.Decrements {
		cell := m.products.stockOf(adj)
		*cell -= adj.Qty
	}
	if disc != nil {
		disc.UsedCount++
	}
	if effects.ClearCartID != nil {
		if c := m.carts.byCartID(*effects.ClearCartID); c != nil {
			c.Items = nil
		}
	}
	stored := *o
	m.orders[o.ID] = &stored
	return nil
}

func (m *mockOrderRepo) FindByID(_ context.Context, id uuid.UUID) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if o, ok := m.orders[id]; ok {
		cp := *o
		return &cp, nil
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepo) FindByNumber(_ context.Context, number string) (*domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, o := range m.orders {
		if o.Number == number {
			cp := *o
			return &cp, nil
		}
	}
	return nil, domain.ErrNotFound
}

func (m *mockOrderRepo) ListByUser(_ context.Context, userID uuid.UUID) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []domain.Order{}
	for _, o := range m.orders {
		if o.UserID == userID {
			out = append(out, *o)
		}
	}
	return out, nil
}

func (m *mockOrderRepo) UpdateStatus(_ context.Context, id uuid.UUID, from, to domain.OrderStatus) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.ErrNotFound
	}
	if o.Status != from {
		return &domain.InvalidTransitionError{From: o.Status, To: to}
	}
	o.Status = to
	return nil
}

func (m *mockOrderRepo) CancelAndRestock(_ context.Context, o *domain.Order, increments []domain.StockAdjustment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	stored, ok := m.orders[o.ID]
	if !ok {
		return domain.ErrNotFound
	}
	if stored.Status != domain.OrderStatusPending {
		return &domain.InvalidTransitionError{From: stored.Status, To: domain.OrderStatusCancelled}
	}
	stored.Status = domain.OrderStatusCancelled
	m.products.mu.Lock()
	defer m.products.mu.Unlock()
	for _, adj := range increments {
		if cell := m.products.stockOf(adj); cell != nil {
			*cell += adj.Qty
		}
	}
	o.Status = domain.OrderStatusCancelled
	return nil
}
