package usecase

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"

	"github.com/mvigliero/celushop/internal/domain"
)

// OrderLineInput is one requested line of a placement. OptionKey selects a
// storage capacity or size label when the variant prices through options.
type OrderLineInput struct {
	ProductID uuid.UUID  `json:"productId"`
	VariantID *uuid.UUID `json:"variantId"`
	OptionKey string     `json:"optionKey"`
	Qty       int        `json:"qty"`
}

type PlaceOrderOptions struct {
	DiscountCode string
	SaveAddress  bool
}

// Orders totalling at least this much ship free. The same constant doubles
// as a unit-count waiver.
// TODO: confirm the 2500-unit quantity waiver with sales; it mirrors the
// price threshold and trips on bulk orders.
const freeShippingThreshold = 2500

type OrderUC struct {
	Orders    domain.OrderRepo
	Products  domain.ProductRepo
	Carts     domain.CartRepo
	Discounts domain.DiscountRepo
	Customers domain.CustomerRepo
	Notifier  domain.Notifier
	Audit     domain.AuditLog

	// Parallelism cap for product loads while pricing a placement.
	MaxConcurrent int
}

type pricedLine struct {
	input      OrderLineInput
	product    *domain.Product
	resolution domain.PriceResolution
}

// PlaceOrder prices every requested line, applies the discount and ships the
// whole placement through one atomic repo write: either the order exists and
// every line's stock came down, or nothing changed.
func (uc *OrderUC) PlaceOrder(ctx context.Context, userID uuid.UUID, lines []OrderLineInput, addr domain.ShippingAddress, opts PlaceOrderOptions) (*domain.Order, error) {
	return uc.place(ctx, userID, lines, addr, opts, nil)
}

// PlaceOrderFromCart reads the user's cart and places it. The cart's items
// are cleared inside the same transaction that persists the order, so a
// failed placement leaves the cart untouched.
func (uc *OrderUC) PlaceOrderFromCart(ctx context.Context, userID uuid.UUID, addr domain.ShippingAddress, opts PlaceOrderOptions) (*domain.Order, error) {
	cart, err := uc.Carts.FindByUser(ctx, userID)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, domain.ErrEmptyOrder
		}
		return nil, err
	}
	lines := make([]OrderLineInput, 0, len(cart.Items))
	for _, it := range cart.Items {
		if it.Qty <= 0 {
			continue
		}
		lines = append(lines, OrderLineInput{
			ProductID: it.ProductID,
			VariantID: it.VariantID,
			OptionKey: it.OptionKey,
			Qty:       it.Qty,
		})
	}
	return uc.place(ctx, userID, lines, addr, opts, &cart.ID)
}

func (uc *OrderUC) place(ctx context.Context, userID uuid.UUID, lines []OrderLineInput, addr domain.ShippingAddress, opts PlaceOrderOptions, cartID *uuid.UUID) (*domain.Order, error) {
	if len(lines) == 0 {
		return nil, domain.ErrEmptyOrder
	}
	for _, l := range lines {
		if l.Qty <= 0 {
			return nil, &domain.ValidationError{Field: "qty", Msg: "must be positive"}
		}
	}

	priced, err := uc.priceLines(ctx, lines)
	if err != nil {
		return nil, err
	}

	// Pre-flight stock check. The authoritative check is the conditional
	// decrement at commit time; this one just fails fast with a clear error.
	for _, pl := range priced {
		if pl.input.Qty > pl.resolution.Stock {
			return nil, &domain.InsufficientStockError{ProductName: pl.product.Name}
		}
	}

	totalPrice := 0.0
	totalQty := 0
	shippingByProduct := map[uuid.UUID]float64{}
	for _, pl := range priced {
		totalPrice += pl.resolution.EffectiveUnit() * float64(pl.input.Qty)
		totalQty += pl.input.Qty
		// Shipping is charged once per distinct product, however many
		// variants of it the order carries.
		shippingByProduct[pl.product.ID] = pl.product.ShippingCost
	}
	totalShipping := 0.0
	for _, c := range shippingByProduct {
		totalShipping += c
	}

	var discount *domain.Discount
	discountAmount := 0.0
	if opts.DiscountCode != "" {
		discount, discountAmount, err = uc.evaluateDiscount(ctx, opts.DiscountCode, totalPrice, priced)
		if err != nil {
			return nil, err
		}
		totalPrice -= discountAmount
	}

	if totalPrice >= freeShippingThreshold || totalQty >= freeShippingThreshold {
		totalShipping = 0
	}

	now := time.Now()
	o := &domain.Order{
		ID:              uuid.New(),
		Number:          domain.NewOrderNumber(now),
		UserID:          userID,
		Status:          domain.OrderStatusPending,
		TotalPrice:      totalPrice,
		TotalShipping:   totalShipping,
		DiscountAmount:  discountAmount,
		ShippingAddress: addr,
	}
	effects := domain.CreateOrderEffects{ClearCartID: cartID}
	if discount != nil {
		o.DiscountID = &discount.ID
		effects.DiscountID = &discount.ID
	}
	for _, pl := range priced {
		o.Items = append(o.Items, domain.OrderItem{
			ID:        uuid.New(),
			OrderID:   o.ID,
			ProductID: pl.product.ID,
			VariantID: pl.input.VariantID,
			OptionKey: pl.input.OptionKey,
			Title:     pl.product.Name,
			Color:     variantColor(pl.product, pl.input.VariantID),
			SKU:       pl.resolution.SKU,
			Qty:       pl.input.Qty,
			UnitPrice: pl.resolution.EffectiveUnit(),
		})
		effects.Decrements = append(effects.Decrements, domain.StockAdjustment{
			Level:       pl.resolution.Level,
			RowID:       pl.resolution.RowID,
			ProductID:   pl.product.ID,
			ProductName: pl.product.Name,
			Qty:         pl.input.Qty,
		})
	}

	if err := uc.Orders.Create(ctx, o, effects); err != nil {
		return nil, err
	}

	if opts.SaveAddress {
		uc.saveAddress(ctx, userID, addr)
	}

	uc.record(ctx, userID.String(), "order.created", o.Number)
	if uc.Notifier != nil {
		go uc.Notifier.OrderCreated(context.WithoutCancel(ctx), o)
	}
	return o, nil
}

// priceLines loads each line's product and resolves its effective price and
// stock source. Loads fan out with a bounded errgroup; all reads, no writes.
func (uc *OrderUC) priceLines(ctx context.Context, lines []OrderLineInput) ([]pricedLine, error) {
	priced := make([]pricedLine, len(lines))
	g, ctx := errgroup.WithContext(ctx)
	limit := uc.MaxConcurrent
	if limit <= 0 {
		limit = 8
	}
	g.SetLimit(limit)
	for idx := range lines {
		idx := idx
		g.Go(func() error {
			line := lines[idx]
			p, err := uc.Products.FindByID(ctx, line.ProductID)
			if err != nil {
				return err
			}
			res, err := domain.ResolvePrice(p, line.VariantID, line.OptionKey)
			if err != nil {
				return err
			}
			priced[idx] = pricedLine{input: line, product: p, resolution: res}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return priced, nil
}

// evaluateDiscount resolves the code against the order. Every failure mode
// collapses to the same generic error so callers cannot probe codes.
func (uc *OrderUC) evaluateDiscount(ctx context.Context, code string, orderTotal float64, priced []pricedLine) (*domain.Discount, float64, error) {
	d, err := uc.Discounts.FindByCode(ctx, code)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return nil, 0, domain.ErrDiscountInvalid
		}
		return nil, 0, err
	}
	productIDs := make([]uuid.UUID, 0, len(priced))
	categories := make([]string, 0, len(priced))
	for _, pl := range priced {
		productIDs = append(productIDs, pl.product.ID)
		if pl.product.Category != "" {
			categories = append(categories, pl.product.Category)
		}
	}
	if !d.EligibleFor(orderTotal, productIDs, categories, time.Now()) {
		return nil, 0, domain.ErrDiscountInvalid
	}
	return d, d.AmountFor(orderTotal), nil
}

// saveAddress appends the shipping address to the customer's saved list,
// skipping duplicates. Failures only warn: the order already exists.
func (uc *OrderUC) saveAddress(ctx context.Context, userID uuid.UUID, addr domain.ShippingAddress) {
	if uc.Customers == nil {
		return
	}
	c, err := uc.Customers.FindByID(ctx, userID)
	if err != nil {
		log.Warn().Err(err).Str("user", userID.String()).Msg("save address: load customer")
		return
	}
	for _, existing := range c.Addresses {
		if existing.Matches(addr) {
			return
		}
	}
	err = uc.Customers.AddAddress(ctx, userID, domain.Address{
		ID:         uuid.New(),
		CustomerID: userID,
		Street:     addr.Street,
		City:       addr.City,
		Province:   addr.Province,
		PostalCode: addr.PostalCode,
		Country:    addr.Country,
		Phone:      addr.Phone,
	})
	if err != nil {
		log.Warn().Err(err).Str("user", userID.String()).Msg("save address")
	}
}

// CancelOrder cancels a pending order owned by userID and restores every
// line's stock. Non-pending orders are rejected, which also keeps the
// restore from ever running twice.
func (uc *OrderUC) CancelOrder(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	if o.Status != domain.OrderStatusPending {
		return nil, &domain.InvalidTransitionError{From: o.Status, To: domain.OrderStatusCancelled}
	}

	increments := uc.restockAdjustments(ctx, o)
	if err := uc.Orders.CancelAndRestock(ctx, o, increments); err != nil {
		return nil, err
	}

	uc.record(ctx, userID.String(), "order.cancelled", o.Number)
	if uc.Notifier != nil {
		go uc.Notifier.OrderStatusChanged(context.WithoutCancel(ctx), o, domain.OrderStatusPending)
	}
	return o, nil
}

// restockAdjustments re-resolves each item's stock row from the live
// catalog. Rows removed since the sale are skipped with a warning; restoring
// stock must not fail the cancellation.
func (uc *OrderUC) restockAdjustments(ctx context.Context, o *domain.Order) []domain.StockAdjustment {
	increments := make([]domain.StockAdjustment, 0, len(o.Items))
	for _, it := range o.Items {
		p, err := uc.Products.FindByID(ctx, it.ProductID)
		if err != nil {
			log.Warn().Err(err).Str("order", o.Number).Str("product", it.ProductID.String()).Msg("restock: product gone")
			continue
		}
		res, err := domain.ResolvePrice(p, it.VariantID, it.OptionKey)
		if err != nil {
			log.Warn().Err(err).Str("order", o.Number).Str("product", p.Name).Msg("restock: line unresolvable")
			continue
		}
		increments = append(increments, domain.StockAdjustment{
			Level:       res.Level,
			RowID:       res.RowID,
			ProductID:   p.ID,
			ProductName: p.Name,
			Qty:         it.Qty,
		})
	}
	return increments
}

// UpdateOrderStatus applies an administrative one-way transition. It never
// touches stock; cancellation has its own path.
func (uc *OrderUC) UpdateOrderStatus(ctx context.Context, orderID uuid.UUID, next domain.OrderStatus) (*domain.Order, error) {
	if !next.Valid() {
		return nil, &domain.ValidationError{Field: "status", Msg: "is not a known status"}
	}
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if next == domain.OrderStatusCancelled || !o.Status.CanTransition(next) {
		return nil, &domain.InvalidTransitionError{From: o.Status, To: next}
	}
	previous := o.Status
	if err := uc.Orders.UpdateStatus(ctx, o.ID, previous, next); err != nil {
		return nil, err
	}
	o.Status = next

	uc.record(ctx, "admin", "order.status."+string(next), o.Number)
	if uc.Notifier != nil {
		go uc.Notifier.OrderStatusChanged(context.WithoutCancel(ctx), o, previous)
	}
	return o, nil
}

func (uc *OrderUC) Get(ctx context.Context, userID, orderID uuid.UUID) (*domain.Order, error) {
	o, err := uc.Orders.FindByID(ctx, orderID)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

// GetByNumber looks an order up by its customer-facing number. Orders of
// other users read as not found.
func (uc *OrderUC) GetByNumber(ctx context.Context, userID uuid.UUID, number string) (*domain.Order, error) {
	o, err := uc.Orders.FindByNumber(ctx, number)
	if err != nil {
		return nil, err
	}
	if o.UserID != userID {
		return nil, domain.ErrNotFound
	}
	return o, nil
}

func (uc *OrderUC) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.Order, error) {
	return uc.Orders.ListByUser(ctx, userID)
}

func (uc *OrderUC) record(ctx context.Context, actor, action, ref string) {
	if uc.Audit == nil {
		return
	}
	uc.Audit.Record(ctx, domain.AuditEvent{
		Actor:  actor,
		Action: action,
		Entity: "order",
		Ref:    ref,
		At:     time.Now(),
	})
}

func variantColor(p *domain.Product, variantID *uuid.UUID) string {
	if variantID == nil {
		return ""
	}
	if v := p.FindVariant(*variantID); v != nil {
		return v.Color
	}
	return ""
}
