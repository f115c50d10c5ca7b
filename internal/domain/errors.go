package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNotFound   = errors.New("not found")
	ErrEmptyOrder = errors.New("order has no items")

	// ErrDiscountInvalid covers every discount failure mode. Callers get no
	// hint of which condition failed, so codes cannot be probed.
	ErrDiscountInvalid = errors.New("discount code is not valid")
)

// ValidationError names the offending field. Position is the 1-based index
// of the variant the field belongs to, zero for product-level fields.
type ValidationError struct {
	Field    string
	Position int
	Msg      string
}

func (e *ValidationError) Error() string {
	if e.Position > 0 {
		return fmt.Sprintf("variant %d: %s %s", e.Position, e.Field, e.Msg)
	}
	return fmt.Sprintf("%s %s", e.Field, e.Msg)
}

// InsufficientStockError names the product only, never the remaining count.
type InsufficientStockError struct {
	ProductName string
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("insufficient stock for %s", e.ProductName)
}

type InvalidTransitionError struct {
	From OrderStatus
	To   OrderStatus
}

func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot transition order from %s to %s", e.From, e.To)
}
