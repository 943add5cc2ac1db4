package domain

import (
	"fmt"

	"github.com/pkg/errors"
)

// Error classes. Callers test with errors.Is; the request layer maps each
// class to a response status.
var (
	ErrValidation        = errors.New("validation failed")
	ErrNotFound          = errors.New("not found")
	ErrInsufficientStock = errors.New("insufficient stock")
	ErrConflict          = errors.New("conflict")
	ErrEmptyCart         = errors.New("cart is empty")
	ErrUnauthorized      = errors.New("unauthorized")
)

// ValidationError describes malformed input
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *ValidationError) Is(target error) bool {
	return target == ErrValidation
}

// NewValidationError returns a ValidationError for field
func NewValidationError(field, message string) error {
	return &ValidationError{Field: field, Message: message}
}

// StockError reports a requested quantity above the on-hand quantity
type StockError struct {
	ProductID int64
	Name      string
	Available int
	Requested int
	InCart    int
}

func (e *StockError) Error() string {
	if e.InCart > 0 {
		return fmt.Sprintf("insufficient stock for %q: available %d, already in cart %d, requested %d",
			e.Name, e.Available, e.InCart, e.Requested)
	}
	return fmt.Sprintf("insufficient stock for %q: available %d, requested %d", e.Name, e.Available, e.Requested)
}

func (e *StockError) Is(target error) bool {
	return target == ErrInsufficientStock
}

// ConflictError reports an operation blocked by existing references
type ConflictError struct {
	Message    string
	References int64
}

func (e *ConflictError) Error() string {
	return e.Message
}

func (e *ConflictError) Is(target error) bool {
	return target == ErrConflict
}

// NotFoundf wraps ErrNotFound with the missing entity description
func NotFoundf(format string, args ...interface{}) error {
	return errors.Wrapf(ErrNotFound, format, args...)
}
