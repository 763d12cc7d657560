package errors

import (
	"errors"
	"fmt"
)

// Domain error types for business logic

var (
	// ErrNotFound indicates a resource was not found
	ErrNotFound = errors.New("resource not found")

	// ErrAlreadyExists indicates a resource already exists
	ErrAlreadyExists = errors.New("resource already exists")

	// ErrInvalidInput indicates invalid input parameters
	ErrInvalidInput = errors.New("invalid input")

	// ErrInternal indicates an internal error
	ErrInternal = errors.New("internal error")

	// ErrTimeout indicates an operation timeout
	ErrTimeout = errors.New("operation timeout")

	// ErrUnavailable indicates a service is unavailable
	ErrUnavailable = errors.New("service unavailable")
)

// Liquidation-specific errors
//
// These map one-to-one onto the rejection reasons the executor reports to
// its callers. They are matched with errors.Is, never by string comparison.

var (
	// ErrPositionNotFound indicates the position does not exist
	ErrPositionNotFound = errors.New("position not found")

	// ErrPoolNotFound indicates the lending pool does not exist
	ErrPoolNotFound = errors.New("pool not found")

	// ErrPositionNotActive indicates the position is already liquidated or closed
	ErrPositionNotActive = errors.New("position not active")

	// ErrNotLiquidatable indicates the position's health factor is not below 1.0
	ErrNotLiquidatable = errors.New("position not liquidatable")

	// ErrExceedsDebt indicates debt-to-cover is greater than the outstanding debt
	ErrExceedsDebt = errors.New("debt to cover exceeds outstanding debt")

	// ErrInsufficientCollateral indicates the seizure would exceed available collateral
	ErrInsufficientCollateral = errors.New("insufficient collateral for seizure")

	// ErrPriceUnavailable indicates the price oracle could not resolve all symbols.
	// The operation is abandoned and retried on the next scheduled attempt.
	ErrPriceUnavailable = errors.New("price unavailable")

	// ErrTransactionFailed indicates the chain rejected the liquidation submission.
	// No state was mutated, so the operation is safe to retry.
	ErrTransactionFailed = errors.New("transaction submission failed")

	// ErrReconciliationRequired indicates the position was updated but the
	// liquidation record was not persisted. The on-chain transaction is already
	// submitted and cannot be rolled back; manual or automated reconciliation
	// against chain history is required.
	ErrReconciliationRequired = errors.New("reconciliation required")
)

// DomainError wraps an error with additional context
type DomainError struct {
	Code    string
	Message string
	Err     error
}

// Error implements the error interface
func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the wrapped error
func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError creates a new domain error
func NewDomainError(code, message string, err error) *DomainError {
	return &DomainError{
		Code:    code,
		Message: message,
		Err:     err,
	}
}

// Helper functions

// Is checks if err is or wraps target
func Is(err, target error) bool {
	return errors.Is(err, target)
}

// As finds the first error in err's chain that matches target type
func As(err error, target interface{}) bool {
	return errors.As(err, target)
}

// Wrap wraps an error with context
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", message, err)
}

// Wrapf wraps an error with formatted context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), err)
}

func New(message string) error {
	return errors.New(message)
}

func Newf(format string, args ...interface{}) error {
	return fmt.Errorf(format, args...)
}
