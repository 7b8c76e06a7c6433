/*
errors.go - Centralized error types for the freight engine

PURPOSE:
  All error types in one place for consistency and discoverability.
  Packages return the structured errors below; callers classify them with
  errors.Is against the sentinels or with the helpers at the bottom.

ERROR CATEGORIES:
  1. Input errors - bad contract parameters, non-positive quantities,
     zero divisors, unknown payment terms coming from a request
  2. Configuration errors - missing late-fee rate, broken term schedules
  3. Upstream errors - geocoding and rate-table collaborators
  4. Store errors - missing or duplicate invoices

RETRY POLICY:
  Nothing in the core retries. Upstream errors propagate unchanged; a sweep
  aborted by a missing rate runs again on the next scheduled cycle.

SEE ALSO:
  - recurrence/calculator.go: InvalidRecurrenceError
  - billing/schedule.go: UnknownPaymentTermError
  - billing/accrual.go: MissingRateConfigError
  - quote/aggregate.go: NonPositiveQuantityError, DivisionByZeroError
*/

package generic

import (
	"errors"
	"fmt"
)

// =============================================================================
// SENTINEL ERRORS - Use with errors.Is()
// =============================================================================

var (
	// ErrInvalidRecurrence is returned for malformed contract recurrence parameters.
	ErrInvalidRecurrence = errors.New("invalid recurrence")

	// ErrUnknownPaymentTerm is returned for payment-term codes outside the closed set.
	ErrUnknownPaymentTerm = errors.New("unknown payment term")

	// ErrMissingRateConfig is returned when no late-fee rate is configured.
	ErrMissingRateConfig = errors.New("missing late fee rate configuration")

	// ErrDivisionByZero is returned when a reporting rate would divide by zero.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrNonPositiveQuantity is returned when a price or count is not positive.
	ErrNonPositiveQuantity = errors.New("non-positive quantity")

	// ErrGeocoding is returned by distance providers.
	ErrGeocoding = errors.New("geocoding failed")

	// ErrUnsupportedConfiguration is returned by rate tables for unknown combinations.
	ErrUnsupportedConfiguration = errors.New("unsupported configuration")

	// ErrBillingRollover means a payment term found no candidate after one month hop.
	ErrBillingRollover = errors.New("billing date rollover exceeded")

	// ErrInvoiceNotFound is returned when a referenced invoice doesn't exist.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrDuplicateInvoice is returned when an invoice id already exists.
	ErrDuplicateInvoice = errors.New("duplicate invoice")

	// ErrInvalidPayment is returned for non-positive payments or overpayments.
	ErrInvalidPayment = errors.New("invalid payment")

	// ErrInvoiceClosed is returned when mutating a paid or cancelled invoice.
	ErrInvoiceClosed = errors.New("invoice closed")

	// ErrInvalidPeriod is returned when a period is malformed (end before start).
	ErrInvalidPeriod = errors.New("invalid period: end before start")

	// ErrLockNotAcquired is returned when a run-lock can't be taken before the deadline.
	ErrLockNotAcquired = errors.New("run lock not acquired")
)

// =============================================================================
// STRUCTURED ERRORS - Carry additional context
// =============================================================================

// InvalidRecurrenceError names the offending field.
type InvalidRecurrenceError struct {
	Field  string
	Reason string
}

func (e *InvalidRecurrenceError) Error() string {
	return fmt.Sprintf("invalid recurrence: %s: %s", e.Field, e.Reason)
}

func (e *InvalidRecurrenceError) Unwrap() error { return ErrInvalidRecurrence }

// UnknownPaymentTermError carries the raw code that failed to parse.
type UnknownPaymentTermError struct {
	Term string
}

func (e *UnknownPaymentTermError) Error() string {
	return fmt.Sprintf("unknown payment term %q", e.Term)
}

func (e *UnknownPaymentTermError) Unwrap() error { return ErrUnknownPaymentTerm }

// MissingRateConfigError names the fee category without a rate.
type MissingRateConfigError struct {
	Category string
}

func (e *MissingRateConfigError) Error() string {
	return fmt.Sprintf("no daily late fee rate configured for %q", e.Category)
}

func (e *MissingRateConfigError) Unwrap() error { return ErrMissingRateConfig }

// NonPositiveQuantityError names the input that was not positive.
type NonPositiveQuantityError struct {
	Field string
	Value string
}

func (e *NonPositiveQuantityError) Error() string {
	return fmt.Sprintf("%s must be positive, got %s", e.Field, e.Value)
}

func (e *NonPositiveQuantityError) Unwrap() error { return ErrNonPositiveQuantity }

// DivisionByZeroError names the divisor.
type DivisionByZeroError struct {
	Divisor string
}

func (e *DivisionByZeroError) Error() string {
	return fmt.Sprintf("cannot compute rate per %s: divisor is zero", e.Divisor)
}

func (e *DivisionByZeroError) Unwrap() error { return ErrDivisionByZero }

// GeocodingError wraps a distance provider failure.
type GeocodingError struct {
	Origin      string
	Destination string
	Err         error
}

func (e *GeocodingError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("geocoding %s -> %s: %v", e.Origin, e.Destination, e.Err)
	}
	return fmt.Sprintf("geocoding %s -> %s failed", e.Origin, e.Destination)
}

func (e *GeocodingError) Unwrap() []error {
	if e.Err != nil {
		return []error{ErrGeocoding, e.Err}
	}
	return []error{ErrGeocoding}
}

// UnsupportedConfigurationError names the rate-table key that has no price.
type UnsupportedConfigurationError struct {
	Dimension string
	Value     string
}

func (e *UnsupportedConfigurationError) Error() string {
	return fmt.Sprintf("unsupported %s %q", e.Dimension, e.Value)
}

func (e *UnsupportedConfigurationError) Unwrap() error { return ErrUnsupportedConfiguration }

// =============================================================================
// ERROR HELPERS
// =============================================================================

// IsClientError returns true if the error is due to invalid client input.
func IsClientError(err error) bool {
	return errors.Is(err, ErrInvalidRecurrence) ||
		errors.Is(err, ErrUnknownPaymentTerm) ||
		errors.Is(err, ErrNonPositiveQuantity) ||
		errors.Is(err, ErrDivisionByZero) ||
		errors.Is(err, ErrInvalidPayment) ||
		errors.Is(err, ErrInvoiceClosed) ||
		errors.Is(err, ErrDuplicateInvoice) ||
		errors.Is(err, ErrInvalidPeriod)
}

// IsUpstream returns true for collaborator failures (geocoding, rate table).
func IsUpstream(err error) bool {
	return errors.Is(err, ErrGeocoding) || errors.Is(err, ErrUnsupportedConfiguration)
}

// IsNotFound returns true if the error indicates a missing resource.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrInvoiceNotFound)
}

// IsRetryable returns true if the error might succeed on a later cycle.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrMissingRateConfig) || errors.Is(err, ErrLockNotAcquired)
}
