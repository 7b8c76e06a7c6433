package billing

import (
	"fmt"
	"time"

	"github.com/warp/freight-engine/generic"
)

// =============================================================================
// INVOICE
// =============================================================================

type InvoiceStatus string

const (
	StatusPending       InvoiceStatus = "pending"
	StatusPartiallyPaid InvoiceStatus = "partially_paid"
	StatusPaid          InvoiceStatus = "paid"
	StatusOverdue       InvoiceStatus = "overdue"
	StatusCancelled     InvoiceStatus = "cancelled"
)

// OpenStatuses are the statuses a late-fee sweep looks at.
var OpenStatuses = []InvoiceStatus{StatusPending, StatusPartiallyPaid, StatusOverdue}

func ParseInvoiceStatus(s string) (InvoiceStatus, error) {
	switch st := InvoiceStatus(s); st {
	case StatusPending, StatusPartiallyPaid, StatusPaid, StatusOverdue, StatusCancelled:
		return st, nil
	default:
		return "", fmt.Errorf("unknown invoice status %q", s)
	}
}

// IsClosed is true for statuses that never accrue fees or accept payments.
func (s InvoiceStatus) IsClosed() bool { return s == StatusPaid || s == StatusCancelled }

// Invoice is owned by the store; the engine reads it and derives new values.
type Invoice struct {
	ID            string
	ContractID    string
	ReferenceDate generic.Date
	DueDate       generic.Date
	Principal     generic.Amount
	LateFees      generic.Amount
	Paid          generic.Amount
	Status        InvoiceStatus
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewInvoice returns a pending invoice with no fees or payments.
func NewInvoice(id, contractID string, reference, due generic.Date, principal generic.Amount) Invoice {
	return Invoice{
		ID:            id,
		ContractID:    contractID,
		ReferenceDate: reference,
		DueDate:       due,
		Principal:     principal,
		LateFees:      principal.Zero(),
		Paid:          principal.Zero(),
		Status:        StatusPending,
	}
}

// DueAmount is principal plus late fees.
func (inv Invoice) DueAmount() generic.Amount { return inv.Principal.Add(inv.LateFees) }

// Outstanding is what remains to be paid.
func (inv Invoice) Outstanding() generic.Amount { return inv.DueAmount().Sub(inv.Paid) }

// IsOverdueOn reports whether the invoice is past due on the given day.
func (inv Invoice) IsOverdueOn(today generic.Date) bool {
	return inv.DueDate.Before(today) && !inv.Status.IsClosed()
}

// DaysOverdue is the whole days between the due date and today, or 0.
func (inv Invoice) DaysOverdue(today generic.Date) int {
	if !inv.DueDate.Before(today) {
		return 0
	}
	return generic.DaysBetween(inv.DueDate, today)
}

// ApplyPayment records a payment against the outstanding amount.
func (inv *Invoice) ApplyPayment(amount generic.Amount) error {
	if inv.Status.IsClosed() {
		return fmt.Errorf("%w: invoice %s is %s", generic.ErrInvoiceClosed, inv.ID, inv.Status)
	}
	if !amount.IsPositive() {
		return fmt.Errorf("%w: amount must be positive, got %s", generic.ErrInvalidPayment, amount)
	}
	if amount.Currency != inv.Principal.Currency {
		return fmt.Errorf("%w: payment in %s for a %s invoice", generic.ErrInvalidPayment, amount.Currency, inv.Principal.Currency)
	}
	if amount.GreaterThan(inv.Outstanding()) {
		return fmt.Errorf("%w: %s exceeds outstanding %s", generic.ErrInvalidPayment, amount, inv.Outstanding())
	}

	inv.Paid = inv.Paid.Add(amount)
	switch {
	case inv.Outstanding().IsZero():
		inv.Status = StatusPaid
	case inv.Status == StatusPending:
		inv.Status = StatusPartiallyPaid
	}
	return nil
}

// Cancel closes an invoice that has not been paid in full.
func (inv *Invoice) Cancel() error {
	if inv.Status.IsClosed() {
		return fmt.Errorf("%w: invoice %s is %s", generic.ErrInvoiceClosed, inv.ID, inv.Status)
	}
	inv.Status = StatusCancelled
	return nil
}
