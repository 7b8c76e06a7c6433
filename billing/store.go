/*
store.go - Persistence interfaces for invoices and late-fee configuration

PURPOSE:
  Defines what the billing engine needs from the persistence layer. The
  engine never holds invoices across calls: it loads, derives new values and
  writes them back.

KEY INTERFACES:
  InvoiceStore: CRUD over invoices keyed by id, queryable by due date/status,
                plus a guarded late-fee write for sweeps
  TxStore:      InvoiceStore with all-or-nothing WithTx
  RateConfig:   daily late-fee rate per fee category
  RunRecorder:  optional audit trail of accrual sweeps

IMPLEMENTATIONS:
  - store/memory/memory.go: in-memory, snapshot/rollback transactions
  - store/sqlstore/sqlstore.go: SQLite or MySQL via database/sql
*/

package billing

import (
	"context"
	"time"

	"github.com/warp/freight-engine/generic"
)

// InvoiceFilter selects invoices. Zero fields match everything.
type InvoiceFilter struct {
	ContractID string
	Statuses   []InvoiceStatus
	// DueBefore keeps invoices whose due date is strictly before it.
	DueBefore *generic.Date
	Limit     int
}

// OutstandingBefore selects open invoices due strictly before day.
func OutstandingBefore(day generic.Date) InvoiceFilter {
	return InvoiceFilter{Statuses: OpenStatuses, DueBefore: &day}
}

// Matches applies the filter to one invoice (Limit is ignored).
func (f InvoiceFilter) Matches(inv Invoice) bool {
	if f.ContractID != "" && inv.ContractID != f.ContractID {
		return false
	}
	if f.DueBefore != nil && !inv.DueDate.Before(*f.DueBefore) {
		return false
	}
	if len(f.Statuses) == 0 {
		return true
	}
	for _, s := range f.Statuses {
		if inv.Status == s {
			return true
		}
	}
	return false
}

type InvoiceStore interface {
	// CreateInvoice fails with ErrDuplicateInvoice when the id exists.
	CreateInvoice(ctx context.Context, inv Invoice) error

	// GetInvoice fails with ErrInvoiceNotFound.
	GetInvoice(ctx context.Context, id string) (*Invoice, error)

	// UpdateInvoice overwrites an existing invoice.
	UpdateInvoice(ctx context.Context, inv Invoice) error

	// UpdateLateFee writes inv's late fees, status and updated_at, and
	// nothing else, while the stored invoice is still open and its paid
	// total equals inv.Paid. It reports false when a payment or
	// cancellation got there first.
	UpdateLateFee(ctx context.Context, inv Invoice) (bool, error)

	// ListInvoices returns matches ordered by due date, then id.
	ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error)
}

// TxStore runs fn atomically: if fn returns an error nothing it wrote is kept.
type TxStore interface {
	InvoiceStore
	WithTx(ctx context.Context, fn func(InvoiceStore) error) error
}

// CategoryInvoices is the fee category used for invoice late fees.
const CategoryInvoices = "invoices"

// RateConfig returns the configured daily late-fee rate for a category.
// found=false means the category has no rate; that is a configuration error
// for the caller, never a silent zero.
type RateConfig interface {
	DailyRate(ctx context.Context, category string) (rate generic.Amount, found bool, err error)
}

// StaticRates is a fixed RateConfig, used for env-provided rates and tests.
type StaticRates map[string]generic.Amount

func (r StaticRates) DailyRate(_ context.Context, category string) (generic.Amount, bool, error) {
	rate, ok := r[category]
	return rate, ok, nil
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

type RunStatus string

const (
	RunRunning   RunStatus = "running"
	RunCompleted RunStatus = "completed"
	RunFailed    RunStatus = "failed"
)

// AccrualRun records one sweep.
type AccrualRun struct {
	ID          string
	AsOf        generic.Date
	Status      RunStatus
	Updated     int
	Error       string
	StartedAt   time.Time
	CompletedAt *time.Time
}

// RunRecorder is implemented by stores that keep sweep history.
type RunRecorder interface {
	SaveAccrualRun(ctx context.Context, run AccrualRun) error
	ListAccrualRuns(ctx context.Context, limit int) ([]AccrualRun, error)
}
