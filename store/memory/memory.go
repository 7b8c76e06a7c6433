// Package memory provides an in-memory invoice store for tests and dev.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
)

// =============================================================================
// MEMORY STORE
// =============================================================================

// Memory implements billing.TxStore, billing.RateConfig and
// billing.RunRecorder.
type Memory struct {
	mu       sync.RWMutex
	invoices map[string]billing.Invoice
	rates    map[string]generic.Amount
	runs     []billing.AccrualRun
}

func New() *Memory {
	return &Memory{
		invoices: make(map[string]billing.Invoice),
		rates:    make(map[string]generic.Amount),
	}
}

func (m *Memory) CreateInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.createLocked(inv)
}

func (m *Memory) GetInvoice(_ context.Context, id string) (*billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.getLocked(id)
}

func (m *Memory) UpdateInvoice(_ context.Context, inv billing.Invoice) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLocked(inv)
}

func (m *Memory) UpdateLateFee(_ context.Context, inv billing.Invoice) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.updateLateFeeLocked(inv), nil
}

func (m *Memory) ListInvoices(_ context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.listLocked(filter), nil
}

func (m *Memory) createLocked(inv billing.Invoice) error {
	if _, ok := m.invoices[inv.ID]; ok {
		return fmt.Errorf("%w: %s", generic.ErrDuplicateInvoice, inv.ID)
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) getLocked(id string) (*billing.Invoice, error) {
	inv, ok := m.invoices[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", generic.ErrInvoiceNotFound, id)
	}
	return &inv, nil
}

func (m *Memory) updateLocked(inv billing.Invoice) error {
	if _, ok := m.invoices[inv.ID]; !ok {
		return fmt.Errorf("%w: %s", generic.ErrInvoiceNotFound, inv.ID)
	}
	m.invoices[inv.ID] = inv
	return nil
}

func (m *Memory) updateLateFeeLocked(inv billing.Invoice) bool {
	cur, ok := m.invoices[inv.ID]
	if !ok || cur.Status.IsClosed() || !cur.Paid.Value.Equal(inv.Paid.Value) {
		return false
	}
	cur.LateFees = inv.LateFees
	cur.Status = inv.Status
	cur.UpdatedAt = inv.UpdatedAt
	m.invoices[inv.ID] = cur
	return true
}

func (m *Memory) listLocked(filter billing.InvoiceFilter) []billing.Invoice {
	var result []billing.Invoice
	for _, inv := range m.invoices {
		if filter.Matches(inv) {
			result = append(result, inv)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if !result[i].DueDate.Equal(result[j].DueDate) {
			return result[i].DueDate.Before(result[j].DueDate)
		}
		return result[i].ID < result[j].ID
	})
	if filter.Limit > 0 && len(result) > filter.Limit {
		result = result[:filter.Limit]
	}
	return result
}

// =============================================================================
// RATES
// =============================================================================

// SetRate configures the daily late-fee rate for a category.
func (m *Memory) SetRate(_ context.Context, category string, rate generic.Amount) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.rates[category] = rate
	return nil
}

func (m *Memory) DailyRate(_ context.Context, category string) (generic.Amount, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	rate, ok := m.rates[category]
	return rate, ok, nil
}

// =============================================================================
// ACCRUAL RUNS
// =============================================================================

// SaveAccrualRun inserts or replaces a run by id.
func (m *Memory) SaveAccrualRun(_ context.Context, run billing.AccrualRun) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.runs {
		if m.runs[i].ID == run.ID {
			m.runs[i] = run
			return nil
		}
	}
	m.runs = append(m.runs, run)
	return nil
}

// ListAccrualRuns returns the most recent runs first.
func (m *Memory) ListAccrualRuns(_ context.Context, limit int) ([]billing.AccrualRun, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	result := make([]billing.AccrualRun, 0, len(m.runs))
	for i := len(m.runs) - 1; i >= 0; i-- {
		result = append(result, m.runs[i])
		if limit > 0 && len(result) == limit {
			break
		}
	}
	return result, nil
}

// =============================================================================
// TRANSACTIONS
// =============================================================================

// WithTx executes fn within a transaction.
// For the memory store this is a snapshot + rollback on error.
func (m *Memory) WithTx(_ context.Context, fn func(billing.InvoiceStore) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := make(map[string]billing.Invoice, len(m.invoices))
	for k, v := range m.invoices {
		snapshot[k] = v
	}

	if err := fn(&txView{parent: m}); err != nil {
		m.invoices = snapshot
		return err
	}
	return nil
}

// txView runs against the parent while WithTx holds its lock.
type txView struct {
	parent *Memory
}

func (tv *txView) CreateInvoice(_ context.Context, inv billing.Invoice) error {
	return tv.parent.createLocked(inv)
}

func (tv *txView) GetInvoice(_ context.Context, id string) (*billing.Invoice, error) {
	return tv.parent.getLocked(id)
}

func (tv *txView) UpdateInvoice(_ context.Context, inv billing.Invoice) error {
	return tv.parent.updateLocked(inv)
}

func (tv *txView) UpdateLateFee(_ context.Context, inv billing.Invoice) (bool, error) {
	return tv.parent.updateLateFeeLocked(inv), nil
}

func (tv *txView) ListInvoices(_ context.Context, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	return tv.parent.listLocked(filter), nil
}

var (
	_ billing.TxStore     = (*Memory)(nil)
	_ billing.RateConfig  = (*Memory)(nil)
	_ billing.RunRecorder = (*Memory)(nil)
)
