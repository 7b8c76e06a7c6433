package billing

import (
	"context"
	"time"

	"github.com/warp/freight-engine/generic"
)

// Service covers the invoice operations that sit around the sweep: issuing
// invoices for a booking, recording payments and cancelling.
type Service struct {
	store TxStore
	now   func() time.Time
}

func NewService(store TxStore) *Service {
	return &Service{store: store, now: time.Now}
}

// WithNow overrides the clock for deterministic tests.
func (s *Service) WithNow(now func() time.Time) *Service {
	s.now = now
	return s
}

// IssueInvoices stores all invoices or none.
func (s *Service) IssueInvoices(ctx context.Context, invoices []Invoice) error {
	now := s.now().UTC()
	return s.store.WithTx(ctx, func(tx InvoiceStore) error {
		for _, inv := range invoices {
			if inv.CreatedAt.IsZero() {
				inv.CreatedAt = now
			}
			inv.UpdatedAt = now
			if err := tx.CreateInvoice(ctx, inv); err != nil {
				return err
			}
		}
		return nil
	})
}

func (s *Service) GetInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.store.GetInvoice(ctx, id)
}

func (s *Service) ListInvoices(ctx context.Context, filter InvoiceFilter) ([]Invoice, error) {
	return s.store.ListInvoices(ctx, filter)
}

// RecordPayment applies a payment and persists the new state.
func (s *Service) RecordPayment(ctx context.Context, id string, amount generic.Amount) (*Invoice, error) {
	return s.mutate(ctx, id, func(inv *Invoice) error { return inv.ApplyPayment(amount) })
}

// CancelInvoice closes an unpaid invoice.
func (s *Service) CancelInvoice(ctx context.Context, id string) (*Invoice, error) {
	return s.mutate(ctx, id, func(inv *Invoice) error { return inv.Cancel() })
}

func (s *Service) mutate(ctx context.Context, id string, fn func(*Invoice) error) (*Invoice, error) {
	var out *Invoice
	err := s.store.WithTx(ctx, func(tx InvoiceStore) error {
		inv, err := tx.GetInvoice(ctx, id)
		if err != nil {
			return err
		}
		if err := fn(inv); err != nil {
			return err
		}
		inv.UpdatedAt = s.now().UTC()
		if err := tx.UpdateInvoice(ctx, *inv); err != nil {
			return err
		}
		out = inv
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
