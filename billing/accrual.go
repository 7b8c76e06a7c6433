/*
accrual.go - Late-fee accrual sweep

PURPOSE:
  Periodically scans outstanding invoices and brings their late fees up to
  date. Hosts call Accrue from a scheduler (api/scheduler.go) or on demand.

FEE RULE:
  For every invoice with due_date < today and status not Paid/Cancelled:
    days_overdue = whole days from due_date to today
    late_fees    = daily_rate × days_overdue
    status       = Overdue
  The fee is recomputed from scratch and replaces the stored total. It is
  never added to it, so repeated sweeps on the same day change nothing.

ALL-OR-NOTHING:
  The daily rate is resolved before any invoice is read. A missing rate
  aborts the sweep with MissingRateConfigError and nothing is written.
  All invoice updates of one sweep happen inside a single WithTx. Fees are
  written with UpdateLateFee, so a payment or cancellation committed after
  the sweep read an invoice is never overwritten; that invoice is skipped
  and picked up by the next sweep.

SERIALIZATION:
  Sweeps run under a lock.Locker. Overlapping sweeps wait for each other
  rather than racing on the same invoice.

SEE ALSO:
  - store.go: TxStore, RateConfig, RunRecorder
  - lock/lock.go: Local and Redis lockers
  - api/scheduler.go: periodic trigger
*/

package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/lock"
	"github.com/warp/freight-engine/logging"
)

// Accruer runs late-fee sweeps.
type Accruer struct {
	Store    TxStore
	Rates    RateConfig
	Lock     lock.Locker
	Category string
	Logger   zerolog.Logger
}

// NewAccruer wires an accruer for the invoices fee category with a
// process-local lock.
func NewAccruer(store TxStore, rates RateConfig) *Accruer {
	return &Accruer{
		Store:    store,
		Rates:    rates,
		Lock:     lock.NewLocal(),
		Category: CategoryInvoices,
		Logger:   logging.WithComponent("late_fees"),
	}
}

// Accrue runs one sweep as of now and returns the invoices it changed.
func (a *Accruer) Accrue(ctx context.Context, now time.Time) ([]Invoice, error) {
	release, err := a.Lock.Acquire(ctx)
	if err != nil {
		return nil, err
	}
	defer release()

	today := generic.DateOf(now)
	run := AccrualRun{
		ID:        uuid.NewString(),
		AsOf:      today,
		Status:    RunRunning,
		StartedAt: time.Now().UTC(),
	}
	a.saveRun(ctx, run)

	updated, err := a.sweep(ctx, today, now)

	completed := time.Now().UTC()
	run.CompletedAt = &completed
	if err != nil {
		run.Status = RunFailed
		run.Error = err.Error()
		a.saveRun(ctx, run)
		a.Logger.Error().Err(err).Str("run_id", run.ID).Str("as_of", today.String()).Msg("late fee sweep aborted")
		return nil, err
	}

	run.Status = RunCompleted
	run.Updated = len(updated)
	a.saveRun(ctx, run)
	a.Logger.Info().Str("run_id", run.ID).Str("as_of", today.String()).Int("updated", len(updated)).Msg("late fee sweep completed")
	return updated, nil
}

func (a *Accruer) sweep(ctx context.Context, today generic.Date, now time.Time) ([]Invoice, error) {
	rate, err := a.dailyRate(ctx)
	if err != nil {
		return nil, err
	}

	var updated []Invoice
	err = a.Store.WithTx(ctx, func(s InvoiceStore) error {
		updated = nil
		due, err := s.ListInvoices(ctx, OutstandingBefore(today))
		if err != nil {
			return err
		}
		for _, inv := range due {
			next, changed := ApplyLateFee(inv, rate, today)
			if !changed {
				continue
			}
			next.UpdatedAt = now
			ok, err := s.UpdateLateFee(ctx, next)
			if err != nil {
				return err
			}
			if !ok {
				a.Logger.Debug().Str("invoice_id", inv.ID).Msg("invoice changed under the sweep; fee left for the next run")
				continue
			}
			updated = append(updated, next)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (a *Accruer) dailyRate(ctx context.Context) (generic.Amount, error) {
	category := a.Category
	if category == "" {
		category = CategoryInvoices
	}
	if a.Rates == nil {
		return generic.Amount{}, &generic.MissingRateConfigError{Category: category}
	}
	rate, found, err := a.Rates.DailyRate(ctx, category)
	if err != nil {
		return generic.Amount{}, err
	}
	if !found {
		return generic.Amount{}, &generic.MissingRateConfigError{Category: category}
	}
	return rate, nil
}

func (a *Accruer) saveRun(ctx context.Context, run AccrualRun) {
	rec, ok := a.Store.(RunRecorder)
	if !ok {
		return
	}
	if err := rec.SaveAccrualRun(ctx, run); err != nil {
		a.Logger.Warn().Err(err).Str("run_id", run.ID).Msg("failed to record accrual run")
	}
}

// ApplyLateFee returns the invoice with its late fee recomputed for today,
// and whether anything changed. Closed or not-yet-due invoices are returned
// unchanged.
func ApplyLateFee(inv Invoice, dailyRate generic.Amount, today generic.Date) (Invoice, bool) {
	if !inv.IsOverdueOn(today) {
		return inv, false
	}
	days := inv.DaysOverdue(today)
	fee := generic.Amount{
		Value:    dailyRate.Value.Mul(decimal.NewFromInt(int64(days))),
		Currency: inv.Principal.Currency,
	}
	if inv.Status == StatusOverdue && inv.LateFees.Value.Equal(fee.Value) {
		return inv, false
	}
	inv.LateFees = fee
	inv.Status = StatusOverdue
	return inv, true
}
