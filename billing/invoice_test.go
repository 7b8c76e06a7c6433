package billing_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/store/memory"
)

func TestInvoice_DaysOverdue(t *testing.T) {
	inv := billing.NewInvoice("inv-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(100))
	assert.Equal(t, 0, inv.DaysOverdue(d("2024-01-09")))
	assert.Equal(t, 0, inv.DaysOverdue(d("2024-01-10")))
	assert.False(t, inv.IsOverdueOn(d("2024-01-10")))
	assert.Equal(t, 1, inv.DaysOverdue(d("2024-01-11")))
	assert.True(t, inv.IsOverdueOn(d("2024-01-11")))
}

func TestInvoice_ApplyPayment(t *testing.T) {
	inv := billing.NewInvoice("inv-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(100))

	require.NoError(t, inv.ApplyPayment(usd(40)))
	assert.Equal(t, billing.StatusPartiallyPaid, inv.Status)
	assert.True(t, inv.Outstanding().Equal(usd(60)))

	err := inv.ApplyPayment(usd(61))
	assert.ErrorIs(t, err, generic.ErrInvalidPayment)

	err = inv.ApplyPayment(usd(0))
	assert.ErrorIs(t, err, generic.ErrInvalidPayment)

	err = inv.ApplyPayment(generic.NewAmountFromInt(10, generic.EUR))
	assert.ErrorIs(t, err, generic.ErrInvalidPayment)

	require.NoError(t, inv.ApplyPayment(usd(60)))
	assert.Equal(t, billing.StatusPaid, inv.Status)

	err = inv.ApplyPayment(usd(1))
	assert.ErrorIs(t, err, generic.ErrInvoiceClosed)
}

func TestInvoice_PartialPaymentKeepsOverdue(t *testing.T) {
	inv := billing.NewInvoice("inv-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(100))
	inv, _ = billing.ApplyLateFee(inv, usd(5), d("2024-01-12"))
	require.Equal(t, billing.StatusOverdue, inv.Status)

	require.NoError(t, inv.ApplyPayment(usd(50)))
	assert.Equal(t, billing.StatusOverdue, inv.Status)
	assert.True(t, inv.Outstanding().Equal(usd(60)))
}

func TestInvoice_Cancel(t *testing.T) {
	inv := billing.NewInvoice("inv-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(100))
	require.NoError(t, inv.Cancel())
	assert.Equal(t, billing.StatusCancelled, inv.Status)
	assert.ErrorIs(t, inv.Cancel(), generic.ErrInvoiceClosed)
}

func TestParseInvoiceStatus(t *testing.T) {
	st, err := billing.ParseInvoiceStatus("partially_paid")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPartiallyPaid, st)

	_, err = billing.ParseInvoiceStatus("lost")
	assert.Error(t, err)
}

// =============================================================================
// SERVICE
// =============================================================================

func TestService_IssueInvoicesIsAtomic(t *testing.T) {
	store := memory.New()
	svc := billing.NewService(store)
	ctx := context.Background()

	require.NoError(t, store.CreateInvoice(ctx, billing.NewInvoice("dup", "c-0", d("2024-01-01"), d("2024-01-10"), usd(1))))

	err := svc.IssueInvoices(ctx, []billing.Invoice{
		billing.NewInvoice("new-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(10)),
		billing.NewInvoice("dup", "c-1", d("2024-01-01"), d("2024-01-20"), usd(10)),
	})
	require.ErrorIs(t, err, generic.ErrDuplicateInvoice)

	_, err = store.GetInvoice(ctx, "new-1")
	assert.ErrorIs(t, err, generic.ErrInvoiceNotFound)
}

func TestService_RecordPaymentAndCancel(t *testing.T) {
	store := memory.New()
	now := time.Date(2024, 2, 1, 12, 0, 0, 0, time.UTC)
	svc := billing.NewService(store).WithNow(func() time.Time { return now })
	ctx := context.Background()

	require.NoError(t, svc.IssueInvoices(ctx, []billing.Invoice{
		billing.NewInvoice("inv-1", "c-1", d("2024-01-01"), d("2024-01-10"), usd(100)),
		billing.NewInvoice("inv-2", "c-1", d("2024-01-11"), d("2024-01-20"), usd(100)),
	}))

	inv, err := svc.RecordPayment(ctx, "inv-1", usd(100))
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPaid, inv.Status)
	assert.Equal(t, now, inv.UpdatedAt)

	_, err = svc.CancelInvoice(ctx, "inv-1")
	assert.ErrorIs(t, err, generic.ErrInvoiceClosed)

	inv, err = svc.CancelInvoice(ctx, "inv-2")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusCancelled, inv.Status)

	_, err = svc.RecordPayment(ctx, "missing", usd(1))
	assert.True(t, generic.IsNotFound(err))

	open, err := svc.ListInvoices(ctx, billing.InvoiceFilter{ContractID: "c-1", Statuses: billing.OpenStatuses})
	require.NoError(t, err)
	assert.Empty(t, open)
}
