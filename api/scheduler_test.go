package api_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-engine/api"
	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/store/memory"
)

func newScheduler(t *testing.T, withRate bool) (*api.LateFeeScheduler, *memory.Memory) {
	t.Helper()
	store := memory.New()
	ctx := context.Background()
	if withRate {
		require.NoError(t, store.SetRate(ctx, billing.CategoryInvoices, usd("20")))
	}
	require.NoError(t, store.CreateInvoice(ctx,
		billing.NewInvoice("a", "lane-1", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-04-05"), usd("100"))))

	accruer := billing.NewAccruer(store, store)
	accruer.Logger = logging.Nop()
	s := api.NewLateFeeScheduler(accruer).WithNow(func() time.Time { return testNow })
	s.Logger = logging.Nop()
	return s, store
}

func TestScheduler_RunsImmediatelyOnStart(t *testing.T) {
	s, store := newScheduler(t, true)
	require.NoError(t, s.Start())
	defer s.Stop()

	assert.Eventually(t, func() bool {
		inv, err := store.GetInvoice(context.Background(), "a")
		return err == nil && inv.Status == billing.StatusOverdue
	}, 2*time.Second, 10*time.Millisecond)

	inv, err := store.GetInvoice(context.Background(), "a")
	require.NoError(t, err)
	// 2024-04-05 -> 2024-04-10
	assert.True(t, inv.LateFees.Equal(usd("100")))
	assert.False(t, s.NextRun().IsZero())
}

func TestScheduler_MissingRateRecordsFailedRun(t *testing.T) {
	s, store := newScheduler(t, false)
	require.NoError(t, s.Start())

	assert.Eventually(t, func() bool {
		runs, err := store.ListAccrualRuns(context.Background(), 0)
		return err == nil && len(runs) == 1 && runs[0].Status == billing.RunFailed
	}, 2*time.Second, 10*time.Millisecond)
	s.Stop()

	inv, err := store.GetInvoice(context.Background(), "a")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, inv.Status)
}

func TestScheduler_InvalidSchedule(t *testing.T) {
	s, _ := newScheduler(t, true)
	s.Schedule = "every tuesday-ish"
	assert.Error(t, s.Start())
	s.Stop()
}

func TestScheduler_DisabledDoesNothing(t *testing.T) {
	s, store := newScheduler(t, true)
	s.Enabled = false
	require.NoError(t, s.Start())
	s.Stop()

	assert.True(t, s.NextRun().IsZero())
	runs, err := store.ListAccrualRuns(context.Background(), 0)
	require.NoError(t, err)
	assert.Empty(t, runs)
}

func TestScheduler_RunNow(t *testing.T) {
	s, _ := newScheduler(t, true)
	updated, err := s.RunNow(context.Background())
	require.NoError(t, err)
	assert.Len(t, updated, 1)
}
