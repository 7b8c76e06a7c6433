/*
handlers_test.go - HTTP tests for the freight API

Tests for:
- Spot quotes and lane planning/booking
- Invoice lifecycle (issue, pay, cancel)
- Late-fee sweep, run history and rate configuration
- Error mapping (400/404/409/502/500)
*/

package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/warp/freight-engine/api"
	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/quote"
	"github.com/warp/freight-engine/store/memory"
)

// =============================================================================
// TEST SETUP
// =============================================================================

var testNow = time.Date(2024, 4, 10, 9, 0, 0, 0, time.UTC)

type testEnv struct {
	router http.Handler
	store  *memory.Memory
}

func dec(s string) decimal.Decimal { return generic.MustParseDecimal(s) }

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	routes := quote.FixedRoutes{}.
		Add("Chicago, IL", "Detroit, MI", quote.Route{DistanceKm: dec("450"), Duration: "4h 45m"})
	table := &quote.Table{
		Currency:        generic.USD,
		Minimum:         dec("100"),
		BasePerKm:       map[quote.TruckType]decimal.Decimal{quote.TruckTractor: dec("2")},
		EquipmentFactor: map[quote.Equipment]decimal.Decimal{quote.EquipmentDryVan: dec("1")},
		WeightFactor: map[quote.WeightBracket]decimal.Decimal{
			quote.WeightLight:  dec("1"),
			quote.WeightMedium: dec("1"),
			quote.WeightHeavy:  dec("1.2"),
		},
	}

	store := memory.New()
	planner := booking.NewPlanner(routes, table, nil)
	planner.Logger = logging.Nop()
	svc := billing.NewService(store).WithNow(func() time.Time { return testNow })
	accruer := billing.NewAccruer(store, store)
	accruer.Logger = logging.Nop()

	h := api.NewHandler(planner, svc, accruer, store, store).WithNow(func() time.Time { return testNow })
	h.Logger = logging.Nop()

	opts := api.DefaultRouterOptions()
	opts.RequestsPerMinute = 0
	return &testEnv{router: api.NewRouter(h, opts), store: store}
}

func (e *testEnv) do(t *testing.T, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if s, ok := body.(string); ok {
			buf.WriteString(s)
		} else {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decodeBody[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func laneBody() map[string]any {
	return map[string]any{
		"origin":      "Chicago, IL",
		"destination": "Detroit, MI",
		"load": map[string]any{
			"mode": "FTL", "truck_type": "tractor", "equipment": "dry_van", "weight_kg": "5000",
		},
		"recurrence": map[string]any{
			"frequency":              "weekly",
			"weekdays":               []string{"monday"},
			"start_date":             "2024-03-01",
			"end_date":               "2024-03-31",
			"shipments_per_interval": 2,
		},
		"payment_term": "NET_10",
	}
}

func usd(s string) generic.Amount { return generic.Amount{Value: dec(s), Currency: generic.USD} }

// =============================================================================
// QUOTES AND LANES
// =============================================================================

func TestQuoteSpot(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/quotes/spot", map[string]any{
		"origin":      "Chicago, IL",
		"destination": "Detroit, MI",
		"load": map[string]any{
			"mode": "FTL", "truck_type": "tractor", "equipment": "dry_van", "weight_kg": "12000",
		},
		"pickup_date":  "2024-03-22",
		"payment_term": "net15",
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	q := decodeBody[api.SpotQuoteDTO](t, rec)
	assert.True(t, q.Price.Equal(usd("1080")), "got %s", q.Price)
	assert.Equal(t, "heavy", q.WeightBracket)
	assert.Equal(t, "NET_15", q.PaymentTerm)
	assert.Equal(t, "2024-03-31", q.DueDate)
	require.NotNil(t, q.RatePerKm)
	assert.True(t, q.RatePerKm.Equal(usd("2.4")))
}

func TestQuoteSpot_Errors(t *testing.T) {
	env := newTestEnv(t)

	base := func() map[string]any {
		return map[string]any{
			"origin": "Chicago, IL", "destination": "Detroit, MI",
			"load": map[string]any{
				"mode": "FTL", "truck_type": "tractor", "equipment": "dry_van", "weight_kg": "1000",
			},
			"pickup_date": "2024-03-22", "payment_term": "EOM",
		}
	}

	tests := []struct {
		name   string
		mutate func(map[string]any)
		status int
	}{
		{"missing origin", func(b map[string]any) { delete(b, "origin") }, http.StatusBadRequest},
		{"bad pickup date", func(b map[string]any) { b["pickup_date"] = "22/03/2024" }, http.StatusBadRequest},
		{"unknown term", func(b map[string]any) { b["payment_term"] = "NET_30" }, http.StatusBadRequest},
		{"unknown mode", func(b map[string]any) { b["load"].(map[string]any)["mode"] = "LTL" }, http.StatusBadRequest},
		{"unknown route", func(b map[string]any) { b["destination"] = "Denver, CO" }, http.StatusBadGateway},
		{"unpriced equipment", func(b map[string]any) { b["load"].(map[string]any)["equipment"] = "reefer" }, http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := base()
			tt.mutate(body)
			rec := env.do(t, http.MethodPost, "/api/quotes/spot", body)
			assert.Equal(t, tt.status, rec.Code, rec.Body.String())
		})
	}

	rec := env.do(t, http.MethodPost, "/api/quotes/spot", `{not json`)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestPlanLane(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/lanes/plan", laneBody())
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	c := decodeBody[api.ContractDTO](t, rec)
	assert.Len(t, c.Shipments, 8)
	assert.Equal(t, []string{"2024-03-10", "2024-03-20", "2024-03-20", "2024-03-31"}, c.PaymentDates)
	assert.Equal(t, 8, c.Totals.TotalShipments)
	assert.True(t, c.Totals.PerShipmentRate.Equal(usd("900")))
	assert.True(t, c.Totals.ContractTotal.Equal(usd("7200")))
	assert.Equal(t, "2024-03-04", c.FirstShipment)
	assert.Equal(t, "2024-03-25", c.LastShipment)

	// Planning never writes.
	all, err := env.store.ListInvoices(context.Background(), billing.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestPlanLane_InvalidRecurrence(t *testing.T) {
	env := newTestEnv(t)

	body := laneBody()
	body["recurrence"].(map[string]any)["weekdays"] = []string{}
	rec := env.do(t, http.MethodPost, "/api/lanes/plan", body)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	resp := decodeBody[api.ErrorResponse](t, rec)
	assert.Equal(t, "invalid_request", resp.Code)
	assert.Contains(t, resp.Error, "weekdays")
}

func TestPlanLane_OversizedRecurrenceIsRejected(t *testing.T) {
	env := newTestEnv(t)

	daily2024 := func(perInterval int, end string) map[string]any {
		body := laneBody()
		body["recurrence"] = map[string]any{
			"frequency":              "daily",
			"start_date":             "2024-01-01",
			"end_date":               end,
			"shipments_per_interval": perInterval,
		}
		return body
	}

	cases := map[string]struct {
		body  map[string]any
		field string
	}{
		"per interval above request limit": {body: daily2024(100_000_000, "2024-12-31"), field: "ShipmentsPerInterval"},
		"total above shipment cap":         {body: daily2024(1000, "2024-12-31"), field: "shipments_per_interval"},
		"window above day cap":             {body: daily2024(1, "2100-12-31"), field: "end_date"},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			for _, path := range []string{"/api/lanes/plan", "/api/lanes/book"} {
				rec := env.do(t, http.MethodPost, path, tc.body)
				require.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())

				resp := decodeBody[api.ErrorResponse](t, rec)
				assert.Equal(t, "invalid_request", resp.Code)
				assert.Contains(t, resp.Error+strings.Join(resp.Details, ";"), tc.field)
			}
		})
	}

	all, err := env.store.ListInvoices(context.Background(), billing.InvoiceFilter{})
	require.NoError(t, err)
	assert.Empty(t, all)
}

func TestBookLane_IssuesInvoicePerDueDate(t *testing.T) {
	env := newTestEnv(t)

	body := laneBody()
	body["contract_id"] = "lane-chi-det"
	rec := env.do(t, http.MethodPost, "/api/lanes/book", body)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	resp := decodeBody[api.BookLaneResponse](t, rec)
	assert.Equal(t, "lane-chi-det", resp.Contract.ID)
	require.Len(t, resp.Invoices, 3)

	sum := usd("0")
	for _, inv := range resp.Invoices {
		sum = sum.Add(inv.Principal)
	}
	assert.True(t, sum.Equal(resp.Contract.Totals.ContractTotal))

	stored, err := env.store.ListInvoices(context.Background(), billing.InvoiceFilter{ContractID: "lane-chi-det"})
	require.NoError(t, err)
	require.Len(t, stored, 3)
	assert.Equal(t, "2024-03-10", stored[0].DueDate.String())
	assert.True(t, stored[1].Principal.Equal(usd("3600")))
}

func TestNextBillingDate(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodGet, "/api/billing/next-date?date=2024-12-30&term=NET_7", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	got := decodeBody[api.NextBillingDateDTO](t, rec)
	assert.Equal(t, "2025-01-07", got.DueDate)

	rec = env.do(t, http.MethodGet, "/api/billing/next-date?date=2024-12-30&term=NET_45", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/billing/next-date?term=EOM", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// INVOICES
// =============================================================================

func TestInvoiceLifecycle(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"id": "inv-1", "contract_id": "spot-1",
		"reference_date": "2024-04-02", "payment_term": "NET_10",
		"principal": "1000",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	inv := decodeBody[api.InvoiceDTO](t, rec)
	assert.Equal(t, "2024-04-10", inv.DueDate)
	assert.Equal(t, "pending", inv.Status)

	// Same id again is a conflict.
	rec = env.do(t, http.MethodPost, "/api/invoices", map[string]any{
		"id": "inv-1", "contract_id": "spot-1", "reference_date": "2024-04-02",
		"due_date": "2024-04-10", "principal": "5",
	})
	assert.Equal(t, http.StatusConflict, rec.Code)

	rec = env.do(t, http.MethodPost, "/api/invoices/inv-1/payments", map[string]any{"amount": "400"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	inv = decodeBody[api.InvoiceDTO](t, rec)
	assert.Equal(t, "partially_paid", inv.Status)
	assert.True(t, inv.Outstanding.Equal(usd("600")))

	rec = env.do(t, http.MethodPost, "/api/invoices/inv-1/payments", map[string]any{"amount": "700"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "overpayment")

	rec = env.do(t, http.MethodPost, "/api/invoices/inv-1/payments", map[string]any{"amount": "10", "currency": "EUR"})
	assert.Equal(t, http.StatusBadRequest, rec.Code, "currency mismatch")

	rec = env.do(t, http.MethodPost, "/api/invoices/inv-1/payments", map[string]any{"amount": "600"})
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "paid", decodeBody[api.InvoiceDTO](t, rec).Status)

	rec = env.do(t, http.MethodPost, "/api/invoices/inv-1/cancel", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code, "paid invoices can't be cancelled")

	rec = env.do(t, http.MethodGet, "/api/invoices/missing", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestCreateInvoice_Validation(t *testing.T) {
	env := newTestEnv(t)

	for name, body := range map[string]map[string]any{
		"no due date or term": {"contract_id": "c", "reference_date": "2024-04-02", "principal": "10"},
		"due before ref":      {"contract_id": "c", "reference_date": "2024-04-02", "due_date": "2024-04-01", "principal": "10"},
		"zero principal":      {"contract_id": "c", "reference_date": "2024-04-02", "due_date": "2024-04-05", "principal": "0"},
		"unknown currency":    {"contract_id": "c", "reference_date": "2024-04-02", "due_date": "2024-04-05", "principal": "1", "currency": "GBP"},
	} {
		t.Run(name, func(t *testing.T) {
			rec := env.do(t, http.MethodPost, "/api/invoices", body)
			assert.Equal(t, http.StatusBadRequest, rec.Code, rec.Body.String())
		})
	}
}

func TestListInvoices_Filters(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	for _, inv := range []billing.Invoice{
		billing.NewInvoice("a", "lane-1", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-03-10"), usd("10")),
		billing.NewInvoice("b", "lane-1", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-05-10"), usd("10")),
		billing.NewInvoice("c", "lane-2", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-03-20"), usd("10")),
	} {
		require.NoError(t, env.store.CreateInvoice(ctx, inv))
	}

	rec := env.do(t, http.MethodGet, "/api/invoices?contract_id=lane-1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Len(t, decodeBody[[]api.InvoiceDTO](t, rec), 2)

	rec = env.do(t, http.MethodGet, "/api/invoices?due_before=2024-04-01&status=pending,overdue", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	list := decodeBody[[]api.InvoiceDTO](t, rec)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)
	assert.Equal(t, 31, list[0].DaysOverdue)

	rec = env.do(t, http.MethodGet, "/api/invoices?status=lost", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/invoices?limit=-1", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

// =============================================================================
// LATE FEES
// =============================================================================

func TestSweep_MissingRateIs500AndWritesNothing(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.CreateInvoice(ctx,
		billing.NewInvoice("a", "lane-1", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-03-10"), usd("100"))))

	rec := env.do(t, http.MethodPost, "/api/late-fees/sweep", nil)
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.Equal(t, "missing_rate_config", decodeBody[api.ErrorResponse](t, rec).Code)

	got, err := env.store.GetInvoice(ctx, "a")
	require.NoError(t, err)
	assert.Equal(t, billing.StatusPending, got.Status)
	assert.True(t, got.LateFees.IsZero())
}

func TestSweep_AppliesFeesAndRecordsRun(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	require.NoError(t, env.store.CreateInvoice(ctx,
		billing.NewInvoice("a", "lane-1", generic.MustParseDate("2024-03-01"), generic.MustParseDate("2024-03-31"), usd("1000"))))

	rec := env.do(t, http.MethodPut, "/api/late-fees/rates/invoices", map[string]any{"daily_rate": "50"})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	rec = env.do(t, http.MethodGet, "/api/late-fees/rates/invoices", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, decodeBody[api.RateDTO](t, rec).DailyRate.Equal(usd("50")))

	// 2024-03-31 -> 2024-04-10 is 10 days.
	rec = env.do(t, http.MethodPost, "/api/late-fees/sweep", nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	sweep := decodeBody[api.SweepResponse](t, rec)
	assert.Equal(t, "2024-04-10", sweep.AsOf)
	require.Equal(t, 1, sweep.Updated)
	assert.True(t, sweep.Invoices[0].LateFees.Equal(usd("500")))
	assert.Equal(t, "overdue", sweep.Invoices[0].Status)

	// Back-dated sweep recomputes from scratch rather than adding.
	rec = env.do(t, http.MethodPost, "/api/late-fees/sweep", `{"as_of":"2024-04-05"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	got, err := env.store.GetInvoice(ctx, "a")
	require.NoError(t, err)
	assert.True(t, got.LateFees.Equal(usd("250")), "got %s", got.LateFees)

	rec = env.do(t, http.MethodGet, "/api/late-fees/runs", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	runs := decodeBody[[]api.AccrualRunDTO](t, rec)
	require.Len(t, runs, 2)
	assert.Equal(t, "completed", runs[0].Status)
	assert.NotNil(t, runs[0].CompletedAt)
}

func TestSetRate_Invalid(t *testing.T) {
	env := newTestEnv(t)

	rec := env.do(t, http.MethodPut, "/api/late-fees/rates/invoices", map[string]any{"daily_rate": "-1"})
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = env.do(t, http.MethodGet, "/api/late-fees/rates/unknown", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestRateLimit(t *testing.T) {
	store := memory.New()
	h := api.NewHandler(nil, billing.NewService(store), billing.NewAccruer(store, store), store, store)
	h.Logger = logging.Nop()
	router := api.NewRouter(h, api.RouterOptions{RequestsPerMinute: 2})

	codes := make([]int, 3)
	for i := range codes {
		req := httptest.NewRequest(http.MethodGet, "/api/invoices", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, req)
		codes[i] = rec.Code
	}
	assert.Equal(t, []int{http.StatusOK, http.StatusOK, http.StatusTooManyRequests}, codes)
}

func TestHealthz(t *testing.T) {
	env := newTestEnv(t)
	rec := env.do(t, http.MethodGet, "/healthz", nil)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.True(t, strings.Contains(rec.Body.String(), "ok"))
}
