/*
handlers.go - HTTP API handlers for the freight billing engine

PURPOSE:
  Exposes quoting, lane planning, invoicing and late-fee accrual via REST.
  Handles HTTP request/response and JSON serialization, and delegates to the
  booking and billing packages.

ENDPOINTS:
  Quotes and lanes:
    POST   /api/quotes/spot                 Price a single shipment
    POST   /api/lanes/plan                  Plan a dedicated lane (no writes)
    POST   /api/lanes/book                  Plan a lane and issue its invoices
    GET    /api/billing/next-date           Due date for ?date=&term=

  Invoices:
    GET    /api/invoices                    List (?contract_id=&status=&due_before=&limit=)
    POST   /api/invoices                    Issue a standalone invoice
    GET    /api/invoices/{id}               Get invoice
    POST   /api/invoices/{id}/payments      Record a payment
    POST   /api/invoices/{id}/cancel        Cancel

  Late fees:
    POST   /api/late-fees/sweep             Run a sweep now
    GET    /api/late-fees/runs              Sweep history
    GET    /api/late-fees/rates/{category}  Get daily rate
    PUT    /api/late-fees/rates/{category}  Set daily rate

REQUEST FLOW:
  1. Decode JSON and check struct tags (validator/v10)
  2. Convert to domain values (factory, billing.ParsePaymentTerm)
  3. Call domain logic
  4. Serialize response

ERROR HANDLING:
  Domain errors are mapped by statusFor:
  - 400: invalid input (recurrence, term, quantities, payments)
  - 404: invoice not found
  - 409: duplicate invoice id, sweep already running
  - 502: distance provider or rate table failures
  - 500: missing late-fee rate and anything unexpected

SECURITY NOTE:
  No authentication. Rate limiting per client IP is applied in server.go.

SEE ALSO:
  - dto.go: Request/response data structures
  - server.go: Router setup and middleware
  - scheduler.go: Periodic late-fee sweeps
*/

package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/factory"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/logging"
	"github.com/warp/freight-engine/quote"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// RateStore reads and writes daily late-fee rates.
type RateStore interface {
	billing.RateConfig
	SetRate(ctx context.Context, category string, rate generic.Amount) error
}

// Handler holds all dependencies for HTTP handlers.
type Handler struct {
	Planner *booking.Planner
	Billing *billing.Service
	Accruer *billing.Accruer
	Rates   RateStore

	// Runs is optional; without it the run history is empty.
	Runs   billing.RunRecorder
	Logger zerolog.Logger

	validate *validator.Validate
	now      func() time.Time
}

// NewHandler creates a handler. runs may be nil.
func NewHandler(planner *booking.Planner, svc *billing.Service, accruer *billing.Accruer, rates RateStore, runs billing.RunRecorder) *Handler {
	return &Handler{
		Planner:  planner,
		Billing:  svc,
		Accruer:  accruer,
		Rates:    rates,
		Runs:     runs,
		Logger:   logging.WithComponent("api"),
		validate: validator.New(validator.WithRequiredStructEnabled()),
		now:      time.Now,
	}
}

// WithNow overrides the clock used for "today" in responses and sweeps.
func (h *Handler) WithNow(now func() time.Time) *Handler {
	h.now = now
	return h
}

func (h *Handler) today() generic.Date { return generic.DateOf(h.now()) }

// =============================================================================
// QUOTE AND LANE HANDLERS
// =============================================================================

// QuoteSpot prices a single shipment.
func (h *Handler) QuoteSpot(w http.ResponseWriter, r *http.Request) {
	var req SpotQuoteRequest
	if !h.decode(w, r, &req) {
		return
	}

	term, err := billing.ParsePaymentTerm(req.PaymentTerm)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	q, err := h.Planner.QuoteSpot(r.Context(), booking.SpotRequest{
		Origin:      req.Origin,
		Destination: req.Destination,
		Load:        toLoad(req.Load),
		PickupDate:  generic.MustParseDate(req.PickupDate),
		Term:        term,
	})
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, toSpotQuoteDTO(q))
}

// PlanLane returns the contract for a lane without persisting anything.
func (h *Handler) PlanLane(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.planLane(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, toContractDTO(contract))
}

// BookLane plans a lane and issues one invoice per distinct due date.
// The invoices are stored atomically.
func (h *Handler) BookLane(w http.ResponseWriter, r *http.Request) {
	contract, ok := h.planLane(w, r)
	if !ok {
		return
	}

	invoices, err := contract.Invoices(uuid.NewString)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	if err := h.Billing.IssueInvoices(r.Context(), invoices); err != nil {
		writeDomainError(w, err)
		return
	}

	h.Logger.Info().
		Str("contract_id", contract.ID).
		Int("invoices", len(invoices)).
		Str("contract_total", contract.Totals.ContractTotal.String()).
		Msg("lane booked")

	writeJSON(w, http.StatusCreated, BookLaneResponse{
		Contract: toContractDTO(contract),
		Invoices: toInvoiceDTOs(invoices, h.today()),
	})
}

func (h *Handler) planLane(w http.ResponseWriter, r *http.Request) (booking.Contract, bool) {
	var req LanePlanRequest
	if !h.decode(w, r, &req) {
		return booking.Contract{}, false
	}

	spec, err := factory.RecurrenceFromJSON(req.Recurrence)
	if err != nil {
		writeDomainError(w, err)
		return booking.Contract{}, false
	}
	term, err := billing.ParsePaymentTerm(req.PaymentTerm)
	if err != nil {
		writeDomainError(w, err)
		return booking.Contract{}, false
	}

	contract, err := h.Planner.PlanLane(r.Context(), booking.LaneRequest{
		ContractID:  req.ContractID,
		Origin:      req.Origin,
		Destination: req.Destination,
		Load:        toLoad(req.Load),
		Recurrence:  spec,
		Term:        term,
	})
	if err != nil {
		writeDomainError(w, err)
		return booking.Contract{}, false
	}
	return contract, true
}

// NextBillingDate resolves the due date for ?date=YYYY-MM-DD&term=NET_10.
func (h *Handler) NextBillingDate(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("date")
	if raw == "" {
		writeError(w, http.StatusBadRequest, "date is required (YYYY-MM-DD)", nil)
		return
	}
	ref, err := generic.ParseDate(raw)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date format (use YYYY-MM-DD)", err)
		return
	}
	term, err := billing.ParsePaymentTerm(r.URL.Query().Get("term"))
	if err != nil {
		writeDomainError(w, err)
		return
	}

	due, err := billing.NextBillingDate(ref, term)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, NextBillingDateDTO{
		ReferenceDate: ref.String(),
		PaymentTerm:   term.String(),
		DueDate:       due.String(),
	})
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices lists invoices ordered by due date.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	filter := billing.InvoiceFilter{ContractID: q.Get("contract_id")}

	if raw := q.Get("status"); raw != "" {
		for _, s := range strings.Split(raw, ",") {
			status, err := billing.ParseInvoiceStatus(strings.TrimSpace(s))
			if err != nil {
				writeError(w, http.StatusBadRequest, "Invalid status filter", err)
				return
			}
			filter.Statuses = append(filter.Statuses, status)
		}
	}
	if raw := q.Get("due_before"); raw != "" {
		day, err := generic.ParseDate(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid due_before format (use YYYY-MM-DD)", err)
			return
		}
		filter.DueBefore = &day
	}
	if raw := q.Get("limit"); raw != "" {
		limit, err := strconv.Atoi(raw)
		if err != nil || limit < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		filter.Limit = limit
	}

	invoices, err := h.Billing.ListInvoices(r.Context(), filter)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list invoices", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTOs(invoices, h.today()))
}

// CreateInvoice issues a standalone invoice. The due date is either given
// explicitly or derived from the reference date and payment term.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req CreateInvoiceRequest
	if !h.decode(w, r, &req) {
		return
	}

	ref := generic.MustParseDate(req.ReferenceDate)
	var due generic.Date
	switch {
	case req.DueDate != "":
		due = generic.MustParseDate(req.DueDate)
	case req.PaymentTerm != "":
		term, err := billing.ParsePaymentTerm(req.PaymentTerm)
		if err != nil {
			writeDomainError(w, err)
			return
		}
		if due, err = billing.NextBillingDate(ref, term); err != nil {
			writeDomainError(w, err)
			return
		}
	default:
		writeError(w, http.StatusBadRequest, "one of due_date or payment_term is required", nil)
		return
	}
	if due.Before(ref) {
		writeDomainError(w, fmt.Errorf("%w: due_date %s is before reference_date %s", generic.ErrInvalidPeriod, due, ref))
		return
	}
	if !req.Principal.IsPositive() {
		writeDomainError(w, &generic.NonPositiveQuantityError{Field: "principal", Value: req.Principal.String()})
		return
	}

	id := req.ID
	if id == "" {
		id = uuid.NewString()
	}
	inv := billing.NewInvoice(id, req.ContractID, ref, due, generic.Amount{
		Value:    req.Principal,
		Currency: currencyOr(req.Currency, generic.DefaultCurrency),
	})
	if err := h.Billing.IssueInvoices(r.Context(), []billing.Invoice{inv}); err != nil {
		writeDomainError(w, err)
		return
	}

	stored, err := h.Billing.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(*stored, h.today()))
}

// GetInvoice returns a single invoice.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Billing.GetInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, h.today()))
}

// RecordPayment applies a payment to an invoice.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var req PaymentRequest
	if !h.decode(w, r, &req) {
		return
	}

	current, err := h.Billing.GetInvoice(r.Context(), id)
	if err != nil {
		writeDomainError(w, err)
		return
	}
	currency := currencyOr(req.Currency, current.Principal.Currency)
	if currency != current.Principal.Currency {
		writeDomainError(w, fmt.Errorf("%w: payment in %s for an invoice in %s",
			generic.ErrInvalidPayment, currency, current.Principal.Currency))
		return
	}

	inv, err := h.Billing.RecordPayment(r.Context(), id, generic.Amount{Value: req.Amount, Currency: currency})
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, h.today()))
}

// CancelInvoice cancels an open invoice.
func (h *Handler) CancelInvoice(w http.ResponseWriter, r *http.Request) {
	inv, err := h.Billing.CancelInvoice(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeDomainError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(*inv, h.today()))
}

// =============================================================================
// LATE FEE HANDLERS
// =============================================================================

// SweepLateFees runs one accrual sweep. An optional as_of date back-dates it.
func (h *Handler) SweepLateFees(w http.ResponseWriter, r *http.Request) {
	var req SweepRequest
	if !h.decodeOptional(w, r, &req) {
		return
	}

	now := h.now()
	if req.AsOf != "" {
		now = generic.MustParseDate(req.AsOf).Time.Add(12 * time.Hour)
	}

	updated, err := h.Accruer.Accrue(r.Context(), now)
	if err != nil {
		writeDomainError(w, err)
		return
	}

	today := generic.DateOf(now)
	writeJSON(w, http.StatusOK, SweepResponse{
		AsOf:     today.String(),
		Updated:  len(updated),
		Invoices: toInvoiceDTOs(updated, today),
	})
}

// ListAccrualRuns returns recorded sweeps, newest first.
func (h *Handler) ListAccrualRuns(w http.ResponseWriter, r *http.Request) {
	if h.Runs == nil {
		writeJSON(w, http.StatusOK, []AccrualRunDTO{})
		return
	}

	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "limit must be a non-negative integer", err)
			return
		}
		limit = n
	}

	runs, err := h.Runs.ListAccrualRuns(r.Context(), limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list accrual runs", err)
		return
	}
	dtos := make([]AccrualRunDTO, len(runs))
	for i, run := range runs {
		dtos[i] = toAccrualRunDTO(run)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetRate returns the daily rate of a fee category.
func (h *Handler) GetRate(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")
	rate, found, err := h.Rates.DailyRate(r.Context(), category)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to load rate", err)
		return
	}
	if !found {
		writeError(w, http.StatusNotFound, "No rate configured", &generic.MissingRateConfigError{Category: category})
		return
	}
	writeJSON(w, http.StatusOK, RateDTO{Category: category, DailyRate: rate})
}

// SetRate configures the daily rate of a fee category. Zero disables fees.
func (h *Handler) SetRate(w http.ResponseWriter, r *http.Request) {
	category := chi.URLParam(r, "category")

	var req SetRateRequest
	if !h.decode(w, r, &req) {
		return
	}
	if req.DailyRate.IsNegative() {
		writeError(w, http.StatusBadRequest, "daily_rate must not be negative", nil)
		return
	}

	rate := generic.Amount{Value: req.DailyRate, Currency: currencyOr(req.Currency, generic.DefaultCurrency)}
	if err := h.Rates.SetRate(r.Context(), category, rate); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to save rate", err)
		return
	}

	h.Logger.Info().Str("category", category).Str("daily_rate", rate.String()).Msg("late fee rate updated")
	writeJSON(w, http.StatusOK, RateDTO{Category: category, DailyRate: rate})
}

// =============================================================================
// HELPERS
// =============================================================================

func toLoad(dto LoadDTO) booking.Load {
	load := booking.Load{
		Mode:      quote.Mode(dto.Mode),
		Truck:     quote.TruckType(dto.TruckType),
		Equipment: quote.Equipment(strings.ToLower(dto.Equipment)),
		WeightKg:  dto.WeightKg,
	}
	if dto.Trailer != nil {
		load.Trailer = &quote.Trailer{Type: dto.Trailer.Type, LengthFt: dto.Trailer.LengthFt}
	}
	return load
}

func currencyOr(code string, fallback generic.Currency) generic.Currency {
	if code == "" {
		return fallback
	}
	return generic.Currency(strings.ToUpper(code))
}

// decode reads a JSON body into dst and checks its validate tags. On failure
// it writes a 400 and returns false.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return h.check(w, dst)
}

// decodeOptional is decode for endpoints whose body may be empty.
func (h *Handler) decodeOptional(w http.ResponseWriter, r *http.Request, dst any) bool {
	err := json.NewDecoder(r.Body).Decode(dst)
	if err != nil && !errors.Is(err, io.EOF) {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return false
	}
	return h.check(w, dst)
}

func (h *Handler) check(w http.ResponseWriter, dst any) bool {
	err := h.validate.Struct(dst)
	if err == nil {
		return true
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]string, len(verrs))
		for i, fe := range verrs {
			details[i] = fmt.Sprintf("%s: failed %q", fe.Namespace(), fe.Tag())
		}
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Error:   "Validation failed",
			Code:    "invalid_request",
			Details: details,
		})
		return false
	}
	writeError(w, http.StatusBadRequest, "Invalid request body", err)
	return false
}

// statusFor maps domain errors to HTTP status and a stable error code.
func statusFor(err error) (int, string) {
	switch {
	case generic.IsNotFound(err):
		return http.StatusNotFound, "not_found"
	case errors.Is(err, generic.ErrDuplicateInvoice):
		return http.StatusConflict, "duplicate_invoice"
	case generic.IsClientError(err):
		return http.StatusBadRequest, "invalid_request"
	case generic.IsUpstream(err):
		return http.StatusBadGateway, "upstream_failure"
	case errors.Is(err, generic.ErrLockNotAcquired):
		return http.StatusConflict, "sweep_in_progress"
	case errors.Is(err, generic.ErrMissingRateConfig):
		return http.StatusInternalServerError, "missing_rate_config"
	default:
		return http.StatusInternalServerError, "internal_error"
	}
}

func writeDomainError(w http.ResponseWriter, err error) {
	status, code := statusFor(err)
	writeJSON(w, status, ErrorResponse{Error: err.Error(), Code: code})
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
