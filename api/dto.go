/*
dto.go - Data Transfer Objects for API requests and responses

PURPOSE:
  Defines the JSON structures for API communication. These types decouple
  the internal domain model from the external API contract, allowing:
  - Field renaming without breaking clients
  - API-specific validation
  - Version evolution

NAMING CONVENTION:
  - *DTO: Response types returned to clients
  - *Request: Request body types from clients
  - *Response: Complex response wrappers

TYPES:
  Quotes:
    SpotQuoteRequest, SpotQuoteDTO, LoadDTO

  Lanes:
    LanePlanRequest, ContractDTO, BookLaneResponse

  Invoices:
    InvoiceDTO, CreateInvoiceRequest, PaymentRequest

  Late fees:
    SetRateRequest, SweepResponse, AccrualRunDTO

VALIDATION:
  Shape checks (required fields, enums, date layout) are validator/v10 struct
  tags checked in decodeAndValidate. Domain rules (recurrence, payment term,
  weight bracket) stay in the domain packages and come back as typed errors.

SEE ALSO:
  - handlers.go: Uses these types
  - factory/recurrence.go: RecurrenceJSON
*/

package api

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/billing"
	"github.com/warp/freight-engine/booking"
	"github.com/warp/freight-engine/factory"
	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/quote"
)

// =============================================================================
// REQUEST TYPES
// =============================================================================

// LoadDTO describes the load and equipment of a booking.
type LoadDTO struct {
	Mode      string          `json:"mode" validate:"required,oneof=FTL POWER"`
	TruckType string          `json:"truck_type" validate:"required,oneof=sprinter box_truck tractor"`
	Equipment string          `json:"equipment" validate:"required"`
	Trailer   *TrailerDTO     `json:"trailer,omitempty"`
	WeightKg  decimal.Decimal `json:"weight_kg"`
}

type TrailerDTO struct {
	Type     string `json:"type" validate:"required"`
	LengthFt int    `json:"length_ft" validate:"gt=0"`
}

// SpotQuoteRequest prices a single shipment.
type SpotQuoteRequest struct {
	Origin      string  `json:"origin" validate:"required"`
	Destination string  `json:"destination" validate:"required"`
	Load        LoadDTO `json:"load"`
	PickupDate  string  `json:"pickup_date" validate:"required,datetime=2006-01-02"`
	PaymentTerm string  `json:"payment_term" validate:"required"`
}

// LanePlanRequest plans (and optionally books) a dedicated lane.
type LanePlanRequest struct {
	ContractID  string                 `json:"contract_id,omitempty"`
	Origin      string                 `json:"origin" validate:"required"`
	Destination string                 `json:"destination" validate:"required"`
	Load        LoadDTO                `json:"load"`
	Recurrence  factory.RecurrenceJSON `json:"recurrence"`
	PaymentTerm string                 `json:"payment_term" validate:"required"`
}

// CreateInvoiceRequest issues a standalone invoice, e.g. for a spot booking.
type CreateInvoiceRequest struct {
	ID            string          `json:"id,omitempty"`
	ContractID    string          `json:"contract_id" validate:"required"`
	ReferenceDate string          `json:"reference_date" validate:"required,datetime=2006-01-02"`
	PaymentTerm   string          `json:"payment_term,omitempty"`
	DueDate       string          `json:"due_date,omitempty" validate:"omitempty,datetime=2006-01-02"`
	Principal     decimal.Decimal `json:"principal"`
	Currency      string          `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR CAD"`
}

// PaymentRequest records a payment. Currency defaults to the invoice's.
type PaymentRequest struct {
	Amount   decimal.Decimal `json:"amount"`
	Currency string          `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR CAD"`
}

// SetRateRequest configures the daily late-fee rate of a fee category.
type SetRateRequest struct {
	DailyRate decimal.Decimal `json:"daily_rate"`
	Currency  string          `json:"currency,omitempty" validate:"omitempty,oneof=USD EUR CAD"`
}

// SweepRequest optionally back-dates a manual sweep.
type SweepRequest struct {
	AsOf string `json:"as_of,omitempty" validate:"omitempty,datetime=2006-01-02"`
}

// =============================================================================
// RESPONSE TYPES
// =============================================================================

// SpotQuoteDTO is a priced single shipment.
type SpotQuoteDTO struct {
	ID            string          `json:"id"`
	Origin        string          `json:"origin"`
	Destination   string          `json:"destination"`
	Route         quote.Route     `json:"route"`
	WeightBracket string          `json:"weight_bracket"`
	Price         generic.Amount  `json:"price"`
	RatePerKm     *generic.Amount `json:"rate_per_km,omitempty"`
	RatePerKg     *generic.Amount `json:"rate_per_kg,omitempty"`
	PickupDate    string          `json:"pickup_date"`
	PaymentTerm   string          `json:"payment_term"`
	DueDate       string          `json:"due_date"`
}

// ContractDTO is a planned lane.
type ContractDTO struct {
	ID            string                 `json:"id"`
	Origin        string                 `json:"origin"`
	Destination   string                 `json:"destination"`
	Route         quote.Route            `json:"route"`
	WeightBracket string                 `json:"weight_bracket"`
	PaymentTerm   string                 `json:"payment_term"`
	Recurrence    factory.RecurrenceJSON `json:"recurrence"`
	Shipments     []string               `json:"shipments"`
	PaymentDates  []string               `json:"payment_dates"`
	Totals        quote.Totals           `json:"totals"`
	FirstShipment string                 `json:"first_shipment,omitempty"`
	LastShipment  string                 `json:"last_shipment,omitempty"`
}

// BookLaneResponse is a planned lane plus the invoices issued for it.
type BookLaneResponse struct {
	Contract ContractDTO  `json:"contract"`
	Invoices []InvoiceDTO `json:"invoices"`
}

// NextBillingDateDTO answers GET /api/billing/next-date.
type NextBillingDateDTO struct {
	ReferenceDate string `json:"reference_date"`
	PaymentTerm   string `json:"payment_term"`
	DueDate       string `json:"due_date"`
}

// InvoiceDTO represents an invoice in API responses.
type InvoiceDTO struct {
	ID            string         `json:"id"`
	ContractID    string         `json:"contract_id"`
	ReferenceDate string         `json:"reference_date"`
	DueDate       string         `json:"due_date"`
	Principal     generic.Amount `json:"principal"`
	LateFees      generic.Amount `json:"late_fees"`
	Paid          generic.Amount `json:"paid"`
	Outstanding   generic.Amount `json:"outstanding"`
	Status        string         `json:"status"`
	DaysOverdue   int            `json:"days_overdue"`
	CreatedAt     string         `json:"created_at,omitempty"`
	UpdatedAt     string         `json:"updated_at,omitempty"`
}

// SweepResponse is the result of a manual late-fee sweep.
type SweepResponse struct {
	AsOf     string       `json:"as_of"`
	Updated  int          `json:"updated"`
	Invoices []InvoiceDTO `json:"invoices"`
}

// AccrualRunDTO represents one recorded sweep.
type AccrualRunDTO struct {
	ID          string  `json:"id"`
	AsOf        string  `json:"as_of"`
	Status      string  `json:"status"`
	Updated     int     `json:"updated"`
	Error       string  `json:"error,omitempty"`
	StartedAt   string  `json:"started_at"`
	CompletedAt *string `json:"completed_at,omitempty"`
}

// RateDTO echoes a configured late-fee rate.
type RateDTO struct {
	Category  string         `json:"category"`
	DailyRate generic.Amount `json:"daily_rate"`
}

// ErrorResponse is the standard error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}

// =============================================================================
// CONVERSION HELPERS
// =============================================================================

func toSpotQuoteDTO(q booking.SpotQuote) SpotQuoteDTO {
	return SpotQuoteDTO{
		ID:            q.ID,
		Origin:        q.Origin,
		Destination:   q.Destination,
		Route:         q.Route,
		WeightBracket: string(q.WeightBracket),
		Price:         q.Price,
		RatePerKm:     q.RatePerKm,
		RatePerKg:     q.RatePerKg,
		PickupDate:    q.PickupDate.String(),
		PaymentTerm:   q.Term.String(),
		DueDate:       q.DueDate.String(),
	}
}

func toContractDTO(c booking.Contract) ContractDTO {
	dto := ContractDTO{
		ID:            c.ID,
		Origin:        c.Origin,
		Destination:   c.Destination,
		Route:         c.Route,
		WeightBracket: string(c.WeightBracket),
		PaymentTerm:   c.Term.String(),
		Recurrence:    factory.RecurrenceToJSON(c.Recurrence),
		Shipments:     dateStrings(c.Shipments),
		PaymentDates:  dateStrings(c.PaymentDates),
		Totals:        c.Totals,
	}
	if window, ok := c.Window(); ok {
		dto.FirstShipment = window.Start.String()
		dto.LastShipment = window.End.String()
	}
	return dto
}

func toInvoiceDTO(inv billing.Invoice, today generic.Date) InvoiceDTO {
	dto := InvoiceDTO{
		ID:            inv.ID,
		ContractID:    inv.ContractID,
		ReferenceDate: inv.ReferenceDate.String(),
		DueDate:       inv.DueDate.String(),
		Principal:     inv.Principal,
		LateFees:      inv.LateFees,
		Paid:          inv.Paid,
		Outstanding:   inv.Outstanding(),
		Status:        string(inv.Status),
	}
	if !inv.Status.IsClosed() {
		dto.DaysOverdue = inv.DaysOverdue(today)
	}
	if !inv.CreatedAt.IsZero() {
		dto.CreatedAt = inv.CreatedAt.Format(time.RFC3339)
	}
	if !inv.UpdatedAt.IsZero() {
		dto.UpdatedAt = inv.UpdatedAt.Format(time.RFC3339)
	}
	return dto
}

func toInvoiceDTOs(invoices []billing.Invoice, today generic.Date) []InvoiceDTO {
	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv, today)
	}
	return dtos
}

func toAccrualRunDTO(run billing.AccrualRun) AccrualRunDTO {
	dto := AccrualRunDTO{
		ID:        run.ID,
		AsOf:      run.AsOf.String(),
		Status:    string(run.Status),
		Updated:   run.Updated,
		Error:     run.Error,
		StartedAt: run.StartedAt.Format(time.RFC3339),
	}
	if run.CompletedAt != nil {
		s := run.CompletedAt.Format(time.RFC3339)
		dto.CompletedAt = &s
	}
	return dto
}

func dateStrings(dates []generic.Date) []string {
	out := make([]string, len(dates))
	for i, d := range dates {
		out[i] = d.String()
	}
	return out
}
