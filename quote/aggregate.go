/*
aggregate.go - Contract totals and per-unit reporting rates

PURPOSE:
  Turns a per-shipment price into contract totals and derives the per-km and
  per-kg rates shown on quotes. All inputs are validated before any
  arithmetic, so a zero distance or weight never reaches a division.

SEE ALSO:
  - ratetable.go: per-shipment price lookup
  - booking/planner.go: the caller
*/

package quote

import (
	"strconv"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
)

// TotalContractPrice is perShipment × totalShipments.
func TotalContractPrice(perShipment generic.Amount, totalShipments int) (generic.Amount, error) {
	if !perShipment.IsPositive() {
		return generic.Amount{}, &generic.NonPositiveQuantityError{Field: "per_shipment_rate", Value: perShipment.Value.String()}
	}
	if totalShipments <= 0 {
		return generic.Amount{}, &generic.NonPositiveQuantityError{Field: "total_shipments", Value: strconv.Itoa(totalShipments)}
	}
	return perShipment.MulInt(totalShipments), nil
}

// RatePerDistance is amount / distanceKm.
func RatePerDistance(amount generic.Amount, distanceKm decimal.Decimal) (generic.Amount, error) {
	return ratePer(amount, distanceKm, "distance")
}

// RatePerWeight is amount / weightKg.
func RatePerWeight(amount generic.Amount, weightKg decimal.Decimal) (generic.Amount, error) {
	return ratePer(amount, weightKg, "weight")
}

func ratePer(amount generic.Amount, divisor decimal.Decimal, name string) (generic.Amount, error) {
	if divisor.IsZero() {
		return generic.Amount{}, &generic.DivisionByZeroError{Divisor: name}
	}
	rate, err := amount.Div(divisor)
	if err != nil {
		return generic.Amount{}, &generic.DivisionByZeroError{Divisor: name}
	}
	return rate.Round(), nil
}

// Totals are the aggregate figures of a recurring contract.
type Totals struct {
	TotalShipments  int            `json:"total_shipments"`
	PerShipmentRate generic.Amount `json:"per_shipment_rate"`
	ContractTotal   generic.Amount `json:"contract_total"`
}

// Aggregate computes Totals or fails without a partial result.
func Aggregate(perShipment generic.Amount, totalShipments int) (Totals, error) {
	total, err := TotalContractPrice(perShipment, totalShipments)
	if err != nil {
		return Totals{}, err
	}
	return Totals{
		TotalShipments:  totalShipments,
		PerShipmentRate: perShipment,
		ContractTotal:   total,
	}, nil
}
