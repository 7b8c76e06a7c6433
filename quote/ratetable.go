package quote

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
)

// =============================================================================
// LOAD CONFIGURATION
// =============================================================================

type TruckType string

const (
	TruckSprinter TruckType = "sprinter"
	TruckBox      TruckType = "box_truck"
	TruckTractor  TruckType = "tractor"
)

type Equipment string

const (
	EquipmentDryVan    Equipment = "dry_van"
	EquipmentReefer    Equipment = "reefer"
	EquipmentFlatbed   Equipment = "flatbed"
	EquipmentPowerOnly Equipment = "power_only"
)

// Mode is FTL (carrier-supplied trailer) or POWER (tractor pulls the
// shipper's trailer). It does not affect billing.
type Mode string

const (
	ModeFTL   Mode = "FTL"
	ModePower Mode = "POWER"
)

// Trailer is optional: only power-only loads name one.
type Trailer struct {
	Type     string `json:"type"`
	LengthFt int    `json:"length_ft"`
}

// Key is the rate-table key for trailer surcharges, e.g. "reefer/53".
func (t Trailer) Key() string { return fmt.Sprintf("%s/%d", strings.ToLower(t.Type), t.LengthFt) }

// =============================================================================
// WEIGHT BRACKETS
// =============================================================================

type WeightBracket string

const (
	WeightLight  WeightBracket = "light"
	WeightMedium WeightBracket = "medium"
	WeightHeavy  WeightBracket = "heavy"
	WeightMax    WeightBracket = "max"
)

var bracketLimitsKg = []struct {
	upTo    decimal.Decimal
	bracket WeightBracket
}{
	{decimal.NewFromInt(1500), WeightLight},
	{decimal.NewFromInt(10000), WeightMedium},
	{decimal.NewFromInt(20000), WeightHeavy},
	{decimal.NewFromInt(36000), WeightMax},
}

// WeightBracketFor maps a load weight to its bracket. Zero is a valid light
// load; negative or above the legal maximum is unsupported.
func WeightBracketFor(weightKg decimal.Decimal) (WeightBracket, error) {
	if weightKg.IsNegative() {
		return "", &generic.UnsupportedConfigurationError{Dimension: "weight_kg", Value: weightKg.String()}
	}
	for _, l := range bracketLimitsKg {
		if weightKg.LessThanOrEqual(l.upTo) {
			return l.bracket, nil
		}
	}
	return "", &generic.UnsupportedConfigurationError{Dimension: "weight_kg", Value: weightKg.String()}
}

// =============================================================================
// RATE TABLE
// =============================================================================

// PriceRequest is one rate-table lookup.
type PriceRequest struct {
	Truck      TruckType
	Equipment  Equipment
	Trailer    *Trailer
	DistanceKm decimal.Decimal
	Weight     WeightBracket
}

// RateTable prices a single shipment. Implementations are pure lookups.
type RateTable interface {
	Price(req PriceRequest) (generic.Amount, error)
}

// Table is the reference rate table:
//
//	price = max(minimum, base_per_km[truck] × km × equipment[eq] × weight[bracket])
//	        + trailer surcharge
type Table struct {
	Currency         generic.Currency
	Minimum          decimal.Decimal
	BasePerKm        map[TruckType]decimal.Decimal
	EquipmentFactor  map[Equipment]decimal.Decimal
	WeightFactor     map[WeightBracket]decimal.Decimal
	TrailerSurcharge map[string]decimal.Decimal
}

func (t *Table) Price(req PriceRequest) (generic.Amount, error) {
	base, ok := t.BasePerKm[req.Truck]
	if !ok {
		return generic.Amount{}, &generic.UnsupportedConfigurationError{Dimension: "truck_type", Value: string(req.Truck)}
	}
	equip, ok := t.EquipmentFactor[req.Equipment]
	if !ok {
		return generic.Amount{}, &generic.UnsupportedConfigurationError{Dimension: "equipment", Value: string(req.Equipment)}
	}
	weight, ok := t.WeightFactor[req.Weight]
	if !ok {
		return generic.Amount{}, &generic.UnsupportedConfigurationError{Dimension: "weight_bracket", Value: string(req.Weight)}
	}
	if req.DistanceKm.IsNegative() {
		return generic.Amount{}, &generic.UnsupportedConfigurationError{Dimension: "distance_km", Value: req.DistanceKm.String()}
	}

	price := base.Mul(req.DistanceKm).Mul(equip).Mul(weight)
	if price.LessThan(t.Minimum) {
		price = t.Minimum
	}

	if req.Trailer != nil {
		surcharge, ok := t.TrailerSurcharge[req.Trailer.Key()]
		if !ok {
			return generic.Amount{}, &generic.UnsupportedConfigurationError{Dimension: "trailer", Value: req.Trailer.Key()}
		}
		price = price.Add(surcharge)
	}

	currency := t.Currency
	if currency == "" {
		currency = generic.DefaultCurrency
	}
	return generic.Amount{Value: price, Currency: currency}.Round(), nil
}

var _ RateTable = (*Table)(nil)
