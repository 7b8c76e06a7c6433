package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
	"github.com/warp/freight-engine/quote"
)

// RateTableJSON is the JSON representation of a quote.Table. Numbers may be
// given as JSON numbers or strings; strings keep exact decimals.
//
//	{
//	  "currency": "USD",
//	  "minimum": "150",
//	  "base_per_km": {"box_truck": "1.20", "tractor": "1.85"},
//	  "equipment": {"dry_van": "1", "reefer": "1.25"},
//	  "weight_brackets": {"light": "1", "medium": "1.1"},
//	  "trailers": {"reefer/53": "75"}
//	}
type RateTableJSON struct {
	Currency       string                     `json:"currency,omitempty"`
	Minimum        decimal.Decimal            `json:"minimum"`
	BasePerKm      map[string]decimal.Decimal `json:"base_per_km"`
	Equipment      map[string]decimal.Decimal `json:"equipment"`
	WeightBrackets map[string]decimal.Decimal `json:"weight_brackets"`
	Trailers       map[string]decimal.Decimal `json:"trailers,omitempty"`
}

var (
	knownTrucks = map[quote.TruckType]bool{
		quote.TruckSprinter: true, quote.TruckBox: true, quote.TruckTractor: true,
	}
	knownEquipment = map[quote.Equipment]bool{
		quote.EquipmentDryVan: true, quote.EquipmentReefer: true,
		quote.EquipmentFlatbed: true, quote.EquipmentPowerOnly: true,
	}
	knownBrackets = map[quote.WeightBracket]bool{
		quote.WeightLight: true, quote.WeightMedium: true,
		quote.WeightHeavy: true, quote.WeightMax: true,
	}
	knownCurrencies = map[generic.Currency]bool{
		generic.USD: true, generic.EUR: true, generic.CAD: true,
	}
)

// ParseRateTable parses and validates a rate table JSON document.
func ParseRateTable(data []byte) (*quote.Table, error) {
	var tj RateTableJSON
	if err := json.Unmarshal(data, &tj); err != nil {
		return nil, fmt.Errorf("failed to parse rate table JSON: %w", err)
	}
	return RateTableFromJSON(tj)
}

// RateTableFromJSON converts RateTableJSON to a quote.Table.
func RateTableFromJSON(tj RateTableJSON) (*quote.Table, error) {
	currency := generic.Currency(strings.ToUpper(tj.Currency))
	if currency == "" {
		currency = generic.DefaultCurrency
	}
	if !knownCurrencies[currency] {
		return nil, fmt.Errorf("rate table: unknown currency %q", tj.Currency)
	}
	if tj.Minimum.IsNegative() {
		return nil, fmt.Errorf("rate table: minimum must not be negative")
	}

	table := &quote.Table{
		Currency:         currency,
		Minimum:          tj.Minimum,
		BasePerKm:        make(map[quote.TruckType]decimal.Decimal, len(tj.BasePerKm)),
		EquipmentFactor:  make(map[quote.Equipment]decimal.Decimal, len(tj.Equipment)),
		WeightFactor:     make(map[quote.WeightBracket]decimal.Decimal, len(tj.WeightBrackets)),
		TrailerSurcharge: make(map[string]decimal.Decimal, len(tj.Trailers)),
	}

	for k, v := range tj.BasePerKm {
		truck := quote.TruckType(lower(k))
		if !knownTrucks[truck] {
			return nil, fmt.Errorf("rate table: unknown truck type %q", k)
		}
		if !v.IsPositive() {
			return nil, fmt.Errorf("rate table: base_per_km[%s] must be positive", k)
		}
		table.BasePerKm[truck] = v
	}
	for k, v := range tj.Equipment {
		eq := quote.Equipment(lower(k))
		if !knownEquipment[eq] {
			return nil, fmt.Errorf("rate table: unknown equipment %q", k)
		}
		if !v.IsPositive() {
			return nil, fmt.Errorf("rate table: equipment[%s] must be positive", k)
		}
		table.EquipmentFactor[eq] = v
	}
	for k, v := range tj.WeightBrackets {
		b := quote.WeightBracket(lower(k))
		if !knownBrackets[b] {
			return nil, fmt.Errorf("rate table: unknown weight bracket %q", k)
		}
		if !v.IsPositive() {
			return nil, fmt.Errorf("rate table: weight_brackets[%s] must be positive", k)
		}
		table.WeightFactor[b] = v
	}
	for k, v := range tj.Trailers {
		if v.IsNegative() {
			return nil, fmt.Errorf("rate table: trailers[%s] must not be negative", k)
		}
		table.TrailerSurcharge[lower(k)] = v
	}

	if len(table.BasePerKm) == 0 || len(table.EquipmentFactor) == 0 || len(table.WeightFactor) == 0 {
		return nil, fmt.Errorf("rate table: base_per_km, equipment and weight_brackets are required")
	}
	return table, nil
}

func lower(s string) string { return strings.ToLower(strings.TrimSpace(s)) }

// =============================================================================
// PRESET
// =============================================================================

// DefaultRateTableJSON is the rate table used when none is configured.
func DefaultRateTableJSON() []byte {
	return []byte(`{
  "currency": "USD",
  "minimum": "150",
  "base_per_km": {
    "sprinter": "0.95",
    "box_truck": "1.20",
    "tractor": "1.85"
  },
  "equipment": {
    "dry_van": "1",
    "reefer": "1.25",
    "flatbed": "1.15",
    "power_only": "0.85"
  },
  "weight_brackets": {
    "light": "1",
    "medium": "1.1",
    "heavy": "1.2",
    "max": "1.35"
  },
  "trailers": {
    "dry_van/48": "40",
    "dry_van/53": "50",
    "reefer/53": "75",
    "flatbed/48": "60"
  }
}`)
}
