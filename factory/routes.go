package factory

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/quote"
)

// RouteJSON is one known lane in a routes document.
type RouteJSON struct {
	Origin            string          `json:"origin"`
	Destination       string          `json:"destination"`
	DistanceKm        decimal.Decimal `json:"distance_km"`
	Duration          string          `json:"duration,omitempty"`
	RoutePreviewEmbed string          `json:"route_preview_embed,omitempty"`
	// Bidirectional registers the reverse lane with the same distance.
	Bidirectional bool `json:"bidirectional,omitempty"`
}

// ParseRoutes turns a JSON array of routes into a FixedRoutes provider.
func ParseRoutes(data []byte) (quote.FixedRoutes, error) {
	var docs []RouteJSON
	if err := json.Unmarshal(data, &docs); err != nil {
		return nil, fmt.Errorf("failed to parse routes JSON: %w", err)
	}

	routes := make(quote.FixedRoutes, len(docs))
	for i, rj := range docs {
		if strings.TrimSpace(rj.Origin) == "" || strings.TrimSpace(rj.Destination) == "" {
			return nil, fmt.Errorf("routes[%d]: origin and destination are required", i)
		}
		if rj.DistanceKm.IsNegative() {
			return nil, fmt.Errorf("routes[%d]: distance_km must not be negative", i)
		}
		r := quote.Route{
			DistanceKm:        rj.DistanceKm,
			Duration:          rj.Duration,
			RoutePreviewEmbed: rj.RoutePreviewEmbed,
		}
		routes.Add(rj.Origin, rj.Destination, r)
		if rj.Bidirectional {
			routes.Add(rj.Destination, rj.Origin, r)
		}
	}
	return routes, nil
}

// DefaultRoutesJSON is a small set of US Midwest lanes used when no routes
// file is configured.
func DefaultRoutesJSON() []byte {
	return []byte(`[
  {"origin": "Chicago, IL", "destination": "Detroit, MI", "distance_km": "456", "duration": "4h35m", "bidirectional": true},
  {"origin": "Chicago, IL", "destination": "Indianapolis, IN", "distance_km": "293", "duration": "2h55m", "bidirectional": true},
  {"origin": "Chicago, IL", "destination": "Milwaukee, WI", "distance_km": "148", "duration": "1h35m", "bidirectional": true},
  {"origin": "Detroit, MI", "destination": "Columbus, OH", "distance_km": "330", "duration": "3h20m", "bidirectional": true},
  {"origin": "Indianapolis, IN", "destination": "Columbus, OH", "distance_km": "282", "duration": "2h50m", "bidirectional": true}
]`)
}
