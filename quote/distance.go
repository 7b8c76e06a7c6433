package quote

import (
	"context"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/warp/freight-engine/generic"
)

// Route is what a distance provider returns for an origin/destination pair.
type Route struct {
	DistanceKm        decimal.Decimal `json:"distance_km"`
	Duration          string          `json:"duration"`
	RoutePreviewEmbed string          `json:"route_preview_embed"`
}

// DistanceProvider resolves road distance. Failures are *generic.GeocodingError.
type DistanceProvider interface {
	Distance(ctx context.Context, origin, destination string) (Route, error)
}

// FixedRoutes is a DistanceProvider over a known set of lanes, keyed by
// normalized "origin|destination". Used by the CLI and tests.
type FixedRoutes map[string]Route

func RouteKey(origin, destination string) string {
	return strings.ToLower(strings.TrimSpace(origin)) + "|" + strings.ToLower(strings.TrimSpace(destination))
}

// Add registers a lane and returns the receiver for chaining.
func (f FixedRoutes) Add(origin, destination string, r Route) FixedRoutes {
	f[RouteKey(origin, destination)] = r
	return f
}

func (f FixedRoutes) Distance(ctx context.Context, origin, destination string) (Route, error) {
	if err := ctx.Err(); err != nil {
		return Route{}, &generic.GeocodingError{Origin: origin, Destination: destination, Err: err}
	}
	r, ok := f[RouteKey(origin, destination)]
	if !ok {
		return Route{}, &generic.GeocodingError{
			Origin:      origin,
			Destination: destination,
			Err:         fmt.Errorf("no route known"),
		}
	}
	return r, nil
}
