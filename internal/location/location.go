// Package location keeps the registry of (region, sub-region) pairs that
// incidents attach to. Pairs are deduplicated: reporting two incidents in
// the same neighbourhood yields one location row referenced twice.
package location

import (
	"context"
	"strings"
	"time"

	id "streetwatch/pkg/domain"
)

// Location is a named place incidents reference by ID.
type Location struct {
	ID        id.LocationID `json:"id"`
	Region    string        `json:"region"`
	SubRegion string        `json:"sub_region"`
	CreatedAt time.Time     `json:"created_at"`
}

// Store persists locations keyed by their (region, sub-region) pair.
type Store interface {
	// FindOrCreate returns the location for the pair, creating it when
	// absent. Concurrent calls for the same pair must converge on a single
	// row.
	FindOrCreate(ctx context.Context, loc *Location) (*Location, error)
	FindByID(ctx context.Context, locationID id.LocationID) (*Location, error)
	// Regions lists distinct region names, sorted.
	Regions(ctx context.Context) ([]string, error)
	// SubRegions lists distinct sub-region names within one region, sorted.
	SubRegions(ctx context.Context, region string) ([]string, error)
}

// Normalize trims the pair's fields. It returns false when both fields are
// blank, which callers treat as "no location given".
func Normalize(region, subRegion string) (string, string, bool) {
	region = strings.TrimSpace(region)
	subRegion = strings.TrimSpace(subRegion)
	if region == "" && subRegion == "" {
		return "", "", false
	}
	return region, subRegion, true
}
