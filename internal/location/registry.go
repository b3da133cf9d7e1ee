package location

import (
	"context"
	"log/slog"

	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

// Registry is the service surface for locations.
type Registry struct {
	store  Store
	logger *slog.Logger
}

type RegistryOption func(*Registry)

func WithLogger(logger *slog.Logger) RegistryOption {
	return func(r *Registry) { r.logger = logger }
}

func NewRegistry(store Store, opts ...RegistryOption) *Registry {
	r := &Registry{
		store:  store,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Resolve returns the deduplicated location for the pair, or nil when both
// fields are blank.
func (r *Registry) Resolve(ctx context.Context, region, subRegion string) (*Location, error) {
	region, subRegion, ok := Normalize(region, subRegion)
	if !ok {
		return nil, nil
	}

	loc, err := r.store.FindOrCreate(ctx, &Location{
		Region:    region,
		SubRegion: subRegion,
		CreatedAt: requestcontext.Now(ctx),
	})
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to resolve location")
	}
	return loc, nil
}

// Regions lists the distinct region names known to the registry.
func (r *Registry) Regions(ctx context.Context) ([]string, error) {
	regions, err := r.store.Regions(ctx)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list regions")
	}
	return regions, nil
}

// SubRegions lists the distinct sub-region names within a region.
func (r *Registry) SubRegions(ctx context.Context, region string) ([]string, error) {
	subRegions, err := r.store.SubRegions(ctx, region)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to list sub-regions")
	}
	return subRegions, nil
}
