package service

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	identity "streetwatch/internal/identity/models"
	"streetwatch/internal/incident/models"
	id "streetwatch/pkg/domain"
	"streetwatch/pkg/requestcontext"
)

// QueryParams are the caller-supplied filter strings, straight off a form
// or query string. Enum fields arrive raw: an unparsable value drops that
// filter with a warning instead of failing the whole query, which keeps a
// stale bookmark or a hand-edited URL from turning into an error page.
type QueryParams struct {
	Status    string
	Category  string
	Region    string
	SubRegion string
	AgentID   string
	From      *time.Time
	To        *time.Time

	Page     int
	PageSize int
	SortBy   string
	SortDir  string
}

// Query returns one page of incidents visible to the calling actor. The
// role-derived scope is applied before any optional filter; zero optional
// filters mean the whole scope, never an empty result.
func (s *Service) Query(ctx context.Context, params QueryParams) (*models.Page, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}

	page, err := s.incidents.List(ctx, scopeFor(actor), s.compileFilters(ctx, actor, params), pageRequest(params))
	if err != nil {
		return nil, translateIncidentErr(err)
	}
	return page, nil
}

// Stats returns the aggregate counters for the same scope+filter
// composition Query reads, so dashboards and lists always agree.
func (s *Service) Stats(ctx context.Context, params QueryParams) (*models.Stats, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}

	stats, err := s.incidents.Stats(ctx, scopeFor(actor), s.compileFilters(ctx, actor, params))
	if err != nil {
		return nil, translateIncidentErr(err)
	}
	return stats, nil
}

// Overview is the dashboard read: the first page and the counters, fetched
// concurrently from one composition.
type Overview struct {
	Page  *models.Page  `json:"page"`
	Stats *models.Stats `json:"stats"`
}

func (s *Service) GetOverview(ctx context.Context, params QueryParams) (*Overview, error) {
	actor, ok := requestcontext.Actor(ctx)
	if !ok {
		return nil, errNoActor()
	}
	scope := scopeFor(actor)
	filters := s.compileFilters(ctx, actor, params)

	var overview Overview
	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		page, err := s.incidents.List(ctx, scope, filters, pageRequest(params))
		if err != nil {
			return err
		}
		overview.Page = page
		return nil
	})
	g.Go(func() error {
		stats, err := s.incidents.Stats(ctx, scope, filters)
		if err != nil {
			return err
		}
		overview.Stats = stats
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, translateIncidentErr(err)
	}
	return &overview, nil
}

// compileFilters turns the raw params into typed filters. Invalid enum
// values and non-admin agent filters are dropped, not errors; the date
// range is widened to whole calendar days.
func (s *Service) compileFilters(ctx context.Context, actor requestcontext.ActorContext, params QueryParams) models.Filters {
	var filters models.Filters

	if params.Status != "" {
		if status, err := models.ParseStatus(params.Status); err != nil {
			s.logger.WarnContext(ctx, "ignoring invalid status filter", "value", params.Status)
		} else {
			filters.Status = &status
		}
	}
	if params.Category != "" {
		if category, err := models.ParseCategory(params.Category); err != nil {
			s.logger.WarnContext(ctx, "ignoring invalid category filter", "value", params.Category)
		} else {
			filters.Category = &category
		}
	}
	filters.Region = params.Region
	filters.SubRegion = params.SubRegion

	// Filtering by owning agent only makes sense over the admin's full
	// scope; inside an agent or citizen scope it could not widen anything
	// and is dropped.
	if params.AgentID != "" && actor.Role == identity.RoleAdmin {
		if agentID, err := id.ParseUserID(params.AgentID); err != nil {
			s.logger.WarnContext(ctx, "ignoring invalid agent filter", "value", params.AgentID)
		} else {
			filters.AgentID = agentID
		}
	}

	if params.From != nil {
		from := startOfDay(*params.From)
		filters.From = &from
	}
	if params.To != nil {
		to := endOfDay(*params.To)
		filters.To = &to
	}
	return filters
}

func pageRequest(params QueryParams) models.PageRequest {
	return models.PageRequest{
		Page:     params.Page,
		PageSize: params.PageSize,
		SortBy:   models.SortField(params.SortBy),
		Dir:      models.SortDir(params.SortDir),
	}.Normalize()
}

func startOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}

// endOfDay widens the supplied end date to include the entire calendar day.
func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, 0, t.Location())
}
