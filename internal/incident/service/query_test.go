package service

import (
	"time"

	"streetwatch/internal/incident/models"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

func (s *IncidentServiceSuite) TestQueryScopes() {
	mine := s.report(s.citizen)
	theirs := s.report(s.other)
	assigned := s.report(s.other)
	_, err := s.svc.Assign(s.as(s.admin), assigned.ID, s.agent.ID, false)
	s.Require().NoError(err)

	s.Run("citizen sees only own reports", func() {
		page, err := s.svc.Query(s.as(s.citizen), QueryParams{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(mine.ID, page.Items[0].ID)
	})

	s.Run("agent sees only assignments", func() {
		page, err := s.svc.Query(s.as(s.agent), QueryParams{})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(assigned.ID, page.Items[0].ID)
	})

	s.Run("admin sees everything", func() {
		page, err := s.svc.Query(s.as(s.admin), QueryParams{})
		s.Require().NoError(err)
		s.Len(page.Items, 3)
	})

	s.Run("no filter combination escapes the citizen scope", func() {
		page, err := s.svc.Query(s.as(s.citizen), QueryParams{
			Status:   string(models.StatusAcknowledged),
			Category: string(models.CategoryLighting),
		})
		s.Require().NoError(err)
		for _, item := range page.Items {
			s.Equal(s.citizen.ID, item.ReporterID)
		}
		_ = theirs
	})
}

func (s *IncidentServiceSuite) TestQueryLeniency() {
	s.report(s.citizen)
	s.report(s.citizen)

	s.Run("invalid enum filters are dropped, not errors", func() {
		page, err := s.svc.Query(s.as(s.citizen), QueryParams{
			Status:   "NOT_A_STATUS",
			Category: "NOT_A_CATEGORY",
		})
		s.Require().NoError(err)
		s.Len(page.Items, 2, "dropped filters degrade to the whole scope")
	})

	s.Run("agent filter is honored only for admins", func() {
		assigned := s.report(s.other)
		_, err := s.svc.Assign(s.as(s.admin), assigned.ID, s.agent.ID, false)
		s.Require().NoError(err)

		page, err := s.svc.Query(s.as(s.admin), QueryParams{AgentID: s.agent.ID.String()})
		s.Require().NoError(err)
		s.Require().Len(page.Items, 1)
		s.Equal(assigned.ID, page.Items[0].ID)

		// The same filter inside a citizen scope is ignored.
		page, err = s.svc.Query(s.as(s.citizen), QueryParams{AgentID: s.agent.ID.String()})
		s.Require().NoError(err)
		s.Len(page.Items, 2)
	})
}

func (s *IncidentServiceSuite) TestQueryDateWidening() {
	noon := time.Date(2026, 5, 10, 12, 0, 0, 0, time.UTC)
	for _, offset := range []time.Duration{0, 6 * time.Hour, 30 * time.Hour} {
		_, err := s.svc.Create(requestcontext.WithTime(s.as(s.citizen), noon.Add(offset)), CreateParams{
			Title:    "inc",
			Category: string(models.CategorySecurity),
		})
		s.Require().NoError(err)
	}

	// Filtering on the single day 2026-05-10 catches the 12:00 and 18:00
	// reports but not the one filed the next day at 18:00.
	day := time.Date(2026, 5, 10, 15, 30, 0, 0, time.UTC)
	page, err := s.svc.Query(s.as(s.citizen), QueryParams{From: &day, To: &day})
	s.Require().NoError(err)
	s.Len(page.Items, 2)
}

func (s *IncidentServiceSuite) TestOverview() {
	s.report(s.citizen)
	resolved := s.report(s.citizen)
	s.reach(resolved, models.StatusResolved)

	overview, err := s.svc.GetOverview(s.as(s.citizen), QueryParams{})
	s.Require().NoError(err)
	s.Equal(int64(2), overview.Stats.Total)
	s.Equal(overview.Page.TotalItems, overview.Stats.Total)
	s.Equal(int64(1), overview.Stats.PerStatus[models.StatusReported])
	s.Equal(int64(1), overview.Stats.PerStatus[models.StatusResolved])
	s.Equal(int64(1), overview.Stats.Unassigned)
}

func (s *IncidentServiceSuite) TestQueryRequiresActor() {
	_, err := s.svc.Query(s.ctx, QueryParams{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	_, err = s.svc.Stats(s.ctx, QueryParams{})
	s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
}
