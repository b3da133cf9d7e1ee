package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"streetwatch/internal/audit"
	identity "streetwatch/internal/identity/models"
	userstore "streetwatch/internal/identity/store/user"
	"streetwatch/internal/incident/models"
	incidentstore "streetwatch/internal/incident/store/incident"
	"streetwatch/internal/location"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/requestcontext"
)

type captureNotifier struct {
	mu   sync.Mutex
	sent []notify.Notification
}

func (c *captureNotifier) Dispatch(n notify.Notification) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = append(c.sent, n)
}

func (c *captureNotifier) kinds() []notify.Kind {
	c.mu.Lock()
	defer c.mu.Unlock()
	kinds := make([]notify.Kind, 0, len(c.sent))
	for _, n := range c.sent {
		kinds = append(kinds, n.Kind)
	}
	return kinds
}

func (c *captureNotifier) reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.sent = nil
}

type captureTrail struct {
	mu     sync.Mutex
	events []audit.Event
}

func (c *captureTrail) Emit(_ context.Context, e audit.Event) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.events = append(c.events, e)
}

func (c *captureTrail) forIncident(incidentID id.IncidentID) []audit.Event {
	c.mu.Lock()
	defer c.mu.Unlock()
	var out []audit.Event
	for _, e := range c.events {
		if e.IncidentID == incidentID {
			out = append(out, e)
		}
	}
	return out
}

type IncidentServiceSuite struct {
	suite.Suite
	ctx      context.Context
	users    *userstore.InMemoryUserStore
	store    *incidentstore.InMemoryStore
	notifier *captureNotifier
	trail    *captureTrail
	svc      *Service

	citizen *identity.User
	other   *identity.User
	agent   *identity.User
	agent2  *identity.User
	admin   *identity.User
}

func TestIncidentServiceSuite(t *testing.T) {
	suite.Run(t, new(IncidentServiceSuite))
}

func (s *IncidentServiceSuite) SetupTest() {
	s.ctx = context.Background()
	s.users = userstore.NewInMemory()
	locations := location.NewInMemory()
	s.store = incidentstore.NewInMemory(locations)
	s.notifier = &captureNotifier{}
	s.trail = &captureTrail{}
	s.svc = New(s.store, s.users, location.NewRegistry(locations),
		WithNotifier(s.notifier),
		WithAuditTrail(s.trail),
	)

	s.citizen = s.seedUser("citizen@x.com", identity.RoleCitizen)
	s.other = s.seedUser("other@x.com", identity.RoleCitizen)
	s.agent = s.seedUser("agent@x.com", identity.RoleAgent)
	s.agent2 = s.seedUser("agent2@x.com", identity.RoleAgent)
	s.admin = s.seedUser("admin@x.com", identity.RoleAdmin)
}

func (s *IncidentServiceSuite) seedUser(email string, role identity.Role) *identity.User {
	u := &identity.User{
		Email:         email,
		FirstName:     "Test",
		LastName:      "User",
		Role:          role,
		Active:        true,
		EmailVerified: true,
	}
	s.Require().NoError(s.users.Create(s.ctx, u))
	return u
}

func (s *IncidentServiceSuite) as(u *identity.User) context.Context {
	return requestcontext.WithActor(s.ctx, requestcontext.ActorContext{
		UserID:      u.ID,
		Email:       u.Email,
		DisplayName: u.FullName(),
		Role:        u.Role,
	})
}

func (s *IncidentServiceSuite) report(reporter *identity.User) *models.Incident {
	inc, err := s.svc.Create(s.as(reporter), CreateParams{
		Title:    "broken streetlight",
		Category: string(models.CategoryLighting),
		Region:   "Centre",
	})
	s.Require().NoError(err)
	return inc
}

// reach drives an incident to the given status through legal moves.
func (s *IncidentServiceSuite) reach(inc *models.Incident, target models.Status) *models.Incident {
	steps := map[models.Status][]struct {
		actor  *identity.User
		status models.Status
	}{
		models.StatusAcknowledged: {{s.admin, models.StatusAcknowledged}},
		models.StatusInProgress:   {{s.admin, models.StatusAcknowledged}, {s.agent, models.StatusInProgress}},
		models.StatusResolved:     {{s.admin, models.StatusAcknowledged}, {s.agent, models.StatusInProgress}, {s.agent, models.StatusResolved}},
		models.StatusClosed:       {{s.admin, models.StatusAcknowledged}, {s.agent, models.StatusInProgress}, {s.agent, models.StatusResolved}, {s.admin, models.StatusClosed}},
	}

	if target != models.StatusReported {
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)
	}
	var out *models.Incident
	var err error
	for _, step := range steps[target] {
		out, err = s.svc.Transition(s.as(step.actor), inc.ID, string(step.status))
		if err != nil && dErrors.HasCode(err, dErrors.CodeConflict) {
			// Assignment already acknowledged the incident.
			continue
		}
		s.Require().NoError(err)
	}
	if out == nil {
		out, err = s.store.FindByID(s.ctx, inc.ID)
		s.Require().NoError(err)
	}
	return out
}

func (s *IncidentServiceSuite) TestCreate() {
	s.Run("defaults and reporter binding", func() {
		inc := s.report(s.citizen)
		s.Equal(models.StatusReported, inc.Status)
		s.Equal(models.PriorityMedium, inc.Priority)
		s.Equal(s.citizen.ID, inc.ReporterID)
		s.False(inc.Assigned())
		s.Nil(inc.ResolvedAt)
		s.False(inc.LocationID.IsZero())
	})

	s.Run("title is required", func() {
		_, err := s.svc.Create(s.as(s.citizen), CreateParams{Title: "  ", Category: "LIGHTING"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown category is rejected", func() {
		_, err := s.svc.Create(s.as(s.citizen), CreateParams{Title: "x", Category: "POTHOLES"})
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("no actor means unauthorized", func() {
		_, err := s.svc.Create(s.ctx, CreateParams{Title: "x", Category: "LIGHTING"})
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *IncidentServiceSuite) TestAgentTransitions() {
	s.Run("unassigned agent is rejected regardless of target", func() {
		inc := s.report(s.citizen)
		for _, target := range models.Statuses()[1:] {
			_, err := s.svc.Transition(s.as(s.agent), inc.ID, string(target))
			s.True(dErrors.HasCode(err, dErrors.CodeForbidden), "target %s", target)
		}
	})

	s.Run("assigned agent walks acknowledged to resolved", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)

		inc, err = s.svc.Transition(s.as(s.agent), inc.ID, string(models.StatusInProgress))
		s.Require().NoError(err)
		s.Equal(models.StatusInProgress, inc.Status)

		inc, err = s.svc.Transition(s.as(s.agent), inc.ID, string(models.StatusResolved))
		s.Require().NoError(err)
		s.Equal(models.StatusResolved, inc.Status)
		s.Require().NotNil(inc.ResolvedAt)
	})

	s.Run("agent cannot move an incident off resolved", func() {
		inc := s.report(s.citizen)
		inc = s.reach(inc, models.StatusResolved)

		for _, target := range []models.Status{models.StatusReported, models.StatusAcknowledged, models.StatusInProgress, models.StatusClosed} {
			_, err := s.svc.Transition(s.as(s.agent), inc.ID, string(target))
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "target %s", target)
		}
	})

	s.Run("a different assigned agent is still not this incident's agent", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)

		_, err = s.svc.Transition(s.as(s.agent2), inc.ID, string(models.StatusInProgress))
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})
}

func (s *IncidentServiceSuite) TestCitizenTransitions() {
	inc := s.report(s.citizen)
	for _, target := range models.Statuses()[1:] {
		_, err := s.svc.Transition(s.as(s.citizen), inc.ID, string(target))
		s.True(dErrors.HasCode(err, dErrors.CodeValidation), "target %s", target)
	}
}

func (s *IncidentServiceSuite) TestClosing() {
	s.Run("close requires status resolved", func() {
		for _, prep := range []models.Status{models.StatusReported, models.StatusAcknowledged, models.StatusInProgress} {
			inc := s.report(s.citizen)
			inc = s.reach(inc, prep)
			_, err := s.svc.Transition(s.as(s.admin), inc.ID, string(models.StatusClosed))
			s.True(dErrors.HasCode(err, dErrors.CodeValidation), "from %s", prep)
		}
	})

	s.Run("admin closes a resolved incident and closed is terminal", func() {
		inc := s.report(s.citizen)
		inc = s.reach(inc, models.StatusResolved)
		resolvedAt := inc.ResolvedAt
		s.Require().NotNil(resolvedAt)

		inc, err := s.svc.Transition(s.as(s.admin), inc.ID, string(models.StatusClosed))
		s.Require().NoError(err)
		s.Equal(models.StatusClosed, inc.Status)
		s.Require().NotNil(inc.ResolvedAt)
		s.True(inc.ResolvedAt.Equal(*resolvedAt), "closing must not touch resolvedAt")

		for _, target := range models.Statuses()[:4] {
			_, err := s.svc.Transition(s.as(s.admin), inc.ID, string(target))
			s.Error(err, "target %s", target)
		}
		_, err = s.svc.Transition(s.as(s.agent), inc.ID, string(models.StatusInProgress))
		s.Error(err)
	})
}

func (s *IncidentServiceSuite) TestSameStateIsRejected() {
	inc := s.report(s.citizen)
	inc = s.reach(inc, models.StatusInProgress)

	_, err := s.svc.Transition(s.as(s.admin), inc.ID, string(models.StatusInProgress))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	_, err = s.svc.Transition(s.as(s.agent), inc.ID, string(models.StatusInProgress))
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IncidentServiceSuite) TestResolvedAtIsMonotonic() {
	inc := s.report(s.citizen)
	inc = s.reach(inc, models.StatusResolved)
	first := *inc.ResolvedAt

	// Admin reopens and the incident is resolved a second time later.
	_, err := s.svc.Transition(s.as(s.admin), inc.ID, string(models.StatusInProgress))
	s.Require().NoError(err)

	later := requestcontext.WithTime(s.as(s.agent), time.Now().Add(2*time.Hour))
	inc, err = s.svc.Transition(later, inc.ID, string(models.StatusResolved))
	s.Require().NoError(err)
	s.True(inc.ResolvedAt.Equal(first), "first resolution timestamp must survive re-resolution")
}

func (s *IncidentServiceSuite) TestTransitionNotFound() {
	_, err := s.svc.Transition(s.as(s.admin), id.IncidentID(uuid.New()), string(models.StatusClosed))
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IncidentServiceSuite) TestAssignment() {
	s.Run("assignment acknowledges a fresh report", func() {
		inc := s.report(s.citizen)
		inc, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)
		s.Equal(models.StatusAcknowledged, inc.Status)
		s.True(inc.AssignedTo(s.agent.ID))
	})

	s.Run("reassignment is unconditional and audited", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)
		inc, err = s.svc.Assign(s.as(s.admin), inc.ID, s.agent2.ID, false)
		s.Require().NoError(err)
		s.True(inc.AssignedTo(s.agent2.ID))

		events := s.trail.forIncident(inc.ID)
		last := events[len(events)-1]
		s.Equal(audit.ActionAgentAssigned, last.Action)
		s.Equal(s.agent.ID.String(), last.Detail["previous_agent_id"])
	})

	s.Run("only agents may be bound", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.other.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
		_, err = s.svc.Assign(s.as(s.admin), inc.ID, s.admin.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})

	s.Run("unknown agent is not found", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, id.UserID(uuid.New()), false)
		s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
	})

	s.Run("only administrators assign", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.agent), inc.ID, s.agent.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.svc.Assign(s.as(s.citizen), inc.ID, s.agent.ID, false)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("notify reaches both the agent and the reporter", func() {
		s.notifier.reset()
		inc := s.report(s.citizen)
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, true)
		s.Require().NoError(err)

		recipients := make(map[string]bool)
		for _, n := range s.notifier.sent {
			if n.Kind == notify.KindAssignment {
				recipients[n.Recipient] = true
			}
		}
		s.True(recipients[s.agent.Email])
		s.True(recipients[s.citizen.Email])
	})
}

func (s *IncidentServiceSuite) TestFeedback() {
	s.Run("reporter attaches feedback after resolution", func() {
		inc := s.report(s.citizen)
		inc = s.reach(inc, models.StatusResolved)

		inc, err := s.svc.AddFeedback(s.as(s.citizen), inc.ID, "fixed, thanks")
		s.Require().NoError(err)
		s.Equal("fixed, thanks", inc.CitizenFeedback)
	})

	s.Run("a stranger gets an ownership error and nothing changes", func() {
		inc := s.report(s.citizen)
		inc = s.reach(inc, models.StatusResolved)

		_, err := s.svc.AddFeedback(s.as(s.other), inc.ID, "drive-by comment")
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))

		got, err := s.store.FindByID(s.ctx, inc.ID)
		s.Require().NoError(err)
		s.Empty(got.CitizenFeedback)
	})

	s.Run("feedback before resolution is rejected", func() {
		inc := s.report(s.citizen)
		_, err := s.svc.AddFeedback(s.as(s.citizen), inc.ID, "too early")
		s.True(dErrors.HasCode(err, dErrors.CodeValidation))
	})
}

func (s *IncidentServiceSuite) TestTransitionNotifications() {
	inc := s.report(s.citizen)
	_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
	s.Require().NoError(err)
	s.notifier.reset()

	_, err = s.svc.Transition(s.as(s.agent), inc.ID, string(models.StatusInProgress))
	s.Require().NoError(err)

	s.Require().Len(s.notifier.sent, 1, "acting agent is not notified about their own move")
	s.Equal(notify.KindStatusUpdate, s.notifier.sent[0].Kind)
	s.Equal(s.citizen.Email, s.notifier.sent[0].Recipient)

	s.notifier.reset()
	_, err = s.svc.Transition(s.as(s.admin), inc.ID, string(models.StatusResolved))
	s.Require().NoError(err)
	s.Equal([]notify.Kind{notify.KindStatusUpdate, notify.KindStatusUpdate}, s.notifier.kinds(),
		"admin moves notify both reporter and assigned agent")
}

func (s *IncidentServiceSuite) TestGet() {
	inc := s.report(s.citizen)

	s.Run("reporter and admin can view", func() {
		_, err := s.svc.Get(s.as(s.citizen), inc.ID)
		s.NoError(err)
		_, err = s.svc.Get(s.as(s.admin), inc.ID)
		s.NoError(err)
	})

	s.Run("strangers and unassigned agents cannot", func() {
		_, err := s.svc.Get(s.as(s.other), inc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
		_, err = s.svc.Get(s.as(s.agent), inc.ID)
		s.True(dErrors.HasCode(err, dErrors.CodeForbidden))
	})

	s.Run("assignment grants the agent visibility", func() {
		_, err := s.svc.Assign(s.as(s.admin), inc.ID, s.agent.ID, false)
		s.Require().NoError(err)
		_, err = s.svc.Get(s.as(s.agent), inc.ID)
		s.NoError(err)
	})
}
