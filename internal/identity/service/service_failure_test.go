package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"streetwatch/internal/identity/models"
	"streetwatch/internal/identity/password"
	"streetwatch/internal/identity/service/mocks"
	"streetwatch/internal/notify"
	id "streetwatch/pkg/domain"
	dErrors "streetwatch/pkg/domain-errors"
	"streetwatch/pkg/platform/sentinel"
)

// Failure-path tests use store mocks: the in-memory store cannot simulate
// infrastructure outages or mid-flow write failures.
type IdentityFailureSuite struct {
	suite.Suite
	ctrl     *gomock.Controller
	store    *mocks.MockUserStore
	notifier *mocks.MockNotifier
	service  *Service
}

func TestIdentityFailureSuite(t *testing.T) {
	suite.Run(t, new(IdentityFailureSuite))
}

func (s *IdentityFailureSuite) SetupTest() {
	s.ctrl = gomock.NewController(s.T())
	s.store = mocks.NewMockUserStore(s.ctrl)
	s.notifier = mocks.NewMockNotifier(s.ctrl)
	s.service = New(s.store, password.NewBcrypt(), WithNotifier(s.notifier))
}

func (s *IdentityFailureSuite) register() (*models.User, error) {
	return s.service.Register(context.Background(), RegisterParams{
		Email:     "sami@tunis.tn",
		FirstName: "Sami",
		LastName:  "Gharbi",
		Password:  "hunter22",
		Role:      models.RoleCitizen,
	})
}

func (s *IdentityFailureSuite) TestRegisterDuplicateEmail() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(sentinel.ErrConflict)

	_, err := s.register()
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *IdentityFailureSuite) TestRegisterStoreOutage() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(errors.New("connection refused"))

	_, err := s.register()
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *IdentityFailureSuite) TestRegisterDispatchesVerification() {
	s.store.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil)
	s.notifier.EXPECT().Dispatch(gomock.Any()).Do(func(n notify.Notification) {
		s.Equal(notify.KindVerification, n.Kind)
		s.Equal("sami@tunis.tn", n.Recipient)
		s.NotEmpty(n.Params["code"])
	})

	user, err := s.register()
	s.Require().NoError(err)
	s.False(user.EmailVerified)
	s.True(user.Active)
}

func (s *IdentityFailureSuite) TestVerifyEmailUpdateFailure() {
	code := "code-xyz"
	future := time.Now().Add(time.Hour)
	user := &models.User{Email: "sami@tunis.tn", VerificationCode: code, VerificationCodeExpiry: &future}

	s.store.EXPECT().FindByVerificationCode(gomock.Any(), code).Return(user, nil)
	s.store.EXPECT().Update(gomock.Any(), gomock.Any()).Return(errors.New("write timeout"))

	err := s.service.VerifyEmail(context.Background(), code)
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}

func (s *IdentityFailureSuite) TestGetByIDTranslatesNotFound() {
	userID := id.UserID(uuid.New())
	s.store.EXPECT().FindByID(gomock.Any(), userID).Return(nil, sentinel.ErrNotFound)

	_, err := s.service.GetByID(context.Background(), userID)
	s.True(dErrors.HasCode(err, dErrors.CodeNotFound))
}

func (s *IdentityFailureSuite) TestListAgentsStoreOutage() {
	s.store.EXPECT().ListByRole(gomock.Any(), models.RoleAgent).Return(nil, errors.New("connection reset"))

	_, err := s.service.ListAgents(context.Background())
	s.True(dErrors.HasCode(err, dErrors.CodeInternal))
}
