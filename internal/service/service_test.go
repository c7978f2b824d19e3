package service

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository/repotest"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/validation"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

type registrationSuite struct {
	suite.Suite
	store *repotest.Registrations
	logs  *observer.ObservedLogs
	svc   *RegistrationService
	ids   int
}

func TestRegistrationService(t *testing.T) {
	suite.Run(t, new(registrationSuite))
}

func (s *registrationSuite) SetupTest() {
	core, logs := observer.New(zapcore.DebugLevel)
	s.store = repotest.NewRegistrations()
	s.logs = logs
	s.svc = NewRegistrationService(s.store, zap.New(core))
	s.svc.now = func() time.Time { return now }
	s.ids = 0
	s.svc.newID = func() string {
		s.ids++
		return []string{
			"00000000-0000-4000-8000-000000000001",
			"00000000-0000-4000-8000-000000000002",
			"00000000-0000-4000-8000-000000000003",
		}[(s.ids-1)%3]
	}
}

func validRequest() model.RegistrationRequest {
	return model.RegistrationRequest{
		FullName:      "  Ayesha Khan ",
		Email:         " Ayesha@Example.EDU ",
		PhoneNumber:   "0300 123 4567",
		University:    "NUST",
		Department:    "   ",
		RollNumber:    " 21-CS-042 ",
		MainCategory:  validation.CategoryTechQuiz,
		TermsAccepted: true,
	}
}

func (s *registrationSuite) requireServiceError(err error, typ ErrorType, status int) *Error {
	e, ok := AsError(err)
	s.Require().True(ok, "expected *service.Error, got %v", err)
	s.Require().Equal(typ, e.Type)
	s.Require().Equal(status, e.Status)
	return e
}

func (s *registrationSuite) TestRegisterNormalizesAndStores() {
	receipt, err := s.svc.Register(context.Background(), validRequest())
	s.Require().NoError(err)
	s.Equal("ayesha@example.edu", receipt.Email)
	s.Equal("00000000-0000-4000-8000-000000000001", receipt.ID)

	reg, err := s.store.GetByID(context.Background(), receipt.ID)
	s.Require().NoError(err)
	s.Equal("Ayesha Khan", reg.FullName)
	s.Equal("03001234567", reg.PhoneNumber)
	s.Nil(reg.Department)
	s.Require().NotNil(reg.RollNumber)
	s.Equal("21-CS-042", *reg.RollNumber)
	s.Nil(reg.SubCategory)
	s.Equal(model.StatusPending, reg.Status)
	s.Equal(now, reg.CreatedAt)
}

func (s *registrationSuite) TestRegisterValidationFailure() {
	_, err := s.svc.Register(context.Background(), model.RegistrationRequest{})

	e := s.requireServiceError(err, ErrorValidation, http.StatusBadRequest)
	s.Equal(MsgValidationFailed, e.Message)
	s.Len(e.Errors, 6)
	s.Zero(s.store.Len())
}

func (s *registrationSuite) TestRegisterDuplicateCaughtByPreCheck() {
	_, err := s.svc.Register(context.Background(), validRequest())
	s.Require().NoError(err)

	again := validRequest()
	again.Email = "AYESHA@example.edu   "
	_, err = s.svc.Register(context.Background(), again)

	e := s.requireServiceError(err, ErrorDuplicateEmail, http.StatusConflict)
	s.Empty(e.Code)
	s.Equal(1, s.store.Len())
}

func (s *registrationSuite) TestRegisterDuplicateCaughtByConstraint() {
	_, err := s.svc.Register(context.Background(), validRequest())
	s.Require().NoError(err)

	s.store.SkipExists = true
	_, err = s.svc.Register(context.Background(), validRequest())

	e := s.requireServiceError(err, ErrorDuplicateEmail, http.StatusConflict)
	s.Equal("23505", e.Code)
	s.Equal(MsgDuplicateEmail, e.Message)
	s.Equal(1, s.store.Len())
}

func (s *registrationSuite) TestDuplicateCheckFailsOpen() {
	s.store.ExistsErr = errors.New("connection refused")

	receipt, err := s.svc.Register(context.Background(), validRequest())
	s.Require().NoError(err)
	s.NotEmpty(receipt.ID)
	s.Equal(1, s.logs.FilterMessage("duplicate check failed, continuing").Len())
}

func (s *registrationSuite) TestInsertFailureIsClassifiedAndLogged() {
	s.store.InsertErr = errors.New("new row violates row-level security policy")

	_, err := s.svc.Register(context.Background(), validRequest())

	e := s.requireServiceError(err, ErrorDatabase, http.StatusServiceUnavailable)
	s.Equal("unknown", e.Code)
	entries := s.logs.FilterMessage("insert registration failed").All()
	s.Require().Len(entries, 1)
	s.Equal(validation.CategoryTechQuiz, entries[0].ContextMap()["category"])
}

func (s *registrationSuite) TestAdminLifecycle() {
	ctx := context.Background()
	receipt, err := s.svc.Register(ctx, validRequest())
	s.Require().NoError(err)

	page, err := s.svc.ListRegistrations(ctx, model.RegistrationFilter{Search: " ayesha "})
	s.Require().NoError(err)
	s.Equal(1, page.Total)
	s.Equal(defaultPageSize, page.Limit)

	reg, err := s.svc.UpdateRegistration(ctx, receipt.ID, model.RegistrationUpdate{Status: model.StatusConfirmed})
	s.Require().NoError(err)
	s.Equal(model.StatusConfirmed, reg.Status)

	_, err = s.svc.UpdateRegistration(ctx, receipt.ID, model.RegistrationUpdate{Status: "approved"})
	s.ErrorIs(err, ErrInvalidStatus)

	all, err := s.svc.ExportRegistrations(ctx, model.RegistrationFilter{Limit: 1, Offset: 5})
	s.Require().NoError(err)
	s.Len(all, 1)

	s.Require().NoError(s.svc.DeleteRegistration(ctx, receipt.ID))
	_, err = s.svc.GetRegistration(ctx, receipt.ID)
	s.ErrorIs(err, repository.ErrNotFound)
}

func (s *registrationSuite) TestMalformedIDsAreNotFound() {
	ctx := context.Background()

	_, err := s.svc.GetRegistration(ctx, "not-a-uuid")
	s.ErrorIs(err, repository.ErrNotFound)
	_, err = s.svc.UpdateRegistration(ctx, "1; DROP TABLE", model.RegistrationUpdate{Status: model.StatusRejected})
	s.ErrorIs(err, repository.ErrNotFound)
	s.ErrorIs(s.svc.DeleteRegistration(ctx, ""), repository.ErrNotFound)
}

func (s *registrationSuite) TestListClampsPaging() {
	page, err := s.svc.ListRegistrations(context.Background(), model.RegistrationFilter{Limit: 10_000, Offset: -3})
	s.Require().NoError(err)
	s.Equal(maxPageSize, page.Limit)
	s.Zero(page.Offset)
	s.NotNil(page.Items)
}
