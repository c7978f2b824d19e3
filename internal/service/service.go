// Package service implements business logic, validation, and orchestration
// between HTTP handlers and the repository layer.
package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/validation"
)

// ErrInvalidStatus is returned for a status outside the known set.
var ErrInvalidStatus = errors.New("invalid registration status")

// RegistrationStore is the persistence the registration service needs.
type RegistrationStore interface {
	ExistsByEmail(ctx context.Context, email string) (bool, error)
	Insert(ctx context.Context, reg *model.Registration) error
	List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, int, error)
	GetByID(ctx context.Context, id string) (*model.Registration, error)
	UpdateStatus(ctx context.Context, id, status string) (*model.Registration, error)
	Delete(ctx context.Context, id string) error
}

// RegistrationService orchestrates registration business operations.
type RegistrationService struct {
	store RegistrationStore
	log   *zap.Logger
	now   func() time.Time
	newID func() string
}

// NewRegistrationService constructs a RegistrationService with its dependencies.
func NewRegistrationService(store RegistrationStore, log *zap.Logger) *RegistrationService {
	return &RegistrationService{
		store: store,
		log:   log,
		now:   time.Now,
		newID: func() string { return uuid.New().String() },
	}
}

// Register validates req, rejects known emails and stores the registration.
// Failures are returned as *Error.
func (s *RegistrationService) Register(ctx context.Context, req model.RegistrationRequest) (*model.RegistrationReceipt, error) {
	if errs := validation.ValidateRegistration(req); len(errs) > 0 {
		return nil, &Error{
			Type:    ErrorValidation,
			Status:  http.StatusBadRequest,
			Message: MsgValidationFailed,
			Errors:  errs,
		}
	}

	reg := s.normalize(req)

	if s.IsDuplicate(ctx, reg.Email) {
		return nil, &Error{
			Type:    ErrorDuplicateEmail,
			Status:  http.StatusConflict,
			Message: MsgDuplicateEmail,
		}
	}

	// The unique index on email is the real guard; a concurrent duplicate
	// that slipped past the check above surfaces here as 23505.
	if err := s.store.Insert(ctx, reg); err != nil {
		e := classifyWriteError(err)
		s.log.Error("insert registration failed",
			zap.String("error_type", string(e.Type)),
			zap.String("code", e.Code),
			zap.String("category", reg.MainCategory),
			zap.Error(err),
		)
		return nil, e
	}

	return &model.RegistrationReceipt{ID: reg.ID, Email: reg.Email}, nil
}

// IsDuplicate reports whether email is already registered. Lookup errors
// are logged and treated as "not a duplicate".
func (s *RegistrationService) IsDuplicate(ctx context.Context, email string) bool {
	exists, err := s.store.ExistsByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		s.log.Warn("duplicate check failed, continuing", zap.Error(err))
		return false
	}
	return exists
}

// NormalizeEmail trims and lowercases an address.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func (s *RegistrationService) normalize(req model.RegistrationRequest) *model.Registration {
	now := s.now().UTC()
	return &model.Registration{
		ID:            s.newID(),
		FullName:      strings.TrimSpace(req.FullName),
		Email:         NormalizeEmail(req.Email),
		PhoneNumber:   validation.NormalizePhone(req.PhoneNumber),
		University:    strings.TrimSpace(req.University),
		Department:    optional(req.Department),
		RollNumber:    optional(req.RollNumber),
		MainCategory:  strings.TrimSpace(req.MainCategory),
		SubCategory:   optional(req.SubCategory),
		TeamName:      optional(req.TeamName),
		TeamMembers:   optional(req.TeamMembers),
		TermsAccepted: req.TermsAccepted,
		Status:        model.StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// optional trims s and returns nil when nothing is left.
func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

// ─── Admin operations ─────────────────────────────────────────────────────────

// RegistrationPage is one page of an admin listing.
type RegistrationPage struct {
	Items  []model.Registration `json:"items"`
	Total  int                  `json:"total"`
	Limit  int                  `json:"limit"`
	Offset int                  `json:"offset"`
}

const (
	defaultPageSize = 50
	maxPageSize     = 500
)

// ListRegistrations returns a page of registrations matching f.
func (s *RegistrationService) ListRegistrations(ctx context.Context, f model.RegistrationFilter) (*RegistrationPage, error) {
	if f.Limit <= 0 {
		f.Limit = defaultPageSize
	}
	if f.Limit > maxPageSize {
		f.Limit = maxPageSize
	}
	if f.Offset < 0 {
		f.Offset = 0
	}
	f.Search = strings.TrimSpace(f.Search)

	regs, total, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("list registrations: %w", err)
	}
	if regs == nil {
		regs = []model.Registration{}
	}
	return &RegistrationPage{Items: regs, Total: total, Limit: f.Limit, Offset: f.Offset}, nil
}

// ExportRegistrations returns every registration matching f, ignoring
// paging.
func (s *RegistrationService) ExportRegistrations(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, error) {
	f.Limit, f.Offset = 0, 0
	regs, _, err := s.store.List(ctx, f)
	if err != nil {
		return nil, fmt.Errorf("export registrations: %w", err)
	}
	return regs, nil
}

// GetRegistration returns a single registration by ID.
func (s *RegistrationService) GetRegistration(ctx context.Context, id string) (*model.Registration, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return s.store.GetByID(ctx, id)
}

// UpdateRegistration applies an admin update.
func (s *RegistrationService) UpdateRegistration(ctx context.Context, id string, upd model.RegistrationUpdate) (*model.Registration, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	switch upd.Status {
	case model.StatusPending, model.StatusConfirmed, model.StatusRejected:
	default:
		return nil, ErrInvalidStatus
	}
	return s.store.UpdateStatus(ctx, id, upd.Status)
}

// DeleteRegistration removes a registration.
func (s *RegistrationService) DeleteRegistration(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return s.store.Delete(ctx, id)
}

// validID rejects IDs that cannot exist, so malformed input is a 404
// rather than a database error.
func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
