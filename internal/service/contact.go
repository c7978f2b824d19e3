package service

import (
	"context"
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

// ContactStore is the persistence the contact service needs.
type ContactStore interface {
	Insert(ctx context.Context, msg *model.ContactMessage) error
	List(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error)
	SetRead(ctx context.Context, id string, read bool) (*model.ContactMessage, error)
	Delete(ctx context.Context, id string) error
}

// ContactService handles contact form submissions.
type ContactService struct {
	store ContactStore
	log   *zap.Logger
	now   func() time.Time
}

// NewContactService constructs a ContactService.
func NewContactService(store ContactStore, log *zap.Logger) *ContactService {
	return &ContactService{store: store, log: log, now: time.Now}
}

// Submit validates and stores a contact message. Failures are returned as
// *Error.
func (s *ContactService) Submit(ctx context.Context, req model.ContactRequest) (*model.ContactMessage, error) {
	if errs := validation.ValidateContact(req); len(errs) > 0 {
		return nil, &Error{
			Type:    ErrorValidation,
			Status:  http.StatusBadRequest,
			Message: MsgValidationFailed,
			Errors:  errs,
		}
	}

	msg := &model.ContactMessage{
		ID:        uuid.New().String(),
		Name:      strings.TrimSpace(req.Name),
		Email:     NormalizeEmail(req.Email),
		Subject:   optional(req.Subject),
		Message:   strings.TrimSpace(req.Message),
		CreatedAt: s.now().UTC(),
	}
	if err := s.store.Insert(ctx, msg); err != nil {
		s.log.Error("insert contact message failed", zap.Error(err))
		e := classifyWriteError(err)
		if e.Status == http.StatusInternalServerError {
			e.Message = MsgContactSaveFailed
		}
		return nil, e
	}
	return msg, nil
}

// List returns a page of contact messages.
func (s *ContactService) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	if limit <= 0 || limit > maxPageSize {
		limit = defaultPageSize
	}
	if offset < 0 {
		offset = 0
	}
	msgs, err := s.store.List(ctx, unreadOnly, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	if msgs == nil {
		msgs = []model.ContactMessage{}
	}
	return msgs, nil
}

// Update applies an admin update to a message.
func (s *ContactService) Update(ctx context.Context, id string, upd model.ContactUpdate) (*model.ContactMessage, error) {
	if !validID(id) {
		return nil, repository.ErrNotFound
	}
	return s.store.SetRead(ctx, id, upd.Read)
}

// Delete removes a message.
func (s *ContactService) Delete(ctx context.Context, id string) error {
	if !validID(id) {
		return repository.ErrNotFound
	}
	return s.store.Delete(ctx, id)
}
