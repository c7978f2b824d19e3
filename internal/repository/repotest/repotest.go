// Package repotest provides in-memory stores that behave like the
// PostgreSQL repositories, for service and handler tests.
package repotest

import (
	"context"
	"sort"
	"strings"
	"sync"

	"github.com/jackc/pgx/v5/pgconn"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
	"github.com/Shivanand-hulikatti/techfest-registration/internal/repository"
)

// Registrations is an in-memory registration store. It enforces the
// case-insensitive email uniqueness the database index provides.
type Registrations struct {
	mu   sync.Mutex
	rows map[string]model.Registration

	// Hooks override behavior when set.
	ExistsErr error
	InsertErr error
	// SkipExists makes ExistsByEmail always report false, simulating a
	// concurrent insert that lands between the check and the write.
	SkipExists bool
}

// NewRegistrations returns an empty store.
func NewRegistrations() *Registrations {
	return &Registrations{rows: make(map[string]model.Registration)}
}

func emailKey(email string) string { return strings.ToLower(strings.TrimSpace(email)) }

func (s *Registrations) ExistsByEmail(_ context.Context, email string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.ExistsErr != nil {
		return false, s.ExistsErr
	}
	if s.SkipExists {
		return false, nil
	}
	for _, r := range s.rows {
		if emailKey(r.Email) == email {
			return true, nil
		}
	}
	return false, nil
}

func (s *Registrations) Insert(_ context.Context, reg *model.Registration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	for _, r := range s.rows {
		if emailKey(r.Email) == emailKey(reg.Email) {
			return &pgconn.PgError{
				Code:           "23505",
				Message:        `duplicate key value violates unique constraint "registrations_email_key"`,
				ConstraintName: "registrations_email_key",
			}
		}
	}
	s.rows[reg.ID] = *reg
	return nil
}

func (s *Registrations) List(_ context.Context, f model.RegistrationFilter) ([]model.Registration, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.Registration
	search := strings.ToLower(f.Search)
	for _, r := range s.rows {
		if f.Category != "" && r.MainCategory != f.Category {
			continue
		}
		if f.Status != "" && r.Status != f.Status {
			continue
		}
		if search != "" &&
			!strings.Contains(strings.ToLower(r.FullName), search) &&
			!strings.Contains(strings.ToLower(r.Email), search) &&
			!strings.Contains(strings.ToLower(r.University), search) {
			continue
		}
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })

	total := len(out)
	if f.Offset > 0 {
		if f.Offset >= len(out) {
			out = nil
		} else {
			out = out[f.Offset:]
		}
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, total, nil
}

func (s *Registrations) GetByID(_ context.Context, id string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &r, nil
}

func (s *Registrations) UpdateStatus(_ context.Context, id, status string) (*model.Registration, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	r, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	r.Status = status
	s.rows[id] = r
	return &r, nil
}

func (s *Registrations) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}

// Len returns the number of stored rows.
func (s *Registrations) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

// Contacts is an in-memory contact message store.
type Contacts struct {
	mu   sync.Mutex
	rows map[string]model.ContactMessage

	InsertErr error
}

// NewContacts returns an empty store.
func NewContacts() *Contacts {
	return &Contacts{rows: make(map[string]model.ContactMessage)}
}

func (s *Contacts) Insert(_ context.Context, msg *model.ContactMessage) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.InsertErr != nil {
		return s.InsertErr
	}
	s.rows[msg.ID] = *msg
	return nil
}

func (s *Contacts) List(_ context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []model.ContactMessage
	for _, m := range s.rows {
		if unreadOnly && m.Read {
			continue
		}
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	if offset >= len(out) {
		return nil, nil
	}
	out = out[offset:]
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Contacts) SetRead(_ context.Context, id string, read bool) (*model.ContactMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	m, ok := s.rows[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	m.Read = read
	s.rows[id] = m
	return &m, nil
}

func (s *Contacts) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.rows[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.rows, id)
	return nil
}
