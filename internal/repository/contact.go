package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

const contactColumns = `id, name, email, subject, message, read, created_at`

// ContactRepository handles persistence for contact messages.
type ContactRepository struct {
	db DB
}

// NewContactRepository constructs a ContactRepository.
func NewContactRepository(db DB) *ContactRepository {
	return &ContactRepository{db: db}
}

// Insert stores msg.
func (r *ContactRepository) Insert(ctx context.Context, msg *model.ContactMessage) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO contact_messages (`+contactColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		msg.ID, msg.Name, msg.Email, nullable(msg.Subject), msg.Message, msg.Read, msg.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert contact message: %w", err)
	}
	return nil
}

// List returns contact messages newest first. unreadOnly filters out
// messages already marked read.
func (r *ContactRepository) List(ctx context.Context, unreadOnly bool, limit, offset int) ([]model.ContactMessage, error) {
	rows, err := r.db.Query(ctx,
		`SELECT `+contactColumns+`
		 FROM contact_messages
		 WHERE ($1::boolean IS FALSE OR read = false)
		 ORDER BY created_at DESC
		 LIMIT $2 OFFSET $3`,
		unreadOnly, limit, offset,
	)
	if err != nil {
		return nil, fmt.Errorf("list contact messages: %w", err)
	}
	defer rows.Close()

	var msgs []model.ContactMessage
	for rows.Next() {
		var m model.ContactMessage
		if err := scanContact(rows, &m); err != nil {
			return nil, fmt.Errorf("scan contact message: %w", err)
		}
		msgs = append(msgs, m)
	}
	return msgs, rows.Err()
}

// SetRead marks a message read or unread and returns the new row.
func (r *ContactRepository) SetRead(ctx context.Context, id string, read bool) (*model.ContactMessage, error) {
	var m model.ContactMessage
	err := scanContact(r.db.QueryRow(ctx,
		`UPDATE contact_messages SET read = $2 WHERE id = $1 RETURNING `+contactColumns,
		id, read,
	), &m)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update contact message: %w", err)
	}
	return &m, nil
}

// Delete removes a message or returns ErrNotFound.
func (r *ContactRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM contact_messages WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete contact message: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanContact(row pgx.Row, m *model.ContactMessage) error {
	return row.Scan(&m.ID, &m.Name, &m.Email, &m.Subject, &m.Message, &m.Read, &m.CreatedAt)
}
