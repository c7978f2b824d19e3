package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/Shivanand-hulikatti/techfest-registration/internal/model"
)

const registrationColumns = `id, full_name, email, phone_number, university, department, roll_number,
	main_category, sub_category, team_name, team_members, terms_accepted, status, created_at, updated_at`

// RegistrationRepository handles persistence for registrations.
type RegistrationRepository struct {
	db DB
}

// NewRegistrationRepository constructs a RegistrationRepository.
func NewRegistrationRepository(db DB) *RegistrationRepository {
	return &RegistrationRepository{db: db}
}

// ExistsByEmail reports whether a registration with email exists. email
// must already be normalized.
func (r *RegistrationRepository) ExistsByEmail(ctx context.Context, email string) (bool, error) {
	var id string
	err := r.db.QueryRow(ctx,
		`SELECT id FROM registrations WHERE lower(btrim(email)) = $1 LIMIT 1`,
		email,
	).Scan(&id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return false, nil
		}
		return false, fmt.Errorf("check email: %w", err)
	}
	return true, nil
}

// Insert stores reg. Constraint violations are returned wrapped so callers
// can inspect the *pgconn.PgError.
func (r *RegistrationRepository) Insert(ctx context.Context, reg *model.Registration) error {
	_, err := r.db.Exec(ctx,
		`INSERT INTO registrations (`+registrationColumns+`)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`,
		reg.ID, reg.FullName, reg.Email, reg.PhoneNumber, reg.University,
		nullable(reg.Department), nullable(reg.RollNumber), reg.MainCategory,
		nullable(reg.SubCategory), nullable(reg.TeamName), nullable(reg.TeamMembers),
		reg.TermsAccepted, reg.Status, reg.CreatedAt, reg.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert registration: %w", err)
	}
	return nil
}

// likeEscaper makes search input match literally inside ILIKE.
var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// List returns registrations matching f, newest first, and the total
// number of matches ignoring Limit and Offset.
func (r *RegistrationRepository) List(ctx context.Context, f model.RegistrationFilter) ([]model.Registration, int, error) {
	var (
		where []string
		args  []any
	)
	if f.Category != "" {
		args = append(args, f.Category)
		where = append(where, fmt.Sprintf("main_category = $%d", len(args)))
	}
	if f.Status != "" {
		args = append(args, f.Status)
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if f.Search != "" {
		args = append(args, "%"+likeEscaper.Replace(f.Search)+"%")
		n := len(args)
		where = append(where, fmt.Sprintf(
			`(full_name ILIKE $%d ESCAPE '\' OR email ILIKE $%d ESCAPE '\' OR university ILIKE $%d ESCAPE '\')`,
			n, n, n,
		))
	}

	var b strings.Builder
	b.WriteString(`SELECT ` + registrationColumns + `, count(*) OVER() FROM registrations`)
	if len(where) > 0 {
		b.WriteString(" WHERE " + strings.Join(where, " AND "))
	}
	b.WriteString(" ORDER BY created_at DESC")
	if f.Limit > 0 {
		args = append(args, f.Limit)
		fmt.Fprintf(&b, " LIMIT $%d", len(args))
	}
	if f.Offset > 0 {
		args = append(args, f.Offset)
		fmt.Fprintf(&b, " OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, b.String(), args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list registrations: %w", err)
	}
	defer rows.Close()

	var (
		regs  []model.Registration
		total int
	)
	for rows.Next() {
		var reg model.Registration
		if err := scanRegistration(rows, &reg, &total); err != nil {
			return nil, 0, fmt.Errorf("scan registration: %w", err)
		}
		regs = append(regs, reg)
	}
	return regs, total, rows.Err()
}

// GetByID returns a single registration or ErrNotFound.
func (r *RegistrationRepository) GetByID(ctx context.Context, id string) (*model.Registration, error) {
	var reg model.Registration
	err := scanRegistration(r.db.QueryRow(ctx,
		`SELECT `+registrationColumns+` FROM registrations WHERE id = $1`,
		id,
	), &reg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get registration: %w", err)
	}
	return &reg, nil
}

// UpdateStatus sets the status of a registration and returns the new row.
func (r *RegistrationRepository) UpdateStatus(ctx context.Context, id, status string) (*model.Registration, error) {
	var reg model.Registration
	err := scanRegistration(r.db.QueryRow(ctx,
		`UPDATE registrations SET status = $2, updated_at = now()
		 WHERE id = $1
		 RETURNING `+registrationColumns,
		id, status,
	), &reg)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("update registration: %w", err)
	}
	return &reg, nil
}

// Delete removes a registration or returns ErrNotFound.
func (r *RegistrationRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete registration: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func scanRegistration(row pgx.Row, reg *model.Registration, extra ...any) error {
	dest := []any{
		&reg.ID, &reg.FullName, &reg.Email, &reg.PhoneNumber, &reg.University,
		&reg.Department, &reg.RollNumber, &reg.MainCategory, &reg.SubCategory,
		&reg.TeamName, &reg.TeamMembers, &reg.TermsAccepted, &reg.Status,
		&reg.CreatedAt, &reg.UpdatedAt,
	}
	return row.Scan(append(dest, extra...)...)
}
