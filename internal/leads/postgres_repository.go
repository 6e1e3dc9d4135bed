package leads

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// DB is the subset of pgxpool.Pool the repository needs; pgxmock satisfies it in tests.
type DB interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

const leadColumns = `id, name, phone, address, problem, emergency_level, status, preferred_contact,
	email, city, state, zip_code, property_type, preferred_time, availability, scheduled_time,
	source, created_at, updated_at`

// PostgresRepository stores leads in the relational database.
type PostgresRepository struct {
	deps
	db DB
}

// NewPostgresRepository initializes a repo backed by a pgx pool.
func NewPostgresRepository(db DB) *PostgresRepository {
	if db == nil {
		panic("leads: pgx pool required")
	}
	return &PostgresRepository{deps: defaultDeps(), db: db}
}

func scanLead(row pgx.Row) (*Lead, error) {
	var lead Lead
	var status, contact string
	if err := row.Scan(
		&lead.ID,
		&lead.Name,
		&lead.Phone,
		&lead.Address,
		&lead.Problem,
		&lead.EmergencyLevel,
		&status,
		&contact,
		&lead.Email,
		&lead.City,
		&lead.State,
		&lead.ZipCode,
		&lead.PropertyType,
		&lead.PreferredTime,
		&lead.Availability,
		&lead.ScheduledTime,
		&lead.Source,
		&lead.CreatedAt,
		&lead.UpdatedAt,
	); err != nil {
		return nil, err
	}
	lead.Status = Status(status)
	lead.PreferredContact = ContactMethod(contact)
	return &lead, nil
}

func leadArgs(l *Lead) []any {
	return []any{
		l.ID, l.Name, l.Phone, l.Address, l.Problem, l.EmergencyLevel, string(l.Status),
		string(l.PreferredContact), l.Email, l.City, l.State, l.ZipCode, l.PropertyType,
		l.PreferredTime, l.Availability, l.ScheduledTime, l.Source, l.CreatedAt, l.UpdatedAt,
	}
}

func (r *PostgresRepository) findCustomer(ctx context.Context, req *CreateLeadRequest) (*Lead, error) {
	query := `SELECT ` + leadColumns + `
		FROM leads
		WHERE ($1 <> '' AND phone = $1) OR ($2 <> '' AND lower(email) = $2)
		ORDER BY created_at
		LIMIT 1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, req.Phone, req.Email))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("leads: lookup failed: %w", err)
	}
	return lead, nil
}

// Upsert inserts a new row or merges into the existing customer's row.
func (r *PostgresRepository) Upsert(ctx context.Context, req *CreateLeadRequest) (*Lead, bool, error) {
	if err := req.Validate(); err != nil {
		return nil, false, err
	}
	req = req.normalized()

	existing, err := r.findCustomer(ctx, req)
	if err != nil {
		return nil, false, err
	}
	if existing != nil {
		existing.merge(req, r.now())
		if err := r.write(ctx, existing); err != nil {
			return nil, false, err
		}
		return existing, false, nil
	}

	lead := newLead(r.newID(), req, r.now())
	query := `INSERT INTO leads (` + leadColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19)`
	if _, err := r.db.Exec(ctx, query, leadArgs(lead)...); err != nil {
		return nil, false, fmt.Errorf("leads: insert failed: %w", err)
	}
	return lead, true, nil
}

func (r *PostgresRepository) write(ctx context.Context, l *Lead) error {
	query := `UPDATE leads SET name = $2, phone = $3, address = $4, problem = $5,
		emergency_level = $6, status = $7, preferred_contact = $8, email = $9, city = $10,
		state = $11, zip_code = $12, property_type = $13, preferred_time = $14,
		availability = $15, scheduled_time = $16, source = $17, updated_at = $18
		WHERE id = $1`
	args := leadArgs(l)
	args = append(args[:17], l.UpdatedAt)
	tag, err := r.db.Exec(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("leads: update failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}

// GetByID fetches a single lead.
func (r *PostgresRepository) GetByID(ctx context.Context, id string) (*Lead, error) {
	query := `SELECT ` + leadColumns + ` FROM leads WHERE id = $1`
	lead, err := scanLead(r.db.QueryRow(ctx, query, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrLeadNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("leads: select failed: %w", err)
	}
	return lead, nil
}

// List returns leads newest first.
func (r *PostgresRepository) List(ctx context.Context, filter ListLeadsFilter) ([]*Lead, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	query := `SELECT ` + leadColumns + ` FROM leads`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY created_at DESC"
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	defer rows.Close()

	out := []*Lead{}
	for rows.Next() {
		lead, err := scanLead(rows)
		if err != nil {
			return nil, fmt.Errorf("leads: scan failed: %w", err)
		}
		out = append(out, lead)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("leads: list failed: %w", err)
	}
	return out, nil
}

// Update applies dashboard edits to a lead.
func (r *PostgresRepository) Update(ctx context.Context, id string, req *UpdateLeadRequest) (*Lead, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}
	lead, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	lead.apply(req, r.now())
	if err := r.write(ctx, lead); err != nil {
		return nil, err
	}
	return lead, nil
}

// Delete removes a lead.
func (r *PostgresRepository) Delete(ctx context.Context, id string) error {
	tag, err := r.db.Exec(ctx, `DELETE FROM leads WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("leads: delete failed: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrLeadNotFound
	}
	return nil
}
