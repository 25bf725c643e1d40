package repository

import (
	"context"
	"database/sql"
	"fmt"

	"principal-registry/internal/db"
	"principal-registry/internal/domain"
)

const principalColumns = `id, name, email, external_id, state, created_at, updated_at`

// PrincipalRepo reads and writes principal rows through a DBTX, usually
// an open transaction.
type PrincipalRepo struct {
	db db.DBTX
}

var _ domain.PrincipalRepository = (*PrincipalRepo)(nil)

// NewPrincipalRepo binds a PrincipalRepo to q.
func NewPrincipalRepo(q db.DBTX) *PrincipalRepo {
	return &PrincipalRepo{db: q}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanPrincipal(row rowScanner) (*domain.Principal, error) {
	var (
		p          domain.Principal
		externalID sql.NullString
		state      string
		createdAt  int64
		updatedAt  sql.NullInt64
	)
	if err := row.Scan(&p.ID, &p.Name, &p.Email, &externalID, &state, &createdAt, &updatedAt); err != nil {
		return nil, err
	}
	p.ExternalID = stringPtr(externalID)
	p.State = domain.PrincipalState(state)
	p.CreatedAt = fromMillis(createdAt)
	p.UpdatedAt = timePtr(updatedAt)
	return &p, nil
}

func (r *PrincipalRepo) getOne(ctx context.Context, what, where string, arg interface{}) (*domain.Principal, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+principalColumns+` FROM principals WHERE `+where+` LIMIT 1`, arg)
	p, err := scanPrincipal(row)
	if err != nil {
		return nil, mapDBError(err, what)
	}
	return p, nil
}

// GetByID returns the principal with the given id.
func (r *PrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	return r.getOne(ctx, fmt.Sprintf("principal %q", id), "id = ?", id)
}

// GetByEmail returns the principal holding email.
func (r *PrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	return r.getOne(ctx, fmt.Sprintf("principal with email %q", email), "email = ?", email)
}

// GetByExternalID returns the principal holding externalID.
func (r *PrincipalRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Principal, error) {
	return r.getOne(ctx, fmt.Sprintf("principal with external_id %q", externalID), "external_id = ?", externalID)
}

// Insert persists a new principal row.
func (r *PrincipalRepo) Insert(ctx context.Context, p *domain.Principal) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principals (id, name, email, external_id, state, created_at, updated_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.Name, p.Email, nullString(p.ExternalID), string(p.State),
		toMillis(p.CreatedAt), nullMillis(p.UpdatedAt))
	if err != nil {
		return mapDBError(err, fmt.Sprintf("principal with email %q", p.Email))
	}
	return nil
}

// Update overwrites the mutable columns of an existing principal.
func (r *PrincipalRepo) Update(ctx context.Context, p *domain.Principal) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE principals SET name = ?, external_id = ?, state = ?, updated_at = ? WHERE id = ?`,
		p.Name, nullString(p.ExternalID), string(p.State), nullMillis(p.UpdatedAt), p.ID)
	if err != nil {
		return mapDBError(err, "principal external_id")
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update principal rows affected: %w", err)
	}
	if n == 0 {
		return domain.ErrNotFound("principal %q not found", p.ID)
	}
	return nil
}

// ListAfter returns up to limit principals ordered by (name, id) whose key is
// strictly greater than after. A nil cursor starts from the first principal.
func (r *PrincipalRepo) ListAfter(ctx context.Context, after *domain.PrincipalCursor, limit int) (_ []domain.Principal, err error) {
	var rows *sql.Rows
	if after == nil {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+principalColumns+` FROM principals ORDER BY name, id LIMIT ?`, limit)
	} else {
		rows, err = r.db.QueryContext(ctx,
			`SELECT `+principalColumns+` FROM principals
			 WHERE (name, id) > (?, ?)
			 ORDER BY name, id LIMIT ?`, after.Name, after.ID, limit)
	}
	if err != nil {
		return nil, fmt.Errorf("list principals: %w", err)
	}
	defer closeRows(rows, &err)

	out := make([]domain.Principal, 0, limit)
	for rows.Next() {
		p, err := scanPrincipal(rows)
		if err != nil {
			return nil, fmt.Errorf("scan principal: %w", err)
		}
		out = append(out, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate principals: %w", err)
	}
	return out, nil
}
