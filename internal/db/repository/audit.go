package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"principal-registry/internal/db"
	"principal-registry/internal/domain"
)

// AuditRepo records principal mutations in principal_audit_log.
type AuditRepo struct {
	db db.DBTX
}

var _ domain.AuditRepository = (*AuditRepo)(nil)

// NewAuditRepo binds an AuditRepo to q.
func NewAuditRepo(q db.DBTX) *AuditRepo {
	return &AuditRepo{db: q}
}

// Insert appends an audit entry. Missing ID and CreatedAt are filled in.
func (r *AuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if e.ID == "" {
		e.ID = domain.NewID()
	}
	if e.CreatedAt.IsZero() {
		e.CreatedAt = fromMillis(toMillis(time.Now()))
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO principal_audit_log (id, principal_id, actor, action, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.PrincipalID, e.Actor, e.Action, nullString(e.Detail), toMillis(e.CreatedAt))
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// ListForPrincipal returns the audit trail of one principal, newest first.
func (r *AuditRepo) ListForPrincipal(ctx context.Context, principalID string, page domain.PageRequest) (_ []domain.AuditEntry, err error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, principal_id, actor, action, detail, created_at
		 FROM principal_audit_log
		 WHERE principal_id = ?
		 ORDER BY created_at DESC, id DESC
		 LIMIT ? OFFSET ?`,
		principalID, page.Limit(), page.Offset())
	if err != nil {
		return nil, fmt.Errorf("list audit entries: %w", err)
	}
	defer closeRows(rows, &err)

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e         domain.AuditEntry
			detail    sql.NullString
			createdAt int64
		)
		if err := rows.Scan(&e.ID, &e.PrincipalID, &e.Actor, &e.Action, &detail, &createdAt); err != nil {
			return nil, fmt.Errorf("scan audit entry: %w", err)
		}
		e.Detail = stringPtr(detail)
		e.CreatedAt = fromMillis(createdAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate audit entries: %w", err)
	}
	return entries, nil
}
