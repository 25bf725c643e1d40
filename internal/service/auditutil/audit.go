// Package auditutil records principal changes in the audit trail.
package auditutil

import (
	"context"
	"time"

	"principal-registry/internal/domain"
)

// Actor returns the email of the authenticated caller, or the system actor
// when the call did not come through an authenticated request.
func Actor(ctx context.Context) string {
	if c, ok := domain.CallerFromContext(ctx); ok && c.Email != "" {
		return c.Email
	}
	return domain.SystemActor
}

// Record appends an audit entry for principalID attributed to the caller in
// ctx. An empty detail is stored as NULL.
func Record(ctx context.Context, audit domain.AuditRepository, principalID, action, detail string, at time.Time) error {
	e := &domain.AuditEntry{
		PrincipalID: principalID,
		Actor:       Actor(ctx),
		Action:      action,
		CreatedAt:   at,
	}
	if detail != "" {
		e.Detail = &detail
	}
	return audit.Insert(ctx, e)
}
