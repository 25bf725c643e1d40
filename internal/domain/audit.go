package domain

import "time"

// Audit actions recorded for principal mutations.
const (
	AuditCreatePrincipal = "CREATE_PRINCIPAL"
	AuditUpdatePrincipal = "UPDATE_PRINCIPAL"
	AuditDeletePrincipal = "DELETE_PRINCIPAL"
)

// SystemActor is recorded as the actor when no caller identity is present.
const SystemActor = "system"

// AuditEntry represents a single principal audit log record.
type AuditEntry struct {
	ID          string
	PrincipalID string
	Actor       string
	Action      string
	Detail      *string
	CreatedAt   time.Time
}
