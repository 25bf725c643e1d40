package domain

import "context"

// TxMode declares the intent of a unit of work.
type TxMode int

const (
	// TxReadOnly is a hint that the unit of work performs no writes.
	TxReadOnly TxMode = iota
	// TxReadWrite runs on the serialized write path.
	TxReadWrite
)

func (m TxMode) String() string {
	if m == TxReadOnly {
		return "read-only"
	}
	return "read-write"
}

// PrincipalRepository is the transaction-scoped view of principal persistence.
type PrincipalRepository interface {
	GetByID(ctx context.Context, id string) (*Principal, error)
	GetByEmail(ctx context.Context, email string) (*Principal, error)
	GetByExternalID(ctx context.Context, externalID string) (*Principal, error)
	Insert(ctx context.Context, p *Principal) error
	Update(ctx context.Context, p *Principal) error
	// ListAfter returns up to limit principals strictly after the cursor in
	// (name, id) order. A nil cursor starts from the beginning.
	ListAfter(ctx context.Context, after *PrincipalCursor, limit int) ([]Principal, error)
}

// AuditRepository records principal mutations.
type AuditRepository interface {
	Insert(ctx context.Context, e *AuditEntry) error
	ListForPrincipal(ctx context.Context, principalID string, page PageRequest) ([]AuditEntry, error)
}

// PrincipalTx exposes the repositories bound to one open transaction.
type PrincipalTx interface {
	Principals() PrincipalRepository
	Audit() AuditRepository
}

// PrincipalTransactor runs units of work against principal storage.
// fn's error rolls the transaction back; a nil return commits it.
type PrincipalTransactor interface {
	InTx(ctx context.Context, mode TxMode, description string, fn func(ctx context.Context, tx PrincipalTx) error) error
}
