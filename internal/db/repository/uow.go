package repository

import (
	"context"

	"principal-registry/internal/db"
	"principal-registry/internal/domain"
)

// UnitOfWork implements domain.PrincipalTransactor on top of a TxExecutor,
// handing each unit of work repositories bound to its transaction.
type UnitOfWork struct {
	exec *db.TxExecutor
}

var _ domain.PrincipalTransactor = (*UnitOfWork)(nil)

// NewUnitOfWork creates a UnitOfWork.
func NewUnitOfWork(exec *db.TxExecutor) *UnitOfWork {
	return &UnitOfWork{exec: exec}
}

type txRepos struct {
	principals *PrincipalRepo
	audit      *AuditRepo
}

func (t txRepos) Principals() domain.PrincipalRepository { return t.principals }
func (t txRepos) Audit() domain.AuditRepository          { return t.audit }

// InTx runs fn in a transaction of the given mode.
func (u *UnitOfWork) InTx(ctx context.Context, mode domain.TxMode, description string, fn func(ctx context.Context, tx domain.PrincipalTx) error) error {
	return u.exec.Execute(ctx, mode, description, func(ctx context.Context, q db.DBTX) error {
		return fn(ctx, txRepos{principals: NewPrincipalRepo(q), audit: NewAuditRepo(q)})
	})
}
