// Package security manages principals: creation with uniqueness checks,
// lookups, filtered listing, soft deletion and caller resolution.
package security

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"principal-registry/internal/domain"
	"principal-registry/internal/paging"
	"principal-registry/internal/service/auditutil"
)

// PrincipalService provides principal management operations. Every operation
// runs in its own transaction.
type PrincipalService struct {
	tx     domain.PrincipalTransactor
	lister paging.Lister[domain.Principal, domain.PrincipalCursor]
	logger *slog.Logger
	now    func() time.Time
}

// NewPrincipalService creates a PrincipalService. blockSize is the number of
// rows read per keyset query while listing (<= 0 selects the default).
func NewPrincipalService(tx domain.PrincipalTransactor, blockSize int, logger *slog.Logger) *PrincipalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &PrincipalService{
		tx:     tx,
		lister: paging.NewLister(domain.Principal.Cursor, blockSize),
		logger: logger,
		now:    time.Now,
	}
}

// timestamp returns the current time at the millisecond precision the store keeps.
func (s *PrincipalService) timestamp() time.Time {
	return time.UnixMilli(s.now().UnixMilli()).UTC()
}

// Create validates and persists a new ENABLED principal. The email and
// external id lookups and the insert share one read-write transaction.
func (s *PrincipalService) Create(ctx context.Context, req domain.CreatePrincipalRequest) (*domain.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	p := domain.Principal{
		ID:         domain.NewID(),
		Name:       req.Name,
		Email:      req.Email,
		ExternalID: req.ExternalID,
		State:      domain.PrincipalEnabled,
		CreatedAt:  s.timestamp(),
	}

	err := s.tx.InTx(ctx, domain.TxReadWrite, "failed to create principal", func(ctx context.Context, tx domain.PrincipalTx) error {
		if _, err := tx.Principals().GetByEmail(ctx, p.Email); err == nil {
			return domain.ErrConflict("principal already exists: %s", p.Email)
		} else if !isNotFound(err) {
			return err
		}
		if p.ExternalID != nil {
			if _, err := tx.Principals().GetByExternalID(ctx, *p.ExternalID); err == nil {
				return domain.ErrConflict("principal already exists: external_id %s", *p.ExternalID)
			} else if !isNotFound(err) {
				return err
			}
		}
		if err := tx.Principals().Insert(ctx, &p); err != nil {
			return err
		}
		return auditutil.Record(ctx, tx.Audit(), p.ID, domain.AuditCreatePrincipal, p.Email, p.CreatedAt)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("principal created", "id", p.ID, "email", p.Email)
	return &p, nil
}

// GetByID returns a principal by ID.
func (s *PrincipalService) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	var out *domain.Principal
	err := s.tx.InTx(ctx, domain.TxReadOnly, "failed to get principal", func(ctx context.Context, tx domain.PrincipalTx) error {
		p, err := tx.Principals().GetByID(ctx, id)
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// GetByEmail returns the principal registered under email.
func (s *PrincipalService) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	var out *domain.Principal
	err := s.tx.InTx(ctx, domain.TxReadOnly, "failed to get principal by email", func(ctx context.Context, tx domain.PrincipalTx) error {
		p, err := tx.Principals().GetByEmail(ctx, strings.TrimSpace(email))
		out = p
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// List returns up to maxCount principals accepted by filter, starting at the
// startIndex-th match in (name, id) order. A nil filter accepts all.
func (s *PrincipalService) List(ctx context.Context, startIndex, maxCount int, filter domain.PrincipalFilter) ([]domain.Principal, error) {
	var out []domain.Principal
	err := s.tx.InTx(ctx, domain.TxReadOnly, "failed to list principals", func(ctx context.Context, tx domain.PrincipalTx) error {
		items, stats, err := s.lister.List(ctx, tx.Principals().ListAfter, startIndex, maxCount, filter)
		if err != nil {
			return err
		}
		s.logger.Debug("principal listing scanned",
			"start", startIndex, "max", maxCount,
			"blocks", stats.Blocks, "scanned", stats.Scanned, "matched", stats.Matched)
		out = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// ListPage is List addressed by an opaque page token. It returns the token of
// the following page, empty when the listing is exhausted.
func (s *PrincipalService) ListPage(ctx context.Context, page domain.PageRequest, filter domain.PrincipalFilter) ([]domain.Principal, string, error) {
	offset, limit := page.Offset(), page.Limit()
	items, err := s.List(ctx, offset, limit, filter)
	if err != nil {
		return nil, "", err
	}
	return items, domain.NextPageToken(offset, limit, len(items)), nil
}

// Update applies the set fields of req to the principal. A changed external
// id is not checked against other principals here; the store's unique index
// still rejects a duplicate.
func (s *PrincipalService) Update(ctx context.Context, id string, req domain.UpdatePrincipalRequest) (*domain.Principal, error) {
	if err := req.Validate(); err != nil {
		return nil, err
	}

	var out *domain.Principal
	err := s.tx.InTx(ctx, domain.TxReadWrite, "failed to update principal", func(ctx context.Context, tx domain.PrincipalTx) error {
		p, err := tx.Principals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		req.Apply(p)
		now := s.timestamp()
		p.UpdatedAt = &now
		if err := tx.Principals().Update(ctx, p); err != nil {
			return err
		}
		out = p
		return auditutil.Record(ctx, tx.Audit(), p.ID, domain.AuditUpdatePrincipal, strings.Join(req.Fields(), ","), now)
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// Delete soft-deletes a principal by forcing it to DISABLED. Deleting an
// already disabled principal succeeds.
func (s *PrincipalService) Delete(ctx context.Context, id string) error {
	err := s.tx.InTx(ctx, domain.TxReadWrite, "failed to delete principal", func(ctx context.Context, tx domain.PrincipalTx) error {
		p, err := tx.Principals().GetByID(ctx, id)
		if err != nil {
			return err
		}
		now := s.timestamp()
		p.State = domain.PrincipalDisabled
		p.UpdatedAt = &now
		if err := tx.Principals().Update(ctx, p); err != nil {
			return err
		}
		return auditutil.Record(ctx, tx.Audit(), p.ID, domain.AuditDeletePrincipal, "", now)
	})
	if err != nil {
		return err
	}
	s.logger.Info("principal deleted", "id", id)
	return nil
}

// ResolveCallerID returns the id of the principal registered under the
// caller's verified email. ok is false when idp reports no caller; a caller
// without a principal yields a NotFoundError.
func (s *PrincipalService) ResolveCallerID(ctx context.Context, idp domain.IdentityProvider) (id string, ok bool, err error) {
	email, found := idp.CurrentCallerEmail(ctx)
	if !found {
		return "", false, nil
	}
	p, err := s.GetByEmail(ctx, email)
	if err != nil {
		return "", false, err
	}
	return p.ID, true, nil
}

// ListAudit returns the audit trail of a principal, newest first.
func (s *PrincipalService) ListAudit(ctx context.Context, principalID string, page domain.PageRequest) ([]domain.AuditEntry, error) {
	var out []domain.AuditEntry
	err := s.tx.InTx(ctx, domain.TxReadOnly, "failed to list principal audit log", func(ctx context.Context, tx domain.PrincipalTx) error {
		if _, err := tx.Principals().GetByID(ctx, principalID); err != nil {
			return err
		}
		entries, err := tx.Audit().ListForPrincipal(ctx, principalID, page)
		out = entries
		return err
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
