// Package testutil provides shared mock implementations of domain interfaces
// for use in tests across the codebase. This follows the Go convention of a
// shared test utility package (like net/http/httptest).
package testutil

import (
	"context"

	"principal-registry/internal/domain"
)

// === Audit Repository Mock ===

// MockAuditRepo implements domain.AuditRepository for testing.
type MockAuditRepo struct {
	InsertFn func(ctx context.Context, e *domain.AuditEntry) error
	ListFn   func(ctx context.Context, principalID string, page domain.PageRequest) ([]domain.AuditEntry, error)
	Entries  []*domain.AuditEntry // collected entries for assertions
}

// Insert implements the interface method for testing.
func (m *MockAuditRepo) Insert(ctx context.Context, e *domain.AuditEntry) error {
	if m.InsertFn != nil {
		if err := m.InsertFn(ctx, e); err != nil {
			return err
		}
	}
	m.Entries = append(m.Entries, e)
	return nil
}

// ListForPrincipal implements the interface method for testing.
func (m *MockAuditRepo) ListForPrincipal(ctx context.Context, principalID string, page domain.PageRequest) ([]domain.AuditEntry, error) {
	if m.ListFn != nil {
		return m.ListFn(ctx, principalID, page)
	}
	panic("unexpected call to MockAuditRepo.ListForPrincipal")
}

// HasAction returns true if any collected entry has the given action.
func (m *MockAuditRepo) HasAction(action string) bool {
	for _, e := range m.Entries {
		if e.Action == action {
			return true
		}
	}
	return false
}

// === Principal Repository Mock ===

// MockPrincipalRepo implements domain.PrincipalRepository for testing.
// Calls to methods without a configured Fn panic.
type MockPrincipalRepo struct {
	GetByIDFn         func(ctx context.Context, id string) (*domain.Principal, error)
	GetByEmailFn      func(ctx context.Context, email string) (*domain.Principal, error)
	GetByExternalIDFn func(ctx context.Context, externalID string) (*domain.Principal, error)
	InsertFn          func(ctx context.Context, p *domain.Principal) error
	UpdateFn          func(ctx context.Context, p *domain.Principal) error
	ListAfterFn       func(ctx context.Context, after *domain.PrincipalCursor, limit int) ([]domain.Principal, error)
}

// GetByID implements the interface method for testing.
func (m *MockPrincipalRepo) GetByID(ctx context.Context, id string) (*domain.Principal, error) {
	if m.GetByIDFn != nil {
		return m.GetByIDFn(ctx, id)
	}
	panic("unexpected call to MockPrincipalRepo.GetByID")
}

// GetByEmail implements the interface method for testing.
func (m *MockPrincipalRepo) GetByEmail(ctx context.Context, email string) (*domain.Principal, error) {
	if m.GetByEmailFn != nil {
		return m.GetByEmailFn(ctx, email)
	}
	panic("unexpected call to MockPrincipalRepo.GetByEmail")
}

// GetByExternalID implements the interface method for testing.
func (m *MockPrincipalRepo) GetByExternalID(ctx context.Context, externalID string) (*domain.Principal, error) {
	if m.GetByExternalIDFn != nil {
		return m.GetByExternalIDFn(ctx, externalID)
	}
	panic("unexpected call to MockPrincipalRepo.GetByExternalID")
}

// Insert implements the interface method for testing.
func (m *MockPrincipalRepo) Insert(ctx context.Context, p *domain.Principal) error {
	if m.InsertFn != nil {
		return m.InsertFn(ctx, p)
	}
	panic("unexpected call to MockPrincipalRepo.Insert")
}

// Update implements the interface method for testing.
func (m *MockPrincipalRepo) Update(ctx context.Context, p *domain.Principal) error {
	if m.UpdateFn != nil {
		return m.UpdateFn(ctx, p)
	}
	panic("unexpected call to MockPrincipalRepo.Update")
}

// ListAfter implements the interface method for testing.
func (m *MockPrincipalRepo) ListAfter(ctx context.Context, after *domain.PrincipalCursor, limit int) ([]domain.Principal, error) {
	if m.ListAfterFn != nil {
		return m.ListAfterFn(ctx, after, limit)
	}
	panic("unexpected call to MockPrincipalRepo.ListAfter")
}

// === Transactor Mock ===

// TxCall records one InTx invocation.
type TxCall struct {
	Mode        domain.TxMode
	Description string
	Err         error
}

// MockTransactor implements domain.PrincipalTransactor by running the
// callback directly against the mock repositories. It does not roll back.
type MockTransactor struct {
	Principals *MockPrincipalRepo
	Audit      *MockAuditRepo
	Calls      []TxCall
}

// NewMockTransactor returns a transactor over empty mocks.
func NewMockTransactor() *MockTransactor {
	return &MockTransactor{Principals: &MockPrincipalRepo{}, Audit: &MockAuditRepo{}}
}

type mockTx struct{ m *MockTransactor }

func (t mockTx) Principals() domain.PrincipalRepository { return t.m.Principals }
func (t mockTx) Audit() domain.AuditRepository          { return t.m.Audit }

// InTx implements domain.PrincipalTransactor.
func (m *MockTransactor) InTx(ctx context.Context, mode domain.TxMode, description string, fn func(ctx context.Context, tx domain.PrincipalTx) error) error {
	err := fn(ctx, mockTx{m: m})
	m.Calls = append(m.Calls, TxCall{Mode: mode, Description: description, Err: err})
	return err
}

// LastCall returns the most recent InTx invocation.
func (m *MockTransactor) LastCall() TxCall {
	if len(m.Calls) == 0 {
		return TxCall{}
	}
	return m.Calls[len(m.Calls)-1]
}
