package security

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principal-registry/internal/domain"
	"principal-registry/internal/testutil"
)

var errBoom = errors.New("boom")

func notFound(context.Context, string) (*domain.Principal, error) {
	return nil, domain.ErrNotFound("principal not found")
}

func TestPrincipalService_TransactionModes(t *testing.T) {
	mt := testutil.NewMockTransactor()
	stored := &domain.Principal{ID: "p1", Name: "a", Email: "a@example.com", State: domain.PrincipalEnabled}
	mt.Principals.GetByIDFn = func(context.Context, string) (*domain.Principal, error) {
		cp := *stored
		return &cp, nil
	}
	mt.Principals.GetByEmailFn = notFound
	mt.Principals.InsertFn = func(context.Context, *domain.Principal) error { return nil }
	mt.Principals.UpdateFn = func(context.Context, *domain.Principal) error { return nil }
	mt.Principals.ListAfterFn = func(context.Context, *domain.PrincipalCursor, int) ([]domain.Principal, error) {
		return nil, nil
	}
	mt.Audit.ListFn = func(context.Context, string, domain.PageRequest) ([]domain.AuditEntry, error) { return nil, nil }

	svc := NewPrincipalService(mt, 0, nil)
	ctx := context.Background()

	tests := []struct {
		name     string
		call     func() error
		wantMode domain.TxMode
		wantDesc string
	}{
		{"create", func() error {
			_, err := svc.Create(ctx, domain.CreatePrincipalRequest{Name: "b", Email: "b@example.com"})
			return err
		}, domain.TxReadWrite, "failed to create principal"},
		{"get", func() error { _, err := svc.GetByID(ctx, "p1"); return err }, domain.TxReadOnly, "failed to get principal"},
		{"list", func() error { _, err := svc.List(ctx, 0, 10, nil); return err }, domain.TxReadOnly, "failed to list principals"},
		{"update", func() error {
			_, err := svc.Update(ctx, "p1", domain.UpdatePrincipalRequest{Active: boolPtr(false)})
			return err
		}, domain.TxReadWrite, "failed to update principal"},
		{"delete", func() error { return svc.Delete(ctx, "p1") }, domain.TxReadWrite, "failed to delete principal"},
		{"audit", func() error {
			_, err := svc.ListAudit(ctx, "p1", domain.PageRequest{})
			return err
		}, domain.TxReadOnly, "failed to list principal audit log"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.call())
			last := mt.LastCall()
			assert.Equal(t, tt.wantMode, last.Mode)
			assert.Equal(t, tt.wantDesc, last.Description)
		})
	}

	assert.True(t, mt.Audit.HasAction(domain.AuditCreatePrincipal))
	assert.True(t, mt.Audit.HasAction(domain.AuditUpdatePrincipal))
	assert.True(t, mt.Audit.HasAction(domain.AuditDeletePrincipal))
}

func TestPrincipalService_CreateStopsOnLookupError(t *testing.T) {
	mt := testutil.NewMockTransactor()
	mt.Principals.GetByEmailFn = func(context.Context, string) (*domain.Principal, error) { return nil, errBoom }
	// InsertFn is unset: reaching Insert would panic.

	svc := NewPrincipalService(mt, 0, nil)
	_, err := svc.Create(context.Background(), domain.CreatePrincipalRequest{Name: "a", Email: "a@example.com"})
	require.ErrorIs(t, err, errBoom)
	assert.Empty(t, mt.Audit.Entries)
}

func TestPrincipalService_CreateFailsWhenAuditFails(t *testing.T) {
	mt := testutil.NewMockTransactor()
	mt.Principals.GetByEmailFn = notFound
	mt.Principals.GetByExternalIDFn = notFound
	mt.Principals.InsertFn = func(context.Context, *domain.Principal) error { return nil }
	mt.Audit.InsertFn = func(context.Context, *domain.AuditEntry) error { return errBoom }

	svc := NewPrincipalService(mt, 0, nil)
	ext := "sub-1"
	_, err := svc.Create(context.Background(), domain.CreatePrincipalRequest{Name: "a", Email: "a@example.com", ExternalID: &ext})
	require.ErrorIs(t, err, errBoom)
	assert.ErrorIs(t, mt.LastCall().Err, errBoom)
}

func TestPrincipalService_ListPropagatesFetchError(t *testing.T) {
	mt := testutil.NewMockTransactor()
	calls := 0
	mt.Principals.ListAfterFn = func(_ context.Context, after *domain.PrincipalCursor, limit int) ([]domain.Principal, error) {
		calls++
		if after != nil {
			return nil, errBoom
		}
		assert.Equal(t, 2, limit)
		return []domain.Principal{{ID: "1", Name: "a"}, {ID: "2", Name: "b"}}, nil
	}

	svc := NewPrincipalService(mt, 2, nil)
	_, err := svc.List(context.Background(), 0, 10, nil)
	require.ErrorIs(t, err, errBoom)
	assert.Equal(t, 2, calls)
}

func TestPrincipalService_ValidationSkipsTransaction(t *testing.T) {
	mt := testutil.NewMockTransactor()
	svc := NewPrincipalService(mt, 0, nil)

	_, err := svc.Create(context.Background(), domain.CreatePrincipalRequest{Name: "", Email: "a@example.com"})
	var ve *domain.ValidationError
	require.ErrorAs(t, err, &ve)

	_, err = svc.Update(context.Background(), "p1", domain.UpdatePrincipalRequest{Name: strPtr("")})
	require.ErrorAs(t, err, &ve)

	assert.Empty(t, mt.Calls)
}
