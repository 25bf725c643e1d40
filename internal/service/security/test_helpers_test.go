package security

import (
	"context"
	"testing"

	internaldb "principal-registry/internal/db"
	"principal-registry/internal/db/repository"
	"principal-registry/internal/domain"
)

// setupPrincipalService returns a service over a fresh migrated store.
func setupPrincipalService(t *testing.T, blockSize int) (*PrincipalService, *internaldb.Store) {
	t.Helper()
	store := internaldb.OpenTestStore(t)
	exec := internaldb.NewTxExecutor(store, nil)
	return NewPrincipalService(repository.NewUnitOfWork(exec), blockSize, nil), store
}

// callerCtx returns a context carrying an authenticated caller.
func callerCtx(email string) context.Context {
	return domain.WithCaller(context.Background(), domain.CallerIdentity{
		Subject: "sub-" + email, Issuer: "https://issuer.test", Email: email,
	})
}

func mustCreate(t *testing.T, svc *PrincipalService, name, email string) *domain.Principal {
	t.Helper()
	p, err := svc.Create(context.Background(), domain.CreatePrincipalRequest{Name: name, Email: email})
	if err != nil {
		t.Fatalf("create %s: %v", email, err)
	}
	return p
}

func countRows(t *testing.T, store *internaldb.Store, table string) int {
	t.Helper()
	var n int
	if err := store.Read.QueryRow("SELECT count(*) FROM " + table).Scan(&n); err != nil {
		t.Fatalf("count %s: %v", table, err)
	}
	return n
}

func boolPtr(b bool) *bool { return &b }

func strPtr(s string) *string { return &s }
