package auditutil

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"principal-registry/internal/domain"
)

type recordingAudit struct {
	entries []domain.AuditEntry
}

func (r *recordingAudit) Insert(_ context.Context, e *domain.AuditEntry) error {
	r.entries = append(r.entries, *e)
	return nil
}

func (r *recordingAudit) ListForPrincipal(context.Context, string, domain.PageRequest) ([]domain.AuditEntry, error) {
	return r.entries, nil
}

func TestActor(t *testing.T) {
	assert.Equal(t, domain.SystemActor, Actor(context.Background()))

	ctx := domain.WithCaller(context.Background(), domain.CallerIdentity{Subject: "s"})
	assert.Equal(t, domain.SystemActor, Actor(ctx), "caller without email")

	ctx = domain.WithCaller(context.Background(), domain.CallerIdentity{Email: "ana@example.com"})
	assert.Equal(t, "ana@example.com", Actor(ctx))
}

func TestRecord(t *testing.T) {
	rec := &recordingAudit{}
	at := time.UnixMilli(1_700_000_000_000).UTC()
	ctx := domain.WithCaller(context.Background(), domain.CallerIdentity{Email: "ana@example.com"})

	require.NoError(t, Record(ctx, rec, "p1", domain.AuditUpdatePrincipal, "name", at))
	require.NoError(t, Record(context.Background(), rec, "p1", domain.AuditDeletePrincipal, "", at))

	require.Len(t, rec.entries, 2)
	assert.Equal(t, "ana@example.com", rec.entries[0].Actor)
	require.NotNil(t, rec.entries[0].Detail)
	assert.Equal(t, "name", *rec.entries[0].Detail)
	assert.Equal(t, at, rec.entries[0].CreatedAt)
	assert.Equal(t, domain.SystemActor, rec.entries[1].Actor)
	assert.Nil(t, rec.entries[1].Detail)
}
