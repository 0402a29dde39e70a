package audit_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/testutil/memstore"
)

func TestRecord_GuardaEntrada(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store.Audit())

	trail.Record(context.Background(), " u-1 ", "WRITE_OFF", "serial A")

	entries := store.AuditEntries()
	require.Len(t, entries, 1)
	assert.Equal(t, "u-1", entries[0].UserID)
	assert.Equal(t, "WRITE_OFF", entries[0].Action)
	assert.NotEmpty(t, entries[0].ID)
	assert.False(t, entries[0].OccurredAt.IsZero())
}

func TestRecord_SinUsuarioSeOmite(t *testing.T) {
	store := memstore.New()
	trail := audit.NewTrail(store.Audit())

	trail.Record(context.Background(), "  ", "WRITE_OFF", "serial A")
	assert.Empty(t, store.AuditEntries())
}

func TestRecord_FallaDePersistenciaNoPropaga(t *testing.T) {
	store := memstore.New()
	store.FailAudit = errors.New("tabla bloqueada")
	trail := audit.NewTrail(store.Audit())

	assert.NotPanics(t, func() {
		trail.Record(context.Background(), "u-1", "INGRESS", "serial A")
	})
	assert.Empty(t, store.AuditEntries())
}

func TestSearch_FiltrosYPaginacion(t *testing.T) {
	store := memstore.New()
	repo := store.Audit()
	base := time.Date(2026, 2, 1, 8, 0, 0, 0, time.UTC)
	for i, e := range []entity.AuditEntry{
		{ID: "1", UserID: "u-1", Action: "INGRESS", Detail: "serial A", OccurredAt: base},
		{ID: "2", UserID: "u-2", Action: "TRANSFER_OUT", Detail: "serial A a PV-5", OccurredAt: base.Add(time.Hour)},
		{ID: "3", UserID: "u-1", Action: "WRITE_OFF", Detail: "serial B", OccurredAt: base.Add(48 * time.Hour)},
	} {
		e := e
		require.NoError(t, repo.Create(context.Background(), &e), i)
	}
	trail := audit.NewTrail(repo)
	ctx := context.Background()

	all, err := trail.Search(ctx, dto.AuditSearchRequest{})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Page.Total)
	require.Len(t, all.Items, 3)
	assert.Equal(t, "3", all.Items[0].ID)
	assert.Equal(t, "1", all.Items[2].ID)

	byUser, err := trail.Search(ctx, dto.AuditSearchRequest{UserID: "u-1"})
	require.NoError(t, err)
	assert.Equal(t, 2, byUser.Page.Total)

	byText, err := trail.Search(ctx, dto.AuditSearchRequest{Text: "pv-5"})
	require.NoError(t, err)
	require.Len(t, byText.Items, 1)
	assert.Equal(t, "2", byText.Items[0].ID)

	to := base.Add(2 * time.Hour)
	byRange, err := trail.Search(ctx, dto.AuditSearchRequest{From: &base, To: &to})
	require.NoError(t, err)
	assert.Equal(t, 2, byRange.Page.Total)

	paged, err := trail.Search(ctx, dto.AuditSearchRequest{PageRequest: dto.PageRequest{Limit: 1, Offset: 1}})
	require.NoError(t, err)
	require.Len(t, paged.Items, 1)
	assert.Equal(t, "2", paged.Items[0].ID)
	assert.Equal(t, 3, paged.Page.Total)

	capped, err := trail.Search(ctx, dto.AuditSearchRequest{PageRequest: dto.PageRequest{Limit: 1000}})
	require.NoError(t, err)
	assert.Equal(t, 100, capped.Page.Limit)

	_, err = trail.Search(ctx, dto.AuditSearchRequest{From: &to, To: &base})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
