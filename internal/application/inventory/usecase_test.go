package inventory_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/inventory"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/testutil/memstore"
)

func newUseCase() (*inventory.EquipmentUseCase, *memstore.Store) {
	store := memstore.New()
	repos := store.Repos()
	return inventory.NewEquipmentUseCase(store, repos.Equipment, repos.Movements, audit.NewTrail(store.Audit())), store
}

func TestRegisterIngress_CreaEquipoYMovimiento(t *testing.T) {
	uc, store := newUseCase()
	value := decimal.NewFromInt(2800000)

	res, err := uc.RegisterIngress(context.Background(), "u-1", dto.RegisterIngressRequest{
		Serial: " pf3abc ", AssetTag: "PL-9", Type: "portátil", Brand: "Lenovo", Model: "T14", Value: &value,
	})
	require.NoError(t, err)
	assert.Equal(t, "PF3ABC", res.Serial)
	assert.Equal(t, "PORTÁTIL", res.Type)
	assert.Equal(t, string(entity.StatusAvailable), res.Status)
	assert.Equal(t, entity.LocationCentralStock, res.Location)
	require.NotNil(t, res.Value)
	assert.True(t, res.Value.Equal(value))

	movs := store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, entity.MovementIngress, movs[0].Kind)
	assert.Equal(t, entity.StatusAvailable, movs[0].ToStatus)
	assert.Len(t, store.AuditEntries(), 1)

	_, err = uc.RegisterIngress(context.Background(), "u-1", dto.RegisterIngressRequest{
		Serial: "PF3ABC", Type: "Monitor", Brand: "Dell", Model: "P24",
	})
	assert.ErrorIs(t, err, domain.ErrDuplicate)
	assert.Len(t, store.Movements(), 1)
}

func TestRegisterIngress_Validacion(t *testing.T) {
	uc, store := newUseCase()
	neg := decimal.NewFromInt(-1)

	_, err := uc.RegisterIngress(context.Background(), "u-1", dto.RegisterIngressRequest{Serial: "  ", Type: "Monitor", Brand: "Dell", Model: "P24"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.RegisterIngress(context.Background(), "u-1", dto.RegisterIngressRequest{Serial: "X", Type: "Monitor", Brand: "Dell", Model: "P24", Value: &neg})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Empty(t, store.Movements())
}

func TestGetBySerial_HojaDeVida(t *testing.T) {
	uc, _ := newUseCase()
	ctx := context.Background()
	_, err := uc.RegisterIngress(ctx, "u-1", dto.RegisterIngressRequest{Serial: "A1", Type: "Monitor", Brand: "Dell", Model: "P24"})
	require.NoError(t, err)

	detail, err := uc.GetBySerial(ctx, "a1")
	require.NoError(t, err)
	assert.Equal(t, "A1", detail.Serial)
	require.Len(t, detail.Movements, 1)
	assert.Equal(t, "u-1", detail.Movements[0].UserID)

	_, err = uc.GetBySerial(ctx, "NOPE")
	assert.ErrorIs(t, err, domain.ErrNotFound)

	_, err = uc.GetBySerial(ctx, " ")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestListByStatus(t *testing.T) {
	uc, store := newUseCase()
	store.SeedEquipment(
		entity.EquipmentItem{Serial: "A", Status: entity.StatusAvailable},
		entity.EquipmentItem{Serial: "B", Status: entity.StatusDeployed, Location: "PV-5"},
		entity.EquipmentItem{Serial: "C", Status: entity.StatusAvailable},
	)
	ctx := context.Background()

	available, err := uc.ListByStatus(ctx, "available", dto.PageRequest{})
	require.NoError(t, err)
	assert.Equal(t, 2, available.Page.Total)
	require.Len(t, available.Items, 2)
	assert.Equal(t, "A", available.Items[0].Serial)

	all, err := uc.ListByStatus(ctx, "", dto.PageRequest{Limit: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, all.Page.Total)
	assert.Len(t, all.Items, 1)

	_, err = uc.ListByStatus(ctx, "ROBADO", dto.PageRequest{})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}
