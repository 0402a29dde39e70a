package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// MovementRepository bitácora de movimientos (solo inserción).
type MovementRepository interface {
	Create(ctx context.Context, m *entity.Movement) error
	ListBySerial(ctx context.Context, serial string) ([]*entity.Movement, error)
	// Search consulta de trazabilidad: movimientos unidos con los datos del equipo.
	Search(ctx context.Context, f MovementFilter) ([]MovementRow, int, error)
}

// MovementFilter filtros de la consulta de trazabilidad. Campos vacíos no filtran.
type MovementFilter struct {
	Kind   entity.MovementKind
	From   *time.Time
	To     *time.Time
	Text   string // serial, placa, origen, destino o detalle
	UserID string
	Limit  int
	Offset int
}

// MovementRow resultado crudo de la consulta de trazabilidad.
// Los datos del equipo pueden venir vacíos si el registro es histórico.
type MovementRow struct {
	Movement      entity.Movement
	AssetTag      string
	EquipmentType string
	Brand         string
	Model         string
	DocumentRef   string
}
