package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// EquipmentRepository define el puerto de persistencia del inventario serializado.
// Los métodos de lectura devuelven (nil, nil) cuando el serial no existe.
type EquipmentRepository interface {
	// CreateIfAbsent inserta el equipo si el serial no existe. Devuelve false si ya existía.
	CreateIfAbsent(ctx context.Context, item *entity.EquipmentItem) (bool, error)
	GetBySerial(ctx context.Context, serial string) (*entity.EquipmentItem, error)
	GetBySerials(ctx context.Context, serials []string) ([]*entity.EquipmentItem, error)
	// LockBySerials bloquea las filas (SELECT ... FOR UPDATE) en orden de serial.
	LockBySerials(ctx context.Context, serials []string) ([]*entity.EquipmentItem, error)
	// Transition cambia estado y ubicación solo si el estado actual es expected.
	// Devuelve domain.ErrConflict si otro proceso lo cambió y domain.ErrNotFound si no existe.
	Transition(ctx context.Context, serial string, expected, next entity.EquipmentStatus, location string, at time.Time) error
	ExistingSerials(ctx context.Context, serials []string) (map[string]bool, error)
	ListByStatus(ctx context.Context, status entity.EquipmentStatus, limit, offset int) ([]*entity.EquipmentItem, int, error)
}

// EquipmentTypeRepository catálogo de tipos de equipo.
type EquipmentTypeRepository interface {
	List(ctx context.Context) ([]*entity.EquipmentType, error)
	// Ensure devuelve el tipo con ese nombre (sin distinguir mayúsculas) o lo crea.
	Ensure(ctx context.Context, name, createdBy string) (*entity.EquipmentType, error)
}
