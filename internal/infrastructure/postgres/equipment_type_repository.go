package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.EquipmentTypeRepository = (*EquipmentTypeRepo)(nil)

// EquipmentTypeRepo catálogo de tipos de equipo sobre PostgreSQL.
type EquipmentTypeRepo struct {
	q Querier
}

// NewEquipmentTypeRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEquipmentTypeRepository(q Querier) *EquipmentTypeRepo {
	return &EquipmentTypeRepo{q: q}
}

// List devuelve todos los tipos ordenados por nombre.
func (r *EquipmentTypeRepo) List(ctx context.Context) ([]*entity.EquipmentType, error) {
	rows, err := r.q.Query(ctx, `SELECT id, name, created_by, created_at FROM equipment_types ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list equipment types: %w", err)
	}
	defer rows.Close()
	var list []*entity.EquipmentType
	for rows.Next() {
		var t entity.EquipmentType
		var createdBy *string
		if err := rows.Scan(&t.ID, &t.Name, &createdBy, &t.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan equipment type: %w", err)
		}
		t.CreatedBy = derefString(createdBy)
		list = append(list, &t)
	}
	return list, rows.Err()
}

// Ensure crea el tipo si no existe (comparación sin mayúsculas) y devuelve el registro vigente.
func (r *EquipmentTypeRepo) Ensure(ctx context.Context, name, createdBy string) (*entity.EquipmentType, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO equipment_types (id, name, created_by, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT ((lower(name))) DO NOTHING`,
		uuid.New().String(), name, nullString(createdBy), time.Now().UTC(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert equipment type: %w", err)
	}
	var t entity.EquipmentType
	var by *string
	err = r.q.QueryRow(ctx, `
		SELECT id, name, created_by, created_at FROM equipment_types WHERE lower(name) = lower($1)`, name,
	).Scan(&t.ID, &t.Name, &by, &t.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("get equipment type: %w", err)
	}
	t.CreatedBy = derefString(by)
	return &t, nil
}
