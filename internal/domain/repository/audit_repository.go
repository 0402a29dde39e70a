package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// AuditRepository registro de auditoría (solo inserción).
type AuditRepository interface {
	Create(ctx context.Context, e *entity.AuditEntry) error
	// Search devuelve las entradas más recientes primero y el total sin paginar.
	Search(ctx context.Context, f AuditFilter) ([]*entity.AuditEntry, int, error)
}

// AuditFilter filtros de la consulta de auditoría.
type AuditFilter struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Text   string // acción o detalle
	Limit  int
	Offset int
}
