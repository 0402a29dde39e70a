package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// DocumentRepository persistencia de actas y de sus consecutivos.
type DocumentRepository interface {
	// NextSequence reserva el siguiente consecutivo del tipo. Dentro de una transacción
	// el consecutivo queda bloqueado hasta el commit, así dos lotes nunca lo comparten.
	NextSequence(ctx context.Context, kind entity.DocumentKind) (int64, error)
	Create(ctx context.Context, doc *entity.Document) error
	GetByID(ctx context.Context, id string) (*entity.Document, error)
	UpdateArtifact(ctx context.Context, id, artifactRef string, status entity.RenderStatus) error
	List(ctx context.Context, f DocumentFilter) ([]*entity.Document, int, error)
}

// DocumentFilter filtros del historial de actas.
type DocumentFilter struct {
	Kind   entity.DocumentKind
	From   *time.Time
	To     *time.Time
	Text   string // referencia o contenido del acta
	UserID string
	Limit  int
	Offset int
}
