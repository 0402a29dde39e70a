package ports

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// ActaRenderer convierte el contenido estructurado de un acta en un PDF.
// El contexto debe llevar timeout; el render nunca corre dentro de la transacción.
type ActaRenderer interface {
	RenderActa(ctx context.Context, payload *entity.ActaPayload) ([]byte, error)
}

// ArtifactStore guarda y recupera los PDF generados.
type ArtifactStore interface {
	// Put guarda el archivo y devuelve una referencia estable.
	Put(ctx context.Context, name string, data []byte) (string, error)
	Get(ctx context.Context, ref string) ([]byte, error)
	// URL pública de descarga de la referencia; vacío si el almacenamiento no es público.
	URL(ref string) string
}
