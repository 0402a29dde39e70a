package repository

import (
	"context"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// UserRepository lectura del directorio de usuarios.
type UserRepository interface {
	// GetByIDs devuelve solo los usuarios que existen.
	GetByIDs(ctx context.Context, ids []string) ([]*entity.User, error)
}

// ContactRepository lectura del directorio de contactos para correos.
type ContactRepository interface {
	GetByIDs(ctx context.Context, ids []string) ([]*entity.Contact, error)
}
