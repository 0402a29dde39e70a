package domain

import "errors"

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrUnauthorized      = errors.New("no autorizado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrConflict          = errors.New("conflicto con el estado actual")
	ErrInvalidTransition = errors.New("transición de estado no permitida")
	ErrFileTooLarge      = errors.New("el archivo supera el máximo de filas permitido")
	ErrPersistence       = errors.New("error de persistencia")

	// Fallas posteriores al commit: no revierten el lote, se reportan como banderas.
	ErrRender       = errors.New("no se pudo generar el documento del acta")
	ErrNotification = errors.New("no se pudo enviar la notificación")
)
