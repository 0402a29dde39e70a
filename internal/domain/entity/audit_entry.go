package entity

import "time"

// AuditEntry registro de auditoría. Solo se inserta; nunca se modifica.
type AuditEntry struct {
	ID         string
	UserID     string
	Action     string
	Detail     string
	OccurredAt time.Time
}
