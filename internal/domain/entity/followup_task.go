package entity

import (
	"encoding/json"
	"time"
)

// Tipos de tarea posterior al commit.
const (
	TaskRender = "RENDER"
	TaskEmail  = "EMAIL"
)

// Estados de la tarea.
const (
	TaskPending = "PENDING"
	TaskDone    = "DONE"
	TaskDead    = "DEAD"
)

// FollowUpTask tarea de render o notificación que se guarda en la misma transacción del lote
// y se ejecuta después del commit; si falla se reintenta con backoff.
type FollowUpTask struct {
	ID            string
	DocumentID    string
	Kind          string
	Payload       json.RawMessage
	Status        string
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// EmailTaskPayload destinatarios y asunto de una tarea EMAIL.
type EmailTaskPayload struct {
	ContactIDs []string `json:"contact_ids"`
	Subject    string   `json:"subject"`
}

// BatchRequest registro de idempotencia de una operación por lote.
type BatchRequest struct {
	IdempotencyKey string
	Operation      string
	UserID         string
	DocumentID     string
	Response       json.RawMessage
	CreatedAt      time.Time
}
