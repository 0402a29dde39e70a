package repository

import (
	"context"
	"time"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// FollowUpRepository cola persistente de tareas posteriores al commit.
type FollowUpRepository interface {
	Create(ctx context.Context, t *entity.FollowUpTask) error
	GetByID(ctx context.Context, id string) (*entity.FollowUpTask, error)
	// ClaimDue toma hasta limit tareas PENDING vencidas y corre su next_attempt_at en lease,
	// así dos workers no ejecutan la misma tarea a la vez.
	ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entity.FollowUpTask, error)
	MarkDone(ctx context.Context, id string, at time.Time) error
	// MarkFailed suma un intento; si dead es true la tarea no se vuelve a intentar.
	MarkFailed(ctx context.Context, id, lastError string, next time.Time, dead bool) error
}

// BatchRequestRepository registro de claves de idempotencia.
type BatchRequestRepository interface {
	Get(ctx context.Context, key string) (*entity.BatchRequest, error)
	// Claim reserva la clave. Si ya existía devuelve el registro previo y no inserta nada.
	Claim(ctx context.Context, req *entity.BatchRequest) (*entity.BatchRequest, error)
	Complete(ctx context.Context, key, documentID string, response []byte) error
}
