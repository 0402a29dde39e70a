package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.FollowUpRepository = (*FollowUpRepo)(nil)

const followUpColumns = `id, document_id, kind, payload, status, attempts, last_error, next_attempt_at, created_at, updated_at`

// FollowUpRepo cola persistente de tareas de render y correo.
type FollowUpRepo struct {
	q Querier
}

// NewFollowUpRepository construye el adaptador. Pasar pool o tx (Querier).
func NewFollowUpRepository(q Querier) *FollowUpRepo {
	return &FollowUpRepo{q: q}
}

// Create inserta la tarea.
func (r *FollowUpRepo) Create(ctx context.Context, t *entity.FollowUpTask) error {
	query := `INSERT INTO followup_tasks (` + followUpColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	var payload []byte
	if len(t.Payload) > 0 {
		payload = t.Payload
	}
	_, err := r.q.Exec(ctx, query,
		t.ID, t.DocumentID, t.Kind, payload, t.Status, t.Attempts, nullString(t.LastError),
		t.NextAttemptAt, t.CreatedAt, t.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert followup task: %w", err)
	}
	return nil
}

// GetByID obtiene una tarea; (nil, nil) si no existe.
func (r *FollowUpRepo) GetByID(ctx context.Context, id string) (*entity.FollowUpTask, error) {
	t, err := scanFollowUp(r.q.QueryRow(ctx, `SELECT `+followUpColumns+` FROM followup_tasks WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get followup task: %w", err)
	}
	return t, nil
}

// ClaimDue toma tareas vencidas con SKIP LOCKED y corre su próximo intento en lease.
func (r *FollowUpRepo) ClaimDue(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*entity.FollowUpTask, error) {
	query := `
		UPDATE followup_tasks SET next_attempt_at = $2, updated_at = $1
		WHERE id IN (
			SELECT id FROM followup_tasks
			WHERE status = 'PENDING' AND next_attempt_at <= $1
			ORDER BY next_attempt_at
			LIMIT $3
			FOR UPDATE SKIP LOCKED
		)
		RETURNING ` + followUpColumns
	rows, err := r.q.Query(ctx, query, now, now.Add(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("claim followup tasks: %w", err)
	}
	defer rows.Close()
	var list []*entity.FollowUpTask
	for rows.Next() {
		t, err := scanFollowUp(rows)
		if err != nil {
			return nil, fmt.Errorf("scan followup task: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

// MarkDone cierra la tarea.
func (r *FollowUpRepo) MarkDone(ctx context.Context, id string, at time.Time) error {
	_, err := r.q.Exec(ctx, `
		UPDATE followup_tasks SET status = 'DONE', attempts = attempts + 1, last_error = NULL, updated_at = $2
		WHERE id = $1`, id, at)
	if err != nil {
		return fmt.Errorf("mark followup done: %w", err)
	}
	return nil
}

// MarkFailed registra el error y programa el siguiente intento (o DEAD).
func (r *FollowUpRepo) MarkFailed(ctx context.Context, id, lastError string, next time.Time, dead bool) error {
	status := entity.TaskPending
	if dead {
		status = entity.TaskDead
	}
	_, err := r.q.Exec(ctx, `
		UPDATE followup_tasks
		SET status = $2, attempts = attempts + 1, last_error = $3, next_attempt_at = $4, updated_at = now()
		WHERE id = $1`, id, status, lastError, next)
	if err != nil {
		return fmt.Errorf("mark followup failed: %w", err)
	}
	return nil
}

func scanFollowUp(row pgx.Row) (*entity.FollowUpTask, error) {
	var t entity.FollowUpTask
	var payload []byte
	var lastErr *string
	if err := row.Scan(&t.ID, &t.DocumentID, &t.Kind, &payload, &t.Status, &t.Attempts, &lastErr,
		&t.NextAttemptAt, &t.CreatedAt, &t.UpdatedAt); err != nil {
		return nil, err
	}
	t.Payload = payload
	t.LastError = derefString(lastErr)
	return &t, nil
}
