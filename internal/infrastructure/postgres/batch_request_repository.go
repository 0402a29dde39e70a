package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.BatchRequestRepository = (*BatchRequestRepo)(nil)

// BatchRequestRepo claves de idempotencia de operaciones por lote.
type BatchRequestRepo struct {
	q Querier
}

// NewBatchRequestRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRequestRepository(q Querier) *BatchRequestRepo {
	return &BatchRequestRepo{q: q}
}

// Get obtiene el registro de la clave; (nil, nil) si no existe.
func (r *BatchRequestRepo) Get(ctx context.Context, key string) (*entity.BatchRequest, error) {
	req, err := scanBatchRequest(r.q.QueryRow(ctx, `
		SELECT idempotency_key, operation, user_id, document_id, response, created_at
		FROM batch_requests WHERE idempotency_key = $1`, key))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get batch request: %w", err)
	}
	return req, nil
}

// Claim inserta la clave. Una clave concurrente espera al commit de la otra transacción
// por el índice único; si ya existía se devuelve el registro previo.
func (r *BatchRequestRepo) Claim(ctx context.Context, req *entity.BatchRequest) (*entity.BatchRequest, error) {
	tag, err := r.q.Exec(ctx, `
		INSERT INTO batch_requests (idempotency_key, operation, user_id, created_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (idempotency_key) DO NOTHING`,
		req.IdempotencyKey, req.Operation, req.UserID, req.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("claim batch request: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil, nil
	}
	existing, err := r.Get(ctx, req.IdempotencyKey)
	if err != nil {
		return nil, err
	}
	if existing == nil {
		return nil, fmt.Errorf("claim batch request: clave %s sin registro", req.IdempotencyKey)
	}
	return existing, nil
}

// Complete guarda la respuesta del lote.
func (r *BatchRequestRepo) Complete(ctx context.Context, key, documentID string, response []byte) error {
	_, err := r.q.Exec(ctx, `
		UPDATE batch_requests SET document_id = $2, response = $3
		WHERE idempotency_key = $1`, key, nullString(documentID), response)
	if err != nil {
		return fmt.Errorf("complete batch request: %w", err)
	}
	return nil
}

func scanBatchRequest(row pgx.Row) (*entity.BatchRequest, error) {
	var req entity.BatchRequest
	var docID *string
	var response []byte
	if err := row.Scan(&req.IdempotencyKey, &req.Operation, &req.UserID, &docID, &response, &req.CreatedAt); err != nil {
		return nil, err
	}
	req.DocumentID = derefString(docID)
	req.Response = response
	return &req, nil
}
