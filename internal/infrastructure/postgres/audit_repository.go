package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.AuditRepository = (*AuditRepo)(nil)

// AuditRepo registro de auditoría sobre PostgreSQL (tabla de solo inserción).
type AuditRepo struct {
	q Querier
}

// NewAuditRepository construye el adaptador.
func NewAuditRepository(q Querier) *AuditRepo {
	return &AuditRepo{q: q}
}

// Create inserta una entrada.
func (r *AuditRepo) Create(ctx context.Context, e *entity.AuditEntry) error {
	_, err := r.q.Exec(ctx, `
		INSERT INTO audit_entries (id, user_id, action, detail, occurred_at)
		VALUES ($1, $2, $3, $4, $5)`,
		e.ID, e.UserID, e.Action, e.Detail, e.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert audit entry: %w", err)
	}
	return nil
}

// Search filtra por usuario, rango de fechas y texto libre (acción o detalle).
func (r *AuditRepo) Search(ctx context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	var (
		args    []any
		clauses []string
	)
	if f.UserID != "" {
		clauses = append(clauses, "user_id = "+bind(&args, f.UserID))
	}
	if f.From != nil {
		clauses = append(clauses, "occurred_at >= "+bind(&args, *f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "occurred_at <= "+bind(&args, *f.To))
	}
	if f.Text != "" {
		p := bind(&args, like(f.Text))
		clauses = append(clauses, fmt.Sprintf("(action ILIKE %[1]s OR detail ILIKE %[1]s)", p))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM audit_entries`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count audit entries: %w", err)
	}
	query := `SELECT id, user_id, action, detail, occurred_at FROM audit_entries` + where
	query += fmt.Sprintf(" ORDER BY occurred_at DESC, id DESC LIMIT %s OFFSET %s", bind(&args, f.Limit), bind(&args, f.Offset))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search audit entries: %w", err)
	}
	defer rows.Close()
	var list []*entity.AuditEntry
	for rows.Next() {
		var e entity.AuditEntry
		if err := rows.Scan(&e.ID, &e.UserID, &e.Action, &e.Detail, &e.OccurredAt); err != nil {
			return nil, 0, fmt.Errorf("scan audit entry: %w", err)
		}
		list = append(list, &e)
	}
	return list, total, rows.Err()
}
