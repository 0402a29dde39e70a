package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.EquipmentRepository = (*EquipmentRepo)(nil)

const equipmentColumns = `id, serial, asset_tag, type, brand, model, status, location, notes, value, entered_at, updated_at`

// EquipmentRepo implementación de EquipmentRepository sobre PostgreSQL (usable con pool o tx).
type EquipmentRepo struct {
	q Querier
}

// NewEquipmentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewEquipmentRepository(q Querier) *EquipmentRepo {
	return &EquipmentRepo{q: q}
}

// CreateIfAbsent inserta el equipo; si el serial ya existe no hace nada y devuelve false.
func (r *EquipmentRepo) CreateIfAbsent(ctx context.Context, e *entity.EquipmentItem) (bool, error) {
	query := `
		INSERT INTO equipment (` + equipmentColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (serial) DO NOTHING`
	tag, err := r.q.Exec(ctx, query,
		e.ID, e.Serial, nullString(e.AssetTag), e.Type, e.Brand, e.Model, string(e.Status), e.Location,
		nullString(e.Notes), e.Value, e.EnteredAt, e.UpdatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert equipment: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}

// GetBySerial obtiene un equipo por serial; (nil, nil) si no existe.
func (r *EquipmentRepo) GetBySerial(ctx context.Context, serial string) (*entity.EquipmentItem, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE serial = $1`
	e, err := scanEquipment(r.q.QueryRow(ctx, query, serial))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get equipment: %w", err)
	}
	return e, nil
}

// GetBySerials obtiene los equipos existentes entre los seriales dados.
func (r *EquipmentRepo) GetBySerials(ctx context.Context, serials []string) ([]*entity.EquipmentItem, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE serial = ANY($1) ORDER BY serial`
	return r.list(ctx, "get equipment by serials", query, serials)
}

// LockBySerials bloquea las filas en orden de serial (SELECT FOR UPDATE).
// Dos lotes que comparten equipos esperan uno al otro en vez de bloquearse mutuamente.
func (r *EquipmentRepo) LockBySerials(ctx context.Context, serials []string) ([]*entity.EquipmentItem, error) {
	query := `SELECT ` + equipmentColumns + ` FROM equipment WHERE serial = ANY($1) ORDER BY serial FOR UPDATE`
	return r.list(ctx, "lock equipment", query, serials)
}

// Transition actualiza estado y ubicación con control de concurrencia por estado esperado.
func (r *EquipmentRepo) Transition(ctx context.Context, serial string, expected, next entity.EquipmentStatus, location string, at time.Time) error {
	query := `
		UPDATE equipment SET status = $3, location = $4, updated_at = $5
		WHERE serial = $1 AND status = $2`
	tag, err := r.q.Exec(ctx, query, serial, string(expected), string(next), location, at)
	if err != nil {
		return fmt.Errorf("transition equipment: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var current string
	err = r.q.QueryRow(ctx, `SELECT status FROM equipment WHERE serial = $1`, serial).Scan(&current)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return fmt.Errorf("%w: serial %s", domain.ErrNotFound, serial)
		}
		return fmt.Errorf("transition equipment: %w", err)
	}
	return fmt.Errorf("%w: el serial %s está en %s, se esperaba %s", domain.ErrConflict, serial, current, expected)
}

// ExistingSerials devuelve cuáles de los seriales ya están registrados.
func (r *EquipmentRepo) ExistingSerials(ctx context.Context, serials []string) (map[string]bool, error) {
	rows, err := r.q.Query(ctx, `SELECT serial FROM equipment WHERE serial = ANY($1)`, serials)
	if err != nil {
		return nil, fmt.Errorf("existing serials: %w", err)
	}
	defer rows.Close()
	out := make(map[string]bool)
	for rows.Next() {
		var s string
		if err := rows.Scan(&s); err != nil {
			return nil, fmt.Errorf("scan serial: %w", err)
		}
		out[s] = true
	}
	return out, rows.Err()
}

// ListByStatus lista equipos por estado (vacío: todos) con el total sin paginar.
func (r *EquipmentRepo) ListByStatus(ctx context.Context, status entity.EquipmentStatus, limit, offset int) ([]*entity.EquipmentItem, int, error) {
	where := ""
	var args []any
	if status != "" {
		where = " WHERE status = " + bind(&args, string(status))
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM equipment`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count equipment: %w", err)
	}

	query := `SELECT ` + equipmentColumns + ` FROM equipment` + where
	query += fmt.Sprintf(" ORDER BY serial LIMIT %s OFFSET %s", bind(&args, limit), bind(&args, offset))
	list, err := r.list(ctx, "list equipment", query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

func (r *EquipmentRepo) list(ctx context.Context, op, query string, args ...any) ([]*entity.EquipmentItem, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	defer rows.Close()
	var list []*entity.EquipmentItem
	for rows.Next() {
		e, err := scanEquipment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan equipment: %w", err)
		}
		list = append(list, e)
	}
	return list, rows.Err()
}

func scanEquipment(row pgx.Row) (*entity.EquipmentItem, error) {
	var e entity.EquipmentItem
	var assetTag, notes *string
	var status string
	if err := row.Scan(&e.ID, &e.Serial, &assetTag, &e.Type, &e.Brand, &e.Model, &status, &e.Location,
		&notes, &e.Value, &e.EnteredAt, &e.UpdatedAt); err != nil {
		return nil, err
	}
	e.AssetTag = derefString(assetTag)
	e.Notes = derefString(notes)
	e.Status = entity.EquipmentStatus(status)
	return &e, nil
}
