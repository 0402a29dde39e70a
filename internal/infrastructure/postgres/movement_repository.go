package postgres

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

const movementColumns = `m.id, m.batch_id, m.document_id, m.equipment_serial, m.kind, m.origin, m.destination,
	m.from_status, m.to_status, m.detail, m.responsible_user_id, m.occurred_at`

// MovementRepo bitácora de movimientos sobre PostgreSQL. La tabla rechaza UPDATE y DELETE.
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

// Create inserta un movimiento.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	query := `
		INSERT INTO movements (id, batch_id, document_id, equipment_serial, kind, origin, destination,
			from_status, to_status, detail, responsible_user_id, occurred_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.BatchID, nullString(m.DocumentID), m.EquipmentSerial, string(m.Kind), m.Origin, m.Destination,
		nullString(string(m.FromStatus)), string(m.ToStatus), nullString(m.Detail), m.ResponsibleUserID, m.OccurredAt,
	)
	if err != nil {
		return fmt.Errorf("insert movement: %w", err)
	}
	return nil
}

// ListBySerial hoja de vida de un equipo, del movimiento más antiguo al más reciente.
func (r *MovementRepo) ListBySerial(ctx context.Context, serial string) ([]*entity.Movement, error) {
	query := `SELECT ` + movementColumns + ` FROM movements m WHERE m.equipment_serial = $1 ORDER BY m.occurred_at, m.id`
	rows, err := r.q.Query(ctx, query, serial)
	if err != nil {
		return nil, fmt.Errorf("list movements by serial: %w", err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Search consulta de trazabilidad: movimientos con datos del equipo y referencia del acta.
func (r *MovementRepo) Search(ctx context.Context, f repository.MovementFilter) ([]repository.MovementRow, int, error) {
	var (
		args    []any
		clauses []string
	)
	if f.Kind != "" {
		clauses = append(clauses, "m.kind = "+bind(&args, string(f.Kind)))
	}
	if f.From != nil {
		clauses = append(clauses, "m.occurred_at >= "+bind(&args, *f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "m.occurred_at <= "+bind(&args, *f.To))
	}
	if f.UserID != "" {
		clauses = append(clauses, "m.responsible_user_id = "+bind(&args, f.UserID))
	}
	if f.Text != "" {
		p := bind(&args, like(f.Text))
		clauses = append(clauses, fmt.Sprintf(
			"(m.equipment_serial ILIKE %[1]s OR e.asset_tag ILIKE %[1]s OR m.origin ILIKE %[1]s OR m.destination ILIKE %[1]s OR m.detail ILIKE %[1]s OR d.reference ILIKE %[1]s)", p))
	}
	from := `
		FROM movements m
		LEFT JOIN equipment e ON e.serial = m.equipment_serial
		LEFT JOIN documents d ON d.id = m.document_id`
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, "SELECT COUNT(*)"+from+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count movements: %w", err)
	}

	query := `SELECT ` + movementColumns + `, e.asset_tag, e.type, e.brand, e.model, d.reference` + from + where
	query += fmt.Sprintf(" ORDER BY m.occurred_at DESC, m.id LIMIT %s OFFSET %s", bind(&args, f.Limit), bind(&args, f.Offset))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("search movements: %w", err)
	}
	defer rows.Close()
	var list []repository.MovementRow
	for rows.Next() {
		var (
			m                                entity.Movement
			docID, fromStatus, detail        *string
			kind, toStatus                   string
			assetTag, typ, brand, model, ref *string
		)
		if err := rows.Scan(&m.ID, &m.BatchID, &docID, &m.EquipmentSerial, &kind, &m.Origin, &m.Destination,
			&fromStatus, &toStatus, &detail, &m.ResponsibleUserID, &m.OccurredAt,
			&assetTag, &typ, &brand, &model, &ref); err != nil {
			return nil, 0, fmt.Errorf("scan movement row: %w", err)
		}
		m.DocumentID = derefString(docID)
		m.Kind = entity.MovementKind(kind)
		m.FromStatus = entity.EquipmentStatus(derefString(fromStatus))
		m.ToStatus = entity.EquipmentStatus(toStatus)
		m.Detail = derefString(detail)
		list = append(list, repository.MovementRow{
			Movement:      m,
			AssetTag:      derefString(assetTag),
			EquipmentType: derefString(typ),
			Brand:         derefString(brand),
			Model:         derefString(model),
			DocumentRef:   derefString(ref),
		})
	}
	return list, total, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var m entity.Movement
	var docID, fromStatus, detail *string
	var kind, toStatus string
	if err := row.Scan(&m.ID, &m.BatchID, &docID, &m.EquipmentSerial, &kind, &m.Origin, &m.Destination,
		&fromStatus, &toStatus, &detail, &m.ResponsibleUserID, &m.OccurredAt); err != nil {
		return nil, err
	}
	m.DocumentID = derefString(docID)
	m.Kind = entity.MovementKind(kind)
	m.FromStatus = entity.EquipmentStatus(derefString(fromStatus))
	m.ToStatus = entity.EquipmentStatus(toStatus)
	m.Detail = derefString(detail)
	return &m, nil
}
