package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

const documentColumns = `id, kind, sequence, reference, issued_at, responsible_user_id, item_count, payload, artifact_ref, render_status`

// DocumentRepo actas y consecutivos sobre PostgreSQL.
type DocumentRepo struct {
	q Querier
}

// NewDocumentRepository construye el adaptador. Pasar pool o tx (Querier).
func NewDocumentRepository(q Querier) *DocumentRepo {
	return &DocumentRepo{q: q}
}

// NextSequence incrementa el consecutivo del tipo. El UPDATE deja la fila bloqueada hasta el
// fin de la transacción: un segundo lote del mismo tipo espera y recibe el valor siguiente.
func (r *DocumentRepo) NextSequence(ctx context.Context, kind entity.DocumentKind) (int64, error) {
	query := `
		INSERT INTO document_sequences (kind, last_value) VALUES ($1, 1)
		ON CONFLICT (kind) DO UPDATE SET last_value = document_sequences.last_value + 1
		RETURNING last_value`
	var seq int64
	if err := r.q.QueryRow(ctx, query, string(kind)).Scan(&seq); err != nil {
		return 0, fmt.Errorf("next sequence: %w", err)
	}
	return seq, nil
}

// Create inserta el acta.
func (r *DocumentRepo) Create(ctx context.Context, d *entity.Document) error {
	query := `INSERT INTO documents (` + documentColumns + `, class) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := r.q.Exec(ctx, query,
		d.ID, string(d.Kind), d.Sequence, d.Reference, d.IssuedAt, d.ResponsibleUserID, d.ItemCount,
		d.Payload, nullString(d.ArtifactRef), string(d.RenderStatus), string(acta.Classify(string(d.Kind), d.Reference)),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: referencia %s", domain.ErrDuplicate, d.Reference)
		}
		return fmt.Errorf("insert document: %w", err)
	}
	return nil
}

// GetByID obtiene un acta; (nil, nil) si no existe.
func (r *DocumentRepo) GetByID(ctx context.Context, id string) (*entity.Document, error) {
	d, err := scanDocument(r.q.QueryRow(ctx, `SELECT `+documentColumns+` FROM documents WHERE id::text = $1`, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get document: %w", err)
	}
	return d, nil
}

// UpdateArtifact registra la referencia del PDF y el estado de render.
func (r *DocumentRepo) UpdateArtifact(ctx context.Context, id, artifactRef string, status entity.RenderStatus) error {
	_, err := r.q.Exec(ctx, `UPDATE documents SET artifact_ref = $2, render_status = $3 WHERE id = $1`,
		id, nullString(artifactRef), string(status))
	if err != nil {
		return fmt.Errorf("update document artifact: %w", err)
	}
	return nil
}

// List historial de actas, más recientes primero. El filtro por tipo usa la columna class,
// que se completa con acta.Classify; las actas históricas sin class se clasifican antes de filtrar.
func (r *DocumentRepo) List(ctx context.Context, f repository.DocumentFilter) ([]*entity.Document, int, error) {
	var (
		args    []any
		clauses []string
	)
	if f.Kind != "" {
		if err := r.classifyPending(ctx); err != nil {
			return nil, 0, err
		}
		clauses = append(clauses, "class = "+bind(&args, string(f.Kind)))
	}
	if f.From != nil {
		clauses = append(clauses, "issued_at >= "+bind(&args, *f.From))
	}
	if f.To != nil {
		clauses = append(clauses, "issued_at <= "+bind(&args, *f.To))
	}
	if f.UserID != "" {
		clauses = append(clauses, "responsible_user_id = "+bind(&args, f.UserID))
	}
	if f.Text != "" {
		p := bind(&args, like(f.Text))
		clauses = append(clauses, fmt.Sprintf("(reference ILIKE %s OR payload::text ILIKE %s)", p, p))
	}
	where := ""
	if len(clauses) > 0 {
		where = " WHERE " + strings.Join(clauses, " AND ")
	}

	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM documents`+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count documents: %w", err)
	}
	query := `SELECT ` + documentColumns + ` FROM documents` + where
	query += fmt.Sprintf(" ORDER BY issued_at DESC, reference DESC LIMIT %s OFFSET %s", bind(&args, f.Limit), bind(&args, f.Offset))

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list documents: %w", err)
	}
	defer rows.Close()
	var list []*entity.Document
	for rows.Next() {
		d, err := scanDocument(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan document: %w", err)
		}
		list = append(list, d)
	}
	return list, total, rows.Err()
}

// classifyPending completa class en las actas que aún no lo tienen (cargadas por fuera de la API).
func (r *DocumentRepo) classifyPending(ctx context.Context) error {
	rows, err := r.q.Query(ctx, `SELECT id::text, kind, reference FROM documents WHERE class IS NULL`)
	if err != nil {
		return fmt.Errorf("select unclassified documents: %w", err)
	}
	type pending struct{ id, class string }
	var todo []pending
	for rows.Next() {
		var id, kind, reference string
		if err := rows.Scan(&id, &kind, &reference); err != nil {
			rows.Close()
			return fmt.Errorf("scan unclassified document: %w", err)
		}
		todo = append(todo, pending{id: id, class: string(acta.Classify(kind, reference))})
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return fmt.Errorf("select unclassified documents: %w", err)
	}
	for _, p := range todo {
		if _, err := r.q.Exec(ctx, `UPDATE documents SET class = $2 WHERE id::text = $1 AND class IS NULL`, p.id, p.class); err != nil {
			return fmt.Errorf("classify document: %w", err)
		}
	}
	return nil
}

func scanDocument(row pgx.Row) (*entity.Document, error) {
	var d entity.Document
	var kind, status string
	var seq *int64
	var artifact *string
	if err := row.Scan(&d.ID, &kind, &seq, &d.Reference, &d.IssuedAt, &d.ResponsibleUserID, &d.ItemCount,
		&d.Payload, &artifact, &status); err != nil {
		return nil, err
	}
	d.Kind = entity.DocumentKind(kind)
	if seq != nil {
		d.Sequence = *seq
	}
	d.ArtifactRef = derefString(artifact)
	d.RenderStatus = entity.RenderStatus(status)
	return &d, nil
}
