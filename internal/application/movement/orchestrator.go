package movement

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/lifecycle"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/metrics"
)

// errReplay corta la transacción cuando la clave de idempotencia ya fue usada.
var errReplay = errors.New("lote ya procesado")

// Options políticas del orquestador.
type Options struct {
	MaxItems            int
	IdempotencyRequired bool
}

// Orchestrator aplica operaciones por lote sobre equipos: valida, cambia estados,
// registra movimientos y emite el acta, todo en una sola transacción.
// El render y el correo corren después del commit y nunca revierten el lote.
type Orchestrator struct {
	txRunner  ports.TxRunner
	equipment repository.EquipmentRepository
	batches   repository.BatchRequestRepository
	issuer    *documents.Issuer
	followups *followup.Executor
	audit     *audit.Trail
	opts      Options
	now       func() time.Time
}

// NewOrchestrator construye el orquestador. equipment y batches son los repositorios
// fuera de transacción (lectura previa y repetición de lotes).
func NewOrchestrator(
	txRunner ports.TxRunner,
	equipment repository.EquipmentRepository,
	batches repository.BatchRequestRepository,
	issuer *documents.Issuer,
	followups *followup.Executor,
	auditTrail *audit.Trail,
	opts Options,
) *Orchestrator {
	if opts.MaxItems <= 0 {
		opts.MaxItems = 200
	}
	return &Orchestrator{
		txRunner:  txRunner,
		equipment: equipment,
		batches:   batches,
		issuer:    issuer,
		followups: followups,
		audit:     auditTrail,
		opts:      opts,
		now:       time.Now,
	}
}

// plan describe un lote ya validado.
type plan struct {
	op             lifecycle.Operation
	userID         string
	idempotencyKey string
	serials        []string
	requested      entity.EquipmentStatus
	origin         string // vacío: ubicación actual del equipo
	destination    func(item *entity.EquipmentItem, target entity.EquipmentStatus) string
	detail         string
	fields         []entity.ActaField
	signatories    []entity.Signatory
	observations   string
	notify         []string
}

// transition cambio calculado para un equipo.
type transition struct {
	item   *entity.EquipmentItem
	target entity.EquipmentStatus
	origin string
	dest   string
}

func (o *Orchestrator) execute(ctx context.Context, p *plan) (*dto.BatchResult, error) {
	res, err := o.run(ctx, p)
	metrics.BatchOperations.WithLabelValues(string(p.op), resultLabel(res, err)).Inc()
	return res, err
}

func (o *Orchestrator) run(ctx context.Context, p *plan) (*dto.BatchResult, error) {
	// ── 1. Validar lote ───────────────────────────────────────────────────────
	if strings.TrimSpace(p.userID) == "" {
		return nil, fmt.Errorf("%w: usuario responsable requerido", domain.ErrUnauthorized)
	}
	p.idempotencyKey = strings.TrimSpace(p.idempotencyKey)
	if p.idempotencyKey == "" && o.opts.IdempotencyRequired {
		return nil, fmt.Errorf("%w: se requiere la cabecera Idempotency-Key", domain.ErrInvalidInput)
	}
	serials, err := normalizeSerials(p.serials, o.opts.MaxItems)
	if err != nil {
		return nil, err
	}
	p.serials = serials

	// ── 2. Repetición de un lote ya confirmado ────────────────────────────────
	if p.idempotencyKey != "" {
		prev, err := o.batches.Get(ctx, p.idempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("%w: consultar idempotencia: %v", domain.ErrPersistence, err)
		}
		if prev != nil {
			return o.replay(ctx, p, prev)
		}
	}

	// ── 3. Cargar equipos y verificar la tabla de transiciones ────────────────
	items, err := o.equipment.GetBySerials(ctx, serials)
	if err != nil {
		return nil, fmt.Errorf("%w: cargar equipos: %v", domain.ErrPersistence, err)
	}
	observed := make(map[string]*entity.EquipmentItem, len(items))
	for _, it := range items {
		observed[it.Serial] = it
	}
	var missing []string
	for _, s := range serials {
		if observed[s] == nil {
			missing = append(missing, s)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("%w: seriales inexistentes: %s", domain.ErrNotFound, strings.Join(missing, ", "))
	}
	for _, s := range serials {
		if _, err := lifecycle.Target(p.op, observed[s].Status, p.requested); err != nil {
			return nil, fmt.Errorf("serial %s: %w", s, err)
		}
	}

	// ── 4. Transacción: estados, movimientos, acta y tareas ───────────────────
	var (
		doc      *entity.Document
		tasks    []*entity.FollowUpTask
		moved    []transition
		result   *dto.BatchResult
		previous *entity.BatchRequest
	)
	start := time.Now()
	err = o.txRunner.Run(ctx, func(r repository.TxRepos) error {
		now := o.now().UTC()
		if p.idempotencyKey != "" {
			prev, err := r.Batches.Claim(ctx, &entity.BatchRequest{
				IdempotencyKey: p.idempotencyKey,
				Operation:      string(p.op),
				UserID:         p.userID,
				CreatedAt:      now,
			})
			if err != nil {
				return err
			}
			if prev != nil {
				previous = prev
				return errReplay
			}
		}

		locked, err := r.Equipment.LockBySerials(ctx, serials)
		if err != nil {
			return err
		}
		current := make(map[string]*entity.EquipmentItem, len(locked))
		for _, it := range locked {
			current[it.Serial] = it
		}

		moved = moved[:0]
		for _, s := range serials {
			it := current[s]
			if it == nil {
				return fmt.Errorf("%w: serial %s", domain.ErrNotFound, s)
			}
			// Otro lote cambió el equipo entre la lectura y el bloqueo.
			if it.Status != observed[s].Status {
				return fmt.Errorf("%w: el serial %s pasó de %s a %s durante la operación",
					domain.ErrConflict, s, observed[s].Status, it.Status)
			}
			target, err := lifecycle.Target(p.op, it.Status, p.requested)
			if err != nil {
				return fmt.Errorf("serial %s: %w", s, err)
			}
			origin := p.origin
			if origin == "" {
				origin = it.Location
			}
			moved = append(moved, transition{item: it, target: target, origin: origin, dest: p.destination(it, target)})
		}

		issued, err := o.issuer.Issue(ctx, r.Documents, documents.IssueInput{
			Kind:              lifecycle.DocumentKind(p.op),
			ResponsibleUserID: p.userID,
			Fields:            p.fields,
			Items:             actaItems(moved),
			Signatories:       p.signatories,
			Observations:      p.observations,
		})
		if err != nil {
			return err
		}
		doc = issued

		batchID := uuid.New().String()
		for _, t := range moved {
			if err := r.Equipment.Transition(ctx, t.item.Serial, t.item.Status, t.target, t.dest, now); err != nil {
				return err
			}
			if err := r.Movements.Create(ctx, &entity.Movement{
				ID:                uuid.New().String(),
				BatchID:           batchID,
				DocumentID:        doc.ID,
				EquipmentSerial:   t.item.Serial,
				Kind:              lifecycle.MovementKind(p.op),
				Origin:            t.origin,
				Destination:       t.dest,
				FromStatus:        t.item.Status,
				ToStatus:          t.target,
				Detail:            p.detail,
				ResponsibleUserID: p.userID,
				OccurredAt:        now,
			}); err != nil {
				return err
			}
		}

		tasks, err = followup.NewTasks(doc, p.notify, now)
		if err != nil {
			return err
		}
		for _, t := range tasks {
			if err := r.FollowUps.Create(ctx, t); err != nil {
				return err
			}
		}

		result = &dto.BatchResult{
			DocumentID:     doc.ID,
			Reference:      doc.Reference,
			Kind:           string(doc.Kind),
			MovedCount:     len(moved),
			Serials:        serials,
			EmailRequested: len(tasks) > 1,
		}
		if p.idempotencyKey != "" {
			body, err := json.Marshal(result)
			if err != nil {
				return err
			}
			if err := r.Batches.Complete(ctx, p.idempotencyKey, doc.ID, body); err != nil {
				return err
			}
		}
		return nil
	})
	if errors.Is(err, errReplay) {
		return o.replay(ctx, p, previous)
	}
	if err != nil {
		return nil, asDomainError(err)
	}
	metrics.BatchDuration.WithLabelValues(string(p.op)).Observe(time.Since(start).Seconds())
	metrics.ItemsMoved.WithLabelValues(string(p.op)).Add(float64(len(moved)))
	metrics.DocumentsIssued.WithLabelValues(string(doc.Kind)).Inc()

	log.Info().
		Str("operation", string(p.op)).
		Str("reference", doc.Reference).
		Str("user_id", p.userID).
		Int("items", len(moved)).
		Msg("movement: lote confirmado")

	// ── 5. Auditoría (después del commit, nunca bloquea) ──────────────────────
	for _, t := range moved {
		o.audit.Record(ctx, p.userID, string(p.op), fmt.Sprintf("serial %s: %s -> %s (%s -> %s), acta %s",
			t.item.Serial, t.item.Status, t.target, t.origin, t.dest, doc.Reference))
	}

	// ── 6. Render y correo ────────────────────────────────────────────────────
	out := o.followups.RunInline(ctx, doc, tasks)
	result.DocumentReady = out.DocumentReady
	result.EmailRequested = out.EmailRequested
	result.EmailSent = out.EmailSent
	result.Warnings = out.Warnings
	if out.Artifact != nil {
		result.ArtifactBase64 = base64.StdEncoding.EncodeToString(out.Artifact.Data)
		result.ArtifactURL = out.Artifact.URL
	}
	return result, nil
}

// replay devuelve la respuesta guardada del lote original sin tocar el inventario.
func (o *Orchestrator) replay(ctx context.Context, p *plan, prev *entity.BatchRequest) (*dto.BatchResult, error) {
	if prev.Operation != string(p.op) || prev.UserID != p.userID {
		return nil, fmt.Errorf("%w: la clave de idempotencia ya se usó en otra operación", domain.ErrConflict)
	}
	if len(prev.Response) == 0 {
		return nil, fmt.Errorf("%w: el lote con esa clave aún está en proceso", domain.ErrConflict)
	}
	var res dto.BatchResult
	if err := json.Unmarshal(prev.Response, &res); err != nil {
		return nil, fmt.Errorf("%w: respuesta guardada ilegible: %v", domain.ErrPersistence, err)
	}
	if !slices.Equal(res.Serials, p.serials) {
		return nil, fmt.Errorf("%w: la clave de idempotencia ya se usó con otros seriales", domain.ErrConflict)
	}
	res.Replayed = true
	if doc, err := o.issuer.Get(ctx, prev.DocumentID); err == nil {
		res.DocumentReady = doc.RenderStatus == entity.RenderReady
		res.ArtifactURL = o.issuer.URL(doc)
	}
	return &res, nil
}

func actaItems(moved []transition) []entity.ActaItem {
	items := make([]entity.ActaItem, 0, len(moved))
	for _, t := range moved {
		items = append(items, entity.ActaItem{
			Serial:      t.item.Serial,
			AssetTag:    t.item.DisplayTag(),
			Type:        t.item.Type,
			Brand:       t.item.Brand,
			Model:       t.item.Model,
			Origin:      t.origin,
			Destination: t.dest,
			Value:       t.item.Value,
		})
	}
	return items
}

// normalizeSerials limpia, rechaza vacíos y repetidos y ordena los seriales.
// El orden fijo hace que dos lotes concurrentes bloqueen filas en la misma secuencia.
func normalizeSerials(in []string, max int) ([]string, error) {
	if len(in) == 0 {
		return nil, fmt.Errorf("%w: el lote no tiene seriales", domain.ErrInvalidInput)
	}
	if len(in) > max {
		return nil, fmt.Errorf("%w: el lote supera el máximo de %d equipos", domain.ErrInvalidInput, max)
	}
	seen := make(map[string]bool, len(in))
	out := make([]string, 0, len(in))
	for _, raw := range in {
		s := entity.NormalizeSerial(raw)
		if s == "" {
			return nil, fmt.Errorf("%w: serial vacío en el lote", domain.ErrInvalidInput)
		}
		if seen[s] {
			return nil, fmt.Errorf("%w: serial %s repetido en el lote", domain.ErrInvalidInput, s)
		}
		seen[s] = true
		out = append(out, s)
	}
	sort.Strings(out)
	return out, nil
}

// asDomainError conserva los errores de dominio y envuelve el resto como falla de persistencia.
func asDomainError(err error) error {
	for _, known := range []error{
		domain.ErrNotFound,
		domain.ErrConflict,
		domain.ErrInvalidTransition,
		domain.ErrInvalidInput,
		domain.ErrDuplicate,
		domain.ErrPersistence,
	} {
		if errors.Is(err, known) {
			return err
		}
	}
	return fmt.Errorf("%w: %v", domain.ErrPersistence, err)
}

func resultLabel(res *dto.BatchResult, err error) string {
	switch {
	case err == nil && res != nil && res.Replayed:
		return "replay"
	case err == nil:
		return "ok"
	case errors.Is(err, domain.ErrConflict):
		return "conflict"
	case errors.Is(err, domain.ErrInvalidTransition), errors.Is(err, domain.ErrInvalidInput), errors.Is(err, domain.ErrNotFound):
		return "invalid"
	default:
		return "error"
	}
}
