// Package followup ejecuta las tareas posteriores al commit de un lote: generar el PDF del acta
// y enviarlo por correo. Las tareas se guardan en la misma transacción del lote, de modo que
// una caída entre el commit y el render no pierde trabajo: el worker las retoma.
package followup

import (
	"context"
	"encoding/json"
	"fmt"
	"html"
	"math"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/metrics"
)

const (
	maxBackoff = time.Hour
	// inlineGrace plazo en que el worker no toma tareas recién creadas: las ejecuta el propio lote.
	inlineGrace = 2 * time.Minute
)

// Executor ejecuta tareas RENDER y EMAIL.
type Executor struct {
	tasks       repository.FollowUpRepository
	issuer      *documents.Issuer
	contacts    ports.ContactDirectory
	mailer      ports.Mailer    // nil: correo deshabilitado
	queue       ports.TaskQueue // nil: sin cola de mensajes muertos
	maxAttempts int
	baseDelay   time.Duration
	now         func() time.Time
}

// NewExecutor construye el ejecutor de tareas posteriores.
func NewExecutor(
	tasks repository.FollowUpRepository,
	issuer *documents.Issuer,
	contacts ports.ContactDirectory,
	mailer ports.Mailer,
	queue ports.TaskQueue,
	maxAttempts int,
) *Executor {
	if maxAttempts <= 0 {
		maxAttempts = 8
	}
	return &Executor{
		tasks:       tasks,
		issuer:      issuer,
		contacts:    contacts,
		mailer:      mailer,
		queue:       queue,
		maxAttempts: maxAttempts,
		baseDelay:   30 * time.Second,
		now:         time.Now,
	}
}

// Outcome resultado de la ejecución inmediata de las tareas de un lote.
type Outcome struct {
	DocumentReady  bool
	Artifact       *documents.Artifact
	EmailRequested bool
	EmailSent      bool
	Warnings       []string
}

// NewTasks arma las tareas de un acta recién emitida: siempre RENDER y,
// si hay destinatarios, EMAIL. Se guardan dentro de la transacción del lote.
func NewTasks(doc *entity.Document, notifyContactIDs []string, now time.Time) ([]*entity.FollowUpTask, error) {
	tasks := []*entity.FollowUpTask{newTask(doc.ID, entity.TaskRender, nil, now)}

	ids := compact(notifyContactIDs)
	if len(ids) > 0 {
		payload, err := json.Marshal(entity.EmailTaskPayload{
			ContactIDs: ids,
			Subject:    fmt.Sprintf("%s %s", acta.Title(doc.Kind), doc.Reference),
		})
		if err != nil {
			return nil, fmt.Errorf("followup: serializar correo: %w", err)
		}
		tasks = append(tasks, newTask(doc.ID, entity.TaskEmail, payload, now))
	}
	return tasks, nil
}

func newTask(docID, kind string, payload json.RawMessage, now time.Time) *entity.FollowUpTask {
	return &entity.FollowUpTask{
		ID:            uuid.New().String(),
		DocumentID:    docID,
		Kind:          kind,
		Payload:       payload,
		Status:        entity.TaskPending,
		NextAttemptAt: now.Add(inlineGrace),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// RunInline ejecuta las tareas justo después del commit para poder responder
// documentReady/emailSent. Nunca devuelve error: las fallas quedan como advertencias
// y la tarea pendiente para reintento.
func (e *Executor) RunInline(ctx context.Context, doc *entity.Document, tasks []*entity.FollowUpTask) Outcome {
	var out Outcome
	for _, t := range tasks {
		switch t.Kind {
		case entity.TaskRender:
			art, err := e.issuer.Render(ctx, doc)
			if err != nil {
				e.fail(ctx, t, err)
				out.Warnings = append(out.Warnings, err.Error())
				continue
			}
			e.done(ctx, t)
			out.DocumentReady = true
			out.Artifact = art

		case entity.TaskEmail:
			out.EmailRequested = true
			if out.Artifact == nil {
				err := fmt.Errorf("%w: el acta %s aún no tiene documento", domain.ErrNotification, doc.Reference)
				e.fail(ctx, t, err)
				out.Warnings = append(out.Warnings, err.Error())
				continue
			}
			if err := e.sendEmail(ctx, doc, out.Artifact, t); err != nil {
				e.fail(ctx, t, err)
				out.Warnings = append(out.Warnings, err.Error())
				continue
			}
			e.done(ctx, t)
			out.EmailSent = true
		}
	}
	return out
}

// Execute ejecuta una tarea pendiente (la llama el worker). Tareas ya resueltas se ignoran.
func (e *Executor) Execute(ctx context.Context, taskID string) error {
	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return fmt.Errorf("followup: obtener tarea: %w", err)
	}
	if t == nil || t.Status != entity.TaskPending {
		return nil
	}

	doc, err := e.issuer.Get(ctx, t.DocumentID)
	if err != nil {
		e.fail(ctx, t, err)
		return err
	}

	switch t.Kind {
	case entity.TaskRender:
		if doc.RenderStatus == entity.RenderReady && doc.ArtifactRef != "" {
			break
		}
		if _, err := e.issuer.Render(ctx, doc); err != nil {
			e.fail(ctx, t, err)
			return err
		}
	case entity.TaskEmail:
		art, err := e.issuer.Artifact(ctx, doc.ID)
		if err != nil {
			e.fail(ctx, t, err)
			return err
		}
		if err := e.sendEmail(ctx, doc, art, t); err != nil {
			e.fail(ctx, t, err)
			return err
		}
	default:
		err := fmt.Errorf("followup: tipo de tarea desconocido %q", t.Kind)
		e.fail(ctx, t, err)
		return err
	}
	e.done(ctx, t)
	return nil
}

func (e *Executor) sendEmail(ctx context.Context, doc *entity.Document, art *documents.Artifact, t *entity.FollowUpTask) error {
	if e.mailer == nil {
		return fmt.Errorf("%w: servidor de correo no configurado", domain.ErrNotification)
	}
	var p entity.EmailTaskPayload
	if err := json.Unmarshal(t.Payload, &p); err != nil {
		return fmt.Errorf("%w: tarea ilegible: %v", domain.ErrNotification, err)
	}
	to, err := e.contacts.Emails(ctx, p.ContactIDs)
	if err != nil {
		return fmt.Errorf("%w: resolver destinatarios: %v", domain.ErrNotification, err)
	}
	if len(to) == 0 {
		return fmt.Errorf("%w: ningún contacto activo con correo", domain.ErrNotification)
	}
	err = e.mailer.Send(ctx, ports.MailMessage{
		To:             to,
		Subject:        p.Subject,
		HTML:           emailBody(doc),
		Attachment:     art.Data,
		AttachmentName: art.Filename,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", domain.ErrNotification, err)
	}
	return nil
}

func (e *Executor) done(ctx context.Context, t *entity.FollowUpTask) {
	if err := e.tasks.MarkDone(ctx, t.ID, e.now().UTC()); err != nil {
		log.Error().Err(err).Str("task_id", t.ID).Msg("followup: no se pudo cerrar la tarea")
		return
	}
	t.Status = entity.TaskDone
	metrics.FollowUpTasks.WithLabelValues(t.Kind, "done").Inc()
}

// fail suma un intento. Al llegar al máximo la tarea queda DEAD y se envía a la cola de muertos.
func (e *Executor) fail(ctx context.Context, t *entity.FollowUpTask, cause error) {
	t.Attempts++
	dead := t.Attempts >= e.maxAttempts
	next := e.now().UTC().Add(Backoff(e.baseDelay, t.Attempts))
	if err := e.tasks.MarkFailed(ctx, t.ID, cause.Error(), next, dead); err != nil {
		log.Error().Err(err).Str("task_id", t.ID).Msg("followup: no se pudo registrar la falla")
		return
	}
	t.LastError = cause.Error()
	t.NextAttemptAt = next

	ev := log.Warn()
	result := "retry"
	if dead {
		t.Status = entity.TaskDead
		ev = log.Error()
		result = "dead"
		if e.queue != nil {
			if err := e.queue.DeadLetter(ctx, t.ID, cause.Error()); err != nil {
				log.Error().Err(err).Str("task_id", t.ID).Msg("followup: no se pudo enviar a la cola de muertos")
			}
		}
	}
	metrics.FollowUpTasks.WithLabelValues(t.Kind, result).Inc()
	ev.Err(cause).
		Str("task_id", t.ID).
		Str("kind", t.Kind).
		Str("document_id", t.DocumentID).
		Int("attempts", t.Attempts).
		Bool("dead", dead).
		Msg("followup: tarea fallida")
}

// Backoff espera exponencial: base, 2*base, 4*base... con tope de una hora.
func Backoff(base time.Duration, attempts int) time.Duration {
	if attempts < 1 {
		attempts = 1
	}
	d := time.Duration(float64(base) * math.Pow(2, float64(attempts-1)))
	if d <= 0 || d > maxBackoff {
		return maxBackoff
	}
	return d
}

func emailBody(doc *entity.Document) string {
	var b strings.Builder
	b.WriteString("<p>Cordial saludo,</p>")
	fmt.Fprintf(&b, "<p>Adjuntamos el documento <strong>%s</strong> (%s), emitido el %s con %d equipo(s).</p>",
		html.EscapeString(doc.Reference),
		html.EscapeString(acta.Title(doc.Kind)),
		doc.IssuedAt.Format("02/01/2006 15:04"),
		doc.ItemCount,
	)
	b.WriteString("<p>Este mensaje se generó automáticamente; por favor no lo responda.</p>")
	return b.String()
}

func compact(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
