package memstore

import (
	"context"
	"fmt"
	"sync"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// Renderer genera un "PDF" mínimo con la referencia. Err, si se asigna, hace fallar el render.
type Renderer struct {
	mu    sync.Mutex
	Err   error
	calls int
}

var _ ports.ActaRenderer = (*Renderer)(nil)

func (r *Renderer) RenderActa(ctx context.Context, p *entity.ActaPayload) ([]byte, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.calls++
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if r.Err != nil {
		return nil, r.Err
	}
	return []byte(fmt.Sprintf("%%PDF-1.4 %s %d", p.Reference, len(p.Items))), nil
}

// SetErr cambia la falla del render.
func (r *Renderer) SetErr(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.Err = err
}

// Calls cantidad de renders pedidos.
func (r *Renderer) Calls() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.calls
}

// Artifacts almacenamiento de artefactos en memoria.
type Artifacts struct {
	mu    sync.Mutex
	files map[string][]byte
}

var _ ports.ArtifactStore = (*Artifacts)(nil)

// NewArtifacts crea el almacenamiento vacío.
func NewArtifacts() *Artifacts {
	return &Artifacts{files: map[string][]byte{}}
}

func (a *Artifacts) Put(_ context.Context, name string, data []byte) (string, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.files[name] = append([]byte(nil), data...)
	return name, nil
}

func (a *Artifacts) Get(_ context.Context, ref string) ([]byte, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	data, ok := a.files[ref]
	if !ok {
		return nil, domain.ErrNotFound
	}
	return data, nil
}

func (a *Artifacts) URL(ref string) string { return "https://files.test/" + ref }

// Delete borra un artefacto (simula pérdida del archivo).
func (a *Artifacts) Delete(ref string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	delete(a.files, ref)
}

// Mailer registra los correos enviados. Err, si se asigna, hace fallar el envío.
type Mailer struct {
	mu   sync.Mutex
	Err  error
	sent []ports.MailMessage
}

var _ ports.Mailer = (*Mailer)(nil)

func (m *Mailer) Send(_ context.Context, msg ports.MailMessage) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.Err != nil {
		return m.Err
	}
	m.sent = append(m.sent, msg)
	return nil
}

// SetErr cambia la falla del envío.
func (m *Mailer) SetErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Err = err
}

// Sent correos enviados.
func (m *Mailer) Sent() []ports.MailMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ports.MailMessage(nil), m.sent...)
}

// DeadLetters cola de mensajes muertos en memoria (ports.TaskQueue).
type DeadLetters struct {
	mu       sync.Mutex
	enqueued []string
	dead     map[string]string
}

var _ ports.TaskQueue = (*DeadLetters)(nil)

// NewDeadLetters crea la cola vacía.
func NewDeadLetters() *DeadLetters {
	return &DeadLetters{dead: map[string]string{}}
}

func (q *DeadLetters) Enqueue(_ context.Context, taskID string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.enqueued = append(q.enqueued, taskID)
	return nil
}

func (q *DeadLetters) DeadLetter(_ context.Context, taskID, reason string) error {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.dead[taskID] = reason
	return nil
}

// Dead motivo con que la tarea fue a la cola de muertos.
func (q *DeadLetters) Dead(taskID string) (string, bool) {
	q.mu.Lock()
	defer q.mu.Unlock()
	r, ok := q.dead[taskID]
	return r, ok
}
