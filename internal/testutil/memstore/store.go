// Package memstore implementa en memoria todos los repositorios y el TxRunner.
// Lo usan las pruebas de la capa de aplicación: cada transacción toma un candado global,
// trabaja sobre el estado vivo y, si la función devuelve error, restaura la copia previa.
package memstore

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

type state struct {
	equipment map[string]entity.EquipmentItem
	types     map[string]entity.EquipmentType
	movements []entity.Movement
	documents map[string]entity.Document
	sequences map[entity.DocumentKind]int64
	tasks     map[string]entity.FollowUpTask
	batches   map[string]entity.BatchRequest
}

func newState() state {
	return state{
		equipment: map[string]entity.EquipmentItem{},
		types:     map[string]entity.EquipmentType{},
		documents: map[string]entity.Document{},
		sequences: map[entity.DocumentKind]int64{},
		tasks:     map[string]entity.FollowUpTask{},
		batches:   map[string]entity.BatchRequest{},
	}
}

func (s state) clone() state {
	c := newState()
	for k, v := range s.equipment {
		c.equipment[k] = v
	}
	for k, v := range s.types {
		c.types[k] = v
	}
	c.movements = append([]entity.Movement(nil), s.movements...)
	for k, v := range s.documents {
		c.documents[k] = v
	}
	for k, v := range s.sequences {
		c.sequences[k] = v
	}
	for k, v := range s.tasks {
		c.tasks[k] = v
	}
	for k, v := range s.batches {
		c.batches[k] = v
	}
	return c
}

// Store estado en memoria. Los campos de hooks se asignan antes de usar el store.
type Store struct {
	mu   sync.Mutex // estado transaccional
	data state

	dirMu    sync.Mutex // directorio y auditoría (fuera de transacción)
	users    map[string]entity.User
	contacts map[string]entity.Contact
	audit    []entity.AuditEntry

	// AfterGetBySerials se llama al terminar la lectura previa (fuera de transacción).
	AfterGetBySerials func()
	// FailMovement, si devuelve error, hace fallar la creación de ese movimiento.
	FailMovement func(m *entity.Movement) error
	// FailAudit hace fallar toda inserción de auditoría.
	FailAudit error
}

var _ ports.TxRunner = (*Store)(nil)

// New crea un store vacío.
func New() *Store {
	return &Store{
		data:     newState(),
		users:    map[string]entity.User{},
		contacts: map[string]entity.Contact{},
	}
}

// Run ejecuta fn con repositorios atados a la transacción. Si fn falla el estado vuelve a la copia previa.
func (s *Store) Run(ctx context.Context, fn func(repos repository.TxRepos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	snapshot := s.data.clone()
	if err := fn(s.repos(true)); err != nil {
		s.data = snapshot
		return err
	}
	return nil
}

// Repos repositorios fuera de transacción.
func (s *Store) Repos() repository.TxRepos { return s.repos(false) }

func (s *Store) repos(inTx bool) repository.TxRepos {
	return repository.TxRepos{
		Equipment:      &EquipmentRepo{s: s, inTx: inTx},
		EquipmentTypes: &EquipmentTypeRepo{s: s, inTx: inTx},
		Movements:      &MovementRepo{s: s, inTx: inTx},
		Documents:      &DocumentRepo{s: s, inTx: inTx},
		FollowUps:      &FollowUpRepo{s: s, inTx: inTx},
		Batches:        &BatchRepo{s: s, inTx: inTx},
	}
}

// Users repositorio de usuarios.
func (s *Store) Users() *UserRepo { return &UserRepo{s: s} }

// Contacts repositorio de contactos.
func (s *Store) Contacts() *ContactRepo { return &ContactRepo{s: s} }

// Audit repositorio de auditoría.
func (s *Store) Audit() *AuditRepo { return &AuditRepo{s: s} }

// with ejecuta fn con el candado tomado, salvo que ya lo tenga la transacción en curso.
func (s *Store) with(inTx bool, fn func()) {
	if !inTx {
		s.mu.Lock()
		defer s.mu.Unlock()
	}
	fn()
}

// ── Datos de prueba ──────────────────────────────────────────────────────────

// SeedEquipment inserta equipos directamente, sin movimientos.
func (s *Store) SeedEquipment(items ...entity.EquipmentItem) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, it := range items {
		if it.ID == "" {
			it.ID = uuid.New().String()
		}
		if it.Location == "" {
			it.Location = entity.LocationCentralStock
		}
		s.data.equipment[it.Serial] = it
	}
}

// SeedDocument inserta un acta tal cual (sirve para actas históricas).
func (s *Store) SeedDocument(doc entity.Document) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	s.data.documents[doc.ID] = doc
}

// SeedMovement inserta un movimiento tal cual.
func (s *Store) SeedMovement(m entity.Movement) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	s.data.movements = append(s.data.movements, m)
}

// AddUser registra un usuario del directorio.
func (s *Store) AddUser(u entity.User) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	s.users[u.ID] = u
}

// AddContact registra un contacto.
func (s *Store) AddContact(c entity.Contact) {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	s.contacts[c.ID] = c
}

// ── Inspección ───────────────────────────────────────────────────────────────

// Item devuelve una copia del equipo o nil.
func (s *Store) Item(serial string) *entity.EquipmentItem {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.data.equipment[serial]
	if !ok {
		return nil
	}
	return &it
}

// Movements copia de la bitácora en orden de inserción.
func (s *Store) Movements() []entity.Movement {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]entity.Movement(nil), s.data.movements...)
}

// Documents actas ordenadas por referencia.
func (s *Store) Documents() []entity.Document {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.Document, 0, len(s.data.documents))
	for _, d := range s.data.documents {
		out = append(out, d)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Reference < out[j].Reference })
	return out
}

// Sequence último consecutivo reservado del tipo.
func (s *Store) Sequence(kind entity.DocumentKind) int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.data.sequences[kind]
}

// Tasks tareas posteriores ordenadas por creación y tipo.
func (s *Store) Tasks() []entity.FollowUpTask {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]entity.FollowUpTask, 0, len(s.data.tasks))
	for _, t := range s.data.tasks {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].Kind > out[j].Kind // RENDER antes que EMAIL
	})
	return out
}

// AuditEntries copia de la auditoría en orden de inserción.
func (s *Store) AuditEntries() []entity.AuditEntry {
	s.dirMu.Lock()
	defer s.dirMu.Unlock()
	return append([]entity.AuditEntry(nil), s.audit...)
}

// ── Equipos ──────────────────────────────────────────────────────────────────

// EquipmentRepo implementa repository.EquipmentRepository.
type EquipmentRepo struct {
	s    *Store
	inTx bool
}

var _ repository.EquipmentRepository = (*EquipmentRepo)(nil)

func (r *EquipmentRepo) CreateIfAbsent(_ context.Context, item *entity.EquipmentItem) (bool, error) {
	created := false
	r.s.with(r.inTx, func() {
		if _, ok := r.s.data.equipment[item.Serial]; ok {
			return
		}
		r.s.data.equipment[item.Serial] = *item
		created = true
	})
	return created, nil
}

func (r *EquipmentRepo) GetBySerial(_ context.Context, serial string) (*entity.EquipmentItem, error) {
	var out *entity.EquipmentItem
	r.s.with(r.inTx, func() {
		if it, ok := r.s.data.equipment[serial]; ok {
			out = &it
		}
	})
	return out, nil
}

func (r *EquipmentRepo) GetBySerials(_ context.Context, serials []string) ([]*entity.EquipmentItem, error) {
	var out []*entity.EquipmentItem
	r.s.with(r.inTx, func() { out = r.collect(serials) })
	if hook := r.s.AfterGetBySerials; hook != nil && !r.inTx {
		hook()
	}
	return out, nil
}

func (r *EquipmentRepo) LockBySerials(_ context.Context, serials []string) ([]*entity.EquipmentItem, error) {
	var out []*entity.EquipmentItem
	r.s.with(r.inTx, func() { out = r.collect(serials) })
	return out, nil
}

func (r *EquipmentRepo) collect(serials []string) []*entity.EquipmentItem {
	sorted := append([]string(nil), serials...)
	sort.Strings(sorted)
	out := make([]*entity.EquipmentItem, 0, len(sorted))
	for _, s := range sorted {
		if it, ok := r.s.data.equipment[s]; ok {
			out = append(out, &it)
		}
	}
	return out
}

func (r *EquipmentRepo) Transition(_ context.Context, serial string, expected, next entity.EquipmentStatus, location string, at time.Time) error {
	var err error
	r.s.with(r.inTx, func() {
		it, ok := r.s.data.equipment[serial]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		if it.Status != expected {
			err = domain.ErrConflict
			return
		}
		it.Status = next
		it.Location = location
		it.UpdatedAt = at
		r.s.data.equipment[serial] = it
	})
	return err
}

func (r *EquipmentRepo) ExistingSerials(_ context.Context, serials []string) (map[string]bool, error) {
	out := make(map[string]bool)
	r.s.with(r.inTx, func() {
		for _, s := range serials {
			if _, ok := r.s.data.equipment[s]; ok {
				out[s] = true
			}
		}
	})
	return out, nil
}

func (r *EquipmentRepo) ListByStatus(_ context.Context, status entity.EquipmentStatus, limit, offset int) ([]*entity.EquipmentItem, int, error) {
	var all []*entity.EquipmentItem
	r.s.with(r.inTx, func() {
		for _, it := range r.s.data.equipment {
			if status != "" && it.Status != status {
				continue
			}
			it := it
			all = append(all, &it)
		}
	})
	sort.Slice(all, func(i, j int) bool { return all[i].Serial < all[j].Serial })
	return page(all, limit, offset), len(all), nil
}

// EquipmentTypeRepo implementa repository.EquipmentTypeRepository.
type EquipmentTypeRepo struct {
	s    *Store
	inTx bool
}

var _ repository.EquipmentTypeRepository = (*EquipmentTypeRepo)(nil)

func (r *EquipmentTypeRepo) List(_ context.Context) ([]*entity.EquipmentType, error) {
	var out []*entity.EquipmentType
	r.s.with(r.inTx, func() {
		for _, t := range r.s.data.types {
			t := t
			out = append(out, &t)
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r *EquipmentTypeRepo) Ensure(_ context.Context, name, createdBy string) (*entity.EquipmentType, error) {
	key := strings.ToUpper(strings.TrimSpace(name))
	var out entity.EquipmentType
	r.s.with(r.inTx, func() {
		t, ok := r.s.data.types[key]
		if !ok {
			t = entity.EquipmentType{ID: uuid.New().String(), Name: key, CreatedBy: createdBy, CreatedAt: time.Now().UTC()}
			r.s.data.types[key] = t
		}
		out = t
	})
	return &out, nil
}

// ── Movimientos ──────────────────────────────────────────────────────────────

// MovementRepo implementa repository.MovementRepository.
type MovementRepo struct {
	s    *Store
	inTx bool
}

var _ repository.MovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(_ context.Context, m *entity.Movement) error {
	if hook := r.s.FailMovement; hook != nil {
		if err := hook(m); err != nil {
			return err
		}
	}
	r.s.with(r.inTx, func() { r.s.data.movements = append(r.s.data.movements, *m) })
	return nil
}

func (r *MovementRepo) ListBySerial(_ context.Context, serial string) ([]*entity.Movement, error) {
	var out []*entity.Movement
	r.s.with(r.inTx, func() {
		for _, m := range r.s.data.movements {
			if m.EquipmentSerial == serial {
				m := m
				out = append(out, &m)
			}
		}
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.Before(out[j].OccurredAt) })
	return out, nil
}

func (r *MovementRepo) Search(_ context.Context, f repository.MovementFilter) ([]repository.MovementRow, int, error) {
	var rows []repository.MovementRow
	text := strings.ToLower(strings.TrimSpace(f.Text))
	r.s.with(r.inTx, func() {
		for _, m := range r.s.data.movements {
			if f.Kind != "" && m.Kind != f.Kind {
				continue
			}
			if f.UserID != "" && m.ResponsibleUserID != f.UserID {
				continue
			}
			if !inRange(m.OccurredAt, f.From, f.To) {
				continue
			}
			row := repository.MovementRow{Movement: m}
			if it, ok := r.s.data.equipment[m.EquipmentSerial]; ok {
				row.AssetTag = it.AssetTag
				row.EquipmentType = it.Type
				row.Brand = it.Brand
				row.Model = it.Model
			}
			if d, ok := r.s.data.documents[m.DocumentID]; ok {
				row.DocumentRef = d.Reference
			}
			if text != "" && !containsAny(text, m.EquipmentSerial, row.AssetTag, m.Origin, m.Destination, m.Detail) {
				continue
			}
			rows = append(rows, row)
		}
	})
	sort.SliceStable(rows, func(i, j int) bool {
		return rows[i].Movement.OccurredAt.After(rows[j].Movement.OccurredAt)
	})
	return page(rows, f.Limit, f.Offset), len(rows), nil
}

// ── Actas ────────────────────────────────────────────────────────────────────

// DocumentRepo implementa repository.DocumentRepository.
type DocumentRepo struct {
	s    *Store
	inTx bool
}

var _ repository.DocumentRepository = (*DocumentRepo)(nil)

func (r *DocumentRepo) NextSequence(_ context.Context, kind entity.DocumentKind) (int64, error) {
	var seq int64
	r.s.with(r.inTx, func() {
		r.s.data.sequences[kind]++
		seq = r.s.data.sequences[kind]
	})
	return seq, nil
}

func (r *DocumentRepo) Create(_ context.Context, doc *entity.Document) error {
	var err error
	r.s.with(r.inTx, func() {
		for _, d := range r.s.data.documents {
			if d.Reference == doc.Reference {
				err = domain.ErrDuplicate
				return
			}
		}
		r.s.data.documents[doc.ID] = *doc
	})
	return err
}

func (r *DocumentRepo) GetByID(_ context.Context, id string) (*entity.Document, error) {
	var out *entity.Document
	r.s.with(r.inTx, func() {
		if d, ok := r.s.data.documents[id]; ok {
			out = &d
		}
	})
	return out, nil
}

func (r *DocumentRepo) UpdateArtifact(_ context.Context, id, artifactRef string, status entity.RenderStatus) error {
	var err error
	r.s.with(r.inTx, func() {
		d, ok := r.s.data.documents[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		d.ArtifactRef = artifactRef
		d.RenderStatus = status
		r.s.data.documents[id] = d
	})
	return err
}

func (r *DocumentRepo) List(_ context.Context, f repository.DocumentFilter) ([]*entity.Document, int, error) {
	var out []*entity.Document
	text := strings.ToLower(strings.TrimSpace(f.Text))
	r.s.with(r.inTx, func() {
		for _, d := range r.s.data.documents {
			if f.Kind != "" && acta.Classify(string(d.Kind), d.Reference) != f.Kind {
				continue
			}
			if f.UserID != "" && d.ResponsibleUserID != f.UserID {
				continue
			}
			if !inRange(d.IssuedAt, f.From, f.To) {
				continue
			}
			if text != "" && !containsAny(text, d.Reference, string(d.Payload)) {
				continue
			}
			d := d
			out = append(out, &d)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].IssuedAt.Equal(out[j].IssuedAt) {
			return out[i].IssuedAt.After(out[j].IssuedAt)
		}
		return out[i].Reference > out[j].Reference
	})
	return page(out, f.Limit, f.Offset), len(out), nil
}

// ── Tareas e idempotencia ────────────────────────────────────────────────────

// FollowUpRepo implementa repository.FollowUpRepository.
type FollowUpRepo struct {
	s    *Store
	inTx bool
}

var _ repository.FollowUpRepository = (*FollowUpRepo)(nil)

func (r *FollowUpRepo) Create(_ context.Context, t *entity.FollowUpTask) error {
	r.s.with(r.inTx, func() { r.s.data.tasks[t.ID] = *t })
	return nil
}

func (r *FollowUpRepo) GetByID(_ context.Context, id string) (*entity.FollowUpTask, error) {
	var out *entity.FollowUpTask
	r.s.with(r.inTx, func() {
		if t, ok := r.s.data.tasks[id]; ok {
			out = &t
		}
	})
	return out, nil
}

func (r *FollowUpRepo) ClaimDue(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*entity.FollowUpTask, error) {
	var out []*entity.FollowUpTask
	r.s.with(r.inTx, func() {
		var due []entity.FollowUpTask
		for _, t := range r.s.data.tasks {
			if t.Status == entity.TaskPending && !t.NextAttemptAt.After(now) {
				due = append(due, t)
			}
		}
		sort.Slice(due, func(i, j int) bool { return due[i].NextAttemptAt.Before(due[j].NextAttemptAt) })
		for i, t := range due {
			if i == limit {
				break
			}
			t.NextAttemptAt = now.Add(lease)
			r.s.data.tasks[t.ID] = t
			t := t
			out = append(out, &t)
		}
	})
	return out, nil
}

func (r *FollowUpRepo) MarkDone(_ context.Context, id string, at time.Time) error {
	return r.update(id, func(t *entity.FollowUpTask) {
		t.Status = entity.TaskDone
		t.Attempts++
		t.UpdatedAt = at
	})
}

func (r *FollowUpRepo) MarkFailed(_ context.Context, id, lastError string, next time.Time, dead bool) error {
	return r.update(id, func(t *entity.FollowUpTask) {
		t.Attempts++
		t.LastError = lastError
		t.NextAttemptAt = next
		t.Status = entity.TaskPending
		if dead {
			t.Status = entity.TaskDead
		}
	})
}

func (r *FollowUpRepo) update(id string, fn func(t *entity.FollowUpTask)) error {
	var err error
	r.s.with(r.inTx, func() {
		t, ok := r.s.data.tasks[id]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		fn(&t)
		r.s.data.tasks[id] = t
	})
	return err
}

// BatchRepo implementa repository.BatchRequestRepository.
type BatchRepo struct {
	s    *Store
	inTx bool
}

var _ repository.BatchRequestRepository = (*BatchRepo)(nil)

func (r *BatchRepo) Get(_ context.Context, key string) (*entity.BatchRequest, error) {
	var out *entity.BatchRequest
	r.s.with(r.inTx, func() {
		if b, ok := r.s.data.batches[key]; ok {
			out = &b
		}
	})
	return out, nil
}

func (r *BatchRepo) Claim(_ context.Context, req *entity.BatchRequest) (*entity.BatchRequest, error) {
	var prev *entity.BatchRequest
	r.s.with(r.inTx, func() {
		if b, ok := r.s.data.batches[req.IdempotencyKey]; ok {
			prev = &b
			return
		}
		r.s.data.batches[req.IdempotencyKey] = *req
	})
	return prev, nil
}

func (r *BatchRepo) Complete(_ context.Context, key, documentID string, response []byte) error {
	var err error
	r.s.with(r.inTx, func() {
		b, ok := r.s.data.batches[key]
		if !ok {
			err = domain.ErrNotFound
			return
		}
		b.DocumentID = documentID
		b.Response = append([]byte(nil), response...)
		r.s.data.batches[key] = b
	})
	return err
}

// ── Directorio y auditoría ───────────────────────────────────────────────────

// UserRepo implementa repository.UserRepository.
type UserRepo struct{ s *Store }

var _ repository.UserRepository = (*UserRepo)(nil)

func (r *UserRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.User, error) {
	r.s.dirMu.Lock()
	defer r.s.dirMu.Unlock()
	var out []*entity.User
	for _, id := range ids {
		if u, ok := r.s.users[id]; ok {
			out = append(out, &u)
		}
	}
	return out, nil
}

// ContactRepo implementa repository.ContactRepository (solo contactos activos).
type ContactRepo struct{ s *Store }

var _ repository.ContactRepository = (*ContactRepo)(nil)

func (r *ContactRepo) GetByIDs(_ context.Context, ids []string) ([]*entity.Contact, error) {
	r.s.dirMu.Lock()
	defer r.s.dirMu.Unlock()
	var out []*entity.Contact
	for _, id := range ids {
		if c, ok := r.s.contacts[id]; ok && c.Active {
			out = append(out, &c)
		}
	}
	return out, nil
}

// AuditRepo implementa repository.AuditRepository.
type AuditRepo struct{ s *Store }

var _ repository.AuditRepository = (*AuditRepo)(nil)

func (r *AuditRepo) Create(_ context.Context, e *entity.AuditEntry) error {
	r.s.dirMu.Lock()
	defer r.s.dirMu.Unlock()
	if r.s.FailAudit != nil {
		return r.s.FailAudit
	}
	r.s.audit = append(r.s.audit, *e)
	return nil
}

func (r *AuditRepo) Search(_ context.Context, f repository.AuditFilter) ([]*entity.AuditEntry, int, error) {
	r.s.dirMu.Lock()
	defer r.s.dirMu.Unlock()
	text := strings.ToLower(strings.TrimSpace(f.Text))
	var out []*entity.AuditEntry
	for _, e := range r.s.audit {
		if f.UserID != "" && e.UserID != f.UserID {
			continue
		}
		if !inRange(e.OccurredAt, f.From, f.To) {
			continue
		}
		if text != "" && !containsAny(text, e.Action, e.Detail) {
			continue
		}
		e := e
		out = append(out, &e)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].OccurredAt.After(out[j].OccurredAt) })
	return page(out, f.Limit, f.Offset), len(out), nil
}

// ── Utilidades ───────────────────────────────────────────────────────────────

func page[T any](list []T, limit, offset int) []T {
	if offset >= len(list) {
		return []T{}
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

func inRange(t time.Time, from, to *time.Time) bool {
	if from != nil && t.Before(*from) {
		return false
	}
	if to != nil && t.After(*to) {
		return false
	}
	return true
}

func containsAny(needle string, fields ...string) bool {
	for _, f := range fields {
		if strings.Contains(strings.ToLower(f), needle) {
			return true
		}
	}
	return false
}
