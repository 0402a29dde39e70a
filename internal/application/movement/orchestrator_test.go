package movement_test

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/cache"
	"github.com/jhoicas/Trazabilidad-api/internal/testutil/memstore"
)

const testUser = "u-tecnico"

type env struct {
	store     *memstore.Store
	renderer  *memstore.Renderer
	artifacts *memstore.Artifacts
	mailer    *memstore.Mailer
	dlq       *memstore.DeadLetters
	executor  *followup.Executor
	orch      *movement.Orchestrator
}

func newEnv(t *testing.T, opts movement.Options) *env {
	t.Helper()
	e := &env{
		store:     memstore.New(),
		renderer:  &memstore.Renderer{},
		artifacts: memstore.NewArtifacts(),
		mailer:    &memstore.Mailer{},
		dlq:       memstore.NewDeadLetters(),
	}
	e.store.AddUser(entity.User{ID: testUser, Name: "Ana Torres", Role: entity.RoleTecnico})
	e.store.AddContact(entity.Contact{ID: "c-1", Name: "Coordinador PV-5", Email: "coord.pv5@example.com", Active: true})

	repos := e.store.Repos()
	users := cache.NewUserDirectory(e.store.Users(), 64, time.Minute)
	contacts := cache.NewContactDirectory(e.store.Contacts(), 64, time.Minute)
	issuer := documents.NewIssuer(repos.Documents, e.renderer, e.artifacts, users, time.Second)
	e.executor = followup.NewExecutor(repos.FollowUps, issuer, contacts, e.mailer, e.dlq, 3)
	e.orch = movement.NewOrchestrator(e.store, repos.Equipment, repos.Batches, issuer, e.executor, audit.NewTrail(e.store.Audit()), opts)
	return e
}

func (e *env) seed(status entity.EquipmentStatus, serials ...string) {
	for _, s := range serials {
		e.store.SeedEquipment(entity.EquipmentItem{
			Serial: s, AssetTag: "PL-" + s, Type: "PORTÁTIL", Brand: "Lenovo", Model: "T14", Status: status,
		})
	}
}

func transferReq(serials ...string) dto.TransferOutRequest {
	return dto.TransferOutRequest{Serials: serials, DestinationSite: "PV-5", RecipientName: "Maria"}
}

// ── Entrega ──────────────────────────────────────────────────────────────────

func TestTransferOut_MueveTodoYEmiteActa(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A", "B", "C")

	req := transferReq("a", " B ", "C")
	req.NotifyContactIDs = []string{"c-1"}
	res, err := e.orch.TransferOut(context.Background(), testUser, "", req)
	require.NoError(t, err)

	assert.Equal(t, 3, res.MovedCount)
	assert.Equal(t, []string{"A", "B", "C"}, res.Serials)
	assert.Regexp(t, `^ENT-\d{4}-000001$`, res.Reference)
	assert.True(t, res.DocumentReady)
	assert.True(t, res.EmailRequested)
	assert.True(t, res.EmailSent)
	assert.NotEmpty(t, res.ArtifactBase64)
	assert.Empty(t, res.Warnings)

	for _, s := range []string{"A", "B", "C"} {
		it := e.store.Item(s)
		require.NotNil(t, it)
		assert.Equal(t, entity.StatusDeployed, it.Status)
		assert.Equal(t, "PV-5", it.Location)
	}

	movs := e.store.Movements()
	require.Len(t, movs, 3)
	for _, m := range movs {
		assert.Equal(t, entity.MovementTransferOut, m.Kind)
		assert.Equal(t, res.DocumentID, m.DocumentID)
		assert.Equal(t, entity.LocationCentralStock, m.Origin)
		assert.Equal(t, "PV-5", m.Destination)
		assert.Equal(t, entity.StatusAvailable, m.FromStatus)
		assert.Equal(t, entity.StatusDeployed, m.ToStatus)
		assert.Equal(t, "Entrega a Maria", m.Detail)
		assert.Equal(t, testUser, m.ResponsibleUserID)
		assert.Equal(t, movs[0].BatchID, m.BatchID)
	}

	docs := e.store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, entity.RenderReady, docs[0].RenderStatus)
	assert.Equal(t, 3, docs[0].ItemCount)

	sent := e.mailer.Sent()
	require.Len(t, sent, 1)
	assert.Equal(t, []string{"coord.pv5@example.com"}, sent[0].To)
	assert.Equal(t, res.Reference+".pdf", sent[0].AttachmentName)

	for _, task := range e.store.Tasks() {
		assert.Equal(t, entity.TaskDone, task.Status)
	}
	assert.Len(t, e.store.AuditEntries(), 3)
}

func TestTransferOut_ConsecutivoAvanzaPorTipo(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A", "B")

	first, err := e.orch.TransferOut(context.Background(), testUser, "", transferReq("A"))
	require.NoError(t, err)
	second, err := e.orch.TransferOut(context.Background(), testUser, "", transferReq("B"))
	require.NoError(t, err)

	assert.True(t, strings.HasSuffix(first.Reference, "-000001"))
	assert.True(t, strings.HasSuffix(second.Reference, "-000002"))
	assert.Equal(t, int64(0), e.store.Sequence(entity.DocumentReturn))
}

// ── Validación y transiciones ────────────────────────────────────────────────

func TestTransferOut_TransicionInvalidaNoTocaNada(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")
	e.seed(entity.StatusInRepair, "B")

	_, err := e.orch.TransferOut(context.Background(), testUser, "", transferReq("A", "B"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Contains(t, err.Error(), "B")

	assert.Equal(t, entity.StatusAvailable, e.store.Item("A").Status)
	assert.Equal(t, entity.StatusInRepair, e.store.Item("B").Status)
	assert.Empty(t, e.store.Movements())
	assert.Empty(t, e.store.Documents())
	assert.Equal(t, int64(0), e.store.Sequence(entity.DocumentTransfer))
}

func TestDispose_DesdeDisponibleEsInvalido(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")

	_, err := e.orch.Dispose(context.Background(), testUser, "", dto.DisposeRequest{
		Serials: []string{"A"}, DisposalVendor: "EcoRAEE",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)
	assert.Equal(t, entity.StatusAvailable, e.store.Item("A").Status)
}

func TestTransferOut_ErroresDeEntrada(t *testing.T) {
	e := newEnv(t, movement.Options{MaxItems: 2})
	e.seed(entity.StatusAvailable, "A", "B", "C")
	ctx := context.Background()

	tests := []struct {
		name   string
		userID string
		req    dto.TransferOutRequest
		want   error
	}{
		{"sin usuario", "", transferReq("A"), domain.ErrUnauthorized},
		{"sin seriales", testUser, transferReq(), domain.ErrInvalidInput},
		{"serial repetido", testUser, transferReq("A", "a"), domain.ErrInvalidInput},
		{"supera el máximo", testUser, transferReq("A", "B", "C"), domain.ErrInvalidInput},
		{"serial inexistente", testUser, transferReq("A", "ZZZ"), domain.ErrNotFound},
		{"sin destinatario", testUser, dto.TransferOutRequest{Serials: []string{"A"}, DestinationSite: "PV-5", RecipientName: "  "}, domain.ErrInvalidInput},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := e.orch.TransferOut(ctx, tt.userID, "", tt.req)
			assert.ErrorIs(t, err, tt.want)
		})
	}
	assert.Empty(t, e.store.Movements())
	assert.Equal(t, entity.StatusAvailable, e.store.Item("A").Status)
}

func TestFinalizeRepair_NotaVaciaSeRechaza(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusInRepair, "A")

	for _, note := range []string{"", "   "} {
		_, err := e.orch.FinalizeRepair(context.Background(), testUser, "", dto.FinalizeRepairRequest{
			Serials: []string{"A"}, ResolutionNote: note,
		})
		assert.ErrorIs(t, err, domain.ErrInvalidInput)
	}
	assert.Equal(t, entity.StatusInRepair, e.store.Item("A").Status)
	assert.Empty(t, e.store.Movements())
}

func TestFinalizeRepair_VuelveABodegaConNota(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusInRepair, "A")

	res, err := e.orch.FinalizeRepair(context.Background(), testUser, "", dto.FinalizeRepairRequest{
		Serials: []string{"A"}, ResolutionNote: "Cambio de disco",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^RPF-`, res.Reference)

	it := e.store.Item("A")
	assert.Equal(t, entity.StatusAvailable, it.Status)
	assert.Equal(t, entity.LocationCentralStock, it.Location)
	movs := e.store.Movements()
	require.Len(t, movs, 1)
	assert.Equal(t, "Cambio de disco", movs[0].Detail)
	assert.Equal(t, entity.MovementFinalizeRepair, movs[0].Kind)
}

func TestReturn_DestinoElegidoPorElLlamador(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusDeployed, "A", "B")

	res, err := e.orch.Return(context.Background(), testUser, "", dto.ReturnRequest{
		Serials: []string{"A", "B"}, OriginSite: "PV-5", DelivererName: "Maria", TargetStatus: "IN_REPAIR",
	})
	require.NoError(t, err)
	assert.Regexp(t, `^DEV-`, res.Reference)

	for _, s := range []string{"A", "B"} {
		it := e.store.Item(s)
		assert.Equal(t, entity.StatusInRepair, it.Status)
		assert.Equal(t, entity.LocationRepair, it.Location)
	}
	for _, m := range e.store.Movements() {
		assert.Equal(t, "PV-5", m.Origin)
		assert.Equal(t, entity.MovementReturn, m.Kind)
	}

	_, err = e.orch.Return(context.Background(), testUser, "", dto.ReturnRequest{
		Serials: []string{"A"}, OriginSite: "PV-5", DelivererName: "Maria", TargetStatus: "DISPOSED",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestCicloCompleto_HastaDisposicion(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")
	ctx := context.Background()

	_, err := e.orch.SendToRepair(ctx, testUser, "", dto.SendToRepairRequest{
		Serials: []string{"A"}, RepairProvider: "TecniService", FaultDescription: "No enciende",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusInRepair, e.store.Item("A").Status)

	_, err = e.orch.WriteOff(ctx, testUser, "", dto.WriteOffRequest{
		Serials: []string{"A"}, AuthorizerName: "Jefe de TI", Reason: "Irreparable",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWrittenOff, e.store.Item("A").Status)

	_, err = e.orch.Dispose(ctx, testUser, "", dto.DisposeRequest{
		Serials: []string{"A"}, DisposalVendor: "EcoRAEE", Vehicle: "ABC123",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.StatusDisposed, e.store.Item("A").Status)

	// DISPOSED es terminal.
	_, err = e.orch.WriteOff(ctx, testUser, "", dto.WriteOffRequest{Serials: []string{"A"}, AuthorizerName: "Jefe de TI"})
	assert.ErrorIs(t, err, domain.ErrInvalidTransition)

	kinds := make([]entity.MovementKind, 0, 3)
	for _, m := range e.store.Movements() {
		kinds = append(kinds, m.Kind)
	}
	assert.Equal(t, []entity.MovementKind{entity.MovementSendToRepair, entity.MovementWriteOff, entity.MovementDisposal}, kinds)
}

// ── Atomicidad y concurrencia ────────────────────────────────────────────────

func TestTransferOut_FallaAMitadDeLoteHaceRollback(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A", "B", "C")
	e.store.FailMovement = func(m *entity.Movement) error {
		if m.EquipmentSerial == "B" {
			return errors.New("disco lleno")
		}
		return nil
	}

	_, err := e.orch.TransferOut(context.Background(), testUser, "", transferReq("A", "B", "C"))
	require.Error(t, err)
	assert.ErrorIs(t, err, domain.ErrPersistence)

	for _, s := range []string{"A", "B", "C"} {
		assert.Equal(t, entity.StatusAvailable, e.store.Item(s).Status, s)
	}
	assert.Empty(t, e.store.Movements())
	assert.Empty(t, e.store.Documents())
	assert.Empty(t, e.store.Tasks())
	assert.Equal(t, int64(0), e.store.Sequence(entity.DocumentTransfer))
	assert.Zero(t, e.renderer.Calls())

	// El consecutivo descartado no deja huecos.
	e.store.FailMovement = nil
	res, err := e.orch.TransferOut(context.Background(), testUser, "", transferReq("A", "B", "C"))
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(res.Reference, "-000001"))
}

func TestWriteOff_ConcurrenteSoloUnoGana(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")

	var barrier sync.WaitGroup
	barrier.Add(2)
	e.store.AfterGetBySerials = func() {
		barrier.Done()
		barrier.Wait()
	}

	errs := make([]error, 2)
	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = e.orch.WriteOff(context.Background(), testUser, "", dto.WriteOffRequest{
				Serials: []string{"A"}, AuthorizerName: "Jefe de TI",
			})
		}(i)
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domain.ErrConflict):
			conflicts++
		default:
			t.Fatalf("error inesperado: %v", err)
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, 1, conflicts)
	assert.Equal(t, entity.StatusWrittenOff, e.store.Item("A").Status)
	assert.Len(t, e.store.Movements(), 1)
	assert.Equal(t, int64(1), e.store.Sequence(entity.DocumentWriteOff))
}

// ── Fallas posteriores al commit ─────────────────────────────────────────────

func TestTransferOut_FallaDeRenderNoRevierteElLote(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")
	e.renderer.SetErr(errors.New("fuente no disponible"))

	req := transferReq("A")
	req.NotifyContactIDs = []string{"c-1"}
	res, err := e.orch.TransferOut(context.Background(), testUser, "", req)
	require.NoError(t, err)

	assert.False(t, res.DocumentReady)
	assert.True(t, res.EmailRequested)
	assert.False(t, res.EmailSent)
	assert.Len(t, res.Warnings, 2)
	assert.Contains(t, res.Warnings[0], domain.ErrRender.Error())
	assert.Equal(t, entity.StatusDeployed, e.store.Item("A").Status)

	docs := e.store.Documents()
	require.Len(t, docs, 1)
	assert.Equal(t, entity.RenderFailed, docs[0].RenderStatus)

	tasks := e.store.Tasks()
	require.Len(t, tasks, 2)
	for _, task := range tasks {
		assert.Equal(t, entity.TaskPending, task.Status)
		assert.Equal(t, 1, task.Attempts)
	}

	// El worker reintenta cuando el render vuelve a funcionar.
	e.renderer.SetErr(nil)
	for _, task := range tasks {
		require.NoError(t, e.executor.Execute(context.Background(), task.ID))
	}
	assert.Equal(t, entity.RenderReady, e.store.Documents()[0].RenderStatus)
	assert.Len(t, e.mailer.Sent(), 1)
	for _, task := range e.store.Tasks() {
		assert.Equal(t, entity.TaskDone, task.Status)
	}
}

func TestTransferOut_FallaDeCorreoSeReportaComoBandera(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A")
	e.mailer.SetErr(errors.New("smtp caído"))

	req := transferReq("A")
	req.NotifyContactIDs = []string{"c-1"}
	res, err := e.orch.TransferOut(context.Background(), testUser, "", req)
	require.NoError(t, err)

	assert.True(t, res.DocumentReady)
	assert.True(t, res.EmailRequested)
	assert.False(t, res.EmailSent)
	require.Len(t, res.Warnings, 1)
	assert.Contains(t, res.Warnings[0], domain.ErrNotification.Error())
}

// ── Idempotencia ─────────────────────────────────────────────────────────────

func TestTransferOut_RepeticionConMismaClave(t *testing.T) {
	e := newEnv(t, movement.Options{IdempotencyRequired: true})
	e.seed(entity.StatusAvailable, "A", "B")
	ctx := context.Background()

	_, err := e.orch.TransferOut(ctx, testUser, "", transferReq("A"))
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	first, err := e.orch.TransferOut(ctx, testUser, "key-1", transferReq("A", "B"))
	require.NoError(t, err)
	assert.False(t, first.Replayed)

	again, err := e.orch.TransferOut(ctx, testUser, "key-1", transferReq("A", "B"))
	require.NoError(t, err)
	assert.True(t, again.Replayed)
	assert.Equal(t, first.Reference, again.Reference)
	assert.Equal(t, first.DocumentID, again.DocumentID)
	assert.True(t, again.DocumentReady)
	assert.Len(t, e.store.Movements(), 2)
	assert.Equal(t, int64(1), e.store.Sequence(entity.DocumentTransfer))

	// La misma clave en otra operación es un conflicto.
	_, err = e.orch.Return(ctx, testUser, "key-1", dto.ReturnRequest{
		Serials: []string{"A"}, OriginSite: "PV-5", DelivererName: "Maria", TargetStatus: "AVAILABLE",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, entity.StatusDeployed, e.store.Item("A").Status)
}

func TestTransferOut_MismaClaveConOtrosSeriales(t *testing.T) {
	e := newEnv(t, movement.Options{})
	e.seed(entity.StatusAvailable, "A", "B", "C")
	ctx := context.Background()

	_, err := e.orch.TransferOut(ctx, testUser, "key-2", transferReq("A", "B"))
	require.NoError(t, err)

	// Mismo conjunto en otro orden y con otra grafía es el mismo lote.
	again, err := e.orch.TransferOut(ctx, testUser, "key-2", transferReq(" b", "a"))
	require.NoError(t, err)
	assert.True(t, again.Replayed)

	_, err = e.orch.TransferOut(ctx, testUser, "key-2", transferReq("A", "C"))
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.Equal(t, entity.StatusAvailable, e.store.Item("C").Status)
	assert.Len(t, e.store.Movements(), 2)
}
