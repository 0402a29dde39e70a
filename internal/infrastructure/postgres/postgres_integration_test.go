package postgres_test

import (
	"context"
	"errors"
	"os"
	"sort"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/cache"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Trazabilidad-api/internal/testutil/memstore"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
)

// setupDB levanta PostgreSQL en un contenedor, aplica las migraciones y devuelve el pool.
func setupDB(t *testing.T) *pgxpool.Pool {
	t.Helper()
	if os.Getenv("TEST_INTEGRATION") == "" {
		t.Skip("TEST_INTEGRATION no definido")
	}
	ctx := context.Background()

	container, err := tcpostgres.Run(ctx,
		"docker.io/postgres:17-alpine",
		tcpostgres.WithDatabase("trazabilidad_test"),
		tcpostgres.WithUsername("trz"),
		tcpostgres.WithPassword("test-password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	require.NoError(t, err)
	t.Cleanup(func() {
		if err := container.Terminate(context.Background()); err != nil {
			t.Logf("no se pudo detener el contenedor: %v", err)
		}
	})

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err)
	cfg := config.DBConfig{DatabaseURL: dsn, MaxConns: 10}

	require.NoError(t, postgres.Migrate(cfg.MigrationURL()))
	pool, err := postgres.NewPool(ctx, cfg)
	require.NoError(t, err)
	t.Cleanup(pool.Close)
	return pool
}

func newItem(serial string, status entity.EquipmentStatus) *entity.EquipmentItem {
	now := time.Now().UTC().Truncate(time.Microsecond)
	return &entity.EquipmentItem{
		ID: uuid.New().String(), Serial: serial, Type: "MONITOR", Brand: "Dell", Model: "P24",
		Status: status, Location: entity.LocationCentralStock, EnteredAt: now, UpdatedAt: now,
		Value: decimal.NullDecimal{Decimal: decimal.RequireFromString("450000.50"), Valid: true},
	}
}

func TestPostgres_Repositorios(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	equipment := postgres.NewEquipmentRepository(pool)
	runner := postgres.NewTxRunner(pool)

	t.Run("CreateIfAbsent y lectura", func(t *testing.T) {
		ok, err := equipment.CreateIfAbsent(ctx, newItem("PG-1", entity.StatusAvailable))
		require.NoError(t, err)
		assert.True(t, ok)
		ok, err = equipment.CreateIfAbsent(ctx, newItem("PG-1", entity.StatusAvailable))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := equipment.GetBySerial(ctx, "PG-1")
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, got.Value.Valid)
		assert.Equal(t, "450000.5", got.Value.Decimal.String())

		missing, err := equipment.GetBySerial(ctx, "NO-EXISTE")
		require.NoError(t, err)
		assert.Nil(t, missing)
	})

	t.Run("Transition con estado esperado", func(t *testing.T) {
		_, err := equipment.CreateIfAbsent(ctx, newItem("PG-2", entity.StatusAvailable))
		require.NoError(t, err)

		err = equipment.Transition(ctx, "PG-2", entity.StatusInRepair, entity.StatusAvailable, "X", time.Now())
		assert.ErrorIs(t, err, domain.ErrConflict)
		err = equipment.Transition(ctx, "NO-EXISTE", entity.StatusAvailable, entity.StatusDeployed, "X", time.Now())
		assert.ErrorIs(t, err, domain.ErrNotFound)
		require.NoError(t, equipment.Transition(ctx, "PG-2", entity.StatusAvailable, entity.StatusDeployed, "PV-1", time.Now()))
	})

	t.Run("Rollback deja todo como estaba", func(t *testing.T) {
		_, err := equipment.CreateIfAbsent(ctx, newItem("PG-3", entity.StatusAvailable))
		require.NoError(t, err)

		boom := errors.New("falla a mitad de lote")
		err = runner.Run(ctx, func(r repository.TxRepos) error {
			if err := r.Equipment.Transition(ctx, "PG-3", entity.StatusAvailable, entity.StatusDeployed, "PV-2", time.Now()); err != nil {
				return err
			}
			if _, err := r.Documents.NextSequence(ctx, entity.DocumentTransfer); err != nil {
				return err
			}
			return boom
		})
		assert.ErrorIs(t, err, boom)

		got, err := equipment.GetBySerial(ctx, "PG-3")
		require.NoError(t, err)
		assert.Equal(t, entity.StatusAvailable, got.Status)

		var last int64
		require.NoError(t, pool.QueryRow(ctx, `SELECT last_value FROM document_sequences WHERE kind = 'TRANSFER'`).Scan(&last))
		assert.Zero(t, last)
	})

	t.Run("Consecutivos únicos en paralelo", func(t *testing.T) {
		const n = 12
		seqs := make([]int64, n)
		var wg sync.WaitGroup
		for i := 0; i < n; i++ {
			wg.Add(1)
			go func(i int) {
				defer wg.Done()
				_ = runner.Run(ctx, func(r repository.TxRepos) error {
					seq, err := r.Documents.NextSequence(ctx, entity.DocumentReturn)
					seqs[i] = seq
					return err
				})
			}(i)
		}
		wg.Wait()
		sort.Slice(seqs, func(i, j int) bool { return seqs[i] < seqs[j] })
		for i, s := range seqs {
			assert.Equal(t, int64(i+1), s)
		}
	})

	t.Run("Movimientos son de solo inserción", func(t *testing.T) {
		movements := postgres.NewMovementRepository(pool)
		require.NoError(t, movements.Create(ctx, &entity.Movement{
			ID: uuid.New().String(), BatchID: uuid.New().String(), EquipmentSerial: "PG-1",
			Kind: entity.MovementIngress, ToStatus: entity.StatusAvailable, ResponsibleUserID: "u-1", OccurredAt: time.Now(),
		}))
		_, err := pool.Exec(ctx, `DELETE FROM movements WHERE equipment_serial = 'PG-1'`)
		assert.Error(t, err)
	})

	t.Run("Idempotencia Claim", func(t *testing.T) {
		batches := postgres.NewBatchRequestRepository(pool)
		req := &entity.BatchRequest{IdempotencyKey: "k-pg", Operation: "WRITE_OFF", UserID: "u-1", CreatedAt: time.Now()}
		prev, err := batches.Claim(ctx, req)
		require.NoError(t, err)
		assert.Nil(t, prev)
		prev, err = batches.Claim(ctx, req)
		require.NoError(t, err)
		require.NotNil(t, prev)
		assert.Equal(t, "WRITE_OFF", prev.Operation)
	})
}

func TestPostgres_FiltroPorTipoCoincideConClassify(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()
	docs := postgres.NewDocumentRepository(pool)
	base := time.Date(2019, 5, 1, 9, 0, 0, 0, time.UTC)

	require.NoError(t, docs.Create(ctx, &entity.Document{
		ID: uuid.New().String(), Kind: entity.DocumentTransfer, Reference: "ENT-2026-000001",
		IssuedAt: base, ResponsibleUserID: "u-1", RenderStatus: entity.RenderPending,
	}))
	// Actas históricas cargadas por fuera de la API, sin class.
	legacy := []struct{ kind, reference string }{
		{"transfer", "LEGACY-1"},
		{"", " ent-2020-1"},
		{"LEGACY", "ACTA 17 BODEGA"},
		{"", "dev-2018-000003"},
		{" baja ", "X-9"},
		{"WRITE_OFF ", "OTRA-2"},
	}
	for i, l := range legacy {
		_, err := pool.Exec(ctx, `INSERT INTO documents (id, kind, reference, issued_at, responsible_user_id)
			VALUES ($1, $2, $3, $4, 'u-viejo')`, uuid.New().String(), l.kind, l.reference, base.Add(time.Duration(i+1)*time.Hour))
		require.NoError(t, err)
	}

	kinds := append(acta.IssuableKinds(), entity.DocumentOther)
	seen := map[string]int{}
	for _, k := range kinds {
		list, total, err := docs.List(ctx, repository.DocumentFilter{Kind: k, Limit: 100})
		require.NoError(t, err)
		assert.Equal(t, len(list), total)
		for _, d := range list {
			assert.Equal(t, k, acta.Classify(string(d.Kind), d.Reference), d.Reference)
			seen[d.Reference]++
		}
	}
	// Cada acta aparece bajo exactamente un tipo.
	assert.Len(t, seen, len(legacy)+1)
	for ref, n := range seen {
		assert.Equal(t, 1, n, ref)
	}

	var pending int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM documents WHERE class IS NULL`).Scan(&pending))
	assert.Zero(t, pending)
}

func TestPostgres_WriteOffConcurrente(t *testing.T) {
	pool := setupDB(t)
	ctx := context.Background()

	equipment := postgres.NewEquipmentRepository(pool)
	_, err := equipment.CreateIfAbsent(ctx, newItem("RACE-1", entity.StatusAvailable))
	require.NoError(t, err)

	docs := postgres.NewDocumentRepository(pool)
	users := cache.NewUserDirectory(postgres.NewUserRepository(pool), 16, time.Minute)
	contacts := cache.NewContactDirectory(postgres.NewContactRepository(pool), 16, time.Minute)
	issuer := documents.NewIssuer(docs, &memstore.Renderer{}, memstore.NewArtifacts(), users, time.Second)
	executor := followup.NewExecutor(postgres.NewFollowUpRepository(pool), issuer, contacts, nil, nil, 3)
	orch := movement.NewOrchestrator(
		postgres.NewTxRunner(pool), equipment, postgres.NewBatchRequestRepository(pool),
		issuer, executor, audit.NewTrail(postgres.NewAuditRepository(pool)), movement.Options{},
	)

	const n = 4
	errs := make([]error, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = orch.WriteOff(ctx, "u-1", "", dto.WriteOffRequest{Serials: []string{"RACE-1"}, AuthorizerName: "Jefe de TI"})
		}(i)
	}
	wg.Wait()

	ok := 0
	for _, err := range errs {
		if err == nil {
			ok++
			continue
		}
		assert.True(t, errors.Is(err, domain.ErrConflict) || errors.Is(err, domain.ErrInvalidTransition), err)
	}
	assert.Equal(t, 1, ok)

	var count int
	require.NoError(t, pool.QueryRow(ctx, `SELECT COUNT(*) FROM movements WHERE equipment_serial = 'RACE-1'`).Scan(&count))
	assert.Equal(t, 1, count)

	got, err := equipment.GetBySerial(ctx, "RACE-1")
	require.NoError(t, err)
	assert.Equal(t, entity.StatusWrittenOff, got.Status)
}
