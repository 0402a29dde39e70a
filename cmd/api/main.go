package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/bulkimport"
	"github.com/jhoicas/Trazabilidad-api/internal/application/catalog"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/inventory"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/application/trazabilidad"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/cache"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/mail"
	infrapdf "github.com/jhoicas/Trazabilidad-api/internal/infrastructure/pdf"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/postgres"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/queue"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/storage"
	httpRouter "github.com/jhoicas/Trazabilidad-api/internal/interfaces/http"
	"github.com/jhoicas/Trazabilidad-api/internal/worker"
	"github.com/jhoicas/Trazabilidad-api/pkg/config"
	"github.com/jhoicas/Trazabilidad-api/pkg/logger"
)

const swaggerFile = "./docs/swagger.json"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:   cfg.App.Env,
		Level: cfg.App.LogLevel,
		App:   cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Msg("iniciando aplicación")

	if cfg.JWT.Secret == "" {
		log.Fatal().Msg("JWT_SECRET es obligatorio")
	}

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	if cfg.DB.MigrateOnStart {
		if err := postgres.Migrate(cfg.DB.MigrationURL()); err != nil {
			log.Fatal().Err(err).Msg("migraciones")
		}
		log.Info().Msg("migraciones aplicadas")
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		log.Fatal().Err(err).Msg("conexión a PostgreSQL")
	}
	defer pool.Close()

	// ── Repositorios (fuera de transacción) ──
	txRunner := postgres.NewTxRunner(pool)
	equipmentRepo := postgres.NewEquipmentRepository(pool)
	typeRepo := postgres.NewEquipmentTypeRepository(pool)
	movementRepo := postgres.NewMovementRepository(pool)
	documentRepo := postgres.NewDocumentRepository(pool)
	auditRepo := postgres.NewAuditRepository(pool)
	followUpRepo := postgres.NewFollowUpRepository(pool)
	batchRepo := postgres.NewBatchRequestRepository(pool)
	users := cache.NewUserDirectory(postgres.NewUserRepository(pool), cfg.Cache.Size, cfg.Cache.TTL)
	contacts := cache.NewContactDirectory(postgres.NewContactRepository(pool), cfg.Cache.Size, cfg.Cache.TTL)

	// ── Colaboradores externos ──
	store, err := storage.NewFileStore(cfg.Storage.Dir, cfg.Storage.PublicBaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("almacenamiento de actas")
	}

	var mailer ports.Mailer
	if cfg.SMTP.Enabled() {
		mailer = mail.NewSMTPMailer(cfg.SMTP)
	} else {
		log.Warn().Msg("SMTP no configurado: las notificaciones por correo quedarán pendientes")
	}

	var (
		taskQueue   ports.TaskQueue
		workerQueue worker.TaskQueue
		redisQueue  *queue.RedisQueue
	)
	if cfg.Redis.URL != "" {
		rdb, err := queue.NewRedis(ctx, cfg.Redis.URL)
		if err != nil {
			log.Warn().Err(err).Msg("Redis no disponible: el worker trabajará solo con el barrido periódico")
		} else {
			defer rdb.Close()
			redisQueue = queue.NewRedisQueue(rdb)
			taskQueue = redisQueue
			workerQueue = redisQueue
		}
	}

	// ── Casos de uso ──
	auditTrail := audit.NewTrail(auditRepo)
	issuer := documents.NewIssuer(documentRepo, infrapdf.NewActaRenderer(cfg.App.Name), store, users, cfg.Batch.RenderTimeout)
	executor := followup.NewExecutor(followUpRepo, issuer, contacts, mailer, taskQueue, cfg.FollowUp.MaxAttempts)
	orchestrator := movement.NewOrchestrator(txRunner, equipmentRepo, batchRepo, issuer, executor, auditTrail, movement.Options{
		MaxItems:            cfg.Batch.MaxItems,
		IdempotencyRequired: cfg.Batch.IdempotencyRequired,
	})
	importer := bulkimport.NewProcessor(txRunner, issuer, executor, auditTrail, cfg.Import.MaxRows)
	equipmentUC := inventory.NewEquipmentUseCase(txRunner, equipmentRepo, movementRepo, auditTrail)
	typesUC := catalog.NewEquipmentTypes(typeRepo)
	trazaQuery := trazabilidad.NewQuery(movementRepo, users)

	// ── Worker de tareas posteriores ──
	followUpWorker := worker.NewFollowUpWorker(followUpRepo, executor, workerQueue, worker.Config{
		Interval:  cfg.FollowUp.Interval,
		BatchSize: cfg.FollowUp.BatchSize,
		Workers:   cfg.FollowUp.Workers,
	})
	followUpWorker.Start(ctx)

	// ── HTTP ──
	app := fiber.New(fiber.Config{
		AppName:      cfg.App.Name,
		ReadTimeout:  time.Second * 30,
		WriteTimeout: time.Second * 60,
		IdleTimeout:  time.Second * 60,
		BodyLimit:    16 * 1024 * 1024,
	})
	app.Use(recover.New())

	// Swagger UI en local: http://localhost:<port>/docs
	if _, err := os.Stat(swaggerFile); err == nil {
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: swaggerFile,
			Path:     "docs",
			Title:    "Trazabilidad de Equipos API",
		}))
	}

	if cfg.Storage.PublicBaseURL != "" {
		app.Static("/files", cfg.Storage.Dir)
	}

	checks := map[string]httpRouter.HealthCheck{
		"postgres": pool.Ping,
	}
	if redisQueue != nil {
		checks["redis"] = redisQueue.Ping
	}

	httpRouter.Router(app, httpRouter.RouterDeps{
		AppName:       cfg.App.Name,
		Orchestrator:  orchestrator,
		Importer:      importer,
		ImportMaxRows: cfg.Import.MaxRows,
		Equipment:     equipmentUC,
		Types:         typesUC,
		Issuer:        issuer,
		Trazabilidad:  trazaQuery,
		Audit:         auditTrail,
		JWTSecret:     cfg.JWT.Secret,
		Checks:        checks,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	stop()
	followUpWorker.Wait()

	log.Info().Msg("aplicación detenida")
}
