package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/bulkimport"
	"github.com/jhoicas/Trazabilidad-api/internal/application/catalog"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/inventory"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
	"github.com/jhoicas/Trazabilidad-api/internal/application/trazabilidad"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// HealthCheck verifica una dependencia (PostgreSQL, Redis).
type HealthCheck func(ctx context.Context) error

// RouterDeps dependencias para el router.
type RouterDeps struct {
	AppName       string
	Orchestrator  *movement.Orchestrator
	Importer      *bulkimport.Processor
	ImportMaxRows int
	Equipment     *inventory.EquipmentUseCase
	Types         *catalog.EquipmentTypes
	Issuer        *documents.Issuer
	Trazabilidad  *trazabilidad.Query
	Audit         *audit.Trail
	JWTSecret     string
	Checks        map[string]HealthCheck
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(MetricsMiddleware())

	app.Get("/health", healthHandler(deps.AppName, deps.Checks))
	app.Get("/metrics", adaptor.HTTPHandler(promhttp.Handler()))

	// Todo /api requiere Bearer Token
	api := app.Group("/api", AuthMiddleware(deps.JWTSecret))

	writers := RequireRole(entity.RoleAdmin, entity.RoleTecnico)
	adminOnly := RequireRole(entity.RoleAdmin)
	anyRole := RequireRole(entity.RoleAdmin, entity.RoleTecnico, entity.RoleConsulta)

	// Movimientos por lote
	mv := NewMovementHandler(deps.Orchestrator)
	movements := api.Group("/movements")
	movements.Post("/transfer-out", writers, mv.TransferOut)
	movements.Post("/return", writers, mv.Return)
	movements.Post("/send-to-repair", writers, mv.SendToRepair)
	movements.Post("/finalize-repair", writers, mv.FinalizeRepair)
	movements.Post("/write-off", adminOnly, mv.WriteOff)
	movements.Post("/dispose", adminOnly, mv.Dispose)

	// Cargue masivo
	imp := NewImportHandler(deps.Importer, deps.ImportMaxRows)
	imports := api.Group("/imports", writers)
	imports.Post("/stock", imp.Stock)
	imports.Post("/deployed", imp.Deployed)

	// Equipos y catálogo
	eq := NewEquipmentHandler(deps.Equipment, deps.Types)
	api.Post("/equipment", writers, eq.Register)
	api.Get("/equipment", anyRole, eq.List)
	api.Get("/equipment/:serial", anyRole, eq.GetBySerial)
	api.Get("/equipment-types", anyRole, eq.ListTypes)
	api.Post("/equipment-types", writers, eq.CreateType)

	// Consultas
	q := NewQueryHandler(deps.Issuer, deps.Trazabilidad, deps.Audit)
	api.Get("/actas", anyRole, q.ListActas)
	api.Get("/actas/:id/artifact", anyRole, q.ActaArtifact)
	api.Get("/trazabilidad", anyRole, q.Trazabilidad)
	api.Get("/audit", adminOnly, q.Audit)
}

// healthHandler responde 200 si todas las dependencias responden, 503 si alguna falla.
func healthHandler(service string, checks map[string]HealthCheck) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.Context(), 2*time.Second)
		defer cancel()
		status := "ok"
		deps := make(fiber.Map, len(checks))
		for name, check := range checks {
			if err := check(ctx); err != nil {
				status = "degraded"
				deps[name] = err.Error()
				continue
			}
			deps[name] = "ok"
		}
		code := fiber.StatusOK
		if status != "ok" {
			code = fiber.StatusServiceUnavailable
		}
		return c.Status(code).JSON(fiber.Map{"status": status, "service": service, "dependencies": deps})
	}
}
