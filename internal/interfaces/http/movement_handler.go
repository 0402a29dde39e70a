package http

import (
	"context"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/movement"
)

// HeaderIdempotencyKey clave opcional para reintentar un lote sin duplicarlo.
const HeaderIdempotencyKey = "Idempotency-Key"

// MovementHandler operaciones por lote sobre equipos (protegido).
type MovementHandler struct {
	orchestrator *movement.Orchestrator
}

// NewMovementHandler construye el handler.
func NewMovementHandler(orchestrator *movement.Orchestrator) *MovementHandler {
	return &MovementHandler{orchestrator: orchestrator}
}

// batch parsea el body en req y ejecuta op con el usuario y la clave de idempotencia.
func batch[T any](c *fiber.Ctx, op func(ctx context.Context, userID, key string, req T) (*dto.BatchResult, error)) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var req T
	if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}
	out, err := op(c.Context(), userID, c.Get(HeaderIdempotencyKey), req)
	if err != nil {
		return writeError(c, err)
	}
	status := fiber.StatusCreated
	if out.Replayed {
		status = fiber.StatusOK
	}
	return c.Status(status).JSON(out)
}

// TransferOut godoc
// @Summary      Entregar equipos a una sede
// @Description  AVAILABLE → DEPLOYED. Emite acta de entrega (ENT).
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.TransferOutRequest  true  "Seriales, sede destino y quien recibe"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/transfer-out [post]
func (h *MovementHandler) TransferOut(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.TransferOut)
}

// Return godoc
// @Summary      Devolver equipos desde una sede
// @Description  DEPLOYED → AVAILABLE, IN_REPAIR o WRITTEN_OFF. Emite acta de devolución (DEV).
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.ReturnRequest  true  "Seriales, sede de origen, quien entrega y estado destino"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/return [post]
func (h *MovementHandler) Return(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.Return)
}

// SendToRepair godoc
// @Summary      Enviar equipos a servicio técnico
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.SendToRepairRequest  true  "Seriales, proveedor y falla"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/send-to-repair [post]
func (h *MovementHandler) SendToRepair(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.SendToRepair)
}

// FinalizeRepair godoc
// @Summary      Cerrar reparación
// @Description  IN_REPAIR → AVAILABLE. La nota de resolución es obligatoria.
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.FinalizeRepairRequest  true  "Seriales y nota de resolución"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/finalize-repair [post]
func (h *MovementHandler) FinalizeRepair(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.FinalizeRepair)
}

// WriteOff godoc
// @Summary      Dar de baja equipos
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.WriteOffRequest  true  "Seriales y quien autoriza"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/write-off [post]
func (h *MovementHandler) WriteOff(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.WriteOff)
}

// Dispose godoc
// @Summary      Entregar equipos dados de baja a gestor RAEE
// @Tags         movements
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        Idempotency-Key  header  string  false  "Clave de idempotencia"
// @Param        body  body  dto.DisposeRequest  true  "Seriales, gestor y vehículo"
// @Success      201   {object}  dto.BatchResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/movements/dispose [post]
func (h *MovementHandler) Dispose(c *fiber.Ctx) error {
	return batch(c, h.orchestrator.Dispose)
}
