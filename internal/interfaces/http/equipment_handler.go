package http

import (
	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/catalog"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/inventory"
)

// EquipmentHandler consulta e ingreso unitario de equipos.
type EquipmentHandler struct {
	uc    *inventory.EquipmentUseCase
	types *catalog.EquipmentTypes
}

// NewEquipmentHandler construye el handler.
func NewEquipmentHandler(uc *inventory.EquipmentUseCase, types *catalog.EquipmentTypes) *EquipmentHandler {
	return &EquipmentHandler{uc: uc, types: types}
}

// Register godoc
// @Summary      Ingresar un equipo a bodega
// @Tags         equipment
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterIngressRequest  true  "Datos del equipo"
// @Success      201   {object}  dto.EquipmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/equipment [post]
func (h *EquipmentHandler) Register(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.RegisterIngressRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.uc.RegisterIngress(c.Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// GetBySerial godoc
// @Summary      Hoja de vida de un equipo
// @Tags         equipment
// @Security     Bearer
// @Produce      json
// @Param        serial  path  string  true  "Serial"
// @Success      200  {object}  dto.EquipmentDetailResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/equipment/{serial} [get]
func (h *EquipmentHandler) GetBySerial(c *fiber.Ctx) error {
	serial := c.Params("serial")
	if serial == "" {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_SERIAL", Message: "serial es requerido"})
	}
	out, err := h.uc.GetBySerial(c.Context(), serial)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// List godoc
// @Summary      Listar equipos por estado
// @Tags         equipment
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  true   "AVAILABLE, DEPLOYED, IN_REPAIR, WRITTEN_OFF, DISPOSED"
// @Param        limit   query  int     false  "Límite"  default(20)
// @Param        offset  query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.EquipmentListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/equipment [get]
func (h *EquipmentHandler) List(c *fiber.Ctx) error {
	out, err := h.uc.ListByStatus(c.Context(), c.Query("status"), pageParams(c))
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ListTypes godoc
// @Summary      Catálogo de tipos de equipo
// @Tags         equipment
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.EquipmentTypeResponse
// @Router       /api/equipment-types [get]
func (h *EquipmentHandler) ListTypes(c *fiber.Ctx) error {
	out, err := h.types.List(c.Context())
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// CreateType godoc
// @Summary      Agregar tipo de equipo
// @Tags         equipment
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.EquipmentTypeRequest  true  "Nombre"
// @Success      201  {object}  dto.EquipmentTypeResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/equipment-types [post]
func (h *EquipmentHandler) CreateType(c *fiber.Ctx) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var in dto.EquipmentTypeRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	out, err := h.types.Ensure(c.Context(), userID, in)
	if err != nil {
		return writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}
