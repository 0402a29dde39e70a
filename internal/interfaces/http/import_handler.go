package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/bulkimport"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
)

// ImportHandler cargue masivo de equipos (JSON o archivo CSV).
type ImportHandler struct {
	processor *bulkimport.Processor
	maxRows   int
}

// NewImportHandler construye el handler. maxRows corta la lectura del CSV.
func NewImportHandler(processor *bulkimport.Processor, maxRows int) *ImportHandler {
	return &ImportHandler{processor: processor, maxRows: maxRows}
}

// Stock godoc
// @Summary      Cargue masivo a bodega
// @Description  Filas válidas entran como AVAILABLE en BODEGA CENTRAL; las inválidas se reportan por fila.
// @Tags         imports
// @Security     Bearer
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      dto.ImportRequest  false  "Filas (JSON)"
// @Param        file  formData  file               false  "Archivo CSV"
// @Param        notify_contact_ids  formData  string  false  "IDs de contacto separados por coma"
// @Success      200   {object}  dto.ImportResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      413   {object}  dto.ErrorResponse
// @Router       /api/imports/stock [post]
func (h *ImportHandler) Stock(c *fiber.Ctx) error {
	return h.handle(c, bulkimport.ModeStock)
}

// Deployed godoc
// @Summary      Cargue masivo de equipos instalados
// @Description  Filas válidas entran como DEPLOYED en la sede de la fila (columna sede obligatoria).
// @Tags         imports
// @Security     Bearer
// @Accept       json,mpfd
// @Produce      json
// @Param        body  body      dto.ImportRequest  false  "Filas (JSON)"
// @Param        file  formData  file               false  "Archivo CSV"
// @Success      200   {object}  dto.ImportResult
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      413   {object}  dto.ErrorResponse
// @Router       /api/imports/deployed [post]
func (h *ImportHandler) Deployed(c *fiber.Ctx) error {
	return h.handle(c, bulkimport.ModeDeployed)
}

func (h *ImportHandler) handle(c *fiber.Ctx, mode bulkimport.Mode) error {
	userID := GetUserID(c)
	if userID == "" {
		return unauthorized(c)
	}
	var req dto.ImportRequest
	if strings.HasPrefix(c.Get(fiber.HeaderContentType), fiber.MIMEMultipartForm) {
		fh, err := c.FormFile("file")
		if err != nil {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "MISSING_FILE", Message: "campo file requerido"})
		}
		f, err := fh.Open()
		if err != nil {
			return badBody(c)
		}
		defer f.Close()
		rows, err := bulkimport.ParseCSV(f, h.maxRows)
		if err != nil {
			return writeError(c, err)
		}
		req.Rows = rows
		req.NotifyContactIDs = splitList(c.FormValue("notify_contact_ids"))
	} else if err := c.BodyParser(&req); err != nil {
		return badBody(c)
	}

	out, err := h.processor.Import(c.Context(), userID, mode, req)
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
