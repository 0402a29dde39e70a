package http

import (
	"strings"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/trazabilidad"
)

// QueryHandler consultas de solo lectura: actas, trazabilidad y auditoría.
type QueryHandler struct {
	issuer *documents.Issuer
	traza  *trazabilidad.Query
	audit  *audit.Trail
}

// NewQueryHandler construye el handler.
func NewQueryHandler(issuer *documents.Issuer, traza *trazabilidad.Query, audit *audit.Trail) *QueryHandler {
	return &QueryHandler{issuer: issuer, traza: traza, audit: audit}
}

// ListActas godoc
// @Summary      Historial de actas
// @Tags         actas
// @Security     Bearer
// @Produce      json
// @Param        kind     query  string  false  "TRANSFER, RETURN, REPAIR, ..., OTHER"
// @Param        from     query  string  false  "Desde (AAAA-MM-DD o RFC 3339)"
// @Param        to       query  string  false  "Hasta"
// @Param        q        query  string  false  "Texto en la referencia"
// @Param        user_id  query  string  false  "Responsable"
// @Param        limit    query  int     false  "Límite"  default(20)
// @Param        offset   query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.ActaListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/actas [get]
func (h *QueryHandler) ListActas(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.issuer.List(c.Context(), dto.ActaSearchRequest{
		Kind:        strings.ToUpper(strings.TrimSpace(c.Query("kind"))),
		From:        from,
		To:          to,
		Text:        strings.TrimSpace(c.Query("q")),
		UserID:      c.Query("user_id"),
		PageRequest: pageParams(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// ActaArtifact godoc
// @Summary      Descargar el PDF de un acta
// @Description  Si el PDF no existe (render pendiente o fallido) se genera en el momento.
// @Tags         actas
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "ID del acta"
// @Success      200
// @Failure      404  {object}  dto.ErrorResponse
// @Failure      502  {object}  dto.ErrorResponse
// @Router       /api/actas/{id}/artifact [get]
func (h *QueryHandler) ActaArtifact(c *fiber.Ctx) error {
	art, err := h.issuer.Artifact(c.Context(), c.Params("id"))
	if err != nil {
		return writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `attachment; filename="`+art.Filename+`"`)
	return c.Send(art.Data)
}

// Trazabilidad godoc
// @Summary      Historial de movimientos
// @Tags         trazabilidad
// @Security     Bearer
// @Produce      json
// @Param        kind     query  string  false  "INGRESS, TRANSFER_OUT, RETURN, ..."
// @Param        from     query  string  false  "Desde"
// @Param        to       query  string  false  "Hasta"
// @Param        q        query  string  false  "Serial, placa, sede o referencia"
// @Param        user_id  query  string  false  "Responsable"
// @Param        limit    query  int     false  "Límite"  default(20)
// @Param        offset   query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.TrazabilidadListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/trazabilidad [get]
func (h *QueryHandler) Trazabilidad(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.traza.Search(c.Context(), dto.TrazabilidadRequest{
		Kind:        strings.ToUpper(strings.TrimSpace(c.Query("kind"))),
		From:        from,
		To:          to,
		Text:        strings.TrimSpace(c.Query("q")),
		UserID:      c.Query("user_id"),
		PageRequest: pageParams(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}

// Audit godoc
// @Summary      Registro de auditoría
// @Tags         audit
// @Security     Bearer
// @Produce      json
// @Param        user_id  query  string  false  "Usuario"
// @Param        from     query  string  false  "Desde"
// @Param        to       query  string  false  "Hasta"
// @Param        q        query  string  false  "Texto en acción o detalle"
// @Param        limit    query  int     false  "Límite"  default(20)
// @Param        offset   query  int     false  "Offset"  default(0)
// @Success      200  {object}  dto.AuditListResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/audit [get]
func (h *QueryHandler) Audit(c *fiber.Ctx) error {
	from, to, err := dateRange(c)
	if err != nil {
		return writeError(c, err)
	}
	out, err := h.audit.Search(c.Context(), dto.AuditSearchRequest{
		UserID:      c.Query("user_id"),
		From:        from,
		To:          to,
		Text:        strings.TrimSpace(c.Query("q")),
		PageRequest: pageParams(c),
	})
	if err != nil {
		return writeError(c, err)
	}
	return c.JSON(out)
}
