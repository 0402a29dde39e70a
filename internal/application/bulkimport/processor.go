// Package bulkimport carga equipos nuevos desde un archivo. Cada fila se acepta o se rechaza
// por separado: una fila mala nunca impide insertar las demás.
package bulkimport

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/documents"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/followup"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/metrics"
)

// Mode destino de los equipos cargados.
type Mode string

const (
	ModeStock    Mode = "STOCK"    // a bodega central como AVAILABLE
	ModeDeployed Mode = "DEPLOYED" // ya instalados en una sede (columna sede obligatoria)
)

// Motivos de rechazo.
const (
	reasonMissingSerial = "serial vacío"
	reasonMissingField  = "faltan campos obligatorios: %s"
	reasonDuplicateFile = "serial repetido en el archivo (fila %d)"
	reasonExists        = "el serial ya existe en el inventario"
	reasonNegative      = "valor negativo"
)

const ingressOrigin = "CARGUE MASIVO"

// Processor procesa cargues masivos.
type Processor struct {
	txRunner  ports.TxRunner
	issuer    *documents.Issuer
	followups *followup.Executor
	audit     *audit.Trail
	maxRows   int
	now       func() time.Time
}

// NewProcessor construye el procesador. maxRows es el tope de filas por archivo.
func NewProcessor(
	txRunner ports.TxRunner,
	issuer *documents.Issuer,
	followups *followup.Executor,
	auditTrail *audit.Trail,
	maxRows int,
) *Processor {
	if maxRows <= 0 {
		maxRows = 500
	}
	return &Processor{
		txRunner:  txRunner,
		issuer:    issuer,
		followups: followups,
		audit:     auditTrail,
		maxRows:   maxRows,
		now:       time.Now,
	}
}

type candidate struct {
	row  int
	data dto.ImportRow
}

// Import valida las filas, inserta las aceptadas con su movimiento de ingreso y,
// si se insertó al menos una, emite el acta del cargue. Filas rechazadas se informan
// con su número (1-based, sin contar encabezado), serial y motivo.
func (p *Processor) Import(ctx context.Context, userID string, mode Mode, req dto.ImportRequest) (*dto.ImportResult, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, fmt.Errorf("%w: usuario responsable requerido", domain.ErrUnauthorized)
	}
	if mode != ModeStock && mode != ModeDeployed {
		return nil, fmt.Errorf("%w: modo de cargue %q", domain.ErrInvalidInput, mode)
	}
	if len(req.Rows) == 0 {
		return nil, fmt.Errorf("%w: el archivo no tiene filas", domain.ErrInvalidInput)
	}
	if len(req.Rows) > p.maxRows {
		return nil, fmt.Errorf("%w: %d filas, máximo %d", domain.ErrFileTooLarge, len(req.Rows), p.maxRows)
	}

	result := &dto.ImportResult{
		Mode:       string(mode),
		TotalRows:  len(req.Rows),
		Rejections: []dto.RowRejection{},
	}

	// ── 1. Validación por fila y duplicados dentro del archivo ────────────────
	firstSeen := make(map[string]int, len(req.Rows))
	candidates := make([]candidate, 0, len(req.Rows))
	for i, raw := range req.Rows {
		rowNum := i + 1
		row := normalizeRow(raw)
		if reason := validateRow(row, mode); reason != "" {
			result.Rejections = append(result.Rejections, dto.RowRejection{Row: rowNum, Serial: row.Serial, Reason: reason})
			continue
		}
		if prev, ok := firstSeen[row.Serial]; ok {
			result.Rejections = append(result.Rejections, dto.RowRejection{
				Row: rowNum, Serial: row.Serial, Reason: fmt.Sprintf(reasonDuplicateFile, prev),
			})
			continue
		}
		firstSeen[row.Serial] = rowNum
		candidates = append(candidates, candidate{row: rowNum, data: row})
	}

	// ── 2. Transacción: inserción, ingreso y acta ─────────────────────────────
	var (
		doc       *entity.Document
		tasks     []*entity.FollowUpTask
		inserted  []string
		dbRejects []dto.RowRejection
	)
	if len(candidates) > 0 {
		err := p.txRunner.Run(ctx, func(r repository.TxRepos) error {
			now := p.now().UTC()
			inserted = inserted[:0]
			dbRejects = dbRejects[:0]

			serials := make([]string, 0, len(candidates))
			for _, c := range candidates {
				serials = append(serials, c.data.Serial)
			}
			existing, err := r.Equipment.ExistingSerials(ctx, serials)
			if err != nil {
				return err
			}

			var created []*entity.EquipmentItem
			rows := make(map[string]int, len(candidates))
			for _, c := range candidates {
				if existing[c.data.Serial] {
					dbRejects = append(dbRejects, dto.RowRejection{Row: c.row, Serial: c.data.Serial, Reason: reasonExists})
					continue
				}
				typ, err := r.EquipmentTypes.Ensure(ctx, c.data.Type, userID)
				if err != nil {
					return err
				}
				item := newItem(c.data, typ.Name, mode, now)
				ok, err := r.Equipment.CreateIfAbsent(ctx, item)
				if err != nil {
					return err
				}
				if !ok {
					dbRejects = append(dbRejects, dto.RowRejection{Row: c.row, Serial: c.data.Serial, Reason: reasonExists})
					continue
				}
				created = append(created, item)
				rows[item.Serial] = c.row
			}
			if len(created) == 0 {
				return nil
			}

			items := make([]entity.ActaItem, 0, len(created))
			for _, item := range created {
				items = append(items, entity.ActaItem{
					Serial:      item.Serial,
					AssetTag:    item.DisplayTag(),
					Type:        item.Type,
					Brand:       item.Brand,
					Model:       item.Model,
					Origin:      ingressOrigin,
					Destination: item.Location,
					Value:       item.Value,
				})
			}
			issued, err := p.issuer.Issue(ctx, r.Documents, documents.IssueInput{
				Kind:              documentKind(mode),
				ResponsibleUserID: userID,
				Fields: []entity.ActaField{
					{Label: "Modo", Value: string(mode)},
					{Label: "Filas del archivo", Value: fmt.Sprint(len(req.Rows))},
					{Label: "Equipos ingresados", Value: fmt.Sprint(len(items))},
				},
				Items:       items,
				Signatories: []entity.Signatory{{Role: "Elabora", Name: ""}, {Role: "Revisa", Name: ""}},
			})
			if err != nil {
				return err
			}
			doc = issued

			batchID := uuid.New().String()
			for _, item := range created {
				if err := r.Movements.Create(ctx, &entity.Movement{
					ID:                uuid.New().String(),
					BatchID:           batchID,
					DocumentID:        doc.ID,
					EquipmentSerial:   item.Serial,
					Kind:              entity.MovementIngress,
					Origin:            ingressOrigin,
					Destination:       item.Location,
					ToStatus:          item.Status,
					Detail:            fmt.Sprintf("Cargue %s, fila %d", mode, rows[item.Serial]),
					ResponsibleUserID: userID,
					OccurredAt:        now,
				}); err != nil {
					return err
				}
				inserted = append(inserted, item.Serial)
			}

			tasks, err = followup.NewTasks(doc, req.NotifyContactIDs, now)
			if err != nil {
				return err
			}
			for _, t := range tasks {
				if err := r.FollowUps.Create(ctx, t); err != nil {
					return err
				}
			}
			return nil
		})
		if err != nil {
			if errors.Is(err, domain.ErrInvalidInput) {
				return nil, err
			}
			return nil, fmt.Errorf("%w: cargue masivo: %v", domain.ErrPersistence, err)
		}
	}

	result.Rejections = append(result.Rejections, dbRejects...)
	sortRejections(result.Rejections)
	result.InsertedCount = len(inserted)
	result.RejectedCount = len(result.Rejections)

	metrics.ImportRows.WithLabelValues(string(mode), "inserted").Add(float64(result.InsertedCount))
	metrics.ImportRows.WithLabelValues(string(mode), "rejected").Add(float64(result.RejectedCount))
	log.Info().
		Str("mode", string(mode)).
		Str("user_id", userID).
		Int("rows", result.TotalRows).
		Int("inserted", result.InsertedCount).
		Int("rejected", result.RejectedCount).
		Msg("bulkimport: cargue procesado")

	if doc == nil {
		p.audit.Record(ctx, userID, "IMPORT_"+string(mode),
			fmt.Sprintf("%d filas, ninguna insertada, %d rechazadas", result.TotalRows, result.RejectedCount))
		return result, nil
	}

	metrics.DocumentsIssued.WithLabelValues(string(doc.Kind)).Inc()
	p.audit.Record(ctx, userID, "IMPORT_"+string(mode),
		fmt.Sprintf("%d filas, %d insertadas, %d rechazadas, acta %s",
			result.TotalRows, result.InsertedCount, result.RejectedCount, doc.Reference))

	out := p.followups.RunInline(ctx, doc, tasks)
	result.Document = &dto.BatchResult{
		DocumentID:     doc.ID,
		Reference:      doc.Reference,
		Kind:           string(doc.Kind),
		MovedCount:     len(inserted),
		Serials:        inserted,
		DocumentReady:  out.DocumentReady,
		EmailRequested: out.EmailRequested,
		EmailSent:      out.EmailSent,
		Warnings:       out.Warnings,
	}
	if out.Artifact != nil {
		result.Document.ArtifactBase64 = base64.StdEncoding.EncodeToString(out.Artifact.Data)
		result.Document.ArtifactURL = out.Artifact.URL
	}
	return result, nil
}

func normalizeRow(r dto.ImportRow) dto.ImportRow {
	r.Serial = entity.NormalizeSerial(r.Serial)
	dto.Trim(&r.AssetTag, &r.Type, &r.Brand, &r.Model, &r.Site, &r.Notes)
	r.Type = strings.ToUpper(r.Type)
	return r
}

// validateRow devuelve el motivo de rechazo o "" si la fila es válida.
func validateRow(r dto.ImportRow, mode Mode) string {
	if r.ParseError != "" {
		return r.ParseError
	}
	if r.Serial == "" {
		return reasonMissingSerial
	}
	var missing []string
	if r.Type == "" {
		missing = append(missing, "tipo")
	}
	if r.Brand == "" {
		missing = append(missing, "marca")
	}
	if r.Model == "" {
		missing = append(missing, "modelo")
	}
	if mode == ModeDeployed && r.Site == "" {
		missing = append(missing, "sede")
	}
	if len(missing) > 0 {
		return fmt.Sprintf(reasonMissingField, strings.Join(missing, ", "))
	}
	if r.Value != nil && r.Value.IsNegative() {
		return reasonNegative
	}
	return ""
}

func newItem(r dto.ImportRow, typeName string, mode Mode, now time.Time) *entity.EquipmentItem {
	item := &entity.EquipmentItem{
		ID:        uuid.New().String(),
		Serial:    r.Serial,
		AssetTag:  r.AssetTag,
		Type:      typeName,
		Brand:     r.Brand,
		Model:     r.Model,
		Status:    entity.StatusAvailable,
		Location:  entity.LocationCentralStock,
		Notes:     r.Notes,
		EnteredAt: now,
		UpdatedAt: now,
	}
	if mode == ModeDeployed {
		item.Status = entity.StatusDeployed
		item.Location = r.Site
	}
	if r.Value != nil {
		item.Value = decimal.NullDecimal{Decimal: *r.Value, Valid: true}
	}
	return item
}

func documentKind(mode Mode) entity.DocumentKind {
	if mode == ModeDeployed {
		return entity.DocumentBulkDeployed
	}
	return entity.DocumentBulkIngress
}

func sortRejections(list []dto.RowRejection) {
	sort.SliceStable(list, func(i, j int) bool { return list[i].Row < list[j].Row })
}
