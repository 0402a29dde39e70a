package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/audit"
	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// EquipmentUseCase ingreso unitario de equipos y consultas del inventario.
type EquipmentUseCase struct {
	txRunner  ports.TxRunner
	equipment repository.EquipmentRepository
	movements repository.MovementRepository
	audit     *audit.Trail
	now       func() time.Time
}

// NewEquipmentUseCase construye el caso de uso.
func NewEquipmentUseCase(
	txRunner ports.TxRunner,
	equipment repository.EquipmentRepository,
	movements repository.MovementRepository,
	auditTrail *audit.Trail,
) *EquipmentUseCase {
	return &EquipmentUseCase{
		txRunner:  txRunner,
		equipment: equipment,
		movements: movements,
		audit:     auditTrail,
		now:       time.Now,
	}
}

// RegisterIngress registra un equipo nuevo en bodega central (AVAILABLE) con su movimiento de ingreso.
// Devuelve domain.ErrDuplicate si el serial ya existe.
func (uc *EquipmentUseCase) RegisterIngress(ctx context.Context, userID string, req dto.RegisterIngressRequest) (*dto.EquipmentResponse, error) {
	req.Serial = entity.NormalizeSerial(req.Serial)
	dto.Trim(&req.AssetTag, &req.Type, &req.Brand, &req.Model, &req.Notes)
	req.Type = strings.ToUpper(req.Type)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if req.Value != nil && req.Value.IsNegative() {
		return nil, fmt.Errorf("%w: el valor no puede ser negativo", domain.ErrInvalidInput)
	}

	now := uc.now().UTC()
	item := &entity.EquipmentItem{
		ID:        uuid.New().String(),
		Serial:    req.Serial,
		AssetTag:  req.AssetTag,
		Brand:     req.Brand,
		Model:     req.Model,
		Status:    entity.StatusAvailable,
		Location:  entity.LocationCentralStock,
		Notes:     req.Notes,
		EnteredAt: now,
		UpdatedAt: now,
	}
	if req.Value != nil {
		item.Value = decimal.NullDecimal{Decimal: *req.Value, Valid: true}
	}

	err := uc.txRunner.Run(ctx, func(r repository.TxRepos) error {
		typ, err := r.EquipmentTypes.Ensure(ctx, req.Type, userID)
		if err != nil {
			return err
		}
		item.Type = typ.Name
		ok, err := r.Equipment.CreateIfAbsent(ctx, item)
		if err != nil {
			return err
		}
		if !ok {
			return fmt.Errorf("%w: el serial %s ya existe", domain.ErrDuplicate, item.Serial)
		}
		return r.Movements.Create(ctx, &entity.Movement{
			ID:                uuid.New().String(),
			BatchID:           uuid.New().String(),
			EquipmentSerial:   item.Serial,
			Kind:              entity.MovementIngress,
			Origin:            "INGRESO UNITARIO",
			Destination:       item.Location,
			ToStatus:          item.Status,
			Detail:            req.Notes,
			ResponsibleUserID: userID,
			OccurredAt:        now,
		})
	})
	if err != nil {
		return nil, err
	}

	uc.audit.Record(ctx, userID, "INGRESS", fmt.Sprintf("serial %s (%s %s %s) a %s",
		item.Serial, item.Type, item.Brand, item.Model, item.Location))
	resp := toEquipmentResponse(item)
	return &resp, nil
}

// GetBySerial devuelve la hoja de vida del equipo: datos y movimientos.
func (uc *EquipmentUseCase) GetBySerial(ctx context.Context, serial string) (*dto.EquipmentDetailResponse, error) {
	serial = entity.NormalizeSerial(serial)
	if serial == "" {
		return nil, fmt.Errorf("%w: serial requerido", domain.ErrInvalidInput)
	}
	item, err := uc.equipment.GetBySerial(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("inventory: obtener equipo: %w", err)
	}
	if item == nil {
		return nil, domain.ErrNotFound
	}
	movs, err := uc.movements.ListBySerial(ctx, serial)
	if err != nil {
		return nil, fmt.Errorf("inventory: movimientos del equipo: %w", err)
	}
	out := &dto.EquipmentDetailResponse{
		EquipmentResponse: toEquipmentResponse(item),
		Movements:         make([]dto.MovementResponse, 0, len(movs)),
	}
	for _, m := range movs {
		out.Movements = append(out.Movements, dto.MovementResponse{
			ID:          m.ID,
			Kind:        string(m.Kind),
			Origin:      m.Origin,
			Destination: m.Destination,
			FromStatus:  string(m.FromStatus),
			ToStatus:    string(m.ToStatus),
			Detail:      m.Detail,
			DocumentID:  m.DocumentID,
			UserID:      m.ResponsibleUserID,
			OccurredAt:  m.OccurredAt,
		})
	}
	return out, nil
}

// ListByStatus lista equipos en un estado (vacío: todos), paginado.
func (uc *EquipmentUseCase) ListByStatus(ctx context.Context, status string, page dto.PageRequest) (*dto.EquipmentListResponse, error) {
	page.DefaultPage()
	st := entity.EquipmentStatus(strings.ToUpper(strings.TrimSpace(status)))
	if st != "" && !st.Valid() {
		return nil, fmt.Errorf("%w: estado %q", domain.ErrInvalidInput, status)
	}
	list, total, err := uc.equipment.ListByStatus(ctx, st, page.Limit, page.Offset)
	if err != nil {
		return nil, fmt.Errorf("inventory: listar equipos: %w", err)
	}
	items := make([]dto.EquipmentResponse, 0, len(list))
	for _, it := range list {
		items = append(items, toEquipmentResponse(it))
	}
	return &dto.EquipmentListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

func toEquipmentResponse(e *entity.EquipmentItem) dto.EquipmentResponse {
	r := dto.EquipmentResponse{
		ID:        e.ID,
		Serial:    e.Serial,
		AssetTag:  e.AssetTag,
		Type:      e.Type,
		Brand:     e.Brand,
		Model:     e.Model,
		Status:    string(e.Status),
		Location:  e.Location,
		Notes:     e.Notes,
		EnteredAt: e.EnteredAt,
		UpdatedAt: e.UpdatedAt,
	}
	if e.Value.Valid {
		v := e.Value.Decimal
		r.Value = &v
	}
	return r
}
