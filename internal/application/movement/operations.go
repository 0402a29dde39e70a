package movement

import (
	"context"
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/lifecycle"
)

// TransferOut entrega equipos disponibles a una sede (AVAILABLE → DEPLOYED). Emite acta de entrega.
func (o *Orchestrator) TransferOut(ctx context.Context, userID, idempotencyKey string, req dto.TransferOutRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.DestinationSite, &req.RecipientName, &req.Observations)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpTransferOut,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		destination:    fixed(req.DestinationSite),
		detail:         "Entrega a " + req.RecipientName,
		fields: []entity.ActaField{
			{Label: "Sede destino", Value: req.DestinationSite},
			{Label: "Recibe", Value: req.RecipientName},
		},
		signatories: []entity.Signatory{
			{Role: "Entrega", Name: ""},
			{Role: "Recibe", Name: req.RecipientName},
		},
		observations: req.Observations,
		notify:       req.NotifyContactIDs,
	})
}

// Return recibe equipos instalados de vuelta. El destino lo elige el llamador:
// AVAILABLE (bodega), IN_REPAIR (servicio técnico) o WRITTEN_OFF (baja). Emite acta de devolución.
func (o *Orchestrator) Return(ctx context.Context, userID, idempotencyKey string, req dto.ReturnRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.OriginSite, &req.DelivererName, &req.TargetStatus, &req.Observations)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpReturn,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		requested:      entity.EquipmentStatus(req.TargetStatus),
		origin:         req.OriginSite,
		destination:    locationFor,
		detail:         "Devuelto por " + req.DelivererName,
		fields: []entity.ActaField{
			{Label: "Sede origen", Value: req.OriginSite},
			{Label: "Entrega", Value: req.DelivererName},
			{Label: "Estado de ingreso", Value: req.TargetStatus},
		},
		signatories: []entity.Signatory{
			{Role: "Entrega", Name: req.DelivererName},
			{Role: "Recibe", Name: ""},
		},
		observations: req.Observations,
		notify:       req.NotifyContactIDs,
	})
}

// SendToRepair remite equipos disponibles a un proveedor de servicio técnico (AVAILABLE → IN_REPAIR).
func (o *Orchestrator) SendToRepair(ctx context.Context, userID, idempotencyKey string, req dto.SendToRepairRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.RepairProvider, &req.FaultDescription, &req.Observations)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpSendToRepair,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		destination:    fixed(entity.LocationRepair + " - " + req.RepairProvider),
		detail:         "Falla reportada: " + req.FaultDescription,
		fields: []entity.ActaField{
			{Label: "Proveedor", Value: req.RepairProvider},
			{Label: "Falla reportada", Value: req.FaultDescription},
		},
		signatories: []entity.Signatory{
			{Role: "Entrega", Name: ""},
			{Role: "Recibe (proveedor)", Name: req.RepairProvider},
		},
		observations: req.Observations,
		notify:       req.NotifyContactIDs,
	})
}

// FinalizeRepair cierra la reparación y devuelve los equipos a bodega (IN_REPAIR → AVAILABLE).
// La nota de resolución queda en cada movimiento.
func (o *Orchestrator) FinalizeRepair(ctx context.Context, userID, idempotencyKey string, req dto.FinalizeRepairRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.ResolutionNote)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpFinalizeRepair,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		destination:    fixed(entity.LocationCentralStock),
		detail:         req.ResolutionNote,
		fields: []entity.ActaField{
			{Label: "Resolución", Value: req.ResolutionNote},
		},
		signatories: []entity.Signatory{
			{Role: "Recibe", Name: ""},
		},
		notify: req.NotifyContactIDs,
	})
}

// WriteOff da de baja equipos disponibles o en reparación (→ WRITTEN_OFF). Requiere quién autoriza.
func (o *Orchestrator) WriteOff(ctx context.Context, userID, idempotencyKey string, req dto.WriteOffRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.AuthorizerName, &req.Reason)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	detail := "Autoriza " + req.AuthorizerName
	if req.Reason != "" {
		detail = fmt.Sprintf("%s. Motivo: %s", detail, req.Reason)
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpWriteOff,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		destination:    fixed(entity.LocationWrittenOff),
		detail:         detail,
		fields: []entity.ActaField{
			{Label: "Autoriza", Value: req.AuthorizerName},
			{Label: "Motivo", Value: req.Reason},
		},
		signatories: []entity.Signatory{
			{Role: "Elabora", Name: ""},
			{Role: "Autoriza", Name: req.AuthorizerName},
		},
		observations: req.Reason,
		notify:       req.NotifyContactIDs,
	})
}

// Dispose entrega equipos dados de baja a un gestor RAEE (WRITTEN_OFF → DISPOSED, terminal).
func (o *Orchestrator) Dispose(ctx context.Context, userID, idempotencyKey string, req dto.DisposeRequest) (*dto.BatchResult, error) {
	dto.Trim(&req.DisposalVendor, &req.Vehicle, &req.Observations)
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	detail := "Gestor RAEE: " + req.DisposalVendor
	if req.Vehicle != "" {
		detail += ", vehículo " + req.Vehicle
	}
	return o.execute(ctx, &plan{
		op:             lifecycle.OpDispose,
		userID:         userID,
		idempotencyKey: idempotencyKey,
		serials:        req.Serials,
		destination:    fixed("RAEE - " + req.DisposalVendor),
		detail:         detail,
		fields: []entity.ActaField{
			{Label: "Gestor RAEE", Value: req.DisposalVendor},
			{Label: "Vehículo", Value: req.Vehicle},
		},
		signatories: []entity.Signatory{
			{Role: "Entrega", Name: ""},
			{Role: "Recibe (gestor)", Name: req.DisposalVendor},
		},
		observations: req.Observations,
		notify:       req.NotifyContactIDs,
	})
}

func fixed(location string) func(*entity.EquipmentItem, entity.EquipmentStatus) string {
	return func(*entity.EquipmentItem, entity.EquipmentStatus) string { return location }
}

// locationFor ubicación por defecto según el estado destino de una devolución.
func locationFor(_ *entity.EquipmentItem, target entity.EquipmentStatus) string {
	switch target {
	case entity.StatusInRepair:
		return entity.LocationRepair
	case entity.StatusWrittenOff:
		return entity.LocationWrittenOff
	default:
		return entity.LocationCentralStock
	}
}
