package trazabilidad

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

var kinds = map[entity.MovementKind]bool{
	entity.MovementIngress:        true,
	entity.MovementTransferOut:    true,
	entity.MovementReturn:         true,
	entity.MovementSendToRepair:   true,
	entity.MovementFinalizeRepair: true,
	entity.MovementWriteOff:       true,
	entity.MovementDisposal:       true,
}

// Query consulta de solo lectura sobre la bitácora de movimientos.
type Query struct {
	movements repository.MovementRepository
	users     ports.UserDirectory
}

// NewQuery construye la consulta de trazabilidad.
func NewQuery(movements repository.MovementRepository, users ports.UserDirectory) *Query {
	return &Query{movements: movements, users: users}
}

// Search devuelve movimientos filtrados, más recientes primero. Si el equipo no tiene placa
// se muestra el serial; si el responsable ya no existe, "Usuario no disponible".
func (q *Query) Search(ctx context.Context, in dto.TrazabilidadRequest) (*dto.TrazabilidadListResponse, error) {
	in.DefaultPage()
	kind := entity.MovementKind(strings.ToUpper(strings.TrimSpace(in.Kind)))
	if kind != "" && !kinds[kind] {
		return nil, fmt.Errorf("%w: tipo de movimiento %q", domain.ErrInvalidInput, in.Kind)
	}
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, fmt.Errorf("%w: la fecha final es anterior a la inicial", domain.ErrInvalidInput)
	}

	rows, total, err := q.movements.Search(ctx, repository.MovementFilter{
		Kind:   kind,
		From:   in.From,
		To:     in.To,
		Text:   strings.TrimSpace(in.Text),
		UserID: strings.TrimSpace(in.UserID),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("trazabilidad: buscar: %w", err)
	}

	ids := make([]string, 0, len(rows))
	for _, r := range rows {
		ids = append(ids, r.Movement.ResponsibleUserID)
	}
	names := map[string]string{}
	if len(ids) > 0 {
		if n, err := q.users.Names(ctx, ids); err != nil {
			log.Warn().Err(err).Msg("trazabilidad: directorio de usuarios no disponible")
		} else {
			names = n
		}
	}

	items := make([]dto.TrazabilidadRow, 0, len(rows))
	for _, r := range rows {
		m := r.Movement
		tag := r.AssetTag
		if tag == "" {
			tag = m.EquipmentSerial
		}
		name, ok := names[m.ResponsibleUserID]
		if !ok || name == "" {
			name = entity.UnknownUserName
		}
		items = append(items, dto.TrazabilidadRow{
			MovementID:      m.ID,
			OccurredAt:      m.OccurredAt,
			Kind:            string(m.Kind),
			Serial:          m.EquipmentSerial,
			AssetTag:        tag,
			EquipmentType:   r.EquipmentType,
			Brand:           r.Brand,
			Model:           r.Model,
			Origin:          m.Origin,
			Destination:     m.Destination,
			FromStatus:      string(m.FromStatus),
			ToStatus:        string(m.ToStatus),
			Detail:          m.Detail,
			DocumentRef:     r.DocumentRef,
			ResponsibleID:   m.ResponsibleUserID,
			ResponsibleName: name,
		})
	}
	return &dto.TrazabilidadListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}
