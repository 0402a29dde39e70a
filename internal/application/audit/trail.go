package audit

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// Trail registro de auditoría de mutaciones. Record nunca hace fallar la operación que audita.
type Trail struct {
	repo repository.AuditRepository
	now  func() time.Time
}

// NewTrail construye el registro de auditoría.
func NewTrail(repo repository.AuditRepository) *Trail {
	return &Trail{repo: repo, now: time.Now}
}

// Record guarda una entrada. Sin usuario no se audita: se deja un warning y se sigue.
// Los errores de persistencia se registran en el log y se descartan.
func (t *Trail) Record(ctx context.Context, userID, action, detail string) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		log.Warn().Str("action", action).Msg("audit: entrada sin usuario, se omite")
		return
	}
	e := &entity.AuditEntry{
		ID:         uuid.New().String(),
		UserID:     userID,
		Action:     action,
		Detail:     detail,
		OccurredAt: t.now().UTC(),
	}
	if err := t.repo.Create(ctx, e); err != nil {
		log.Error().Err(err).Str("action", action).Str("user_id", userID).Msg("audit: no se pudo registrar la entrada")
	}
}

// Search consulta la auditoría: más recientes primero, 20 por página por defecto, máximo 100.
func (t *Trail) Search(ctx context.Context, in dto.AuditSearchRequest) (*dto.AuditListResponse, error) {
	in.DefaultPage()
	if in.From != nil && in.To != nil && in.To.Before(*in.From) {
		return nil, fmt.Errorf("%w: la fecha final es anterior a la inicial", domain.ErrInvalidInput)
	}
	list, total, err := t.repo.Search(ctx, repository.AuditFilter{
		UserID: strings.TrimSpace(in.UserID),
		From:   in.From,
		To:     in.To,
		Text:   strings.TrimSpace(in.Text),
		Limit:  in.Limit,
		Offset: in.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("audit: buscar: %w", err)
	}
	items := make([]dto.AuditEntryResponse, 0, len(list))
	for _, e := range list {
		items = append(items, dto.AuditEntryResponse{
			ID:         e.ID,
			UserID:     e.UserID,
			Action:     e.Action,
			Detail:     e.Detail,
			OccurredAt: e.OccurredAt,
		})
	}
	return &dto.AuditListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: in.Limit, Offset: in.Offset, Total: total},
	}, nil
}
