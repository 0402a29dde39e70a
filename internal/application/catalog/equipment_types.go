package catalog

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/repository"
)

// EquipmentTypes catálogo de tipos de equipo.
type EquipmentTypes struct {
	repo repository.EquipmentTypeRepository
}

// NewEquipmentTypes construye el caso de uso del catálogo.
func NewEquipmentTypes(repo repository.EquipmentTypeRepository) *EquipmentTypes {
	return &EquipmentTypes{repo: repo}
}

// List devuelve el catálogo ordenado por nombre.
func (uc *EquipmentTypes) List(ctx context.Context) ([]dto.EquipmentTypeResponse, error) {
	list, err := uc.repo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("catalog: listar tipos: %w", err)
	}
	out := make([]dto.EquipmentTypeResponse, 0, len(list))
	for _, t := range list {
		out = append(out, dto.EquipmentTypeResponse{ID: t.ID, Name: t.Name})
	}
	return out, nil
}

// Ensure registra el tipo si no existe (el nombre se guarda en mayúsculas) y lo devuelve.
func (uc *EquipmentTypes) Ensure(ctx context.Context, userID string, req dto.EquipmentTypeRequest) (*dto.EquipmentTypeResponse, error) {
	req.Name = strings.ToUpper(strings.Join(strings.Fields(req.Name), " "))
	if err := dto.Validate(req); err != nil {
		return nil, err
	}
	if len(req.Name) > 80 {
		return nil, fmt.Errorf("%w: nombre de tipo demasiado largo", domain.ErrInvalidInput)
	}
	t, err := uc.repo.Ensure(ctx, req.Name, userID)
	if err != nil {
		return nil, fmt.Errorf("catalog: registrar tipo: %w", err)
	}
	return &dto.EquipmentTypeResponse{ID: t.ID, Name: t.Name}, nil
}
