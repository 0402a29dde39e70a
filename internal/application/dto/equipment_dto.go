package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterIngressRequest body para POST /api/equipment.
type RegisterIngressRequest struct {
	Serial   string           `json:"serial" validate:"required"`
	AssetTag string           `json:"asset_tag,omitempty"`
	Type     string           `json:"type" validate:"required"`
	Brand    string           `json:"brand" validate:"required"`
	Model    string           `json:"model" validate:"required"`
	Value    *decimal.Decimal `json:"value,omitempty"`
	Notes    string           `json:"notes,omitempty"`
}

// EquipmentResponse representación de un equipo.
type EquipmentResponse struct {
	ID        string           `json:"id"`
	Serial    string           `json:"serial"`
	AssetTag  string           `json:"asset_tag"`
	Type      string           `json:"type"`
	Brand     string           `json:"brand"`
	Model     string           `json:"model"`
	Status    string           `json:"status"`
	Location  string           `json:"location"`
	Notes     string           `json:"notes,omitempty"`
	Value     *decimal.Decimal `json:"value,omitempty"`
	EnteredAt time.Time        `json:"entered_at"`
	UpdatedAt time.Time        `json:"updated_at"`
}

// MovementResponse movimiento dentro de la hoja de vida del equipo.
type MovementResponse struct {
	ID          string    `json:"id"`
	Kind        string    `json:"kind"`
	Origin      string    `json:"origin"`
	Destination string    `json:"destination"`
	FromStatus  string    `json:"from_status,omitempty"`
	ToStatus    string    `json:"to_status"`
	Detail      string    `json:"detail,omitempty"`
	DocumentID  string    `json:"document_id,omitempty"`
	UserID      string    `json:"user_id"`
	OccurredAt  time.Time `json:"occurred_at"`
}

// EquipmentDetailResponse equipo con su historial de movimientos.
type EquipmentDetailResponse struct {
	EquipmentResponse
	Movements []MovementResponse `json:"movements"`
}

// EquipmentListResponse listado paginado por estado.
type EquipmentListResponse struct {
	Items []EquipmentResponse `json:"items"`
	Page  PageResponse        `json:"page"`
}

// EquipmentTypeRequest body para POST /api/equipment-types.
type EquipmentTypeRequest struct {
	Name string `json:"name" validate:"required"`
}

// EquipmentTypeResponse tipo de equipo del catálogo.
type EquipmentTypeResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}
