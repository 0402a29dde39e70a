package dto

import "time"

// ── Historial de actas ───────────────────────────────────────────────────────

// ActaSearchRequest filtros de GET /api/actas.
type ActaSearchRequest struct {
	Kind   string
	From   *time.Time
	To     *time.Time
	Text   string
	UserID string
	PageRequest
}

// ActaResponse acta en el historial.
type ActaResponse struct {
	ID           string    `json:"id"`
	Reference    string    `json:"reference"`
	Kind         string    `json:"kind"`
	IssuedAt     time.Time `json:"issued_at"`
	Responsible  string    `json:"responsible"`
	ItemCount    int       `json:"item_count"`
	RenderStatus string    `json:"render_status"`
	ArtifactURL  string    `json:"artifact_url,omitempty"`
}

// ActaListResponse listado paginado de actas.
type ActaListResponse struct {
	Items []ActaResponse `json:"items"`
	Page  PageResponse   `json:"page"`
}

// ── Trazabilidad ─────────────────────────────────────────────────────────────

// TrazabilidadRequest filtros de GET /api/trazabilidad.
type TrazabilidadRequest struct {
	Kind   string
	From   *time.Time
	To     *time.Time
	Text   string
	UserID string
	PageRequest
}

// TrazabilidadRow fila de la consulta de trazabilidad.
type TrazabilidadRow struct {
	MovementID      string    `json:"movement_id"`
	OccurredAt      time.Time `json:"occurred_at"`
	Kind            string    `json:"kind"`
	Serial          string    `json:"serial"`
	AssetTag        string    `json:"asset_tag"` // placa; si el equipo no tiene, el serial
	EquipmentType   string    `json:"equipment_type"`
	Brand           string    `json:"brand"`
	Model           string    `json:"model"`
	Origin          string    `json:"origin"`
	Destination     string    `json:"destination"`
	FromStatus      string    `json:"from_status,omitempty"`
	ToStatus        string    `json:"to_status"`
	Detail          string    `json:"detail,omitempty"`
	DocumentRef     string    `json:"document_reference,omitempty"`
	ResponsibleID   string    `json:"responsible_id"`
	ResponsibleName string    `json:"responsible_name"`
}

// TrazabilidadListResponse listado paginado.
type TrazabilidadListResponse struct {
	Items []TrazabilidadRow `json:"items"`
	Page  PageResponse      `json:"page"`
}

// ── Auditoría ────────────────────────────────────────────────────────────────

// AuditSearchRequest filtros de GET /api/audit.
type AuditSearchRequest struct {
	UserID string
	From   *time.Time
	To     *time.Time
	Text   string
	PageRequest
}

// AuditEntryResponse entrada de auditoría.
type AuditEntryResponse struct {
	ID         string    `json:"id"`
	UserID     string    `json:"user_id"`
	Action     string    `json:"action"`
	Detail     string    `json:"detail"`
	OccurredAt time.Time `json:"occurred_at"`
}

// AuditListResponse listado paginado de auditoría.
type AuditListResponse struct {
	Items []AuditEntryResponse `json:"items"`
	Page  PageResponse         `json:"page"`
}
