package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DocumentKind tipo de acta.
type DocumentKind string

const (
	DocumentTransfer     DocumentKind = "TRANSFER"      // acta de entrega
	DocumentReturn       DocumentKind = "RETURN"        // acta de devolución
	DocumentRepair       DocumentKind = "REPAIR"        // remisión a servicio técnico
	DocumentRepairDone   DocumentKind = "REPAIR_DONE"   // cierre de reparación
	DocumentWriteOff     DocumentKind = "WRITE_OFF"     // acta de baja
	DocumentDisposal     DocumentKind = "DISPOSAL"      // entrega a gestor RAEE
	DocumentBulkIngress  DocumentKind = "BULK_INGRESS"  // cargue masivo a bodega
	DocumentBulkDeployed DocumentKind = "BULK_DEPLOYED" // cargue masivo de equipos instalados
	DocumentOther        DocumentKind = "OTHER"         // actas históricas sin clasificar
)

// RenderStatus estado del PDF asociado al acta.
type RenderStatus string

const (
	RenderPending RenderStatus = "PENDING"
	RenderReady   RenderStatus = "READY"
	RenderFailed  RenderStatus = "FAILED"
)

// Document acta emitida. La referencia es única y nunca se reutiliza.
type Document struct {
	ID                string
	Kind              DocumentKind
	Sequence          int64
	Reference         string
	IssuedAt          time.Time
	ResponsibleUserID string
	ItemCount         int
	Payload           []byte // JSON de ActaPayload
	ArtifactRef       string
	RenderStatus      RenderStatus
}

// ActaPayload contenido estructurado del acta; es lo que se renderiza a PDF.
// TotalValue es inválido si ningún equipo tiene valor declarado.
type ActaPayload struct {
	Title        string              `json:"title"`
	Reference    string              `json:"reference"`
	Kind         DocumentKind        `json:"kind"`
	IssuedAt     time.Time           `json:"issued_at"`
	Responsible  string              `json:"responsible"`
	Fields       []ActaField         `json:"fields"`
	Items        []ActaItem          `json:"items"`
	Signatories  []Signatory         `json:"signatories"`
	Observations string              `json:"observations,omitempty"`
	Metadata     map[string]string   `json:"metadata,omitempty"`
	TotalValue   decimal.NullDecimal `json:"total_value"`
}

// ActaField par etiqueta/valor del encabezado (sede destino, proveedor, ...).
type ActaField struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

// ActaItem línea de equipo dentro del acta.
type ActaItem struct {
	Serial      string              `json:"serial"`
	AssetTag    string              `json:"asset_tag"`
	Type        string              `json:"type"`
	Brand       string              `json:"brand"`
	Model       string              `json:"model"`
	Origin      string              `json:"origin"`
	Destination string              `json:"destination"`
	Value       decimal.NullDecimal `json:"value"`
}

// Signatory bloque de firma.
type Signatory struct {
	Role string `json:"role"` // "Entrega", "Recibe", "Autoriza"
	Name string `json:"name"`
}
