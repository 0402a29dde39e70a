package dto

import "github.com/shopspring/decimal"

// ImportRow fila del cargue masivo. Site solo aplica al modo DEPLOYED.
type ImportRow struct {
	Serial   string           `json:"serial"`
	AssetTag string           `json:"asset_tag,omitempty"`
	Type     string           `json:"type"`
	Brand    string           `json:"brand"`
	Model    string           `json:"model"`
	Site     string           `json:"site,omitempty"`
	Value    *decimal.Decimal `json:"value,omitempty"`
	Notes    string           `json:"notes,omitempty"`

	// ParseError motivo de rechazo detectado al leer el archivo (valor ilegible).
	ParseError string `json:"-"`
}

// ImportRequest body JSON para POST /api/imports/{stock,deployed}.
type ImportRequest struct {
	Rows             []ImportRow `json:"rows"`
	NotifyContactIDs []string    `json:"notify_contact_ids,omitempty"`
}

// RowRejection fila rechazada. Row es 1-based sin contar el encabezado.
type RowRejection struct {
	Row    int    `json:"row"`
	Serial string `json:"serial"`
	Reason string `json:"reason"`
}

// ImportResult resultado del cargue. Document es nil si no se insertó ninguna fila.
type ImportResult struct {
	Mode          string         `json:"mode"`
	TotalRows     int            `json:"total_rows"`
	InsertedCount int            `json:"inserted_count"`
	RejectedCount int            `json:"rejected_count"`
	Rejections    []RowRejection `json:"rejections"`
	Document      *BatchResult   `json:"document,omitempty"`
}
