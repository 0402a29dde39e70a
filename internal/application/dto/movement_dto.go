package dto

// TransferOutRequest body para POST /api/movements/transfer-out.
type TransferOutRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	DestinationSite  string   `json:"destination_site" validate:"required"`
	RecipientName    string   `json:"recipient_name" validate:"required"`
	Observations     string   `json:"observations,omitempty"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// ReturnRequest body para POST /api/movements/return.
type ReturnRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	OriginSite       string   `json:"origin_site" validate:"required"`
	DelivererName    string   `json:"deliverer_name" validate:"required"`
	TargetStatus     string   `json:"target_status" validate:"required,oneof=AVAILABLE IN_REPAIR WRITTEN_OFF"`
	Observations     string   `json:"observations,omitempty"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// SendToRepairRequest body para POST /api/movements/send-to-repair.
type SendToRepairRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	RepairProvider   string   `json:"repair_provider" validate:"required"`
	FaultDescription string   `json:"fault_description" validate:"required"`
	Observations     string   `json:"observations,omitempty"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// FinalizeRepairRequest body para POST /api/movements/finalize-repair.
type FinalizeRepairRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	ResolutionNote   string   `json:"resolution_note" validate:"required"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// WriteOffRequest body para POST /api/movements/write-off.
type WriteOffRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	AuthorizerName   string   `json:"authorizer_name" validate:"required"`
	Reason           string   `json:"reason,omitempty"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// DisposeRequest body para POST /api/movements/dispose.
type DisposeRequest struct {
	Serials          []string `json:"serials" validate:"required,min=1,dive,required"`
	DisposalVendor   string   `json:"disposal_vendor" validate:"required"`
	Vehicle          string   `json:"vehicle,omitempty"`
	Observations     string   `json:"observations,omitempty"`
	NotifyContactIDs []string `json:"notify_contact_ids,omitempty"`
}

// BatchResult respuesta de toda operación por lote (y del cargue masivo cuando emite acta).
type BatchResult struct {
	DocumentID     string   `json:"document_id"`
	Reference      string   `json:"reference"`
	Kind           string   `json:"kind"`
	MovedCount     int      `json:"moved_count"`
	Serials        []string `json:"serials"`
	DocumentReady  bool     `json:"document_ready"`
	ArtifactBase64 string   `json:"artifact_base64,omitempty"`
	ArtifactURL    string   `json:"artifact_url,omitempty"`
	EmailRequested bool     `json:"email_requested"`
	EmailSent      bool     `json:"email_sent"`
	Replayed       bool     `json:"replayed"`
	Warnings       []string `json:"warnings,omitempty"`
}
