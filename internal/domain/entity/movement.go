package entity

import "time"

// MovementKind tipo de movimiento registrado en la bitácora.
type MovementKind string

const (
	MovementIngress        MovementKind = "INGRESS"
	MovementTransferOut    MovementKind = "TRANSFER_OUT"
	MovementReturn         MovementKind = "RETURN"
	MovementSendToRepair   MovementKind = "SEND_TO_REPAIR"
	MovementFinalizeRepair MovementKind = "FINALIZE_REPAIR"
	MovementWriteOff       MovementKind = "WRITE_OFF"
	MovementDisposal       MovementKind = "DISPOSAL"
)

// Movement registro inmutable de una transición (o ingreso) de un equipo.
// Nunca se actualiza ni se borra.
type Movement struct {
	ID                string
	BatchID           string // agrupa los movimientos de una misma operación por lote
	DocumentID        string // acta emitida por el lote; vacío en ingresos unitarios
	EquipmentSerial   string
	Kind              MovementKind
	Origin            string
	Destination       string
	FromStatus        EquipmentStatus // vacío en ingresos
	ToStatus          EquipmentStatus
	Detail            string
	ResponsibleUserID string
	OccurredAt        time.Time
}
