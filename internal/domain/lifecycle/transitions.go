// Package lifecycle contiene la tabla de transiciones del ciclo de vida de los equipos.
// Es una función pura: no toca persistencia y la comparten el orquestador y las pruebas.
package lifecycle

import (
	"fmt"

	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// Operation operación por lote sobre equipos existentes.
type Operation string

const (
	OpTransferOut    Operation = "TRANSFER_OUT"
	OpReturn         Operation = "RETURN"
	OpSendToRepair   Operation = "SEND_TO_REPAIR"
	OpFinalizeRepair Operation = "FINALIZE_REPAIR"
	OpWriteOff       Operation = "WRITE_OFF"
	OpDispose        Operation = "DISPOSE"
)

type rule struct {
	from     []entity.EquipmentStatus
	to       []entity.EquipmentStatus // más de uno: el llamador elige (devolución)
	movement entity.MovementKind
	document entity.DocumentKind
}

var table = map[Operation]rule{
	OpTransferOut: {
		from:     []entity.EquipmentStatus{entity.StatusAvailable},
		to:       []entity.EquipmentStatus{entity.StatusDeployed},
		movement: entity.MovementTransferOut,
		document: entity.DocumentTransfer,
	},
	OpReturn: {
		from:     []entity.EquipmentStatus{entity.StatusDeployed},
		to:       []entity.EquipmentStatus{entity.StatusAvailable, entity.StatusInRepair, entity.StatusWrittenOff},
		movement: entity.MovementReturn,
		document: entity.DocumentReturn,
	},
	OpSendToRepair: {
		from:     []entity.EquipmentStatus{entity.StatusAvailable},
		to:       []entity.EquipmentStatus{entity.StatusInRepair},
		movement: entity.MovementSendToRepair,
		document: entity.DocumentRepair,
	},
	OpFinalizeRepair: {
		from:     []entity.EquipmentStatus{entity.StatusInRepair},
		to:       []entity.EquipmentStatus{entity.StatusAvailable},
		movement: entity.MovementFinalizeRepair,
		document: entity.DocumentRepairDone,
	},
	OpWriteOff: {
		from:     []entity.EquipmentStatus{entity.StatusAvailable, entity.StatusInRepair},
		to:       []entity.EquipmentStatus{entity.StatusWrittenOff},
		movement: entity.MovementWriteOff,
		document: entity.DocumentWriteOff,
	},
	OpDispose: {
		from:     []entity.EquipmentStatus{entity.StatusWrittenOff},
		to:       []entity.EquipmentStatus{entity.StatusDisposed},
		movement: entity.MovementDisposal,
		document: entity.DocumentDisposal,
	},
}

// Valid indica si la operación existe en la tabla.
func (op Operation) Valid() bool {
	_, ok := table[op]
	return ok
}

// Target devuelve el estado destino de aplicar op a un equipo en estado from.
// requested solo se usa cuando la operación admite varios destinos (devolución).
// Cualquier combinación fuera de la tabla devuelve domain.ErrInvalidTransition.
func Target(op Operation, from, requested entity.EquipmentStatus) (entity.EquipmentStatus, error) {
	r, ok := table[op]
	if !ok {
		return "", fmt.Errorf("%w: operación desconocida %q", domain.ErrInvalidTransition, op)
	}
	if !contains(r.from, from) {
		return "", fmt.Errorf("%w: %s no aplica a equipos en estado %s", domain.ErrInvalidTransition, op, from)
	}
	if len(r.to) == 1 {
		return r.to[0], nil
	}
	if !contains(r.to, requested) {
		return "", fmt.Errorf("%w: %s no puede llevar el equipo a %q", domain.ErrInvalidTransition, op, requested)
	}
	return requested, nil
}

// AllowedTargets estados destino posibles para la operación.
func AllowedTargets(op Operation) []entity.EquipmentStatus {
	return append([]entity.EquipmentStatus(nil), table[op].to...)
}

// MovementKind tipo de movimiento que registra la operación.
func MovementKind(op Operation) entity.MovementKind { return table[op].movement }

// DocumentKind tipo de acta que emite la operación.
func DocumentKind(op Operation) entity.DocumentKind { return table[op].document }

// IsTerminal indica que no existe operación que saque al equipo de ese estado.
func IsTerminal(s entity.EquipmentStatus) bool {
	for _, r := range table {
		if contains(r.from, s) {
			return false
		}
	}
	return true
}

func contains(list []entity.EquipmentStatus, s entity.EquipmentStatus) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
