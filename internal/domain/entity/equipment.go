package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// EquipmentStatus estado del ciclo de vida de un equipo.
type EquipmentStatus string

const (
	StatusAvailable  EquipmentStatus = "AVAILABLE"   // en bodega, disponible
	StatusDeployed   EquipmentStatus = "DEPLOYED"    // instalado en una sede
	StatusInRepair   EquipmentStatus = "IN_REPAIR"   // en servicio técnico
	StatusWrittenOff EquipmentStatus = "WRITTEN_OFF" // dado de baja, pendiente de disposición
	StatusDisposed   EquipmentStatus = "DISPOSED"    // entregado a gestor RAEE (terminal)
)

// Valid indica si el estado es uno de los conocidos.
func (s EquipmentStatus) Valid() bool {
	switch s {
	case StatusAvailable, StatusDeployed, StatusInRepair, StatusWrittenOff, StatusDisposed:
		return true
	}
	return false
}

// Ubicaciones fijas que asigna el orquestador.
const (
	LocationCentralStock = "BODEGA CENTRAL"
	LocationRepair       = "SERVICIO TÉCNICO"
	LocationWrittenOff   = "BODEGA DE BAJAS"
)

// EquipmentItem representa un equipo serializado. El serial es la llave natural.
type EquipmentItem struct {
	ID        string
	Serial    string
	AssetTag  string // placa de inventario; opcional
	Type      string
	Brand     string
	Model     string
	Status    EquipmentStatus
	Location  string
	Notes     string
	Value     decimal.NullDecimal
	EnteredAt time.Time
	UpdatedAt time.Time
}

// DisplayTag devuelve la placa o, si no tiene, el serial.
func (e *EquipmentItem) DisplayTag() string {
	if e.AssetTag != "" {
		return e.AssetTag
	}
	return e.Serial
}

// NormalizeSerial quita espacios y pasa a mayúsculas; todos los puntos de entrada
// comparan seriales ya normalizados.
func NormalizeSerial(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// EquipmentType catálogo de tipos de equipo (PORTÁTIL, MONITOR, ...).
type EquipmentType struct {
	ID        string
	Name      string
	CreatedBy string
	CreatedAt time.Time
}
