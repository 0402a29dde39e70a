// Package acta define el formato de las referencias de actas y su clasificación.
package acta

import (
	"fmt"
	"sort"
	"strings"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/pkg/textnorm"
)

var prefixes = map[entity.DocumentKind]string{
	entity.DocumentTransfer:     "ENT",
	entity.DocumentReturn:       "DEV",
	entity.DocumentRepair:       "REP",
	entity.DocumentRepairDone:   "RPF",
	entity.DocumentWriteOff:     "BAJ",
	entity.DocumentDisposal:     "RAE",
	entity.DocumentBulkIngress:  "ING",
	entity.DocumentBulkDeployed: "IMP",
}

var titles = map[entity.DocumentKind]string{
	entity.DocumentTransfer:     "ACTA DE ENTREGA DE EQUIPOS",
	entity.DocumentReturn:       "ACTA DE DEVOLUCIÓN DE EQUIPOS",
	entity.DocumentRepair:       "REMISIÓN A SERVICIO TÉCNICO",
	entity.DocumentRepairDone:   "ACTA DE CIERRE DE REPARACIÓN",
	entity.DocumentWriteOff:     "ACTA DE BAJA DE EQUIPOS",
	entity.DocumentDisposal:     "ACTA DE DISPOSICIÓN FINAL RAEE",
	entity.DocumentBulkIngress:  "ACTA DE INGRESO MASIVO A BODEGA",
	entity.DocumentBulkDeployed: "ACTA DE INCORPORACIÓN DE EQUIPOS INSTALADOS",
}

// Prefix prefijo de referencia del tipo; vacío si el tipo no emite actas.
func Prefix(kind entity.DocumentKind) string { return prefixes[kind] }

// Title título impreso en el acta.
func Title(kind entity.DocumentKind) string {
	if t, ok := titles[kind]; ok {
		return t
	}
	return "ACTA"
}

// Issuable indica si el tipo tiene secuencia y prefijo propios.
func Issuable(kind entity.DocumentKind) bool {
	_, ok := prefixes[kind]
	return ok
}

// IssuableKinds tipos con consecutivo propio, en orden alfabético.
func IssuableKinds() []entity.DocumentKind {
	out := make([]entity.DocumentKind, 0, len(prefixes))
	for k := range prefixes {
		out = append(out, k)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// FormatReference arma la referencia visible: ENT-2026-000123.
// El consecutivo no se reinicia por año; el año es informativo.
func FormatReference(kind entity.DocumentKind, year int, seq int64) string {
	return fmt.Sprintf("%s-%04d-%06d", Prefix(kind), year, seq)
}

// Classify resuelve el tipo de un acta. Si el tipo almacenado es conocido se respeta;
// si no, se intenta por el prefijo de la referencia. Lo demás queda como OTHER.
func Classify(kind, reference string) entity.DocumentKind {
	k := entity.DocumentKind(strings.ToUpper(strings.TrimSpace(kind)))
	if Issuable(k) {
		return k
	}
	ref := strings.ToUpper(textnorm.Fold(reference))
	for dk, p := range prefixes {
		if strings.HasPrefix(ref, p+"-") {
			return dk
		}
	}
	return entity.DocumentOther
}
