package inventory

import (
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

// DeclaredValue suma el valor comercial de los equipos de un acta (servicio de dominio).
// Los equipos sin valor no suman; si ninguno tiene valor el total no es válido.
func DeclaredValue(items []entity.ActaItem) decimal.NullDecimal {
	total := decimal.Zero
	valued := 0
	for _, it := range items {
		if !it.Value.Valid {
			continue
		}
		total = total.Add(it.Value.Decimal)
		valued++
	}
	if valued == 0 {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: total.Round(2), Valid: true}
}
