package inventory_test

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/inventory"
)

func value(s string) decimal.NullDecimal {
	return decimal.NullDecimal{Decimal: decimal.RequireFromString(s), Valid: true}
}

func TestDeclaredValue_SumsOnlyValuedItems(t *testing.T) {
	total := inventory.DeclaredValue([]entity.ActaItem{
		{Serial: "A", Value: value("1500000.50")},
		{Serial: "B"},
		{Serial: "C", Value: value("250000")},
	})
	assert.True(t, total.Valid)
	assert.Equal(t, "1750000.5", total.Decimal.String())
}

func TestDeclaredValue_NoValues(t *testing.T) {
	total := inventory.DeclaredValue([]entity.ActaItem{{Serial: "A"}, {Serial: "B"}})
	assert.False(t, total.Valid)
}
