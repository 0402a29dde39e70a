package textnorm_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Trazabilidad-api/pkg/textnorm"
)

func TestFold(t *testing.T) {
	assert.Equal(t, "numero de serie", textnorm.Fold("  Número de   Serie "))
	assert.Equal(t, "devolucion", textnorm.Fold("DEVOLUCIÓN"))
	assert.Equal(t, "", textnorm.Fold("   "))
}

func TestKey(t *testing.T) {
	assert.Equal(t, "placa_inventario", textnorm.Key("Placa Inventario"))
	assert.Equal(t, "serie", textnorm.Key("SERIE"))
	assert.Equal(t, "tipo_de_equipo", textnorm.Key("Tipo de Equipo"))
}
