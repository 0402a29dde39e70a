package pdf_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
	"github.com/jhoicas/Trazabilidad-api/internal/infrastructure/pdf"
)

func TestRenderActa_ProducesPDF(t *testing.T) {
	r := pdf.NewActaRenderer("Operaciones")
	payload := &entity.ActaPayload{
		Title:       "ACTA DE ENTREGA",
		Reference:   "ENT-2026-000001",
		Kind:        entity.DocumentTransfer,
		IssuedAt:    time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Responsible: "Ana Pérez",
		Fields:      []entity.ActaField{{Label: "Sede destino", Value: "SEDE NORTE"}},
		Items: []entity.ActaItem{
			{Serial: "A1", Type: "PORTATIL", Brand: "Lenovo", Model: "T14", Origin: "BODEGA CENTRAL", Destination: "SEDE NORTE"},
			{Serial: "B2", AssetTag: "INV-2", Type: "MONITOR", Origin: "BODEGA CENTRAL", Destination: "SEDE NORTE"},
		},
		Signatories:  []entity.Signatory{{Role: "Entrega", Name: "Ana Pérez"}, {Role: "Recibe", Name: "Luis Gómez"}},
		Observations: "Equipos con cargador.",
	}

	data, err := r.RenderActa(context.Background(), payload)
	require.NoError(t, err)
	require.NotEmpty(t, data)
	assert.Equal(t, "%PDF", string(data[:4]))
}

func TestRenderActa_CanceledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := pdf.NewActaRenderer("").RenderActa(ctx, &entity.ActaPayload{Title: "ACTA", Reference: "X-1"})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestFormatMoney(t *testing.T) {
	assert.Equal(t, "950", pdf.FormatMoney("950"))
	assert.Equal(t, "25.000", pdf.FormatMoney("25000"))
	assert.Equal(t, "1.000.000", pdf.FormatMoney("1000000"))
	assert.Equal(t, "-1.500", pdf.FormatMoney("-1500"))
}
