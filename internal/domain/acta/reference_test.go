package acta_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/jhoicas/Trazabilidad-api/internal/domain/acta"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

func TestFormatReference(t *testing.T) {
	assert.Equal(t, "ENT-2026-000001", acta.FormatReference(entity.DocumentTransfer, 2026, 1))
	assert.Equal(t, "RAE-2026-001234", acta.FormatReference(entity.DocumentDisposal, 2026, 1234))
	assert.Equal(t, "ING-2027-1000000", acta.FormatReference(entity.DocumentBulkIngress, 2027, 1000000))
}

func TestClassify_KnownKindWins(t *testing.T) {
	assert.Equal(t, entity.DocumentWriteOff, acta.Classify("WRITE_OFF", "ENT-2026-000001"))
	assert.Equal(t, entity.DocumentRepair, acta.Classify(" repair ", ""))
}

func TestClassify_ByReferencePrefix(t *testing.T) {
	assert.Equal(t, entity.DocumentReturn, acta.Classify("", "DEV-2025-000010"))
	assert.Equal(t, entity.DocumentRepairDone, acta.Classify("LEGACY", "rpf-2024-000002"))
	assert.Equal(t, entity.DocumentBulkDeployed, acta.Classify("", "  IMP-2026-000003"))
}

func TestClassify_Unknown(t *testing.T) {
	assert.Equal(t, entity.DocumentOther, acta.Classify("", "Acta devolución bodega norte"))
	assert.Equal(t, entity.DocumentOther, acta.Classify("OTHER", ""))
	assert.Equal(t, entity.DocumentOther, acta.Classify("", "ENTREGA-15"))
}

func TestTitle(t *testing.T) {
	assert.Equal(t, "ACTA DE BAJA DE EQUIPOS", acta.Title(entity.DocumentWriteOff))
	assert.Equal(t, "ACTA", acta.Title(entity.DocumentOther))
}
