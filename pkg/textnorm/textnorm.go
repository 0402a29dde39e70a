// Package textnorm normaliza texto libre en español (tildes, mayúsculas, espacios)
// para comparar encabezados de archivos y referencias de actas.
package textnorm

import (
	"strings"
	"unicode"

	"golang.org/x/text/runes"
	"golang.org/x/text/transform"
	"golang.org/x/text/unicode/norm"
)

// Fold elimina diacríticos, pasa a minúsculas y colapsa espacios.
// "  Número de   Serie " → "numero de serie".
func Fold(s string) string {
	t := transform.Chain(norm.NFD, runes.Remove(runes.In(unicode.Mn)), norm.NFC)
	out, _, err := transform.String(t, s)
	if err != nil {
		out = s
	}
	return strings.Join(strings.Fields(strings.ToLower(out)), " ")
}

// Key convierte un encabezado en clave snake_case sin tildes: "Placa Inventario" → "placa_inventario".
func Key(s string) string {
	return strings.ReplaceAll(Fold(s), " ", "_")
}
