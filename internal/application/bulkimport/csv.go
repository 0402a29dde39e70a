package bulkimport

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/dto"
	"github.com/jhoicas/Trazabilidad-api/internal/domain"
	"github.com/jhoicas/Trazabilidad-api/pkg/textnorm"
)

var utf8BOM = []byte("\xef\xbb\xbf")

// Encabezados aceptados por columna, ya normalizados con textnorm.Key.
var headerAliases = map[string][]string{
	"serial":    {"serial", "serie", "numero_de_serie", "no_serie", "n_serie", "sn"},
	"asset_tag": {"placa", "placa_inventario", "activo_fijo", "asset_tag"},
	"type":      {"tipo", "tipo_de_equipo", "equipo", "type"},
	"brand":     {"marca", "fabricante", "brand"},
	"model":     {"modelo", "referencia", "model"},
	"site":      {"sede", "ubicacion", "punto_de_venta", "site"},
	"value":     {"valor", "costo", "valor_comercial", "value"},
	"notes":     {"observaciones", "notas", "notes"},
}

// ParseCSV lee un archivo separado por coma o punto y coma (se detecta con el encabezado).
// Los encabezados se comparan sin tildes ni mayúsculas. La columna de serial es obligatoria;
// las demás pueden faltar y se validan por fila. maxRows corta la lectura antes de cargar
// todo el archivo en memoria.
func ParseCSV(r io.Reader, maxRows int) ([]dto.ImportRow, error) {
	br := bufio.NewReader(r)
	peek, err := br.Peek(4096)
	if err != nil && !errors.Is(err, io.EOF) && !errors.Is(err, bufio.ErrBufferFull) {
		return nil, fmt.Errorf("%w: leer archivo: %v", domain.ErrInvalidInput, err)
	}
	first := append([]byte(nil), peek...)
	if bytes.HasPrefix(first, utf8BOM) {
		first = first[len(utf8BOM):]
		_, _ = br.Discard(len(utf8BOM))
	}
	if len(bytes.TrimSpace(first)) == 0 {
		return nil, fmt.Errorf("%w: archivo vacío", domain.ErrInvalidInput)
	}

	cr := csv.NewReader(br)
	cr.Comma = detectDelimiter(first)
	cr.FieldsPerRecord = -1
	cr.TrimLeadingSpace = true
	cr.LazyQuotes = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("%w: encabezado ilegible: %v", domain.ErrInvalidInput, err)
	}
	cols := mapHeader(header)
	if _, ok := cols["serial"]; !ok {
		return nil, fmt.Errorf("%w: falta la columna de serial", domain.ErrInvalidInput)
	}

	var rows []dto.ImportRow
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: fila %d: %v", domain.ErrInvalidInput, len(rows)+1, err)
		}
		if len(rows) == maxRows {
			return nil, fmt.Errorf("%w: más de %d filas", domain.ErrFileTooLarge, maxRows)
		}
		rows = append(rows, buildRow(rec, cols))
	}
	return rows, nil
}

func detectDelimiter(sample []byte) rune {
	line := sample
	if i := bytes.IndexByte(sample, '\n'); i >= 0 {
		line = sample[:i]
	}
	if bytes.Count(line, []byte(";")) > bytes.Count(line, []byte(",")) {
		return ';'
	}
	return ','
}

func mapHeader(header []string) map[string]int {
	lookup := make(map[string]string)
	for field, aliases := range headerAliases {
		for _, a := range aliases {
			lookup[a] = field
		}
	}
	cols := make(map[string]int)
	for i, h := range header {
		field, ok := lookup[textnorm.Key(h)]
		if !ok {
			continue
		}
		if _, dup := cols[field]; !dup {
			cols[field] = i
		}
	}
	return cols
}

func buildRow(rec []string, cols map[string]int) dto.ImportRow {
	get := func(field string) string {
		i, ok := cols[field]
		if !ok || i >= len(rec) {
			return ""
		}
		return strings.TrimSpace(rec[i])
	}
	row := dto.ImportRow{
		Serial:   get("serial"),
		AssetTag: get("asset_tag"),
		Type:     get("type"),
		Brand:    get("brand"),
		Model:    get("model"),
		Site:     get("site"),
		Notes:    get("notes"),
	}
	if raw := get("value"); raw != "" {
		v, err := parseValue(raw)
		if err != nil {
			row.ParseError = fmt.Sprintf("valor ilegible %q", raw)
		} else {
			row.Value = &v
		}
	}
	return row
}

// parseValue acepta "1500000", "$ 1.500.000", "250.000", "1.500.000,50" y "1500000.50".
func parseValue(raw string) (decimal.Decimal, error) {
	s := strings.NewReplacer("$", "", " ", "", "COP", "").Replace(raw)
	hasDot := strings.Contains(s, ".")
	hasComma := strings.Contains(s, ",")
	switch {
	case hasDot && hasComma:
		s = strings.ReplaceAll(s, ".", "")
		s = strings.ReplaceAll(s, ",", ".")
	case hasComma:
		s = strings.ReplaceAll(s, ",", ".")
	case strings.Count(s, ".") > 1:
		s = strings.ReplaceAll(s, ".", "")
	case hasDot && len(s)-strings.Index(s, ".") == 4:
		// Un solo punto seguido de tres dígitos es separador de miles: "1.500", "250.000".
		s = strings.Replace(s, ".", "", 1)
	}
	return decimal.NewFromString(s)
}
