// Package pdf genera la representación imprimible de las actas de movimiento.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Título del acta       │  Referencia + Fecha        │
//	│  ─────────────────────────────────────────────────────────  │
//	│  DATOS: Responsable / sede / proveedor / motivo              │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Serial | Placa | Tipo | Marca/Modelo | Origen | Dest │
//	│  ─────────────────────────────────────────────────────────  │
//	│  OBSERVACIONES                                               │
//	│  FIRMAS: Entrega / Recibe / Autoriza                         │
//	│  FOOTER: QR con la referencia                                │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	maroto "github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/code"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/row"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/consts/pagesize"
	"github.com/johnfercher/maroto/v2/pkg/core"
	"github.com/johnfercher/maroto/v2/pkg/props"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/Trazabilidad-api/internal/application/ports"
	"github.com/jhoicas/Trazabilidad-api/internal/domain/entity"
)

var _ ports.ActaRenderer = (*ActaRenderer)(nil)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorWhite   = &props.Color{Red: 255, Green: 255, Blue: 255}
)

// ── Renderer ──────────────────────────────────────────────────────────────────

// ActaRenderer implementa ports.ActaRenderer usando Maroto v2.
type ActaRenderer struct {
	organization string
}

// NewActaRenderer construye el generador; organization aparece como autor del PDF.
func NewActaRenderer(organization string) *ActaRenderer {
	return &ActaRenderer{organization: organization}
}

// RenderActa genera el PDF y devuelve sus bytes.
func (g *ActaRenderer) RenderActa(ctx context.Context, p *entity.ActaPayload) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf: acta vacía")
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle(p.Title+" "+p.Reference, true).
		WithAuthor(nonEmpty(g.organization, "Trazabilidad"), true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(p))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(fieldRows(p)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(tableHeaderRow())
	m.AddRows(tableItemRows(p.Items)...)
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalRow(len(p.Items), p.TotalValue))

	if p.Observations != "" {
		m.AddRows(observationRows(p.Observations)...)
	}

	m.AddRows(line.NewRow(12))
	m.AddRows(signatureRow(p.Signatories))
	m.AddRows(line.NewRow(4))
	m.AddRows(footerRow(p))

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar acta: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

// headerRow: título (izq) y referencia + fecha (der).
func headerRow(p *entity.ActaPayload) core.Row {
	return row.New(18).Add(
		col.New(7).Add(
			text.New(p.Title, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Responsable: "+nonEmpty(p.Responsible, "-"), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New("REFERENCIA", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(p.Reference, props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+p.IssuedAt.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

// fieldRows: pares etiqueta/valor en dos columnas.
func fieldRows(p *entity.ActaPayload) []core.Row {
	rows := []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("DATOS DEL MOVIMIENTO", props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
		)),
	}
	for _, f := range p.Fields {
		rows = append(rows, row.New(5).Add(
			col.New(4).Add(text.New(f.Label+":", props.Text{Style: fontstyle.Bold, Size: 8, Top: 1})),
			col.New(8).Add(text.New(nonEmpty(f.Value, "-"), props.Text{Size: 8, Top: 1})),
		))
	}
	return rows
}

// tableHeaderRow: cabecera de la tabla de equipos.
func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a,
			Color: colorWhite, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).WithStyle(&props.Cell{BackgroundColor: colorPrimary}).Add(
		h("#", 1, align.Center),
		h("Serial", 2, align.Left),
		h("Placa", 2, align.Left),
		h("Tipo / Marca / Modelo", 3, align.Left),
		h("Origen", 2, align.Left),
		h("Destino", 2, align.Left),
	)
}

// tableItemRows: una fila por equipo.
func tableItemRows(items []entity.ActaItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	cell := func(s string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(s, props.Text{Size: 7.5, Align: a, Top: 1, Left: 1, Right: 1}))
	}
	for i, it := range items {
		desc := it.Type
		if it.Brand != "" || it.Model != "" {
			desc += " " + it.Brand + " " + it.Model
		}
		result = append(result, row.New(7).Add(
			cell(strconv.Itoa(i+1), 1, align.Center),
			cell(it.Serial, 2, align.Left),
			cell(nonEmpty(it.AssetTag, it.Serial), 2, align.Left),
			cell(desc, 3, align.Left),
			cell(it.Origin, 2, align.Left),
			cell(it.Destination, 2, align.Left),
		))
	}
	return result
}

// totalRow: cantidad de equipos y valor declarado alineados a la derecha.
func totalRow(n int, total decimal.NullDecimal) core.Row {
	label := func(s string, top float64) core.Component {
		return text.New(s, props.Text{
			Style: fontstyle.Bold, Size: 9, Align: align.Right, Color: colorPrimary, Top: top, Right: 1,
		})
	}
	value := "-"
	if total.Valid {
		value = "$" + formatMoney(total.Decimal.StringFixed(0))
	}
	return row.New(12).Add(
		col.New(6),
		col.New(6).Add(
			label(fmt.Sprintf("Total equipos: %d", n), 1),
			label("Valor declarado: "+value, 6),
		),
	)
}

func observationRows(obs string) []core.Row {
	return []core.Row{
		row.New(6).Add(col.New(12).Add(
			text.New("OBSERVACIONES", props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
		)),
		row.New(12).Add(col.New(12).Add(
			text.New(obs, props.Text{Size: 8, Top: 1}),
		)),
	}
}

// signatureRow: un bloque de firma por firmante, repartidos en 12 columnas.
func signatureRow(signers []entity.Signatory) core.Row {
	r := row.New(16)
	if len(signers) == 0 {
		return r
	}
	size := 12 / len(signers)
	if size < 3 {
		size = 3
	}
	cols := make([]core.Col, 0, len(signers))
	for _, s := range signers {
		cols = append(cols, col.New(size).Add(
			text.New("______________________________", props.Text{Size: 8, Align: align.Center}),
			text.New(nonEmpty(s.Name, " "), props.Text{Style: fontstyle.Bold, Size: 8, Align: align.Center, Top: 5}),
			text.New(s.Role, props.Text{Size: 7, Align: align.Center, Top: 10, Color: colorGray}),
		))
	}
	return r.Add(cols...)
}

// footerRow: QR con la referencia + leyenda.
func footerRow(p *entity.ActaPayload) core.Row {
	return row.New(30).Add(
		col.New(3).Add(code.NewQr(p.Reference, props.Rect{Percent: 90, Center: true})),
		col.New(9).Add(
			text.New("Documento generado por el sistema de trazabilidad de equipos.", props.Text{
				Size: 7, Top: 6, Left: 3, Color: colorGray,
			}),
			text.New("La referencia identifica el acta de forma única.", props.Text{
				Size: 7, Top: 11, Left: 3, Color: colorGray,
			}),
		),
	)
}

// ── helpers ───────────────────────────────────────────────────────────────────

func nonEmpty(s, fallback string) string {
	if s != "" {
		return s
	}
	return fallback
}

// formatMoney inserta puntos de miles en un string numérico sin decimales.
// Ej: "25000" → "25.000", "1000000" → "1.000.000"
func formatMoney(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	n := len(s)
	if n <= 3 {
		if neg {
			return "-" + s
		}
		return s
	}
	buf := make([]byte, 0, n+n/3+1)
	if neg {
		buf = append(buf, '-')
	}
	for i, c := range []byte(s) {
		if i > 0 && (n-i)%3 == 0 {
			buf = append(buf, '.')
		}
		buf = append(buf, c)
	}
	return string(buf)
}
