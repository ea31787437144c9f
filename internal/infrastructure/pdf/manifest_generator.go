// Package pdf genera el manifiesto de una transferencia (documento que acompaña la mercancía).
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Nombre de la app      │  Transferencia + Fecha      │
//	│  ─────────────────────────────────────────────────────────  │
//	│  ORIGEN: empleado + scope      │  DESTINO: empleado + scope  │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TABLA: Cant | Producto | Código                             │
//	│  DEVOLUCIONES (sales run cerrado)                            │
//	│  ─────────────────────────────────────────────────────────  │
//	│  TOTALES: Unidades / Valor                                   │
//	│  FOOTER: QR con el id + firmas                               │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
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

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 70, Blue: 127}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
)

// ── Generator ─────────────────────────────────────────────────────────────────

// ManifestGenerator genera manifiestos de transferencia con Maroto v2.
type ManifestGenerator struct {
	appName string
}

// NewManifestGenerator construye el generador. appName va en el encabezado.
func NewManifestGenerator(appName string) *ManifestGenerator {
	return &ManifestGenerator{appName: appName}
}

// GenerateTransferManifest genera el PDF y devuelve sus bytes.
func (g *ManifestGenerator) GenerateTransferManifest(_ context.Context, t *inventory.TransferView) ([]byte, error) {
	if t == nil || t.Transfer == nil {
		return nil, fmt.Errorf("pdf: transferencia vacía")
	}
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Manifiesto de transferencia "+t.ID, true).
		WithAuthor(g.appName, true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(g.appName, t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(partiesRow(t))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionRow("PRODUCTOS TRANSFERIDOS"))
	m.AddRows(tableHeaderRow())
	m.AddRows(itemRows(t.Items)...)

	if len(t.ReturnedItems) > 0 {
		m.AddRows(row.New(3))
		m.AddRows(sectionRow("DEVUELTO AL CIERRE DEL RECORRIDO"))
		m.AddRows(tableHeaderRow())
		m.AddRows(itemRows(t.ReturnedItems)...)
	}

	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))
	m.AddRows(totalsRow(t))

	m.AddRows(line.NewRow(3))
	m.AddRows(footerRow(t))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar documento: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(appName string, t *inventory.TransferView) core.Row {
	kind := "TRANSFERENCIA"
	if t.IsSalesRun {
		kind = "SALES RUN"
	}
	return row.New(18).Add(
		col.New(7).Add(
			text.New(appName, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New("Estado: "+statusLabel(t.Status), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(5).Add(
			text.New(kind, props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right,
				Color: colorPrimary, Top: 1,
			}),
			text.New(shortID(t.ID), props.Text{
				Style: fontstyle.Bold, Size: 12, Align: align.Right, Top: 7,
			}),
			text.New("Fecha: "+t.DateInitiated.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 14, Color: colorGray,
			}),
		),
	)
}

func partiesRow(t *inventory.TransferView) core.Row {
	party := func(title, name, staffID string, scope entity.Scope) core.Col {
		return col.New(6).Add(
			text.New(title, props.Text{
				Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1,
			}),
			text.New(nonEmpty(name, staffID), props.Text{
				Style: fontstyle.Bold, Size: 10, Top: 6,
			}),
			text.New("Stock: "+scopeLabel(scope), props.Text{Size: 8, Top: 12, Color: colorGray}),
		)
	}
	return row.New(18).Add(
		party("ENTREGA", t.FromStaffName, t.FromStaffID, t.SourceScope),
		party("RECIBE", t.ToStaffName, t.ToStaffID, t.DestinationScope),
	)
}

func sectionRow(title string) core.Row {
	return row.New(6).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
	))
}

func tableHeaderRow() core.Row {
	h := func(label string, size int, a align.Type) core.Col {
		return col.New(size).Add(text.New(label, props.Text{
			Style: fontstyle.Bold, Size: 8, Align: a, Top: 2, Left: 1, Right: 1,
		}))
	}
	return row.New(8).Add(
		h("Cant.", 2, align.Center),
		h("Producto", 6, align.Left),
		h("Código", 4, align.Left),
	)
}

func itemRows(items []entity.TransferItem) []core.Row {
	result := make([]core.Row, 0, len(items))
	for _, it := range items {
		result = append(result, row.New(7).Add(
			col.New(2).Add(text.New(formatQty(it.Quantity), props.Text{Size: 8, Align: align.Center, Top: 1})),
			col.New(6).Add(text.New(nonEmpty(it.ProductName, "—"), props.Text{Size: 8, Top: 1, Left: 1})),
			col.New(4).Add(text.New(it.ProductID, props.Text{Size: 8, Top: 1, Left: 1, Color: colorGray})),
		))
	}
	return result
}

func totalsRow(t *inventory.TransferView) core.Row {
	label := func(s string) core.Component {
		return text.New(s, props.Text{Style: fontstyle.Bold, Size: 9, Align: align.Right, Right: 2})
	}
	value := func(s string) core.Component {
		return text.New(s, props.Text{Size: 9, Align: align.Right, Right: 1})
	}
	return row.New(14).Add(
		col.New(6),
		col.New(3).Add(
			label("Unidades:"),
			label("Valor:"),
		),
		col.New(3).Add(
			value(formatQty(t.TotalQuantity())),
			value("$"+formatMoney(t.TotalValue)),
		),
	)
}

func footerRow(t *inventory.TransferView) core.Row {
	notes := "Firma entrega: ____________________     Firma recibe: ____________________"
	if t.Notes != "" {
		notes = "Notas: " + t.Notes + "\n\n" + notes
	}
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(t.ID, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New(notes, props.Text{Size: 8, Top: 4, Left: 3, Color: colorGray}),
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

func statusLabel(status string) string {
	switch status {
	case entity.TransferStatusPending:
		return "Pendiente"
	case entity.TransferStatusActive:
		return "En recorrido"
	case entity.TransferStatusCompleted:
		return "Completada"
	case entity.TransferStatusDeclined:
		return "Rechazada"
	case entity.TransferStatusPendingReturn:
		return "Devolución pendiente"
	case entity.TransferStatusReturnCompleted:
		return "Devolución completada"
	}
	return status
}

func scopeLabel(s entity.Scope) string {
	if s.IsCentral() {
		return "Almacén central"
	}
	return "Personal (" + s.StaffID() + ")"
}

func shortID(id string) string {
	if i := strings.IndexByte(id, '-'); i > 0 {
		return strings.ToUpper(id[:i])
	}
	return strings.ToUpper(id)
}

// formatQty quita ceros decimales sobrantes: 12 → "12", 1.500 → "1.5".
func formatQty(d decimal.Decimal) string {
	return d.String()
}

// formatMoney redondea a entero e inserta puntos de miles.
// Ej: 25000 → "25.000", 1000000 → "1.000.000"
func formatMoney(d decimal.Decimal) string {
	s := d.StringFixed(0)
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")
	n := len(s)
	if n > 3 {
		buf := make([]byte, 0, n+n/3)
		for i, c := range []byte(s) {
			if i > 0 && (n-i)%3 == 0 {
				buf = append(buf, '.')
			}
			buf = append(buf, c)
		}
		s = string(buf)
	}
	if neg {
		return "-" + s
	}
	return s
}
