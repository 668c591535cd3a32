// Package pdf genera el kardex de stock (resumen por lotes + últimos movimientos) con Maroto v2.
//
// Layout de la página A4:
//
//	┌─────────────────────────────────────────────────────────────┐
//	│  HEADER: Producto + Institución  │  Fecha de generación     │
//	│  RESUMEN: Stock total / N° lotes / Lote más antiguo          │
//	│  ─────────────────────────────────────────────────────────  │
//	│  LOTES (FIFO): Lote | Ubicación | Ingreso | Vence | Saldo    │
//	│  ─────────────────────────────────────────────────────────  │
//	│  MOVIMIENTOS: Fecha | Tipo | Lote | Cantidad | Usuario        │
//	│  FOOTER: QR de verificación                                  │
//	└─────────────────────────────────────────────────────────────┘
package pdf

import (
	"context"
	"fmt"
	"time"

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

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
)

// ── Paleta de colores ─────────────────────────────────────────────────────────

var (
	colorPrimary = &props.Color{Red: 0, Green: 102, Blue: 68}
	colorGray    = &props.Color{Red: 100, Green: 100, Blue: 100}
	colorAlert   = &props.Color{Red: 180, Green: 30, Blue: 30}
)

var _ inventory.StockReportGenerator = (*MarotoStockReport)(nil)

// MarotoStockReport implementa inventory.StockReportGenerator usando Maroto v2.
type MarotoStockReport struct {
	now func() time.Time
}

// NewMarotoStockReport construye el generador.
func NewMarotoStockReport() *MarotoStockReport {
	return &MarotoStockReport{now: time.Now}
}

// GenerateStockSummaryPDF genera el kardex y devuelve sus bytes.
func (g *MarotoStockReport) GenerateStockSummaryPDF(
	_ context.Context,
	summary *dto.StockSummaryResponse,
	movements []dto.MovementResponse,
) ([]byte, error) {
	generatedAt := g.now()
	cfg := config.NewBuilder().
		WithPageSize(pagesize.A4).
		WithLeftMargin(10).WithRightMargin(10).
		WithTopMargin(10).WithBottomMargin(10).
		WithDefaultFont(&props.Font{Family: "helvetica", Size: 9}).
		WithTitle("Kardex de inventario PAE", true).
		Build()

	m := maroto.New(cfg)

	m.AddRows(headerRow(summary, generatedAt))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.5}))
	m.AddRows(summaryRow(summary))
	m.AddRows(line.NewRow(1, props.Line{Color: colorPrimary, Thickness: 0.3}))

	m.AddRows(sectionTitle("LOTES DISPONIBLES (ORDEN FIFO)"))
	m.AddRows(batchHeaderRow())
	m.AddRows(batchRows(summary)...)

	if len(movements) > 0 {
		m.AddRows(line.NewRow(3))
		m.AddRows(sectionTitle("ÚLTIMOS MOVIMIENTOS"))
		m.AddRows(movementHeaderRow())
		m.AddRows(movementRows(movements)...)
	}

	m.AddRows(line.NewRow(3))
	m.AddRows(line.NewRow(1, props.Line{Color: colorGray, Thickness: 0.3}))
	m.AddRows(footerRow(summary, generatedAt))

	doc, err := m.Generate()
	if err != nil {
		return nil, fmt.Errorf("pdf: generar kardex: %w", err)
	}
	return doc.GetBytes(), nil
}

// ── Secciones ─────────────────────────────────────────────────────────────────

func headerRow(s *dto.StockSummaryResponse, at time.Time) core.Row {
	location := "Todas las ubicaciones"
	if s.StorageLocation != "" {
		location = "Ubicación: " + s.StorageLocation
	}
	return row.New(18).Add(
		col.New(8).Add(
			text.New("Producto "+s.ProductID, props.Text{
				Style: fontstyle.Bold, Size: 13, Color: colorPrimary, Top: 1,
			}),
			text.New(fmt.Sprintf("Institución %d   |   %s", s.InstitutionID, location), props.Text{
				Size: 9, Top: 9, Color: colorGray,
			}),
		),
		col.New(4).Add(
			text.New("KARDEX DE INVENTARIO", props.Text{
				Style: fontstyle.Bold, Size: 8, Align: align.Right, Color: colorPrimary, Top: 1,
			}),
			text.New("Generado: "+at.Format("02/01/2006 15:04"), props.Text{
				Size: 8, Align: align.Right, Top: 9, Color: colorGray,
			}),
		),
	)
}

func summaryRow(s *dto.StockSummaryResponse) core.Row {
	oldest := "—"
	if s.OldestBatchDate != nil {
		oldest = s.OldestBatchDate.Format("02/01/2006")
	}
	cell := func(label, value string) core.Col {
		return col.New(4).Add(
			text.New(label, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 1}),
			text.New(value, props.Text{Size: 11, Top: 6}),
		)
	}
	return row.New(14).Add(
		cell("STOCK DISPONIBLE", s.TotalAvailableStock.String()+" "+s.Unit),
		cell("LOTES", fmt.Sprintf("%d", s.NumberOfBatches)),
		cell("LOTE MÁS ANTIGUO", oldest),
	)
}

func sectionTitle(title string) core.Row {
	return row.New(7).Add(col.New(12).Add(
		text.New(title, props.Text{Style: fontstyle.Bold, Size: 8, Color: colorPrimary, Top: 2}),
	))
}

func headerCell(label string, size int, a align.Type) core.Col {
	return col.New(size).Add(text.New(label, props.Text{
		Style: fontstyle.Bold, Size: 8, Align: a, Top: 1, Left: 1, Right: 1,
	}))
}

func batchHeaderRow() core.Row {
	return row.New(6).Add(
		headerCell("Lote", 2, align.Left),
		headerCell("Ubicación", 3, align.Left),
		headerCell("Ingreso", 2, align.Center),
		headerCell("Vence", 2, align.Center),
		headerCell("Saldo / Inicial", 3, align.Right),
	)
}

// batchRows: una fila por lote; en rojo los que están bajo el umbral mínimo.
func batchRows(s *dto.StockSummaryResponse) []core.Row {
	if len(s.Batches) == 0 {
		return []core.Row{row.New(7).Add(col.New(12).Add(
			text.New("Sin existencias disponibles.", props.Text{Size: 8, Color: colorGray, Top: 1, Left: 1}),
		))}
	}
	out := make([]core.Row, 0, len(s.Batches))
	for _, b := range s.Batches {
		style := props.Text{Size: 8, Top: 1, Left: 1, Right: 1}
		if b.BelowThreshold {
			style.Color = colorAlert
		}
		cell := func(v string, size int, a align.Type) core.Col {
			p := style
			p.Align = a
			return col.New(size).Add(text.New(v, p))
		}
		out = append(out, row.New(6).Add(
			cell(b.Lot, 2, align.Left),
			cell(b.StorageLocation, 3, align.Left),
			cell(b.DateOfAdmission.Format("02/01/2006"), 2, align.Center),
			cell(b.ExpirationDate.Format("02/01/2006"), 2, align.Center),
			cell(b.RemainingWeight.String()+" / "+b.InitialWeight.String()+" "+b.Unit, 3, align.Right),
		))
	}
	return out
}

func movementHeaderRow() core.Row {
	return row.New(6).Add(
		headerCell("Fecha", 2, align.Left),
		headerCell("Tipo", 2, align.Left),
		headerCell("Lote", 2, align.Left),
		headerCell("Cantidad", 2, align.Right),
		headerCell("Registrado por", 4, align.Left),
	)
}

func movementRows(list []dto.MovementResponse) []core.Row {
	out := make([]core.Row, 0, len(list))
	for _, mv := range list {
		p := props.Text{Size: 7.5, Top: 1, Left: 1, Right: 1}
		qty := p
		qty.Align = align.Right
		if mv.Quantity.IsNegative() {
			qty.Color = colorAlert
		}
		out = append(out, row.New(5).Add(
			col.New(2).Add(text.New(mv.MovementDate.Format("02/01/2006"), p)),
			col.New(2).Add(text.New(mv.MovementType, p)),
			col.New(2).Add(text.New(nonEmpty(mv.Lot, "—"), p)),
			col.New(2).Add(text.New(mv.Quantity.String()+" "+mv.Unit, qty)),
			col.New(4).Add(text.New(mv.CreatedBy, p)),
		))
	}
	return out
}

// footerRow: QR con los datos del corte para verificación en bodega.
func footerRow(s *dto.StockSummaryResponse, at time.Time) core.Row {
	qr := fmt.Sprintf("PAE|%s|%d|%s|%s|%s", s.ProductID, s.InstitutionID, s.StorageLocation,
		s.TotalAvailableStock.String(), at.UTC().Format(time.RFC3339))
	return row.New(40).Add(
		col.New(3).Add(code.NewQr(qr, props.Rect{Percent: 95, Center: true})),
		col.New(9).Add(
			text.New("Corte de inventario generado desde el libro de movimientos.", props.Text{
				Size: 8, Top: 4, Left: 3, Color: colorGray,
			}),
			text.New("Los lotes se consumen en orden de ingreso (FIFO).", props.Text{
				Size: 8, Top: 10, Left: 3, Color: colorGray,
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
