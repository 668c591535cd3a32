// Package xlsx exporta el libro de movimientos a Excel con excelize.
package xlsx

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
)

const (
	sheetMovements = "Movimientos"
	sheetTotals    = "Totales por tipo"
)

var movementHeaders = []string{
	"Fecha", "Tipo", "Transacción", "Lote", "Ubicación", "Cantidad", "Unidad",
	"Referencia", "Tipo referencia", "Registrado por", "Notas",
}

var _ inventory.LedgerExporter = (*ExcelizeLedgerExport)(nil)

// ExcelizeLedgerExport implementa inventory.LedgerExporter.
type ExcelizeLedgerExport struct{}

// NewExcelizeLedgerExport construye el exportador.
func NewExcelizeLedgerExport() *ExcelizeLedgerExport { return &ExcelizeLedgerExport{} }

// ExportMovementsXLSX genera un libro con el detalle de movimientos y los totales por tipo.
func (e *ExcelizeLedgerExport) ExportMovementsXLSX(_ context.Context, productID string, movements []dto.MovementResponse) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true},
		Alignment: &excelize.Alignment{Horizontal: "center"},
	})
	if err != nil {
		return nil, fmt.Errorf("xlsx: estilo: %w", err)
	}
	writeHeaders := func(sheet string, headers []string) error {
		for i, h := range headers {
			cell, err := excelize.CoordinatesToCellName(i+1, 1)
			if err != nil {
				return err
			}
			if err := f.SetCellValue(sheet, cell, h); err != nil {
				return err
			}
			if err := f.SetCellStyle(sheet, cell, cell, headerStyle); err != nil {
				return err
			}
		}
		return nil
	}

	if err := f.SetSheetName("Sheet1", sheetMovements); err != nil {
		return nil, fmt.Errorf("xlsx: hoja: %w", err)
	}
	if err := writeHeaders(sheetMovements, movementHeaders); err != nil {
		return nil, fmt.Errorf("xlsx: encabezados: %w", err)
	}

	type total struct {
		count int
		sum   decimal.Decimal
		unit  string
	}
	totals := map[string]*total{}
	var order []string

	for r, m := range movements {
		row := r + 2
		values := []any{
			m.MovementDate.Format("2006-01-02 15:04"), m.MovementType, m.TransactionID, m.Lot, m.StorageLocation,
			nil, m.Unit, m.ReferenceID, m.ReferenceType, m.CreatedBy, m.Notes,
		}
		for c, v := range values {
			if v == nil {
				continue
			}
			cell, err := excelize.CoordinatesToCellName(c+1, row)
			if err != nil {
				return nil, fmt.Errorf("xlsx: celda: %w", err)
			}
			if err := f.SetCellValue(sheetMovements, cell, v); err != nil {
				return nil, fmt.Errorf("xlsx: celda %s: %w", cell, err)
			}
		}
		// cantidad como número con el texto exacto del decimal
		if err := f.SetCellDefault(sheetMovements, fmt.Sprintf("F%d", row), m.Quantity.String()); err != nil {
			return nil, fmt.Errorf("xlsx: cantidad fila %d: %w", row, err)
		}
		t, ok := totals[m.MovementType]
		if !ok {
			t = &total{unit: m.Unit, sum: decimal.Zero}
			totals[m.MovementType] = t
			order = append(order, m.MovementType)
		}
		t.count++
		t.sum = t.sum.Add(m.Quantity)
	}
	if err := f.AutoFilter(sheetMovements, "A1:K1", []excelize.AutoFilterOptions{}); err != nil {
		return nil, fmt.Errorf("xlsx: autofiltro: %w", err)
	}
	if err := f.SetPanes(sheetMovements, &excelize.Panes{Freeze: true, Split: true, YSplit: 1, TopLeftCell: "A2", ActivePane: "bottomLeft"}); err != nil {
		return nil, fmt.Errorf("xlsx: paneles: %w", err)
	}

	if _, err := f.NewSheet(sheetTotals); err != nil {
		return nil, fmt.Errorf("xlsx: hoja: %w", err)
	}
	if err := writeHeaders(sheetTotals, []string{"Producto", "Tipo", "Movimientos", "Cantidad neta", "Unidad"}); err != nil {
		return nil, fmt.Errorf("xlsx: encabezados: %w", err)
	}
	for i, typ := range order {
		t := totals[typ]
		row := i + 2
		for col, v := range map[string]any{"A": productID, "B": typ, "C": t.count, "E": t.unit} {
			if err := f.SetCellValue(sheetTotals, fmt.Sprintf("%s%d", col, row), v); err != nil {
				return nil, fmt.Errorf("xlsx: totales fila %d: %w", row, err)
			}
		}
		if err := f.SetCellDefault(sheetTotals, fmt.Sprintf("D%d", row), t.sum.String()); err != nil {
			return nil, fmt.Errorf("xlsx: totales fila %d: %w", row, err)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("xlsx: escribir: %w", err)
	}
	return buf.Bytes(), nil
}
