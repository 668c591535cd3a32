package xlsx

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"github.com/jhoicas/pae-compras/internal/application/dto"
)

func TestExportMovementsXLSX(t *testing.T) {
	at := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	movements := []dto.MovementResponse{
		{MovementType: "USAGE", Lot: "A", Quantity: decimal.RequireFromString("-3.5"), Unit: "kg", MovementDate: at, CreatedBy: "cocina"},
		{MovementType: "USAGE", Lot: "B", Quantity: decimal.RequireFromString("-1.5"), Unit: "kg", MovementDate: at, CreatedBy: "cocina"},
		{MovementType: "RECEIPT", Lot: "A", Quantity: decimal.NewFromInt(5), Unit: "kg", MovementDate: at.AddDate(0, 0, -2), CreatedBy: "almacenista"},
	}

	raw, err := NewExcelizeLedgerExport().ExportMovementsXLSX(context.Background(), "arroz", movements)
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	assert.Equal(t, []string{sheetMovements, sheetTotals}, f.GetSheetList())

	lot, err := f.GetCellValue(sheetMovements, "D3")
	require.NoError(t, err)
	assert.Equal(t, "B", lot)

	typ, _ := f.GetCellValue(sheetTotals, "B2")
	count, _ := f.GetCellValue(sheetTotals, "C2")
	sum, _ := f.GetCellValue(sheetTotals, "D2")
	assert.Equal(t, "USAGE", typ)
	assert.Equal(t, "2", count)
	assert.Equal(t, "-5", sum)
}

func TestExportMovementsXLSX_TotalesExactos(t *testing.T) {
	at := time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)
	var movements []dto.MovementResponse
	for _, q := range []string{"-0.1", "-0.2", "-0.7"} {
		movements = append(movements, dto.MovementResponse{
			MovementType: "USAGE", Quantity: decimal.RequireFromString(q), Unit: "kg", MovementDate: at,
		})
	}
	movements = append(movements, dto.MovementResponse{
		MovementType: "ADJUSTMENT", Quantity: decimal.RequireFromString("0.3"), Unit: "kg", MovementDate: at,
	})

	raw, err := NewExcelizeLedgerExport().ExportMovementsXLSX(context.Background(), "arroz", movements)
	require.NoError(t, err)
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	require.NoError(t, err)
	defer f.Close()

	qty, err := f.GetCellValue(sheetMovements, "F3")
	require.NoError(t, err)
	assert.Equal(t, "-0.2", qty)

	usage, err := f.GetCellValue(sheetTotals, "D2")
	require.NoError(t, err)
	assert.Equal(t, "-1", usage)
	adjustment, err := f.GetCellValue(sheetTotals, "D3")
	require.NoError(t, err)
	assert.Equal(t, "0.3", adjustment)

	cellType, err := f.GetCellType(sheetTotals, "D2")
	require.NoError(t, err)
	assert.NotEqual(t, excelize.CellTypeInlineString, cellType, "el total se guarda como número")
}
