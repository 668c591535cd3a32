package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jhoicas/pae-compras/internal/application/dto"
)

// ReportMovementsLimit movimientos recientes incluidos en el kardex.
const ReportMovementsLimit = 50

// ErrReportsDisabled no hay generador de reportes configurado.
var ErrReportsDisabled = errors.New("inventory: generador de reportes no configurado")

// ExportStockSummaryPDF arma el kardex del producto: resumen por lotes más los últimos movimientos de la institución.
func (uc *UseCase) ExportStockSummaryPDF(ctx context.Context, q dto.StockQuery) ([]byte, error) {
	if uc.reports == nil {
		return nil, ErrReportsDisabled
	}
	summary, err := uc.GetStockSummary(ctx, q)
	if err != nil {
		return nil, err
	}
	institution := summary.InstitutionID
	recent, err := uc.ListMovements(ctx, summary.ProductID, dto.MovementQuery{
		InstitutionID: &institution,
		PageRequest:   dto.PageRequest{Limit: ReportMovementsLimit},
	})
	if err != nil {
		return nil, err
	}
	doc, err := uc.reports.GenerateStockSummaryPDF(ctx, summary, recent.Items)
	if err != nil {
		uc.log.Error().Err(err).Str("product_id", summary.ProductID).Msg("no se pudo generar el kardex")
		return nil, fmt.Errorf("generar kardex: %w", err)
	}
	return doc, nil
}

// ExportMovementsXLSX exporta a Excel todos los movimientos del filtro de ListMovements.
// Limit y Offset de q se ignoran: se recorren todas las páginas.
func (uc *UseCase) ExportMovementsXLSX(ctx context.Context, productID string, q dto.MovementQuery) ([]byte, error) {
	if uc.exporter == nil {
		return nil, ErrReportsDisabled
	}
	var movements []dto.MovementResponse
	q.PageRequest = dto.PageRequest{Limit: dto.MaxPageLimit}
	for {
		page, err := uc.ListMovements(ctx, productID, q)
		if err != nil {
			return nil, err
		}
		movements = append(movements, page.Items...)
		if len(page.Items) < q.Limit || len(movements) >= page.Page.Total {
			break
		}
		q.Offset += q.Limit
	}
	doc, err := uc.exporter.ExportMovementsXLSX(ctx, strings.TrimSpace(productID), movements)
	if err != nil {
		uc.log.Error().Err(err).Str("product_id", productID).Msg("no se pudo exportar el libro")
		return nil, fmt.Errorf("exportar movimientos: %w", err)
	}
	return doc, nil
}
