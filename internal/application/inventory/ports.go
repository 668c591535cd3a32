package inventory

import (
	"context"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción, pasando repositorios atados a esa tx.
// Garantiza atomicidad lote + libro para el motor de inventario: si fn falla no queda nada escrito.
type TxRunner interface {
	Run(ctx context.Context, fn func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		receiptRepo repository.IngredientReceiptRepository,
	) error) error
}

// StockCache caché opcional de resúmenes de stock por producto+institución.
// Se invalida después de cada operación que modifica lotes.
//
// Cada Invalidate avanza la generación del producto+institución. El lector toma la
// generación antes de leer los lotes y SetSummary descarta la escritura si cambió,
// así un resumen leído antes de una mutación nunca queda en caché después de ella.
type StockCache interface {
	// Generation ok=false si la caché no está disponible; en ese caso no se escribe.
	Generation(ctx context.Context, productID string, institutionID int64) (gen int64, ok bool)
	GetSummary(ctx context.Context, productID string, institutionID int64, location string) (*dto.StockSummaryResponse, bool)
	SetSummary(ctx context.Context, summary *dto.StockSummaryResponse, gen int64)
	Invalidate(ctx context.Context, productID string, institutionID int64)
}

type noopStockCache struct{}

func (noopStockCache) Generation(context.Context, string, int64) (int64, bool) { return 0, false }
func (noopStockCache) GetSummary(context.Context, string, int64, string) (*dto.StockSummaryResponse, bool) {
	return nil, false
}
func (noopStockCache) SetSummary(context.Context, *dto.StockSummaryResponse, int64) {}
func (noopStockCache) Invalidate(context.Context, string, int64)                    {}

// StockReportGenerator genera el kardex (PDF) de un resumen de stock y sus últimos movimientos.
type StockReportGenerator interface {
	GenerateStockSummaryPDF(ctx context.Context, summary *dto.StockSummaryResponse, movements []dto.MovementResponse) ([]byte, error)
}

// LedgerExporter exporta movimientos del libro a una hoja de cálculo.
type LedgerExporter interface {
	ExportMovementsXLSX(ctx context.Context, productID string, movements []dto.MovementResponse) ([]byte, error)
}
