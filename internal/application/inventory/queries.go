package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	invdomain "github.com/jhoicas/pae-compras/internal/domain/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

func (uc *UseCase) validateStockQuery(ctx context.Context, q *dto.StockQuery) error {
	q.ProductID = strings.TrimSpace(q.ProductID)
	q.StorageLocation = strings.TrimSpace(q.StorageLocation)
	q.Lot = strings.TrimSpace(q.Lot)
	if q.InstitutionID <= 0 {
		return fmt.Errorf("%w: institution_id es obligatorio", domain.ErrInvalidInput)
	}
	return uc.ensureProduct(ctx, q.ProductID)
}

// GetCurrentStock stock derivado del libro (suma de movimientos). Nunca se informa negativo.
func (uc *UseCase) GetCurrentStock(ctx context.Context, q dto.StockQuery) (*dto.CurrentStockResponse, error) {
	if err := uc.validateStockQuery(ctx, &q); err != nil {
		return nil, err
	}
	institution := q.InstitutionID
	sum, err := uc.ledger.SumQuantity(ctx, uc.movements, repository.MovementFilter{
		ProductID:       q.ProductID,
		InstitutionID:   &institution,
		StorageLocation: optional(q.StorageLocation),
		Lot:             optional(q.Lot),
	})
	if err != nil {
		return nil, err
	}
	if sum.IsNegative() {
		uc.log.Warn().
			Str("product_id", q.ProductID).
			Int64("institution_id", q.InstitutionID).
			Str("ledger_sum", sum.String()).
			Msg("suma del libro negativa, se informa 0")
		sum = decimal.Zero
	}
	return &dto.CurrentStockResponse{
		ProductID:       q.ProductID,
		InstitutionID:   q.InstitutionID,
		StorageLocation: q.StorageLocation,
		Lot:             q.Lot,
		CurrentStock:    sum,
	}, nil
}

// GetStockSummary resumen por lotes elegibles, en orden FIFO. Usa la caché si está configurada.
func (uc *UseCase) GetStockSummary(ctx context.Context, q dto.StockQuery) (*dto.StockSummaryResponse, error) {
	if err := uc.validateStockQuery(ctx, &q); err != nil {
		return nil, err
	}
	if cached, ok := uc.cache.GetSummary(ctx, q.ProductID, q.InstitutionID, q.StorageLocation); ok {
		return cached, nil
	}
	gen, cacheable := uc.cache.Generation(ctx, q.ProductID, q.InstitutionID)

	batches, err := uc.batches.FindEligible(ctx, repository.BatchFilter{
		ProductID:       q.ProductID,
		InstitutionID:   q.InstitutionID,
		StorageLocation: optional(q.StorageLocation),
	})
	if err != nil {
		return nil, domain.Persistence("buscar lotes elegibles", err)
	}
	invdomain.SortFIFO(batches)

	summary := buildStockSummary(q, batches)
	if cacheable {
		uc.cache.SetSummary(ctx, summary, gen)
	}
	return summary, nil
}

func buildStockSummary(q dto.StockQuery, batches []*entity.Batch) *dto.StockSummaryResponse {
	out := &dto.StockSummaryResponse{
		ProductID:           q.ProductID,
		InstitutionID:       q.InstitutionID,
		StorageLocation:     q.StorageLocation,
		TotalAvailableStock: decimal.Zero,
		Batches:             make([]dto.BatchDetail, 0, len(batches)),
		Unit:                entity.DefaultUnit,
	}
	for i, b := range batches {
		if i == 0 {
			out.Unit = b.Unit
			oldest := b.DateOfAdmission
			out.OldestBatchDate = &oldest
		}
		newest := b.DateOfAdmission
		out.NewestBatchDate = &newest
		out.TotalAvailableStock = out.TotalAvailableStock.Add(b.RemainingWeight)
		out.Batches = append(out.Batches, toBatchDetail(b))
	}
	out.NumberOfBatches = len(out.Batches)
	return out
}

// ListMovements movimientos del producto, más recientes primero, con el total del filtro.
func (uc *UseCase) ListMovements(ctx context.Context, productID string, q dto.MovementQuery) (*dto.MovementPage, error) {
	productID = strings.TrimSpace(productID)
	if err := uc.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	filter := repository.MovementFilter{ProductID: productID, InstitutionID: q.InstitutionID}
	if t := strings.TrimSpace(q.MovementType); t != "" {
		mt := entity.MovementType(strings.ToUpper(t))
		if !mt.IsValid() {
			return nil, fmt.Errorf("%w: movement_type %q", domain.ErrInvalidInput, t)
		}
		filter.Type = &mt
	}
	q.DefaultPage()
	return uc.movementPage(ctx, filter, q.PageRequest)
}

// ListConsumptionHistory solo movimientos USAGE del producto.
func (uc *UseCase) ListConsumptionHistory(ctx context.Context, productID string, q dto.MovementQuery) (*dto.MovementPage, error) {
	q.MovementType = entity.MovementTypeUsage.String()
	return uc.ListMovements(ctx, productID, q)
}

// ListBatchMovements historial de un lote: su recepción, consumos, ajustes y bajas.
func (uc *UseCase) ListBatchMovements(ctx context.Context, inventoryID string, page dto.PageRequest) (*dto.MovementPage, error) {
	inventoryID = strings.TrimSpace(inventoryID)
	if inventoryID == "" {
		return nil, fmt.Errorf("%w: inventory_id es obligatorio", domain.ErrInvalidInput)
	}
	batch, err := uc.batches.GetByID(ctx, inventoryID)
	if err != nil {
		return nil, domain.Persistence("cargar lote", err)
	}
	if batch.IsDeleted() {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, inventoryID)
	}
	institution := batch.InstitutionID
	page.DefaultPage()
	return uc.movementPage(ctx, repository.MovementFilter{
		ProductID:     batch.ProductID,
		InstitutionID: &institution,
		BatchID:       &batch.ID,
	}, page)
}

func (uc *UseCase) movementPage(ctx context.Context, filter repository.MovementFilter, page dto.PageRequest) (*dto.MovementPage, error) {
	filter.Limit, filter.Offset = page.Limit, page.Offset
	list, err := uc.ledger.List(ctx, uc.movements, filter)
	if err != nil {
		return nil, err
	}
	total, err := uc.ledger.Count(ctx, uc.movements, filter)
	if err != nil {
		return nil, err
	}
	return &dto.MovementPage{
		Items: toMovementResponses(list),
		Page:  dto.PageResponse{Limit: page.Limit, Offset: page.Offset, Total: total},
	}, nil
}

// GetMovement un movimiento del libro por id.
func (uc *UseCase) GetMovement(ctx context.Context, id string) (*dto.MovementResponse, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, fmt.Errorf("%w: movement_id es obligatorio", domain.ErrInvalidInput)
	}
	m, err := uc.movements.GetByID(ctx, id)
	if err != nil {
		return nil, domain.Persistence("cargar movimiento", err)
	}
	out := toMovementResponse(m)
	return &out, nil
}

// Reconcile compara la suma del libro con la suma de remanentes de los lotes.
// Con datos íntegros ambas coinciden para cualquier producto+institución(+ubicación).
func (uc *UseCase) Reconcile(ctx context.Context, q dto.StockQuery) (*dto.ReconciliationResponse, error) {
	if err := uc.validateStockQuery(ctx, &q); err != nil {
		return nil, err
	}
	institution := q.InstitutionID
	ledgerSum, err := uc.ledger.SumQuantity(ctx, uc.movements, repository.MovementFilter{
		ProductID:       q.ProductID,
		InstitutionID:   &institution,
		StorageLocation: optional(q.StorageLocation),
	})
	if err != nil {
		return nil, err
	}
	batches, err := uc.batches.FindEligible(ctx, repository.BatchFilter{
		ProductID:       q.ProductID,
		InstitutionID:   q.InstitutionID,
		StorageLocation: optional(q.StorageLocation),
	})
	if err != nil {
		return nil, domain.Persistence("buscar lotes elegibles", err)
	}
	batchSum := decimal.Zero
	for _, b := range batches {
		batchSum = batchSum.Add(b.RemainingWeight)
	}

	diff := ledgerSum.Sub(batchSum)
	resp := &dto.ReconciliationResponse{
		ProductID:       q.ProductID,
		InstitutionID:   q.InstitutionID,
		StorageLocation: q.StorageLocation,
		LedgerStock:     ledgerSum,
		BatchStock:      batchSum,
		Difference:      diff,
		Consistent:      diff.IsZero(),
	}
	if !resp.Consistent {
		uc.log.Warn().
			Str("product_id", q.ProductID).
			Int64("institution_id", q.InstitutionID).
			Str("storage_location", q.StorageLocation).
			Str("ledger_stock", ledgerSum.String()).
			Str("batch_stock", batchSum.String()).
			Msg("libro y lotes no concilian")
	}
	return resp, nil
}
