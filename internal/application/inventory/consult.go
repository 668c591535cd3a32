package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ConsultInventory lista lotes de varios productos, admisión más reciente primero.
// Incluye lotes agotados. El resumen se calcula sobre los lotes de la página.
func (uc *UseCase) ConsultInventory(ctx context.Context, q dto.InventoryConsultQuery) (*dto.InventoryConsultResponse, error) {
	if q.InstitutionID != nil && *q.InstitutionID <= 0 {
		return nil, fmt.Errorf("%w: institution_id inválido", domain.ErrInvalidInput)
	}
	query := repository.BatchQuery{
		InstitutionID:  q.InstitutionID,
		BelowThreshold: q.BelowThreshold,
	}
	if productID := strings.TrimSpace(q.ProductID); productID != "" {
		if err := uc.ensureProduct(ctx, productID); err != nil {
			return nil, err
		}
		query.ProductID = &productID
	}
	today := dto.NewDate(uc.now()).Time
	if !q.ShowExpired {
		query.NotExpiredAt = &today
	}
	q.DefaultPage()
	query.Limit, query.Offset = q.Limit, q.Offset

	batches, total, err := uc.batches.Search(ctx, query)
	if err != nil {
		return nil, domain.Persistence("consultar inventario", err)
	}

	out := &dto.InventoryConsultResponse{
		Items: make([]dto.InventoryItem, 0, len(batches)),
		Page:  dto.PageResponse{Limit: q.Limit, Offset: q.Offset, Total: total},
		Summary: dto.InventoryConsultSummary{
			TotalItems:    len(batches),
			TotalQuantity: decimal.Zero,
		},
	}
	for _, b := range batches {
		item := toInventoryItem(b, today)
		if item.BelowThreshold {
			out.Summary.BelowThresholdCount++
		}
		if item.Expired {
			out.Summary.ExpiredCount++
		}
		out.Summary.TotalQuantity = out.Summary.TotalQuantity.Add(b.RemainingWeight)
		out.Items = append(out.Items, item)
	}
	return out, nil
}

// UpdateMinimumThreshold cambia el umbral mínimo de un lote. El remanente no se modifica
// y no se registra movimiento.
func (uc *UseCase) UpdateMinimumThreshold(ctx context.Context, inventoryID string, in dto.UpdateThresholdRequest) (*dto.ThresholdResponse, error) {
	inventoryID = strings.TrimSpace(inventoryID)
	if inventoryID == "" {
		return nil, fmt.Errorf("%w: inventory_id es obligatorio", domain.ErrInvalidInput)
	}
	if in.MinimumThreshold.IsNegative() {
		return nil, fmt.Errorf("%w: minimum_threshold no puede ser negativo", domain.ErrInvalidInput)
	}

	now := uc.now()
	var batch *entity.Batch
	var previous decimal.Decimal
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		_ repository.InventoryMovementRepository,
		_ repository.IngredientReceiptRepository,
	) error {
		var err error
		batch, err = batchRepo.GetByIDForUpdate(ctx, inventoryID)
		if err != nil {
			return domain.Persistence("cargar lote", err)
		}
		if batch.IsDeleted() {
			return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, inventoryID)
		}
		previous = batch.MinimumThreshold
		batch.MinimumThreshold = in.MinimumThreshold
		batch.UpdatedAt = now
		if err := batchRepo.UpdateThreshold(ctx, batch.ID, in.MinimumThreshold, now); err != nil {
			return domain.Persistence("actualizar umbral", err)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Persistence("actualizar umbral", err)
	}
	uc.cache.Invalidate(ctx, batch.ProductID, batch.InstitutionID)

	uc.log.Info().
		Str("inventory_id", batch.ID).
		Str("product_id", batch.ProductID).
		Str("previous_threshold", previous.String()).
		Str("minimum_threshold", batch.MinimumThreshold.String()).
		Str("updated_by", strings.TrimSpace(in.UpdatedBy)).
		Msg("umbral mínimo actualizado")

	return &dto.ThresholdResponse{
		InventoryID:       batch.ID,
		ProductID:         batch.ProductID,
		InstitutionID:     batch.InstitutionID,
		PreviousThreshold: previous,
		MinimumThreshold:  batch.MinimumThreshold,
		RemainingWeight:   batch.RemainingWeight,
		BelowThreshold:    batch.BelowThreshold(),
		UpdatedAt:         now,
	}, nil
}
