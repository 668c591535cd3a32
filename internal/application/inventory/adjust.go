package inventory

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	invdomain "github.com/jhoicas/pae-compras/internal/domain/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// newTransactionID genera ids legibles del tipo ADJ-20250101093000-1a2b3c4d.
func newTransactionID(prefix string, now time.Time) string {
	return fmt.Sprintf("%s-%s-%s", prefix, now.Format("20060102150405"), strings.ReplaceAll(uuid.New().String(), "-", "")[:8])
}

// lockBatch carga el lote con bloqueo y verifica pertenencia al producto y unidad.
// unit vacío acepta la unidad del lote.
func lockBatch(ctx context.Context, repo repository.BatchRepository, productID, batchID, unit string) (*entity.Batch, error) {
	batch, err := repo.GetByIDForUpdate(ctx, batchID)
	if err != nil {
		return nil, domain.Persistence("cargar lote", err)
	}
	if batch == nil || batch.IsDeleted() {
		return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, batchID)
	}
	if batch.ProductID != productID {
		return nil, fmt.Errorf("%w: lote %s es del producto %s", domain.ErrBatchProductMismatch, batchID, batch.ProductID)
	}
	if unit != "" && unit != batch.Unit {
		return nil, fmt.Errorf("%w: lote en %s, ajuste en %s", domain.ErrUnitMismatch, batch.Unit, unit)
	}
	return batch, nil
}

// AdjustManually suma o resta existencias de un lote por auditoría física.
// Nunca deja el lote en negativo ni por encima de su peso inicial.
func (uc *UseCase) AdjustManually(ctx context.Context, in dto.AdjustInventoryRequest) (*dto.AdjustmentResponse, error) {
	productID := strings.TrimSpace(in.ProductID)
	batchID := strings.TrimSpace(in.InventoryID)
	reason := strings.TrimSpace(in.Reason)
	actor := strings.TrimSpace(in.AdjustedBy)
	if actor == "" {
		actor = DefaultAdjustmentActor
	}

	if in.Quantity.IsZero() {
		return nil, fmt.Errorf("%w: la cantidad del ajuste no puede ser cero", domain.ErrInvalidInput)
	}
	if reason == "" {
		return nil, domain.ErrEmptyReason
	}
	if err := uc.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, fmt.Errorf("%w: inventory_id es obligatorio", domain.ErrInvalidInput)
	}

	now := uc.now()
	txID := newTransactionID("ADJ", now)

	var batch *entity.Batch
	var previous decimal.Decimal
	var mov *entity.InventoryMovement
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		_ repository.IngredientReceiptRepository,
	) error {
		var err error
		batch, err = lockBatch(ctx, batchRepo, productID, batchID, strings.TrimSpace(in.Unit))
		if err != nil {
			return err
		}
		previous = batch.RemainingWeight
		next, err := invdomain.ApplyDelta(batch, in.Quantity)
		if err != nil {
			return err
		}
		batch.RemainingWeight = next
		batch.UpdatedAt = now
		if err := batchRepo.Save(ctx, batch, previous); err != nil {
			return domain.Persistence("actualizar lote", err)
		}

		exp := batch.ExpirationDate
		mov, err = uc.ledger.Append(ctx, movRepo, &entity.InventoryMovement{
			TransactionID:   txID,
			Type:            entity.MovementTypeAdjustment,
			ProductID:       productID,
			InstitutionID:   batch.InstitutionID,
			BatchID:         batch.ID,
			StorageLocation: batch.StorageLocation,
			Lot:             batch.Lot,
			Unit:            batch.Unit,
			ExpirationDate:  &exp,
			Quantity:        in.Quantity,
			ReferenceID:     batch.ID,
			ReferenceType:   entity.ReferenceTypeManualAdjustment,
			MovementDate:    now,
			Notes:           joinNotes("Manual adjustment - "+reason+". Transaction ID: "+txID+".", in.Notes),
			CreatedBy:       actor,
		})
		return err
	})
	if err != nil {
		if isStockRejection(err) {
			uc.log.Warn().Err(err).Str("inventory_id", batchID).Msg("ajuste rechazado")
		}
		return nil, domain.Persistence("ajuste manual", err)
	}
	uc.cache.Invalidate(ctx, productID, batch.InstitutionID)

	uc.log.Info().
		Str("transaction_id", txID).
		Str("inventory_id", batch.ID).
		Str("previous_stock", previous.String()).
		Str("new_stock", batch.RemainingWeight.String()).
		Str("adjusted_by", actor).
		Msg("ajuste manual registrado")

	return &dto.AdjustmentResponse{
		TransactionID:      txID,
		InventoryID:        batch.ID,
		ProductID:          productID,
		InstitutionID:      batch.InstitutionID,
		StorageLocation:    batch.StorageLocation,
		AdjustmentQuantity: in.Quantity,
		Unit:               batch.Unit,
		Reason:             reason,
		Notes:              in.Notes,
		AdjustedBy:         actor,
		PreviousStock:      previous,
		NewStock:           batch.RemainingWeight,
		MovementID:         mov.ID,
		AdjustmentDate:     now,
		CreatedAt:          mov.CreatedAt,
	}, nil
}

// WriteOff da de baja existencias de un lote por vencimiento (EXPIRED) o pérdida (LOSS).
func (uc *UseCase) WriteOff(ctx context.Context, in dto.WriteOffRequest) (*dto.WriteOffResponse, error) {
	productID := strings.TrimSpace(in.ProductID)
	batchID := strings.TrimSpace(in.InventoryID)
	reason := strings.TrimSpace(in.Reason)
	actor := strings.TrimSpace(in.WrittenOffBy)
	movType := entity.MovementType(strings.ToUpper(strings.TrimSpace(in.Type)))

	if movType != entity.MovementTypeExpired && movType != entity.MovementTypeLoss {
		return nil, fmt.Errorf("%w: tipo de baja %q (use EXPIRED o LOSS)", domain.ErrInvalidInput, in.Type)
	}
	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad a dar de baja debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if reason == "" {
		return nil, domain.ErrEmptyReason
	}
	if actor == "" {
		return nil, fmt.Errorf("%w: written_off_by es obligatorio", domain.ErrInvalidInput)
	}
	if err := uc.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}
	if batchID == "" {
		return nil, fmt.Errorf("%w: inventory_id es obligatorio", domain.ErrInvalidInput)
	}

	now := uc.now()
	txID := newTransactionID("WO", now)

	var batch *entity.Batch
	var previous decimal.Decimal
	var mov *entity.InventoryMovement
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		_ repository.IngredientReceiptRepository,
	) error {
		var err error
		batch, err = lockBatch(ctx, batchRepo, productID, batchID, strings.TrimSpace(in.Unit))
		if err != nil {
			return err
		}
		previous = batch.RemainingWeight
		next, err := invdomain.ApplyDelta(batch, in.Quantity.Neg())
		if err != nil {
			return err
		}
		batch.RemainingWeight = next
		batch.UpdatedAt = now
		if err := batchRepo.Save(ctx, batch, previous); err != nil {
			return domain.Persistence("actualizar lote", err)
		}

		exp := batch.ExpirationDate
		mov, err = uc.ledger.Append(ctx, movRepo, &entity.InventoryMovement{
			TransactionID:   txID,
			Type:            movType,
			ProductID:       productID,
			InstitutionID:   batch.InstitutionID,
			BatchID:         batch.ID,
			StorageLocation: batch.StorageLocation,
			Lot:             batch.Lot,
			Unit:            batch.Unit,
			ExpirationDate:  &exp,
			Quantity:        in.Quantity.Neg(),
			ReferenceID:     batch.ID,
			ReferenceType:   entity.ReferenceTypeWriteOff,
			MovementDate:    now,
			Notes:           joinNotes("Write-off ("+movType.String()+") - "+reason+". Transaction ID: "+txID+".", in.Notes),
			CreatedBy:       actor,
		})
		return err
	})
	if err != nil {
		if isStockRejection(err) {
			uc.log.Warn().Err(err).Str("inventory_id", batchID).Msg("baja rechazada")
		}
		return nil, domain.Persistence("baja de inventario", err)
	}
	uc.cache.Invalidate(ctx, productID, batch.InstitutionID)

	uc.log.Info().
		Str("transaction_id", txID).
		Str("inventory_id", batch.ID).
		Str("type", movType.String()).
		Str("quantity", in.Quantity.String()).
		Msg("baja de inventario registrada")

	return &dto.WriteOffResponse{
		TransactionID: txID,
		InventoryID:   batch.ID,
		ProductID:     productID,
		InstitutionID: batch.InstitutionID,
		Type:          movType.String(),
		Quantity:      in.Quantity,
		Unit:          batch.Unit,
		Reason:        reason,
		WrittenOffBy:  actor,
		PreviousStock: previous,
		NewStock:      batch.RemainingWeight,
		MovementID:    mov.ID,
		WriteOffDate:  now,
	}, nil
}

// isStockRejection distingue rechazos por stock de otros fallos (solo para el log).
func isStockRejection(err error) bool {
	return errors.Is(err, domain.ErrNegativeStockRejected) || errors.Is(err, domain.ErrExceedsInitialWeight)
}
