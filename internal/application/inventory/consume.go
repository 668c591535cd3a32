package inventory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	invdomain "github.com/jhoicas/pae-compras/internal/domain/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
)

// ConsumeFIFO descuenta la cantidad pedida de los lotes más antiguos primero.
// Todo ocurre en una transacción: si falta stock o falla una escritura no queda ningún cambio.
func (uc *UseCase) ConsumeFIFO(ctx context.Context, in dto.ConsumeInventoryRequest) (*dto.ConsumptionResponse, error) {
	productID := strings.TrimSpace(in.ProductID)
	reason := strings.TrimSpace(in.Reason)
	consumedBy := strings.TrimSpace(in.ConsumedBy)
	unit := normalizeUnit(in.Unit)

	if !in.Quantity.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad a consumir debe ser mayor que cero", domain.ErrInvalidInput)
	}
	if in.InstitutionID <= 0 {
		return nil, fmt.Errorf("%w: institution_id es obligatorio", domain.ErrInvalidInput)
	}
	if reason == "" {
		return nil, domain.ErrEmptyReason
	}
	if consumedBy == "" {
		return nil, fmt.Errorf("%w: consumed_by es obligatorio", domain.ErrInvalidInput)
	}
	if err := uc.ensureProduct(ctx, productID); err != nil {
		return nil, err
	}

	txID := uuid.New().String()
	consumedAt := uc.now()
	if in.ConsumptionDate != nil && !in.ConsumptionDate.IsZero() {
		consumedAt = in.ConsumptionDate.UTC()
	}
	notes := joinNotes("FIFO consumption - "+reason+". Transaction ID: "+txID+".", in.Notes)

	var plan *invdomain.FIFOPlan
	var movs []*entity.InventoryMovement
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		_ repository.IngredientReceiptRepository,
	) error {
		movs = nil
		batches, err := batchRepo.FindEligible(ctx, repository.BatchFilter{
			ProductID:       productID,
			InstitutionID:   in.InstitutionID,
			StorageLocation: optional(in.StorageLocation),
			ForUpdate:       true,
		})
		if err != nil {
			return domain.Persistence("buscar lotes elegibles", err)
		}
		for _, b := range batches {
			if b.Unit != unit {
				return fmt.Errorf("%w: lote %s en %s, solicitado en %s", domain.ErrUnitMismatch, b.BatchNumber, b.Unit, unit)
			}
		}

		invdomain.SortFIFO(batches)
		plan, err = invdomain.PlanFIFO(in.Quantity, batches)
		if err != nil {
			return err
		}

		for _, d := range plan.Deductions {
			b := d.Batch
			expected := b.RemainingWeight
			b.RemainingWeight = d.RemainingAfter
			b.UpdatedAt = uc.now()
			if err := batchRepo.Save(ctx, b, expected); err != nil {
				return domain.Persistence("actualizar lote", err)
			}
			exp := b.ExpirationDate
			mov, err := uc.ledger.Append(ctx, movRepo, &entity.InventoryMovement{
				TransactionID:   txID,
				Type:            entity.MovementTypeUsage,
				ProductID:       productID,
				InstitutionID:   in.InstitutionID,
				BatchID:         b.ID,
				StorageLocation: b.StorageLocation,
				Lot:             b.Lot,
				Unit:            b.Unit,
				ExpirationDate:  &exp,
				Quantity:        d.Consumed.Neg(),
				ReferenceID:     txID,
				ReferenceType:   entity.ReferenceTypeInventoryConsumption,
				MovementDate:    consumedAt,
				Notes:           notes,
				CreatedBy:       consumedBy,
			})
			if err != nil {
				return err
			}
			movs = append(movs, mov)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Persistence("consumo FIFO", err)
	}
	uc.cache.Invalidate(ctx, productID, in.InstitutionID)

	uc.log.Info().
		Str("transaction_id", txID).
		Str("product_id", productID).
		Int64("institution_id", in.InstitutionID).
		Str("quantity", plan.TotalConsumed.String()).
		Int("batches", len(plan.Deductions)).
		Msg("consumo FIFO registrado")

	resp := &dto.ConsumptionResponse{
		TransactionID:         txID,
		ProductID:             productID,
		InstitutionID:         in.InstitutionID,
		StorageLocation:       strings.TrimSpace(in.StorageLocation),
		TotalQuantityConsumed: plan.TotalConsumed,
		Unit:                  unit,
		ConsumptionDate:       consumedAt,
		Reason:                reason,
		Notes:                 in.Notes,
		ConsumedBy:            consumedBy,
		BatchDetails:          make([]dto.BatchConsumptionDetail, 0, len(plan.Deductions)),
		MovementIDs:           make([]string, 0, len(movs)),
		CreatedAt:             uc.now(),
	}
	for _, d := range plan.Deductions {
		resp.BatchDetails = append(resp.BatchDetails, dto.BatchConsumptionDetail{
			InventoryID:       d.Batch.ID,
			Lot:               d.Batch.Lot,
			ConsumedQuantity:  d.Consumed,
			RemainingQuantity: d.RemainingAfter,
			ExpirationDate:    dto.NewDate(d.Batch.ExpirationDate),
			DateOfAdmission:   d.Batch.DateOfAdmission,
		})
	}
	for _, m := range movs {
		resp.MovementIDs = append(resp.MovementIDs, m.ID)
	}
	return resp, nil
}
