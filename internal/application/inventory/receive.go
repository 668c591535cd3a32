package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// receiptLine datos normalizados para crear un lote y su movimiento RECEIPT.
type receiptLine struct {
	productID     string
	institutionID int64
	location      string
	quantity      decimal.Decimal
	unit          string
	batchNumber   string
	expiration    dto.Date
	threshold     decimal.Decimal
	referenceID   string
	referenceType string
	receivedBy    string
	notes         string
}

func validateReceiptLine(l receiptLine) error {
	switch {
	case l.institutionID <= 0:
		return fmt.Errorf("%w: institution_id es obligatorio", domain.ErrInvalidInput)
	case !l.quantity.IsPositive():
		return fmt.Errorf("%w: la cantidad recibida debe ser mayor que cero", domain.ErrInvalidInput)
	case l.location == "":
		return fmt.Errorf("%w: la ubicación de almacenamiento es obligatoria", domain.ErrInvalidInput)
	case l.batchNumber == "":
		return fmt.Errorf("%w: el número de lote es obligatorio", domain.ErrInvalidInput)
	case l.expiration.IsZero():
		return fmt.Errorf("%w: la fecha de vencimiento es obligatoria", domain.ErrInvalidInput)
	case l.receivedBy == "":
		return fmt.Errorf("%w: received_by es obligatorio", domain.ErrInvalidInput)
	case l.threshold.IsNegative():
		return fmt.Errorf("%w: el umbral mínimo no puede ser negativo", domain.ErrInvalidInput)
	}
	return nil
}

// createBatch inserta el lote y su movimiento RECEIPT con los repositorios de la tx.
func (uc *UseCase) createBatch(
	ctx context.Context,
	batchRepo repository.BatchRepository,
	movRepo repository.InventoryMovementRepository,
	l receiptLine,
	admittedAt time.Time,
	txID string,
) (*entity.Batch, *entity.InventoryMovement, error) {
	now := uc.now()
	if admittedAt.IsZero() {
		admittedAt = now
	}
	batch := &entity.Batch{
		ID:               uuid.New().String(),
		ProductID:        l.productID,
		InstitutionID:    l.institutionID,
		BatchNumber:      l.batchNumber,
		Lot:              l.batchNumber,
		InitialWeight:    l.quantity,
		RemainingWeight:  l.quantity,
		Unit:             l.unit,
		StorageLocation:  l.location,
		DateOfAdmission:  admittedAt,
		ExpirationDate:   l.expiration.Time,
		MinimumThreshold: l.threshold,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := batchRepo.Create(ctx, batch); err != nil {
		return nil, nil, domain.Persistence("crear lote", err)
	}

	exp := batch.ExpirationDate
	mov, err := uc.ledger.Append(ctx, movRepo, &entity.InventoryMovement{
		TransactionID:   txID,
		Type:            entity.MovementTypeReceipt,
		ProductID:       batch.ProductID,
		InstitutionID:   batch.InstitutionID,
		BatchID:         batch.ID,
		StorageLocation: batch.StorageLocation,
		Lot:             batch.Lot,
		Unit:            batch.Unit,
		ExpirationDate:  &exp,
		Quantity:        batch.InitialWeight,
		ReferenceID:     l.referenceID,
		ReferenceType:   l.referenceType,
		MovementDate:    batch.DateOfAdmission,
		Notes:           joinNotes("Inventory receipt - Transaction ID: "+txID+".", l.notes),
		CreatedBy:       l.receivedBy,
	})
	if err != nil {
		return nil, nil, err
	}
	return batch, mov, nil
}

// ReceiveInventory registra la recepción de un lote (con o sin orden de compra):
// crea el lote y un movimiento RECEIPT positivo, ambos en la misma transacción.
func (uc *UseCase) ReceiveInventory(ctx context.Context, in dto.ReceiveInventoryRequest) (*dto.ReceiptResponse, error) {
	line := receiptLine{
		productID:     strings.TrimSpace(in.ProductID),
		institutionID: in.InstitutionID,
		location:      strings.TrimSpace(in.StorageLocation),
		quantity:      in.QuantityReceived,
		unit:          normalizeUnit(in.UnitOfMeasure),
		batchNumber:   strings.TrimSpace(in.BatchNumber),
		expiration:    in.ExpirationDate,
		threshold:     decimal.Zero,
		receivedBy:    strings.TrimSpace(in.ReceivedBy),
		notes:         in.Notes,
		referenceType: entity.ReferenceTypeManualReceipt,
	}
	if in.MinimumThreshold != nil {
		line.threshold = *in.MinimumThreshold
	}
	if po := strings.TrimSpace(in.PurchaseOrderID); po != "" {
		line.referenceID = po
		line.referenceType = entity.ReferenceTypePurchaseOrder
	}
	if err := uc.ensureProduct(ctx, line.productID); err != nil {
		return nil, err
	}
	if err := validateReceiptLine(line); err != nil {
		return nil, err
	}

	var admittedAt time.Time
	if in.ReceptionDate != nil {
		admittedAt = in.ReceptionDate.UTC()
	}
	txID := uuid.New().String()

	var batch *entity.Batch
	var mov *entity.InventoryMovement
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		_ repository.IngredientReceiptRepository,
	) error {
		var err error
		batch, mov, err = uc.createBatch(ctx, batchRepo, movRepo, line, admittedAt, txID)
		return err
	})
	if err != nil {
		return nil, domain.Persistence("recepción de inventario", err)
	}
	uc.cache.Invalidate(ctx, batch.ProductID, batch.InstitutionID)

	uc.log.Info().
		Str("transaction_id", txID).
		Str("product_id", batch.ProductID).
		Int64("institution_id", batch.InstitutionID).
		Str("batch_number", batch.BatchNumber).
		Str("quantity", batch.InitialWeight.String()).
		Msg("lote recibido")

	return &dto.ReceiptResponse{
		TransactionID:    txID,
		InventoryID:      batch.ID,
		ProductID:        batch.ProductID,
		InstitutionID:    batch.InstitutionID,
		StorageLocation:  batch.StorageLocation,
		QuantityReceived: batch.InitialWeight,
		UnitOfMeasure:    batch.Unit,
		ExpirationDate:   dto.NewDate(batch.ExpirationDate),
		BatchNumber:      batch.BatchNumber,
		PurchaseOrderID:  strings.TrimSpace(in.PurchaseOrderID),
		ReceivedBy:       line.receivedBy,
		ReceptionDate:    batch.DateOfAdmission,
		MovementID:       mov.ID,
		Notes:            in.Notes,
		CreatedAt:        mov.CreatedAt,
	}, nil
}

// RegisterIngredientReceipt registra un acta de recepción con uno o más ítems.
// Cada ítem crea un lote y un movimiento RECEIPT referenciando el acta; todo o nada.
func (uc *UseCase) RegisterIngredientReceipt(ctx context.Context, in dto.IngredientReceiptRequest) (*dto.IngredientReceiptResponse, error) {
	if len(in.Items) == 0 {
		return nil, fmt.Errorf("%w: el acta de recepción debe tener al menos un ítem", domain.ErrInvalidInput)
	}
	if strings.TrimSpace(in.DeliveryPersonName) == "" {
		return nil, fmt.Errorf("%w: delivery_person_name es obligatorio", domain.ErrInvalidInput)
	}
	if in.ReceiptDate.IsZero() {
		return nil, fmt.Errorf("%w: receipt_date es obligatorio", domain.ErrInvalidInput)
	}

	receiptID := uuid.New().String()
	lines := make([]receiptLine, 0, len(in.Items))
	seen := make(map[string]bool, len(in.Items))
	for _, item := range in.Items {
		line := receiptLine{
			productID:     strings.TrimSpace(item.ProductID),
			institutionID: in.InstitutionID,
			location:      strings.TrimSpace(item.StorageLocation),
			quantity:      item.Quantity,
			unit:          normalizeUnit(item.Unit),
			batchNumber:   strings.TrimSpace(item.Lot),
			expiration:    item.ExpirationDate,
			threshold:     decimal.Zero,
			referenceID:   receiptID,
			referenceType: entity.ReferenceTypeIngredientReceipt,
			receivedBy:    strings.TrimSpace(in.ReceivedBy),
			notes:         "Ingredient receipt " + receiptID + ". Delivered by " + strings.TrimSpace(in.DeliveryPersonName) + ".",
		}
		if err := uc.ensureProduct(ctx, line.productID); err != nil {
			return nil, err
		}
		if err := validateReceiptLine(line); err != nil {
			return nil, err
		}
		key := line.productID + "|" + line.batchNumber
		if seen[key] {
			return nil, fmt.Errorf("%w: lote %s repetido en el acta", domain.ErrDuplicateBatch, line.batchNumber)
		}
		seen[key] = true
		lines = append(lines, line)
	}

	now := uc.now()
	receipt := &entity.IngredientReceipt{
		ID:                 receiptID,
		InstitutionID:      in.InstitutionID,
		PurchaseOrderID:    strings.TrimSpace(in.PurchaseOrderID),
		ReceiptDate:        in.ReceiptDate.Time,
		DeliveryPersonName: strings.TrimSpace(in.DeliveryPersonName),
		CreatedBy:          strings.TrimSpace(in.ReceivedBy),
		CreatedAt:          now,
	}
	for _, l := range lines {
		receipt.Items = append(receipt.Items, entity.IngredientReceiptItem{
			ProductID:       l.productID,
			Quantity:        l.quantity,
			Unit:            l.unit,
			StorageLocation: l.location,
			Lot:             l.batchNumber,
			ExpirationDate:  l.expiration.Time,
		})
	}

	var batchIDs, movementIDs []string
	err := uc.txRunner.Run(ctx, func(
		batchRepo repository.BatchRepository,
		movRepo repository.InventoryMovementRepository,
		receiptRepo repository.IngredientReceiptRepository,
	) error {
		batchIDs, movementIDs = nil, nil
		if err := receiptRepo.Create(ctx, receipt); err != nil {
			return domain.Persistence("crear acta de recepción", err)
		}
		for _, l := range lines {
			batch, mov, err := uc.createBatch(ctx, batchRepo, movRepo, l, receipt.ReceiptDate, receiptID)
			if err != nil {
				return err
			}
			batchIDs = append(batchIDs, batch.ID)
			movementIDs = append(movementIDs, mov.ID)
		}
		return nil
	})
	if err != nil {
		return nil, domain.Persistence("acta de recepción", err)
	}
	for _, l := range lines {
		uc.cache.Invalidate(ctx, l.productID, l.institutionID)
	}

	uc.log.Info().
		Str("receipt_id", receiptID).
		Int64("institution_id", in.InstitutionID).
		Int("items", len(lines)).
		Msg("acta de recepción registrada")

	resp := &dto.IngredientReceiptResponse{
		ID:                 receiptID,
		InstitutionID:      receipt.InstitutionID,
		PurchaseOrderID:    receipt.PurchaseOrderID,
		ReceiptDate:        dto.NewDate(receipt.ReceiptDate),
		DeliveryPersonName: receipt.DeliveryPersonName,
		BatchIDs:           batchIDs,
		MovementIDs:        movementIDs,
		CreatedBy:          receipt.CreatedBy,
		CreatedAt:          receipt.CreatedAt,
	}
	for _, l := range lines {
		resp.Items = append(resp.Items, dto.IngredientReceiptItemRequest{
			ProductID:       l.productID,
			Quantity:        l.quantity,
			Unit:            l.unit,
			StorageLocation: l.location,
			Lot:             l.batchNumber,
			ExpirationDate:  l.expiration,
		})
	}
	return resp, nil
}
