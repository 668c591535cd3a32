package inventory

import (
	"time"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
)

func toBatchDetail(b *entity.Batch) dto.BatchDetail {
	return dto.BatchDetail{
		InventoryID:      b.ID,
		Lot:              b.Lot,
		StorageLocation:  b.StorageLocation,
		RemainingWeight:  b.RemainingWeight,
		InitialWeight:    b.InitialWeight,
		Unit:             b.Unit,
		DateOfAdmission:  b.DateOfAdmission,
		ExpirationDate:   dto.NewDate(b.ExpirationDate),
		MinimumThreshold: b.MinimumThreshold,
		BelowThreshold:   b.BelowThreshold(),
	}
}

func toInventoryItem(b *entity.Batch, today time.Time) dto.InventoryItem {
	return dto.InventoryItem{
		BatchDetail:   toBatchDetail(b),
		ProductID:     b.ProductID,
		InstitutionID: b.InstitutionID,
		BatchNumber:   b.BatchNumber,
		Expired:       b.IsExpiredAt(today),
	}
}

func toMovementResponse(m *entity.InventoryMovement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:              m.ID,
		TransactionID:   m.TransactionID,
		MovementType:    m.Type.String(),
		ProductID:       m.ProductID,
		InstitutionID:   m.InstitutionID,
		InventoryID:     m.BatchID,
		StorageLocation: m.StorageLocation,
		Quantity:        m.Quantity,
		Unit:            m.Unit,
		Lot:             m.Lot,
		ReferenceID:     m.ReferenceID,
		ReferenceType:   m.ReferenceType,
		MovementDate:    m.MovementDate,
		Notes:           m.Notes,
		CreatedBy:       m.CreatedBy,
		CreatedAt:       m.CreatedAt,
	}
	if m.ExpirationDate != nil {
		d := dto.NewDate(*m.ExpirationDate)
		out.ExpirationDate = &d
	}
	return out
}

func toMovementResponses(list []*entity.InventoryMovement) []dto.MovementResponse {
	out := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMovementResponse(m))
	}
	return out
}
