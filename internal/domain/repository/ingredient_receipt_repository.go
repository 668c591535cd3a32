package repository

import (
	"context"

	"github.com/jhoicas/pae-compras/internal/domain/entity"
)

// IngredientReceiptRepository persiste las actas de recepción de insumos.
type IngredientReceiptRepository interface {
	Create(ctx context.Context, receipt *entity.IngredientReceipt) error
}
