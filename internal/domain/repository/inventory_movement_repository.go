package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// MovementFilter filtros tipados del libro de movimientos.
// Campos puntero = filtro opcional. Limit/Offset solo aplican a listados.
type MovementFilter struct {
	ProductID       string
	InstitutionID   *int64
	Type            *entity.MovementType
	StorageLocation *string
	Lot             *string
	BatchID         *string
	From            *time.Time // movement_date >= From
	Limit           int
	Offset          int
}

// InventoryMovementRepository define el puerto de persistencia del libro (solo inserción).
type InventoryMovementRepository interface {
	Create(ctx context.Context, movement *entity.InventoryMovement) error
	GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error)
	// ListByProduct ordena por movement_date descendente.
	ListByProduct(ctx context.Context, filter MovementFilter) ([]*entity.InventoryMovement, error)
	// Count total de movimientos que cumplen el filtro, ignorando Limit/Offset.
	Count(ctx context.Context, filter MovementFilter) (int, error)
	SumQuantity(ctx context.Context, filter MovementFilter) (decimal.Decimal, error)
}
