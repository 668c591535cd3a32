package inventory

import (
	"fmt"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ValidateMovementSign verifica la coherencia tipo/signo:
// RECEIPT > 0; USAGE, EXPIRED y LOSS < 0; ADJUSTMENT != 0.
func ValidateMovementSign(t entity.MovementType, quantity decimal.Decimal) error {
	switch t {
	case entity.MovementTypeReceipt:
		if !quantity.IsPositive() {
			return fmt.Errorf("%w (%s requiere cantidad positiva, recibido %s)", domain.ErrInvalidMovement, t, quantity)
		}
	case entity.MovementTypeUsage, entity.MovementTypeExpired, entity.MovementTypeLoss:
		if !quantity.IsNegative() {
			return fmt.Errorf("%w (%s requiere cantidad negativa, recibido %s)", domain.ErrInvalidMovement, t, quantity)
		}
	case entity.MovementTypeAdjustment:
		if quantity.IsZero() {
			return fmt.Errorf("%w (%s no admite cantidad cero)", domain.ErrInvalidMovement, t)
		}
	default:
		return fmt.Errorf("%w (tipo desconocido %q)", domain.ErrInvalidMovement, t)
	}
	return nil
}

// ApplyDelta calcula el nuevo remanente de un lote tras sumar delta.
// Rechaza resultados negativos (ErrNegativeStockRejected) y por encima del peso inicial.
func ApplyDelta(batch *entity.Batch, delta decimal.Decimal) (decimal.Decimal, error) {
	next := batch.RemainingWeight.Add(delta)
	if next.IsNegative() {
		return decimal.Zero, fmt.Errorf("%w: stock actual %s, ajuste %s, resultado %s",
			domain.ErrNegativeStockRejected, batch.RemainingWeight, delta, next)
	}
	if next.GreaterThan(batch.InitialWeight) {
		return decimal.Zero, fmt.Errorf("%w: peso inicial %s, resultado %s",
			domain.ErrExceedsInitialWeight, batch.InitialWeight, next)
	}
	return next, nil
}
