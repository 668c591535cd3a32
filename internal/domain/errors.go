package domain

import (
	"errors"
	"fmt"
)

// Errores de dominio (sin dependencias externas).
// Las categorías se comparan con errors.Is; los errores específicos envuelven su categoría.
var (
	ErrNotFound              = errors.New("recurso no encontrado")
	ErrInvalidInput          = errors.New("entrada inválida")
	ErrConflict              = errors.New("conflicto con el estado actual")
	ErrInsufficientStock     = errors.New("stock insuficiente")
	ErrNegativeStockRejected = errors.New("el ajuste dejaría el stock en negativo")
	ErrUnitMismatch          = errors.New("la unidad de medida no coincide con la del lote")
	ErrPersistence           = errors.New("error de persistencia")
)

var (
	ErrProductNotFound      = fmt.Errorf("%w: producto", ErrNotFound)
	ErrBatchNotFound        = fmt.Errorf("%w: lote de inventario", ErrNotFound)
	ErrEmptyReason          = fmt.Errorf("%w: el motivo es obligatorio", ErrInvalidInput)
	ErrInvalidMovement      = fmt.Errorf("%w: signo de cantidad incoherente con el tipo de movimiento", ErrInvalidInput)
	ErrBatchProductMismatch = fmt.Errorf("%w: el lote no pertenece al producto indicado", ErrInvalidInput)
	ErrExceedsInitialWeight = fmt.Errorf("%w: el stock resultante supera el peso inicial del lote", ErrInvalidInput)
	ErrDuplicateBatch       = fmt.Errorf("%w: el número de lote ya existe para este producto e institución", ErrConflict)
	ErrConcurrentUpdate     = fmt.Errorf("%w: el lote fue modificado por otra operación", ErrConflict)
)

// Persistence envuelve un fallo del almacenamiento subyacente como ErrPersistence
// conservando la causa original. Los errores que ya son de dominio se devuelven sin cambios.
func Persistence(op string, err error) error {
	if err == nil || IsDomainError(err) {
		return err
	}
	return fmt.Errorf("%w: %s: %w", ErrPersistence, op, err)
}

// IsDomainError indica si err pertenece a alguna categoría de la taxonomía de dominio.
func IsDomainError(err error) bool {
	for _, target := range []error{
		ErrNotFound, ErrInvalidInput, ErrConflict, ErrInsufficientStock,
		ErrNegativeStockRejected, ErrUnitMismatch, ErrPersistence,
	} {
		if errors.Is(err, target) {
			return true
		}
	}
	return false
}
