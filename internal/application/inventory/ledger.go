package inventory

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	invdomain "github.com/jhoicas/pae-compras/internal/domain/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// Ledger libro de movimientos: solo inserción, con validación tipo/signo y de producto.
type Ledger struct {
	catalog repository.ProductCatalog
	now     func() time.Time
}

// NewLedger construye el libro.
func NewLedger(catalog repository.ProductCatalog, now func() time.Time) *Ledger {
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &Ledger{catalog: catalog, now: now}
}

// Append valida y persiste un movimiento con el repositorio dado (normalmente atado a una tx).
// Asigna ID, CreatedAt y MovementDate cuando vienen vacíos. Un movimiento nunca se modifica después.
func (l *Ledger) Append(ctx context.Context, repo repository.InventoryMovementRepository, m *entity.InventoryMovement) (*entity.InventoryMovement, error) {
	if err := invdomain.ValidateMovementSign(m.Type, m.Quantity); err != nil {
		return nil, err
	}
	ok, err := l.catalog.Exists(ctx, m.ProductID)
	if err != nil {
		return nil, domain.Persistence("consultar producto", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", domain.ErrProductNotFound, m.ProductID)
	}

	now := l.now()
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	if m.MovementDate.IsZero() {
		m.MovementDate = now
	}
	if m.Unit == "" {
		m.Unit = entity.DefaultUnit
	}
	if m.CreatedBy == "" {
		m.CreatedBy = "system"
	}
	if err := repo.Create(ctx, m); err != nil {
		return nil, domain.Persistence("registrar movimiento", err)
	}
	return m, nil
}

// List devuelve movimientos del producto, más recientes primero.
func (l *Ledger) List(ctx context.Context, repo repository.InventoryMovementRepository, filter repository.MovementFilter) ([]*entity.InventoryMovement, error) {
	list, err := repo.ListByProduct(ctx, filter)
	if err != nil {
		return nil, domain.Persistence("listar movimientos", err)
	}
	return list, nil
}

// Count total de movimientos que cumplen el filtro, sin paginar.
func (l *Ledger) Count(ctx context.Context, repo repository.InventoryMovementRepository, filter repository.MovementFilter) (int, error) {
	n, err := repo.Count(ctx, filter)
	if err != nil {
		return 0, domain.Persistence("contar movimientos", err)
	}
	return n, nil
}

// SumQuantity suma exacta de los movimientos que cumplen el filtro (puede ser negativa si hay datos corruptos).
func (l *Ledger) SumQuantity(ctx context.Context, repo repository.InventoryMovementRepository, filter repository.MovementFilter) (decimal.Decimal, error) {
	sum, err := repo.SumQuantity(ctx, filter)
	if err != nil {
		return decimal.Zero, domain.Persistence("sumar movimientos", err)
	}
	return sum, nil
}
