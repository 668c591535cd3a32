package repository

import (
	"context"
	"time"

	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// BatchFilter filtros tipados para buscar lotes elegibles (FIFO).
// Campos puntero = filtro opcional.
type BatchFilter struct {
	ProductID       string
	InstitutionID   int64
	StorageLocation *string
	// ForUpdate bloquea las filas devueltas hasta el fin de la transacción.
	ForUpdate bool
}

// BatchQuery consulta de lotes entre productos; incluye lotes agotados.
// Campos puntero = filtro opcional.
type BatchQuery struct {
	InstitutionID *int64
	ProductID     *string
	// NotExpiredAt excluye lotes con vencimiento anterior a esta fecha.
	NotExpiredAt   *time.Time
	BelowThreshold *bool
	Limit          int
	Offset         int
}

// BatchRepository define el puerto de persistencia de lotes de inventario.
// Usado dentro de transacciones para garantizar consistencia lote/libro.
type BatchRepository interface {
	Create(ctx context.Context, batch *entity.Batch) error
	GetByID(ctx context.Context, id string) (*entity.Batch, error)
	GetByIDForUpdate(ctx context.Context, id string) (*entity.Batch, error)
	// FindEligible devuelve lotes con remanente > 0 y sin borrar, ordenados por
	// fecha de admisión ascendente y luego por id.
	FindEligible(ctx context.Context, filter BatchFilter) ([]*entity.Batch, error)
	// FindWithThreshold devuelve los lotes no eliminados de la institución con umbral mínimo > 0,
	// incluidos los agotados.
	FindWithThreshold(ctx context.Context, institutionID int64) ([]*entity.Batch, error)
	// Search lotes no eliminados que cumplen la consulta, admisión más reciente primero,
	// junto con el total sin paginar.
	Search(ctx context.Context, q BatchQuery) ([]*entity.Batch, int, error)
	// UpdateThreshold cambia solo minimum_threshold y updated_at.
	UpdateThreshold(ctx context.Context, id string, threshold decimal.Decimal, updatedAt time.Time) error
	// Save persiste RemainingWeight/UpdatedAt solo si el remanente almacenado sigue siendo expectedRemaining.
	Save(ctx context.Context, batch *entity.Batch, expectedRemaining decimal.Decimal) error
}
