package memory

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	invdomain "github.com/jhoicas/pae-compras/internal/domain/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// BatchRepository implementa repository.BatchRepository. Devuelve siempre copias.
type BatchRepository struct {
	store *Store
	tx    *state
}

var _ repository.BatchRepository = (*BatchRepository)(nil)

// Create inserta un lote; el número de lote es único por producto+institución entre lotes vigentes.
func (r *BatchRepository) Create(ctx context.Context, batch *entity.Batch) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		if _, ok := st.batches[batch.ID]; ok {
			return fmt.Errorf("%w: id %s", domain.ErrDuplicateBatch, batch.ID)
		}
		for _, b := range st.batches {
			if !b.IsDeleted() &&
				b.ProductID == batch.ProductID &&
				b.InstitutionID == batch.InstitutionID &&
				b.BatchNumber == batch.BatchNumber {
				return fmt.Errorf("%w: %s", domain.ErrDuplicateBatch, batch.BatchNumber)
			}
		}
		st.batches[batch.ID] = batch.Clone()
		return nil
	})
}

// GetByID obtiene un lote por id.
func (r *BatchRepository) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.Batch
	err := r.store.read(r.tx, func(st *state) error {
		b, ok := st.batches[id]
		if !ok {
			return notFound(domain.ErrBatchNotFound, id)
		}
		out = b.Clone()
		return nil
	})
	return out, err
}

// GetByIDForUpdate igual que GetByID; el bloqueo lo da el mutex de la transacción.
func (r *BatchRepository) GetByIDForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.GetByID(ctx, id)
}

// FindEligible lotes con remanente > 0 y no eliminados, en orden FIFO.
func (r *BatchRepository) FindEligible(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.Batch
	_ = r.store.read(r.tx, func(st *state) error {
		for _, b := range st.batches {
			if b.IsDeleted() || b.IsExhausted() {
				continue
			}
			if b.ProductID != f.ProductID || b.InstitutionID != f.InstitutionID {
				continue
			}
			if f.StorageLocation != nil && b.StorageLocation != *f.StorageLocation {
				continue
			}
			out = append(out, b.Clone())
		}
		return nil
	})
	invdomain.SortFIFO(out)
	return out, nil
}

// FindWithThreshold lotes vigentes de la institución con umbral mínimo configurado.
func (r *BatchRepository) FindWithThreshold(ctx context.Context, institutionID int64) ([]*entity.Batch, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.Batch
	_ = r.store.read(r.tx, func(st *state) error {
		for _, b := range st.batches {
			if !b.IsDeleted() && b.InstitutionID == institutionID && b.MinimumThreshold.IsPositive() {
				out = append(out, b.Clone())
			}
		}
		return nil
	})
	invdomain.SortFIFO(out)
	return out, nil
}

// Search lotes no eliminados que cumplen q, admisión más reciente primero.
func (r *BatchRepository) Search(ctx context.Context, q repository.BatchQuery) ([]*entity.Batch, int, error) {
	if err := ctx.Err(); err != nil {
		return nil, 0, err
	}
	var out []*entity.Batch
	_ = r.store.read(r.tx, func(st *state) error {
		for _, b := range st.batches {
			if matchesQuery(b, q) {
				out = append(out, b.Clone())
			}
		}
		return nil
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateOfAdmission.Equal(out[j].DateOfAdmission) {
			return out[i].DateOfAdmission.After(out[j].DateOfAdmission)
		}
		return out[i].ID < out[j].ID
	})

	total := len(out)
	if q.Offset > 0 {
		if q.Offset >= len(out) {
			return []*entity.Batch{}, total, nil
		}
		out = out[q.Offset:]
	}
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, total, nil
}

func matchesQuery(b *entity.Batch, q repository.BatchQuery) bool {
	switch {
	case b.IsDeleted():
		return false
	case q.InstitutionID != nil && b.InstitutionID != *q.InstitutionID:
		return false
	case q.ProductID != nil && b.ProductID != *q.ProductID:
		return false
	case q.NotExpiredAt != nil && b.IsExpiredAt(*q.NotExpiredAt):
		return false
	case q.BelowThreshold != nil && b.BelowThreshold() != *q.BelowThreshold:
		return false
	}
	return true
}

// UpdateThreshold cambia solo el umbral mínimo del lote.
func (r *BatchRepository) UpdateThreshold(ctx context.Context, id string, threshold decimal.Decimal, updatedAt time.Time) error {
	return r.store.write(ctx, r.tx, func(st *state) error {
		cur, ok := st.batches[id]
		if !ok || cur.IsDeleted() {
			return notFound(domain.ErrBatchNotFound, id)
		}
		cur.MinimumThreshold = threshold
		cur.UpdatedAt = updatedAt
		return nil
	})
}

// Save escritura condicional: solo si el remanente almacenado es expectedRemaining.
func (r *BatchRepository) Save(ctx context.Context, batch *entity.Batch, expectedRemaining decimal.Decimal) error {
	if err := r.store.batchSaveFault(); err != nil {
		return err
	}
	return r.store.write(ctx, r.tx, func(st *state) error {
		cur, ok := st.batches[batch.ID]
		if !ok || cur.IsDeleted() {
			return notFound(domain.ErrBatchNotFound, batch.ID)
		}
		if !cur.RemainingWeight.Equal(expectedRemaining) {
			return fmt.Errorf("%w: lote %s", domain.ErrConcurrentUpdate, batch.ID)
		}
		cur.RemainingWeight = batch.RemainingWeight
		cur.UpdatedAt = batch.UpdatedAt
		return nil
	})
}
