package memory

import (
	"context"
	"sort"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// MovementRepository implementa repository.InventoryMovementRepository (solo inserción).
type MovementRepository struct {
	store *Store
	tx    *state
}

var _ repository.InventoryMovementRepository = (*MovementRepository)(nil)

// Create agrega un movimiento al libro.
func (r *MovementRepository) Create(ctx context.Context, m *entity.InventoryMovement) error {
	cp := *m
	return r.store.write(ctx, r.tx, func(st *state) error {
		for _, existing := range st.movements {
			if existing.ID == cp.ID {
				return domain.Persistence("registrar movimiento", errDuplicateMovement)
			}
		}
		st.movements = append(st.movements, &cp)
		return nil
	})
}

// GetByID obtiene un movimiento por id.
func (r *MovementRepository) GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out *entity.InventoryMovement
	err := r.store.read(r.tx, func(st *state) error {
		for _, m := range st.movements {
			if m.ID == id {
				cp := *m
				out = &cp
				return nil
			}
		}
		return notFound(errMovementNotFound, id)
	})
	return out, err
}

// ListByProduct movimientos filtrados, más recientes primero, con limit/offset.
func (r *MovementRepository) ListByProduct(ctx context.Context, f repository.MovementFilter) ([]*entity.InventoryMovement, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	var out []*entity.InventoryMovement
	_ = r.store.read(r.tx, func(st *state) error {
		for i := len(st.movements) - 1; i >= 0; i-- {
			if m := st.movements[i]; matches(m, f) {
				cp := *m
				out = append(out, &cp)
			}
		}
		return nil
	})
	sort.SliceStable(out, func(i, j int) bool { return out[i].MovementDate.After(out[j].MovementDate) })

	if f.Offset > 0 {
		if f.Offset >= len(out) {
			return []*entity.InventoryMovement{}, nil
		}
		out = out[f.Offset:]
	}
	if f.Limit > 0 && len(out) > f.Limit {
		out = out[:f.Limit]
	}
	return out, nil
}

// Count movimientos que cumplen el filtro.
func (r *MovementRepository) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	n := 0
	_ = r.store.read(r.tx, func(st *state) error {
		for _, m := range st.movements {
			if matches(m, f) {
				n++
			}
		}
		return nil
	})
	return n, nil
}

// SumQuantity suma exacta de los movimientos que cumplen el filtro.
func (r *MovementRepository) SumQuantity(ctx context.Context, f repository.MovementFilter) (decimal.Decimal, error) {
	if err := ctx.Err(); err != nil {
		return decimal.Zero, err
	}
	sum := decimal.Zero
	_ = r.store.read(r.tx, func(st *state) error {
		for _, m := range st.movements {
			if matches(m, f) {
				sum = sum.Add(m.Quantity)
			}
		}
		return nil
	})
	return sum, nil
}

func matches(m *entity.InventoryMovement, f repository.MovementFilter) bool {
	switch {
	case m.DeletedAt != nil:
		return false
	case m.ProductID != f.ProductID:
		return false
	case f.InstitutionID != nil && m.InstitutionID != *f.InstitutionID:
		return false
	case f.Type != nil && m.Type != *f.Type:
		return false
	case f.StorageLocation != nil && m.StorageLocation != *f.StorageLocation:
		return false
	case f.Lot != nil && m.Lot != *f.Lot:
		return false
	case f.BatchID != nil && m.BatchID != *f.BatchID:
		return false
	case f.From != nil && m.MovementDate.Before(*f.From):
		return false
	}
	return true
}
