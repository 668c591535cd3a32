package memory

import (
	"context"
	"errors"
	"fmt"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
)

var errDuplicateMovement = errors.New("id de movimiento duplicado")

// ReceiptRepository implementa repository.IngredientReceiptRepository.
type ReceiptRepository struct {
	store *Store
	tx    *state
}

var _ repository.IngredientReceiptRepository = (*ReceiptRepository)(nil)

// Create registra el acta (con sus ítems).
func (r *ReceiptRepository) Create(ctx context.Context, receipt *entity.IngredientReceipt) error {
	cp := *receipt
	cp.Items = append([]entity.IngredientReceiptItem(nil), receipt.Items...)
	return r.store.write(ctx, r.tx, func(st *state) error {
		if _, ok := st.receipts[cp.ID]; ok {
			return fmt.Errorf("%w: acta %s ya registrada", domain.ErrConflict, cp.ID)
		}
		st.receipts[cp.ID] = &cp
		return nil
	})
}

// Get devuelve una copia del acta (nil si no existe).
func (r *ReceiptRepository) Get(id string) *entity.IngredientReceipt {
	var out *entity.IngredientReceipt
	_ = r.store.read(r.tx, func(st *state) error {
		if rec, ok := st.receipts[id]; ok {
			cp := *rec
			out = &cp
		}
		return nil
	})
	return out
}
