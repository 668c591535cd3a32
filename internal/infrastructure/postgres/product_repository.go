package postgres

import (
	"context"
	"fmt"

	"github.com/jhoicas/pae-compras/internal/domain/repository"
)

var _ repository.ProductCatalog = (*ProductRepo)(nil)

// ProductRepo consulta el catálogo de productos (tabla products, administrada por otro módulo).
type ProductRepo struct {
	q Querier
}

// NewProductRepository construye el adaptador. Pasar pool o tx (Querier).
func NewProductRepository(q Querier) *ProductRepo {
	return &ProductRepo{q: q}
}

// Exists indica si el producto existe y no está eliminado.
func (r *ProductRepo) Exists(ctx context.Context, id string) (bool, error) {
	var ok bool
	err := r.q.QueryRow(ctx,
		`SELECT EXISTS (SELECT 1 FROM products WHERE id = $1 AND deleted_at IS NULL)`, id,
	).Scan(&ok)
	if err != nil {
		return false, fmt.Errorf("exists product: %w", err)
	}
	return ok, nil
}
