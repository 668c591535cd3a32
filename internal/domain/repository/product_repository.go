package repository

import "context"

// ProductCatalog puerto hacia el catálogo de productos (colaborador externo).
type ProductCatalog interface {
	Exists(ctx context.Context, id string) (bool, error)
}
