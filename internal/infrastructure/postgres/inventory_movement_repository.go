package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.InventoryMovementRepository = (*InventoryMovementRepo)(nil)

const movementColumns = `id, transaction_id, movement_type, product_id, institution_id, batch_id, storage_location,
	lot, unit, expiration_date, quantity, reference_id, reference_type, movement_date, notes, created_by, created_at, deleted_at`

// InventoryMovementRepo implementación sobre PostgreSQL (usable con pool o tx).
type InventoryMovementRepo struct {
	q Querier
}

// NewInventoryMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryMovementRepository(q Querier) *InventoryMovementRepo {
	return &InventoryMovementRepo{q: q}
}

// Create persiste un movimiento. No existe UPDATE ni DELETE para el libro.
func (r *InventoryMovementRepo) Create(ctx context.Context, m *entity.InventoryMovement) error {
	query := `
		INSERT INTO inventory_movements (` + movementColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err := r.q.Exec(ctx, query,
		m.ID, nullable(m.TransactionID), string(m.Type), m.ProductID, m.InstitutionID, nullable(m.BatchID), m.StorageLocation,
		m.Lot, m.Unit, m.ExpirationDate, m.Quantity, nullable(m.ReferenceID), nullable(m.ReferenceType),
		m.MovementDate, m.Notes, m.CreatedBy, m.CreatedAt, m.DeletedAt,
	)
	if err != nil {
		return fmt.Errorf("create inventory movement: %w", err)
	}
	return nil
}

// GetByID obtiene un movimiento por ID.
func (r *InventoryMovementRepo) GetByID(ctx context.Context, id string) (*entity.InventoryMovement, error) {
	query := `SELECT ` + movementColumns + ` FROM inventory_movements WHERE id = $1`
	m, err := scanMovement(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: movimiento %s", domain.ErrNotFound, id)
		}
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// movementWhere traduce el filtro tipado a SQL.
func movementWhere(f repository.MovementFilter) *where {
	w := &where{}
	w.raw("deleted_at IS NULL")
	w.add("product_id = $%d", f.ProductID)
	if f.InstitutionID != nil {
		w.add("institution_id = $%d", *f.InstitutionID)
	}
	if f.Type != nil {
		w.add("movement_type = $%d", string(*f.Type))
	}
	if f.StorageLocation != nil {
		w.add("storage_location = $%d", *f.StorageLocation)
	}
	if f.Lot != nil {
		w.add("lot = $%d", *f.Lot)
	}
	if f.BatchID != nil {
		w.add("batch_id = $%d", *f.BatchID)
	}
	if f.From != nil {
		w.add("movement_date >= $%d", *f.From)
	}
	return w
}

// listQuery arma el SELECT paginado de ListByProduct; devuelve el SQL y sus argumentos.
func listQuery(f repository.MovementFilter) (string, []any) {
	w := movementWhere(f)
	query := `SELECT ` + movementColumns + ` FROM inventory_movements` + w.String() +
		` ORDER BY movement_date DESC, created_at DESC`
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		w.args = append(w.args, f.Limit)
	}
	if f.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", w.next())
		w.args = append(w.args, f.Offset)
	}
	return query, w.args
}

// ListByProduct lista movimientos filtrados, más recientes primero.
func (r *InventoryMovementRepo) ListByProduct(ctx context.Context, f repository.MovementFilter) ([]*entity.InventoryMovement, error) {
	query, args := listQuery(f)
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list movements: %w", err)
	}
	defer rows.Close()
	list := make([]*entity.InventoryMovement, 0)
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

// Count total de movimientos que cumplen el filtro.
func (r *InventoryMovementRepo) Count(ctx context.Context, f repository.MovementFilter) (int, error) {
	w := movementWhere(f)
	var n int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_movements`+w.String(), w.args...).Scan(&n); err != nil {
		return 0, fmt.Errorf("count movements: %w", err)
	}
	return n, nil
}

// SumQuantity suma exacta (NUMERIC) de los movimientos que cumplen el filtro.
func (r *InventoryMovementRepo) SumQuantity(ctx context.Context, f repository.MovementFilter) (decimal.Decimal, error) {
	w := movementWhere(f)
	query := `SELECT COALESCE(SUM(quantity), 0) FROM inventory_movements` + w.String()
	var sum decimal.Decimal
	if err := r.q.QueryRow(ctx, query, w.args...).Scan(&sum); err != nil {
		return decimal.Zero, fmt.Errorf("sum movements: %w", err)
	}
	return sum, nil
}

func scanMovement(row pgx.Row) (*entity.InventoryMovement, error) {
	var m entity.InventoryMovement
	var txID, batchID, refID, refType *string
	err := row.Scan(
		&m.ID, &txID, &m.Type, &m.ProductID, &m.InstitutionID, &batchID, &m.StorageLocation,
		&m.Lot, &m.Unit, &m.ExpirationDate, &m.Quantity, &refID, &refType,
		&m.MovementDate, &m.Notes, &m.CreatedBy, &m.CreatedAt, &m.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	m.TransactionID = deref(txID)
	m.BatchID = deref(batchID)
	m.ReferenceID = deref(refID)
	m.ReferenceType = deref(refType)
	return &m, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
