package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.BatchRepository = (*BatchRepo)(nil)

const batchColumns = `id, product_id, institution_id, batch_number, lot, initial_weight, remaining_weight,
	unit, storage_location, date_of_admission, expiration_date, minimum_threshold, created_at, updated_at, deleted_at`

// BatchRepo implementación sobre PostgreSQL (usable con pool o tx).
type BatchRepo struct {
	q Querier
}

// NewBatchRepository construye el adaptador. Pasar pool o tx (Querier).
func NewBatchRepository(q Querier) *BatchRepo {
	return &BatchRepo{q: q}
}

// Create persiste un lote. El índice único parcial garantiza el número de lote por producto+institución.
func (r *BatchRepo) Create(ctx context.Context, b *entity.Batch) error {
	query := `
		INSERT INTO inventory_batches (` + batchColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)`
	_, err := r.q.Exec(ctx, query,
		b.ID, b.ProductID, b.InstitutionID, b.BatchNumber, b.Lot, b.InitialWeight, b.RemainingWeight,
		b.Unit, b.StorageLocation, b.DateOfAdmission, b.ExpirationDate, b.MinimumThreshold,
		b.CreatedAt, b.UpdatedAt, b.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: %s", domain.ErrDuplicateBatch, b.BatchNumber)
		}
		return fmt.Errorf("insert batch: %w", err)
	}
	return nil
}

// GetByID obtiene un lote por ID.
func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.Batch, error) {
	return r.get(ctx, id, "")
}

// GetByIDForUpdate obtiene el lote bloqueando la fila hasta el fin de la tx.
func (r *BatchRepo) GetByIDForUpdate(ctx context.Context, id string) (*entity.Batch, error) {
	return r.get(ctx, id, " FOR UPDATE")
}

func (r *BatchRepo) get(ctx context.Context, id, lock string) (*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches WHERE id = $1` + lock
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return b, nil
}

// batchWhere traduce el filtro tipado a SQL: solo lotes vigentes con remanente.
func batchWhere(f repository.BatchFilter) *where {
	w := &where{}
	w.raw("deleted_at IS NULL")
	w.raw("remaining_weight > 0")
	w.add("product_id = $%d", f.ProductID)
	w.add("institution_id = $%d", f.InstitutionID)
	if f.StorageLocation != nil {
		w.add("storage_location = $%d", *f.StorageLocation)
	}
	return w
}

// FindEligible lotes elegibles en orden FIFO. Con ForUpdate bloquea las filas en ese mismo orden.
func (r *BatchRepo) FindEligible(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	w := batchWhere(f)
	query := `SELECT ` + batchColumns + ` FROM inventory_batches` + w.String() +
		` ORDER BY date_of_admission ASC, id ASC`
	if f.ForUpdate {
		query += ` FOR UPDATE`
	}
	return r.list(ctx, query, w.args...)
}

// FindWithThreshold lotes vigentes de la institución con umbral mínimo configurado.
func (r *BatchRepo) FindWithThreshold(ctx context.Context, institutionID int64) ([]*entity.Batch, error) {
	query := `SELECT ` + batchColumns + ` FROM inventory_batches
		WHERE deleted_at IS NULL AND institution_id = $1 AND minimum_threshold > 0
		ORDER BY date_of_admission ASC, id ASC`
	return r.list(ctx, query, institutionID)
}

const belowThresholdSQL = "(minimum_threshold > 0 AND remaining_weight < minimum_threshold)"

// batchQueryWhere traduce la consulta entre productos; incluye lotes agotados.
func batchQueryWhere(q repository.BatchQuery) *where {
	w := &where{}
	w.raw("deleted_at IS NULL")
	if q.InstitutionID != nil {
		w.add("institution_id = $%d", *q.InstitutionID)
	}
	if q.ProductID != nil {
		w.add("product_id = $%d", *q.ProductID)
	}
	if q.NotExpiredAt != nil {
		w.add("expiration_date >= $%d", *q.NotExpiredAt)
	}
	if q.BelowThreshold != nil {
		if *q.BelowThreshold {
			w.raw(belowThresholdSQL)
		} else {
			w.raw("NOT " + belowThresholdSQL)
		}
	}
	return w
}

// searchQuery arma el SELECT paginado de Search; devuelve el SQL y sus argumentos.
func searchQuery(q repository.BatchQuery) (string, []any) {
	w := batchQueryWhere(q)
	query := `SELECT ` + batchColumns + ` FROM inventory_batches` + w.String() +
		` ORDER BY date_of_admission DESC, id ASC`
	if q.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", w.next())
		w.args = append(w.args, q.Limit)
	}
	if q.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", w.next())
		w.args = append(w.args, q.Offset)
	}
	return query, w.args
}

// Search consulta lotes entre productos con el total sin paginar.
func (r *BatchRepo) Search(ctx context.Context, q repository.BatchQuery) ([]*entity.Batch, int, error) {
	w := batchQueryWhere(q)
	var total int
	if err := r.q.QueryRow(ctx, `SELECT COUNT(*) FROM inventory_batches`+w.String(), w.args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count batches: %w", err)
	}
	query, args := searchQuery(q)
	list, err := r.list(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	return list, total, nil
}

// UpdateThreshold cambia solo el umbral mínimo; remaining_weight no se toca.
func (r *BatchRepo) UpdateThreshold(ctx context.Context, id string, threshold decimal.Decimal, updatedAt time.Time) error {
	query := `
		UPDATE inventory_batches SET minimum_threshold = $1, updated_at = $2
		WHERE id = $3 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, threshold, updatedAt, id)
	if err != nil {
		return fmt.Errorf("update batch threshold: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: %s", domain.ErrBatchNotFound, id)
	}
	return nil
}

func (r *BatchRepo) list(ctx context.Context, query string, args ...any) ([]*entity.Batch, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list batches: %w", err)
	}
	defer rows.Close()
	var list []*entity.Batch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

// Save escritura condicional sobre remaining_weight (compare-and-swap).
func (r *BatchRepo) Save(ctx context.Context, b *entity.Batch, expectedRemaining decimal.Decimal) error {
	query := `
		UPDATE inventory_batches SET remaining_weight = $1, updated_at = $2
		WHERE id = $3 AND remaining_weight = $4 AND deleted_at IS NULL`
	tag, err := r.q.Exec(ctx, query, b.RemainingWeight, b.UpdatedAt, b.ID, expectedRemaining)
	if err != nil {
		return fmt.Errorf("update batch: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("%w: lote %s", domain.ErrConcurrentUpdate, b.ID)
	}
	return nil
}

func scanBatch(row pgx.Row) (*entity.Batch, error) {
	var b entity.Batch
	err := row.Scan(
		&b.ID, &b.ProductID, &b.InstitutionID, &b.BatchNumber, &b.Lot, &b.InitialWeight, &b.RemainingWeight,
		&b.Unit, &b.StorageLocation, &b.DateOfAdmission, &b.ExpirationDate, &b.MinimumThreshold,
		&b.CreatedAt, &b.UpdatedAt, &b.DeletedAt,
	)
	if err != nil {
		return nil, err
	}
	return &b, nil
}
