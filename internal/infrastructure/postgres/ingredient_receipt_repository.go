package postgres

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.IngredientReceiptRepository = (*IngredientReceiptRepo)(nil)

// IngredientReceiptRepo persiste actas de recepción; los ítems se guardan como JSONB.
type IngredientReceiptRepo struct {
	q Querier
}

// NewIngredientReceiptRepository construye el adaptador. Pasar pool o tx (Querier).
func NewIngredientReceiptRepository(q Querier) *IngredientReceiptRepo {
	return &IngredientReceiptRepo{q: q}
}

type receiptItemRow struct {
	ProductID       string          `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	StorageLocation string          `json:"storage_location"`
	Lot             string          `json:"lot"`
	ExpirationDate  string          `json:"expiration_date"`
}

// Create inserta el acta.
func (r *IngredientReceiptRepo) Create(ctx context.Context, rec *entity.IngredientReceipt) error {
	items := make([]receiptItemRow, 0, len(rec.Items))
	for _, it := range rec.Items {
		items = append(items, receiptItemRow{
			ProductID:       it.ProductID,
			Quantity:        it.Quantity,
			Unit:            it.Unit,
			StorageLocation: it.StorageLocation,
			Lot:             it.Lot,
			ExpirationDate:  it.ExpirationDate.Format("2006-01-02"),
		})
	}
	payload, err := json.Marshal(items)
	if err != nil {
		return fmt.Errorf("marshal receipt items: %w", err)
	}
	query := `
		INSERT INTO ingredient_receipts (id, institution_id, purchase_order_id, receipt_date, delivery_person_name, items, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err = r.q.Exec(ctx, query,
		rec.ID, rec.InstitutionID, nullable(rec.PurchaseOrderID), rec.ReceiptDate,
		rec.DeliveryPersonName, payload, rec.CreatedBy, rec.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("%w: acta %s ya registrada", domain.ErrConflict, rec.ID)
		}
		return fmt.Errorf("insert ingredient receipt: %w", err)
	}
	return nil
}
