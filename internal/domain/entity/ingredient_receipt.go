package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// IngredientReceipt acta de recepción de insumos en una institución (con o sin orden de compra).
type IngredientReceipt struct {
	ID                 string
	InstitutionID      int64
	PurchaseOrderID    string
	ReceiptDate        time.Time
	DeliveryPersonName string
	Items              []IngredientReceiptItem
	CreatedBy          string
	CreatedAt          time.Time
}

// IngredientReceiptItem ítem recibido; cada uno genera un lote.
type IngredientReceiptItem struct {
	ProductID       string
	Quantity        decimal.Decimal
	Unit            string
	StorageLocation string
	Lot             string
	ExpirationDate  time.Time
}
