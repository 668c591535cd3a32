package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ReceiveInventoryRequest body para POST /api/inventory-movements/receive-inventory.
type ReceiveInventoryRequest struct {
	ProductID        string           `json:"product_id"`
	InstitutionID    int64            `json:"institution_id"`
	StorageLocation  string           `json:"storage_location"`
	QuantityReceived decimal.Decimal  `json:"quantity_received"`
	UnitOfMeasure    string           `json:"unit_of_measure,omitempty"`
	ExpirationDate   Date             `json:"expiration_date"`
	BatchNumber      string           `json:"batch_number"`
	PurchaseOrderID  string           `json:"purchase_order_id,omitempty"`
	ReceivedBy       string           `json:"received_by"`
	ReceptionDate    *time.Time       `json:"reception_date,omitempty"`
	MinimumThreshold *decimal.Decimal `json:"minimum_threshold,omitempty"`
	Notes            string           `json:"notes,omitempty"`
}

// ReceiptResponse resultado de una recepción: lote creado + movimiento RECEIPT.
type ReceiptResponse struct {
	TransactionID    string          `json:"transaction_id"`
	InventoryID      string          `json:"inventory_id"`
	ProductID        string          `json:"product_id"`
	InstitutionID    int64           `json:"institution_id"`
	StorageLocation  string          `json:"storage_location"`
	QuantityReceived decimal.Decimal `json:"quantity_received"`
	UnitOfMeasure    string          `json:"unit_of_measure"`
	ExpirationDate   Date            `json:"expiration_date"`
	BatchNumber      string          `json:"batch_number"`
	PurchaseOrderID  string          `json:"purchase_order_id,omitempty"`
	ReceivedBy       string          `json:"received_by"`
	ReceptionDate    time.Time       `json:"reception_date"`
	MovementID       string          `json:"movement_id"`
	Notes            string          `json:"notes,omitempty"`
	CreatedAt        time.Time       `json:"created_at"`
}

// ConsumeInventoryRequest body para POST /api/inventory-movements/consume.
type ConsumeInventoryRequest struct {
	ProductID       string          `json:"product_id"`
	InstitutionID   int64           `json:"institution_id"`
	StorageLocation string          `json:"storage_location,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit,omitempty"`
	ConsumptionDate *time.Time      `json:"consumption_date,omitempty"`
	Reason          string          `json:"reason"`
	Notes           string          `json:"notes,omitempty"`
	ConsumedBy      string          `json:"consumed_by"`
}

// BatchConsumptionDetail detalle del consumo de un lote.
type BatchConsumptionDetail struct {
	InventoryID       string          `json:"inventory_id"`
	Lot               string          `json:"lot"`
	ConsumedQuantity  decimal.Decimal `json:"consumed_quantity"`
	RemainingQuantity decimal.Decimal `json:"remaining_quantity"`
	ExpirationDate    Date            `json:"expiration_date"`
	DateOfAdmission   time.Time       `json:"date_of_admission"`
}

// ConsumptionResponse resultado de un consumo FIFO.
type ConsumptionResponse struct {
	TransactionID         string                   `json:"transaction_id"`
	ProductID             string                   `json:"product_id"`
	InstitutionID         int64                    `json:"institution_id"`
	StorageLocation       string                   `json:"storage_location,omitempty"`
	TotalQuantityConsumed decimal.Decimal          `json:"total_quantity_consumed"`
	Unit                  string                   `json:"unit"`
	ConsumptionDate       time.Time                `json:"consumption_date"`
	Reason                string                   `json:"reason"`
	Notes                 string                   `json:"notes,omitempty"`
	ConsumedBy            string                   `json:"consumed_by"`
	BatchDetails          []BatchConsumptionDetail `json:"batch_details"`
	MovementIDs           []string                 `json:"movement_ids"`
	CreatedAt             time.Time                `json:"created_at"`
}

// AdjustInventoryRequest body para POST /api/inventory-movements/adjust.
// Quantity positiva suma, negativa resta.
type AdjustInventoryRequest struct {
	ProductID   string          `json:"product_id"`
	InventoryID string          `json:"inventory_id"`
	Quantity    decimal.Decimal `json:"quantity"`
	Unit        string          `json:"unit,omitempty"`
	Reason      string          `json:"reason"`
	Notes       string          `json:"notes,omitempty"`
	AdjustedBy  string          `json:"adjusted_by,omitempty"`
}

// AdjustmentResponse resultado de un ajuste manual.
type AdjustmentResponse struct {
	TransactionID      string          `json:"transaction_id"`
	InventoryID        string          `json:"inventory_id"`
	ProductID          string          `json:"product_id"`
	InstitutionID      int64           `json:"institution_id"`
	StorageLocation    string          `json:"storage_location"`
	AdjustmentQuantity decimal.Decimal `json:"adjustment_quantity"`
	Unit               string          `json:"unit"`
	Reason             string          `json:"reason"`
	Notes              string          `json:"notes,omitempty"`
	AdjustedBy         string          `json:"adjusted_by"`
	PreviousStock      decimal.Decimal `json:"previous_stock"`
	NewStock           decimal.Decimal `json:"new_stock"`
	MovementID         string          `json:"movement_id"`
	AdjustmentDate     time.Time       `json:"adjustment_date"`
	CreatedAt          time.Time       `json:"created_at"`
}

// WriteOffRequest body para POST /api/inventory-movements/write-off.
// Type: EXPIRED o LOSS. Quantity es la cantidad (positiva) a dar de baja.
type WriteOffRequest struct {
	ProductID    string          `json:"product_id"`
	InventoryID  string          `json:"inventory_id"`
	Type         string          `json:"type"`
	Quantity     decimal.Decimal `json:"quantity"`
	Unit         string          `json:"unit,omitempty"`
	Reason       string          `json:"reason"`
	Notes        string          `json:"notes,omitempty"`
	WrittenOffBy string          `json:"written_off_by"`
}

// WriteOffResponse resultado de una baja por vencimiento o pérdida.
type WriteOffResponse struct {
	TransactionID string          `json:"transaction_id"`
	InventoryID   string          `json:"inventory_id"`
	ProductID     string          `json:"product_id"`
	InstitutionID int64           `json:"institution_id"`
	Type          string          `json:"type"`
	Quantity      decimal.Decimal `json:"quantity"`
	Unit          string          `json:"unit"`
	Reason        string          `json:"reason"`
	WrittenOffBy  string          `json:"written_off_by"`
	PreviousStock decimal.Decimal `json:"previous_stock"`
	NewStock      decimal.Decimal `json:"new_stock"`
	MovementID    string          `json:"movement_id"`
	WriteOffDate  time.Time       `json:"write_off_date"`
}

// IngredientReceiptItemRequest ítem de un acta de recepción.
type IngredientReceiptItemRequest struct {
	ProductID       string          `json:"product_id"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit,omitempty"`
	StorageLocation string          `json:"storage_location"`
	Lot             string          `json:"lot"`
	ExpirationDate  Date            `json:"expiration_date"`
}

// IngredientReceiptRequest body para POST /api/ingredient-receipts.
type IngredientReceiptRequest struct {
	InstitutionID      int64                          `json:"institution_id"`
	PurchaseOrderID    string                         `json:"purchase_order_id,omitempty"`
	ReceiptDate        Date                           `json:"receipt_date"`
	DeliveryPersonName string                         `json:"delivery_person_name"`
	ReceivedBy         string                         `json:"received_by"`
	Items              []IngredientReceiptItemRequest `json:"items"`
}

// IngredientReceiptResponse acta registrada con los lotes y movimientos generados.
type IngredientReceiptResponse struct {
	ID                 string                         `json:"id"`
	InstitutionID      int64                          `json:"institution_id"`
	PurchaseOrderID    string                         `json:"purchase_order_id,omitempty"`
	ReceiptDate        Date                           `json:"receipt_date"`
	DeliveryPersonName string                         `json:"delivery_person_name"`
	Items              []IngredientReceiptItemRequest `json:"items"`
	BatchIDs           []string                       `json:"batch_ids"`
	MovementIDs        []string                       `json:"movement_ids"`
	CreatedBy          string                         `json:"created_by"`
	CreatedAt          time.Time                      `json:"created_at"`
}

// MovementResponse salida de un movimiento del libro.
type MovementResponse struct {
	ID              string          `json:"id"`
	TransactionID   string          `json:"transaction_id,omitempty"`
	MovementType    string          `json:"movement_type"`
	ProductID       string          `json:"product_id"`
	InstitutionID   int64           `json:"institution_id"`
	InventoryID     string          `json:"inventory_id,omitempty"`
	StorageLocation string          `json:"storage_location,omitempty"`
	Quantity        decimal.Decimal `json:"quantity"`
	Unit            string          `json:"unit"`
	Lot             string          `json:"lot,omitempty"`
	ExpirationDate  *Date           `json:"expiration_date,omitempty"`
	ReferenceID     string          `json:"reference_id,omitempty"`
	ReferenceType   string          `json:"reference_type,omitempty"`
	MovementDate    time.Time       `json:"movement_date"`
	Notes           string          `json:"notes,omitempty"`
	CreatedBy       string          `json:"created_by"`
	CreatedAt       time.Time       `json:"created_at"`
}

// MovementPage página de movimientos con el total del filtro.
type MovementPage struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}

// MovementQuery filtros de GET /api/inventory-movements/product/:product_id.
type MovementQuery struct {
	InstitutionID *int64
	MovementType  string
	PageRequest
}

// StockQuery filtros de consultas de stock.
type StockQuery struct {
	ProductID       string
	InstitutionID   int64
	StorageLocation string
	Lot             string
}

// CurrentStockResponse stock derivado del libro de movimientos.
type CurrentStockResponse struct {
	ProductID       string          `json:"product_id"`
	InstitutionID   int64           `json:"institution_id"`
	StorageLocation string          `json:"storage_location,omitempty"`
	Lot             string          `json:"lot,omitempty"`
	CurrentStock    decimal.Decimal `json:"current_stock"`
}

// BatchDetail lote disponible en un resumen de stock (orden FIFO).
type BatchDetail struct {
	InventoryID      string          `json:"inventory_id"`
	Lot              string          `json:"lot"`
	StorageLocation  string          `json:"storage_location"`
	RemainingWeight  decimal.Decimal `json:"remaining_weight"`
	InitialWeight    decimal.Decimal `json:"initial_weight"`
	Unit             string          `json:"unit"`
	DateOfAdmission  time.Time       `json:"date_of_admission"`
	ExpirationDate   Date            `json:"expiration_date"`
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	BelowThreshold   bool            `json:"below_threshold"`
}

// StockSummaryResponse resumen de stock desde los lotes elegibles.
type StockSummaryResponse struct {
	ProductID           string          `json:"product_id"`
	InstitutionID       int64           `json:"institution_id"`
	StorageLocation     string          `json:"storage_location,omitempty"`
	TotalAvailableStock decimal.Decimal `json:"total_available_stock"`
	NumberOfBatches     int             `json:"number_of_batches"`
	OldestBatchDate     *time.Time      `json:"oldest_batch_date"`
	NewestBatchDate     *time.Time      `json:"newest_batch_date"`
	Batches             []BatchDetail   `json:"batches"`
	Unit                string          `json:"unit"`
}

// ReconciliationResponse comparación libro vs. lotes para un mismo filtro.
type ReconciliationResponse struct {
	ProductID       string          `json:"product_id"`
	InstitutionID   int64           `json:"institution_id"`
	StorageLocation string          `json:"storage_location,omitempty"`
	LedgerStock     decimal.Decimal `json:"ledger_stock"`
	BatchStock      decimal.Decimal `json:"batch_stock"`
	Difference      decimal.Decimal `json:"difference"`
	Consistent      bool            `json:"consistent"`
}

// ReplenishmentSuggestion producto bajo su umbral mínimo con la cantidad sugerida de pedido.
type ReplenishmentSuggestion struct {
	Priority           int             `json:"priority"`
	ProductID          string          `json:"product_id"`
	InstitutionID      int64           `json:"institution_id"`
	CurrentStock       decimal.Decimal `json:"current_stock"`
	MinimumThreshold   decimal.Decimal `json:"minimum_threshold"`
	IdealStock         decimal.Decimal `json:"ideal_stock"`
	SuggestedOrderQty  decimal.Decimal `json:"suggested_order_qty"`
	Unit               string          `json:"unit"`
	ConsumedLastPeriod decimal.Decimal `json:"consumed_last_period"`
}

// UpdateThresholdRequest nuevo umbral mínimo de un lote.
type UpdateThresholdRequest struct {
	MinimumThreshold decimal.Decimal `json:"minimum_threshold"`
	UpdatedBy        string          `json:"updated_by"`
}

// ThresholdResponse umbral del lote después de la actualización.
type ThresholdResponse struct {
	InventoryID       string          `json:"inventory_id"`
	ProductID         string          `json:"product_id"`
	InstitutionID     int64           `json:"institution_id"`
	PreviousThreshold decimal.Decimal `json:"previous_threshold"`
	MinimumThreshold  decimal.Decimal `json:"minimum_threshold"`
	RemainingWeight   decimal.Decimal `json:"remaining_weight"`
	BelowThreshold    bool            `json:"below_threshold"`
	UpdatedAt         time.Time       `json:"updated_at"`
}

// InventoryConsultQuery filtros de GET /api/inventory.
// ShowExpired=false oculta los lotes vencidos a la fecha.
type InventoryConsultQuery struct {
	InstitutionID  *int64
	ProductID      string
	ShowExpired    bool
	BelowThreshold *bool
	PageRequest
}

// InventoryItem lote en la consulta de inventario.
type InventoryItem struct {
	BatchDetail
	ProductID     string `json:"product_id"`
	InstitutionID int64  `json:"institution_id"`
	BatchNumber   string `json:"batch_number"`
	Expired       bool   `json:"expired"`
}

// InventoryConsultSummary totales de los lotes devueltos en la página.
type InventoryConsultSummary struct {
	TotalItems          int             `json:"total_items"`
	BelowThresholdCount int             `json:"below_threshold_count"`
	ExpiredCount        int             `json:"expired_count"`
	TotalQuantity       decimal.Decimal `json:"total_quantity"`
}

// InventoryConsultResponse resultado de la consulta de inventario.
type InventoryConsultResponse struct {
	Items   []InventoryItem         `json:"items"`
	Page    PageResponse            `json:"page"`
	Summary InventoryConsultSummary `json:"summary"`
}
