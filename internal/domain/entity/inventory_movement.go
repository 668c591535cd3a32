package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// MovementType tipo de movimiento del libro de inventario.
type MovementType string

// Tipos de movimiento de inventario.
const (
	MovementTypeReceipt    MovementType = "RECEIPT"    // entrada por recepción
	MovementTypeUsage      MovementType = "USAGE"      // consumo FIFO
	MovementTypeAdjustment MovementType = "ADJUSTMENT" // ajuste manual (+/-)
	MovementTypeExpired    MovementType = "EXPIRED"    // baja por vencimiento
	MovementTypeLoss       MovementType = "LOSS"       // baja por pérdida
)

// Tipos de documento de referencia.
const (
	ReferenceTypePurchaseOrder        = "purchase_order"
	ReferenceTypeManualReceipt        = "manual_receipt"
	ReferenceTypeIngredientReceipt    = "ingredient_receipt"
	ReferenceTypeInventoryConsumption = "inventory_consumption"
	ReferenceTypeManualAdjustment     = "manual_adjustment"
	ReferenceTypeWriteOff             = "write_off"
)

// AllMovementTypes lista los tipos válidos en orden estable.
func AllMovementTypes() []MovementType {
	return []MovementType{
		MovementTypeReceipt,
		MovementTypeUsage,
		MovementTypeAdjustment,
		MovementTypeExpired,
		MovementTypeLoss,
	}
}

// IsValid indica si el tipo es uno de los conocidos.
func (t MovementType) IsValid() bool {
	for _, v := range AllMovementTypes() {
		if t == v {
			return true
		}
	}
	return false
}

func (t MovementType) String() string { return string(t) }

// InventoryMovement registro inmutable del libro de movimientos.
// Los datos del lote (ubicación, lote, unidad, vencimiento) son una copia al momento del movimiento.
type InventoryMovement struct {
	ID              string
	TransactionID   string
	Type            MovementType
	ProductID       string
	InstitutionID   int64
	BatchID         string
	StorageLocation string
	Lot             string
	Unit            string
	ExpirationDate  *time.Time
	Quantity        decimal.Decimal // positivo entrada/ajuste+, negativo salida
	ReferenceID     string
	ReferenceType   string
	MovementDate    time.Time
	Notes           string
	CreatedBy       string
	CreatedAt       time.Time
	DeletedAt       *time.Time
}
