package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// DefaultUnit unidad de medida por defecto de los insumos.
const DefaultUnit = "kg"

// Batch lote recibido de un producto en una institución.
// Invariante: 0 <= RemainingWeight <= InitialWeight. Un lote agotado (RemainingWeight = 0) no se elimina.
type Batch struct {
	ID               string
	ProductID        string
	InstitutionID    int64
	BatchNumber      string // único por producto+institución entre lotes no eliminados
	Lot              string
	InitialWeight    decimal.Decimal
	RemainingWeight  decimal.Decimal
	Unit             string
	StorageLocation  string
	DateOfAdmission  time.Time
	ExpirationDate   time.Time
	MinimumThreshold decimal.Decimal
	CreatedAt        time.Time
	UpdatedAt        time.Time
	DeletedAt        *time.Time
}

// IsDeleted indica si el lote tiene borrado lógico.
func (b *Batch) IsDeleted() bool { return b.DeletedAt != nil }

// IsExhausted indica si el lote ya no tiene existencias.
func (b *Batch) IsExhausted() bool { return !b.RemainingWeight.IsPositive() }

// IsExpiredAt indica si el lote está vencido en la fecha dada.
func (b *Batch) IsExpiredAt(t time.Time) bool { return b.ExpirationDate.Before(t) }

// BelowThreshold indica si el remanente está por debajo del umbral mínimo configurado.
func (b *Batch) BelowThreshold() bool {
	return b.MinimumThreshold.IsPositive() && b.RemainingWeight.LessThan(b.MinimumThreshold)
}

// Clone devuelve una copia independiente (incluye DeletedAt).
func (b *Batch) Clone() *Batch {
	c := *b
	if b.DeletedAt != nil {
		d := *b.DeletedAt
		c.DeletedAt = &d
	}
	return &c
}
