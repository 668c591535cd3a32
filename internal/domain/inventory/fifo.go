package inventory

import (
	"fmt"
	"sort"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Deduction cantidad a descontar de un lote concreto.
type Deduction struct {
	Batch          *entity.Batch
	Consumed       decimal.Decimal
	RemainingAfter decimal.Decimal
}

// FIFOPlan resultado del planificador: descuentos en orden de consumo.
type FIFOPlan struct {
	Deductions     []Deduction
	TotalAvailable decimal.Decimal
	TotalConsumed  decimal.Decimal
}

// SortFIFO ordena lotes por fecha de admisión ascendente; a igual fecha, por ID ascendente.
func SortFIFO(batches []*entity.Batch) {
	sort.SliceStable(batches, func(i, j int) bool {
		a, b := batches[i], batches[j]
		if !a.DateOfAdmission.Equal(b.DateOfAdmission) {
			return a.DateOfAdmission.Before(b.DateOfAdmission)
		}
		return a.ID < b.ID
	})
}

// PlanFIFO calcula cuánto descontar de cada lote, del más antiguo al más reciente.
// No modifica los lotes. Falla con ErrInsufficientStock si la suma disponible no alcanza,
// antes de producir cualquier descuento.
// Los lotes deben llegar ya ordenados (ver SortFIFO); los que tienen remanente <= 0 se ignoran.
func PlanFIFO(requested decimal.Decimal, batches []*entity.Batch) (*FIFOPlan, error) {
	if !requested.IsPositive() {
		return nil, fmt.Errorf("%w: la cantidad a consumir debe ser mayor que cero", domain.ErrInvalidInput)
	}

	available := decimal.Zero
	for _, b := range batches {
		if b.RemainingWeight.IsPositive() {
			available = available.Add(b.RemainingWeight)
		}
	}
	if available.LessThan(requested) {
		return nil, fmt.Errorf("%w: solicitado %s, disponible %s", domain.ErrInsufficientStock, requested, available)
	}

	plan := &FIFOPlan{TotalAvailable: available, TotalConsumed: decimal.Zero}
	pending := requested
	for _, b := range batches {
		if !pending.IsPositive() {
			break
		}
		if !b.RemainingWeight.IsPositive() {
			continue
		}
		take := decimal.Min(pending, b.RemainingWeight)
		plan.Deductions = append(plan.Deductions, Deduction{
			Batch:          b,
			Consumed:       take,
			RemainingAfter: b.RemainingWeight.Sub(take),
		})
		plan.TotalConsumed = plan.TotalConsumed.Add(take)
		pending = pending.Sub(take)
	}
	return plan, nil
}
