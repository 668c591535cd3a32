package inventory

import (
	"context"
	"fmt"
	"sort"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// ConsumptionWindowDays ventana del historial de consumo usado para priorizar la reposición.
const ConsumptionWindowDays = 30

// GenerateReplenishmentList devuelve los productos de la institución cuyo stock quedó
// por debajo del umbral mínimo, con la cantidad sugerida a pedir.
// Prioridad: mayor consumo reciente primero; a igual consumo, mayor déficit.
func (uc *UseCase) GenerateReplenishmentList(ctx context.Context, institutionID int64) ([]dto.ReplenishmentSuggestion, error) {
	if institutionID <= 0 {
		return nil, fmt.Errorf("%w: institution_id es obligatorio", domain.ErrInvalidInput)
	}

	// 1. Lotes con umbral configurado (incluye agotados: cuentan para el punto de reorden)
	batches, err := uc.batches.FindWithThreshold(ctx, institutionID)
	if err != nil {
		return nil, domain.Persistence("buscar lotes con umbral", err)
	}
	if len(batches) == 0 {
		return []dto.ReplenishmentSuggestion{}, nil
	}

	type productStock struct {
		current, reorder decimal.Decimal
		unit             string
	}
	byProduct := make(map[string]*productStock)
	order := make([]string, 0)
	for _, b := range batches {
		ps, ok := byProduct[b.ProductID]
		if !ok {
			ps = &productStock{current: decimal.Zero, reorder: decimal.Zero, unit: b.Unit}
			byProduct[b.ProductID] = ps
			order = append(order, b.ProductID)
		}
		ps.current = ps.current.Add(b.RemainingWeight)
		ps.reorder = decimal.Max(ps.reorder, b.MinimumThreshold)
	}

	// 2. Consumo de la ventana (USAGE es negativo en el libro)
	since := uc.now().AddDate(0, 0, -ConsumptionWindowDays)
	usage := entity.MovementTypeUsage
	ideal := decimal.NewFromFloat(1.5)

	suggestions := make([]dto.ReplenishmentSuggestion, 0, len(order))
	for _, productID := range order {
		ps := byProduct[productID]
		if !ps.current.LessThan(ps.reorder) {
			continue
		}
		inst := institutionID
		used, err := uc.ledger.SumQuantity(ctx, uc.movements, repository.MovementFilter{
			ProductID:     productID,
			InstitutionID: &inst,
			Type:          &usage,
			From:          &since,
		})
		if err != nil {
			return nil, err
		}
		idealStock := ps.reorder.Mul(ideal)
		suggestions = append(suggestions, dto.ReplenishmentSuggestion{
			ProductID:          productID,
			InstitutionID:      institutionID,
			CurrentStock:       ps.current,
			MinimumThreshold:   ps.reorder,
			IdealStock:         idealStock,
			SuggestedOrderQty:  idealStock.Sub(ps.current),
			Unit:               ps.unit,
			ConsumedLastPeriod: used.Neg(),
		})
	}

	// 3. Ordenar y asignar prioridad (1 = más urgente)
	sort.SliceStable(suggestions, func(i, j int) bool {
		a, b := suggestions[i], suggestions[j]
		if !a.ConsumedLastPeriod.Equal(b.ConsumedLastPeriod) {
			return a.ConsumedLastPeriod.GreaterThan(b.ConsumedLastPeriod)
		}
		defA := a.MinimumThreshold.Sub(a.CurrentStock)
		defB := b.MinimumThreshold.Sub(b.CurrentStock)
		return defA.GreaterThan(defB)
	})
	for i := range suggestions {
		suggestions[i].Priority = i + 1
	}
	return suggestions, nil
}
