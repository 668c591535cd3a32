package inventory_test

import (
	"context"
	"errors"
	"regexp"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/jhoicas/pae-compras/internal/infrastructure/memory"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const institution int64 = 7

var now = time.Date(2025, 4, 10, 12, 0, 0, 0, time.UTC)

func dec(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func newEngine(t *testing.T, opts ...inventory.Option) (*inventory.UseCase, *memory.Store) {
	t.Helper()
	store := memory.NewStore()
	store.AddProduct(
		entity.Product{ID: "arroz", Name: "Arroz blanco", UnitMeasure: "kg"},
		entity.Product{ID: "frijol", Name: "Fríjol rojo", UnitMeasure: "kg"},
	)
	opts = append([]inventory.Option{inventory.WithClock(func() time.Time { return now })}, opts...)
	uc := inventory.NewUseCase(store, store.Batches(), store.Movements(), store, zerolog.Nop(), opts...)
	return uc, store
}

func receive(t *testing.T, uc *inventory.UseCase, product, number, qty string, admittedDaysAgo int) *dto.ReceiptResponse {
	t.Helper()
	admitted := now.AddDate(0, 0, -admittedDaysAgo)
	resp, err := uc.ReceiveInventory(context.Background(), dto.ReceiveInventoryRequest{
		ProductID:        product,
		InstitutionID:    institution,
		StorageLocation:  "bodega-principal",
		QuantityReceived: dec(qty),
		ExpirationDate:   dto.NewDate(now.AddDate(0, 3, 0)),
		BatchNumber:      number,
		ReceivedBy:       "almacenista",
		ReceptionDate:    &admitted,
	})
	require.NoError(t, err)
	return resp
}

func consume(uc *inventory.UseCase, product, qty string) (*dto.ConsumptionResponse, error) {
	return uc.ConsumeFIFO(context.Background(), dto.ConsumeInventoryRequest{
		ProductID:     product,
		InstitutionID: institution,
		Quantity:      dec(qty),
		Reason:        "almuerzo escolar",
		ConsumedBy:    "cocina",
	})
}

func remaining(t *testing.T, store *memory.Store, batchID string) string {
	t.Helper()
	b, err := store.Batches().GetByID(context.Background(), batchID)
	require.NoError(t, err)
	return b.RemainingWeight.String()
}

func assertReconciled(t *testing.T, uc *inventory.UseCase, product string) {
	t.Helper()
	rec, err := uc.Reconcile(context.Background(), dto.StockQuery{ProductID: product, InstitutionID: institution})
	require.NoError(t, err)
	assert.True(t, rec.Consistent, "libro %s vs lotes %s", rec.LedgerStock, rec.BatchStock)
}

func TestReceiveInventory_CreaLoteYMovimiento(t *testing.T) {
	uc, store := newEngine(t)
	ctx := context.Background()

	resp, err := uc.ReceiveInventory(ctx, dto.ReceiveInventoryRequest{
		ProductID:        "arroz",
		InstitutionID:    institution,
		StorageLocation:  "bodega-principal",
		QuantityReceived: dec("25.5"),
		ExpirationDate:   dto.NewDate(now.AddDate(0, 2, 0)),
		BatchNumber:      "LOT-001",
		PurchaseOrderID:  "OC-99",
		ReceivedBy:       "almacenista",
	})
	require.NoError(t, err)
	assert.Equal(t, "kg", resp.UnitOfMeasure)
	assert.Equal(t, now, resp.ReceptionDate)

	b, err := store.Batches().GetByID(ctx, resp.InventoryID)
	require.NoError(t, err)
	assert.Equal(t, "25.5", b.InitialWeight.String())
	assert.Equal(t, "25.5", b.RemainingWeight.String())
	assert.Equal(t, "LOT-001", b.Lot)

	m, err := store.Movements().GetByID(ctx, resp.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeReceipt, m.Type)
	assert.Equal(t, "25.5", m.Quantity.String())
	assert.Equal(t, entity.ReferenceTypePurchaseOrder, m.ReferenceType)
	assert.Equal(t, "OC-99", m.ReferenceID)
	assert.Contains(t, m.Notes, resp.TransactionID)

	summary, err := uc.GetStockSummary(ctx, dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.Equal(t, "25.5", summary.TotalAvailableStock.String())
	assert.Equal(t, 1, summary.NumberOfBatches)
}

func TestReceiveInventory_SinOrdenDeCompraEsRecepcionManual(t *testing.T) {
	uc, store := newEngine(t)
	resp := receive(t, uc, "arroz", "LOT-1", "3", 0)

	m, err := store.Movements().GetByID(context.Background(), resp.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.ReferenceTypeManualReceipt, m.ReferenceType)
}

func TestReceiveInventory_Validaciones(t *testing.T) {
	valid := func() dto.ReceiveInventoryRequest {
		return dto.ReceiveInventoryRequest{
			ProductID:        "arroz",
			InstitutionID:    institution,
			StorageLocation:  "bodega",
			QuantityReceived: dec("1"),
			ExpirationDate:   dto.NewDate(now),
			BatchNumber:      "L-1",
			ReceivedBy:       "almacenista",
		}
	}
	cases := []struct {
		name   string
		mutate func(*dto.ReceiveInventoryRequest)
		want   error
	}{
		{"cantidad cero", func(r *dto.ReceiveInventoryRequest) { r.QuantityReceived = decimal.Zero }, domain.ErrInvalidInput},
		{"cantidad negativa", func(r *dto.ReceiveInventoryRequest) { r.QuantityReceived = dec("-1") }, domain.ErrInvalidInput},
		{"sin ubicación", func(r *dto.ReceiveInventoryRequest) { r.StorageLocation = "  " }, domain.ErrInvalidInput},
		{"sin número de lote", func(r *dto.ReceiveInventoryRequest) { r.BatchNumber = "" }, domain.ErrInvalidInput},
		{"sin vencimiento", func(r *dto.ReceiveInventoryRequest) { r.ExpirationDate = dto.Date{} }, domain.ErrInvalidInput},
		{"producto inexistente", func(r *dto.ReceiveInventoryRequest) { r.ProductID = "quinua" }, domain.ErrProductNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			uc, store := newEngine(t)
			req := valid()
			tc.mutate(&req)
			_, err := uc.ReceiveInventory(context.Background(), req)
			assert.ErrorIs(t, err, tc.want)

			sum, err := store.Movements().SumQuantity(context.Background(), repository.MovementFilter{ProductID: req.ProductID})
			require.NoError(t, err)
			assert.True(t, sum.IsZero())
		})
	}
}

func TestReceiveInventory_LoteDuplicadoEsConflicto(t *testing.T) {
	uc, _ := newEngine(t)
	receive(t, uc, "arroz", "LOT-9", "5", 1)

	_, err := uc.ReceiveInventory(context.Background(), dto.ReceiveInventoryRequest{
		ProductID:        "arroz",
		InstitutionID:    institution,
		StorageLocation:  "bodega-principal",
		QuantityReceived: dec("2"),
		ExpirationDate:   dto.NewDate(now),
		BatchNumber:      "LOT-9",
		ReceivedBy:       "almacenista",
	})
	assert.ErrorIs(t, err, domain.ErrConflict)
	assertReconciled(t, uc, "arroz")
}

func TestConsumeFIFO_EscenarioAB(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 2)
	b := receive(t, uc, "arroz", "B", "8", 1)

	resp, err := consume(uc, "arroz", "10")
	require.NoError(t, err)
	assert.Equal(t, "10", resp.TotalQuantityConsumed.String())
	require.Len(t, resp.BatchDetails, 2)
	assert.Equal(t, a.InventoryID, resp.BatchDetails[0].InventoryID)
	assert.Equal(t, "5", resp.BatchDetails[0].ConsumedQuantity.String())
	assert.Equal(t, "0", resp.BatchDetails[0].RemainingQuantity.String())
	assert.Equal(t, "5", resp.BatchDetails[1].ConsumedQuantity.String())
	assert.Equal(t, "3", resp.BatchDetails[1].RemainingQuantity.String())

	assert.Equal(t, "0", remaining(t, store, a.InventoryID))
	assert.Equal(t, "3", remaining(t, store, b.InventoryID))

	usage, err := uc.ListConsumptionHistory(context.Background(), "arroz", dto.MovementQuery{})
	require.NoError(t, err)
	require.Len(t, usage.Items, 2)
	assert.Equal(t, 2, usage.Page.Total)
	for _, m := range usage.Items {
		assert.Equal(t, "-5", m.Quantity.String())
		assert.Equal(t, resp.TransactionID, m.TransactionID)
		assert.Equal(t, resp.TransactionID, m.ReferenceID)
		assert.Equal(t, entity.ReferenceTypeInventoryConsumption, m.ReferenceType)
		assert.Contains(t, m.Notes, "FIFO consumption - almuerzo escolar")
	}
	assertReconciled(t, uc, "arroz")
}

func TestConsumeFIFO_AjusteExactoDejaCero(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "4.25", 1)

	_, err := consume(uc, "arroz", "4.25")
	require.NoError(t, err)
	assert.Equal(t, "0", remaining(t, store, a.InventoryID))

	summary, err := uc.GetStockSummary(context.Background(), dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.Zero(t, summary.NumberOfBatches)
	assert.Nil(t, summary.OldestBatchDate)
	assert.Equal(t, "kg", summary.Unit)
}

func TestConsumeFIFO_StockInsuficienteNoModificaNada(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 2)
	b := receive(t, uc, "arroz", "B", "8", 1)

	_, err := consume(uc, "arroz", "13.01")
	require.ErrorIs(t, err, domain.ErrInsufficientStock)

	assert.Equal(t, "5", remaining(t, store, a.InventoryID))
	assert.Equal(t, "8", remaining(t, store, b.InventoryID))
	usage, err := uc.ListConsumptionHistory(context.Background(), "arroz", dto.MovementQuery{})
	require.NoError(t, err)
	assert.Empty(t, usage.Items)
	assert.Zero(t, usage.Page.Total)
}

func TestConsumeFIFO_Validaciones(t *testing.T) {
	uc, _ := newEngine(t)
	receive(t, uc, "arroz", "A", "5", 1)
	ctx := context.Background()

	_, err := uc.ConsumeFIFO(ctx, dto.ConsumeInventoryRequest{ProductID: "arroz", InstitutionID: institution, Quantity: decimal.Zero, Reason: "x", ConsumedBy: "c"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = uc.ConsumeFIFO(ctx, dto.ConsumeInventoryRequest{ProductID: "arroz", InstitutionID: institution, Quantity: dec("1"), Reason: " ", ConsumedBy: "c"})
	assert.ErrorIs(t, err, domain.ErrEmptyReason)

	_, err = uc.ConsumeFIFO(ctx, dto.ConsumeInventoryRequest{ProductID: "arroz", InstitutionID: institution, Quantity: dec("1"), Reason: "x", ConsumedBy: "c", Unit: "lb"})
	assert.ErrorIs(t, err, domain.ErrUnitMismatch)

	_, err = uc.ConsumeFIFO(ctx, dto.ConsumeInventoryRequest{ProductID: "lentejas", InstitutionID: institution, Quantity: dec("1"), Reason: "x", ConsumedBy: "c"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assertReconciled(t, uc, "arroz")
}

func TestConsumeFIFO_FallaDePersistenciaRevierteTodo(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 2)
	b := receive(t, uc, "arroz", "B", "8", 1)
	store.FailBatchSaves(1, errors.New("conexión perdida"))

	_, err := consume(uc, "arroz", "10")
	require.ErrorIs(t, err, domain.ErrPersistence)

	store.FailBatchSaves(0, nil)
	assert.Equal(t, "5", remaining(t, store, a.InventoryID))
	assert.Equal(t, "8", remaining(t, store, b.InventoryID))
	assertReconciled(t, uc, "arroz")
}

func TestConsumeFIFO_ConcurrenteNuncaSobreconsume(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 1)

	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < 12; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := consume(uc, "arroz", "1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 5, ok)
	assert.Equal(t, 7, insufficient)
	assert.Equal(t, "0", remaining(t, store, a.InventoryID))
	assertReconciled(t, uc, "arroz")
}

func TestConsumeFIFO_FiltraPorUbicacion(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 2)
	resp, err := uc.ReceiveInventory(context.Background(), dto.ReceiveInventoryRequest{
		ProductID:        "arroz",
		InstitutionID:    institution,
		StorageLocation:  "cocina",
		QuantityReceived: dec("2"),
		ExpirationDate:   dto.NewDate(now),
		BatchNumber:      "K",
		ReceivedBy:       "almacenista",
	})
	require.NoError(t, err)

	_, err = uc.ConsumeFIFO(context.Background(), dto.ConsumeInventoryRequest{
		ProductID:       "arroz",
		InstitutionID:   institution,
		StorageLocation: "cocina",
		Quantity:        dec("2"),
		Reason:          "refrigerio",
		ConsumedBy:      "cocina",
	})
	require.NoError(t, err)
	assert.Equal(t, "5", remaining(t, store, a.InventoryID))
	assert.Equal(t, "0", remaining(t, store, resp.InventoryID))
}

func TestAdjustManually(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "10", 1)
	ctx := context.Background()

	resp, err := uc.AdjustManually(ctx, dto.AdjustInventoryRequest{
		ProductID:   "arroz",
		InventoryID: a.InventoryID,
		Quantity:    dec("-2.5"),
		Reason:      "conteo físico",
	})
	require.NoError(t, err)
	assert.Regexp(t, regexp.MustCompile(`^ADJ-20250410120000-[0-9a-f]{8}$`), resp.TransactionID)
	assert.Equal(t, inventory.DefaultAdjustmentActor, resp.AdjustedBy)
	assert.Equal(t, "10", resp.PreviousStock.String())
	assert.Equal(t, "7.5", resp.NewStock.String())
	assert.Equal(t, "7.5", remaining(t, store, a.InventoryID))

	m, err := store.Movements().GetByID(ctx, resp.MovementID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementTypeAdjustment, m.Type)
	assert.Equal(t, "-2.5", m.Quantity.String())
	assert.Equal(t, a.InventoryID, m.ReferenceID)
	assert.Equal(t, entity.ReferenceTypeManualAdjustment, m.ReferenceType)
	assertReconciled(t, uc, "arroz")
}

func TestAdjustManually_Rechazos(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "10", 1)
	f := receive(t, uc, "frijol", "F", "3", 1)
	_, err := consume(uc, "arroz", "4")
	require.NoError(t, err)

	cases := []struct {
		name string
		req  dto.AdjustInventoryRequest
		want error
	}{
		{"cantidad cero", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: decimal.Zero, Reason: "x"}, domain.ErrInvalidInput},
		{"motivo vacío", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("1"), Reason: ""}, domain.ErrEmptyReason},
		{"producto inexistente", dto.AdjustInventoryRequest{ProductID: "avena", InventoryID: a.InventoryID, Quantity: dec("1"), Reason: "x"}, domain.ErrProductNotFound},
		{"lote inexistente", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: "nope", Quantity: dec("1"), Reason: "x"}, domain.ErrBatchNotFound},
		{"lote de otro producto", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: f.InventoryID, Quantity: dec("1"), Reason: "x"}, domain.ErrBatchProductMismatch},
		{"unidad distinta", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("1"), Unit: "g", Reason: "x"}, domain.ErrUnitMismatch},
		{"quedaría negativo", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("-6.01"), Reason: "x"}, domain.ErrNegativeStockRejected},
		{"supera peso inicial", dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("4.5"), Reason: "x"}, domain.ErrExceedsInitialWeight},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := uc.AdjustManually(context.Background(), tc.req)
			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, "6", remaining(t, store, a.InventoryID))
		})
	}
	assertReconciled(t, uc, "arroz")
}

func TestAdjustManually_AExactamenteCeroYDeVuelta(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "3", 1)
	ctx := context.Background()

	_, err := uc.AdjustManually(ctx, dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("-3"), Reason: "merma", AdjustedBy: "auditor-1"})
	require.NoError(t, err)
	assert.Equal(t, "0", remaining(t, store, a.InventoryID))

	resp, err := uc.AdjustManually(ctx, dto.AdjustInventoryRequest{ProductID: "arroz", InventoryID: a.InventoryID, Quantity: dec("1"), Reason: "hallazgo", AdjustedBy: "auditor-1"})
	require.NoError(t, err)
	assert.Equal(t, "auditor-1", resp.AdjustedBy)
	assert.Equal(t, "1", remaining(t, store, a.InventoryID))
	assertReconciled(t, uc, "arroz")
}

func TestWriteOff(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 1)
	ctx := context.Background()

	resp, err := uc.WriteOff(ctx, dto.WriteOffRequest{
		ProductID:    "arroz",
		InventoryID:  a.InventoryID,
		Type:         "expired",
		Quantity:     dec("2"),
		Reason:       "vencido",
		WrittenOffBy: "almacenista",
	})
	require.NoError(t, err)
	assert.Equal(t, "EXPIRED", resp.Type)
	assert.Equal(t, "3", resp.NewStock.String())

	m, err := store.Movements().GetByID(ctx, resp.MovementID)
	require.NoError(t, err)
	assert.Equal(t, "-2", m.Quantity.String())
	assert.Equal(t, entity.ReferenceTypeWriteOff, m.ReferenceType)

	_, err = uc.WriteOff(ctx, dto.WriteOffRequest{ProductID: "arroz", InventoryID: a.InventoryID, Type: "LOSS", Quantity: dec("3.1"), Reason: "robo", WrittenOffBy: "x"})
	assert.ErrorIs(t, err, domain.ErrNegativeStockRejected)

	_, err = uc.WriteOff(ctx, dto.WriteOffRequest{ProductID: "arroz", InventoryID: a.InventoryID, Type: "USAGE", Quantity: dec("1"), Reason: "x", WrittenOffBy: "x"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	assert.Equal(t, "3", remaining(t, store, a.InventoryID))
	assertReconciled(t, uc, "arroz")
}

func TestGetCurrentStock_FiltrosYPiso(t *testing.T) {
	uc, store := newEngine(t)
	receive(t, uc, "arroz", "A", "5", 2)
	receive(t, uc, "arroz", "B", "8", 1)
	_, err := consume(uc, "arroz", "6")
	require.NoError(t, err)
	ctx := context.Background()

	stock, err := uc.GetCurrentStock(ctx, dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.Equal(t, "7", stock.CurrentStock.String())

	stock, err = uc.GetCurrentStock(ctx, dto.StockQuery{ProductID: "arroz", InstitutionID: institution, Lot: "B"})
	require.NoError(t, err)
	assert.Equal(t, "7", stock.CurrentStock.String())

	// libro corrupto: una salida sin entrada no debe mostrarse como stock negativo
	require.NoError(t, store.Movements().Create(ctx, &entity.InventoryMovement{
		ID: "corrupto", ProductID: "frijol", InstitutionID: institution, Type: entity.MovementTypeUsage, Quantity: dec("-4"),
	}))
	stock, err = uc.GetCurrentStock(ctx, dto.StockQuery{ProductID: "frijol", InstitutionID: institution})
	require.NoError(t, err)
	assert.True(t, stock.CurrentStock.IsZero())

	_, err = uc.GetCurrentStock(ctx, dto.StockQuery{ProductID: "arroz"})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestReconcile_DetectaDivergencia(t *testing.T) {
	uc, store := newEngine(t)
	a := receive(t, uc, "arroz", "A", "5", 1)
	ctx := context.Background()

	b, err := store.Batches().GetByID(ctx, a.InventoryID)
	require.NoError(t, err)
	b.RemainingWeight = dec("4")
	require.NoError(t, store.Batches().Save(ctx, b, dec("5")))

	rec, err := uc.Reconcile(ctx, dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.False(t, rec.Consistent)
	assert.Equal(t, "1", rec.Difference.String())
}

func TestGetStockSummary_UmbralMinimo(t *testing.T) {
	uc, _ := newEngine(t)
	threshold := dec("4")
	admitted := now.AddDate(0, 0, -3)
	_, err := uc.ReceiveInventory(context.Background(), dto.ReceiveInventoryRequest{
		ProductID:        "arroz",
		InstitutionID:    institution,
		StorageLocation:  "bodega-principal",
		QuantityReceived: dec("5"),
		ExpirationDate:   dto.NewDate(now),
		BatchNumber:      "A",
		ReceivedBy:       "almacenista",
		ReceptionDate:    &admitted,
		MinimumThreshold: &threshold,
	})
	require.NoError(t, err)
	receive(t, uc, "arroz", "B", "8", 1)
	_, err = consume(uc, "arroz", "2")
	require.NoError(t, err)

	summary, err := uc.GetStockSummary(context.Background(), dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	require.Len(t, summary.Batches, 2)
	assert.Equal(t, "11", summary.TotalAvailableStock.String())
	assert.Equal(t, "A", summary.Batches[0].Lot)
	assert.True(t, summary.Batches[0].BelowThreshold)
	assert.False(t, summary.Batches[1].BelowThreshold)
	assert.Equal(t, admitted, *summary.OldestBatchDate)
	assert.Equal(t, now.AddDate(0, 0, -1), *summary.NewestBatchDate)
}

type spyCache struct {
	mu          sync.Mutex
	stored      map[string]*dto.StockSummaryResponse
	gens        map[string]int64
	invalidated []string
	discarded   int
}

func newSpyCache() *spyCache {
	return &spyCache{stored: map[string]*dto.StockSummaryResponse{}, gens: map[string]int64{}}
}

func (c *spyCache) Generation(_ context.Context, productID string, _ int64) (int64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gens[productID], true
}

func (c *spyCache) GetSummary(_ context.Context, productID string, _ int64, location string) (*dto.StockSummaryResponse, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	s, ok := c.stored[productID+"|"+location]
	return s, ok
}

func (c *spyCache) SetSummary(_ context.Context, s *dto.StockSummaryResponse, gen int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.gens[s.ProductID] {
		c.discarded++
		return
	}
	c.stored[s.ProductID+"|"+s.StorageLocation] = s
}

func (c *spyCache) Invalidate(_ context.Context, productID string, _ int64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.invalidated = append(c.invalidated, productID)
	c.gens[productID]++
	for k := range c.stored {
		delete(c.stored, k)
	}
}

func TestGetStockSummary_CacheSeInvalidaAlMutar(t *testing.T) {
	cache := newSpyCache()
	uc, _ := newEngine(t, inventory.WithStockCache(cache))
	receive(t, uc, "arroz", "A", "5", 1)
	ctx := context.Background()
	q := dto.StockQuery{ProductID: "arroz", InstitutionID: institution}

	first, err := uc.GetStockSummary(ctx, q)
	require.NoError(t, err)
	second, err := uc.GetStockSummary(ctx, q)
	require.NoError(t, err)
	assert.Same(t, first, second)

	_, err = consume(uc, "arroz", "1")
	require.NoError(t, err)
	third, err := uc.GetStockSummary(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "4", third.TotalAvailableStock.String())
	assert.Equal(t, []string{"arroz", "arroz"}, cache.invalidated)
}

// batchesDuringRead ejecuta during una sola vez justo después de leer los lotes.
type batchesDuringRead struct {
	repository.BatchRepository
	once   sync.Once
	during func()
}

func (b *batchesDuringRead) FindEligible(ctx context.Context, f repository.BatchFilter) ([]*entity.Batch, error) {
	out, err := b.BatchRepository.FindEligible(ctx, f)
	if b.during != nil {
		b.once.Do(b.during)
	}
	return out, err
}

func TestGetStockSummary_MutacionDuranteLecturaNoQuedaEnCache(t *testing.T) {
	store := memory.NewStore()
	store.AddProduct(entity.Product{ID: "arroz", Name: "Arroz blanco", UnitMeasure: "kg"})
	cache := newSpyCache()
	reads := &batchesDuringRead{BatchRepository: store.Batches()}
	uc := inventory.NewUseCase(store, reads, store.Movements(), store, zerolog.Nop(),
		inventory.WithClock(func() time.Time { return now }),
		inventory.WithStockCache(cache),
	)
	receive(t, uc, "arroz", "A", "10", 1)
	ctx := context.Background()
	q := dto.StockQuery{ProductID: "arroz", InstitutionID: institution}

	reads.during = func() {
		_, err := consume(uc, "arroz", "4")
		require.NoError(t, err)
	}
	inFlight, err := uc.GetStockSummary(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "10", inFlight.TotalAvailableStock.String(), "la lectura en curso ve el estado previo")
	assert.Equal(t, 1, cache.discarded)

	after, err := uc.GetStockSummary(ctx, q)
	require.NoError(t, err)
	current, err := uc.GetCurrentStock(ctx, q)
	require.NoError(t, err)
	assert.Equal(t, "6", after.TotalAvailableStock.String())
	assert.True(t, current.CurrentStock.Equal(after.TotalAvailableStock))
}

func TestRegisterIngredientReceipt(t *testing.T) {
	uc, store := newEngine(t)
	ctx := context.Background()

	resp, err := uc.RegisterIngredientReceipt(ctx, dto.IngredientReceiptRequest{
		InstitutionID:      institution,
		ReceiptDate:        dto.NewDate(now),
		DeliveryPersonName: "Transportes del Valle",
		ReceivedBy:         "almacenista",
		Items: []dto.IngredientReceiptItemRequest{
			{ProductID: "arroz", Quantity: dec("20"), StorageLocation: "bodega", Lot: "R-1", ExpirationDate: dto.NewDate(now.AddDate(0, 6, 0))},
			{ProductID: "frijol", Quantity: dec("10"), StorageLocation: "bodega", Lot: "R-2", ExpirationDate: dto.NewDate(now.AddDate(0, 6, 0))},
		},
	})
	require.NoError(t, err)
	require.Len(t, resp.BatchIDs, 2)
	require.Len(t, resp.MovementIDs, 2)
	assert.NotNil(t, store.Receipts().Get(resp.ID))

	m, err := store.Movements().GetByID(ctx, resp.MovementIDs[1])
	require.NoError(t, err)
	assert.Equal(t, entity.ReferenceTypeIngredientReceipt, m.ReferenceType)
	assert.Equal(t, resp.ID, m.ReferenceID)
	assert.Equal(t, "10", m.Quantity.String())
	assertReconciled(t, uc, "arroz")
	assertReconciled(t, uc, "frijol")
}

func TestRegisterIngredientReceipt_TodoONada(t *testing.T) {
	uc, store := newEngine(t)
	receive(t, uc, "frijol", "R-2", "1", 3)
	ctx := context.Background()

	_, err := uc.RegisterIngredientReceipt(ctx, dto.IngredientReceiptRequest{
		InstitutionID:      institution,
		ReceiptDate:        dto.NewDate(now),
		DeliveryPersonName: "Transportes del Valle",
		ReceivedBy:         "almacenista",
		Items: []dto.IngredientReceiptItemRequest{
			{ProductID: "arroz", Quantity: dec("20"), StorageLocation: "bodega", Lot: "R-1", ExpirationDate: dto.NewDate(now)},
			{ProductID: "frijol", Quantity: dec("10"), StorageLocation: "bodega", Lot: "R-2", ExpirationDate: dto.NewDate(now)},
		},
	})
	require.ErrorIs(t, err, domain.ErrDuplicateBatch)

	batches, err := store.Batches().FindEligible(ctx, repository.BatchFilter{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.Empty(t, batches, "el primer ítem no debe persistir")

	_, err = uc.RegisterIngredientReceipt(ctx, dto.IngredientReceiptRequest{
		InstitutionID:      institution,
		ReceiptDate:        dto.NewDate(now),
		DeliveryPersonName: "x",
		ReceivedBy:         "almacenista",
	})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestGenerateReplenishmentList(t *testing.T) {
	uc, _ := newEngine(t)
	ctx := context.Background()
	for _, item := range []struct {
		product, lot, qty, threshold string
	}{
		{"arroz", "A", "10", "8"},
		{"frijol", "F", "10", "6"},
	} {
		th := dec(item.threshold)
		admitted := now.AddDate(0, 0, -2)
		_, err := uc.ReceiveInventory(ctx, dto.ReceiveInventoryRequest{
			ProductID:        item.product,
			InstitutionID:    institution,
			StorageLocation:  "bodega",
			QuantityReceived: dec(item.qty),
			ExpirationDate:   dto.NewDate(now),
			BatchNumber:      item.lot,
			ReceivedBy:       "almacenista",
			ReceptionDate:    &admitted,
			MinimumThreshold: &th,
		})
		require.NoError(t, err)
	}
	_, err := consume(uc, "arroz", "3")
	require.NoError(t, err)
	_, err = consume(uc, "frijol", "5")
	require.NoError(t, err)

	list, err := uc.GenerateReplenishmentList(ctx, institution)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "frijol", list[0].ProductID)
	assert.Equal(t, 1, list[0].Priority)
	assert.Equal(t, "5", list[0].ConsumedLastPeriod.String())
	assert.Equal(t, "4", list[0].SuggestedOrderQty.String())
	assert.Equal(t, "arroz", list[1].ProductID)
	assert.Equal(t, "5", list[1].SuggestedOrderQty.String())
}

type fakeReport struct {
	summary   *dto.StockSummaryResponse
	movements []dto.MovementResponse
}

func (f *fakeReport) GenerateStockSummaryPDF(_ context.Context, s *dto.StockSummaryResponse, m []dto.MovementResponse) ([]byte, error) {
	f.summary, f.movements = s, m
	return []byte("%PDF-fake"), nil
}

func TestExportStockSummaryPDF(t *testing.T) {
	report := &fakeReport{}
	uc, _ := newEngine(t, inventory.WithReportGenerator(report))
	receive(t, uc, "arroz", "A", "5", 2)
	receive(t, uc, "arroz", "B", "8", 1)
	_, err := consume(uc, "arroz", "6")
	require.NoError(t, err)

	doc, err := uc.ExportStockSummaryPDF(context.Background(), dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	require.NoError(t, err)
	assert.Equal(t, "%PDF-fake", string(doc))
	assert.Equal(t, "7", report.summary.TotalAvailableStock.String())
	assert.Equal(t, 1, report.summary.NumberOfBatches)
	assert.Len(t, report.movements, 4)
}

func TestExportStockSummaryPDF_SinGenerador(t *testing.T) {
	uc, _ := newEngine(t)
	_, err := uc.ExportStockSummaryPDF(context.Background(), dto.StockQuery{ProductID: "arroz", InstitutionID: institution})
	assert.ErrorIs(t, err, inventory.ErrReportsDisabled)
}
