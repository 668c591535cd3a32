package inventory

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/rs/zerolog"
)

// DefaultAdjustmentActor actor usado cuando un ajuste no indica quién lo realiza.
const DefaultAdjustmentActor = "inventory_auditor"

// UseCase motor de inventario: recepción de lotes, consumo FIFO, ajustes manuales,
// bajas y consultas de stock sobre el libro de movimientos.
// Se construye una sola vez al iniciar el proceso y se inyecta en los handlers.
type UseCase struct {
	txRunner  TxRunner
	batches   repository.BatchRepository
	movements repository.InventoryMovementRepository
	catalog   repository.ProductCatalog
	ledger    *Ledger
	cache     StockCache
	reports   StockReportGenerator
	exporter  LedgerExporter
	log       zerolog.Logger
	now       func() time.Time
}

// Option configura dependencias opcionales del caso de uso.
type Option func(*UseCase)

// WithStockCache habilita la caché de resúmenes de stock.
func WithStockCache(c StockCache) Option {
	return func(uc *UseCase) {
		if c != nil {
			uc.cache = c
		}
	}
}

// WithReportGenerator habilita la exportación del kardex en PDF.
func WithReportGenerator(g StockReportGenerator) Option {
	return func(uc *UseCase) { uc.reports = g }
}

// WithLedgerExporter habilita la exportación de movimientos a Excel.
func WithLedgerExporter(e LedgerExporter) Option {
	return func(uc *UseCase) { uc.exporter = e }
}

// WithClock reemplaza el reloj (pruebas).
func WithClock(now func() time.Time) Option {
	return func(uc *UseCase) { uc.now = now }
}

// NewUseCase construye el motor. batches y movements se usan para lecturas fuera de transacción.
func NewUseCase(
	txRunner TxRunner,
	batches repository.BatchRepository,
	movements repository.InventoryMovementRepository,
	catalog repository.ProductCatalog,
	log zerolog.Logger,
	opts ...Option,
) *UseCase {
	uc := &UseCase{
		txRunner:  txRunner,
		batches:   batches,
		movements: movements,
		catalog:   catalog,
		cache:     noopStockCache{},
		log:       log.With().Str("component", "inventory").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(uc)
	}
	uc.ledger = NewLedger(catalog, uc.now)
	return uc
}

// Ledger expone el libro de movimientos (para otros casos de uso que registren movimientos propios).
func (uc *UseCase) Ledger() *Ledger { return uc.ledger }

func (uc *UseCase) ensureProduct(ctx context.Context, productID string) error {
	if strings.TrimSpace(productID) == "" {
		return fmt.Errorf("%w: product_id es obligatorio", domain.ErrInvalidInput)
	}
	ok, err := uc.catalog.Exists(ctx, productID)
	if err != nil {
		return domain.Persistence("consultar producto", err)
	}
	if !ok {
		return fmt.Errorf("%w: %s", domain.ErrProductNotFound, productID)
	}
	return nil
}

func normalizeUnit(unit string) string {
	unit = strings.TrimSpace(unit)
	if unit == "" {
		return entity.DefaultUnit
	}
	return unit
}

func optional(s string) *string {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	return &s
}

func joinNotes(parts ...string) string {
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return strings.Join(out, " ")
}
