// Package memory implementa los puertos de inventario en memoria (desarrollo y pruebas).
// Las transacciones se serializan con un mutex y se aplican copy-on-write:
// una transacción fallida no deja rastro.
package memory

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/jhoicas/pae-compras/internal/domain"
	"github.com/jhoicas/pae-compras/internal/domain/entity"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
)

type state struct {
	batches   map[string]*entity.Batch
	movements []*entity.InventoryMovement
	receipts  map[string]*entity.IngredientReceipt
}

func newState() state {
	return state{
		batches:  map[string]*entity.Batch{},
		receipts: map[string]*entity.IngredientReceipt{},
	}
}

// clone copia lotes en profundidad; movimientos y actas son inmutables una vez insertados.
func (s state) clone() state {
	c := state{
		batches:   make(map[string]*entity.Batch, len(s.batches)),
		movements: append([]*entity.InventoryMovement(nil), s.movements...),
		receipts:  make(map[string]*entity.IngredientReceipt, len(s.receipts)),
	}
	for k, v := range s.batches {
		c.batches[k] = v.Clone()
	}
	for k, v := range s.receipts {
		c.receipts[k] = v
	}
	return c
}

// Store almacén en memoria: lotes, libro de movimientos, actas y catálogo de productos.
type Store struct {
	mu    sync.RWMutex
	state state

	catalogMu sync.RWMutex
	products  map[string]entity.Product

	faultMu        sync.Mutex
	failSavesAfter int
	failSaveErr    error
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{state: newState(), products: map[string]entity.Product{}}
}

// AddProduct registra productos en el catálogo.
func (s *Store) AddProduct(products ...entity.Product) {
	s.catalogMu.Lock()
	defer s.catalogMu.Unlock()
	for _, p := range products {
		s.products[p.ID] = p
	}
}

// Exists implementa repository.ProductCatalog.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	s.catalogMu.RLock()
	defer s.catalogMu.RUnlock()
	_, ok := s.products[strings.TrimSpace(id)]
	return ok, nil
}

// FailBatchSaves hace que, tras `after` guardados exitosos de lotes, los siguientes fallen con err.
// err nil desactiva la falla.
func (s *Store) FailBatchSaves(after int, err error) {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	s.failSavesAfter = after
	s.failSaveErr = err
}

func (s *Store) batchSaveFault() error {
	s.faultMu.Lock()
	defer s.faultMu.Unlock()
	if s.failSaveErr == nil {
		return nil
	}
	if s.failSavesAfter > 0 {
		s.failSavesAfter--
		return nil
	}
	return s.failSaveErr
}

// Run implementa inventory.TxRunner sobre una copia del estado que solo se publica si fn no falla.
func (s *Store) Run(ctx context.Context, fn func(
	batchRepo repository.BatchRepository,
	movRepo repository.InventoryMovementRepository,
	receiptRepo repository.IngredientReceiptRepository,
) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx := s.state.clone()
	if err := fn(
		&BatchRepository{store: s, tx: &tx},
		&MovementRepository{store: s, tx: &tx},
		&ReceiptRepository{store: s, tx: &tx},
	); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("transacción cancelada: %w", err)
	}
	s.state = tx
	return nil
}

// Batches repositorio de lotes fuera de transacción.
func (s *Store) Batches() *BatchRepository { return &BatchRepository{store: s} }

// Movements repositorio del libro fuera de transacción.
func (s *Store) Movements() *MovementRepository { return &MovementRepository{store: s} }

// Receipts repositorio de actas fuera de transacción.
func (s *Store) Receipts() *ReceiptRepository { return &ReceiptRepository{store: s} }

// read ejecuta fn sobre el estado de la tx o, sin tx, sobre el estado publicado con bloqueo de lectura.
func (s *Store) read(tx *state, fn func(*state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	return fn(&s.state)
}

// write sin tx abre una transacción de una sola operación.
func (s *Store) write(ctx context.Context, tx *state, fn func(*state) error) error {
	if tx != nil {
		return fn(tx)
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	next := s.state.clone()
	if err := fn(&next); err != nil {
		return err
	}
	s.state = next
	return nil
}

var _ repository.ProductCatalog = (*Store)(nil)

func notFound(kind error, id string) error { return fmt.Errorf("%w: %s", kind, id) }

var errMovementNotFound = fmt.Errorf("%w: movimiento de inventario", domain.ErrNotFound)
