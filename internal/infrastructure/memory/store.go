// Package memory implementa el almacén atómico en memoria. Se usa en tests y con STORE_DRIVER=memory.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// Store guarda todo el estado detrás de un único mutex. Cada transacción trabaja sobre una copia
// y solo la publica si fn termina sin error, así que un fallo no deja rastro.
type Store struct {
	mu       sync.RWMutex
	st       *state
	products map[string]entity.Product
}

type state struct {
	stock     map[entity.StockKey]entity.StockRecord
	movements []entity.StockMovement
	transfers map[string]entity.Transfer
	batches   map[string]entity.ProductionBatch
	waste     map[string]entity.WasteLog
}

// NewStore crea un almacén vacío.
func NewStore() *Store {
	return &Store{
		st: &state{
			stock:     make(map[entity.StockKey]entity.StockRecord),
			transfers: make(map[string]entity.Transfer),
			batches:   make(map[string]entity.ProductionBatch),
			waste:     make(map[string]entity.WasteLog),
		},
		products: make(map[string]entity.Product),
	}
}

var _ inventory.TxRunner = (*Store)(nil)

// Run ejecuta fn sobre una copia del estado y la confirma si fn no falla. Las transacciones
// se serializan, por lo que nunca hay conflictos que reintentar.
func (s *Store) Run(ctx context.Context, fn func(ctx context.Context, repos inventory.Repos) error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	work := s.st.clone()
	if err := fn(ctx, s.reposFor(work)); err != nil {
		return err
	}
	s.st = work
	return nil
}

// Repos devuelve repositorios de lectura fuera de transacción.
func (s *Store) Repos() inventory.ReadRepos {
	return inventory.ReadRepos{
		Stock:     &StockRepo{s: s},
		Transfers: &TransferRepo{s: s},
		Batches:   &BatchRepo{s: s},
		Waste:     &WasteRepo{s: s},
		Products:  &ProductRepo{s: s},
	}
}

// Movements devuelve el repositorio del diario fuera de transacción.
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

func (s *Store) reposFor(tx *state) inventory.Repos {
	return inventory.Repos{
		Stock:     &StockRepo{s: s, tx: tx},
		Movements: &MovementRepo{s: s, tx: tx},
		Transfers: &TransferRepo{s: s, tx: tx},
		Batches:   &BatchRepo{s: s, tx: tx},
		Waste:     &WasteRepo{s: s, tx: tx},
	}
}

// SeedStock fija una cantidad inicial sin pasar por el ledger (datos de arranque y tests).
func (s *Store) SeedStock(scope entity.Scope, entityID string, qty decimal.Decimal) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.st.stock[entity.StockKey{Scope: scope, EntityID: entityID}] = entity.StockRecord{
		Scope: scope, EntityID: entityID, Quantity: qty, UpdatedAt: time.Now().UTC(),
	}
}

// AddProduct registra un artículo en el catálogo.
func (s *Store) AddProduct(p entity.Product) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.products[p.ID] = p
}

// TotalStock suma la cantidad de una entidad en todos los scopes.
func (s *Store) TotalStock(entityID string) decimal.Decimal {
	s.mu.RLock()
	defer s.mu.RUnlock()
	total := decimal.Zero
	for k, rec := range s.st.stock {
		if k.EntityID == entityID {
			total = total.Add(rec.Quantity)
		}
	}
	return total
}

// view ejecuta fn sobre el estado de la tx o, fuera de ella, sobre el confirmado con lock de lectura.
func (s *Store) view(tx *state, fn func(st *state)) {
	if tx != nil {
		fn(tx)
		return
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	fn(s.st)
}

// update igual que view pero para escrituras fuera de transacción.
func (s *Store) update(tx *state, fn func(st *state) error) error {
	if tx != nil {
		return fn(tx)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return fn(s.st)
}

// clone copia los mapas. Los valores se guardan como copias profundas y nunca se mutan en sitio.
func (st *state) clone() *state {
	out := &state{
		stock:     make(map[entity.StockKey]entity.StockRecord, len(st.stock)),
		movements: slices.Clone(st.movements),
		transfers: make(map[string]entity.Transfer, len(st.transfers)),
		batches:   make(map[string]entity.ProductionBatch, len(st.batches)),
		waste:     make(map[string]entity.WasteLog, len(st.waste)),
	}
	for k, v := range st.stock {
		out.stock[k] = v
	}
	for k, v := range st.transfers {
		out.transfers[k] = v
	}
	for k, v := range st.batches {
		out.batches[k] = v
	}
	for k, v := range st.waste {
		out.waste[k] = v
	}
	return out
}
