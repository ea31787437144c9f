package inventory

import (
	"context"
	"sort"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// Adjustment es un delta firmado sobre un contador.
type Adjustment struct {
	Scope    entity.Scope
	EntityID string
	Delta    decimal.Decimal
}

// MovementRef describe la acción de negocio que origina los deltas (queda en el diario).
type MovementRef struct {
	Reason    string
	Reference string
	ActorID   string
}

// StockLedger es el único dueño de los contadores de stock. Aplica deltas de forma atómica
// y garantiza que ninguna cantidad quede negativa.
type StockLedger struct {
	txRunner TxRunner
	stock    repository.StockRepository
	c        collaborators
}

// NewStockLedger construye el ledger. stock se usa solo para lecturas fuera de transacción.
func NewStockLedger(txRunner TxRunner, stock repository.StockRepository, opts ...Option) *StockLedger {
	return &StockLedger{txRunner: txRunner, stock: stock, c: newCollaborators(opts)}
}

// Read devuelve la cantidad actual. Es una foto: puede cambiar justo después de leerla.
func (l *StockLedger) Read(ctx context.Context, scope entity.Scope, entityID string) (decimal.Decimal, error) {
	rec, err := l.stock.Get(ctx, scope, entityID)
	if err != nil {
		return decimal.Zero, err
	}
	return rec.Quantity, nil
}

// ReadScope lista todos los contadores de un scope.
func (l *StockLedger) ReadScope(ctx context.Context, scope entity.Scope) ([]*entity.StockRecord, error) {
	if _, ok := entity.ParseScope(string(scope)); !ok {
		return nil, domain.Invalid("scope", "debe ser central o staff:<id>")
	}
	return l.stock.ListByScope(ctx, scope)
}

// Adjust aplica un único delta en su propia transacción.
func (l *StockLedger) Adjust(ctx context.Context, scope entity.Scope, entityID string, delta decimal.Decimal, ref MovementRef) error {
	return l.AdjustBatch(ctx, []Adjustment{{Scope: scope, EntityID: entityID, Delta: delta}}, ref)
}

// AdjustBatch aplica todos los deltas o ninguno, en su propia transacción.
func (l *StockLedger) AdjustBatch(ctx context.Context, adjustments []Adjustment, ref MovementRef) error {
	ctx, span := l.c.tracer.Start(ctx, "StockLedger.AdjustBatch")
	defer span.End()
	span.SetAttributes(attribute.Int("adjustments", len(adjustments)), attribute.String("reason", ref.Reason))

	if _, err := normalize(adjustments); err != nil {
		return err
	}
	err := l.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		_, err := l.ApplyInTx(ctx, repos, adjustments, ref)
		return err
	})
	if err != nil {
		span.RecordError(err)
		return err
	}
	l.c.afterCommit(ctx, []string{TopicStock})
	return nil
}

// ApplyInTx aplica los deltas dentro de la transacción del llamador. Bloquea las filas en
// orden estable (scope, entidad), valida que ningún saldo quede negativo antes de escribir
// y registra cada delta en el diario. Si devuelve error el llamador debe abortar la transacción.
func (l *StockLedger) ApplyInTx(ctx context.Context, repos Repos, adjustments []Adjustment, ref MovementRef) ([]*entity.StockRecord, error) {
	merged, err := normalize(adjustments)
	if err != nil {
		return nil, err
	}
	if len(merged) == 0 {
		return nil, nil
	}

	locked := make([]*entity.StockRecord, len(merged))
	for i, adj := range merged {
		rec, err := repos.Stock.GetForUpdate(ctx, adj.Scope, adj.EntityID)
		if err != nil {
			return nil, err
		}
		next := rec.Quantity.Add(adj.Delta)
		if next.IsNegative() {
			return nil, &domain.InsufficientStockError{
				Scope:     string(adj.Scope),
				EntityID:  adj.EntityID,
				Available: rec.Quantity,
				Requested: adj.Delta.Neg(),
			}
		}
		locked[i] = rec
	}

	now := l.c.clock()
	txID := uuid.New().String()
	for i, adj := range merged {
		rec := locked[i]
		rec.Quantity = rec.Quantity.Add(adj.Delta)
		rec.UpdatedAt = now
		if err := repos.Stock.Upsert(ctx, rec); err != nil {
			return nil, err
		}
		mov := &entity.StockMovement{
			ID:            uuid.New().String(),
			TransactionID: txID,
			Scope:         adj.Scope,
			EntityID:      adj.EntityID,
			Delta:         adj.Delta,
			BalanceAfter:  rec.Quantity,
			Reason:        ref.Reason,
			Reference:     ref.Reference,
			CreatedBy:     ref.ActorID,
			CreatedAt:     now,
		}
		if err := repos.Movements.Create(ctx, mov); err != nil {
			return nil, err
		}
	}
	return locked, nil
}

// normalize valida, fusiona deltas de la misma clave, descarta netos en cero y ordena por clave.
func normalize(adjustments []Adjustment) ([]Adjustment, error) {
	byKey := make(map[entity.StockKey]decimal.Decimal, len(adjustments))
	for _, adj := range adjustments {
		if _, ok := entity.ParseScope(string(adj.Scope)); !ok {
			return nil, domain.Invalid("scope", "debe ser central o staff:<id>")
		}
		if adj.EntityID == "" {
			return nil, domain.Invalid("entity_id", "requerido")
		}
		if adj.Delta.IsZero() {
			return nil, domain.Invalid("delta", "no puede ser cero")
		}
		if !entity.FitsQuantityScale(adj.Delta) {
			return nil, domain.Invalid("delta", "máximo 3 decimales")
		}
		k := entity.StockKey{Scope: adj.Scope, EntityID: adj.EntityID}
		byKey[k] = byKey[k].Add(adj.Delta)
	}
	keys := make([]entity.StockKey, 0, len(byKey))
	for k, d := range byKey {
		if d.IsZero() {
			continue
		}
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	out := make([]Adjustment, 0, len(keys))
	for _, k := range keys {
		out = append(out, Adjustment{Scope: k.Scope, EntityID: k.EntityID, Delta: byKey[k]})
	}
	return out, nil
}

// validQuantity exige una cantidad positiva representable sin redondeo en el almacén.
func validQuantity(field string, q decimal.Decimal) error {
	if !q.IsPositive() {
		return domain.Invalid(field, "debe ser mayor que cero")
	}
	if !entity.FitsQuantityScale(q) {
		return domain.Invalid(field, "máximo 3 decimales")
	}
	return nil
}
