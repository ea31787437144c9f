package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

var _ repository.StockMovementRepository = (*StockMovementRepo)(nil)

// StockMovementRepo persiste el diario del ledger (usable con pool o tx).
type StockMovementRepo struct {
	q Querier
}

// NewStockMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewStockMovementRepository(q Querier) *StockMovementRepo {
	return &StockMovementRepo{q: q}
}

// Create persiste una línea del diario.
func (r *StockMovementRepo) Create(ctx context.Context, m *entity.StockMovement) error {
	if m.ID == "" {
		m.ID = uuid.New().String()
	}
	query := `
		INSERT INTO stock_movements (id, transaction_id, scope, entity_id, delta, balance_after, reason, reference, created_by, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`
	_, err := r.q.Exec(ctx, query,
		m.ID, m.TransactionID, string(m.Scope), m.EntityID, m.Delta, m.BalanceAfter,
		m.Reason, nullable(m.Reference), nullable(m.CreatedBy), m.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("create stock movement: %w", err)
	}
	return nil
}

// ListByReference lista los movimientos de una transferencia, lote o merma.
func (r *StockMovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	query := `
		SELECT id, transaction_id, scope, entity_id, delta, balance_after, reason,
		       COALESCE(reference, ''), COALESCE(created_by, ''), created_at
		FROM stock_movements WHERE reference = $1
		ORDER BY created_at, scope, entity_id`
	rows, err := r.q.Query(ctx, query, reference)
	if err != nil {
		return nil, fmt.Errorf("list stock movements: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockMovement
	for rows.Next() {
		var (
			m     entity.StockMovement
			scope string
		)
		if err := rows.Scan(&m.ID, &m.TransactionID, &scope, &m.EntityID, &m.Delta, &m.BalanceAfter,
			&m.Reason, &m.Reference, &m.CreatedBy, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan stock movement: %w", err)
		}
		m.Scope = entity.Scope(scope)
		list = append(list, &m)
	}
	return list, rows.Err()
}

// nullable convierte "" en NULL.
func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
