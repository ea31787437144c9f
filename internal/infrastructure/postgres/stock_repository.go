package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

var _ repository.StockRepository = (*StockRepo)(nil)

// StockRepo implementación de StockRepository sobre PostgreSQL (usable con pool o tx).
type StockRepo struct {
	q Querier
}

// NewStockRepository construye el adaptador de stock. Pasar pool o tx (Querier).
func NewStockRepository(q Querier) *StockRepo {
	return &StockRepo{q: q}
}

// Get obtiene el contador actual; si no existe devuelve uno en cero.
func (r *StockRepo) Get(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error) {
	query := `
		SELECT scope, entity_id, quantity, updated_at
		FROM stock_records WHERE scope = $1 AND entity_id = $2`
	rec, err := scanStock(r.q.QueryRow(ctx, query, string(scope), entityID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return &entity.StockRecord{Scope: scope, EntityID: entityID, Quantity: decimal.Zero}, nil
		}
		return nil, fmt.Errorf("get stock: %w", err)
	}
	return rec, nil
}

// GetForUpdate bloquea la fila hasta el fin de la transacción. Si no existe la crea en cero
// primero, así dos créditos concurrentes sobre un contador nuevo se serializan en el mismo lock.
func (r *StockRepo) GetForUpdate(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error) {
	_, err := r.q.Exec(ctx, `
		INSERT INTO stock_records (scope, entity_id, quantity, updated_at)
		VALUES ($1, $2, 0, now())
		ON CONFLICT (scope, entity_id) DO NOTHING`, string(scope), entityID)
	if err != nil {
		return nil, fmt.Errorf("ensure stock row: %w", err)
	}
	query := `
		SELECT scope, entity_id, quantity, updated_at
		FROM stock_records WHERE scope = $1 AND entity_id = $2
		FOR UPDATE`
	rec, err := scanStock(r.q.QueryRow(ctx, query, string(scope), entityID))
	if err != nil {
		return nil, fmt.Errorf("get stock for update: %w", err)
	}
	return rec, nil
}

// Upsert inserta o actualiza la cantidad (por scope y entidad).
func (r *StockRepo) Upsert(ctx context.Context, rec *entity.StockRecord) error {
	query := `
		INSERT INTO stock_records (scope, entity_id, quantity, updated_at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (scope, entity_id)
		DO UPDATE SET quantity = EXCLUDED.quantity, updated_at = EXCLUDED.updated_at`
	_, err := r.q.Exec(ctx, query, string(rec.Scope), rec.EntityID, rec.Quantity, rec.UpdatedAt)
	if err != nil {
		if isCheckViolation(err) {
			return &domain.InsufficientStockError{Scope: string(rec.Scope), EntityID: rec.EntityID, Requested: rec.Quantity.Neg()}
		}
		return fmt.Errorf("upsert stock: %w", err)
	}
	return nil
}

// ListByScope lista los contadores de un scope ordenados por entidad.
func (r *StockRepo) ListByScope(ctx context.Context, scope entity.Scope) ([]*entity.StockRecord, error) {
	query := `
		SELECT scope, entity_id, quantity, updated_at
		FROM stock_records WHERE scope = $1
		ORDER BY entity_id`
	rows, err := r.q.Query(ctx, query, string(scope))
	if err != nil {
		return nil, fmt.Errorf("list stock: %w", err)
	}
	defer rows.Close()

	var list []*entity.StockRecord
	for rows.Next() {
		rec, err := scanStock(rows)
		if err != nil {
			return nil, fmt.Errorf("scan stock: %w", err)
		}
		list = append(list, rec)
	}
	return list, rows.Err()
}

func scanStock(row pgx.Row) (*entity.StockRecord, error) {
	var (
		rec   entity.StockRecord
		scope string
	)
	if err := row.Scan(&scope, &rec.EntityID, &rec.Quantity, &rec.UpdatedAt); err != nil {
		return nil, err
	}
	rec.Scope = entity.Scope(scope)
	return &rec, nil
}
