package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

var _ repository.ProductionBatchRepository = (*ProductionBatchRepo)(nil)

// ProductionBatchRepo implementación de ProductionBatchRepository sobre PostgreSQL.
type ProductionBatchRepo struct {
	q Querier
}

// NewProductionBatchRepository construye el adaptador de lotes. Pasar pool o tx (Querier).
func NewProductionBatchRepository(q Querier) *ProductionBatchRepo {
	return &ProductionBatchRepo{q: q}
}

type ingredientRow struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
}

const batchColumns = `
	id, recipe_name, ingredients, requested_by_staff_id, requested_by_name, status, created_at,
	COALESCE(approved_by, ''), approved_at, COALESCE(declined_by, ''), declined_at, completed_at`

// Create inserta el lote.
func (r *ProductionBatchRepo) Create(ctx context.Context, b *entity.ProductionBatch) error {
	rows := make([]ingredientRow, 0, len(b.Ingredients))
	for _, in := range b.Ingredients {
		rows = append(rows, ingredientRow{IngredientID: in.IngredientID, IngredientName: in.IngredientName, Quantity: in.Quantity, Unit: in.Unit})
	}
	ingredients, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode ingredients: %w", err)
	}
	query := `
		INSERT INTO production_batches (id, recipe_name, ingredients, requested_by_staff_id, requested_by_name,
			status, created_at, approved_by, approved_at, declined_by, declined_at, completed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)`
	_, err = r.q.Exec(ctx, query,
		b.ID, b.RecipeName, ingredients, b.RequestedByStaffID, b.RequestedByName,
		b.Status, b.CreatedAt, nullable(b.ApprovedBy), b.ApprovedAt, nullable(b.DeclinedBy), b.DeclinedAt, b.CompletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create production batch: %w", err)
	}
	return nil
}

// GetByID devuelve el lote o nil si no existe.
func (r *ProductionBatchRepo) GetByID(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	return r.getOne(ctx, `SELECT`+batchColumns+` FROM production_batches WHERE id = $1`, id)
}

// GetForUpdate bloquea el lote hasta el fin de la transacción.
func (r *ProductionBatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	return r.getOne(ctx, `SELECT`+batchColumns+` FROM production_batches WHERE id = $1 FOR UPDATE`, id)
}

func (r *ProductionBatchRepo) getOne(ctx context.Context, query, id string) (*entity.ProductionBatch, error) {
	b, err := scanBatch(r.q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get production batch: %w", err)
	}
	return b, nil
}

// UpdateStatus persiste la transición solo si el estado guardado es expectedStatus.
func (r *ProductionBatchRepo) UpdateStatus(ctx context.Context, b *entity.ProductionBatch, expectedStatus string) error {
	query := `
		UPDATE production_batches
		SET status = $2, approved_by = $3, approved_at = $4, declined_by = $5, declined_at = $6, completed_at = $7
		WHERE id = $1 AND status = $8`
	tag, err := r.q.Exec(ctx, query,
		b.ID, b.Status, nullable(b.ApprovedBy), b.ApprovedAt, nullable(b.DeclinedBy), b.DeclinedAt, b.CompletedAt,
		expectedStatus,
	)
	if err != nil {
		return fmt.Errorf("update production batch status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM production_batches WHERE id = $1)`, b.ID).Scan(&exists); err != nil {
		return fmt.Errorf("check production batch: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidStateTransition
}

// ListByStatus lista los lotes en un estado, más recientes primero.
func (r *ProductionBatchRepo) ListByStatus(ctx context.Context, status string) ([]*entity.ProductionBatch, error) {
	rows, err := r.q.Query(ctx, `SELECT`+batchColumns+`
		FROM production_batches WHERE status = $1
		ORDER BY created_at DESC, id`, status)
	if err != nil {
		return nil, fmt.Errorf("list production batches: %w", err)
	}
	defer rows.Close()

	var list []*entity.ProductionBatch
	for rows.Next() {
		b, err := scanBatch(rows)
		if err != nil {
			return nil, fmt.Errorf("scan production batch: %w", err)
		}
		list = append(list, b)
	}
	return list, rows.Err()
}

func scanBatch(row pgx.Row) (*entity.ProductionBatch, error) {
	var (
		b   entity.ProductionBatch
		raw []byte
	)
	err := row.Scan(&b.ID, &b.RecipeName, &raw, &b.RequestedByStaffID, &b.RequestedByName, &b.Status, &b.CreatedAt,
		&b.ApprovedBy, &b.ApprovedAt, &b.DeclinedBy, &b.DeclinedAt, &b.CompletedAt)
	if err != nil {
		return nil, err
	}
	var rows []ingredientRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode ingredients: %w", err)
		}
	}
	for _, r := range rows {
		b.Ingredients = append(b.Ingredients, entity.BatchIngredient{
			IngredientID: r.IngredientID, IngredientName: r.IngredientName, Quantity: r.Quantity, Unit: r.Unit,
		})
	}
	return &b, nil
}
