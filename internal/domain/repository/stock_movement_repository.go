package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// StockMovementRepository define el puerto de persistencia del diario del ledger.
type StockMovementRepository interface {
	Create(ctx context.Context, movement *entity.StockMovement) error
	ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error)
}
