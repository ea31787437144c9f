package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// ProductionBatchRepository define el puerto de persistencia para lotes de producción.
type ProductionBatchRepository interface {
	Create(ctx context.Context, batch *entity.ProductionBatch) error
	GetByID(ctx context.Context, id string) (*entity.ProductionBatch, error)
	GetForUpdate(ctx context.Context, id string) (*entity.ProductionBatch, error)
	// UpdateStatus persiste el estado solo si el guardado es expectedStatus (domain.ErrInvalidStateTransition si no).
	UpdateStatus(ctx context.Context, batch *entity.ProductionBatch, expectedStatus string) error
	ListByStatus(ctx context.Context, status string) ([]*entity.ProductionBatch, error)
}
