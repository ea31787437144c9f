package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// WasteLogRepository define el puerto de persistencia (solo inserción) para mermas.
type WasteLogRepository interface {
	Create(ctx context.Context, log *entity.WasteLog) error
	GetByRequestID(ctx context.Context, requestID string) (*entity.WasteLog, error)
	ListByStaff(ctx context.Context, staffID string) ([]*entity.WasteLog, error)
}
