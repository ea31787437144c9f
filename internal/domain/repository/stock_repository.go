package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// StockRepository define el puerto para consultar/actualizar contadores de stock por scope+entidad.
// Usado dentro de transacciones para garantizar consistencia.
type StockRepository interface {
	// Get devuelve el contador; si no existe, uno en cero.
	Get(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error)
	// GetForUpdate igual que Get pero bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	GetForUpdate(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error)
	Upsert(ctx context.Context, record *entity.StockRecord) error
	ListByScope(ctx context.Context, scope entity.Scope) ([]*entity.StockRecord, error)
}
