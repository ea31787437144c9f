package repository

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// TransferFilter filtra transferencias. Campos vacíos no filtran.
type TransferFilter struct {
	FromStaffID string
	ToStaffID   string
	Statuses    []string
	SalesRun    *bool
}

// TransferRepository define el puerto de persistencia para transferencias.
type TransferRepository interface {
	Create(ctx context.Context, transfer *entity.Transfer) error
	GetByID(ctx context.Context, id string) (*entity.Transfer, error)
	// GetForUpdate bloquea la transferencia hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error)
	GetByRequestID(ctx context.Context, requestID string) (*entity.Transfer, error)
	// UpdateStatus persiste el estado y los sellos de tiempo solo si el estado guardado es expectedStatus;
	// si no, devuelve domain.ErrInvalidStateTransition.
	UpdateStatus(ctx context.Context, transfer *entity.Transfer, expectedStatus string) error
	List(ctx context.Context, filter TransferFilter) ([]*entity.Transfer, error)
}
