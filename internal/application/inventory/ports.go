package inventory

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// Repos agrupa los repositorios atados a una misma transacción.
type Repos struct {
	Stock     repository.StockRepository
	Movements repository.StockMovementRepository
	Transfers repository.TransferRepository
	Batches   repository.ProductionBatchRepository
	Waste     repository.WasteLogRepository
}

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Todas las escrituras de fn se confirman juntas o ninguna. Si detecta una escritura concurrente
// sobre algo que fn leyó, devuelve domain.ErrConflict.
type TxRunner interface {
	Run(ctx context.Context, fn func(ctx context.Context, repos Repos) error) error
}

// Event es un hecho de dominio ya confirmado.
type Event struct {
	Type      string
	Reference string
	ActorID   string
	Payload   any
}

// Tipos de evento publicados tras el commit.
const (
	EventTransferInitiated       = "transfer.initiated"
	EventTransferAccepted        = "transfer.accepted"
	EventTransferDeclined        = "transfer.declined"
	EventTransferReturnRequested = "transfer.return_requested"
	EventTransferReturnCompleted = "transfer.return_completed"
	EventBatchSubmitted          = "production_batch.submitted"
	EventBatchApproved           = "production_batch.approved"
	EventBatchDeclined           = "production_batch.declined"
	EventBatchCompleted          = "production_batch.completed"
	EventWasteReported           = "waste.reported"
)

// EventPublisher publica eventos de dominio fuera de la transacción (best-effort).
type EventPublisher interface {
	Publish(ctx context.Context, event Event) error
}

// ChangeNotifier avisa al ChangeFeed que cambiaron registros de un tópico.
type ChangeNotifier interface {
	Notify(ctx context.Context, topics ...string) error
}

// Tópicos de cambio (colecciones observadas por el ChangeFeed).
const (
	TopicTransfers = "transfers"
	TopicBatches   = "production_batches"
	TopicStock     = "stock"
	TopicWaste     = "waste_logs"
)
