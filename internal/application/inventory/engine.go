package inventory

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// Result es la respuesta de una operación expuesta. Los fallos de negocio esperados viajan en
// Error; el error Go queda reservado para fallos de infraestructura.
type Result struct {
	Success bool
	Error   domain.ErrorKind
	Message string
	Data    any
}

// Engine agrupa los componentes del motor de movimientos detrás de las operaciones expuestas.
type Engine struct {
	Ledger     *StockLedger
	Transfers  *TransferManager
	Production *ProductionApprovalEngine
	Waste      *WasteRecorder
	SalesRuns  *SalesRunBridge
}

// ReadRepos son los repositorios de lectura fuera de transacción que usa el motor.
type ReadRepos struct {
	Stock     repository.StockRepository
	Transfers repository.TransferRepository
	Batches   repository.ProductionBatchRepository
	Waste     repository.WasteLogRepository
	Products  repository.ProductRepository
}

// NewEngine arma todos los componentes sobre el mismo TxRunner y las mismas opciones.
func NewEngine(txRunner TxRunner, read ReadRepos, opts ...Option) *Engine {
	ledger := NewStockLedger(txRunner, read.Stock, opts...)
	return &Engine{
		Ledger:     ledger,
		Transfers:  NewTransferManager(txRunner, ledger, read.Transfers, read.Products, opts...),
		Production: NewProductionApprovalEngine(txRunner, ledger, read.Batches, opts...),
		Waste:      NewWasteRecorder(txRunner, ledger, read.Waste, read.Products, opts...),
		SalesRuns:  NewSalesRunBridge(read.Transfers, ledger),
	}
}

// InitiateTransfer crea una transferencia pendiente.
func (e *Engine) InitiateTransfer(ctx context.Context, user entity.CurrentUser, in InitiateTransferInput) (Result, error) {
	return toResult(e.Transfers.Initiate(ctx, user, in))
}

// AcknowledgeTransfer acepta o rechaza una transferencia pendiente.
func (e *Engine) AcknowledgeTransfer(ctx context.Context, user entity.CurrentUser, transferID, action string) (Result, error) {
	return toResult(e.Transfers.Acknowledge(ctx, user, transferID, action))
}

// RequestReturn abre la devolución de un sales run.
func (e *Engine) RequestReturn(ctx context.Context, user entity.CurrentUser, transferID string) (Result, error) {
	return toResult(e.Transfers.RequestReturn(ctx, user, transferID))
}

// CompleteReturn liquida un sales run.
func (e *Engine) CompleteReturn(ctx context.Context, user entity.CurrentUser, transferID string, returned []entity.TransferItem) (Result, error) {
	return toResult(e.Transfers.CompleteReturn(ctx, user, transferID, returned))
}

// ReportWaste registra merma.
func (e *Engine) ReportWaste(ctx context.Context, user entity.CurrentUser, in ReportWasteInput) (Result, error) {
	return toResult(e.Waste.Report(ctx, user, in))
}

// SubmitBatch registra una solicitud de ingredientes.
func (e *Engine) SubmitBatch(ctx context.Context, user entity.CurrentUser, in SubmitBatchInput) (Result, error) {
	return toResult(e.Production.Submit(ctx, user, in))
}

// EvaluateBatch compara una solicitud con el stock central.
func (e *Engine) EvaluateBatch(ctx context.Context, batchID string) (Result, error) {
	return toResult(e.Production.Evaluate(ctx, batchID))
}

// ApproveIngredientRequest aprueba una solicitud y descuenta todos sus ingredientes.
func (e *Engine) ApproveIngredientRequest(ctx context.Context, user entity.CurrentUser, batchID string) (Result, error) {
	return toResult(e.Production.Approve(ctx, user, batchID))
}

// DeclineProductionBatch rechaza una solicitud.
func (e *Engine) DeclineProductionBatch(ctx context.Context, user entity.CurrentUser, batchID string) (Result, error) {
	return toResult(e.Production.Decline(ctx, user, batchID))
}

// CompleteBatch cierra un lote en producción.
func (e *Engine) CompleteBatch(ctx context.Context, user entity.CurrentUser, batchID string) (Result, error) {
	return toResult(e.Production.Complete(ctx, user, batchID))
}

// SalesRunInventory devuelve el inventario de trabajo de un sales run activo.
func (e *Engine) SalesRunInventory(ctx context.Context, transferID string) (Result, error) {
	return toResult(e.SalesRuns.WorkingInventory(ctx, transferID))
}

func toResult[T any](data T, err error) (Result, error) {
	if err == nil {
		return Result{Success: true, Data: data}, nil
	}
	kind := domain.KindOf(err)
	res := Result{Error: kind, Message: err.Error()}
	if kind == domain.KindInfrastructure {
		return res, err
	}
	return res, nil
}
