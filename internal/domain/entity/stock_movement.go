package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos de un movimiento de stock.
const (
	MovementReasonTransferAccept = "transfer_accept"
	MovementReasonTransferReturn = "transfer_return"
	MovementReasonBatchApprove   = "batch_approve"
	MovementReasonWaste          = "waste"
	MovementReasonManual         = "manual"
)

// StockMovement es una línea del diario del ledger: un delta aplicado a un StockRecord.
// Todas las líneas de una misma acción comparten TransactionID.
type StockMovement struct {
	ID            string
	TransactionID string
	Scope         Scope
	EntityID      string
	Delta         decimal.Decimal // positivo entrada, negativo salida
	BalanceAfter  decimal.Decimal
	Reason        string
	Reference     string // id de transferencia, lote o registro de merma
	CreatedBy     string
	CreatedAt     time.Time
}
