package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
)

// Estados de una transferencia.
const (
	TransferStatusPending         = "pending"
	TransferStatusActive          = "active" // sales run en curso
	TransferStatusCompleted       = "completed"
	TransferStatusDeclined        = "declined"
	TransferStatusPendingReturn   = "pending_return"
	TransferStatusReturnCompleted = "return_completed"
)

// Acciones de acuse de recibo.
const (
	AcknowledgeAccept  = "accept"
	AcknowledgeDecline = "decline"
)

// TransferItem es una línea de la transferencia.
type TransferItem struct {
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
}

// Transfer es una intención de mover stock de un empleado (o del almacén central) a otro.
// No toca stock hasta que el receptor la acepta.
type Transfer struct {
	ID               string
	RequestID        string // clave de idempotencia del cliente (opcional)
	FromStaffID      string
	FromStaffName    string
	ToStaffID        string
	ToStaffName      string
	SourceScope      Scope
	DestinationScope Scope
	Items            []TransferItem
	ReturnedItems    []TransferItem
	IsSalesRun       bool
	Notes            string
	Status           string
	DateInitiated    time.Time
	TimeReceived     *time.Time
	TimeCompleted    *time.Time
}

// IsTerminal indica si la transferencia ya no admite transiciones.
func (t *Transfer) IsTerminal() bool {
	switch t.Status {
	case TransferStatusDeclined, TransferStatusCompleted, TransferStatusReturnCompleted:
		return true
	}
	return false
}

// TotalQuantity suma las cantidades de las líneas.
func (t *Transfer) TotalQuantity() decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		total = total.Add(it.Quantity)
	}
	return total
}

// Accept pasa de pending a active (sales run) o completed y sella los tiempos.
func (t *Transfer) Accept(now time.Time) error {
	if t.Status != TransferStatusPending {
		return domain.ErrInvalidStateTransition
	}
	t.TimeReceived = &now
	if t.IsSalesRun {
		t.Status = TransferStatusActive
		return nil
	}
	t.Status = TransferStatusCompleted
	return t.stampCompleted(now)
}

// Decline pasa de pending a declined. Terminal.
func (t *Transfer) Decline() error {
	if t.Status != TransferStatusPending {
		return domain.ErrInvalidStateTransition
	}
	t.Status = TransferStatusDeclined
	return nil
}

// RequestReturn abre el cierre de un sales run activo.
func (t *Transfer) RequestReturn() error {
	if !t.IsSalesRun || t.Status != TransferStatusActive {
		return domain.ErrInvalidStateTransition
	}
	t.Status = TransferStatusPendingReturn
	return nil
}

// CompleteReturn cierra el sales run con las unidades devueltas.
func (t *Transfer) CompleteReturn(returned []TransferItem, now time.Time) error {
	if t.Status != TransferStatusPendingReturn {
		return domain.ErrInvalidStateTransition
	}
	if err := t.stampCompleted(now); err != nil {
		return err
	}
	t.Status = TransferStatusReturnCompleted
	t.ReturnedItems = returned
	return nil
}

// TimeCompleted se sella una única vez.
func (t *Transfer) stampCompleted(now time.Time) error {
	if t.TimeCompleted != nil {
		return domain.ErrInvalidStateTransition
	}
	t.TimeCompleted = &now
	return nil
}

// TransferredQuantity devuelve la cantidad transferida de un producto.
func (t *Transfer) TransferredQuantity(productID string) decimal.Decimal {
	total := decimal.Zero
	for _, it := range t.Items {
		if it.ProductID == productID {
			total = total.Add(it.Quantity)
		}
	}
	return total
}
