package inventory

import (
	"context"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// SalesRunItem es una línea del inventario de trabajo de un sales run.
type SalesRunItem struct {
	ProductID   string
	ProductName string
	Transferred decimal.Decimal
	OnHand      decimal.Decimal // stock personal vivo del receptor
}

// SalesRunInventory es el inventario de trabajo del repartidor/showroom durante un sales run.
type SalesRunInventory struct {
	TransferID string
	StaffID    string
	StaffName  string
	Status     string
	Items      []SalesRunItem
}

// SalesRunBridge expone un sales run activo como inventario de trabajo. Solo lectura: las
// cantidades son los mismos StockRecord personales que descuentan las ventas.
type SalesRunBridge struct {
	transfers repository.TransferRepository
	ledger    *StockLedger
}

// NewSalesRunBridge construye la proyección.
func NewSalesRunBridge(transfers repository.TransferRepository, ledger *StockLedger) *SalesRunBridge {
	return &SalesRunBridge{transfers: transfers, ledger: ledger}
}

// WorkingInventory devuelve las líneas de un sales run activo con el stock personal actual del receptor.
func (b *SalesRunBridge) WorkingInventory(ctx context.Context, transferID string) (*SalesRunInventory, error) {
	if transferID == "" {
		return nil, domain.Invalid("transfer_id", "requerido")
	}
	t, err := b.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	if !t.IsSalesRun {
		return nil, domain.Invalid("transfer_id", "no es un sales run")
	}
	if t.Status != entity.TransferStatusActive {
		return nil, domain.ErrInvalidStateTransition
	}

	inv := &SalesRunInventory{
		TransferID: t.ID,
		StaffID:    t.ToStaffID,
		StaffName:  t.ToStaffName,
		Status:     t.Status,
	}
	seen := make(map[string]int, len(t.Items))
	for _, it := range t.Items {
		if i, ok := seen[it.ProductID]; ok {
			inv.Items[i].Transferred = inv.Items[i].Transferred.Add(it.Quantity)
			continue
		}
		onHand, err := b.ledger.Read(ctx, t.DestinationScope, it.ProductID)
		if err != nil {
			return nil, err
		}
		seen[it.ProductID] = len(inv.Items)
		inv.Items = append(inv.Items, SalesRunItem{
			ProductID:   it.ProductID,
			ProductName: it.ProductName,
			Transferred: it.Quantity,
			OnHand:      onHand,
		})
	}
	return inv, nil
}

// ActiveRuns lista los sales runs activos recibidos por un empleado.
func (b *SalesRunBridge) ActiveRuns(ctx context.Context, staffID string) ([]*entity.Transfer, error) {
	if staffID == "" {
		return nil, domain.Invalid("staff_id", "requerido")
	}
	salesRun := true
	return b.transfers.List(ctx, repository.TransferFilter{
		ToStaffID: staffID,
		Statuses:  []string{entity.TransferStatusActive},
		SalesRun:  &salesRun,
	})
}
