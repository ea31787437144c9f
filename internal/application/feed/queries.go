package feed

import (
	"context"

	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// PendingTransfers es la cola de acuse de recibo de un empleado.
func PendingTransfers(tm *inventory.TransferManager, staffID string) Query {
	return Query{
		Name:   "transfers.pending",
		Topics: []string{inventory.TopicTransfers},
		Load: func(ctx context.Context) (any, error) {
			return tm.PendingFor(ctx, staffID)
		},
	}
}

// PendingBatches son los lotes que esperan aprobación.
func PendingBatches(pe *inventory.ProductionApprovalEngine) Query {
	return Query{
		Name:   "production_batches.pending",
		Topics: []string{inventory.TopicBatches},
		Load: func(ctx context.Context) (any, error) {
			return pe.List(ctx, entity.BatchStatusPendingApproval)
		},
	}
}

// ActiveSalesRuns son los sales runs activos de un empleado. También depende del stock:
// el inventario de trabajo cambia con cada venta.
func ActiveSalesRuns(b *inventory.SalesRunBridge, staffID string) Query {
	return Query{
		Name:   "sales_runs.active",
		Topics: []string{inventory.TopicTransfers, inventory.TopicStock},
		Load: func(ctx context.Context) (any, error) {
			return b.ActiveRuns(ctx, staffID)
		},
	}
}
