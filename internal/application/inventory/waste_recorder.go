package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// ReportWasteInput entrada para reportar merma.
type ReportWasteInput struct {
	RequestID string
	Items     []entity.WasteItem
	Reason    string
	Notes     string
}

// WasteRecorder descuenta merma del stock del empleado que la reporta. Nunca suma stock.
type WasteRecorder struct {
	txRunner TxRunner
	ledger   *StockLedger
	logs     repository.WasteLogRepository
	products repository.ProductRepository
	c        collaborators
}

// NewWasteRecorder construye el caso de uso. logs y products se usan para lecturas fuera de tx.
func NewWasteRecorder(
	txRunner TxRunner,
	ledger *StockLedger,
	logs repository.WasteLogRepository,
	products repository.ProductRepository,
	opts ...Option,
) *WasteRecorder {
	return &WasteRecorder{txRunner: txRunner, ledger: ledger, logs: logs, products: products, c: newCollaborators(opts)}
}

// Report descuenta todas las líneas y crea un único WasteLog en la misma transacción.
// Si alguna línea supera el stock actual se rechaza el reporte completo.
func (w *WasteRecorder) Report(ctx context.Context, user entity.CurrentUser, in ReportWasteInput) (*entity.WasteLog, error) {
	ctx, span := w.c.tracer.Start(ctx, "WasteRecorder.Report")
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	if len(in.Items) == 0 {
		return nil, domain.Invalid("items", "al menos una línea")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return nil, domain.Invalid("items.product_id", "requerido")
		}
		if err := validQuantity("items.quantity", it.Quantity); err != nil {
			return nil, err
		}
	}
	if !entity.IsValidWasteReason(in.Reason) {
		return nil, domain.Invalid("reason", "motivo de merma desconocido")
	}

	items, err := w.withProductNames(ctx, in.Items)
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	scope := user.StockScope()
	log := &entity.WasteLog{
		ID:        uuid.New().String(),
		RequestID: in.RequestID,
		StaffID:   user.StaffID,
		StaffName: user.Name,
		Scope:     scope,
		Items:     items,
		Reason:    in.Reason,
		Notes:     in.Notes,
		Date:      w.c.clock(),
	}

	var existing *entity.WasteLog
	err = w.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		if in.RequestID != "" {
			prev, err := repos.Waste.GetByRequestID(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if prev != nil {
				existing = prev
				return nil
			}
		}
		adj := make([]Adjustment, 0, len(items))
		for _, it := range items {
			adj = append(adj, Adjustment{Scope: scope, EntityID: it.ProductID, Delta: it.Quantity.Neg()})
		}
		ref := MovementRef{Reason: entity.MovementReasonWaste, Reference: log.ID, ActorID: user.StaffID}
		if _, err := w.ledger.ApplyInTx(ctx, repos, adj, ref); err != nil {
			return err
		}
		return repos.Waste.Create(ctx, log)
	})
	if errors.Is(err, domain.ErrDuplicate) && in.RequestID != "" {
		existing, err = w.logs.GetByRequestID(ctx, in.RequestID)
		if err == nil && existing == nil {
			err = domain.ErrConflict
		}
	}
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}
	w.c.afterCommit(ctx, []string{TopicWaste, TopicStock}, Event{Type: EventWasteReported, Reference: log.ID, ActorID: user.StaffID, Payload: log})
	return log, nil
}

func (w *WasteRecorder) withProductNames(ctx context.Context, items []entity.WasteItem) ([]entity.WasteItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductName == "" {
			ids = append(ids, it.ProductID)
		}
	}
	names, err := catalogNames(ctx, w.products, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.WasteItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductName == "" {
			out[i].ProductName = names[out[i].ProductID]
		}
	}
	return out, nil
}

// ListFor lista las mermas reportadas por un empleado.
func (w *WasteRecorder) ListFor(ctx context.Context, staffID string) ([]*entity.WasteLog, error) {
	if staffID == "" {
		return nil, domain.Invalid("staff_id", "requerido")
	}
	return w.logs.ListByStaff(ctx, staffID)
}
