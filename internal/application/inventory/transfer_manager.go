package inventory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel/attribute"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// InitiateTransferInput entrada para iniciar una transferencia.
// FromStaffID vacío significa que el remitente es el propio actor.
type InitiateTransferInput struct {
	RequestID     string
	FromStaffID   string
	FromStaffName string
	FromStaffRole string
	ToStaffID     string
	ToStaffName   string
	ToStaffRole   string
	Items         []entity.TransferItem
	Notes         string
	IsSalesRun    bool
}

// TransferView es una transferencia con su valor total calculado desde el catálogo.
type TransferView struct {
	*entity.Transfer
	TotalValue decimal.Decimal
}

// TransferManager crea y avanza transferencias. Solo mueve stock al aceptar y al cerrar la devolución
// de un sales run, siempre dentro de la misma transacción que el cambio de estado.
type TransferManager struct {
	txRunner  TxRunner
	ledger    *StockLedger
	transfers repository.TransferRepository
	products  repository.ProductRepository
	c         collaborators
}

// NewTransferManager construye el caso de uso. transfers y products se usan para lecturas fuera de tx.
func NewTransferManager(
	txRunner TxRunner,
	ledger *StockLedger,
	transfers repository.TransferRepository,
	products repository.ProductRepository,
	opts ...Option,
) *TransferManager {
	return &TransferManager{
		txRunner:  txRunner,
		ledger:    ledger,
		transfers: transfers,
		products:  products,
		c:         newCollaborators(opts),
	}
}

// Initiate crea la transferencia en pending sin tocar stock. La verificación de stock aquí es
// orientativa: se repite de forma atómica al aceptar.
func (m *TransferManager) Initiate(ctx context.Context, user entity.CurrentUser, in InitiateTransferInput) (*entity.Transfer, error) {
	ctx, span := m.c.tracer.Start(ctx, "TransferManager.Initiate")
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	if in.FromStaffID == "" {
		in.FromStaffID, in.FromStaffName, in.FromStaffRole = user.StaffID, user.Name, user.Role
	}
	if err := validateInitiate(in); err != nil {
		return nil, err
	}

	source := entity.ScopeForStaff(in.FromStaffID, in.FromStaffRole)
	dest := entity.ScopeForStaff(in.ToStaffID, in.ToStaffRole)
	if source == dest {
		return nil, domain.Invalid("to_staff_id", "origen y destino operan el mismo stock")
	}

	// Repartidores siempre reciben en sales run; el showroom nunca.
	isSalesRun := in.IsSalesRun
	switch in.ToStaffRole {
	case entity.RoleDeliveryStaff:
		isSalesRun = true
	case entity.RoleShowroomStaff:
		isSalesRun = false
	}

	if in.RequestID != "" {
		prev, err := m.transfers.GetByRequestID(ctx, in.RequestID)
		if err != nil {
			return nil, err
		}
		if prev != nil {
			return prev, nil
		}
	}

	items, err := m.withProductNames(ctx, in.Items)
	if err != nil {
		return nil, err
	}
	if err := m.checkAvailable(ctx, source, items); err != nil {
		return nil, err
	}

	t := &entity.Transfer{
		ID:               uuid.New().String(),
		RequestID:        in.RequestID,
		FromStaffID:      in.FromStaffID,
		FromStaffName:    in.FromStaffName,
		ToStaffID:        in.ToStaffID,
		ToStaffName:      in.ToStaffName,
		SourceScope:      source,
		DestinationScope: dest,
		Items:            items,
		IsSalesRun:       isSalesRun,
		Notes:            in.Notes,
		Status:           entity.TransferStatusPending,
		DateInitiated:    m.c.clock(),
	}
	span.SetAttributes(attribute.String("transfer.id", t.ID), attribute.Bool("transfer.sales_run", isSalesRun))

	var existing *entity.Transfer
	err = m.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		if in.RequestID != "" {
			prev, err := repos.Transfers.GetByRequestID(ctx, in.RequestID)
			if err != nil {
				return err
			}
			if prev != nil {
				existing = prev
				return nil
			}
		}
		return repos.Transfers.Create(ctx, t)
	})
	if errors.Is(err, domain.ErrDuplicate) && in.RequestID != "" {
		// Otro intento con la misma clave ganó la carrera: devolver el suyo.
		existing, err = m.transfers.GetByRequestID(ctx, in.RequestID)
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

	m.c.afterCommit(ctx, []string{TopicTransfers}, Event{
		Type: EventTransferInitiated, Reference: t.ID, ActorID: user.StaffID, Payload: t,
	})
	return t, nil
}

// Acknowledge acepta o rechaza una transferencia pendiente. Aceptar revalida el stock vivo del
// remitente y mueve todas las líneas en la misma transacción que el cambio de estado.
func (m *TransferManager) Acknowledge(ctx context.Context, user entity.CurrentUser, transferID, action string) (*entity.Transfer, error) {
	ctx, span := m.c.tracer.Start(ctx, "TransferManager.Acknowledge")
	defer span.End()
	span.SetAttributes(attribute.String("transfer.id", transferID), attribute.String("action", action))

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	if transferID == "" {
		return nil, domain.Invalid("transfer_id", "requerido")
	}
	if action != entity.AcknowledgeAccept && action != entity.AcknowledgeDecline {
		return nil, domain.Invalid("action", "debe ser accept o decline")
	}

	var result *entity.Transfer
	err := m.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		t, err := lockTransfer(ctx, repos, transferID)
		if err != nil {
			return err
		}
		// Un estado terminal responde igual sea quien sea el actor.
		if t.Status != entity.TransferStatusPending {
			return domain.ErrInvalidStateTransition
		}
		if user.StaffID != t.ToStaffID && !entity.IsStoreRole(user.Role) {
			return domain.ErrForbidden
		}
		expected := t.Status
		if action == entity.AcknowledgeDecline {
			if err := t.Decline(); err != nil {
				return err
			}
		} else {
			ref := MovementRef{Reason: entity.MovementReasonTransferAccept, Reference: t.ID, ActorID: user.StaffID}
			if _, err := m.ledger.ApplyInTx(ctx, repos, moveAdjustments(t.SourceScope, t.DestinationScope, t.Items), ref); err != nil {
				return err
			}
			if err := t.Accept(m.c.clock()); err != nil {
				return err
			}
		}
		if err := repos.Transfers.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}

	evType, topics := EventTransferDeclined, []string{TopicTransfers}
	if action == entity.AcknowledgeAccept {
		evType, topics = EventTransferAccepted, []string{TopicTransfers, TopicStock}
	}
	m.c.afterCommit(ctx, topics, Event{Type: evType, Reference: result.ID, ActorID: user.StaffID, Payload: result})
	return result, nil
}

// RequestReturn abre el cierre de un sales run activo (active → pending_return).
func (m *TransferManager) RequestReturn(ctx context.Context, user entity.CurrentUser, transferID string) (*entity.Transfer, error) {
	ctx, span := m.c.tracer.Start(ctx, "TransferManager.RequestReturn")
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	var result *entity.Transfer
	err := m.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		t, err := lockTransfer(ctx, repos, transferID)
		if err != nil {
			return err
		}
		expected := t.Status
		if err := t.RequestReturn(); err != nil {
			return err
		}
		if user.StaffID != t.ToStaffID && !entity.IsStoreRole(user.Role) {
			return domain.ErrForbidden
		}
		if err := repos.Transfers.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.c.afterCommit(ctx, []string{TopicTransfers}, Event{
		Type: EventTransferReturnRequested, Reference: result.ID, ActorID: user.StaffID, Payload: result,
	})
	return result, nil
}

// CompleteReturn liquida un sales run: las unidades no vendidas vuelven al origen y se sella
// timeCompleted (una sola vez).
func (m *TransferManager) CompleteReturn(ctx context.Context, user entity.CurrentUser, transferID string, returned []entity.TransferItem) (*entity.Transfer, error) {
	ctx, span := m.c.tracer.Start(ctx, "TransferManager.CompleteReturn")
	defer span.End()

	if !user.Valid() {
		return nil, domain.Invalid("user", "actor requerido")
	}
	for _, it := range returned {
		if it.ProductID == "" {
			return nil, domain.Invalid("returned_items.product_id", "requerido")
		}
		if err := validQuantity("returned_items.quantity", it.Quantity); err != nil {
			return nil, err
		}
	}

	var result *entity.Transfer
	err := m.txRunner.Run(ctx, func(ctx context.Context, repos Repos) error {
		t, err := lockTransfer(ctx, repos, transferID)
		if err != nil {
			return err
		}
		if t.Status != entity.TransferStatusPendingReturn {
			return domain.ErrInvalidStateTransition
		}
		lines, err := returnLines(t, returned)
		if err != nil {
			return err
		}
		expected := t.Status
		if len(lines) > 0 {
			ref := MovementRef{Reason: entity.MovementReasonTransferReturn, Reference: t.ID, ActorID: user.StaffID}
			if _, err := m.ledger.ApplyInTx(ctx, repos, moveAdjustments(t.DestinationScope, t.SourceScope, lines), ref); err != nil {
				return err
			}
		}
		if err := t.CompleteReturn(lines, m.c.clock()); err != nil {
			return err
		}
		if err := repos.Transfers.UpdateStatus(ctx, t, expected); err != nil {
			return err
		}
		result = t
		return nil
	})
	if err != nil {
		span.RecordError(err)
		return nil, err
	}
	m.c.afterCommit(ctx, []string{TopicTransfers, TopicStock}, Event{
		Type: EventTransferReturnCompleted, Reference: result.ID, ActorID: user.StaffID, Payload: result,
	})
	return result, nil
}

// Get devuelve una transferencia con su valor total.
func (m *TransferManager) Get(ctx context.Context, transferID string) (*TransferView, error) {
	t, err := m.transfers.GetByID(ctx, transferID)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	views, err := m.views(ctx, []*entity.Transfer{t})
	if err != nil {
		return nil, err
	}
	return views[0], nil
}

// PendingFor es la cola de acuse de recibo de un empleado.
func (m *TransferManager) PendingFor(ctx context.Context, staffID string) ([]*TransferView, error) {
	return m.list(ctx, repository.TransferFilter{ToStaffID: staffID, Statuses: []string{entity.TransferStatusPending}})
}

// HistoryFor lista las transferencias aceptadas por un empleado.
func (m *TransferManager) HistoryFor(ctx context.Context, staffID string) ([]*TransferView, error) {
	return m.list(ctx, repository.TransferFilter{ToStaffID: staffID, Statuses: []string{
		entity.TransferStatusCompleted, entity.TransferStatusActive,
		entity.TransferStatusPendingReturn, entity.TransferStatusReturnCompleted,
	}})
}

// InitiatedBy lista las transferencias enviadas por un empleado.
func (m *TransferManager) InitiatedBy(ctx context.Context, staffID string) ([]*TransferView, error) {
	return m.list(ctx, repository.TransferFilter{FromStaffID: staffID})
}

func (m *TransferManager) list(ctx context.Context, f repository.TransferFilter) ([]*TransferView, error) {
	if f.ToStaffID == "" && f.FromStaffID == "" {
		return nil, domain.Invalid("staff_id", "requerido")
	}
	list, err := m.transfers.List(ctx, f)
	if err != nil {
		return nil, err
	}
	return m.views(ctx, list)
}

func (m *TransferManager) views(ctx context.Context, list []*entity.Transfer) ([]*TransferView, error) {
	ids := make([]string, 0)
	for _, t := range list {
		for _, it := range t.Items {
			ids = append(ids, it.ProductID)
		}
	}
	catalog, err := m.products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	out := make([]*TransferView, 0, len(list))
	for _, t := range list {
		total := decimal.Zero
		for _, it := range t.Items {
			if p, ok := catalog[it.ProductID]; ok {
				total = total.Add(p.Price.Mul(it.Quantity))
			}
		}
		out = append(out, &TransferView{Transfer: t, TotalValue: total})
	}
	return out, nil
}

// withProductNames completa nombres vacíos desde el catálogo.
func (m *TransferManager) withProductNames(ctx context.Context, items []entity.TransferItem) ([]entity.TransferItem, error) {
	ids := make([]string, 0, len(items))
	for _, it := range items {
		if it.ProductName == "" {
			ids = append(ids, it.ProductID)
		}
	}
	names, err := catalogNames(ctx, m.products, ids)
	if err != nil {
		return nil, err
	}
	out := make([]entity.TransferItem, len(items))
	copy(out, items)
	for i := range out {
		if out[i].ProductName == "" {
			out[i].ProductName = names[out[i].ProductID]
		}
	}
	return out, nil
}

// catalogNames resuelve el nombre de cada id. Un id fuera del catálogo es domain.ErrNotFound.
func catalogNames(ctx context.Context, products repository.ProductRepository, ids []string) (map[string]string, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	catalog, err := products.GetByIDs(ctx, ids)
	if err != nil {
		return nil, err
	}
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		p, ok := catalog[id]
		if !ok {
			return nil, domain.ErrNotFound
		}
		names[id] = p.Name
	}
	return names, nil
}

// checkAvailable compara contra una lectura viva del origen, sumando líneas repetidas del mismo producto.
func (m *TransferManager) checkAvailable(ctx context.Context, source entity.Scope, items []entity.TransferItem) error {
	need := make(map[string]decimal.Decimal, len(items))
	order := make([]string, 0, len(items))
	for _, it := range items {
		if _, ok := need[it.ProductID]; !ok {
			order = append(order, it.ProductID)
		}
		need[it.ProductID] = need[it.ProductID].Add(it.Quantity)
	}
	for _, id := range order {
		available, err := m.ledger.Read(ctx, source, id)
		if err != nil {
			return err
		}
		if available.LessThan(need[id]) {
			return &domain.InsufficientStockError{
				Scope: string(source), EntityID: id, Available: available, Requested: need[id],
			}
		}
	}
	return nil
}

func validateInitiate(in InitiateTransferInput) error {
	if in.FromStaffID == "" {
		return domain.Invalid("from_staff_id", "requerido")
	}
	if in.ToStaffID == "" {
		return domain.Invalid("to_staff_id", "requerido")
	}
	if in.FromStaffID == in.ToStaffID {
		return domain.Invalid("to_staff_id", "no puede ser el remitente")
	}
	if len(in.Items) == 0 {
		return domain.Invalid("items", "al menos una línea")
	}
	for _, it := range in.Items {
		if it.ProductID == "" {
			return domain.Invalid("items.product_id", "requerido")
		}
		if err := validQuantity("items.quantity", it.Quantity); err != nil {
			return err
		}
	}
	return nil
}

func lockTransfer(ctx context.Context, repos Repos, id string) (*entity.Transfer, error) {
	if id == "" {
		return nil, domain.Invalid("transfer_id", "requerido")
	}
	t, err := repos.Transfers.GetForUpdate(ctx, id)
	if err != nil {
		return nil, err
	}
	if t == nil {
		return nil, domain.ErrNotFound
	}
	return t, nil
}

// moveAdjustments descuenta cada línea de from y la acredita en to.
func moveAdjustments(from, to entity.Scope, items []entity.TransferItem) []Adjustment {
	adj := make([]Adjustment, 0, len(items)*2)
	for _, it := range items {
		adj = append(adj,
			Adjustment{Scope: from, EntityID: it.ProductID, Delta: it.Quantity.Neg()},
			Adjustment{Scope: to, EntityID: it.ProductID, Delta: it.Quantity},
		)
	}
	return adj
}

// returnLines valida que lo devuelto no supere lo transferido y completa los nombres.
func returnLines(t *entity.Transfer, returned []entity.TransferItem) ([]entity.TransferItem, error) {
	total := make(map[string]decimal.Decimal)
	for _, it := range returned {
		total[it.ProductID] = total[it.ProductID].Add(it.Quantity)
	}
	lines := make([]entity.TransferItem, 0, len(returned))
	for _, it := range returned {
		sent := t.TransferredQuantity(it.ProductID)
		if total[it.ProductID].GreaterThan(sent) {
			return nil, domain.Invalid("returned_items.quantity", "supera lo transferido")
		}
		if it.ProductName == "" {
			for _, orig := range t.Items {
				if orig.ProductID == it.ProductID {
					it.ProductName = orig.ProductName
					break
				}
			}
		}
		lines = append(lines, it)
	}
	return lines, nil
}
