package memory

import (
	"context"
	"slices"
	"sort"
	"time"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

// StockRepo implementa repository.StockRepository.
type StockRepo struct {
	s  *Store
	tx *state
}

var _ repository.StockRepository = (*StockRepo)(nil)

func (r *StockRepo) Get(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error) {
	var out entity.StockRecord
	r.s.view(r.tx, func(st *state) {
		rec, ok := st.stock[entity.StockKey{Scope: scope, EntityID: entityID}]
		if !ok {
			rec = entity.StockRecord{Scope: scope, EntityID: entityID}
		}
		out = rec
	})
	return &out, nil
}

// GetForUpdate no necesita bloquear: la transacción ya tiene el mutex del almacén.
func (r *StockRepo) GetForUpdate(ctx context.Context, scope entity.Scope, entityID string) (*entity.StockRecord, error) {
	return r.Get(ctx, scope, entityID)
}

func (r *StockRepo) Upsert(ctx context.Context, record *entity.StockRecord) error {
	if record.Quantity.IsNegative() {
		return domain.ErrInsufficientStock
	}
	return r.s.update(r.tx, func(st *state) error {
		st.stock[record.Key()] = *record
		return nil
	})
}

func (r *StockRepo) ListByScope(ctx context.Context, scope entity.Scope) ([]*entity.StockRecord, error) {
	var out []*entity.StockRecord
	r.s.view(r.tx, func(st *state) {
		for k, rec := range st.stock {
			if k.Scope == scope {
				rec := rec
				out = append(out, &rec)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool { return out[i].EntityID < out[j].EntityID })
	return out, nil
}

// MovementRepo implementa repository.StockMovementRepository.
type MovementRepo struct {
	s  *Store
	tx *state
}

var _ repository.StockMovementRepository = (*MovementRepo)(nil)

func (r *MovementRepo) Create(ctx context.Context, movement *entity.StockMovement) error {
	return r.s.update(r.tx, func(st *state) error {
		st.movements = append(st.movements, *movement)
		return nil
	})
}

func (r *MovementRepo) ListByReference(ctx context.Context, reference string) ([]*entity.StockMovement, error) {
	var out []*entity.StockMovement
	r.s.view(r.tx, func(st *state) {
		for _, m := range st.movements {
			if m.Reference == reference {
				m := m
				out = append(out, &m)
			}
		}
	})
	return out, nil
}

// TransferRepo implementa repository.TransferRepository.
type TransferRepo struct {
	s  *Store
	tx *state
}

var _ repository.TransferRepository = (*TransferRepo)(nil)

func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	return r.s.update(r.tx, func(st *state) error {
		if _, ok := st.transfers[t.ID]; ok {
			return domain.ErrDuplicate
		}
		if t.RequestID != "" {
			for _, prev := range st.transfers {
				if prev.RequestID == t.RequestID {
					return domain.ErrDuplicate
				}
			}
		}
		st.transfers[t.ID] = copyTransfer(*t)
		return nil
	})
}

func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	var out *entity.Transfer
	r.s.view(r.tx, func(st *state) {
		if t, ok := st.transfers[id]; ok {
			c := copyTransfer(t)
			out = &c
		}
	})
	return out, nil
}

func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.GetByID(ctx, id)
}

func (r *TransferRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.Transfer, error) {
	var out *entity.Transfer
	r.s.view(r.tx, func(st *state) {
		for _, t := range st.transfers {
			if requestID != "" && t.RequestID == requestID {
				c := copyTransfer(t)
				out = &c
				return
			}
		}
	})
	return out, nil
}

func (r *TransferRepo) UpdateStatus(ctx context.Context, t *entity.Transfer, expectedStatus string) error {
	return r.s.update(r.tx, func(st *state) error {
		cur, ok := st.transfers[t.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.Status != expectedStatus {
			return domain.ErrInvalidStateTransition
		}
		cur.Status = t.Status
		cur.TimeReceived = copyTime(t.TimeReceived)
		cur.TimeCompleted = copyTime(t.TimeCompleted)
		cur.ReturnedItems = slices.Clone(t.ReturnedItems)
		st.transfers[t.ID] = cur
		return nil
	})
}

func (r *TransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	var out []*entity.Transfer
	r.s.view(r.tx, func(st *state) {
		for _, t := range st.transfers {
			if f.FromStaffID != "" && t.FromStaffID != f.FromStaffID {
				continue
			}
			if f.ToStaffID != "" && t.ToStaffID != f.ToStaffID {
				continue
			}
			if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, t.Status) {
				continue
			}
			if f.SalesRun != nil && t.IsSalesRun != *f.SalesRun {
				continue
			}
			c := copyTransfer(t)
			out = append(out, &c)
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].DateInitiated.Equal(out[j].DateInitiated) {
			return out[i].DateInitiated.After(out[j].DateInitiated)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// BatchRepo implementa repository.ProductionBatchRepository.
type BatchRepo struct {
	s  *Store
	tx *state
}

var _ repository.ProductionBatchRepository = (*BatchRepo)(nil)

func (r *BatchRepo) Create(ctx context.Context, b *entity.ProductionBatch) error {
	return r.s.update(r.tx, func(st *state) error {
		if _, ok := st.batches[b.ID]; ok {
			return domain.ErrDuplicate
		}
		st.batches[b.ID] = copyBatch(*b)
		return nil
	})
}

func (r *BatchRepo) GetByID(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	var out *entity.ProductionBatch
	r.s.view(r.tx, func(st *state) {
		if b, ok := st.batches[id]; ok {
			c := copyBatch(b)
			out = &c
		}
	})
	return out, nil
}

func (r *BatchRepo) GetForUpdate(ctx context.Context, id string) (*entity.ProductionBatch, error) {
	return r.GetByID(ctx, id)
}

func (r *BatchRepo) UpdateStatus(ctx context.Context, b *entity.ProductionBatch, expectedStatus string) error {
	return r.s.update(r.tx, func(st *state) error {
		cur, ok := st.batches[b.ID]
		if !ok {
			return domain.ErrNotFound
		}
		if cur.Status != expectedStatus {
			return domain.ErrInvalidStateTransition
		}
		cur.Status = b.Status
		cur.ApprovedBy = b.ApprovedBy
		cur.ApprovedAt = copyTime(b.ApprovedAt)
		cur.DeclinedBy = b.DeclinedBy
		cur.DeclinedAt = copyTime(b.DeclinedAt)
		cur.CompletedAt = copyTime(b.CompletedAt)
		st.batches[b.ID] = cur
		return nil
	})
}

func (r *BatchRepo) ListByStatus(ctx context.Context, status string) ([]*entity.ProductionBatch, error) {
	var out []*entity.ProductionBatch
	r.s.view(r.tx, func(st *state) {
		for _, b := range st.batches {
			if b.Status == status {
				c := copyBatch(b)
				out = append(out, &c)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// WasteRepo implementa repository.WasteLogRepository.
type WasteRepo struct {
	s  *Store
	tx *state
}

var _ repository.WasteLogRepository = (*WasteRepo)(nil)

func (r *WasteRepo) Create(ctx context.Context, log *entity.WasteLog) error {
	return r.s.update(r.tx, func(st *state) error {
		if _, ok := st.waste[log.ID]; ok {
			return domain.ErrDuplicate
		}
		if log.RequestID != "" {
			for _, prev := range st.waste {
				if prev.RequestID == log.RequestID {
					return domain.ErrDuplicate
				}
			}
		}
		c := *log
		c.Items = slices.Clone(log.Items)
		st.waste[log.ID] = c
		return nil
	})
}

func (r *WasteRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.WasteLog, error) {
	var out *entity.WasteLog
	r.s.view(r.tx, func(st *state) {
		for _, l := range st.waste {
			if requestID != "" && l.RequestID == requestID {
				l.Items = slices.Clone(l.Items)
				out = &l
				return
			}
		}
	})
	return out, nil
}

func (r *WasteRepo) ListByStaff(ctx context.Context, staffID string) ([]*entity.WasteLog, error) {
	var out []*entity.WasteLog
	r.s.view(r.tx, func(st *state) {
		for _, l := range st.waste {
			if l.StaffID == staffID {
				l.Items = slices.Clone(l.Items)
				out = append(out, &l)
			}
		}
	})
	sort.Slice(out, func(i, j int) bool {
		if !out[i].Date.Equal(out[j].Date) {
			return out[i].Date.After(out[j].Date)
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// ProductRepo implementa repository.ProductRepository sobre el catálogo sembrado.
type ProductRepo struct {
	s *Store
}

var _ repository.ProductRepository = (*ProductRepo)(nil)

func (r *ProductRepo) GetByID(ctx context.Context, id string) (*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	p, ok := r.s.products[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (r *ProductRepo) GetByIDs(ctx context.Context, ids []string) (map[string]*entity.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	out := make(map[string]*entity.Product, len(ids))
	for _, id := range ids {
		if p, ok := r.s.products[id]; ok {
			p := p
			out[id] = &p
		}
	}
	return out, nil
}

func copyTransfer(t entity.Transfer) entity.Transfer {
	t.Items = slices.Clone(t.Items)
	t.ReturnedItems = slices.Clone(t.ReturnedItems)
	t.TimeReceived = copyTime(t.TimeReceived)
	t.TimeCompleted = copyTime(t.TimeCompleted)
	return t
}

func copyBatch(b entity.ProductionBatch) entity.ProductionBatch {
	b.Ingredients = slices.Clone(b.Ingredients)
	b.ApprovedAt = copyTime(b.ApprovedAt)
	b.DeclinedAt = copyTime(b.DeclinedAt)
	b.CompletedAt = copyTime(b.CompletedAt)
	return b
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
