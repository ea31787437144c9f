package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

var _ repository.TransferRepository = (*TransferRepo)(nil)

// TransferRepo implementación de TransferRepository sobre PostgreSQL (usable con pool o tx).
type TransferRepo struct {
	q Querier
}

// NewTransferRepository construye el adaptador de transferencias. Pasar pool o tx (Querier).
func NewTransferRepository(q Querier) *TransferRepo {
	return &TransferRepo{q: q}
}

// itemRow es la forma JSONB de una línea de transferencia.
type itemRow struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

func encodeItems(items []entity.TransferItem) ([]byte, error) {
	rows := make([]itemRow, 0, len(items))
	for _, it := range items {
		rows = append(rows, itemRow{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	return json.Marshal(rows)
}

func decodeItems(raw []byte) ([]entity.TransferItem, error) {
	if len(raw) == 0 {
		return nil, nil
	}
	var rows []itemRow
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, err
	}
	items := make([]entity.TransferItem, 0, len(rows))
	for _, r := range rows {
		items = append(items, entity.TransferItem{ProductID: r.ProductID, ProductName: r.ProductName, Quantity: r.Quantity})
	}
	return items, nil
}

const transferColumns = `
	id, COALESCE(request_id, ''), from_staff_id, from_staff_name, to_staff_id, to_staff_name,
	source_scope, destination_scope, items, returned_items, is_sales_run, notes, status,
	date_initiated, time_received, time_completed`

// Create inserta la transferencia. request_id repetido devuelve domain.ErrDuplicate.
func (r *TransferRepo) Create(ctx context.Context, t *entity.Transfer) error {
	items, err := encodeItems(t.Items)
	if err != nil {
		return fmt.Errorf("encode items: %w", err)
	}
	var returned []byte
	if t.ReturnedItems != nil {
		if returned, err = encodeItems(t.ReturnedItems); err != nil {
			return fmt.Errorf("encode returned items: %w", err)
		}
	}
	query := `
		INSERT INTO transfers (id, request_id, from_staff_id, from_staff_name, to_staff_id, to_staff_name,
			source_scope, destination_scope, items, returned_items, is_sales_run, notes, status,
			date_initiated, time_received, time_completed)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)`
	_, err = r.q.Exec(ctx, query,
		t.ID, nullable(t.RequestID), t.FromStaffID, t.FromStaffName, t.ToStaffID, t.ToStaffName,
		string(t.SourceScope), string(t.DestinationScope), items, returned, t.IsSalesRun, t.Notes, t.Status,
		t.DateInitiated, t.TimeReceived, t.TimeCompleted,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create transfer: %w", err)
	}
	return nil
}

// GetByID devuelve la transferencia o nil si no existe.
func (r *TransferRepo) GetByID(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.getOne(ctx, `SELECT`+transferColumns+` FROM transfers WHERE id = $1`, id)
}

// GetForUpdate igual que GetByID pero bloquea la fila (SELECT FOR UPDATE).
func (r *TransferRepo) GetForUpdate(ctx context.Context, id string) (*entity.Transfer, error) {
	return r.getOne(ctx, `SELECT`+transferColumns+` FROM transfers WHERE id = $1 FOR UPDATE`, id)
}

// GetByRequestID busca por clave de idempotencia.
func (r *TransferRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.Transfer, error) {
	if requestID == "" {
		return nil, nil
	}
	return r.getOne(ctx, `SELECT`+transferColumns+` FROM transfers WHERE request_id = $1`, requestID)
}

func (r *TransferRepo) getOne(ctx context.Context, query string, arg string) (*entity.Transfer, error) {
	t, err := scanTransfer(r.q.QueryRow(ctx, query, arg))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get transfer: %w", err)
	}
	return t, nil
}

// UpdateStatus persiste estado, sellos y devoluciones solo si el estado guardado es expectedStatus.
func (r *TransferRepo) UpdateStatus(ctx context.Context, t *entity.Transfer, expectedStatus string) error {
	var returned []byte
	if t.ReturnedItems != nil {
		var err error
		if returned, err = encodeItems(t.ReturnedItems); err != nil {
			return fmt.Errorf("encode returned items: %w", err)
		}
	}
	query := `
		UPDATE transfers
		SET status = $2, time_received = $3, time_completed = $4, returned_items = $5
		WHERE id = $1 AND status = $6`
	tag, err := r.q.Exec(ctx, query, t.ID, t.Status, t.TimeReceived, t.TimeCompleted, returned, expectedStatus)
	if err != nil {
		return fmt.Errorf("update transfer status: %w", err)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	return r.missingOrStale(ctx, t.ID)
}

func (r *TransferRepo) missingOrStale(ctx context.Context, id string) error {
	var exists bool
	if err := r.q.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM transfers WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check transfer: %w", err)
	}
	if !exists {
		return domain.ErrNotFound
	}
	return domain.ErrInvalidStateTransition
}

// List devuelve las transferencias que cumplen el filtro, más recientes primero.
func (r *TransferRepo) List(ctx context.Context, f repository.TransferFilter) ([]*entity.Transfer, error) {
	var (
		where []string
		args  []any
	)
	add := func(cond string, arg any) {
		args = append(args, arg)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.FromStaffID != "" {
		add("from_staff_id = $%d", f.FromStaffID)
	}
	if f.ToStaffID != "" {
		add("to_staff_id = $%d", f.ToStaffID)
	}
	if len(f.Statuses) > 0 {
		add("status = ANY($%d)", f.Statuses)
	}
	if f.SalesRun != nil {
		add("is_sales_run = $%d", *f.SalesRun)
	}

	query := `SELECT` + transferColumns + ` FROM transfers`
	if len(where) > 0 {
		query += " WHERE " + strings.Join(where, " AND ")
	}
	query += " ORDER BY date_initiated DESC, id"

	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list transfers: %w", err)
	}
	defer rows.Close()

	var list []*entity.Transfer
	for rows.Next() {
		t, err := scanTransfer(rows)
		if err != nil {
			return nil, fmt.Errorf("scan transfer: %w", err)
		}
		list = append(list, t)
	}
	return list, rows.Err()
}

func scanTransfer(row pgx.Row) (*entity.Transfer, error) {
	var (
		t               entity.Transfer
		source, dest    string
		items, returned []byte
	)
	err := row.Scan(
		&t.ID, &t.RequestID, &t.FromStaffID, &t.FromStaffName, &t.ToStaffID, &t.ToStaffName,
		&source, &dest, &items, &returned, &t.IsSalesRun, &t.Notes, &t.Status,
		&t.DateInitiated, &t.TimeReceived, &t.TimeCompleted,
	)
	if err != nil {
		return nil, err
	}
	t.SourceScope = entity.Scope(source)
	t.DestinationScope = entity.Scope(dest)
	if t.Items, err = decodeItems(items); err != nil {
		return nil, fmt.Errorf("decode items: %w", err)
	}
	if t.ReturnedItems, err = decodeItems(returned); err != nil {
		return nil, fmt.Errorf("decode returned items: %w", err)
	}
	return &t, nil
}
