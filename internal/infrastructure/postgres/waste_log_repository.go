package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/jhoicas/stock-control-api/internal/domain"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
	"github.com/jhoicas/stock-control-api/internal/domain/repository"
)

var _ repository.WasteLogRepository = (*WasteLogRepo)(nil)

// WasteLogRepo implementación de WasteLogRepository sobre PostgreSQL. Solo inserta y lee.
type WasteLogRepo struct {
	q Querier
}

// NewWasteLogRepository construye el adaptador de mermas. Pasar pool o tx (Querier).
func NewWasteLogRepository(q Querier) *WasteLogRepo {
	return &WasteLogRepo{q: q}
}

const wasteColumns = `id, COALESCE(request_id, ''), staff_id, staff_name, scope, items, reason, notes, date`

// Create inserta el registro. request_id repetido devuelve domain.ErrDuplicate.
func (r *WasteLogRepo) Create(ctx context.Context, l *entity.WasteLog) error {
	rows := make([]itemRow, 0, len(l.Items))
	for _, it := range l.Items {
		rows = append(rows, itemRow{ProductID: it.ProductID, ProductName: it.ProductName, Quantity: it.Quantity})
	}
	items, err := json.Marshal(rows)
	if err != nil {
		return fmt.Errorf("encode waste items: %w", err)
	}
	query := `
		INSERT INTO waste_logs (id, request_id, staff_id, staff_name, scope, items, reason, notes, date)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	_, err = r.q.Exec(ctx, query,
		l.ID, nullable(l.RequestID), l.StaffID, l.StaffName, string(l.Scope), items, l.Reason, l.Notes, l.Date,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create waste log: %w", err)
	}
	return nil
}

// GetByRequestID busca por clave de idempotencia.
func (r *WasteLogRepo) GetByRequestID(ctx context.Context, requestID string) (*entity.WasteLog, error) {
	if requestID == "" {
		return nil, nil
	}
	l, err := scanWaste(r.q.QueryRow(ctx, `SELECT `+wasteColumns+` FROM waste_logs WHERE request_id = $1`, requestID))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get waste log: %w", err)
	}
	return l, nil
}

// ListByStaff lista las mermas de un empleado, más recientes primero.
func (r *WasteLogRepo) ListByStaff(ctx context.Context, staffID string) ([]*entity.WasteLog, error) {
	rows, err := r.q.Query(ctx, `SELECT `+wasteColumns+`
		FROM waste_logs WHERE staff_id = $1
		ORDER BY date DESC, id`, staffID)
	if err != nil {
		return nil, fmt.Errorf("list waste logs: %w", err)
	}
	defer rows.Close()

	var list []*entity.WasteLog
	for rows.Next() {
		l, err := scanWaste(rows)
		if err != nil {
			return nil, fmt.Errorf("scan waste log: %w", err)
		}
		list = append(list, l)
	}
	return list, rows.Err()
}

func scanWaste(row pgx.Row) (*entity.WasteLog, error) {
	var (
		l     entity.WasteLog
		scope string
		raw   []byte
	)
	if err := row.Scan(&l.ID, &l.RequestID, &l.StaffID, &l.StaffName, &scope, &raw, &l.Reason, &l.Notes, &l.Date); err != nil {
		return nil, err
	}
	l.Scope = entity.Scope(scope)
	var rows []itemRow
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &rows); err != nil {
			return nil, fmt.Errorf("decode waste items: %w", err)
		}
	}
	for _, r := range rows {
		l.Items = append(l.Items, entity.WasteItem{ProductID: r.ProductID, ProductName: r.ProductName, Quantity: r.Quantity})
	}
	return &l, nil
}
