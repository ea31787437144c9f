package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemRequest línea de producto en transferencias, devoluciones y mermas.
type ItemRequest struct {
	ProductID string          `json:"product_id"`
	Quantity  decimal.Decimal `json:"quantity"`
}

// InitiateTransferRequest body para POST /api/transfers.
// El remitente es el usuario del token; nombre y rol del receptor los resuelve el cliente.
type InitiateTransferRequest struct {
	RequestID   string        `json:"request_id,omitempty"`
	ToStaffID   string        `json:"to_staff_id"`
	ToStaffName string        `json:"to_staff_name"`
	ToStaffRole string        `json:"to_staff_role"`
	Items       []ItemRequest `json:"items"`
	Notes       string        `json:"notes,omitempty"`
	IsSalesRun  bool          `json:"is_sales_run"`
}

// AcknowledgeTransferRequest body para POST /api/transfers/:id/acknowledge.
type AcknowledgeTransferRequest struct {
	Action string `json:"action"` // accept | decline
}

// CompleteReturnRequest body para POST /api/transfers/:id/return-complete.
type CompleteReturnRequest struct {
	Items []ItemRequest `json:"items"`
}

// IngredientRequest línea de un lote de producción.
type IngredientRequest struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name,omitempty"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit,omitempty"`
}

// SubmitBatchRequest body para POST /api/production-batches.
type SubmitBatchRequest struct {
	RecipeName  string              `json:"recipe_name"`
	Ingredients []IngredientRequest `json:"ingredients"`
}

// ReportWasteRequest body para POST /api/waste.
type ReportWasteRequest struct {
	RequestID string        `json:"request_id,omitempty"`
	Items     []ItemRequest `json:"items"`
	Reason    string        `json:"reason"` // Spoiled | Damaged | Burnt | Error | Other
	Notes     string        `json:"notes,omitempty"`
}

// ItemResponse línea de producto con nombre.
type ItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Quantity    decimal.Decimal `json:"quantity"`
}

// TransferResponse salida de una transferencia.
type TransferResponse struct {
	ID               string           `json:"id"`
	RequestID        string           `json:"request_id,omitempty"`
	FromStaffID      string           `json:"from_staff_id"`
	FromStaffName    string           `json:"from_staff_name"`
	ToStaffID        string           `json:"to_staff_id"`
	ToStaffName      string           `json:"to_staff_name"`
	SourceScope      string           `json:"source_scope"`
	DestinationScope string           `json:"destination_scope"`
	Items            []ItemResponse   `json:"items"`
	ReturnedItems    []ItemResponse   `json:"returned_items,omitempty"`
	IsSalesRun       bool             `json:"is_sales_run"`
	Notes            string           `json:"notes,omitempty"`
	Status           string           `json:"status"`
	TotalValue       *decimal.Decimal `json:"total_value,omitempty"`
	DateInitiated    time.Time        `json:"date_initiated"`
	TimeReceived     *time.Time       `json:"time_received,omitempty"`
	TimeCompleted    *time.Time       `json:"time_completed,omitempty"`
}

// IngredientResponse línea de un lote.
type IngredientResponse struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Quantity       decimal.Decimal `json:"quantity"`
	Unit           string          `json:"unit"`
}

// ProductionBatchResponse salida de un lote de producción.
type ProductionBatchResponse struct {
	ID                 string               `json:"id"`
	RecipeName         string               `json:"recipe_name"`
	Ingredients        []IngredientResponse `json:"ingredients"`
	RequestedByStaffID string               `json:"requested_by_staff_id"`
	RequestedByName    string               `json:"requested_by_name"`
	Status             string               `json:"status"`
	CreatedAt          time.Time            `json:"created_at"`
	ApprovedBy         string               `json:"approved_by,omitempty"`
	ApprovedAt         *time.Time           `json:"approved_at,omitempty"`
	DeclinedBy         string               `json:"declined_by,omitempty"`
	DeclinedAt         *time.Time           `json:"declined_at,omitempty"`
	CompletedAt        *time.Time           `json:"completed_at,omitempty"`
}

// IngredientAvailabilityResponse requerido vs disponible en el almacén central.
type IngredientAvailabilityResponse struct {
	IngredientID   string          `json:"ingredient_id"`
	IngredientName string          `json:"ingredient_name"`
	Unit           string          `json:"unit"`
	Required       decimal.Decimal `json:"required"`
	Available      decimal.Decimal `json:"available"`
	Sufficient     bool            `json:"sufficient"`
}

// BatchEvaluationResponse salida de GET /api/production-batches/:id/evaluation.
type BatchEvaluationResponse struct {
	BatchID    string                           `json:"batch_id"`
	Status     string                           `json:"status"`
	Lines      []IngredientAvailabilityResponse `json:"lines"`
	CanApprove bool                             `json:"can_approve"`
}

// WasteLogResponse salida de un registro de merma.
type WasteLogResponse struct {
	ID        string         `json:"id"`
	RequestID string         `json:"request_id,omitempty"`
	StaffID   string         `json:"staff_id"`
	StaffName string         `json:"staff_name"`
	Scope     string         `json:"scope"`
	Items     []ItemResponse `json:"items"`
	Reason    string         `json:"reason"`
	Notes     string         `json:"notes,omitempty"`
	Date      time.Time      `json:"date"`
}

// StockRecordResponse un contador de stock.
type StockRecordResponse struct {
	Scope     string          `json:"scope"`
	EntityID  string          `json:"entity_id"`
	Quantity  decimal.Decimal `json:"quantity"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// SalesRunItemResponse línea del inventario de trabajo.
type SalesRunItemResponse struct {
	ProductID   string          `json:"product_id"`
	ProductName string          `json:"product_name"`
	Transferred decimal.Decimal `json:"transferred"`
	OnHand      decimal.Decimal `json:"on_hand"`
}

// SalesRunInventoryResponse salida de GET /api/sales-runs/:id/inventory.
type SalesRunInventoryResponse struct {
	TransferID string                 `json:"transfer_id"`
	StaffID    string                 `json:"staff_id"`
	StaffName  string                 `json:"staff_name"`
	Status     string                 `json:"status"`
	Items      []SalesRunItemResponse `json:"items"`
}
