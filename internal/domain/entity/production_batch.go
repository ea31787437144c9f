package entity

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/jhoicas/stock-control-api/internal/domain"
)

// Estados de un lote de producción.
const (
	BatchStatusPendingApproval = "pending_approval"
	BatchStatusInProduction    = "in_production"
	BatchStatusCompleted       = "completed"
	BatchStatusDeclined        = "declined"
)

// BatchIngredient es un ingrediente solicitado para el lote.
type BatchIngredient struct {
	IngredientID   string
	IngredientName string
	Quantity       decimal.Decimal
	Unit           string
}

// ProductionBatch es la solicitud de ingredientes para una corrida de receta.
// Los ingredientes se descuentan del almacén central solo al pasar de pending_approval a in_production.
type ProductionBatch struct {
	ID                 string
	RecipeName         string
	Ingredients        []BatchIngredient
	RequestedByStaffID string
	RequestedByName    string
	Status             string
	CreatedAt          time.Time
	ApprovedBy         string
	ApprovedAt         *time.Time
	DeclinedBy         string
	DeclinedAt         *time.Time
	CompletedAt        *time.Time
}

// IsTerminal indica si el lote ya no admite transiciones de aprobación.
func (b *ProductionBatch) IsTerminal() bool {
	return b.Status == BatchStatusDeclined || b.Status == BatchStatusCompleted
}

// Approve pasa de pending_approval a in_production.
func (b *ProductionBatch) Approve(staffID string, now time.Time) error {
	if b.Status != BatchStatusPendingApproval {
		return domain.ErrInvalidStateTransition
	}
	b.Status = BatchStatusInProduction
	b.ApprovedBy = staffID
	b.ApprovedAt = &now
	return nil
}

// Decline pasa de pending_approval a declined. Terminal.
func (b *ProductionBatch) Decline(staffID string, now time.Time) error {
	if b.Status != BatchStatusPendingApproval {
		return domain.ErrInvalidStateTransition
	}
	b.Status = BatchStatusDeclined
	b.DeclinedBy = staffID
	b.DeclinedAt = &now
	return nil
}

// Complete pasa de in_production a completed.
func (b *ProductionBatch) Complete(now time.Time) error {
	if b.Status != BatchStatusInProduction {
		return domain.ErrInvalidStateTransition
	}
	b.Status = BatchStatusCompleted
	b.CompletedAt = &now
	return nil
}
