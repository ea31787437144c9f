package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Motivos de merma aceptados.
const (
	WasteReasonSpoiled = "Spoiled"
	WasteReasonDamaged = "Damaged"
	WasteReasonBurnt   = "Burnt"
	WasteReasonError   = "Error"
	WasteReasonOther   = "Other"
)

// IsValidWasteReason valida el motivo de merma.
func IsValidWasteReason(reason string) bool {
	switch reason {
	case WasteReasonSpoiled, WasteReasonDamaged, WasteReasonBurnt, WasteReasonError, WasteReasonOther:
		return true
	}
	return false
}

// WasteItem es una línea de merma.
type WasteItem struct {
	ProductID   string
	ProductName string
	Quantity    decimal.Decimal
}

// WasteLog registra una merma. Inmutable: se crea junto con el descuento de stock y no se modifica.
type WasteLog struct {
	ID        string
	RequestID string
	StaffID   string
	StaffName string
	Scope     Scope
	Items     []WasteItem
	Reason    string
	Notes     string
	Date      time.Time
}
