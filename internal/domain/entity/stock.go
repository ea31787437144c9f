package entity

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// Scope identifica el dueño de un contador de stock: la bodega central o el stock personal de un empleado.
type Scope string

// ScopeCentral es el almacén central (productos terminados e ingredientes).
const ScopeCentral Scope = "central"

const staffScopePrefix = "staff:"

// StaffScope devuelve el scope del stock personal de un empleado.
func StaffScope(staffID string) Scope {
	return Scope(staffScopePrefix + staffID)
}

// ParseScope valida un scope recibido como texto ("central" o "staff:<id>").
func ParseScope(s string) (Scope, bool) {
	if s == string(ScopeCentral) {
		return ScopeCentral, true
	}
	if strings.HasPrefix(s, staffScopePrefix) && len(s) > len(staffScopePrefix) {
		return Scope(s), true
	}
	return "", false
}

// IsCentral indica si el scope es el almacén central.
func (s Scope) IsCentral() bool { return s == ScopeCentral }

// StaffID devuelve el empleado dueño del scope ("" para central).
func (s Scope) StaffID() string {
	return strings.TrimPrefix(string(s), staffScopePrefix)
}

func (s Scope) String() string { return string(s) }

// QuantityScale es el número de decimales que persiste el almacén (NUMERIC(14,3)).
const QuantityScale int32 = 3

// FitsQuantityScale indica si q se guarda sin redondeo.
func FitsQuantityScale(q decimal.Decimal) bool {
	return q.Equal(q.Truncate(QuantityScale))
}

// StockRecord es un contador (scope, entidad) → cantidad. Nunca negativo.
// Solo el StockLedger lo modifica.
type StockRecord struct {
	Scope     Scope
	EntityID  string
	Quantity  decimal.Decimal
	UpdatedAt time.Time
}

// StockKey identifica un StockRecord.
type StockKey struct {
	Scope    Scope
	EntityID string
}

// Key devuelve la clave del registro.
func (r StockRecord) Key() StockKey {
	return StockKey{Scope: r.Scope, EntityID: r.EntityID}
}

// Less ordena claves de forma estable (orden de bloqueo de filas).
func (k StockKey) Less(o StockKey) bool {
	if k.Scope != o.Scope {
		return k.Scope < o.Scope
	}
	return k.EntityID < o.EntityID
}
