package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas salvo decimal para el detalle de stock).
var (
	ErrNotFound               = errors.New("recurso no encontrado")
	ErrInvalidInput           = errors.New("entrada inválida")
	ErrDuplicate              = errors.New("recurso duplicado")
	ErrUnauthorized           = errors.New("no autorizado")
	ErrForbidden              = errors.New("acceso denegado")
	ErrConflict               = errors.New("conflicto con una escritura concurrente, reintentar")
	ErrInsufficientStock      = errors.New("stock insuficiente")
	ErrInvalidStateTransition = errors.New("transición de estado inválida")
	ErrInfrastructure         = errors.New("fallo de infraestructura")
)

// ErrValidation es el nombre de taxonomía para ErrInvalidInput.
var ErrValidation = ErrInvalidInput

// ErrorKind clasifica un error para el resultado expuesto al llamador.
type ErrorKind string

const (
	KindNone                   ErrorKind = ""
	KindValidation             ErrorKind = "VALIDATION"
	KindInsufficientStock      ErrorKind = "INSUFFICIENT_STOCK"
	KindInvalidStateTransition ErrorKind = "INVALID_STATE_TRANSITION"
	KindConflictRetryable      ErrorKind = "CONFLICT_RETRYABLE"
	KindNotFound               ErrorKind = "NOT_FOUND"
	KindInfrastructure         ErrorKind = "INFRASTRUCTURE"
)

// KindOf traduce cualquier error a su ErrorKind. Lo no reconocido es infraestructura.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return KindNone
	case errors.Is(err, ErrInvalidInput), errors.Is(err, ErrForbidden):
		return KindValidation
	case errors.Is(err, ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, ErrInvalidStateTransition):
		return KindInvalidStateTransition
	case errors.Is(err, ErrConflict):
		return KindConflictRetryable
	case errors.Is(err, ErrNotFound):
		return KindNotFound
	default:
		return KindInfrastructure
	}
}

// IsBusiness indica si el error es un fallo esperado de negocio (no se propaga como error Go).
func IsBusiness(err error) bool {
	k := KindOf(err)
	return k != KindNone && k != KindInfrastructure
}

// InsufficientStockError detalla qué contador no alcanzó. Se compara con errors.Is(err, ErrInsufficientStock).
type InsufficientStockError struct {
	Scope     string
	EntityID  string
	Available decimal.Decimal
	Requested decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s en %s: disponible %s, solicitado %s",
		e.EntityID, e.Scope, e.Available.String(), e.Requested.String())
}

func (e *InsufficientStockError) Unwrap() error { return ErrInsufficientStock }

// ValidationError agrega el campo que falló a ErrInvalidInput.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("entrada inválida: %s %s", e.Field, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrInvalidInput }

// Invalid construye un ValidationError.
func Invalid(field, reason string) error {
	return &ValidationError{Field: field, Reason: reason}
}
