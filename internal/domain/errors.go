package domain

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Errores de dominio (sin dependencias externas).
var (
	ErrNotFound          = errors.New("recurso no encontrado")
	ErrInvalidInput      = errors.New("entrada inválida")
	ErrDuplicate         = errors.New("recurso duplicado")
	ErrForbidden         = errors.New("acceso denegado")
	ErrInsufficientStock = errors.New("stock insuficiente")
	ErrInvalidState      = errors.New("estado del movimiento inválido para la operación")
	ErrLockTimeout       = errors.New("tiempo de espera agotado al bloquear el inventario")
)

// NotFoundError producto o movimiento inexistente para el tenant.
type NotFoundError struct {
	Resource string // "product" | "movement"
	ID       string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("%s %s no encontrado", e.Resource, e.ID)
}

func (e *NotFoundError) Is(target error) bool { return target == ErrNotFound }

// InsufficientStockError una salida dejaría la cantidad en negativo.
// Lleva lo solicitado y lo disponible para que el caller reaccione sin volver a consultar.
type InsufficientStockError struct {
	ProductID string
	Requested decimal.Decimal
	Available decimal.Decimal
}

func (e *InsufficientStockError) Error() string {
	return fmt.Sprintf("stock insuficiente para %s: solicitado %s, disponible %s",
		e.ProductID, e.Requested.String(), e.Available.String())
}

func (e *InsufficientStockError) Is(target error) bool { return target == ErrInsufficientStock }

// InvalidStateError operación sobre un movimiento que no está en el estado requerido.
type InvalidStateError struct {
	MovementID int64
	Status     string
	Operation  string
}

func (e *InvalidStateError) Error() string {
	return fmt.Sprintf("no se puede %s el movimiento %d en estado %s", e.Operation, e.MovementID, e.Status)
}

func (e *InvalidStateError) Is(target error) bool { return target == ErrInvalidState }

// LockTimeoutError no se obtuvo el bloqueo del registro de inventario a tiempo.
// Es transitorio: el caller puede reintentar.
type LockTimeoutError struct {
	ProductID string
	Err       error
}

func (e *LockTimeoutError) Error() string {
	if e.ProductID == "" {
		return "tiempo de espera agotado al bloquear el inventario"
	}
	return fmt.Sprintf("tiempo de espera agotado al bloquear el inventario de %s", e.ProductID)
}

func (e *LockTimeoutError) Is(target error) bool { return target == ErrLockTimeout }

func (e *LockTimeoutError) Unwrap() error { return e.Err }

// ValidationError cantidad no positiva, tenant distinto, enum desconocido, etc.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Reason)
}

func (e *ValidationError) Is(target error) bool { return target == ErrInvalidInput }
