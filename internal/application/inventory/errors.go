package inventory

import (
	"errors"

	"github.com/jhoicas/inventario-ledger/internal/domain"
)

// Tipos de error expuestos a métricas y a la capa HTTP.
const (
	KindNotFound          = "not_found"
	KindInsufficientStock = "insufficient_stock"
	KindInvalidState      = "invalid_state"
	KindLockTimeout       = "lock_timeout"
	KindValidation        = "validation"
	KindDuplicate         = "duplicate"
	KindForbidden         = "forbidden"
	KindInternal          = "internal"
)

// ErrorKind clasifica un error del motor según la taxonomía del libro.
func ErrorKind(err error) string {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, domain.ErrInsufficientStock):
		return KindInsufficientStock
	case errors.Is(err, domain.ErrInvalidState):
		return KindInvalidState
	case errors.Is(err, domain.ErrLockTimeout):
		return KindLockTimeout
	case errors.Is(err, domain.ErrNotFound):
		return KindNotFound
	case errors.Is(err, domain.ErrInvalidInput):
		return KindValidation
	case errors.Is(err, domain.ErrDuplicate):
		return KindDuplicate
	case errors.Is(err, domain.ErrForbidden):
		return KindForbidden
	}
	return KindInternal
}
