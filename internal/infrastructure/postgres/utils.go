package postgres

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jhoicas/inventario-ledger/internal/domain"
)

const (
	codeUniqueViolation  = "23505"
	codeLockNotAvailable = "55P03" // lock_timeout excedido o NOWAIT

	constraintReversalOnce = "uq_inventory_movements_reverses"
)

// isUniqueViolation verifica si un error es una violación de constraint único (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeUniqueViolation
	}
	return strings.Contains(err.Error(), codeUniqueViolation)
}

// violatedConstraint nombre del constraint que rechazó la escritura, si aplica.
func violatedConstraint(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.ConstraintName
	}
	return ""
}

// isLockNotAvailable el servidor abortó la espera por un bloqueo de fila.
func isLockNotAvailable(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == codeLockNotAvailable
	}
	return false
}

// isLockWait 55P03 o el deadline del caller vencido mientras se esperaba el bloqueo.
func isLockWait(err error) bool {
	return isLockNotAvailable(err) || errors.Is(err, context.DeadlineExceeded)
}

// mapLockErr traduce la espera agotada a LockTimeoutError; el resto pasa sin cambios.
func mapLockErr(err error, productID string) error {
	if err != nil && isLockWait(err) {
		return &domain.LockTimeoutError{ProductID: productID, Err: err}
	}
	return err
}
