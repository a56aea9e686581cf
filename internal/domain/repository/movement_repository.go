package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// MovementFilter criterios para el historial de un producto.
type MovementFilter struct {
	CompanyID string
	ProductID string
	Since     *time.Time
	Status    *entity.MovementStatus
	Limit     int
	Offset    int
}

// MovementRepository define el puerto de persistencia para movimientos del libro.
// MarkConfirmed, MarkRejected y UpdatePending son actualizaciones condicionales
// (WHERE status = 'PENDING'): si el movimiento ya no está pendiente devuelven InvalidStateError.
type MovementRepository interface {
	// Create inserta el movimiento y asigna m.ID (monotónico).
	Create(ctx context.Context, m *entity.Movement) error
	GetByID(ctx context.Context, companyID string, id int64) (*entity.Movement, error)
	// GetForUpdate bloquea la fila del movimiento hasta el fin de la transacción.
	GetForUpdate(ctx context.Context, companyID string, id int64) (*entity.Movement, error)
	UpdatePending(ctx context.Context, m *entity.Movement) error
	MarkConfirmed(ctx context.Context, m *entity.Movement) error
	MarkRejected(ctx context.Context, m *entity.Movement) error
	// FindReversalOf devuelve el movimiento que revierte a id, o nil si no hay.
	FindReversalOf(ctx context.Context, companyID string, id int64) (*entity.Movement, error)
	// ListByProduct historial más reciente primero (requested_at DESC).
	ListByProduct(ctx context.Context, f MovementFilter) ([]*entity.Movement, error)
	// ListConfirmed movimientos CONFIRMED en orden de aplicación (applied_seq).
	ListConfirmed(ctx context.Context, companyID, productID string) ([]*entity.Movement, error)
	// ListPending pendientes del tenant; actorID vacío = todos los solicitantes.
	ListPending(ctx context.Context, companyID, actorID string, limit, offset int) ([]*entity.Movement, error)
}
