package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// TxRunner ejecuta una función dentro de una transacción de BD, pasando repositorios atados a esa tx.
// Garantiza atomicidad para el motor del libro: si fn falla no queda nada escrito.
// La espera por bloqueos de fila debe estar acotada (LockTimeoutError al excederla).
type TxRunner interface {
	Run(ctx context.Context, fn func(
		records repository.InventoryRecordRepository,
		movements repository.MovementRepository,
	) error) error
}

// Metrics puerto de observabilidad del motor (implementado con Prometheus en infraestructura).
type Metrics interface {
	ObserveOperation(operation string, started time.Time, err error)
	MovementRecorded(operation string, m *entity.Movement)
}

type noopMetrics struct{}

func (noopMetrics) ObserveOperation(string, time.Time, error) {}
func (noopMetrics) MovementRecorded(string, *entity.Movement) {}
