package repository

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// InventoryRecordRepository define el puerto para la cantidad disponible por empresa+producto.
// Las escrituras solo ocurren dentro de una transacción del motor del libro.
type InventoryRecordRepository interface {
	// Create registra el producto con su cantidad inicial. ErrDuplicate si ya existe.
	Create(ctx context.Context, record *entity.InventoryRecord) error
	// Get lee sin bloquear. Devuelve nil, nil si no existe.
	Get(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error)
	// GetForUpdate bloquea la fila hasta el fin de la transacción (SELECT FOR UPDATE).
	// Devuelve nil, nil si no existe y LockTimeoutError si no obtiene el bloqueo a tiempo.
	GetForUpdate(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error)
	// UpdateQuantity escribe la cantidad e incrementa applied_seq; devuelve el nuevo valor,
	// que el motor estampa en el movimiento aplicado.
	UpdateQuantity(ctx context.Context, companyID, productID string, qty decimal.Decimal, now time.Time) (int64, error)
}
