package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// InventoryRecord cantidad disponible de un producto dentro de una empresa (tenant).
// Solo el motor del libro la modifica, siempre a través de un movimiento confirmado.
type InventoryRecord struct {
	CompanyID      string
	ProductID      string
	QuantityOnHand decimal.Decimal
	AppliedSeq     int64 // cantidad de movimientos aplicados; crece bajo el bloqueo de la fila
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
