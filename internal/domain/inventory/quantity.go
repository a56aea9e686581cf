package inventory

import (
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// ValidateQuantity la cantidad de un movimiento debe ser estrictamente positiva.
func ValidateQuantity(qty decimal.Decimal) error {
	if !qty.GreaterThan(decimal.Zero) {
		return &domain.ValidationError{Field: "quantity", Reason: "debe ser mayor que cero"}
	}
	return nil
}

// ApplyDelta calcula la cantidad resultante de aplicar un movimiento sobre before.
// Nunca devuelve una cantidad negativa: en ese caso retorna InsufficientStockError.
func ApplyDelta(productID string, before decimal.Decimal, dir entity.Direction, qty decimal.Decimal) (decimal.Decimal, error) {
	if !dir.IsValid() {
		return decimal.Zero, &domain.ValidationError{Field: "direction", Reason: "debe ser IN u OUT"}
	}
	if err := ValidateQuantity(qty); err != nil {
		return decimal.Zero, err
	}
	after := before.Add(dir.Signed(qty))
	if after.IsNegative() {
		return decimal.Zero, &domain.InsufficientStockError{
			ProductID: productID,
			Requested: qty,
			Available: before,
		}
	}
	return after, nil
}
