package inventory

import (
	"context"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// Puntos de entrada para los módulos que piden cambios de stock (pedidos, compras, importación
// de facturas). Ninguno escribe el inventario directamente: todos pasan por ApplyMovement.

// FulfilOrder descuenta stock al despachar un pedido o cotización (OUT inmediato).
func (e *LedgerEngine) FulfilOrder(ctx context.Context, companyID, actorID, productID string, qty decimal.Decimal, orderRef string) (*entity.Movement, error) {
	return e.ApplyMovement(ctx, MovementInput{
		CompanyID:  companyID,
		ProductID:  productID,
		ActorID:    actorID,
		Direction:  entity.DirectionOUT,
		Quantity:   qty,
		ReasonCode: entity.ReasonSale,
		Note:       referenceNote("pedido", orderRef),
		Immediate:  true,
	})
}

// ReceivePurchaseOrder suma stock al recibir una orden de compra (IN inmediato).
func (e *LedgerEngine) ReceivePurchaseOrder(ctx context.Context, companyID, actorID, productID string, qty decimal.Decimal, poRef string) (*entity.Movement, error) {
	return e.ApplyMovement(ctx, MovementInput{
		CompanyID:  companyID,
		ProductID:  productID,
		ActorID:    actorID,
		Direction:  entity.DirectionIN,
		Quantity:   qty,
		ReasonCode: entity.ReasonPurchase,
		Note:       referenceNote("orden de compra", poRef),
		Immediate:  true,
	})
}

// InvoiceLine línea de factura ya interpretada por el importador.
type InvoiceLine struct {
	CompanyID     string
	ActorID       string
	ProductID     string
	Direction     entity.Direction
	Quantity      decimal.Decimal
	InvoiceNumber string
	LowConfidence bool // el importador no está seguro del producto: queda PENDING para revisión
}

// ApplyInvoiceLine aplica una línea importada; las de baja confianza quedan pendientes.
func (e *LedgerEngine) ApplyInvoiceLine(ctx context.Context, line InvoiceLine) (*entity.Movement, error) {
	return e.ApplyMovement(ctx, MovementInput{
		CompanyID:  line.CompanyID,
		ProductID:  line.ProductID,
		ActorID:    line.ActorID,
		Direction:  line.Direction,
		Quantity:   line.Quantity,
		ReasonCode: entity.ReasonInvoiceImport,
		Note:       referenceNote("factura", line.InvoiceNumber),
		Immediate:  !line.LowConfidence,
	})
}

func referenceNote(kind, ref string) string {
	if ref == "" {
		return ""
	}
	return kind + " " + ref
}
