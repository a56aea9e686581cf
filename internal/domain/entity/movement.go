package entity

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction sentido del movimiento: IN suma, OUT resta.
type Direction string

const (
	DirectionIN  Direction = "IN"
	DirectionOUT Direction = "OUT"
)

// IsValid indica si la dirección es una de las conocidas.
func (d Direction) IsValid() bool {
	switch d {
	case DirectionIN, DirectionOUT:
		return true
	}
	return false
}

// Opposite devuelve la dirección contraria (usada por las reversiones).
func (d Direction) Opposite() Direction {
	if d == DirectionIN {
		return DirectionOUT
	}
	return DirectionIN
}

// Signed aplica el signo de la dirección a una cantidad positiva.
func (d Direction) Signed(qty decimal.Decimal) decimal.Decimal {
	if d == DirectionOUT {
		return qty.Neg()
	}
	return qty
}

// MovementStatus estado del flujo de aprobación.
type MovementStatus string

const (
	MovementStatusPending   MovementStatus = "PENDING"
	MovementStatusConfirmed MovementStatus = "CONFIRMED"
	MovementStatusRejected  MovementStatus = "REJECTED"
)

// IsValid indica si el estado es uno de los conocidos.
func (s MovementStatus) IsValid() bool {
	switch s {
	case MovementStatusPending, MovementStatusConfirmed, MovementStatusRejected:
		return true
	}
	return false
}

// ReasonCode motivo de negocio del movimiento.
type ReasonCode string

const (
	ReasonPurchase      ReasonCode = "PURCHASE"       // recepción de orden de compra
	ReasonSale          ReasonCode = "SALE"           // despacho de pedido/cotización
	ReasonReturn        ReasonCode = "RETURN"         // devolución de cliente o a proveedor
	ReasonAdjustment    ReasonCode = "ADJUSTMENT"     // ajuste manual o por conteo
	ReasonLoss          ReasonCode = "LOSS"           // merma, daño, robo
	ReasonInvoiceImport ReasonCode = "INVOICE_IMPORT" // línea de factura importada
	ReasonInitialStock  ReasonCode = "INITIAL_STOCK"  // saldo inicial al registrar el producto
	ReasonReversal      ReasonCode = "REVERSAL"       // compensación de otro movimiento
)

// IsValid indica si el motivo es uno de los conocidos.
func (r ReasonCode) IsValid() bool {
	switch r {
	case ReasonPurchase, ReasonSale, ReasonReturn, ReasonAdjustment,
		ReasonLoss, ReasonInvoiceImport, ReasonInitialStock, ReasonReversal:
		return true
	}
	return false
}

// Movement representa un movimiento del libro de inventario (propuesto o aplicado).
// QuantityBefore/QuantityAfter son informativos mientras está PENDING y definitivos al confirmar.
type Movement struct {
	ID                 int64
	CompanyID          string
	ProductID          string
	Direction          Direction
	Quantity           decimal.Decimal // siempre > 0; el signo lo da Direction
	QuantityBefore     decimal.Decimal
	QuantityAfter      decimal.Decimal
	Status             MovementStatus
	ActorID            string
	ApproverID         string // vacío hasta confirmar/rechazar
	RequestedAt        time.Time
	DecidedAt          *time.Time
	ReasonCode         ReasonCode
	Note               string
	RejectionReason    string
	ReversesMovementID *int64
	AppliedSeq         int64      // posición en el historial del producto; 0 mientras no se aplica
	EditAudit          *EditAudit // solo si fue editado estando PENDING
}

// SignedQuantity cantidad con signo según la dirección.
func (m *Movement) SignedQuantity() decimal.Decimal {
	return m.Direction.Signed(m.Quantity)
}

// Snapshot copia estructurada de los campos editables.
func (m *Movement) Snapshot() MovementSnapshot {
	return MovementSnapshot{
		ProductID:  m.ProductID,
		Direction:  m.Direction,
		Quantity:   m.Quantity,
		ReasonCode: m.ReasonCode,
		Note:       m.Note,
	}
}

// EditAuditVersion versión del esquema de auditoría de ediciones.
const EditAuditVersion = 2

// MovementSnapshot campos editables de un movimiento pendiente.
type MovementSnapshot struct {
	ProductID  string          `json:"product_id"`
	Direction  Direction       `json:"direction"`
	Quantity   decimal.Decimal `json:"quantity"`
	ReasonCode ReasonCode      `json:"reason_code"`
	Note       string          `json:"note,omitempty"`
}

// EditAudit ediciones hechas a un movimiento pendiente. Before conserva lo solicitado
// originalmente aunque haya varias ediciones; After refleja la última.
type EditAudit struct {
	Version  int              `json:"version"`
	Edits    int              `json:"edits"`
	Before   MovementSnapshot `json:"before"`
	After    MovementSnapshot `json:"after"`
	EditedAt time.Time        `json:"edited_at"`
}

// MovementEdit cambios solicitados sobre un movimiento pendiente; nil = sin cambio.
type MovementEdit struct {
	ProductID  *string
	Quantity   *decimal.Decimal
	Direction  *Direction
	ReasonCode *ReasonCode
	Note       *string
}

// IsEmpty indica si la edición no cambia nada.
func (e MovementEdit) IsEmpty() bool {
	return e.ProductID == nil && e.Quantity == nil && e.Direction == nil && e.ReasonCode == nil && e.Note == nil
}
