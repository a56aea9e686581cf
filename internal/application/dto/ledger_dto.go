package dto

import (
	"time"

	"github.com/shopspring/decimal"
)

// RegisterProductRequest body para POST /api/ledger/products.
// ProductID vacío = se genera un UUID.
type RegisterProductRequest struct {
	ProductID       string          `json:"product_id" validate:"omitempty,max=64"`
	InitialQuantity decimal.Decimal `json:"initial_quantity" validate:"gte=0"`
}

// RegisterMovementRequest body para POST /api/ledger/movements.
// Immediate nil = true (aplica en el acto); false deja el movimiento pendiente de aprobación.
type RegisterMovementRequest struct {
	ProductID  string          `json:"product_id" validate:"required,max=64"`
	Direction  string          `json:"direction" validate:"required,oneof=IN OUT"`
	Quantity   decimal.Decimal `json:"quantity" validate:"gt=0"`
	ReasonCode string          `json:"reason_code" validate:"required"`
	Note       string          `json:"note,omitempty" validate:"max=500"`
	Immediate  *bool           `json:"immediate,omitempty"`
}

// EditMovementRequest body para PATCH /api/ledger/movements/:id. Campos ausentes no cambian.
type EditMovementRequest struct {
	ProductID  *string          `json:"product_id,omitempty" validate:"omitempty,min=1,max=64"`
	Quantity   *decimal.Decimal `json:"quantity,omitempty" validate:"omitempty,gt=0"`
	Direction  *string          `json:"direction,omitempty" validate:"omitempty,oneof=IN OUT"`
	ReasonCode *string          `json:"reason_code,omitempty"`
	Note       *string          `json:"note,omitempty" validate:"omitempty,max=500"`
}

// ConfirmMovementRequest body opcional para POST /api/ledger/movements/:id/confirm.
// Con Edit se edita y confirma en la misma transacción.
type ConfirmMovementRequest struct {
	Edit *EditMovementRequest `json:"edit,omitempty"`
}

// RejectMovementRequest body para POST /api/ledger/movements/:id/reject.
type RejectMovementRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ReverseMovementRequest body para POST /api/ledger/movements/:id/reverse.
type ReverseMovementRequest struct {
	Note string `json:"note,omitempty" validate:"max=500"`
}

// InventoryRecordResponse cantidad disponible de un producto.
type InventoryRecordResponse struct {
	ProductID      string          `json:"product_id"`
	QuantityOnHand decimal.Decimal `json:"quantity_on_hand"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// EditAuditResponse auditoría de las ediciones de un movimiento pendiente.
// Before es lo solicitado originalmente; After, el estado tras la última edición.
type EditAuditResponse struct {
	Version  int              `json:"version"`
	Edits    int              `json:"edits"`
	Before   MovementSnapshot `json:"before"`
	After    MovementSnapshot `json:"after"`
	EditedAt time.Time        `json:"edited_at"`
}

// MovementSnapshot campos editables en la auditoría.
type MovementSnapshot struct {
	ProductID  string          `json:"product_id"`
	Direction  string          `json:"direction"`
	Quantity   decimal.Decimal `json:"quantity"`
	ReasonCode string          `json:"reason_code"`
	Note       string          `json:"note,omitempty"`
}

// MovementResponse representación de un movimiento del libro.
type MovementResponse struct {
	ID                 int64              `json:"id"`
	ProductID          string             `json:"product_id"`
	Direction          string             `json:"direction"`
	Quantity           decimal.Decimal    `json:"quantity"`
	QuantityBefore     decimal.Decimal    `json:"quantity_before"`
	QuantityAfter      decimal.Decimal    `json:"quantity_after"`
	Status             string             `json:"status"`
	ActorID            string             `json:"actor_id"`
	ApproverID         string             `json:"approver_id,omitempty"`
	RequestedAt        time.Time          `json:"requested_at"`
	DecidedAt          *time.Time         `json:"decided_at,omitempty"`
	ReasonCode         string             `json:"reason_code"`
	Note               string             `json:"note,omitempty"`
	RejectionReason    string             `json:"rejection_reason,omitempty"`
	ReversesMovementID *int64             `json:"reverses_movement_id,omitempty"`
	AppliedSeq         int64              `json:"applied_seq,omitempty"`
	EditAudit          *EditAuditResponse `json:"edit_audit,omitempty"`
}

// MovementListResponse listado paginado de movimientos.
type MovementListResponse struct {
	Items []MovementResponse `json:"items"`
	Page  PageResponse       `json:"page"`
}
