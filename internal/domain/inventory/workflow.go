package inventory

import (
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// Operaciones del flujo de aprobación (usadas en los mensajes de InvalidStateError).
const (
	OpConfirm = "confirmar"
	OpReject  = "rechazar"
	OpEdit    = "editar"
	OpReverse = "revertir"
)

// RequirePending valida que el movimiento siga pendiente antes de operar sobre él.
func RequirePending(m *entity.Movement, op string) error {
	if m.Status != entity.MovementStatusPending {
		return &domain.InvalidStateError{MovementID: m.ID, Status: string(m.Status), Operation: op}
	}
	return nil
}

// RequireReversible solo un movimiento CONFIRMED puede revertirse.
func RequireReversible(m *entity.Movement) error {
	if m.Status != entity.MovementStatusConfirmed {
		return &domain.InvalidStateError{MovementID: m.ID, Status: string(m.Status), Operation: OpReverse}
	}
	return nil
}

// ApplyEdit aplica los cambios a un movimiento PENDING y deja la auditoría antes/después;
// en ediciones sucesivas Before sigue siendo lo solicitado originalmente.
// No toca el inventario: un cambio de producto corrige la intención, no un hecho aplicado.
func ApplyEdit(m *entity.Movement, edit entity.MovementEdit, now time.Time) error {
	if err := RequirePending(m, OpEdit); err != nil {
		return err
	}
	if edit.IsEmpty() {
		return &domain.ValidationError{Field: "edit", Reason: "no hay cambios"}
	}
	before := m.Snapshot()

	if edit.ProductID != nil {
		if *edit.ProductID == "" {
			return &domain.ValidationError{Field: "product_id", Reason: "requerido"}
		}
		m.ProductID = *edit.ProductID
	}
	if edit.Quantity != nil {
		if err := ValidateQuantity(*edit.Quantity); err != nil {
			return err
		}
		m.Quantity = *edit.Quantity
	}
	if edit.Direction != nil {
		if !edit.Direction.IsValid() {
			return &domain.ValidationError{Field: "direction", Reason: "debe ser IN u OUT"}
		}
		m.Direction = *edit.Direction
	}
	if edit.ReasonCode != nil {
		if !edit.ReasonCode.IsValid() || *edit.ReasonCode == entity.ReasonReversal {
			return &domain.ValidationError{Field: "reason_code", Reason: "motivo no permitido"}
		}
		m.ReasonCode = *edit.ReasonCode
	}
	if edit.Note != nil {
		m.Note = *edit.Note
	}

	edits := 1
	if m.EditAudit != nil {
		before = m.EditAudit.Before
		edits = m.EditAudit.Edits + 1
	}
	m.EditAudit = &entity.EditAudit{
		Version:  entity.EditAuditVersion,
		Edits:    edits,
		Before:   before,
		After:    m.Snapshot(),
		EditedAt: now,
	}
	return nil
}
