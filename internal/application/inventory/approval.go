package inventory

import (
	"context"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

// Confirm aplica un movimiento PENDING. Revalida contra la cantidad actual (no la del momento
// de la solicitud); si no alcanza devuelve InsufficientStockError y el movimiento sigue PENDING.
func (e *LedgerEngine) Confirm(ctx context.Context, companyID string, movementID int64, approverID string) (rec *entity.InventoryRecord, err error) {
	started := time.Now()
	var mov *entity.Movement
	defer func() { e.finish(OpConfirm, started, mov, err) }()

	if approverID == "" {
		return nil, &domain.ValidationError{Field: "approver_id", Reason: "requerido"}
	}
	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		m, err := lockPending(ctx, movements, companyID, movementID, inventory.OpConfirm)
		if err != nil {
			return err
		}
		rec, err = e.confirmLocked(ctx, records, movements, m, approverID)
		if err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// Reject pasa un movimiento PENDING a REJECTED. Nunca toca el inventario.
func (e *LedgerEngine) Reject(ctx context.Context, companyID string, movementID int64, approverID, reason string) (mov *entity.Movement, err error) {
	started := time.Now()
	defer func() { e.finish(OpReject, started, mov, err) }()

	if approverID == "" {
		return nil, &domain.ValidationError{Field: "approver_id", Reason: "requerido"}
	}
	if reason == "" {
		return nil, &domain.ValidationError{Field: "rejection_reason", Reason: "requerido"}
	}
	err = e.txRunner.Run(ctx, func(_ repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		m, err := lockPending(ctx, movements, companyID, movementID, inventory.OpReject)
		if err != nil {
			return err
		}
		now := e.now()
		m.Status = entity.MovementStatusRejected
		m.ApproverID = approverID
		m.DecidedAt = &now
		m.RejectionReason = reason
		if err := movements.MarkRejected(ctx, m); err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// EditPending corrige un movimiento PENDING (producto, cantidad, dirección, motivo, nota)
// guardando la auditoría antes/después. No toca el inventario.
func (e *LedgerEngine) EditPending(ctx context.Context, companyID string, movementID int64, edit entity.MovementEdit) (mov *entity.Movement, err error) {
	started := time.Now()
	defer func() { e.finish(OpEdit, started, mov, err) }()

	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		m, err := lockPending(ctx, movements, companyID, movementID, inventory.OpEdit)
		if err != nil {
			return err
		}
		if err := e.editLocked(ctx, records, movements, m, edit); err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// EditAndConfirm edita y confirma en una sola transacción: si la validación posterior a la
// edición falla no se persiste ni la edición ni la aplicación.
func (e *LedgerEngine) EditAndConfirm(ctx context.Context, companyID string, movementID int64, approverID string, edit entity.MovementEdit) (rec *entity.InventoryRecord, err error) {
	started := time.Now()
	var mov *entity.Movement
	defer func() { e.finish(OpEditConfirm, started, mov, err) }()

	if approverID == "" {
		return nil, &domain.ValidationError{Field: "approver_id", Reason: "requerido"}
	}
	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		m, err := lockPending(ctx, movements, companyID, movementID, inventory.OpConfirm)
		if err != nil {
			return err
		}
		if !edit.IsEmpty() {
			if err := e.editLocked(ctx, records, movements, m, edit); err != nil {
				return err
			}
		}
		rec, err = e.confirmLocked(ctx, records, movements, m, approverID)
		if err != nil {
			return err
		}
		mov = m
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}

// lockPending bloquea el movimiento y exige que siga PENDING.
func lockPending(ctx context.Context, movements repository.MovementRepository, companyID string, id int64, op string) (*entity.Movement, error) {
	m, err := movements.GetForUpdate(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &domain.NotFoundError{Resource: "movement", ID: strconv.FormatInt(id, 10)}
	}
	if err := inventory.RequirePending(m, op); err != nil {
		return nil, err
	}
	return m, nil
}

// editLocked aplica la edición y la persiste. Si cambia el producto, este debe existir en la
// empresa; los valores informativos before/after pasan a ser los del nuevo producto.
func (e *LedgerEngine) editLocked(
	ctx context.Context,
	records repository.InventoryRecordRepository,
	movements repository.MovementRepository,
	m *entity.Movement,
	edit entity.MovementEdit,
) error {
	previousProduct := m.ProductID
	if err := inventory.ApplyEdit(m, edit, e.now()); err != nil {
		return err
	}
	if m.ProductID != previousProduct {
		rec, err := records.Get(ctx, m.CompanyID, m.ProductID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &domain.NotFoundError{Resource: "product", ID: m.ProductID}
		}
		m.QuantityBefore = rec.QuantityOnHand
		m.QuantityAfter = rec.QuantityOnHand
	}
	return movements.UpdatePending(ctx, m)
}

// confirmLocked bloquea el registro del producto, revalida, aplica y marca el movimiento CONFIRMED.
func (e *LedgerEngine) confirmLocked(
	ctx context.Context,
	records repository.InventoryRecordRepository,
	movements repository.MovementRepository,
	m *entity.Movement,
	approverID string,
) (*entity.InventoryRecord, error) {
	rec, err := records.GetForUpdate(ctx, m.CompanyID, m.ProductID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "product", ID: m.ProductID}
	}
	after, err := inventory.ApplyDelta(m.ProductID, rec.QuantityOnHand, m.Direction, m.Quantity)
	if err != nil {
		return nil, err
	}
	now := e.now()
	seq, err := records.UpdateQuantity(ctx, m.CompanyID, m.ProductID, after, now)
	if err != nil {
		return nil, err
	}
	m.QuantityBefore = rec.QuantityOnHand
	m.QuantityAfter = after
	m.AppliedSeq = seq
	m.Status = entity.MovementStatusConfirmed
	m.ApproverID = approverID
	m.DecidedAt = &now
	if err := movements.MarkConfirmed(ctx, m); err != nil {
		return nil, err
	}
	rec.QuantityOnHand = after
	rec.AppliedSeq = seq
	rec.UpdatedAt = now
	return rec, nil
}
