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

// Reverse crea un movimiento compensatorio (dirección opuesta, misma cantidad) que apunta al
// original y lo aplica de inmediato. El original no se modifica. Un movimiento se revierte
// una sola vez; revertir una entrada ya consumida devuelve InsufficientStockError.
func (e *LedgerEngine) Reverse(ctx context.Context, companyID string, originalID int64, actorID, note string) (mov *entity.Movement, err error) {
	started := time.Now()
	defer func() { e.finish(OpReverse, started, mov, err) }()

	if actorID == "" {
		return nil, &domain.ValidationError{Field: "actor_id", Reason: "requerido"}
	}
	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		// Bloquear el original serializa dos reversiones simultáneas del mismo movimiento.
		orig, err := movements.GetForUpdate(ctx, companyID, originalID)
		if err != nil {
			return err
		}
		if orig == nil {
			return &domain.NotFoundError{Resource: "movement", ID: strconv.FormatInt(originalID, 10)}
		}
		if err := inventory.RequireReversible(orig); err != nil {
			return err
		}
		prev, err := movements.FindReversalOf(ctx, companyID, originalID)
		if err != nil {
			return err
		}
		if prev != nil {
			return &domain.InvalidStateError{
				MovementID: originalID,
				Status:     string(orig.Status) + " (revertido por " + strconv.FormatInt(prev.ID, 10) + ")",
				Operation:  inventory.OpReverse,
			}
		}
		in := MovementInput{
			CompanyID:  companyID,
			ProductID:  orig.ProductID,
			ActorID:    actorID,
			Direction:  orig.Direction.Opposite(),
			Quantity:   orig.Quantity,
			ReasonCode: entity.ReasonReversal,
			Note:       note,
			Immediate:  true,
			reverses:   &orig.ID,
		}
		if err := in.validate(); err != nil {
			return err
		}
		mov, err = e.applyLocked(ctx, records, movements, in)
		return err
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}
