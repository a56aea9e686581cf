package inventory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

// RegisterProductInput entrada para crear el registro de inventario de un producto.
type RegisterProductInput struct {
	CompanyID       string
	ProductID       string // vacío = UUID nuevo
	ActorID         string
	InitialQuantity decimal.Decimal
}

// RegisterProduct crea el registro en cero y, si hay saldo inicial, lo aplica como un movimiento
// IN confirmado con motivo INITIAL_STOCK, de modo que el historial reconstruya la cantidad desde el inicio.
func (e *LedgerEngine) RegisterProduct(ctx context.Context, in RegisterProductInput) (rec *entity.InventoryRecord, err error) {
	started := time.Now()
	var mov *entity.Movement
	defer func() { e.finish(OpRegister, started, mov, err) }()

	if in.CompanyID == "" {
		return nil, &domain.ValidationError{Field: "company_id", Reason: "requerido"}
	}
	if in.ActorID == "" {
		return nil, &domain.ValidationError{Field: "actor_id", Reason: "requerido"}
	}
	if in.InitialQuantity.IsNegative() {
		return nil, &domain.ValidationError{Field: "initial_quantity", Reason: "no puede ser negativa"}
	}
	if in.ProductID == "" {
		in.ProductID = uuid.New().String()
	}

	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		now := e.now()
		rec = &entity.InventoryRecord{
			CompanyID:      in.CompanyID,
			ProductID:      in.ProductID,
			QuantityOnHand: decimal.Zero,
			CreatedAt:      now,
			UpdatedAt:      now,
		}
		if err := records.Create(ctx, rec); err != nil {
			return err
		}
		if !in.InitialQuantity.IsPositive() {
			return nil
		}
		m, err := e.applyLocked(ctx, records, movements, MovementInput{
			CompanyID:  in.CompanyID,
			ProductID:  in.ProductID,
			ActorID:    in.ActorID,
			Direction:  entity.DirectionIN,
			Quantity:   in.InitialQuantity,
			ReasonCode: entity.ReasonInitialStock,
			Immediate:  true,
		})
		if err != nil {
			return err
		}
		mov = m
		rec.QuantityOnHand = m.QuantityAfter
		rec.AppliedSeq = m.AppliedSeq
		return nil
	})
	if err != nil {
		return nil, err
	}
	return rec, nil
}
