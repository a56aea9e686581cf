package inventory

import (
	"context"
	"strings"

	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
)

// RegisterMovementFromRequest adapta el request HTTP al caso de uso ApplyMovement.
// Usar desde handlers HTTP o desde otros casos de uso que tengan companyID, userID y dto.RegisterMovementRequest.
func (e *LedgerEngine) RegisterMovementFromRequest(ctx context.Context, companyID, userID string, in dto.RegisterMovementRequest) (*entity.Movement, error) {
	reason := entity.ReasonCode(strings.ToUpper(in.ReasonCode))
	if reason == entity.ReasonReversal {
		return nil, &domain.ValidationError{Field: "reason_code", Reason: "use el endpoint de reversión"}
	}
	immediate := true
	if in.Immediate != nil {
		immediate = *in.Immediate
	}
	return e.ApplyMovement(ctx, MovementInput{
		CompanyID:  companyID,
		ProductID:  in.ProductID,
		ActorID:    userID,
		Direction:  entity.Direction(strings.ToUpper(in.Direction)),
		Quantity:   in.Quantity,
		ReasonCode: reason,
		Note:       in.Note,
		Immediate:  immediate,
	})
}

// EditFromRequest convierte el body de edición en entity.MovementEdit.
func EditFromRequest(in dto.EditMovementRequest) entity.MovementEdit {
	edit := entity.MovementEdit{
		ProductID: in.ProductID,
		Quantity:  in.Quantity,
		Note:      in.Note,
	}
	if in.Direction != nil {
		d := entity.Direction(strings.ToUpper(*in.Direction))
		edit.Direction = &d
	}
	if in.ReasonCode != nil {
		r := entity.ReasonCode(strings.ToUpper(*in.ReasonCode))
		edit.ReasonCode = &r
	}
	return edit
}

// ToMovementResponse mapea la entidad a la respuesta HTTP.
func ToMovementResponse(m *entity.Movement) dto.MovementResponse {
	out := dto.MovementResponse{
		ID:                 m.ID,
		ProductID:          m.ProductID,
		Direction:          string(m.Direction),
		Quantity:           m.Quantity,
		QuantityBefore:     m.QuantityBefore,
		QuantityAfter:      m.QuantityAfter,
		Status:             string(m.Status),
		ActorID:            m.ActorID,
		ApproverID:         m.ApproverID,
		RequestedAt:        m.RequestedAt,
		DecidedAt:          m.DecidedAt,
		ReasonCode:         string(m.ReasonCode),
		Note:               m.Note,
		RejectionReason:    m.RejectionReason,
		ReversesMovementID: m.ReversesMovementID,
		AppliedSeq:         m.AppliedSeq,
	}
	if m.EditAudit != nil {
		out.EditAudit = &dto.EditAuditResponse{
			Version:  m.EditAudit.Version,
			Edits:    m.EditAudit.Edits,
			Before:   toSnapshotDTO(m.EditAudit.Before),
			After:    toSnapshotDTO(m.EditAudit.After),
			EditedAt: m.EditAudit.EditedAt,
		}
	}
	return out
}

func toSnapshotDTO(s entity.MovementSnapshot) dto.MovementSnapshot {
	return dto.MovementSnapshot{
		ProductID:  s.ProductID,
		Direction:  string(s.Direction),
		Quantity:   s.Quantity,
		ReasonCode: string(s.ReasonCode),
		Note:       s.Note,
	}
}

// ToRecordResponse mapea el registro de inventario a la respuesta HTTP.
func ToRecordResponse(r *entity.InventoryRecord) dto.InventoryRecordResponse {
	return dto.InventoryRecordResponse{
		ProductID:      r.ProductID,
		QuantityOnHand: r.QuantityOnHand,
		UpdatedAt:      r.UpdatedAt,
	}
}
