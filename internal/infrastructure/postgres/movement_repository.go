package postgres

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ repository.MovementRepository = (*MovementRepo)(nil)

// MovementRepo implementación de MovementRepository sobre PostgreSQL (usable con pool o tx).
type MovementRepo struct {
	q Querier
}

// NewMovementRepository construye el adaptador. Pasar pool o tx (Querier).
func NewMovementRepository(q Querier) *MovementRepo {
	return &MovementRepo{q: q}
}

const movementColumns = `
	id, company_id, product_id, direction, quantity, quantity_before, quantity_after, status,
	actor_id, approver_id, requested_at, decided_at, reason_code, note, rejection_reason,
	reverses_movement_id, applied_seq, edit_audit`

// Create inserta el movimiento; el id lo asigna la secuencia (BIGSERIAL).
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	audit, err := marshalAudit(m.EditAudit)
	if err != nil {
		return err
	}
	query := `
		INSERT INTO inventory_movements (company_id, product_id, direction, quantity, quantity_before, quantity_after,
			status, actor_id, approver_id, requested_at, decided_at, reason_code, note, rejection_reason,
			reverses_movement_id, applied_seq, edit_audit)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`
	err = r.q.QueryRow(ctx, query,
		m.CompanyID, m.ProductID, m.Direction, m.Quantity, m.QuantityBefore, m.QuantityAfter,
		m.Status, m.ActorID, nullable(m.ApproverID), m.RequestedAt, m.DecidedAt, m.ReasonCode, m.Note,
		nullable(m.RejectionReason), m.ReversesMovementID, nullableSeq(m.AppliedSeq), audit,
	).Scan(&m.ID)
	if err != nil {
		if isUniqueViolation(err) && violatedConstraint(err) == constraintReversalOnce && m.ReversesMovementID != nil {
			return &domain.InvalidStateError{
				MovementID: *m.ReversesMovementID,
				Status:     string(entity.MovementStatusConfirmed),
				Operation:  inventory.OpReverse + " nuevamente",
			}
		}
		return mapLockErr(fmt.Errorf("create movement: %w", err), m.ProductID)
	}
	return nil
}

// GetByID obtiene un movimiento del tenant sin bloquear; nil si no existe.
func (r *MovementRepo) GetByID(ctx context.Context, companyID string, id int64) (*entity.Movement, error) {
	query := `SELECT` + movementColumns + ` FROM inventory_movements WHERE company_id = $1 AND id = $2`
	m, err := scanMovement(r.q.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("get movement: %w", err)
	}
	return m, nil
}

// GetForUpdate bloquea la fila del movimiento (SELECT FOR UPDATE).
func (r *MovementRepo) GetForUpdate(ctx context.Context, companyID string, id int64) (*entity.Movement, error) {
	query := `SELECT` + movementColumns + ` FROM inventory_movements WHERE company_id = $1 AND id = $2 FOR UPDATE`
	m, err := scanMovement(r.q.QueryRow(ctx, query, companyID, id))
	if err != nil {
		if isLockWait(err) {
			return nil, mapLockErr(err, "")
		}
		return nil, fmt.Errorf("get movement for update: %w", err)
	}
	return m, nil
}

// UpdatePending persiste la edición de un movimiento que sigue PENDING.
func (r *MovementRepo) UpdatePending(ctx context.Context, m *entity.Movement) error {
	audit, err := marshalAudit(m.EditAudit)
	if err != nil {
		return err
	}
	query := `
		UPDATE inventory_movements
		SET product_id = $3, direction = $4, quantity = $5, quantity_before = $6, quantity_after = $7,
			reason_code = $8, note = $9, edit_audit = $10
		WHERE company_id = $1 AND id = $2 AND status = 'PENDING'`
	return r.conditional(ctx, m, inventory.OpEdit, query,
		m.CompanyID, m.ID, m.ProductID, m.Direction, m.Quantity, m.QuantityBefore, m.QuantityAfter,
		m.ReasonCode, m.Note, audit,
	)
}

// MarkConfirmed PENDING -> CONFIRMED con las cantidades definitivas.
func (r *MovementRepo) MarkConfirmed(ctx context.Context, m *entity.Movement) error {
	audit, err := marshalAudit(m.EditAudit)
	if err != nil {
		return err
	}
	query := `
		UPDATE inventory_movements
		SET status = 'CONFIRMED', product_id = $3, direction = $4, quantity = $5,
			quantity_before = $6, quantity_after = $7, approver_id = $8, decided_at = $9,
			reason_code = $10, note = $11, edit_audit = $12, applied_seq = $13
		WHERE company_id = $1 AND id = $2 AND status = 'PENDING'`
	return r.conditional(ctx, m, inventory.OpConfirm, query,
		m.CompanyID, m.ID, m.ProductID, m.Direction, m.Quantity, m.QuantityBefore, m.QuantityAfter,
		nullable(m.ApproverID), m.DecidedAt, m.ReasonCode, m.Note, audit, nullableSeq(m.AppliedSeq),
	)
}

// MarkRejected PENDING -> REJECTED.
func (r *MovementRepo) MarkRejected(ctx context.Context, m *entity.Movement) error {
	query := `
		UPDATE inventory_movements
		SET status = 'REJECTED', approver_id = $3, decided_at = $4, rejection_reason = $5
		WHERE company_id = $1 AND id = $2 AND status = 'PENDING'`
	return r.conditional(ctx, m, inventory.OpReject, query,
		m.CompanyID, m.ID, nullable(m.ApproverID), m.DecidedAt, nullable(m.RejectionReason),
	)
}

// conditional ejecuta un UPDATE ... WHERE status = 'PENDING'. Si no afecta filas, relee para
// distinguir movimiento inexistente (NotFound) de estado ya terminal (InvalidState).
func (r *MovementRepo) conditional(ctx context.Context, m *entity.Movement, op, query string, args ...any) error {
	tag, err := r.q.Exec(ctx, query, args...)
	if err != nil {
		return mapLockErr(fmt.Errorf("%s movement: %w", op, err), m.ProductID)
	}
	if tag.RowsAffected() == 1 {
		return nil
	}
	current, err := r.GetByID(ctx, m.CompanyID, m.ID)
	if err != nil {
		return err
	}
	if current == nil {
		return &domain.NotFoundError{Resource: "movement", ID: strconv.FormatInt(m.ID, 10)}
	}
	return &domain.InvalidStateError{MovementID: m.ID, Status: string(current.Status), Operation: op}
}

// FindReversalOf movimiento que revierte a id, o nil.
func (r *MovementRepo) FindReversalOf(ctx context.Context, companyID string, id int64) (*entity.Movement, error) {
	query := `SELECT` + movementColumns + ` FROM inventory_movements WHERE company_id = $1 AND reverses_movement_id = $2`
	m, err := scanMovement(r.q.QueryRow(ctx, query, companyID, id))
	if err != nil {
		return nil, fmt.Errorf("find reversal: %w", err)
	}
	return m, nil
}

// ListByProduct historial de un producto, más reciente primero.
func (r *MovementRepo) ListByProduct(ctx context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	query := `SELECT` + movementColumns + ` FROM inventory_movements WHERE company_id = $1 AND product_id = $2`
	args := []any{f.CompanyID, f.ProductID}
	pos := 3
	if f.Since != nil {
		query += fmt.Sprintf(" AND requested_at >= $%d", pos)
		args = append(args, *f.Since)
		pos++
	}
	if f.Status != nil {
		query += fmt.Sprintf(" AND status = $%d", pos)
		args = append(args, *f.Status)
		pos++
	}
	query += " ORDER BY requested_at DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d OFFSET $%d", pos, pos+1)
		args = append(args, f.Limit, f.Offset)
	}
	return r.list(ctx, "list by product", query, args...)
}

// ListConfirmed movimientos CONFIRMED del producto en orden de aplicación (applied_seq).
func (r *MovementRepo) ListConfirmed(ctx context.Context, companyID, productID string) ([]*entity.Movement, error) {
	query := `SELECT` + movementColumns + `
		FROM inventory_movements
		WHERE company_id = $1 AND product_id = $2 AND status = 'CONFIRMED'
		ORDER BY applied_seq ASC`
	return r.list(ctx, "list confirmed", query, companyID, productID)
}

// ListPending cola de aprobación del tenant, más antiguo primero.
func (r *MovementRepo) ListPending(ctx context.Context, companyID, actorID string, limit, offset int) ([]*entity.Movement, error) {
	query := `SELECT` + movementColumns + `
		FROM inventory_movements
		WHERE company_id = $1 AND status = 'PENDING' AND ($2::text = '' OR actor_id = $2)
		ORDER BY requested_at ASC, id ASC
		LIMIT $3 OFFSET $4`
	return r.list(ctx, "list pending", query, companyID, actorID, limit, offset)
}

func (r *MovementRepo) list(ctx context.Context, what, query string, args ...any) ([]*entity.Movement, error) {
	rows, err := r.q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", what, err)
	}
	defer rows.Close()
	var list []*entity.Movement
	for rows.Next() {
		m, err := scanMovement(rows)
		if err != nil {
			return nil, fmt.Errorf("scan movement: %w", err)
		}
		list = append(list, m)
	}
	return list, rows.Err()
}

func scanMovement(row pgx.Row) (*entity.Movement, error) {
	var (
		m               entity.Movement
		approverID      *string
		rejectionReason *string
		appliedSeq      *int64
		audit           []byte
	)
	err := row.Scan(
		&m.ID, &m.CompanyID, &m.ProductID, &m.Direction, &m.Quantity, &m.QuantityBefore, &m.QuantityAfter,
		&m.Status, &m.ActorID, &approverID, &m.RequestedAt, &m.DecidedAt, &m.ReasonCode, &m.Note,
		&rejectionReason, &m.ReversesMovementID, &appliedSeq, &audit,
	)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if approverID != nil {
		m.ApproverID = *approverID
	}
	if rejectionReason != nil {
		m.RejectionReason = *rejectionReason
	}
	if appliedSeq != nil {
		m.AppliedSeq = *appliedSeq
	}
	if len(audit) > 0 {
		var a entity.EditAudit
		if err := json.Unmarshal(audit, &a); err != nil {
			return nil, fmt.Errorf("decode edit_audit: %w", err)
		}
		m.EditAudit = &a
	}
	return &m, nil
}

func marshalAudit(a *entity.EditAudit) ([]byte, error) {
	if a == nil {
		return nil, nil
	}
	b, err := json.Marshal(a)
	if err != nil {
		return nil, fmt.Errorf("encode edit_audit: %w", err)
	}
	return b, nil
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func nullableSeq(seq int64) *int64 {
	if seq == 0 {
		return nil
	}
	return &seq
}
