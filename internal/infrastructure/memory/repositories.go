package memory

import (
	"context"
	"sort"
	"strconv"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var (
	_ repository.InventoryRecordRepository = (*RecordRepo)(nil)
	_ repository.MovementRepository        = (*MovementRepo)(nil)
)

// RecordRepo implementación en memoria de InventoryRecordRepository (con o sin transacción).
type RecordRepo struct {
	s *Store
	t *tx
}

func (r *RecordRepo) with(fn func(t *tx) error) error {
	if r.t != nil {
		return fn(r.t)
	}
	return r.s.autocommit(fn)
}

// Create registra el producto; la inserción deja la fila bloqueada hasta el fin de la tx.
func (r *RecordRepo) Create(ctx context.Context, record *entity.InventoryRecord) error {
	k := recordKey{record.CompanyID, record.ProductID}
	return r.with(func(t *tx) error {
		if err := t.lock(ctx, k.lockKey(), k.productID); err != nil {
			return err
		}
		if _, exists := t.record(k); exists {
			return domain.ErrDuplicate
		}
		t.records[k] = *record
		t.newRecords[k] = struct{}{}
		return nil
	})
}

// Get lee sin bloquear.
func (r *RecordRepo) Get(_ context.Context, companyID, productID string) (*entity.InventoryRecord, error) {
	var out *entity.InventoryRecord
	err := r.with(func(t *tx) error {
		if rec, ok := t.record(recordKey{companyID, productID}); ok {
			out = &rec
		}
		return nil
	})
	return out, err
}

// GetForUpdate bloquea la fila (espera acotada) y la lee.
func (r *RecordRepo) GetForUpdate(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error) {
	k := recordKey{companyID, productID}
	var out *entity.InventoryRecord
	err := r.with(func(t *tx) error {
		if err := t.lock(ctx, k.lockKey(), productID); err != nil {
			return err
		}
		if rec, ok := t.record(k); ok {
			out = &rec
		}
		return nil
	})
	return out, err
}

// UpdateQuantity escribe la nueva cantidad y avanza applied_seq.
func (r *RecordRepo) UpdateQuantity(ctx context.Context, companyID, productID string, qty decimal.Decimal, now time.Time) (int64, error) {
	k := recordKey{companyID, productID}
	var seq int64
	err := r.with(func(t *tx) error {
		if err := t.lock(ctx, k.lockKey(), productID); err != nil {
			return err
		}
		rec, ok := t.record(k)
		if !ok {
			return &domain.NotFoundError{Resource: "product", ID: productID}
		}
		rec.QuantityOnHand = qty
		rec.AppliedSeq++
		rec.UpdatedAt = now
		t.records[k] = rec
		seq = rec.AppliedSeq
		return nil
	})
	return seq, err
}

// MovementRepo implementación en memoria de MovementRepository (con o sin transacción).
type MovementRepo struct {
	s *Store
	t *tx
}

func (r *MovementRepo) with(fn func(t *tx) error) error {
	if r.t != nil {
		return fn(r.t)
	}
	return r.s.autocommit(fn)
}

// Create asigna el ID y deja el movimiento en staging.
func (r *MovementRepo) Create(ctx context.Context, m *entity.Movement) error {
	return r.with(func(t *tx) error {
		if m.ReversesMovementID != nil {
			for _, other := range t.allMovements() {
				if other.ReversesMovementID != nil && *other.ReversesMovementID == *m.ReversesMovementID {
					return &domain.InvalidStateError{MovementID: *m.ReversesMovementID, Status: string(entity.MovementStatusConfirmed), Operation: inventory.OpReverse + " nuevamente"}
				}
			}
		}
		id := t.nextMovementID()
		if err := t.lock(ctx, movementLockKey(id), m.ProductID); err != nil {
			return err
		}
		m.ID = id
		t.movements[id] = copyMovement(*m)
		return nil
	})
}

func (r *MovementRepo) get(t *tx, companyID string, id int64) *entity.Movement {
	m, ok := t.movement(id)
	if !ok || m.CompanyID != companyID {
		return nil
	}
	return &m
}

// GetByID lee sin bloquear; nil si no existe en la empresa.
func (r *MovementRepo) GetByID(_ context.Context, companyID string, id int64) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.with(func(t *tx) error {
		out = r.get(t, companyID, id)
		return nil
	})
	return out, err
}

// GetForUpdate bloquea la fila del movimiento y la lee.
func (r *MovementRepo) GetForUpdate(ctx context.Context, companyID string, id int64) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.with(func(t *tx) error {
		if err := t.lock(ctx, movementLockKey(id), ""); err != nil {
			return err
		}
		out = r.get(t, companyID, id)
		return nil
	})
	return out, err
}

// updatePending actualización condicional: solo si el movimiento sigue PENDING.
func (r *MovementRepo) updatePending(ctx context.Context, m *entity.Movement, op string) error {
	return r.with(func(t *tx) error {
		if err := t.lock(ctx, movementLockKey(m.ID), m.ProductID); err != nil {
			return err
		}
		current := r.get(t, m.CompanyID, m.ID)
		if current == nil {
			return &domain.NotFoundError{Resource: "movement", ID: strconv.FormatInt(m.ID, 10)}
		}
		if current.Status != entity.MovementStatusPending {
			return &domain.InvalidStateError{MovementID: m.ID, Status: string(current.Status), Operation: op}
		}
		t.movements[m.ID] = copyMovement(*m)
		return nil
	})
}

// UpdatePending persiste la edición de un movimiento pendiente.
func (r *MovementRepo) UpdatePending(ctx context.Context, m *entity.Movement) error {
	return r.updatePending(ctx, m, inventory.OpEdit)
}

// MarkConfirmed PENDING -> CONFIRMED.
func (r *MovementRepo) MarkConfirmed(ctx context.Context, m *entity.Movement) error {
	return r.updatePending(ctx, m, inventory.OpConfirm)
}

// MarkRejected PENDING -> REJECTED.
func (r *MovementRepo) MarkRejected(ctx context.Context, m *entity.Movement) error {
	return r.updatePending(ctx, m, inventory.OpReject)
}

// FindReversalOf movimiento que revierte a id, o nil.
func (r *MovementRepo) FindReversalOf(_ context.Context, companyID string, id int64) (*entity.Movement, error) {
	var out *entity.Movement
	err := r.with(func(t *tx) error {
		for _, m := range t.allMovements() {
			if m.CompanyID == companyID && m.ReversesMovementID != nil && *m.ReversesMovementID == id {
				m := m
				out = &m
				return nil
			}
		}
		return nil
	})
	return out, err
}

func (r *MovementRepo) filter(keep func(m *entity.Movement) bool) ([]*entity.Movement, error) {
	var list []*entity.Movement
	err := r.with(func(t *tx) error {
		for _, m := range t.allMovements() {
			m := m
			if keep(&m) {
				list = append(list, &m)
			}
		}
		return nil
	})
	return list, err
}

func page(list []*entity.Movement, limit, offset int) []*entity.Movement {
	if offset >= len(list) {
		return nil
	}
	list = list[offset:]
	if limit > 0 && limit < len(list) {
		list = list[:limit]
	}
	return list
}

// ListByProduct historial más reciente primero.
func (r *MovementRepo) ListByProduct(_ context.Context, f repository.MovementFilter) ([]*entity.Movement, error) {
	list, err := r.filter(func(m *entity.Movement) bool {
		if m.CompanyID != f.CompanyID || m.ProductID != f.ProductID {
			return false
		}
		if f.Since != nil && m.RequestedAt.Before(*f.Since) {
			return false
		}
		return f.Status == nil || m.Status == *f.Status
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].RequestedAt.Equal(list[j].RequestedAt) {
			return list[i].RequestedAt.After(list[j].RequestedAt)
		}
		return list[i].ID > list[j].ID
	})
	return page(list, f.Limit, f.Offset), nil
}

// ListConfirmed movimientos CONFIRMED en orden de aplicación.
func (r *MovementRepo) ListConfirmed(_ context.Context, companyID, productID string) ([]*entity.Movement, error) {
	list, err := r.filter(func(m *entity.Movement) bool {
		return m.CompanyID == companyID && m.ProductID == productID && m.Status == entity.MovementStatusConfirmed
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool { return list[i].AppliedSeq < list[j].AppliedSeq })
	return list, nil
}

// ListPending cola de aprobación, más antiguo primero.
func (r *MovementRepo) ListPending(_ context.Context, companyID, actorID string, limit, offset int) ([]*entity.Movement, error) {
	list, err := r.filter(func(m *entity.Movement) bool {
		return m.CompanyID == companyID && m.Status == entity.MovementStatusPending &&
			(actorID == "" || m.ActorID == actorID)
	})
	if err != nil {
		return nil, err
	}
	sort.Slice(list, func(i, j int) bool {
		if !list[i].RequestedAt.Equal(list[j].RequestedAt) {
			return list[i].RequestedAt.Before(list[j].RequestedAt)
		}
		return list[i].ID < list[j].ID
	})
	return page(list, limit, offset), nil
}
