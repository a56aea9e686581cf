package memory

import (
	"context"
	"strconv"
	"sync"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	ledger "github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
)

var _ inventory.TxRunner = (*Store)(nil)

type recordKey struct {
	companyID string
	productID string
}

func (k recordKey) lockKey() string { return "record:" + k.companyID + "/" + k.productID }

func movementLockKey(id int64) string { return "movement:" + strconv.FormatInt(id, 10) }

// Store almacén transaccional en memoria con bloqueos exclusivos por fila y espera acotada.
// Las escrituras de una transacción quedan en staging y se publican todas juntas al Commit,
// así nunca se observa un estado parcial. Pensado para tests y para LEDGER_STORE=memory.
type Store struct {
	mu          sync.Mutex
	records     map[recordKey]entity.InventoryRecord
	movements   map[int64]entity.Movement
	nextID      int64
	locks       *lockTable
	lockTimeout time.Duration
}

// NewStore construye el almacén. lockTimeout acota la espera por un bloqueo de fila.
func NewStore(lockTimeout time.Duration) *Store {
	if lockTimeout <= 0 {
		lockTimeout = 5 * time.Second
	}
	return &Store{
		records:     make(map[recordKey]entity.InventoryRecord),
		movements:   make(map[int64]entity.Movement),
		locks:       newLockTable(),
		lockTimeout: lockTimeout,
	}
}

// Run ejecuta fn en una transacción: Commit si fn no falla, descarte total si falla.
func (s *Store) Run(ctx context.Context, fn func(
	records repository.InventoryRecordRepository,
	movements repository.MovementRepository,
) error) error {
	t := s.begin()
	defer t.releaseLocks()
	if err := fn(&RecordRepo{s: s, t: t}, &MovementRepo{s: s, t: t}); err != nil {
		return err
	}
	return t.commit()
}

// Records repositorio fuera de transacción (cada llamada es su propia transacción).
func (s *Store) Records() *RecordRepo { return &RecordRepo{s: s} }

// Movements repositorio fuera de transacción (cada llamada es su propia transacción).
func (s *Store) Movements() *MovementRepo { return &MovementRepo{s: s} }

func (s *Store) begin() *tx {
	return &tx{
		s:          s,
		held:       make(map[string]struct{}),
		records:    make(map[recordKey]entity.InventoryRecord),
		newRecords: make(map[recordKey]struct{}),
		movements:  make(map[int64]entity.Movement),
	}
}

// autocommit ejecuta fn en una transacción de una sola operación.
func (s *Store) autocommit(fn func(t *tx) error) error {
	t := s.begin()
	defer t.releaseLocks()
	if err := fn(t); err != nil {
		return err
	}
	return t.commit()
}

type tx struct {
	s          *Store
	held       map[string]struct{}
	records    map[recordKey]entity.InventoryRecord
	newRecords map[recordKey]struct{}
	movements  map[int64]entity.Movement
}

func (t *tx) lock(ctx context.Context, key, productID string) error {
	if _, ok := t.held[key]; ok {
		return nil
	}
	if err := t.s.locks.acquire(ctx, key, t.s.lockTimeout); err != nil {
		return &domain.LockTimeoutError{ProductID: productID, Err: err}
	}
	t.held[key] = struct{}{}
	return nil
}

func (t *tx) releaseLocks() {
	for key := range t.held {
		t.s.locks.release(key)
	}
	t.held = nil
}

func (t *tx) record(k recordKey) (entity.InventoryRecord, bool) {
	if r, ok := t.records[k]; ok {
		return r, true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	r, ok := t.s.records[k]
	return r, ok
}

func (t *tx) movement(id int64) (entity.Movement, bool) {
	if m, ok := t.movements[id]; ok {
		return copyMovement(m), true
	}
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	m, ok := t.s.movements[id]
	return copyMovement(m), ok
}

// allMovements confirmadas + staging de esta transacción.
func (t *tx) allMovements() []entity.Movement {
	t.s.mu.Lock()
	out := make([]entity.Movement, 0, len(t.s.movements)+len(t.movements))
	for id, m := range t.s.movements {
		if _, staged := t.movements[id]; staged {
			continue
		}
		out = append(out, copyMovement(m))
	}
	t.s.mu.Unlock()
	for _, m := range t.movements {
		out = append(out, copyMovement(m))
	}
	return out
}

func (t *tx) nextMovementID() int64 {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	t.s.nextID++
	return t.s.nextID
}

// commit publica el staging de forma atómica y revalida las restricciones de unicidad.
func (t *tx) commit() error {
	t.s.mu.Lock()
	defer t.s.mu.Unlock()
	for k := range t.newRecords {
		if _, exists := t.s.records[k]; exists {
			return domain.ErrDuplicate
		}
	}
	for id, m := range t.movements {
		if _, existing := t.s.movements[id]; existing || m.ReversesMovementID == nil {
			continue
		}
		for _, other := range t.s.movements {
			if other.ReversesMovementID != nil && *other.ReversesMovementID == *m.ReversesMovementID {
				return &domain.InvalidStateError{MovementID: *m.ReversesMovementID, Status: string(entity.MovementStatusConfirmed), Operation: ledger.OpReverse + " nuevamente"}
			}
		}
	}
	for k, r := range t.records {
		t.s.records[k] = r
	}
	for id, m := range t.movements {
		t.s.movements[id] = copyMovement(m)
	}
	return nil
}

func copyMovement(m entity.Movement) entity.Movement {
	if m.DecidedAt != nil {
		d := *m.DecidedAt
		m.DecidedAt = &d
	}
	if m.ReversesMovementID != nil {
		r := *m.ReversesMovementID
		m.ReversesMovementID = &r
	}
	if m.EditAudit != nil {
		a := *m.EditAudit
		m.EditAudit = &a
	}
	return m
}
