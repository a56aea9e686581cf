package inventory_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/memory"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ──────────────────────────────────────────────────────────────────────────────
// Helpers de test
// ──────────────────────────────────────────────────────────────────────────────

const (
	testCompanyID  = "00000000-0000-0000-0000-0000000000c1"
	otherCompanyID = "00000000-0000-0000-0000-0000000000c2"
	testActorID    = "00000000-0000-0000-0000-0000000000a1"
	testApproverID = "00000000-0000-0000-0000-0000000000a2"
)

func dec(v int64) decimal.Decimal { return decimal.NewFromInt(v) }

// tickClock avanza 1ms por llamada; los listados por requested_at quedan deterministas.
func tickClock() func() time.Time {
	var mu sync.Mutex
	t := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	return func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		t = t.Add(time.Millisecond)
		return t
	}
}

func newEngine(t *testing.T, lockTimeout time.Duration) (*inventory.LedgerEngine, *memory.Store) {
	t.Helper()
	store := memory.NewStore(lockTimeout)
	engine := inventory.NewLedgerEngine(store, store.Records(), store.Movements(), inventory.WithClock(tickClock()))
	return engine, store
}

func registerProduct(t *testing.T, engine *inventory.LedgerEngine, productID string, qty int64) {
	t.Helper()
	_, err := engine.RegisterProduct(context.Background(), inventory.RegisterProductInput{
		CompanyID:       testCompanyID,
		ProductID:       productID,
		ActorID:         testActorID,
		InitialQuantity: dec(qty),
	})
	require.NoError(t, err)
}

func movement(productID string, dir entity.Direction, qty int64, immediate bool) inventory.MovementInput {
	reason := entity.ReasonSale
	if dir == entity.DirectionIN {
		reason = entity.ReasonPurchase
	}
	return inventory.MovementInput{
		CompanyID:  testCompanyID,
		ProductID:  productID,
		ActorID:    testActorID,
		Direction:  dir,
		Quantity:   dec(qty),
		ReasonCode: reason,
		Immediate:  immediate,
	}
}

func quantityOf(t *testing.T, engine *inventory.LedgerEngine, productID string) decimal.Decimal {
	t.Helper()
	rec, err := engine.GetRecord(context.Background(), testCompanyID, productID)
	require.NoError(t, err)
	return rec.QuantityOnHand
}

func assertConsistent(t *testing.T, engine *inventory.LedgerEngine, productID string) {
	t.Helper()
	report, err := engine.VerifyHistory(context.Background(), testCompanyID, productID)
	require.NoError(t, err)
	assert.True(t, report.Consistent, "historial inconsistente: %+v", report.Breaks)
}

// ──────────────────────────────────────────────────────────────────────────────
// Escenario completo
// ──────────────────────────────────────────────────────────────────────────────

func TestLedger_EscenarioAprobacion(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	a, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 3, true))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConfirmed, a.Status)
	assert.True(t, a.QuantityBefore.Equal(dec(5)))
	assert.True(t, a.QuantityAfter.Equal(dec(2)))
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(2)))

	_, err = engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 3, true))
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr), "se esperaba InsufficientStockError, llegó %v", err)
	assert.True(t, stockErr.Available.Equal(dec(2)))
	assert.True(t, stockErr.Requested.Equal(dec(3)))
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(2)))

	b, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 3, false))
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPending, b.Status)
	assert.True(t, b.QuantityBefore.Equal(dec(2)), "before informativo = cantidad actual")
	assert.True(t, b.QuantityAfter.Equal(dec(2)), "after informativo = cantidad actual")
	assert.Nil(t, b.DecidedAt)
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(2)))

	_, err = engine.Confirm(ctx, testCompanyID, b.ID, testApproverID)
	require.True(t, errors.As(err, &stockErr))
	assert.True(t, stockErr.Available.Equal(dec(2)))
	pending, err := engine.GetMovement(ctx, testCompanyID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPending, pending.Status, "B sigue pendiente")

	two := dec(2)
	edited, err := engine.EditPending(ctx, testCompanyID, b.ID, entity.MovementEdit{Quantity: &two})
	require.NoError(t, err)
	require.NotNil(t, edited.EditAudit)
	assert.True(t, edited.EditAudit.Before.Quantity.Equal(dec(3)))
	assert.True(t, edited.EditAudit.After.Quantity.Equal(dec(2)))

	rec, err := engine.Confirm(ctx, testCompanyID, b.ID, testApproverID)
	require.NoError(t, err)
	assert.True(t, rec.QuantityOnHand.IsZero())

	confirmedB, err := engine.GetMovement(ctx, testCompanyID, b.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConfirmed, confirmedB.Status)
	assert.Equal(t, testApproverID, confirmedB.ApproverID)
	assert.NotNil(t, confirmedB.DecidedAt)
	assert.True(t, confirmedB.QuantityBefore.Equal(dec(2)))
	assert.True(t, confirmedB.QuantityAfter.IsZero())

	assertConsistent(t, engine, "P")
}

// ──────────────────────────────────────────────────────────────────────────────
// Validaciones y tenant
// ──────────────────────────────────────────────────────────────────────────────

func TestApplyMovement_Validaciones(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	in := movement("P", entity.DirectionOUT, 0, true)
	_, err := engine.ApplyMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = movement("P", entity.DirectionOUT, -2, true)
	_, err = engine.ApplyMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	in = movement("P", entity.DirectionIN, 1, true)
	in.ReasonCode = entity.ReasonReversal
	_, err = engine.ApplyMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrInvalidInput, "REVERSAL solo por Reverse")

	in = movement("NOPE", entity.DirectionIN, 1, true)
	_, err = engine.ApplyMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound)

	in = movement("P", entity.DirectionIN, 1, true)
	in.CompanyID = otherCompanyID
	_, err = engine.ApplyMovement(ctx, in)
	assert.ErrorIs(t, err, domain.ErrNotFound, "el producto no existe en otra empresa")

	list, err := store.Movements().ListByProduct(ctx, repository.MovementFilter{CompanyID: testCompanyID, ProductID: "P"})
	require.NoError(t, err)
	assert.Len(t, list, 1, "solo el saldo inicial: los fallos no escriben")
}

func TestConfirm_OtraEmpresaNoEncuentra(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	m, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)

	_, err = engine.Confirm(ctx, otherCompanyID, m.ID, testApproverID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	_, err = engine.Confirm(ctx, testCompanyID, 9999, testApproverID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Máquina de estados
// ──────────────────────────────────────────────────────────────────────────────

func TestStateMachine_TerminalesNoCambian(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 10)

	confirmed, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	_, err = engine.Confirm(ctx, testCompanyID, confirmed.ID, testApproverID)
	require.NoError(t, err)

	_, err = engine.Confirm(ctx, testCompanyID, confirmed.ID, testApproverID)
	assert.ErrorIs(t, err, domain.ErrInvalidState)
	_, err = engine.Reject(ctx, testCompanyID, confirmed.ID, testApproverID, "tarde")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	rejected, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	r, err := engine.Reject(ctx, testCompanyID, rejected.ID, testApproverID, "duplicado")
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusRejected, r.Status)
	assert.Equal(t, "duplicado", r.RejectionReason)

	_, err = engine.Confirm(ctx, testCompanyID, rejected.ID, testApproverID)
	var stateErr *domain.InvalidStateError
	require.True(t, errors.As(err, &stateErr))
	assert.Equal(t, string(entity.MovementStatusRejected), stateErr.Status)

	one := dec(1)
	_, err = engine.EditPending(ctx, testCompanyID, rejected.ID, entity.MovementEdit{Quantity: &one})
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	assert.True(t, quantityOf(t, engine, "P").Equal(dec(9)), "el rechazo no toca el inventario")
	assertConsistent(t, engine, "P")
}

func TestReject_RequiereMotivo(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 1)
	m, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)

	_, err = engine.Reject(ctx, testCompanyID, m.ID, testApproverID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidInput)
}

func TestStateMachine_CarreraConfirmarRechazar(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, 2*time.Second)
	registerProduct(t, engine, "P", 10)
	m, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 4, false))
	require.NoError(t, err)

	var wg sync.WaitGroup
	results := make([]error, 8)
	for i := range results {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if i%2 == 0 {
				_, results[i] = engine.Confirm(ctx, testCompanyID, m.ID, testApproverID)
			} else {
				_, results[i] = engine.Reject(ctx, testCompanyID, m.ID, testApproverID, "carrera")
			}
		}(i)
	}
	wg.Wait()

	winners := 0
	for _, err := range results {
		if err == nil {
			winners++
			continue
		}
		assert.ErrorIs(t, err, domain.ErrInvalidState)
	}
	assert.Equal(t, 1, winners, "solo un aprobador gana")

	final, err := engine.GetMovement(ctx, testCompanyID, m.ID)
	require.NoError(t, err)
	if final.Status == entity.MovementStatusConfirmed {
		assert.True(t, quantityOf(t, engine, "P").Equal(dec(6)))
	} else {
		assert.Equal(t, entity.MovementStatusRejected, final.Status)
		assert.True(t, quantityOf(t, engine, "P").Equal(dec(10)))
	}
	assertConsistent(t, engine, "P")
}

// ──────────────────────────────────────────────────────────────────────────────
// Edición
// ──────────────────────────────────────────────────────────────────────────────

func TestEditAndConfirm_AtomicoAnteFallo(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)
	m, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 2, false))
	require.NoError(t, err)

	tooMuch := dec(6)
	_, err = engine.EditAndConfirm(ctx, testCompanyID, m.ID, testApproverID, entity.MovementEdit{Quantity: &tooMuch})
	assert.ErrorIs(t, err, domain.ErrInsufficientStock)

	after, err := engine.GetMovement(ctx, testCompanyID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPending, after.Status)
	assert.True(t, after.Quantity.Equal(dec(2)), "la edición no se persiste")
	assert.Nil(t, after.EditAudit)
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(5)))

	four := dec(4)
	rec, err := engine.EditAndConfirm(ctx, testCompanyID, m.ID, testApproverID, entity.MovementEdit{Quantity: &four})
	require.NoError(t, err)
	assert.True(t, rec.QuantityOnHand.Equal(dec(1)))

	done, err := engine.GetMovement(ctx, testCompanyID, m.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConfirmed, done.Status)
	require.NotNil(t, done.EditAudit)
	assert.True(t, done.EditAudit.After.Quantity.Equal(dec(4)))
	assertConsistent(t, engine, "P")
}

func TestEditPending_CambiaDeProducto(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P1", 5)
	registerProduct(t, engine, "P2", 8)

	m, err := engine.ApplyMovement(ctx, movement("P1", entity.DirectionOUT, 3, false))
	require.NoError(t, err)

	p2 := "P2"
	edited, err := engine.EditPending(ctx, testCompanyID, m.ID, entity.MovementEdit{ProductID: &p2})
	require.NoError(t, err)
	assert.Equal(t, "P2", edited.ProductID)
	assert.True(t, edited.QuantityBefore.Equal(dec(8)), "valores informativos del nuevo producto")
	assert.Equal(t, "P1", edited.EditAudit.Before.ProductID)

	_, err = engine.Confirm(ctx, testCompanyID, m.ID, testApproverID)
	require.NoError(t, err)
	assert.True(t, quantityOf(t, engine, "P1").Equal(dec(5)), "P1 no se toca")
	assert.True(t, quantityOf(t, engine, "P2").Equal(dec(5)))

	missing := "NO-EXISTE"
	other, err := engine.ApplyMovement(ctx, movement("P1", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	_, err = engine.EditPending(ctx, testCompanyID, other.ID, entity.MovementEdit{ProductID: &missing})
	assert.ErrorIs(t, err, domain.ErrNotFound)

	assertConsistent(t, engine, "P1")
	assertConsistent(t, engine, "P2")
}

// ──────────────────────────────────────────────────────────────────────────────
// Reversión
// ──────────────────────────────────────────────────────────────────────────────

func TestReverse_EfectoNetoCero(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 4)

	x, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionIN, 10, true))
	require.NoError(t, err)

	rev, err := engine.Reverse(ctx, testCompanyID, x.ID, testActorID, "error de digitación")
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionOUT, rev.Direction)
	assert.True(t, rev.Quantity.Equal(dec(10)))
	require.NotNil(t, rev.ReversesMovementID)
	assert.Equal(t, x.ID, *rev.ReversesMovementID)
	assert.Equal(t, entity.ReasonReversal, rev.ReasonCode)
	assert.Equal(t, entity.MovementStatusConfirmed, rev.Status)
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(4)))

	original, err := engine.GetMovement(ctx, testCompanyID, x.ID)
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConfirmed, original.Status, "el original no cambia")

	_, err = engine.Reverse(ctx, testCompanyID, x.ID, testActorID, "otra vez")
	assert.ErrorIs(t, err, domain.ErrInvalidState, "un movimiento se revierte una sola vez")
	assertConsistent(t, engine, "P")
}

func TestReverse_EntradaConsumida(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 0)

	x, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionIN, 10, true))
	require.NoError(t, err)
	_, err = engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 7, true))
	require.NoError(t, err)

	_, err = engine.Reverse(ctx, testCompanyID, x.ID, testActorID, "")
	var stockErr *domain.InsufficientStockError
	require.True(t, errors.As(err, &stockErr))
	assert.True(t, stockErr.Available.Equal(dec(3)))
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(3)))

	again, err := engine.Reverse(ctx, testCompanyID, x.ID, testActorID, "")
	assert.Nil(t, again)
	assert.ErrorIs(t, err, domain.ErrInsufficientStock, "el fallo anterior no dejó reversión registrada")
}

func TestReverse_SoloConfirmados(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	pending, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	_, err = engine.Reverse(ctx, testCompanyID, pending.ID, testActorID, "")
	assert.ErrorIs(t, err, domain.ErrInvalidState)

	_, err = engine.Reverse(ctx, testCompanyID, 12345, testActorID, "")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

// ──────────────────────────────────────────────────────────────────────────────
// Concurrencia y bloqueos
// ──────────────────────────────────────────────────────────────────────────────

func TestConcurrencia_SinActualizacionesPerdidas(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, 5*time.Second)
	registerProduct(t, engine, "P", 100)

	const n = 40
	var wg sync.WaitGroup
	errs := make([]error, n)
	expected := dec(100)
	for i := 0; i < n; i++ {
		dir, qty := entity.DirectionIN, int64(3)
		if i%2 == 0 {
			dir, qty = entity.DirectionOUT, 2
		}
		expected = expected.Add(dir.Signed(dec(qty)))
		wg.Add(1)
		go func(i int, dir entity.Direction, qty int64) {
			defer wg.Done()
			_, errs[i] = engine.ApplyMovement(ctx, movement("P", dir, qty, true))
		}(i, dir, qty)
	}
	wg.Wait()

	for _, err := range errs {
		require.NoError(t, err)
	}
	assert.True(t, quantityOf(t, engine, "P").Equal(expected))

	list, err := store.Movements().ListByProduct(ctx, repository.MovementFilter{CompanyID: testCompanyID, ProductID: "P", Limit: 1000})
	require.NoError(t, err)
	assert.Len(t, list, n+1, "n movimientos + saldo inicial")
	assertConsistent(t, engine, "P")
}

func TestConcurrencia_UltimaUnidad(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, 5*time.Second)
	registerProduct(t, engine, "P", 10)

	const n = 25
	var wg sync.WaitGroup
	var mu sync.Mutex
	ok, insufficient := 0, 0
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := engine.FulfilOrder(ctx, testCompanyID, testActorID, "P", dec(1), "SO-1")
			mu.Lock()
			defer mu.Unlock()
			switch {
			case err == nil:
				ok++
			case errors.Is(err, domain.ErrInsufficientStock):
				insufficient++
			default:
				t.Errorf("error inesperado: %v", err)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, 10, ok)
	assert.Equal(t, n-10, insufficient)
	assert.True(t, quantityOf(t, engine, "P").IsZero())
	assertConsistent(t, engine, "P")
}

func TestLockTimeout_SinEscrituraParcial(t *testing.T) {
	ctx := context.Background()
	engine, store := newEngine(t, 50*time.Millisecond)
	registerProduct(t, engine, "P", 5)

	locked := make(chan struct{})
	releaseLock := make(chan struct{})
	done := make(chan error, 1)
	go func() {
		done <- store.Run(ctx, func(records repository.InventoryRecordRepository, _ repository.MovementRepository) error {
			if _, err := records.GetForUpdate(ctx, testCompanyID, "P"); err != nil {
				return err
			}
			close(locked)
			<-releaseLock
			return nil
		})
	}()
	<-locked

	_, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, true))
	assert.ErrorIs(t, err, domain.ErrLockTimeout)
	var lockErr *domain.LockTimeoutError
	require.True(t, errors.As(err, &lockErr))
	assert.Equal(t, "P", lockErr.ProductID)

	close(releaseLock)
	require.NoError(t, <-done)

	list, err := store.Movements().ListByProduct(ctx, repository.MovementFilter{CompanyID: testCompanyID, ProductID: "P"})
	require.NoError(t, err)
	assert.Len(t, list, 1, "el movimiento con timeout no se insertó")
	assert.True(t, quantityOf(t, engine, "P").Equal(dec(5)))

	_, err = engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, true))
	assert.NoError(t, err, "liberado el bloqueo, el reintento del caller funciona")
}

// ──────────────────────────────────────────────────────────────────────────────
// Registro, consultas y colaboradores
// ──────────────────────────────────────────────────────────────────────────────

func TestRegisterProduct(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)

	rec, err := engine.RegisterProduct(ctx, inventory.RegisterProductInput{CompanyID: testCompanyID, ActorID: testActorID, InitialQuantity: dec(7)})
	require.NoError(t, err)
	assert.NotEmpty(t, rec.ProductID, "se genera un UUID")
	assert.True(t, rec.QuantityOnHand.Equal(dec(7)))

	history, err := engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: rec.ProductID})
	require.NoError(t, err)
	require.Len(t, history, 1)
	assert.Equal(t, entity.ReasonInitialStock, history[0].ReasonCode)

	_, err = engine.RegisterProduct(ctx, inventory.RegisterProductInput{CompanyID: testCompanyID, ProductID: rec.ProductID, ActorID: testActorID})
	assert.ErrorIs(t, err, domain.ErrDuplicate)

	_, err = engine.RegisterProduct(ctx, inventory.RegisterProductInput{CompanyID: testCompanyID, ActorID: testActorID, InitialQuantity: dec(-1)})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	empty, err := engine.RegisterProduct(ctx, inventory.RegisterProductInput{CompanyID: testCompanyID, ProductID: "ZERO", ActorID: testActorID})
	require.NoError(t, err)
	assert.True(t, empty.QuantityOnHand.IsZero())
}

func TestGetMovements_Filtros(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	_, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, true))
	require.NoError(t, err)
	pending, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)

	all, err := engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: "P"})
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, pending.ID, all[0].ID, "más reciente primero")

	status := entity.MovementStatusPending
	onlyPending, err := engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: "P", Status: &status})
	require.NoError(t, err)
	require.Len(t, onlyPending, 1)

	since := pending.RequestedAt
	recent, err := engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: "P", Since: &since})
	require.NoError(t, err)
	assert.Len(t, recent, 1)

	paged, err := engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: "P", Limit: 1, Offset: 1})
	require.NoError(t, err)
	assert.Len(t, paged, 1)

	bad := entity.MovementStatus("LOST")
	_, err = engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: testCompanyID, ProductID: "P", Status: &bad})
	assert.ErrorIs(t, err, domain.ErrInvalidInput)

	_, err = engine.GetMovements(ctx, inventory.MovementQuery{CompanyID: otherCompanyID, ProductID: "P"})
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestGetPending_PorSolicitante(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 5)

	_, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	other := movement("P", entity.DirectionIN, 2, false)
	other.ActorID = "someone-else"
	_, err = engine.ApplyMovement(ctx, other)
	require.NoError(t, err)

	all, err := engine.GetPending(ctx, testCompanyID, "", 0, 0)
	require.NoError(t, err)
	assert.Len(t, all, 2)
	assert.True(t, all[0].RequestedAt.Before(all[1].RequestedAt), "cola de aprobación: más antiguo primero")

	mine, err := engine.GetPending(ctx, testCompanyID, testActorID, 0, 0)
	require.NoError(t, err)
	require.Len(t, mine, 1)
	assert.Equal(t, testActorID, mine[0].ActorID)

	none, err := engine.GetPending(ctx, otherCompanyID, "", 0, 0)
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestColaboradores(t *testing.T) {
	ctx := context.Background()
	engine, _ := newEngine(t, time.Second)
	registerProduct(t, engine, "P", 0)

	po, err := engine.ReceivePurchaseOrder(ctx, testCompanyID, testActorID, "P", dec(12), "PO-77")
	require.NoError(t, err)
	assert.Equal(t, entity.ReasonPurchase, po.ReasonCode)
	assert.Equal(t, "orden de compra PO-77", po.Note)

	sale, err := engine.FulfilOrder(ctx, testCompanyID, testActorID, "P", dec(2), "SO-9")
	require.NoError(t, err)
	assert.Equal(t, entity.DirectionOUT, sale.Direction)

	line, err := engine.ApplyInvoiceLine(ctx, inventory.InvoiceLine{
		CompanyID: testCompanyID, ActorID: testActorID, ProductID: "P",
		Direction: entity.DirectionIN, Quantity: dec(5), InvoiceNumber: "FE-1", LowConfidence: true,
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusPending, line.Status, "baja confianza queda para revisión")
	assert.Equal(t, entity.ReasonInvoiceImport, line.ReasonCode)

	sure, err := engine.ApplyInvoiceLine(ctx, inventory.InvoiceLine{
		CompanyID: testCompanyID, ActorID: testActorID, ProductID: "P",
		Direction: entity.DirectionOUT, Quantity: dec(1), InvoiceNumber: "FE-2",
	})
	require.NoError(t, err)
	assert.Equal(t, entity.MovementStatusConfirmed, sure.Status)

	assert.True(t, quantityOf(t, engine, "P").Equal(dec(9)))
	assertConsistent(t, engine, "P")
}

func TestErrorKind(t *testing.T) {
	assert.Equal(t, inventory.KindInsufficientStock, inventory.ErrorKind(&domain.InsufficientStockError{}))
	assert.Equal(t, inventory.KindInvalidState, inventory.ErrorKind(&domain.InvalidStateError{}))
	assert.Equal(t, inventory.KindLockTimeout, inventory.ErrorKind(&domain.LockTimeoutError{}))
	assert.Equal(t, inventory.KindNotFound, inventory.ErrorKind(&domain.NotFoundError{}))
	assert.Equal(t, inventory.KindValidation, inventory.ErrorKind(&domain.ValidationError{}))
	assert.Equal(t, inventory.KindDuplicate, inventory.ErrorKind(domain.ErrDuplicate))
	assert.Equal(t, inventory.KindInternal, inventory.ErrorKind(errors.New("boom")))
	assert.Equal(t, "", inventory.ErrorKind(nil))
}

func TestImportOpeningBalances(t *testing.T) {
	engine, _ := newEngine(t, time.Second)
	ctx := context.Background()
	registerProduct(t, engine, "YA", 1)

	report, err := engine.ImportOpeningBalances(ctx, testCompanyID, testActorID, []inventory.OpeningBalance{
		{Line: 2, ProductID: "A", Quantity: dec(10)},
		{Line: 3, ProductID: "YA", Quantity: dec(99)},
		{Line: 4, ProductID: "B", Quantity: dec(-1)},
		{Line: 5, ProductID: "C", Quantity: decimal.Zero},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, report.Registered)
	assert.Equal(t, 1, report.Skipped)
	require.Len(t, report.Failed, 1)
	assert.Equal(t, 4, report.Failed[0].Line)

	assert.True(t, quantityOf(t, engine, "A").Equal(dec(10)))
	assert.True(t, quantityOf(t, engine, "YA").Equal(dec(1)), "un producto existente no se toca")
	assert.True(t, quantityOf(t, engine, "C").IsZero())
	assertConsistent(t, engine, "A")

	cancelled, cancel := context.WithCancel(ctx)
	cancel()
	_, err = engine.ImportOpeningBalances(cancelled, testCompanyID, testActorID, []inventory.OpeningBalance{{ProductID: "D", Quantity: dec(1)}})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestVerifyHistory_OrdenIndependienteDelReloj(t *testing.T) {
	base := time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC)
	clocks := map[string]func() time.Time{
		"reloj fijo": func() time.Time { return base },
		"reloj que retrocede": func() func() time.Time {
			var mu sync.Mutex
			now := base
			return func() time.Time {
				mu.Lock()
				defer mu.Unlock()
				now = now.Add(-time.Second)
				return now
			}
		}(),
	}
	for name, clock := range clocks {
		t.Run(name, func(t *testing.T) {
			store := memory.NewStore(time.Second)
			engine := inventory.NewLedgerEngine(store, store.Records(), store.Movements(), inventory.WithClock(clock))
			ctx := context.Background()
			registerProduct(t, engine, "P", 0)

			pending, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionIN, 5, false))
			require.NoError(t, err)
			immediate, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionIN, 3, true))
			require.NoError(t, err)
			require.Less(t, pending.ID, immediate.ID)
			assert.Equal(t, int64(1), immediate.AppliedSeq)

			rec, err := engine.Confirm(ctx, testCompanyID, pending.ID, testApproverID)
			require.NoError(t, err)
			assert.True(t, rec.QuantityOnHand.Equal(dec(8)))
			assert.Equal(t, int64(2), rec.AppliedSeq)

			confirmed, err := engine.GetMovement(ctx, testCompanyID, pending.ID)
			require.NoError(t, err)
			assert.Equal(t, int64(2), confirmed.AppliedSeq)
			assert.True(t, confirmed.QuantityBefore.Equal(dec(3)))

			report, err := engine.VerifyHistory(ctx, testCompanyID, "P")
			require.NoError(t, err)
			assert.True(t, report.Consistent, "%+v", report.Breaks)
			assert.Equal(t, 2, report.Replayed)
			assert.True(t, report.ReplayedQty.Equal(dec(8)))
		})
	}
}

func TestAppliedSeq_SoloMovimientosAplicados(t *testing.T) {
	engine, _ := newEngine(t, time.Second)
	ctx := context.Background()
	registerProduct(t, engine, "P", 10)

	rejected, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 1, false))
	require.NoError(t, err)
	assert.Zero(t, rejected.AppliedSeq)
	rejected, err = engine.Reject(ctx, testCompanyID, rejected.ID, testApproverID, "duplicado")
	require.NoError(t, err)
	assert.Zero(t, rejected.AppliedSeq)

	sale, err := engine.ApplyMovement(ctx, movement("P", entity.DirectionOUT, 4, true))
	require.NoError(t, err)
	assert.Equal(t, int64(2), sale.AppliedSeq, "el saldo inicial ocupa la posición 1")

	rev, err := engine.Reverse(ctx, testCompanyID, sale.ID, testActorID, "")
	require.NoError(t, err)
	assert.Equal(t, int64(3), rev.AppliedSeq)
	assertConsistent(t, engine, "P")
}
