package inventory

import (
	"context"
	"time"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
)

// Nombres de operación para logs y métricas.
const (
	OpApply       = "apply"
	OpConfirm     = "confirm"
	OpReject      = "reject"
	OpEdit        = "edit"
	OpEditConfirm = "edit_confirm"
	OpReverse     = "reverse"
	OpRegister    = "register"
)

// LedgerEngine es el único punto que modifica la cantidad disponible de un producto.
// Cada operación corre en una transacción: bloquea la fila del inventario (SELECT FOR UPDATE),
// valida que no quede negativa, escribe cantidad y movimiento, y hace Commit o Rollback.
// No reintenta: la política de reintentos es del caller.
type LedgerEngine struct {
	txRunner  TxRunner
	records   repository.InventoryRecordRepository
	movements repository.MovementRepository
	log       zerolog.Logger
	metrics   Metrics
	now       func() time.Time
}

// Option configura el motor.
type Option func(*LedgerEngine)

// WithLogger inyecta el logger estructurado.
func WithLogger(l zerolog.Logger) Option {
	return func(e *LedgerEngine) { e.log = l.With().Str("component", "ledger").Logger() }
}

// WithMetrics inyecta la implementación de métricas.
func WithMetrics(m Metrics) Option {
	return func(e *LedgerEngine) {
		if m != nil {
			e.metrics = m
		}
	}
}

// WithClock reemplaza el reloj (tests).
func WithClock(now func() time.Time) Option {
	return func(e *LedgerEngine) { e.now = now }
}

// NewLedgerEngine construye el motor. records y movements se usan para lecturas fuera de transacción.
func NewLedgerEngine(
	txRunner TxRunner,
	records repository.InventoryRecordRepository,
	movements repository.MovementRepository,
	opts ...Option,
) *LedgerEngine {
	e := &LedgerEngine{
		txRunner:  txRunner,
		records:   records,
		movements: movements,
		log:       zerolog.Nop(),
		metrics:   noopMetrics{},
		now:       func() time.Time { return time.Now().UTC().Truncate(time.Microsecond) },
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// MovementInput entrada de ApplyMovement.
// Immediate=true aplica y confirma en el acto; false deja el movimiento PENDING sin tocar la cantidad.
type MovementInput struct {
	CompanyID  string
	ProductID  string
	ActorID    string
	Direction  entity.Direction
	Quantity   decimal.Decimal
	ReasonCode entity.ReasonCode
	Note       string
	Immediate  bool

	reverses *int64
}

func (in MovementInput) validate() error {
	if in.CompanyID == "" {
		return &domain.ValidationError{Field: "company_id", Reason: "requerido"}
	}
	if in.ProductID == "" {
		return &domain.ValidationError{Field: "product_id", Reason: "requerido"}
	}
	if in.ActorID == "" {
		return &domain.ValidationError{Field: "actor_id", Reason: "requerido"}
	}
	if !in.Direction.IsValid() {
		return &domain.ValidationError{Field: "direction", Reason: "debe ser IN u OUT"}
	}
	if err := inventory.ValidateQuantity(in.Quantity); err != nil {
		return err
	}
	if !in.ReasonCode.IsValid() {
		return &domain.ValidationError{Field: "reason_code", Reason: "motivo desconocido"}
	}
	if (in.ReasonCode == entity.ReasonReversal) != (in.reverses != nil) {
		return &domain.ValidationError{Field: "reason_code", Reason: "REVERSAL solo se usa al revertir un movimiento"}
	}
	return nil
}

// ApplyMovement registra un movimiento. Escribe exactamente un movimiento y actualiza la
// cantidad a lo sumo una vez. Si una salida dejaría la cantidad negativa devuelve
// InsufficientStockError y no escribe nada.
func (e *LedgerEngine) ApplyMovement(ctx context.Context, in MovementInput) (mov *entity.Movement, err error) {
	started := time.Now()
	defer func() { e.finish(OpApply, started, mov, err) }()

	if err := in.validate(); err != nil {
		return nil, err
	}
	err = e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		var txErr error
		mov, txErr = e.applyLocked(ctx, records, movements, in)
		return txErr
	})
	if err != nil {
		return nil, err
	}
	return mov, nil
}

// applyLocked bloquea el registro del producto y escribe el movimiento (y la cantidad si es inmediato).
// Debe llamarse dentro de una transacción.
func (e *LedgerEngine) applyLocked(
	ctx context.Context,
	records repository.InventoryRecordRepository,
	movements repository.MovementRepository,
	in MovementInput,
) (*entity.Movement, error) {
	rec, err := records.GetForUpdate(ctx, in.CompanyID, in.ProductID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "product", ID: in.ProductID}
	}
	now := e.now()
	mov := &entity.Movement{
		CompanyID:          in.CompanyID,
		ProductID:          in.ProductID,
		Direction:          in.Direction,
		Quantity:           in.Quantity,
		QuantityBefore:     rec.QuantityOnHand,
		QuantityAfter:      rec.QuantityOnHand,
		Status:             entity.MovementStatusPending,
		ActorID:            in.ActorID,
		RequestedAt:        now,
		ReasonCode:         in.ReasonCode,
		Note:               in.Note,
		ReversesMovementID: in.reverses,
	}
	if !in.Immediate {
		// Diferido: before/after solo informativos, la cantidad no cambia.
		if err := movements.Create(ctx, mov); err != nil {
			return nil, err
		}
		return mov, nil
	}

	after, err := inventory.ApplyDelta(in.ProductID, rec.QuantityOnHand, in.Direction, in.Quantity)
	if err != nil {
		return nil, err
	}
	seq, err := records.UpdateQuantity(ctx, in.CompanyID, in.ProductID, after, now)
	if err != nil {
		return nil, err
	}
	mov.QuantityAfter = after
	mov.AppliedSeq = seq
	mov.Status = entity.MovementStatusConfirmed
	mov.DecidedAt = &now
	if err := movements.Create(ctx, mov); err != nil {
		return nil, err
	}
	return mov, nil
}

// finish registra log y métricas de una operación terminada.
func (e *LedgerEngine) finish(op string, started time.Time, mov *entity.Movement, err error) {
	e.metrics.ObserveOperation(op, started, err)
	if err != nil {
		ev := e.log.Warn()
		if ErrorKind(err) == KindInternal {
			ev = e.log.Error()
		}
		ev.Err(err).Str("operation", op).Str("kind", ErrorKind(err)).Msg("operación del libro fallida")
		return
	}
	if mov == nil {
		return
	}
	e.metrics.MovementRecorded(op, mov)
	e.log.Info().
		Str("operation", op).
		Str("company_id", mov.CompanyID).
		Str("product_id", mov.ProductID).
		Int64("movement_id", mov.ID).
		Str("direction", string(mov.Direction)).
		Str("quantity", mov.Quantity.String()).
		Str("status", string(mov.Status)).
		Str("quantity_after", mov.QuantityAfter.String()).
		Msg("movimiento registrado")
}
