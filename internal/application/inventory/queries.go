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

const (
	defaultPageLimit = 50
	maxPageLimit     = 500
)

func normalizePage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultPageLimit
	}
	if limit > maxPageLimit {
		limit = maxPageLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// MovementQuery filtros de GetMovements.
type MovementQuery struct {
	CompanyID string
	ProductID string
	Since     *time.Time
	Status    *entity.MovementStatus
	Limit     int
	Offset    int
}

// GetRecord cantidad disponible actual (lectura sin bloqueo).
func (e *LedgerEngine) GetRecord(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error) {
	rec, err := e.records.Get(ctx, companyID, productID)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, &domain.NotFoundError{Resource: "product", ID: productID}
	}
	return rec, nil
}

// GetMovement obtiene un movimiento del tenant.
func (e *LedgerEngine) GetMovement(ctx context.Context, companyID string, id int64) (*entity.Movement, error) {
	m, err := e.movements.GetByID(ctx, companyID, id)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, &domain.NotFoundError{Resource: "movement", ID: strconv.FormatInt(id, 10)}
	}
	return m, nil
}

// GetMovements historial de un producto, más reciente primero. Los movimientos confirmados
// son inmutables, por eso se leen sin bloqueo.
func (e *LedgerEngine) GetMovements(ctx context.Context, q MovementQuery) ([]*entity.Movement, error) {
	if q.Status != nil && !q.Status.IsValid() {
		return nil, &domain.ValidationError{Field: "status", Reason: "estado desconocido"}
	}
	if _, err := e.GetRecord(ctx, q.CompanyID, q.ProductID); err != nil {
		return nil, err
	}
	limit, offset := normalizePage(q.Limit, q.Offset)
	return e.movements.ListByProduct(ctx, repository.MovementFilter{
		CompanyID: q.CompanyID,
		ProductID: q.ProductID,
		Since:     q.Since,
		Status:    q.Status,
		Limit:     limit,
		Offset:    offset,
	})
}

// GetPending movimientos en espera de aprobación; actorID vacío = de todos los solicitantes.
func (e *LedgerEngine) GetPending(ctx context.Context, companyID, actorID string, limit, offset int) ([]*entity.Movement, error) {
	if companyID == "" {
		return nil, &domain.ValidationError{Field: "company_id", Reason: "requerido"}
	}
	limit, offset = normalizePage(limit, offset)
	return e.movements.ListPending(ctx, companyID, actorID, limit, offset)
}

// VerifyHistory reconstruye la cantidad desde los movimientos confirmados y la compara con la
// cantidad viva. Bloquea el registro mientras lee para no mezclar estados.
func (e *LedgerEngine) VerifyHistory(ctx context.Context, companyID, productID string) (*inventory.HistoryReport, error) {
	var report inventory.HistoryReport
	err := e.txRunner.Run(ctx, func(records repository.InventoryRecordRepository, movements repository.MovementRepository) error {
		rec, err := records.GetForUpdate(ctx, companyID, productID)
		if err != nil {
			return err
		}
		if rec == nil {
			return &domain.NotFoundError{Resource: "product", ID: productID}
		}
		history, err := movements.ListConfirmed(ctx, companyID, productID)
		if err != nil {
			return err
		}
		report = inventory.ReplayHistory(productID, rec.QuantityOnHand, history)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !report.Consistent {
		e.log.Error().
			Str("company_id", companyID).
			Str("product_id", productID).
			Int("breaks", len(report.Breaks)).
			Msg("historial del libro inconsistente")
	}
	return &report, nil
}
