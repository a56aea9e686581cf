package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/jhoicas/inventario-ledger/internal/domain/repository"
	"github.com/shopspring/decimal"
)

var _ repository.InventoryRecordRepository = (*InventoryRecordRepo)(nil)

// InventoryRecordRepo implementación de InventoryRecordRepository sobre PostgreSQL (usable con pool o tx).
type InventoryRecordRepo struct {
	q Querier
}

// NewInventoryRecordRepository construye el adaptador. Pasar pool o tx (Querier).
func NewInventoryRecordRepository(q Querier) *InventoryRecordRepo {
	return &InventoryRecordRepo{q: q}
}

const selectRecord = `
	SELECT company_id, product_id, quantity_on_hand, applied_seq, created_at, updated_at
	FROM inventory_records WHERE company_id = $1 AND product_id = $2`

// Create inserta el registro del producto.
func (r *InventoryRecordRepo) Create(ctx context.Context, rec *entity.InventoryRecord) error {
	query := `
		INSERT INTO inventory_records (company_id, product_id, quantity_on_hand, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.Exec(ctx, query, rec.CompanyID, rec.ProductID, rec.QuantityOnHand, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return domain.ErrDuplicate
		}
		return fmt.Errorf("create inventory record: %w", err)
	}
	return nil
}

// Get obtiene la cantidad actual sin bloquear.
func (r *InventoryRecordRepo) Get(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx, selectRecord, companyID, productID))
	if err != nil {
		return nil, fmt.Errorf("get inventory record: %w", err)
	}
	return rec, nil
}

// GetForUpdate obtiene el registro y bloquea la fila (SELECT FOR UPDATE).
// La espera la acota el lock_timeout de la transacción.
func (r *InventoryRecordRepo) GetForUpdate(ctx context.Context, companyID, productID string) (*entity.InventoryRecord, error) {
	rec, err := scanRecord(r.q.QueryRow(ctx, selectRecord+" FOR UPDATE", companyID, productID))
	if err != nil {
		if isLockWait(err) {
			return nil, mapLockErr(err, productID)
		}
		return nil, fmt.Errorf("get inventory record for update: %w", err)
	}
	return rec, nil
}

// UpdateQuantity escribe la cantidad nueva y avanza applied_seq bajo el bloqueo de la fila.
// El CHECK (quantity_on_hand >= 0) respalda la validación del motor.
func (r *InventoryRecordRepo) UpdateQuantity(ctx context.Context, companyID, productID string, qty decimal.Decimal, now time.Time) (int64, error) {
	query := `
		UPDATE inventory_records SET quantity_on_hand = $3, applied_seq = applied_seq + 1, updated_at = $4
		WHERE company_id = $1 AND product_id = $2
		RETURNING applied_seq`
	var seq int64
	err := r.q.QueryRow(ctx, query, companyID, productID, qty, now).Scan(&seq)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, &domain.NotFoundError{Resource: "product", ID: productID}
		}
		return 0, mapLockErr(fmt.Errorf("update inventory record: %w", err), productID)
	}
	return seq, nil
}

func scanRecord(row pgx.Row) (*entity.InventoryRecord, error) {
	var rec entity.InventoryRecord
	err := row.Scan(&rec.CompanyID, &rec.ProductID, &rec.QuantityOnHand, &rec.AppliedSeq, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &rec, nil
}
