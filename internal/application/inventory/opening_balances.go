package inventory

import (
	"context"
	"errors"

	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/shopspring/decimal"
)

// OpeningBalance saldo inicial de un producto leído de un archivo de carga masiva.
type OpeningBalance struct {
	Line      int // fila del archivo, para reportar errores
	ProductID string
	Quantity  decimal.Decimal
}

// ImportFailure fila que no se pudo registrar.
type ImportFailure struct {
	Line      int    `json:"line"`
	ProductID string `json:"product_id"`
	Reason    string `json:"reason"`
}

// ImportReport resultado de ImportOpeningBalances.
type ImportReport struct {
	Registered int             `json:"registered"`
	Skipped    int             `json:"skipped"` // ya existían
	Failed     []ImportFailure `json:"failed,omitempty"`
}

// ImportOpeningBalances registra cada producto con su saldo inicial. Cada fila es su propia
// transacción: un producto ya registrado se omite y un error no detiene la carga.
// Solo corta ante la cancelación del contexto.
func (e *LedgerEngine) ImportOpeningBalances(ctx context.Context, companyID, actorID string, balances []OpeningBalance) (ImportReport, error) {
	var report ImportReport
	for _, b := range balances {
		if err := ctx.Err(); err != nil {
			return report, err
		}
		_, err := e.RegisterProduct(ctx, RegisterProductInput{
			CompanyID:       companyID,
			ProductID:       b.ProductID,
			ActorID:         actorID,
			InitialQuantity: b.Quantity,
		})
		switch {
		case err == nil:
			report.Registered++
		case errors.Is(err, domain.ErrDuplicate):
			report.Skipped++
		default:
			report.Failed = append(report.Failed, ImportFailure{Line: b.Line, ProductID: b.ProductID, Reason: err.Error()})
		}
	}
	e.log.Info().
		Str("company_id", companyID).
		Int("registered", report.Registered).
		Int("skipped", report.Skipped).
		Int("failed", len(report.Failed)).
		Msg("carga de saldos iniciales terminada")
	return report, nil
}
