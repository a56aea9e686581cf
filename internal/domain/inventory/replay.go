package inventory

import (
	"fmt"

	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/shopspring/decimal"
)

// HistoryBreak punto donde la cadena antes/después deja de ser continua.
type HistoryBreak struct {
	MovementID int64  `json:"movement_id"`
	Reason     string `json:"reason"`
}

// HistoryReport resultado de reconstruir la cantidad a partir de los movimientos confirmados.
type HistoryReport struct {
	ProductID   string          `json:"product_id"`
	Replayed    int             `json:"replayed"`
	ReplayedQty decimal.Decimal `json:"replayed_quantity"`
	LiveQty     decimal.Decimal `json:"live_quantity"`
	Consistent  bool            `json:"consistent"`
	Breaks      []HistoryBreak  `json:"breaks,omitempty"`
}

// ReplayHistory recorre los movimientos CONFIRMED en orden de aplicación (el registro nace en cero)
// y verifica que before[i] = after[i-1], after = before ± quantity y que el último after
// coincida con la cantidad viva. Ignora movimientos en otro estado.
func ReplayHistory(productID string, live decimal.Decimal, movements []*entity.Movement) HistoryReport {
	report := HistoryReport{ProductID: productID, LiveQty: live}
	running := decimal.Zero
	for _, m := range movements {
		if m.Status != entity.MovementStatusConfirmed {
			continue
		}
		report.Replayed++
		if !m.QuantityBefore.Equal(running) {
			report.Breaks = append(report.Breaks, HistoryBreak{
				MovementID: m.ID,
				Reason:     fmt.Sprintf("quantity_before %s no coincide con %s", m.QuantityBefore, running),
			})
		}
		expected := m.QuantityBefore.Add(m.SignedQuantity())
		if !m.QuantityAfter.Equal(expected) {
			report.Breaks = append(report.Breaks, HistoryBreak{
				MovementID: m.ID,
				Reason:     fmt.Sprintf("quantity_after %s, esperado %s", m.QuantityAfter, expected),
			})
		}
		if m.QuantityAfter.IsNegative() {
			report.Breaks = append(report.Breaks, HistoryBreak{MovementID: m.ID, Reason: "cantidad negativa"})
		}
		running = m.QuantityAfter
	}
	report.ReplayedQty = running
	if !running.Equal(live) {
		report.Breaks = append(report.Breaks, HistoryBreak{
			Reason: fmt.Sprintf("cantidad reconstruida %s, cantidad viva %s", running, live),
		})
	}
	report.Consistent = len(report.Breaks) == 0
	return report
}
