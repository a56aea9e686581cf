package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/infrastructure/metrics"
	"github.com/jhoicas/inventario-ledger/pkg/jwt"
	"github.com/rs/zerolog"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Ledger    *inventory.LedgerEngine
	Logger    zerolog.Logger
	Metrics   *metrics.Ledger // nil = sin /metrics ni métricas HTTP
	JWTSecret string
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	app.Use(RequestID(), RequestLogger(deps.Logger))
	if deps.Metrics != nil {
		app.Use(RequestMetrics(deps.Metrics))
		app.Get("/metrics", adaptor.HTTPHandler(deps.Metrics.Handler()))
	}

	api := app.Group("/api")

	// Libro de movimientos (protegido, Bearer Token)
	ledger := api.Group("/ledger", AuthMiddleware(deps.JWTSecret))
	h := NewLedgerHandler(deps.Ledger, deps.Logger)
	approvers := RequireRole(jwt.RoleAdmin, jwt.RoleApprover)

	products := ledger.Group("/products")
	products.Post("/", h.RegisterProduct)
	products.Get("/:id", h.GetRecord)
	products.Get("/:id/movements", h.GetMovements)
	products.Get("/:id/verify", h.VerifyHistory)

	movements := ledger.Group("/movements")
	movements.Post("/", h.RegisterMovement)
	// /pending antes de /:id para que no lo capture el parámetro
	movements.Get("/pending", h.GetPending)
	movements.Get("/:id", h.GetMovement)
	movements.Patch("/:id", h.EditPending)
	movements.Post("/:id/confirm", approvers, h.Confirm)
	movements.Post("/:id/reject", approvers, h.Reject)
	movements.Post("/:id/reverse", h.Reverse)
}
