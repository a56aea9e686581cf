package http

import (
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/application/inventory"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/jhoicas/inventario-ledger/internal/domain/entity"
	"github.com/rs/zerolog"
)

// LedgerHandler expone el libro de movimientos (protegido). Empresa y actor salen del JWT.
type LedgerHandler struct {
	engine *inventory.LedgerEngine
	log    zerolog.Logger
}

// NewLedgerHandler construye el handler.
func NewLedgerHandler(engine *inventory.LedgerEngine, log zerolog.Logger) *LedgerHandler {
	return &LedgerHandler{engine: engine, log: log}
}

func (h *LedgerHandler) parseBody(c *fiber.Ctx, out any) (bool, error) {
	if len(c.Body()) == 0 {
		return true, nil
	}
	if err := c.BodyParser(out); err != nil {
		return false, badBody(c)
	}
	if err := requestValidator().Struct(out); err != nil {
		return false, writeError(c, h.log, err)
	}
	return true, nil
}

func movementID(c *fiber.Ctx) (int64, error) {
	id, err := strconv.ParseInt(c.Params("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, &domain.ValidationError{Field: "id", Reason: "id de movimiento inválido"}
	}
	return id, nil
}

func page(c *fiber.Ctx) (dto.PageRequest, error) {
	var p dto.PageRequest
	if err := c.QueryParser(&p); err != nil {
		return p, &domain.ValidationError{Field: "limit", Reason: "paginación inválida"}
	}
	if err := requestValidator().Struct(p); err != nil {
		return p, err
	}
	p.DefaultPage()
	return p, nil
}

// RegisterProduct godoc
// @Summary      Registrar producto en el libro
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterProductRequest  true  "product_id opcional, initial_quantity >= 0"
// @Success      201   {object}  dto.InventoryRecordResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/products [post]
func (h *LedgerHandler) RegisterProduct(c *fiber.Ctx) error {
	var in dto.RegisterProductRequest
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	rec, err := h.engine.RegisterProduct(c.Context(), inventory.RegisterProductInput{
		CompanyID:       GetCompanyID(c),
		ProductID:       in.ProductID,
		ActorID:         GetUserID(c),
		InitialQuantity: in.InitialQuantity,
	})
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToRecordResponse(rec))
}

// GetRecord godoc
// @Summary      Cantidad disponible de un producto
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "product_id"
// @Success      200  {object}  dto.InventoryRecordResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id} [get]
func (h *LedgerHandler) GetRecord(c *fiber.Ctx) error {
	rec, err := h.engine.GetRecord(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToRecordResponse(rec))
}

// GetMovements godoc
// @Summary      Historial de movimientos de un producto (más reciente primero)
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id      path   string  true   "product_id"
// @Param        since   query  string  false  "RFC3339"
// @Param        status  query  string  false  "PENDING | CONFIRMED | REJECTED"
// @Param        limit   query  int     false  "default 50"
// @Param        offset  query  int     false  "default 0"
// @Success      200  {object}  dto.MovementListResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/movements [get]
func (h *LedgerHandler) GetMovements(c *fiber.Ctx) error {
	p, err := page(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	q := inventory.MovementQuery{
		CompanyID: GetCompanyID(c),
		ProductID: c.Params("id"),
		Limit:     p.Limit,
		Offset:    p.Offset,
	}
	if raw := c.Query("since"); raw != "" {
		since, err := time.Parse(time.RFC3339, raw)
		if err != nil {
			return writeError(c, h.log, &domain.ValidationError{Field: "since", Reason: "formato RFC3339"})
		}
		q.Since = &since
	}
	if raw := c.Query("status"); raw != "" {
		status := entity.MovementStatus(strings.ToUpper(raw))
		q.Status = &status
	}
	list, err := h.engine.GetMovements(c.Context(), q)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(movementList(list, p))
}

// VerifyHistory godoc
// @Summary      Reconstruye la cantidad desde los movimientos confirmados
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path      string  true  "product_id"
// @Success      200  {object}  map[string]interface{}
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/products/{id}/verify [get]
func (h *LedgerHandler) VerifyHistory(c *fiber.Ctx) error {
	report, err := h.engine.VerifyHistory(c.Context(), GetCompanyID(c), c.Params("id"))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(report)
}

// RegisterMovement godoc
// @Summary      Registrar movimiento (inmediato o pendiente de aprobación)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.RegisterMovementRequest  true  "product_id, direction, quantity, reason_code, immediate"
// @Success      201   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements [post]
func (h *LedgerHandler) RegisterMovement(c *fiber.Ctx) error {
	var in dto.RegisterMovementRequest
	if len(c.Body()) == 0 {
		return badBody(c)
	}
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.engine.RegisterMovementFromRequest(c.Context(), GetCompanyID(c), GetUserID(c), in)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

// GetMovement godoc
// @Summary      Obtener un movimiento
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        id   path      int  true  "movement_id"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/{id} [get]
func (h *LedgerHandler) GetMovement(c *fiber.Ctx) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	mov, err := h.engine.GetMovement(c.Context(), GetCompanyID(c), id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToMovementResponse(mov))
}

// GetPending godoc
// @Summary      Cola de movimientos pendientes de aprobación
// @Tags         ledger
// @Security     Bearer
// @Produce      json
// @Param        actor_id  query  string  false  "filtrar por solicitante"
// @Param        limit     query  int     false  "default 50"
// @Param        offset    query  int     false  "default 0"
// @Success      200  {object}  dto.MovementListResponse
// @Router       /api/ledger/movements/pending [get]
func (h *LedgerHandler) GetPending(c *fiber.Ctx) error {
	p, err := page(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	list, err := h.engine.GetPending(c.Context(), GetCompanyID(c), c.Query("actor_id"), p.Limit, p.Offset)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(movementList(list, p))
}

// EditPending godoc
// @Summary      Editar un movimiento pendiente (queda auditoría antes/después)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                      true  "movement_id"
// @Param        body  body  dto.EditMovementRequest  true  "campos a cambiar"
// @Success      200   {object}  dto.MovementResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/{id} [patch]
func (h *LedgerHandler) EditPending(c *fiber.Ctx) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.EditMovementRequest
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.engine.EditPending(c.Context(), GetCompanyID(c), id, inventory.EditFromRequest(in))
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToMovementResponse(mov))
}

// Confirm godoc
// @Summary      Confirmar un movimiento pendiente (opcionalmente con edición atómica)
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                         true   "movement_id"
// @Param        body  body  dto.ConfirmMovementRequest  false  "edit opcional"
// @Success      200   {object}  dto.MovementResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Failure      503   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/{id}/confirm [post]
func (h *LedgerHandler) Confirm(c *fiber.Ctx) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.ConfirmMovementRequest
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	companyID, approverID := GetCompanyID(c), GetUserID(c)
	if in.Edit != nil {
		_, err = h.engine.EditAndConfirm(c.Context(), companyID, id, approverID, inventory.EditFromRequest(*in.Edit))
	} else {
		_, err = h.engine.Confirm(c.Context(), companyID, id, approverID)
	}
	if err != nil {
		return writeError(c, h.log, err)
	}
	return h.respondMovement(c, companyID, id)
}

// Reject godoc
// @Summary      Rechazar un movimiento pendiente
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                        true  "movement_id"
// @Param        body  body  dto.RejectMovementRequest  true  "reason"
// @Success      200   {object}  dto.MovementResponse
// @Failure      403   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/{id}/reject [post]
func (h *LedgerHandler) Reject(c *fiber.Ctx) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.RejectMovementRequest
	if len(c.Body()) == 0 {
		return badBody(c)
	}
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.engine.Reject(c.Context(), GetCompanyID(c), id, GetUserID(c), in.Reason)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToMovementResponse(mov))
}

// Reverse godoc
// @Summary      Revertir un movimiento confirmado
// @Tags         ledger
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  int                         true   "movement_id"
// @Param        body  body  dto.ReverseMovementRequest  false  "note"
// @Success      201   {object}  dto.MovementResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ledger/movements/{id}/reverse [post]
func (h *LedgerHandler) Reverse(c *fiber.Ctx) error {
	id, err := movementID(c)
	if err != nil {
		return writeError(c, h.log, err)
	}
	var in dto.ReverseMovementRequest
	if ok, err := h.parseBody(c, &in); !ok {
		return err
	}
	mov, err := h.engine.Reverse(c.Context(), GetCompanyID(c), id, GetUserID(c), in.Note)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.Status(fiber.StatusCreated).JSON(inventory.ToMovementResponse(mov))
}

func (h *LedgerHandler) respondMovement(c *fiber.Ctx, companyID string, id int64) error {
	mov, err := h.engine.GetMovement(c.Context(), companyID, id)
	if err != nil {
		return writeError(c, h.log, err)
	}
	return c.JSON(inventory.ToMovementResponse(mov))
}

func movementList(list []*entity.Movement, p dto.PageRequest) dto.MovementListResponse {
	items := make([]dto.MovementResponse, 0, len(list))
	for _, m := range list {
		items = append(items, inventory.ToMovementResponse(m))
	}
	return dto.MovementListResponse{
		Items: items,
		Page:  dto.PageResponse{Limit: p.Limit, Offset: p.Offset},
	}
}
