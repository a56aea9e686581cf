package http

import (
	"errors"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/jhoicas/inventario-ledger/internal/application/dto"
	"github.com/jhoicas/inventario-ledger/internal/domain"
	"github.com/rs/zerolog"
)

// writeError traduce los errores del libro a status + dto.ErrorResponse con detalles
// suficientes para reaccionar sin volver a consultar.
func writeError(c *fiber.Ctx, log zerolog.Logger, err error) error {
	var (
		validationErrs validator.ValidationErrors
		valErr         *domain.ValidationError
		notFound       *domain.NotFoundError
		stockErr       *domain.InsufficientStockError
		stateErr       *domain.InvalidStateError
		lockErr        *domain.LockTimeoutError
	)
	switch {
	case errors.As(err, &validationErrs):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: "datos inválidos", Details: validationDetails(validationErrs),
		})
	case errors.As(err, &valErr):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Code: "VALIDATION", Message: valErr.Error(), Details: map[string]string{valErr.Field: valErr.Reason},
		})
	case errors.As(err, &stockErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INSUFFICIENT_STOCK", Message: "stock insuficiente",
			Details: map[string]string{
				"product_id": stockErr.ProductID,
				"requested":  stockErr.Requested.String(),
				"available":  stockErr.Available.String(),
			},
		})
	case errors.As(err, &stateErr):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{
			Code: "INVALID_STATE", Message: stateErr.Error(),
			Details: map[string]string{
				"movement_id": strconv.FormatInt(stateErr.MovementID, 10),
				"status":      stateErr.Status,
				"operation":   stateErr.Operation,
			},
		})
	case errors.As(err, &lockErr):
		c.Set(fiber.HeaderRetryAfter, "1")
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Code: "LOCK_TIMEOUT", Message: "el inventario está ocupado, reintente",
			Details: map[string]string{"product_id": lockErr.ProductID},
		})
	case errors.As(err, &notFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Code: "NOT_FOUND", Message: notFound.Error(),
			Details: map[string]string{"resource": notFound.Resource, "id": notFound.ID},
		})
	case errors.Is(err, domain.ErrNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{Code: "NOT_FOUND", Message: "recurso no encontrado"})
	case errors.Is(err, domain.ErrInvalidInput):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "datos inválidos"})
	case errors.Is(err, domain.ErrDuplicate):
		return c.Status(fiber.StatusConflict).JSON(dto.ErrorResponse{Code: "DUPLICATE", Message: "el producto ya está registrado"})
	case errors.Is(err, domain.ErrForbidden):
		return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "acceso denegado al recurso"})
	}
	log.Error().Err(err).Str("path", c.Path()).Msg("error interno")
	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
