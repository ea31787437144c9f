package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/dto"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain"
)

// statusFor traduce el tipo de error del motor a status HTTP.
func statusFor(kind domain.ErrorKind) int {
	switch kind {
	case domain.KindValidation:
		return fiber.StatusBadRequest
	case domain.KindInsufficientStock, domain.KindInvalidStateTransition, domain.KindConflictRetryable:
		return fiber.StatusConflict
	case domain.KindNotFound:
		return fiber.StatusNotFound
	case domain.KindNone:
		return fiber.StatusOK
	}
	return fiber.StatusInternalServerError
}

// respond escribe el Result de una operación del motor en el envoltorio dto.ResultResponse.
func respond(c *fiber.Ctx, log zerolog.Logger, okStatus int, res inventory.Result, err error) error {
	if err != nil {
		log.Error().Err(err).Str("path", c.Path()).Msg("operación del motor")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ResultResponse{
			Error: &dto.ErrorResponse{Code: string(domain.KindInfrastructure), Message: "error interno, intente más tarde"},
		})
	}
	if !res.Success {
		return c.Status(statusFor(res.Error)).JSON(dto.ResultResponse{
			Error: &dto.ErrorResponse{Code: string(res.Error), Message: res.Message},
		})
	}
	return c.Status(okStatus).JSON(dto.ResultResponse{Success: true, Data: present(res.Data)})
}

// fail responde un error de una consulta (fuera del Result del motor).
func fail(c *fiber.Ctx, log zerolog.Logger, err error) error {
	kind := domain.KindOf(err)
	if kind == domain.KindInfrastructure {
		log.Error().Err(err).Str("path", c.Path()).Msg("consulta")
		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{Code: string(kind), Message: "error interno, intente más tarde"})
	}
	return c.Status(statusFor(kind)).JSON(dto.ErrorResponse{Code: string(kind), Message: err.Error()})
}

func badBody(c *fiber.Ctx) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido"})
}
