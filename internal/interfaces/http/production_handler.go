package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/dto"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// ProductionHandler maneja la aprobación de ingredientes de lotes de producción (protegido).
type ProductionHandler struct {
	engine *inventory.Engine
	log    zerolog.Logger
}

// NewProductionHandler construye el handler.
func NewProductionHandler(engine *inventory.Engine, log zerolog.Logger) *ProductionHandler {
	return &ProductionHandler{engine: engine, log: log}
}

// Submit godoc
// @Summary      Solicitar ingredientes para un lote
// @Tags         production
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.SubmitBatchRequest  true  "receta e ingredientes"
// @Success      201   {object}  dto.ResultResponse
// @Router       /api/production-batches [post]
func (h *ProductionHandler) Submit(c *fiber.Ctx) error {
	var in dto.SubmitBatchRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.SubmitBatch(c.UserContext(), CurrentUser(c), inventory.SubmitBatchInput{
		RecipeName:  in.RecipeName,
		Ingredients: batchIngredients(in.Ingredients),
	})
	return respond(c, h.log, fiber.StatusCreated, res, err)
}

// List godoc
// @Summary      Listar lotes por estado
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        status  query  string  false  "pending_approval (defecto) | in_production | completed | declined"
// @Success      200  {array}  dto.ProductionBatchResponse
// @Router       /api/production-batches [get]
func (h *ProductionHandler) List(c *fiber.Ctx) error {
	status := c.Query("status", entity.BatchStatusPendingApproval)
	list, err := h.engine.Production.List(c.UserContext(), status)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// Evaluate godoc
// @Summary      Evaluar disponibilidad de ingredientes
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.ResultResponse
// @Router       /api/production-batches/{id}/evaluation [get]
func (h *ProductionHandler) Evaluate(c *fiber.Ctx) error {
	res, err := h.engine.EvaluateBatch(c.UserContext(), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// Approve godoc
// @Summary      Aprobar lote (descuenta todos los ingredientes o ninguno)
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.ResultResponse
// @Failure      409  {object}  dto.ResultResponse
// @Router       /api/production-batches/{id}/approve [post]
func (h *ProductionHandler) Approve(c *fiber.Ctx) error {
	res, err := h.engine.ApproveIngredientRequest(c.UserContext(), CurrentUser(c), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// Decline godoc
// @Summary      Rechazar lote
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.ResultResponse
// @Router       /api/production-batches/{id}/decline [post]
func (h *ProductionHandler) Decline(c *fiber.Ctx) error {
	res, err := h.engine.DeclineProductionBatch(c.UserContext(), CurrentUser(c), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// Complete godoc
// @Summary      Marcar lote como producido
// @Tags         production
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "batch id"
// @Success      200  {object}  dto.ResultResponse
// @Router       /api/production-batches/{id}/complete [post]
func (h *ProductionHandler) Complete(c *fiber.Ctx) error {
	res, err := h.engine.CompleteBatch(c.UserContext(), CurrentUser(c), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}
