package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/dto"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// StockHandler expone mermas, stock y sales runs (protegido).
type StockHandler struct {
	engine *inventory.Engine
	log    zerolog.Logger
}

// NewStockHandler construye el handler.
func NewStockHandler(engine *inventory.Engine, log zerolog.Logger) *StockHandler {
	return &StockHandler{engine: engine, log: log}
}

// ReportWaste godoc
// @Summary      Reportar merma
// @Description  Descuenta del stock personal (o central para roles de almacén) y registra la merma.
// @Tags         waste
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReportWasteRequest  true  "líneas y motivo"
// @Success      201   {object}  dto.ResultResponse
// @Failure      409   {object}  dto.ResultResponse
// @Router       /api/waste [post]
func (h *StockHandler) ReportWaste(c *fiber.Ctx) error {
	var in dto.ReportWasteRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.ReportWaste(c.UserContext(), CurrentUser(c), inventory.ReportWasteInput{
		RequestID: in.RequestID,
		Items:     wasteItems(in.Items),
		Reason:    in.Reason,
		Notes:     in.Notes,
	})
	return respond(c, h.log, fiber.StatusCreated, res, err)
}

// ListWaste godoc
// @Summary      Mermas reportadas por el usuario
// @Tags         waste
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.WasteLogResponse
// @Router       /api/waste [get]
func (h *StockHandler) ListWaste(c *fiber.Ctx) error {
	list, err := h.engine.Waste.ListFor(c.UserContext(), GetStaffID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// Stock godoc
// @Summary      Contadores de stock de un scope
// @Description  Sin scope devuelve el stock que opera el usuario. Solo los roles de almacén consultan otros scopes.
// @Tags         stock
// @Security     Bearer
// @Produce      json
// @Param        scope  query  string  false  "central | staff:<id>"
// @Success      200  {array}  dto.StockRecordResponse
// @Failure      403  {object}  dto.ErrorResponse
// @Router       /api/stock [get]
func (h *StockHandler) Stock(c *fiber.Ctx) error {
	user := CurrentUser(c)
	scope := user.StockScope()
	if raw := c.Query("scope"); raw != "" {
		parsed, ok := entity.ParseScope(raw)
		if !ok {
			return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "VALIDATION", Message: "scope inválido"})
		}
		if parsed != scope && !entity.IsStoreRole(user.Role) {
			return c.Status(fiber.StatusForbidden).JSON(dto.ErrorResponse{Code: "FORBIDDEN", Message: "solo puede consultar su propio stock"})
		}
		scope = parsed
	}
	list, err := h.engine.Ledger.ReadScope(c.UserContext(), scope)
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// SalesRuns godoc
// @Summary      Sales runs activos del usuario
// @Tags         sales-runs
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TransferResponse
// @Router       /api/sales-runs [get]
func (h *StockHandler) SalesRuns(c *fiber.Ctx) error {
	list, err := h.engine.SalesRuns.ActiveRuns(c.UserContext(), GetStaffID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// SalesRunInventory godoc
// @Summary      Inventario de trabajo de un sales run activo
// @Tags         sales-runs
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "transfer id"
// @Success      200  {object}  dto.ResultResponse
// @Router       /api/sales-runs/{id}/inventory [get]
func (h *StockHandler) SalesRunInventory(c *fiber.Ctx) error {
	res, err := h.engine.SalesRunInventory(c.UserContext(), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}
