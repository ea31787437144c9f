package http

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/dto"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
)

// ManifestRenderer genera el PDF del manifiesto de una transferencia.
type ManifestRenderer interface {
	GenerateTransferManifest(ctx context.Context, t *inventory.TransferView) ([]byte, error)
}

// TransferHandler maneja el ciclo de vida de transferencias (protegido).
type TransferHandler struct {
	engine   *inventory.Engine
	manifest ManifestRenderer
	log      zerolog.Logger
}

// NewTransferHandler construye el handler. manifest puede ser nil (sin PDF).
func NewTransferHandler(engine *inventory.Engine, manifest ManifestRenderer, log zerolog.Logger) *TransferHandler {
	return &TransferHandler{engine: engine, manifest: manifest, log: log}
}

// Initiate godoc
// @Summary      Iniciar transferencia
// @Description  Crea una transferencia en pending. No mueve stock hasta que el receptor la acepta.
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        body  body  dto.InitiateTransferRequest  true  "receptor, líneas, request_id opcional"
// @Success      201   {object}  dto.ResultResponse
// @Failure      400   {object}  dto.ResultResponse
// @Failure      409   {object}  dto.ResultResponse
// @Router       /api/transfers [post]
func (h *TransferHandler) Initiate(c *fiber.Ctx) error {
	var in dto.InitiateTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.InitiateTransfer(c.UserContext(), CurrentUser(c), inventory.InitiateTransferInput{
		RequestID:   in.RequestID,
		ToStaffID:   in.ToStaffID,
		ToStaffName: in.ToStaffName,
		ToStaffRole: in.ToStaffRole,
		Items:       transferItems(in.Items),
		Notes:       in.Notes,
		IsSalesRun:  in.IsSalesRun,
	})
	return respond(c, h.log, fiber.StatusCreated, res, err)
}

// Acknowledge godoc
// @Summary      Aceptar o rechazar una transferencia
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                          true  "transfer id"
// @Param        body  body  dto.AcknowledgeTransferRequest  true  "action: accept | decline"
// @Success      200   {object}  dto.ResultResponse
// @Failure      409   {object}  dto.ResultResponse
// @Router       /api/transfers/{id}/acknowledge [post]
func (h *TransferHandler) Acknowledge(c *fiber.Ctx) error {
	var in dto.AcknowledgeTransferRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.AcknowledgeTransfer(c.UserContext(), CurrentUser(c), c.Params("id"), in.Action)
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// RequestReturn godoc
// @Summary      Solicitar cierre de un sales run
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "transfer id"
// @Success      200  {object}  dto.ResultResponse
// @Router       /api/transfers/{id}/return-request [post]
func (h *TransferHandler) RequestReturn(c *fiber.Ctx) error {
	res, err := h.engine.RequestReturn(c.UserContext(), CurrentUser(c), c.Params("id"))
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// CompleteReturn godoc
// @Summary      Cerrar un sales run devolviendo lo no vendido
// @Tags         transfers
// @Security     Bearer
// @Accept       json
// @Produce      json
// @Param        id    path  string                     true  "transfer id"
// @Param        body  body  dto.CompleteReturnRequest  true  "unidades devueltas por producto"
// @Success      200   {object}  dto.ResultResponse
// @Router       /api/transfers/{id}/return-complete [post]
func (h *TransferHandler) CompleteReturn(c *fiber.Ctx) error {
	var in dto.CompleteReturnRequest
	if err := c.BodyParser(&in); err != nil {
		return badBody(c)
	}
	res, err := h.engine.CompleteReturn(c.UserContext(), CurrentUser(c), c.Params("id"), transferItems(in.Items))
	return respond(c, h.log, fiber.StatusOK, res, err)
}

// Get godoc
// @Summary      Obtener transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Param        id  path  string  true  "transfer id"
// @Success      200  {object}  dto.TransferResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id} [get]
func (h *TransferHandler) Get(c *fiber.Ctx) error {
	t, err := h.engine.Transfers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(t))
}

// Pending godoc
// @Summary      Transferencias pendientes de acuse del usuario
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TransferResponse
// @Router       /api/transfers/pending [get]
func (h *TransferHandler) Pending(c *fiber.Ctx) error {
	list, err := h.engine.Transfers.PendingFor(c.UserContext(), GetStaffID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// History godoc
// @Summary      Transferencias recibidas por el usuario
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TransferResponse
// @Router       /api/transfers/history [get]
func (h *TransferHandler) History(c *fiber.Ctx) error {
	list, err := h.engine.Transfers.HistoryFor(c.UserContext(), GetStaffID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// Initiated godoc
// @Summary      Transferencias iniciadas por el usuario
// @Tags         transfers
// @Security     Bearer
// @Produce      json
// @Success      200  {array}  dto.TransferResponse
// @Router       /api/transfers/initiated [get]
func (h *TransferHandler) Initiated(c *fiber.Ctx) error {
	list, err := h.engine.Transfers.InitiatedBy(c.UserContext(), GetStaffID(c))
	if err != nil {
		return fail(c, h.log, err)
	}
	return c.JSON(present(list))
}

// Manifest godoc
// @Summary      Manifiesto PDF de la transferencia
// @Tags         transfers
// @Security     Bearer
// @Produce      application/pdf
// @Param        id  path  string  true  "transfer id"
// @Success      200  {file}  binary
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/transfers/{id}/manifest.pdf [get]
func (h *TransferHandler) Manifest(c *fiber.Ctx) error {
	if h.manifest == nil {
		return c.Status(fiber.StatusNotImplemented).JSON(dto.ErrorResponse{Code: "NOT_AVAILABLE", Message: "manifiesto PDF no configurado"})
	}
	t, err := h.engine.Transfers.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return fail(c, h.log, err)
	}
	doc, err := h.manifest.GenerateTransferManifest(c.UserContext(), t)
	if err != nil {
		return fail(c, h.log, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition, `inline; filename="transfer-`+t.ID+`.pdf"`)
	return c.Send(doc)
}
