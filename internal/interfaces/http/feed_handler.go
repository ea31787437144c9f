package http

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/valyala/fasthttp"

	"github.com/jhoicas/stock-control-api/internal/application/feed"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
)

const feedHeartbeat = 30 * time.Second

// FeedHandler expone las consultas del ChangeFeed como Server-Sent Events.
type FeedHandler struct {
	hub    *feed.Hub
	engine *inventory.Engine
	log    zerolog.Logger
}

// NewFeedHandler construye el handler.
func NewFeedHandler(hub *feed.Hub, engine *inventory.Engine, log zerolog.Logger) *FeedHandler {
	return &FeedHandler{hub: hub, engine: engine, log: log}
}

// PendingTransfers godoc
// @Summary      Stream de la cola de acuse del usuario
// @Description  Envía la foto completa al conectar y otra tras cada cambio. Acepta ?access_token= para EventSource.
// @Tags         feed
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/feed/transfers/pending [get]
func (h *FeedHandler) PendingTransfers(c *fiber.Ctx) error {
	return h.stream(c, feed.PendingTransfers(h.engine.Transfers, GetStaffID(c)))
}

// PendingBatches godoc
// @Summary      Stream de lotes pendientes de aprobación
// @Tags         feed
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/feed/production-batches/pending [get]
func (h *FeedHandler) PendingBatches(c *fiber.Ctx) error {
	return h.stream(c, feed.PendingBatches(h.engine.Production))
}

// SalesRuns godoc
// @Summary      Stream de los sales runs activos del usuario
// @Tags         feed
// @Security     Bearer
// @Produce      text/event-stream
// @Router       /api/feed/sales-runs [get]
func (h *FeedHandler) SalesRuns(c *fiber.Ctx) error {
	return h.stream(c, feed.ActiveSalesRuns(h.engine.SalesRuns, GetStaffID(c)))
}

// stream suscribe antes de cambiar a modo streaming para poder responder el error de la carga inicial.
// La suscripción vive hasta que el cliente se desconecta (falla el Flush).
func (h *FeedHandler) stream(c *fiber.Ctx, q feed.Query) error {
	sub, err := h.hub.Subscribe(context.Background(), q)
	if err != nil {
		return fail(c, h.log, err)
	}

	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	log := h.log.With().Str("subscription", sub.ID).Str("query", q.Name).Logger()
	c.Context().SetBodyStreamWriter(fasthttp.StreamWriter(func(w *bufio.Writer) {
		defer sub.Cancel()

		fmt.Fprintf(w, "event: connected\ndata: {\"subscription_id\":%q}\n\n", sub.ID)
		if err := w.Flush(); err != nil {
			return
		}

		heartbeat := time.NewTicker(feedHeartbeat)
		defer heartbeat.Stop()
		for {
			select {
			case snap, ok := <-sub.Updates():
				if !ok {
					return
				}
				if err := writeSnapshot(w, snap); err != nil {
					log.Debug().Err(err).Msg("feed: cliente desconectado")
					return
				}
			case <-heartbeat.C:
				if _, err := w.WriteString(": keepalive\n\n"); err != nil {
					return
				}
				if err := w.Flush(); err != nil {
					return
				}
			}
		}
	}))
	return nil
}

type snapshotEvent struct {
	Version uint64    `json:"version"`
	At      time.Time `json:"at"`
	Data    any       `json:"data"`
}

func writeSnapshot(w *bufio.Writer, snap feed.Snapshot) error {
	body, err := json.Marshal(snapshotEvent{Version: snap.Version, At: snap.At, Data: present(snap.Data)})
	if err != nil {
		return err
	}
	fmt.Fprintf(w, "event: %s\nid: %d\ndata: %s\n\n", snap.Query, snap.Version, body)
	return w.Flush()
}
