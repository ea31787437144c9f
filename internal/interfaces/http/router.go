package http

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/stock-control-api/internal/application/feed"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	"github.com/jhoicas/stock-control-api/internal/domain/entity"
)

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Engine    *inventory.Engine
	Hub       *feed.Hub
	Manifest  ManifestRenderer
	JWTSecret string
	JWTIssuer string
	Log       zerolog.Logger
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")

	// Todas las rutas requieren Bearer Token
	protected := api.Group("/", AuthMiddleware(deps.JWTSecret, deps.JWTIssuer))

	storeOnly := RequireRole(entity.StoreRoles...)
	senders := RequireRole(append([]string{entity.RoleDeliveryStaff}, entity.StoreRoles...)...)

	// Transfers
	transfers := protected.Group("/transfers")
	transferHandler := NewTransferHandler(deps.Engine, deps.Manifest, deps.Log)
	transfers.Post("/", senders, transferHandler.Initiate)
	transfers.Get("/pending", transferHandler.Pending)
	transfers.Get("/history", transferHandler.History)
	transfers.Get("/initiated", transferHandler.Initiated)
	transfers.Get("/:id", transferHandler.Get)
	transfers.Get("/:id/manifest.pdf", transferHandler.Manifest)
	transfers.Post("/:id/acknowledge", transferHandler.Acknowledge)
	transfers.Post("/:id/return-request", transferHandler.RequestReturn)
	transfers.Post("/:id/return-complete", storeOnly, transferHandler.CompleteReturn)

	// Production batches
	batches := protected.Group("/production-batches")
	productionHandler := NewProductionHandler(deps.Engine, deps.Log)
	batches.Post("/", productionHandler.Submit)
	batches.Get("/", productionHandler.List)
	batches.Get("/:id/evaluation", productionHandler.Evaluate)
	batches.Post("/:id/approve", storeOnly, productionHandler.Approve)
	batches.Post("/:id/decline", storeOnly, productionHandler.Decline)
	batches.Post("/:id/complete", storeOnly, productionHandler.Complete)

	// Waste, stock y sales runs
	stockHandler := NewStockHandler(deps.Engine, deps.Log)
	protected.Post("/waste", stockHandler.ReportWaste)
	protected.Get("/waste", stockHandler.ListWaste)
	protected.Get("/stock", stockHandler.Stock)
	protected.Get("/sales-runs", stockHandler.SalesRuns)
	protected.Get("/sales-runs/:id/inventory", stockHandler.SalesRunInventory)

	// ChangeFeed (SSE)
	if deps.Hub != nil {
		feeds := protected.Group("/feed")
		feedHandler := NewFeedHandler(deps.Hub, deps.Engine, deps.Log)
		feeds.Get("/transfers/pending", feedHandler.PendingTransfers)
		feeds.Get("/production-batches/pending", feedHandler.PendingBatches)
		feeds.Get("/sales-runs", feedHandler.SalesRuns)
	}
}
