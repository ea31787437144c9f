package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"

	"github.com/jhoicas/stock-control-api/internal/application/feed"
	"github.com/jhoicas/stock-control-api/internal/application/inventory"
	infrakafka "github.com/jhoicas/stock-control-api/internal/infrastructure/kafka"
	"github.com/jhoicas/stock-control-api/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/stock-control-api/internal/infrastructure/pdf"
	"github.com/jhoicas/stock-control-api/internal/infrastructure/postgres"
	infraredis "github.com/jhoicas/stock-control-api/internal/infrastructure/redis"
	httpRouter "github.com/jhoicas/stock-control-api/internal/interfaces/http"
	"github.com/jhoicas/stock-control-api/pkg/config"
	"github.com/jhoicas/stock-control-api/pkg/logger"
	"github.com/jhoicas/stock-control-api/pkg/telemetry"
)

const version = "1.0.0"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("cargar configuración: " + err.Error())
	}

	log := logger.New(logger.Config{
		Env:     cfg.App.Env,
		Level:   cfg.Log.Level,
		Service: cfg.App.Name,
	})
	log.Info().
		Str("env", cfg.App.Env).
		Str("app", cfg.App.Name).
		Str("store", cfg.Store.Driver).
		Msg("iniciando aplicación")

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	shutdownTracing, err := telemetry.Setup(ctx, cfg.Telemetry, version)
	if err != nil {
		log.Fatal().Err(err).Msg("inicializar trazas")
	}

	// Almacén de registros: PostgreSQL en producción, memoria para desarrollo y demos.
	var (
		txRunner inventory.TxRunner
		read     inventory.ReadRepos
	)
	switch cfg.Store.Driver {
	case config.StoreDriverMemory:
		store := memory.NewStore()
		txRunner, read = store, store.Repos()
		log.Warn().Msg("almacén en memoria: los datos se pierden al reiniciar")
	default:
		pool, err := postgres.NewPool(ctx, cfg.DB)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a PostgreSQL")
		}
		defer pool.Close()
		if cfg.Store.Migrate {
			if err := postgres.Migrate(ctx, pool, log.Component("migrate")); err != nil {
				log.Fatal().Err(err).Msg("migraciones")
			}
		}
		txRunner, read = postgres.NewTxRunner(pool, cfg.Store.TxMaxRetries, log.Component("postgres")), postgres.ReadRepos(pool)
	}

	// ChangeFeed: hub local, y Redis pub/sub para avisar a las demás instancias.
	hub := feed.NewHub(log.Component("feed"))
	var notifier inventory.ChangeNotifier = hub
	if cfg.Redis.URL != "" {
		client, err := infraredis.Connect(ctx, cfg.Redis)
		if err != nil {
			log.Fatal().Err(err).Msg("conexión a Redis")
		}
		defer client.Close()
		bridge := infraredis.NewFeedBridge(client, cfg.Redis.Channel, hub, log.Component("redis"))
		go bridge.Listen(ctx)
		notifier = bridge
		log.Info().Str("channel", cfg.Redis.Channel).Msg("feed replicado por Redis")
	}

	opts := []inventory.Option{
		inventory.WithNotifier(notifier),
		inventory.WithLogger(log.Component("engine")),
	}
	if len(cfg.Kafka.Brokers) > 0 {
		publisher, err := infrakafka.NewPublisher(cfg.Kafka)
		if err != nil {
			log.Fatal().Err(err).Msg("publicador Kafka")
		}
		defer publisher.Close()
		opts = append(opts, inventory.WithPublisher(publisher))
		log.Info().Strs("brokers", cfg.Kafka.Brokers).Str("topic", cfg.Kafka.Topic).Msg("eventos de dominio hacia Kafka")
	}
	engine := inventory.NewEngine(txRunner, read, opts...)

	// SSE mantiene conexiones abiertas: sin WriteTimeout.
	app := fiber.New(fiber.Config{
		AppName:     cfg.App.Name,
		ReadTimeout: time.Second * 10,
		IdleTimeout: time.Second * 60,
	})
	app.Use(recover.New())
	httpLog := log.Component("http")
	app.Use(httpRouter.RequestLogger(httpLog))

	// Swagger UI en local: http://localhost:<port>/docs
	app.Use(swagger.New(swagger.Config{
		BasePath: "/",
		FilePath: "./docs/swagger.json",
		Path:     "docs",
		Title:    "Stock Control API",
	}))

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.App.Name, "store": cfg.Store.Driver, "feed_subscriptions": hub.Len()})
	})

	httpRouter.Router(app, httpRouter.RouterDeps{
		Engine:    engine,
		Hub:       hub,
		Manifest:  infrapdf.NewManifestGenerator(cfg.App.Name),
		JWTSecret: cfg.JWT.Secret,
		JWTIssuer: cfg.JWT.Issuer,
		Log:       httpLog,
	})

	go func() {
		if err := app.Listen(cfg.HTTP.Addr()); err != nil {
			log.Error().Err(err).Msg("servidor HTTP finalizado")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("señal de apagado recibida, cerrando servidor...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("cierre de trazas")
	}

	log.Info().Msg("aplicación detenida")
}
