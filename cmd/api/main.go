package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/jhoicas/pae-compras/internal/application/inventory"
	"github.com/jhoicas/pae-compras/internal/domain/repository"
	"github.com/jhoicas/pae-compras/internal/infrastructure/cache"
	"github.com/jhoicas/pae-compras/internal/infrastructure/catalog"
	"github.com/jhoicas/pae-compras/internal/infrastructure/memory"
	infrapdf "github.com/jhoicas/pae-compras/internal/infrastructure/pdf"
	"github.com/jhoicas/pae-compras/internal/infrastructure/postgres"
	infraxlsx "github.com/jhoicas/pae-compras/internal/infrastructure/xlsx"
	httpRouter "github.com/jhoicas/pae-compras/internal/interfaces/http"
	"github.com/jhoicas/pae-compras/pkg/config"
	"github.com/jhoicas/pae-compras/pkg/logger"
)

// storage repositorios de lectura + runner transaccional del driver elegido.
type storage struct {
	tx        inventory.TxRunner
	batches   repository.BatchRepository
	movements repository.InventoryMovementRepository
	catalog   repository.ProductCatalog
	close     func()
}

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
		Str("db_driver", cfg.DB.Driver).
		Msg("iniciando aplicación")

	ctx := context.Background()
	store, err := openStorage(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Str("driver", cfg.DB.Driver).Msg("almacenamiento")
	}
	defer store.close()

	opts := []inventory.Option{
		inventory.WithReportGenerator(infrapdf.NewMarotoStockReport()),
		inventory.WithLedgerExporter(infraxlsx.NewExcelizeLedgerExport()),
	}
	if cfg.Redis.Enabled() {
		rdb, err := cache.NewRedisClient(ctx, cache.RedisConfig{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err != nil {
			// sin caché el motor sigue funcionando contra la base
			log.Warn().Err(err).Msg("redis no disponible, caché de stock deshabilitada")
		} else {
			defer rdb.Close()
			opts = append(opts, inventory.WithStockCache(cache.NewRedisStockCache(rdb, cfg.Redis.TTL, log.Zerolog())))
			log.Info().Str("addr", cfg.Redis.Addr).Dur("ttl", cfg.Redis.TTL).Msg("caché de stock en redis")
		}
	}

	inventoryUC := inventory.NewUseCase(store.tx, store.batches, store.movements, store.catalog, log.Zerolog(), opts...)

	swaggerFile := cfg.Swagger.FilePath
	if _, err := os.Stat(swaggerFile); swaggerFile != "" && err != nil {
		log.Warn().Str("file", swaggerFile).Msg("swagger no encontrado, /docs deshabilitado")
		swaggerFile = ""
	}

	app := httpRouter.NewServer(httpRouter.ServerConfig{
		AppName:     cfg.App.Name,
		SwaggerFile: swaggerFile,
	}, httpRouter.RouterDeps{
		Inventory:      inventoryUC,
		Log:            log.Zerolog(),
		RequestTimeout: cfg.HTTP.RequestTimeout,
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

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("apagado del servidor")
	}

	log.Info().Msg("aplicación detenida")
}

func openStorage(ctx context.Context, cfg *config.Config, log *logger.Logger) (*storage, error) {
	if cfg.DB.Driver == config.DriverMemory {
		mem := memory.NewStore()
		if cfg.Catalog.File != "" {
			products, err := catalog.LoadFile(cfg.Catalog.File, cfg.Catalog.Charset)
			if err != nil {
				return nil, err
			}
			mem.AddProduct(products...)
			log.Info().Int("products", len(products)).Str("file", cfg.Catalog.File).Msg("catálogo cargado")
		} else {
			log.Warn().Msg("driver memory sin CATALOG_FILE: todas las operaciones responderán producto no encontrado")
		}
		return &storage{
			tx:        mem,
			batches:   mem.Batches(),
			movements: mem.Movements(),
			catalog:   mem,
			close:     func() {},
		}, nil
	}

	pool, err := postgres.NewPool(ctx, cfg.DB)
	if err != nil {
		return nil, err
	}
	if cfg.DB.AutoMigrate {
		if err := postgres.Migrate(ctx, pool); err != nil {
			pool.Close()
			return nil, err
		}
		log.Info().Msg("esquema de inventario aplicado")
	}
	return &storage{
		tx:        postgres.NewTxRunner(pool),
		batches:   postgres.NewBatchRepository(pool),
		movements: postgres.NewInventoryMovementRepository(pool),
		catalog:   postgres.NewProductRepository(pool),
		close:     pool.Close,
	}, nil
}
