package http

import (
	"errors"
	"time"

	"github.com/gofiber/contrib/swagger"
	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
)

// ServerConfig parámetros del servidor Fiber.
type ServerConfig struct {
	AppName     string
	SwaggerFile string // vacío = sin /docs
}

// RouterDeps dependencias para el router.
type RouterDeps struct {
	Inventory      *inventory.UseCase
	Log            zerolog.Logger
	RequestTimeout time.Duration
}

// NewServer construye la app Fiber con middlewares, /health, /docs y las rutas de la API.
func NewServer(cfg ServerConfig, deps RouterDeps) *fiber.App {
	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ReadTimeout:  time.Second * 10,
		WriteTimeout: time.Second * 30,
		IdleTimeout:  time.Second * 60,
		ErrorHandler: errorHandler,
	})
	app.Use(recover.New())
	app.Use(requestid.New())
	app.Use(accessLog(deps.Log))

	if cfg.SwaggerFile != "" {
		// Swagger UI: http://localhost:<port>/docs
		app.Use(swagger.New(swagger.Config{
			BasePath: "/",
			FilePath: cfg.SwaggerFile,
			Path:     "docs",
			Title:    "PAE Inventario API",
		}))
	}

	app.Get("/health", func(c *fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok", "service": cfg.AppName})
	})

	Router(app, deps)
	return app
}

// Router registra las rutas de la API.
func Router(app *fiber.App, deps RouterDeps) {
	api := app.Group("/api")
	h := NewInventoryHandler(deps.Inventory, deps.Log, deps.RequestTimeout)

	movements := api.Group("/inventory-movements")
	movements.Post("/receive-inventory", h.ReceiveInventory)
	movements.Post("/consume", h.Consume)
	movements.Post("/adjust", h.Adjust)
	movements.Post("/write-off", h.WriteOff)
	movements.Get("/product/:product_id", h.ListMovements)
	movements.Get("/product/:product_id/xlsx", h.ExportMovementsXLSX)
	movements.Get("/consumption-history/:product_id", h.ListConsumptionHistory)
	movements.Get("/stock/:product_id", h.GetCurrentStock)
	movements.Get("/stock-summary/:product_id", h.GetStockSummary)
	movements.Get("/stock-summary/:product_id/pdf", h.GetStockSummaryPDF)
	movements.Get("/reconciliation/:product_id", h.Reconcile)
	movements.Get("/replenishment", h.GetReplenishmentList)
	movements.Get("/batch/:inventory_id", h.ListBatchMovements)
	// último: captura cualquier otro segmento como id de movimiento
	movements.Get("/:movement_id", h.GetMovement)

	stock := api.Group("/inventory")
	stock.Get("/", h.ConsultInventory)
	stock.Patch("/:inventory_id/minimum-threshold", h.UpdateMinimumThreshold)

	api.Post("/ingredient-receipts", h.RegisterIngredientReceipt)
}

// errorHandler respuestas de error de Fiber (404 de ruta, panics recuperados) con el mismo cuerpo que la API.
func errorHandler(c *fiber.Ctx, err error) error {
	code := fiber.StatusInternalServerError
	var fe *fiber.Error
	if errors.As(err, &fe) {
		code = fe.Code
	}
	body := dto.ErrorResponse{Code: "INTERNAL", Message: "error interno"}
	switch code {
	case fiber.StatusNotFound:
		body = dto.ErrorResponse{Code: "NOT_FOUND", Message: "ruta no encontrada"}
	case fiber.StatusMethodNotAllowed:
		body = dto.ErrorResponse{Code: "METHOD_NOT_ALLOWED", Message: err.Error()}
	}
	return c.Status(code).JSON(body)
}

// accessLog una línea por petición con request id, status y latencia.
func accessLog(log zerolog.Logger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// el ErrorHandler escribe la respuesta; se invoca aquí para registrar el status final
			if hErr := c.App().ErrorHandler(c, err); hErr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		status := c.Response().StatusCode()
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("request_id", c.GetRespHeader(fiber.HeaderXRequestID)).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", time.Since(start)).
			Msg("http")
		return nil
	}
}
