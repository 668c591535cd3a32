package http

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/jhoicas/pae-compras/internal/application/dto"
	"github.com/jhoicas/pae-compras/internal/application/inventory"
	"github.com/jhoicas/pae-compras/internal/domain"
)

// InventoryHandler maneja las peticiones HTTP del motor de inventario PAE.
type InventoryHandler struct {
	uc      *inventory.UseCase
	log     zerolog.Logger
	timeout time.Duration
}

// NewInventoryHandler construye el handler. timeout <= 0 deja el contexto de la petición sin límite.
func NewInventoryHandler(uc *inventory.UseCase, log zerolog.Logger, timeout time.Duration) *InventoryHandler {
	return &InventoryHandler{uc: uc, log: log.With().Str("component", "http").Logger(), timeout: timeout}
}

func (h *InventoryHandler) ctx(c *fiber.Ctx) (context.Context, context.CancelFunc) {
	if h.timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}
	return context.WithTimeout(c.UserContext(), h.timeout)
}

// ReceiveInventory godoc
// @Summary      Recibir inventario (crea lote + movimiento RECEIPT)
// @Tags         inventory-movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ReceiveInventoryRequest  true  "Lote recibido"
// @Success      201   {object}  dto.ReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/receive-inventory [post]
func (h *InventoryHandler) ReceiveInventory(c *fiber.Ctx) error {
	var in dto.ReceiveInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.ReceiveInventory(ctx, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Consume godoc
// @Summary      Consumir inventario en orden FIFO
// @Description  Descuenta la cantidad de los lotes más antiguos primero, todo o nada.
// @Tags         inventory-movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.ConsumeInventoryRequest  true  "Consumo"
// @Success      201   {object}  dto.ConsumptionResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/consume [post]
func (h *InventoryHandler) Consume(c *fiber.Ctx) error {
	var in dto.ConsumeInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.ConsumeFIFO(ctx, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// Adjust godoc
// @Summary      Ajuste manual sobre un lote
// @Tags         inventory-movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.AdjustInventoryRequest  true  "Ajuste (cantidad con signo)"
// @Success      201   {object}  dto.AdjustmentResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/adjust [post]
func (h *InventoryHandler) Adjust(c *fiber.Ctx) error {
	var in dto.AdjustInventoryRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.AdjustManually(ctx, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// WriteOff godoc
// @Summary      Baja por vencimiento o pérdida
// @Tags         inventory-movements
// @Accept       json
// @Produce      json
// @Param        body  body  dto.WriteOffRequest  true  "type: EXPIRED | LOSS"
// @Success      201   {object}  dto.WriteOffResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      422   {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/write-off [post]
func (h *InventoryHandler) WriteOff(c *fiber.Ctx) error {
	var in dto.WriteOffRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.WriteOff(ctx, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// RegisterIngredientReceipt godoc
// @Summary      Registrar acta de recepción de ingredientes
// @Tags         ingredient-receipts
// @Accept       json
// @Produce      json
// @Param        body  body  dto.IngredientReceiptRequest  true  "Acta con uno o más ítems"
// @Success      201   {object}  dto.IngredientReceiptResponse
// @Failure      400   {object}  dto.ErrorResponse
// @Failure      404   {object}  dto.ErrorResponse
// @Failure      409   {object}  dto.ErrorResponse
// @Router       /api/ingredient-receipts [post]
func (h *InventoryHandler) RegisterIngredientReceipt(c *fiber.Ctx) error {
	var in dto.IngredientReceiptRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.RegisterIngredientReceipt(ctx, in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.Status(fiber.StatusCreated).JSON(out)
}

// ListMovements godoc
// @Summary      Movimientos de un producto (más recientes primero)
// @Tags         inventory-movements
// @Produce      json
// @Param        product_id      path   string  true   "Producto"
// @Param        institution_id  query  int     false  "Institución"
// @Param        movement_type   query  string  false  "RECEIPT | USAGE | ADJUSTMENT | EXPIRED | LOSS"
// @Param        limit           query  int     false  "Máximo 1000"
// @Param        offset          query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementPage
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/product/{product_id} [get]
func (h *InventoryHandler) ListMovements(c *fiber.Ctx) error {
	return h.listMovements(c, h.uc.ListMovements)
}

// ListConsumptionHistory godoc
// @Summary      Historial de consumos (movimientos USAGE)
// @Tags         inventory-movements
// @Produce      json
// @Param        product_id      path   string  true   "Producto"
// @Param        institution_id  query  int     false  "Institución"
// @Success      200  {object}  dto.MovementPage
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/consumption-history/{product_id} [get]
func (h *InventoryHandler) ListConsumptionHistory(c *fiber.Ctx) error {
	return h.listMovements(c, h.uc.ListConsumptionHistory)
}

type movementLister func(ctx context.Context, productID string, q dto.MovementQuery) (*dto.MovementPage, error)

func (h *InventoryHandler) listMovements(c *fiber.Ctx, list movementLister) error {
	q, err := movementQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	page, err := list(ctx, c.Params("product_id"), q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(page)
}

// ListBatchMovements godoc
// @Summary      Historial de movimientos de un lote
// @Tags         inventory-movements
// @Produce      json
// @Param        inventory_id  path   string  true   "Lote"
// @Param        limit         query  int     false  "Máximo 1000"
// @Param        offset        query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.MovementPage
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/batch/{inventory_id} [get]
func (h *InventoryHandler) ListBatchMovements(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	page, err := h.uc.ListBatchMovements(ctx, c.Params("inventory_id"), pageRequest(c))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(page)
}

// GetMovement godoc
// @Summary      Obtener un movimiento del libro
// @Tags         inventory-movements
// @Produce      json
// @Param        movement_id  path  string  true  "Movimiento"
// @Success      200  {object}  dto.MovementResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/{movement_id} [get]
func (h *InventoryHandler) GetMovement(c *fiber.Ctx) error {
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.GetMovement(ctx, c.Params("movement_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// ConsultInventory godoc
// @Summary      Consulta de inventario por lotes
// @Description  Lotes de todos los productos, admisión más reciente primero, con resumen de umbrales y vencidos.
// @Tags         inventory
// @Produce      json
// @Param        institution_id   query  int     false  "Institución"
// @Param        product_id       query  string  false  "Producto"
// @Param        show_expired     query  bool    false  "Incluir vencidos (por defecto true)"
// @Param        below_threshold  query  bool    false  "Solo bajo umbral (true) o solo sobre umbral (false)"
// @Param        limit            query  int     false  "Máximo 1000"
// @Param        offset           query  int     false  "Desplazamiento"
// @Success      200  {object}  dto.InventoryConsultResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory [get]
func (h *InventoryHandler) ConsultInventory(c *fiber.Ctx) error {
	q := dto.InventoryConsultQuery{
		ProductID:   c.Query("product_id"),
		ShowExpired: c.QueryBool("show_expired", true),
		PageRequest: pageRequest(c),
	}
	if raw := c.Query("institution_id"); raw != "" {
		id, err := parseInstitution(raw)
		if err != nil {
			return h.writeError(c, err)
		}
		q.InstitutionID = &id
	}
	if raw := c.Query("below_threshold"); raw != "" {
		below, err := strconv.ParseBool(raw)
		if err != nil {
			return h.writeError(c, fmt.Errorf("%w: below_threshold %q", domain.ErrInvalidInput, raw))
		}
		q.BelowThreshold = &below
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.ConsultInventory(ctx, q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// UpdateMinimumThreshold godoc
// @Summary      Actualizar el umbral mínimo de un lote
// @Tags         inventory
// @Accept       json
// @Produce      json
// @Param        inventory_id  path  string                      true  "Lote"
// @Param        body          body  dto.UpdateThresholdRequest  true  "Nuevo umbral"
// @Success      200  {object}  dto.ThresholdResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory/{inventory_id}/minimum-threshold [patch]
func (h *InventoryHandler) UpdateMinimumThreshold(c *fiber.Ctx) error {
	var in dto.UpdateThresholdRequest
	if err := c.BodyParser(&in); err != nil {
		return invalidBody(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.UpdateMinimumThreshold(ctx, c.Params("inventory_id"), in)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// ExportMovementsXLSX godoc
// @Summary      Exportar movimientos a Excel
// @Tags         inventory-movements
// @Produce      application/vnd.openxmlformats-officedocument.spreadsheetml.sheet
// @Param        product_id      path   string  true   "Producto"
// @Param        institution_id  query  int     false  "Institución"
// @Param        movement_type   query  string  false  "Tipo de movimiento"
// @Description  Exporta todos los movimientos del filtro; limit y offset no aplican.
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/product/{product_id}/xlsx [get]
func (h *InventoryHandler) ExportMovementsXLSX(c *fiber.Ctx) error {
	q, err := movementQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	productID := c.Params("product_id")
	ctx, cancel := h.ctx(c)
	defer cancel()
	doc, err := h.uc.ExportMovementsXLSX(ctx, productID, q)
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf(`attachment; filename="movimientos-%s.xlsx"`, productID))
	return c.Send(doc)
}

func pageRequest(c *fiber.Ctx) dto.PageRequest {
	return dto.PageRequest{
		Limit:  c.QueryInt("limit", dto.DefaultPageLimit),
		Offset: c.QueryInt("offset", 0),
	}
}

func movementQuery(c *fiber.Ctx) (dto.MovementQuery, error) {
	q := dto.MovementQuery{
		MovementType: c.Query("movement_type"),
		PageRequest:  pageRequest(c),
	}
	if raw := c.Query("institution_id"); raw != "" {
		id, err := parseInstitution(raw)
		if err != nil {
			return q, err
		}
		q.InstitutionID = &id
	}
	return q, nil
}

// GetCurrentStock godoc
// @Summary      Stock actual derivado del libro de movimientos
// @Tags         inventory-movements
// @Produce      json
// @Param        product_id        path   string  true   "Producto"
// @Param        institution_id    query  int     true   "Institución"
// @Param        storage_location  query  string  false  "Ubicación"
// @Param        lot               query  string  false  "Lote"
// @Success      200  {object}  dto.CurrentStockResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/stock/{product_id} [get]
func (h *InventoryHandler) GetCurrentStock(c *fiber.Ctx) error {
	q, err := stockQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.GetCurrentStock(ctx, q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// GetStockSummary godoc
// @Summary      Resumen de stock por lotes (orden FIFO)
// @Tags         inventory-movements
// @Produce      json
// @Param        product_id        path   string  true   "Producto"
// @Param        institution_id    query  int     true   "Institución"
// @Param        storage_location  query  string  false  "Ubicación"
// @Success      200  {object}  dto.StockSummaryResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/stock-summary/{product_id} [get]
func (h *InventoryHandler) GetStockSummary(c *fiber.Ctx) error {
	q, err := stockQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.GetStockSummary(ctx, q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// GetStockSummaryPDF godoc
// @Summary      Kardex en PDF
// @Tags         inventory-movements
// @Produce      application/pdf
// @Param        product_id        path   string  true   "Producto"
// @Param        institution_id    query  int     true   "Institución"
// @Param        storage_location  query  string  false  "Ubicación"
// @Success      200  {file}    binary
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/stock-summary/{product_id}/pdf [get]
func (h *InventoryHandler) GetStockSummaryPDF(c *fiber.Ctx) error {
	q, err := stockQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	doc, err := h.uc.ExportStockSummaryPDF(ctx, q)
	if err != nil {
		return h.writeError(c, err)
	}
	c.Set(fiber.HeaderContentType, "application/pdf")
	c.Set(fiber.HeaderContentDisposition,
		fmt.Sprintf(`inline; filename="kardex-%s-%d.pdf"`, q.ProductID, q.InstitutionID))
	return c.Send(doc)
}

// Reconcile godoc
// @Summary      Conciliación libro vs. lotes
// @Tags         inventory-movements
// @Produce      json
// @Param        product_id        path   string  true   "Producto"
// @Param        institution_id    query  int     true   "Institución"
// @Param        storage_location  query  string  false  "Ubicación"
// @Success      200  {object}  dto.ReconciliationResponse
// @Failure      400  {object}  dto.ErrorResponse
// @Failure      404  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/reconciliation/{product_id} [get]
func (h *InventoryHandler) Reconcile(c *fiber.Ctx) error {
	q, err := stockQuery(c)
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	out, err := h.uc.Reconcile(ctx, q)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(out)
}

// GetReplenishmentList godoc
// @Summary      Lista de reposición
// @Description  Productos por debajo de su umbral mínimo con la cantidad sugerida de pedido,
//
//	priorizados por consumo de los últimos 30 días.
//
// @Tags         inventory-movements
// @Produce      json
// @Param        institution_id  query  int  true  "Institución"
// @Success      200  {object}  map[string]interface{}
// @Failure      400  {object}  dto.ErrorResponse
// @Router       /api/inventory-movements/replenishment [get]
func (h *InventoryHandler) GetReplenishmentList(c *fiber.Ctx) error {
	institutionID, err := parseInstitution(c.Query("institution_id"))
	if err != nil {
		return h.writeError(c, err)
	}
	ctx, cancel := h.ctx(c)
	defer cancel()
	list, err := h.uc.GenerateReplenishmentList(ctx, institutionID)
	if err != nil {
		return h.writeError(c, err)
	}
	return c.JSON(fiber.Map{
		"total":          len(list),
		"replenishments": list,
	})
}

func stockQuery(c *fiber.Ctx) (dto.StockQuery, error) {
	institutionID, err := parseInstitution(c.Query("institution_id"))
	if err != nil {
		return dto.StockQuery{}, err
	}
	return dto.StockQuery{
		ProductID:       c.Params("product_id"),
		InstitutionID:   institutionID,
		StorageLocation: c.Query("storage_location"),
		Lot:             c.Query("lot"),
	}, nil
}

func parseInstitution(raw string) (int64, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, fmt.Errorf("%w: institution_id es obligatorio", domain.ErrInvalidInput)
	}
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: institution_id %q", domain.ErrInvalidInput, raw)
	}
	return id, nil
}

func invalidBody(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{Code: "INVALID_BODY", Message: "cuerpo inválido: " + err.Error()})
}

// errorStatus traduce la taxonomía de dominio a status HTTP y código de error.
func errorStatus(err error) (int, string) {
	switch {
	case errors.Is(err, domain.ErrNotFound):
		return fiber.StatusNotFound, "NOT_FOUND"
	case errors.Is(err, domain.ErrUnitMismatch):
		return fiber.StatusBadRequest, "UNIT_MISMATCH"
	case errors.Is(err, domain.ErrInvalidInput):
		return fiber.StatusBadRequest, "VALIDATION"
	case errors.Is(err, domain.ErrInsufficientStock):
		return fiber.StatusConflict, "INSUFFICIENT_STOCK"
	case errors.Is(err, domain.ErrConflict):
		return fiber.StatusConflict, "CONFLICT"
	case errors.Is(err, domain.ErrNegativeStockRejected):
		return fiber.StatusUnprocessableEntity, "NEGATIVE_STOCK"
	case errors.Is(err, context.DeadlineExceeded):
		return fiber.StatusGatewayTimeout, "TIMEOUT"
	case errors.Is(err, inventory.ErrReportsDisabled):
		return fiber.StatusNotImplemented, "NOT_AVAILABLE"
	default:
		return fiber.StatusInternalServerError, "INTERNAL"
	}
}

func (h *InventoryHandler) writeError(c *fiber.Ctx, err error) error {
	status, code := errorStatus(err)
	msg := err.Error()
	if status >= fiber.StatusInternalServerError {
		h.log.Error().Err(err).
			Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Msg("error procesando petición")
		if status == fiber.StatusInternalServerError {
			msg = "error interno"
		}
	}
	return c.Status(status).JSON(dto.ErrorResponse{Code: code, Message: msg})
}
