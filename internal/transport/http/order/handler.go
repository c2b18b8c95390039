package order

import (
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/botica-labs/botica/internal/dto"
	"github.com/botica-labs/botica/internal/entity"
	"github.com/botica-labs/botica/internal/presentation/http/response"
	service "github.com/botica-labs/botica/internal/service/order"
	"github.com/botica-labs/botica/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/botica-labs/botica/transport/http/order")

// Handler exposes the order engine over HTTP.
type Handler struct {
	svc *service.Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance.
func Register(e *echo.Echo, h *Handler) {
	e.POST("/sales", h.createSale)
	e.POST("/purchases", h.createPurchase)
	e.PATCH("/purchases/:id/state", h.updateState)

	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/:id", h.getByID)
	g.POST("/:id/cancel", h.cancel)
}

func (h *Handler) createSale(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateSaleRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	draft := &entity.Order{
		Kind:          entity.KindSale,
		CustomerID:    payload.CustomerID,
		UserID:        payload.UserID,
		Discount:      payload.Discount,
		PaymentMethod: entity.PaymentMethod(payload.PaymentMethod),
		Notes:         payload.Notes,
		Lines:         toLines(payload.Lines),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createSale")
	defer span.End()

	if err := h.svc.Create(ctx, draft); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(draft)).Build()
}

func (h *Handler) createPurchase(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreatePurchaseRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	draft := &entity.Order{
		Kind:       entity.KindPurchase,
		SupplierID: &payload.SupplierID,
		UserID:     payload.UserID,
		State:      entity.State(payload.State),
		Notes:      payload.Notes,
		Lines:      toLines(payload.Lines),
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.createPurchase")
	defer span.End()

	if err := h.svc.Create(ctx, draft); err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(draft)).Build()
}

func (h *Handler) cancel(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Cancel(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) updateState(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	var payload dto.UpdateStateRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.updateState", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.UpdateState(ctx, id, entity.State(payload.State))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return b.WithError(errorbank.BadRequest("invalid id", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

// list serves the plain listing plus the date-range and counterparty
// filters, selected by query parameters.
func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list")
	defer span.End()

	if cp := c.QueryParam("counterparty_id"); cp != "" {
		id, err := strconv.ParseInt(cp, 10, 64)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid counterparty id", errorbank.WithCause(err))).Build()
		}
		orders, err := h.svc.ListByCounterparty(ctx, id)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(toDTOs(orders)).Build()
	}

	from, to := c.QueryParam("from"), c.QueryParam("to")
	if from != "" || to != "" {
		start, err := time.Parse(time.RFC3339, from)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid from timestamp", errorbank.WithCause(err))).Build()
		}
		end, err := time.Parse(time.RFC3339, to)
		if err != nil {
			return b.WithError(errorbank.BadRequest("invalid to timestamp", errorbank.WithCause(err))).Build()
		}
		orders, err := h.svc.ListByDateRange(ctx, start, end)
		if err != nil {
			return b.WithError(err).Build()
		}
		return b.WithData(toDTOs(orders)).Build()
	}

	orders, err := h.svc.List(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}
	return b.WithData(toDTOs(orders)).Build()
}

func toLines(lines []dto.OrderLineRequest) []*entity.OrderLine {
	out := make([]*entity.OrderLine, 0, len(lines))
	for _, line := range lines {
		out = append(out, &entity.OrderLine{
			ProductID: line.ProductID,
			Quantity:  line.Quantity,
			UnitPrice: line.UnitPrice,
		})
	}
	return out
}

func toDTO(order *entity.Order) dto.OrderResponse {
	lines := make([]dto.OrderLineResponse, 0, len(order.Lines))
	for _, line := range order.Lines {
		lines = append(lines, dto.OrderLineResponse{
			ID:          line.ID,
			ProductID:   line.ProductID,
			ProductName: line.ProductName,
			Quantity:    line.Quantity,
			UnitPrice:   line.UnitPrice,
			Subtotal:    line.Subtotal,
		})
	}
	return dto.OrderResponse{
		ID:            order.ID,
		Kind:          string(order.Kind),
		OccurredAt:    order.OccurredAt,
		CustomerID:    order.CustomerID,
		SupplierID:    order.SupplierID,
		UserID:        order.UserID,
		Subtotal:      order.Subtotal,
		Discount:      order.Discount,
		Tax:           order.Tax,
		Total:         order.Total,
		PaymentMethod: string(order.PaymentMethod),
		State:         string(order.State),
		Notes:         order.Notes,
		Lines:         lines,
		CreatedAt:     order.CreatedAt,
		UpdatedAt:     order.UpdatedAt,
	}
}

func toDTOs(orders []*entity.Order) []dto.OrderResponse {
	out := make([]dto.OrderResponse, 0, len(orders))
	for _, order := range orders {
		out = append(out, toDTO(order))
	}
	return out
}
