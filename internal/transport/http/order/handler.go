package order

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderdesk/orderdesk/internal/dto"
	"github.com/orderdesk/orderdesk/internal/entity"
	"github.com/orderdesk/orderdesk/internal/presentation/http/response"
	repo "github.com/orderdesk/orderdesk/internal/repository/order"
	service "github.com/orderdesk/orderdesk/internal/service/order"
	"github.com/orderdesk/orderdesk/pkg/errorbank"
)

var httpTracer = otel.Tracer("github.com/orderdesk/orderdesk/transport/http/order")

// Service is the order service surface the handler needs.
type Service interface {
	List(ctx context.Context, q repo.ListQuery) (*service.ListResult, error)
	Get(ctx context.Context, id int64) (*entity.Order, error)
	Create(ctx context.Context, in service.CreateInput) (*entity.Order, error)
	Update(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error)
	Delete(ctx context.Context, id int64) error
	BulkSetStatus(ctx context.Context, ids []int64, status entity.Status) (int64, error)
	BulkDuplicate(ctx context.Context, ids []int64) ([]entity.Order, error)
	BulkDelete(ctx context.Context, ids []int64) (int64, error)
	Stats(ctx context.Context) (repo.Stats, error)
}

// Handler exposes order endpoints over HTTP.
type Handler struct {
	svc Service
}

// NewHandler constructs an order Handler.
func NewHandler(svc *service.Service) *Handler {
	return &Handler{svc: svc}
}

// Register routes with provided Echo instance. Static segments (stats, bulk)
// are registered alongside :id routes; the router prefers them.
func Register(e *echo.Echo, h *Handler) {
	g := e.Group("/orders")
	g.GET("", h.list)
	g.GET("/stats", h.stats)
	g.GET("/:id", h.getByID)
	g.POST("", h.create)
	g.PUT("/:id", h.update)
	g.DELETE("/:id", h.delete)
	g.PUT("/bulk/status", h.bulkStatus)
	g.POST("/bulk/duplicate", h.bulkDuplicate)
	g.DELETE("/bulk", h.bulkDelete)
}

func (h *Handler) list(c echo.Context) error {
	b := response.New(c)

	var req dto.ListOrdersRequest
	if err := c.Bind(&req); err != nil {
		return b.WithError(errorbank.BadRequest("invalid query parameters", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.list", trace.WithAttributes(
		attribute.Int("page", req.Page),
	))
	defer span.End()

	result, err := h.svc.List(ctx, repo.ListQuery{
		Status:        entity.Status(req.Status),
		PaymentStatus: entity.PaymentStatus(req.PaymentStatus),
		Search:        req.Search,
		SortBy:        req.SortBy,
		SortOrder:     req.SortOrder,
		Page:          req.Page,
		PerPage:       req.PerPage,
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	orders := make([]dto.OrderResponse, 0, len(result.Orders))
	for i := range result.Orders {
		orders = append(orders, toDTO(&result.Orders[i]))
	}

	return b.WithData(dto.OrderListResponse{
		Orders:     orders,
		Total:      result.Total,
		Page:       result.Page,
		PerPage:    result.PerPage,
		TotalPages: result.TotalPages,
	}).Build()
}

func (h *Handler) getByID(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.getByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Get(ctx, id)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) create(c echo.Context) error {
	b := response.New(c)

	var payload dto.CreateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	orderDate, err := parseDate(payload.OrderDate)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.create")
	defer span.End()

	order, err := h.svc.Create(ctx, service.CreateInput{
		CustomerName:   payload.CustomerName,
		CustomerAvatar: payload.CustomerAvatar,
		OrderDate:      orderDate,
		Status:         entity.Status(payload.Status),
		TotalAmount:    decimal.NewFromFloat(payload.TotalAmount),
		PaymentStatus:  entity.PaymentStatus(payload.PaymentStatus),
	})
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithStatus(http.StatusCreated).WithData(toDTO(order)).Build()
}

func (h *Handler) update(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	var payload dto.UpdateOrderRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	patch := repo.Patch{
		CustomerName:   payload.CustomerName,
		CustomerAvatar: payload.CustomerAvatar,
	}
	if payload.OrderDate != nil {
		orderDate, err := parseDate(*payload.OrderDate)
		if err != nil {
			return b.WithError(err).Build()
		}
		patch.OrderDate = &orderDate
	}
	if payload.Status != nil {
		status := entity.Status(*payload.Status)
		patch.Status = &status
	}
	if payload.TotalAmount != nil {
		amount := decimal.NewFromFloat(*payload.TotalAmount)
		patch.TotalAmount = &amount
	}
	if payload.PaymentStatus != nil {
		paymentStatus := entity.PaymentStatus(*payload.PaymentStatus)
		patch.PaymentStatus = &paymentStatus
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := h.svc.Update(ctx, id, patch)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(toDTO(order)).Build()
}

func (h *Handler) delete(c echo.Context) error {
	b := response.New(c)

	id, err := parseID(c)
	if err != nil {
		return b.WithError(err).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := h.svc.Delete(ctx, id); err != nil {
		return b.WithError(err).Build()
	}

	return b.Build()
}

func (h *Handler) bulkStatus(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkStatusRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkStatus", trace.WithAttributes(attribute.Int("ids", len(payload.OrderIDs))))
	defer span.End()

	updated, err := h.svc.BulkSetStatus(ctx, payload.OrderIDs, entity.Status(payload.Status))
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.BulkStatusResponse{UpdatedCount: updated}).Build()
}

func (h *Handler) bulkDuplicate(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkIDsRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkDuplicate", trace.WithAttributes(attribute.Int("ids", len(payload.OrderIDs))))
	defer span.End()

	created, err := h.svc.BulkDuplicate(ctx, payload.OrderIDs)
	if err != nil {
		return b.WithError(err).Build()
	}

	orders := make([]dto.OrderResponse, 0, len(created))
	for i := range created {
		orders = append(orders, toDTO(&created[i]))
	}

	return b.WithStatus(http.StatusCreated).WithData(dto.BulkDuplicateResponse{Orders: orders}).Build()
}

func (h *Handler) bulkDelete(c echo.Context) error {
	b := response.New(c)

	var payload dto.BulkIDsRequest
	if err := c.Bind(&payload); err != nil {
		return b.WithError(errorbank.BadRequest("invalid payload", errorbank.WithCause(err))).Build()
	}

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.bulkDelete", trace.WithAttributes(attribute.Int("ids", len(payload.OrderIDs))))
	defer span.End()

	deleted, err := h.svc.BulkDelete(ctx, payload.OrderIDs)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.BulkDeleteResponse{DeletedCount: deleted}).Build()
}

func (h *Handler) stats(c echo.Context) error {
	b := response.New(c)

	ctx, span := httpTracer.Start(c.Request().Context(), "orders.stats")
	defer span.End()

	stats, err := h.svc.Stats(ctx)
	if err != nil {
		return b.WithError(err).Build()
	}

	return b.WithData(dto.StatsResponse{
		TotalThisMonth: stats.TotalThisMonth,
		Pending:        stats.Pending,
		Completed:      stats.Completed,
		Refunded:       stats.Refunded,
	}).Build()
}

func parseID(c echo.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		return 0, errorbank.BadRequest("invalid id", errorbank.WithCause(err))
	}
	return id, nil
}

func parseDate(value string) (time.Time, error) {
	parsed, err := time.Parse(dto.DateLayout, value)
	if err != nil {
		return time.Time{}, errorbank.BadRequest("order_date must be formatted YYYY-MM-DD", errorbank.WithCause(err))
	}
	return parsed, nil
}

func toDTO(order *entity.Order) dto.OrderResponse {
	return dto.OrderResponse{
		ID:             order.ID,
		OrderNumber:    order.OrderNumber,
		CustomerName:   order.CustomerName,
		CustomerAvatar: order.CustomerAvatar,
		OrderDate:      order.OrderDate.Format(dto.DateLayout),
		Status:         string(order.Status),
		TotalAmount:    order.TotalAmount.InexactFloat64(),
		PaymentStatus:  string(order.PaymentStatus),
		CreatedAt:      order.CreatedAt,
		UpdatedAt:      order.UpdatedAt,
	}
}
