package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderdesk/orderdesk/internal/cache"
	"github.com/orderdesk/orderdesk/internal/config"
	"github.com/orderdesk/orderdesk/internal/entity"
	"github.com/orderdesk/orderdesk/internal/messaging"
	repo "github.com/orderdesk/orderdesk/internal/repository/order"
	"github.com/orderdesk/orderdesk/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/orderdesk/orderdesk/service/order")

// maxCustomerName bounds customer_name length.
const maxCustomerName = 200

// StatsCacheKey caches the stats aggregate between mutations.
const StatsCacheKey = "orders:stats"

// CacheKey is the cache key for a single order.
func CacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

// Repository is the store capability the service composes. Implemented by
// repository/order; narrowed to an interface so tests can substitute it.
type Repository interface {
	Create(ctx context.Context, order *entity.Order) error
	GetByID(ctx context.Context, id int64) (*entity.Order, error)
	List(ctx context.Context, q repo.ListQuery) ([]entity.Order, int, error)
	Update(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error)
	Delete(ctx context.Context, id int64) error
	BulkSetStatus(ctx context.Context, ids []int64, status entity.Status) (int64, error)
	BulkDuplicate(ctx context.Context, ids []int64) ([]entity.Order, error)
	BulkDelete(ctx context.Context, ids []int64) (int64, error)
	Stats(ctx context.Context) (repo.Stats, error)
}

// CreateInput carries a fully parsed create request.
type CreateInput struct {
	CustomerName   string
	CustomerAvatar *string
	OrderDate      time.Time
	Status         entity.Status
	TotalAmount    decimal.Decimal
	PaymentStatus  entity.PaymentStatus
}

// ListResult is one page of orders plus pagination totals.
type ListResult struct {
	Orders     []entity.Order
	Total      int
	Page       int
	PerPage    int
	TotalPages int
}

// Service encapsulates business logic around orders.
type Service struct {
	repo      Repository
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Repository *repo.Repository
	Cache      cache.Store
	Config     config.Config
	Logger     *zap.Logger
	Publisher  messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		repo:      p.Repository,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
	}
}

// newWith builds a Service around an arbitrary Repository; used by tests.
func newWith(r Repository, c cache.Store, logger *zap.Logger, publisher messaging.Client) *Service {
	return &Service{
		repo:      r,
		cache:     c,
		cacheTTL:  time.Minute,
		logger:    logger,
		publisher: publisher,
		messaging: messagingConfig{enabled: publisher != nil, topic: "orders.events"},
	}
}

// List returns a filtered, sorted page of orders. Zero matching rows is not
// an error. Unknown sort fields or directions fail validation.
func (s *Service) List(ctx context.Context, q repo.ListQuery) (*ListResult, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, errorbank.BadRequest(err.Error())
	}
	if q.Status != "" && !q.Status.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown status filter %q", q.Status))
	}
	if q.PaymentStatus != "" && !q.PaymentStatus.Valid() {
		return nil, errorbank.BadRequest(fmt.Sprintf("unknown payment status filter %q", q.PaymentStatus))
	}

	orders, total, err := s.repo.List(ctx, q)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}

	return &ListResult{
		Orders:     orders,
		Total:      total,
		Page:       q.Page,
		PerPage:    q.PerPage,
		TotalPages: q.TotalPages(total),
	}, nil
}

// Get retrieves an order by id, consulting cache when available.
func (s *Service) Get(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Get", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if order, err := s.getFromCache(ctx, id); err == nil {
		return order, nil
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn("orders cache read failed", zap.Int64("id", id), zap.Error(err))
	}

	order, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}

	return order, nil
}

// Create validates and persists a new order. The store assigns id,
// order_number and timestamps.
func (s *Service) Create(ctx context.Context, in CreateInput) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create")
	defer span.End()

	if err := validateCreate(in); err != nil {
		return nil, err
	}

	order := &entity.Order{
		CustomerName:   in.CustomerName,
		CustomerAvatar: normalizeAvatar(in.CustomerAvatar),
		OrderDate:      in.OrderDate,
		Status:         in.Status,
		TotalAmount:    in.TotalAmount,
		PaymentStatus:  in.PaymentStatus,
	}

	if err := s.repo.Create(ctx, order); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to create order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", order.ID), zap.Error(err))
	}
	s.invalidateStats(ctx)
	s.publish(ctx, EventOrderCreated, []int64{order.ID}, order.Status)

	return order, nil
}

// Update applies a partial update. At least one field must be supplied.
func (s *Service) Update(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if patch.Empty() {
		return nil, errorbank.BadRequest("no fields provided for update")
	}
	if err := validatePatch(patch); err != nil {
		return nil, err
	}

	order, err := s.repo.Update(ctx, id, patch)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to update order", errorbank.WithCause(err))
	}

	if err := s.storeInCache(ctx, order); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", id), zap.Error(err))
	}
	s.invalidateStats(ctx)
	s.publish(ctx, EventOrderUpdated, []int64{id}, order.Status)

	return order, nil
}

// Delete removes a single order. Deletion is physical and irreversible.
func (s *Service) Delete(ctx context.Context, id int64) error {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return errorbank.NotFound("order not found")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return errorbank.Internal("failed to delete order", errorbank.WithCause(err))
	}

	s.dropFromCache(ctx, id)
	s.invalidateStats(ctx)
	s.publish(ctx, EventOrderDeleted, []int64{id}, "")

	return nil
}

// BulkSetStatus sets one status across the given orders atomically and
// returns the number of rows changed. Missing ids simply reduce the count.
func (s *Service) BulkSetStatus(ctx context.Context, ids []int64, status entity.Status) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkSetStatus", trace.WithAttributes(attribute.Int("ids", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return 0, errorbank.BadRequest("order_ids must not be empty")
	}
	if !status.Valid() {
		return 0, errorbank.BadRequest(fmt.Sprintf("unknown status %q", status))
	}

	affected, err := s.repo.BulkSetStatus(ctx, ids, status)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to update order statuses", errorbank.WithCause(err))
	}

	s.dropManyFromCache(ctx, ids)
	s.publish(ctx, EventOrdersStatusChanged, ids, status)

	return affected, nil
}

// BulkDuplicate copies the given orders atomically, assigning each copy a
// collision-free duplicate number. Fails only when none of the ids exist.
func (s *Service) BulkDuplicate(ctx context.Context, ids []int64) ([]entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkDuplicate", trace.WithAttributes(attribute.Int("ids", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return nil, errorbank.BadRequest("order_ids must not be empty")
	}

	created, err := s.repo.BulkDuplicate(ctx, ids)
	if err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return nil, errorbank.NotFound("no orders found to duplicate")
		}
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to duplicate orders", errorbank.WithCause(err))
	}

	s.invalidateStats(ctx)
	createdIDs := make([]int64, 0, len(created))
	for i := range created {
		createdIDs = append(createdIDs, created[i].ID)
	}
	s.publish(ctx, EventOrdersDuplicated, createdIDs, "")

	return created, nil
}

// BulkDelete removes the given orders atomically and returns the count
// actually removed. Missing ids simply reduce the count.
func (s *Service) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.BulkDelete", trace.WithAttributes(attribute.Int("ids", len(ids))))
	defer span.End()

	if len(ids) == 0 {
		return 0, errorbank.BadRequest("order_ids must not be empty")
	}

	deleted, err := s.repo.BulkDelete(ctx, ids)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return 0, errorbank.Internal("failed to delete orders", errorbank.WithCause(err))
	}

	s.dropManyFromCache(ctx, ids)
	s.publish(ctx, EventOrdersDeleted, ids, "")

	return deleted, nil
}

// Stats aggregates the order book, consulting cache first.
func (s *Service) Stats(ctx context.Context) (repo.Stats, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Stats")
	defer span.End()

	if s.cache != nil {
		if bytes, err := s.cache.Get(ctx, StatsCacheKey); err == nil {
			var stats repo.Stats
			if err := json.Unmarshal(bytes, &stats); err == nil {
				return stats, nil
			}
		}
	}

	stats, err := s.repo.Stats(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return repo.Stats{}, errorbank.Internal("failed to load order stats", errorbank.WithCause(err))
	}

	if s.cache != nil {
		if bytes, err := json.Marshal(stats); err == nil {
			if err := s.cache.Set(ctx, StatsCacheKey, bytes, s.cacheTTL); err != nil {
				s.logger.Warn("stats cache write failed", zap.Error(err))
			}
		}
	}

	return stats, nil
}

func validateCreate(in CreateInput) error {
	if in.CustomerName == "" {
		return errorbank.BadRequest("customer_name must not be empty")
	}
	if len(in.CustomerName) > maxCustomerName {
		return errorbank.BadRequest(fmt.Sprintf("customer_name exceeds %d characters", maxCustomerName))
	}
	if in.OrderDate.IsZero() {
		return errorbank.BadRequest("order_date is required")
	}
	if !in.Status.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("unknown status %q", in.Status))
	}
	if !in.PaymentStatus.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("unknown payment status %q", in.PaymentStatus))
	}
	if !in.TotalAmount.IsPositive() {
		return errorbank.BadRequest("total_amount must be greater than zero")
	}
	return nil
}

func validatePatch(patch repo.Patch) error {
	if patch.CustomerName != nil {
		if *patch.CustomerName == "" {
			return errorbank.BadRequest("customer_name must not be empty")
		}
		if len(*patch.CustomerName) > maxCustomerName {
			return errorbank.BadRequest(fmt.Sprintf("customer_name exceeds %d characters", maxCustomerName))
		}
	}
	if patch.Status != nil && !patch.Status.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("unknown status %q", *patch.Status))
	}
	if patch.PaymentStatus != nil && !patch.PaymentStatus.Valid() {
		return errorbank.BadRequest(fmt.Sprintf("unknown payment status %q", *patch.PaymentStatus))
	}
	if patch.TotalAmount != nil && !patch.TotalAmount.IsPositive() {
		return errorbank.BadRequest("total_amount must be greater than zero")
	}
	return nil
}

// normalizeAvatar maps an empty avatar string to NULL.
func normalizeAvatar(avatar *string) *string {
	if avatar == nil || *avatar == "" {
		return nil
	}
	return avatar
}

func (s *Service) publish(ctx context.Context, eventType string, ids []int64, status entity.Status) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	event := Event{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		OrderIDs:   ids,
		Status:     status,
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal order event", zap.String("type", eventType), zap.Error(err))
		return
	}
	if err := s.publisher.Publish(ctx, []byte(event.ID), payload); err != nil {
		s.logger.Error("publish order event", zap.String("type", eventType), zap.Error(err))
	}
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	if s.cache == nil {
		return nil, cache.ErrCacheMiss
	}
	bytes, err := s.cache.Get(ctx, CacheKey(id))
	if err != nil {
		return nil, err
	}
	var order entity.Order
	if err := json.Unmarshal(bytes, &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if s.cache == nil || order == nil {
		return nil
	}
	bytes, err := json.Marshal(order)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, CacheKey(order.ID), bytes, s.cacheTTL)
}

func (s *Service) dropFromCache(ctx context.Context, id int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, CacheKey(id)); err != nil {
		s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
	}
}

// dropManyFromCache invalidates a set of orders plus the stats aggregate in
// one cache round trip.
func (s *Service) dropManyFromCache(ctx context.Context, ids []int64) {
	if s.cache == nil {
		return
	}
	keys := make([]string, 0, len(ids)+1)
	for _, id := range ids {
		keys = append(keys, CacheKey(id))
	}
	keys = append(keys, StatsCacheKey)
	if err := s.cache.Delete(ctx, keys...); err != nil {
		s.logger.Warn("orders cache bulk delete failed", zap.Int("keys", len(keys)), zap.Error(err))
	}
}

func (s *Service) invalidateStats(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, StatsCacheKey); err != nil {
		s.logger.Warn("stats cache delete failed", zap.Error(err))
	}
}
