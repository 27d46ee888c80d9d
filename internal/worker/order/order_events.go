package order

import (
	"context"
	"encoding/json"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderdesk/orderdesk/internal/cache"
	"github.com/orderdesk/orderdesk/internal/config"
	"github.com/orderdesk/orderdesk/internal/messaging"
	ordersvc "github.com/orderdesk/orderdesk/internal/service/order"
	"github.com/orderdesk/orderdesk/internal/worker"
)

var workerTracer = otel.Tracer("github.com/orderdesk/orderdesk/worker/order")

// Module registers order-related worker handlers.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewOrderEventHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewOrderEventHandler sets up a worker handler that keeps cache entries in
// step with order mutations immediately published by other instances.
func NewOrderEventHandler(logger *zap.Logger, cfg config.Config, store cache.Store) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.process", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.Event
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}

		keys := make([]string, 0, len(event.OrderIDs)+1)
		for _, id := range event.OrderIDs {
			keys = append(keys, ordersvc.CacheKey(id))
		}
		keys = append(keys, ordersvc.StatsCacheKey)
		if err := store.Delete(ctx, keys...); err != nil {
			logger.Warn("order event cache invalidation failed",
				zap.String("type", event.Type),
				zap.Error(err),
			)
		}

		logger.Info("order event processed",
			zap.String("event", event.ID),
			zap.String("type", event.Type),
			zap.Int("orders", len(event.OrderIDs)),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
