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

	"github.com/botica-labs/botica/internal/config"
	"github.com/botica-labs/botica/internal/messaging"
	ordersvc "github.com/botica-labs/botica/internal/service/order"
	"github.com/botica-labs/botica/internal/worker"
)

var workerTracer = otel.Tracer("github.com/botica-labs/botica/worker/order")

// Module registers the audit trail consumer.
var Module = fx.Module("worker_order",
	fx.Provide(
		fx.Annotate(
			NewAuditHandler,
			fx.ResultTags(`group:"worker.handlers"`),
		),
	),
)

// NewAuditHandler sets up the audit collaborator: it consumes order events
// and records their human-readable summaries.
func NewAuditHandler(logger *zap.Logger, cfg config.Config) worker.HandlerRegistration {
	handler := func(ctx context.Context, msg messaging.Message) error {
		ctx, span := workerTracer.Start(ctx, "worker.orders.audit", trace.WithAttributes(
			attribute.String("messaging.topic", msg.Topic),
		))
		defer span.End()

		var event ordersvc.AuditEvent
		if err := json.Unmarshal(msg.Value, &event); err != nil {
			logger.Error("failed to decode order event", zap.Error(err))

			span.RecordError(err)
			span.SetStatus(codes.Error, "decode error")
			return err
		}
		logger.Info("audit",
			zap.String("type", event.Type),
			zap.Int64("order_id", event.OrderID),
			zap.String("kind", string(event.Kind)),
			zap.String("summary", event.Summary),
		)

		return nil
	}

	return worker.HandlerRegistration{
		Name:    "orders-audit-trail",
		Topic:   cfg.Messaging.Kafka.Topic,
		Handler: handler,
	}
}
