package order

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/botica-labs/botica/internal/cache"
	"github.com/botica-labs/botica/internal/config"
	"github.com/botica-labs/botica/internal/entity"
	"github.com/botica-labs/botica/internal/messaging"
	"github.com/botica-labs/botica/internal/money"
	"github.com/botica-labs/botica/internal/repository/catalog"
	repo "github.com/botica-labs/botica/internal/repository/order"
	"github.com/botica-labs/botica/pkg/errorbank"
)

var serviceTracer = otel.Tracer("github.com/botica-labs/botica/service/order")

// Service is the order transaction engine: it validates drafts, stamps
// financial totals, persists sale and purchase orders atomically, and
// drives the cancellation and state lifecycle.
type Service struct {
	store     Store
	validator *Validator
	cache     cache.Store
	cacheTTL  time.Duration
	logger    *zap.Logger
	publisher messaging.Client
	messaging messagingConfig
	now       func() time.Time
}

// messagingConfig contains messaging specific knobs we care about.
type messagingConfig struct {
	enabled bool
	topic   string
}

// Params defines dependencies for constructing Service.
type Params struct {
	fx.In

	Store     Store
	Validator *Validator
	Cache     cache.Store
	Config    config.Config
	Logger    *zap.Logger
	Publisher messaging.Client
}

// NewService wires a new Service instance.
func NewService(p Params) *Service {
	return &Service{
		store:     p.Store,
		validator: p.Validator,
		cache:     p.Cache,
		cacheTTL:  p.Config.Cache.DefaultTTL,
		logger:    p.Logger,
		publisher: p.Publisher,
		messaging: messagingConfig{
			enabled: p.Config.Messaging.Enabled,
			topic:   p.Config.Messaging.Kafka.Topic,
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Create validates, prices, and persists a draft order with its lines as
// one unit of work. Validation failures surface before anything is
// written; persistence failures roll the whole order back.
func (s *Service) Create(ctx context.Context, draft *entity.Order) error {
	if draft == nil {
		return errorbank.BadRequest("order payload is required")
	}
	ctx, span := serviceTracer.Start(ctx, "OrderService.Create", trace.WithAttributes(attribute.String("order.kind", string(draft.Kind))))
	defer span.End()

	products, err := s.validator.ValidateCreate(ctx, draft)
	if err != nil {
		return err
	}

	s.price(draft, products)

	if draft.OccurredAt.IsZero() {
		draft.OccurredAt = s.now()
	}
	draft.CreatedAt = s.now()
	draft.UpdatedAt = draft.CreatedAt
	if draft.State == "" {
		if draft.Kind == entity.KindSale {
			draft.State = entity.StateCompleted
		} else {
			draft.State = entity.StatePending
		}
	}

	if err := s.store.Create(ctx, draft); err != nil {
		switch {
		case errors.Is(err, catalog.ErrInsufficientStock):
			// Lost the race between the validator's stock read and the
			// in-transaction conditional decrement.
			return errorbank.InsufficientStock("insufficient stock")
		case errors.Is(err, catalog.ErrNotFound):
			return errorbank.NotFound("product not found")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return errorbank.Internal("failed to create order", errorbank.WithCause(err))
		}
	}

	if err := s.storeInCache(ctx, draft); err != nil {
		s.logger.Warn("orders cache write failed", zap.Int64("id", draft.ID), zap.Error(err))
	}

	s.publishEvent(ctx, createdEvent(draft))
	s.logger.Info("order created",
		zap.Int64("id", draft.ID),
		zap.String("kind", string(draft.Kind)),
		zap.String("total", draft.Total.StringFixed(2)),
	)
	return nil
}

// price stamps line subtotals and the order's financial totals. Discount is
// caller-supplied for sales and forced to zero for purchases; sale lines
// get the catalog name snapshotted for historical tickets.
func (s *Service) price(draft *entity.Order, products map[int64]*entity.Product) {
	for _, line := range draft.Lines {
		line.Subtotal = money.LineSubtotal(line.Quantity, line.UnitPrice)
		if draft.Kind == entity.KindSale {
			if product, ok := products[line.ProductID]; ok {
				line.ProductName = product.Name
			}
		}
	}
	draft.Subtotal = money.OrderSubtotal(draft.Lines)
	if draft.Kind != entity.KindSale {
		draft.Discount = decimal.Zero
	}
	base := money.TaxableBase(draft.Subtotal, draft.Discount)
	draft.Tax = money.Tax(base)
	draft.Total = money.Total(base, draft.Tax)
}

// Cancel marks an order cancelled and reverses its inventory effects
// atomically. Cancelling twice is a conflict.
func (s *Service) Cancel(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order, err := s.store.Cancel(ctx, id)
	if err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		case errors.Is(err, repo.ErrAlreadyCancelled):
			return nil, errorbank.Conflict("order already cancelled")
		case errors.Is(err, catalog.ErrInsufficientStock):
			// Reversing a purchase needs the received units still on the
			// shelf; if they were sold meanwhile the cancel cannot proceed.
			return nil, errorbank.Conflict("cannot reverse inventory: stock already consumed")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to cancel order", errorbank.WithCause(err))
		}
	}

	if err := s.dropFromCache(ctx, id); err != nil {
		s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
	}

	s.publishEvent(ctx, cancelledEvent(order))
	s.logger.Info("order cancelled", zap.Int64("id", id), zap.String("kind", string(order.Kind)))
	return order, nil
}

// UpdateState moves a purchase through its transition table. Sales never
// change state here, and cancellation is only reachable through Cancel.
func (s *Service) UpdateState(ctx context.Context, id int64, newState entity.State) (*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.UpdateState", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.state", string(newState)),
	))
	defer span.End()

	if !newState.ValidForPurchase() {
		return nil, errorbank.BadRequest("unknown purchase state", errorbank.WithDetail("state", string(newState)))
	}

	order, err := s.store.GetByID(ctx, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, errorbank.NotFound("order not found")
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to load order", errorbank.WithCause(err))
	}
	if order.Kind != entity.KindPurchase {
		return nil, errorbank.BadRequest("only purchases support state updates")
	}
	if newState == entity.StateCancelled {
		return nil, errorbank.Conflict("cancellation must go through cancel so inventory is reversed")
	}
	if !transitionAllowed(order.State, newState) {
		return nil, errorbank.Conflict(fmt.Sprintf("cannot move purchase from %s to %s", order.State, newState),
			errorbank.WithDetail("from", string(order.State)),
			errorbank.WithDetail("to", string(newState)),
		)
	}

	if err := s.store.UpdateState(ctx, id, order.State, newState); err != nil {
		switch {
		case errors.Is(err, repo.ErrNotFound):
			return nil, errorbank.NotFound("order not found")
		case errors.Is(err, repo.ErrStateConflict):
			return nil, errorbank.Conflict("order state changed concurrently")
		default:
			span.RecordError(err)
			span.SetStatus(codes.Error, "repository error")
			return nil, errorbank.Internal("failed to update order state", errorbank.WithCause(err))
		}
	}

	if err := s.dropFromCache(ctx, id); err != nil {
		s.logger.Warn("orders cache delete failed", zap.Int64("id", id), zap.Error(err))
	}

	s.publishEvent(ctx, stateChangedEvent(order, order.State, newState))
	order.State = newState
	return order, nil
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

	order, err := s.store.GetByID(ctx, id)
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

// List returns all orders, newest first.
func (s *Service) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.List")
	defer span.End()

	orders, err := s.store.List(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListByDateRange returns orders whose timestamp falls within [start, end].
func (s *Service) ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByDateRange")
	defer span.End()

	if end.Before(start) {
		return nil, errorbank.BadRequest("end precedes start")
	}
	orders, err := s.store.ListByDateRange(ctx, start, end)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// ListByCounterparty returns orders for one customer or supplier.
func (s *Service) ListByCounterparty(ctx context.Context, id int64) ([]*entity.Order, error) {
	ctx, span := serviceTracer.Start(ctx, "OrderService.ListByCounterparty", trace.WithAttributes(attribute.Int64("counterparty.id", id)))
	defer span.End()

	if id <= 0 {
		return nil, errorbank.BadRequest("invalid counterparty id")
	}
	orders, err := s.store.ListByCounterparty(ctx, id)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "repository error")
		return nil, errorbank.Internal("failed to list orders", errorbank.WithCause(err))
	}
	return orders, nil
}

// publishEvent hands the audit event to the bus after commit. Failures are
// logged and swallowed: the business operation already succeeded.
func (s *Service) publishEvent(ctx context.Context, event AuditEvent) {
	if !s.messaging.enabled || s.publisher == nil {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal audit event", zap.Error(err))
		return
	}
	msg := messaging.Message{
		Key:     []byte(fmt.Sprintf("order-%d", event.OrderID)),
		Value:   payload,
		Headers: map[string]string{"event-type": event.Type},
	}
	if err := s.publisher.Publish(ctx, msg); err != nil {
		s.logger.Error("publish audit event", zap.String("type", event.Type), zap.Error(err))
	}
}

func (s *Service) cacheKey(id int64) string {
	return fmt.Sprintf("orders:%d", id)
}

func (s *Service) getFromCache(ctx context.Context, id int64) (*entity.Order, error) {
	var order entity.Order
	if err := cache.GetJSON(ctx, s.cache, s.cacheKey(id), &order); err != nil {
		return nil, err
	}
	return &order, nil
}

func (s *Service) storeInCache(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return nil
	}
	return cache.SetJSON(ctx, s.cache, s.cacheKey(order.ID), order, s.cacheTTL)
}

func (s *Service) dropFromCache(ctx context.Context, id int64) error {
	if s.cache == nil {
		return nil
	}
	return s.cache.Delete(ctx, s.cacheKey(id))
}
