package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/botica-labs/botica/internal/database"
	"github.com/botica-labs/botica/internal/entity"
	"github.com/botica-labs/botica/internal/repository/catalog"
)

var repoTracer = otel.Tracer("github.com/botica-labs/botica/repository/order")

// ErrNotFound is returned when an order is missing.
var ErrNotFound = errors.New("order not found")

// ErrAlreadyCancelled is returned when cancelling a cancelled order.
var ErrAlreadyCancelled = errors.New("order already cancelled")

// ErrStateConflict is returned when a state update loses the race against a
// concurrent transition: the expected current state no longer matches.
var ErrStateConflict = errors.New("order state changed concurrently")

// Repository persists orders and their lines. Create and Cancel run as
// single units of work: header, lines, and stock deltas commit together or
// not at all.
type Repository struct {
	writer    *bun.DB
	reader    *bun.DB
	inventory *catalog.Repository
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections, inventory *catalog.Repository) *Repository {
	return &Repository{
		writer:    conns.Writer,
		reader:    conns.Reader,
		inventory: inventory,
	}
}

// Create persists the order header and its lines atomically. Every sale
// line decrements its product's stock, every purchase line increments it,
// all inside the same transaction. On any failure nothing survives.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create", trace.WithAttributes(attribute.String("order.kind", string(order.Kind))))
	defer span.End()

	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		if _, err := tx.NewInsert().Model(order).Exec(ctx); err != nil {
			return err
		}
		for _, line := range order.Lines {
			line.OrderID = order.ID
			if _, err := tx.NewInsert().Model(line).Exec(ctx); err != nil {
				return err
			}
			if err := r.inventory.AdjustStock(ctx, tx, line.ProductID, order.StockDelta(line.Quantity)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "create failed")
		return err
	}
	span.SetAttributes(attribute.Int64("order.id", order.ID))
	return nil
}

// GetByID fetches an order with its lines using the read replica.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Relation("Lines").Where("o.id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return order, nil
}

// List returns all orders, newest first.
func (r *Repository) List(ctx context.Context) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).Relation("Lines").OrderExpr("o.occurred_at DESC, o.id DESC").Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByDateRange returns orders whose timestamp falls within [start, end].
func (r *Repository) ListByDateRange(ctx context.Context, start, end time.Time) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByDateRange")
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).Relation("Lines").
		Where("o.occurred_at >= ?", start).
		Where("o.occurred_at <= ?", end).
		OrderExpr("o.occurred_at DESC, o.id DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// ListByCounterparty returns orders whose customer or supplier matches id.
func (r *Repository) ListByCounterparty(ctx context.Context, id int64) ([]*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.ListByCounterparty", trace.WithAttributes(attribute.Int64("counterparty.id", id)))
	defer span.End()

	var orders []*entity.Order
	err := r.reader.NewSelect().Model(&orders).Relation("Lines").
		WhereGroup(" AND ", func(q *bun.SelectQuery) *bun.SelectQuery {
			return q.Where("o.customer_id = ?", id).WhereOr("o.supplier_id = ?", id)
		}).
		OrderExpr("o.occurred_at DESC, o.id DESC").
		Scan(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return orders, nil
}

// Cancel marks the order cancelled and reverses every line's stock effect
// in one transaction. Cancellation is logical: lines stay on file for
// historical tickets. Returns the updated order.
func (r *Repository) Cancel(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Cancel", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.writer.RunInTx(ctx, &sql.TxOptions{}, func(ctx context.Context, tx bun.Tx) error {
		err := tx.NewSelect().Model(order).Relation("Lines").Where("o.id = ?", id).Scan(ctx)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrNotFound
		}
		if err != nil {
			return err
		}
		if order.State == entity.StateCancelled {
			return ErrAlreadyCancelled
		}

		// Flip the state first with a guard on the previous value. Only one
		// of two racing cancels can affect a row here; the loser returns
		// before touching stock.
		order.State = entity.StateCancelled
		order.UpdatedAt = time.Now().UTC()
		res, err := tx.NewUpdate().Model(order).
			Column("state", "updated_at").
			Where("id = ?", order.ID).
			Where("state != ?", entity.StateCancelled).
			Exec(ctx)
		if err != nil {
			return err
		}
		rows, err := res.RowsAffected()
		if err != nil {
			return err
		}
		if rows == 0 {
			return ErrAlreadyCancelled
		}

		for _, line := range order.Lines {
			// Undo what Create did: re-increment for sales, re-decrement
			// for purchases.
			if err := r.inventory.AdjustStock(ctx, tx, line.ProductID, -order.StockDelta(line.Quantity)); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) && !errors.Is(err, ErrAlreadyCancelled) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "cancel failed")
		}
		return nil, err
	}
	return order, nil
}

// UpdateState moves an order from an expected current state to a new one.
// The conditional WHERE defends against concurrent transitions; zero
// affected rows means the order vanished or its state moved underneath us.
func (r *Repository) UpdateState(ctx context.Context, id int64, from, to entity.State) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.UpdateState", trace.WithAttributes(
		attribute.Int64("order.id", id),
		attribute.String("order.state", string(to)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("state = ?", to).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", id).
		Where("state = ?", from).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "update failed")
		return err
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if rows == 0 {
		exists, err := r.writer.NewSelect().Model((*entity.Order)(nil)).Where("id = ?", id).Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}
		return ErrStateConflict
	}
	return nil
}
