package catalog

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
)

var repoTracer = otel.Tracer("github.com/botica-labs/botica/repository/catalog")

// ErrNotFound is returned when a product is missing.
var ErrNotFound = errors.New("product not found")

// ErrInsufficientStock is returned when a stock decrement would drive the
// counter negative. The conditional update below is the authoritative
// sufficiency check; callers must treat it as part of their transaction.
var ErrInsufficientStock = errors.New("insufficient stock")

// Repository provides catalog reads and the transactional stock adjuster.
type Repository struct {
	writer *bun.DB
	reader *bun.DB
}

// NewRepository wires a repository backed by configured database connections.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{
		writer: conns.Writer,
		reader: conns.Reader,
	}
}

// GetProduct fetches a product by primary key using the read replica.
func (r *Repository) GetProduct(ctx context.Context, id int64) (*entity.Product, error) {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.GetProduct", trace.WithAttributes(attribute.Int64("product.id", id)))
	defer span.End()

	product := new(entity.Product)
	err := r.reader.NewSelect().Model(product).Where("id = ?", id).Scan(ctx)
	if errors.Is(err, sql.ErrNoRows) {
		span.SetStatus(codes.Error, "not found")
		return nil, ErrNotFound
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "select failed")
		return nil, err
	}
	return product, nil
}

// AdjustStock applies a signed stock delta to one product inside the
// caller's unit of work. The WHERE clause refuses updates that would leave
// the counter negative, so a concurrent sale cannot oversell: the losing
// transaction sees zero affected rows and rolls back.
func (r *Repository) AdjustStock(ctx context.Context, db bun.IDB, productID, delta int64) error {
	ctx, span := repoTracer.Start(ctx, "CatalogRepository.AdjustStock", trace.WithAttributes(
		attribute.Int64("product.id", productID),
		attribute.Int64("stock.delta", delta),
	))
	defer span.End()

	res, err := db.NewUpdate().
		Model((*entity.Product)(nil)).
		Set("stock = stock + ?", delta).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id = ?", productID).
		Where("stock + ? >= 0", delta).
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
		exists, err := db.NewSelect().
			Model((*entity.Product)(nil)).
			Where("id = ?", productID).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			span.SetStatus(codes.Error, "not found")
			return ErrNotFound
		}
		span.SetStatus(codes.Error, "insufficient stock")
		return ErrInsufficientStock
	}
	return nil
}
