package party

import (
	"context"

	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/botica-labs/botica/internal/database"
	"github.com/botica-labs/botica/internal/entity"
)

var repoTracer = otel.Tracer("github.com/botica-labs/botica/repository/party")

// Repository answers existence lookups for customers, suppliers, and the
// operators recorded on orders.
type Repository struct {
	reader *bun.DB
}

// NewRepository wires a repository backed by the read connection.
func NewRepository(conns *database.Connections) *Repository {
	return &Repository{reader: conns.Reader}
}

// CustomerExists reports whether a customer with the given id is on file.
func (r *Repository) CustomerExists(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "PartyRepository.CustomerExists", trace.WithAttributes(attribute.Int64("customer.id", id)))
	defer span.End()

	return r.reader.NewSelect().Model((*entity.Customer)(nil)).Where("id = ?", id).Exists(ctx)
}

// SupplierExists reports whether a supplier with the given id is on file.
func (r *Repository) SupplierExists(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "PartyRepository.SupplierExists", trace.WithAttributes(attribute.Int64("supplier.id", id)))
	defer span.End()

	return r.reader.NewSelect().Model((*entity.Supplier)(nil)).Where("id = ?", id).Exists(ctx)
}

// UserExists reports whether an active operator with the given id is on file.
func (r *Repository) UserExists(ctx context.Context, id int64) (bool, error) {
	ctx, span := repoTracer.Start(ctx, "PartyRepository.UserExists", trace.WithAttributes(attribute.Int64("user.id", id)))
	defer span.End()

	return r.reader.NewSelect().Model((*entity.User)(nil)).Where("id = ?", id).Where("active").Exists(ctx)
}
