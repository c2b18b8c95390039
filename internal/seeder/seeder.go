package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.uber.org/zap"

	"github.com/botica-labs/botica/internal/database"
	"github.com/botica-labs/botica/internal/entity"
)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	db     *bun.DB
	logger *zap.Logger
}

// New constructs a Seeder backed by the primary database connection.
func New(conns *database.Connections, logger *zap.Logger) *Seeder {
	return &Seeder{db: conns.Writer, logger: logger}
}

// Run seeds the catalog, parties, and operators if they are missing.
func (s *Seeder) Run(ctx context.Context) error {
	now := time.Now().UTC()

	products := []entity.Product{
		{Name: "Paracetamol 500mg", Barcode: "7501001100017", Price: decimal.New(1550, -2), Stock: 120, Active: true, CreatedAt: now},
		{Name: "Ibuprofen 400mg", Barcode: "7501001100024", Price: decimal.New(2200, -2), Stock: 80, Active: true, CreatedAt: now},
		{Name: "Amoxicillin 500mg", Barcode: "7501001100031", Price: decimal.New(8500, -2), Stock: 40, Active: true, CreatedAt: now},
		{Name: "Loratadine 10mg", Barcode: "7501001100048", Price: decimal.New(1200, -2), Stock: 200, Active: true, CreatedAt: now},
	}
	for _, sample := range products {
		product := sample
		if _, err := s.db.NewInsert().Model(&product).
			On("CONFLICT (barcode) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	customers := []entity.Customer{
		{Name: "Maria Lopez", Phone: "555-0101", Email: "maria@example.com", CreatedAt: now},
		{Name: "Jorge Ramirez", Phone: "555-0102", Email: "jorge@example.com", CreatedAt: now},
	}
	for _, sample := range customers {
		customer := sample
		if _, err := s.db.NewInsert().Model(&customer).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	suppliers := []entity.Supplier{
		{Name: "Distribuidora Nacional", Phone: "555-0201", Email: "ventas@disnac.example.com", CreatedAt: now},
		{Name: "Farmalab SA", Phone: "555-0202", Email: "pedidos@farmalab.example.com", CreatedAt: now},
	}
	for _, sample := range suppliers {
		supplier := sample
		if _, err := s.db.NewInsert().Model(&supplier).
			On("CONFLICT DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	users := []entity.User{
		{Username: "admin", FullName: "Administrator", Active: true, CreatedAt: now},
		{Username: "cashier1", FullName: "Front Desk", Active: true, CreatedAt: now},
	}
	for _, sample := range users {
		user := sample
		if _, err := s.db.NewInsert().Model(&user).
			On("CONFLICT (username) DO NOTHING").
			Exec(ctx); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seed data applied",
			zap.Int("products", len(products)),
			zap.Int("customers", len(customers)),
			zap.Int("suppliers", len(suppliers)),
			zap.Int("users", len(users)),
		)
	}
	return nil
}
