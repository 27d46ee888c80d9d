package seeder

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/fx"
	"go.uber.org/zap"

	"github.com/orderdesk/orderdesk/internal/database"
	"github.com/orderdesk/orderdesk/internal/entity"
	orderrepo "github.com/orderdesk/orderdesk/internal/repository/order"
)

// Module provides the seeder to Fx.
var Module = fx.Provide(New)

// Seeder performs database seeding for local/dev setups.
type Seeder struct {
	conns  *database.Connections
	orders *orderrepo.Repository
	logger *zap.Logger
}

// New constructs a Seeder backed by the order repository so seeded rows get
// real sequence-assigned numbers.
func New(conns *database.Connections, orders *orderrepo.Repository, logger *zap.Logger) *Seeder {
	return &Seeder{conns: conns, orders: orders, logger: logger}
}

// Orders seeds example orders when the table is empty.
func (s *Seeder) Orders(ctx context.Context) error {
	count, err := s.conns.Writer.NewSelect().Model((*entity.Order)(nil)).Count(ctx)
	if err != nil {
		return err
	}
	if count > 0 {
		if s.logger != nil {
			s.logger.Info("orders already present; skipping seed", zap.Int("count", count))
		}
		return nil
	}

	avatar := "https://i.pravatar.cc/150?img=5"
	samples := []entity.Order{
		{
			CustomerName:  "Ada Lovelace",
			OrderDate:     date(2024, time.January, 12),
			Status:        entity.StatusPending,
			TotalAmount:   decimal.RequireFromString("249.99"),
			PaymentStatus: entity.PaymentUnpaid,
		},
		{
			CustomerName:   "Grace Hopper",
			CustomerAvatar: &avatar,
			OrderDate:      date(2024, time.February, 3),
			Status:         entity.StatusCompleted,
			TotalAmount:    decimal.RequireFromString("89.50"),
			PaymentStatus:  entity.PaymentPaid,
		},
		{
			CustomerName:  "Alan Turing",
			OrderDate:     date(2024, time.February, 17),
			Status:        entity.StatusRefunded,
			TotalAmount:   decimal.RequireFromString("1200.00"),
			PaymentStatus: entity.PaymentPaid,
		},
	}

	for i := range samples {
		if err := s.orders.Create(ctx, &samples[i]); err != nil {
			return err
		}
	}

	if s.logger != nil {
		s.logger.Info("seeded orders", zap.Int("count", len(samples)))
	}
	return nil
}

func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
