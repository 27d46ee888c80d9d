package order

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/orderdesk/orderdesk/internal/database"
	"github.com/orderdesk/orderdesk/internal/entity"
	"github.com/orderdesk/orderdesk/internal/ordernumber"
)

var repoTracer = otel.Tracer("github.com/orderdesk/orderdesk/repository/order")

// ErrNotFound is returned when the targeted order(s) are missing.
var ErrNotFound = errors.New("order not found")

// ErrEmptyPatch is returned when an update supplies no fields.
var ErrEmptyPatch = errors.New("no fields to update")

// sequenceName is the order_sequences row backing order number generation.
const sequenceName = "order_number"

// Patch is a partial order update. Nil fields are left untouched. A
// CustomerAvatar pointing at an empty string clears the column to NULL.
type Patch struct {
	CustomerName   *string
	CustomerAvatar *string
	OrderDate      *time.Time
	Status         *entity.Status
	TotalAmount    *decimal.Decimal
	PaymentStatus  *entity.PaymentStatus
}

// Empty reports whether the patch carries no fields.
func (p Patch) Empty() bool {
	return p.CustomerName == nil && p.CustomerAvatar == nil && p.OrderDate == nil &&
		p.Status == nil && p.TotalAmount == nil && p.PaymentStatus == nil
}

// Stats aggregates the order book for the dashboard.
type Stats struct {
	TotalThisMonth int
	Pending        int
	Completed      int
	Refunded       int
}

// Repository encapsulates read/write access for orders. Multi-statement
// operations run inside a single transaction on the write connection.
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

// numberSource adapts a database handle (connection or transaction) to the
// ordernumber.Source port. Handing it a transaction lets batch duplication
// see numbers inserted earlier in the same batch.
type numberSource struct {
	db bun.IDB
}

func (s *numberSource) NextSequence(ctx context.Context) (int64, error) {
	if _, err := s.db.NewUpdate().
		Table("order_sequences").
		Set("value = value + 1").
		Where("name = ?", sequenceName).
		Exec(ctx); err != nil {
		return 0, err
	}

	var value int64
	err := s.db.NewSelect().
		Table("order_sequences").
		Column("value").
		Where("name = ?", sequenceName).
		Scan(ctx, &value)
	return value, err
}

func (s *numberSource) NumberExists(ctx context.Context, number string) (bool, error) {
	return s.db.NewSelect().
		Model((*entity.Order)(nil)).
		Where("order_number = ?", number).
		Exists(ctx)
}

// Create persists a new order, assigning its number from the atomic sequence
// inside the same transaction as the insert.
func (r *Repository) Create(ctx context.Context, order *entity.Order) error {
	if order == nil {
		return errors.New("nil order")
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Create")
	defer span.End()

	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		number, err := ordernumber.Next(ctx, &numberSource{db: tx})
		if err != nil {
			return err
		}
		order.OrderNumber = number

		now := time.Now().UTC()
		order.CreatedAt = now
		order.UpdatedAt = now

		_, err = tx.NewInsert().Model(order).Exec(ctx)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "insert failed")
	}
	return err
}

// GetByID fetches an order by primary key using the read replica when available.
func (r *Repository) GetByID(ctx context.Context, id int64) (*entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.GetByID", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	order := new(entity.Order)
	err := r.reader.NewSelect().Model(order).Where("id = ?", id).Scan(ctx)
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

// List returns one page of orders plus the total count of matching rows.
// Count and page run in one transaction so totals stay consistent with the
// returned page.
func (r *Repository) List(ctx context.Context, q ListQuery) ([]entity.Order, int, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.List", trace.WithAttributes(
		attribute.Int("page", q.Page),
		attribute.Int("per_page", q.PerPage),
	))
	defer span.End()

	q = q.Normalize()
	if err := q.Validate(); err != nil {
		return nil, 0, err
	}

	var orders []entity.Order
	var total int
	err := r.reader.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var err error
		total, err = tx.NewSelect().
			Model((*entity.Order)(nil)).
			Apply(q.applyFilters).
			Count(ctx)
		if err != nil {
			return err
		}

		return tx.NewSelect().
			Model(&orders).
			Apply(q.applyFilters).
			Apply(q.applySort).
			Apply(q.applyPage).
			Scan(ctx)
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "list failed")
		return nil, 0, err
	}
	if orders == nil {
		orders = []entity.Order{}
	}
	return orders, total, nil
}

// Update applies a partial update and returns the refreshed record.
func (r *Repository) Update(ctx context.Context, id int64, patch Patch) (*entity.Order, error) {
	if patch.Empty() {
		return nil, ErrEmptyPatch
	}
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Update", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	updated := new(entity.Order)
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		exists, err := tx.NewSelect().
			Model((*entity.Order)(nil)).
			Where("id = ?", id).
			Exists(ctx)
		if err != nil {
			return err
		}
		if !exists {
			return ErrNotFound
		}

		upd := tx.NewUpdate().Model((*entity.Order)(nil)).Where("id = ?", id)
		if patch.CustomerName != nil {
			upd = upd.Set("customer_name = ?", *patch.CustomerName)
		}
		if patch.CustomerAvatar != nil {
			if *patch.CustomerAvatar == "" {
				upd = upd.Set("customer_avatar = NULL")
			} else {
				upd = upd.Set("customer_avatar = ?", *patch.CustomerAvatar)
			}
		}
		if patch.OrderDate != nil {
			upd = upd.Set("order_date = ?", *patch.OrderDate)
		}
		if patch.Status != nil {
			upd = upd.Set("status = ?", *patch.Status)
		}
		if patch.TotalAmount != nil {
			upd = upd.Set("total_amount = ?", *patch.TotalAmount)
		}
		if patch.PaymentStatus != nil {
			upd = upd.Set("payment_status = ?", *patch.PaymentStatus)
		}
		upd = upd.Set("updated_at = ?", time.Now().UTC())

		if _, err := upd.Exec(ctx); err != nil {
			return err
		}
		return tx.NewSelect().Model(updated).Where("id = ?", id).Scan(ctx)
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "update failed")
		}
		return nil, err
	}
	return updated, nil
}

// Delete removes one order. Missing rows surface as ErrNotFound.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Delete", trace.WithAttributes(attribute.Int64("order.id", id)))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.Order)(nil)).
		Where("id = ?", id).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "delete failed")
		return err
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}

// BulkSetStatus sets one status on all matching rows in a single statement
// and returns the number of rows actually changed. Ids that do not exist are
// not an error.
func (r *Repository) BulkSetStatus(ctx context.Context, ids []int64, status entity.Status) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.BulkSetStatus", trace.WithAttributes(
		attribute.Int("ids", len(ids)),
		attribute.String("status", string(status)),
	))
	defer span.End()

	res, err := r.writer.NewUpdate().
		Model((*entity.Order)(nil)).
		Set("status = ?", status).
		Set("updated_at = ?", time.Now().UTC()).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk status failed")
		return 0, err
	}
	return res.RowsAffected()
}

// BulkDuplicate copies the identified orders inside one transaction. Each
// copy gets a fresh duplicate number checked against rows inserted earlier in
// the same batch. Returns ErrNotFound when none of the ids exist.
func (r *Repository) BulkDuplicate(ctx context.Context, ids []int64) ([]entity.Order, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.BulkDuplicate", trace.WithAttributes(attribute.Int("ids", len(ids))))
	defer span.End()

	var created []entity.Order
	err := r.writer.RunInTx(ctx, nil, func(ctx context.Context, tx bun.Tx) error {
		var originals []entity.Order
		if err := tx.NewSelect().
			Model(&originals).
			Where("id IN (?)", bun.In(ids)).
			Scan(ctx); err != nil {
			return err
		}
		if len(originals) == 0 {
			return ErrNotFound
		}

		src := &numberSource{db: tx}
		now := time.Now().UTC()
		for _, original := range originals {
			number, err := ordernumber.Duplicate(ctx, src, original.OrderNumber)
			if err != nil {
				return err
			}

			copied := entity.Order{
				OrderNumber:    number,
				CustomerName:   original.CustomerName,
				CustomerAvatar: original.CustomerAvatar,
				OrderDate:      original.OrderDate,
				Status:         original.Status,
				TotalAmount:    original.TotalAmount,
				PaymentStatus:  original.PaymentStatus,
				CreatedAt:      now,
				UpdatedAt:      now,
			}
			if _, err := tx.NewInsert().Model(&copied).Exec(ctx); err != nil {
				return err
			}
			created = append(created, copied)
		}
		return nil
	})
	if err != nil {
		if !errors.Is(err, ErrNotFound) {
			span.RecordError(err)
			span.SetStatus(codes.Error, "bulk duplicate failed")
		}
		return nil, err
	}
	return created, nil
}

// BulkDelete removes all matching rows in one statement and returns the count
// actually deleted.
func (r *Repository) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.BulkDelete", trace.WithAttributes(attribute.Int("ids", len(ids))))
	defer span.End()

	res, err := r.writer.NewDelete().
		Model((*entity.Order)(nil)).
		Where("id IN (?)", bun.In(ids)).
		Exec(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "bulk delete failed")
		return 0, err
	}
	return res.RowsAffected()
}

// Stats returns per-status counts plus the number of orders dated in the
// current calendar month (UTC). Month bounds are computed here rather than
// with dialect-specific date functions.
func (r *Repository) Stats(ctx context.Context) (Stats, error) {
	ctx, span := repoTracer.Start(ctx, "OrderRepository.Stats")
	defer span.End()

	var byStatus []struct {
		Status entity.Status `bun:"status"`
		Count  int           `bun:"count"`
	}
	if err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		ColumnExpr("status").
		ColumnExpr("COUNT(*) AS count").
		Group("status").
		Scan(ctx, &byStatus); err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "status counts failed")
		return Stats{}, err
	}

	now := time.Now().UTC()
	monthStart := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	monthEnd := monthStart.AddDate(0, 1, 0)

	thisMonth, err := r.reader.NewSelect().
		Model((*entity.Order)(nil)).
		Where("order_date >= ?", monthStart).
		Where("order_date < ?", monthEnd).
		Count(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "month count failed")
		return Stats{}, err
	}

	stats := Stats{TotalThisMonth: thisMonth}
	for _, row := range byStatus {
		switch row.Status {
		case entity.StatusPending:
			stats.Pending = row.Count
		case entity.StatusCompleted:
			stats.Completed = row.Count
		case entity.StatusRefunded:
			stats.Refunded = row.Count
		}
	}
	return stats, nil
}
