package entity

import (
	"time"

	"github.com/shopspring/decimal"
	"github.com/uptrace/bun"
)

// Status labels an order's fulfilment state. There is no transition graph:
// any status may be set from any other.
type Status string

const (
	StatusPending   Status = "Pending"
	StatusCompleted Status = "Completed"
	StatusRefunded  Status = "Refunded"
)

// Valid reports whether s is one of the known statuses.
func (s Status) Valid() bool {
	switch s {
	case StatusPending, StatusCompleted, StatusRefunded:
		return true
	}
	return false
}

// PaymentStatus labels whether an order has been paid.
type PaymentStatus string

const (
	PaymentPaid   PaymentStatus = "Paid"
	PaymentUnpaid PaymentStatus = "Unpaid"
)

// Valid reports whether p is one of the known payment statuses.
func (p PaymentStatus) Valid() bool {
	return p == PaymentPaid || p == PaymentUnpaid
}

// Order represents a customer order stored in the relational database.
type Order struct {
	bun.BaseModel `bun:"table:orders"`

	ID             int64           `bun:",pk,autoincrement"`
	OrderNumber    string          `bun:"order_number"`
	CustomerName   string          `bun:"customer_name"`
	CustomerAvatar *string         `bun:"customer_avatar"`
	OrderDate      time.Time       `bun:"order_date"`
	Status         Status          `bun:"status"`
	TotalAmount    decimal.Decimal `bun:"total_amount"`
	PaymentStatus  PaymentStatus   `bun:"payment_status"`
	CreatedAt      time.Time       `bun:"created_at,nullzero,notnull,default:CURRENT_TIMESTAMP"`
	UpdatedAt      time.Time       `bun:"updated_at,nullzero"`
}
