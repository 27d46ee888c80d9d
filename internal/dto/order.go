package dto

import "time"

// DateLayout is the wire format for order_date values.
const DateLayout = "2006-01-02"

// OrderResponse represents an order as exposed via transport layers.
type OrderResponse struct {
	ID             int64     `json:"id"`
	OrderNumber    string    `json:"order_number"`
	CustomerName   string    `json:"customer_name"`
	CustomerAvatar *string   `json:"customer_avatar"`
	OrderDate      string    `json:"order_date"`
	Status         string    `json:"status"`
	TotalAmount    float64   `json:"total_amount"`
	PaymentStatus  string    `json:"payment_status"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// OrderListResponse is a page of orders plus pagination totals.
type OrderListResponse struct {
	Orders     []OrderResponse `json:"orders"`
	Total      int             `json:"total"`
	Page       int             `json:"page"`
	PerPage    int             `json:"per_page"`
	TotalPages int             `json:"total_pages"`
}

// CreateOrderRequest carries the fields required to create an order.
// id, order_number and timestamps are assigned by the store.
type CreateOrderRequest struct {
	CustomerName   string  `json:"customer_name"`
	CustomerAvatar *string `json:"customer_avatar"`
	OrderDate      string  `json:"order_date"`
	Status         string  `json:"status"`
	TotalAmount    float64 `json:"total_amount"`
	PaymentStatus  string  `json:"payment_status"`
}

// UpdateOrderRequest carries a partial update; nil fields are left untouched.
// Omitting customer_avatar and sending it as null are equivalent; an empty
// string clears the stored avatar to NULL.
type UpdateOrderRequest struct {
	CustomerName   *string  `json:"customer_name"`
	CustomerAvatar *string  `json:"customer_avatar"`
	OrderDate      *string  `json:"order_date"`
	Status         *string  `json:"status"`
	TotalAmount    *float64 `json:"total_amount"`
	PaymentStatus  *string  `json:"payment_status"`
}

// ListOrdersRequest collects the filter/sort/page query parameters.
type ListOrdersRequest struct {
	Status        string `query:"status"`
	PaymentStatus string `query:"payment_status"`
	Search        string `query:"search"`
	SortBy        string `query:"sort_by"`
	SortOrder     string `query:"sort_order"`
	Page          int    `query:"page"`
	PerPage       int    `query:"per_page"`
}

// BulkStatusRequest sets one status on a set of orders.
type BulkStatusRequest struct {
	OrderIDs []int64 `json:"order_ids"`
	Status   string  `json:"status"`
}

// BulkIDsRequest identifies the orders targeted by a bulk duplicate or delete.
type BulkIDsRequest struct {
	OrderIDs []int64 `json:"order_ids"`
}

// BulkStatusResponse reports how many rows a bulk status change touched.
type BulkStatusResponse struct {
	UpdatedCount int64 `json:"updated_count"`
}

// BulkDeleteResponse reports how many rows a bulk delete removed.
type BulkDeleteResponse struct {
	DeletedCount int64 `json:"deleted_count"`
}

// BulkDuplicateResponse returns the records created by a bulk duplicate.
type BulkDuplicateResponse struct {
	Orders []OrderResponse `json:"orders"`
}

// StatsResponse summarises the order book.
type StatsResponse struct {
	TotalThisMonth int `json:"total_this_month"`
	Pending        int `json:"pending"`
	Completed      int `json:"completed"`
	Refunded       int `json:"refunded"`
}
