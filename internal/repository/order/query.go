package order

import (
	"fmt"
	"strings"

	"github.com/uptrace/bun"

	"github.com/orderdesk/orderdesk/internal/entity"
)

// Pagination bounds for list queries.
const (
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Default sorting for list queries.
const (
	DefaultSortBy    = "order_date"
	DefaultSortOrder = "desc"
)

// sortColumns is the whitelist of column names that may appear as raw text
// in an ORDER BY clause. Everything else in a query is a bound parameter.
var sortColumns = map[string]struct{}{
	"id":             {},
	"order_number":   {},
	"customer_name":  {},
	"order_date":     {},
	"status":         {},
	"total_amount":   {},
	"payment_status": {},
	"created_at":     {},
}

// ErrBadSortColumn is returned for sort fields outside the whitelist.
var ErrBadSortColumn = fmt.Errorf("sort field is not allowed")

// ErrBadSortOrder is returned for sort directions other than asc/desc.
var ErrBadSortOrder = fmt.Errorf("sort order must be asc or desc")

// ListQuery describes a filtered, sorted, paginated order listing.
// Zero-value filter fields mean "no filter".
type ListQuery struct {
	Status        entity.Status
	PaymentStatus entity.PaymentStatus
	Search        string
	SortBy        string
	SortOrder     string
	Page          int
	PerPage       int
}

// Normalize fills defaults and clamps pagination into the allowed range.
func (q ListQuery) Normalize() ListQuery {
	if q.SortBy == "" {
		q.SortBy = DefaultSortBy
	}
	if q.SortOrder == "" {
		q.SortOrder = DefaultSortOrder
	}
	q.SortOrder = strings.ToLower(q.SortOrder)
	if q.Page < 1 {
		q.Page = 1
	}
	if q.PerPage < 1 {
		q.PerPage = DefaultPerPage
	}
	if q.PerPage > MaxPerPage {
		q.PerPage = MaxPerPage
	}
	return q
}

// Validate rejects sort fields outside the whitelist and unknown directions.
// Unknown sort fields are an error, not a silent fallback; a fallback would
// mask client bugs.
func (q ListQuery) Validate() error {
	if _, ok := sortColumns[q.SortBy]; !ok {
		return fmt.Errorf("%w: %q", ErrBadSortColumn, q.SortBy)
	}
	if q.SortOrder != "asc" && q.SortOrder != "desc" {
		return fmt.Errorf("%w: %q", ErrBadSortOrder, q.SortOrder)
	}
	return nil
}

// Offset converts the 1-based page into a row offset.
func (q ListQuery) Offset() int {
	return (q.Page - 1) * q.PerPage
}

// applyFilters adds the conjunctive WHERE clauses. All filter values are
// bound parameters, never interpolated into the SQL text.
func (q ListQuery) applyFilters(sel *bun.SelectQuery) *bun.SelectQuery {
	if q.Status != "" {
		sel = sel.Where("status = ?", q.Status)
	}
	if q.PaymentStatus != "" {
		sel = sel.Where("payment_status = ?", q.PaymentStatus)
	}
	if q.Search != "" {
		pattern := "%" + q.Search + "%"
		sel = sel.WhereGroup(" AND ", func(sq *bun.SelectQuery) *bun.SelectQuery {
			return sq.
				Where("LOWER(order_number) LIKE LOWER(?)", pattern).
				WhereOr("LOWER(customer_name) LIKE LOWER(?)", pattern)
		})
	}
	return sel
}

// applySort adds ORDER BY. Only call after Validate: the column name is the
// one piece of the query rendered as raw text.
func (q ListQuery) applySort(sel *bun.SelectQuery) *bun.SelectQuery {
	return sel.OrderExpr("? ?", bun.Ident(q.SortBy), bun.Safe(strings.ToUpper(q.SortOrder)))
}

// applyPage adds LIMIT/OFFSET.
func (q ListQuery) applyPage(sel *bun.SelectQuery) *bun.SelectQuery {
	return sel.Limit(q.PerPage).Offset(q.Offset())
}

// TotalPages computes ceil(total / per_page) for a normalized query.
func (q ListQuery) TotalPages(total int) int {
	if total <= 0 {
		return 0
	}
	return (total + q.PerPage - 1) / q.PerPage
}
