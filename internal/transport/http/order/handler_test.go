package order

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"

	"github.com/orderdesk/orderdesk/internal/entity"
	repo "github.com/orderdesk/orderdesk/internal/repository/order"
	service "github.com/orderdesk/orderdesk/internal/service/order"
	"github.com/orderdesk/orderdesk/pkg/errorbank"
)

type mockService struct {
	ListFunc          func(ctx context.Context, q repo.ListQuery) (*service.ListResult, error)
	GetFunc           func(ctx context.Context, id int64) (*entity.Order, error)
	CreateFunc        func(ctx context.Context, in service.CreateInput) (*entity.Order, error)
	UpdateFunc        func(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error)
	DeleteFunc        func(ctx context.Context, id int64) error
	BulkSetStatusFunc func(ctx context.Context, ids []int64, status entity.Status) (int64, error)
	BulkDuplicateFunc func(ctx context.Context, ids []int64) ([]entity.Order, error)
	BulkDeleteFunc    func(ctx context.Context, ids []int64) (int64, error)
	StatsFunc         func(ctx context.Context) (repo.Stats, error)
}

func (m *mockService) List(ctx context.Context, q repo.ListQuery) (*service.ListResult, error) {
	if m.ListFunc != nil {
		return m.ListFunc(ctx, q)
	}
	return &service.ListResult{Orders: []entity.Order{}, Page: 1, PerPage: 10}, nil
}

func (m *mockService) Get(ctx context.Context, id int64) (*entity.Order, error) {
	if m.GetFunc != nil {
		return m.GetFunc(ctx, id)
	}
	return nil, errorbank.NotFound("order not found")
}

func (m *mockService) Create(ctx context.Context, in service.CreateInput) (*entity.Order, error) {
	if m.CreateFunc != nil {
		return m.CreateFunc(ctx, in)
	}
	return nil, errorbank.Internal("not implemented")
}

func (m *mockService) Update(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error) {
	if m.UpdateFunc != nil {
		return m.UpdateFunc(ctx, id, patch)
	}
	return nil, errorbank.NotFound("order not found")
}

func (m *mockService) Delete(ctx context.Context, id int64) error {
	if m.DeleteFunc != nil {
		return m.DeleteFunc(ctx, id)
	}
	return errorbank.NotFound("order not found")
}

func (m *mockService) BulkSetStatus(ctx context.Context, ids []int64, status entity.Status) (int64, error) {
	if m.BulkSetStatusFunc != nil {
		return m.BulkSetStatusFunc(ctx, ids, status)
	}
	return 0, nil
}

func (m *mockService) BulkDuplicate(ctx context.Context, ids []int64) ([]entity.Order, error) {
	if m.BulkDuplicateFunc != nil {
		return m.BulkDuplicateFunc(ctx, ids)
	}
	return nil, errorbank.NotFound("no orders found to duplicate")
}

func (m *mockService) BulkDelete(ctx context.Context, ids []int64) (int64, error) {
	if m.BulkDeleteFunc != nil {
		return m.BulkDeleteFunc(ctx, ids)
	}
	return 0, nil
}

func (m *mockService) Stats(ctx context.Context) (repo.Stats, error) {
	if m.StatsFunc != nil {
		return m.StatsFunc(ctx)
	}
	return repo.Stats{}, nil
}

func newTestRouter(svc Service) *echo.Echo {
	e := echo.New()
	Register(e, &Handler{svc: svc})
	return e
}

func doRequest(e *echo.Echo, method, target, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, target, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func sampleOrder() *entity.Order {
	avatar := "https://cdn.example.com/ada.png"
	created := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	return &entity.Order{
		ID:             1,
		OrderNumber:    "#ORD1001",
		CustomerName:   "Ada",
		CustomerAvatar: &avatar,
		OrderDate:      time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
		Status:         entity.StatusPending,
		TotalAmount:    decimal.RequireFromString("42.50"),
		PaymentStatus:  entity.PaymentUnpaid,
		CreatedAt:      created,
		UpdatedAt:      created.Add(time.Minute),
	}
}

func TestCreateOrder(t *testing.T) {
	t.Run("valid payload returns 201 with generated number", func(t *testing.T) {
		e := newTestRouter(&mockService{
			CreateFunc: func(ctx context.Context, in service.CreateInput) (*entity.Order, error) {
				if in.CustomerName != "Ada" {
					t.Fatalf("unexpected input: %+v", in)
				}
				if !in.TotalAmount.Equal(decimal.NewFromFloat(42.5)) {
					t.Fatalf("unexpected amount: %s", in.TotalAmount)
				}
				return sampleOrder(), nil
			},
		})

		body := `{"customer_name":"Ada","order_date":"2024-01-01","status":"Pending","total_amount":42.50,"payment_status":"Unpaid"}`
		rec := doRequest(e, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}

		var envelope struct {
			Success bool `json:"success"`
			Data    struct {
				OrderNumber string  `json:"order_number"`
				Status      string  `json:"status"`
				TotalAmount float64 `json:"total_amount"`
			} `json:"data"`
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
			t.Fatalf("bad response body: %v", err)
		}
		if !envelope.Success {
			t.Fatal("expected success envelope")
		}
		if !strings.HasPrefix(envelope.Data.OrderNumber, "#ORD") {
			t.Fatalf("expected #ORD prefix, got %s", envelope.Data.OrderNumber)
		}
		if envelope.Data.Status != "Pending" || envelope.Data.TotalAmount != 42.5 {
			t.Fatalf("unexpected data: %+v", envelope.Data)
		}
	})

	t.Run("malformed date returns 400", func(t *testing.T) {
		e := newTestRouter(&mockService{})
		body := `{"customer_name":"Ada","order_date":"Jan 1st","status":"Pending","total_amount":42.50,"payment_status":"Unpaid"}`
		rec := doRequest(e, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("validation error maps to 400", func(t *testing.T) {
		e := newTestRouter(&mockService{
			CreateFunc: func(ctx context.Context, in service.CreateInput) (*entity.Order, error) {
				return nil, errorbank.BadRequest("total_amount must be greater than zero")
			},
		})
		body := `{"customer_name":"Ada","order_date":"2024-01-01","status":"Pending","total_amount":-1,"payment_status":"Unpaid"}`
		rec := doRequest(e, http.MethodPost, "/orders", body)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestGetOrder(t *testing.T) {
	t.Run("found", func(t *testing.T) {
		e := newTestRouter(&mockService{
			GetFunc: func(ctx context.Context, id int64) (*entity.Order, error) {
				return sampleOrder(), nil
			},
		})
		rec := doRequest(e, http.MethodGet, "/orders/1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
		if !strings.Contains(rec.Body.String(), `"order_date":"2024-01-01"`) {
			t.Fatalf("expected formatted order_date, got %s", rec.Body)
		}
	})

	t.Run("missing returns 404", func(t *testing.T) {
		e := newTestRouter(&mockService{})
		rec := doRequest(e, http.MethodGet, "/orders/99", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("non-numeric id returns 400", func(t *testing.T) {
		e := newTestRouter(&mockService{})
		rec := doRequest(e, http.MethodGet, "/orders/abc", "")
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestListOrders(t *testing.T) {
	e := newTestRouter(&mockService{
		ListFunc: func(ctx context.Context, q repo.ListQuery) (*service.ListResult, error) {
			if q.Status != entity.StatusCompleted || q.Search != "ada" {
				t.Fatalf("filters not passed through: %+v", q)
			}
			return &service.ListResult{
				Orders:     []entity.Order{*sampleOrder()},
				Total:      11,
				Page:       2,
				PerPage:    5,
				TotalPages: 3,
			}, nil
		},
	})

	rec := doRequest(e, http.MethodGet, "/orders?status=Completed&search=ada&page=2&per_page=5", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
	}

	var envelope struct {
		Data struct {
			Orders     []json.RawMessage `json:"orders"`
			Total      int               `json:"total"`
			Page       int               `json:"page"`
			PerPage    int               `json:"per_page"`
			TotalPages int               `json:"total_pages"`
		} `json:"data"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &envelope); err != nil {
		t.Fatalf("bad response body: %v", err)
	}
	if len(envelope.Data.Orders) != 1 || envelope.Data.Total != 11 || envelope.Data.TotalPages != 3 {
		t.Fatalf("unexpected list payload: %+v", envelope.Data)
	}
}

func TestUpdateOrder(t *testing.T) {
	t.Run("partial body builds a partial patch", func(t *testing.T) {
		e := newTestRouter(&mockService{
			UpdateFunc: func(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error) {
				if patch.Status == nil || *patch.Status != entity.StatusCompleted {
					t.Fatalf("expected status patch, got %+v", patch)
				}
				if patch.CustomerName != nil || patch.TotalAmount != nil {
					t.Fatalf("unexpected extra patch fields: %+v", patch)
				}
				order := sampleOrder()
				order.Status = entity.StatusCompleted
				return order, nil
			},
		})
		rec := doRequest(e, http.MethodPut, "/orders/1", `{"status":"Completed"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
	})

	t.Run("empty body returns 400", func(t *testing.T) {
		e := newTestRouter(&mockService{
			UpdateFunc: func(ctx context.Context, id int64, patch repo.Patch) (*entity.Order, error) {
				return nil, errorbank.BadRequest("no fields provided for update")
			},
		})
		rec := doRequest(e, http.MethodPut, "/orders/1", `{}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})
}

func TestDeleteOrder(t *testing.T) {
	t.Run("existing order deletes", func(t *testing.T) {
		e := newTestRouter(&mockService{
			DeleteFunc: func(ctx context.Context, id int64) error { return nil },
		})
		rec := doRequest(e, http.MethodDelete, "/orders/1", "")
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	})

	t.Run("missing order returns 404", func(t *testing.T) {
		e := newTestRouter(&mockService{})
		rec := doRequest(e, http.MethodDelete, "/orders/99", "")
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})
}

func TestBulkRoutes(t *testing.T) {
	t.Run("bulk status returns updated count", func(t *testing.T) {
		e := newTestRouter(&mockService{
			BulkSetStatusFunc: func(ctx context.Context, ids []int64, status entity.Status) (int64, error) {
				if len(ids) != 2 || status != entity.StatusCompleted {
					t.Fatalf("unexpected args: %v %s", ids, status)
				}
				return 2, nil
			},
		})
		rec := doRequest(e, http.MethodPut, "/orders/bulk/status", `{"order_ids":[1,2],"status":"Completed"}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), `"updated_count":2`) {
			t.Fatalf("expected updated_count, got %s", rec.Body)
		}
	})

	t.Run("bulk status with empty ids returns 400", func(t *testing.T) {
		e := newTestRouter(&mockService{
			BulkSetStatusFunc: func(ctx context.Context, ids []int64, status entity.Status) (int64, error) {
				return 0, errorbank.BadRequest("order_ids must not be empty")
			},
		})
		rec := doRequest(e, http.MethodPut, "/orders/bulk/status", `{"order_ids":[],"status":"Completed"}`)
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("expected 400, got %d", rec.Code)
		}
	})

	t.Run("bulk duplicate returns new records", func(t *testing.T) {
		e := newTestRouter(&mockService{
			BulkDuplicateFunc: func(ctx context.Context, ids []int64) ([]entity.Order, error) {
				copied := *sampleOrder()
				copied.ID = 2
				copied.OrderNumber = "#ORD1001-COPY"
				return []entity.Order{copied}, nil
			},
		})
		rec := doRequest(e, http.MethodPost, "/orders/bulk/duplicate", `{"order_ids":[1]}`)
		if rec.Code != http.StatusCreated {
			t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), `"#ORD1001-COPY"`) {
			t.Fatalf("expected duplicate number, got %s", rec.Body)
		}
	})

	t.Run("bulk duplicate with no matches returns 404", func(t *testing.T) {
		e := newTestRouter(&mockService{})
		rec := doRequest(e, http.MethodPost, "/orders/bulk/duplicate", `{"order_ids":[404]}`)
		if rec.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rec.Code)
		}
	})

	t.Run("bulk delete returns deleted count", func(t *testing.T) {
		e := newTestRouter(&mockService{
			BulkDeleteFunc: func(ctx context.Context, ids []int64) (int64, error) {
				return 1, nil
			},
		})
		rec := doRequest(e, http.MethodDelete, "/orders/bulk", `{"order_ids":[1,404]}`)
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body)
		}
		if !strings.Contains(rec.Body.String(), `"deleted_count":1`) {
			t.Fatalf("expected deleted_count, got %s", rec.Body)
		}
	})
}

func TestStats(t *testing.T) {
	e := newTestRouter(&mockService{
		StatsFunc: func(ctx context.Context) (repo.Stats, error) {
			return repo.Stats{TotalThisMonth: 5, Pending: 2, Completed: 2, Refunded: 1}, nil
		},
	})
	rec := doRequest(e, http.MethodGet, "/orders/stats", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	for _, fragment := range []string{`"total_this_month":5`, `"pending":2`, `"completed":2`, `"refunded":1`} {
		if !strings.Contains(rec.Body.String(), fragment) {
			t.Fatalf("expected %s in %s", fragment, rec.Body)
		}
	}
}
