package handler

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/bottlerun/exchange-api/internal/core/domain"
	"github.com/bottlerun/exchange-api/internal/core/ports"
)

// stubOrderService implements ports.OrderService; unset funcs fail the test
// through a nil call.
type stubOrderService struct {
	createFn   func(ctx context.Context, clientID int64, d domain.OrderDetails) (*ports.CreateOrderResult, error)
	acceptFn   func(ctx context.Context, runnerID, orderID int64) (*domain.Order, error)
	requestFn  func(ctx context.Context, runnerID, orderID int64) error
	completeFn func(ctx context.Context, runnerID, orderID int64, code string) (*domain.Order, error)
	cancelFn   func(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error)
	pendingFn  func(ctx context.Context, userID int64) ([]*domain.Order, error)
	mineFn     func(ctx context.Context, userID int64) ([]*domain.Order, error)
}

func (s *stubOrderService) Create(ctx context.Context, clientID int64, d domain.OrderDetails) (*ports.CreateOrderResult, error) {
	return s.createFn(ctx, clientID, d)
}

func (s *stubOrderService) Accept(ctx context.Context, runnerID, orderID int64) (*domain.Order, error) {
	return s.acceptFn(ctx, runnerID, orderID)
}

func (s *stubOrderService) RequestVerification(ctx context.Context, runnerID, orderID int64) error {
	return s.requestFn(ctx, runnerID, orderID)
}

func (s *stubOrderService) Complete(ctx context.Context, runnerID, orderID int64, code string) (*domain.Order, error) {
	return s.completeFn(ctx, runnerID, orderID, code)
}

func (s *stubOrderService) Cancel(ctx context.Context, userID, orderID int64, reason string) (*domain.Order, error) {
	return s.cancelFn(ctx, userID, orderID, reason)
}

func (s *stubOrderService) ListPending(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.pendingFn(ctx, userID)
}

func (s *stubOrderService) ListMine(ctx context.Context, userID int64) ([]*domain.Order, error) {
	return s.mineFn(ctx, userID)
}

func TestOrderHandler_Create(t *testing.T) {
	stub := &stubOrderService{
		createFn: func(_ context.Context, clientID int64, d domain.OrderDetails) (*ports.CreateOrderResult, error) {
			if clientID != 3 {
				t.Fatalf("unexpected client %d", clientID)
			}
			if d.Location == nil || d.Location.Lat != 19.5 {
				t.Fatalf("location not mapped: %+v", d.Location)
			}
			if !d.Tip.Equal(decimal.RequireFromString("12.50")) {
				t.Fatalf("tip not mapped: %s", d.Tip)
			}
			return &ports.CreateOrderResult{OrderID: 11, VerificationCode: "1234"}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/orders", `{
		"current_bottle":"20L empty","new_bottle":"20L full","delivery_address":"Calle 5",
		"client_latitude":19.5,"client_longitude":-99.1,
		"price_diff":"-3.00","service_fee":5,"runner_fee":15,"tip":"12.50","total_price":29.5}`, 3)

	if err := NewOrderHandler(stub).Create(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}
	var resp createOrderResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.OrderID != 11 || resp.VerificationCode != "1234" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestOrderHandler_Create_RejectsNegativeFee(t *testing.T) {
	stub := &stubOrderService{}
	c, _ := newJSONContext(http.MethodPost, "/orders",
		`{"current_bottle":"a","new_bottle":"b","delivery_address":"c","runner_fee":-1}`, 3)

	if err := NewOrderHandler(stub).Create(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOrderHandler_Complete_CodeAsStringOrNumber(t *testing.T) {
	for _, body := range []string{`{"verification_code":"4821"}`, `{"verification_code":4821}`} {
		var got string
		stub := &stubOrderService{
			completeFn: func(_ context.Context, runnerID, orderID int64, code string) (*domain.Order, error) {
				if runnerID != 5 || orderID != 8 {
					t.Fatalf("unexpected ids %d %d", runnerID, orderID)
				}
				got = code
				return &domain.Order{ID: orderID, Status: domain.StatusCompleted}, nil
			},
		}
		c, rec := newJSONContext(http.MethodPost, "/orders/8/complete", body, 5)
		c.SetParamNames("id")
		c.SetParamValues("8")

		if err := NewOrderHandler(stub).Complete(c); err != nil {
			t.Fatalf("body %s: handler error: %v", body, err)
		}
		if got != "4821" {
			t.Fatalf("body %s: code passed as %q", body, got)
		}
		if rec.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rec.Code)
		}
	}
}

func TestOrderHandler_Accept_BadID(t *testing.T) {
	stub := &stubOrderService{}
	c, _ := newJSONContext(http.MethodPost, "/orders/abc/accept", "", 5)
	c.SetParamNames("id")
	c.SetParamValues("abc")

	if err := NewOrderHandler(stub).Accept(c); !errors.Is(err, domain.ErrValidation) {
		t.Fatalf("expected ErrValidation, got %v", err)
	}
}

func TestOrderHandler_Accept_PassesServiceError(t *testing.T) {
	stub := &stubOrderService{
		acceptFn: func(context.Context, int64, int64) (*domain.Order, error) {
			return nil, domain.ErrAlreadyAccepted
		},
	}
	c, _ := newJSONContext(http.MethodPost, "/orders/8/accept", "", 5)
	c.SetParamNames("id")
	c.SetParamValues("8")

	if err := NewOrderHandler(stub).Accept(c); !errors.Is(err, domain.ErrAlreadyAccepted) {
		t.Fatalf("expected ErrAlreadyAccepted, got %v", err)
	}
}

func TestOrderHandler_Listings_HideCodeFromRunner(t *testing.T) {
	runnerID := int64(5)
	order := &domain.Order{
		ID:               8,
		ClientID:         3,
		RunnerID:         &runnerID,
		Status:           domain.StatusAccepted,
		VerificationCode: "4821",
	}
	stub := &stubOrderService{
		mineFn: func(context.Context, int64) ([]*domain.Order, error) {
			return []*domain.Order{order}, nil
		},
	}

	for _, tc := range []struct {
		viewer int64
		want   string
	}{
		{viewer: 3, want: "4821"},
		{viewer: runnerID, want: ""},
	} {
		c, rec := newJSONContext(http.MethodGet, "/my-orders", "", tc.viewer)
		if err := NewOrderHandler(stub).ListMine(c); err != nil {
			t.Fatalf("handler error: %v", err)
		}
		var resp []orderResponse
		if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
			t.Fatalf("invalid json: %v", err)
		}
		if len(resp) != 1 || resp[0].VerificationCode != tc.want {
			t.Fatalf("viewer %d: unexpected listing %+v", tc.viewer, resp)
		}
	}
}

func TestOrderHandler_Cancel_EmptyBody(t *testing.T) {
	stub := &stubOrderService{
		cancelFn: func(_ context.Context, userID, orderID int64, reason string) (*domain.Order, error) {
			if reason != "" {
				t.Fatalf("unexpected reason %q", reason)
			}
			return &domain.Order{ID: orderID, Status: domain.StatusCancelled}, nil
		},
	}
	c, rec := newJSONContext(http.MethodPost, "/orders/8/cancel", "", 3)
	c.SetParamNames("id")
	c.SetParamValues("8")

	if err := NewOrderHandler(stub).Cancel(c); err != nil {
		t.Fatalf("handler error: %v", err)
	}
	var resp orderStatusResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	if resp.Status != domain.StatusCancelled {
		t.Fatalf("unexpected status %s", resp.Status)
	}
}
