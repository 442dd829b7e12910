package handler

import (
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

type createOrderRequest struct {
	CurrentBottle   string          `json:"current_bottle"   validate:"required,max=128"`
	NewBottle       string          `json:"new_bottle"       validate:"required,max=128"`
	DeliveryAddress string          `json:"delivery_address" validate:"required,max=512"`
	ClientLatitude  *float64        `json:"client_latitude"  validate:"omitempty,latitude"`
	ClientLongitude *float64        `json:"client_longitude" validate:"omitempty,longitude"`
	PriceDiff       decimal.Decimal `json:"price_diff"`
	ServiceFee      decimal.Decimal `json:"service_fee"`
	RunnerFee       decimal.Decimal `json:"runner_fee"`
	Tip             decimal.Decimal `json:"tip"`
	TotalPrice      decimal.Decimal `json:"total_price"`
}

// details converts the request; fees and tip must not be negative, the price
// difference may be.
func (r createOrderRequest) details() (domain.OrderDetails, error) {
	for name, v := range map[string]decimal.Decimal{
		"service_fee": r.ServiceFee,
		"runner_fee":  r.RunnerFee,
		"tip":         r.Tip,
		"total_price": r.TotalPrice,
	} {
		if v.IsNegative() {
			return domain.OrderDetails{}, fmt.Errorf("%w: %s must not be negative", domain.ErrValidation, name)
		}
	}

	d := domain.OrderDetails{
		CurrentBottle:   strings.TrimSpace(r.CurrentBottle),
		NewBottle:       strings.TrimSpace(r.NewBottle),
		DeliveryAddress: strings.TrimSpace(r.DeliveryAddress),
		PriceDiff:       r.PriceDiff,
		ServiceFee:      r.ServiceFee,
		RunnerFee:       r.RunnerFee,
		Tip:             r.Tip,
		TotalPrice:      r.TotalPrice,
	}
	if r.ClientLatitude != nil && r.ClientLongitude != nil {
		d.Location = &domain.Coordinates{Lat: *r.ClientLatitude, Lng: *r.ClientLongitude}
	}
	return d, nil
}

type createOrderResponse struct {
	OrderID          int64  `json:"orderId"`
	VerificationCode string `json:"verificationCode"`
}

// verificationCode accepts the code as a JSON string or number, since
// clients send either.
type verificationCode string

func (v *verificationCode) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*v = verificationCode(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("verification_code must be a string or number")
	}
	*v = verificationCode(n.String())
	return nil
}

type completeOrderRequest struct {
	VerificationCode verificationCode `json:"verification_code" validate:"required"`
}

type cancelOrderRequest struct {
	Reason string `json:"reason" validate:"max=500"`
}

type orderStatusResponse struct {
	OrderID int64              `json:"orderId"`
	Status  domain.OrderStatus `json:"status"`
}

type statusHistoryItem struct {
	Status    domain.OrderStatus `json:"status"`
	ActorID   int64              `json:"actor_id"`
	Timestamp string             `json:"timestamp"`
}

type orderResponse struct {
	ID                 int64               `json:"id"`
	ClientID           int64               `json:"client_id"`
	RunnerID           *int64              `json:"runner_id"`
	Status             domain.OrderStatus  `json:"status"`
	CurrentBottle      string              `json:"current_bottle"`
	NewBottle          string              `json:"new_bottle"`
	DeliveryAddress    string              `json:"delivery_address"`
	ClientLatitude     *float64            `json:"client_latitude,omitempty"`
	ClientLongitude    *float64            `json:"client_longitude,omitempty"`
	PriceDiff          decimal.Decimal     `json:"price_diff"`
	ServiceFee         decimal.Decimal     `json:"service_fee"`
	RunnerFee          decimal.Decimal     `json:"runner_fee"`
	Tip                decimal.Decimal     `json:"tip"`
	TotalPrice         decimal.Decimal     `json:"total_price"`
	VerificationCode   string              `json:"verification_code,omitempty"`
	CancellationReason string              `json:"cancellation_reason,omitempty"`
	CancelledBy        *int64              `json:"cancelled_by,omitempty"`
	CreatedAt          string              `json:"created_at"`
	UpdatedAt          string              `json:"updated_at"`
	StatusHistory      []statusHistoryItem `json:"status_history"`
}

// toOrderResponse renders an order for viewerID. Only the client ever sees
// the verification code in a listing; the runner has to get it in person.
func toOrderResponse(o *domain.Order, viewerID int64) orderResponse {
	r := orderResponse{
		ID:                 o.ID,
		ClientID:           o.ClientID,
		RunnerID:           o.RunnerID,
		Status:             o.Status,
		CurrentBottle:      o.Details.CurrentBottle,
		NewBottle:          o.Details.NewBottle,
		DeliveryAddress:    o.Details.DeliveryAddress,
		PriceDiff:          o.Details.PriceDiff,
		ServiceFee:         o.Details.ServiceFee,
		RunnerFee:          o.Details.RunnerFee,
		Tip:                o.Details.Tip,
		TotalPrice:         o.Details.TotalPrice,
		CancellationReason: o.CancellationReason,
		CancelledBy:        o.CancelledBy,
		CreatedAt:          o.CreatedAt.UTC().Format(time.RFC3339),
		UpdatedAt:          o.UpdatedAt.UTC().Format(time.RFC3339),
		StatusHistory:      make([]statusHistoryItem, 0, len(o.StatusHistory)),
	}
	if o.ClientID == viewerID {
		r.VerificationCode = o.VerificationCode
	}
	if loc := o.Details.Location; loc != nil {
		r.ClientLatitude, r.ClientLongitude = &loc.Lat, &loc.Lng
	}
	for _, h := range o.StatusHistory {
		r.StatusHistory = append(r.StatusHistory, statusHistoryItem{
			Status:    h.Status,
			ActorID:   h.ActorID,
			Timestamp: h.Timestamp.UTC().Format(time.RFC3339),
		})
	}
	return r
}

func toOrderResponses(orders []*domain.Order, viewerID int64) []orderResponse {
	out := make([]orderResponse, 0, len(orders))
	for _, o := range orders {
		out = append(out, toOrderResponse(o, viewerID))
	}
	return out
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=2000"`
}
