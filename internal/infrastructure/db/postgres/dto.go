package postgres

import (
	"time"

	"github.com/shopspring/decimal"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// UserDTO is the users table row.
type UserDTO struct {
	ID             int64  `gorm:"primaryKey;autoIncrement"`
	Username       string `gorm:"size:64;uniqueIndex;not null"`
	FullName       string `gorm:"size:128"`
	Email          string `gorm:"size:255;uniqueIndex;not null"`
	DOB            string `gorm:"size:32"`
	ProfilePicture string
	PasswordHash   string `gorm:"not null"`
	Role           string `gorm:"size:16;not null"`
	Verified       bool   `gorm:"not null;default:false"`
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

func (UserDTO) TableName() string { return "users" }

func userFromDomain(u *domain.User) UserDTO {
	return UserDTO{
		ID:             u.ID,
		Username:       u.Username,
		FullName:       u.FullName,
		Email:          u.Email,
		DOB:            u.DOB,
		ProfilePicture: u.ProfilePicture,
		PasswordHash:   u.PasswordHash,
		Role:           string(u.Role),
		Verified:       u.Verified,
		CreatedAt:      u.CreatedAt,
		UpdatedAt:      u.UpdatedAt,
	}
}

func (d UserDTO) toDomain() *domain.User {
	return &domain.User{
		ID:             d.ID,
		Username:       d.Username,
		FullName:       d.FullName,
		Email:          d.Email,
		DOB:            d.DOB,
		ProfilePicture: d.ProfilePicture,
		PasswordHash:   d.PasswordHash,
		Role:           domain.Role(d.Role),
		Verified:       d.Verified,
		CreatedAt:      d.CreatedAt,
		UpdatedAt:      d.UpdatedAt,
	}
}

// OrderDTO is the orders table row. History lives in its own table.
type OrderDTO struct {
	ID                 int64  `gorm:"primaryKey;autoIncrement"`
	ClientID           int64  `gorm:"index:idx_orders_client_status;not null"`
	RunnerID           *int64 `gorm:"index:idx_orders_runner_status"`
	Status             string `gorm:"size:16;not null;index:idx_orders_client_status;index:idx_orders_runner_status"`
	VerificationCode   string `gorm:"size:8"`
	CurrentBottle      string
	NewBottle          string
	DeliveryAddress    string
	LocationLat        *float64
	LocationLng        *float64
	PriceDiff          decimal.Decimal `gorm:"type:numeric(12,2)"`
	ServiceFee         decimal.Decimal `gorm:"type:numeric(12,2)"`
	RunnerFee          decimal.Decimal `gorm:"type:numeric(12,2)"`
	Tip                decimal.Decimal `gorm:"type:numeric(12,2)"`
	TotalPrice         decimal.Decimal `gorm:"type:numeric(12,2)"`
	CancellationReason string
	CancelledBy        *int64
	CreatedAt          time.Time `gorm:"index"`
	UpdatedAt          time.Time
	History            []StatusHistoryDTO `gorm:"foreignKey:OrderID"`
}

func (OrderDTO) TableName() string { return "orders" }

// StatusHistoryDTO is one row per committed transition.
type StatusHistoryDTO struct {
	ID        int64  `gorm:"primaryKey;autoIncrement"`
	OrderID   int64  `gorm:"index;not null"`
	Status    string `gorm:"size:16;not null"`
	ActorID   int64
	Timestamp time.Time
}

func (StatusHistoryDTO) TableName() string { return "order_status_history" }

func orderFromDomain(o *domain.Order) OrderDTO {
	d := OrderDTO{
		ID:                 o.ID,
		ClientID:           o.ClientID,
		RunnerID:           o.RunnerID,
		Status:             string(o.Status),
		VerificationCode:   o.VerificationCode,
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
		CreatedAt:          o.CreatedAt,
		UpdatedAt:          o.UpdatedAt,
	}
	if loc := o.Details.Location; loc != nil {
		d.LocationLat, d.LocationLng = &loc.Lat, &loc.Lng
	}
	for _, h := range o.StatusHistory {
		d.History = append(d.History, StatusHistoryDTO{
			Status:    string(h.Status),
			ActorID:   h.ActorID,
			Timestamp: h.Timestamp,
		})
	}
	return d
}

func (d OrderDTO) toDomain() *domain.Order {
	o := &domain.Order{
		ID:               d.ID,
		ClientID:         d.ClientID,
		RunnerID:         d.RunnerID,
		Status:           domain.OrderStatus(d.Status),
		VerificationCode: d.VerificationCode,
		Details: domain.OrderDetails{
			CurrentBottle:   d.CurrentBottle,
			NewBottle:       d.NewBottle,
			DeliveryAddress: d.DeliveryAddress,
			PriceDiff:       d.PriceDiff,
			ServiceFee:      d.ServiceFee,
			RunnerFee:       d.RunnerFee,
			Tip:             d.Tip,
			TotalPrice:      d.TotalPrice,
		},
		CancellationReason: d.CancellationReason,
		CancelledBy:        d.CancelledBy,
		CreatedAt:          d.CreatedAt,
		UpdatedAt:          d.UpdatedAt,
	}
	if d.LocationLat != nil && d.LocationLng != nil {
		o.Details.Location = &domain.Coordinates{Lat: *d.LocationLat, Lng: *d.LocationLng}
	}
	for _, h := range d.History {
		o.StatusHistory = append(o.StatusHistory, domain.StatusHistoryEntry{
			Status:    domain.OrderStatus(h.Status),
			ActorID:   h.ActorID,
			Timestamp: h.Timestamp,
		})
	}
	return o
}

// MessageDTO is the messages table row.
type MessageDTO struct {
	ID         int64  `gorm:"primaryKey;autoIncrement"`
	OrderID    int64  `gorm:"index;not null"`
	SenderID   int64  `gorm:"not null"`
	ReceiverID int64  `gorm:"not null"`
	Content    string `gorm:"not null"`
	IsRead     bool   `gorm:"not null;default:false"`
	CreatedAt  time.Time
}

func (MessageDTO) TableName() string { return "messages" }

func (d MessageDTO) toDomain() *domain.Message {
	return &domain.Message{
		ID:         d.ID,
		OrderID:    d.OrderID,
		SenderID:   d.SenderID,
		ReceiverID: d.ReceiverID,
		Content:    d.Content,
		Read:       d.IsRead,
		CreatedAt:  d.CreatedAt,
	}
}
