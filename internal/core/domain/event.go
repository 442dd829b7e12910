package domain

// EventType names a push notification delivered over a user's channel.
type EventType string

const (
	EventNewOrder             EventType = "NEW_ORDER"
	EventOrderAccepted        EventType = "ORDER_ACCEPTED"
	EventShowVerificationCode EventType = "SHOW_VERIFICATION_CODE"
	EventOrderCompleted       EventType = "ORDER_COMPLETED"
	EventOrderCancelled       EventType = "ORDER_CANCELLED"
	EventNewMessage           EventType = "NEW_MESSAGE"
)

// Envelope is the frame written to a channel.
type Envelope struct {
	Type    EventType `json:"type"`
	Payload any       `json:"payload"`
}

// NewOrderPayload is broadcast to every connected runner.
type NewOrderPayload struct {
	ID              int64        `json:"id"`
	ClientID        int64        `json:"client_id"`
	CurrentBottle   string       `json:"current_bottle"`
	NewBottle       string       `json:"new_bottle"`
	DeliveryAddress string       `json:"delivery_address"`
	Location        *Coordinates `json:"location,omitempty"`
	RunnerFee       string       `json:"runner_fee"`
	Tip             string       `json:"tip"`
	Status          OrderStatus  `json:"status"`
}

// OrderAcceptedPayload tells the client who is coming and the code to show.
type OrderAcceptedPayload struct {
	OrderID          int64  `json:"orderId"`
	RunnerID         int64  `json:"runnerId"`
	RunnerUsername   string `json:"runnerUsername"`
	RunnerName       string `json:"runnerName"`
	VerificationCode string `json:"verificationCode"`
}

// VerificationCodePayload asks the client app to display its code.
type VerificationCodePayload struct {
	OrderID          int64  `json:"orderId"`
	VerificationCode string `json:"verificationCode"`
}

// OrderCompletedPayload is sent to the client on completion.
type OrderCompletedPayload struct {
	OrderID int64 `json:"orderId"`
}

// OrderCancelledPayload is sent to the participant who did not cancel.
type OrderCancelledPayload struct {
	OrderID       int64  `json:"orderId"`
	Reason        string `json:"reason"`
	CancelledBy   string `json:"cancelledBy"`
	CancellerName string `json:"cancellerName"`
	CancellerRole Role   `json:"cancellerRole"`
}
