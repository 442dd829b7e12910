package domain

import "time"

// Message is a chat line exchanged between an order's two participants.
type Message struct {
	ID         int64     `json:"id"`
	OrderID    int64     `json:"order_id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Read       bool      `json:"is_read"`
	CreatedAt  time.Time `json:"created_at"`
	SenderName string    `json:"sender_name,omitempty"`
}

// Mail is an outbound e-mail handed to the mail queue.
type Mail struct {
	To      string
	Subject string
	Body    string
}
