package ports

import (
	"context"
	"time"

	"github.com/bottlerun/exchange-api/internal/core/domain"
)

// Notifier pushes lifecycle events to connected users. Delivery is
// best-effort and at-most-once: offline users simply miss the event.
type Notifier interface {
	NotifyUser(ctx context.Context, userID int64, event domain.EventType, payload any)
	BroadcastRole(ctx context.Context, role domain.Role, event domain.EventType, payload any)
}

// MailQueue accepts mail for asynchronous delivery. Enqueue never blocks and
// never reports delivery failures to the caller.
type MailQueue interface {
	Enqueue(mail domain.Mail)
}

// CodePurpose separates the namespaces of short-lived codes.
type CodePurpose string

const (
	PurposeVerifyAccount CodePurpose = "verify"
	PurposeResetPassword CodePurpose = "reset"
)

// CodeStore keeps short-lived codes mailed to users.
type CodeStore interface {
	Save(ctx context.Context, purpose CodePurpose, email, code string, ttl time.Duration) error
	// Consume deletes and returns true when code matches the stored one.
	Consume(ctx context.Context, purpose CodePurpose, email, code string) (bool, error)
}
