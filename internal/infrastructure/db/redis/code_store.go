package redis

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/bottlerun/exchange-api/internal/core/ports"
)

// consumeScript deletes the key only when it holds the submitted code, so a
// code is single-use even under concurrent submissions.
var consumeScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// CodeStore keeps mailed codes as expiring Redis keys.
// Key format: code:<purpose>:<email>
type CodeStore struct {
	client *redis.Client
}

// NewCodeStore creates a CodeStore wrapping the given Redis client.
func NewCodeStore(client *redis.Client) *CodeStore {
	return &CodeStore{client: client}
}

// Save stores code for email, replacing any earlier one.
func (s *CodeStore) Save(ctx context.Context, purpose ports.CodePurpose, email, code string, ttl time.Duration) error {
	if err := s.client.Set(ctx, s.key(purpose, email), code, ttl).Err(); err != nil {
		return fmt.Errorf("code save: %w", err)
	}
	return nil
}

// Consume reports whether code matches and removes it when it does.
func (s *CodeStore) Consume(ctx context.Context, purpose ports.CodePurpose, email, code string) (bool, error) {
	n, err := consumeScript.Run(ctx, s.client, []string{s.key(purpose, email)}, code).Int64()
	if err != nil {
		return false, fmt.Errorf("code consume: %w", err)
	}
	return n > 0, nil
}

func (s *CodeStore) key(purpose ports.CodePurpose, email string) string {
	return fmt.Sprintf("code:%s:%s", purpose, email)
}
