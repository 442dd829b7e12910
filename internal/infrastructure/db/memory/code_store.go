package memory

import (
	"context"
	"sync"
	"time"

	"github.com/bottlerun/exchange-api/internal/core/ports"
)

type codeEntry struct {
	code    string
	expires time.Time
}

// CodeStore keeps mailed codes in a map; expired entries are dropped lazily.
type CodeStore struct {
	mu    sync.Mutex
	codes map[string]codeEntry
	now   func() time.Time
}

func NewCodeStore() *CodeStore {
	return &CodeStore{codes: make(map[string]codeEntry), now: time.Now}
}

func (c *CodeStore) Save(_ context.Context, purpose ports.CodePurpose, email, code string, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.codes[string(purpose)+":"+email] = codeEntry{code: code, expires: c.now().Add(ttl)}
	return nil
}

func (c *CodeStore) Consume(_ context.Context, purpose ports.CodePurpose, email, code string) (bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	key := string(purpose) + ":" + email
	e, ok := c.codes[key]
	if !ok {
		return false, nil
	}
	if c.now().After(e.expires) {
		delete(c.codes, key)
		return false, nil
	}
	if e.code != code {
		return false, nil
	}
	delete(c.codes, key)
	return true, nil
}
