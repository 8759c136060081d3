// Package features answers runtime feature toggles.
package features

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/redis/go-redis/v9"
)

// UseNewCompanySubscription switches subscription reads to the per-period store.
const UseNewCompanySubscription = "use-new-company-subscription"

const keyPrefix = "feature:"

// Flags reports whether a named feature is enabled.
type Flags interface {
	Enabled(ctx context.Context, name string) (bool, error)
}

// Static is an in-process flag set.
type Static struct {
	mu    sync.RWMutex
	flags map[string]bool
}

func NewStatic(enabled ...string) *Static {
	s := &Static{flags: make(map[string]bool, len(enabled))}
	for _, name := range enabled {
		s.flags[name] = true
	}
	return s
}

func (s *Static) Enabled(_ context.Context, name string) (bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.flags[name], nil
}

func (s *Static) Set(name string, on bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flags[name] = on
}

// RedisFlags reads flags stored as "feature:<name>" string keys. A missing key is off.
type RedisFlags struct {
	client redis.Cmdable
}

func NewRedis(client redis.Cmdable) *RedisFlags {
	return &RedisFlags{client: client}
}

func (f *RedisFlags) Enabled(ctx context.Context, name string) (bool, error) {
	raw, err := f.client.Get(ctx, keyPrefix+name).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("read feature %s: %w", name, err)
	}
	on, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("feature %s has non-boolean value %q", name, raw)
	}
	return on, nil
}

// Set stores the flag value.
func (f *RedisFlags) Set(ctx context.Context, name string, on bool) error {
	if err := f.client.Set(ctx, keyPrefix+name, strconv.FormatBool(on), 0).Err(); err != nil {
		return fmt.Errorf("write feature %s: %w", name, err)
	}
	return nil
}
