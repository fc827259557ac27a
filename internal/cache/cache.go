package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"
)

// Cache defines the interface for caching operations. Values are opaque
// bytes so every driver can hold them; GetObject and SetObject add JSON on top.
type Cache interface {
	// Get retrieves a value from the cache
	// Returns the value and a boolean indicating whether the key was found
	Get(ctx context.Context, key string) ([]byte, bool)

	// Set adds a value to the cache with the specified expiration
	// If expiration is 0, the driver default applies
	Set(ctx context.Context, key string, value []byte, expiration time.Duration)

	// Delete removes a key from the cache
	Delete(ctx context.Context, key string)

	// DeleteByPrefix removes all keys with the given prefix
	DeleteByPrefix(ctx context.Context, prefix string)

	// Flush removes all items from the cache
	Flush(ctx context.Context)

	// Ping reports whether the backing service is reachable
	Ping(ctx context.Context) error
}

// Predefined cache key prefixes for different entity types
const (
	PrefixNote     = "note:v1:"
	PrefixNoteTags = "note_tags:v1:"
)

// GenerateKey creates a cache key from a prefix and a set of parameters
// It joins all parameters with a colon and appends them to the prefix
func GenerateKey(prefix string, params ...interface{}) string {
	parts := make([]string, len(params)+1)
	parts[0] = prefix

	for i, param := range params {
		parts[i+1] = fmt.Sprintf("%v", param)
	}

	return strings.Join(parts, ":")
}

// GetObject decodes a JSON value stored under key
func GetObject[T any](ctx context.Context, c Cache, key string) (*T, bool) {
	data, ok := c.Get(ctx, key)
	if !ok {
		return nil, false
	}
	var v T
	if err := json.Unmarshal(data, &v); err != nil {
		c.Delete(ctx, key)
		return nil, false
	}
	return &v, true
}

// SetObject stores v as JSON under key. Values that cannot be encoded are
// not cached.
func SetObject(ctx context.Context, c Cache, key string, v any, expiration time.Duration) {
	data, err := json.Marshal(v)
	if err != nil {
		return
	}
	c.Set(ctx, key, data, expiration)
}
