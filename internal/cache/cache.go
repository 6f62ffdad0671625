// Package cache defines the provider response cache used by the signal
// adapters. The redis subpackage is the production implementation.
package cache

import (
	"context"
	"time"
)

// Cache stores JSON-encodable provider responses.
type Cache interface {
	GetJSON(ctx context.Context, key string, v interface{}) (bool, error)
	SetJSON(ctx context.Context, key string, v interface{}, ttl time.Duration) error
}

// Noop never hits and never stores.
type Noop struct{}

func (Noop) GetJSON(context.Context, string, interface{}) (bool, error) { return false, nil }

func (Noop) SetJSON(context.Context, string, interface{}, time.Duration) error { return nil }
